package directory

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClassRefresh tags refresh tokens. Access tokens carry no class tag.
const TokenClassRefresh = "refresh"

// AccessClaims is the claim set embedded in access tokens:
// {sub, email, role, iat, exp}.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	UserRole string `json:"role,omitempty"`
	// TokenClass is never set on access tokens; a non empty value means a
	// refresh token was presented on the access path.
	TokenClass string `json:"type,omitempty"`
}

// RefreshClaims is the claim set embedded in refresh tokens:
// {sub, email, type, iat, exp}.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email,omitempty"`
	TokenClass string `json:"type,omitempty"`
}

// UserID resolves the numeric account id from the subject claim.
func (c *AccessClaims) UserID() (int64, error) {
	return parseSubject(c.Subject)
}

// Role returns the role claim.
func (c *AccessClaims) Role() UserRole {
	return UserRole(c.UserRole)
}

// Expires returns the expiration time.
func (c *AccessClaims) Expires() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// UserID resolves the numeric account id from the subject claim.
func (c *RefreshClaims) UserID() (int64, error) {
	return parseSubject(c.Subject)
}

func parseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, ErrTokenMalformed
	}
	return id, nil
}

func formatSubject(id int64) string {
	return strconv.FormatInt(id, 10)
}
