package directory

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Stable text codes surfaced in error payloads.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountNotActive   = "ACCOUNT_NOT_ACTIVE"
	TextCodeUnauthorized       = "UNAUTHORIZED"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeConflict           = "CONFLICT"
	TextCodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "AUTH_TOKEN_MALFORMED"
	TextCodeTokenWrongClass    = "AUTH_TOKEN_WRONG_CLASS"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
)

// ErrInvalidCredentials is returned for a bad email/password combination.
// Account-not-found produces the same error so login never leaks existence.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotActive is returned when the account exists but its lifecycle
// state blocks password login.
var ErrAccountNotActive = errors.New("account is not active", errors.CategoryAuth).
	WithTextCode(TextCodeAccountNotActive).
	WithCode(errors.CodeForbidden)

// ErrUnauthorized covers missing/invalid/expired tokens and accounts that
// fail re-resolution checks.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when a valid identity lacks the required role.
var ErrForbidden = errors.New("insufficient role", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrConflict surfaces store uniqueness violations, e.g. two concurrent
// first-time federated logins racing to create the same account.
var ErrConflict = errors.New("resource already exists", errors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(errors.CodeConflict)

// ErrTokenExpired is returned for structurally valid tokens past their expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse or verify.
var ErrTokenMalformed = errors.New("token malformed or invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenWrongClass is returned when a correctly signed token carries the
// wrong class tag, e.g. an access token presented to the refresh endpoint.
var ErrTokenWrongClass = errors.New("token class mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeTokenWrongClass).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is the store level miss; callers translate it to the
// outward facing error appropriate for their flow.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// IsUniqueViolation detects unique constraint failures across the drivers we
// run against (sqlite in tests and dev, postgres in deployments).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// ConflictFrom wraps a store uniqueness failure into the stable conflict kind.
func ConflictFrom(err error) error {
	return errors.Wrap(err, errors.CategoryConflict, "resource already exists").
		WithTextCode(TextCodeConflict).
		WithCode(errors.CodeConflict)
}
