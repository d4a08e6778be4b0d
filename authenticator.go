package directory

import (
	"context"

	"github.com/goliatone/go-errors"
)

// LoginResult is the outcome of a successful credential or federated login:
// a fresh token pair plus a sanitized account projection.
type LoginResult struct {
	Tokens *Pair `json:"tokens"`
	User   *User `json:"user"`
}

// Authenticator implements password login against the credential store.
type Authenticator struct {
	users  Users
	tokens *TokenService
	hasher *Hasher
	logger Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users Users, tokens *TokenService, hasher *Hasher, logger Logger) *Authenticator {
	if logger == nil {
		logger = defLogger{}
	}
	return &Authenticator{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		logger: logger,
	}
}

// Login verifies an email/password pair and issues a token pair.
//
// Account-not-found and wrong-password are indistinguishable to the caller.
// The lifecycle check runs before the password comparison, so a non ACTIVE
// account reports AccountNotActive even when the password is wrong.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := a.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		a.logger.Error("Login user lookup failed", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up account")
	}

	if user.Deleted {
		// Stale rows that escaped the store filter still must not log in.
		return nil, ErrInvalidCredentials
	}

	user.EnsureStatus()
	if user.Status != UserStatusActive {
		a.logger.Warn("Login blocked due to account status", "status", user.Status, "user_id", user.ID)
		return nil, ErrAccountNotActive
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	pair, err := a.tokens.IssuePair(user)
	if err != nil {
		a.logger.Error("Login token issuance failed", "error", err, "user_id", user.ID)
		return nil, err
	}

	return &LoginResult{
		Tokens: pair,
		User:   user.Sanitize(),
	}, nil
}
