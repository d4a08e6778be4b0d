package directory

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Refresher exchanges a valid refresh token for a brand new token pair.
// Rotation is full: the old refresh token is not blacklisted (there is no
// server side token store), it simply ages out at its natural expiry.
type Refresher struct {
	users  Users
	tokens *TokenService
	logger Logger
}

// NewRefresher returns a new token Refresher.
func NewRefresher(users Users, tokens *TokenService, logger Logger) *Refresher {
	if logger == nil {
		logger = defLogger{}
	}
	return &Refresher{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Refresh validates the refresh token (signature, expiry, class tag),
// re-derives current account state from the store, and issues a fresh pair.
// Re-resolution is what makes admin deactivation bite immediately even
// though tokens are stateless.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	claims, err := r.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		r.logger.Error("Refresh account re-resolution failed", "error", err, "user_id", id)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up account")
	}

	if !user.CanAuthenticate() {
		r.logger.Warn("Refresh blocked for account", "user_id", user.ID, "status", user.Status, "deleted", user.Deleted)
		return nil, ErrUnauthorized
	}

	return r.tokens.IssuePair(user)
}
