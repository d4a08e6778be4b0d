package directory

import (
	"context"
)

// IdentityContextKey is the locals key HTTP middleware uses to stash the
// authenticated account on the request.
const IdentityContextKey = "identity"

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the sanitized identity in the given context
func WithContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// FromContext finds the identity attached by the access guard.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}
