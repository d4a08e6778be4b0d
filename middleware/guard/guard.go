// Package guard provides the per-request access and role gates for protected
// routes. The access guard re-resolves the account from the store on every
// request; that re-resolution is the system's sole revocation mechanism, so
// admin deactivation takes effect immediately despite unrevoked tokens.
package guard

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	directory "github.com/campuskit/directory"
)

// State tracks the per-request authentication state machine.
type State string

const (
	StateUnchecked       State = "unchecked"
	StatePublicBypass    State = "public_bypass"
	StateTokenMissing    State = "token_missing"
	StateTokenInvalid    State = "token_invalid"
	StateTokenExpired    State = "token_expired"
	StateAccountRejected State = "account_rejected"
	StateAuthorized      State = "authorized"
)

// StateKey is the locals key the guard records its final state under.
const StateKey = "auth_state"

// Config configures the access guard.
type Config struct {
	Tokens *directory.TokenService
	Users  directory.Users

	// Filter marks a request as public: the guard steps aside and no
	// identity is attached.
	Filter func(c *fiber.Ctx) bool

	// AuthScheme defaults to "Bearer".
	AuthScheme string
	// ContextKey is the locals key the sanitized identity is stored under.
	ContextKey string

	ErrorHandler func(c *fiber.Ctx, err error) error
	Logger       directory.Logger
}

func (cfg *Config) setDefaults() {
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = directory.IdentityContextKey
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = directory.RespondError
	}
	if cfg.Logger == nil {
		cfg.Logger = directory.NewNopLogger()
	}
}

// New builds the access guard middleware.
func New(cfg Config) fiber.Handler {
	cfg.setDefaults()

	return func(c *fiber.Ctx) error {
		c.Locals(StateKey, StateUnchecked)

		if cfg.Filter != nil && cfg.Filter(c) {
			c.Locals(StateKey, StatePublicBypass)
			return c.Next()
		}

		raw, ok := extractBearer(c, cfg.AuthScheme)
		if !ok {
			c.Locals(StateKey, StateTokenMissing)
			return cfg.ErrorHandler(c, directory.ErrUnauthorized)
		}

		claims, err := cfg.Tokens.VerifyAccess(raw)
		if err != nil {
			if errors.Is(err, directory.ErrTokenExpired) {
				c.Locals(StateKey, StateTokenExpired)
			} else {
				c.Locals(StateKey, StateTokenInvalid)
			}
			return cfg.ErrorHandler(c, err)
		}

		id, err := claims.UserID()
		if err != nil {
			c.Locals(StateKey, StateTokenInvalid)
			return cfg.ErrorHandler(c, err)
		}

		// Never trust claims alone for current status: the account is
		// re-resolved fresh from the store on every guarded request.
		user, err := cfg.Users.GetByID(c.UserContext(), id)
		if err != nil {
			c.Locals(StateKey, StateAccountRejected)
			if errors.IsNotFound(err) {
				return cfg.ErrorHandler(c, directory.ErrUnauthorized)
			}
			cfg.Logger.Error("guard account re-resolution failed", "error", err, "user_id", id)
			return cfg.ErrorHandler(c, directory.ErrUnauthorized)
		}

		if !user.CanAuthenticate() {
			c.Locals(StateKey, StateAccountRejected)
			cfg.Logger.Warn("guard rejected account", "user_id", user.ID, "status", user.Status, "deleted", user.Deleted)
			return cfg.ErrorHandler(c, directory.ErrUnauthorized)
		}

		identity := user.Sanitize()
		c.Locals(StateKey, StateAuthorized)
		c.Locals(cfg.ContextKey, identity)
		c.SetUserContext(directory.WithContext(c.UserContext(), identity))

		return c.Next()
	}
}

// RequireRoles gates a route on an allow-list of roles. It must run after
// the access guard: a missing identity is a hard unauthorized failure,
// distinct from a role mismatch. An empty list always allows.
func RequireRoles(roles ...directory.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromCtx(c)
		if !ok {
			return directory.RespondError(c, directory.ErrUnauthorized)
		}

		if !directory.RoleAllowed(identity.Role, roles) {
			return directory.RespondError(c, directory.ErrForbidden)
		}

		return c.Next()
	}
}

// IdentityFromCtx returns the identity the access guard attached, if any.
func IdentityFromCtx(c *fiber.Ctx) (*directory.User, bool) {
	raw := c.Locals(directory.IdentityContextKey)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*directory.User)
	return user, ok
}

// StateFromCtx reports the guard's final state for the request.
func StateFromCtx(c *fiber.Ctx) State {
	raw := c.Locals(StateKey)
	if raw == nil {
		return StateUnchecked
	}
	state, ok := raw.(State)
	if !ok {
		return StateUnchecked
	}
	return state
}

// PublicPaths builds a Filter matching the given paths. A trailing '*'
// matches by prefix, anything else matches exactly.
func PublicPaths(paths ...string) func(c *fiber.Ctx) bool {
	exact := make(map[string]struct{}, len(paths))
	prefixes := []string{}
	for _, p := range paths {
		if strings.HasSuffix(p, "*") {
			prefixes = append(prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		exact[p] = struct{}{}
	}

	return func(c *fiber.Ctx) bool {
		path := c.Path()
		if _, ok := exact[path]; ok {
			return true
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}
}

func extractBearer(c *fiber.Ctx, scheme string) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}

	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
