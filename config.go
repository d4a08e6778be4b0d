package directory

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// Config is the process wide configuration, loaded once at startup and
// passed by reference into each component. Request handling code never reads
// ambient globals.
type Config struct {
	ServerAddr  string `env:"DIR_SERVER_ADDR" envDefault:":9000"`
	DatabaseDSN string `env:"DIR_DATABASE_DSN" envDefault:"file:directory.db?cache=shared"`

	AccessTokenSecret  string        `env:"DIR_ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `env:"DIR_REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     time.Duration `env:"DIR_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"DIR_REFRESH_TOKEN_TTL" envDefault:"168h"`
	TokenIssuer        string        `env:"DIR_TOKEN_ISSUER" envDefault:"campus-directory"`

	BcryptCost int `env:"DIR_BCRYPT_COST" envDefault:"10"`

	// Defaults applied to accounts auto provisioned through federated login.
	// An empty FederatedDefaultPassword means new federated accounts get an
	// unguessable random password and remain OAuth only.
	FederatedDefaultPassword string   `env:"DIR_FEDERATED_DEFAULT_PASSWORD"`
	FederatedDefaultRole     UserRole `env:"DIR_FEDERATED_DEFAULT_ROLE" envDefault:"OFFICE_HEAD"`
	FederatedDefaultCampus   string   `env:"DIR_FEDERATED_DEFAULT_CAMPUS"`

	GoogleClientID     string `env:"DIR_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"DIR_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"DIR_GOOGLE_CALLBACK_URL"`

	OAuthStateSecret   string        `env:"DIR_OAUTH_STATE_SECRET"`
	OAuthStateTTL      time.Duration `env:"DIR_OAUTH_STATE_TTL" envDefault:"10m"`
	OAuthErrorRedirect string        `env:"DIR_OAUTH_ERROR_REDIRECT" envDefault:"/login?error=oauth_failed"`

	// SnowflakeNode distinguishes id generators across replicas.
	SnowflakeNode int64 `env:"DIR_SNOWFLAKE_NODE" envDefault:"1"`

	SeedAdminEmail    string `env:"DIR_SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"DIR_SEED_ADMIN_PASSWORD"`
}

// LoadConfig parses the environment and validates the result. Missing
// signing secrets are a fatal startup error, not a deferred runtime failure.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to parse environment configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the fail fast startup contract.
func (c *Config) Validate() error {
	if c.AccessTokenSecret == "" {
		return errors.New("access token secret is required", errors.CategoryValidation).
			WithTextCode("MISSING_ACCESS_TOKEN_SECRET")
	}

	if c.RefreshTokenSecret == "" {
		return errors.New("refresh token secret is required", errors.CategoryValidation).
			WithTextCode("MISSING_REFRESH_TOKEN_SECRET")
	}

	if _, ok := ParseRole(c.FederatedDefaultRole); !ok {
		return errors.New("federated default role is not a known role", errors.CategoryValidation).
			WithTextCode("INVALID_DEFAULT_ROLE").
			WithMetadata(map[string]any{"role": c.FederatedDefaultRole})
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive", errors.CategoryValidation).
			WithTextCode("INVALID_TOKEN_TTL")
	}

	return nil
}
