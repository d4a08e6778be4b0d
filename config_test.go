package directory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directory "github.com/campuskit/directory"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DIR_ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("DIR_REFRESH_TOKEN_SECRET", "refresh-secret")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := directory.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, ":9000", cfg.ServerAddr)
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
		assert.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
		assert.Equal(t, directory.RoleOfficeHead, cfg.FederatedDefaultRole)
		assert.Equal(t, 10, cfg.BcryptCost)
	})

	t.Run("missing access secret fails fast", func(t *testing.T) {
		t.Setenv("DIR_ACCESS_TOKEN_SECRET", "")
		t.Setenv("DIR_REFRESH_TOKEN_SECRET", "refresh-secret")

		_, err := directory.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("missing refresh secret fails fast", func(t *testing.T) {
		t.Setenv("DIR_ACCESS_TOKEN_SECRET", "access-secret")
		t.Setenv("DIR_REFRESH_TOKEN_SECRET", "")

		_, err := directory.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("bogus default role fails fast", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DIR_FEDERATED_DEFAULT_ROLE", "SUPERUSER")

		_, err := directory.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("overrides win over defaults", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DIR_ACCESS_TOKEN_TTL", "5m")
		t.Setenv("DIR_SERVER_ADDR", ":8080")

		cfg, err := directory.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
		assert.Equal(t, ":8080", cfg.ServerAddr)
	})

	t.Run("non positive ttl fails fast", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DIR_ACCESS_TOKEN_TTL", "0s")

		_, err := directory.LoadConfig()
		assert.Error(t, err)
	})
}
