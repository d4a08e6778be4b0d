package guard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	directory "github.com/campuskit/directory"
	"github.com/campuskit/directory/middleware/guard"
)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*directory.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*directory.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id int64) (*directory.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*directory.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsers) Create(ctx context.Context, record *directory.User) (*directory.User, error) {
	args := m.Called(ctx, record)
	if user, ok := args.Get(0).(*directory.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsers) Update(ctx context.Context, record *directory.User) (*directory.User, error) {
	args := m.Called(ctx, record)
	if user, ok := args.Get(0).(*directory.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsers) SoftDelete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUsers) List(ctx context.Context, params directory.ListUsersParams) ([]*directory.User, int, error) {
	args := m.Called(ctx, params)
	if users, ok := args.Get(0).([]*directory.User); ok {
		return users, args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *mockUsers) TrackSuccessfulLogin(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func testTokens() *directory.TokenService {
	return directory.NewTokenService(&directory.Config{
		AccessTokenSecret:  "guard-access-secret",
		RefreshTokenSecret: "guard-refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		TokenIssuer:        "guard-test",
	}, directory.NewNopLogger())
}

func testAccount() *directory.User {
	return &directory.User{
		ID:     42,
		Email:  "guarded@example.com",
		Role:   directory.RoleDirector,
		Status: directory.UserStatusActive,
	}
}

func newApp(tokens *directory.TokenService, users directory.Users, filter func(*fiber.Ctx) bool, extra ...fiber.Handler) *fiber.App {
	app := fiber.New()

	handlers := []fiber.Handler{guard.New(guard.Config{
		Tokens: tokens,
		Users:  users,
		Filter: filter,
	})}
	handlers = append(handlers, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		identity, _ := guard.IdentityFromCtx(c)
		return c.JSON(fiber.Map{"state": guard.StateFromCtx(c), "id": identity.ID})
	})

	app.Get("/protected", handlers...)
	return app
}

func doRequest(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestGuard(t *testing.T) {
	tokens := testTokens()
	account := testAccount()

	access, err := tokens.IssueAccess(account.ID, account.Email, account.Role)
	require.NoError(t, err)

	t.Run("valid token with active account passes", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByID", mock.Anything, int64(42)).Return(account, nil).Once()

		resp := doRequest(t, newApp(tokens, users, nil), access)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		users.AssertExpectations(t)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		users := new(mockUsers)
		resp := doRequest(t, newApp(tokens, users, nil), "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		users := new(mockUsers)
		resp := doRequest(t, newApp(tokens, users, nil), "garbage")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("refresh token is rejected on the access path", func(t *testing.T) {
		refresh, err := tokens.IssueRefresh(account.ID, account.Email)
		require.NoError(t, err)

		users := new(mockUsers)
		resp := doRequest(t, newApp(tokens, users, nil), refresh)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("account deactivated after issuance is rejected", func(t *testing.T) {
		deactivated := testAccount()
		deactivated.Status = directory.UserStatusInactive

		users := new(mockUsers)
		users.On("GetByID", mock.Anything, int64(42)).Return(deactivated, nil).Once()

		resp := doRequest(t, newApp(tokens, users, nil), access)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("account deleted after issuance is rejected", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByID", mock.Anything, int64(42)).
			Return(nil, directory.ErrIdentityNotFound).Once()

		resp := doRequest(t, newApp(tokens, users, nil), access)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("public filter bypasses the guard entirely", func(t *testing.T) {
		users := new(mockUsers)
		app := fiber.New()
		app.Use(guard.New(guard.Config{
			Tokens: tokens,
			Users:  users,
			Filter: guard.PublicPaths("/health"),
		}))
		app.Get("/health", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"state": guard.StateFromCtx(c)})
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestRequireRoles(t *testing.T) {
	tokens := testTokens()
	account := testAccount()

	access, err := tokens.IssueAccess(account.ID, account.Email, account.Role)
	require.NoError(t, err)

	t.Run("allowed role passes", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByID", mock.Anything, int64(42)).Return(account, nil).Once()

		app := newApp(tokens, users, nil, guard.RequireRoles(directory.RoleDirector, directory.RoleAdmin))
		resp := doRequest(t, app, access)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("role outside the allow list is forbidden", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByID", mock.Anything, int64(42)).Return(account, nil).Once()

		app := newApp(tokens, users, nil, guard.RequireRoles(directory.RoleAdmin))
		resp := doRequest(t, app, access)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("current role from the store wins over the token claim", func(t *testing.T) {
		demoted := testAccount()
		demoted.Role = directory.RoleOfficeHead

		users := new(mockUsers)
		users.On("GetByID", mock.Anything, int64(42)).Return(demoted, nil).Once()

		// access token still claims DIRECTOR
		app := newApp(tokens, users, nil, guard.RequireRoles(directory.RoleDirector))
		resp := doRequest(t, app, access)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("missing identity is unauthorized, not forbidden", func(t *testing.T) {
		app := fiber.New()
		app.Get("/naked", guard.RequireRoles(directory.RoleAdmin), func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/naked", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestPublicPaths(t *testing.T) {
	filter := guard.PublicPaths("/health", "/auth/google*")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if filter(c) {
			return c.SendStatus(http.StatusNoContent)
		}
		return c.SendStatus(http.StatusForbidden)
	})

	cases := []struct {
		path   string
		public bool
	}{
		{"/health", true},
		{"/auth/google", true},
		{"/auth/google/callback", true},
		{"/auth/me", false},
		{"/users", false},
	}

	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.NoError(t, err)

		expected := http.StatusForbidden
		if tc.public {
			expected = http.StatusNoContent
		}
		assert.Equal(t, expected, resp.StatusCode, tc.path)
	}
}
