package directory_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	directory "github.com/campuskit/directory"
	"github.com/campuskit/directory/social"
)

func newAuthApp(t *testing.T, users directory.Users) (*fiber.App, *directory.TokenService) {
	t.Helper()

	cfg := testConfig()
	cfg.OAuthStateSecret = "state-secret"
	tokens := directory.NewTokenService(cfg, directory.NewNopLogger())
	hasher := directory.NewHasher(cfg.BcryptCost)

	auth := directory.NewAuthenticator(users, tokens, hasher, directory.NewNopLogger())
	refresher := directory.NewRefresher(users, tokens, directory.NewNopLogger())
	provisioner := directory.NewProvisioner(users, tokens, hasher, cfg, directory.NewNopLogger())
	state := social.NewStateManager([]byte(cfg.OAuthStateSecret), cfg.OAuthStateTTL)

	controller := directory.NewAuthController(auth, refresher, provisioner, users, state, cfg, directory.NewNopLogger())

	app := fiber.New(fiber.Config{ErrorHandler: directory.RespondError})
	app.Post("/auth/login", controller.Login)
	app.Post("/auth/refresh", controller.Refresh)
	app.Get("/auth/me", func(c *fiber.Ctx) error {
		// stand-in for the access guard
		if id := c.Get("X-Test-Identity"); id != "" {
			c.SetUserContext(directory.WithContext(c.UserContext(), activeUser(3, "me@example.com")))
		}
		return controller.Me(c)
	})
	app.Get("/auth/:provider", controller.Begin)
	app.Get("/auth/:provider/callback", controller.Callback)

	return app, tokens
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) directory.Envelope {
	t.Helper()

	envelope := directory.Envelope{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}

func TestAuthControllerLogin(t *testing.T) {
	hasher := directory.NewHasher(4)
	hash, err := hasher.Hash("Admin@123")
	require.NoError(t, err)

	t.Run("valid credentials return the token envelope", func(t *testing.T) {
		users := new(MockUsers)
		admin := activeUser(1, "admin@university.edu")
		admin.Role = directory.RoleAdmin
		admin.PasswordHash = hash

		users.On("GetByEmail", mock.Anything, "admin@university.edu").Return(admin, nil).Once()

		app, _ := newAuthApp(t, users)
		resp := postJSON(t, app, "/auth/login", `{"email":"admin@university.edu","password":"Admin@123"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		envelope := decodeEnvelope(t, resp)
		assert.True(t, envelope.Success)

		data, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		assert.Contains(t, string(data), "accessToken")
		assert.Contains(t, string(data), "refreshToken")
		assert.NotContains(t, string(data), "password")
	})

	t.Run("wrong credentials are a 401 envelope", func(t *testing.T) {
		users := new(MockUsers)
		users.On("GetByEmail", mock.Anything, "ghost@example.com").
			Return(nil, directory.ErrIdentityNotFound).Once()

		app, _ := newAuthApp(t, users)
		resp := postJSON(t, app, "/auth/login", `{"email":"ghost@example.com","password":"whatever123"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		envelope := decodeEnvelope(t, resp)
		assert.False(t, envelope.Success)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, directory.TextCodeInvalidCredentials, envelope.Error.Code)
	})

	t.Run("validation failures are a 400 before any store hit", func(t *testing.T) {
		users := new(MockUsers)
		app, _ := newAuthApp(t, users)

		resp := postJSON(t, app, "/auth/login", `{"email":"not-an-email","password":"short"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		users := new(MockUsers)
		app, _ := newAuthApp(t, users)

		resp := postJSON(t, app, "/auth/login", `{broken`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAuthControllerRefresh(t *testing.T) {
	account := activeUser(9, "rotate@example.com")

	t.Run("valid refresh rotates the pair", func(t *testing.T) {
		users := new(MockUsers)
		users.On("GetByID", mock.Anything, int64(9)).Return(account, nil).Once()

		app, tokens := newAuthApp(t, users)
		refresh, err := tokens.IssueRefresh(account.ID, account.Email)
		require.NoError(t, err)

		resp := postJSON(t, app, "/auth/refresh", `{"refreshToken":"`+refresh+`"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing token is a 400", func(t *testing.T) {
		users := new(MockUsers)
		app, _ := newAuthApp(t, users)

		resp := postJSON(t, app, "/auth/refresh", `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("access token on refresh path is a 401", func(t *testing.T) {
		users := new(MockUsers)
		app, tokens := newAuthApp(t, users)

		access, err := tokens.IssueAccess(account.ID, account.Email, account.Role)
		require.NoError(t, err)

		resp := postJSON(t, app, "/auth/refresh", `{"refreshToken":"`+access+`"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthControllerMe(t *testing.T) {
	t.Run("returns the attached identity and records the visit", func(t *testing.T) {
		users := new(MockUsers)
		users.On("TrackSuccessfulLogin", mock.Anything, int64(3)).Return(nil).Once()

		app, _ := newAuthApp(t, users)
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("X-Test-Identity", "yes")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		envelope := decodeEnvelope(t, resp)
		assert.True(t, envelope.Success)
		users.AssertExpectations(t)
	})

	t.Run("no identity is a 401", func(t *testing.T) {
		users := new(MockUsers)
		app, _ := newAuthApp(t, users)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/me", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthControllerOAuth(t *testing.T) {
	t.Run("unknown provider begin is a 404 envelope", func(t *testing.T) {
		users := new(MockUsers)
		app, _ := newAuthApp(t, users)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/facebook", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("callback failures redirect to the error page", func(t *testing.T) {
		users := new(MockUsers)
		app, _ := newAuthApp(t, users)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/facebook/callback?code=abc", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Location"), "reason=unknown_provider")
	})
}
