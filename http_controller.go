package directory

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	"github.com/campuskit/directory/social"
)

// LoginRequest is the password login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate enforces the login payload contract.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 35)),
	)
}

// RefreshRequest carries the refresh token in the body, never a header, to
// keep it out of logs and caches.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate enforces the refresh payload contract.
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// AuthController exposes the authentication endpoints.
type AuthController struct {
	auth        *Authenticator
	refresher   *Refresher
	provisioner *Provisioner
	users       Users
	providers   map[string]social.Provider
	state       *social.StateManager
	cfg         *Config
	logger      Logger
}

// NewAuthController wires the auth HTTP surface.
func NewAuthController(
	auth *Authenticator,
	refresher *Refresher,
	provisioner *Provisioner,
	users Users,
	state *social.StateManager,
	cfg *Config,
	logger Logger,
	providers ...social.Provider,
) *AuthController {
	if logger == nil {
		logger = defLogger{}
	}

	index := make(map[string]social.Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			index[p.Name()] = p
		}
	}

	return &AuthController{
		auth:        auth,
		refresher:   refresher,
		provisioner: provisioner,
		users:       users,
		providers:   index,
		state:       state,
		cfg:         cfg,
		logger:      logger,
	}
}

// Login handles POST /auth/login.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	payload := LoginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return RespondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_BODY"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest).
			WithTextCode("VALIDATION_FAILED"))
	}

	result, err := ac.auth.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return RespondError(c, err)
	}

	return RespondData(c, http.StatusOK, result)
}

// Refresh handles POST /auth/refresh.
func (ac *AuthController) Refresh(c *fiber.Ctx) error {
	payload := RefreshRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return RespondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_BODY"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest).
			WithTextCode("VALIDATION_FAILED"))
	}

	pair, err := ac.refresher.Refresh(c.UserContext(), payload.RefreshToken)
	if err != nil {
		return RespondError(c, err)
	}

	return RespondData(c, http.StatusOK, pair)
}

// Me handles GET /auth/me behind the access guard. Fetching the own profile
// is also where the last-login timestamp gets recorded.
func (ac *AuthController) Me(c *fiber.Ctx) error {
	identity, ok := FromContext(c.UserContext())
	if !ok {
		return RespondError(c, ErrUnauthorized)
	}

	if err := ac.users.TrackSuccessfulLogin(c.UserContext(), identity.ID); err != nil {
		ac.logger.Warn("Me login timestamp update failed", "error", err, "user_id", identity.ID)
	}

	return RespondData(c, http.StatusOK, identity)
}

// Begin handles GET /auth/:provider, redirecting to the provider's consent
// screen with a signed state parameter.
func (ac *AuthController) Begin(c *fiber.Ctx) error {
	name := c.Params("provider")
	provider, ok := ac.providers[name]
	if !ok {
		return RespondError(c, social.ErrProviderNotFound)
	}

	stateToken, err := ac.state.Encode(&social.OAuthState{Provider: name})
	if err != nil {
		ac.logger.Error("Begin failed to encode oauth state", "error", err, "provider", name)
		return RespondError(c, err)
	}

	return c.Redirect(provider.AuthCodeURL(stateToken), http.StatusFound)
}

// Callback handles GET /auth/:provider/callback. This is a browser redirect
// flow: failures send the client to a visible error page instead of a raw
// error body.
func (ac *AuthController) Callback(c *fiber.Ctx) error {
	name := c.Params("provider")
	provider, ok := ac.providers[name]
	if !ok {
		return ac.redirectError(c, "unknown_provider")
	}

	if errParam := c.Query("error"); errParam != "" {
		ac.logger.Warn("Callback received provider error", "provider", name, "error", errParam)
		return ac.redirectError(c, errParam)
	}

	code := c.Query("code")
	if code == "" {
		return ac.redirectError(c, "missing_code")
	}

	state, err := ac.state.Decode(c.Query("state"))
	if err != nil {
		ac.logger.Warn("Callback state validation failed", "provider", name, "error", err)
		return ac.redirectError(c, "invalid_state")
	}
	if state.Provider != name {
		return ac.redirectError(c, "provider_mismatch")
	}

	token, err := provider.Exchange(c.UserContext(), code)
	if err != nil {
		ac.logger.Error("Callback token exchange failed", "provider", name, "error", err)
		return ac.redirectError(c, "exchange_failed")
	}

	profile, err := provider.UserInfo(c.UserContext(), token)
	if err != nil {
		ac.logger.Error("Callback user info fetch failed", "provider", name, "error", err)
		return ac.redirectError(c, "user_info_failed")
	}

	if !profile.EmailVerified {
		return ac.redirectError(c, "email_not_verified")
	}

	result, err := ac.provisioner.Provision(c.UserContext(), FederatedProfile{
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		AvatarURL: profile.AvatarURL,
	})
	if err != nil {
		ac.logger.Error("Callback provisioning failed", "provider", name, "error", err)
		return ac.redirectError(c, "provisioning_failed")
	}

	return RespondData(c, http.StatusOK, result)
}

func (ac *AuthController) redirectError(c *fiber.Ctx, reason string) error {
	target := ac.cfg.OAuthErrorRedirect
	if target == "" {
		target = "/login?error=oauth_failed"
	}
	return c.Redirect(target+"&reason="+reason, http.StatusFound)
}
