package directory

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
)

// FederatedProfile is the externally verified identity tuple handed over by
// the OAuth handshake. Once this component is invoked the input is trusted.
type FederatedProfile struct {
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

// Provisioner implements federated login: find-or-create the local account
// for a verified external identity and issue a token pair.
type Provisioner struct {
	users  Users
	tokens *TokenService
	hasher *Hasher
	cfg    *Config
	logger Logger
}

// NewProvisioner returns a new federated identity Provisioner.
func NewProvisioner(users Users, tokens *TokenService, hasher *Hasher, cfg *Config, logger Logger) *Provisioner {
	if logger == nil {
		logger = defLogger{}
	}
	return &Provisioner{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		cfg:    cfg,
		logger: logger,
	}
}

// Provision finds or creates the account for the profile and issues tokens.
//
// Unlike password login, tokens are issued regardless of account status: a
// PENDING account gets a pair it can show on an approval-pending screen,
// while the access guard keeps it out of protected routes.
func (p *Provisioner) Provision(ctx context.Context, profile FederatedProfile) (*LoginResult, error) {
	email := NormalizeEmail(profile.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := p.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		user, err = p.refreshAvatar(ctx, user, profile.AvatarURL)
		if err != nil {
			return nil, err
		}
	case errors.IsNotFound(err):
		user, err = p.createAccount(ctx, email, profile)
		if err != nil {
			return nil, err
		}
	default:
		p.logger.Error("Provision lookup failed", "error", err, "email", email)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up account")
	}

	pair, err := p.tokens.IssuePair(user)
	if err != nil {
		p.logger.Error("Provision token issuance failed", "error", err, "user_id", user.ID)
		return nil, err
	}

	return &LoginResult{
		Tokens: pair,
		User:   user.Sanitize(),
	}, nil
}

// refreshAvatar is the only mutation federated login performs on an existing
// account. Role, status and campus stay untouched.
func (p *Provisioner) refreshAvatar(ctx context.Context, user *User, avatarURL string) (*User, error) {
	if avatarURL == "" || avatarURL == user.ProfilePicture {
		return user, nil
	}

	updated, err := p.users.Update(ctx, &User{
		ID:             user.ID,
		ProfilePicture: avatarURL,
	})
	if err != nil {
		p.logger.Warn("Provision avatar refresh failed", "error", err, "user_id", user.ID)
		return user, nil
	}

	return updated, nil
}

func (p *Provisioner) createAccount(ctx context.Context, email string, profile FederatedProfile) (*User, error) {
	hash, err := p.defaultPasswordHash()
	if err != nil {
		return nil, err
	}

	avatar := profile.AvatarURL
	if avatar == "" {
		avatar = DefaultProfilePicture
	}

	user, err := p.users.Create(ctx, &User{
		Email:          email,
		Username:       DeriveUsername(email),
		FirstName:      profile.FirstName,
		LastName:       profile.LastName,
		PasswordHash:   hash,
		Role:           p.cfg.FederatedDefaultRole,
		Status:         UserStatusPending,
		Campus:         p.cfg.FederatedDefaultCampus,
		ProfilePicture: avatar,
	})
	if err != nil {
		// Two simultaneous first-time logins can race the create; the store
		// reports the loser as a conflict rather than crashing the request.
		return nil, err
	}

	p.logger.Info("Provisioned new federated account", "user_id", user.ID, "email", email)
	return user, nil
}

func (p *Provisioner) defaultPasswordHash() (string, error) {
	if p.cfg.FederatedDefaultPassword == "" {
		return p.hasher.RandomPasswordHash(), nil
	}
	return p.hasher.Hash(p.cfg.FederatedDefaultPassword)
}

// DeriveUsername builds a deterministic username from the email local part:
// lower-cased, with every character outside [a-z0-9] replaced by '_'.
func DeriveUsername(email string) string {
	local := NormalizeEmail(email)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}

	out := make([]byte, len(local))
	for i := 0; i < len(local); i++ {
		c := local[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			out[i] = c
		} else {
			out[i] = '_'
		}
	}

	return string(out)
}
