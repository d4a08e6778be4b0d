package google

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const googleIssuer = "https://accounts.google.com"

// idTokenVerifier checks id_token signatures against Google's published JWKS.
type idTokenVerifier struct {
	jwksURL  string
	audience string

	once sync.Once
	jwks *keyfunc.JWKS
	err  error
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func newIDTokenVerifier(jwksURL, audience string) *idTokenVerifier {
	return &idTokenVerifier{
		jwksURL:  jwksURL,
		audience: audience,
	}
}

func (v *idTokenVerifier) keyfunc(ctx context.Context) (jwt.Keyfunc, error) {
	v.once.Do(func() {
		v.jwks, v.err = keyfunc.Get(v.jwksURL, keyfunc.Options{
			Ctx:               ctx,
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
		})
	})

	if v.err != nil {
		return nil, v.err
	}
	return v.jwks.Keyfunc, nil
}

// Verify parses the id_token, checking signature, issuer, audience and expiry.
func (v *idTokenVerifier) Verify(ctx context.Context, raw string) (*googleUserInfo, error) {
	kf, err := v.keyfunc(ctx)
	if err != nil {
		return nil, fmt.Errorf("google: failed to load JWKS: %w", err)
	}

	claims := &idTokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, kf,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(googleIssuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return nil, fmt.Errorf("google: id_token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("google: id_token is not valid")
	}

	return &googleUserInfo{
		Sub:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Picture:       claims.Picture,
	}, nil
}
