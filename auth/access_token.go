package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ggoodman/consent-message-go/internal/jwtauth"
)

// Config describes how RFC 9068 access tokens are validated.
type Config struct {
	// Issuer is the authorization server issuer URL.
	Issuer string
	// Audiences lists accepted "aud" values, typically the public endpoint URL.
	Audiences []string
	// JWKSURL skips OIDC discovery and fetches keys from this URL instead.
	JWKSURL string
	// RequiredScopes must all be present in the token's scope claim, or any
	// one of them when AnyScope is set.
	RequiredScopes []string
	AnyScope       bool
	// AllowedAlgs defaults to RS256. "none" is never allowed.
	AllowedAlgs []string
	// Leeway is the clock skew tolerance. Defaults to 60s.
	Leeway time.Duration
}

func (c Config) policy() jwtauth.Policy {
	p := jwtauth.DefaultPolicy()
	p.Issuer = c.Issuer
	p.Audiences = append([]string(nil), c.Audiences...)
	p.RequiredScopes = append([]string(nil), c.RequiredScopes...)
	p.ScopeModeAny = c.AnyScope
	if len(c.AllowedAlgs) > 0 {
		p.AllowedAlgs = append([]string(nil), c.AllowedAlgs...)
	}
	if c.Leeway > 0 {
		p.Leeway = c.Leeway
	}
	return p
}

// New returns an Authenticator for cfg. Keys are located through OIDC
// discovery unless cfg.JWKSURL is set.
func New(ctx context.Context, cfg Config) (*AccessTokenAuthenticator, error) {
	var (
		v   *jwtauth.Validator
		err error
	)
	if cfg.JWKSURL != "" {
		v, err = jwtauth.NewFromJWKSURL(ctx, cfg.policy(), cfg.JWKSURL)
	} else {
		v, err = jwtauth.NewFromDiscovery(ctx, cfg.policy())
	}
	if err != nil {
		return nil, err
	}
	return &AccessTokenAuthenticator{v: v}, nil
}

// NewFromJWKS returns an Authenticator that trusts the keys of a fixed JWK
// set document.
func NewFromJWKS(cfg Config, jwks []byte) (*AccessTokenAuthenticator, error) {
	v, err := jwtauth.NewFromJWKS(cfg.policy(), json.RawMessage(jwks))
	if err != nil {
		return nil, err
	}
	return &AccessTokenAuthenticator{v: v}, nil
}

// AccessTokenAuthenticator validates JWT access tokens.
type AccessTokenAuthenticator struct {
	v *jwtauth.Validator
}

var (
	_ Authenticator = (*AccessTokenAuthenticator)(nil)
	_ ScopeHinter   = (*AccessTokenAuthenticator)(nil)
)

func (a *AccessTokenAuthenticator) CheckAuthentication(ctx context.Context, tok string) (UserInfo, error) {
	p, err := a.v.Validate(ctx, tok)
	if err != nil {
		// Map internal sentinel errors to public errors used by the handler.
		if errors.Is(err, jwtauth.ErrInsufficientScope) {
			return nil, errors.Join(ErrInsufficientScope, err)
		}
		return nil, errors.Join(ErrUnauthorized, err)
	}
	return principal{p: p}, nil
}

// RequiredScopes returns the scopes enforced on every token.
func (a *AccessTokenAuthenticator) RequiredScopes() []string {
	return a.v.Policy().RequiredScopes
}

// Issuer returns the issuer tokens must come from.
func (a *AccessTokenAuthenticator) Issuer() string {
	return a.v.Discovery().Issuer
}

type principal struct{ p *jwtauth.Principal }

func (u principal) UserID() string       { return u.p.Subject }
func (u principal) Claims(ref any) error { return u.p.Claims(ref) }
