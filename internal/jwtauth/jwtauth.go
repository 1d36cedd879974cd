// Package jwtauth validates RFC 9068 JWT access tokens against a Policy. Keys
// come from OIDC discovery, a JWKS URL or an inline JWK set.
package jwtauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized indicates that the access token failed validation (e.g.,
// signature, issuer, audience, exp/nbf) and the request should be treated as
// unauthenticated.
var ErrUnauthorized = errors.New("jwtauth: unauthorized")

// ErrInsufficientScope indicates the token was valid but did not satisfy the
// required scopes policy; callers should respond with HTTP 403 where relevant.
var ErrInsufficientScope = errors.New("jwtauth: insufficient_scope")

// Policy controls which access tokens are accepted.
type Policy struct {
	Issuer string
	// Audiences lists accepted "aud" values; a token must carry at least one.
	Audiences      []string
	RequiredScopes []string
	ScopeModeAny   bool // if true, any of RequiredScopes is sufficient; else all are required
	AllowedAlgs    []string
	Leeway         time.Duration
	// AllowPlainJWT accepts tokens whose typ header is not at+jwt.
	AllowPlainJWT bool
}

// DefaultPolicy returns a Policy with safe defaults for algorithm and leeway.
func DefaultPolicy() Policy {
	return Policy{
		AllowedAlgs: []string{"RS256"},
		Leeway:      60 * time.Second,
	}
}

func (p *Policy) validate() error {
	if p.Issuer == "" {
		return errors.New("issuer is required")
	}
	if len(p.Audiences) == 0 {
		return errors.New("at least one audience is required")
	}
	for _, a := range p.Audiences {
		if a == "" {
			return errors.New("empty audience entry")
		}
	}
	if len(p.AllowedAlgs) == 0 {
		p.AllowedAlgs = []string{"RS256"}
	}
	if slices.Contains(p.AllowedAlgs, "none") {
		return errors.New(`alg "none" is never allowed`)
	}
	return nil
}

// Discovery is the subset of the issuer's OIDC metadata the validator keeps.
type Discovery struct {
	Issuer                string   `json:"issuer"`
	JWKSURI               string   `json:"jwks_uri"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	ScopesSupported       []string `json:"scopes_supported"`
}

// Principal is a validated token's subject and claims.
type Principal struct {
	Subject string
	Scopes  []string
	claims  jwt.MapClaims
}

// Claims unmarshals the raw token claims into ref.
func (p *Principal) Claims(ref any) error {
	b, err := json.Marshal(p.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ref)
}

// Validator checks access tokens. It is safe for concurrent use.
type Validator struct {
	policy    Policy
	keys      keyfunc.Keyfunc
	discovery Discovery
}

// NewFromDiscovery performs OIDC discovery against policy.Issuer to find the
// JWKS, then validates tokens with auto-refreshing keys.
func NewFromDiscovery(ctx context.Context, policy Policy) (*Validator, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}

	provider, err := oidc.NewProvider(ctx, policy.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}
	var meta Discovery
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JWKSURI == "" {
		return nil, errors.New("discovery incomplete: missing jwks_uri")
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{meta.JWKSURI})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}
	return &Validator{policy: policy, keys: kf, discovery: meta}, nil
}

// NewFromJWKSURL validates tokens with keys fetched (and refreshed) from
// jwksURL. No discovery is performed.
func NewFromJWKSURL(ctx context.Context, policy Policy, jwksURL string) (*Validator, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	if jwksURL == "" {
		return nil, errors.New("jwks uri required")
	}
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}
	return &Validator{policy: policy, keys: kf, discovery: Discovery{Issuer: policy.Issuer, JWKSURI: jwksURL}}, nil
}

// NewFromJWKS validates tokens with a fixed JWK set.
func NewFromJWKS(policy Policy, jwks json.RawMessage) (*Validator, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	kf, err := keyfunc.NewJWKSetJSON(jwks)
	if err != nil {
		return nil, fmt.Errorf("jwks parse failed: %w", err)
	}
	return &Validator{policy: policy, keys: kf, discovery: Discovery{Issuer: policy.Issuer}}, nil
}

// Discovery returns the issuer metadata the validator was built from.
func (v *Validator) Discovery() Discovery {
	d := v.discovery
	d.ScopesSupported = append([]string(nil), d.ScopesSupported...)
	return d
}

// Policy returns a copy of the enforced policy.
func (v *Validator) Policy() Policy {
	p := v.policy
	p.Audiences = append([]string(nil), p.Audiences...)
	p.RequiredScopes = append([]string(nil), p.RequiredScopes...)
	p.AllowedAlgs = append([]string(nil), p.AllowedAlgs...)
	return p
}

// Validate verifies tok and returns its principal.
func (v *Validator) Validate(ctx context.Context, tok string) (*Principal, error) {
	if tok == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.policy.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.policy.Issuer),
		jwt.WithLeeway(v.policy.Leeway),
		jwt.WithIssuedAt(),
	)
	parsed, err := parser.Parse(tok, v.keys.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: token parse/verify failed: %v", ErrUnauthorized, err)
	}

	if !v.policy.AllowPlainJWT {
		if typ, _ := parsed.Header["typ"].(string); typ != "at+jwt" && typ != "application/at+jwt" {
			return nil, fmt.Errorf("%w: invalid typ; want at+jwt", ErrUnauthorized)
		}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims type", ErrUnauthorized)
	}
	if !audIntersects(claims["aud"], v.policy.Audiences) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrUnauthorized)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrUnauthorized)
	}

	scopeStr, _ := claims["scope"].(string)
	scopes := strings.Fields(scopeStr)
	if !v.scopesSatisfied(scopes) {
		return nil, ErrInsufficientScope
	}

	return &Principal{Subject: sub, Scopes: scopes, claims: claims}, nil
}

func (v *Validator) scopesSatisfied(have []string) bool {
	if len(v.policy.RequiredScopes) == 0 {
		return true
	}
	if v.policy.ScopeModeAny {
		for _, want := range v.policy.RequiredScopes {
			if slices.Contains(have, want) {
				return true
			}
		}
		return false
	}
	for _, want := range v.policy.RequiredScopes {
		if !slices.Contains(have, want) {
			return false
		}
	}
	return true
}

func audIntersects(aud any, wants []string) bool {
	switch v := aud.(type) {
	case string:
		return slices.Contains(wants, v)
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && slices.Contains(wants, s) {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if slices.Contains(wants, s) {
				return true
			}
		}
	}
	return false
}
