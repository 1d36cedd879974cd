package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

func newKeySet(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	b, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: &pk.PublicKey, KeyID: "k1", Algorithm: "RS256", Use: "sig"}}})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return pk, b
}

func sign(t *testing.T, pk *rsa.PrivateKey, scope string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   "https://issuer.example",
		"sub":   "alice",
		"aud":   "https://consent.example/rpc",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": scope,
	})
	tok.Header["kid"] = "k1"
	tok.Header["typ"] = "at+jwt"
	s, err := tok.SignedString(pk)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAccessTokenAuthenticator(t *testing.T) {
	pk, jwks := newKeySet(t)
	a, err := NewFromJWKS(Config{
		Issuer:         "https://issuer.example",
		Audiences:      []string{"https://consent.example/rpc"},
		RequiredScopes: []string{"consent:read"},
	}, jwks)
	if err != nil {
		t.Fatalf("NewFromJWKS: %v", err)
	}
	if got := a.RequiredScopes(); len(got) != 1 || got[0] != "consent:read" {
		t.Fatalf("unexpected required scopes %v", got)
	}
	if a.Issuer() != "https://issuer.example" {
		t.Fatalf("unexpected issuer %q", a.Issuer())
	}

	ctx := context.Background()
	ui, err := a.CheckAuthentication(ctx, sign(t, pk, "consent:read"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ui.UserID() != "alice" {
		t.Fatalf("want alice, got %q", ui.UserID())
	}
	var claims struct {
		Scope string `json:"scope"`
	}
	if err := ui.Claims(&claims); err != nil || claims.Scope != "consent:read" {
		t.Fatalf("claims: %+v, %v", claims, err)
	}

	if _, err := a.CheckAuthentication(ctx, sign(t, pk, "other")); !errors.Is(err, ErrInsufficientScope) {
		t.Fatalf("want ErrInsufficientScope, got %v", err)
	}
	if _, err := a.CheckAuthentication(ctx, "not-a-jwt"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestNew_RequiresIssuer(t *testing.T) {
	if _, err := New(context.Background(), Config{Audiences: []string{"a"}}); err == nil {
		t.Fatalf("expected error without issuer")
	}
}
