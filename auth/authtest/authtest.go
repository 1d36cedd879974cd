// Package authtest provides an in-memory auth.Authenticator for tests and
// local development.
package authtest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ggoodman/consent-message-go/auth"
)

// Tokens authenticates a fixed set of bearer tokens. Each token maps to the
// subject it authenticates.
type Tokens struct {
	Subjects map[string]string
	// Unscoped tokens authenticate but fail the scope check.
	Unscoped map[string]bool
	Scopes   []string
	// AuthorizationServer is reported as the token issuer when set.
	AuthorizationServer string
}

var (
	_ auth.Authenticator  = (*Tokens)(nil)
	_ auth.ScopeHinter    = (*Tokens)(nil)
	_ auth.IssuerProvider = (*Tokens)(nil)
)

// NewTokens returns a Tokens authenticator accepting token as subject.
func NewTokens(token, subject string) *Tokens {
	return &Tokens{Subjects: map[string]string{token: subject}, Unscoped: map[string]bool{}}
}

func (a *Tokens) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	if a.Unscoped[tok] {
		return nil, fmt.Errorf("%w: token lacks %v", auth.ErrInsufficientScope, a.Scopes)
	}
	sub, ok := a.Subjects[tok]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", auth.ErrUnauthorized)
	}
	return userInfo(sub), nil
}

func (a *Tokens) RequiredScopes() []string { return append([]string(nil), a.Scopes...) }

func (a *Tokens) Issuer() string { return a.AuthorizationServer }

type userInfo string

func (u userInfo) UserID() string { return string(u) }

func (u userInfo) Claims(ref any) error {
	b, err := json.Marshal(map[string]string{"sub": string(u)})
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ref)
}
