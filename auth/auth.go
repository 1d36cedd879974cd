package auth

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized means the bearer token was missing, malformed or rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInsufficientScope means the token is valid but does not grant the
	// scopes the consent endpoint requires.
	ErrInsufficientScope = errors.New("insufficient scope")
)

// UserInfo is the principal behind a verified token. Its UserID becomes the
// subject recorded against consent requests.
type UserInfo interface {
	UserID() string
	// Claims decodes the token claims into ref.
	Claims(ref any) error
}

// Authenticator verifies a bearer token. Failures wrap ErrUnauthorized or
// ErrInsufficientScope so transports can pick the challenge to send.
type Authenticator interface {
	CheckAuthentication(ctx context.Context, tok string) (UserInfo, error)
}

// ScopeHinter is implemented by authenticators that can name the scopes a
// caller should request. Transports echo them in insufficient_scope
// challenges.
type ScopeHinter interface {
	RequiredScopes() []string
}

// IssuerProvider is implemented by authenticators that know the
// authorization server issuing their tokens. Transports advertise it in
// protected resource metadata. An empty issuer disables the advertisement.
type IssuerProvider interface {
	Issuer() string
}
