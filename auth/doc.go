// Package auth provides bearer token authentication for the HTTP transport.
//
// An Authenticator validates an incoming bearer token string and returns a
// UserInfo or an error. The transport extracts the token from the request and
// maps the sentinel errors into RFC 6750 challenges:
//
//	authn, err := auth.New(ctx, auth.Config{
//	    Issuer:         "https://issuer.example",
//	    Audiences:      []string{"https://consent.example/rpc"},
//	    RequiredScopes: []string{"consent:read"},
//	})
//
//	ui, err := authn.CheckAuthentication(r.Context(), bearerToken)
//	if errors.Is(err, auth.ErrUnauthorized) { /* 401 invalid_token */ }
//	if errors.Is(err, auth.ErrInsufficientScope) { /* 403 insufficient_scope */ }
//
// New validates RFC 9068 access tokens (typ at+jwt). Keys come from the
// issuer's OIDC discovery document unless Config.JWKSURL names a JWK set
// directly. Only RS256 is accepted by default.
package auth
