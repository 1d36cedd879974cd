// Package httpapi exposes a consentservice.Service over HTTP as JSON-RPC 2.0.
//
// Routes, relative to the path of the public endpoint:
//
//	POST <path>         one JSON-RPC request (application/json)
//	GET  <path>/schema  the published JSON Schema of the interface
//
// When the authenticator names its issuer (auth.IssuerProvider), RFC 9728
// protected resource metadata is also served at
// /.well-known/oauth-protected-resource<path> and referenced from every
// challenge.
//
// Requests carrying a batch array are rejected with 400. Notifications are
// acknowledged with 202 and no body. Consent failures travel inside a 200
// response as {"result":{"Err":...}}; protocol faults use JSON-RPC error
// objects.
//
// With WithAuthenticator every RPC request needs an Authorization: Bearer
// header. Missing or invalid tokens get 401, malformed headers 400 and
// tokens lacking scope 403, each with an RFC 6750 WWW-Authenticate challenge.
//
//	h, err := httpapi.New("https://consent.example/rpc", consentservice.New(),
//	    httpapi.WithAuthenticator(authn),
//	)
//	http.ListenAndServe(":8080", h)
package httpapi
