// Package wellknown holds documents served under /.well-known/.
package wellknown

import (
	"net/url"
	"strings"
)

// ProtectedResourceMetadata is the OAuth 2.0 Protected Resource Metadata
// document (RFC 9728) describing a consent endpoint guarded by bearer tokens.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
	ResourceDocumentation  string   `json:"resource_documentation,omitempty"`
}

// NewProtectedResource describes endpoint as a resource accepting
// header-borne tokens issued by issuer.
func NewProtectedResource(endpoint *url.URL, issuer string, scopes []string) ProtectedResourceMetadata {
	return ProtectedResourceMetadata{
		Resource:               endpoint.String(),
		AuthorizationServers:   []string{issuer},
		ScopesSupported:        append([]string(nil), scopes...),
		BearerMethodsSupported: []string{"authorization_header"},
		ResourceName:           "ICRC-21 consent messages",
	}
}

// ProtectedResourceURL returns where the metadata for endpoint is served:
// the well-known prefix inserted between host and path (RFC 9728 §3.1).
func ProtectedResourceURL(endpoint *url.URL) *url.URL {
	path := strings.TrimSuffix(endpoint.Path, "/")
	return &url.URL{
		Scheme: endpoint.Scheme,
		Host:   endpoint.Host,
		Path:   "/.well-known/oauth-protected-resource" + path,
	}
}
