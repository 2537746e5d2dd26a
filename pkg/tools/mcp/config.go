package mcp

// ServerConfig describes one MCP server connection.
type ServerConfig struct {
	// Name identifies the server in logs and error messages.
	Name string

	// Transport selects the wire transport: "streamable-http" (the
	// default) or "sse".
	Transport string

	// URL is the server endpoint.
	URL string

	// Headers are static headers added to every request, for example a
	// fixed API key. Headers produced by the auth provider win on
	// conflict.
	Headers map[string]string

	// Auth selects how requests are authenticated.
	Auth AuthConfig
}

// AuthConfig selects and parameterizes the auth provider for a server.
type AuthConfig struct {
	// Type is "none" (or empty), "oauth" for the OAuth 2.0
	// client_credentials grant, or "jwt-bearer" for the RFC 7523 JWT
	// bearer grant.
	Type string

	// TokenURL is the token endpoint, required for oauth and jwt-bearer.
	TokenURL string

	// Scopes are requested with the grant when non-empty.
	Scopes []string

	// ClientID and ClientSecret authenticate the oauth grant.
	ClientID     string
	ClientSecret string

	// Issuer, Subject, and Audience populate the signed assertion of the
	// jwt-bearer grant. Subject defaults to Issuer when empty.
	Issuer   string
	Subject  string
	Audience string

	// PrivateKey is the PEM-encoded RSA key that signs the assertion.
	PrivateKey string

	// KeyID is placed in the assertion's "kid" header when set so the
	// token endpoint can pick the right verification key.
	KeyID string
}
