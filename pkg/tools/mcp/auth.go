package mcp

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthProvider supplies authentication headers for MCP server requests.
type AuthProvider interface {
	// GetHeaders returns the HTTP headers to include in MCP requests.
	GetHeaders(ctx context.Context) (map[string]string, error)
}

// StaticKeyAuth provides authentication via headers fixed at
// initialization time, such as an API key.
type StaticKeyAuth struct {
	// Headers contains the static authentication headers.
	Headers map[string]string
}

// GetHeaders returns the configured static headers.
func (a *StaticKeyAuth) GetHeaders(_ context.Context) (map[string]string, error) {
	return a.Headers, nil
}

// tokenResponse is the JSON body returned by an OAuth 2.0 token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenCache caches a bearer token and decides when to refresh it. A
// token is refreshed proactively once 80% of its lifetime has elapsed;
// if that refresh fails while the cached token is still valid, the
// cached token is served instead of the error.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiry    time.Time
	refreshAt time.Time
	nowFunc   func() time.Time // for testing; defaults to time.Now
}

// bearer returns an Authorization header, calling fetch for a new token
// when the cached one is due. fetch runs under the cache mutex, so
// concurrent callers trigger a single token request.
func (c *tokenCache) bearer(ctx context.Context, fetch func(context.Context) (string, int, error)) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	if c.token != "" && now.Before(c.refreshAt) {
		return map[string]string{"Authorization": "Bearer " + c.token}, nil
	}

	token, expiresIn, err := fetch(ctx)
	if err != nil {
		if c.token != "" && now.Before(c.expiry) {
			return map[string]string{"Authorization": "Bearer " + c.token}, nil
		}
		return nil, fmt.Errorf("acquiring access token: %w", err)
	}

	c.token = token
	c.expiry = now.Add(time.Duration(expiresIn) * time.Second)
	c.refreshAt = now.Add(time.Duration(float64(expiresIn)*0.8) * time.Second)

	return map[string]string{"Authorization": "Bearer " + c.token}, nil
}

// requestToken posts the grant form to the token endpoint and decodes
// the token response.
func requestToken(ctx context.Context, client *http.Client, tokenURL string, form url.Values) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}
	return tr.AccessToken, tr.ExpiresIn, nil
}

// OAuthClientCredentialsAuth obtains access tokens via the OAuth 2.0
// client_credentials grant.
type OAuthClientCredentialsAuth struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	cache      tokenCache
	httpClient *http.Client
}

// NewOAuthClientCredentials creates an OAuthClientCredentialsAuth provider.
func NewOAuthClientCredentials(tokenURL, clientID, clientSecret string, scopes []string) *OAuthClientCredentialsAuth {
	return &OAuthClientCredentialsAuth{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       scopes,
		cache:        tokenCache{nowFunc: time.Now},
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// GetHeaders returns an Authorization header with a bearer token,
// refreshing the cached token when it is due.
func (a *OAuthClientCredentialsAuth) GetHeaders(ctx context.Context) (map[string]string, error) {
	return a.cache.bearer(ctx, a.fetchToken)
}

func (a *OAuthClientCredentialsAuth) fetchToken(ctx context.Context) (string, int, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {a.ClientID},
		"client_secret": {a.ClientSecret},
	}
	if len(a.Scopes) > 0 {
		form.Set("scope", strings.Join(a.Scopes, " "))
	}
	return requestToken(ctx, a.httpClient, a.TokenURL, form)
}

// assertionLifetime bounds how long a signed grant assertion is valid.
const assertionLifetime = 5 * time.Minute

// JWTBearerAuth obtains access tokens via the RFC 7523 JWT bearer grant.
// Every token request carries a freshly signed RS256 assertion; issued
// tokens are cached and refreshed like client_credentials tokens.
type JWTBearerAuth struct {
	TokenURL string
	Issuer   string
	Subject  string
	Audience string
	Scopes   []string

	// KeyID is placed in the assertion's "kid" header when set so the
	// token endpoint can pick the right verification key.
	KeyID string

	key        *rsa.PrivateKey
	cache      tokenCache
	httpClient *http.Client
}

// NewJWTBearer creates a JWTBearerAuth provider from a PEM-encoded RSA
// private key. An empty subject defaults to the issuer.
func NewJWTBearer(tokenURL, issuer, subject, audience string, privateKeyPEM []byte, scopes []string) (*JWTBearerAuth, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing RSA private key: %w", err)
	}
	if subject == "" {
		subject = issuer
	}
	return &JWTBearerAuth{
		TokenURL:   tokenURL,
		Issuer:     issuer,
		Subject:    subject,
		Audience:   audience,
		Scopes:     scopes,
		key:        key,
		cache:      tokenCache{nowFunc: time.Now},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// GetHeaders returns an Authorization header with a bearer token,
// signing and exchanging a new assertion when the cached token is due.
func (a *JWTBearerAuth) GetHeaders(ctx context.Context) (map[string]string, error) {
	return a.cache.bearer(ctx, a.fetchToken)
}

func (a *JWTBearerAuth) fetchToken(ctx context.Context) (string, int, error) {
	assertion, err := a.signAssertion()
	if err != nil {
		return "", 0, fmt.Errorf("signing assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	if len(a.Scopes) > 0 {
		form.Set("scope", strings.Join(a.Scopes, " "))
	}
	return requestToken(ctx, a.httpClient, a.TokenURL, form)
}

// signAssertion builds and signs the grant assertion. Each assertion
// carries a unique jti so token endpoints can reject replays.
func (a *JWTBearerAuth) signAssertion() (string, error) {
	now := a.cache.nowFunc()
	claims := jwt.RegisteredClaims{
		Issuer:    a.Issuer,
		Subject:   a.Subject,
		Audience:  jwt.ClaimStrings{a.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if a.KeyID != "" {
		token.Header["kid"] = a.KeyID
	}
	return token.SignedString(a.key)
}
