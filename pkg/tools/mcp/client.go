package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/tools"
)

// Client wraps an MCP SDK client and session for a single server
// connection. It handles the connection lifecycle, tool discovery, and
// tool execution.
type Client struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession

	mu            sync.Mutex
	cachedTools   []api.Tool
	toolsResolved bool
}

// NewClient creates a Client for the given server configuration. Call
// Connect to establish the connection.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the MCP connection to the configured server,
// performing the protocol handshake.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport establishes the MCP connection over the given
// transport. A nil transport is built from the server configuration;
// tests pass in-memory transports here.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "anfrage",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

// createTransport builds the MCP transport selected by the server
// configuration.
func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient, err := c.buildHTTPClient()
	if err != nil {
		return nil, err
	}

	switch c.cfg.Transport {
	case "sse":
		transport := &mcp.SSEClientTransport{
			Endpoint: c.cfg.URL,
		}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{
			Endpoint: c.cfg.URL,
		}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns an HTTP client whose transport injects the
// configured headers and auth. Returns nil when the server needs neither.
func (c *Client) buildHTTPClient() (*http.Client, error) {
	provider, err := authProviderFor(c.cfg.Auth)
	if err != nil {
		return nil, err
	}

	if len(c.cfg.Headers) == 0 && provider == nil {
		return nil, nil
	}

	return &http.Client{
		Transport: &authTransport{
			base:    http.DefaultTransport,
			headers: c.cfg.Headers,
			auth:    provider,
		},
	}, nil
}

// authProviderFor builds the AuthProvider selected by cfg, or nil when
// the server needs none.
func authProviderFor(cfg AuthConfig) (AuthProvider, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil

	case "oauth":
		return NewOAuthClientCredentials(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Scopes), nil

	case "jwt-bearer":
		provider, err := NewJWTBearer(cfg.TokenURL, cfg.Issuer, cfg.Subject, cfg.Audience, []byte(cfg.PrivateKey), cfg.Scopes)
		if err != nil {
			return nil, fmt.Errorf("configuring jwt-bearer auth: %w", err)
		}
		provider.KeyID = cfg.KeyID
		return provider, nil

	default:
		return nil, fmt.Errorf("unsupported auth type %q", cfg.Type)
	}
}

// authTransport is an http.RoundTripper that adds static headers and
// dynamically obtained auth headers to every request. Auth headers win
// when both set the same key.
type authTransport struct {
	base    http.RoundTripper
	headers map[string]string
	auth    AuthProvider
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	if t.auth != nil {
		authHeaders, err := t.auth.GetHeaders(req.Context())
		if err != nil {
			return nil, fmt.Errorf("getting auth headers: %w", err)
		}
		for k, v := range authHeaders {
			req.Header.Set(k, v)
		}
	}

	return t.base.RoundTrip(req)
}

// DiscoverTools queries the server for its tools, converts them to
// api.Tool definitions, and caches the result. Subsequent calls return
// the cache.
func (c *Client) DiscoverTools(ctx context.Context) ([]api.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.toolsResolved {
		return c.cachedTools, nil
	}

	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var defs []api.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		def, convErr := convertTool(tool)
		if convErr != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, convErr)
		}
		defs = append(defs, def)
	}

	c.cachedTools = defs
	c.toolsResolved = true
	return defs, nil
}

// CallTool executes a tool call on the server. Server-side failures are
// reported inside the Result so they can be fed back to the model.
func (c *Client) CallTool(ctx context.Context, call tools.Call) (*tools.Result, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return &tools.Result{
				CallID:  call.ID,
				Output:  fmt.Sprintf("invalid arguments JSON: %v", err),
				IsError: true,
			}, nil
		}
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      call.Name,
		Arguments: args,
	})
	if err != nil {
		return &tools.Result{
			CallID:  call.ID,
			Output:  fmt.Sprintf("MCP tool call error: %v", err),
			IsError: true,
		}, nil
	}

	return convertResult(call.ID, result), nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// convertTool converts an MCP tool to an api.Tool definition.
func convertTool(t *mcp.Tool) (api.Tool, error) {
	var params json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return api.Tool{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		params = data
	}
	return api.FunctionTool(t.Name, t.Description, params), nil
}

// convertResult converts an MCP CallToolResult to a tools.Result,
// joining the text content parts.
func convertResult(callID string, result *mcp.CallToolResult) *tools.Result {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}

	return &tools.Result{
		CallID:  callID,
		Output:  strings.Join(parts, "\n"),
		IsError: result.IsError,
	}
}
