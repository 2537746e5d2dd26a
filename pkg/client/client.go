package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/classify"
	"github.com/anfrage-dev/anfrage/pkg/debug"
	"github.com/anfrage-dev/anfrage/pkg/observability"
	"github.com/anfrage-dev/anfrage/pkg/recovery"
	"github.com/anfrage-dev/anfrage/pkg/store"
)

const (
	// DefaultBaseURL is the hosted Responses API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	defaultTimeout   = 120 * time.Second
	defaultUserAgent = "anfrage/1.0.0"

	// requestIDHeader is sent with every request so failures can be
	// correlated with server logs. The classifier reads the same header
	// back from responses.
	requestIDHeader = "X-Request-Id"
)

// Client talks to the Responses API. All services share one HTTP
// pipeline; construct it once and reuse it, it is safe for concurrent
// use.
type Client struct {
	// Responses creates, retrieves, streams, and recovers responses.
	Responses *ResponsesService
	// Files uploads and manages files.
	Files *FilesService
	// VectorStores manages document indexes for file_search.
	VectorStores *VectorStoresService
	// Images generates images.
	Images *ImagesService
	// Models lists the model catalog.
	Models *ModelsService

	baseURL      string
	apiKey       string
	userAgent    string
	organization string
	project      string
	defaultModel api.Model

	// httpClient carries the request timeout; streamClient is the same
	// transport without one, since an SSE body stays open for the whole
	// generation.
	httpClient   *http.Client
	streamClient *http.Client

	recovery *recovery.Orchestrator
	store    store.Store
	metrics  bool

	// set during option application, consumed when the orchestrator is
	// built
	policy   recovery.Policy
	callback recovery.Callback
}

// Option configures a Client during construction.
type Option func(*Client)

// WithBaseURL points the client at a different API root, e.g. a mock
// server. A trailing slash is stripped.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient replaces the underlying HTTP client. The stream client
// is derived from it with the timeout removed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRecovery sets the recovery policy applied to response creation.
// The default is recovery.DefaultPolicy.
func WithRecovery(p recovery.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithRecoveryCallback registers a callback invoked before each recovery
// retry with the classified error and the 1-based attempt number.
func WithRecoveryCallback(cb recovery.Callback) Option {
	return func(c *Client) { c.callback = cb }
}

// WithStore attaches a conversation store so threads can persist and
// replay their turns. The client does not close the store.
func WithStore(s store.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithOrganization sets the OpenAI-Organization header.
func WithOrganization(org string) Option {
	return func(c *Client) { c.organization = org }
}

// WithProject sets the OpenAI-Project header.
func WithProject(project string) Option {
	return func(c *Client) { c.project = project }
}

// WithDefaultModel sets the model used by threads and requests that do
// not name one. The default is api.ModelGPT4o.
func WithDefaultModel(m api.Model) Option {
	return func(c *Client) { c.defaultModel = m }
}

// WithoutMetrics disables the Prometheus request instrumentation.
func WithoutMetrics() Option {
	return func(c *Client) { c.metrics = false }
}

// New creates a Client for the given API key. The key must be non-empty;
// keys not starting with "sk-" are accepted with a logged warning since
// proxies and mock servers use their own formats.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, classify.NewInvalidAPIKey("API key is empty")
	}
	if !strings.HasPrefix(apiKey, "sk-") {
		slog.Warn("API key does not start with \"sk-\"", "key", debug.Redact(apiKey))
	}

	c := &Client{
		baseURL:      DefaultBaseURL,
		apiKey:       apiKey,
		userAgent:    defaultUserAgent,
		defaultModel: api.ModelGPT4o,
		metrics:      true,
		policy:       recovery.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.metrics {
		c.httpClient = instrument(c.httpClient)
	}
	stream := *c.httpClient
	stream.Timeout = 0
	c.streamClient = &stream

	orc := recovery.New(c.policy)
	if c.callback != nil {
		orc = orc.WithCallback(c.callback)
	}
	c.recovery = orc

	c.Responses = &ResponsesService{c: c}
	c.Files = &FilesService{c: c}
	c.VectorStores = &VectorStoresService{c: c}
	c.Images = &ImagesService{c: c}
	c.Models = &ModelsService{c: c}
	return c, nil
}

// NewFromEnv creates a Client from the ANFRAGE_API_KEY or OPENAI_API_KEY
// environment variable, in that order.
func NewFromEnv(opts ...Option) (*Client, error) {
	key := os.Getenv("ANFRAGE_API_KEY")
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, classify.NewInvalidAPIKey("no API key in ANFRAGE_API_KEY or OPENAI_API_KEY")
	}
	return New(key, opts...)
}

// RecoveryPolicy returns the policy the client applies to response
// creation.
func (c *Client) RecoveryPolicy() recovery.Policy {
	return c.recovery.Policy()
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the attached conversation store, or nil.
func (c *Client) Store() store.Store {
	return c.store
}

// instrument wraps the client's transport with the metrics recorder
// without mutating the caller's http.Client.
func instrument(hc *http.Client) *http.Client {
	wrapped := *hc
	wrapped.Transport = observability.NewTransport(hc.Transport)
	return &wrapped
}

// newRequest builds an HTTP request with the client's standard headers:
// bearer auth, user agent, a fresh request id, and the optional
// organization and project headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, uuid.NewString())
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}
	if c.project != "" {
		req.Header.Set("OpenAI-Project", c.project)
	}
	return req, nil
}

// do runs one JSON round trip: marshal in (when non-nil), send, classify
// the outcome, and decode into out (when non-nil). Every failure is a
// *classify.Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	var payload []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return classify.NewEncodeError(err)
		}
		payload = data
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return &classify.Error{Class: classify.NonRecoverable, Message: fmt.Sprintf("building request: %s", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	debug.Log("client", "request", "method", method, "path", path)
	if payload != nil && debug.TraceIsEnabled("client") {
		debug.Raw("client", fmt.Sprintf("--> %s %s\n%s", method, path, payload))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify.FromTransport(err)
	}
	defer resp.Body.Close()

	if cerr := classify.Check(resp); cerr != nil {
		debug.Log("client", "request failed", "method", method, "path", path,
			"status", resp.StatusCode, "class", cerr.Class, "request_id", cerr.RequestID)
		return cerr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if debug.TraceIsEnabled("client") {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return classify.FromTransport(err)
		}
		debug.Raw("client", fmt.Sprintf("<-- %d %s %s\n%s", resp.StatusCode, method, path, raw))
		if err := json.Unmarshal(raw, out); err != nil {
			return classify.NewDecodeError(err)
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return classify.NewDecodeError(err)
	}
	return nil
}

// doRaw runs one round trip and returns the response body verbatim. Used
// for file content downloads.
func (c *Client) doRaw(ctx context.Context, method, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, nil)
	if err != nil {
		return nil, &classify.Error{Class: classify.NonRecoverable, Message: fmt.Sprintf("building request: %s", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify.FromTransport(err)
	}
	defer resp.Body.Close()

	if cerr := classify.Check(resp); cerr != nil {
		return nil, cerr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify.FromTransport(err)
	}
	return data, nil
}

// recordUsage feeds response token counts into the metrics collectors.
func (c *Client) recordUsage(model api.Model, usage *api.Usage) {
	if !c.metrics || usage == nil {
		return
	}
	observability.TokensTotal.WithLabelValues(string(model), "input").Add(float64(usage.InputTokens))
	observability.TokensTotal.WithLabelValues(string(model), "output").Add(float64(usage.OutputTokens))
}
