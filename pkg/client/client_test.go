package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anfrage-dev/anfrage/pkg/classify"
	"github.com/anfrage-dev/anfrage/pkg/recovery"
)

// newTestClient starts an httptest server with the given handler and
// returns a client pointed at it. Recovery is disabled unless a test
// opts back in, so failure tests do not sit out retry delays.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []Option{WithBaseURL(srv.URL), WithRecovery(recovery.Policy{})}
	c, err := New("sk-test", append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func TestNew_EmptyKey(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Fatal("expected error for empty API key")
	}
	var cerr *classify.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *classify.Error, got %T", err)
	}
	if cerr.Class != classify.NonRecoverable {
		t.Errorf("Class = %q, want %q", cerr.Class, classify.NonRecoverable)
	}
	if cerr.Suggestion == "" {
		t.Error("expected a remediation suggestion")
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New("sk-test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}
	if got, want := c.RecoveryPolicy(), recovery.DefaultPolicy(); got != want {
		t.Errorf("RecoveryPolicy = %+v, want %+v", got, want)
	}
	if c.httpClient.Timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", c.httpClient.Timeout, defaultTimeout)
	}
	if c.streamClient.Timeout != 0 {
		t.Errorf("stream client timeout = %v, want 0", c.streamClient.Timeout)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("anfrage key wins", func(t *testing.T) {
		t.Setenv("ANFRAGE_API_KEY", "sk-anfrage")
		t.Setenv("OPENAI_API_KEY", "sk-openai")
		c, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() failed: %v", err)
		}
		if c.apiKey != "sk-anfrage" {
			t.Errorf("apiKey = %q, want sk-anfrage", c.apiKey)
		}
	})

	t.Run("openai fallback", func(t *testing.T) {
		t.Setenv("ANFRAGE_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "sk-openai")
		c, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() failed: %v", err)
		}
		if c.apiKey != "sk-openai" {
			t.Errorf("apiKey = %q, want sk-openai", c.apiKey)
		}
	})

	t.Run("no key", func(t *testing.T) {
		t.Setenv("ANFRAGE_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		if _, err := NewFromEnv(); err == nil {
			t.Fatal("expected error when no env var is set")
		}
	})
}

func TestClient_StandardHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"object":"list","data":[]}`))
	}, WithOrganization("org-123"), WithProject("proj-456"))

	if _, err := c.Models.List(context.Background()); err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	if auth := got.Get("Authorization"); auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", auth)
	}
	if ua := got.Get("User-Agent"); ua != defaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", ua, defaultUserAgent)
	}
	if got.Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if org := got.Get("OpenAI-Organization"); org != "org-123" {
		t.Errorf("OpenAI-Organization = %q, want org-123", org)
	}
	if proj := got.Get("OpenAI-Project"); proj != "proj-456" {
		t.Errorf("OpenAI-Project = %q, want proj-456", proj)
	}
}

func TestClient_FreshRequestIDPerCall(t *testing.T) {
	var ids []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(requestIDHeader))
		w.Write([]byte(`{"object":"list","data":[]}`))
	})

	for range 2 {
		if _, err := c.Models.List(context.Background()); err != nil {
			t.Fatalf("List() failed: %v", err)
		}
	}
	if len(ids) != 2 || ids[0] == "" || ids[0] == ids[1] {
		t.Errorf("expected two distinct request ids, got %v", ids)
	}
}

func TestClient_CustomUserAgent(t *testing.T) {
	var ua string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte(`{"object":"list","data":[]}`))
	}, WithUserAgent("myapp/2.0"))

	if _, err := c.Models.List(context.Background()); err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if ua != "myapp/2.0" {
		t.Errorf("User-Agent = %q, want myapp/2.0", ua)
	}
}

func TestDo_ClassifiesAPIFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req_abc")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"too_many_requests","message":"slow down"}}`))
	})

	_, err := c.Models.List(context.Background())
	var cerr *classify.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *classify.Error, got %T: %v", err, err)
	}
	if cerr.Class != classify.RateLimited {
		t.Errorf("Class = %q, want %q", cerr.Class, classify.RateLimited)
	}
	if cerr.RequestID != "req_abc" {
		t.Errorf("RequestID = %q, want req_abc", cerr.RequestID)
	}
	delay, ok := cerr.RetryDelay()
	if !ok || delay != 7*time.Second {
		t.Errorf("RetryDelay = %v, %v; want 7s, true", delay, ok)
	}
}

func TestDo_ClassifiesTransportFailure(t *testing.T) {
	c, err := New("sk-test",
		WithBaseURL("http://127.0.0.1:1"),
		WithRecovery(recovery.Policy{}),
		WithHTTPClient(&http.Client{Timeout: time.Second}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	_, err = c.Models.List(context.Background())
	var cerr *classify.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *classify.Error, got %T: %v", err, err)
	}
	if cerr.Class != classify.TransientHTTP {
		t.Errorf("Class = %q, want %q", cerr.Class, classify.TransientHTTP)
	}
}

func TestDo_DecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := c.Models.List(context.Background())
	var cerr *classify.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *classify.Error, got %T: %v", err, err)
	}
	if cerr.Class != classify.NonRecoverable {
		t.Errorf("Class = %q, want %q", cerr.Class, classify.NonRecoverable)
	}
	if !strings.Contains(cerr.Message, "decoding response") {
		t.Errorf("Message = %q, want decode failure", cerr.Message)
	}
}

func TestListOptions_Query(t *testing.T) {
	tests := []struct {
		name string
		opts *ListOptions
		want string
	}{
		{"nil", nil, ""},
		{"empty", &ListOptions{}, ""},
		{"limit", &ListOptions{Limit: 5}, "?limit=5"},
		{"cursors", &ListOptions{After: "file_a", Before: "file_b"}, "?after=file_a&before=file_b"},
		{"all", &ListOptions{Limit: 10, After: "x"}, "?after=x&limit=10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.query(); got != tt.want {
				t.Errorf("query() = %q, want %q", got, tt.want)
			}
		})
	}
}
