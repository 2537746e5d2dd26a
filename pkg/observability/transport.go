package observability

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Transport is an http.RoundTripper that records request metrics for every
// API call made through it.
//
// It captures:
//   - anfrage_requests_total (counter): per request with endpoint, method, and status class labels
//   - anfrage_request_duration_seconds (histogram): call duration with endpoint label
//   - anfrage_streaming_connections_active (gauge): held while an SSE response body remains open
type Transport struct {
	base http.RoundTripper
}

// NewTransport wraps base with metrics recording. A nil base uses
// http.DefaultTransport.
func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	endpoint := EndpointLabel(req.URL.Path)

	resp, err := t.base.RoundTrip(req)
	RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		RequestsTotal.WithLabelValues(endpoint, req.Method, "error").Inc()
		return nil, err
	}

	statusStr := strconv.Itoa(resp.StatusCode/100) + "xx"
	RequestsTotal.WithLabelValues(endpoint, req.Method, statusStr).Inc()

	// SSE responses stay open until the caller drains the stream; hold the
	// gauge until the body is closed.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		StreamingConnections.Inc()
		resp.Body = &streamBody{ReadCloser: resp.Body}
	}
	return resp, nil
}

// streamBody decrements the streaming gauge exactly once on close.
type streamBody struct {
	io.ReadCloser
	once sync.Once
}

// Close releases the gauge and delegates to the underlying body.
func (b *streamBody) Close() error {
	b.once.Do(StreamingConnections.Dec)
	return b.ReadCloser.Close()
}

// EndpointLabel maps a request path to its metric label: the first path
// segment after the API version prefix. Unrecognized shapes map to "other".
func EndpointLabel(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) > 0 && segs[0] == "v1" {
		segs = segs[1:]
	}
	if len(segs) == 0 || segs[0] == "" {
		return "other"
	}
	return segs[0]
}
