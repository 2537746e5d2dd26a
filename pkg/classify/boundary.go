package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/anfrage-dev/anfrage/pkg/api"
)

// maxErrorBody bounds how much of an error response body is read when
// looking for a structured API error.
const maxErrorBody = 4096

// Check inspects a completed HTTP exchange. It returns nil for success
// statuses and a classified error otherwise. Every endpoint wrapper applies
// it before decoding the body.
func Check(resp *http.Response) *Error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return FromResponse(resp)
}

// FromResponse classifies a non-success HTTP response. Headers are read
// before the body so retry and diagnostic metadata survive even when the
// body is unreadable.
func FromResponse(resp *http.Response) *Error {
	retryAfter := parseRetryAfter(resp.Header)
	requestID := requestIDHeader(resp.Header)
	status := resp.StatusCode

	switch {
	case status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout:
		// Classified by status alone; the body is not consulted.
		return &Error{
			Class:      RetryableServer,
			Status:     status,
			Message:    fmt.Sprintf("gateway error (HTTP %d)", status),
			RetryAfter: retryAfter,
			RequestID:  requestID,
		}

	case status == http.StatusTooManyRequests:
		return &Error{
			Class:      RateLimited,
			Status:     status,
			Message:    "rate limit exceeded",
			RetryAfter: retryAfter,
			RequestID:  requestID,
		}

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e := &Error{
			Class:      NonRecoverable,
			Status:     status,
			Message:    "authentication failed",
			RequestID:  requestID,
			Suggestion: "check that the API key is valid and has not been revoked",
		}
		if apiErr := parseErrorBody(resp.Body); apiErr != nil {
			e.Message = apiErr.Message
			e.Type = apiErr.Type
			e.Code = apiErr.Code
		}
		return e

	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if apiErr := parseErrorBody(resp.Body); apiErr != nil {
			return FromAPIError(status, apiErr, requestID, retryAfter)
		}
		return &Error{
			Class:     NonRecoverable,
			Status:    status,
			Message:   fmt.Sprintf("client error (HTTP %d)", status),
			RequestID: requestID,
		}

	case status >= 500:
		if apiErr := parseErrorBody(resp.Body); apiErr != nil {
			return FromAPIError(status, apiErr, requestID, retryAfter)
		}
		// An unreadable 5xx body defaults to retryable.
		return &Error{
			Class:      RetryableServer,
			Status:     status,
			Message:    fmt.Sprintf("server error (HTTP %d)", status),
			RetryAfter: retryAfter,
			RequestID:  requestID,
		}

	default:
		if apiErr := parseErrorBody(resp.Body); apiErr != nil {
			return FromAPIError(status, apiErr, requestID, retryAfter)
		}
		return &Error{
			Class:     NonRecoverable,
			Status:    status,
			Message:   fmt.Sprintf("unexpected status (HTTP %d)", status),
			RequestID: requestID,
		}
	}
}

// FromAPIError classifies a parsed structured API error. The container
// expiration message check runs first, then server-error retryability, so a
// container message wins regardless of status.
func FromAPIError(status int, apiErr *api.APIError, requestID string, retryAfter *time.Duration) *Error {
	e := &Error{
		Status:     status,
		Message:    apiErr.Message,
		Type:       apiErr.Type,
		Code:       apiErr.Code,
		Param:      apiErr.Param,
		RequestID:  requestID,
		RetryAfter: retryAfter,
	}

	switch {
	case containerExpiredMessage(apiErr.Message):
		e.Class = APIContainerExpired
	case status >= 500 || apiErr.Type == api.ErrorTypeServerError:
		if serverErrorFatal(apiErr.Message) {
			e.Class = NonRecoverable
		} else {
			e.Class = RetryableServer
		}
	case status == http.StatusTooManyRequests:
		e.Class = RateLimited
	default:
		e.Class = NonRecoverable
	}

	return e
}

// FromTransport classifies an error that prevented an HTTP exchange from
// completing: timeouts, dial failures, DNS trouble, cancelled contexts.
func FromTransport(err error) *Error {
	if errors.Is(err, context.Canceled) {
		// The caller gave up; retrying would override their intent.
		return &Error{
			Class:   NonRecoverable,
			Message: "request cancelled",
			err:     err,
		}
	}

	e := &Error{Class: TransientHTTP, err: err}
	switch {
	case isTimeout(err):
		e.Transport = TransportTimeout
		e.Message = fmt.Sprintf("request timed out: %s", err)
	case isConnectFailure(err):
		e.Transport = TransportConnect
		e.Message = fmt.Sprintf("connection failed: %s", err)
	default:
		e.Transport = TransportSend
		e.Message = fmt.Sprintf("request failed: %s", err)
	}
	return e
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// parseRetryAfter reads the Retry-After header as integer seconds. The
// HTTP-date form is ignored.
func parseRetryAfter(h http.Header) *time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}

// requestIDHeader returns the server-assigned request id, preferring
// X-Request-Id over Request-Id.
func requestIDHeader(h http.Header) string {
	if id := h.Get("X-Request-Id"); id != "" {
		return id
	}
	return h.Get("Request-Id")
}

// parseErrorBody tries to parse the body as the structured error envelope
// and returns the inner error if found.
func parseErrorBody(body io.Reader) *api.APIError {
	if body == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return nil
	}

	var envelope api.ErrorResponse
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == nil || envelope.Error.Message == "" {
		return nil
	}
	return envelope.Error
}
