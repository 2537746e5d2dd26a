package classify

import (
	"fmt"
	"strings"
	"time"
)

// Class is the semantic classification of a failed API call. The values are
// stable identifiers suitable for logs and metrics labels.
type Class string

const (
	// ContainerExpired marks a failure explicitly tagged as an execution
	// container expiration by an earlier detection step.
	ContainerExpired Class = "container_expired"

	// APIContainerExpired marks a structured API error whose message says
	// the execution container or session has expired.
	APIContainerExpired Class = "api_container_expired"

	// RetryableServer marks gateway failures (502/503/504) and 5xx server
	// errors not judged permanent.
	RetryableServer Class = "retryable_server"

	// RateLimited marks HTTP 429.
	RateLimited Class = "rate_limited"

	// TransientHTTP marks transport-level failures: timeouts, connection
	// failures, and generic send failures.
	TransientHTTP Class = "transient_http"

	// NonRecoverable marks everything else: client errors, auth failures,
	// decode failures, permanent server errors.
	NonRecoverable Class = "non_recoverable"
)

// TransportKind distinguishes transport-level failure shapes within
// TransientHTTP.
type TransportKind string

const (
	TransportNone    TransportKind = ""
	TransportTimeout TransportKind = "timeout"
	TransportConnect TransportKind = "connect"
	TransportSend    TransportKind = "send"
)

// Error is a classified API call failure. It is constructed once at the
// failure boundary and never mutated afterward; concurrent reads are safe.
type Error struct {
	// Class is the semantic classification.
	Class Class

	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int

	// Message is the failure description, taken from the structured API
	// error body when one was present.
	Message string

	// Type, Code, and Param carry the remaining fields of the structured
	// API error body, when one was present.
	Type  string
	Code  string
	Param string

	// RequestID is the server-assigned request id from the X-Request-Id or
	// Request-Id header, for support tickets and log correlation.
	RequestID string

	// RetryAfter is the delay the server explicitly requested via the
	// Retry-After header. When nil, RetryDelay falls back to per-class
	// defaults.
	RetryAfter *time.Duration

	// Transport is the transport failure shape, set only for
	// transport-level errors.
	Transport TransportKind

	// Suggestion is a fixed remediation hint, set for auth failures.
	Suggestion string

	err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (request id %s)", e.Class, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// ContainerRelated reports whether the failure is either container
// expiration class. The recovery orchestrator prunes stale container
// references only for these.
func (e *Error) ContainerRelated() bool {
	return e.Class == ContainerExpired || e.Class == APIContainerExpired
}

// Recoverable reports whether an automatic retry has a reasonable chance of
// succeeding. For TransientHTTP this requires a timeout, connect, or send
// failure shape.
func (e *Error) Recoverable() bool {
	switch e.Class {
	case ContainerExpired, APIContainerExpired, RetryableServer, RateLimited:
		return true
	case TransientHTTP:
		switch e.Transport {
		case TransportTimeout, TransportConnect, TransportSend:
			return true
		}
	}
	return false
}

// Transient reports whether the failure is momentary infrastructure trouble
// rather than a problem with the request itself. Narrower than Recoverable
// for TransientHTTP: generic send failures are recoverable but not
// transient.
func (e *Error) Transient() bool {
	switch e.Class {
	case ContainerExpired, APIContainerExpired, RetryableServer, RateLimited:
		return true
	case TransientHTTP:
		switch e.Transport {
		case TransportTimeout, TransportConnect:
			return true
		}
	}
	return false
}

// RetryDelay returns how long to wait before retrying. The explicit
// Retry-After header wins when present; otherwise a per-class default
// applies. ok is false when the class defines no delay.
func (e *Error) RetryDelay() (delay time.Duration, ok bool) {
	if e.RetryAfter != nil {
		return *e.RetryAfter, true
	}

	switch e.Class {
	case RetryableServer:
		switch e.Status {
		case 502:
			return 30 * time.Second, true
		case 503:
			return 60 * time.Second, true
		case 504:
			return 45 * time.Second, true
		default:
			return 5 * time.Second, true
		}
	case RateLimited:
		return 60 * time.Second, true
	case ContainerExpired:
		return 1 * time.Second, true
	case TransientHTTP:
		switch e.Transport {
		case TransportTimeout:
			return 10 * time.Second, true
		case TransportConnect:
			return 3 * time.Second, true
		}
	}
	return 0, false
}

// UserMessage returns a complete, polite sentence describing the failure,
// suitable for direct display. It never exposes class names or diagnostic
// fields.
func (e *Error) UserMessage() string {
	switch e.Class {
	case ContainerExpired, APIContainerExpired:
		return "The execution environment for this conversation expired and has been reset. Please try again."
	case RateLimited:
		if delay, ok := e.RetryDelay(); ok {
			return fmt.Sprintf("Rate limit exceeded. Please try again in %d seconds.", int(delay.Seconds()))
		}
		return "Rate limit exceeded. Please try again shortly."
	case RetryableServer:
		return "The service hit a temporary server error. Please try again in a moment."
	case TransientHTTP:
		switch e.Transport {
		case TransportTimeout:
			return "The request timed out. Please try again."
		case TransportConnect:
			return "Could not reach the service. Please check your connection and try again."
		default:
			return "The request could not be sent. Please try again."
		}
	default:
		if e.Status == 401 || e.Status == 403 {
			return "Authentication failed. Please check that your API key is valid."
		}
		if e.Message != "" {
			return "The request failed: " + ensurePeriod(e.Message)
		}
		return "The request failed. Please review it and try again."
	}
}

func ensurePeriod(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

// containerExpiredMessage reports whether an API error message describes an
// expired execution container or session.
func containerExpiredMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "container is expired") ||
		strings.Contains(lower, "container expired") ||
		strings.Contains(lower, "session expired")
}

// serverErrorFatal reports whether a 5xx error message marks the failure as
// permanent rather than retryable.
func serverErrorFatal(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permanent") ||
		strings.Contains(lower, "invalid") ||
		strings.Contains(lower, "malformed")
}

// NewContainerExpired creates an Error for a failure already identified as
// a container expiration by an earlier detection step.
func NewContainerExpired(message string) *Error {
	if message == "" {
		message = "execution container expired"
	}
	return &Error{
		Class:   ContainerExpired,
		Message: message,
	}
}

// NewDecodeError creates a non-recoverable Error for a response body that
// could not be decoded.
func NewDecodeError(err error) *Error {
	return &Error{
		Class:   NonRecoverable,
		Message: fmt.Sprintf("decoding response: %s", err),
		err:     err,
	}
}

// NewEncodeError creates a non-recoverable Error for a request body that
// could not be encoded, caught before any network round trip.
func NewEncodeError(err error) *Error {
	return &Error{
		Class:   NonRecoverable,
		Message: fmt.Sprintf("encoding request: %s", err),
		err:     err,
	}
}

// NewInvalidAPIKey creates a non-recoverable Error for a missing or
// malformed API key, caught before any request is sent.
func NewInvalidAPIKey(message string) *Error {
	return &Error{
		Class:      NonRecoverable,
		Message:    message,
		Suggestion: "set a valid API key, e.g. via the OPENAI_API_KEY environment variable",
	}
}
