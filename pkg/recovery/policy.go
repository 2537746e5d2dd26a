package recovery

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/anfrage-dev/anfrage/pkg/classify"
)

// Scope restricts which error classes the orchestrator may retry
// automatically. Recoverability is a property of the error itself; the
// scope is the policy owner's veto on top of it.
type Scope string

const (
	// ScopeAllRecoverable admits every class whose error reports itself
	// recoverable.
	ScopeAllRecoverable Scope = "all"

	// ScopeContainerOnly admits only the two container-expiration classes.
	ScopeContainerOnly Scope = "container"

	// ScopeTransientOnly admits transport-level failures and retryable
	// server errors.
	ScopeTransientOnly Scope = "transient"
)

// Admits reports whether the scope allows automatic retry for the class.
// The zero Scope behaves like ScopeAllRecoverable.
func (s Scope) Admits(c classify.Class) bool {
	switch s {
	case ScopeContainerOnly:
		return c == classify.ContainerExpired || c == classify.APIContainerExpired
	case ScopeTransientOnly:
		return c == classify.TransientHTTP || c == classify.RetryableServer
	default:
		return true
	}
}

// ParseScope maps the external spelling of a retry scope to its Scope
// value. Matching is case-insensitive.
func ParseScope(v string) (Scope, bool) {
	switch strings.ToLower(v) {
	case "all":
		return ScopeAllRecoverable, true
	case "container":
		return ScopeContainerOnly, true
	case "transient":
		return ScopeTransientOnly, true
	}
	return "", false
}

// defaultResetMessage is the stock notice attached to an Outcome after a
// container reset when the policy asks for notification without supplying
// its own wording.
const defaultResetMessage = "Your code execution session was reset. Files and variables from earlier turns are no longer available."

// Policy configures how the orchestrator reacts to recoverable failures.
// A Policy is copied on use and must not be mutated after it has been
// handed to an orchestrator. The zero value performs no retries.
type Policy struct {
	// AutoRetryOnExpiredContainer permits automatic retry when the
	// failure is a container expiration. When false such errors surface
	// immediately so the application can run its own reset flow.
	AutoRetryOnExpiredContainer bool

	// NotifyOnReset surfaces the reset notice through the Outcome
	// whenever a container-related recovery happened.
	NotifyOnReset bool

	// MaxRetries bounds the number of retries after the initial attempt.
	// Zero disables automatic retry entirely.
	MaxRetries int

	// AutoPruneExpiredContainers rewrites the outgoing request before a
	// container-related retry so it asks for a fresh container instead
	// of the expired one.
	AutoPruneExpiredContainers bool

	// ResetMessage overrides the user-facing notice attached to the
	// Outcome after a container reset. Empty selects the stock message.
	ResetMessage string

	// LogRecoveryAttempts emits a structured log line per retry.
	LogRecoveryAttempts bool

	// RetryScope limits which error classes are retried. The zero value
	// admits all recoverable classes.
	RetryScope Scope
}

// DefaultPolicy retries once, pruning expired containers automatically and
// logging each attempt.
func DefaultPolicy() Policy {
	return Policy{
		AutoRetryOnExpiredContainer: true,
		MaxRetries:                  1,
		AutoPruneExpiredContainers:  true,
		LogRecoveryAttempts:         true,
		RetryScope:                  ScopeAllRecoverable,
	}
}

// ConservativePolicy never retries on its own. Failures surface
// immediately and the application drives recovery by hand, typically via
// PruneRequest, with the reset notice available for display.
func ConservativePolicy() Policy {
	return Policy{
		NotifyOnReset:       true,
		LogRecoveryAttempts: true,
		RetryScope:          ScopeAllRecoverable,
	}
}

// AggressivePolicy retries up to three times and keeps the user informed
// through a custom reset notice.
func AggressivePolicy() Policy {
	return Policy{
		AutoRetryOnExpiredContainer: true,
		NotifyOnReset:               true,
		MaxRetries:                  3,
		AutoPruneExpiredContainers:  true,
		ResetMessage:                "Your code execution environment was refreshed automatically. Please re-run any setup from earlier turns.",
		LogRecoveryAttempts:         true,
		RetryScope:                  ScopeAllRecoverable,
	}
}

// WithAutoRetry returns a copy with automatic container-expiration retry
// enabled or disabled.
func (p Policy) WithAutoRetry(v bool) Policy {
	p.AutoRetryOnExpiredContainer = v
	return p
}

// WithNotifyOnReset returns a copy with reset notification enabled or
// disabled.
func (p Policy) WithNotifyOnReset(v bool) Policy {
	p.NotifyOnReset = v
	return p
}

// WithMaxRetries returns a copy with the retry bound set to n.
func (p Policy) WithMaxRetries(n int) Policy {
	p.MaxRetries = n
	return p
}

// WithAutoPrune returns a copy with automatic container pruning enabled or
// disabled.
func (p Policy) WithAutoPrune(v bool) Policy {
	p.AutoPruneExpiredContainers = v
	return p
}

// WithResetMessage returns a copy with a custom reset notice.
func (p Policy) WithResetMessage(msg string) Policy {
	p.ResetMessage = msg
	return p
}

// WithLogging returns a copy with per-retry logging enabled or disabled.
func (p Policy) WithLogging(v bool) Policy {
	p.LogRecoveryAttempts = v
	return p
}

// WithRetryScope returns a copy restricted to the given scope.
func (p Policy) WithRetryScope(s Scope) Policy {
	p.RetryScope = s
	return p
}

// resetNotice is the message shown to users after a container reset.
func (p Policy) resetNotice() string {
	if p.ResetMessage != "" {
		return p.ResetMessage
	}
	return defaultResetMessage
}

// Environment variables read by PolicyFromEnvironment.
const (
	EnvMaxRetries  = "ANFRAGE_MAX_RETRIES"
	EnvAutoRetry   = "ANFRAGE_AUTO_RETRY"
	EnvAutoPrune   = "ANFRAGE_AUTO_PRUNE"
	EnvLogRecovery = "ANFRAGE_LOG_RECOVERY"
	EnvRetryScope  = "ANFRAGE_RETRY_SCOPE"
)

// PolicyFromEnvironment overlays environment overrides onto DefaultPolicy.
// Unset variables keep their defaults; malformed values are ignored with a
// logged warning.
func PolicyFromEnvironment() Policy {
	p := DefaultPolicy()
	if v := os.Getenv(EnvMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.MaxRetries = n
		} else {
			slog.Warn("ignoring invalid recovery override", "var", EnvMaxRetries, "value", v)
		}
	}
	if v := os.Getenv(EnvAutoRetry); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.AutoRetryOnExpiredContainer = b
		} else {
			slog.Warn("ignoring invalid recovery override", "var", EnvAutoRetry, "value", v)
		}
	}
	if v := os.Getenv(EnvAutoPrune); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.AutoPruneExpiredContainers = b
		} else {
			slog.Warn("ignoring invalid recovery override", "var", EnvAutoPrune, "value", v)
		}
	}
	if v := os.Getenv(EnvLogRecovery); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.LogRecoveryAttempts = b
		} else {
			slog.Warn("ignoring invalid recovery override", "var", EnvLogRecovery, "value", v)
		}
	}
	if v := os.Getenv(EnvRetryScope); v != "" {
		if s, ok := ParseScope(v); ok {
			p.RetryScope = s
		} else {
			slog.Warn("ignoring invalid recovery override", "var", EnvRetryScope, "value", v)
		}
	}
	return p
}
