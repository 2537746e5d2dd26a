package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/classify"
	"github.com/anfrage-dev/anfrage/pkg/observability"
)

// Operation performs one attempt against the API. Classified errors pass
// through the orchestrator untouched; any other error is treated as a
// transport failure and classified on the spot.
type Operation func(ctx context.Context, req *api.Request) (*api.Response, error)

// Callback observes retry attempts. attempt is 1-based and counts retries,
// not total attempts. Callbacks run synchronously on the calling goroutine
// and must be safe for concurrent use when the orchestrator is shared.
type Callback func(err *classify.Error, attempt int)

// Outcome records whether and how recovery happened for a single call.
// It is produced fresh per call and meaningful on both the success and the
// failure path.
type Outcome struct {
	// Attempted is true when at least one retry was made.
	Attempted bool

	// RetryCount is the number of retries after the initial attempt.
	RetryCount int

	// Successful is true when the call eventually produced a response.
	Successful bool

	// OriginalError preserves the message of the first failure once a
	// retry happened, so callers can report what was recovered from.
	OriginalError string

	// ResetMessage carries the user-facing notice after a container
	// reset, when the policy asks for notification.
	ResetMessage string
}

// MaxRetriesError wraps the final classified error when the retry bound,
// rather than the failure itself, ended recovery.
type MaxRetriesError struct {
	// Attempts is the total number of attempts made, counting the first.
	Attempts int

	// Err is the failure observed on the last attempt.
	Err error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("maximum retry attempts exceeded (%d): %v", e.Attempts, e.Err)
}

func (e *MaxRetriesError) Unwrap() error { return e.Err }

// Orchestrator drives bounded retry with context repair around a single
// logical API call. It holds no per-call state; one instance is safe for
// concurrent use across goroutines.
type Orchestrator struct {
	policy   Policy
	callback Callback
}

// New creates an Orchestrator governed by policy.
func New(policy Policy) *Orchestrator {
	return &Orchestrator{policy: policy}
}

// WithCallback returns a copy of the orchestrator that notifies cb on
// every retry. Passing nil removes the callback.
func (o *Orchestrator) WithCallback(cb Callback) *Orchestrator {
	return &Orchestrator{policy: o.policy, callback: cb}
}

// Policy returns the active recovery policy.
func (o *Orchestrator) Policy() Policy {
	return o.policy
}

// Execute runs op under the recovery policy and returns the final response
// or the final classified error.
func (o *Orchestrator) Execute(ctx context.Context, req *api.Request, op Operation) (*api.Response, error) {
	resp, _, err := o.ExecuteWithOutcome(ctx, req, op)
	return resp, err
}

// ExecuteWithOutcome runs op under the recovery policy and additionally
// reports how recovery went. After a failure the Outcome still records the
// retries that were attempted along the way.
//
// Each attempt calls op with the current request, which may have been
// pruned after a container expiration. Waits between attempts honor ctx:
// cancellation during a wait aborts the call.
func (o *Orchestrator) ExecuteWithOutcome(ctx context.Context, req *api.Request, op Operation) (*api.Response, Outcome, error) {
	var outcome Outcome
	current := req
	for {
		resp, err := op(ctx, current)
		if err == nil {
			outcome.Attempted = outcome.RetryCount > 0
			outcome.Successful = true
			if outcome.Attempted {
				observability.RecoveriesTotal.WithLabelValues("recovered").Inc()
			}
			return resp, outcome, nil
		}

		failure := err
		var cerr *classify.Error
		if !errors.As(err, &cerr) {
			cerr = classify.FromTransport(err)
			failure = cerr
		}

		eligible := cerr.Recoverable() &&
			o.policy.RetryScope.Admits(cerr.Class) &&
			(!cerr.ContainerRelated() || o.policy.AutoRetryOnExpiredContainer)
		if !eligible {
			outcome.Attempted = outcome.RetryCount > 0
			if outcome.Attempted {
				observability.RecoveriesTotal.WithLabelValues("failed").Inc()
			}
			return nil, outcome, failure
		}
		if outcome.RetryCount >= o.policy.MaxRetries {
			outcome.Attempted = outcome.RetryCount > 0
			if outcome.Attempted {
				observability.RecoveriesTotal.WithLabelValues("failed").Inc()
				failure = &MaxRetriesError{Attempts: outcome.RetryCount + 1, Err: failure}
			}
			return nil, outcome, failure
		}

		if outcome.OriginalError == "" {
			outcome.OriginalError = cerr.Error()
		}
		if cerr.ContainerRelated() {
			if o.policy.AutoPruneExpiredContainers {
				current = PruneRequest(current)
			}
			if o.policy.NotifyOnReset {
				outcome.ResetMessage = o.policy.resetNotice()
			}
		}

		attempt := outcome.RetryCount + 1
		delay, hasDelay := cerr.RetryDelay()
		if o.policy.LogRecoveryAttempts {
			slog.Warn("retrying after recoverable failure",
				"class", cerr.Class,
				"attempt", attempt,
				"max_retries", o.policy.MaxRetries,
				"delay", delay,
				"error", cerr.Message)
		}
		observability.RecoveryAttemptsTotal.WithLabelValues(string(cerr.Class)).Inc()
		if o.callback != nil {
			o.callback(cerr, attempt)
		}
		if hasDelay {
			observability.RetryWaitSeconds.Observe(delay.Seconds())
			if err := wait(ctx, delay); err != nil {
				outcome.Attempted = outcome.RetryCount > 0
				if outcome.Attempted {
					observability.RecoveriesTotal.WithLabelValues("failed").Inc()
				}
				return nil, outcome, classify.FromTransport(err)
			}
		}
		outcome.RetryCount++
	}
}

// wait blocks for d or until ctx is done, whichever comes first.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
