package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/observability"
)

// Registry dispatches tool calls to locally registered functions and
// attached executors. Names are resolved on a first-come, first-served
// basis: a local function shadows an executor tool of the same name, and
// earlier executors shadow later ones.
type Registry struct {
	mu sync.RWMutex

	// functions holds local tools by name; names preserves registration
	// order so Definitions is stable.
	functions map[string]Function
	names     []string

	executors []Executor

	seq Sequence
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{functions: make(map[string]Function)}
}

// Register adds a local function. The name must be non-empty and unique
// among registered functions.
func (r *Registry) Register(fn Function) error {
	if fn.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if fn.Handler == nil {
		return fmt.Errorf("tool %q has no handler", fn.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.functions[fn.Name]; ok {
		return fmt.Errorf("tool %q already registered", fn.Name)
	}
	r.functions[fn.Name] = fn
	r.names = append(r.names, fn.Name)
	return nil
}

// Attach adds an executor to the dispatch chain.
func (r *Registry) Attach(exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors = append(r.executors, exec)
}

// CanExecute reports whether a local function or any attached executor
// handles the named tool.
func (r *Registry) CanExecute(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.functions[name]; ok {
		return true
	}
	for _, exec := range r.executors {
		if exec.CanExecute(name) {
			return true
		}
	}
	return false
}

// Execute dispatches the call and records metrics. A call without an ID
// is assigned a generated one so its result stays correlatable. An
// unknown tool name yields an error Result, not a Go error.
func (r *Registry) Execute(ctx context.Context, call Call) (*Result, error) {
	if call.ID == "" {
		call.ID = r.seq.Next("call_")
	}

	r.mu.RLock()
	fn, isLocal := r.functions[call.Name]
	executors := r.executors
	r.mu.RUnlock()

	if isLocal {
		return r.executeLocal(ctx, fn, call)
	}

	for _, exec := range executors {
		if !exec.CanExecute(call.Name) {
			continue
		}
		result, err := exec.Execute(ctx, call)

		status := "success"
		switch {
		case err != nil:
			status = "error"
		case result != nil && result.IsError:
			status = "tool_error"
		}
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, status).Inc()

		return result, err
	}

	return &Result{
		CallID:  call.ID,
		Output:  fmt.Sprintf("no tool named %q is registered", call.Name),
		IsError: true,
	}, nil
}

// executeLocal runs a registered function, recovering from handler
// panics. A handler error becomes an error Result so the failure reaches
// the model instead of aborting the turn.
func (r *Registry) executeLocal(ctx context.Context, fn Function, call Call) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool handler panicked",
				"tool", call.Name,
				"panic", rec,
			)
			result = &Result{
				CallID:  call.ID,
				Output:  fmt.Sprintf("internal error: tool %q panicked", call.Name),
				IsError: true,
			}
			err = nil
			observability.ToolExecutionsTotal.WithLabelValues(call.Name, "panic").Inc()
		}
	}()

	output, handlerErr := fn.Handler(ctx, json.RawMessage(call.Arguments))
	if handlerErr != nil {
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, "tool_error").Inc()
		return &Result{CallID: call.ID, Output: handlerErr.Error(), IsError: true}, nil
	}

	observability.ToolExecutionsTotal.WithLabelValues(call.Name, "success").Inc()
	return &Result{CallID: call.ID, Output: output}, nil
}

// Definitions returns the merged tool definitions: local functions in
// registration order, then each attached executor's tools.
func (r *Registry) Definitions() []api.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]api.Tool, 0, len(r.names))
	for _, name := range r.names {
		defs = append(defs, r.functions[name].Definition())
	}
	for _, exec := range r.executors {
		defs = append(defs, exec.Definitions()...)
	}
	return defs
}

// ExecuteCalls runs every function_call item in calls and returns the
// matching function_call_output items, ready to be sent as the next
// request's input. Non-call items are skipped. Tool failures are reported
// inside the output items so the model can react; the error return fires
// only when ctx is done.
func (r *Registry) ExecuteCalls(ctx context.Context, calls []api.Item) ([]api.Item, error) {
	var outputs []api.Item
	for _, item := range calls {
		if item.Type != api.ItemTypeFunctionCall {
			continue
		}
		if err := ctx.Err(); err != nil {
			return outputs, err
		}

		result, err := r.Execute(ctx, Call{
			ID:        item.CallID,
			Name:      item.Name,
			Arguments: item.Arguments,
		})
		if err != nil {
			outputs = append(outputs, api.FunctionCallOutput(item.CallID,
				fmt.Sprintf("tool %q failed: %v", item.Name, err)))
			continue
		}
		outputs = append(outputs, api.FunctionCallOutput(result.CallID, result.Output))
	}
	return outputs, nil
}

// Close closes all attached executors, returning the last error
// encountered.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for _, exec := range r.executors {
		if err := exec.Close(); err != nil {
			slog.Warn("failed to close tool executor", "error", err)
			lastErr = err
		}
	}
	return lastErr
}
