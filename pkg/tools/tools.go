package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"

	"github.com/anfrage-dev/anfrage/pkg/api"
)

// Call is a single tool invocation requested by the model.
type Call struct {
	// ID correlates the call with its result. Taken from the
	// function_call item's call_id when present.
	ID string

	// Name is the tool to invoke.
	Name string

	// Arguments is the raw JSON argument object produced by the model.
	Arguments string
}

// Result is the outcome of executing a Call.
type Result struct {
	// CallID echoes the Call's ID.
	CallID string

	// Output is the tool's output, or an error description when IsError
	// is set.
	Output string

	// IsError marks a failure that should be reported back to the model
	// rather than aborting the turn.
	IsError bool
}

// Handler implements a local tool. The raw JSON arguments are passed
// through unparsed; a returned error becomes an error Result fed back to
// the model.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Function is a locally implemented tool.
type Function struct {
	Name        string
	Description string

	// Parameters is the JSON Schema for the argument object.
	Parameters json.RawMessage

	// Strict requests strict schema adherence from the model.
	Strict bool

	Handler Handler
}

// Definition returns the function as an api.Tool for request construction.
func (f Function) Definition() api.Tool {
	def := api.FunctionTool(f.Name, f.Description, f.Parameters)
	if f.Strict {
		strict := true
		def.Strict = &strict
	}
	return def
}

// Executor executes tools that live outside the registry, such as the
// tools of a connected MCP server. Implementations report tool-level
// failures inside the Result; the error return is for infrastructure
// failures.
type Executor interface {
	// CanExecute reports whether the executor handles the named tool.
	CanExecute(name string) bool

	// Execute runs a tool call and returns the result.
	Execute(ctx context.Context, call Call) (*Result, error)

	// Definitions returns the tool definitions the executor contributes.
	Definitions() []api.Tool

	// Close releases any resources held by the executor.
	Close() error
}

// Sequence hands out monotonically increasing identifiers. The registry
// uses one to correlate calls that arrive without a call_id; the zero
// value is ready to use and safe for concurrent callers.
type Sequence struct {
	n atomic.Uint64
}

// Next returns the next identifier, formatted as prefix plus a decimal
// counter value starting at 1.
func (s *Sequence) Next(prefix string) string {
	return prefix + strconv.FormatUint(s.n.Add(1), 10)
}
