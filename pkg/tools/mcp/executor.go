package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/tools"
)

// Executor implements tools.Executor over one or more connected MCP
// servers. It discovers each server's tools on first use and routes
// calls to the server that owns the tool.
type Executor struct {
	mu sync.RWMutex

	// clients maps server name to its connected Client.
	clients map[string]*Client

	// toolToServer maps tool name to the owning server name.
	toolToServer map[string]string

	// discovered tracks whether lazy discovery has run.
	discovered bool
}

var _ tools.Executor = (*Executor)(nil)

// NewExecutor creates an Executor over the given connected clients,
// keyed by server name.
func NewExecutor(clients map[string]*Client) *Executor {
	return &Executor{
		clients:      clients,
		toolToServer: make(map[string]string),
	}
}

// Connect dials every configured server and returns an Executor routing
// calls across them. If any server fails to connect, sessions opened so
// far are closed and the error is returned.
func Connect(ctx context.Context, configs []ServerConfig) (*Executor, error) {
	clients := make(map[string]*Client, len(configs))
	for _, cfg := range configs {
		client := NewClient(cfg)
		if err := client.Connect(ctx); err != nil {
			for _, connected := range clients {
				_ = connected.Close()
			}
			return nil, err
		}
		clients[cfg.Name] = client
	}
	return NewExecutor(clients), nil
}

// CanExecute reports whether any connected server provides the named
// tool. The first call triggers lazy discovery.
func (e *Executor) CanExecute(name string) bool {
	e.ensureDiscovered()

	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.toolToServer[name]
	return ok
}

// Execute routes the call to the server that owns the tool.
func (e *Executor) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	e.ensureDiscovered()

	e.mu.RLock()
	serverName, ok := e.toolToServer[call.Name]
	if !ok {
		e.mu.RUnlock()
		return &tools.Result{
			CallID:  call.ID,
			Output:  fmt.Sprintf("no MCP server provides tool %q", call.Name),
			IsError: true,
		}, nil
	}
	client := e.clients[serverName]
	e.mu.RUnlock()

	return client.CallTool(ctx, call)
}

// Definitions returns the tools discovered from all connected servers.
func (e *Executor) Definitions() []api.Tool {
	e.ensureDiscovered()

	e.mu.RLock()
	defer e.mu.RUnlock()

	var defs []api.Tool
	for _, client := range e.clients {
		client.mu.Lock()
		defs = append(defs, client.cachedTools...)
		client.mu.Unlock()
	}
	return defs
}

// Close closes all server sessions, returning the last error
// encountered.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lastErr error
	for name, client := range e.clients {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close MCP client", "server", name, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// ensureDiscovered runs tool discovery once across all servers. A server
// that fails discovery is skipped with a log entry; duplicate tool names
// resolve to the server seen first.
func (e *Executor) ensureDiscovered() {
	e.mu.RLock()
	if e.discovered {
		e.mu.RUnlock()
		return
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring the write lock.
	if e.discovered {
		return
	}

	ctx := context.Background()
	for name, client := range e.clients {
		defs, err := client.DiscoverTools(ctx)
		if err != nil {
			slog.Error("failed to discover tools from MCP server",
				"server", name,
				"error", err,
			)
			continue
		}

		for _, def := range defs {
			if _, exists := e.toolToServer[def.Name]; exists {
				slog.Warn("duplicate MCP tool name, using first server",
					"tool", def.Name,
					"server", name,
				)
				continue
			}
			e.toolToServer[def.Name] = name
		}

		slog.Info("discovered MCP tools",
			"server", name,
			"count", len(defs),
		)
	}

	e.discovered = true
}
