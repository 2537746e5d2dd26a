package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/tools"
)

// setupTestServer creates a test MCP server with the given tools and
// connects a client to it over in-memory transports.
func setupTestServer(t *testing.T, serverTools map[string]mcp.ToolHandler) *Client {
	t.Helper()

	server := mcp.NewServer(
		&mcp.Implementation{Name: "test-server", Version: "1.0.0"},
		nil,
	)

	for name, handler := range serverTools {
		server.AddTool(
			&mcp.Tool{
				Name:        name,
				Description: "Test tool: " + name,
				InputSchema: map[string]any{"type": "object"},
			},
			handler,
		)
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := &Client{
		cfg: ServerConfig{Name: "test-server"},
	}
	if err := client.ConnectWithTransport(ctx, clientTransport); err != nil {
		t.Fatalf("ConnectWithTransport failed: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func TestExecutor_Definitions(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"get_weather": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult("sunny"), nil
		},
		"get_time": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult("12:00"), nil
		},
	})

	executor := NewExecutor(map[string]*Client{
		"test-server": client,
	})
	defer executor.Close()

	defs := executor.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(defs))
	}

	// Tool names are present; order may vary.
	names := map[string]bool{}
	for _, def := range defs {
		names[def.Name] = true
		if def.Type != api.ToolTypeFunction {
			t.Errorf("expected type %q, got %q for tool %q", api.ToolTypeFunction, def.Type, def.Name)
		}
		if len(def.Parameters) == 0 {
			t.Errorf("expected input schema for tool %q", def.Name)
		}
	}
	if !names["get_weather"] {
		t.Error("expected tool 'get_weather' not found")
	}
	if !names["get_time"] {
		t.Error("expected tool 'get_time' not found")
	}

	// Discovery is cached: a second call returns the same set.
	if got := executor.Definitions(); len(got) != len(defs) {
		t.Error("cached tools mismatch")
	}
}

func TestExecutor_CanExecute(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"available_tool": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult("ok"), nil
		},
	})

	executor := NewExecutor(map[string]*Client{
		"test-server": client,
	})
	defer executor.Close()

	if !executor.CanExecute("available_tool") {
		t.Error("CanExecute should return true for a discovered tool")
	}
	if executor.CanExecute("unknown_tool") {
		t.Error("CanExecute should return false for an unknown tool")
	}
}

func TestExecutor_Execute(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"greet": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, err
			}
			return textResult("Hello, " + args.Name + "!"), nil
		},
	})

	executor := NewExecutor(map[string]*Client{
		"test-server": client,
	})
	defer executor.Close()

	result, err := executor.Execute(context.Background(), tools.Call{
		ID:        "call_123",
		Name:      "greet",
		Arguments: `{"name":"World"}`,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.CallID != "call_123" {
		t.Errorf("expected call ID 'call_123', got %q", result.CallID)
	}
	if result.Output != "Hello, World!" {
		t.Errorf("expected output 'Hello, World!', got %q", result.Output)
	}
	if result.IsError {
		t.Error("expected IsError=false, got true")
	}
}

func TestExecutor_MultiServer(t *testing.T) {
	clientA := setupTestServer(t, map[string]mcp.ToolHandler{
		"tool_a": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult("from server A"), nil
		},
	})
	clientB := setupTestServer(t, map[string]mcp.ToolHandler{
		"tool_b": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult("from server B"), nil
		},
	})

	executor := NewExecutor(map[string]*Client{
		"server-a": clientA,
		"server-b": clientB,
	})
	defer executor.Close()

	if !executor.CanExecute("tool_a") {
		t.Error("CanExecute should return true for tool_a")
	}
	if !executor.CanExecute("tool_b") {
		t.Error("CanExecute should return true for tool_b")
	}

	resultA, err := executor.Execute(context.Background(), tools.Call{ID: "call_a", Name: "tool_a"})
	if err != nil {
		t.Fatalf("Execute tool_a failed: %v", err)
	}
	if resultA.Output != "from server A" {
		t.Errorf("tool_a: expected 'from server A', got %q", resultA.Output)
	}

	resultB, err := executor.Execute(context.Background(), tools.Call{ID: "call_b", Name: "tool_b"})
	if err != nil {
		t.Fatalf("Execute tool_b failed: %v", err)
	}
	if resultB.Output != "from server B" {
		t.Errorf("tool_b: expected 'from server B', got %q", resultB.Output)
	}
}

func TestExecutor_ToolCallError(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"failing_tool": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "something went wrong"}},
				IsError: true,
			}, nil
		},
	})

	executor := NewExecutor(map[string]*Client{
		"test-server": client,
	})
	defer executor.Close()

	result, err := executor.Execute(context.Background(), tools.Call{
		ID:   "call_err",
		Name: "failing_tool",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError=true for error result")
	}
	if result.Output != "something went wrong" {
		t.Errorf("expected error output 'something went wrong', got %q", result.Output)
	}
}

func TestExecutor_UnknownTool(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"known_tool": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult("ok"), nil
		},
	})

	executor := NewExecutor(map[string]*Client{
		"test-server": client,
	})
	defer executor.Close()

	result, err := executor.Execute(context.Background(), tools.Call{
		ID:   "call_unknown",
		Name: "nonexistent_tool",
	})
	if err != nil {
		t.Fatalf("Execute failed with unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError=true for unknown tool")
	}
}

func TestExecutor_RegistryIntegration(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"lookup": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult("found it"), nil
		},
	})

	reg := tools.NewRegistry()
	reg.Attach(NewExecutor(map[string]*Client{"test-server": client}))
	defer reg.Close()

	defs := reg.Definitions()
	if len(defs) != 1 || defs[0].Name != "lookup" {
		t.Fatalf("Definitions() = %+v, want the discovered MCP tool", defs)
	}

	outputs, err := reg.ExecuteCalls(context.Background(), []api.Item{
		{Type: api.ItemTypeFunctionCall, CallID: "call_1", Name: "lookup", Arguments: `{}`},
	})
	if err != nil {
		t.Fatalf("ExecuteCalls failed: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("got %d outputs, want 1", len(outputs))
	}
	if outputs[0].CallID != "call_1" || outputs[0].Output != "found it" {
		t.Errorf("outputs[0] = %+v, want call_1/found it", outputs[0])
	}
}
