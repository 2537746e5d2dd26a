// Command mcp-test-server runs a small MCP server for exercising the
// MCP executor wiring. Provides "echo" and "add" tools over the
// streamable HTTP transport on /mcp.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	port := flag.String("port", "8081", "listen port")
	flag.Parse()

	server := mcp.NewServer(
		&mcp.Implementation{Name: "anfrage-test-mcp", Version: "v1.0.0"},
		nil,
	)

	type EchoInput struct {
		Message string `json:"message" jsonschema_description:"The message to echo back"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "echo",
		Description: "Echoes the provided message back",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input EchoInput) (*mcp.CallToolResult, struct{}, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Echo: %s", input.Message)},
			},
		}, struct{}{}, nil
	})

	type AddInput struct {
		A float64 `json:"a" jsonschema_description:"First addend"`
		B float64 `json:"b" jsonschema_description:"Second addend"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add",
		Description: "Adds two numbers and returns the sum",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, struct{}, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("%g", input.A+input.B)},
			},
		}, struct{}{}, nil
	})

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	slog.Info("MCP test server starting", "port", *port)
	if err := http.ListenAndServe(":"+*port, mux); err != nil {
		slog.Error("MCP test server failed", "error", err)
		os.Exit(1)
	}
}
