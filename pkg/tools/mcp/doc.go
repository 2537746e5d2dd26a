// Package mcp connects the tool registry to MCP (Model Context Protocol)
// servers. It wraps the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk), discovers the tools each
// server offers, and routes tool calls to the server that owns them via
// an Executor that plugs into tools.Registry.
//
// Servers are described by ServerConfig: name, transport (streamable-http
// or SSE), URL, optional static headers, and an auth mode. Supported auth
// modes are OAuth 2.0 client_credentials and the RFC 7523 JWT bearer
// grant; both cache issued tokens and refresh them proactively.
package mcp
