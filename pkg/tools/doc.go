// Package tools executes the function calls a response asks the
// application to perform. The Responses API returns function_call items
// for tools the server does not host; the application runs them and sends
// function_call_output items back on the next turn.
//
// A Registry holds locally implemented functions and any number of
// attached Executors (for example MCP servers from the mcp subpackage),
// dispatches calls by tool name, and exports the merged definitions as
// []api.Tool for request construction.
package tools
