// Package api defines the wire types for the hosted Responses API.
//
// This package provides the data types a client needs to talk to the
// responses family of endpoints: Request/Response, conversation Items,
// tool definitions (including execution container configuration),
// streaming events, the structured error envelope, ID validation, and
// request pre-flight validation.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. All types produce JSON compatible with the OpenAI
// Responses API wire format.
//
// Core types:
//   - [Request]: body of a create-response call
//   - [Response]: the response object returned by the API
//   - [Item]: polymorphic unit of conversation (message, function_call, ...)
//   - [Tool]: tool made available to the model, with constructors per kind
//   - [Container]: execution container reference (explicit ID or auto)
//   - [StreamEvent]: server-sent event for streaming responses
//   - [APIError]: structured error with type, code, param, and message
//
// Union fields (Input, Container, ToolChoice, message content) accept both
// wire encodings the API produces and always re-serialize in the canonical
// form the API expects.
package api
