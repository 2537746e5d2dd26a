package api

import "fmt"

// ValidateRequest checks a Request for problems the API would reject,
// catching them before a network round trip. It returns an *APIError
// describing the first failure, or nil if the request is valid.
func ValidateRequest(req *Request) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}

	if req.Input.IsZero() && req.PreviousResponseID == "" {
		return NewInvalidRequestError("input", "input or previous_response_id is required")
	}

	if req.MaxOutputTokens != nil && *req.MaxOutputTokens <= 0 {
		return NewInvalidRequestError("max_output_tokens", "max_output_tokens must be positive")
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.TopP != nil {
		if *req.TopP < 0.0 || *req.TopP > 1.0 {
			return NewInvalidRequestError("top_p", "top_p must be between 0.0 and 1.0")
		}
	}

	if req.PreviousResponseID != "" && !ValidateResponseID(req.PreviousResponseID) {
		return NewInvalidRequestError("previous_response_id",
			fmt.Sprintf("%q is not a response id", req.PreviousResponseID))
	}

	for i, tool := range req.Tools {
		if tool.Type == "" {
			return NewInvalidRequestError("tools", fmt.Sprintf("tools[%d] has no type", i))
		}
		if tool.Type == ToolTypeFunction && tool.Name == "" {
			return NewInvalidRequestError("tools", fmt.Sprintf("tools[%d] function has no name", i))
		}
		if tool.Type == ToolTypeMCP && tool.ServerURL == "" {
			return NewInvalidRequestError("tools", fmt.Sprintf("tools[%d] mcp tool has no server_url", i))
		}
	}

	// A forced function selection must reference a tool in the request.
	if req.ToolChoice != nil && req.ToolChoice.Function != nil {
		name := req.ToolChoice.Function.Name
		found := false
		for _, tool := range req.Tools {
			if tool.Name == name {
				found = true
				break
			}
		}
		if !found {
			return NewInvalidRequestError("tool_choice",
				fmt.Sprintf("tool_choice references unknown tool %q", name))
		}
	}

	return nil
}
