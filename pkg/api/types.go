package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Request
// ---------------------------------------------------------------------------

// Request represents the body of a create-response call.
type Request struct {
	Model              Model             `json:"model"`
	Input              Input             `json:"input,omitzero"`
	Instructions       string            `json:"instructions,omitempty"`
	MaxOutputTokens    *int              `json:"max_output_tokens,omitempty"`
	Temperature        *float64          `json:"temperature,omitempty"`
	TopP               *float64          `json:"top_p,omitempty"`
	Stream             bool              `json:"stream,omitempty"`
	Background         bool              `json:"background,omitempty"`
	Store              *bool             `json:"store,omitempty"`
	Tools              []Tool            `json:"tools,omitempty"`
	ToolChoice         *ToolChoice       `json:"tool_choice,omitempty"`
	PreviousResponseID string            `json:"previous_response_id,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	Include            []Include         `json:"include,omitempty"`
	Reasoning          *ReasoningConfig  `json:"reasoning,omitempty"`
	Text               *TextConfig       `json:"text,omitempty"`
	User               string            `json:"user,omitempty"`
}

// Clone returns a deep copy of the request. Slices, maps, and pointer
// fields are duplicated so mutating the copy never affects the original.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r

	if r.Input.Items != nil {
		c.Input.Items = make([]Item, len(r.Input.Items))
		copy(c.Input.Items, r.Input.Items)
	}
	if r.Tools != nil {
		c.Tools = make([]Tool, len(r.Tools))
		for i, t := range r.Tools {
			c.Tools[i] = *t.clone()
		}
	}
	if r.Metadata != nil {
		c.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	if r.Include != nil {
		c.Include = make([]Include, len(r.Include))
		copy(c.Include, r.Include)
	}

	c.MaxOutputTokens = clonePtr(r.MaxOutputTokens)
	c.Temperature = clonePtr(r.Temperature)
	c.TopP = clonePtr(r.TopP)
	c.Store = clonePtr(r.Store)
	c.ToolChoice = clonePtr(r.ToolChoice)
	c.Reasoning = clonePtr(r.Reasoning)
	c.Text = clonePtr(r.Text)

	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ---------------------------------------------------------------------------
// Input union
// ---------------------------------------------------------------------------

// Input is the request input: either a plain text prompt or a list of
// conversation items. Exactly one of Text and Items is set.
type Input struct {
	Text  string
	Items []Item
}

// TextInput creates an Input from a plain text prompt.
func TextInput(text string) Input {
	return Input{Text: text}
}

// ItemsInput creates an Input from conversation items.
func ItemsInput(items ...Item) Input {
	return Input{Items: items}
}

// IsZero reports whether the input is empty, letting the Request omit it.
func (in Input) IsZero() bool {
	return in.Text == "" && in.Items == nil
}

// MarshalJSON serializes Input as either a JSON string or an item array.
func (in Input) MarshalJSON() ([]byte, error) {
	if in.Items != nil {
		return json.Marshal(in.Items)
	}
	return json.Marshal(in.Text)
}

// UnmarshalJSON deserializes Input from either a JSON string or an item array.
func (in *Input) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		in.Text = s
		in.Items = nil
		return nil
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("input must be a string or an item array: %w", err)
	}
	in.Text = ""
	in.Items = items
	return nil
}

// ---------------------------------------------------------------------------
// Conversation items
// ---------------------------------------------------------------------------

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleDeveloper MessageRole = "developer"
)

// ItemType represents the type of an item in a conversation.
type ItemType string

const (
	ItemTypeMessage             ItemType = "message"
	ItemTypeFunctionCall        ItemType = "function_call"
	ItemTypeFunctionCallOutput  ItemType = "function_call_output"
	ItemTypeReasoning           ItemType = "reasoning"
	ItemTypeCodeInterpreterCall ItemType = "code_interpreter_call"
	ItemTypeWebSearchCall       ItemType = "web_search_call"
	ItemTypeFileSearchCall      ItemType = "file_search_call"
	ItemTypeImageGenerationCall ItemType = "image_generation_call"
	ItemTypeMCPCall             ItemType = "mcp_call"
)

// ItemStatus represents the processing status of an item.
type ItemStatus string

const (
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusIncomplete ItemStatus = "incomplete"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
)

// Item represents a single item in a conversation. The wire format is flat:
// type-specific fields sit at the top level next to id/type/status, so a
// single struct with omitempty fields covers every item kind.
type Item struct {
	ID     string     `json:"id,omitempty"`
	Type   ItemType   `json:"type"`
	Status ItemStatus `json:"status,omitempty"`

	// message
	Role    MessageRole `json:"role,omitempty"`
	Content ContentList `json:"content,omitempty"`

	// function_call and function_call_output
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`

	// reasoning
	Summary          string `json:"summary,omitempty"`
	EncryptedContent string `json:"encrypted_content,omitempty"`

	// code_interpreter_call
	Code        string                  `json:"code,omitempty"`
	Outputs     []CodeInterpreterOutput `json:"outputs,omitempty"`
	ContainerID string                  `json:"container_id,omitempty"`
}

// UserMessage creates a message item with the user role.
func UserMessage(text string) Item {
	return Item{
		Type:    ItemTypeMessage,
		Role:    RoleUser,
		Content: ContentList{{Type: ContentTypeInputText, Text: text}},
	}
}

// SystemMessage creates a message item with the system role.
func SystemMessage(text string) Item {
	return Item{
		Type:    ItemTypeMessage,
		Role:    RoleSystem,
		Content: ContentList{{Type: ContentTypeInputText, Text: text}},
	}
}

// AssistantMessage creates a message item with the assistant role, as used
// when replaying prior turns in the input.
func AssistantMessage(text string) Item {
	return Item{
		Type:    ItemTypeMessage,
		Role:    RoleAssistant,
		Content: ContentList{{Type: ContentTypeOutputText, Text: text}},
	}
}

// FunctionCallOutput creates a function_call_output item answering the
// function call identified by callID.
func FunctionCallOutput(callID, output string) Item {
	return Item{
		Type:   ItemTypeFunctionCallOutput,
		CallID: callID,
		Output: output,
	}
}

// TextContent concatenates the text of all content parts in a message item.
func (item Item) TextContent() string {
	var b strings.Builder
	for _, part := range item.Content {
		b.WriteString(part.Text)
	}
	return b.String()
}

// CodeInterpreterOutput represents a single output from code execution.
type CodeInterpreterOutput struct {
	Type   string `json:"type"` // "logs" or "image"
	Logs   string `json:"logs,omitempty"`
	URL    string `json:"url,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

// ---------------------------------------------------------------------------
// Message content
// ---------------------------------------------------------------------------

// Content part types for message items.
const (
	ContentTypeInputText  = "input_text"
	ContentTypeInputImage = "input_image"
	ContentTypeInputFile  = "input_file"
	ContentTypeOutputText = "output_text"
)

// ContentPart represents one part of a message's content.
type ContentPart struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	FileID      string       `json:"file_id,omitempty"`
	Detail      string       `json:"detail,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation represents an annotation on output text, such as a citation.
type Annotation struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	FileID     string `json:"file_id,omitempty"`
	StartIndex int    `json:"start_index,omitempty"`
	EndIndex   int    `json:"end_index,omitempty"`
}

// ContentList is a list of content parts. The API accepts a bare string as
// shorthand for a single input_text part, so unmarshaling handles both.
type ContentList []ContentPart

// UnmarshalJSON deserializes a content list from either a JSON string or an
// array of content parts.
func (cl *ContentList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*cl = ContentList{{Type: ContentTypeInputText, Text: s}}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or a part array: %w", err)
	}
	*cl = parts
	return nil
}

// ---------------------------------------------------------------------------
// ToolChoice union
// ---------------------------------------------------------------------------

// ToolChoice represents a tool selection strategy. It can be a simple string
// value ("auto", "required", "none") or a structured function selection.
type ToolChoice struct {
	String   string              `json:"-"`
	Function *ToolChoiceFunction `json:"-"`
}

// ToolChoiceFunction specifies a particular function to call by name.
type ToolChoiceFunction struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

var (
	// ToolChoiceAuto lets the model decide whether to use a tool.
	ToolChoiceAuto = ToolChoice{String: "auto"}
	// ToolChoiceRequired forces the model to use a tool.
	ToolChoiceRequired = ToolChoice{String: "required"}
	// ToolChoiceNone prevents the model from using any tool.
	ToolChoiceNone = ToolChoice{String: "none"}
)

// NewToolChoiceFunction creates a ToolChoice that selects a specific function by name.
func NewToolChoiceFunction(name string) ToolChoice {
	return ToolChoice{
		Function: &ToolChoiceFunction{
			Type: "function",
			Name: name,
		},
	}
}

// MarshalJSON serializes ToolChoice as either a JSON string or a JSON object.
func (tc ToolChoice) MarshalJSON() ([]byte, error) {
	if tc.String != "" {
		return json.Marshal(tc.String)
	}
	if tc.Function != nil {
		return json.Marshal(tc.Function)
	}
	return nil, fmt.Errorf("ToolChoice has neither string value nor function")
}

// UnmarshalJSON deserializes ToolChoice from either a JSON string or a JSON object.
func (tc *ToolChoice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		tc.String = s
		tc.Function = nil
		return nil
	}

	var f ToolChoiceFunction
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("tool_choice must be a string or object: %w", err)
	}
	tc.String = ""
	tc.Function = &f
	return nil
}

// ---------------------------------------------------------------------------
// Response
// ---------------------------------------------------------------------------

// ResponseStatus represents the overall status of a response.
type ResponseStatus string

const (
	ResponseStatusQueued     ResponseStatus = "queued"
	ResponseStatusInProgress ResponseStatus = "in_progress"
	ResponseStatusCompleted  ResponseStatus = "completed"
	ResponseStatusIncomplete ResponseStatus = "incomplete"
	ResponseStatusFailed     ResponseStatus = "failed"
	ResponseStatusCancelled  ResponseStatus = "cancelled"
)

// Response represents the response object returned by the Responses API.
type Response struct {
	ID                 string             `json:"id"`
	Object             string             `json:"object"`
	CreatedAt          int64              `json:"created_at"`
	Status             ResponseStatus     `json:"status"`
	IncompleteDetails  *IncompleteDetails `json:"incomplete_details,omitempty"`
	Model              Model              `json:"model"`
	PreviousResponseID string             `json:"previous_response_id,omitempty"`
	Instructions       string             `json:"instructions,omitempty"`
	Output             []Item             `json:"output"`
	Error              *APIError          `json:"error,omitempty"`
	Tools              []Tool             `json:"tools,omitempty"`
	Temperature        *float64           `json:"temperature,omitempty"`
	TopP               *float64           `json:"top_p,omitempty"`
	MaxOutputTokens    *int               `json:"max_output_tokens,omitempty"`
	Usage              *Usage             `json:"usage,omitempty"`
	Metadata           map[string]string  `json:"metadata,omitempty"`
	Background         bool               `json:"background,omitempty"`
	Store              bool               `json:"store,omitempty"`
	User               string             `json:"user,omitempty"`
}

// OutputText concatenates the text of all assistant message output parts,
// the common "just give me the answer" accessor.
func (r *Response) OutputText() string {
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != ItemTypeMessage {
			continue
		}
		for _, part := range item.Content {
			if part.Type == ContentTypeOutputText {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

// FunctionCalls returns the function_call items in the output, which the
// application is expected to execute and answer via FunctionCallOutput items.
func (r *Response) FunctionCalls() []Item {
	var calls []Item
	for _, item := range r.Output {
		if item.Type == ItemTypeFunctionCall {
			calls = append(calls, item)
		}
	}
	return calls
}

// ContainerIDs returns the execution container ids referenced by
// code_interpreter_call output items, deduplicated in order of appearance.
func (r *Response) ContainerIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, item := range r.Output {
		if item.Type == ItemTypeCodeInterpreterCall && item.ContainerID != "" && !seen[item.ContainerID] {
			seen[item.ContainerID] = true
			ids = append(ids, item.ContainerID)
		}
	}
	return ids
}

// IncompleteDetails provides information about why a response is incomplete.
type IncompleteDetails struct {
	Reason string `json:"reason,omitempty"`
}

// TextConfig holds text generation configuration.
type TextConfig struct {
	Format *TextFormat `json:"format,omitempty"`
}

// TextFormat specifies the output text format. For json_schema mode, the
// Name, Strict, and Schema fields carry the schema definition.
type TextFormat struct {
	Type   string          `json:"type"`
	Name   string          `json:"name,omitempty"`
	Strict *bool           `json:"strict,omitempty"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// ReasoningConfig holds reasoning configuration for reasoning-capable models.
type ReasoningConfig struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Usage holds token usage information for a response.
type Usage struct {
	InputTokens         int                 `json:"input_tokens"`
	OutputTokens        int                 `json:"output_tokens"`
	TotalTokens         int                 `json:"total_tokens"`
	InputTokensDetails  InputTokensDetails  `json:"input_tokens_details"`
	OutputTokensDetails OutputTokensDetails `json:"output_tokens_details"`
}

// InputTokensDetails provides a breakdown of input token usage.
type InputTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

// OutputTokensDetails provides a breakdown of output token usage.
type OutputTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}
