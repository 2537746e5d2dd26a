package api

import (
	"encoding/json"
	"fmt"
)

// Tool type discriminators.
const (
	ToolTypeFunction        = "function"
	ToolTypeWebSearch       = "web_search_preview"
	ToolTypeFileSearch      = "file_search"
	ToolTypeCodeInterpreter = "code_interpreter"
	ToolTypeImageGeneration = "image_generation"
	ToolTypeMCP             = "mcp"
	ToolTypeComputerUse     = "computer_use_preview"
)

// Tool describes a tool made available to the model. The Type field selects
// the kind; the remaining fields apply only to specific kinds and are
// omitted from the wire format when unset. Use the package-level
// constructors rather than building the struct by hand.
type Tool struct {
	Type string `json:"type"`

	// function
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      *bool           `json:"strict,omitempty"`

	// code_interpreter
	Container *Container `json:"container,omitempty"`

	// file_search
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
	MaxNumResults  *int     `json:"max_num_results,omitempty"`

	// image_generation
	PartialImages *int `json:"partial_images,omitempty"`

	// mcp
	ServerLabel string            `json:"server_label,omitempty"`
	ServerURL   string            `json:"server_url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`

	// computer_use_preview
	DisplayWidth  *int   `json:"display_width,omitempty"`
	DisplayHeight *int   `json:"display_height,omitempty"`
	Environment   string `json:"environment,omitempty"`
}

// FunctionTool creates a function tool the model can call by name. The
// parameters value is a JSON Schema object describing the arguments.
func FunctionTool(name, description string, parameters json.RawMessage) Tool {
	return Tool{
		Type:        ToolTypeFunction,
		Name:        name,
		Description: description,
		Parameters:  parameters,
	}
}

// WebSearchTool creates a web search tool.
func WebSearchTool() Tool {
	return Tool{Type: ToolTypeWebSearch}
}

// FileSearchTool creates a file search tool over the given vector stores.
func FileSearchTool(vectorStoreIDs ...string) Tool {
	return Tool{
		Type:           ToolTypeFileSearch,
		VectorStoreIDs: vectorStoreIDs,
	}
}

// CodeInterpreterTool creates a code interpreter tool bound to the given
// execution container. Pass AutoContainer() to let the API provision one.
func CodeInterpreterTool(container *Container) Tool {
	return Tool{
		Type:      ToolTypeCodeInterpreter,
		Container: container,
	}
}

// ImageGenerationTool creates an image generation tool.
func ImageGenerationTool() Tool {
	return Tool{Type: ToolTypeImageGeneration}
}

// MCPTool creates a remote MCP server tool the API connects to directly.
func MCPTool(label, url string, headers map[string]string) Tool {
	return Tool{
		Type:        ToolTypeMCP,
		ServerLabel: label,
		ServerURL:   url,
		Headers:     headers,
	}
}

// ComputerUseTool creates a computer use tool with the given display size
// and environment ("browser", "mac", "windows", "ubuntu").
func ComputerUseTool(width, height int, environment string) Tool {
	return Tool{
		Type:          ToolTypeComputerUse,
		DisplayWidth:  &width,
		DisplayHeight: &height,
		Environment:   environment,
	}
}

// clone returns a deep copy of the tool.
func (t *Tool) clone() *Tool {
	c := *t
	if t.Parameters != nil {
		c.Parameters = make(json.RawMessage, len(t.Parameters))
		copy(c.Parameters, t.Parameters)
	}
	c.Strict = clonePtr(t.Strict)
	c.Container = clonePtr(t.Container)
	if t.VectorStoreIDs != nil {
		c.VectorStoreIDs = make([]string, len(t.VectorStoreIDs))
		copy(c.VectorStoreIDs, t.VectorStoreIDs)
	}
	c.MaxNumResults = clonePtr(t.MaxNumResults)
	c.PartialImages = clonePtr(t.PartialImages)
	if t.Headers != nil {
		c.Headers = make(map[string]string, len(t.Headers))
		for k, v := range t.Headers {
			c.Headers[k] = v
		}
	}
	c.DisplayWidth = clonePtr(t.DisplayWidth)
	c.DisplayHeight = clonePtr(t.DisplayHeight)
	return &c
}

// ---------------------------------------------------------------------------
// Container union
// ---------------------------------------------------------------------------

// Container references the execution container backing a code interpreter
// tool. It is either an explicit container ID (reusing a live container) or
// a provisioning mode telling the API to supply one.
type Container struct {
	ID   string `json:"-"` // explicit container id, e.g. "cntr_..."
	Mode string `json:"-"` // "auto" or "default" when no explicit id
}

// AutoContainer returns a container config that auto-provisions a fresh
// execution container.
func AutoContainer() *Container {
	return &Container{Mode: "auto"}
}

// DefaultContainer returns a container config that uses the API's default
// container type.
func DefaultContainer() *Container {
	return &Container{Mode: "default"}
}

// ContainerID returns a container config pinned to an existing container.
func ContainerID(id string) *Container {
	return &Container{ID: id}
}

// Pinned reports whether the container references an explicit container id,
// which may have expired server-side.
func (c *Container) Pinned() bool {
	return c != nil && c.ID != ""
}

// MarshalJSON serializes the container as either a bare ID string or a
// {"type": mode} object.
func (c Container) MarshalJSON() ([]byte, error) {
	if c.ID != "" {
		return json.Marshal(c.ID)
	}
	mode := c.Mode
	if mode == "" {
		mode = "auto"
	}
	return json.Marshal(struct {
		Type string `json:"type"`
	}{Type: mode})
}

// UnmarshalJSON deserializes the container from either encoding.
func (c *Container) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.ID = s
		c.Mode = ""
		return nil
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("container must be a string id or an object: %w", err)
	}
	c.ID = ""
	c.Mode = obj.Type
	return nil
}
