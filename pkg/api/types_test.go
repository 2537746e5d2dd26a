package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestInputMarshalForms(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		want  string
	}{
		{
			name:  "plain text",
			input: TextInput("hello"),
			want:  `"hello"`,
		},
		{
			name:  "items",
			input: ItemsInput(FunctionCallOutput("call_1", "42")),
			want:  `"type":"function_call_output"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.input)
			if err != nil {
				t.Fatalf("unexpected marshal error: %v", err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("marshaled input = %s, want it to contain %s", data, tt.want)
			}
		})
	}
}

func TestInputUnmarshalForms(t *testing.T) {
	var in Input
	if err := json.Unmarshal([]byte(`"a prompt"`), &in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Text != "a prompt" || in.Items != nil {
		t.Errorf("string input: got Text=%q Items=%v", in.Text, in.Items)
	}

	if err := json.Unmarshal([]byte(`[{"type":"message","role":"user","content":"hi"}]`), &in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Text != "" || len(in.Items) != 1 {
		t.Fatalf("item input: got Text=%q, %d items", in.Text, len(in.Items))
	}
	if got := in.Items[0].TextContent(); got != "hi" {
		t.Errorf("item content = %q, want %q", got, "hi")
	}

	if err := json.Unmarshal([]byte(`42`), &in); err == nil {
		t.Error("expected error for numeric input, got nil")
	}
}

func TestContainerUnion(t *testing.T) {
	tests := []struct {
		name      string
		container *Container
		wantJSON  string
	}{
		{"explicit id", ContainerID("cntr_abc123"), `"cntr_abc123"`},
		{"auto", AutoContainer(), `{"type":"auto"}`},
		{"default", DefaultContainer(), `{"type":"default"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.container)
			if err != nil {
				t.Fatalf("unexpected marshal error: %v", err)
			}
			if string(data) != tt.wantJSON {
				t.Errorf("marshal = %s, want %s", data, tt.wantJSON)
			}

			var back Container
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unexpected unmarshal error: %v", err)
			}
			if back.ID != tt.container.ID || back.Mode != tt.container.Mode {
				t.Errorf("round trip = %+v, want %+v", back, *tt.container)
			}
		})
	}
}

func TestContainerPinned(t *testing.T) {
	if !ContainerID("cntr_x").Pinned() {
		t.Error("explicit id should be pinned")
	}
	if AutoContainer().Pinned() {
		t.Error("auto container should not be pinned")
	}
	var nilContainer *Container
	if nilContainer.Pinned() {
		t.Error("nil container should not be pinned")
	}
}

func TestToolChoiceUnion(t *testing.T) {
	data, err := json.Marshal(ToolChoiceAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"auto"` {
		t.Errorf("auto = %s, want \"auto\"", data)
	}

	fn := NewToolChoiceFunction("get_weather")
	data, err = json.Marshal(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var back ToolChoice
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Function == nil || back.Function.Name != "get_weather" {
		t.Errorf("round trip = %+v, want function get_weather", back)
	}
}

func TestItemFlatWireFormat(t *testing.T) {
	item := Item{
		Type:      ItemTypeFunctionCall,
		CallID:    "call_9",
		Name:      "lookup",
		Arguments: `{"q":"x"}`,
	}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Type-specific fields must sit at the top level, not nested.
	if wire["call_id"] != "call_9" || wire["name"] != "lookup" {
		t.Errorf("wire format not flat: %s", data)
	}
	if _, nested := wire["function_call"]; nested {
		t.Errorf("unexpected nested function_call wrapper: %s", data)
	}
}

func TestContentListStringShorthand(t *testing.T) {
	var item Item
	raw := `{"type":"message","role":"assistant","content":[{"type":"output_text","text":"4"}]}`
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := item.TextContent(); got != "4" {
		t.Errorf("part array content = %q, want %q", got, "4")
	}

	raw = `{"type":"message","role":"user","content":"shorthand"}`
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := item.TextContent(); got != "shorthand" {
		t.Errorf("string content = %q, want %q", got, "shorthand")
	}
}

func TestRequestClone(t *testing.T) {
	temp := 0.7
	req := &Request{
		Model:              ModelGPT4o,
		Input:              TextInput("run the numbers"),
		Temperature:        &temp,
		Tools:              []Tool{CodeInterpreterTool(ContainerID("cntr_live")), WebSearchTool()},
		Metadata:           map[string]string{"k": "v"},
		PreviousResponseID: "resp_abcdefghijklmnopqrstuvwx",
	}

	c := req.Clone()

	// Mutating the clone must not leak into the original.
	c.Tools[0].Container = AutoContainer()
	*c.Temperature = 1.5
	c.Metadata["k"] = "changed"

	if req.Tools[0].Container.ID != "cntr_live" {
		t.Errorf("original container = %+v, want cntr_live", req.Tools[0].Container)
	}
	if *req.Temperature != 0.7 {
		t.Errorf("original temperature = %v, want 0.7", *req.Temperature)
	}
	if req.Metadata["k"] != "v" {
		t.Errorf("original metadata = %v, want k=v", req.Metadata)
	}
	if c.PreviousResponseID != req.PreviousResponseID {
		t.Errorf("clone lost previous_response_id")
	}
}

func TestResponseAccessors(t *testing.T) {
	resp := &Response{
		Output: []Item{
			{Type: ItemTypeCodeInterpreterCall, ContainerID: "cntr_a", Code: "1+1"},
			{Type: ItemTypeMessage, Role: RoleAssistant, Content: ContentList{
				{Type: ContentTypeOutputText, Text: "The answer "},
				{Type: ContentTypeOutputText, Text: "is 2."},
			}},
			{Type: ItemTypeFunctionCall, CallID: "call_1", Name: "notify"},
			{Type: ItemTypeCodeInterpreterCall, ContainerID: "cntr_a"},
		},
	}

	if got, want := resp.OutputText(), "The answer is 2."; got != want {
		t.Errorf("OutputText() = %q, want %q", got, want)
	}
	if calls := resp.FunctionCalls(); len(calls) != 1 || calls[0].Name != "notify" {
		t.Errorf("FunctionCalls() = %+v, want one call named notify", calls)
	}
	if ids := resp.ContainerIDs(); len(ids) != 1 || ids[0] != "cntr_a" {
		t.Errorf("ContainerIDs() = %v, want [cntr_a]", ids)
	}
}

func TestModelPassthrough(t *testing.T) {
	if !ModelGPT4o.Known() {
		t.Error("gpt-4o should be known")
	}
	custom := Model("experimental-123")
	if custom.Known() {
		t.Error("experimental-123 should not be known")
	}
	if custom.String() != "experimental-123" {
		t.Errorf("String() = %q, want experimental-123", custom.String())
	}
}
