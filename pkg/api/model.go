package api

// Model identifies the model that serves a request. Known values are
// provided as constants; any other string is passed through unchanged, so
// newly released models work without a library update.
type Model string

const (
	ModelGPT4o       Model = "gpt-4o"
	ModelGPT4oMini   Model = "gpt-4o-mini"
	ModelGPT41       Model = "gpt-4.1"
	ModelGPT41Mini   Model = "gpt-4.1-mini"
	ModelGPT41Nano   Model = "gpt-4.1-nano"
	ModelO3          Model = "o3"
	ModelO4Mini      Model = "o4-mini"
	ModelCodexMini   Model = "codex-mini-latest"
	ModelComputerUse Model = "computer-use-preview"
	ModelGPTImage1   Model = "gpt-image-1"
)

var knownModels = map[Model]bool{
	ModelGPT4o:       true,
	ModelGPT4oMini:   true,
	ModelGPT41:       true,
	ModelGPT41Mini:   true,
	ModelGPT41Nano:   true,
	ModelO3:          true,
	ModelO4Mini:      true,
	ModelCodexMini:   true,
	ModelComputerUse: true,
	ModelGPTImage1:   true,
}

// Known reports whether the model is one of the known constants.
func (m Model) Known() bool {
	return knownModels[m]
}

// String returns the wire name of the model.
func (m Model) String() string {
	return string(m)
}

// Include selects optional data to embed in the response.
type Include string

const (
	IncludeFileSearchResults      Include = "file_search_call.results"
	IncludeInputImageURL          Include = "message.input_image.image_url"
	IncludeOutputTextLogprobs     Include = "message.output_text.logprobs"
	IncludeReasoningEncrypted     Include = "reasoning.encrypted_content"
	IncludeCodeInterpreterOutputs Include = "code_interpreter_call.outputs"
)
