package api

// Objects returned by the REST endpoints surrounding /responses: files,
// vector stores, images, and the model catalog. These are plain wire
// shapes; the endpoint wrappers live in pkg/client.

// File purposes accepted by the files endpoint.
const (
	FilePurposeAssistants = "assistants"
	FilePurposeFineTuning = "fine-tuning"
)

// File is an uploaded file object.
type File struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	// Status is "uploaded", "processed", or "error".
	Status        string `json:"status,omitempty"`
	StatusDetails string `json:"status_details,omitempty"`
}

// VectorStore is a server-side document index for file_search.
type VectorStore struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
	// Status is "in_progress", "completed", or "expired".
	Status        string   `json:"status,omitempty"`
	StatusDetails string   `json:"status_details,omitempty"`
	FileIDs       []string `json:"file_ids,omitempty"`
}

// CreateVectorStoreRequest names a new vector store and optionally seeds
// it with already-uploaded files.
type CreateVectorStoreRequest struct {
	Name    string   `json:"name"`
	FileIDs []string `json:"file_ids,omitempty"`
}

// VectorStoreFile is the attachment record linking a file to a vector
// store, returned when a file is added.
type VectorStoreFile struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	CreatedAt     int64  `json:"created_at"`
	VectorStoreID string `json:"vector_store_id"`
	Status        string `json:"status,omitempty"`
	LastError     string `json:"last_error,omitempty"`
}

// VectorStoreSearchRequest is a semantic query against a vector store.
type VectorStoreSearchRequest struct {
	Query         string `json:"query"`
	MaxNumResults int    `json:"max_num_results,omitempty"`
}

// VectorStoreSearchResult is one matching chunk with its relevance score.
type VectorStoreSearchResult struct {
	FileID   string          `json:"file_id,omitempty"`
	Filename string          `json:"filename"`
	Score    float64         `json:"score"`
	Content  []SearchContent `json:"content"`
}

// SearchContent is a piece of matched text within a search result.
type SearchContent struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// VectorStoreSearchResponse is the page of results for one search query.
type VectorStoreSearchResponse struct {
	Object      string                    `json:"object,omitempty"`
	SearchQuery string                    `json:"search_query,omitempty"`
	Data        []VectorStoreSearchResult `json:"data"`
	HasMore     bool                      `json:"has_more,omitempty"`
}

// List is the standard paginated list envelope shared by the files,
// vector stores, and models endpoints.
type List[T any] struct {
	Object     string `json:"object"`
	Data       []T    `json:"data"`
	HasMore    bool   `json:"has_more,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Deleted acknowledges removal of a server-side object.
type Deleted struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// ImageRequest generates images from a text prompt via /images/generations.
type ImageRequest struct {
	// Model defaults to gpt-image-1 when empty.
	Model  Model  `json:"model"`
	Prompt string `json:"prompt"`
	// N is the number of images, 1 to 10.
	N int `json:"n,omitempty"`
	// Size is one of 1024x1024, 1024x1536, or 1536x1024.
	Size string `json:"size,omitempty"`
	// Quality is low, medium, high, or auto.
	Quality string `json:"quality,omitempty"`
	// OutputFormat is png, jpeg, or webp.
	OutputFormat string `json:"output_format,omitempty"`
	// OutputCompression is 0 to 100 for jpeg and webp.
	OutputCompression *int   `json:"output_compression,omitempty"`
	Background        string `json:"background,omitempty"`
	Seed              *int64 `json:"seed,omitempty"`
	User              string `json:"user,omitempty"`
}

// ImageResponse carries the generated images.
type ImageResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}

// ImageData is one generated image, delivered as a URL or inline base64
// depending on the requested response format.
type ImageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ModelInfo is one entry of the model catalog.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
