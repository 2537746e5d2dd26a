package api

// StreamEventType identifies the type of a streaming event.
type StreamEventType string

// Delta events convey incremental content while a response is generated.
const (
	EventOutputItemAdded       StreamEventType = "response.output_item.added"
	EventContentPartAdded      StreamEventType = "response.content_part.added"
	EventOutputTextDelta       StreamEventType = "response.output_text.delta"
	EventOutputTextDone        StreamEventType = "response.output_text.done"
	EventFunctionCallArgsDelta StreamEventType = "response.function_call_arguments.delta"
	EventFunctionCallArgsDone  StreamEventType = "response.function_call_arguments.done"
	EventContentPartDone       StreamEventType = "response.content_part.done"
	EventOutputItemDone        StreamEventType = "response.output_item.done"
)

// Lifecycle events track the state of the response itself.
const (
	EventResponseCreated    StreamEventType = "response.created"
	EventResponseQueued     StreamEventType = "response.queued"
	EventResponseInProgress StreamEventType = "response.in_progress"
	EventResponseCompleted  StreamEventType = "response.completed"
	EventResponseFailed     StreamEventType = "response.failed"
	EventResponseCancelled  StreamEventType = "response.cancelled"
	EventError              StreamEventType = "error"
)

// StreamEvent represents a single server-sent event in a streaming response.
type StreamEvent struct {
	Type           StreamEventType `json:"type"`
	SequenceNumber int             `json:"sequence_number,omitempty"`
	Response       *Response       `json:"response,omitempty"`
	Item           *Item           `json:"item,omitempty"`
	Part           *ContentPart    `json:"part,omitempty"`
	Delta          string          `json:"delta,omitempty"`
	ItemID         string          `json:"item_id,omitempty"`
	OutputIndex    int             `json:"output_index,omitempty"`
	ContentIndex   int             `json:"content_index,omitempty"`
	Error          *APIError       `json:"error,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e *StreamEvent) Terminal() bool {
	switch e.Type {
	case EventResponseCompleted, EventResponseFailed, EventResponseCancelled, EventError:
		return true
	}
	return false
}
