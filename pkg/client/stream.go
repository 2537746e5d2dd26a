package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/classify"
	"github.com/anfrage-dev/anfrage/pkg/debug"
)

// streamBuffer sizes the event channel; a consumer that falls behind by
// this many events backpressures the SSE read.
const streamBuffer = 32

// maxEventSize bounds a single SSE line. Snapshot events embed the whole
// response, so this is well above the scanner default.
const maxEventSize = 1 << 20

// StreamEvent is one event from a streaming response. Err is set instead
// of the embedded event when the stream failed mid-flight; the channel
// closes right after.
type StreamEvent struct {
	api.StreamEvent
	Err *classify.Error
}

// Stream sends a request with stream enabled and returns a channel of
// events. The channel is closed after a terminal event ([DONE], a
// response.completed/failed/cancelled snapshot, or an error event), when
// the stream fails, or when ctx is cancelled. The caller's request is
// not modified.
//
// The initial HTTP exchange is classified the same way Create classifies
// failures; once the stream is open, transport failures arrive as the
// final event's Err field.
func (s *ResponsesService) Stream(ctx context.Context, req *api.Request) (<-chan StreamEvent, error) {
	streamReq := req.Clone()
	streamReq.Stream = true
	if apiErr := api.ValidateRequest(streamReq); apiErr != nil {
		return nil, invalidRequest(apiErr)
	}

	data, err := json.Marshal(streamReq)
	if err != nil {
		return nil, classify.NewEncodeError(err)
	}

	httpReq, err := s.c.newRequest(ctx, http.MethodPost, "/responses", bytes.NewReader(data))
	if err != nil {
		return nil, &classify.Error{Class: classify.NonRecoverable, Message: "building request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	debug.Log("streaming", "opening stream", "model", streamReq.Model)

	resp, err := s.c.streamClient.Do(httpReq)
	if err != nil {
		return nil, classify.FromTransport(err)
	}
	if cerr := classify.Check(resp); cerr != nil {
		resp.Body.Close()
		return nil, cerr
	}

	ch := make(chan StreamEvent, streamBuffer)
	go s.consume(ctx, resp.Body, ch)
	return ch, nil
}

// consume reads SSE lines from the response body, decodes each data
// payload into a stream event, and forwards it. Returns when the stream
// reaches a terminal event, the body errors out, or ctx is cancelled.
func (s *ResponsesService) consume(ctx context.Context, body io.ReadCloser, ch chan<- StreamEvent) {
	defer close(ch)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	for scanner.Scan() {
		line := scanner.Text()

		// "event:" lines repeat the type carried in the payload and
		// ":" lines are keepalive comments; only "data:" matters.
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return
		}

		var evt api.StreamEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			debug.Log("streaming", "skipping undecodable event", "error", err)
			continue
		}

		if evt.Type == api.EventResponseCompleted && evt.Response != nil {
			s.c.recordUsage(evt.Response.Model, evt.Response.Usage)
		}

		select {
		case ch <- StreamEvent{StreamEvent: evt}:
		case <-ctx.Done():
			return
		}
		if evt.Terminal() {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		cerr := classify.FromTransport(err)
		select {
		case ch <- StreamEvent{Err: cerr}:
		case <-ctx.Done():
		}
	}
}
