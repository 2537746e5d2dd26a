package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/classify"
	"github.com/anfrage-dev/anfrage/pkg/recovery"
)

// textRequest returns a minimal valid creation request.
func textRequest() *api.Request {
	return &api.Request{
		Model: api.ModelGPT4o,
		Input: api.TextInput("hello"),
	}
}

// completedResponse writes a completed response with one assistant
// message saying "hi there".
func completedResponse(w http.ResponseWriter, id string) {
	fmt.Fprintf(w, `{
		"id": %q,
		"object": "response",
		"created_at": 1700000000,
		"status": "completed",
		"model": "gpt-4o",
		"output": [{
			"id": "msg_1",
			"type": "message",
			"status": "completed",
			"role": "assistant",
			"content": [{"type": "output_text", "text": "hi there"}]
		}],
		"usage": {"input_tokens": 3, "output_tokens": 5, "total_tokens": 8}
	}`, id)
}

func TestResponsesCreate(t *testing.T) {
	var gotMethod, gotPath string
	var gotReq api.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		completedResponse(w, "resp_create1")
	})

	resp, err := c.Responses.Create(context.Background(), textRequest())
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/responses" {
		t.Errorf("request = %s %s, want POST /responses", gotMethod, gotPath)
	}
	if gotReq.Model != api.ModelGPT4o {
		t.Errorf("sent model = %q, want gpt-4o", gotReq.Model)
	}
	if gotReq.Input.Text != "hello" {
		t.Errorf("sent input = %q, want hello", gotReq.Input.Text)
	}
	if resp.ID != "resp_create1" {
		t.Errorf("ID = %q, want resp_create1", resp.ID)
	}
	if resp.Status != api.ResponseStatusCompleted {
		t.Errorf("Status = %q, want completed", resp.Status)
	}
	if got := resp.OutputText(); got != "hi there" {
		t.Errorf("OutputText() = %q, want %q", got, "hi there")
	}
}

func TestResponsesCreate_PreflightValidation(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		completedResponse(w, "resp_x")
	})

	tests := []struct {
		name    string
		req     *api.Request
		wantMsg string
	}{
		{"missing model", &api.Request{Input: api.TextInput("hi")}, "model is required"},
		{"missing input", &api.Request{Model: api.ModelGPT4o}, "input or previous_response_id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Responses.Create(context.Background(), tt.req)
			var cerr *classify.Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *classify.Error, got %T: %v", err, err)
			}
			if cerr.Class != classify.NonRecoverable {
				t.Errorf("Class = %q, want %q", cerr.Class, classify.NonRecoverable)
			}
			if !strings.Contains(cerr.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want substring %q", cerr.Message, tt.wantMsg)
			}
		})
	}
	if calls.Load() != 0 {
		t.Errorf("server saw %d calls, want 0 for invalid requests", calls.Load())
	}
}

func TestResponsesCreate_RejectsStreamFlag(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	})

	req := textRequest()
	req.Stream = true
	_, err := c.Responses.Create(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "Responses.Stream") {
		t.Errorf("expected stream redirect error, got %v", err)
	}
}

func TestResponsesGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/responses/resp_lookup" {
			t.Errorf("request = %s %s, want GET /responses/resp_lookup", r.Method, r.URL.Path)
		}
		completedResponse(w, "resp_lookup")
	})

	resp, err := c.Responses.Get(context.Background(), "resp_lookup")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if resp.ID != "resp_lookup" {
		t.Errorf("ID = %q, want resp_lookup", resp.ID)
	}
}

func TestResponsesCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/responses/resp_bg/cancel" {
			t.Errorf("request = %s %s, want POST /responses/resp_bg/cancel", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"id": "resp_bg", "object": "response", "status": "cancelled", "model": "gpt-4o"}`)
	})

	resp, err := c.Responses.Cancel(context.Background(), "resp_bg")
	if err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	if resp.Status != api.ResponseStatusCancelled {
		t.Errorf("Status = %q, want cancelled", resp.Status)
	}
}

func TestResponsesDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/responses/resp_old" {
			t.Errorf("request = %s %s, want DELETE /responses/resp_old", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"id": "resp_old", "object": "response", "deleted": true}`)
	})

	del, err := c.Responses.Delete(context.Background(), "resp_old")
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if !del.Deleted || del.ID != "resp_old" {
		t.Errorf("Delete() = %+v, want deleted resp_old", del)
	}
}

func TestResponsesWait(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			fmt.Fprint(w, `{"id": "resp_bg", "object": "response", "status": "in_progress", "model": "gpt-4o"}`)
			return
		}
		completedResponse(w, "resp_bg")
	})

	resp, err := c.Responses.Wait(context.Background(), "resp_bg", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	if resp.Status != api.ResponseStatusCompleted {
		t.Errorf("Status = %q, want completed", resp.Status)
	}
	if calls.Load() != 3 {
		t.Errorf("polled %d times, want 3", calls.Load())
	}
}

func TestResponsesWait_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "resp_bg", "object": "response", "status": "in_progress", "model": "gpt-4o"}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Responses.Wait(ctx, "resp_bg", 10*time.Millisecond)
	var cerr *classify.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *classify.Error, got %T: %v", err, err)
	}
}

func TestCreateWithRecovery_RecoversAfterGatewayError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error":{"type":"server_error","message":"bad gateway"}}`)
			return
		}
		completedResponse(w, "resp_retry")
	}, WithRecovery(recovery.DefaultPolicy()))

	resp, outcome, err := c.Responses.CreateWithRecovery(context.Background(), textRequest())
	if err != nil {
		t.Fatalf("CreateWithRecovery() failed: %v", err)
	}
	if resp.ID != "resp_retry" {
		t.Errorf("ID = %q, want resp_retry", resp.ID)
	}
	if !outcome.Attempted || !outcome.Successful || outcome.RetryCount != 1 {
		t.Errorf("outcome = %+v, want attempted successful retry_count=1", outcome)
	}
	if !strings.Contains(outcome.OriginalError, string(classify.RetryableServer)) {
		t.Errorf("OriginalError = %q, want class %q", outcome.OriginalError, classify.RetryableServer)
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestCreateWithRecovery_PrunesExpiredContainer(t *testing.T) {
	containerID := api.NewContainerID()
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req api.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"Container is expired. Create a new one."}}`)
			return
		}

		// The retry must ask for a fresh container.
		if len(req.Tools) != 1 {
			t.Fatalf("retry has %d tools, want 1", len(req.Tools))
		}
		if req.Tools[0].Container.Pinned() {
			t.Errorf("retry still pins container %q", req.Tools[0].Container.ID)
		}
		completedResponse(w, "resp_healed")
	}, WithRecovery(recovery.DefaultPolicy()))

	req := textRequest()
	req.Tools = []api.Tool{api.CodeInterpreterTool(api.ContainerID(containerID))}

	resp, outcome, err := c.Responses.CreateWithRecovery(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateWithRecovery() failed: %v", err)
	}
	if resp.ID != "resp_healed" {
		t.Errorf("ID = %q, want resp_healed", resp.ID)
	}
	if !outcome.Attempted || !outcome.Successful || outcome.RetryCount != 1 {
		t.Errorf("outcome = %+v, want attempted successful retry_count=1", outcome)
	}

	// The caller's request is never mutated by recovery.
	if !req.Tools[0].Container.Pinned() {
		t.Error("original request lost its container pin")
	}
}

func TestCreate_NoRetryUnderZeroPolicy(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"type":"server_error","message":"bad gateway"}}`)
	})

	_, err := c.Responses.Create(context.Background(), textRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	var maxErr *recovery.MaxRetriesError
	if errors.As(err, &maxErr) {
		t.Errorf("zero policy must not wrap MaxRetriesError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1", calls.Load())
	}
}

func TestCreate_MaxRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"type":"server_error","message":"still down"}}`)
	}, WithRecovery(recovery.DefaultPolicy()))

	_, err := c.Responses.Create(context.Background(), textRequest())
	var maxErr *recovery.MaxRetriesError
	if !errors.As(err, &maxErr) {
		t.Fatalf("expected MaxRetriesError, got %T: %v", err, err)
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestCreate_RecoveryCallbackInvoked(t *testing.T) {
	var attempts []int
	var classes []classify.Class
	cb := func(err *classify.Error, attempt int) {
		attempts = append(attempts, attempt)
		classes = append(classes, err.Class)
	}

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"type":"server_error","message":"overloaded"}}`)
			return
		}
		completedResponse(w, "resp_cb")
	}, WithRecovery(recovery.DefaultPolicy()), WithRecoveryCallback(cb))

	if _, err := c.Responses.Create(context.Background(), textRequest()); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(attempts) != 1 || attempts[0] != 1 {
		t.Errorf("callback attempts = %v, want [1]", attempts)
	}
	if len(classes) != 1 || classes[0] != classify.RetryableServer {
		t.Errorf("callback classes = %v, want [retryable_server]", classes)
	}
}

func TestPruneExpiredContext(t *testing.T) {
	c, err := New("sk-test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	req := textRequest()
	req.Tools = []api.Tool{
		api.CodeInterpreterTool(api.ContainerID(api.NewContainerID())),
		api.WebSearchTool(),
	}

	pruned := c.Responses.PruneExpiredContext(req)
	if pruned.Tools[0].Container.Pinned() {
		t.Error("pruned request still pins a container")
	}
	if pruned.Tools[1].Type != api.ToolTypeWebSearch {
		t.Error("unrelated tool was touched")
	}
	if !req.Tools[0].Container.Pinned() {
		t.Error("original request was mutated")
	}
}
