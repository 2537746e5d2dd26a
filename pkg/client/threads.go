package client

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/debug"
	"github.com/anfrage-dev/anfrage/pkg/store"
)

// Thread drives a multi-turn conversation over previous_response_id
// linkage. Each Ask links to the thread's current head and advances it;
// when the client has a conversation store, turns are recorded there so
// History can replay the chain without refetching every response.
//
// A Thread is not safe for concurrent use.
type Thread struct {
	// ID names the thread in the conversation store.
	ID string
	// Model used for each turn, the client default when empty.
	Model api.Model
	// Instructions are sent with every turn.
	Instructions string

	c      *Client
	head   string
	loaded bool
}

// NewThread returns a conversation thread. An empty id gets a generated
// one; passing the id of a stored thread resumes it at its recorded
// head.
func (c *Client) NewThread(id string) *Thread {
	if id == "" {
		id = api.NewThreadID()
	}
	return &Thread{ID: id, c: c}
}

// Head returns the response id of the thread's most recent turn, empty
// before the first Ask.
func (t *Thread) Head() string {
	return t.head
}

// Ask sends the next user turn and returns the model's response. The
// request goes through the client's recovery policy like any other
// response creation.
func (t *Thread) Ask(ctx context.Context, text string) (*api.Response, error) {
	if err := t.loadHead(ctx); err != nil {
		return nil, err
	}

	req := &api.Request{
		Model:              t.model(),
		Input:              api.TextInput(text),
		Instructions:       t.Instructions,
		PreviousResponseID: t.head,
	}

	resp, err := t.c.Responses.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	parent := t.head
	t.head = resp.ID
	t.record(ctx, resp, parent)
	return resp, nil
}

// History returns the thread's responses oldest first. Stored turns are
// served from the conversation store; gaps are filled via Responses.Get.
func (t *Thread) History(ctx context.Context) ([]*api.Response, error) {
	if err := t.loadHead(ctx); err != nil {
		return nil, err
	}

	var chain []*api.Response
	for id := t.head; id != ""; {
		resp, parent, err := t.lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, resp)
		id = parent
	}
	slices.Reverse(chain)
	return chain, nil
}

// loadHead resumes the thread from the store on first use.
func (t *Thread) loadHead(ctx context.Context) error {
	if t.loaded {
		return nil
	}
	t.loaded = true
	if t.c.store == nil {
		return nil
	}

	head, err := t.c.store.Head(ctx, t.ID)
	switch {
	case err == nil:
		t.head = head
		debug.Log("threads", "resumed thread", "thread", t.ID, "head", head)
	case errors.Is(err, store.ErrNotFound):
		// new thread
	default:
		return err
	}
	return nil
}

// record persists a completed turn. Store failures are logged, not
// returned: the response already succeeded and the caller has it.
func (t *Thread) record(ctx context.Context, resp *api.Response, parent string) {
	if t.c.store == nil {
		return
	}

	turn := &store.Turn{
		ThreadID:   t.ID,
		ResponseID: resp.ID,
		ParentID:   parent,
		Model:      string(resp.Model),
		Response:   resp,
	}
	if resp.CreatedAt > 0 {
		turn.CreatedAt = time.Unix(resp.CreatedAt, 0)
	}

	if err := t.c.store.SaveTurn(ctx, turn); err != nil && !errors.Is(err, store.ErrConflict) {
		slog.Warn("failed to record conversation turn",
			"thread", t.ID, "response", resp.ID, "error", err)
	}
}

// lookup resolves one chain link: the response payload and its parent
// id.
func (t *Thread) lookup(ctx context.Context, id string) (*api.Response, string, error) {
	if t.c.store != nil {
		turn, err := t.c.store.Turn(ctx, id)
		switch {
		case err == nil && turn.Response != nil:
			return turn.Response, turn.ParentID, nil
		case err == nil:
			// Linkage survived payload eviction; refetch the body but
			// trust the stored parent pointer.
			resp, gerr := t.c.Responses.Get(ctx, id)
			if gerr != nil {
				return nil, "", gerr
			}
			return resp, turn.ParentID, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, "", err
		}
	}

	resp, err := t.c.Responses.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return resp, resp.PreviousResponseID, nil
}

func (t *Thread) model() api.Model {
	if t.Model != "" {
		return t.Model
	}
	return t.c.defaultModel
}
