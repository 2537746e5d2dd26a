package client

import (
	"context"
	"net/http"
	"time"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/classify"
	"github.com/anfrage-dev/anfrage/pkg/recovery"
)

// ResponsesService wraps the /responses endpoints. Creation runs through
// the client's recovery orchestrator, so transient failures and expired
// execution containers are handled according to the configured policy.
type ResponsesService struct {
	c *Client
}

// Create sends a request and returns the response. Recovery happens
// transparently under the client's policy; use CreateWithRecovery to
// inspect what happened.
func (s *ResponsesService) Create(ctx context.Context, req *api.Request) (*api.Response, error) {
	return s.c.recovery.Execute(ctx, req, s.create)
}

// CreateWithRecovery is Create plus the recovery outcome: whether retries
// ran, how many, and whether they rescued the call.
func (s *ResponsesService) CreateWithRecovery(ctx context.Context, req *api.Request) (*api.Response, recovery.Outcome, error) {
	return s.c.recovery.ExecuteWithOutcome(ctx, req, s.create)
}

// create is the single-attempt POST /responses the orchestrator wraps.
func (s *ResponsesService) create(ctx context.Context, req *api.Request) (*api.Response, error) {
	if req.Stream {
		return nil, invalidRequest(api.NewInvalidRequestError("stream", "use Responses.Stream for streaming requests"))
	}
	if apiErr := api.ValidateRequest(req); apiErr != nil {
		return nil, invalidRequest(apiErr)
	}

	var out api.Response
	if err := s.c.do(ctx, http.MethodPost, "/responses", req, &out); err != nil {
		return nil, err
	}
	s.c.recordUsage(out.Model, out.Usage)
	return &out, nil
}

// Get retrieves a response by id.
func (s *ResponsesService) Get(ctx context.Context, id string) (*api.Response, error) {
	var out api.Response
	if err := s.c.do(ctx, http.MethodGet, "/responses/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel stops a queued or in-progress background response and returns
// its updated state.
func (s *ResponsesService) Cancel(ctx context.Context, id string) (*api.Response, error) {
	var out api.Response
	if err := s.c.do(ctx, http.MethodPost, "/responses/"+id+"/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a stored response.
func (s *ResponsesService) Delete(ctx context.Context, id string) (*api.Deleted, error) {
	var out api.Deleted
	if err := s.c.do(ctx, http.MethodDelete, "/responses/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wait polls a background response until it reaches a terminal status.
// A non-positive interval defaults to two seconds.
func (s *ResponsesService) Wait(ctx context.Context, id string, interval time.Duration) (*api.Response, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		resp, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if resp.Status.Terminal() {
			return resp, nil
		}
		select {
		case <-ctx.Done():
			return nil, classify.FromTransport(ctx.Err())
		case <-ticker.C:
		}
	}
}

// PruneExpiredContext returns a copy of req with pinned code interpreter
// containers reset to auto-provision. This is the manual counterpart of
// the orchestrator's automatic pruning, for applications running the
// conservative policy.
func (s *ResponsesService) PruneExpiredContext(req *api.Request) *api.Request {
	return recovery.PruneRequest(req)
}

// invalidRequest classifies a pre-flight validation failure the same way
// a server-side 400 would be.
func invalidRequest(apiErr *api.APIError) *classify.Error {
	return classify.FromAPIError(http.StatusBadRequest, apiErr, "", nil)
}
