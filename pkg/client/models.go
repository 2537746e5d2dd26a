package client

import (
	"context"
	"net/http"

	"github.com/anfrage-dev/anfrage/pkg/api"
)

// ModelsService wraps the /models catalog endpoints.
type ModelsService struct {
	c *Client
}

// List returns the models available to the account.
func (s *ModelsService) List(ctx context.Context) (*api.List[api.ModelInfo], error) {
	var out api.List[api.ModelInfo]
	if err := s.c.do(ctx, http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get retrieves one model catalog entry.
func (s *ModelsService) Get(ctx context.Context, id string) (*api.ModelInfo, error) {
	var out api.ModelInfo
	if err := s.c.do(ctx, http.MethodGet, "/models/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
