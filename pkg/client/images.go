package client

import (
	"context"
	"net/http"

	"github.com/anfrage-dev/anfrage/pkg/api"
)

// ImagesService wraps the /images/generations endpoint.
type ImagesService struct {
	c *Client
}

// Generate creates images from a text prompt. An empty model defaults to
// gpt-image-1.
func (s *ImagesService) Generate(ctx context.Context, req *api.ImageRequest) (*api.ImageResponse, error) {
	gen := *req
	if gen.Model == "" {
		gen.Model = api.ModelGPTImage1
	}

	var out api.ImageResponse
	if err := s.c.do(ctx, http.MethodPost, "/images/generations", &gen, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
