package client

import (
	"context"
	"net/http"

	"github.com/anfrage-dev/anfrage/pkg/api"
)

// VectorStoresService wraps the /vector_stores endpoints backing the
// file_search tool.
type VectorStoresService struct {
	c *Client
}

// Create makes a new vector store, optionally seeded with uploaded
// files.
func (s *VectorStoresService) Create(ctx context.Context, req *api.CreateVectorStoreRequest) (*api.VectorStore, error) {
	var out api.VectorStore
	if err := s.c.do(ctx, http.MethodPost, "/vector_stores", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get retrieves a vector store by id.
func (s *VectorStoresService) Get(ctx context.Context, id string) (*api.VectorStore, error) {
	var out api.VectorStore
	if err := s.c.do(ctx, http.MethodGet, "/vector_stores/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns a page of vector stores.
func (s *VectorStoresService) List(ctx context.Context, opts *ListOptions) (*api.List[api.VectorStore], error) {
	var out api.List[api.VectorStore]
	if err := s.c.do(ctx, http.MethodGet, "/vector_stores"+opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a vector store. Files attached to it are not deleted.
func (s *VectorStoresService) Delete(ctx context.Context, id string) (*api.Deleted, error) {
	var out api.Deleted
	if err := s.c.do(ctx, http.MethodDelete, "/vector_stores/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddFile attaches an uploaded file to a vector store for indexing.
func (s *VectorStoresService) AddFile(ctx context.Context, storeID, fileID string) (*api.VectorStoreFile, error) {
	in := struct {
		FileID string `json:"file_id"`
	}{fileID}

	var out api.VectorStoreFile
	if err := s.c.do(ctx, http.MethodPost, "/vector_stores/"+storeID+"/files", &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFile detaches a file from a vector store.
func (s *VectorStoresService) DeleteFile(ctx context.Context, storeID, fileID string) (*api.Deleted, error) {
	var out api.Deleted
	if err := s.c.do(ctx, http.MethodDelete, "/vector_stores/"+storeID+"/files/"+fileID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a semantic query against a vector store. maxResults <= 0
// leaves the result count to the server.
func (s *VectorStoresService) Search(ctx context.Context, storeID, query string, maxResults int) (*api.VectorStoreSearchResponse, error) {
	in := api.VectorStoreSearchRequest{Query: query}
	if maxResults > 0 {
		in.MaxNumResults = maxResults
	}

	var out api.VectorStoreSearchResponse
	if err := s.c.do(ctx, http.MethodPost, "/vector_stores/"+storeID+"/search", &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
