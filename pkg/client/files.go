package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/classify"
)

// FilesService wraps the /files endpoints.
type FilesService struct {
	c *Client
}

// Upload creates a file from in-memory content via a multipart form. The
// MIME type is derived from the filename extension, falling back to
// sniffing the content.
func (s *FilesService) Upload(ctx context.Context, filename string, content []byte, purpose string) (*api.File, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("purpose", purpose); err != nil {
		return nil, classify.NewEncodeError(err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", detectMIME(filename, content))
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, classify.NewEncodeError(err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, classify.NewEncodeError(err)
	}
	if err := form.Close(); err != nil {
		return nil, classify.NewEncodeError(err)
	}

	req, err := s.c.newRequest(ctx, http.MethodPost, "/files", &buf)
	if err != nil {
		return nil, &classify.Error{Class: classify.NonRecoverable, Message: "building request: " + err.Error()}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.c.httpClient.Do(req)
	if err != nil {
		return nil, classify.FromTransport(err)
	}
	defer resp.Body.Close()

	if cerr := classify.Check(resp); cerr != nil {
		return nil, cerr
	}
	var out api.File
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, classify.NewDecodeError(err)
	}
	return &out, nil
}

// UploadFile reads a file from disk and uploads it under its base name.
func (s *FilesService) UploadFile(ctx context.Context, path, purpose string) (*api.File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s.Upload(ctx, filepath.Base(path), content, purpose)
}

// Get retrieves file metadata by id.
func (s *FilesService) Get(ctx context.Context, id string) (*api.File, error) {
	var out api.File
	if err := s.c.do(ctx, http.MethodGet, "/files/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns a page of uploaded files.
func (s *FilesService) List(ctx context.Context, opts *ListOptions) (*api.List[api.File], error) {
	var out api.List[api.File]
	if err := s.c.do(ctx, http.MethodGet, "/files"+opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a file.
func (s *FilesService) Delete(ctx context.Context, id string) (*api.Deleted, error) {
	var out api.Deleted
	if err := s.c.do(ctx, http.MethodDelete, "/files/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download returns the raw content of a file.
func (s *FilesService) Download(ctx context.Context, id string) ([]byte, error) {
	return s.c.doRaw(ctx, http.MethodGet, "/files/"+id+"/content")
}

// detectMIME resolves the upload content type: extension first, then
// content sniffing.
func detectMIME(filename string, content []byte) string {
	if mt := mime.TypeByExtension(filepath.Ext(filename)); mt != "" {
		return mt
	}
	return http.DetectContentType(content)
}
