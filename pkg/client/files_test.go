package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anfrage-dev/anfrage/pkg/api"
)

const fileJSON = `{
	"id": "file_abc123",
	"object": "file",
	"filename": "notes.txt",
	"purpose": "assistants",
	"bytes": 11,
	"created_at": 1700000000,
	"status": "processed"
}`

func TestFilesUpload(t *testing.T) {
	var gotPurpose, gotFilename, gotPartType, gotContent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/files" {
			t.Errorf("request = %s %s, want POST /files", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		gotPurpose = r.FormValue("purpose")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("reading file part: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		gotPartType = header.Header.Get("Content-Type")
		content, _ := io.ReadAll(file)
		gotContent = string(content)

		fmt.Fprint(w, fileJSON)
	})

	f, err := c.Files.Upload(context.Background(), "notes.txt", []byte("hello world"), api.FilePurposeAssistants)
	if err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}

	if gotPurpose != "assistants" {
		t.Errorf("purpose field = %q, want assistants", gotPurpose)
	}
	if gotFilename != "notes.txt" {
		t.Errorf("filename = %q, want notes.txt", gotFilename)
	}
	if !strings.HasPrefix(gotPartType, "text/plain") {
		t.Errorf("part content type = %q, want text/plain", gotPartType)
	}
	if gotContent != "hello world" {
		t.Errorf("content = %q, want hello world", gotContent)
	}
	if f.ID != "file_abc123" || f.Bytes != 11 {
		t.Errorf("file = %+v, want file_abc123 with 11 bytes", f)
	}
}

func TestFilesUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	if err := os.WriteFile(path, []byte(`{"k":"v"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var gotFilename string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("reading file part: %v", err)
		}
		gotFilename = header.Filename
		fmt.Fprint(w, fileJSON)
	})

	if _, err := c.Files.UploadFile(context.Background(), path, api.FilePurposeFineTuning); err != nil {
		t.Fatalf("UploadFile() failed: %v", err)
	}
	if gotFilename != "data.jsonl" {
		t.Errorf("filename = %q, want base name data.jsonl", gotFilename)
	}
}

func TestFilesUploadFile_MissingPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	})

	_, err := c.Files.UploadFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt"), api.FilePurposeAssistants)
	if err == nil || !strings.Contains(err.Error(), "reading") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestFilesGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/files/file_abc123" {
			t.Errorf("request = %s %s, want GET /files/file_abc123", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, fileJSON)
	})

	f, err := c.Files.Get(context.Background(), "file_abc123")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if f.Purpose != api.FilePurposeAssistants {
		t.Errorf("Purpose = %q, want assistants", f.Purpose)
	}
}

func TestFilesList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" {
			t.Errorf("path = %s, want /files", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("limit = %q, want 2", got)
		}
		fmt.Fprintf(w, `{"object": "list", "data": [%s], "has_more": true, "next_cursor": "file_abc123"}`, fileJSON)
	})

	page, err := c.Files.List(context.Background(), &ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != "file_abc123" {
		t.Errorf("page data = %+v, want one file_abc123", page.Data)
	}
	if !page.HasMore || page.NextCursor != "file_abc123" {
		t.Errorf("pagination = has_more %v cursor %q", page.HasMore, page.NextCursor)
	}
}

func TestFilesDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/files/file_abc123" {
			t.Errorf("request = %s %s, want DELETE /files/file_abc123", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"id": "file_abc123", "object": "file", "deleted": true}`)
	})

	del, err := c.Files.Delete(context.Background(), "file_abc123")
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if !del.Deleted {
		t.Error("Deleted = false, want true")
	}
}

func TestFilesDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/file_abc123/content" {
			t.Errorf("path = %s, want /files/file_abc123/content", r.URL.Path)
		}
		w.Write([]byte("raw bytes"))
	})

	content, err := c.Files.Download(context.Background(), "file_abc123")
	if err != nil {
		t.Fatalf("Download() failed: %v", err)
	}
	if string(content) != "raw bytes" {
		t.Errorf("content = %q, want raw bytes", content)
	}
}

func TestDetectMIME(t *testing.T) {
	pngMagic := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name       string
		filename   string
		content    []byte
		wantPrefix string
	}{
		{"by extension", "notes.txt", []byte("plain"), "text/plain"},
		{"json extension", "data.json", []byte("{}"), "application/json"},
		{"sniffed", "image", pngMagic, "image/png"},
		{"fallback binary", "blob", []byte{0x00, 0x01, 0x02}, "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectMIME(tt.filename, tt.content)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("detectMIME(%q) = %q, want prefix %q", tt.filename, got, tt.wantPrefix)
			}
		})
	}
}
