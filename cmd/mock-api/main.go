// Command mock-api runs a deterministic Responses API server for
// exercising the client without spending tokens. Failure injection
// drives the recovery engine end to end:
//
//	-port N          listen port (default 9090)
//	-expire-after N  a container goes stale after N requests reference
//	                 it; pinning a stale container returns the
//	                 container-expired error (0 disables expiry)
//	-fail LIST       comma-separated HTTP statuses injected one per
//	                 create call before requests succeed, e.g. 502,429
//	-retry-after N   Retry-After header seconds on injected failures
//	                 and expiries (default 1)
//
// Besides /responses (including SSE streaming), a small files and
// vector stores subset is served so every client service has something
// to talk to.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/anfrage-dev/anfrage/pkg/api"
)

func main() {
	port := flag.String("port", "9090", "listen port")
	expireAfter := flag.Int("expire-after", 0, "container request budget before expiry (0 = never)")
	failList := flag.String("fail", "", "comma-separated statuses injected on create calls")
	retryAfter := flag.Int("retry-after", 1, "Retry-After seconds on failures")
	flag.Parse()

	failures, err := parseFailList(*failList)
	if err != nil {
		slog.Error("invalid -fail list", "error", err)
		os.Exit(1)
	}

	m := &mockAPI{
		expireAfter:   *expireAfter,
		retryAfter:    *retryAfter,
		failures:      failures,
		responses:     map[string]*api.Response{},
		containerUses: map[string]int{},
		files:         map[string]*storedFile{},
		stores:        map[string]*api.VectorStore{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/responses", m.handleCreate)
	mux.HandleFunc("GET /v1/responses/{id}", m.handleGet)
	mux.HandleFunc("POST /v1/responses/{id}/cancel", m.handleCancel)
	mux.HandleFunc("DELETE /v1/responses/{id}", m.handleDelete)
	mux.HandleFunc("GET /v1/models", m.handleModels)
	mux.HandleFunc("POST /v1/files", m.handleFileUpload)
	mux.HandleFunc("GET /v1/files", m.handleFileList)
	mux.HandleFunc("GET /v1/files/{id}", m.handleFileGet)
	mux.HandleFunc("DELETE /v1/files/{id}", m.handleFileDelete)
	mux.HandleFunc("GET /v1/files/{id}/content", m.handleFileContent)
	mux.HandleFunc("POST /v1/vector_stores", m.handleStoreCreate)
	mux.HandleFunc("GET /v1/vector_stores/{id}", m.handleStoreGet)
	mux.HandleFunc("POST /v1/vector_stores/{id}/files", m.handleStoreAddFile)
	mux.HandleFunc("POST /v1/vector_stores/{id}/search", m.handleStoreSearch)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + *port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock API starting", "port", *port,
			"expire_after", *expireAfter, "fail", *failList, "retry_after", *retryAfter)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock API failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock API shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func parseFailList(list string) ([]int, error) {
	if list == "" {
		return nil, nil
	}
	var statuses []int
	for _, part := range strings.Split(list, ",") {
		status, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("status %q: %w", part, err)
		}
		if status < 400 || status > 599 {
			return nil, fmt.Errorf("status %d is not an error status", status)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// --- Server state ---

type storedFile struct {
	meta    api.File
	content []byte
}

type mockAPI struct {
	expireAfter int
	retryAfter  int

	mu            sync.Mutex
	failures      []int
	responses     map[string]*api.Response
	containerUses map[string]int
	files         map[string]*storedFile
	fileOrder     []string
	stores        map[string]*api.VectorStore
}

// --- Responses ---

func (m *mockAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()

	// Scripted failures burn down one per create call.
	if len(m.failures) > 0 {
		status := m.failures[0]
		m.failures = m.failures[1:]
		m.mu.Unlock()
		slog.Info("injecting failure", "status", status)
		m.writeError(w, status, &api.APIError{
			Type:    api.ErrorTypeServerError,
			Message: fmt.Sprintf("injected failure (%d)", status),
		}, true)
		return
	}
	m.mu.Unlock()

	var req api.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeError(w, http.StatusBadRequest, api.NewInvalidRequestError("", "malformed JSON body"), false)
		return
	}
	if apiErr := api.ValidateRequest(&req); apiErr != nil {
		m.writeError(w, http.StatusBadRequest, apiErr, false)
		return
	}

	m.mu.Lock()
	if req.PreviousResponseID != "" {
		if _, ok := m.responses[req.PreviousResponseID]; !ok {
			m.mu.Unlock()
			m.writeError(w, http.StatusNotFound,
				api.NewNotFoundError(fmt.Sprintf("Previous response %s not found.", req.PreviousResponseID)), false)
			return
		}
	}

	containerID, apiErr := m.resolveContainer(&req)
	if apiErr != nil {
		m.mu.Unlock()
		slog.Info("expiring container reference", "error", apiErr.Message)
		m.writeError(w, http.StatusBadRequest, apiErr, true)
		return
	}

	resp := m.buildResponse(&req, containerID)
	m.responses[resp.ID] = resp
	m.mu.Unlock()

	if req.Stream {
		m.streamResponse(w, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveContainer applies the expiry budget to pinned containers and
// allocates fresh ones for auto requests. Caller holds m.mu.
func (m *mockAPI) resolveContainer(req *api.Request) (string, *api.APIError) {
	for i := range req.Tools {
		tool := &req.Tools[i]
		if tool.Type != api.ToolTypeCodeInterpreter || tool.Container == nil {
			continue
		}

		if tool.Container.Pinned() {
			id := tool.Container.ID
			uses, known := m.containerUses[id]
			if !known || (m.expireAfter > 0 && uses >= m.expireAfter) {
				return "", &api.APIError{
					Type:    api.ErrorTypeInvalidRequest,
					Message: "Container is expired. Create a new container or retry your request without specifying a previous_response_id.",
				}
			}
			m.containerUses[id] = uses + 1
			return id, nil
		}

		id := api.NewContainerID()
		m.containerUses[id] = 1
		return id, nil
	}
	return "", nil
}

func (m *mockAPI) buildResponse(req *api.Request, containerID string) *api.Response {
	answer := answerFor(promptOf(req))

	var output []api.Item
	if containerID != "" {
		output = append(output, api.Item{
			Type:        api.ItemTypeCodeInterpreterCall,
			Status:      api.ItemStatusCompleted,
			ContainerID: containerID,
		})
	}
	msg := api.AssistantMessage(answer)
	msg.ID = api.NewMessageID()
	msg.Status = api.ItemStatusCompleted
	output = append(output, msg)

	return &api.Response{
		ID:                 api.NewResponseID(),
		Object:             "response",
		CreatedAt:          time.Now().Unix(),
		Status:             api.ResponseStatusCompleted,
		Model:              req.Model,
		PreviousResponseID: req.PreviousResponseID,
		Output:             output,
		Usage: &api.Usage{
			InputTokens:  len(promptOf(req))/4 + 1,
			OutputTokens: len(answer)/4 + 1,
			TotalTokens:  len(promptOf(req))/4 + len(answer)/4 + 2,
		},
	}
}

// promptOf extracts the user's text from either input form.
func promptOf(req *api.Request) string {
	if req.Input.Text != "" {
		return req.Input.Text
	}
	for i := len(req.Input.Items) - 1; i >= 0; i-- {
		item := req.Input.Items[i]
		if item.Type != api.ItemTypeMessage || item.Role != api.RoleUser {
			continue
		}
		for _, part := range item.Content {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

// answerFor produces a deterministic reply keyed off prompt content, so
// demo transcripts and manual tests are reproducible.
func answerFor(prompt string) string {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "7**7"):
		return "x is now 823543."
	case strings.Contains(p, "x * 2"):
		return "1646086"
	case strings.Contains(p, "count from 1 to 3"):
		return "1, 2, 3"
	case prompt == "":
		return "Hello."
	default:
		return "All done."
	}
}

func (m *mockAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	resp, ok := m.responses[r.PathValue("id")]
	m.mu.Unlock()
	if !ok {
		m.writeError(w, http.StatusNotFound, api.NewNotFoundError("Response not found."), false)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (m *mockAPI) handleCancel(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	resp, ok := m.responses[r.PathValue("id")]
	if ok && resp.Status.Cancellable() {
		resp.Status = api.ResponseStatusCancelled
	}
	m.mu.Unlock()
	if !ok {
		m.writeError(w, http.StatusNotFound, api.NewNotFoundError("Response not found."), false)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (m *mockAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.Lock()
	_, ok := m.responses[id]
	delete(m.responses, id)
	m.mu.Unlock()
	if !ok {
		m.writeError(w, http.StatusNotFound, api.NewNotFoundError("Response not found."), false)
		return
	}
	writeJSON(w, http.StatusOK, &api.Deleted{ID: id, Object: "response", Deleted: true})
}

func (m *mockAPI) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &api.List[api.ModelInfo]{
		Object: "list",
		Data: []api.ModelInfo{
			{ID: string(api.ModelGPT4o), Object: "model", OwnedBy: "mock"},
			{ID: string(api.ModelGPT4oMini), Object: "model", OwnedBy: "mock"},
			{ID: string(api.ModelGPTImage1), Object: "model", OwnedBy: "mock"},
		},
	})
}

// --- Streaming ---

func (m *mockAPI) streamResponse(w http.ResponseWriter, resp *api.Response) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		m.writeError(w, http.StatusInternalServerError,
			&api.APIError{Type: api.ErrorTypeServerError, Message: "streaming not supported"}, false)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	seq := 0
	emit := func(evt api.StreamEvent) {
		seq++
		evt.SequenceNumber = seq
		data, _ := json.Marshal(evt)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
		flusher.Flush()
	}

	inProgress := *resp
	inProgress.Status = api.ResponseStatusInProgress
	inProgress.Output = nil
	inProgress.Usage = nil
	emit(api.StreamEvent{Type: api.EventResponseCreated, Response: &inProgress})

	for i, item := range resp.Output {
		it := item
		emit(api.StreamEvent{Type: api.EventOutputItemAdded, OutputIndex: i, Item: &it})
		if item.Type != api.ItemTypeMessage {
			emit(api.StreamEvent{Type: api.EventOutputItemDone, OutputIndex: i, Item: &it})
			continue
		}
		for _, token := range tokenize(textOf(item)) {
			emit(api.StreamEvent{
				Type:        api.EventOutputTextDelta,
				ItemID:      item.ID,
				OutputIndex: i,
				Delta:       token,
			})
		}
		emit(api.StreamEvent{
			Type:        api.EventOutputTextDone,
			ItemID:      item.ID,
			OutputIndex: i,
		})
		emit(api.StreamEvent{Type: api.EventOutputItemDone, OutputIndex: i, Item: &it})
	}

	emit(api.StreamEvent{Type: api.EventResponseCompleted, Response: resp})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func textOf(item api.Item) string {
	var b strings.Builder
	for _, part := range item.Content {
		if part.Type == api.ContentTypeOutputText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// tokenize splits text into word-sized streaming deltas.
func tokenize(text string) []string {
	words := strings.SplitAfter(text, " ")
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// --- Files ---

func (m *mockAPI) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		m.writeError(w, http.StatusBadRequest, api.NewInvalidRequestError("file", "malformed multipart form"), false)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		m.writeError(w, http.StatusBadRequest, api.NewInvalidRequestError("file", "missing file part"), false)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		m.writeError(w, http.StatusBadRequest, api.NewInvalidRequestError("file", "unreadable file part"), false)
		return
	}

	stored := &storedFile{
		meta: api.File{
			ID:        api.NewFileID(),
			Object:    "file",
			Filename:  header.Filename,
			Purpose:   r.FormValue("purpose"),
			Bytes:     int64(len(content)),
			CreatedAt: time.Now().Unix(),
			Status:    "processed",
		},
		content: content,
	}

	m.mu.Lock()
	m.files[stored.meta.ID] = stored
	m.fileOrder = append(m.fileOrder, stored.meta.ID)
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, &stored.meta)
}

func (m *mockAPI) handleFileList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	list := api.List[api.File]{Object: "list"}
	for _, id := range m.fileOrder {
		if f, ok := m.files[id]; ok {
			list.Data = append(list.Data, f.meta)
		}
	}
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, &list)
}

func (m *mockAPI) handleFileGet(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	f, ok := m.files[r.PathValue("id")]
	m.mu.Unlock()
	if !ok {
		m.writeError(w, http.StatusNotFound, api.NewNotFoundError("File not found."), false)
		return
	}
	writeJSON(w, http.StatusOK, &f.meta)
}

func (m *mockAPI) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.Lock()
	_, ok := m.files[id]
	delete(m.files, id)
	m.mu.Unlock()
	if !ok {
		m.writeError(w, http.StatusNotFound, api.NewNotFoundError("File not found."), false)
		return
	}
	writeJSON(w, http.StatusOK, &api.Deleted{ID: id, Object: "file", Deleted: true})
}

func (m *mockAPI) handleFileContent(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	f, ok := m.files[r.PathValue("id")]
	m.mu.Unlock()
	if !ok {
		m.writeError(w, http.StatusNotFound, api.NewNotFoundError("File not found."), false)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(f.content)
}

// --- Vector stores ---

func (m *mockAPI) handleStoreCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateVectorStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeError(w, http.StatusBadRequest, api.NewInvalidRequestError("", "malformed JSON body"), false)
		return
	}

	m.mu.Lock()
	for _, id := range req.FileIDs {
		if _, ok := m.files[id]; !ok {
			m.mu.Unlock()
			m.writeError(w, http.StatusBadRequest,
				api.NewInvalidRequestError("file_ids", fmt.Sprintf("file %s not found", id)), false)
			return
		}
	}
	vs := &api.VectorStore{
		ID:        api.NewVectorStoreID(),
		Object:    "vector_store",
		Name:      req.Name,
		CreatedAt: time.Now().Unix(),
		Status:    "completed",
		FileIDs:   append([]string(nil), req.FileIDs...),
	}
	m.stores[vs.ID] = vs
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, vs)
}

func (m *mockAPI) handleStoreGet(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	vs, ok := m.stores[r.PathValue("id")]
	m.mu.Unlock()
	if !ok {
		m.writeError(w, http.StatusNotFound, api.NewNotFoundError("Vector store not found."), false)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (m *mockAPI) handleStoreAddFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileID string `json:"file_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeError(w, http.StatusBadRequest, api.NewInvalidRequestError("", "malformed JSON body"), false)
		return
	}

	m.mu.Lock()
	vs, ok := m.stores[r.PathValue("id")]
	if ok {
		if _, exists := m.files[req.FileID]; !exists {
			m.mu.Unlock()
			m.writeError(w, http.StatusBadRequest,
				api.NewInvalidRequestError("file_id", fmt.Sprintf("file %s not found", req.FileID)), false)
			return
		}
		vs.FileIDs = append(vs.FileIDs, req.FileID)
	}
	m.mu.Unlock()
	if !ok {
		m.writeError(w, http.StatusNotFound, api.NewNotFoundError("Vector store not found."), false)
		return
	}

	writeJSON(w, http.StatusOK, &api.VectorStoreFile{
		ID:            req.FileID,
		Object:        "vector_store.file",
		CreatedAt:     time.Now().Unix(),
		VectorStoreID: vs.ID,
		Status:        "completed",
	})
}

// handleStoreSearch scores files by naive case-insensitive term counting,
// enough to give the search client something ranked to decode.
func (m *mockAPI) handleStoreSearch(w http.ResponseWriter, r *http.Request) {
	var req api.VectorStoreSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeError(w, http.StatusBadRequest, api.NewInvalidRequestError("", "malformed JSON body"), false)
		return
	}

	m.mu.Lock()
	vs, ok := m.stores[r.PathValue("id")]
	if !ok {
		m.mu.Unlock()
		m.writeError(w, http.StatusNotFound, api.NewNotFoundError("Vector store not found."), false)
		return
	}

	query := strings.ToLower(req.Query)
	var results []api.VectorStoreSearchResult
	for _, fileID := range vs.FileIDs {
		f, exists := m.files[fileID]
		if !exists {
			continue
		}
		text := string(f.content)
		hits := strings.Count(strings.ToLower(text), query)
		if query == "" || hits == 0 {
			continue
		}
		results = append(results, api.VectorStoreSearchResult{
			FileID:   fileID,
			Filename: f.meta.Filename,
			Score:    float64(hits) / float64(hits+1),
			Content:  []api.SearchContent{{Type: "text", Text: snippet(text, query)}},
		})
	}
	m.mu.Unlock()

	if req.MaxNumResults > 0 && len(results) > req.MaxNumResults {
		results = results[:req.MaxNumResults]
	}
	writeJSON(w, http.StatusOK, &api.VectorStoreSearchResponse{
		Object:      "vector_store.search_results.page",
		SearchQuery: req.Query,
		Data:        results,
	})
}

// snippet returns the first line containing the query term.
func snippet(text, query string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), query) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// --- Shared writers ---

func (m *mockAPI) writeError(w http.ResponseWriter, status int, apiErr *api.APIError, withRetryAfter bool) {
	if withRetryAfter && m.retryAfter >= 0 {
		w.Header().Set("Retry-After", strconv.Itoa(m.retryAfter))
	}
	w.Header().Set("X-Request-Id", "req_mock_"+strconv.FormatInt(time.Now().UnixNano(), 36))
	writeJSON(w, status, &api.ErrorResponse{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
