package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"docsearch/internal/core/domain"
	"docsearch/internal/core/ports"
	"docsearch/internal/observability/metrics"
)

const ownerIDHeader = "X-Owner-Id"

// maxUploadBytes bounds every request body, applied ahead of contract
// validation so nothing buffers an unbounded body first. Variable so
// tests can lower it.
var maxUploadBytes int64 = 256 << 20

// SignedFileStore serves stored files behind signed URLs.
type SignedFileStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Verify(key string, expires int64, signature string) error
}

type Router struct {
	ingestor ports.DocumentIngestor
	searcher ports.DocumentSearcher
	reader   ports.DocumentReader
	deleter  ports.DocumentDeleter
	embedder ports.Embedder
	files    SignedFileStore

	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
	service string
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	searcher ports.DocumentSearcher,
	reader ports.DocumentReader,
	deleter ports.DocumentDeleter,
	embedder ports.Embedder,
	files SignedFileStore,
	serverMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	service string,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if service == "" {
		service = "api"
	}
	return &Router{
		ingestor: ingestor,
		searcher: searcher,
		reader:   reader,
		deleter:  deleter,
		embedder: embedder,
		files:    files,
		metrics:  serverMetrics,
		logger:   logger,
		service:  service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocuments)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	mux.HandleFunc("POST /v1/search", rt.search)
	mux.HandleFunc("GET /v1/files/{key...}", rt.serveFile)

	var handler http.Handler = mux
	if validator, err := newOpenAPIValidator(); err != nil {
		rt.logger.Error("openapi validation disabled", "error", err)
	} else {
		handler = validator(handler)
	}
	handler = bodyLimitMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	provider := "down"
	if rt.embedder != nil && rt.embedder.Healthy(r.Context()) {
		provider = "up"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":             "ok",
		"embedding_provider": provider,
	})
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "multipart field 'files' is required")
		return
	}

	files := make([]domain.FileUpload, 0, len(headers))
	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable multipart part "+header.Filename)
			return
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable multipart part "+header.Filename)
			return
		}
		files = append(files, domain.FileUpload{
			Filename:    header.Filename,
			ContentType: uploadContentType(header.Filename, header.Header.Get("Content-Type")),
			Data:        data,
		})
	}

	start := time.Now()
	results := rt.ingestor.IngestBatch(r.Context(), ownerID, files)

	completed, failed := 0, 0
	for _, result := range results {
		if result.Status == domain.StatusCompleted {
			completed++
		} else {
			failed++
		}
	}
	if rt.metrics != nil {
		rt.metrics.RecordIngest(rt.service, completed, failed, time.Since(start))
	}

	status := http.StatusCreated
	switch {
	case completed == 0:
		status = http.StatusUnprocessableEntity
	case failed > 0:
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]any{"results": results})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	docs, err := rt.reader.ListRecent(r.Context(), ownerID, limit)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	doc, fileURL, err := rt.reader.GetByID(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": doc,
		"file_url": fileURL,
	})
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := rt.deleter.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		rt.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	start := time.Now()
	results, err := rt.searcher.Search(r.Context(), ownerID, req.Query, req.Limit)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if rt.metrics != nil {
		mode := "similarity"
		if strings.TrimSpace(req.Query) == "" {
			mode = "recent"
		}
		rt.metrics.RecordSearch(rt.service, mode, len(results), time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}

func (rt *Router) serveFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	query := r.URL.Query()

	expires, err := strconv.ParseInt(query.Get("expires"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "expires must be a unix timestamp")
		return
	}
	if err := rt.files.Verify(key, expires, query.Get("signature")); err != nil {
		writeError(w, http.StatusForbidden, "invalid or expired link")
		return
	}

	reader, err := rt.files.Open(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, reader); err != nil {
		rt.logger.Warn("stream stored file", "key", key, "error", err)
	}
}

func (rt *Router) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := strings.TrimSpace(r.Header.Get(ownerIDHeader))
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "header "+ownerIDHeader+" is required")
		return "", false
	}
	return ownerID, true
}

func uploadContentType(filename, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
