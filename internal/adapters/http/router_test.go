package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docsearch/internal/core/domain"
)

type ingestorFake struct {
	ownerID string
	files   []domain.FileUpload
	results []domain.BatchItemResult
}

func (f *ingestorFake) Ingest(_ context.Context, ownerID string, file domain.FileUpload) (*domain.Document, error) {
	f.ownerID = ownerID
	f.files = append(f.files, file)
	return &domain.Document{ID: "doc-1", OwnerID: ownerID, Filename: file.Filename}, nil
}

func (f *ingestorFake) IngestBatch(_ context.Context, ownerID string, files []domain.FileUpload) []domain.BatchItemResult {
	f.ownerID = ownerID
	f.files = files
	if f.results != nil {
		return f.results
	}
	results := make([]domain.BatchItemResult, len(files))
	for i, file := range files {
		results[i] = domain.BatchItemResult{
			Filename:   file.Filename,
			Status:     domain.StatusCompleted,
			DocumentID: "doc-" + file.Filename,
		}
	}
	return results
}

type searcherFake struct {
	query   string
	limit   int
	results []domain.SearchResult
	err     error
}

func (f *searcherFake) Search(_ context.Context, _, query string, limit int) ([]domain.SearchResult, error) {
	f.query = query
	f.limit = limit
	return f.results, f.err
}

type readerFake struct {
	doc  *domain.Document
	docs []domain.Document
	err  error
}

func (f *readerFake) GetByID(context.Context, string, string) (*domain.Document, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.doc, "/v1/files/key?signature=test", nil
}

func (f *readerFake) ListRecent(context.Context, string, int) ([]domain.Document, error) {
	return f.docs, f.err
}

type deleterFake struct {
	deleted string
	err     error
}

func (f *deleterFake) Delete(_ context.Context, _, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = documentID
	return nil
}

type healthFake struct{ healthy bool }

func (f *healthFake) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (f *healthFake) Dimension() int               { return 2 }
func (f *healthFake) Healthy(context.Context) bool { return f.healthy }

type fileStoreFake struct {
	content   map[string][]byte
	verifyErr error
}

func (f *fileStoreFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.content[key]
	if !ok {
		return nil, errors.New("missing object")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *fileStoreFake) Verify(string, int64, string) error { return f.verifyErr }

type routerFixture struct {
	ingestor *ingestorFake
	searcher *searcherFake
	reader   *readerFake
	deleter  *deleterFake
	files    *fileStoreFake
	handler  http.Handler
}

func newRouterFixture() *routerFixture {
	fx := &routerFixture{
		ingestor: &ingestorFake{},
		searcher: &searcherFake{},
		reader:   &readerFake{},
		deleter:  &deleterFake{},
		files:    &fileStoreFake{content: map[string][]byte{}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := NewRouter(fx.ingestor, fx.searcher, fx.reader, fx.deleter, &healthFake{healthy: true}, fx.files, nil, logger, "api-test")
	fx.handler = rt.Handler()
	return fx
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadDocuments(t *testing.T) {
	fx := newRouterFixture()
	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "hello"})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(ownerIDHeader, "owner-1")
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if fx.ingestor.ownerID != "owner-1" {
		t.Fatalf("owner = %q", fx.ingestor.ownerID)
	}
	if len(fx.ingestor.files) != 1 || fx.ingestor.files[0].Filename != "a.txt" {
		t.Fatalf("files = %+v", fx.ingestor.files)
	}
	if got := fx.ingestor.files[0].ContentType; !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("content type = %q, want text/plain from extension", got)
	}

	var resp struct {
		Results []domain.BatchItemResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].DocumentID == "" {
		t.Fatalf("results = %+v", resp.Results)
	}
}

func TestUploadRequiresOwnerHeader(t *testing.T) {
	fx := newRouterFixture()
	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "hello"})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadMixedOutcome(t *testing.T) {
	fx := newRouterFixture()
	fx.ingestor.results = []domain.BatchItemResult{
		{Filename: "a.txt", Status: domain.StatusCompleted, DocumentID: "doc-a"},
		{Filename: "b.txt", Status: domain.StatusFailed, Error: "extraction failed"},
	}
	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "ok", "b.txt": "bad"})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(ownerIDHeader, "owner-1")
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", rec.Code)
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	restore := maxUploadBytes
	maxUploadBytes = 256
	defer func() { maxUploadBytes = restore }()

	fx := newRouterFixture()
	body, contentType := multipartBody(t, "files", map[string]string{
		"big.txt": strings.Repeat("x", 4096),
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(ownerIDHeader, "owner-1")
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized body", rec.Code)
	}
	if len(fx.ingestor.files) != 0 {
		t.Fatalf("ingestor reached despite oversized body")
	}
}

func TestSearch(t *testing.T) {
	fx := newRouterFixture()
	fx.searcher.results = []domain.SearchResult{
		{DocumentID: "doc-a", Filename: "a.txt", Score: 0.9, Rank: 1},
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"hello","limit":5}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ownerIDHeader, "owner-1")
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if fx.searcher.query != "hello" || fx.searcher.limit != 5 {
		t.Fatalf("search called with query=%q limit=%d", fx.searcher.query, fx.searcher.limit)
	}

	var resp struct {
		Results []domain.SearchResult `json:"results"`
		Total   int                   `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].DocumentID != "doc-a" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestSearchProviderOutageMapsTo503(t *testing.T) {
	fx := newRouterFixture()
	fx.searcher.err = domain.WrapError(domain.ErrTemporary, "embed query", errors.New("circuit open"))

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ownerIDHeader, "owner-1")
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	fx := newRouterFixture()
	fx.reader.err = domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("missing"))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-x", nil)
	req.Header.Set(ownerIDHeader, "owner-1")
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	fx := newRouterFixture()

	req := httptest.NewRequest(http.MethodDelete, "/v1/documents/doc-1", nil)
	req.Header.Set(ownerIDHeader, "owner-1")
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if fx.deleter.deleted != "doc-1" {
		t.Fatalf("deleted = %q", fx.deleter.deleted)
	}
}

func TestServeFile(t *testing.T) {
	fx := newRouterFixture()
	fx.files.content["owner-1/doc-1_a.txt"] = []byte("file payload")

	req := httptest.NewRequest(http.MethodGet, "/v1/files/owner-1/doc-1_a.txt?expires=1&signature=abc", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "file payload" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("content type = %q", got)
	}
}

func TestServeFileRejectsBadSignature(t *testing.T) {
	fx := newRouterFixture()
	fx.files.verifyErr = errors.New("signature mismatch")

	req := httptest.NewRequest(http.MethodGet, "/v1/files/owner-1/doc-1_a.txt?expires=1&signature=abc", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestHealthzReportsProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := NewRouter(&ingestorFake{}, &searcherFake{}, &readerFake{}, &deleterFake{}, &healthFake{healthy: false}, &fileStoreFake{}, nil, logger, "api-test")
	handler := rt.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["embedding_provider"] != "down" {
		t.Fatalf("response = %v", resp)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}
