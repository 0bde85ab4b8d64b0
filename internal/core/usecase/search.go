package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docsearch/internal/core/domain"
	"docsearch/internal/core/ports"
)

// SearchService answers similarity queries with at most one result per
// document: each document is represented by its best-scoring chunk. An
// empty query falls back to recently uploaded documents.
type SearchService struct {
	store    ports.DocumentStore
	embedder ports.Embedder
	storage  ports.ObjectStorage
	previews *PreviewRenderer
	logger   *slog.Logger

	floor        float64
	defaultLimit int
	urlTTL       time.Duration
}

type SearchOptions struct {
	// SimilarityFloor discards documents whose best chunk scores below
	// it. Defaults to 0.3.
	SimilarityFloor float64
	// DefaultLimit applies when the caller passes limit <= 0. Defaults
	// to 20.
	DefaultLimit int
	// FileURLTTL bounds the lifetime of signed file links in results.
	// Defaults to 15 minutes.
	FileURLTTL time.Duration
}

func NewSearchService(
	store ports.DocumentStore,
	embedder ports.Embedder,
	storage ports.ObjectStorage,
	previews *PreviewRenderer,
	logger *slog.Logger,
	options SearchOptions,
) *SearchService {
	floor := options.SimilarityFloor
	if floor <= 0 {
		floor = 0.3
	}
	defaultLimit := options.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	urlTTL := options.FileURLTTL
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	if previews == nil {
		previews = NewPreviewRenderer(0)
	}
	return &SearchService{
		store:        store,
		embedder:     embedder,
		storage:      storage,
		previews:     previews,
		logger:       logger,
		floor:        floor,
		defaultLimit: defaultLimit,
		urlTTL:       urlTTL,
	}
}

func (s *SearchService) Search(ctx context.Context, ownerID, query string, limit int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search documents", errors.New("empty owner id"))
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}

	if strings.TrimSpace(query) == "" {
		return s.recentFallback(ctx, ownerID, limit)
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.store.BestChunkMatches(ctx, ownerID, queryVector, s.floor, limit)
	if err != nil {
		return nil, fmt.Errorf("match chunks: %w", err)
	}

	results := make([]domain.SearchResult, len(matches))
	for i, match := range matches {
		results[i] = domain.SearchResult{
			DocumentID:   match.DocumentID,
			Filename:     match.Filename,
			ContentType:  match.ContentType,
			CreatedAt:    match.CreatedAt,
			Score:        match.Score,
			Rank:         i + 1,
			ChunkOrdinal: match.ChunkOrdinal,
			Preview:      s.previews.Render(match.ContentType, match.ChunkContent),
			FileURL:      s.signedURL(match.StorageKey),
		}
	}
	return results, nil
}

// recentFallback serves an empty query with the owner's newest
// documents. Score stays zero and no chunk excerpt is available.
func (s *SearchService) recentFallback(ctx context.Context, ownerID string, limit int) ([]domain.SearchResult, error) {
	docs, err := s.store.ListRecent(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}

	results := make([]domain.SearchResult, len(docs))
	for i, doc := range docs {
		results[i] = domain.SearchResult{
			DocumentID:  doc.ID,
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			CreatedAt:   doc.CreatedAt,
			Rank:        i + 1,
			Preview:     domain.Preview{Kind: s.previews.Kind(doc.ContentType)},
			FileURL:     s.signedURL(doc.StorageKey),
		}
	}
	return results, nil
}

func (s *SearchService) signedURL(storageKey string) string {
	url, err := s.storage.SignedURL(storageKey, s.urlTTL)
	if err != nil {
		s.logger.Warn("sign file url", "key", storageKey, "error", err)
		return ""
	}
	return url
}
