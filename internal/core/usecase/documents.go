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

// defaultListLimit applies when a caller omits the recent-documents
// limit; 0 would otherwise reach the store and list nothing.
const defaultListLimit = 20

// DocumentService covers the non-search read and delete operations on
// a single owner's documents.
type DocumentService struct {
	store   ports.DocumentStore
	storage ports.ObjectStorage
	logger  *slog.Logger
	urlTTL  time.Duration
}

func NewDocumentService(store ports.DocumentStore, storage ports.ObjectStorage, logger *slog.Logger, urlTTL time.Duration) *DocumentService {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		store:   store,
		storage: storage,
		logger:  logger,
		urlTTL:  urlTTL,
	}
}

// GetByID returns the document and a signed URL for its stored file.
func (s *DocumentService) GetByID(ctx context.Context, ownerID, documentID string) (*domain.Document, string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("empty owner id"))
	}

	doc, err := s.store.GetByID(ctx, ownerID, documentID)
	if err != nil {
		return nil, "", fmt.Errorf("fetch document by id: %w", err)
	}

	fileURL, err := s.storage.SignedURL(doc.StorageKey, s.urlTTL)
	if err != nil {
		s.logger.Warn("sign file url", "key", doc.StorageKey, "error", err)
		fileURL = ""
	}
	return doc, fileURL, nil
}

func (s *DocumentService) ListRecent(ctx context.Context, ownerID string, limit int) ([]domain.Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list documents", errors.New("empty owner id"))
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	docs, err := s.store.ListRecent(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}
	return docs, nil
}

// Delete removes the rows first and only then the stored object; a
// leftover file is recoverable noise, a dangling row is not.
func (s *DocumentService) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := s.store.GetByID(ctx, ownerID, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	if err := s.store.Delete(ctx, ownerID, documentID); err != nil {
		return fmt.Errorf("delete document rows: %w", err)
	}

	if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Warn("delete stored object", "key", doc.StorageKey, "error", err)
	}
	return nil
}
