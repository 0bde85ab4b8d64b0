package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docsearch/internal/core/domain"
	"docsearch/internal/core/ports"
)

// IngestService turns uploaded files into indexed, searchable
// documents. Chunks are embedded before anything is written to the
// store, so a failed file leaves no document or chunk rows behind.
type IngestService struct {
	store         ports.DocumentStore
	storage       ports.ObjectStorage
	extractor     ports.TextExtractor
	chunker       ports.Chunker
	embedder      ports.Embedder
	events        ports.EventPublisher
	logger        *slog.Logger
	parallelism   int
	embedDocument bool
}

type IngestOptions struct {
	// Parallelism bounds both chunk-embedding fan-out within a file and
	// concurrent files within a batch. Defaults to 4.
	Parallelism int
	// EmbedDocument also embeds the full extracted text and stores the
	// vector on the document row.
	EmbedDocument bool
}

func NewIngestService(
	store ports.DocumentStore,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	events ports.EventPublisher,
	logger *slog.Logger,
	options IngestOptions,
) *IngestService {
	parallelism := options.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		store:         store,
		storage:       storage,
		extractor:     extractor,
		chunker:       chunker,
		embedder:      embedder,
		events:        events,
		logger:        logger,
		parallelism:   parallelism,
		embedDocument: options.EmbedDocument,
	}
}

func (s *IngestService) Ingest(ctx context.Context, ownerID string, file domain.FileUpload) (*domain.Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest document", errors.New("empty owner id"))
	}
	if strings.TrimSpace(file.Filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest document", errors.New("empty filename"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s_%s", ownerID, id, sanitizeFilename(file.Filename))

	if err := s.storage.Put(ctx, storageKey, file.ContentType, bytes.NewReader(file.Data)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc, err := s.indexPipeline(ctx, ownerID, id, storageKey, file)
	if err != nil {
		s.cleanupObject(ctx, storageKey)
		s.publishEvent(ctx, domain.DocumentEvent{
			DocumentID: id,
			OwnerID:    ownerID,
			Filename:   file.Filename,
			Status:     domain.StatusFailed,
			Error:      err.Error(),
			OccurredAt: time.Now().UTC(),
		})
		return nil, err
	}

	s.publishEvent(ctx, domain.DocumentEvent{
		DocumentID: doc.ID,
		OwnerID:    ownerID,
		Filename:   doc.Filename,
		Status:     domain.StatusCompleted,
		OccurredAt: time.Now().UTC(),
	})
	return doc, nil
}

// IngestBatch processes files concurrently with bounded parallelism.
// One bad file never blocks the rest: every file gets its own result.
func (s *IngestService) IngestBatch(ctx context.Context, ownerID string, files []domain.FileUpload) []domain.BatchItemResult {
	results := make([]domain.BatchItemResult, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.parallelism)
	for i, file := range files {
		group.Go(func() error {
			doc, err := s.Ingest(groupCtx, ownerID, file)
			if err != nil {
				results[i] = domain.BatchItemResult{
					Filename: file.Filename,
					Status:   domain.StatusFailed,
					Error:    err.Error(),
				}
				return nil
			}
			results[i] = domain.BatchItemResult{
				Filename:   file.Filename,
				Status:     domain.StatusCompleted,
				DocumentID: doc.ID,
			}
			return nil
		})
	}
	_ = group.Wait()

	return results
}

func (s *IngestService) indexPipeline(ctx context.Context, ownerID, id, storageKey string, file domain.FileUpload) (*domain.Document, error) {
	text, err := s.extractor.Extract(ctx, file.ContentType, file.Data)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	pieces := s.chunker.Split(text, file.Filename)
	if len(pieces) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := s.embedChunks(ctx, pieces)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          id,
		OwnerID:     ownerID,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		StorageKey:  storageKey,
		Status:      domain.StatusProcessing,
		CreatedAt:   now,
	}
	if s.embedDocument && strings.TrimSpace(text) != "" {
		docVector, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed document text: %w", err)
		}
		doc.Embedding = docVector
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: id,
			Ordinal:    i + 1,
			Content:    content,
			Embedding:  vectors[i],
			CreatedAt:  now,
		}
	}

	if err := s.store.IndexDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("index document: %w", err)
	}
	return doc, nil
}

// embedChunks fans out over the chunk set and re-associates vectors by
// index, so chunk order is never affected by completion order.
func (s *IngestService) embedChunks(ctx context.Context, pieces [][]byte) ([][]float32, error) {
	vectors := make([][]float32, len(pieces))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.parallelism)
	for i, piece := range pieces {
		group.Go(func() error {
			vector, err := s.embedder.Embed(groupCtx, string(piece))
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i+1, err)
			}
			vectors[i] = vector
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (s *IngestService) cleanupObject(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("orphaned object left in storage", "key", key, "error", err)
	}
}

// publishEvent never fails the ingestion: the store is the source of
// truth, events are advisory.
func (s *IngestService) publishEvent(ctx context.Context, event domain.DocumentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishDocumentEvent(ctx, event); err != nil {
		s.logger.Warn("publish document event",
			"document_id", event.DocumentID,
			"status", string(event.Status),
			"error", err,
		)
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
