package ports

import (
	"context"

	"docsearch/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document ingestion.
type DocumentIngestor interface {
	Ingest(ctx context.Context, ownerID string, file domain.FileUpload) (*domain.Document, error)
	IngestBatch(ctx context.Context, ownerID string, files []domain.FileUpload) []domain.BatchItemResult
}

// DocumentSearcher is the inbound contract for similarity search.
type DocumentSearcher interface {
	Search(ctx context.Context, ownerID, query string, limit int) ([]domain.SearchResult, error)
}

// DocumentReader is the inbound read model for document metadata.
type DocumentReader interface {
	GetByID(ctx context.Context, ownerID, documentID string) (*domain.Document, string, error)
	ListRecent(ctx context.Context, ownerID string, limit int) ([]domain.Document, error)
}

// DocumentDeleter removes a document, its chunks and the stored file.
type DocumentDeleter interface {
	Delete(ctx context.Context, ownerID, documentID string) error
}
