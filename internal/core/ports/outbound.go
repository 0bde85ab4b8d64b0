package ports

import (
	"context"
	"io"
	"time"

	"docsearch/internal/core/domain"
)

// DocumentStore persists documents with their chunks and answers
// similarity queries.
type DocumentStore interface {
	// IndexDocument writes the document row and all of its chunks in a
	// single transaction and marks the document completed. A failure
	// leaves zero rows for the document.
	IndexDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// BestChunkMatches returns at most limit documents owned by
	// ownerID, each represented by its single highest-scoring chunk,
	// with best scores below floor discarded, ordered by score
	// descending. Only completed documents participate.
	BestChunkMatches(ctx context.Context, ownerID string, queryVector []float32, floor float64, limit int) ([]domain.ChunkMatch, error)

	GetByID(ctx context.Context, ownerID, documentID string) (*domain.Document, error)
	ListRecent(ctx context.Context, ownerID string, limit int) ([]domain.Document, error)

	// Delete removes the document and its chunks (chunks first).
	Delete(ctx context.Context, ownerID, documentID string) error
}

// Embedder turns text into a unit-length vector of the configured
// dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Healthy(ctx context.Context) bool
}

// Chunker splits extracted text into ordered byte slices. An empty
// text yields one fallback chunk so every document stays searchable.
type Chunker interface {
	Split(text, fallback string) [][]byte
}

// TextExtractor derives plain text from raw document bytes.
type TextExtractor interface {
	Extract(ctx context.Context, contentType string, data []byte) (string, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	SignedURL(key string, ttl time.Duration) (string, error)
}

// EventPublisher announces terminal ingestion outcomes.
type EventPublisher interface {
	PublishDocumentEvent(ctx context.Context, event domain.DocumentEvent) error
}

// EventSubscriber consumes terminal ingestion outcomes.
type EventSubscriber interface {
	SubscribeDocumentEvents(ctx context.Context, handler func(context.Context, domain.DocumentEvent) error) error
}
