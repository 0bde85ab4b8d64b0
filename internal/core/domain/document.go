package domain

import "time"

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is one uploaded artifact. Embedding holds the optional
// whole-document vector; per-chunk vectors live on the chunks.
type Document struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	StorageKey  string         `json:"storage_key"`
	Embedding   []float32      `json:"-"`
	Status      DocumentStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Chunk is a contiguous slice of a document's extracted text. Content
// is kept as raw bytes so slicing never assumes valid text. Ordinals
// are 1-based and dense per document.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Ordinal    int       `json:"ordinal"`
	Content    []byte    `json:"-"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
