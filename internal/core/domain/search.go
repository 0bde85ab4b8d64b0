package domain

import "time"

// PreviewKind buckets content types for preview rendering.
type PreviewKind string

const (
	PreviewText        PreviewKind = "text"
	PreviewPDF         PreviewKind = "pdf"
	PreviewWord        PreviewKind = "word"
	PreviewSpreadsheet PreviewKind = "spreadsheet"
	PreviewBinary      PreviewKind = "binary"
)

// Preview is a bounded, type-tagged excerpt of the winning chunk.
type Preview struct {
	Kind PreviewKind `json:"kind"`
	Data string      `json:"data"`
}

// ChunkMatch is the best-scoring chunk of one document, as returned by
// the vector store. Score is cosine similarity in [0,1] for unit
// vectors.
type ChunkMatch struct {
	DocumentID   string
	Filename     string
	ContentType  string
	StorageKey   string
	CreatedAt    time.Time
	ChunkOrdinal int
	ChunkContent []byte
	Score        float64
}

// SearchResult is one ranked document in a search response. At most
// one result exists per document id.
type SearchResult struct {
	DocumentID   string    `json:"document_id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
	Score        float64   `json:"score"`
	Rank         int       `json:"rank"`
	ChunkOrdinal int       `json:"chunk_ordinal,omitempty"`
	Preview      Preview   `json:"preview"`
	FileURL      string    `json:"file_url,omitempty"`
}

// FileUpload is one file in an ingestion batch.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BatchItemResult reports the outcome of one file in a batch: either a
// document id or a human-readable failure reason. One bad file never
// blocks the rest of the batch.
type BatchItemResult struct {
	Filename   string         `json:"filename"`
	Status     DocumentStatus `json:"status"`
	DocumentID string         `json:"document_id,omitempty"`
	Error      string         `json:"error,omitempty"`
}
