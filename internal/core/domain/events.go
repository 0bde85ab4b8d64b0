package domain

import "time"

// DocumentEvent announces a terminal ingestion outcome.
type DocumentEvent struct {
	DocumentID string         `json:"document_id"`
	OwnerID    string         `json:"owner_id"`
	Filename   string         `json:"filename"`
	Status     DocumentStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
