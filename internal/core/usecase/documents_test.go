package usecase

import (
	"context"
	"testing"
	"time"

	"docsearch/internal/core/domain"
)

func TestDocumentGetByIDSignsURL(t *testing.T) {
	store := &storeFake{docs: map[string]domain.Document{
		"doc-1": {ID: "doc-1", OwnerID: "owner-1", Filename: "a.txt", StorageKey: "owner-1/doc-1_a.txt"},
	}}
	svc := NewDocumentService(store, newStorageFake(), discardLogger(), time.Minute)

	doc, fileURL, err := svc.GetByID(context.Background(), "owner-1", "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.ID != "doc-1" {
		t.Fatalf("doc = %+v", doc)
	}
	if fileURL == "" {
		t.Fatalf("expected signed url")
	}
}

func TestDocumentGetByIDNotFound(t *testing.T) {
	svc := NewDocumentService(&storeFake{docs: map[string]domain.Document{}}, newStorageFake(), discardLogger(), time.Minute)

	_, _, err := svc.GetByID(context.Background(), "owner-1", "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("error = %v, want not found kind", err)
	}
}

func TestDocumentListRecentDefaultsLimit(t *testing.T) {
	store := &storeFake{recent: []domain.Document{
		{ID: "doc-1", OwnerID: "owner-1", Filename: "a.txt"},
	}}
	svc := NewDocumentService(store, newStorageFake(), discardLogger(), time.Minute)

	docs, err := svc.ListRecent(context.Background(), "owner-1", 0)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	// An omitted limit must not reach the store as 0, which would
	// list nothing.
	if store.recentLimit != defaultListLimit {
		t.Fatalf("store limit = %d, want %d", store.recentLimit, defaultListLimit)
	}
}

func TestDocumentListRecentKeepsExplicitLimit(t *testing.T) {
	store := &storeFake{}
	svc := NewDocumentService(store, newStorageFake(), discardLogger(), time.Minute)

	if _, err := svc.ListRecent(context.Background(), "owner-1", 5); err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if store.recentLimit != 5 {
		t.Fatalf("store limit = %d, want 5", store.recentLimit)
	}
}

func TestDocumentDeleteRemovesRowsAndObject(t *testing.T) {
	store := &storeFake{docs: map[string]domain.Document{
		"doc-1": {ID: "doc-1", OwnerID: "owner-1", StorageKey: "owner-1/doc-1_a.txt"},
	}}
	storage := newStorageFake()
	storage.objects["owner-1/doc-1_a.txt"] = []byte("payload")
	svc := NewDocumentService(store, storage, discardLogger(), time.Minute)

	if err := svc.Delete(context.Background(), "owner-1", "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "doc-1" {
		t.Fatalf("deleted rows = %v", store.deleted)
	}
	if _, ok := storage.objects["owner-1/doc-1_a.txt"]; ok {
		t.Fatalf("stored object not removed")
	}
}

func TestDocumentDeleteUnknownID(t *testing.T) {
	svc := NewDocumentService(&storeFake{docs: map[string]domain.Document{}}, newStorageFake(), discardLogger(), time.Minute)

	err := svc.Delete(context.Background(), "owner-1", "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("error = %v, want not found kind", err)
	}
}
