package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"docsearch/internal/core/domain"
	"docsearch/internal/infrastructure/extractor/docx"
	"docsearch/internal/infrastructure/extractor/plaintext"
)

func newTestRegistry() *Registry {
	return NewRegistry(plaintext.New(), docx.New())
}

func TestExtractPlainText(t *testing.T) {
	r := newTestRegistry()
	text, err := r.Extract(context.Background(), "text/plain; charset=utf-8", []byte("hello world"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractUnknownTextSubtypeFallsBack(t *testing.T) {
	r := newTestRegistry()
	text, err := r.Extract(context.Background(), "text/x-log", []byte("line one"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "line one" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsUnsupportedContentType(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Extract(context.Background(), "image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error kind, got %v", err)
	}
}

func TestExtractRejectsInvalidUTF8Text(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Extract(context.Background(), "text/plain", []byte{0xff, 0xfe, 0x00})
	if err == nil {
		t.Fatalf("expected error for invalid utf-8 payload")
	}
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error kind, got %v", err)
	}
}

func TestExtractDocx(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	_, _ = f.Write([]byte(`<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>First paragraph.</t></r></p>
    <p><r><t>Second </t></r><r><t>paragraph.</t></r></p>
  </body>
</document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	r := newTestRegistry()
	text, err := r.Extract(
		context.Background(),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		buf.Bytes(),
	)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "First paragraph.\nSecond paragraph." {
		t.Fatalf("unexpected text: %q", text)
	}
}
