// Package extractor dispatches text extraction by content type.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"docsearch/internal/core/domain"
)

// Extractor derives plain text from one family of content types.
type Extractor interface {
	SupportedContentTypes() []string
	Extract(ctx context.Context, data []byte) (string, error)
}

// Registry routes extraction to the extractor registered for the
// request's content type. Unknown binary types are an extraction
// error: a document that cannot yield text cannot be indexed.
type Registry struct {
	byContentType map[string]Extractor
	textFallback  Extractor
}

func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byContentType: make(map[string]Extractor)}
	for _, e := range extractors {
		for _, ct := range e.SupportedContentTypes() {
			r.byContentType[ct] = e
		}
	}
	// text/* bypasses format parsing entirely.
	if e, ok := r.byContentType["text/plain"]; ok {
		r.textFallback = e
	}
	return r
}

func (r *Registry) Extract(ctx context.Context, contentType string, data []byte) (string, error) {
	ct := normalizeContentType(contentType)

	e, ok := r.byContentType[ct]
	if !ok && strings.HasPrefix(ct, "text/") {
		e = r.textFallback
		ok = e != nil
	}
	if !ok {
		return "", domain.WrapError(domain.ErrExtraction, "extract text",
			fmt.Errorf("unsupported content type: %s", contentType))
	}

	text, err := e.Extract(ctx, data)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", err)
	}
	return text, nil
}

func normalizeContentType(contentType string) string {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	// Strip parameters such as "; charset=utf-8".
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
