package usecase

import (
	"strings"
	"unicode/utf8"

	"docsearch/internal/core/domain"
)

// PreviewRenderer turns the winning chunk of a search result into a
// bounded, type-tagged excerpt.
type PreviewRenderer struct {
	maxRunes int
}

func NewPreviewRenderer(maxRunes int) *PreviewRenderer {
	if maxRunes <= 0 {
		maxRunes = 200
	}
	return &PreviewRenderer{maxRunes: maxRunes}
}

func (r *PreviewRenderer) Render(contentType string, chunk []byte) domain.Preview {
	kind := previewKindFor(contentType)
	if kind == domain.PreviewBinary {
		return domain.Preview{Kind: kind}
	}
	return domain.Preview{Kind: kind, Data: r.excerpt(chunk)}
}

// Kind reports the preview category for a content type without
// rendering an excerpt. Used by the recency fallback, which has no
// chunk content at hand.
func (r *PreviewRenderer) Kind(contentType string) domain.PreviewKind {
	return previewKindFor(contentType)
}

func (r *PreviewRenderer) excerpt(chunk []byte) string {
	text := strings.ToValidUTF8(string(chunk), "")
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= r.maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:r.maxRunes]) + "…"
}

func previewKindFor(contentType string) domain.PreviewKind {
	mediaType := contentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case mediaType == "application/pdf":
		return domain.PreviewPDF
	case mediaType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		mediaType == "application/msword":
		return domain.PreviewWord
	case mediaType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		mediaType == "application/vnd.ms-excel",
		mediaType == "text/csv":
		return domain.PreviewSpreadsheet
	case strings.HasPrefix(mediaType, "text/"):
		return domain.PreviewText
	default:
		return domain.PreviewBinary
	}
}
