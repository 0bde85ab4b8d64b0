package plaintext

import (
	"context"
	"fmt"
	"unicode/utf8"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) SupportedContentTypes() []string {
	return []string{"text/plain", "text/markdown", "text/csv", "application/json"}
}

func (e *Extractor) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("payload is not valid UTF-8 text")
	}
	return string(data), nil
}
