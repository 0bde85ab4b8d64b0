package chunking

type Splitter struct {
	ChunkSize int
}

func NewSplitter(chunkSize int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &Splitter{ChunkSize: chunkSize}
}

// Split cuts text into consecutive non-overlapping slices of at most
// ChunkSize runes; the last slice may be shorter. Chunks are returned
// verbatim so their concatenation reconstructs the input exactly.
// Empty input yields a single chunk holding fallback, so every
// document ends up with at least one embeddable chunk.
func (s *Splitter) Split(text, fallback string) [][]byte {
	runes := []rune(text)
	if len(runes) == 0 {
		return [][]byte{[]byte(fallback)}
	}

	out := make([][]byte, 0, (len(runes)+s.ChunkSize-1)/s.ChunkSize)
	for start := 0; start < len(runes); start += s.ChunkSize {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, []byte(string(runes[start:end])))
	}
	return out
}
