package indexer

import "strings"

const (
	defaultChunkSize    = 256
	defaultChunkOverlap = 32
)

// Chunker splits long content into overlapping word windows so a single
// oversized template body does not collapse into one diluted embedding.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap, in
// words. Non-positive size or an overlap that does not leave forward progress
// falls back to the defaults.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
		if overlap >= size {
			overlap = size / 2
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk normalizes whitespace and splits text into windows of at most size
// words, each sharing overlap words with its predecessor. Text that fits in
// one window comes back as a single chunk; empty text returns nil.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= c.size {
		return []string{strings.Join(words, " ")}
	}
	step := c.size - c.overlap
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return chunks
}
