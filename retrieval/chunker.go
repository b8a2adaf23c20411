package retrieval

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Splitter cuts raw document text into indexable fragments.
type Splitter interface {
	Split(text string) []string
}

// Chunker splits text on token boundaries using a tiktoken encoding, so chunk
// sizes line up with what embedding models actually count.
type Chunker struct {
	enc       *tiktoken.Tiktoken
	chunkSize int
	overlap   int
}

// NewChunker creates a token chunker for the given encoding name. An empty
// name selects cl100k_base.
func NewChunker(encoding string, chunkSize, overlap int) (*Chunker, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &Chunker{enc: enc, chunkSize: chunkSize, overlap: overlap}, nil
}

// Split implements Splitter. Consecutive chunks share overlap tokens; the
// final chunk may be shorter than the window.
func (c *Chunker) Split(text string) []string {
	ids := c.enc.Encode(text, nil, nil)
	if len(ids) == 0 {
		return nil
	}
	if len(ids) <= c.chunkSize {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	step := c.chunkSize - c.overlap
	var chunks []string
	for start := 0; start < len(ids); start += step {
		end := start + c.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := strings.TrimSpace(c.enc.Decode(ids[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(ids) {
			break
		}
	}
	return chunks
}
