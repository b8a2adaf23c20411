package retrieval

import (
	"strings"
	"testing"
)

func newTestChunker(t *testing.T, chunkSize, overlap int) *Chunker {
	t.Helper()
	chunker, err := NewChunker("", chunkSize, overlap)
	if err != nil {
		// Encoding data is fetched lazily by tiktoken; tolerate offline runs.
		t.Skipf("tokenizer encoding unavailable: %v", err)
	}
	return chunker
}

func TestChunkerShortTextIsOneChunk(t *testing.T) {
	chunker := newTestChunker(t, 500, 0)

	chunks := chunker.Split("A single short paragraph.")
	if len(chunks) != 1 || chunks[0] != "A single short paragraph." {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestChunkerSplitsLongText(t *testing.T) {
	chunker := newTestChunker(t, 20, 0)

	text := strings.Repeat("adaptive retrieval pipelines grade their own evidence ", 20)
	chunks := chunker.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want several", len(chunks))
	}
	var rejoined strings.Builder
	for _, chunk := range chunks {
		if chunk == "" {
			t.Fatal("empty chunk emitted")
		}
		rejoined.WriteString(chunk)
		rejoined.WriteString(" ")
	}
	if !strings.Contains(rejoined.String(), "adaptive retrieval pipelines") {
		t.Error("chunk content lost during splitting")
	}
}

func TestChunkerEmptyText(t *testing.T) {
	chunker := newTestChunker(t, 500, 0)

	if chunks := chunker.Split("   "); len(chunks) != 0 {
		t.Errorf("chunks = %v, want none", chunks)
	}
}
