// Package retrieval implements the knowledge-base evidence provider: web
// pages and raw documents are chunked, embedded, and indexed into a vector
// store, then served back as evidence by similarity search.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sweetpotato0/adaptive-rag/adaptive"
	"github.com/sweetpotato0/adaptive-rag/errors"
	"github.com/sweetpotato0/adaptive-rag/pkg/logging"
	"github.com/sweetpotato0/adaptive-rag/vector"
)

const defaultTopK = 4

// Document is raw source material before chunking.
type Document struct {
	Content string
	Source  string
}

// Index is a vector-store backed evidence provider.
type Index struct {
	store    vector.Store
	embedder vector.Embedder
	splitter Splitter
	loader   *Loader
	topK     int
	logger   *slog.Logger
}

// Option customises the index.
type Option func(*Index)

// WithTopK sets how many fragments a fetch returns.
func WithTopK(k int) Option {
	return func(ix *Index) {
		if k > 0 {
			ix.topK = k
		}
	}
}

// WithSplitter replaces the default token chunker.
func WithSplitter(s Splitter) Option {
	return func(ix *Index) {
		if s != nil {
			ix.splitter = s
		}
	}
}

// WithHTTPClient sets the client used to load URLs.
func WithHTTPClient(client *http.Client) Option {
	return func(ix *Index) {
		ix.loader = NewLoader(client)
	}
}

// New creates an index over the given store and embedder. The default
// splitter cuts 500-token chunks with no overlap.
func New(store vector.Store, embedder vector.Embedder, opts ...Option) (*Index, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: vector store is required", errors.ErrConfiguration)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", errors.ErrConfiguration)
	}

	ix := &Index{
		store:    store,
		embedder: embedder,
		loader:   NewLoader(nil),
		topK:     defaultTopK,
		logger:   logging.WithComponent("retrieval"),
	}
	for _, opt := range opts {
		opt(ix)
	}

	if ix.splitter == nil {
		chunker, err := NewChunker("", 500, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrConfiguration, err)
		}
		ix.splitter = chunker
	}
	return ix, nil
}

// AddDocuments chunks, embeds, and indexes the given documents. It returns
// the number of fragments written.
func (ix *Index) AddDocuments(ctx context.Context, documents ...Document) (int, error) {
	var texts []string
	var sources []string
	for _, doc := range documents {
		for _, chunk := range ix.splitter.Split(doc.Content) {
			texts = append(texts, chunk)
			sources = append(sources, doc.Source)
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d fragments: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d fragments", len(vectors), len(texts))
	}

	for i, text := range texts {
		emb := &vector.Embedding{
			ID:     fmt.Sprintf("%s#%d", sources[i], i),
			Vector: vectors[i],
			Text:   text,
			Source: sources[i],
		}
		if err := ix.store.Add(ctx, emb); err != nil {
			return i, fmt.Errorf("index fragment %d: %w", i, err)
		}
	}

	ix.logger.Info("documents indexed", "documents", len(documents), "fragments", len(texts))
	return len(texts), nil
}

// AddURLs loads, chunks, embeds, and indexes the given pages.
func (ix *Index) AddURLs(ctx context.Context, urls ...string) (int, error) {
	documents := make([]Document, 0, len(urls))
	for _, url := range urls {
		doc, err := ix.loader.Load(ctx, url)
		if err != nil {
			return 0, err
		}
		documents = append(documents, doc)
	}
	return ix.AddDocuments(ctx, documents...)
}

// Fetch implements adaptive.Provider by similarity search over the index.
func (ix *Index) Fetch(ctx context.Context, query string) ([]adaptive.Evidence, error) {
	queryVector, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := ix.store.Search(ctx, queryVector, ix.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	evidence := make([]adaptive.Evidence, 0, len(matches))
	for _, match := range matches {
		evidence = append(evidence, adaptive.Evidence{
			Content: match.Text,
			Source:  match.Source,
		})
	}
	ix.logger.Debug("index queried", "matches", len(evidence))
	return evidence, nil
}

// Count reports how many fragments the index currently holds.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}

// Clear removes every fragment from the index.
func (ix *Index) Clear(ctx context.Context) error {
	return ix.store.Clear(ctx)
}
