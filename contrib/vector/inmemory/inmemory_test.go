package inmemory

import (
	"context"
	"testing"

	"github.com/sweetpotato0/adaptive-rag/vector"
)

func TestAddAndCount(t *testing.T) {
	ctx := context.Background()
	store := New()

	err := store.Add(ctx, &vector.Embedding{ID: "a", Vector: []float32{1, 0}, Text: "alpha"})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 embedding, got %d", count)
	}
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	store := New()

	if err := store.Add(ctx, nil); err == nil {
		t.Errorf("expected error for nil embedding")
	}
	if err := store.Add(ctx, &vector.Embedding{Vector: []float32{1}}); err == nil {
		t.Errorf("expected error for empty ID")
	}
	if err := store.Add(ctx, &vector.Embedding{ID: "x"}); err == nil {
		t.Errorf("expected error for empty vector")
	}
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	store := New()

	embeddings := []*vector.Embedding{
		{ID: "exact", Vector: []float32{1, 0}, Text: "exact match"},
		{ID: "close", Vector: []float32{0.9, 0.1}, Text: "close match"},
		{ID: "far", Vector: []float32{0, 1}, Text: "far away"},
	}
	for _, emb := range embeddings {
		if err := store.Add(ctx, emb); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	results, err := store.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "exact" {
		t.Errorf("expected 'exact' first, got %q", results[0].ID)
	}
	if results[1].ID != "close" {
		t.Errorf("expected 'close' second, got %q", results[1].ID)
	}
}

func TestSearchSkipsMismatchedDimensions(t *testing.T) {
	ctx := context.Background()
	store := New()

	store.Add(ctx, &vector.Embedding{ID: "good", Vector: []float32{1, 0}})
	store.Add(ctx, &vector.Embedding{ID: "bad", Vector: []float32{1, 0, 0}})

	results, err := store.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "good" {
		t.Errorf("expected only the matching-dimension embedding, got %d results", len(results))
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := New()

	store.Add(ctx, &vector.Embedding{ID: "a", Vector: []float32{1}})
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("expected empty store after Clear, got %d", count)
	}
}
