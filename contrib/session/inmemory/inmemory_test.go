package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/sweetpotato0/adaptive-rag/message"
	"github.com/sweetpotato0/adaptive-rag/session"
)

func testRecord(id string) *session.Record {
	return &session.Record{
		ID:        id,
		State:     session.StateActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages: []*message.Message{
			message.NewMessage(message.RoleUser, "hello"),
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Save(ctx, testRecord("s1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ID != "s1" || len(loaded.Messages) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}

	// The store must hand out copies, not its own record.
	loaded.Messages[0].Content = "mutated"
	again, _ := store.Load(ctx, "s1")
	if again.Messages[0].Content != "hello" {
		t.Error("store record was mutated through a loaded copy")
	}
}

func TestStoreDeleteAndList(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.Save(ctx, testRecord("a"))
	store.Save(ctx, testRecord("b"))

	ids, err := store.List(ctx)
	if err != nil || len(ids) != 2 {
		t.Fatalf("List() = %v, %v", ids, err)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "a"); err == nil {
		t.Error("Delete() of a missing record did not fail")
	}
	if _, err := store.Load(ctx, "a"); err == nil {
		t.Error("Load() of a deleted record did not fail")
	}
}

func TestStoreRejectsNilRecord(t *testing.T) {
	store := New()
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save() accepted a nil record")
	}
}
