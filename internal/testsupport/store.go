package testsupport

import (
	"context"
	"testing"

	"trawl/internal/config"
	"trawl/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...queue.Option) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddItems enqueues ids of one kind and fails the test on error.
func AddItems(t testing.TB, store *queue.Store, kind queue.Kind, ids ...string) {
	t.Helper()

	if _, err := store.AddMany(context.Background(), ids, kind, ""); err != nil {
		t.Fatalf("store.AddMany: %v", err)
	}
}

// MustGet fetches an item that must exist.
func MustGet(t testing.TB, store *queue.Store, id string) *queue.Item {
	t.Helper()

	item, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Get(%s): %v", id, err)
	}
	if item == nil {
		t.Fatalf("store.Get(%s): item missing", id)
	}
	return item
}
