package testsupport

import (
	"testing"

	"mediaforge/internal/queue"
)

// MustOpenStore opens an in-memory queue.Store for tests and registers
// cleanup.
func MustOpenStore(t testing.TB) *queue.Store {
	t.Helper()

	store, err := queue.Open("")
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
