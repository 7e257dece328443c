package testsupport

import (
	"context"
	"testing"

	"seqwork/internal/config"
	"seqwork/internal/store"
	"seqwork/internal/worktype"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustEnqueue inserts a queued instance for tests and fails unless a new row
// was created.
func MustEnqueue(t testing.TB, st *store.Store, key worktype.Key) *store.Instance {
	t.Helper()

	inst, disposition, err := st.InsertIfAbsent(context.Background(), key, key.Type.Repeatable())
	if err != nil {
		t.Fatalf("store.InsertIfAbsent: %v", err)
	}
	if disposition != store.DispositionCreated {
		t.Fatalf("expected new instance for %s, got %s", key, disposition)
	}
	return inst
}

// MustKey builds a canonical work key for tests.
func MustKey(t testing.TB, location, name string) worktype.Key {
	t.Helper()

	key, err := worktype.Normalize(location, name)
	if err != nil {
		t.Fatalf("worktype.Normalize: %v", err)
	}
	return key
}
