package testsupport

import (
	"context"
	"testing"

	"clipper/internal/config"
	"clipper/internal/store"
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

// MustEnsureVideo creates or fetches a video row for tests.
func MustEnsureVideo(t testing.TB, st *store.Store, uid, title string, duration float64) int64 {
	t.Helper()

	id, err := st.EnsureVideo(context.Background(), uid, title, "", duration)
	if err != nil {
		t.Fatalf("store.EnsureVideo: %v", err)
	}
	return id
}
