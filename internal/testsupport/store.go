package testsupport

import (
	"context"
	"testing"

	"voicetag/internal/config"
	"voicetag/internal/segments"
)

// MustOpenStore opens a segments.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *segments.Store {
	t.Helper()

	store, err := segments.Open(cfg)
	if err != nil {
		t.Fatalf("segments.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedSegments replaces the store's segment table and seeds the configured
// speakers for tests.
func SeedSegments(t testing.TB, cfg *config.Config, store *segments.Store, records []segments.SegmentRecord) {
	t.Helper()

	ctx := context.Background()
	if err := store.ReplaceSegments(ctx, records); err != nil {
		t.Fatalf("ReplaceSegments: %v", err)
	}
	ids := make([]string, 0, len(cfg.Speakers))
	for _, speaker := range cfg.Speakers {
		ids = append(ids, speaker.ID)
	}
	if err := store.SyncSpeakers(ctx, ids); err != nil {
		t.Fatalf("SyncSpeakers: %v", err)
	}
}
