package refsample_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voicetag/internal/config"
	"voicetag/internal/refsample"
	"voicetag/internal/segments"
	"voicetag/internal/testsupport"
)

type fakeConcatenator struct {
	calls [][]string
	dests []string
}

func (f *fakeConcatenator) ConcatAudio(ctx context.Context, clips []string, dest string) error {
	f.calls = append(f.calls, append([]string(nil), clips...))
	f.dests = append(f.dests, dest)
	return os.WriteFile(dest, []byte("merged"), 0o644)
}

func seed(t *testing.T, cfg *config.Config) *segments.Store {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)

	clipDir := cfg.SegmentDir()
	records := []segments.SegmentRecord{
		{ID: 0, StartTime: 0, EndTime: 2, Text: "hello there everyone", ClipPath: filepath.Join(clipDir, "seg0.wav")},
		{ID: 1, StartTime: 2, EndTime: 4, Text: "hi hello", ClipPath: filepath.Join(clipDir, "seg1.wav")},
		{ID: 2, StartTime: 4, EndTime: 6, Text: "let us begin", ClipPath: filepath.Join(clipDir, "seg2.wav")},
	}
	testsupport.SeedSegments(t, cfg, store, records)
	for _, record := range records {
		testsupport.WriteFile(t, record.ClipPath, "clip")
	}
	return store
}

func TestBuildAssemblesSamplesPerSpeaker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := seed(t, cfg)
	concat := &fakeConcatenator{}

	builder := refsample.NewBuilder(cfg, store, concat, nil)
	results, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	alice := results[0]
	if alice.SpeakerID != "alice" || alice.Excluded {
		t.Fatalf("unexpected alice result: %+v", alice)
	}
	if len(alice.ReferenceSegments) != 1 || alice.ReferenceSegments[0] != 0 {
		t.Fatalf("unexpected alice references: %+v", alice.ReferenceSegments)
	}
	if !strings.HasSuffix(alice.SamplePath, "alice.wav") {
		t.Fatalf("unexpected sample path %q", alice.SamplePath)
	}

	bob := results[1]
	if len(bob.ReferenceSegments) != 1 || bob.ReferenceSegments[0] != 1 || bob.Excluded {
		t.Fatalf("unexpected bob result: %+v", bob)
	}

	speakers, err := store.ListSpeakers(context.Background())
	if err != nil {
		t.Fatalf("list speakers: %v", err)
	}
	if !speakers[0].HasSample() || len(speakers[0].ReferenceSegments) != 1 || speakers[0].ReferenceSegments[0] != 0 {
		t.Fatalf("alice state not persisted: %+v", speakers[0])
	}
}

func TestBuildRecordsReferencePerUtterance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSpeakers(
		config.Speaker{ID: "alice", Utterances: []string{"let us begin", "hello there"}},
	))
	store := seed(t, cfg)
	concat := &fakeConcatenator{}

	builder := refsample.NewBuilder(cfg, store, concat, nil)
	results, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// One matched segment per utterance, in utterance order.
	want := []int64{2, 0}
	got := results[0].ReferenceSegments
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected references %v, got %v", want, got)
	}
	if len(concat.calls) != 1 || len(concat.calls[0]) != 2 {
		t.Fatalf("expected both clips merged: %+v", concat.calls)
	}

	speaker, err := store.GetSpeaker(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get speaker: %v", err)
	}
	if len(speaker.ReferenceSegments) != 2 || speaker.ReferenceSegments[0] != 2 || speaker.ReferenceSegments[1] != 0 {
		t.Fatalf("reference list not persisted in order: %+v", speaker.ReferenceSegments)
	}
}

func TestBuildSkipsMissingClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	records := []segments.SegmentRecord{
		{ID: 0, Text: "hello there", ClipPath: filepath.Join(cfg.SegmentDir(), "gone.wav")},
		{ID: 1, Text: "hi hello", ClipPath: filepath.Join(cfg.SegmentDir(), "seg1.wav")},
	}
	testsupport.SeedSegments(t, cfg, store, records)
	testsupport.WriteFile(t, records[1].ClipPath, "clip")

	concat := &fakeConcatenator{}
	builder := refsample.NewBuilder(cfg, store, concat, nil)
	results, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Alice matched segment 0 whose clip is missing on disk: excluded.
	if !results[0].Excluded || results[0].SamplePath != "" {
		t.Fatalf("expected alice excluded, got %+v", results[0])
	}
	// Bob's clip exists and is merged.
	if results[1].Excluded {
		t.Fatalf("expected bob included, got %+v", results[1])
	}
	if len(concat.calls) != 1 {
		t.Fatalf("expected one merge, got %d", len(concat.calls))
	}

	speakers, err := store.ListSpeakers(context.Background())
	if err != nil {
		t.Fatalf("list speakers: %v", err)
	}
	if speakers[0].HasSample() {
		t.Fatalf("excluded speaker should have no sample: %+v", speakers[0])
	}
}
