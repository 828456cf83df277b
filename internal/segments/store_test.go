package segments_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"voicetag/internal/segments"
	"voicetag/internal/services"
)

func openStore(t *testing.T) *segments.Store {
	t.Helper()
	store, err := segments.OpenPath(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedSegments(t *testing.T, store *segments.Store) []segments.SegmentRecord {
	t.Helper()
	records := []segments.SegmentRecord{
		{ID: 0, StartTime: 0, EndTime: 2.5, Text: "hello there", ClipPath: "seg0.wav"},
		{ID: 1, StartTime: 2.5, EndTime: 5, Text: "hi hello", ClipPath: "seg1.wav"},
		{ID: 2, StartTime: 5, EndTime: 9, Text: "let us begin", ClipPath: "seg2.wav"},
	}
	if err := store.ReplaceSegments(context.Background(), records); err != nil {
		t.Fatalf("replace segments: %v", err)
	}
	return records
}

func TestSegmentsRoundTrip(t *testing.T) {
	store := openStore(t)
	want := seedSegments(t, store)

	got, err := store.ListSegments(context.Background())
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestSetSegmentSpeaker(t *testing.T) {
	store := openStore(t)
	seedSegments(t, store)
	ctx := context.Background()

	if err := store.SetSegmentSpeaker(ctx, 1, "alice"); err != nil {
		t.Fatalf("set speaker: %v", err)
	}
	record, err := store.GetSegment(ctx, 1)
	if err != nil {
		t.Fatalf("get segment: %v", err)
	}
	if record.SpeakerID != "alice" {
		t.Fatalf("expected alice, got %q", record.SpeakerID)
	}

	err = store.SetSegmentSpeaker(ctx, 99, "alice")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestScoresRankedPerSegment(t *testing.T) {
	store := openStore(t)
	seedSegments(t, store)
	ctx := context.Background()

	ranked := []segments.Score{
		{SegmentID: 0, SpeakerID: "alice", Score: 0.9},
		{SegmentID: 0, SpeakerID: "bob", Score: 0.2},
	}
	if err := store.SaveScores(ctx, 0, ranked); err != nil {
		t.Fatalf("save scores: %v", err)
	}
	if err := store.SaveScores(ctx, 1, nil); err != nil {
		t.Fatalf("save empty scores: %v", err)
	}

	scores, err := store.ScoresForSegment(ctx, 0)
	if err != nil {
		t.Fatalf("scores for segment: %v", err)
	}
	if len(scores) != 2 || scores[0].SpeakerID != "alice" || scores[0].Rank != 0 {
		t.Fatalf("unexpected ranked scores: %+v", scores)
	}

	all, err := store.AllScores(ctx)
	if err != nil {
		t.Fatalf("all scores: %v", err)
	}
	if len(all[0]) != 2 || len(all[1]) != 0 {
		t.Fatalf("unexpected score map: %+v", all)
	}
}

func TestSpeakersFollowConfiguredOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.SyncSpeakers(ctx, []string{"alice", "bob"}); err != nil {
		t.Fatalf("sync speakers: %v", err)
	}
	if err := store.SetSpeakerReference(ctx, "bob", []int64{1, 2}, "/tmp/bob.wav"); err != nil {
		t.Fatalf("set reference: %v", err)
	}

	speakers, err := store.ListSpeakers(ctx)
	if err != nil {
		t.Fatalf("list speakers: %v", err)
	}
	if len(speakers) != 2 || speakers[0].ID != "alice" || speakers[1].ID != "bob" {
		t.Fatalf("unexpected speaker order: %+v", speakers)
	}
	if speakers[0].HasSample() {
		t.Fatal("alice should have no sample yet")
	}
	refs := speakers[1].ReferenceSegments
	if !speakers[1].HasSample() || len(refs) != 2 || refs[0] != 1 || refs[1] != 2 {
		t.Fatalf("bob references not recorded: %+v", speakers[1])
	}

	// Removing a speaker from the configuration drops its state.
	if err := store.SyncSpeakers(ctx, []string{"bob"}); err != nil {
		t.Fatalf("resync speakers: %v", err)
	}
	speakers, err = store.ListSpeakers(ctx)
	if err != nil {
		t.Fatalf("list speakers: %v", err)
	}
	if len(speakers) != 1 || speakers[0].ID != "bob" {
		t.Fatalf("expected only bob, got %+v", speakers)
	}
}

func TestStageMarkers(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	done, err := store.StageDone(ctx, "transcribe")
	if err != nil {
		t.Fatalf("stage done: %v", err)
	}
	if done {
		t.Fatal("stage should not be done yet")
	}

	if err := store.MarkStageDone(ctx, "transcribe"); err != nil {
		t.Fatalf("mark stage done: %v", err)
	}
	done, err = store.StageDone(ctx, "transcribe")
	if err != nil {
		t.Fatalf("stage done: %v", err)
	}
	if !done {
		t.Fatal("stage should be done")
	}

	if err := store.ClearStageMarker(ctx, "transcribe"); err != nil {
		t.Fatalf("clear marker: %v", err)
	}
	done, _ = store.StageDone(ctx, "transcribe")
	if done {
		t.Fatal("stage marker should be cleared")
	}
}

func TestLabelsExportImportRoundTrip(t *testing.T) {
	store := openStore(t)
	seedSegments(t, store)
	ctx := context.Background()

	if err := store.SetSegmentSpeaker(ctx, 0, "alice"); err != nil {
		t.Fatalf("set speaker: %v", err)
	}

	path := filepath.Join(t.TempDir(), "labels.json")
	if err := store.ExportLabels(ctx, path); err != nil {
		t.Fatalf("export labels: %v", err)
	}
	if err := store.ImportLabels(ctx, path); err != nil {
		t.Fatalf("import labels: %v", err)
	}

	records, err := store.ListSegments(ctx)
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(records))
	}
	if records[0].SpeakerID != "alice" {
		t.Fatalf("speaker lost in round trip: %+v", records[0])
	}
	if records[0].ClipPath != "seg0.wav" {
		t.Fatalf("clip path lost in round trip: %+v", records[0])
	}
}

func TestImportLabelsKeepsScoresForSurvivingSegments(t *testing.T) {
	store := openStore(t)
	seedSegments(t, store)
	ctx := context.Background()

	if err := store.SaveScores(ctx, 0, []segments.Score{
		{SegmentID: 0, SpeakerID: "alice", Score: 0.9},
	}); err != nil {
		t.Fatalf("save scores: %v", err)
	}
	if err := store.SaveScores(ctx, 2, []segments.Score{
		{SegmentID: 2, SpeakerID: "bob", Score: 0.4},
	}); err != nil {
		t.Fatalf("save scores: %v", err)
	}

	// Labels file keeps segments 0 and 1 but drops segment 2.
	labels := `[
      {"id": 0, "start_time": 0, "end_time": 2.5, "text": "hello there", "speaker": "alice"},
      {"id": 1, "start_time": 2.5, "end_time": 5, "text": "hi hello", "speaker": ""}
    ]`
	path := filepath.Join(t.TempDir(), "labels.json")
	if err := os.WriteFile(path, []byte(labels), 0o644); err != nil {
		t.Fatalf("write labels: %v", err)
	}

	if err := store.ImportLabels(ctx, path); err != nil {
		t.Fatalf("import labels: %v", err)
	}

	all, err := store.AllScores(ctx)
	if err != nil {
		t.Fatalf("all scores: %v", err)
	}
	if len(all[0]) != 1 || all[0][0].Score != 0.9 {
		t.Fatalf("scores for surviving segment lost: %+v", all[0])
	}
	if len(all[2]) != 0 {
		t.Fatalf("scores for dropped segment should be pruned: %+v", all[2])
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	store, err := segments.OpenPath(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 999"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	_, err = segments.OpenPath(path)
	if !errors.Is(err, services.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestOpenFailsOnCorruptDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	if err := os.WriteFile(path, []byte("this is not a sqlite database at all"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, err := segments.OpenPath(path); err == nil {
		t.Fatal("expected error opening corrupt database")
	}
}
