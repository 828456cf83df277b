package scoring_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"voicetag/internal/scoring"
	"voicetag/internal/segments"
	"voicetag/internal/testsupport"
)

type stubScorer struct {
	mu     sync.Mutex
	scores map[string]float64
	fail   map[string]bool
	calls  int
}

func pairKey(clip, sample string) string {
	return clip + "|" + sample
}

func (s *stubScorer) Verify(ctx context.Context, clip, sample string) (float64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	key := pairKey(clip, sample)
	if s.fail[key] {
		return 0, errors.New("unprocessable input")
	}
	if score, ok := s.scores[key]; ok {
		return score, nil
	}
	return 0.1, nil
}

func setupScoring(t *testing.T) (*segments.Store, []segments.SegmentRecord) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	records := []segments.SegmentRecord{
		{ID: 0, Text: "hello there friend", ClipPath: "seg0.wav"},
		{ID: 1, Text: "goodbye for now", ClipPath: "seg1.wav"},
		{ID: 2, Text: "unrelated noise", ClipPath: "seg2.wav"},
	}
	testsupport.SeedSegments(t, cfg, store, records)

	ctx := context.Background()
	if err := store.SetSpeakerReference(ctx, "alice", []int64{0}, "alice.wav"); err != nil {
		t.Fatalf("set alice reference: %v", err)
	}
	if err := store.SetSpeakerReference(ctx, "bob", []int64{1}, "bob.wav"); err != nil {
		t.Fatalf("set bob reference: %v", err)
	}
	return store, records
}

func TestScoreAllRanksDescending(t *testing.T) {
	store, _ := setupScoring(t)
	stub := &stubScorer{scores: map[string]float64{
		pairKey("seg0.wav", "alice.wav"): 0.9,
		pairKey("seg1.wav", "bob.wav"):   0.9,
		pairKey("seg2.wav", "alice.wav"): 0.05,
		pairKey("seg2.wav", "bob.wav"):   0.05,
	}}

	scorer := scoring.NewScorer(store, stub, 1, nil)
	if err := scorer.ScoreAll(context.Background()); err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}

	ctx := context.Background()
	scores, err := store.ScoresForSegment(ctx, 0)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected a score per sampled speaker, got %d", len(scores))
	}
	if scores[0].SpeakerID != "alice" || scores[0].Score != 0.9 {
		t.Fatalf("expected alice ranked first for segment 0: %+v", scores)
	}
	for i := 1; i < len(scores); i++ {
		if scores[i].Score > scores[i-1].Score {
			t.Fatalf("scores not descending: %+v", scores)
		}
	}
	if stub.calls != 6 {
		t.Fatalf("expected 6 pair calls, got %d", stub.calls)
	}
}

func TestScoreAllTieKeepsDeclarationOrder(t *testing.T) {
	store, _ := setupScoring(t)
	stub := &stubScorer{} // every pair scores 0.1

	scorer := scoring.NewScorer(store, stub, 1, nil)
	if err := scorer.ScoreAll(context.Background()); err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}

	scores, err := store.ScoresForSegment(context.Background(), 2)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if len(scores) != 2 || scores[0].SpeakerID != "alice" || scores[1].SpeakerID != "bob" {
		t.Fatalf("tie should keep configured order: %+v", scores)
	}
}

func TestScoreAllSkipsFailedPairs(t *testing.T) {
	store, _ := setupScoring(t)
	stub := &stubScorer{
		scores: map[string]float64{pairKey("seg1.wav", "alice.wav"): 0.3},
		fail:   map[string]bool{pairKey("seg1.wav", "bob.wav"): true},
	}

	scorer := scoring.NewScorer(store, stub, 1, nil)
	if err := scorer.ScoreAll(context.Background()); err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}

	ctx := context.Background()
	failed, err := store.ScoresForSegment(ctx, 1)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	clean, err := store.ScoresForSegment(ctx, 0)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if len(failed) != len(clean)-1 {
		t.Fatalf("failed pair should shorten the list by one: failed=%d clean=%d", len(failed), len(clean))
	}
	if failed[0].SpeakerID != "alice" || failed[0].Score != 0.3 {
		t.Fatalf("surviving pair missing: %+v", failed)
	}
}

func TestScoreAllEmptyListRecordedOnTotalFailure(t *testing.T) {
	store, _ := setupScoring(t)
	stub := &stubScorer{fail: map[string]bool{
		pairKey("seg2.wav", "alice.wav"): true,
		pairKey("seg2.wav", "bob.wav"):   true,
	}}

	scorer := scoring.NewScorer(store, stub, 1, nil)
	if err := scorer.ScoreAll(context.Background()); err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}

	all, err := store.AllScores(context.Background())
	if err != nil {
		t.Fatalf("all scores: %v", err)
	}
	if len(all[2]) != 0 {
		t.Fatalf("expected empty ranked list for segment 2, got %+v", all[2])
	}
	// Segments 0 and 1 still scored.
	if len(all[0]) != 2 || len(all[1]) != 2 {
		t.Fatalf("other segments should score cleanly: %+v", all)
	}
}

func TestScoreAllParallelManySegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	records := make([]segments.SegmentRecord, 0, 200)
	for i := 0; i < 200; i++ {
		records = append(records, segments.SegmentRecord{
			ID:       int64(i),
			Text:     fmt.Sprintf("segment %d", i),
			ClipPath: fmt.Sprintf("seg%d.wav", i),
		})
	}
	testsupport.SeedSegments(t, cfg, store, records)

	ctx := context.Background()
	if err := store.SetSpeakerReference(ctx, "alice", []int64{0}, "alice.wav"); err != nil {
		t.Fatalf("set alice reference: %v", err)
	}
	if err := store.SetSpeakerReference(ctx, "bob", []int64{1}, "bob.wav"); err != nil {
		t.Fatalf("set bob reference: %v", err)
	}

	scorer := scoring.NewScorer(store, &stubScorer{}, 4, nil)
	if err := scorer.ScoreAll(ctx); err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}

	all, err := store.AllScores(ctx)
	if err != nil {
		t.Fatalf("all scores: %v", err)
	}
	if len(all) != len(records) {
		t.Fatalf("expected %d scored segments, got %d", len(records), len(all))
	}
	for id, scores := range all {
		if len(scores) != 2 {
			t.Fatalf("segment %d missing scores: %+v", id, scores)
		}
	}
}

func TestScoreAllParallelAllPairsFailing(t *testing.T) {
	store, records := setupScoring(t)
	fail := make(map[string]bool)
	for _, record := range records {
		fail[pairKey(record.ClipPath, "alice.wav")] = true
		fail[pairKey(record.ClipPath, "bob.wav")] = true
	}

	scorer := scoring.NewScorer(store, &stubScorer{fail: fail}, 4, nil)
	if err := scorer.ScoreAll(context.Background()); err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}

	all, err := store.AllScores(context.Background())
	if err != nil {
		t.Fatalf("all scores: %v", err)
	}
	for _, record := range records {
		if len(all[record.ID]) != 0 {
			t.Fatalf("segment %d should record an empty list: %+v", record.ID, all[record.ID])
		}
	}
}

func TestScoreAllParallelMatchesSerial(t *testing.T) {
	scores := map[string]float64{}
	for seg := 0; seg < 3; seg++ {
		scores[pairKey(fmt.Sprintf("seg%d.wav", seg), "alice.wav")] = 0.2 + float64(seg)*0.1
	}

	run := func(workers int) map[int64][]segments.Score {
		store, _ := setupScoring(t)
		stub := &stubScorer{scores: scores}
		scorer := scoring.NewScorer(store, stub, workers, nil)
		if err := scorer.ScoreAll(context.Background()); err != nil {
			t.Fatalf("ScoreAll(workers=%d): %v", workers, err)
		}
		all, err := store.AllScores(context.Background())
		if err != nil {
			t.Fatalf("all scores: %v", err)
		}
		return all
	}

	serial := run(1)
	parallel := run(4)
	if len(serial) != len(parallel) {
		t.Fatalf("segment coverage differs: %d vs %d", len(serial), len(parallel))
	}
	for id, want := range serial {
		got := parallel[id]
		if len(got) != len(want) {
			t.Fatalf("segment %d list length differs", id)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("segment %d rank %d differs: %+v vs %+v", id, i, got[i], want[i])
			}
		}
	}
}
