package scoring

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"voicetag/internal/logging"
	"voicetag/internal/segments"
)

// PairScorer produces a similarity score for one segment clip against one
// speaker reference sample. Higher scores mean a more likely match.
type PairScorer interface {
	Verify(ctx context.Context, segmentClip, referenceSample string) (float64, error)
}

// PairResult is the outcome of scoring one (segment, speaker) pair. A
// failed pair carries its reason instead of aborting the run.
type PairResult struct {
	SpeakerID string
	Score     float64
	Err       error
}

// Scorer runs the full segment-by-speaker scoring pass.
type Scorer struct {
	store   *segments.Store
	pairs   PairScorer
	logger  *slog.Logger
	workers int
}

func NewScorer(store *segments.Store, pairs PairScorer, workers int, logger *slog.Logger) *Scorer {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scorer{store: store, pairs: pairs, logger: logger, workers: workers}
}

// ScoreAll scores every segment against every speaker that has a reference
// sample and persists a ranked list per segment. Pair failures are logged
// and skipped; a segment whose pairs all fail is recorded with an empty
// list so the gap is visible in persisted state.
func (s *Scorer) ScoreAll(ctx context.Context) error {
	records, err := s.store.ListSegments(ctx)
	if err != nil {
		return err
	}
	speakers, err := s.store.ListSpeakers(ctx)
	if err != nil {
		return err
	}

	scorable := speakers[:0:0]
	for _, speaker := range speakers {
		if speaker.HasSample() {
			scorable = append(scorable, speaker)
		}
	}

	if s.workers == 1 || len(records) < 2 {
		for _, record := range records {
			ranked := s.rankSegment(ctx, record, scorable)
			if err := s.store.SaveScores(ctx, record.ID, ranked); err != nil {
				return err
			}
		}
		return nil
	}

	// Fan out across segments. Workers only run the verifier; ranked lists
	// come back over a channel and a single writer persists them, so the
	// store never sees concurrent write transactions. Workers always drain
	// the job channel, which keeps the producer from blocking on failure.
	type rankedSegment struct {
		id     int64
		scores []segments.Score
	}
	jobs := make(chan segments.SegmentRecord)
	results := make(chan rankedSegment)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				results <- rankedSegment{id: record.ID, scores: s.rankSegment(ctx, record, scorable)}
			}
		}()
	}
	go func() {
		for _, record := range records {
			jobs <- record
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var saveErr error
	for result := range results {
		if saveErr != nil {
			continue
		}
		if err := s.store.SaveScores(ctx, result.id, result.scores); err != nil {
			saveErr = err
		}
	}
	return saveErr
}

func (s *Scorer) rankSegment(ctx context.Context, record segments.SegmentRecord, speakers []segments.Speaker) []segments.Score {
	results := make([]PairResult, 0, len(speakers))
	for _, speaker := range speakers {
		score, err := s.pairs.Verify(ctx, record.ClipPath, speaker.SamplePath)
		results = append(results, PairResult{SpeakerID: speaker.ID, Score: score, Err: err})
	}

	ranked := make([]segments.Score, 0, len(results))
	for _, result := range results {
		if result.Err != nil {
			s.logger.Warn("pair scoring failed, skipping",
				logging.Int64(logging.FieldSegmentID, record.ID),
				logging.String(logging.FieldSpeakerID, result.SpeakerID),
				logging.Error(result.Err))
			continue
		}
		ranked = append(ranked, segments.Score{
			SegmentID: record.ID,
			SpeakerID: result.SpeakerID,
			Score:     result.Score,
		})
	}

	// Stable sort so equal scores keep speaker declaration order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i
	}
	return ranked
}
