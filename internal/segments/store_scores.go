package segments

import (
	"context"
	"fmt"
)

// SaveScores replaces the ranked score list for one segment. The slice is
// expected in rank order; an empty slice records that the segment was scored
// and produced no candidates.
func (s *Store) SaveScores(ctx context.Context, segmentID int64, scores []Score) error {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save scores: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segment_scores WHERE segment_id = ?", segmentID); err != nil {
		return fmt.Errorf("clear scores for segment %d: %w", segmentID, err)
	}
	for rank, score := range scores {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO segment_scores (segment_id, speaker_id, score, rank) VALUES (?, ?, ?, ?)",
			segmentID, score.SpeakerID, score.Score, rank,
		); err != nil {
			return fmt.Errorf("insert score for segment %d speaker %s: %w", segmentID, score.SpeakerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save scores: %w", err)
	}
	return nil
}

// ScoresForSegment returns the ranked scores recorded for a segment,
// best first.
func (s *Store) ScoresForSegment(ctx context.Context, segmentID int64) ([]Score, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment_id, speaker_id, score, rank
         FROM segment_scores WHERE segment_id = ? ORDER BY rank`, segmentID)
	if err != nil {
		return nil, fmt.Errorf("scores for segment %d: %w", segmentID, err)
	}
	defer rows.Close()
	return scanScores(rows)
}

// AllScores returns every recorded score keyed by segment, ranked best
// first within each segment.
func (s *Store) AllScores(ctx context.Context) (map[int64][]Score, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment_id, speaker_id, score, rank
         FROM segment_scores ORDER BY segment_id, rank`)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	scores, err := scanScores(rows)
	if err != nil {
		return nil, err
	}
	bySegment := make(map[int64][]Score)
	for _, score := range scores {
		bySegment[score.SegmentID] = append(bySegment[score.SegmentID], score)
	}
	return bySegment, nil
}

type scoreRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanScores(rows scoreRows) ([]Score, error) {
	var scores []Score
	for rows.Next() {
		var score Score
		if err := rows.Scan(&score.SegmentID, &score.SpeakerID, &score.Score, &score.Rank); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}
