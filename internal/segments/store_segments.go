package segments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voicetag/internal/services"
)

// ReplaceSegments clears the segment table and inserts records in order.
// Used after transcription, which defines segment identity for the run.
func (s *Store) ReplaceSegments(ctx context.Context, records []SegmentRecord) error {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace segments: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segment_records"); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM segment_scores"); err != nil {
		return fmt.Errorf("clear scores: %w", err)
	}

	now := timestamp()
	for _, record := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segment_records (id, start_time, end_time, text, clip_path, speaker_id, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, record.StartTime, record.EndTime, record.Text,
			record.ClipPath, record.SpeakerID, now, now,
		); err != nil {
			return fmt.Errorf("insert segment %d: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace segments: %w", err)
	}
	return nil
}

// replaceSegmentsKeepScores swaps the segment table for records while
// keeping recorded scores for segment ids that survive the swap. Scores for
// ids no longer present are removed.
func (s *Store) replaceSegmentsKeepScores(ctx context.Context, records []SegmentRecord) error {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace segments: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segment_records"); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}

	now := timestamp()
	for _, record := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segment_records (id, start_time, end_time, text, clip_path, speaker_id, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, record.StartTime, record.EndTime, record.Text,
			record.ClipPath, record.SpeakerID, now, now,
		); err != nil {
			return fmt.Errorf("insert segment %d: %w", record.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM segment_scores WHERE segment_id NOT IN (SELECT id FROM segment_records)",
	); err != nil {
		return fmt.Errorf("prune stale scores: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace segments: %w", err)
	}
	return nil
}

// ListSegments returns all segments ordered by id.
func (s *Store) ListSegments(ctx context.Context) ([]SegmentRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_time, end_time, text, clip_path, speaker_id
         FROM segment_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var records []SegmentRecord
	for rows.Next() {
		var record SegmentRecord
		if err := rows.Scan(&record.ID, &record.StartTime, &record.EndTime,
			&record.Text, &record.ClipPath, &record.SpeakerID); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetSegment returns a single segment by id.
func (s *Store) GetSegment(ctx context.Context, id int64) (SegmentRecord, error) {
	ctx = ensureContext(ctx)
	var record SegmentRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, text, clip_path, speaker_id
         FROM segment_records WHERE id = ?`, id,
	).Scan(&record.ID, &record.StartTime, &record.EndTime,
		&record.Text, &record.ClipPath, &record.SpeakerID)
	if errors.Is(err, sql.ErrNoRows) {
		return record, services.Wrap(services.ErrNotFound, "state", "get-segment",
			fmt.Sprintf("segment %d not found", id), nil)
	}
	if err != nil {
		return record, fmt.Errorf("get segment %d: %w", id, err)
	}
	return record, nil
}

// SetSegmentSpeaker records or clears the speaker assignment for a segment.
func (s *Store) SetSegmentSpeaker(ctx context.Context, id int64, speakerID string) error {
	return s.updateSegmentColumn(ctx, id, "speaker_id", speakerID)
}

// SetSegmentText replaces the transcript text of a segment.
func (s *Store) SetSegmentText(ctx context.Context, id int64, text string) error {
	return s.updateSegmentColumn(ctx, id, "text", text)
}

func (s *Store) updateSegmentColumn(ctx context.Context, id int64, column, value string) error {
	ctx = ensureContext(ctx)
	query := fmt.Sprintf("UPDATE segment_records SET %s = ?, updated_at = ? WHERE id = ?", column)
	res, err := s.db.ExecContext(ctx, query, value, timestamp(), id)
	if err != nil {
		return fmt.Errorf("update segment %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "state", "update-segment",
			fmt.Sprintf("segment %d not found", id), nil)
	}
	return nil
}

// InsertSegment adds a segment after the next free id and returns it.
// Used by the review surface when a human splits or adds a segment.
func (s *Store) InsertSegment(ctx context.Context, record SegmentRecord) (SegmentRecord, error) {
	ctx = ensureContext(ctx)
	if record.ID == 0 {
		var maxID sql.NullInt64
		if err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM segment_records").Scan(&maxID); err != nil {
			return record, fmt.Errorf("next segment id: %w", err)
		}
		record.ID = maxID.Int64 + 1
	}
	now := timestamp()
	err := s.execWithRetry(ctx,
		`INSERT INTO segment_records (id, start_time, end_time, text, clip_path, speaker_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.StartTime, record.EndTime, record.Text,
		record.ClipPath, record.SpeakerID, now, now)
	if err != nil {
		return record, fmt.Errorf("insert segment: %w", err)
	}
	return record, nil
}

// DeleteSegment removes a segment and its scores.
func (s *Store) DeleteSegment(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete segment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM segment_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete segment %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "state", "delete-segment",
			fmt.Sprintf("segment %d not found", id), nil)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM segment_scores WHERE segment_id = ?", id); err != nil {
		return fmt.Errorf("delete scores for segment %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete segment: %w", err)
	}
	return nil
}
