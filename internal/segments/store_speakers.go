package segments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"voicetag/internal/services"
)

// SyncSpeakers reconciles the speakers table with the configured speaker
// list. Position follows the configured order. Speakers no longer in the
// configuration are removed along with their scores.
func (s *Store) SyncSpeakers(ctx context.Context, ids []string) error {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync speakers: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	known := make(map[string]bool, len(ids))
	for position, id := range ids {
		known[id] = true
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO speakers (id, position) VALUES (?, ?)
             ON CONFLICT(id) DO UPDATE SET position = excluded.position`,
			id, position,
		); err != nil {
			return fmt.Errorf("upsert speaker %s: %w", id, err)
		}
	}

	rows, err := tx.QueryContext(ctx, "SELECT id FROM speakers")
	if err != nil {
		return fmt.Errorf("list speakers: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan speaker id: %w", err)
		}
		if !known[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, "DELETE FROM speakers WHERE id = ?", id); err != nil {
			return fmt.Errorf("remove speaker %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM segment_scores WHERE speaker_id = ?", id); err != nil {
			return fmt.Errorf("remove scores for speaker %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync speakers: %w", err)
	}
	return nil
}

// ListSpeakers returns all speakers in configuration order.
func (s *Store) ListSpeakers(ctx context.Context) ([]Speaker, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position, reference_segments, sample_path
         FROM speakers ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	defer rows.Close()

	var speakers []Speaker
	for rows.Next() {
		var speaker Speaker
		var refs string
		if err := rows.Scan(&speaker.ID, &speaker.Position,
			&refs, &speaker.SamplePath); err != nil {
			return nil, fmt.Errorf("scan speaker: %w", err)
		}
		if speaker.ReferenceSegments, err = decodeReferences(speaker.ID, refs); err != nil {
			return nil, err
		}
		speakers = append(speakers, speaker)
	}
	return speakers, rows.Err()
}

// GetSpeaker returns one speaker by id.
func (s *Store) GetSpeaker(ctx context.Context, id string) (Speaker, error) {
	ctx = ensureContext(ctx)
	var speaker Speaker
	var refs string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, position, reference_segments, sample_path
         FROM speakers WHERE id = ?`, id,
	).Scan(&speaker.ID, &speaker.Position, &refs, &speaker.SamplePath)
	if errors.Is(err, sql.ErrNoRows) {
		return speaker, services.Wrap(services.ErrNotFound, "state", "get-speaker",
			fmt.Sprintf("speaker %s not found", id), nil)
	}
	if err != nil {
		return speaker, fmt.Errorf("get speaker %s: %w", id, err)
	}
	if speaker.ReferenceSegments, err = decodeReferences(id, refs); err != nil {
		return speaker, err
	}
	return speaker, nil
}

func decodeReferences(speakerID, refs string) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal([]byte(refs), &ids); err != nil {
		return nil, services.Wrap(services.ErrState, "state", "decode-references",
			fmt.Sprintf("speaker %s has corrupt reference segment list", speakerID), err)
	}
	return ids, nil
}

// SetSpeakerReference records the matched reference segments, one per
// utterance in utterance order, and the assembled sample path for a
// speaker. An empty path marks the speaker as excluded from scoring.
func (s *Store) SetSpeakerReference(ctx context.Context, id string, referenceSegments []int64, samplePath string) error {
	ctx = ensureContext(ctx)
	if referenceSegments == nil {
		referenceSegments = []int64{}
	}
	refs, err := json.Marshal(referenceSegments)
	if err != nil {
		return fmt.Errorf("encode references for %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE speakers SET reference_segments = ?, sample_path = ? WHERE id = ?",
		string(refs), samplePath, id)
	if err != nil {
		return fmt.Errorf("update speaker %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "state", "set-speaker-reference",
			fmt.Sprintf("speaker %s not found", id), nil)
	}
	return nil
}
