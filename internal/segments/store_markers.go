package segments

import (
	"context"
	"fmt"
)

// MarkStageDone records that a pipeline stage has completed successfully.
// Marking is the last step of a stage so a crash before it replays the
// whole stage on the next run.
func (s *Store) MarkStageDone(ctx context.Context, stage string) error {
	return s.execWithRetry(ctx,
		`INSERT INTO stage_markers (stage, completed_at) VALUES (?, ?)
         ON CONFLICT(stage) DO UPDATE SET completed_at = excluded.completed_at`,
		stage, timestamp())
}

// StageDone reports whether a stage has a completion marker.
func (s *Store) StageDone(ctx context.Context, stage string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM stage_markers WHERE stage = ?", stage,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check stage marker %s: %w", stage, err)
	}
	return count > 0, nil
}

// ClearStageMarker removes a stage marker so the stage reruns. Markers for
// stages that depend on the cleared one should be cleared by the caller.
func (s *Store) ClearStageMarker(ctx context.Context, stage string) error {
	return s.execWithRetry(ctx, "DELETE FROM stage_markers WHERE stage = ?", stage)
}

// StageMarkers returns completion timestamps keyed by stage name.
func (s *Store) StageMarkers(ctx context.Context) (map[string]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT stage, completed_at FROM stage_markers")
	if err != nil {
		return nil, fmt.Errorf("list stage markers: %w", err)
	}
	defer rows.Close()

	markers := make(map[string]string)
	for rows.Next() {
		var stage, completedAt string
		if err := rows.Scan(&stage, &completedAt); err != nil {
			return nil, fmt.Errorf("scan stage marker: %w", err)
		}
		markers[stage] = completedAt
	}
	return markers, rows.Err()
}
