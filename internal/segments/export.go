package segments

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"voicetag/internal/services"
)

// ExportLabels writes the current segment assignments as a JSON array to
// path. The file is written atomically via a rename.
func (s *Store) ExportLabels(ctx context.Context, path string) error {
	records, err := s.ListSegments(ctx)
	if err != nil {
		return err
	}

	labeled := make([]LabeledSegment, 0, len(records))
	for _, record := range records {
		labeled = append(labeled, LabeledSegment{
			ID:        record.ID,
			StartTime: record.StartTime,
			EndTime:   record.EndTime,
			Text:      record.Text,
			Speaker:   record.SpeakerID,
		})
	}

	data, err := json.MarshalIndent(labeled, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure export dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write labels: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize labels: %w", err)
	}
	return nil
}

// ImportLabels replaces the segment table with the contents of a labels
// JSON file, typically one saved from the review surface. Recorded scores
// are kept for segment ids that survive the import, so a later aggregate
// replay still works from the machine scores. That replay re-derives
// assignments from those scores, which overwrites imported manual speaker
// labels; keep a copy of the labels file if the corrections matter.
func (s *Store) ImportLabels(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read labels: %w", err)
	}

	var labeled []LabeledSegment
	if err := json.Unmarshal(data, &labeled); err != nil {
		return services.Wrap(services.ErrValidation, "state", "import-labels",
			fmt.Sprintf("labels file %s is not valid JSON", path), err)
	}

	// Clip paths are not part of the exchange format, so carry over the
	// existing ones for segments that survive the import.
	existing, err := s.ListSegments(ctx)
	if err != nil {
		return err
	}
	clipPaths := make(map[int64]string, len(existing))
	for _, record := range existing {
		clipPaths[record.ID] = record.ClipPath
	}

	records := make([]SegmentRecord, 0, len(labeled))
	for _, entry := range labeled {
		records = append(records, SegmentRecord{
			ID:        entry.ID,
			StartTime: entry.StartTime,
			EndTime:   entry.EndTime,
			Text:      entry.Text,
			ClipPath:  clipPaths[entry.ID],
			SpeakerID: entry.Speaker,
		})
	}
	return s.replaceSegmentsKeepScores(ctx, records)
}
