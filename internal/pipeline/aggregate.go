package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"voicetag/internal/assign"
	"voicetag/internal/config"
	"voicetag/internal/logging"
	"voicetag/internal/segments"
	"voicetag/internal/services"
)

// SpeakerInfo is the persisted per-speaker aggregate. Utterances mirrors
// Segments with the accepted transcript text in segment order.
type SpeakerInfo struct {
	ID                string   `json:"id"`
	ReferenceSegments []int64  `json:"reference_segments"`
	SamplePath        string   `json:"sample_path"`
	Segments          []int64  `json:"segments"`
	Utterances        []string `json:"predicted_utterances"`
}

type aggregateStage struct {
	cfg    *config.Config
	store  *segments.Store
	logger *slog.Logger
}

func (s *aggregateStage) Name() string { return "aggregate" }

func (s *aggregateStage) Prepare(ctx context.Context, run *Run) error { return nil }

func (s *aggregateStage) Execute(ctx context.Context, run *Run) error {
	aggregates, err := assign.BuildAggregates(ctx, s.store, s.cfg.Scoring.Threshold)
	if err != nil {
		return err
	}

	speakers, err := s.store.ListSpeakers(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]segments.Speaker, len(speakers))
	for _, speaker := range speakers {
		byID[speaker.ID] = speaker
	}

	info := make([]SpeakerInfo, 0, len(aggregates))
	for _, aggregate := range aggregates {
		speaker := byID[aggregate.SpeakerID]
		entry := SpeakerInfo{
			ID:                aggregate.SpeakerID,
			ReferenceSegments: speaker.ReferenceSegments,
			SamplePath:        speaker.SamplePath,
			Segments:          aggregate.SegmentIDs,
			Utterances:        aggregate.Utterances,
		}
		if entry.ReferenceSegments == nil {
			entry.ReferenceSegments = []int64{}
		}
		if entry.Segments == nil {
			entry.Segments = []int64{}
		}
		if entry.Utterances == nil {
			entry.Utterances = []string{}
		}
		info = append(info, entry)
	}

	if err := writeSpeakerInfo(s.cfg.SpeakerInfoPath(), info); err != nil {
		return err
	}
	s.logger.Info("aggregates written",
		logging.String(logging.FieldStage, s.Name()),
		logging.Int("speakers", len(info)))
	return nil
}

func (s *aggregateStage) HealthCheck(ctx context.Context) Health {
	return Healthy(s.Name())
}

func writeSpeakerInfo(path string, info []SpeakerInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal speaker info: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write speaker info: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize speaker info: %w", err)
	}
	return nil
}

// ReadSpeakerInfo loads the persisted aggregates, failing loudly when the
// file cannot be parsed.
func ReadSpeakerInfo(path string) ([]SpeakerInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read speaker info: %w", err)
	}
	var info []SpeakerInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, services.Wrap(services.ErrState, "aggregate", "read-speaker-info",
			fmt.Sprintf("speaker info %s is corrupt", path), err)
	}
	return info, nil
}
