package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"voicetag/internal/config"
	"voicetag/internal/logging"
	"voicetag/internal/media"
	"voicetag/internal/segments"
	"voicetag/internal/services"
)

// VideoRenderer cuts and joins time ranges of the source recording.
type VideoRenderer interface {
	ConcatVideoRanges(ctx context.Context, source string, ranges []media.TimeRange, dest string) error
}

type renderStage struct {
	cfg    *config.Config
	store  *segments.Store
	video  VideoRenderer
	logger *slog.Logger
}

func (s *renderStage) Name() string { return "render" }

func (s *renderStage) Prepare(ctx context.Context, run *Run) error {
	if _, err := os.Stat(run.Source); err != nil {
		return services.Wrap(services.ErrValidation, s.Name(), "prepare",
			"source recording required for rendering", err)
	}
	return nil
}

// Execute writes one merged video per speaker containing only that
// speaker's accepted segments, in segment order.
func (s *renderStage) Execute(ctx context.Context, run *Run) error {
	records, err := s.store.ListSegments(ctx)
	if err != nil {
		return err
	}
	speakers, err := s.store.ListSpeakers(ctx)
	if err != nil {
		return err
	}

	bySpeaker := make(map[string][]media.TimeRange)
	for _, record := range records {
		if record.SpeakerID == "" {
			continue
		}
		bySpeaker[record.SpeakerID] = append(bySpeaker[record.SpeakerID], media.TimeRange{
			Start: record.StartTime,
			End:   record.EndTime,
		})
	}

	finalDir := s.cfg.FinalDir()
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return err
	}

	rendered := 0
	for _, speaker := range speakers {
		ranges := bySpeaker[speaker.ID]
		if len(ranges) == 0 {
			continue
		}
		dest := filepath.Join(finalDir, speaker.ID+".mp4")
		if err := s.video.ConcatVideoRanges(ctx, run.Source, ranges, dest); err != nil {
			return services.Wrap(services.ErrExternalTool, s.Name(), "concat-video",
				"merged video render failed for "+speaker.ID, err)
		}
		rendered++
	}

	s.logger.Info("speaker videos rendered",
		logging.String(logging.FieldStage, s.Name()),
		logging.Int("rendered", rendered))
	return nil
}

func (s *renderStage) HealthCheck(ctx context.Context) Health {
	if s.video == nil {
		return Unhealthy(s.Name(), "video renderer not configured")
	}
	return Healthy(s.Name())
}
