package pipeline

import (
	"context"
	"log/slog"

	"voicetag/internal/config"
	"voicetag/internal/logging"
	"voicetag/internal/refsample"
	"voicetag/internal/segments"
)

type matchStage struct {
	cfg    *config.Config
	store  *segments.Store
	audio  AudioProcessor
	logger *slog.Logger
}

func (s *matchStage) Name() string { return "match" }

func (s *matchStage) Prepare(ctx context.Context, run *Run) error { return nil }

func (s *matchStage) Execute(ctx context.Context, run *Run) error {
	builder := refsample.NewBuilder(s.cfg, s.store, s.audio, s.logger)
	results, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	included := 0
	for _, result := range results {
		if !result.Excluded {
			included++
		}
	}
	s.logger.Info("reference samples assembled",
		logging.String(logging.FieldStage, s.Name()),
		logging.Int("speakers", len(results)),
		logging.Int("with_samples", included))
	return nil
}

func (s *matchStage) HealthCheck(ctx context.Context) Health {
	if len(s.cfg.Speakers) == 0 {
		return Unhealthy(s.Name(), "no speakers configured")
	}
	return Healthy(s.Name())
}
