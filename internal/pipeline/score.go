package pipeline

import (
	"context"
	"log/slog"

	"voicetag/internal/config"
	"voicetag/internal/logging"
	"voicetag/internal/scoring"
	"voicetag/internal/segments"
)

type scoreStage struct {
	cfg    *config.Config
	store  *segments.Store
	pairs  scoring.PairScorer
	logger *slog.Logger
}

func (s *scoreStage) Name() string { return "score" }

func (s *scoreStage) Prepare(ctx context.Context, run *Run) error { return nil }

func (s *scoreStage) Execute(ctx context.Context, run *Run) error {
	scorer := scoring.NewScorer(s.store, s.pairs, s.cfg.Scoring.Workers, s.logger)
	if err := scorer.ScoreAll(ctx); err != nil {
		return err
	}
	s.logger.Info("scoring complete", logging.String(logging.FieldStage, s.Name()))
	return nil
}

func (s *scoreStage) HealthCheck(ctx context.Context) Health {
	if s.pairs == nil {
		return Unhealthy(s.Name(), "similarity scorer not configured")
	}
	return Healthy(s.Name())
}
