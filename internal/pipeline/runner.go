package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"voicetag/internal/config"
	"voicetag/internal/logging"
	"voicetag/internal/scoring"
	"voicetag/internal/segments"
	"voicetag/internal/services"
)

// Runner drives the stages in order against one work directory. A file
// lock guards the directory because concurrent runs against the same
// state are unsafe.
type Runner struct {
	cfg    *config.Config
	store  *segments.Store
	stages []Stage
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock
}

// Collaborators are the external tools the pipeline drives. Tests swap in
// stubs; production wiring passes the real clients.
type Collaborators struct {
	Transcriber Transcriber
	Audio       AudioProcessor
	Video       VideoRenderer
	PairScorer  scoring.PairScorer
}

func NewRunner(cfg *config.Config, store *segments.Store, collab Collaborators, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.WorkDir, "voicetag.lock")

	stages := []Stage{
		&transcribeStage{cfg: cfg, store: store, engine: collab.Transcriber, audio: collab.Audio, logger: logger},
		&matchStage{cfg: cfg, store: store, audio: collab.Audio, logger: logger},
		&scoreStage{cfg: cfg, store: store, pairs: collab.PairScorer, logger: logger},
		&aggregateStage{cfg: cfg, store: store, logger: logger},
	}
	if cfg.Render.Enabled {
		stages = append(stages, &renderStage{cfg: cfg, store: store, video: collab.Video, logger: logger})
	}

	return &Runner{
		cfg:      cfg,
		store:    store,
		stages:   stages,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
}

// StageNames returns the configured stage order.
func (r *Runner) StageNames() []string {
	names := make([]string, len(r.stages))
	for i, stage := range r.stages {
		names[i] = stage.Name()
	}
	return names
}

// HealthCheck reports readiness of every stage.
func (r *Runner) HealthCheck(ctx context.Context) []Health {
	health := make([]Health, len(r.stages))
	for i, stage := range r.stages {
		health[i] = stage.HealthCheck(ctx)
	}
	return health
}

// Run executes the pipeline against a source recording. Stages with a
// completion marker are skipped unless run.Force is set. A fully marked
// pipeline is a no-op.
func (r *Runner) Run(ctx context.Context, run *Run) error {
	ok, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire work directory lock: %w", err)
	}
	if !ok {
		return errors.New("another run is active in this work directory")
	}
	defer func() {
		if unlockErr := r.lock.Unlock(); unlockErr != nil {
			r.logger.Warn("failed to release work directory lock", logging.Error(unlockErr))
		}
	}()

	ids := make([]string, 0, len(r.cfg.Speakers))
	for _, speaker := range r.cfg.Speakers {
		ids = append(ids, speaker.ID)
	}
	if err := r.store.SyncSpeakers(ctx, ids); err != nil {
		return err
	}

	if run.Force {
		for _, stage := range r.stages {
			if err := r.store.ClearStageMarker(ctx, stage.Name()); err != nil {
				return err
			}
		}
	} else if run.Rerender {
		if err := r.store.ClearStageMarker(ctx, "render"); err != nil {
			return err
		}
	}

	for _, stage := range r.stages {
		done, err := r.store.StageDone(ctx, stage.Name())
		if err != nil {
			return err
		}
		if done {
			r.logger.Info("stage already complete, skipping",
				logging.String(logging.FieldStage, stage.Name()))
			continue
		}
		if err := r.runStage(ctx, stage, run); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, run *Run) error {
	stageCtx := services.WithStage(ctx, stage.Name())
	r.logger.Info("stage starting", logging.String(logging.FieldStage, stage.Name()))

	if err := stage.Prepare(stageCtx, run); err != nil {
		return fmt.Errorf("%s prepare: %w", stage.Name(), err)
	}
	if err := stage.Execute(stageCtx, run); err != nil {
		if services.IsFatal(err) {
			return fmt.Errorf("%s execute: %w", stage.Name(), err)
		}
		// Stages are safe to re-run, so a transient failure gets one
		// retry before it aborts the pipeline.
		r.logger.Warn("stage failed, retrying",
			logging.String(logging.FieldStage, stage.Name()),
			logging.Error(err))
		if err := stage.Execute(stageCtx, run); err != nil {
			return fmt.Errorf("%s execute: %w", stage.Name(), err)
		}
	}
	if err := r.store.MarkStageDone(stageCtx, stage.Name()); err != nil {
		return err
	}

	r.logger.Info("stage complete", logging.String(logging.FieldStage, stage.Name()))
	return nil
}

// Completed reports whether every stage has a completion marker.
func (r *Runner) Completed(ctx context.Context) (bool, error) {
	for _, stage := range r.stages {
		done, err := r.store.StageDone(ctx, stage.Name())
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}
	return true, nil
}
