package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"voicetag/internal/config"
	"voicetag/internal/logging"
	"voicetag/internal/segments"
	"voicetag/internal/services"
	"voicetag/internal/services/transcriber"
)

// Transcriber produces timed text segments from an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir string) (transcriber.Result, error)
}

// AudioProcessor covers the media operations the pipeline needs for audio.
type AudioProcessor interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	DenoiseAudio(ctx context.Context, source, dest string) error
	ExtractClip(ctx context.Context, source string, startSec, endSec float64, dest string) error
	ConcatAudio(ctx context.Context, clips []string, dest string) error
}

type transcribeStage struct {
	cfg    *config.Config
	store  *segments.Store
	engine Transcriber
	audio  AudioProcessor
	logger *slog.Logger
}

func (s *transcribeStage) Name() string { return "transcribe" }

func (s *transcribeStage) Prepare(ctx context.Context, run *Run) error {
	if run.Source == "" {
		return services.Wrap(services.ErrValidation, s.Name(), "prepare", "source recording path required", nil)
	}
	if _, err := os.Stat(run.Source); err != nil {
		return services.Wrap(services.ErrValidation, s.Name(), "prepare",
			fmt.Sprintf("source recording not found: %s", run.Source), err)
	}
	return nil
}

func (s *transcribeStage) Execute(ctx context.Context, run *Run) error {
	audioPath := filepath.Join(s.cfg.Paths.WorkDir, "audio.wav")
	if err := s.audio.ExtractAudio(ctx, run.Source, audioPath); err != nil {
		return services.Wrap(services.ErrExternalTool, s.Name(), "extract-audio", "audio extraction failed", err)
	}
	if s.cfg.Transcription.Denoise {
		denoised := filepath.Join(s.cfg.Paths.WorkDir, "audio_denoised.wav")
		if err := s.audio.DenoiseAudio(ctx, audioPath, denoised); err != nil {
			return services.Wrap(services.ErrExternalTool, s.Name(), "denoise", "audio denoise failed", err)
		}
		audioPath = denoised
	}
	run.AudioPath = audioPath

	result, err := s.engine.Transcribe(ctx, audioPath, s.cfg.Paths.WorkDir)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, s.Name(), "transcribe", "transcription failed", err)
	}

	clipDir := s.cfg.SegmentDir()
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return fmt.Errorf("ensure segment dir: %w", err)
	}

	records := make([]segments.SegmentRecord, 0, len(result.Segments))
	for _, segment := range result.Segments {
		clipPath := filepath.Join(clipDir, fmt.Sprintf("segment_%d.wav", segment.ID))
		if err := s.audio.ExtractClip(ctx, audioPath, segment.Start, segment.End, clipPath); err != nil {
			return services.Wrap(services.ErrExternalTool, s.Name(), "extract-clip",
				fmt.Sprintf("clip extraction failed for segment %d", segment.ID), err)
		}
		records = append(records, segments.SegmentRecord{
			ID:        segment.ID,
			StartTime: segment.Start,
			EndTime:   segment.End,
			Text:      segment.Text,
			ClipPath:  clipPath,
		})
	}

	if err := s.store.ReplaceSegments(ctx, records); err != nil {
		return err
	}
	if err := os.WriteFile(s.cfg.TranscriptPath(), []byte(result.Text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	s.logger.Info("transcription complete",
		logging.String(logging.FieldStage, s.Name()),
		logging.Int("segments", len(records)))
	return nil
}

func (s *transcribeStage) HealthCheck(ctx context.Context) Health {
	if s.engine == nil || s.audio == nil {
		return Unhealthy(s.Name(), "transcription collaborators not configured")
	}
	return Healthy(s.Name())
}
