package refsample

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"voicetag/internal/config"
	"voicetag/internal/logging"
	"voicetag/internal/match"
	"voicetag/internal/segments"
)

// Builder matches reference utterances to segments and merges the matched
// clips into one sample per speaker.
type Builder struct {
	cfg    *config.Config
	store  *segments.Store
	media  AudioConcatenator
	logger *slog.Logger
}

// AudioConcatenator merges audio clips into a single file.
type AudioConcatenator interface {
	ConcatAudio(ctx context.Context, clips []string, dest string) error
}

func NewBuilder(cfg *config.Config, store *segments.Store, media AudioConcatenator, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{cfg: cfg, store: store, media: media, logger: logger}
}

// Result summarizes one speaker's assembled sample. ReferenceSegments
// holds the matched segment for each utterance, in utterance order.
type Result struct {
	SpeakerID         string
	ReferenceSegments []int64
	SamplePath        string
	// Excluded is set when no reference clip resolved, which removes the
	// speaker from scoring for the run.
	Excluded bool
}

// Build resolves every configured speaker. Each speaker's reference
// utterances are matched against the transcript, the matched clips are
// merged in declaration order, and the outcome is persisted. Missing clip
// files are skipped with a warning rather than failing the stage.
func (b *Builder) Build(ctx context.Context) ([]Result, error) {
	records, err := b.store.ListSegments(ctx)
	if err != nil {
		return nil, err
	}

	sampleDir := b.cfg.SpeakerSampleDir()
	if err := os.MkdirAll(sampleDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure sample dir: %w", err)
	}

	results := make([]Result, 0, len(b.cfg.Speakers))
	for _, speaker := range b.cfg.Speakers {
		result, err := b.buildSpeaker(ctx, speaker, records, sampleDir)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (b *Builder) buildSpeaker(ctx context.Context, speaker config.Speaker, records []segments.SegmentRecord, sampleDir string) (Result, error) {
	result := Result{SpeakerID: speaker.ID}

	var clips []string
	for _, utterance := range speaker.Utterances {
		segmentID, ok := match.BestSegment(records, utterance)
		if !ok {
			b.logger.Warn("no transcript segments to match against",
				logging.String(logging.FieldSpeakerID, speaker.ID))
			continue
		}
		result.ReferenceSegments = append(result.ReferenceSegments, segmentID)

		record, err := b.store.GetSegment(ctx, segmentID)
		if err != nil {
			return result, err
		}
		if record.ClipPath == "" {
			b.logger.Warn("matched segment has no audio clip",
				logging.String(logging.FieldSpeakerID, speaker.ID),
				logging.Int64(logging.FieldSegmentID, segmentID))
			continue
		}
		if _, err := os.Stat(record.ClipPath); err != nil {
			b.logger.Warn("skipping missing reference clip",
				logging.String(logging.FieldSpeakerID, speaker.ID),
				logging.Int64(logging.FieldSegmentID, segmentID),
				logging.String("clip", record.ClipPath))
			continue
		}
		clips = append(clips, record.ClipPath)
	}

	if len(clips) == 0 {
		result.Excluded = true
		b.logger.Warn("speaker has no usable reference audio, excluding from scoring",
			logging.String(logging.FieldSpeakerID, speaker.ID))
		if err := b.store.SetSpeakerReference(ctx, speaker.ID, result.ReferenceSegments, ""); err != nil {
			return result, err
		}
		return result, nil
	}

	samplePath := filepath.Join(sampleDir, speaker.ID+".wav")
	if err := b.media.ConcatAudio(ctx, clips, samplePath); err != nil {
		return result, fmt.Errorf("merge sample for %s: %w", speaker.ID, err)
	}
	result.SamplePath = samplePath

	if err := b.store.SetSpeakerReference(ctx, speaker.ID, result.ReferenceSegments, samplePath); err != nil {
		return result, err
	}

	b.logger.Info("assembled speaker reference sample",
		logging.String(logging.FieldSpeakerID, speaker.ID),
		logging.Int("clips", len(clips)),
		logging.String("sample", samplePath))
	return result, nil
}
