package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Runner executes ffmpeg operations. The command runner is injectable so
// tests can observe invocations without an ffmpeg binary on PATH.
type Runner struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewRunner constructs a Runner for the given ffmpeg binary name.
func NewRunner(binary string) *Runner {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *Runner) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	r.commandRunner = runner
}

func (r *Runner) run(ctx context.Context, args ...string) error {
	if r.commandRunner != nil {
		return r.commandRunner(ctx, r.binary, args...)
	}
	cmd := exec.CommandContext(ctx, r.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", r.binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractAudio extracts the full audio stream from a recording as a mono
// 16kHz WAV, the input format the transcription and scoring tools expect.
func (r *Runner) ExtractAudio(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	return r.run(ctx, args...)
}

// DenoiseAudio runs an FFT denoise filter pass over a WAV file, keeping the
// mono 16kHz layout. Cleaner audio improves both transcription and
// verification scores on noisy recordings.
func (r *Runner) DenoiseAudio(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-af", "afftdn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	return r.run(ctx, args...)
}

// ExtractClip extracts a time-range audio clip from a source file as a mono
// 16kHz WAV.
func (r *Runner) ExtractClip(ctx context.Context, source string, startSec, endSec float64, dest string) error {
	if endSec <= startSec {
		return fmt.Errorf("extract clip: invalid range [%v, %v]", startSec, endSec)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startSec),
		"-t", formatSeconds(endSec - startSec),
		"-i", source,
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	return r.run(ctx, args...)
}

// ConcatAudio concatenates WAV clips into a single file using the ffmpeg
// concat demuxer. The clip order is preserved.
func (r *Runner) ConcatAudio(ctx context.Context, clips []string, dest string) error {
	if len(clips) == 0 {
		return fmt.Errorf("concat audio: no input clips")
	}
	listPath, cleanup, err := writeConcatList(clips, dest)
	if err != nil {
		return err
	}
	defer cleanup()

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dest,
	}
	return r.run(ctx, args...)
}

// TimeRange is a start/end pair in seconds within a source recording.
type TimeRange struct {
	Start float64
	End   float64
}

// ConcatVideoRanges cuts the given time ranges out of a source video and
// concatenates them, re-encoding so cuts are frame-accurate.
func (r *Runner) ConcatVideoRanges(ctx context.Context, source string, ranges []TimeRange, dest string) error {
	if len(ranges) == 0 {
		return fmt.Errorf("concat video: no input ranges")
	}

	var filter strings.Builder
	for i, rng := range ranges {
		if rng.End <= rng.Start {
			return fmt.Errorf("concat video: invalid range [%v, %v]", rng.Start, rng.End)
		}
		fmt.Fprintf(&filter, "[0:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d];",
			formatSeconds(rng.Start), formatSeconds(rng.End), i)
		fmt.Fprintf(&filter, "[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d];",
			formatSeconds(rng.Start), formatSeconds(rng.End), i)
	}
	for i := range ranges {
		fmt.Fprintf(&filter, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=1[outv][outa]", len(ranges))

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-filter_complex", filter.String(),
		"-map", "[outv]",
		"-map", "[outa]",
		dest,
	}
	return r.run(ctx, args...)
}

func writeConcatList(clips []string, dest string) (string, func(), error) {
	listPath := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".concat")
	var body strings.Builder
	for _, clip := range clips {
		// concat demuxer quoting: single quotes, embedded quotes escaped.
		escaped := strings.ReplaceAll(clip, "'", `'\''`)
		fmt.Fprintf(&body, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(listPath, []byte(body.String()), 0o644); err != nil {
		return "", nil, fmt.Errorf("write concat list: %w", err)
	}
	return listPath, func() { _ = os.Remove(listPath) }, nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
