package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Config captures runtime settings for transcription.
type Config struct {
	// Binary is the whisper CLI executable.
	Binary string
	// Model is the whisper model name (e.g. "turbo").
	Model string
	// Language forces a transcription language; empty means auto-detect.
	Language string
}

// Service invokes the speech-to-text CLI and parses its JSON output.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisper"
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Segment is one timestamped span of transcribed speech. ID is the emission
// index and is stable across reruns over identical audio.
type Segment struct {
	ID    int64   `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result bundles a full transcription.
type Result struct {
	// Segments in emission order.
	Segments []Segment
	// Text is the plain transcript.
	Text string
	// JSONPath is the raw engine output file.
	JSONPath string
}

type enginePayload struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Transcribe runs the engine against an audio file and parses the JSON it
// writes into outputDir. Segment ids are normalized to the emission index so
// identity survives engines that omit or renumber ids.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string) (Result, error) {
	var result Result

	if source == "" {
		return result, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := s.buildArgs(source, outputDir)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return result, fmt.Errorf("transcribe: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	result.JSONPath = filepath.Join(outputDir, baseName+".json")

	payload, err := loadPayload(result.JSONPath)
	if err != nil {
		return result, fmt.Errorf("transcribe: %w", err)
	}

	result.Segments = make([]Segment, len(payload.Segments))
	for i, seg := range payload.Segments {
		seg.ID = int64(i)
		seg.Text = strings.TrimSpace(seg.Text)
		result.Segments[i] = seg
	}
	result.Text = strings.TrimSpace(payload.Text)
	if result.Text == "" {
		result.Text = joinSegmentText(result.Segments)
	}
	return result, nil
}

func (s *Service) buildArgs(source, outputDir string) []string {
	args := []string{
		source,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--word_timestamps", "True",
	}
	if s.cfg.Model != "" {
		args = append(args, "--model", s.cfg.Model)
	}
	if s.cfg.Language != "" {
		args = append(args, "--language", s.cfg.Language)
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func loadPayload(jsonPath string) (enginePayload, error) {
	var payload enginePayload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse engine json: %w", err)
	}
	return payload, nil
}

func joinSegmentText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
