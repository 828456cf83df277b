package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"voicetag/internal/services"
)

// Config controls how the speaker verification engine is invoked.
type Config struct {
	// Binary is the verification command on PATH or an absolute path.
	Binary string
}

// Service wraps an external speaker verification tool. The tool takes two
// audio files and prints a similarity score to stdout, either as bare number
// or as a JSON object with a "score" field.
type Service struct {
	cfg Config

	commandRunner func(ctx context.Context, name string, args ...string) (string, error)
}

func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "spkverify"
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner replaces command execution, used by tests.
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	s.commandRunner = runner
}

type scorePayload struct {
	Score float64 `json:"score"`
}

// Verify compares a segment clip against a speaker reference sample and
// returns a similarity score. Higher scores mean a more likely match.
func (s *Service) Verify(ctx context.Context, segmentClip, referenceSample string) (float64, error) {
	if segmentClip == "" || referenceSample == "" {
		return 0, services.Wrap(services.ErrValidation, "score", "verify", "both audio paths are required", nil)
	}
	for _, path := range []string{segmentClip, referenceSample} {
		if _, err := os.Stat(path); err != nil {
			return 0, services.Wrap(services.ErrValidation, "score", "verify", fmt.Sprintf("audio file missing: %s", path), err)
		}
	}

	output, err := s.run(ctx, s.cfg.Binary, segmentClip, referenceSample)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "score", "verify", "verification tool failed", err)
	}

	score, err := parseScore(output)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "score", "verify", "unable to parse verification output", err)
	}
	return score, nil
}

// parseScore accepts either a JSON object with a score field or a bare
// number, possibly surrounded by diagnostic lines. The last parseable line
// wins so tools that log progress to stdout still work.
func parseScore(output string) (float64, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return 0, fmt.Errorf("empty output")
	}

	if strings.HasPrefix(trimmed, "{") {
		var payload scorePayload
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			return 0, fmt.Errorf("decode score JSON: %w", err)
		}
		return payload.Score, nil
	}

	lines := strings.Split(trimmed, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") {
			var payload scorePayload
			if err := json.Unmarshal([]byte(line), &payload); err == nil {
				return payload.Score, nil
			}
			continue
		}
		if value, err := strconv.ParseFloat(line, 64); err == nil {
			return value, nil
		}
	}
	return 0, fmt.Errorf("no score found in output %q", trimmed)
}

func (s *Service) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
