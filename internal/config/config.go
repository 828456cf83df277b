package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir    string `toml:"work_dir"`
	LogDir     string `toml:"log_dir"`
	ReviewBind string `toml:"review_bind"`
}

// Transcription contains configuration for the speech-to-text collaborator.
type Transcription struct {
	Binary       string `toml:"binary"`
	Model        string `toml:"model"`
	Language     string `toml:"language"`
	FFmpegBinary string `toml:"ffmpeg_binary"`
	// Denoise runs a noise-reduction filter over the extracted audio
	// before transcription and clip extraction.
	Denoise bool `toml:"denoise"`
}

// Scoring contains configuration for voice-similarity scoring.
type Scoring struct {
	Binary    string  `toml:"binary"`
	Threshold float64 `toml:"threshold"`
	Workers   int     `toml:"workers"`
}

// Render contains configuration for per-speaker video rendering.
type Render struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Speaker declares a known speaker and the reference utterances used to
// locate an authoritative audio sample for them. Declaration order matters:
// it is the tie-break order for equal similarity scores.
type Speaker struct {
	ID         string   `toml:"id"`
	Utterances []string `toml:"utterances"`
}

// Config encapsulates all configuration values for voicetag.
//
// Configuration sections by subsystem:
//   - Paths: working directory, log directory, review API bind address
//   - Transcription: speech-to-text engine invocation
//   - Scoring: similarity scorer invocation and acceptance threshold
//   - Render: per-speaker merged video output
//   - Logging: log format and level
//   - Speakers: known speakers with reference utterances
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Scoring       Scoring       `toml:"scoring"`
	Render        Render        `toml:"render"`
	Logging       Logging       `toml:"logging"`
	Speakers      []Speaker     `toml:"speakers"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/voicetag/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("voicetag.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	for i := range c.Speakers {
		c.Speakers[i].ID = strings.TrimSpace(c.Speakers[i].ID)
		utterances := make([]string, 0, len(c.Speakers[i].Utterances))
		for _, utt := range c.Speakers[i].Utterances {
			if trimmed := strings.TrimSpace(utt); trimmed != "" {
				utterances = append(utterances, trimmed)
			}
		}
		c.Speakers[i].Utterances = utterances
	}
	return nil
}

// EnsureDirectories creates the directory layout the pipeline expects under
// the working directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.WorkDir,
		c.SegmentDir(),
		c.SpeakerSampleDir(),
		c.FinalDir(),
		c.Paths.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SegmentDir returns the directory holding per-segment audio clips.
func (c *Config) SegmentDir() string {
	return filepath.Join(c.Paths.WorkDir, "segments")
}

// SpeakerSampleDir returns the directory holding merged per-speaker samples.
func (c *Config) SpeakerSampleDir() string {
	return filepath.Join(c.Paths.WorkDir, "speakers")
}

// FinalDir returns the directory holding merged per-speaker video output.
func (c *Config) FinalDir() string {
	return filepath.Join(c.Paths.WorkDir, "final")
}

// TranscriptPath returns the location of the persisted plain-text transcript.
func (c *Config) TranscriptPath() string {
	return filepath.Join(c.Paths.WorkDir, "transcript.txt")
}

// SpeakerInfoPath returns the location of the exported speaker aggregate state.
func (c *Config) SpeakerInfoPath() string {
	return filepath.Join(c.Paths.WorkDir, "speaker_info.json")
}

// FFmpegBinary returns the ffmpeg executable used for media operations.
func (c *Config) FFmpegBinary() string {
	if c.Transcription.FFmpegBinary != "" {
		return c.Transcription.FFmpegBinary
	}
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
