package testsupport

import (
	"path/filepath"
	"testing"

	"voicetag/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults two speakers and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ReviewBind = "127.0.0.1:0"
	cfg.Speakers = []config.Speaker{
		{ID: "alice", Utterances: []string{"hello there"}},
		{ID: "bob", Utterances: []string{"hi hello"}},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithSpeakers replaces the default speaker list.
func WithSpeakers(speakers ...config.Speaker) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Speakers = speakers
	}
}

// WithThreshold sets the assignment threshold.
func WithThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scoring.Threshold = threshold
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
