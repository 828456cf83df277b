package config

const (
	defaultWorkDir          = "~/.local/share/voicetag/work"
	defaultLogDir           = "~/.local/share/voicetag/logs"
	defaultReviewBind       = "127.0.0.1:7945"
	defaultWhisperBinary    = "whisper"
	defaultWhisperModel     = "turbo"
	defaultVerifierBinary   = "spkverify"
	defaultScoringThreshold = 0.25
	defaultScoringWorkers   = 1
	defaultLogFormat        = "auto"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:    defaultWorkDir,
			LogDir:     defaultLogDir,
			ReviewBind: defaultReviewBind,
		},
		Transcription: Transcription{
			Binary: defaultWhisperBinary,
			Model:  defaultWhisperModel,
		},
		Scoring: Scoring{
			Binary:    defaultVerifierBinary,
			Threshold: defaultScoringThreshold,
			Workers:   defaultScoringWorkers,
		},
		Render: Render{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
