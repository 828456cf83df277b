package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateSpeakers(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if strings.TrimSpace(c.Transcription.Binary) == "" {
		return errors.New("transcription.binary must be set")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if strings.TrimSpace(c.Scoring.Binary) == "" {
		return errors.New("scoring.binary must be set")
	}
	if c.Scoring.Threshold < 0 || c.Scoring.Threshold > 1 {
		return errors.New("scoring.threshold must be between 0 and 1")
	}
	if c.Scoring.Workers < 0 {
		return errors.New("scoring.workers must not be negative")
	}
	return nil
}

func (c *Config) validateSpeakers() error {
	seen := make(map[string]struct{}, len(c.Speakers))
	for i, speaker := range c.Speakers {
		if speaker.ID == "" {
			return fmt.Errorf("speakers[%d].id must be set", i)
		}
		if _, dup := seen[speaker.ID]; dup {
			return fmt.Errorf("speakers[%d].id %q declared more than once", i, speaker.ID)
		}
		seen[speaker.ID] = struct{}{}
		if len(speaker.Utterances) == 0 {
			return fmt.Errorf("speakers[%d] (%s) must declare at least one reference utterance", i, speaker.ID)
		}
	}
	return nil
}
