package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateCompositor(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	switch c.Workflow.EmotionDispatch {
	case "sequential", "parallel":
	default:
		return fmt.Errorf("workflow.emotion_dispatch must be \"sequential\" or \"parallel\", got %q", c.Workflow.EmotionDispatch)
	}
	if c.Workflow.SessionTTLSeconds <= 0 {
		return errors.New("workflow.session_ttl_seconds must be positive")
	}
	if c.Workflow.SweepInterval <= 0 {
		return errors.New("workflow.sweep_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	for _, bound := range []struct {
		name  string
		value int
	}{
		{"timeouts.perception", c.Timeouts.Perception},
		{"timeouts.emotion", c.Timeouts.Emotion},
		{"timeouts.narration", c.Timeouts.Narration},
		{"timeouts.voice", c.Timeouts.Voice},
		{"timeouts.mix", c.Timeouts.Mix},
	} {
		if bound.value <= 0 {
			return fmt.Errorf("%s must be positive", bound.name)
		}
	}
	return nil
}

func (c *Config) validateCompositor() error {
	if c.Compositor.SampleRate <= 0 {
		return errors.New("compositor.sample_rate must be positive")
	}
	if c.Compositor.DialogueOffsetMS < 0 {
		return errors.New("compositor.dialogue_offset_ms must not be negative")
	}
	if c.Compositor.AmbientGain < 0 || c.Compositor.AmbientGain > 1 {
		return errors.New("compositor.ambient_gain must be between 0 and 1")
	}
	if c.Compositor.DialoguePan < 0 || c.Compositor.DialoguePan > 1 {
		return errors.New("compositor.dialogue_pan must be between 0 and 1")
	}
	if c.Compositor.IOWorkers <= 0 {
		return errors.New("compositor.io_workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}
