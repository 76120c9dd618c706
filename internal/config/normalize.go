package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeCredentials()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.AssetDir, err = expandPath(c.Paths.AssetDir); err != nil {
		return fmt.Errorf("paths.asset_dir: %w", err)
	}
	if c.Paths.AmbientDir, err = expandPath(c.Paths.AmbientDir); err != nil {
		return fmt.Errorf("paths.ambient_dir: %w", err)
	}
	if c.Paths.PhotoDir, err = expandPath(c.Paths.PhotoDir); err != nil {
		return fmt.Errorf("paths.photo_dir: %w", err)
	}
	if c.Paths.ResultsDir, err = expandPath(c.Paths.ResultsDir); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.EmotionDispatch = strings.ToLower(strings.TrimSpace(c.Workflow.EmotionDispatch))
	if c.Workflow.EmotionDispatch == "" {
		c.Workflow.EmotionDispatch = defaultEmotionDispatch
	}
	if c.Workflow.MailboxSize <= 0 {
		c.Workflow.MailboxSize = defaultMailboxSize
	}
	if c.Workflow.RequestQueueSize <= 0 {
		c.Workflow.RequestQueueSize = defaultRequestQueueSize
	}
}

func (c *Config) normalizeCredentials() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("SOUNDFRAME_LLM_API_KEY")
	}
	if c.Vision.APIKey == "" {
		c.Vision.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = os.Getenv("FISH_AUDIO_API_KEY")
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.Vision.APIKey = strings.TrimSpace(c.Vision.APIKey)
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
