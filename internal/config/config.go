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
	DataDir    string `toml:"data_dir"`
	AssetDir   string `toml:"asset_dir"`
	AmbientDir string `toml:"ambient_dir"`
	PhotoDir   string `toml:"photo_dir"`
	ResultsDir string `toml:"results_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Workflow contains saga orchestration settings.
type Workflow struct {
	// EmotionDispatch selects how the emotion stage is requested:
	// "sequential" (after perception, carrying its output as context) or
	// "parallel" (fanned out alongside perception, no context).
	EmotionDispatch   string `toml:"emotion_dispatch"`
	SessionTTLSeconds int    `toml:"session_ttl_seconds"`
	SweepInterval     int    `toml:"sweep_interval_seconds"`
	MailboxSize       int    `toml:"mailbox_size"`
	RequestQueueSize  int    `toml:"request_queue_size"`
}

// Timeouts bounds the wait for each stage response, in seconds.
type Timeouts struct {
	Perception int `toml:"perception"`
	Emotion    int `toml:"emotion"`
	Narration  int `toml:"narration"`
	Voice      int `toml:"voice"`
	Mix        int `toml:"mix"`
}

// LLM contains chat-completion connection settings shared by the emotion and
// narration workers and by perception's structured extraction step.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Vision contains settings for the Gemini image description call.
type Vision struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// TTS contains Fish Audio text-to-speech settings.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ReferenceID    string `toml:"reference_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Compositor contains audio mixing parameters.
type Compositor struct {
	SampleRate       int     `toml:"sample_rate"`
	DialogueOffsetMS int     `toml:"dialogue_offset_ms"`
	AmbientGain      float64 `toml:"ambient_gain"`
	DialoguePan      float64 `toml:"dialogue_pan"`
	IOWorkers        int     `toml:"io_workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Workflow   Workflow   `toml:"workflow"`
	Timeouts   Timeouts   `toml:"timeouts"`
	LLM        LLM        `toml:"llm"`
	Vision     Vision     `toml:"vision"`
	TTS        TTS        `toml:"tts"`
	Compositor Compositor `toml:"compositor"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/soundframe/config.toml")
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
			return nil, "", false, fmt.Errorf("decode config: %w", err)
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

	projectPath, err := filepath.Abs("soundframe.toml")
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

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.DataDir,
		c.Paths.AssetDir,
		c.Paths.AmbientDir,
		c.Paths.PhotoDir,
		c.Paths.ResultsDir,
		c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
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
