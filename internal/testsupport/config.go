package testsupport

import (
	"path/filepath"
	"testing"

	"soundframe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.AssetDir = filepath.Join(base, "audio")
	cfgVal.Paths.AmbientDir = filepath.Join(base, "ambient")
	cfgVal.Paths.PhotoDir = filepath.Join(base, "photos")
	cfgVal.Paths.ResultsDir = filepath.Join(base, "results")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStageTimeouts sets every stage timeout to the given number of seconds.
func WithStageTimeouts(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Timeouts = config.Timeouts{
			Perception: seconds,
			Emotion:    seconds,
			Narration:  seconds,
			Voice:      seconds,
			Mix:        seconds,
		}
	}
}

// WithEmotionDispatch overrides the emotion dispatch policy.
func WithEmotionDispatch(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.EmotionDispatch = mode
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
