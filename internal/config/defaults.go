package config

const (
	defaultDataDir    = "~/.local/share/soundframe"
	defaultAssetDir   = "~/.local/share/soundframe/audio"
	defaultAmbientDir = "~/.local/share/soundframe/ambient"
	defaultPhotoDir   = "~/.local/share/soundframe/photos"
	defaultResultsDir = "~/.local/share/soundframe/results"
	defaultLogDir     = "~/.local/share/soundframe/logs"
	defaultAPIBind    = "127.0.0.1:7602"

	defaultEmotionDispatch   = "sequential"
	defaultSessionTTLSeconds = 3600
	defaultSweepInterval     = 60
	defaultMailboxSize       = 8
	defaultRequestQueueSize  = 32

	// Stage waits mirror the upstream latency profile: the vision and TTS
	// calls dominate, the text stages are quick.
	defaultPerceptionTimeout = 120
	defaultEmotionTimeout    = 60
	defaultNarrationTimeout  = 60
	defaultVoiceTimeout      = 120
	defaultMixTimeout        = 60

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds = 60

	defaultVisionModel = "gemini-2.5-flash"

	defaultTTSBaseURL        = "https://api.fish.audio/v1/tts"
	defaultTTSTimeoutSeconds = 60

	defaultSampleRate       = 44100
	defaultDialogueOffsetMS = 1000
	defaultAmbientGain      = 0.3
	defaultDialoguePan      = 0.5
	defaultIOWorkers        = 4

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			AssetDir:   defaultAssetDir,
			AmbientDir: defaultAmbientDir,
			PhotoDir:   defaultPhotoDir,
			ResultsDir: defaultResultsDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Workflow: Workflow{
			EmotionDispatch:   defaultEmotionDispatch,
			SessionTTLSeconds: defaultSessionTTLSeconds,
			SweepInterval:     defaultSweepInterval,
			MailboxSize:       defaultMailboxSize,
			RequestQueueSize:  defaultRequestQueueSize,
		},
		Timeouts: Timeouts{
			Perception: defaultPerceptionTimeout,
			Emotion:    defaultEmotionTimeout,
			Narration:  defaultNarrationTimeout,
			Voice:      defaultVoiceTimeout,
			Mix:        defaultMixTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Vision: Vision{
			Model: defaultVisionModel,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Compositor: Compositor{
			SampleRate:       defaultSampleRate,
			DialogueOffsetMS: defaultDialogueOffsetMS,
			AmbientGain:      defaultAmbientGain,
			DialoguePan:      defaultDialoguePan,
			IOWorkers:        defaultIOWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
