package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"soundframe/internal/assetstore"
	"soundframe/internal/bus"
	"soundframe/internal/compositor"
	"soundframe/internal/config"
	"soundframe/internal/services/fishaudio"
	"soundframe/internal/services/llm"
	"soundframe/internal/services/vision"
)

// BuildRunners constructs the full in-process worker set from
// configuration: real vision, chat, and TTS clients behind the five
// stage handlers, one runner each.
func BuildRunners(ctx context.Context, cfg *config.Config, b *bus.Bus, assets *assetstore.Store, comp *compositor.Compositor, logger *slog.Logger) ([]*Runner, error) {
	chatTimeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	if chatTimeout <= 0 {
		chatTimeout = 60 * time.Second
	}
	chatClient, err := llm.New(llm.Config{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		HTTPClient: &http.Client{Timeout: chatTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("build chat client: %w", err)
	}

	visionClient, err := vision.New(ctx, cfg.Vision.APIKey, cfg.Vision.Model)
	if err != nil {
		return nil, fmt.Errorf("build vision client: %w", err)
	}

	ttsTimeout := time.Duration(cfg.TTS.TimeoutSeconds) * time.Second
	if ttsTimeout <= 0 {
		ttsTimeout = 120 * time.Second
	}
	ttsClient, err := fishaudio.New(fishaudio.Config{
		APIKey:      cfg.TTS.APIKey,
		Endpoint:    cfg.TTS.BaseURL,
		ReferenceID: cfg.TTS.ReferenceID,
		HTTPClient:  &http.Client{Timeout: ttsTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("build tts client: %w", err)
	}

	handlers := []Handler{
		NewPerceptionWorker(visionClient, chatClient, cfg.Paths.PhotoDir, logger),
		NewEmotionWorker(chatClient, logger),
		NewNarrationWorker(chatClient, logger),
		NewVoiceWorker(ttsClient, assets, logger),
		NewMixWorker(comp, cfg.Compositor, logger),
	}
	runners := make([]*Runner, 0, len(handlers))
	for _, handler := range handlers {
		runners = append(runners, NewRunner(b, handler, logger))
	}
	return runners, nil
}
