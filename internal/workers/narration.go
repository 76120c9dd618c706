package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/services"
	"soundframe/internal/services/llm"
)

// NarrationWorker writes the audio script: one main narration, optional
// per-person dialogue lines, and ambient sound descriptions.
type NarrationWorker struct {
	chat   ChatClient
	logger *slog.Logger
}

func NewNarrationWorker(chat ChatClient, logger *slog.Logger) *NarrationWorker {
	return &NarrationWorker{
		chat:   chat,
		logger: logging.NewComponentLogger(logger, "narration-worker"),
	}
}

func (w *NarrationWorker) Stage() contract.Stage {
	return contract.StageNarration
}

func (w *NarrationWorker) Handle(ctx context.Context, req contract.Request) (string, error) {
	var payload contract.NarrationRequest
	if err := json.Unmarshal([]byte(req.Payload), &payload); err != nil {
		return "", services.Wrap(services.ErrValidation, "narration", "decode request", err.Error(), nil)
	}

	perception, err := json.MarshalIndent(payload.Perception, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "narration", "encode perception", err.Error(), nil)
	}
	emotion, err := json.MarshalIndent(payload.Emotion, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "narration", "encode emotion", err.Error(), nil)
	}

	result, err := w.chat.Complete(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(narrationPromptHeader, perception, emotion)},
	})
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "narration", "completion", err.Error(), nil)
	}
	w.logger.Debug("narration generated",
		logging.String(logging.FieldSessionID, req.SessionID),
		logging.Int("chars", len(result)))
	return result, nil
}
