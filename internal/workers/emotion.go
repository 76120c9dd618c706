package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/services"
	"soundframe/internal/services/llm"
)

// EmotionWorker infers the mood of a scene via chat completion. With a
// perception record in the request it reasons over the structured scene;
// without one (parallel dispatch) it works from the photo reference alone.
type EmotionWorker struct {
	chat   ChatClient
	logger *slog.Logger
}

func NewEmotionWorker(chat ChatClient, logger *slog.Logger) *EmotionWorker {
	return &EmotionWorker{
		chat:   chat,
		logger: logging.NewComponentLogger(logger, "emotion-worker"),
	}
}

func (w *EmotionWorker) Stage() contract.Stage {
	return contract.StageEmotion
}

func (w *EmotionWorker) Handle(ctx context.Context, req contract.Request) (string, error) {
	var payload contract.EmotionRequest
	if err := json.Unmarshal([]byte(req.Payload), &payload); err != nil {
		return "", services.Wrap(services.ErrValidation, "emotion", "decode request", err.Error(), nil)
	}

	var userPrompt string
	if payload.Perception != nil {
		scene, err := json.MarshalIndent(payload.Perception, "", "  ")
		if err != nil {
			return "", services.Wrap(services.ErrValidation, "emotion", "encode context", err.Error(), nil)
		}
		userPrompt = "Analyze emotion:\n\n" + string(scene)
	} else {
		userPrompt = "Analyze the likely emotional atmosphere of the photo " + payload.PhotoRef + "."
	}

	result, err := w.chat.Complete(ctx, []llm.Message{
		{Role: "system", Content: emotionSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "emotion", "completion", err.Error(), nil)
	}
	w.logger.Debug("emotion inferred",
		logging.String(logging.FieldSessionID, req.SessionID),
		logging.Bool("with_perception", payload.Perception != nil))
	return result, nil
}
