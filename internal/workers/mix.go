package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	"soundframe/internal/compositor"
	"soundframe/internal/config"
	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/services"
)

// MixWorker renders the final track through the compositor.
type MixWorker struct {
	comp   *compositor.Compositor
	cfg    config.Compositor
	logger *slog.Logger
}

func NewMixWorker(comp *compositor.Compositor, cfg config.Compositor, logger *slog.Logger) *MixWorker {
	return &MixWorker{
		comp:   comp,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "mix-worker"),
	}
}

func (w *MixWorker) Stage() contract.Stage {
	return contract.StageMix
}

func (w *MixWorker) Handle(ctx context.Context, req contract.Request) (string, error) {
	var payload contract.MixRequest
	if err := json.Unmarshal([]byte(req.Payload), &payload); err != nil {
		return "", services.Wrap(services.ErrValidation, "mix", "decode request", err.Error(), nil)
	}

	plan := compositor.BuildPlan(payload.Segments, payload.AmbientSounds, w.cfg)
	result, err := w.comp.Compose(ctx, req.SessionID, plan)
	if err != nil {
		return "", err
	}

	w.logger.Info("final mix rendered",
		logging.String(logging.FieldSessionID, req.SessionID),
		logging.String("audio_ref", result.AudioRef),
		logging.Int64("duration_ms", result.DurationMS))

	encoded, err := json.Marshal(contract.Mix{
		FinalAudioRef: result.AudioRef,
		DurationMS:    result.DurationMS,
	})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "mix", "encode result", err.Error(), nil)
	}
	return string(encoded), nil
}
