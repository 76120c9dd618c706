package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"soundframe/internal/assetstore"
	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/services"
	"soundframe/internal/services/fishaudio"
)

// TTSClient describes the synthesis call the voice worker needs.
type TTSClient interface {
	Synthesize(ctx context.Context, text string, opts fishaudio.Options) ([]byte, error)
}

// VoiceWorker synthesizes every script line to a WAV asset. The main
// narration sits center; dialogue alternates sides by person, odd IDs
// left and even IDs right, mirroring the two-person staging of the
// narration script.
type VoiceWorker struct {
	tts    TTSClient
	assets *assetstore.Store
	logger *slog.Logger
}

func NewVoiceWorker(tts TTSClient, assets *assetstore.Store, logger *slog.Logger) *VoiceWorker {
	return &VoiceWorker{
		tts:    tts,
		assets: assets,
		logger: logging.NewComponentLogger(logger, "voice-worker"),
	}
}

func (w *VoiceWorker) Stage() contract.Stage {
	return contract.StageVoice
}

func (w *VoiceWorker) Handle(ctx context.Context, req contract.Request) (string, error) {
	var payload contract.VoiceRequest
	if err := json.Unmarshal([]byte(req.Payload), &payload); err != nil {
		return "", services.Wrap(services.ErrValidation, "voice", "decode request", err.Error(), nil)
	}

	narrationText := strings.TrimSpace(payload.Narration.MainNarration)
	if narrationText == "" {
		return "", services.Wrap(services.ErrValidation, "voice", "script", "empty main narration", nil)
	}

	var segments []contract.Segment

	ref := fmt.Sprintf("%s-narration-0.wav", req.SessionID)
	if err := w.synthesizeTo(ctx, ref, narrationText); err != nil {
		return "", err
	}
	segments = append(segments, contract.Segment{
		Type:     contract.SegmentNarration,
		Position: contract.PositionCenter,
		Text:     narrationText,
		AudioRef: ref,
	})

	for i, line := range payload.Narration.PersonDialogues {
		text := strings.TrimSpace(line.Dialogue)
		if text == "" {
			continue
		}
		ref := fmt.Sprintf("%s-dialogue-%d.wav", req.SessionID, i)
		if err := w.synthesizeTo(ctx, ref, text); err != nil {
			return "", err
		}
		segments = append(segments, contract.Segment{
			Type:     contract.SegmentDialogue,
			Position: dialoguePosition(line.PersonID),
			PersonID: line.PersonID,
			Text:     text,
			AudioRef: ref,
		})
	}

	w.logger.Info("voice segments synthesized",
		logging.String(logging.FieldSessionID, req.SessionID),
		logging.Int("segments", len(segments)))

	result, err := json.Marshal(contract.Voice{Segments: segments})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "voice", "encode result", err.Error(), nil)
	}
	return string(result), nil
}

func (w *VoiceWorker) synthesizeTo(ctx context.Context, ref, text string) error {
	audio, err := w.tts.Synthesize(ctx, text, fishaudio.Options{})
	if err != nil {
		return services.Wrap(services.ErrUpstream, "voice", "synthesize", err.Error(), nil)
	}
	if err := w.assets.WriteBytes(ref, audio); err != nil {
		return services.Wrap(services.ErrUpstream, "voice", "store asset", err.Error(), nil)
	}
	return nil
}

func dialoguePosition(personID int) string {
	if personID%2 == 1 {
		return contract.PositionLeft
	}
	return contract.PositionRight
}
