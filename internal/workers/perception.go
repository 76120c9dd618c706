package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/services"
	"soundframe/internal/services/llm"
)

// VisionClient describes the image understanding call the perception
// worker needs.
type VisionClient interface {
	DescribeImage(ctx context.Context, imageData []byte, mimeType, prompt string) (string, error)
}

// ChatClient describes the chat-completion call shared by the
// generative workers.
type ChatClient interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// PerceptionWorker turns a photo into a structured scene description:
// a vision pass over the image bytes, then a structured extraction pass
// over the resulting prose.
type PerceptionWorker struct {
	vision   VisionClient
	chat     ChatClient
	photoDir string
	logger   *slog.Logger
}

// NewPerceptionWorker wires the vision and extraction clients. photoDir
// anchors relative photo references.
func NewPerceptionWorker(vision VisionClient, chat ChatClient, photoDir string, logger *slog.Logger) *PerceptionWorker {
	return &PerceptionWorker{
		vision:   vision,
		chat:     chat,
		photoDir: photoDir,
		logger:   logging.NewComponentLogger(logger, "perception-worker"),
	}
}

func (w *PerceptionWorker) Stage() contract.Stage {
	return contract.StagePerception
}

func (w *PerceptionWorker) Handle(ctx context.Context, req contract.Request) (string, error) {
	var payload contract.PerceptionRequest
	if err := json.Unmarshal([]byte(req.Payload), &payload); err != nil {
		return "", services.Wrap(services.ErrValidation, "perception", "decode request", err.Error(), nil)
	}

	imageData, mimeType, err := w.readPhoto(payload.PhotoRef)
	if err != nil {
		return "", err
	}

	description, err := w.vision.DescribeImage(ctx, imageData, mimeType, visionPrompt)
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "perception", "vision", err.Error(), nil)
	}
	w.logger.Debug("vision description received",
		logging.String(logging.FieldSessionID, req.SessionID),
		logging.Int("chars", len(description)))

	extracted, err := w.chat.Complete(ctx, []llm.Message{
		{Role: "user", Content: perceptionExtractionPrompt + description},
	})
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "perception", "extraction", err.Error(), nil)
	}
	return extracted, nil
}

func (w *PerceptionWorker) readPhoto(ref string) ([]byte, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, "", services.Wrap(services.ErrValidation, "perception", "photo", "empty photo reference", nil)
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.photoDir, ref)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", services.Wrap(services.ErrUpstream, "perception", "photo", "read "+ref+": "+err.Error(), nil)
	}
	return data, mimeTypeFor(path), nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
