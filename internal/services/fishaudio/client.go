// Package fishaudio wraps the Fish Audio text-to-speech endpoint used by
// the voice worker. Each call synthesizes one segment and returns raw
// WAV bytes.
package fishaudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint    = "https://api.fish.audio/v1/tts"
	defaultHTTPTimeout = 120 * time.Second
)

// Config describes the TTS client configuration.
type Config struct {
	APIKey      string
	Endpoint    string
	ReferenceID string
	HTTPClient  *http.Client
}

// Client wraps the Fish Audio TTS REST API.
type Client struct {
	apiKey      string
	endpoint    string
	referenceID string
	http        *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("fishaudio: api key is required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		apiKey:      apiKey,
		endpoint:    endpoint,
		referenceID: strings.TrimSpace(cfg.ReferenceID),
		http:        client,
	}, nil
}

// Options tunes one synthesis call.
type Options struct {
	// ReferenceID overrides the client-level voice reference.
	ReferenceID string
}

type synthesisRequest struct {
	Text        string `json:"text"`
	ReferenceID string `json:"reference_id,omitempty"`
	Format      string `json:"format"`
}

// Synthesize converts text to speech and returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string, opts Options) ([]byte, error) {
	if c == nil {
		return nil, errors.New("fishaudio: client is nil")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("fishaudio: empty text")
	}

	reference := opts.ReferenceID
	if reference == "" {
		reference = c.referenceID
	}
	payload, err := json.Marshal(synthesisRequest{
		Text:        text,
		ReferenceID: reference,
		Format:      "wav",
	})
	if err != nil {
		return nil, fmt.Errorf("fishaudio: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("fishaudio: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fishaudio: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fishaudio: synthesis failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fishaudio: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("fishaudio: response carried no audio")
	}
	return audio, nil
}
