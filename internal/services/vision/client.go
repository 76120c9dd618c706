// Package vision wraps the Gemini image understanding call used by the
// perception worker. The photo travels inline as raw bytes; the model
// answers with loose text that downstream code rehabilitates.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Client wraps a Gemini API connection.
type Client struct {
	model  string
	client *genai.Client
}

// New creates a vision client for the given API key.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("vision: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("vision: create client: %w", err)
	}
	return &Client{model: model, client: client}, nil
}

// DescribeImage sends the photo bytes plus a prompt and returns the
// model's raw text.
func (c *Client) DescribeImage(ctx context.Context, imageData []byte, mimeType, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("vision: client is nil")
	}
	if len(imageData) == 0 {
		return "", errors.New("vision: empty image")
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "image/jpeg"
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
		{Text: prompt},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("vision: generate content: %w", err)
	}
	if resp == nil {
		return "", errors.New("vision: empty response")
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("vision: response carried no text")
	}
	return text, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}
