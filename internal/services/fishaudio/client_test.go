package fishaudio_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soundframe/internal/services/fishaudio"
)

func newServerClient(t *testing.T, handler http.HandlerFunc) *fishaudio.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := fishaudio.New(fishaudio.Config{
		APIKey:      "test-key",
		Endpoint:    server.URL,
		ReferenceID: "ref-default",
		HTTPClient:  server.Client(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	wavBytes := []byte("RIFFxxxxWAVE")
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var body struct {
			Text        string `json:"text"`
			ReferenceID string `json:"reference_id"`
			Format      string `json:"format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Text != "Waves roll in." || body.Format != "wav" || body.ReferenceID != "ref-default" {
			t.Errorf("request = %+v", body)
		}
		_, _ = w.Write(wavBytes)
	})

	audio, err := client.Synthesize(context.Background(), "Waves roll in.", fishaudio.Options{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !bytes.Equal(audio, wavBytes) {
		t.Fatalf("audio = %q", audio)
	}
}

func TestSynthesizeOverridesReference(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ReferenceID string `json:"reference_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.ReferenceID != "ref-custom" {
			t.Errorf("reference = %q", body.ReferenceID)
		}
		_, _ = w.Write([]byte("audio"))
	})

	if _, err := client.Synthesize(context.Background(), "hi", fishaudio.Options{ReferenceID: "ref-custom"}); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
}

func TestSynthesizeSurfacesHTTPError(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	})

	_, err := client.Synthesize(context.Background(), "hi", fishaudio.Options{})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	})
	if _, err := client.Synthesize(context.Background(), "   ", fishaudio.Options{}); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := fishaudio.New(fishaudio.Config{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
