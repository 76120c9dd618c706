package services_test

import (
	"errors"
	"testing"

	"soundframe/internal/services"
)

func TestWrapTagsSentinel(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "emotion", "await response", "timeout", nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
	if got := services.Kind(err); got != "timeout" {
		t.Fatalf("unexpected kind: %q", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrUpstream, "voice", "tts request", "", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to remain in chain: %v", err)
	}
}

func TestMessageStripsSentinelPrefix(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "perception", "parse payload", "no JSON object found", nil)
	got := services.Message(err)
	want := "perception: parse payload: no JSON object found"
	if got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}

func TestFatal(t *testing.T) {
	if services.Fatal(services.Wrap(services.ErrAssetMissing, "mix", "open layer", "", nil)) {
		t.Fatal("asset miss should not be fatal")
	}
	if !services.Fatal(services.Wrap(services.ErrComposition, "mix", "export", "", nil)) {
		t.Fatal("composition failure should be fatal")
	}
}

func TestWrapNilMarkerDefaultsToUpstream(t *testing.T) {
	err := services.Wrap(nil, "narration", "", "worker failed", nil)
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected upstream default, got %v", err)
	}
}
