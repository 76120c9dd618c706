package api

import (
	"testing"
	"time"

	"soundframe/internal/contract"
	"soundframe/internal/publisher"
	"soundframe/internal/session"
)

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel(session.StatusAwaitingEmotion); got != "Awaiting Emotion" {
		t.Fatalf("StatusLabel = %q", got)
	}
	if got := StatusLabel(session.StatusPending); got != "Pending" {
		t.Fatalf("StatusLabel = %q", got)
	}
}

func TestStageLabel(t *testing.T) {
	if got := StageLabel("perception"); got != "Perception" {
		t.Fatalf("StageLabel = %q", got)
	}
	if got := StageLabel(""); got != "" {
		t.Fatalf("StageLabel = %q", got)
	}
}

func TestFromSessionFailure(t *testing.T) {
	published := time.Now()
	sess := &session.Session{
		SessionID:      "sess-1",
		PhotoRef:       "photos/beach.jpg",
		Status:         session.StatusFailed,
		FailureStage:   "emotion",
		FailureMessage: "timeout",
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC),
		PublishedAt:    &published,
	}

	summary := FromSession(sess)
	if summary.Status != "failed" {
		t.Fatalf("Status = %q", summary.Status)
	}
	if summary.StatusLabel != "Failed" {
		t.Fatalf("StatusLabel = %q", summary.StatusLabel)
	}
	if summary.Failure != "Emotion: timeout" {
		t.Fatalf("Failure = %q", summary.Failure)
	}
	if !summary.Published || summary.Acked {
		t.Fatalf("flags = published %v acked %v", summary.Published, summary.Acked)
	}
	if summary.CreatedAt != "2026-03-01T10:00:00.000Z" {
		t.Fatalf("CreatedAt = %q", summary.CreatedAt)
	}
}

func TestFromResult(t *testing.T) {
	complete := publisher.Result{
		SessionID: "sess-1",
		Status:    "complete",
		Result: &publisher.ResultBody{
			Mix:       contract.Mix{FinalAudioRef: "sess-1-final.wav", DurationMS: 4200},
			Narration: contract.Narration{MainNarration: "Waves roll in."},
		},
	}
	status := FromResult(complete)
	if status.Status != "complete" || status.Result == nil || status.Error != nil {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Result.Mix.FinalAudioRef != "sess-1-final.wav" {
		t.Fatalf("FinalAudioRef = %q", status.Result.Mix.FinalAudioRef)
	}

	failed := publisher.Result{
		SessionID: "sess-2",
		Status:    "failed",
		Error:     &publisher.FailureBody{Stage: "voice", Message: "synthesis unavailable"},
	}
	status = FromResult(failed)
	if status.Error == nil || status.Error.StageLabel != "Voice" {
		t.Fatalf("unexpected failure %+v", status.Error)
	}
}
