package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"soundframe/internal/contract"
	"soundframe/internal/publisher"
	"soundframe/internal/services"
	"soundframe/internal/session"
)

type fakeReader struct {
	sessions map[string]*session.Session
	summary  session.HealthSummary
}

func (f *fakeReader) GetBySessionID(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "", "session", sessionID, nil)
	}
	return sess, nil
}

func (f *fakeReader) List(ctx context.Context) ([]*session.Session, error) {
	out := make([]*session.Session, 0, len(f.sessions))
	for _, sess := range f.sessions {
		out = append(out, sess)
	}
	return out, nil
}

func (f *fakeReader) HealthSummary(ctx context.Context) (session.HealthSummary, error) {
	return f.summary, nil
}

type fakeStarter struct {
	lastID    string
	lastPhoto string
	err       error
}

func (f *fakeStarter) StartSession(ctx context.Context, sessionID, photoRef string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastID = sessionID
	f.lastPhoto = photoRef
	if sessionID == "" {
		sessionID = "generated-id"
	}
	return sessionID, nil
}

type fakeResults struct {
	results map[string]publisher.Result
	acked   []string
}

func (f *fakeResults) Get(sessionID string) (publisher.Result, error) {
	result, ok := f.results[sessionID]
	if !ok {
		return publisher.Result{}, services.Wrap(services.ErrNotFound, "", "result", sessionID, nil)
	}
	return result, nil
}

func (f *fakeResults) Acknowledge(ctx context.Context, sessionID string) error {
	if _, err := f.Get(sessionID); err != nil {
		return err
	}
	f.acked = append(f.acked, sessionID)
	return nil
}

func newService() (*SessionService, *fakeReader, *fakeStarter, *fakeResults) {
	reader := &fakeReader{sessions: make(map[string]*session.Session)}
	starter := &fakeStarter{}
	results := &fakeResults{results: make(map[string]publisher.Result)}
	return NewSessionService(reader, starter, results), reader, starter, results
}

func TestSubmitAcceptsPhoto(t *testing.T) {
	svc, _, starter, _ := newService()

	resp, err := svc.Submit(context.Background(), SubmitRequest{PhotoRef: "  photos/beach.jpg "})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !resp.Accepted || resp.SessionID != "generated-id" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if starter.lastPhoto != "photos/beach.jpg" {
		t.Fatalf("photo ref = %q", starter.lastPhoto)
	}
}

func TestSubmitRequiresPhotoRef(t *testing.T) {
	svc, _, _, _ := newService()

	_, err := svc.Submit(context.Background(), SubmitRequest{PhotoRef: "   "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitPropagatesStarterError(t *testing.T) {
	svc, _, starter, _ := newService()
	starter.err = services.Wrap(services.ErrValidation, "", "session", "duplicate", nil)

	if _, err := svc.Submit(context.Background(), SubmitRequest{PhotoRef: "photos/a.jpg"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStatusServesPublishedResult(t *testing.T) {
	svc, _, _, results := newService()
	results.results["sess-1"] = publisher.Result{
		SessionID: "sess-1",
		Status:    "complete",
		Result: &publisher.ResultBody{
			Mix: contract.Mix{FinalAudioRef: "sess-1-final.wav", DurationMS: 2000},
		},
	}

	status, err := svc.Status(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != "complete" || status.Result == nil {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStatusPendingForInFlightSession(t *testing.T) {
	svc, reader, _, _ := newService()
	reader.sessions["sess-2"] = &session.Session{
		SessionID: "sess-2",
		Status:    session.StatusAwaitingNarration,
		CreatedAt: time.Now(),
	}

	status, err := svc.Status(context.Background(), "sess-2")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != "pending" {
		t.Fatalf("Status = %q", status.Status)
	}
}

func TestStatusUnknownSession(t *testing.T) {
	svc, _, _, _ := newService()

	_, err := svc.Status(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAcknowledgeDelegates(t *testing.T) {
	svc, _, _, results := newService()
	results.results["sess-3"] = publisher.Result{SessionID: "sess-3", Status: "failed"}

	if err := svc.Acknowledge(context.Background(), "sess-3"); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if len(results.acked) != 1 || results.acked[0] != "sess-3" {
		t.Fatalf("acked = %v", results.acked)
	}

	if err := svc.Acknowledge(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCounts(t *testing.T) {
	svc, reader, _, _ := newService()
	reader.summary = session.HealthSummary{Total: 4, Processing: 2, Completed: 1, Failed: 1}

	counts, err := svc.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Total != 4 || counts.Processing != 2 {
		t.Fatalf("counts = %+v", counts)
	}
}
