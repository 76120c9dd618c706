package api

import (
	"context"
	"errors"
	"strings"

	"soundframe/internal/publisher"
	"soundframe/internal/services"
	"soundframe/internal/session"
)

// SessionReader abstracts session persistence interactions needed for API queries.
type SessionReader interface {
	GetBySessionID(ctx context.Context, sessionID string) (*session.Session, error)
	List(ctx context.Context) ([]*session.Session, error)
	HealthSummary(ctx context.Context) (session.HealthSummary, error)
}

// SessionStarter begins a new saga for a submitted photo.
type SessionStarter interface {
	StartSession(ctx context.Context, sessionID, photoRef string) (string, error)
}

// ResultSource serves published results and acknowledgements.
type ResultSource interface {
	Get(sessionID string) (publisher.Result, error)
	Acknowledge(ctx context.Context, sessionID string) error
}

// SessionService exposes the session operations behind the HTTP API.
type SessionService struct {
	store   SessionReader
	starter SessionStarter
	results ResultSource
}

// NewSessionService constructs a SessionService around its collaborators.
func NewSessionService(store SessionReader, starter SessionStarter, results ResultSource) *SessionService {
	if store == nil || starter == nil || results == nil {
		return nil
	}
	return &SessionService{store: store, starter: starter, results: results}
}

// Submit accepts a photo reference and starts a new session.
func (s *SessionService) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	photoRef := strings.TrimSpace(req.PhotoRef)
	if photoRef == "" {
		return SubmitResponse{}, services.Wrap(services.ErrValidation, "", "submit", "photo_ref is required", nil)
	}
	sessionID, err := s.starter.StartSession(ctx, strings.TrimSpace(req.SessionID), photoRef)
	if err != nil {
		return SubmitResponse{}, err
	}
	return SubmitResponse{Accepted: true, SessionID: sessionID}, nil
}

// Status reports where one session stands. Published results are served
// from the results directory; anything still in flight reads as pending.
func (s *SessionService) Status(ctx context.Context, sessionID string) (SessionStatus, error) {
	result, err := s.results.Get(sessionID)
	if err == nil {
		return FromResult(result), nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return SessionStatus{}, err
	}
	if _, err := s.store.GetBySessionID(ctx, sessionID); err != nil {
		return SessionStatus{}, err
	}
	return SessionStatus{SessionID: sessionID, Status: "pending"}, nil
}

// List returns summaries for every known session.
func (s *SessionService) List(ctx context.Context) ([]SessionSummary, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return FromSessions(sessions), nil
}

// Acknowledge consumes a published result, removing its artifact and row.
func (s *SessionService) Acknowledge(ctx context.Context, sessionID string) error {
	return s.results.Acknowledge(ctx, sessionID)
}

// Counts aggregates session totals for the status endpoint.
func (s *SessionService) Counts(ctx context.Context) (SessionCounts, error) {
	summary, err := s.store.HealthSummary(ctx)
	if err != nil {
		return SessionCounts{}, err
	}
	return FromHealthSummary(summary), nil
}
