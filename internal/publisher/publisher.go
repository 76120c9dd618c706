// Package publisher exposes terminal session results to external
// consumers. Each completed or failed session is written exactly once as
// a JSON artifact under the results directory; consumers poll or watch
// that directory and acknowledge results they have taken, which removes
// both the artifact and the session row.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"soundframe/internal/config"
	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/services"
	"soundframe/internal/session"
)

// Result is the externally observable terminal record for one session.
type Result struct {
	SessionID string       `json:"session_id"`
	Status    string       `json:"status"`
	Result    *ResultBody  `json:"result,omitempty"`
	Error     *FailureBody `json:"error,omitempty"`
}

// ResultBody carries the successful outcome.
type ResultBody struct {
	Mix       contract.Mix       `json:"mix"`
	Narration contract.Narration `json:"narration"`
}

// FailureBody names the failing stage.
type FailureBody struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Publisher writes terminal results to the results directory.
type Publisher struct {
	dir    string
	store  *session.Store
	logger *slog.Logger

	mu      sync.Mutex
	waiters map[string][]chan Result
}

// New creates a publisher writing under the configured results directory.
func New(cfg *config.Config, store *session.Store, logger *slog.Logger) (*Publisher, error) {
	if cfg.Paths.ResultsDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "publisher", "results_dir not configured", nil)
	}
	if err := os.MkdirAll(cfg.Paths.ResultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	return &Publisher{
		dir:     cfg.Paths.ResultsDir,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "publisher"),
		waiters: make(map[string][]chan Result),
	}, nil
}

// Publish writes the session's terminal result once. Repeated calls for
// the same session are no-ops; the store's published marker is the
// exactly-once guard, so a crash between marking and writing loses at
// most that one artifact.
func (p *Publisher) Publish(ctx context.Context, sess *session.Session) error {
	if !sess.IsTerminal() {
		return services.Wrap(services.ErrValidation, "", "publish", "session not terminal: "+string(sess.Status), nil)
	}

	first, err := p.store.MarkPublished(ctx, sess.SessionID)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if !first {
		p.logger.Debug("result already published",
			logging.String(logging.FieldSessionID, sess.SessionID))
		return nil
	}

	result, err := buildResult(sess)
	if err != nil {
		return err
	}
	if err := p.writeArtifact(result); err != nil {
		return err
	}

	p.logger.Info("result published",
		logging.String(logging.FieldSessionID, sess.SessionID),
		logging.String("status", result.Status))
	p.notify(result)
	return nil
}

// Get reads a published artifact back.
func (p *Publisher) Get(sessionID string) (Result, error) {
	data, err := os.ReadFile(p.artifactPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, services.Wrap(services.ErrNotFound, "", "result", sessionID, nil)
		}
		return Result{}, fmt.Errorf("read result: %w", err)
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}

// Acknowledge marks a published result as consumed: the artifact and the
// session row are removed.
func (p *Publisher) Acknowledge(ctx context.Context, sessionID string) error {
	if _, err := p.Get(sessionID); err != nil {
		return err
	}
	if err := p.store.MarkAcknowledged(ctx, sessionID); err != nil {
		return fmt.Errorf("mark acknowledged: %w", err)
	}
	if err := os.Remove(p.artifactPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove result artifact: %w", err)
	}
	if err := p.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	p.logger.Info("result acknowledged",
		logging.String(logging.FieldSessionID, sessionID))
	return nil
}

// RemoveArtifact deletes a stale artifact without touching the store.
// Used by the TTL sweeper.
func (p *Publisher) RemoveArtifact(sessionID string) error {
	if err := os.Remove(p.artifactPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove result artifact: %w", err)
	}
	return nil
}

// Await returns a channel that receives the result when the session
// reaches a terminal state. If the result is already published it is
// delivered immediately.
func (p *Publisher) Await(sessionID string) <-chan Result {
	ch := make(chan Result, 1)
	if result, err := p.Get(sessionID); err == nil {
		ch <- result
		return ch
	}
	p.mu.Lock()
	p.waiters[sessionID] = append(p.waiters[sessionID], ch)
	p.mu.Unlock()
	return ch
}

func (p *Publisher) notify(result Result) {
	p.mu.Lock()
	waiters := p.waiters[result.SessionID]
	delete(p.waiters, result.SessionID)
	p.mu.Unlock()
	for _, ch := range waiters {
		ch <- result
	}
}

// writeArtifact writes via a temp file and rename so consumers never see
// a partial document.
func (p *Publisher) writeArtifact(result Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	final := p.artifactPath(result.SessionID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("finalize result: %w", err)
	}
	return nil
}

func (p *Publisher) artifactPath(sessionID string) string {
	return filepath.Join(p.dir, sessionID+".json")
}

func buildResult(sess *session.Session) (Result, error) {
	result := Result{SessionID: sess.SessionID}

	if sess.Status == session.StatusFailed {
		result.Status = "failed"
		result.Error = &FailureBody{Stage: sess.FailureStage, Message: sess.FailureMessage}
		return result, nil
	}

	result.Status = "complete"
	var mix contract.Mix
	if err := json.Unmarshal([]byte(sess.MixJSON), &mix); err != nil {
		return Result{}, fmt.Errorf("decode mix result: %w", err)
	}
	var narration contract.Narration
	if err := json.Unmarshal([]byte(sess.NarrationJSON), &narration); err != nil {
		return Result{}, fmt.Errorf("decode narration result: %w", err)
	}
	result.Result = &ResultBody{Mix: mix, Narration: narration}
	return result, nil
}
