package saga

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"soundframe/internal/config"
	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/services"
	"soundframe/internal/session"
)

// Dispatch policies for the emotion stage.
const (
	DispatchSequential = "sequential"
	DispatchParallel   = "parallel"
)

// Dispatcher delivers a stage request to whichever worker serves the
// stage. The bus satisfies this.
type Dispatcher interface {
	PublishRequest(ctx context.Context, req contract.Request) error
}

// Publisher exposes a terminal session to external consumers.
type Publisher interface {
	Publish(ctx context.Context, sess *session.Session) error
}

// Orchestrator owns the set of in-flight session runs and routes worker
// responses to them.
type Orchestrator struct {
	cfg        *config.Config
	store      *session.Store
	dispatcher Dispatcher
	publisher  Publisher
	logger     *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu   sync.Mutex
	runs map[string]*run
	wg   sync.WaitGroup
}

// New creates an orchestrator. Runs started later are bound to the
// orchestrator's own lifetime, not to the StartSession caller's context.
func New(cfg *config.Config, store *session.Store, dispatcher Dispatcher, publisher Publisher, logger *slog.Logger) *Orchestrator {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logging.NewComponentLogger(logger, "saga"),
		baseCtx:    baseCtx,
		cancel:     cancel,
		runs:       make(map[string]*run),
	}
}

// StartSession creates the session record and launches its run goroutine.
// A blank sessionID gets a generated one. Returns the effective session ID.
func (o *Orchestrator) StartSession(ctx context.Context, sessionID, photoRef string) (string, error) {
	if strings.TrimSpace(photoRef) == "" {
		return "", services.Wrap(services.ErrValidation, "", "start session", "photo reference required", nil)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if _, err := o.store.Create(ctx, sessionID, photoRef); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	r := &run{
		o:         o,
		sessionID: sessionID,
		photoRef:  photoRef,
		mailbox:   make(chan contract.Response, o.mailboxSize()),
		recorded:  make(map[contract.Stage]bool),
		logger:    o.logger.With(logging.String(logging.FieldSessionID, sessionID)),
	}

	o.mu.Lock()
	if _, exists := o.runs[sessionID]; exists {
		o.mu.Unlock()
		return "", session.ErrSessionExists
	}
	o.runs[sessionID] = r
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		defer o.removeRun(sessionID)
		r.loop(o.baseCtx)
	}()

	o.logger.Info("session started",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("photo_ref", photoRef),
		logging.String("emotion_dispatch", o.emotionDispatch()))
	return sessionID, nil
}

// HandleResponse routes a worker response to its session run. Responses
// for unknown or already finished sessions are dropped. Delivery never
// blocks the caller: a full mailbox also drops the response.
func (o *Orchestrator) HandleResponse(resp contract.Response) {
	o.mu.Lock()
	r := o.runs[resp.SessionID]
	o.mu.Unlock()

	if r == nil {
		o.logger.Debug("response for unknown session dropped",
			logging.String(logging.FieldSessionID, resp.SessionID),
			logging.String(logging.FieldStage, string(resp.Stage)))
		return
	}
	select {
	case r.mailbox <- resp:
	default:
		o.logger.Warn("session mailbox full, response dropped",
			logging.String(logging.FieldSessionID, resp.SessionID),
			logging.String(logging.FieldStage, string(resp.Stage)))
	}
}

// Pump consumes worker responses until the channel closes or the context
// ends. Intended to run as the daemon's response loop.
func (o *Orchestrator) Pump(ctx context.Context, responses <-chan contract.Response) {
	for {
		select {
		case resp, ok := <-responses:
			if !ok {
				return
			}
			o.HandleResponse(resp)
		case <-ctx.Done():
			return
		}
	}
}

// ActiveSessions reports the number of in-flight session runs.
func (o *Orchestrator) ActiveSessions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.runs)
}

// Close cancels all in-flight runs and waits for them to exit. In-flight
// saga state is not recovered on restart.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) removeRun(sessionID string) {
	o.mu.Lock()
	delete(o.runs, sessionID)
	o.mu.Unlock()
}

func (o *Orchestrator) emotionDispatch() string {
	if o.cfg.Workflow.EmotionDispatch == DispatchParallel {
		return DispatchParallel
	}
	return DispatchSequential
}

func (o *Orchestrator) mailboxSize() int {
	if o.cfg.Workflow.MailboxSize > 0 {
		return o.cfg.Workflow.MailboxSize
	}
	return 8
}

func (o *Orchestrator) stageTimeout(stage contract.Stage) time.Duration {
	var secs int
	switch stage {
	case contract.StagePerception:
		secs = o.cfg.Timeouts.Perception
	case contract.StageEmotion:
		secs = o.cfg.Timeouts.Emotion
	case contract.StageNarration:
		secs = o.cfg.Timeouts.Narration
	case contract.StageVoice:
		secs = o.cfg.Timeouts.Voice
	case contract.StageMix:
		secs = o.cfg.Timeouts.Mix
	}
	if secs <= 0 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}
