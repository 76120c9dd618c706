// Package workers hosts the five stage workers behind the shared
// request/response envelope. Each worker implements Handler; a Runner
// consumes the worker's bus topic, executes the handler per request, and
// reports the result or an error envelope back on the response channel.
package workers

import (
	"context"
	"log/slog"
	"sync"

	"soundframe/internal/bus"
	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/services"
)

// Handler turns one stage request into a response payload. The returned
// string is raw worker text; the orchestrator rehabilitates it.
type Handler interface {
	Stage() contract.Stage
	Handle(ctx context.Context, req contract.Request) (string, error)
}

// Health is a point-in-time snapshot of one runner.
type Health struct {
	Stage     contract.Stage `json:"stage"`
	Handled   int            `json:"handled"`
	Failed    int            `json:"failed"`
	LastError string         `json:"last_error,omitempty"`
}

// Runner drives one Handler off the bus. Requests are handled on their
// own goroutines so a slow session never stalls the others.
type Runner struct {
	bus     *bus.Bus
	handler Handler
	logger  *slog.Logger

	mu        sync.Mutex
	handled   int
	failed    int
	lastError string

	wg sync.WaitGroup
}

// NewRunner wires a handler to its stage topic.
func NewRunner(b *bus.Bus, handler Handler, logger *slog.Logger) *Runner {
	return &Runner{
		bus:     b,
		handler: handler,
		logger: logging.NewComponentLogger(logger, "worker").With(
			logging.String(logging.FieldStage, string(handler.Stage()))),
	}
}

// Run consumes the stage topic until the bus or the context closes.
// In-flight handlers are allowed to finish.
func (r *Runner) Run(ctx context.Context) error {
	topic, err := r.bus.Requests(r.handler.Stage())
	if err != nil {
		return err
	}
	defer r.wg.Wait()
	for {
		select {
		case req := <-topic:
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.handle(ctx, req)
			}()
		case <-r.bus.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runner) handle(ctx context.Context, req contract.Request) {
	ctx = services.WithSessionID(ctx, req.SessionID)
	ctx = services.WithStage(ctx, string(req.Stage))
	ctx = services.WithRequestID(ctx, req.RequestID)
	logger := logging.WithContext(ctx, r.logger)

	resp := contract.Response{SessionID: req.SessionID, Stage: req.Stage}

	payload, err := r.handler.Handle(ctx, req)
	if err != nil {
		resp.ErrorMessage = services.Message(err)
		logger.Error("stage request failed",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err))
		r.recordFailure(err.Error())
	} else {
		resp.Payload = payload
		logger.Debug("stage request handled")
		r.recordSuccess()
	}

	if err := r.bus.PublishResponse(ctx, resp); err != nil {
		logger.Warn("response publish failed", logging.Error(err))
	}
}

// Health reports the runner's counters.
func (r *Runner) Health() Health {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Health{
		Stage:     r.handler.Stage(),
		Handled:   r.handled,
		Failed:    r.failed,
		LastError: r.lastError,
	}
}

func (r *Runner) recordSuccess() {
	r.mu.Lock()
	r.handled++
	r.mu.Unlock()
}

func (r *Runner) recordFailure(message string) {
	r.mu.Lock()
	r.failed++
	r.lastError = message
	r.mu.Unlock()
}
