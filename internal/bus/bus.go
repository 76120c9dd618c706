package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"soundframe/internal/contract"
)

var (
	// ErrClosed is returned by publish operations after Close.
	ErrClosed = errors.New("bus closed")

	// ErrUnknownStage is returned when a request targets a stage the bus
	// has no topic for.
	ErrUnknownStage = errors.New("unknown stage topic")
)

// Bus routes stage requests to bounded per-stage topics and worker
// responses to a single shared channel. All methods are safe for
// concurrent use.
type Bus struct {
	requests  map[contract.Stage]chan contract.Request
	responses chan contract.Response

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a bus with one topic per pipeline stage. queueSize bounds
// each request topic and the response channel; values below 1 are
// clamped to 1.
func New(queueSize int) *Bus {
	if queueSize < 1 {
		queueSize = 1
	}
	requests := make(map[contract.Stage]chan contract.Request, len(contract.Pipeline()))
	for _, stage := range contract.Pipeline() {
		requests[stage] = make(chan contract.Request, queueSize)
	}
	return &Bus{
		requests:  requests,
		responses: make(chan contract.Response, queueSize),
		done:      make(chan struct{}),
	}
}

// PublishRequest enqueues a stage request, blocking while the topic is
// full until the context is canceled or the bus closes.
func (b *Bus) PublishRequest(ctx context.Context, req contract.Request) error {
	topic, ok := b.requests[req.Stage]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, req.Stage)
	}
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case topic <- req:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Requests returns the topic a worker runner for the given stage should
// consume from.
func (b *Bus) Requests(stage contract.Stage) (<-chan contract.Request, error) {
	topic, ok := b.requests[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	return topic, nil
}

// PublishResponse enqueues a worker response for the orchestrator.
func (b *Bus) PublishResponse(ctx context.Context, resp contract.Response) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case b.responses <- resp:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Responses returns the channel the orchestrator pumps worker replies
// from.
func (b *Bus) Responses() <-chan contract.Response {
	return b.responses
}

// Done is closed when the bus shuts down. Worker runners select on it
// alongside their request topic.
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

// Close shuts the bus down. Pending publishes unblock with ErrClosed;
// messages already queued remain readable.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
