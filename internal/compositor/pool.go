package compositor

import "context"

// ioPool bounds concurrent asset reads and writes so blocking file IO
// never stalls the dispatch loop that calls Compose.
type ioPool struct {
	slots chan struct{}
}

func newIOPool(size int) *ioPool {
	if size < 1 {
		size = 1
	}
	return &ioPool{slots: make(chan struct{}, size)}
}

// run executes fn on its own goroutine once a slot is free. Returns
// without starting fn if the context ends first.
func (p *ioPool) run(ctx context.Context, fn func()) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	go func() {
		defer func() { <-p.slots }()
		fn()
	}()
	return nil
}
