package pipeline

import (
	"context"
	"sync"
)

// pauseGate blocks producer/consumer checkpoints while offline and releases
// every waiter the instant connectivity returns, without ever canceling
// in-flight work.
type pauseGate struct {
	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}
}

func newPauseGate() *pauseGate {
	ch := make(chan struct{})
	close(ch)

	return &pauseGate{resumeCh: ch}
}

func (g *pauseGate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		return
	}

	g.paused = true
	g.resumeCh = make(chan struct{})
}

func (g *pauseGate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.paused {
		return
	}

	g.paused = false
	close(g.resumeCh)
}

// wait blocks until the gate is open (resumed) or ctx is canceled.
func (g *pauseGate) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.resumeCh
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *pauseGate) isPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.paused
}
