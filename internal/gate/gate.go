package gate

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned by Acquire when the gate is saturated and the wait
// queue is already at capacity. It is returned synchronously, before any
// state is touched, so callers can map it straight to a 503.
var ErrBusy = errors.New("gate: server busy")

// Gate is a bounded admission controller. At most maxActive callers hold a
// ticket at once; up to queueMax further callers wait in FIFO order. Anything
// beyond that is shed immediately with ErrBusy.
type Gate struct {
	mu        sync.Mutex
	maxActive int
	queueMax  int
	active    int
	waiters   []chan struct{}
}

// New creates a Gate with the given concurrency limit and wait-queue capacity.
// Limits below 1 (or 0 for the queue) are clamped so the gate always admits
// at least one caller.
func New(maxActive, queueMax int) *Gate {
	if maxActive < 1 {
		maxActive = 1
	}
	if queueMax < 0 {
		queueMax = 0
	}
	return &Gate{maxActive: maxActive, queueMax: queueMax}
}

// Acquire obtains a ticket, blocking in FIFO order behind earlier waiters
// when the gate is full. It returns ErrBusy without enqueuing when the wait
// queue is at capacity, and ctx.Err() if the context is cancelled while
// waiting. Every successful Acquire must be paired with exactly one Release.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if g.active < g.maxActive {
		g.active++
		g.mu.Unlock()
		return nil
	}
	if len(g.waiters) >= g.queueMax {
		g.mu.Unlock()
		return ErrBusy
	}
	ready := make(chan struct{})
	g.waiters = append(g.waiters, ready)
	g.mu.Unlock()

	select {
	case <-ready:
		// The releasing side already transferred the ticket to us.
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		for i, w := range g.waiters {
			if w == ready {
				g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
				g.mu.Unlock()
				return ctx.Err()
			}
		}
		g.mu.Unlock()
		// Already promoted by a concurrent Release; the ticket is ours,
		// so hand it back before reporting cancellation.
		<-ready
		g.Release()
		return ctx.Err()
	}
}

// Release returns a ticket. If a waiter is queued, the ticket is handed to
// the oldest waiter atomically: the active count stays unchanged and exactly
// one waiter is woken per release.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.waiters) > 0 {
		ready := g.waiters[0]
		g.waiters = g.waiters[1:]
		close(ready)
		return
	}
	if g.active > 0 {
		g.active--
	}
}

// Active reports the number of tickets currently held.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Waiting reports the number of queued waiters.
func (g *Gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

// QueueFull reports whether a further Acquire would be shed with ErrBusy.
func (g *Gate) QueueFull() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active >= g.maxActive && len(g.waiters) >= g.queueMax
}
