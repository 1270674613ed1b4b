// Package worker contains the long-lived modules of the discovery
// pipeline: the random-scan search workers, the periodic updater, the
// notify listener, and the ingest/update actions they share.
package worker

import "sync"

// Pause is the broadcast gate between the updater and the search
// workers. It carries a single boolean with latest-value-wins semantics:
// true means workers may probe, false parks them until the next edge.
// The updater is the only producer.
type Pause struct {
	mu      sync.Mutex
	running bool
	changed chan struct{}
}

// NewPause returns a gate in the given state.
func NewPause(running bool) *Pause {
	return &Pause{running: running, changed: make(chan struct{})}
}

// Set publishes a new value and wakes every waiter. Setting the current
// value again is a no-op.
func (p *Pause) Set(running bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running == running {
		return
	}
	p.running = running
	close(p.changed)
	p.changed = make(chan struct{})
}

// Running reports the current value.
func (p *Pause) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Changed returns a channel closed on the next value change. Callers
// re-check Running afterwards; the channel says only that something
// happened.
func (p *Pause) Changed() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}
