package catalog

import (
	"context"
	"sync"
)

// Gate holds readers back while the catalog is being rewritten. A new Gate
// is open.
type Gate struct {
	mu    sync.Mutex
	ready chan struct{}
	open  bool
}

func NewGate() *Gate {
	ready := make(chan struct{})
	close(ready)
	return &Gate{ready: ready, open: true}
}

// Close makes subsequent Wait calls block until Open is called.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		g.ready = make(chan struct{})
		g.open = false
	}
}

// Open releases every waiting reader.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		close(g.ready)
		g.open = true
	}
}

func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ready := g.ready
	g.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
