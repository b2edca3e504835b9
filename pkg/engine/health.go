// pkg/engine/health.go
package engine

import (
	"context"
	"fmt"
)

// probeState is the probe view published by the frame goroutine. Health
// handlers run on other goroutines and only ever read it.
type probeState struct {
	ready     error
	streaming error
}

func (g *Game) publishProbes() {
	var p probeState
	switch {
	case g.disposed:
		p.ready = fmt.Errorf("%w: disposed", ErrNotReady)
	case !g.initialized:
		p.ready = fmt.Errorf("%w: not initialized", ErrNotReady)
	case !g.physicsReady:
		p.ready = fmt.Errorf("%w: physics unavailable", ErrNotReady)
	case !g.controller.Ready():
		p.ready = fmt.Errorf("%w: craft not attached", ErrNotReady)
	}

	switch {
	case g.streamer == nil:
		p.streaming = fmt.Errorf("%w: streaming not started", ErrNotReady)
	default:
		if n, max := g.streamer.LoadedCount(), g.cfg.Chunk.MaxResident(); n > max {
			p.streaming = fmt.Errorf("%d chunks loaded, at most %d expected", n, max)
		}
	}
	g.probes.Store(&p)
}

// ReadinessCheck fails until physics runs and the craft is attached. It is
// safe to call from any goroutine.
func (g *Game) ReadinessCheck(ctx context.Context) error {
	p := g.probes.Load()
	if p == nil {
		return fmt.Errorf("%w: not initialized", ErrNotReady)
	}
	return p.ready
}

// StreamingCheck fails when more chunks are loaded than the retire radius
// can hold, which means retirement stopped keeping up. It is safe to call
// from any goroutine.
func (g *Game) StreamingCheck(ctx context.Context) error {
	p := g.probes.Load()
	if p == nil {
		return fmt.Errorf("%w: streaming not started", ErrNotReady)
	}
	return p.streaming
}
