package gtp

import (
	"context"
	"time"

	"github.com/tengenbot/tengen/internal/observability"
)

// ponderCoordinator serializes background thinking against command dispatch.
// Two states: idle and pondering. Only the session loop goroutine touches it,
// so it needs no locking; the background think communicates back solely
// through the done channel.
type ponderCoordinator struct {
	grace  time.Duration
	cancel context.CancelFunc
	done   chan struct{}
	active bool
}

func newPonderCoordinator(grace time.Duration) *ponderCoordinator {
	return &ponderCoordinator{grace: grace}
}

func (p *ponderCoordinator) Active() bool { return p.active }

// Start transitions idle -> pondering and runs think in the background.
func (p *ponderCoordinator) Start(think func(ctx context.Context)) {
	if p.active {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.active = true
	go func() {
		defer close(done)
		think(ctx)
	}()
}

// StopAndWait transitions pondering -> idle: it signals cooperative
// cancellation and waits at most the grace period for the think to unwind.
// A think that ignores the signal past the grace period keeps running while
// the next command dispatches.
func (p *ponderCoordinator) StopAndWait() {
	if !p.active {
		return
	}
	select {
	case <-p.done:
		// Think already finished on its own (budget exhausted).
	default:
		p.cancel()
		observability.RecordThinkCancel()
		select {
		case <-p.done:
		case <-time.After(p.grace):
		}
	}
	p.cancel()
	p.cancel = nil
	p.done = nil
	p.active = false
}
