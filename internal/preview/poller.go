// SPDX-License-Identifier: MIT

package preview

import (
	"context"
	"sync"
	"time"

	"github.com/loomverse/studio/internal/session"
)

// Poller watches a boolean probe, typically camera track liveness, and
// reports edges to the onChange callback. The initial probe value is
// reported once on start.
type Poller struct {
	clock    session.Clock
	interval time.Duration
	probe    func() bool
	onChange func(visible bool)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(clock session.Clock, interval time.Duration, probe func() bool, onChange func(bool)) *Poller {
	return &Poller{clock: clock, interval: interval, probe: probe, onChange: onChange}
}

// Start begins polling. A second Start without an intervening Stop is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop halts polling and waits for the poll goroutine to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	last := p.probe()
	p.onChange(last)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if cur := p.probe(); cur != last {
				last = cur
				p.onChange(cur)
			}
		}
	}
}
