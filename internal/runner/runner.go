package runner

import (
	"context"
	"sync"
	"time"

	"mt4_gateway/internal/exchange"
)

// Runner owns the event loop: one goroutine ticking at the configured
// interval and draining the gateway's queued events. Everything the gateway
// applies to shared state happens on this goroutine, which is what keeps the
// order book and account consistent without heavier locking.
type Runner struct {
	ex       exchange.Exchange
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ex exchange.Exchange, interval time.Duration) *Runner {
	return &Runner{ex: ex, interval: interval}
}

func (r *Runner) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				// Drain what is already queued so shutdown does not lose
				// order state updates that were delivered in time.
				r.ex.ProcessEvents()
				return
			case <-ticker.C:
				r.ex.ProcessEvents()
			}
		}
	}()
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}
