package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Poller runs a function on repeat at a set interval.
// The function receives a context that is cancelled when the poller stops.
// Warning: ticks can be missed, if the function execution is slow.
type Poller struct {
	fn func(ctx context.Context)

	clock    clock.Clock
	interval time.Duration

	ticker *clock.Ticker // nil if not running

	runOnStart bool

	mu     sync.Mutex
	ctx    context.Context // non-nil when running
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(fn func(ctx context.Context), clock clock.Clock, interval time.Duration) *Poller {
	return &Poller{
		fn:       fn,
		clock:    clock,
		interval: interval,
	}
}

// RunOnStart makes the next Start run the function once right away,
// instead of waiting for the first tick.
func (pd *Poller) RunOnStart() {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	pd.runOnStart = true
}

// Start starts polling in a background routine.
// Duplicate start calls are ignored. Only one routine runs.
func (pd *Poller) Start() {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if pd.ctx != nil {
		return // already running
	}

	pd.ctx, pd.cancel = context.WithCancel(context.Background())
	pd.ticker = pd.clock.Ticker(pd.interval)

	ctx, ticker, runNow := pd.ctx, pd.ticker, pd.runOnStart
	pd.wg.Add(1)
	go func() {
		defer pd.wg.Done()
		defer ticker.Stop()

		if runNow {
			pd.fn(ctx)
		}

		for {
			select {
			case <-ticker.C:
				pd.fn(ctx)
			case <-ctx.Done():
				return // quitting
			}
		}
	}()
}

// Running reports whether the polling routine is active.
func (pd *Poller) Running() bool {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	return pd.ctx != nil
}

// Stop stops the polling and waits for an in-flight run to return.
// Duplicate calls are ignored.
func (pd *Poller) Stop() {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if pd.ctx == nil {
		return // not running, nothing to stop
	}
	pd.cancel()
	pd.wg.Wait()
	pd.ctx = nil
	pd.cancel = nil
	pd.ticker = nil
}

// SetInterval changes the polling interval.
func (pd *Poller) SetInterval(interval time.Duration) {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	pd.interval = interval
	// if we're currently running, change the interval of the active ticker
	if pd.ticker != nil {
		pd.ticker.Reset(interval)
	}
}
