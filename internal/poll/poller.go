// Package poll runs a refresh function on a fixed interval and stops
// retrying once it keeps failing, until someone asks for a manual retry.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Func is the work done on every tick
type Func func(ctx context.Context) error

// Poller calls fn every interval. After threshold consecutive failures it
// disables itself; Retry runs fn once and re-enables polling on success.
type Poller struct {
	interval  time.Duration
	threshold int
	fn        Func
	log       *slog.Logger

	mu       sync.Mutex
	failures int
	disabled bool
	lastErr  error
	running  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}

	// OnResult, when set, is called after every run with its error
	OnResult func(error)
}

func New(name string, interval time.Duration, threshold int, fn Func, log *slog.Logger) *Poller {
	if threshold < 1 {
		threshold = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		interval:  interval,
		threshold: threshold,
		fn:        fn,
		log:       log.With("component", "poller", "poller", name),
	}
}

// Start begins polling in the background. It is a no-op if already running,
// once Stop was called, or if interval is not positive.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.stopped || p.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	go p.loop(ctx, p.done)
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Disabled() {
				continue
			}
			p.run(ctx)
		}
	}
}

func (p *Poller) run(ctx context.Context) error {
	err := p.fn(ctx)
	if ctx.Err() != nil {
		// Stopped mid-run, the result doesn't count
		return err
	}

	p.mu.Lock()
	if err != nil {
		p.failures++
		p.lastErr = err
		if p.failures >= p.threshold && !p.disabled {
			p.disabled = true
			p.log.Warn("polling disabled after repeated failures", "failures", p.failures, "error", err)
		}
	} else {
		p.failures = 0
		p.lastErr = nil
		p.disabled = false
	}
	onResult := p.OnResult
	p.mu.Unlock()

	if onResult != nil {
		onResult(err)
	}
	return err
}

// Retry runs fn now. Success re-enables polling.
func (p *Poller) Retry(ctx context.Context) error {
	return p.run(ctx)
}

// Disable stops automatic runs until the next successful Retry. Used when
// a failure is observed outside the poller.
func (p *Poller) Disable(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.disabled {
		p.log.Debug("polling disabled", "error", err)
	}
	p.disabled = true
	p.lastErr = err
}

func (p *Poller) Disabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disabled
}

// Err returns the error that caused the last failure, nil after a success
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Stop ends the background loop and waits for it to exit. A stopped poller
// can't be started again.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.mu.Unlock()

	cancel()
	<-done
}
