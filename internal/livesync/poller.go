// Package livesync drives near-real-time views by polling the ledgers.
//
// A Poller fetches once on activation and then once per interval. At most
// one fetch runs at a time; ticks that fall due while a fetch is still
// running are skipped, not queued. Deactivate stops the poller at once: a
// fetch that completes afterwards is dropped without reaching the consumer.
package livesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultInterval = 2 * time.Second

var ErrAlreadyActive = errors.New("poller already active")

// Fetch produces the current state of a view.
type Fetch[T any] func(ctx context.Context) (T, error)

type Options struct {
	// Interval between fetches. Zero means DefaultInterval.
	Interval time.Duration
	// View labels metrics and log lines, e.g. "conversation" or "forum".
	// Keep it low-cardinality; never put user ids here.
	View    string
	Logger  zerolog.Logger
	OnError func(error)
}

type Poller[T any] struct {
	fetch   Fetch[T]
	consume func(T)
	opts    Options

	mu      sync.Mutex
	current *activation
}

// activation is one Activate..Deactivate cycle.
type activation struct {
	cancel context.CancelFunc
	done   chan struct{}

	// deliverMu is held while the consumer runs, so Deactivate returns only
	// after any in-progress delivery has finished.
	deliverMu sync.Mutex
	stopped   bool
}

func New[T any](fetch Fetch[T], consume func(T), opts Options) *Poller[T] {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.View == "" {
		opts.View = "view"
	}
	return &Poller[T]{fetch: fetch, consume: consume, opts: opts}
}

// Activate starts polling. The first fetch happens immediately. Cancelling
// ctx has the same effect as Deactivate and is the way for a consumer to
// stop its own poller: calling Deactivate from inside the consumer
// deadlocks.
func (p *Poller[T]) Activate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		select {
		case <-p.current.done:
		default:
			return ErrAlreadyActive
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	a := &activation{cancel: cancel, done: make(chan struct{})}
	p.current = a
	activePollers.WithLabelValues(p.opts.View).Inc()
	go p.run(runCtx, a)
	return nil
}

// Deactivate stops the poller. When it returns the consumer is not running
// and will not be called again for this activation. It is safe to call
// more than once and on a poller that was never activated.
func (p *Poller[T]) Deactivate() {
	p.mu.Lock()
	a := p.current
	p.current = nil
	p.mu.Unlock()
	if a == nil {
		return
	}

	a.deliverMu.Lock()
	a.stopped = true
	a.deliverMu.Unlock()
	a.cancel()
}

// Done is closed when the polling goroutine of the current activation has
// exited. It returns nil when the poller is not active.
func (p *Poller[T]) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return p.current.done
}

func (p *Poller[T]) run(ctx context.Context, a *activation) {
	defer close(a.done)
	defer activePollers.WithLabelValues(p.opts.View).Dec()
	defer a.cancel()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.poll(ctx, a, ticker)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		p.poll(ctx, a, ticker)
	}
}

func (p *Poller[T]) poll(ctx context.Context, a *activation, ticker *time.Ticker) {
	started := time.Now()
	value, err := p.fetch(ctx)
	elapsed := time.Since(started)
	fetchDuration.WithLabelValues(p.opts.View).Observe(elapsed.Seconds())

	// Ticks that came due during a slow fetch are dropped and the schedule
	// restarts from now.
	if elapsed >= p.opts.Interval {
		skippedTicks.WithLabelValues(p.opts.View).Add(float64(elapsed / p.opts.Interval))
		ticker.Reset(p.opts.Interval)
		select {
		case <-ticker.C:
		default:
		}
	}

	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()
	if a.stopped || ctx.Err() != nil {
		discarded.WithLabelValues(p.opts.View).Inc()
		return
	}
	if err != nil {
		fetchErrors.WithLabelValues(p.opts.View).Inc()
		p.opts.Logger.Warn().Err(err).Str("view", p.opts.View).Msg("poll failed")
		if p.opts.OnError != nil {
			p.opts.OnError(err)
		}
		return
	}
	deliveries.WithLabelValues(p.opts.View).Inc()
	p.consume(value)
}
