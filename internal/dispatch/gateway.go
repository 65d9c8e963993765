package dispatch

import (
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/shinji-kodama/procman/internal/manager"
	"github.com/shinji-kodama/procman/internal/safe"
)

// Gateway is a configurable dispatcher. With no workers configured it
// behaves like the package-level Join and Detach: one goroutine per call.
// With workers configured, detached units share a bounded pool.
//
// The pool only bounds detached units. Join always gets its own goroutine,
// so a unit that joins another unit cannot deadlock on a saturated pool.
type Gateway struct {
	sink        manager.Sink
	workers     int
	joinTimeout time.Duration

	// mu guards pool. Detach reads it on the caller's goroutine; Wait
	// takes it for writing to detach the pool before draining it.
	mu   sync.RWMutex
	pool *pool.Pool

	pending sync.WaitGroup
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithWorkers bounds the number of detached units running at once.
// Zero or less means unbounded, one goroutine per call.
func WithWorkers(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithSink sets the side channel that receives detached unit failures.
func WithSink(s manager.Sink) Option {
	return func(g *Gateway) {
		g.sink = s
	}
}

// WithJoinTimeout bounds Gateway.Join. Zero, the default, waits forever.
func WithJoinTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.joinTimeout = d
	}
}

// NewGateway creates a Gateway.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{}
	for _, opt := range opts {
		opt(g)
	}
	if g.workers > 0 {
		g.pool = pool.New().WithMaxGoroutines(g.workers)
	}
	return g
}

// Workers returns the configured pool size, zero when unbounded.
func (g *Gateway) Workers() int {
	return g.workers
}

// Join runs unit on its own goroutine and blocks until it returns or the
// configured join timeout elapses. It returns ErrTimeout in the latter
// case, and a CustomError fault if the unit panicked.
func (g *Gateway) Join(unit Unit) error {
	return JoinTimeout(unit, g.joinTimeout)
}

// Detach hands unit off and returns immediately, even when the pool is
// saturated: submission itself happens on a separate goroutine. Nothing
// about the unit's outcome is returned. A panic inside the unit is sent
// to the gateway sink.
func (g *Gateway) Detach(unit Unit) {
	g.pending.Add(1)
	run := func() {
		defer g.pending.Done()
		report(g.sink, safe.Guard(unit.Execute))
	}

	// Capture the pool before Wait can detach it.
	g.mu.RLock()
	p := g.pool
	g.mu.RUnlock()

	go func() {
		if p == nil {
			run()
			return
		}
		// Go blocks while the pool is full; the caller of Detach has
		// already returned by then.
		p.Go(run)
	}()
}

// Wait blocks until every unit detached so far has returned, then
// releases the pool. It is a shutdown helper for the owner of the
// gateway, not a completion signal for any single unit. Units detached
// after Wait run one goroutine per call.
func (g *Gateway) Wait() {
	g.mu.Lock()
	p := g.pool
	g.pool = nil
	g.mu.Unlock()

	g.pending.Wait()
	if p != nil {
		p.Wait()
	}
}
