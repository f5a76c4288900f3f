// Package ratelimit implements a fixed-rate barrier that paces callers
// to a target number of permits per interval.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Barrier gates callers to approximately N permits per interval T. At
// any fraction r of the way through an interval, approximately r*N
// permits have been issued. It is safe for concurrent use; there is no
// fairness guarantee between waiting callers.
type Barrier struct {
	mu      sync.Mutex
	limiter *rate.Limiter

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New constructs a Barrier with the given interval and permit count.
// N permits are spread evenly across each interval T.
func New(interval time.Duration, n int) *Barrier {
	b := &Barrier{
		shutdownCh: make(chan struct{}),
	}
	b.limiter = rate.NewLimiter(ratePerSecond(interval, n), burstFor(n))
	return b
}

func ratePerSecond(interval time.Duration, n int) rate.Limit {
	if interval <= 0 || n <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(n) / interval.Seconds())
}

func burstFor(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Await blocks until the caller is permitted to proceed, or until the
// barrier is shut down or ctx is canceled. It returns false if the
// barrier was shut down before or during the wait.
func (b *Barrier) Await(ctx context.Context) bool {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-b.shutdownCh:
			cancel()
		case <-done:
		}
	}()
	defer close(done)

	select {
	case <-b.shutdownCh:
		return false
	default:
	}

	b.mu.Lock()
	limiter := b.limiter
	b.mu.Unlock()

	if err := limiter.Wait(waitCtx); err != nil {
		return false
	}
	return true
}

// SetRate changes the interval/count pair. It takes effect for permits
// issued after the next wake of any in-flight Await call.
func (b *Barrier) SetRate(interval time.Duration, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limiter.SetLimit(ratePerSecond(interval, n))
	b.limiter.SetBurst(burstFor(n))
}

// Shutdown causes all current and future Await calls to return false
// immediately. Shutdown is idempotent.
func (b *Barrier) Shutdown() {
	b.shutdownOnce.Do(func() {
		close(b.shutdownCh)
	})
}

// ShuttingDown reports whether Shutdown has been called.
func (b *Barrier) ShuttingDown() bool {
	select {
	case <-b.shutdownCh:
		return true
	default:
		return false
	}
}
