// Package pacing produces the randomized delays used to make a crawl look
// like a person browsing, plus an optional request-rate ceiling.
package pacing

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pacer draws random delays and sleeps. It is safe for concurrent use.
type Pacer struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	sleep SleepFunc
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithSeed makes the random sequence deterministic.
func WithSeed(seed uint64) Option {
	return func(p *Pacer) {
		p.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithSleep replaces the sleep implementation, e.g. to skip waits in tests.
func WithSleep(fn SleepFunc) Option {
	return func(p *Pacer) {
		p.sleep = fn
	}
}

// New creates a Pacer seeded from the runtime source.
func New(opts ...Option) *Pacer {
	p := &Pacer{
		rnd:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sleep: Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Instant returns a Pacer that never blocks, only honouring cancellation.
func Instant() *Pacer {
	return New(WithSeed(1), WithSleep(func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}))
}

// Float returns a uniform value in [lo, hi).
func (p *Pacer) Float(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + p.rnd.Float64()*(hi-lo)
}

// Int returns a uniform value in [lo, hi].
func (p *Pacer) Int(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + p.rnd.IntN(hi-lo+1)
}

// Duration returns a uniform duration in [lo, hi).
func (p *Pacer) Duration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + time.Duration(p.rnd.Int64N(int64(hi-lo)))
}

// Sleep blocks for exactly d.
func (p *Pacer) Sleep(ctx context.Context, d time.Duration) error {
	return p.sleep(ctx, d)
}

// Pause blocks for a random duration in [lo, hi).
func (p *Pacer) Pause(ctx context.Context, lo, hi time.Duration) error {
	return p.sleep(ctx, p.Duration(lo, hi))
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Throttle caps how many navigations a crawl may start per minute. A nil
// Throttle does not limit.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a throttle allowing perMinute requests per minute, or
// nil when perMinute is not positive.
func NewThrottle(perMinute int) *Throttle {
	if perMinute <= 0 {
		return nil
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)}
}

// Wait blocks until the next request may start.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}
