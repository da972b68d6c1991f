package storage

import (
	"context"
	"sync"
	"time"
)

// BreakerState represents the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed passes every call through to the backend.
	BreakerClosed BreakerState = iota
	// BreakerHalfOpen lets a single probe call through after the cooldown.
	BreakerHalfOpen
	// BreakerOpen fails every call with ErrCircuitOpen until the cooldown ends.
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	case BreakerOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker wraps a Store and stops calling it after maxFailures consecutive
// failures. While open every call fails fast with ErrCircuitOpen. Once the
// cooldown has elapsed a single probe call is let through; success closes
// the breaker, failure reopens it for another cooldown.
type Breaker struct {
	next        Store
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

var _ Store = (*Breaker)(nil)

// NewBreaker returns a Breaker around next. Non-positive arguments default to
// 5 failures and a 30 second cooldown.
func NewBreaker(next Store, maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		next:        next,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		return nil
	case BreakerHalfOpen:
		// one probe at a time
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.state = BreakerClosed
		b.failures = 0
		return
	}
	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

func (b *Breaker) Get(ctx context.Context, key string) (string, bool, error) {
	if err := b.allow(); err != nil {
		return "", false, err
	}
	val, found, err := b.next.Get(ctx, key)
	b.record(err)
	return val, found, err
}

func (b *Breaker) Set(ctx context.Context, key string, value string) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := b.next.Set(ctx, key, value)
	b.record(err)
	return err
}

func (b *Breaker) Close() error {
	return b.next.Close()
}
