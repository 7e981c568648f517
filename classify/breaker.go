package classify

import (
	"sync"
	"time"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // calls pass through
	BreakerOpen                         // calls rejected
	BreakerHalfOpen                     // trial calls allowed
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "closed"
}

// Breaker stops calling a provider after consecutive failures. Once the
// reset timeout has elapsed it admits at most halfOpenMax trial calls;
// that many successes close it, any failure reopens it. Safe for
// concurrent use.
type Breaker struct {
	mu           sync.Mutex
	state        BreakerState
	failures     int
	successes    int
	trials       int
	threshold    int
	resetTimeout time.Duration
	halfOpenMax  int
	openedAt     time.Time
	trialAt      time.Time
	now          func() time.Time
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

func WithBreakerThreshold(n int) BreakerOption {
	return func(b *Breaker) { b.threshold = n }
}

func WithBreakerResetTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) { b.resetTimeout = d }
}

// WithBreakerHalfOpenMax sets the number of trial calls admitted in
// half-open, which is also the number of successes needed to close.
func WithBreakerHalfOpenMax(n int) BreakerOption {
	return func(b *Breaker) { b.halfOpenMax = n }
}

// WithBreakerClock replaces time.Now (tests).
func WithBreakerClock(fn func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = fn }
}

// NewBreaker defaults to 5 failures, 30s open, 1 success to close.
func NewBreaker(opts ...BreakerOption) *Breaker {
	b := &Breaker{threshold: 5, resetTimeout: 30 * time.Second, halfOpenMax: 1, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	if b.halfOpenMax < 1 {
		b.halfOpenMax = 1
	}
	return b
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// Allow reports whether a call may proceed. In half-open each true return
// uses up one trial call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	switch b.state {
	case BreakerOpen:
		return false
	case BreakerHalfOpen:
		if b.trials >= b.halfOpenMax {
			return false
		}
		b.trials++
	}
	return true
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.halfOpenMax {
			b.state, b.failures, b.successes, b.trials = BreakerClosed, 0, 0, 0
		}
	case BreakerClosed:
		b.failures = 0
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.state, b.openedAt = BreakerOpen, b.now()
		}
	case BreakerHalfOpen:
		b.state, b.openedAt, b.successes, b.trials = BreakerOpen, b.now(), 0, 0
	}
}

// advance moves an expired open breaker to half-open. Trial calls that never
// reported back (their caller gave up) are re-admitted after another reset
// timeout. mu must be held.
func (b *Breaker) advance() {
	now := b.now()
	switch {
	case b.state == BreakerOpen && now.Sub(b.openedAt) >= b.resetTimeout:
		b.state, b.successes, b.trials, b.trialAt = BreakerHalfOpen, 0, 0, now
	case b.state == BreakerHalfOpen && b.trials >= b.halfOpenMax && now.Sub(b.trialAt) >= b.resetTimeout:
		b.trials, b.trialAt = b.successes, now
	}
}
