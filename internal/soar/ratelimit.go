// Package soar — ratelimit.go
//
// Rate limiter for SOAR-issued enforcement actions, adapted from
// octoreflex/internal/budget/token_bucket.go's token bucket algorithm,
// which rations escalation-state transitions there; here the same
// bucket shape rations Enforcer.Quarantine calls, guarding against a
// single noisy alert storm triggering a cascade of auto-quarantines.
package soar

import (
	"sync"
	"time"
)

// ActionBucket is a thread-safe token bucket limiting how many
// enforcement actions the engine may issue per refill period.
type ActionBucket struct {
	mu           sync.Mutex
	capacity     int
	tokens       int
	refillPeriod time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
}

// NewActionBucket creates a bucket with the given capacity and starts
// its refill goroutine. capacity and refillPeriod must be > 0.
func NewActionBucket(capacity int, refillPeriod time.Duration) *ActionBucket {
	if capacity <= 0 {
		panic("soar.ActionBucket: capacity must be > 0")
	}
	if refillPeriod <= 0 {
		panic("soar.ActionBucket: refillPeriod must be > 0")
	}
	b := &ActionBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		stop:         make(chan struct{}),
	}
	go b.refillLoop()
	return b
}

func (b *ActionBucket) refillLoop() {
	ticker := time.NewTicker(b.refillPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.mu.Lock()
			b.tokens = b.capacity
			b.mu.Unlock()
		case <-b.stop:
			return
		}
	}
}

// Allow attempts to consume one token. Returns false if the bucket is
// exhausted, meaning the caller should skip the action this round.
func (b *ActionBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Remaining returns the current token count.
func (b *ActionBucket) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Close stops the refill goroutine. Safe to call more than once.
func (b *ActionBucket) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
}
