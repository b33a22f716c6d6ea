package http

import (
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER - per-client token buckets
// ══════════════════════════════════════════════════════════════════════════════

// bucket is a token bucket for one client.
type bucket struct {
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

// rateLimiter keeps one token bucket per client key. Idle buckets are
// evicted by a janitor goroutine that runs until Stop.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	maxTokens  float64 // burst size
	refillRate float64 // tokens per second
	idleTTL    time.Duration
	now        func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newRateLimiter(perSecond, burst int) *rateLimiter {
	if burst < 1 {
		burst = perSecond
	}
	rl := &rateLimiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  float64(burst),
		refillRate: float64(perSecond),
		idleTTL:    5 * time.Minute,
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go rl.janitor(time.Minute)
	return rl
}

// Allow consumes a token for key. When the bucket is empty it returns false
// and the time until the next token.
func (rl *rateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		// start with a full bucket
		b = &bucket{tokens: rl.maxTokens, lastRefill: now}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.refill(b, now)

	if b.tokens < 1.0 {
		wait := time.Duration((1.0 - b.tokens) / rl.refillRate * float64(time.Second))
		return false, wait
	}
	b.tokens--
	return true, 0
}

// refill adds tokens for the time elapsed since the last refill.
// Must be called with lock held.
func (rl *rateLimiter) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * rl.refillRate
	if b.tokens > rl.maxTokens {
		b.tokens = rl.maxTokens
	}
	b.lastRefill = now
}

func (rl *rateLimiter) janitor(every time.Duration) {
	defer close(rl.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *rateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// Stop terminates the janitor. Safe to call more than once.
func (rl *rateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
