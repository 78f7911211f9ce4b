package interceptor

import (
	"sync"
	"time"

	apperrors "relay/pkg/errors"
	"relay/pkg/pipeline"
)

// KeyFunc derives the rate-limiting key for a request. The default keys by
// client address when the transport provided one.
type KeyFunc func(rc *pipeline.RequestContext) string

// RateLimit applies token-bucket limiting per key and short-circuits over-
// limit requests with a rate-limit error before the handler runs.
type RateLimit struct {
	limiter *TokenBucketLimiter
	keyFn   KeyFunc
}

// NewRateLimit creates a rate-limit interceptor allowing maxTokens burst and
// one token refilled per refillRate.
func NewRateLimit(maxTokens int, refillRate time.Duration, keyFn KeyFunc) *RateLimit {
	if keyFn == nil {
		keyFn = func(rc *pipeline.RequestContext) string {
			if ip := rc.GetString(pipeline.MetaClientIP); ip != "" {
				return "ip:" + ip
			}
			return "global"
		}
	}
	return &RateLimit{
		limiter: NewTokenBucketLimiter(maxTokens, refillRate),
		keyFn:   keyFn,
	}
}

// Name implements pipeline.Interceptor.
func (r *RateLimit) Name() string { return "rate-limit" }

// Before implements pipeline.BeforeHook.
func (r *RateLimit) Before(rc *pipeline.RequestContext) (*pipeline.Result, error) {
	key := r.keyFn(rc)
	if !r.limiter.Allow(key) {
		return nil, apperrors.NewRateLimitError(key)
	}
	return nil, nil
}

// TokenBucketLimiter implements token bucket rate limiting. One instance
// serves all in-flight requests; buckets carry their own locks.
type TokenBucketLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxTokens  int
	refillRate time.Duration
}

type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
func NewTokenBucketLimiter(maxTokens int, refillRate time.Duration) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
	}
}

// Allow reports whether a request under the key may proceed, consuming one
// token when it does.
func (l *TokenBucketLimiter) Allow(key string) bool {
	l.mu.Lock()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     l.maxTokens,
			lastRefill: time.Now(),
		}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	// Refill tokens based on time elapsed
	now := time.Now()
	if added := int(now.Sub(b.lastRefill) / l.refillRate); added > 0 {
		b.tokens = min(b.tokens+added, l.maxTokens)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Reset clears the bucket for a key.
func (l *TokenBucketLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
}
