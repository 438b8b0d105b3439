// Package ratelimit provides token-bucket rate limiting for chat
// sessions, the global request budget, and channel send paths.
package ratelimit

import (
	"sync"
	"time"
)

// Config configures a bucket family. Rates are expressed per minute to
// match the channel configuration rows.
type Config struct {
	// RequestsPerMinute is the sustained rate allowed per key.
	RequestsPerMinute float64 `yaml:"requests_per_minute"`

	// BurstSize is the maximum number of requests allowed in a burst.
	// Defaults to RequestsPerMinute when unset.
	BurstSize int `yaml:"burst_size"`

	// Enabled controls whether rate limiting is active.
	Enabled bool `yaml:"enabled"`
}

// DefaultSessionConfig returns the per-session default: 10 requests per
// minute with matching burst.
func DefaultSessionConfig() Config {
	return Config{RequestsPerMinute: 10, BurstSize: 10, Enabled: true}
}

// DefaultGlobalConfig returns the deployment-wide default.
func DefaultGlobalConfig() Config {
	return Config{RequestsPerMinute: 120, BurstSize: 120, Enabled: true}
}

// Bucket implements token-bucket rate limiting for a single key.
type Bucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewBucket creates a bucket from the given config, applying defaults
// for zero values.
func NewBucket(config Config) *Bucket {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 10
	}
	if config.BurstSize <= 0 {
		config.BurstSize = int(config.RequestsPerMinute)
	}

	return &Bucket{
		tokens:     float64(config.BurstSize),
		maxTokens:  float64(config.BurstSize),
		refillRate: config.RequestsPerMinute / 60.0,
		lastRefill: time.Now(),
	}
}

// NewBucketPerMinute creates a bucket for a raw per-minute rate. Channel
// handlers use this with the RateLimitPerMinute field of their config row.
func NewBucketPerMinute(perMinute int) *Bucket {
	return NewBucket(Config{RequestsPerMinute: float64(perMinute), Enabled: true})
}

// Allow consumes one token if available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// refill adds tokens based on elapsed time. Caller holds the lock.
func (b *Bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now

	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
}

// Tokens returns the current number of available tokens.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.tokens
}

// WaitTime returns how long until one request would be allowed.
func (b *Bucket) WaitTime() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		return 0
	}
	seconds := (1 - b.tokens) / b.refillRate
	return time.Duration(seconds * float64(time.Second))
}

// maxKeys bounds the keyed-limiter map; inactive buckets are pruned when
// the bound is hit.
const maxKeys = 10000

// Limiter manages independent buckets for multiple keys (session IDs,
// channel chat IDs).
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
	config  Config
}

// NewLimiter creates a keyed rate limiter.
func NewLimiter(config Config) *Limiter {
	return &Limiter{
		buckets: make(map[string]*Bucket),
		config:  config,
	}
}

// Allow checks and consumes one token for the given key.
func (l *Limiter) Allow(key string) bool {
	if !l.config.Enabled {
		return true
	}
	return l.getBucket(key).Allow()
}

// WaitTime returns how long until a request for key would be allowed.
func (l *Limiter) WaitTime(key string) time.Duration {
	if !l.config.Enabled {
		return 0
	}
	return l.getBucket(key).WaitTime()
}

// Reset drops the bucket for a key, restoring its full burst.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *Limiter) getBucket(key string) *Bucket {
	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()
	if exists {
		return bucket
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if bucket, exists = l.buckets[key]; exists {
		return bucket
	}

	if len(l.buckets) >= maxKeys {
		l.prune()
	}

	bucket = NewBucket(l.config)
	l.buckets[key] = bucket
	return bucket
}

// prune removes buckets that are close to full (likely inactive keys).
// Caller holds the write lock.
func (l *Limiter) prune() {
	for key, bucket := range l.buckets {
		if bucket.Tokens() >= bucket.maxTokens*0.9 {
			delete(l.buckets, key)
		}
	}
}
