package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

func TestBucket_Allow(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerMinute: 600, BurstSize: 5, Enabled: true})

	for i := 0; i < 5; i++ {
		if !bucket.Allow() {
			t.Errorf("request %d should be allowed", i)
		}
	}
	if bucket.Allow() {
		t.Error("request after burst should be denied")
	}
}

func TestBucket_Refill(t *testing.T) {
	// 6000/min = 100/s, fast refill for the test.
	bucket := NewBucket(Config{RequestsPerMinute: 6000, BurstSize: 2, Enabled: true})

	bucket.Allow()
	bucket.Allow()
	if bucket.Allow() {
		t.Error("should be denied after exhausting tokens")
	}

	time.Sleep(50 * time.Millisecond)

	if !bucket.Allow() {
		t.Error("should be allowed after refill")
	}
}

func TestBucket_WaitTime(t *testing.T) {
	bucket := NewBucket(Config{RequestsPerMinute: 60, BurstSize: 1, Enabled: true})

	if bucket.WaitTime() != 0 {
		t.Error("should not wait when tokens available")
	}

	bucket.Allow()

	if bucket.WaitTime() <= 0 {
		t.Error("should need to wait when no tokens")
	}
}

func TestBucket_ZeroConfig_UsesDefaults(t *testing.T) {
	bucket := NewBucket(Config{})

	if !bucket.Allow() {
		t.Error("zero-config bucket should allow with defaults applied")
	}
	if tokens := bucket.Tokens(); tokens <= 0 {
		t.Errorf("expected positive default tokens, got %f", tokens)
	}
}

func TestLimiter_Allow_SeparateKeys(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerMinute: 600, BurstSize: 3, Enabled: true})

	for i := 0; i < 3; i++ {
		if !limiter.Allow("s1") {
			t.Errorf("s1 request %d should be allowed", i)
		}
	}
	if limiter.Allow("s1") {
		t.Error("s1 should be rate limited")
	}
	if !limiter.Allow("s2") {
		t.Error("s2 should be allowed: keys have separate buckets")
	}
}

func TestLimiter_SameKeySharesBucket(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 1, Enabled: true})

	if !limiter.Allow("telegram_42") {
		t.Fatal("first request should be allowed")
	}
	// Second back-to-back request against the same session key hits the
	// same bucket and is refused.
	if limiter.Allow("telegram_42") {
		t.Error("second request on the same key should be denied")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerMinute: 1, BurstSize: 1, Enabled: false})

	for i := 0; i < 100; i++ {
		if !limiter.Allow("s1") {
			t.Fatal("disabled limiter should always allow")
		}
	}
}

func TestLimiter_Reset(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 2, Enabled: true})

	limiter.Allow("s1")
	limiter.Allow("s1")
	if limiter.Allow("s1") {
		t.Error("should be rate limited")
	}

	limiter.Reset("s1")

	if !limiter.Allow("s1") {
		t.Error("should be allowed after reset")
	}
}

func TestLimiter_ManyKeys_PrunesInactive(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerMinute: 600, BurstSize: 3, Enabled: true})

	for i := 0; i < maxKeys+1; i++ {
		key := fmt.Sprintf("key-%d", i)
		for j := 0; j < 3; j++ {
			limiter.Allow(key)
		}
	}

	// A brand new key must still work after the prune cycle.
	if !limiter.Allow("brand-new-key") {
		t.Error("brand new key should be allowed after prune cycle")
	}
}

func TestNewBucketPerMinute(t *testing.T) {
	bucket := NewBucketPerMinute(3)

	for i := 0; i < 3; i++ {
		if !bucket.Allow() {
			t.Errorf("request %d should be allowed", i)
		}
	}
	if bucket.Allow() {
		t.Error("fourth request should be denied")
	}
}
