package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestLimiter(t *testing.T) *TokenBucketLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewTokenBucketLimiter(rdb)
}

func TestAllowConsumesBurst(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	bucket := Bucket{RequestsPerMinute: 30, BurstSize: 3}

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "run", "user-1", bucket)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d within burst should be allowed", i+1)
		}
	}

	d, err := limiter.Allow(ctx, "run", "user-1", bucket)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if d.Allowed {
		t.Fatalf("request beyond burst should be denied")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("denied decision should carry a retry hint, got %v", d.RetryAfter)
	}
}

func TestAllowIsolatesSubjects(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	bucket := Bucket{RequestsPerMinute: 30, BurstSize: 1}

	if d, err := limiter.Allow(ctx, "run", "user-1", bucket); err != nil || !d.Allowed {
		t.Fatalf("first request should pass: %v %v", d, err)
	}
	if d, err := limiter.Allow(ctx, "run", "user-1", bucket); err != nil || d.Allowed {
		t.Fatalf("second request for the same subject should be denied: %v %v", d, err)
	}
	if d, err := limiter.Allow(ctx, "run", "user-2", bucket); err != nil || !d.Allowed {
		t.Fatalf("another subject should have its own bucket: %v %v", d, err)
	}
}

func TestAllowDisabledBucket(t *testing.T) {
	limiter := newTestLimiter(t)
	d, err := limiter.Allow(context.Background(), "run", "user-1", Bucket{})
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("a disabled bucket should always allow")
	}
}

func TestBucketEnabled(t *testing.T) {
	if (Bucket{}).Enabled() {
		t.Fatalf("zero bucket should be disabled")
	}
	if (Bucket{RequestsPerMinute: 30}).Enabled() {
		t.Fatalf("bucket without burst should be disabled")
	}
	if !(Bucket{RequestsPerMinute: 30, BurstSize: 5}).Enabled() {
		t.Fatalf("configured bucket should be enabled")
	}
}
