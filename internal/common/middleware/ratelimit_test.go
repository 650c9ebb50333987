package middleware

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketExhaustion(t *testing.T) {
	tb := NewTokenBucket(3, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !tb.Allow(ctx) {
			t.Fatalf("request %d should pass within capacity", i)
		}
	}
	if tb.Allow(ctx) {
		t.Fatalf("expected bucket exhausted after capacity requests")
	}
}

func TestSlidingWindowLimit(t *testing.T) {
	sw := NewSlidingWindow(50*time.Millisecond, 2)
	ctx := context.Background()

	if !sw.Allow(ctx) || !sw.Allow(ctx) {
		t.Fatalf("first two requests should pass")
	}
	if sw.Allow(ctx) {
		t.Fatalf("third request within window should be rejected")
	}

	time.Sleep(60 * time.Millisecond)
	if !sw.Allow(ctx) {
		t.Fatalf("request after window expiry should pass")
	}
}

func TestNewLimiterStrategy(t *testing.T) {
	if _, ok := NewLimiter("sliding_window", 10, 5).(*SlidingWindow); !ok {
		t.Fatalf("expected sliding window limiter")
	}
	if _, ok := NewLimiter("token_bucket", 10, 5).(*TokenBucket); !ok {
		t.Fatalf("expected token bucket limiter")
	}
	if _, ok := NewLimiter("", 10, 5).(*TokenBucket); !ok {
		t.Fatalf("expected token bucket as default")
	}
}
