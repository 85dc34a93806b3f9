package horizon

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_AllowsBurstUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(5, time.Second)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("First %d requests should not block, took %v", 5, elapsed)
	}
}

func TestRateLimiter_BlocksWhenSaturated(t *testing.T) {
	limiter := NewRateLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Third request should block near the window length, took %v", elapsed)
	}
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	if err == nil {
		t.Fatal("Expected context error while saturated")
	}
}

func TestRateLimiter_ConcurrentWaiters(t *testing.T) {
	limiter := NewRateLimiter(5, 50*time.Millisecond)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(ctx); err != nil {
				t.Errorf("Wait failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
