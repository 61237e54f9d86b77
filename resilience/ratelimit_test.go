package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(RateLimiterConfig{Rate: 2, Burst: 3, Now: clock.Now})

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("Allow #%d denied within burst", i+1)
		}
	}
	if rl.Allow() {
		t.Fatal("Allow beyond burst should be denied")
	}

	clock.Advance(500 * time.Millisecond)
	if !rl.Allow() {
		t.Error("Allow after refill should pass")
	}

	clock.Advance(time.Hour)
	if got := rl.Tokens(); got != 3 {
		t.Errorf("Tokens = %v, want capped at 3", got)
	}
}

func TestRateLimiter_Execute(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Now: clock.Now})

	if err := rl.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("first Execute error = %v", err)
	}
	if err := rl.Execute(context.Background(), succeed); !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("second Execute error = %v, want ErrRateLimitExceeded", err)
	}

	rl.Reset()
	if err := rl.Execute(context.Background(), succeed); err != nil {
		t.Errorf("Execute after Reset error = %v", err)
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1, MaxWait: time.Minute})
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait error = %v", err)
	}
}

func TestKeyedRateLimiter(t *testing.T) {
	clock := newFakeClock()
	k := NewKeyedRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Now: clock.Now})

	if !k.Allow("10.0.0.1") {
		t.Fatal("first request from client A denied")
	}
	if k.Allow("10.0.0.1") {
		t.Error("second request from client A should be throttled")
	}
	if !k.Allow("10.0.0.2") {
		t.Error("client B should have its own bucket")
	}
	if k.Len() != 2 {
		t.Errorf("Len = %d, want 2", k.Len())
	}

	clock.Advance(10 * time.Minute)
	k.Allow("10.0.0.2")
	if removed := k.Prune(5 * time.Minute); removed != 1 {
		t.Errorf("Prune removed %d, want 1", removed)
	}
	if k.Len() != 1 {
		t.Errorf("Len after prune = %d, want 1", k.Len())
	}
}
