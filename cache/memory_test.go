package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_Contract(t *testing.T) {
	backendContract(t, NewMemoryCache())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("Get before expiry should hit")
	}

	now = now.Add(time.Minute)
	val, ok, err := c.Get(ctx, "k")
	if ok || val != nil || err != nil {
		t.Fatalf("Get after expiry = %q ok=%v err=%v, want clean miss", val, ok, err)
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed lazily, Len() = %d", c.Len())
	}
}

func TestMemoryCache_SetSweepsUnreadExpiredEntries(t *testing.T) {
	c := NewMemoryCache()
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), make([]byte, 1024), time.Millisecond); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if c.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", c.Len())
	}

	// Inside the sweep interval nothing is purged yet.
	now = now.Add(time.Second)
	_ = c.Set(ctx, "early", []byte("v"), time.Hour)
	if c.Len() != 101 {
		t.Fatalf("Len() before sweep interval = %d, want 101", c.Len())
	}

	now = now.Add(DefaultSweepInterval)
	_ = c.Set(ctx, "fresh", []byte("v"), time.Hour)
	if c.Len() != 2 {
		t.Errorf("Len() after sweep = %d, want 2", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "early"); !ok {
		t.Error("live entry was swept")
	}
}

func TestMemoryCache_Sweep(t *testing.T) {
	c := NewMemoryCache()
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("v"), time.Second)
	_ = c.Set(ctx, "long", []byte("v"), time.Hour)

	now = now.Add(time.Minute)
	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	in := []byte("original")
	_ = c.Set(ctx, "k", in, time.Minute)
	in[0] = 'X'

	out, _, _ := c.Get(ctx, "k")
	if string(out) != "original" {
		t.Fatalf("stored value mutated through caller slice: %q", out)
	}
	out[0] = 'Y'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "original" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	const numGoroutines = 50
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				switch j % 3 {
				case 0:
					_ = c.Set(ctx, "concurrent-key", []byte("concurrent-value"), 5*time.Minute)
				case 1:
					if v, ok, _ := c.Get(ctx, "concurrent-key"); ok && string(v) != "concurrent-value" {
						t.Errorf("torn read: %q", v)
					}
				case 2:
					_ = c.Delete(ctx, "concurrent-key")
				}
			}
		}()
	}

	wg.Wait()
}
