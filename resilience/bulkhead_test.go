package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBulkhead_Defaults(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	if got := b.Metrics().MaxConcurrent; got != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", got)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "compute", MaxConcurrent: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Acquire(ctx); err != nil {
			t.Fatalf("Acquire #%d error = %v", i+1, err)
		}
	}

	err := b.Acquire(ctx)
	if !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("Acquire on full bulkhead = %v, want ErrBulkheadFull", err)
	}
	if err.Error() != "resilience: bulkhead at capacity: compute" {
		t.Errorf("error text = %q", err.Error())
	}

	b.Release()
	if err := b.Acquire(ctx); err != nil {
		t.Errorf("Acquire after Release error = %v", err)
	}
	if got := b.Metrics().Rejected; got != 1 {
		t.Errorf("Rejected = %d, want 1", got)
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Release()
	}()

	if err := b.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire with wait error = %v", err)
	}
}

func TestBulkhead_ContextCancelledWhileWaiting(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Minute})
	_ = b.Acquire(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire error = %v, want deadline exceeded", err)
	}
}

func TestBulkhead_ExecuteRecoversPanic(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})

	err := b.Execute(context.Background(), func(context.Context) error {
		panic("model exploded")
	})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Execute error = %v, want *PanicError", err)
	}
	if pe.Value != "model exploded" {
		t.Errorf("panic value = %v", pe.Value)
	}
	if !errors.Is(err, ErrPanic) {
		t.Error("error should match ErrPanic")
	}

	m := b.Metrics()
	if m.Active != 0 || m.Panics != 1 {
		t.Errorf("metrics after panic = %+v", m)
	}
}

func TestSubmit(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})

	v, err := Submit(context.Background(), b, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("Submit = %d, %v", v, err)
	}

	boom := errors.New("boom")
	v, err = Submit(context.Background(), b, func(context.Context) (int, error) {
		return 7, boom
	})
	if !errors.Is(err, boom) || v != 0 {
		t.Errorf("Submit on error = %d, %v", v, err)
	}
}

func TestBulkhead_BoundsConcurrency(t *testing.T) {
	const limit = 3
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: limit, MaxWait: 5 * time.Second})

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func(context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if peak.Load() > limit {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), limit)
	}
	if got := b.Metrics().MaxActive; got > limit {
		t.Errorf("MaxActive = %d", got)
	}
}
