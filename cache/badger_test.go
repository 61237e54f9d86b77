package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBadgerCache_Contract(t *testing.T) {
	c, err := OpenBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer c.Close()
	backendContract(t, c)
}

func TestBadgerCache_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := OpenBadger(BadgerOptions{Path: dir, GCInterval: time.Hour})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	c, err = OpenBadger(BadgerOptions{Path: dir})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer c.Close()
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get after reopen = %q ok=%v err=%v", got, ok, err)
	}
}

func TestBadgerCache_Closed(t *testing.T) {
	c, err := OpenBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	_ = c.Close()

	ctx := context.Background()
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, ErrBackendClosed) {
		t.Errorf("Get() on closed = %v, want ErrBackendClosed", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); !errors.Is(err, ErrBackendClosed) {
		t.Errorf("Set() on closed = %v, want ErrBackendClosed", err)
	}
	if err := c.Ping(ctx); !errors.Is(err, ErrBackendClosed) {
		t.Errorf("Ping() on closed = %v, want ErrBackendClosed", err)
	}
}
