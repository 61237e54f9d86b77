package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCache stores records in an embedded Badger database using native
// per-entry TTLs.
type BadgerCache struct {
	db *badger.DB

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// BadgerOptions configures OpenBadger.
type BadgerOptions struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM.
	InMemory bool
	// GCInterval controls value log garbage collection. Zero disables it.
	GCInterval time.Duration
}

// OpenBadger opens (or creates) a Badger database.
func OpenBadger(opts BadgerOptions) (*BadgerCache, error) {
	bopts := badger.DefaultOptions(opts.Path).WithLoggingLevel(badger.ERROR)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger: %w", err)
	}
	c := NewBadgerCache(db)
	if opts.GCInterval > 0 && !opts.InMemory {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.gcLoop(opts.GCInterval)
	}
	return c, nil
}

// NewBadgerCache wraps an open database.
func NewBadgerCache(db *badger.DB) *BadgerCache {
	return &BadgerCache{db: db}
}

// Get implements Cache. Expired entries are reported by Badger as not found.
func (c *BadgerCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.db.IsClosed() {
		return nil, false, ErrBackendClosed
	}
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: badger get: %w", err)
	}
	return val, true, nil
}

// Set implements Cache.
func (c *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if c.db.IsClosed() {
		return ErrBackendClosed
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("cache: badger set: %w", err)
	}
	return nil
}

// Delete implements Cache.
func (c *BadgerCache) Delete(_ context.Context, key string) error {
	if c.db.IsClosed() {
		return ErrBackendClosed
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("cache: badger delete: %w", err)
	}
	return nil
}

// Ping reports whether the database is still open.
func (c *BadgerCache) Ping(context.Context) error {
	if c.db.IsClosed() {
		return ErrBackendClosed
	}
	return nil
}

// Close stops garbage collection and closes the database.
func (c *BadgerCache) Close() error {
	c.stopOnce.Do(func() {
		if c.stop != nil {
			close(c.stop)
			<-c.done
		}
	})
	return c.db.Close()
}

func (c *BadgerCache) gcLoop(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			// Keep collecting until a pass finds nothing to rewrite.
			for c.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

var (
	_ Cache  = (*BadgerCache)(nil)
	_ Pinger = (*BadgerCache)(nil)
)
