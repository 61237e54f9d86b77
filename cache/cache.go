package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache      = errors.New("cache: cache is nil")
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrKeyTooLong    = errors.New("cache: key exceeds max length")
	ErrEmptyContent  = errors.New("cache: content is empty")
	ErrBackendClosed = errors.New("cache: backend is closed")
)

// Cache is a byte-oriented TTL store for encoded analysis records.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Atomicity: Set replaces the whole value; readers never observe a partial write.
// - Expiry: an expired entry is reported as a miss, never as an error.
// - Errors: Get returns (nil, false, nil) on miss and a non-nil error only when
// the backend itself could not be read.
type Cache interface {
	// Get retrieves a cached value.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. TTL<=0 means no caching.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
