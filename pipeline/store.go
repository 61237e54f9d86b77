package pipeline

import (
	"context"

	"github.com/jonwraymond/neuroscan/analysis"
	"github.com/jonwraymond/neuroscan/cache"
	"github.com/jonwraymond/neuroscan/observe"
)

// ResultStore keeps encoded analysis records in a cache backend.
//
// Reads never fail: a miss, an expired entry, an unreadable record or a
// backend error all look like absence. Writes report backend errors as
// StoreUnavailable so the caller can log them and move on.
type ResultStore struct {
	backend cache.Cache
	policy  cache.Policy
	logger  observe.Logger
}

// NewResultStore wraps backend. A nil logger discards store warnings.
func NewResultStore(backend cache.Cache, policy cache.Policy, logger observe.Logger) (*ResultStore, error) {
	if backend == nil {
		return nil, cache.ErrNilCache
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &ResultStore{backend: backend, policy: policy, logger: logger}, nil
}

// Backend returns the underlying cache.
func (s *ResultStore) Backend() cache.Cache { return s.backend }

// Get returns the record stored under key, if a usable one exists.
func (s *ResultStore) Get(ctx context.Context, key string) (analysis.Record, bool) {
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "result store read failed",
			observe.F("key", key),
			observe.F("error", err.Error()),
			observe.F("error_kind", StoreUnavailable.String()))
		return analysis.Record{}, false
	}
	if !ok {
		return analysis.Record{}, false
	}

	rec, err := analysis.DecodeRecord(data)
	if err != nil {
		s.logger.Warn(ctx, "discarding unreadable record",
			observe.F("key", key),
			observe.F("error", err.Error()))
		return analysis.Record{}, false
	}
	return rec, true
}

// Put encodes rec and stores it under key, replacing any previous record.
func (s *ResultStore) Put(ctx context.Context, key string, rec analysis.Record) error {
	data, err := analysis.EncodeRecord(rec)
	if err != nil {
		return Normalize(StageAssemble, err)
	}
	return s.put(ctx, key, data)
}

func (s *ResultStore) put(ctx context.Context, key string, data []byte) error {
	if !s.policy.ShouldCache() {
		return nil
	}
	if err := s.backend.Set(ctx, key, data, s.policy.EffectiveTTL(0)); err != nil {
		return &Error{Kind: StoreUnavailable, Op: StageStore, Err: err}
	}
	return nil
}

// Delete removes the record under key.
func (s *ResultStore) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return &Error{Kind: StoreUnavailable, Op: StageStore, Err: err}
	}
	return nil
}
