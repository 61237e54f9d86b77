package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/neuroscan/analysis"
	"github.com/jonwraymond/neuroscan/imaging"
	"github.com/jonwraymond/neuroscan/observe"
	"github.com/jonwraymond/neuroscan/pipeline"
)

var (
	ErrNilLoader = errors.New("model: loader is nil")
	ErrLoad      = errors.New("model: load failed")
)

// Loader builds the underlying model.
type Loader func(ctx context.Context) (pipeline.Model, error)

// Option configures a Lazy handle.
type Option func(*Lazy)

// WithVersion sets the version tag reported by Version.
func WithVersion(v string) Option {
	return func(l *Lazy) {
		if v != "" {
			l.version = v
		}
	}
}

// WithLogger sets the logger used for load events.
func WithLogger(logger observe.Logger) Option {
	return func(l *Lazy) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLoadTimeout bounds a single load attempt.
func WithLoadTimeout(d time.Duration) Option {
	return func(l *Lazy) {
		if d > 0 {
			l.loadTimeout = d
		}
	}
}

// Lazy is a pipeline.Model that loads its delegate on first use.
type Lazy struct {
	load        Loader
	version     string
	logger      observe.Logger
	loadTimeout time.Duration

	mu     sync.RWMutex
	model  pipeline.Model
	ready  atomic.Bool
	loads  atomic.Int64
	flight singleflight.Group
}

// NewLazy wraps load. Nothing is loaded until Warm or Predict.
func NewLazy(load Loader, opts ...Option) (*Lazy, error) {
	if load == nil {
		return nil, ErrNilLoader
	}
	l := &Lazy{
		load:        load,
		version:     analysis.ModelVersion,
		logger:      observe.NopLogger(),
		loadTimeout: time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Warm loads the model now. It is a no-op once loaded.
func (l *Lazy) Warm(ctx context.Context) error {
	_, err := l.get(ctx)
	return err
}

// Predict loads the model if needed and delegates to it.
func (l *Lazy) Predict(ctx context.Context, t imaging.Tensor) (analysis.Probabilities, error) {
	m, err := l.get(ctx)
	if err != nil {
		return analysis.Probabilities{}, err
	}
	return m.Predict(ctx, t)
}

// Ready reports whether the model has been loaded.
func (l *Lazy) Ready() bool { return l.ready.Load() }

// Version returns the model version tag.
func (l *Lazy) Version() string { return l.version }

// Loads returns how many load attempts have run.
func (l *Lazy) Loads() int64 { return l.loads.Load() }

func (l *Lazy) get(ctx context.Context) (pipeline.Model, error) {
	if l.ready.Load() {
		l.mu.RLock()
		defer l.mu.RUnlock()
		return l.model, nil
	}

	ch := l.flight.DoChan("load", func() (any, error) {
		l.mu.RLock()
		m := l.model
		l.mu.RUnlock()
		if m != nil {
			return m, nil
		}

		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.loadTimeout)
		defer cancel()

		l.loads.Add(1)
		start := time.Now()
		m, err := l.load(lctx)
		if err == nil && m == nil {
			err = errors.New("loader returned nil model")
		}
		if err != nil {
			l.logger.Error(ctx, "model load failed",
				observe.F("version", l.version),
				observe.F("error", err.Error()))
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}

		l.mu.Lock()
		l.model = m
		l.mu.Unlock()
		l.ready.Store(true)

		l.logger.Info(ctx, "model loaded",
			observe.F("version", l.version),
			observe.F("duration_ms", float64(time.Since(start).Microseconds())/1000))
		return m, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(pipeline.Model), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ pipeline.Model = (*Lazy)(nil)
