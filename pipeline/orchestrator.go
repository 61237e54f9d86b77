package pipeline

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/neuroscan/analysis"
	"github.com/jonwraymond/neuroscan/cache"
	"github.com/jonwraymond/neuroscan/imaging"
	"github.com/jonwraymond/neuroscan/observe"
	"github.com/jonwraymond/neuroscan/resilience"
)

// DefaultComputeTimeout bounds one pipeline computation.
const DefaultComputeTimeout = 2 * time.Minute

var (
	ErrNilModel     = errors.New("pipeline: model is nil")
	ErrNilExplainer = errors.New("pipeline: explainer is nil")
)

// Options wires an Orchestrator. Model and Explainer are required.
type Options struct {
	Decoder   Decoder
	Model     Model
	Explainer Explainer

	// Store defaults to an in-memory store with cache.DefaultPolicy.
	Store *ResultStore
	// Keyer defaults to cache.NewContentKeyer(cache.DefaultNamespace).
	Keyer cache.Keyer

	// Pool bounds concurrent computations. Defaults to 10 slots, no wait.
	Pool *resilience.Bulkhead

	Middleware *observe.Middleware

	// SaliencySize is the rendered heatmap edge in pixels.
	SaliencySize   int
	ComputeTimeout time.Duration
	ModelVersion   string

	Now func() time.Time
}

// Orchestrator answers classify, interpret and analyze requests from the
// result store when it can and runs the pipeline when it must.
//
// Contract:
//   - Errors: every returned error is a *Error.
//   - Concurrency: safe for concurrent use; identical requests in flight
//     share one computation.
//   - Cancellation: a caller that gives up stops waiting, but the shared
//     computation runs to completion and fills the store.
type Orchestrator struct {
	decoder   Decoder
	model     Model
	explainer Explainer
	store     *ResultStore
	keyer     cache.Keyer
	pool      *resilience.Bulkhead
	mw        *observe.Middleware
	logger    observe.Logger

	saliencySize   int
	computeTimeout time.Duration
	modelVersion   string
	now            func() time.Time

	flight singleflight.Group
}

// New validates opts and builds an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Model == nil {
		return nil, ErrNilModel
	}
	if opts.Explainer == nil {
		return nil, ErrNilExplainer
	}

	o := &Orchestrator{
		decoder:        opts.Decoder,
		model:          opts.Model,
		explainer:      opts.Explainer,
		store:          opts.Store,
		keyer:          opts.Keyer,
		pool:           opts.Pool,
		mw:             opts.Middleware,
		saliencySize:   opts.SaliencySize,
		computeTimeout: opts.ComputeTimeout,
		modelVersion:   opts.ModelVersion,
		now:            opts.Now,
	}
	if o.mw == nil {
		o.mw = observe.NopMiddleware()
	}
	o.logger = o.mw.Logger()
	if o.decoder == nil {
		o.decoder = imaging.NewDecoder()
	}
	if o.store == nil {
		store, err := NewResultStore(cache.NewMemoryCache(), cache.DefaultPolicy(), o.logger)
		if err != nil {
			return nil, err
		}
		o.store = store
	}
	if o.keyer == nil {
		o.keyer = cache.NewContentKeyer(cache.DefaultNamespace)
	}
	if o.pool == nil {
		o.pool = resilience.NewBulkhead(resilience.BulkheadConfig{Name: "compute"})
	}
	if o.saliencySize <= 0 {
		o.saliencySize = imaging.DefaultSize
	}
	if o.computeTimeout <= 0 {
		o.computeTimeout = DefaultComputeTimeout
	}
	if o.modelVersion == "" {
		o.modelVersion = analysis.ModelVersion
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// Store returns the result store.
func (o *Orchestrator) Store() *ResultStore { return o.store }

// Classify predicts the dementia stage of up.
func (o *Orchestrator) Classify(ctx context.Context, up Upload) (analysis.ClassificationResult, error) {
	rec, err := o.resolve(ctx, "classify", analysis.Classification, up)
	if err != nil {
		return analysis.ClassificationResult{}, err
	}
	c, _ := rec.AsClassification()
	return c, nil
}

// Interpret explains the classification of up.
func (o *Orchestrator) Interpret(ctx context.Context, up Upload) (analysis.InterpretationResult, error) {
	rec, err := o.resolve(ctx, "interpret", analysis.Interpretation, up)
	if err != nil {
		return analysis.InterpretationResult{}, err
	}
	i, _ := rec.AsInterpretation()
	return i, nil
}

// Analyze returns classification and interpretation together.
func (o *Orchestrator) Analyze(ctx context.Context, up Upload) (analysis.FullAnalysisResult, error) {
	rec, err := o.resolve(ctx, "analyze", analysis.Full, up)
	if err != nil {
		return analysis.FullAnalysisResult{}, err
	}
	f, _ := rec.AsFull()
	return f, nil
}

func (o *Orchestrator) resolve(ctx context.Context, op string, variant analysis.Variant, up Upload) (analysis.Record, error) {
	meta := observe.StageMeta{Operation: op, Variant: variant.String()}
	var rec analysis.Record

	err := o.mw.Run(ctx, meta, func(ctx context.Context, meta observe.StageMeta) error {
		key, err := o.keyer.Key(variant.String(), up.Content)
		if err != nil {
			return normalize(StageKey, err)
		}

		if hit, ok := o.lookup(ctx, key, variant, up.Content); ok {
			rec = hit
			return nil
		}

		ch := o.flight.DoChan(key, func() (any, error) {
			return o.compute(context.WithoutCancel(ctx), meta, key, variant, up)
		})

		select {
		case res := <-ch:
			if res.Err != nil {
				return res.Err
			}
			decoded, err := analysis.DecodeRecord(res.Val.([]byte))
			if err != nil {
				return normalize(StageAssemble, err)
			}
			rec = decoded
			return nil
		case <-ctx.Done():
			return normalize(StageWait, ctx.Err())
		}
	})
	return rec, err
}

// lookup probes the requested key, then the full key for narrower
// requests. It never writes.
func (o *Orchestrator) lookup(ctx context.Context, key string, variant analysis.Variant, content []byte) (analysis.Record, bool) {
	metrics := o.mw.Metrics()

	outcome := observe.LookupMiss
	if rec, ok := o.store.Get(ctx, key); ok {
		if rec.Variant.Satisfies(variant) {
			metrics.RecordLookup(ctx, variant.String(), observe.LookupHit)
			o.logger.Debug(ctx, "cache hit", observe.F("key", key))
			return rec, true
		}
		outcome = observe.LookupInsufficient
	}

	if variant != analysis.Full {
		fullKey, err := o.keyer.Key(analysis.Full.String(), content)
		if err == nil {
			if rec, ok := o.store.Get(ctx, fullKey); ok && rec.Variant.Satisfies(variant) {
				metrics.RecordLookup(ctx, variant.String(), observe.LookupWidened)
				o.logger.Debug(ctx, "cache hit", observe.F("key", fullKey), observe.F("requested_key", key))
				return rec, true
			}
		}
	}

	metrics.RecordLookup(ctx, variant.String(), outcome)
	o.logger.Debug(ctx, "cache miss", observe.F("key", key), observe.F("outcome", string(outcome)))
	return analysis.Record{}, false
}

// compute runs the pipeline, stores the record and returns it encoded so
// every waiter decodes a private copy.
func (o *Orchestrator) compute(ctx context.Context, meta observe.StageMeta, key string, variant analysis.Variant, up Upload) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.computeTimeout)
	defer cancel()

	start := o.now()
	rec, err := resilience.Submit(ctx, o.pool, func(ctx context.Context) (analysis.Record, error) {
		return o.run(ctx, meta, variant, up, start)
	})
	if err != nil {
		return nil, normalize(StageCompute, err)
	}

	data, err := analysis.EncodeRecord(rec)
	if err != nil {
		return nil, normalize(StageAssemble, err)
	}

	if err := o.store.put(ctx, key, data); err != nil {
		o.logger.Warn(ctx, "result not cached",
			observe.F("key", key),
			observe.F("error", err.Error()),
			observe.F("error_kind", observe.ErrorLabel(err)))
	}

	o.logger.Info(ctx, "computation finished",
		observe.F("key", key),
		observe.F("variant", variant.String()),
		observe.F("filename", up.Filename),
		observe.F("duration_ms", float64(o.now().Sub(start).Microseconds())/1000))
	return data, nil
}

func (o *Orchestrator) run(ctx context.Context, meta observe.StageMeta, variant analysis.Variant, up Upload, start time.Time) (analysis.Record, error) {
	var tensor imaging.Tensor
	err := o.stage(ctx, meta, StageDecode, func(ctx context.Context) error {
		t, err := o.decoder.Normalize(ctx, up.Content, up.MediaType)
		tensor = t
		return err
	})
	if err != nil {
		return analysis.Record{}, err
	}

	var classification analysis.ClassificationResult
	err = o.stage(ctx, meta, StagePredict, func(ctx context.Context) error {
		probs, err := o.model.Predict(ctx, tensor)
		if err != nil {
			return err
		}
		classification, err = analysis.NewClassification(probs)
		return err
	})
	if err != nil {
		return analysis.Record{}, err
	}
	if variant == analysis.Classification {
		return analysis.ClassificationRecord(classification), nil
	}

	interpretation, err := o.interpret(ctx, meta, tensor, classification)
	if err != nil {
		return analysis.Record{}, err
	}
	if variant == analysis.Interpretation {
		return analysis.InterpretationRecord(interpretation), nil
	}

	return analysis.FullRecord(analysis.FullAnalysisResult{
		Classification: classification,
		Interpretation: interpretation,
		ProcessingTime: o.now().Sub(start).Seconds(),
		ModelVersion:   o.modelVersion,
	}), nil
}

// interpret runs both explainers concurrently and assembles the result.
func (o *Orchestrator) interpret(ctx context.Context, meta observe.StageMeta, tensor imaging.Tensor, c analysis.ClassificationResult) (analysis.InterpretationResult, error) {
	var (
		heatmap     []byte
		explanation analysis.Explanation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.stage(gctx, meta, StageSaliency, func(ctx context.Context) error {
			m, err := o.explainer.Saliency(ctx, tensor)
			if err != nil {
				return err
			}
			heatmap, err = imaging.RenderSaliency(m, o.saliencySize)
			return err
		})
	})
	g.Go(func() error {
		return o.stage(gctx, meta, StageAttribution, func(ctx context.Context) error {
			exp, err := o.explainer.Attribution(ctx, tensor)
			explanation = exp
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return analysis.InterpretationResult{}, err
	}

	return analysis.NewInterpretation(c, heatmap, explanation), nil
}

// stage runs fn as one traced stage and normalizes its error.
func (o *Orchestrator) stage(ctx context.Context, meta observe.StageMeta, stage Stage, fn func(context.Context) error) error {
	meta.Stage = string(stage)
	return o.mw.Run(ctx, meta, func(ctx context.Context, _ observe.StageMeta) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = normalize(stage, &resilience.PanicError{Value: r})
			}
		}()
		return normalize(stage, fn(ctx))
	})
}
