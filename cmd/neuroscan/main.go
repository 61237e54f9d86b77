// Command neuroscan serves MRI dementia-stage classification and its
// explanations over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/neuroscan/auth"
	"github.com/jonwraymond/neuroscan/cache"
	"github.com/jonwraymond/neuroscan/config"
	"github.com/jonwraymond/neuroscan/health"
	"github.com/jonwraymond/neuroscan/httpapi"
	"github.com/jonwraymond/neuroscan/model"
	"github.com/jonwraymond/neuroscan/observe"
	"github.com/jonwraymond/neuroscan/pipeline"
	"github.com/jonwraymond/neuroscan/remote"
	"github.com/jonwraymond/neuroscan/resilience"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("neuroscan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("NEUROSCAN_CONFIG"), "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, config.Source{Path: *configPath, DotEnv: []string{".env"}})
	if err != nil {
		fmt.Fprintf(stderr, "neuroscan: %v\n", err)
		return exitConfig
	}

	if err := serve(ctx, cfg); err != nil {
		fmt.Fprintf(stderr, "neuroscan: %v\n", err)
		return exitRuntime
	}
	return exitOK
}

func serve(ctx context.Context, cfg *config.Config) (err error) {
	// Telemetry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	obsCfg := cfg.ObserveConfig()
	obsCfg.Exporters.Registerer = registry
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, obs.Shutdown(shutdownCtx))
	}()
	logger := obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fmt.Errorf("observe middleware: %w", err)
	}

	// Result cache
	backend, closeBackend, err := openBackend(cfg.Cache)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeBackend(); cerr != nil {
			logger.Warn(context.Background(), "cache close failed", observe.F("error", cerr.Error()))
		}
	}()
	store, err := pipeline.NewResultStore(backend, cfg.Cache.Policy(), logger)
	if err != nil {
		return fmt.Errorf("result store: %w", err)
	}

	// Inference sidecar
	var authorizer remote.Authorizer
	if cfg.Inference.TokenSecret != "" {
		signer, err := auth.NewTokenSigner(auth.SignerConfig{
			Key:      []byte(cfg.Inference.TokenSecret),
			Issuer:   cfg.Telemetry.ServiceName,
			Subject:  cfg.Telemetry.ServiceName,
			Audience: cfg.Inference.TokenAudience,
		})
		if err != nil {
			return fmt.Errorf("inference signer: %w", err)
		}
		authorizer = signer
	}
	client, err := remote.New(remote.Config{
		BaseURL:     cfg.Inference.BaseURL,
		ModelName:   cfg.Inference.ModelName,
		Timeout:     cfg.Inference.Timeout,
		MaxAttempts: cfg.Inference.MaxAttempts,
		Authorizer:  authorizer,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("inference client: %w", err)
	}

	classifier, err := model.NewLazy(func(ctx context.Context) (pipeline.Model, error) {
		if err := client.Ping(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}, model.WithVersion(cfg.Pipeline.ModelVersion), model.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if cfg.Inference.WarmOnStart {
		if err := classifier.Warm(ctx); err != nil {
			logger.Warn(ctx, "model warm-up failed, loading on first request", observe.F("error", err.Error()))
		}
	}

	opts := pipelineOptions(cfg)
	opts.Model = classifier
	opts.Explainer = client
	opts.Store = store
	opts.Middleware = mw
	orch, err := pipeline.New(opts)
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}

	// Health
	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register(health.NewModelChecker(classifier))
	agg.Register(health.NewPingChecker("inference", client, true))
	if p, ok := backend.(health.Pinger); ok {
		agg.Register(health.NewPingChecker("cache", p, false))
	}
	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))

	// HTTP
	authn, err := authenticator(cfg.Auth)
	if err != nil {
		return err
	}
	api, err := httpapi.New(httpapi.Options{
		Analyzer:       orch,
		Health:         agg,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Authenticator:  authn,
		Logger:         logger,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    cfg.Server.Origins(),
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("http api: %w", err)
	}
	go api.PruneLimits(ctx, 5*time.Minute)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening",
			observe.F("addr", cfg.Server.Addr),
			observe.F("cache_backend", cfg.Cache.Backend),
			observe.F("inference", cfg.Inference.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info(context.Background(), "stopped cleanly")
	return nil
}

// pipelineOptions maps configuration onto orchestrator options. Collaborators
// are left for the caller.
func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Keyer: cache.NewContentKeyer(cfg.Cache.Namespace),
		Pool: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "compute",
			MaxConcurrent: cfg.Pipeline.MaxConcurrent,
			MaxWait:       cfg.Pipeline.MaxWait,
		}),
		SaliencySize:   cfg.Pipeline.SaliencySize,
		ComputeTimeout: cfg.Pipeline.ComputeTimeout,
		ModelVersion:   cfg.Pipeline.ModelVersion,
	}
}

// openBackend builds the configured cache backend and its close function.
func openBackend(cfg config.CacheConfig) (cache.Cache, func() error, error) {
	switch cfg.Backend {
	case "redis":
		client, err := cache.Connect(cfg.RedisURL, "", cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		rc := cache.NewRedisCache(client)
		return rc, rc.Close, nil
	case "badger":
		bc, err := cache.OpenBadger(cache.BadgerOptions{
			Path:       cfg.BadgerPath,
			InMemory:   cfg.BadgerInMemory,
			GCInterval: cfg.BadgerGC,
		})
		if err != nil {
			return nil, nil, err
		}
		return bc, bc.Close, nil
	default:
		return cache.NewMemoryCache(), func() error { return nil }, nil
	}
}

// authenticator combines bearer JWTs and API keys. It returns nil when auth
// is disabled.
func authenticator(cfg config.AuthConfig) (auth.Authenticator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	var auths []auth.Authenticator
	if cfg.JWTSecret != "" {
		auths = append(auths, auth.NewJWTAuthenticator(auth.JWTConfig{
			Issuer:   cfg.Issuer,
			Audience: cfg.Audience,
			Leeway:   30 * time.Second,
		}, auth.NewStaticKeyProvider([]byte(cfg.JWTSecret))))
	}
	keys, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		store := auth.NewMemoryAPIKeyStore()
		for i, k := range keys {
			store.AddKey(fmt.Sprintf("key-%d", i), k.Principal, k.Key)
		}
		auths = append(auths, auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{}, store))
	}
	return auth.NewCompositeAuthenticator(auths...), nil
}
