package config

import (
	"time"

	"github.com/jonwraymond/neuroscan/cache"
	"github.com/jonwraymond/neuroscan/observe"
	"github.com/jonwraymond/neuroscan/observe/exporters"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Cache     CacheConfig     `yaml:"cache"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Inference InferenceConfig `yaml:"inference"`
	Auth      AuthConfig      `yaml:"auth"`
	Secrets   SecretsConfig   `yaml:"secrets"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"NEUROSCAN_ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"NEUROSCAN_READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"NEUROSCAN_WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"NEUROSCAN_SHUTDOWN_TIMEOUT" validate:"gt=0"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"NEUROSCAN_MAX_UPLOAD_BYTES" validate:"gt=0"`

	// CORSOrigins is a comma-separated allow list.
	CORSOrigins string `yaml:"cors_origins" env:"NEUROSCAN_CORS_ORIGINS"`

	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" env:"NEUROSCAN_RATE_LIMIT" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" env:"NEUROSCAN_RATE_BURST" validate:"gte=0"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"NEUROSCAN_LOG_LEVEL" validate:"oneof=debug info warn error"`
}

type TelemetryConfig struct {
	ServiceName     string  `yaml:"service_name" env:"NEUROSCAN_SERVICE_NAME" validate:"required"`
	TracingExporter string  `yaml:"tracing_exporter" env:"NEUROSCAN_TRACING_EXPORTER" validate:"oneof=none stdout otlp"`
	MetricsExporter string  `yaml:"metrics_exporter" env:"NEUROSCAN_METRICS_EXPORTER" validate:"oneof=none stdout otlp prometheus"`
	SampleRatio     float64 `yaml:"sample_ratio" env:"NEUROSCAN_TRACE_SAMPLE_RATIO" validate:"gte=0,lte=1"`
	OTLPEndpoint    string  `yaml:"otlp_endpoint" env:"NEUROSCAN_OTLP_ENDPOINT"`
	OTLPInsecure    bool    `yaml:"otlp_insecure" env:"NEUROSCAN_OTLP_INSECURE"`
}

type CacheConfig struct {
	Backend    string        `yaml:"backend" env:"NEUROSCAN_CACHE_BACKEND" validate:"required,cachebackend"`
	Namespace  string        `yaml:"namespace" env:"NEUROSCAN_CACHE_NAMESPACE" validate:"required,keysegment"`
	DefaultTTL time.Duration `yaml:"default_ttl" env:"NEUROSCAN_CACHE_TTL" validate:"gte=0"`
	MaxTTL     time.Duration `yaml:"max_ttl" env:"NEUROSCAN_CACHE_MAX_TTL" validate:"gte=0"`

	RedisURL string `yaml:"redis_url" env:"NEUROSCAN_REDIS_URL" validate:"required_if=Backend redis"`
	RedisDB  int    `yaml:"redis_db" env:"NEUROSCAN_REDIS_DB" validate:"gte=0"`

	BadgerPath     string        `yaml:"badger_path" env:"NEUROSCAN_BADGER_PATH"`
	BadgerInMemory bool          `yaml:"badger_in_memory" env:"NEUROSCAN_BADGER_IN_MEMORY"`
	BadgerGC       time.Duration `yaml:"badger_gc_interval" env:"NEUROSCAN_BADGER_GC_INTERVAL" validate:"gte=0"`
}

type PipelineConfig struct {
	MaxConcurrent  int           `yaml:"max_concurrent" env:"NEUROSCAN_MAX_CONCURRENT" validate:"gt=0"`
	MaxWait        time.Duration `yaml:"max_wait" env:"NEUROSCAN_MAX_WAIT" validate:"gte=0"`
	ComputeTimeout time.Duration `yaml:"compute_timeout" env:"NEUROSCAN_COMPUTE_TIMEOUT" validate:"gt=0"`
	SaliencySize   int           `yaml:"saliency_size" env:"NEUROSCAN_SALIENCY_SIZE" validate:"gt=0"`
	ModelVersion   string        `yaml:"model_version" env:"NEUROSCAN_MODEL_VERSION" validate:"required"`
}

type InferenceConfig struct {
	BaseURL     string        `yaml:"base_url" env:"NEUROSCAN_INFERENCE_URL" validate:"required,url"`
	ModelName   string        `yaml:"model_name" env:"NEUROSCAN_INFERENCE_MODEL" validate:"required"`
	Timeout     time.Duration `yaml:"timeout" env:"NEUROSCAN_INFERENCE_TIMEOUT" validate:"gt=0"`
	MaxAttempts int           `yaml:"max_attempts" env:"NEUROSCAN_INFERENCE_MAX_ATTEMPTS" validate:"gt=0"`
	WarmOnStart bool          `yaml:"warm_on_start" env:"NEUROSCAN_INFERENCE_WARM"`

	// TokenSecret, when set, signs outbound requests with short-lived JWTs.
	TokenSecret   string `yaml:"token_secret" env:"NEUROSCAN_INFERENCE_TOKEN_SECRET"`
	TokenAudience string `yaml:"token_audience" env:"NEUROSCAN_INFERENCE_TOKEN_AUDIENCE"`
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" env:"NEUROSCAN_AUTH_ENABLED"`
	JWTSecret string `yaml:"jwt_secret" env:"NEUROSCAN_AUTH_JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"NEUROSCAN_AUTH_ISSUER"`
	Audience  string `yaml:"audience" env:"NEUROSCAN_AUTH_AUDIENCE"`

	// APIKeys is a comma-separated list of principal:key pairs.
	APIKeys string `yaml:"api_keys" env:"NEUROSCAN_AUTH_API_KEYS"`
}

type SecretsConfig struct {
	// FileBaseDir confines secretref:file: references to one directory.
	FileBaseDir string `yaml:"file_base_dir" env:"NEUROSCAN_SECRETS_DIR"`
}

// Default returns the built-in defaults.
func Default() Config {
	policy := cache.DefaultPolicy()
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    3 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  10 << 20,
			CORSOrigins:     "http://localhost:3000",
			RateLimit:       10,
			RateBurst:       20,
		},
		Log: LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			ServiceName:     "neuroscan",
			TracingExporter: "none",
			MetricsExporter: "prometheus",
			SampleRatio:     1,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			Namespace:  cache.DefaultNamespace,
			DefaultTTL: policy.DefaultTTL,
			MaxTTL:     policy.MaxTTL,
			BadgerPath: "data/cache",
			BadgerGC:   10 * time.Minute,
		},
		Pipeline: PipelineConfig{
			MaxConcurrent:  10,
			ComputeTimeout: 2 * time.Minute,
			SaliencySize:   224,
			ModelVersion:   "1.0.0",
		},
		Inference: InferenceConfig{
			BaseURL:       "http://localhost:8501",
			ModelName:     "neuroscan",
			Timeout:       30 * time.Second,
			MaxAttempts:   3,
			TokenAudience: "inference",
		},
	}
}

// Policy returns the cache policy.
func (c CacheConfig) Policy() cache.Policy {
	return cache.Policy{DefaultTTL: c.DefaultTTL, MaxTTL: c.MaxTTL}
}

// ObserveConfig maps telemetry and log settings onto observe.Config.
func (c Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Telemetry.ServiceName,
		Version:     c.Pipeline.ModelVersion,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.TracingExporter != "none",
			Exporter:  c.Telemetry.TracingExporter,
			SamplePct: c.Telemetry.SampleRatio,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.MetricsExporter != "none",
			Exporter: c.Telemetry.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Log.Level,
		},
		Exporters: exporters.Options{
			OTLPEndpoint: c.Telemetry.OTLPEndpoint,
			OTLPInsecure: c.Telemetry.OTLPInsecure,
		},
	}
}
