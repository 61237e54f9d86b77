package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/neuroscan/cache"
	"github.com/jonwraymond/neuroscan/secret"
)

var (
	ErrInvalid     = errors.New("config: invalid configuration")
	ErrInvalidKeys = errors.New("config: invalid api key list")
)

// Source says where configuration comes from.
type Source struct {
	// Path is a YAML file. Empty skips the file layer.
	Path string

	// DotEnv files are loaded into the process environment first. Missing
	// files are ignored.
	DotEnv []string

	// Environ overrides os.Environ for the environment layer.
	Environ []string
}

// Load layers defaults, the YAML file and the environment, resolves secret
// references and validates the result.
func Load(ctx context.Context, src Source) (*Config, error) {
	for _, f := range src.DotEnv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := Default()

	if src.Path != "" {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", src.Path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", src.Path, err)
		}
	}

	environ := src.Environ
	if environ == nil {
		environ = os.Environ()
	}
	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.resolveSecrets(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolveSecrets(ctx context.Context) error {
	var fileCfg map[string]any
	if c.Secrets.FileBaseDir != "" {
		fileCfg = map[string]any{"base_dir": c.Secrets.FileBaseDir}
	}
	resolver, err := secret.NewDefaultRegistry().Resolver(true, []string{"env", "file"},
		map[string]map[string]any{"file": fileCfg})
	if err != nil {
		return err
	}
	defer resolver.Close()

	err = resolver.ResolveFields(ctx, map[string]*string{
		"cache.redis_url":        &c.Cache.RedisURL,
		"auth.jwt_secret":        &c.Auth.JWTSecret,
		"auth.api_keys":          &c.Auth.APIKeys,
		"inference.token_secret": &c.Inference.TokenSecret,
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

var cacheBackends = []string{"memory", "redis", "badger"}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cachebackend", func(fl validator.FieldLevel) bool {
		for _, b := range cacheBackends {
			if fl.Field().String() == b {
				return true
			}
		}
		return false
	})
	_ = v.RegisterValidation("keysegment", func(fl validator.FieldLevel) bool {
		return cache.ValidSegment(fl.Field().String())
	})
	return v
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.Cache.MaxTTL > 0 && c.Cache.DefaultTTL > c.Cache.MaxTTL {
		return fmt.Errorf("%w: cache default_ttl exceeds max_ttl", ErrInvalid)
	}
	if c.Cache.Backend == "badger" && !c.Cache.BadgerInMemory && c.Cache.BadgerPath == "" {
		return fmt.Errorf("%w: cache badger_path is required on disk", ErrInvalid)
	}
	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" && c.Auth.APIKeys == "" {
			return fmt.Errorf("%w: auth enabled without jwt_secret or api_keys", ErrInvalid)
		}
		if _, err := c.Auth.Keys(); err != nil {
			return err
		}
	}
	return nil
}

// APIKey is one configured key.
type APIKey struct {
	Principal string
	Key       string
}

// Keys parses APIKeys.
func (a AuthConfig) Keys() ([]APIKey, error) {
	var keys []APIKey
	for i, pair := range strings.Split(a.APIKeys, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		principal, key, ok := strings.Cut(pair, ":")
		if !ok || principal == "" || key == "" {
			return nil, fmt.Errorf("%w: entry %d is not principal:key", ErrInvalidKeys, i)
		}
		keys = append(keys, APIKey{Principal: principal, Key: key})
	}
	return keys, nil
}

// Origins splits CORSOrigins.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
