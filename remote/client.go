package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/neuroscan/analysis"
	"github.com/jonwraymond/neuroscan/imaging"
	"github.com/jonwraymond/neuroscan/observe"
	"github.com/jonwraymond/neuroscan/pipeline"
	"github.com/jonwraymond/neuroscan/resilience"
)

// DefaultModelName is the served model name.
const DefaultModelName = "neuroscan"

// Authorizer decorates outbound requests with credentials.
type Authorizer interface {
	Authorize(req *http.Request) error
}

// Config configures a Client.
type Config struct {
	BaseURL string

	// ModelName is the served model.
	// Default: "neuroscan"
	ModelName string

	// Timeout bounds each attempt.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxAttempts includes the first try.
	// Default: 3
	MaxAttempts int

	// RetryDelay is the first backoff delay.
	// Default: 200ms
	RetryDelay time.Duration

	// BreakerFailures opens the circuit after this many consecutive failures.
	// Default: 5
	BreakerFailures int

	// BreakerReset is how long the circuit stays open.
	// Default: 30 seconds
	BreakerReset time.Duration

	// MaxResponseBytes caps a reply body.
	// Default: 32 MiB
	MaxResponseBytes int64

	HTTPClient *http.Client

	// Authorizer, when set, signs every request.
	Authorizer Authorizer

	Logger observe.Logger
}

// Client is a pipeline.Model and pipeline.Explainer backed by the sidecar.
type Client struct {
	base       string
	modelPath  string
	http       *http.Client
	exec       *resilience.Executor
	authorizer Authorizer
	logger     observe.Logger
	maxBody    int64
	timeout    time.Duration
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNoBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("remote: base URL: %w", err)
	}
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModelName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = 32 << 20
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	c := &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		modelPath:  "/v1/models/" + url.PathEscape(cfg.ModelName),
		http:       cfg.HTTPClient,
		authorizer: cfg.Authorizer,
		logger:     cfg.Logger,
		maxBody:    cfg.MaxResponseBytes,
		timeout:    cfg.Timeout,
	}
	c.exec = resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         "inference",
			MaxFailures:  cfg.BreakerFailures,
			ResetTimeout: cfg.BreakerReset,
			OnStateChange: func(from, to resilience.State) {
				c.logger.Warn(context.Background(), "inference circuit changed",
					observe.F("from", from.String()), observe.F("to", to.String()))
			},
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.RetryDelay,
			Jitter:       true,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				c.logger.Warn(context.Background(), "retrying inference call",
					observe.F("attempt", attempt),
					observe.F("delay_ms", delay.Milliseconds()),
					observe.F("error", err.Error()))
			},
		})),
		resilience.WithTimeout(cfg.Timeout),
	)
	return c, nil
}

// Circuit returns the breaker's current state.
func (c *Client) Circuit() resilience.State {
	return c.exec.CircuitBreaker().State()
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// Predict asks the served classifier for the class distribution of t.
func (c *Client) Predict(ctx context.Context, t imaging.Tensor) (analysis.Probabilities, error) {
	var resp predictResponse
	err := c.call(ctx, http.MethodPost, c.modelPath+":predict", predictRequest{
		Instances: [][][][]float32{t.Nested()},
	}, &resp)
	if err != nil {
		return analysis.Probabilities{}, err
	}

	if len(resp.Predictions) != 1 || len(resp.Predictions[0]) != analysis.NumClasses {
		return analysis.Probabilities{}, fmt.Errorf("%w: want 1 prediction of %d classes", ErrMalformedResponse, analysis.NumClasses)
	}
	var p analysis.Probabilities
	copy(p[:], resp.Predictions[0])
	return p, nil
}

type instanceRequest struct {
	Instance    [][][]float32 `json:"instance"`
	NumFeatures int           `json:"num_features,omitempty"`
}

type saliencyResponse struct {
	Map [][]float64 `json:"map"`
}

// Saliency returns the gradient relevance map for t.
func (c *Client) Saliency(ctx context.Context, t imaging.Tensor) (imaging.SaliencyMap, error) {
	var resp saliencyResponse
	if err := c.call(ctx, http.MethodPost, "/v1/explain/saliency", instanceRequest{Instance: t.Nested()}, &resp); err != nil {
		return imaging.SaliencyMap{}, err
	}
	m, err := imaging.SaliencyFromRows(resp.Map)
	if err != nil {
		return imaging.SaliencyMap{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return m, nil
}

type attributionFeature struct {
	Segment int     `json:"segment"`
	Weight  float64 `json:"weight"`
}

type attributionResponse struct {
	Features []attributionFeature `json:"features"`
	Image    []byte               `json:"image,omitempty"`
}

// Attribution returns the ranked superpixel attribution for t.
func (c *Client) Attribution(ctx context.Context, t imaging.Tensor) (analysis.Explanation, error) {
	var resp attributionResponse
	err := c.call(ctx, http.MethodPost, "/v1/explain/attribution", instanceRequest{
		Instance:    t.Nested(),
		NumFeatures: analysis.MaxTopFeatures,
	}, &resp)
	if err != nil {
		return analysis.Explanation{}, err
	}

	exp := analysis.Explanation{
		Features: make([]analysis.Feature, len(resp.Features)),
		Image:    resp.Image,
	}
	for i, f := range resp.Features {
		exp.Features[i] = analysis.Feature{Segment: f.Segment, Weight: f.Weight}
	}
	return exp, nil
}

// Ping checks that the served model is available. It is not retried.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.finish(ctx, c.attempt(ctx, http.MethodGet, c.modelPath, nil, nil))
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
	}

	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		return c.attempt(ctx, method, path, body, out)
	})
	return c.finish(ctx, err)
}

// finish gives every failure one of the package sentinels, except caller
// cancellation which is returned as is.
func (c *Client) finish(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrRejected), errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("remote: build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorizer != nil {
		if err := c.authorizer.Authorize(req); err != nil {
			return resilience.Permanent(fmt.Errorf("remote: authorize: %w", err))
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrUnavailable, method, path, resp.StatusCode, snippet(data))
	case resp.StatusCode >= 400:
		return resilience.Permanent(fmt.Errorf("%w: %s %s: status %d: %s", ErrRejected, method, path, resp.StatusCode, snippet(data)))
	}

	if int64(len(data)) > c.maxBody {
		return resilience.Permanent(fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, c.maxBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resilience.Permanent(fmt.Errorf("%w: %w", ErrMalformedResponse, err))
	}
	return nil
}

func snippet(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}

var (
	_ pipeline.Model     = (*Client)(nil)
	_ pipeline.Explainer = (*Client)(nil)
)
