package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutConfig configures a Timeout.
type TimeoutConfig struct {
	// Name labels ErrTimeout errors.
	Name string

	// Timeout bounds each call.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout gives each call its own deadline. A call that overruns is
// abandoned: Execute returns as soon as the deadline passes and the
// operation is left to observe its cancelled context.
type Timeout struct {
	config TimeoutConfig
}

func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Timeout{config: config}
}

// Execute runs op under the deadline. Overrunning yields an error matching
// ErrTimeout; a cancelled parent yields the parent's error.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return t.expired()
	}
	return err
}

func (t *Timeout) expired() error {
	if t.config.Name != "" {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, t.config.Name, t.config.Timeout)
	}
	return fmt.Errorf("%w after %s", ErrTimeout, t.config.Timeout)
}

func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
