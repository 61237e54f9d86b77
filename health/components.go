package health

import (
	"context"
	"fmt"
)

// ModelHandle is the part of model.Lazy the model checker reads.
type ModelHandle interface {
	Ready() bool
	Version() string
}

// ModelChecker is degraded until the classifier has been loaded. The first
// request loads it, so an unloaded model slows that request but fails none.
type ModelChecker struct {
	model ModelHandle
}

// NewModelChecker creates a checker for m.
func NewModelChecker(m ModelHandle) *ModelChecker {
	return &ModelChecker{model: m}
}

func (c *ModelChecker) Name() string { return "model" }

func (c *ModelChecker) Check(_ context.Context) Result {
	details := map[string]any{"version": c.model.Version()}
	if !c.model.Ready() {
		return Degraded("model not loaded", ErrNotLoaded).WithDetails(details)
	}
	return Healthy("model loaded").WithDetails(details)
}

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker turns a failed Ping into a degraded or unhealthy result.
type PingChecker struct {
	name     string
	pinger   Pinger
	critical bool
}

// NewPingChecker creates a checker named name. A failed ping is unhealthy
// when critical is true and degraded otherwise.
func NewPingChecker(name string, p Pinger, critical bool) *PingChecker {
	return &PingChecker{name: name, pinger: p, critical: critical}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) Result {
	if err := c.pinger.Ping(ctx); err != nil {
		msg := fmt.Sprintf("%s unreachable", c.name)
		if c.critical {
			return Unhealthy(msg, err)
		}
		return Degraded(msg, err)
	}
	return Healthy(fmt.Sprintf("%s reachable", c.name))
}

var (
	_ Checker = (*ModelChecker)(nil)
	_ Checker = (*PingChecker)(nil)
	_ Checker = (*MemoryChecker)(nil)
	_ Checker = (*CheckerFunc)(nil)
)
