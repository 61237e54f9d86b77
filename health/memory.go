package health

import (
	"context"
	"fmt"
	"runtime"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/mem"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap/limit ratio that degrades the service.
	// Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the heap/limit ratio that marks it unhealthy.
	// Default: 0.95
	CriticalThreshold float64

	// Limit is the byte budget the heap is measured against. Zero uses the
	// host's total memory.
	Limit uint64
}

// MemoryChecker compares the Go heap against a memory budget. Decoded
// tensors and rendered heatmaps are held in memory, so a runaway heap shows
// up here before the process is killed.
type MemoryChecker struct {
	config MemoryCheckerConfig

	// systemTotal is swappable in tests.
	systemTotal func() (uint64, error)
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	return &MemoryChecker{config: config, systemTotal: hostMemory}
}

func hostMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

func (m *MemoryChecker) Name() string { return "memory" }

func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	details := map[string]any{
		"heap_alloc": stats.HeapAlloc,
		"heap_sys":   stats.HeapSys,
		"sys":        stats.Sys,
		"num_gc":     stats.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}

	limit := m.config.Limit
	if limit == 0 {
		total, err := m.systemTotal()
		if err != nil || total == 0 {
			limit = stats.Sys
		} else {
			limit = total
			details = lo.Assign(details, map[string]any{"host_total": total})
		}
	}
	if limit == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}

	ratio := float64(stats.HeapAlloc) / float64(limit)
	details = lo.Assign(details, map[string]any{
		"limit":         limit,
		"usage_percent": ratio * 100,
	})

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", ratio*100), nil).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
