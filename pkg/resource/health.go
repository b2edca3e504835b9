// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// HealthCheck reports a supervisor over its limits. It satisfies
// health.HealthCheck.
type HealthCheck struct {
	supervisor *Supervisor
}

// NewHealthCheck creates a health check for s.
func NewHealthCheck(s *Supervisor) *HealthCheck {
	return &HealthCheck{supervisor: s}
}

// Name returns the name of this health check.
func (h *HealthCheck) Name() string {
	return "resources"
}

// Check fails when the sampled heap is over its limit or tasks use more
// than 80% of the task limit.
func (h *HealthCheck) Check(ctx context.Context) error {
	stats := h.supervisor.Stats()
	if stats.MemoryMB > stats.MaxMemoryMB {
		return fmt.Errorf("heap %dMB exceeds limit %dMB", stats.MemoryMB, stats.MaxMemoryMB)
	}
	threshold := stats.MaxTasks * 8 / 10
	if stats.Tasks > threshold {
		return fmt.Errorf("%d tasks exceed 80%% of the limit (%d/%d)", stats.Tasks, threshold, stats.MaxTasks)
	}
	return nil
}
