// Package health exposes liveness and readiness probes for a running
// spacefly session over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/opd-ai/go-spacefly/pkg/logging"
)

// HealthCheck is one named probe. Check returns nil when healthy.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthCheck under the given name.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc creates a named check from fn.
func NewCheckFunc(name string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name returns the name of this health check.
func (c *CheckFunc) Name() string {
	return c.name
}

// Check runs the wrapped function.
func (c *CheckFunc) Check(ctx context.Context) error {
	if c.fn == nil {
		return fmt.Errorf("%s: no check function", c.name)
	}
	return c.fn(ctx)
}

// Probe states reported in HealthStatus and ComponentHealth.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the readiness report of a session.
type HealthStatus struct {
	Status  string                     `json:"status"`
	Session string                     `json:"session,omitempty"`
	Checks  map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

// HealthChecker runs named checks against a session.
type HealthChecker struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	timeout time.Duration
	started time.Time
}

// NewHealthChecker creates a checker with a five second probe budget.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]HealthCheck),
		timeout: 5 * time.Second,
		started: time.Now(),
	}
}

// AddCheck registers check, replacing any check with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	hc.checks[check.Name()] = check
	hc.mu.Unlock()
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	delete(hc.checks, name)
	hc.mu.Unlock()
}

// CheckHealth runs every check in name order. The report is healthy only
// when all of them pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	checks := make([]HealthCheck, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		checks = append(checks, hc.checks[name])
	}
	hc.mu.RUnlock()

	report := HealthStatus{
		Status:  StatusHealthy,
		Session: logging.GetSessionID(ctx),
		Checks:  make(map[string]ComponentHealth, len(checks)),
	}
	for i, check := range checks {
		begin := time.Now()
		err := check.Check(ctx)
		result := ComponentHealth{Status: StatusHealthy, Latency: time.Since(begin).String()}
		if err != nil {
			report.Status = StatusUnhealthy
			result.Status = StatusUnhealthy
			result.Message = err.Error()
		}
		report.Checks[names[i]] = result
	}
	return report
}

// LivenessHandler answers 200 with the process uptime.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(hc.started).Round(time.Second).String(),
	})
}

// ReadinessHandler runs every check and answers 503 if any of them fails.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), hc.timeout)
	defer cancel()

	report := hc.CheckHealth(ctx)
	code := http.StatusOK
	if report.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// Mux routes /healthz to the liveness probe and /readyz to the readiness probe.
func (hc *HealthChecker) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", hc.LivenessHandler)
	mux.HandleFunc("GET /readyz", hc.ReadinessHandler)
	return mux
}

// Serve runs the probe endpoints on addr until ctx is cancelled.
func (hc *HealthChecker) Serve(ctx context.Context, addr string, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.Component("health")

	srv := &http.Server{
		Addr:              addr,
		Handler:           hc.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	served := make(chan error, 1)
	go func() {
		logger.Info(ctx, "health endpoints listening", "addr", addr)
		served <- srv.ListenAndServe()
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health server: %w", err)
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(stopCtx); err != nil {
		logger.Error(ctx, "health server shutdown failed", err)
		return err
	}
	logger.Info(ctx, "health endpoints stopped")
	return nil
}
