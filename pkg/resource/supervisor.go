// Package resource supervises a session's background goroutines and
// samples heap usage so the hosts can shut down cleanly.
package resource

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-spacefly/pkg/logging"
)

// Limits bounds a Supervisor.
type Limits struct {
	MaxMemoryMB     int64
	MaxTasks        int64
	ShutdownTimeout time.Duration
	CheckInterval   time.Duration
}

// DefaultLimits returns the limits the spacefly command runs with.
func DefaultLimits() Limits {
	return Limits{
		MaxMemoryMB:     512,
		MaxTasks:        16,
		ShutdownTimeout: 5 * time.Second,
		CheckInterval:   10 * time.Second,
	}
}

// Supervisor tracks named background tasks and periodically samples heap
// usage. Tasks that panic are logged instead of crashing the session.
type Supervisor struct {
	limits Limits
	logger *logging.Logger
	sample func() int64

	tasks    int64
	memoryMB int64
	panics   int64

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	stopped bool
}

// NewSupervisor creates a supervisor. Zero limits take their defaults.
func NewSupervisor(limits Limits, logger *logging.Logger) *Supervisor {
	def := DefaultLimits()
	if limits.MaxMemoryMB <= 0 {
		limits.MaxMemoryMB = def.MaxMemoryMB
	}
	if limits.MaxTasks <= 0 {
		limits.MaxTasks = def.MaxTasks
	}
	if limits.ShutdownTimeout <= 0 {
		limits.ShutdownTimeout = def.ShutdownTimeout
	}
	if limits.CheckInterval <= 0 {
		limits.CheckInterval = def.CheckInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		limits: limits,
		logger: logger.Component("supervisor"),
		sample: heapMB,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func heapMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc / 1024 / 1024)
}

// Start begins periodic memory sampling.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("supervisor already running")
	}
	if s.stopped {
		return fmt.Errorf("supervisor is shut down")
	}
	s.running = true
	s.SampleMemory()
	go s.monitor()

	s.logger.Info(s.ctx, "supervisor started",
		"max_memory_mb", s.limits.MaxMemoryMB,
		"max_tasks", s.limits.MaxTasks,
		"check_interval", s.limits.CheckInterval.String(),
	)
	return nil
}

// Go runs fn in a tracked goroutine. fn's context is cancelled when ctx is
// done or the supervisor shuts down. It fails when the task limit is
// reached or the supervisor is shut down.
func (s *Supervisor) Go(ctx context.Context, name string, fn func(context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("task %s: supervisor is shut down", name)
	}
	if n := atomic.LoadInt64(&s.tasks); n >= s.limits.MaxTasks {
		s.logger.Warn(ctx, "task limit reached", "task", name, "current", n, "limit", s.limits.MaxTasks)
		return fmt.Errorf("task %s: limit reached (%d/%d)", name, n, s.limits.MaxTasks)
	}

	atomic.AddInt64(&s.tasks, 1)
	s.wg.Add(1)
	taskCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	go func() {
		defer s.wg.Done()
		defer atomic.AddInt64(&s.tasks, -1)
		defer stop()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				atomic.AddInt64(&s.panics, 1)
				s.logger.Error(ctx, "task panicked", fmt.Errorf("panic: %v", r), "task", name)
			}
		}()
		fn(taskCtx)
	}()
	return nil
}

// SampleMemory records the current heap size and reports whether it is
// over the limit.
func (s *Supervisor) SampleMemory() error {
	mb := s.sample()
	atomic.StoreInt64(&s.memoryMB, mb)
	if mb > s.limits.MaxMemoryMB {
		return fmt.Errorf("heap %dMB exceeds limit %dMB", mb, s.limits.MaxMemoryMB)
	}
	return nil
}

// MemoryMB returns the last sampled heap size.
func (s *Supervisor) MemoryMB() int64 {
	return atomic.LoadInt64(&s.memoryMB)
}

// Stats is a snapshot of the supervisor's counters.
type Stats struct {
	Tasks       int64 `json:"tasks"`
	MaxTasks    int64 `json:"max_tasks"`
	Panics      int64 `json:"panics"`
	MemoryMB    int64 `json:"memory_mb"`
	MaxMemoryMB int64 `json:"max_memory_mb"`
}

// Stats returns the current counters.
func (s *Supervisor) Stats() Stats {
	return Stats{
		Tasks:       atomic.LoadInt64(&s.tasks),
		MaxTasks:    s.limits.MaxTasks,
		Panics:      atomic.LoadInt64(&s.panics),
		MemoryMB:    s.MemoryMB(),
		MaxMemoryMB: s.limits.MaxMemoryMB,
	}
}

// Shutdown cancels every task and waits for them up to the shutdown
// timeout. Calling it again is a no-op.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	s.cancel()
	if wasRunning {
		<-s.done
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.limits.ShutdownTimeout)
	defer cancel()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		s.logger.Info(ctx, "supervisor stopped")
		return nil
	case <-waitCtx.Done():
		n := atomic.LoadInt64(&s.tasks)
		s.logger.Warn(ctx, "tasks still running at shutdown", "remaining", n)
		return fmt.Errorf("shutdown timeout: %d tasks still running", n)
	}
}

func (s *Supervisor) monitor() {
	defer close(s.done)

	ticker := time.NewTicker(s.limits.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.SampleMemory(); err != nil {
				s.logger.Error(s.ctx, "memory limit exceeded", err)
			}
			s.logger.Debug(s.ctx, "resource usage",
				"tasks", atomic.LoadInt64(&s.tasks),
				"memory_mb", s.MemoryMB(),
			)
		case <-s.ctx.Done():
			return
		}
	}
}
