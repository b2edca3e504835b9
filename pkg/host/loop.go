// Package host drives the game core the way a rendering engine would: a
// frame clock, ordered per-frame hooks and a key event queue.
package host

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/opd-ai/go-spacefly/pkg/input"
	"github.com/opd-ai/go-spacefly/pkg/logging"
)

// MaxFrameDelta caps the measured frame time so a stalled frame does not
// become one huge step.
const MaxFrameDelta = 0.1

// FrameHook runs once per frame with the frame delta in seconds.
type FrameHook func(dt float64)

// KeyHook receives queued key events at the start of a frame.
type KeyHook func(ev input.KeyEvent)

// Stepper advances a physics simulation.
type Stepper interface {
	Step(dt float64)
}

// Registration is returned by the On* methods. Detach removes the hook;
// calling it again is a no-op.
type Registration struct {
	once   sync.Once
	detach func()
}

// Detach removes the hook from its loop.
func (r *Registration) Detach() {
	if r == nil {
		return
	}
	r.once.Do(r.detach)
}

type frameEntry struct {
	id uint64
	fn FrameHook
}

type keyEntry struct {
	id uint64
	fn KeyHook
}

// Loop owns the frame order: keys, before-physics hooks, the physics step,
// then before-render hooks. Only PostKey may be called from other
// goroutines.
type Loop struct {
	physics Stepper
	logger  *logging.Logger

	nextID       uint64
	beforePhys   []frameEntry
	beforeRender []frameEntry
	keyHooks     []keyEntry

	queueMu sync.Mutex
	queue   []input.KeyEvent

	frames uint64
	now    func() time.Time
}

// NewLoop creates a loop that steps physics between the two hook phases.
// physics may be nil.
func NewLoop(physics Stepper, logger *logging.Logger) *Loop {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Loop{
		physics: physics,
		logger:  logger.Component("host_loop"),
		nextID:  1,
		now:     time.Now,
	}
}

// SetPhysics replaces the stepper, for example after physics became
// available.
func (l *Loop) SetPhysics(s Stepper) {
	l.physics = s
}

func (l *Loop) allocID() uint64 {
	id := l.nextID
	l.nextID++
	return id
}

// OnBeforePhysics registers a hook that runs before the physics step.
func (l *Loop) OnBeforePhysics(fn FrameHook) *Registration {
	id := l.allocID()
	l.beforePhys = append(l.beforePhys, frameEntry{id: id, fn: fn})
	return &Registration{detach: func() { l.beforePhys = removeFrame(l.beforePhys, id) }}
}

// OnBeforeRender registers a hook that runs after the physics step.
func (l *Loop) OnBeforeRender(fn FrameHook) *Registration {
	id := l.allocID()
	l.beforeRender = append(l.beforeRender, frameEntry{id: id, fn: fn})
	return &Registration{detach: func() { l.beforeRender = removeFrame(l.beforeRender, id) }}
}

// OnKey registers a key event hook.
func (l *Loop) OnKey(fn KeyHook) *Registration {
	id := l.allocID()
	l.keyHooks = append(l.keyHooks, keyEntry{id: id, fn: fn})
	return &Registration{detach: func() {
		for i, e := range l.keyHooks {
			if e.id == id {
				l.keyHooks = append(l.keyHooks[:i:i], l.keyHooks[i+1:]...)
				return
			}
		}
	}}
}

func removeFrame(entries []frameEntry, id uint64) []frameEntry {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i:i], entries[i+1:]...)
		}
	}
	return entries
}

// PostKey queues a key event for the next frame. Safe for concurrent use.
func (l *Loop) PostKey(ev input.KeyEvent) {
	l.queueMu.Lock()
	l.queue = append(l.queue, ev)
	l.queueMu.Unlock()
}

// Tick runs one frame with the given delta.
func (l *Loop) Tick(dt float64) {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}

	l.queueMu.Lock()
	pending := l.queue
	l.queue = nil
	l.queueMu.Unlock()

	for _, ev := range pending {
		for _, h := range snapshotKeys(l.keyHooks) {
			h.fn(ev)
		}
	}
	for _, h := range snapshotFrames(l.beforePhys) {
		h.fn(dt)
	}
	if l.physics != nil {
		l.physics.Step(dt)
	}
	for _, h := range snapshotFrames(l.beforeRender) {
		h.fn(dt)
	}
	l.frames++
}

// hooks may detach themselves while running
func snapshotFrames(entries []frameEntry) []frameEntry {
	return append([]frameEntry(nil), entries...)
}

func snapshotKeys(entries []keyEntry) []keyEntry {
	return append([]keyEntry(nil), entries...)
}

// Frames returns the number of completed frames.
func (l *Loop) Frames() uint64 {
	return l.frames
}

// Run ticks at fps frames per second with measured deltas until ctx is done
// or maxFrames frames have run (0 means no limit).
func (l *Loop) Run(ctx context.Context, fps int, maxFrames uint64) error {
	if fps <= 0 {
		return errors.New("fps must be positive")
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	l.logger.Info(ctx, "frame loop started", "fps", fps, "max_frames", maxFrames)
	last := l.now()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info(ctx, "frame loop stopped", "frames", l.frames)
			return ctx.Err()
		case <-ticker.C:
			now := l.now()
			dt := math.Min(now.Sub(last).Seconds(), MaxFrameDelta)
			last = now
			l.Tick(dt)
			if maxFrames > 0 && l.frames >= maxFrames {
				l.logger.Info(ctx, "frame budget reached", "frames", l.frames)
				return nil
			}
		}
	}
}
