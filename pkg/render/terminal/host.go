package terminal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-spacefly/pkg/host"
	"github.com/opd-ai/go-spacefly/pkg/logging"
)

// Options configures a terminal Host.
type Options struct {
	// Screen defaults to the real terminal.
	Screen tcell.Screen
	FPS    int
	// Scale is the initial zoom in world units per column.
	Scale     float64
	Hold      time.Duration
	MaxFrames uint64
	OnResize  func(width, height int)
	Logger    *logging.Logger
}

// Host drives a frame loop from a terminal.
type Host struct {
	loop     *host.Loop
	view     View
	screen   tcell.Screen
	radar    *Radar
	repeater *Repeater
	opts     Options
	logger   *logging.Logger
	started  bool
}

// New creates a host. Run owns the screen's lifetime.
func New(loop *host.Loop, view View, opts Options) (*Host, error) {
	if loop == nil || view == nil {
		return nil, fmt.Errorf("terminal host: loop and view are required")
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	screen := opts.Screen
	if screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("terminal host: %w", err)
		}
		screen = s
	}

	return &Host{
		loop:     loop,
		view:     view,
		screen:   screen,
		radar:    NewRadar(0, 0, opts.Scale),
		repeater: NewRepeater(opts.Hold),
		opts:     opts,
		logger:   logger.Component("terminal_host"),
	}, nil
}

// Start initialises the screen.
func (h *Host) Start() error {
	if h.started {
		return nil
	}
	if err := h.screen.Init(); err != nil {
		return fmt.Errorf("terminal host: init screen: %w", err)
	}
	h.started = true
	h.screen.SetStyle(styleDefault)
	h.screen.Clear()
	h.resize()
	return nil
}

// Stop restores the terminal.
func (h *Host) Stop() {
	if !h.started {
		return
	}
	h.started = false
	h.screen.Fini()
}

func (h *Host) resize() {
	w, ht := h.screen.Size()
	h.radar.Resize(w, ht)
	if h.opts.OnResize != nil {
		h.opts.OnResize(w, ht)
	}
}

// Radar exposes the radar grid.
func (h *Host) Radar() *Radar {
	return h.radar
}

// HandleEvent processes one terminal event. It returns false when the user
// asked to quit.
func (h *Host) HandleEvent(ev tcell.Event, now time.Time) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case '+', '=':
				h.radar.SetScale(h.radar.Scale() / 1.5)
				return true
			case '-', '_':
				h.radar.SetScale(h.radar.Scale() * 1.5)
				return true
			}
		}
		if key, ok := TranslateKey(ev); ok {
			if press, fresh := h.repeater.Press(key, now); fresh {
				h.loop.PostKey(press)
			}
		}
	case *tcell.EventResize:
		h.screen.Sync()
		h.resize()
	}
	return true
}

// Frame releases expired keys, ticks the loop and redraws.
func (h *Host) Frame(dt float64, now time.Time) {
	for _, ev := range h.repeater.Expire(now) {
		h.loop.PostKey(ev)
	}
	h.loop.Tick(dt)
	h.radar.Render(h.view)
	h.radar.Draw(h.screen)
}

// Run polls terminal events and ticks the loop at the configured rate until
// ctx is done, the user quits or MaxFrames frames have run.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Start(); err != nil {
		return err
	}
	defer h.Stop()

	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(h.opts.FPS))
	defer ticker.Stop()

	h.logger.Info(ctx, "terminal host started", "fps", h.opts.FPS)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info(ctx, "terminal host stopped", "frames", h.loop.Frames())
			return nil
		case ev := <-events:
			if !h.HandleEvent(ev, time.Now()) {
				h.logger.Info(ctx, "quit requested", "frames", h.loop.Frames())
				h.releaseAll()
				return nil
			}
		case now := <-ticker.C:
			dt := math.Min(now.Sub(last).Seconds(), host.MaxFrameDelta)
			last = now
			h.Frame(dt, now)
			if h.opts.MaxFrames > 0 && h.loop.Frames() >= h.opts.MaxFrames {
				h.releaseAll()
				return nil
			}
		}
	}
}

func (h *Host) releaseAll() {
	for _, ev := range h.repeater.ReleaseAll() {
		h.loop.PostKey(ev)
	}
}
