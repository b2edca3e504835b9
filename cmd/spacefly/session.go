// cmd/spacefly/session.go
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-spacefly/pkg/config"
	"github.com/opd-ai/go-spacefly/pkg/engine"
	"github.com/opd-ai/go-spacefly/pkg/event"
	"github.com/opd-ai/go-spacefly/pkg/health"
	"github.com/opd-ai/go-spacefly/pkg/host"
	"github.com/opd-ai/go-spacefly/pkg/logging"
	"github.com/opd-ai/go-spacefly/pkg/render"
	engorender "github.com/opd-ai/go-spacefly/pkg/render/engo"
	"github.com/opd-ai/go-spacefly/pkg/render/terminal"
	"github.com/opd-ai/go-spacefly/pkg/resource"
)

// session runs one game under the configured renderer.
type session struct {
	cfg     *config.Config
	logger  *logging.Logger
	checker *health.HealthChecker
	tasks   *resource.Supervisor
	// seed fixes the world layout when non-zero.
	seed   uint64
	frames uint64
}

// build creates a game on the host's scene with a circuit-broken texture
// loader and registers its probes.
func (s *session) build(ctx context.Context, deps engine.Deps) (*engine.Game, error) {
	if deps.Logger == nil {
		deps.Logger = s.logger
	}
	deps.Textures = render.NewTextureLoader(deps.Scene, render.DefaultBreakerConfig(), deps.Logger)
	if s.seed != 0 {
		deps.Rand = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	}

	g, err := engine.New(s.cfg.Config, deps)
	if err != nil {
		return nil, err
	}
	s.watch(ctx, g.Bus())
	s.checker.AddCheck(health.NewCheckFunc("game_ready", g.ReadinessCheck))
	s.checker.AddCheck(health.NewCheckFunc("streaming", g.StreamingCheck))
	return g, nil
}

// watch logs the events a player cares about.
func (s *session) watch(ctx context.Context, bus *event.Bus) {
	bus.Subscribe(event.CollectiblePicked, func(e event.Event) {
		if ev, ok := e.(*event.ScoreEvent); ok {
			s.logger.Info(ctx, "collectible picked", "score", ev.Score, "target", ev.Target)
		}
	})
	bus.Subscribe(event.ObjectiveComplete, func(e event.Event) {
		if ev, ok := e.(*event.ScoreEvent); ok {
			s.logger.Info(ctx, "objective complete", "score", ev.Score)
		}
	})
	bus.Subscribe(event.PhysicsUnavailable, func(e event.Event) {
		if ev, ok := e.(*event.FailureEvent); ok {
			s.logger.Warn(ctx, "flying without physics", "error", ev.Err.Error())
		}
	})
}

// start builds and initializes a game on scene and attaches it to a loop.
func (s *session) start(ctx context.Context, scene render.Scene, viewport engine.Viewport) (*engine.Game, *host.Loop, error) {
	g, err := s.build(ctx, engine.Deps{Scene: scene, Viewport: viewport})
	if err != nil {
		return nil, nil, err
	}
	if err := g.Initialize(ctx); err != nil {
		g.Dispose()
		return nil, nil, err
	}
	loop := host.NewLoop(g.World(), s.logger)
	g.Attach(loop)
	return g, loop, nil
}

// runHeadless ticks the game without drawing until ctx is done or the
// frame limit is reached.
func (s *session) runHeadless(ctx context.Context) (engine.Snapshot, error) {
	g, loop, err := s.start(ctx, render.NewNullScene(s.logger), nil)
	if err != nil {
		return engine.Snapshot{}, err
	}
	defer g.Dispose()

	if err := loop.Run(ctx, s.cfg.Window.FPS, s.frames); err != nil {
		return engine.Snapshot{}, err
	}
	snap := g.Snapshot()
	s.logger.Info(ctx, "headless run finished",
		"frames", loop.Frames(),
		"score", snap.Score,
		"chunks", snap.LoadedChunks,
		"bodies", snap.Bodies,
	)
	return snap, nil
}

// runTerminal draws a radar in the terminal.
func (s *session) runTerminal(ctx context.Context) error {
	g, loop, err := s.start(ctx, render.NewNullScene(s.logger), nil)
	if err != nil {
		return err
	}
	defer g.Dispose()

	h, err := terminal.New(loop, g, terminal.Options{
		FPS:       s.cfg.Window.FPS,
		MaxFrames: s.frames,
		OnResize:  g.Resize,
		Logger:    s.logger,
	})
	if err != nil {
		return err
	}
	return h.Run(ctx)
}

// runWindow opens an engo window. engo owns the main loop, so cancelling
// ctx asks it to exit.
func (s *session) runWindow(ctx context.Context) error {
	scene, err := engorender.NewGameScene(ctx, engorender.Options{
		Build:     s.build,
		Logger:    s.logger,
		MaxFrames: s.frames,
	})
	if err != nil {
		return err
	}

	if err := s.tasks.Go(ctx, "window_exit", func(ctx context.Context) {
		<-ctx.Done()
		engo.Exit()
	}); err != nil {
		return err
	}

	start := time.Now()
	engo.Run(engo.RunOptions{
		Title:      s.cfg.Window.Title,
		Width:      s.cfg.Window.Width,
		Height:     s.cfg.Window.Height,
		Fullscreen: s.cfg.Window.Fullscreen,
		FPSLimit:   s.cfg.Window.FPS,
		VSync:      true,
	}, scene)

	if scene.Game() == nil {
		return fmt.Errorf("window closed before the game started")
	}
	s.logger.Info(ctx, "window session finished", "duration", time.Since(start).Round(time.Second).String())
	return nil
}
