// Package engine wires the flight, gravity, streaming and collectible
// systems into a Game driven by a host's frame hooks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/chunk"
	"github.com/opd-ai/go-spacefly/pkg/collect"
	"github.com/opd-ai/go-spacefly/pkg/entity"
	"github.com/opd-ai/go-spacefly/pkg/event"
	"github.com/opd-ai/go-spacefly/pkg/flight"
	"github.com/opd-ai/go-spacefly/pkg/gravity"
	"github.com/opd-ai/go-spacefly/pkg/host"
	"github.com/opd-ai/go-spacefly/pkg/input"
	"github.com/opd-ai/go-spacefly/pkg/logging"
	"github.com/opd-ai/go-spacefly/pkg/physics"
	"github.com/opd-ai/go-spacefly/pkg/render"
)

// ErrNotReady is returned when the craft or physics is not available.
var ErrNotReady = errors.New("game not ready")

// Hooks is the frame interface a host exposes. host.Loop implements it.
type Hooks interface {
	OnBeforePhysics(fn host.FrameHook) *host.Registration
	OnBeforeRender(fn host.FrameHook) *host.Registration
	OnKey(fn host.KeyHook) *host.Registration
}

// Viewport is notified when the host window changes size.
type Viewport interface {
	Resize(width, height int)
}

// Trail holds the craft's exhaust particle parameters.
type Trail struct {
	EmitRate float64
	// Direction is only updated while the craft moves faster than 0.1.
	Direction mgl64.Vec3
}

// TrailEmitter receives trail parameters every frame.
type TrailEmitter interface {
	SetTrail(t Trail)
}

// Deps carries the collaborators of a Game. Only Scene is required.
type Deps struct {
	Scene    render.Scene
	World    *physics.World
	Textures *render.TextureLoader
	Bus      *event.Bus
	Logger   *logging.Logger
	Rand     *rand.Rand
	Viewport Viewport
	Trail    TrailEmitter
	Bindings input.Bindings
}

// Snapshot is a read-only view of the game for HUDs and probes.
type Snapshot struct {
	Score         int
	Target        int
	Complete      bool
	PhysicsReady  bool
	CraftReady    bool
	LoadedChunks  int
	Bodies        int
	TrackedBodies int
	Collectibles  int
	Position      mgl64.Vec3
	Velocity      mgl64.Vec3
	Speed         float64
	Trail         Trail
}

// Game is the host-facing core.
type Game struct {
	cfg    Config
	deps   Deps
	ctx    context.Context
	logger *logging.Logger
	bus    *event.Bus
	rng    *rand.Rand

	world        *physics.World
	physicsReady bool
	craft        *physics.RigidBody
	input        *input.State
	controller   *flight.Controller

	factory  *entity.BodyFactory
	gravity  *gravity.Field
	streamer *chunk.Streamer
	boxes    *collect.Field

	regs        []*host.Registration
	trail       Trail
	complete    bool
	initialized bool
	disposed    bool

	probes atomic.Pointer[probeState]
}

// New creates a game. Nothing is built until Initialize.
func New(cfg Config, deps Deps) (*Game, error) {
	if deps.Scene == nil {
		return nil, errors.New("engine: a render scene is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid config: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	bus := deps.Bus
	if bus == nil {
		bus = event.NewEventBus()
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	world := deps.World
	if world == nil {
		world = physics.NewWorld(cfg.Physics)
	}

	state := input.NewState(deps.Bindings)
	return &Game{
		cfg:        cfg,
		deps:       deps,
		ctx:        context.Background(),
		logger:     logger.Component("game"),
		bus:        bus,
		rng:        rng,
		world:      world,
		input:      state,
		controller: flight.NewController(cfg.Flight, state),
		gravity:    gravity.NewField(cfg.Gravity),
	}, nil
}

// Initialize starts physics, creates the craft and seeds the world. A
// physics failure is logged and the game continues without collisions,
// gravity or flight.
func (g *Game) Initialize(ctx context.Context) error {
	if g.disposed {
		return errors.New("engine: game is disposed")
	}
	if g.initialized {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	g.ctx = logging.WithSessionID(ctx, logging.GetSessionID(ctx))
	g.initialized = true

	g.initPhysics()

	var space physics.Space
	if g.physicsReady {
		space = g.world
	}
	g.factory = entity.NewBodyFactory(g.ctx, g.cfg.Entity, entity.FactoryOptions{
		Scene:    g.deps.Scene,
		Space:    space,
		Textures: g.deps.Textures,
		Bus:      g.bus,
		Logger:   g.logger,
		Rand:     g.rng,
	})
	g.streamer = chunk.NewStreamer(g.cfg.Chunk, g.factory, chunk.Options{
		Tracker: g.gravity,
		Bus:     g.bus,
		Logger:  g.logger,
		Context: g.ctx,
	})
	g.boxes = collect.NewField(g.cfg.Collect, g.factory, collect.Options{
		Bus:     g.bus,
		Logger:  g.logger,
		Rand:    g.rng,
		Context: g.ctx,
	})

	g.streamer.Adopt(g.factory.SpawnScattered(g.cfg.Entity.Starters)...)

	cluster, err := g.factory.SpawnClustered(g.cfg.Entity.Cluster)
	if err != nil {
		g.logger.Warn(g.ctx, "seed cluster incomplete",
			"placed", len(cluster),
			"requested", g.cfg.Entity.Cluster.Count,
			"error", err.Error(),
		)
	}
	g.streamer.Adopt(cluster...)

	if err := g.boxes.Populate(); err != nil {
		g.logger.Error(g.ctx, "collectibles incomplete", err, "outstanding", g.boxes.Len())
	}

	stats := g.streamer.Update(g.CraftPosition())
	g.logger.Info(g.ctx, "game initialized",
		"physics_ready", g.physicsReady,
		"chunks", stats.ChunksGenerated,
		"bodies", g.streamer.BodyCount(),
		"collectibles", g.boxes.Len(),
	)
	g.publishProbes()
	return nil
}

func (g *Game) initPhysics() {
	if err := g.world.Init(); err != nil {
		g.logger.Error(g.ctx, "physics unavailable, continuing without it", err)
		g.bus.Publish(event.NewFailureEvent(event.PhysicsUnavailable, g, err))
		return
	}
	g.physicsReady = true

	craft, err := g.world.CreateBody(physics.BodyOptions{
		Radius: g.cfg.CraftRadius,
		Mass: physics.MassProperties{
			Mass:    g.cfg.Flight.Mass,
			Inertia: mgl64.Vec3{g.cfg.Flight.Inertia, g.cfg.Flight.Inertia, g.cfg.Flight.Inertia},
		},
		Material: physics.Material{Friction: 0.5},
	})
	if err != nil {
		g.logger.Error(g.ctx, "craft body unavailable", err)
		return
	}
	g.craft = craft
	g.controller.Attach(craft)
}

// Ready reports whether physics is running and the craft is attached.
func (g *Game) Ready() bool {
	return g.physicsReady && g.controller.Ready() && !g.disposed
}

// BeforePhysics applies flight input and gravity for one step.
func (g *Game) BeforePhysics(dt float64) {
	if !g.Ready() {
		return
	}
	dt = g.controller.ClampDelta(dt)
	g.controller.Step(dt)
	g.gravity.Apply(g.craft, dt)
}

// BeforeRender streams chunks, scores collectibles and updates the trail.
func (g *Game) BeforeRender(dt float64) {
	if !g.initialized || g.disposed {
		return
	}
	pos := g.CraftPosition()
	g.streamer.Update(pos)

	if g.boxes.Update(pos) > 0 {
		g.checkObjective()
	}
	g.updateTrail()
	g.publishProbes()
}

func (g *Game) checkObjective() {
	target := g.cfg.Collect.TargetScore
	if g.complete || target <= 0 || g.boxes.Score() < target {
		return
	}
	g.complete = true
	g.logger.Info(g.ctx, "objective complete", "score", g.boxes.Score(), "target", target)
	g.bus.Publish(event.NewScoreEvent(event.ObjectiveComplete, g, 0, g.boxes.Score(), target))
}

func (g *Game) updateTrail() {
	if g.craft == nil {
		return
	}
	v := g.craft.LinearVelocity()
	speed := v.Len()
	g.trail.EmitRate = math.Min(200, speed*2)
	if speed > 0.1 {
		g.trail.Direction = v.Mul(-5 / speed)
	}
	if g.deps.Trail != nil {
		g.deps.Trail.SetTrail(g.trail)
	}
}

// HandleKey feeds a key event to the input state. Events arriving before the
// craft is ready are dropped.
func (g *Game) HandleKey(ev input.KeyEvent) {
	if !g.Ready() {
		return
	}
	action, fire := g.input.Handle(ev)
	if !fire {
		return
	}
	if g.controller.Execute(action) && action == input.Restart {
		g.logger.Info(g.ctx, "craft restarted")
		g.bus.Publish(&event.BaseEvent{EventType: event.CraftRestarted, Source: g})
	}
}

// Attach registers the game's frame hooks. Dispose detaches them.
func (g *Game) Attach(h Hooks) {
	g.regs = append(g.regs,
		h.OnBeforePhysics(g.BeforePhysics),
		h.OnBeforeRender(g.BeforeRender),
		h.OnKey(g.HandleKey),
	)
}

// Resize forwards a window size change to the viewport, if any.
func (g *Game) Resize(width, height int) {
	if g.deps.Viewport != nil {
		g.deps.Viewport.Resize(width, height)
	}
}

// Dispose detaches the hooks and releases every body, collectible, shared
// resource and the craft. Calling it again is a no-op.
func (g *Game) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true

	for _, r := range g.regs {
		r.Detach()
	}
	g.regs = nil

	if g.streamer != nil {
		g.streamer.Dispose()
	}
	if g.boxes != nil {
		g.boxes.Dispose()
	}
	if g.factory != nil {
		g.factory.Dispose()
	}
	if g.craft != nil {
		g.controller.Attach(nil)
		g.world.RemoveBody(g.craft)
		g.craft = nil
	}
	g.input.Reset()
	g.publishProbes()
	g.logger.Info(g.ctx, "game disposed")
}

// CraftPosition returns the craft's position, or the origin without a craft.
func (g *Game) CraftPosition() mgl64.Vec3 {
	if g.craft == nil {
		return mgl64.Vec3{}
	}
	return g.craft.Position()
}

// CraftOrientation returns the craft's orientation.
func (g *Game) CraftOrientation() mgl64.Quat {
	if g.craft == nil {
		return mgl64.QuatIdent()
	}
	return g.craft.Orientation()
}

// Snapshot returns the current HUD view.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Target:       g.cfg.Collect.TargetScore,
		Complete:     g.complete,
		PhysicsReady: g.physicsReady,
		CraftReady:   g.controller.Ready(),
		Position:     g.CraftPosition(),
		Trail:        g.trail,
	}
	if g.craft != nil {
		s.Velocity = g.craft.LinearVelocity()
		s.Speed = s.Velocity.Len()
	}
	if g.streamer != nil {
		s.LoadedChunks = g.streamer.LoadedCount()
		s.Bodies = g.streamer.BodyCount()
	}
	s.TrackedBodies = g.gravity.Len()
	if g.boxes != nil {
		s.Score = g.boxes.Score()
		s.Collectibles = g.boxes.Len()
	}
	return s
}

// Bodies returns the loaded celestial bodies.
func (g *Game) Bodies() []*entity.CelestialBody {
	if g.streamer == nil {
		return nil
	}
	return g.streamer.Bodies()
}

// Collectibles returns the outstanding boxes.
func (g *Game) Collectibles() []*entity.Collectible {
	if g.boxes == nil {
		return nil
	}
	return g.boxes.Boxes()
}

// Bus returns the game's event bus.
func (g *Game) Bus() *event.Bus {
	return g.bus
}

// Controller returns the flight controller.
func (g *Game) Controller() *flight.Controller {
	return g.controller
}

// World returns the physics world.
func (g *Game) World() *physics.World {
	return g.world
}
