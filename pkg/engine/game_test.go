// pkg/engine/game_test.go
package engine

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/event"
	"github.com/opd-ai/go-spacefly/pkg/host"
	"github.com/opd-ai/go-spacefly/pkg/input"
	"github.com/opd-ai/go-spacefly/pkg/physics"
	"github.com/opd-ai/go-spacefly/pkg/render"
)

type fakeViewport struct{ w, h int }

func (v *fakeViewport) Resize(w, h int) { v.w, v.h = w, h }

type fakeTrail struct{ last Trail }

func (f *fakeTrail) SetTrail(t Trail) { f.last = t }

func newTestGame(t *testing.T, cfg Config, deps Deps) (*Game, *render.NullScene) {
	t.Helper()
	scene := render.NewNullScene(nil)
	deps.Scene = scene
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(21, 42))
	}
	g, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := g.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	return g, scene
}

// quietConfig removes the seed bodies and gravity so flight tests see only
// the craft's own forces.
func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Entity.Starters.Count = 0
	cfg.Entity.Cluster.Count = 0
	cfg.Gravity.Strength = 0
	return cfg
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(DefaultConfig(), Deps{}); err == nil {
		t.Error("Expected error without a scene")
	}

	cfg := DefaultConfig()
	cfg.Chunk.ChunkSize = 0
	if _, err := New(cfg, Deps{Scene: render.NewNullScene(nil)}); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestGame_Initialize(t *testing.T) {
	g, scene := newTestGame(t, DefaultConfig(), Deps{})

	if !g.Ready() {
		t.Fatal("Expected game ready after Initialize")
	}
	snap := g.Snapshot()
	if snap.LoadedChunks != 32 {
		t.Errorf("Expected 32 loaded chunks, got %d", snap.LoadedChunks)
	}
	if snap.Bodies < 8+1+32 {
		t.Errorf("Expected starters, cluster and chunk bodies, got %d", snap.Bodies)
	}
	if snap.TrackedBodies != snap.Bodies {
		t.Errorf("Expected every body tracked, got %d of %d", snap.TrackedBodies, snap.Bodies)
	}
	if snap.Collectibles != 100 {
		t.Errorf("Expected 100 collectibles, got %d", snap.Collectibles)
	}
	if snap.Position != (mgl64.Vec3{}) {
		t.Errorf("Expected craft at origin, got %v", snap.Position)
	}
	if scene.MeshCount("planet-") != snap.Bodies {
		t.Errorf("Expected a mesh per body, got %d", scene.MeshCount("planet-"))
	}
	if g.World().StaticCount() != snap.Bodies {
		t.Errorf("Expected a collider per body, got %d", g.World().StaticCount())
	}
	if err := g.ReadinessCheck(context.Background()); err != nil {
		t.Errorf("ReadinessCheck() failed: %v", err)
	}
	if err := g.StreamingCheck(context.Background()); err != nil {
		t.Errorf("StreamingCheck() failed: %v", err)
	}

	if err := g.Initialize(context.Background()); err != nil {
		t.Errorf("second Initialize should be a no-op, got %v", err)
	}
	if g.Snapshot().Collectibles != 100 {
		t.Error("second Initialize must not reseed")
	}
}

func TestGame_PhysicsUnavailable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Physics.Disabled = true

	bus := event.NewEventBus()
	failed := 0
	bus.Subscribe(event.PhysicsUnavailable, func(e event.Event) {
		if fe, ok := e.(*event.FailureEvent); ok && errors.Is(fe.Err, physics.ErrPhysicsUnavailable) {
			failed++
		}
	})

	g, scene := newTestGame(t, cfg, Deps{Bus: bus})

	if failed != 1 {
		t.Errorf("Expected one PhysicsUnavailable event, got %d", failed)
	}
	if g.Ready() {
		t.Error("game must not be ready without physics")
	}
	if err := g.ReadinessCheck(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady, got %v", err)
	}
	for _, b := range g.Bodies() {
		if b.HasCollider() {
			t.Fatal("bodies must not have colliders without physics")
		}
	}
	if scene.MeshCount("planet-") == 0 {
		t.Error("bodies should still render without physics")
	}

	g.HandleKey(input.KeyEvent{Key: input.KeyW, Pressed: true})
	if g.input.Active(input.ThrustForward) {
		t.Error("input must be dropped while the craft is not ready")
	}
	g.BeforePhysics(0.016)
	g.BeforeRender(0.016)
}

func TestGame_FlightThroughLoop(t *testing.T) {
	g, _ := newTestGame(t, quietConfig(), Deps{})
	loop := host.NewLoop(g.World(), nil)
	g.Attach(loop)

	loop.PostKey(input.KeyEvent{Key: input.KeyW, Pressed: true})
	for i := 0; i < 30; i++ {
		loop.Tick(1.0 / 60)
	}

	pos := g.CraftPosition()
	if pos[2] <= 0 {
		t.Fatalf("Expected the craft to move forward along +Z, got %v", pos)
	}
	if math.Abs(pos[0]) > 1e-9 || math.Abs(pos[1]) > 1e-9 {
		t.Errorf("Expected no sideways drift, got %v", pos)
	}

	loop.PostKey(input.KeyEvent{Key: input.KeyW, Pressed: false})
	loop.PostKey(input.KeyEvent{Key: input.ArrowLeft, Pressed: true})
	for i := 0; i < 200; i++ {
		loop.Tick(1.0 / 60)
	}
	w := g.craft.AngularVelocity()
	for axis := 0; axis < 3; axis++ {
		if math.Abs(w[axis]) > g.cfg.Flight.MaxAngularSpeed+1e-9 {
			t.Errorf("angular velocity %v exceeds clamp", w)
		}
	}
}

func TestGame_RestartCommand(t *testing.T) {
	bus := event.NewEventBus()
	restarts := 0
	bus.Subscribe(event.CraftRestarted, func(event.Event) { restarts++ })

	g, _ := newTestGame(t, quietConfig(), Deps{Bus: bus})
	loop := host.NewLoop(g.World(), nil)
	g.Attach(loop)

	g.craft.SetLinearVelocity(mgl64.Vec3{5, 0, 30})
	g.craft.SetAngularVelocity(mgl64.Vec3{1, 2, 3})
	for i := 0; i < 20; i++ {
		loop.Tick(1.0 / 60)
	}

	loop.PostKey(input.KeyEvent{Key: input.KeyR, Pressed: true})
	loop.Tick(0)
	if restarts != 0 {
		t.Fatal("restart must fire on release, not press")
	}
	loop.PostKey(input.KeyEvent{Key: input.KeyR, Pressed: false})
	loop.Tick(0)

	if restarts != 1 {
		t.Errorf("Expected one restart event, got %d", restarts)
	}
	if p := g.CraftPosition(); p != (mgl64.Vec3{}) {
		t.Errorf("Expected origin, got %v", p)
	}
	if q := g.CraftOrientation(); q != mgl64.QuatIdent() {
		t.Errorf("Expected identity orientation, got %v", q)
	}
	if v := g.craft.LinearVelocity(); v != (mgl64.Vec3{}) {
		t.Errorf("Expected zero velocity, got %v", v)
	}
	if w := g.craft.AngularVelocity(); w != (mgl64.Vec3{}) {
		t.Errorf("Expected zero spin, got %v", w)
	}
}

func TestGame_BrakeCommand(t *testing.T) {
	g, _ := newTestGame(t, quietConfig(), Deps{})
	g.craft.SetLinearVelocity(mgl64.Vec3{0, 0, 50})

	g.HandleKey(input.KeyEvent{Key: input.KeyX, Pressed: true})
	g.HandleKey(input.KeyEvent{Key: input.KeyX, Pressed: false})

	if v := g.craft.LinearVelocity(); v != (mgl64.Vec3{}) {
		t.Errorf("Expected the brake to stop the craft, got %v", v)
	}
}

func TestGame_Objective(t *testing.T) {
	cfg := quietConfig()
	cfg.Collect.TargetScore = 2

	bus := event.NewEventBus()
	var completions []int
	bus.Subscribe(event.ObjectiveComplete, func(e event.Event) {
		completions = append(completions, e.(*event.ScoreEvent).Score)
	})

	g, _ := newTestGame(t, cfg, Deps{Bus: bus})

	for i := 0; i < 4; i++ {
		target := g.Collectibles()[0]
		g.craft.SetPosition(target.Position())
		g.BeforeRender(0.016)
		if !target.Disposed() {
			t.Fatalf("round %d: Expected the box under the craft collected", i)
		}
		if g.Snapshot().Collectibles != 100 {
			t.Fatalf("round %d: Expected 100 boxes outstanding, got %d", i, g.Snapshot().Collectibles)
		}
	}

	snap := g.Snapshot()
	if !snap.Complete || snap.Score < 4 {
		t.Errorf("Expected completed objective with score >= 4, got %+v", snap)
	}
	if len(completions) != 1 || completions[0] < 2 {
		t.Errorf("Expected one completion event, got %v", completions)
	}
}

func TestGame_Trail(t *testing.T) {
	trail := &fakeTrail{}
	g, _ := newTestGame(t, quietConfig(), Deps{Trail: trail})

	tests := []struct {
		name     string
		velocity mgl64.Vec3
		rate     float64
		dir      mgl64.Vec3
	}{
		{"cruising", mgl64.Vec3{0, 0, 10}, 20, mgl64.Vec3{0, 0, -5}},
		{"fast is capped", mgl64.Vec3{300, 0, 0}, 200, mgl64.Vec3{-5, 0, 0}},
		{"drifting keeps direction", mgl64.Vec3{0, 0.05, 0}, 0.1, mgl64.Vec3{-5, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.craft.SetLinearVelocity(tt.velocity)
			g.BeforeRender(0.016)

			if math.Abs(trail.last.EmitRate-tt.rate) > 1e-9 {
				t.Errorf("Expected emit rate %v, got %v", tt.rate, trail.last.EmitRate)
			}
			if !trail.last.Direction.ApproxEqualThreshold(tt.dir, 1e-9) {
				t.Errorf("Expected direction %v, got %v", tt.dir, trail.last.Direction)
			}
		})
	}
}

func TestGame_Resize(t *testing.T) {
	vp := &fakeViewport{}
	g, _ := newTestGame(t, quietConfig(), Deps{Viewport: vp})

	g.Resize(1280, 720)
	if vp.w != 1280 || vp.h != 720 {
		t.Errorf("Expected viewport 1280x720, got %dx%d", vp.w, vp.h)
	}
}

func TestGame_Dispose(t *testing.T) {
	g, scene := newTestGame(t, DefaultConfig(), Deps{})
	loop := host.NewLoop(g.World(), nil)
	g.Attach(loop)
	loop.Tick(0.016)

	g.Dispose()
	g.Dispose()

	if n := scene.MeshCount(""); n != 0 {
		t.Errorf("Expected no meshes, got %d", n)
	}
	if scene.MaterialCount() != 0 || scene.TextureCount() != 0 {
		t.Errorf("Expected no materials or textures, got %d/%d", scene.MaterialCount(), scene.TextureCount())
	}
	if g.World().StaticCount() != 0 {
		t.Errorf("Expected no colliders, got %d", g.World().StaticCount())
	}

	frames := loop.Frames()
	loop.PostKey(input.KeyEvent{Key: input.KeyW, Pressed: true})
	loop.Tick(0.016)
	if loop.Frames() != frames+1 {
		t.Fatal("loop should keep ticking")
	}
	if g.input.Active(input.ThrustForward) {
		t.Error("detached game must not receive keys")
	}
	if err := g.ReadinessCheck(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady after Dispose, got %v", err)
	}
	if err := g.Initialize(context.Background()); err == nil {
		t.Error("Expected Initialize to fail after Dispose")
	}
}

func TestGame_KeysBeforeInitialize(t *testing.T) {
	g, err := New(DefaultConfig(), Deps{Scene: render.NewNullScene(nil)})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	g.HandleKey(input.KeyEvent{Key: input.KeyW, Pressed: true})
	g.BeforePhysics(0.016)
	g.BeforeRender(0.016)

	if g.input.Active(input.ThrustForward) {
		t.Error("keys before Initialize must be dropped")
	}
	if err := g.ReadinessCheck(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady, got %v", err)
	}
	if err := g.StreamingCheck(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady, got %v", err)
	}
}

func TestGame_ProbesWhileTicking(t *testing.T) {
	g, _ := newTestGame(t, quietConfig(), Deps{})
	loop := host.NewLoop(g.World(), nil)
	g.Attach(loop)

	stop := make(chan struct{})
	done := make(chan int)
	go func() {
		failures := 0
		for {
			select {
			case <-stop:
				done <- failures
				return
			default:
			}
			if g.ReadinessCheck(context.Background()) != nil || g.StreamingCheck(context.Background()) != nil {
				failures++
			}
		}
	}()

	loop.PostKey(input.KeyEvent{Key: input.KeyW, Pressed: true})
	for i := 0; i < 120; i++ {
		loop.Tick(1.0 / 60)
	}
	close(stop)

	if failures := <-done; failures != 0 {
		t.Errorf("Expected probes to stay healthy while ticking, got %d failures", failures)
	}

	g.Dispose()
	if err := g.ReadinessCheck(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady after Dispose, got %v", err)
	}
}
