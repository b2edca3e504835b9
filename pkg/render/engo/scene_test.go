// pkg/render/engo/scene_test.go
package engo

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/opd-ai/go-spacefly/pkg/engine"
	"github.com/opd-ai/go-spacefly/pkg/input"
)

func testScene(t *testing.T, onReady func(*engine.Game)) (*GameScene, *fakeSink) {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Gravity.Strength = 0

	scene, err := NewGameScene(context.Background(), Options{
		Build: func(ctx context.Context, deps engine.Deps) (*engine.Game, error) {
			deps.Rand = rand.New(rand.NewPCG(7, 8))
			return engine.New(cfg, deps)
		},
		LoadTexture: failLoad,
		OnReady:     onReady,
	})
	if err != nil {
		t.Fatalf("NewGameScene() failed: %v", err)
	}
	sink := newFakeSink()
	if err := scene.build(sink, nil, nil); err != nil {
		t.Fatalf("build() failed: %v", err)
	}
	return scene, sink
}

func TestNewGameScene_RequiresBuild(t *testing.T) {
	if _, err := NewGameScene(context.Background(), Options{}); err == nil {
		t.Error("Expected error without a build function")
	}
}

func TestGameScene_Type(t *testing.T) {
	scene, err := NewGameScene(context.Background(), Options{
		Build: func(context.Context, engine.Deps) (*engine.Game, error) { return nil, errors.New("unused") },
	})
	if err != nil {
		t.Fatalf("NewGameScene() failed: %v", err)
	}
	if scene.Type() != "SpaceflyScene" {
		t.Errorf("Expected SpaceflyScene, got %q", scene.Type())
	}
}

func TestGameScene_BuildFailure(t *testing.T) {
	scene, _ := NewGameScene(context.Background(), Options{
		Build: func(context.Context, engine.Deps) (*engine.Game, error) { return nil, errors.New("boom") },
	})
	if err := scene.build(newFakeSink(), nil, nil); err == nil {
		t.Error("Expected the build error")
	}
	if scene.Game() != nil {
		t.Error("Expected no game after a failed build")
	}
	scene.Exit()
}

func TestGameScene_Build(t *testing.T) {
	var ready *engine.Game
	scene, sink := testScene(t, func(g *engine.Game) { ready = g })
	g := scene.Game()
	defer scene.Exit()

	if ready == nil || ready != g {
		t.Fatal("Expected OnReady with the built game")
	}
	if !g.Ready() {
		t.Fatal("Expected the game ready")
	}
	snap := g.Snapshot()
	if n := scene.meshes.MeshCount("planet-"); n != snap.Bodies {
		t.Errorf("Expected one disc per body (%d), got %d", snap.Bodies, n)
	}
	if n := scene.meshes.MeshCount("box-"); n != snap.Collectibles {
		t.Errorf("Expected one square per collectible (%d), got %d", snap.Collectibles, n)
	}
	if len(sink.entities) < snap.Bodies+snap.Collectibles+2 {
		t.Errorf("Expected bodies, boxes and the craft in the sink, got %d entities", len(sink.entities))
	}
}

func TestGameScene_FrameSystem(t *testing.T) {
	scene, _ := testScene(t, nil)
	defer scene.Exit()
	g := scene.Game()

	done := 0
	fs := &FrameSystem{
		loop:      scene.Loop(),
		game:      g,
		camera:    scene.camera,
		maxFrames: 20,
		onDone:    func() { done++ },
	}

	scene.Loop().PostKey(input.KeyEvent{Key: input.KeyW, Pressed: true})
	for i := 0; i < 19; i++ {
		fs.Update(1.0 / 60)
	}
	if done != 0 {
		t.Fatalf("Expected no exit before %d frames", fs.maxFrames)
	}
	fs.Update(1.0 / 60)
	if done != 1 {
		t.Errorf("Expected exit after %d frames, got %d calls", fs.maxFrames, done)
	}

	pos := g.CraftPosition()
	if pos.Z() <= 0 {
		t.Errorf("Expected the craft to move forward, got %v", pos)
	}
	if scene.camera.target != pos {
		t.Errorf("Expected the camera to target the craft, got %v", scene.camera.target)
	}

	scene.renderer.Update(1.0 / 60)
	if rc, _ := scene.renderer.Craft(); rc.Hidden {
		t.Error("Expected the craft sprite visible")
	}
}

func TestGameScene_ExitReleasesEntities(t *testing.T) {
	scene, sink := testScene(t, nil)
	scene.Exit()

	if n := scene.meshes.MeshCount(""); n != 0 {
		t.Errorf("Expected no meshes after exit, got %d", n)
	}
	if n := len(sink.entities); n != 2 {
		t.Errorf("Expected only the craft sprites left, got %d entities", n)
	}
	if scene.Game().Ready() {
		t.Error("Expected the game disposed")
	}
}
