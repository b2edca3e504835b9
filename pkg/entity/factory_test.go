// pkg/entity/factory_test.go
package entity

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/event"
	"github.com/opd-ai/go-spacefly/pkg/physics"
	"github.com/opd-ai/go-spacefly/pkg/render"
)

type failingSpace struct{}

func (failingSpace) AddStaticSphere(mgl64.Vec3, float64, physics.Material) (physics.Collider, error) {
	return nil, errors.New("shape rejected")
}

func newTestWorld(t *testing.T) *physics.World {
	t.Helper()
	w := physics.NewWorld(physics.DefaultWorldConfig())
	if err := w.Init(); err != nil {
		t.Fatalf("World.Init() failed: %v", err)
	}
	return w
}

func newTestFactory(scene render.Scene, space physics.Space, bus *event.Bus) *BodyFactory {
	return NewBodyFactory(context.Background(), DefaultConfig(), FactoryOptions{
		Scene: scene,
		Space: space,
		Bus:   bus,
		Rand:  rand.New(rand.NewPCG(42, 7)),
	})
}

func findMesh(scene *render.NullScene, prefix string) (render.MeshInfo, bool) {
	for _, m := range scene.Meshes() {
		if strings.HasPrefix(m.Name, prefix) {
			return m, true
		}
	}
	return render.MeshInfo{}, false
}

func TestBodyFactory_Create(t *testing.T) {
	scene := render.NewNullScene(nil)
	world := newTestWorld(t)
	factory := newTestFactory(scene, world, nil)

	pos := mgl64.Vec3{100, -20, 300}
	body, err := factory.Create(pos, 120, StyleStreamed)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if body.Position() != pos {
		t.Errorf("Expected position %v, got %v", pos, body.Position())
	}
	if body.Radius() != 60 {
		t.Errorf("Expected radius 60, got %v", body.Radius())
	}
	if !body.HasCollider() {
		t.Fatal("Expected a collider with physics available")
	}
	if body.Collider().Radius() != 60 || body.Collider().Center() != pos {
		t.Errorf("collider does not match the mesh: %v r=%v", body.Collider().Center(), body.Collider().Radius())
	}
	if world.StaticCount() != 1 {
		t.Errorf("Expected 1 static collider, got %d", world.StaticCount())
	}

	surface, ok := findMesh(scene, "planet-")
	if !ok {
		t.Fatal("surface mesh missing")
	}
	if surface.Size != 120 || !strings.HasPrefix(surface.Material, "surface-textures/") {
		t.Errorf("unexpected surface mesh: %+v", surface)
	}

	shell, ok := findMesh(scene, "atmosphere-")
	if !ok {
		t.Fatal("atmosphere mesh missing")
	}
	if shell.Size != 180 || shell.Material != "atmosphere" {
		t.Errorf("Expected atmosphere of diameter 180, got %+v", shell)
	}
}

func TestBodyFactory_CreateWithoutPhysics(t *testing.T) {
	scene := render.NewNullScene(nil)
	factory := newTestFactory(scene, nil, nil)

	body, err := factory.Create(mgl64.Vec3{}, 80, StyleStreamed)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if body.HasCollider() {
		t.Error("Expected no collider without physics")
	}
	if body.Mesh() == nil {
		t.Error("Expected a mesh without physics")
	}
}

func TestBodyFactory_ColliderFailureReleasesMesh(t *testing.T) {
	scene := render.NewNullScene(nil)
	factory := newTestFactory(scene, failingSpace{}, nil)

	if _, err := factory.Create(mgl64.Vec3{}, 80, StyleStreamed); err == nil {
		t.Fatal("Expected collider failure to be returned")
	}
	if n := scene.MeshCount(""); n != 0 {
		t.Errorf("Expected no meshes left behind, got %d", n)
	}
}

func TestBodyFactory_CreateRejectsInvalidInput(t *testing.T) {
	scene := render.NewNullScene(nil)
	factory := newTestFactory(scene, nil, nil)

	tests := []struct {
		name string
		pos  mgl64.Vec3
		size float64
	}{
		{"zero size", mgl64.Vec3{}, 0},
		{"negative size", mgl64.Vec3{}, -5},
		{"nan position", mgl64.Vec3{nan(), 0, 0}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := factory.Create(tt.pos, tt.size, StyleStreamed); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestBodyFactory_TextureFallback(t *testing.T) {
	scene := render.NewNullScene(nil)
	scene.MissingTextures = map[string]bool{"*": true}
	factory := newTestFactory(scene, nil, nil)

	for i := 0; i < 5; i++ {
		if _, err := factory.Create(mgl64.Vec3{float64(i) * 1000, 0, 0}, 60, StyleStreamed); err != nil {
			t.Fatalf("Create() should survive texture failures: %v", err)
		}
	}

	for _, m := range scene.Meshes() {
		if strings.HasPrefix(m.Name, "planet-") && m.Material != "surface-fallback" {
			t.Errorf("Expected fallback surface, got %q", m.Material)
		}
	}
	if scene.TextureCount() != 1 {
		t.Errorf("Expected only the shared noise texture, got %d", scene.TextureCount())
	}
}

func TestBodyFactory_SharedMaterials(t *testing.T) {
	scene := render.NewNullScene(nil)
	factory := newTestFactory(scene, nil, nil)

	var bodies []*CelestialBody
	for i := 0; i < 20; i++ {
		body, err := factory.Create(mgl64.Vec3{float64(i) * 500, 0, 0}, 60, StyleStreamed)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		bodies = append(bodies, body)
	}

	// one atmosphere plus at most one surface per configured texture
	if max := 1 + len(DefaultConfig().Textures); scene.MaterialCount() > max {
		t.Errorf("Expected at most %d shared materials, got %d", max, scene.MaterialCount())
	}

	for _, b := range bodies {
		b.Dispose()
	}
	if scene.MeshCount("") != 0 {
		t.Errorf("Expected all meshes released, got %d", scene.MeshCount(""))
	}
	if scene.MaterialCount() == 0 {
		t.Error("shared materials should outlive the bodies")
	}

	factory.Dispose()
	factory.Dispose()
	if scene.MaterialCount() != 0 || scene.TextureCount() != 0 {
		t.Errorf("Expected no resources after Dispose, got %d materials %d textures", scene.MaterialCount(), scene.TextureCount())
	}
	if _, err := factory.Create(mgl64.Vec3{}, 10, StyleStreamed); err == nil {
		t.Error("Expected Create to fail after Dispose")
	}
}

func TestCelestialBody_DisposeOnce(t *testing.T) {
	scene := render.NewNullScene(nil)
	world := newTestWorld(t)
	factory := newTestFactory(scene, world, nil)

	body, err := factory.Create(mgl64.Vec3{}, 50, StyleStreamed)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	body.Dispose()
	body.Dispose()

	if !body.Disposed() {
		t.Error("Expected body to report disposed")
	}
	if world.StaticCount() != 0 {
		t.Errorf("Expected collider removed, got %d", world.StaticCount())
	}
	if scene.MeshCount("") != 0 {
		t.Errorf("Expected meshes removed, got %d", scene.MeshCount(""))
	}
}

func TestBodyFactory_SpawnInChunk(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		density float64
		want    int
	}{
		{"one per chunk", 1, 1.0, 1},
		{"floor of fractional", 3, 0.5, 1},
		{"zero density", 4, 0, 0},
		{"dense", 4, 1.0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := render.NewNullScene(nil)
			factory := newTestFactory(scene, nil, nil)
			centre := mgl64.Vec3{4500, 1500, -1500}

			bodies := factory.SpawnInChunk(ChunkRequest{
				Center:    centre,
				ChunkSize: 3000,
				Count:     tt.count,
				Density:   tt.density,
				MinSize:   50,
				MaxSize:   600,
			})
			if len(bodies) != tt.want {
				t.Fatalf("Expected %d bodies, got %d", tt.want, len(bodies))
			}
			for _, b := range bodies {
				for axis := 0; axis < 3; axis++ {
					if d := b.Position()[axis] - centre[axis]; d < -1500 || d >= 1500 {
						t.Errorf("body %v outside its chunk", b.Position())
					}
				}
				if b.Size() < 50 || b.Size() > 600 {
					t.Errorf("size %v outside range", b.Size())
				}
			}
		})
	}
}

func TestBodyFactory_SpawnClustered(t *testing.T) {
	scene := render.NewNullScene(nil)
	world := newTestWorld(t)
	factory := newTestFactory(scene, world, nil)

	bodies, err := factory.SpawnClustered(DefaultConfig().Cluster)
	if err != nil && !errors.Is(err, ErrPlacementExhausted) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bodies) == 0 {
		t.Fatal("Expected at least the first cluster body")
	}
	for _, b := range bodies {
		if b.Style() != StyleCluster {
			t.Errorf("Expected cluster style, got %v", b.Style())
		}
	}

	for _, m := range scene.Meshes() {
		if strings.HasPrefix(m.Name, "atmosphere-") && !strings.HasPrefix(m.Material, "cluster-atmosphere-") {
			t.Errorf("Expected palette atmosphere, got %q", m.Material)
		}
		if strings.HasPrefix(m.Name, "planet-") && m.Material != "cluster-surface" {
			t.Errorf("Expected cluster surface, got %q", m.Material)
		}
	}
}

func TestBodyFactory_SpawnClusteredExhaustion(t *testing.T) {
	scene := render.NewNullScene(nil)
	bus := event.NewEventBus()
	factory := newTestFactory(scene, nil, bus)

	failures := 0
	bus.Subscribe(event.PlacementFailed, func(e event.Event) {
		if fe, ok := e.(*event.FailureEvent); ok && errors.Is(fe.Err, ErrPlacementExhausted) {
			failures++
		}
	})

	cfg := DefaultConfig().Cluster
	cfg.Count = 4
	cfg.MaxAttempts = 3
	cfg.SpacingFactor = 1e9

	bodies, err := factory.SpawnClustered(cfg)
	if !errors.Is(err, ErrPlacementExhausted) {
		t.Fatalf("Expected ErrPlacementExhausted, got %v", err)
	}
	if len(bodies) != 1 {
		t.Errorf("Expected 1 body, got %d", len(bodies))
	}
	if failures != 3 {
		t.Errorf("Expected 3 placement failures, got %d", failures)
	}
}

func TestBodyFactory_SpawnScattered(t *testing.T) {
	scene := render.NewNullScene(nil)
	factory := newTestFactory(scene, nil, nil)
	cfg := DefaultConfig().Starters

	bodies := factory.SpawnScattered(cfg)
	if len(bodies) != cfg.Count {
		t.Fatalf("Expected %d starters, got %d", cfg.Count, len(bodies))
	}
	for _, b := range bodies {
		for axis := 0; axis < 3; axis++ {
			if v := b.Position()[axis]; v < -cfg.HalfExtent[axis] || v > cfg.HalfExtent[axis] {
				t.Errorf("starter %v outside extent", b.Position())
			}
		}
		if b.Size() < cfg.MinSize || b.Size() > cfg.MaxSize {
			t.Errorf("starter size %v outside range", b.Size())
		}
	}
}

func TestBodyFactory_PublishesSpawnEvents(t *testing.T) {
	scene := render.NewNullScene(nil)
	bus := event.NewEventBus()
	factory := newTestFactory(scene, nil, bus)

	var got []uint64
	bus.Subscribe(event.BodySpawned, func(e event.Event) {
		got = append(got, e.(*event.BodyEvent).BodyID)
	})

	body, err := factory.Create(mgl64.Vec3{1, 2, 3}, 10, StyleStreamed)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(got) != 1 || got[0] != body.ID() {
		t.Errorf("Expected spawn event for %d, got %v", body.ID(), got)
	}
}

func TestBodyFactory_CreateCollectible(t *testing.T) {
	scene := render.NewNullScene(nil)
	world := newTestWorld(t)

	cfg := DefaultConfig()
	factory := NewBodyFactory(context.Background(), cfg, FactoryOptions{Scene: scene, Space: world})

	box, err := factory.CreateCollectible(mgl64.Vec3{5, 5, 5})
	if err != nil {
		t.Fatalf("CreateCollectible() failed: %v", err)
	}
	if box.HasCollider() {
		t.Error("boxes have no collider by default")
	}
	info, ok := findMesh(scene, "box-")
	if !ok || info.Kind != render.BoxMesh || info.Size != 4 {
		t.Errorf("unexpected box mesh: %+v", info)
	}
	if scene.MaterialCount() != 1 {
		t.Errorf("Expected a per-box material, got %d", scene.MaterialCount())
	}

	box.Dispose()
	if scene.MeshCount("box-") != 0 || scene.MaterialCount() != 0 {
		t.Error("Expected box mesh and material released")
	}

	cfg.Collectible.Colliders = true
	factory = NewBodyFactory(context.Background(), cfg, FactoryOptions{Scene: scene, Space: world})
	box, err = factory.CreateCollectible(mgl64.Vec3{})
	if err != nil {
		t.Fatalf("CreateCollectible() failed: %v", err)
	}
	if !box.HasCollider() || world.StaticCount() != 1 {
		t.Error("Expected a box collider when enabled")
	}
	box.Dispose()
	if world.StaticCount() != 0 {
		t.Error("Expected box collider released")
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"small atmosphere", func(c *Config) { c.AtmosphereScale = 0.5 }},
		{"inverted cluster sizes", func(c *Config) { c.Cluster.MinSize = 700 }},
		{"inverted bounds", func(c *Config) { c.Cluster.BoundsMin = 2000 }},
		{"no attempts", func(c *Config) { c.Cluster.MaxAttempts = 0 }},
		{"zero starter size", func(c *Config) { c.Starters.MinSize = 0 }},
		{"zero box size", func(c *Config) { c.Collectible.Size = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
