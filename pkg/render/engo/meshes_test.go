// pkg/render/engo/meshes_test.go
package engo

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo/common"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/physics"
	"github.com/opd-ai/go-spacefly/pkg/render"
)

type fakeSink struct {
	entities map[uint64]*common.SpaceComponent
	removed  int
}

func newFakeSink() *fakeSink {
	return &fakeSink{entities: make(map[uint64]*common.SpaceComponent)}
}

func (s *fakeSink) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	s.entities[basic.ID()] = space
}

func (s *fakeSink) Remove(basic ecs.BasicEntity) {
	if _, ok := s.entities[basic.ID()]; ok {
		delete(s.entities, basic.ID())
		s.removed++
	}
}

var errNoAssets = errors.New("no assets")

func failLoad(string) error { return errNoAssets }

func testCamera() *CameraSystem {
	cam := NewCameraSystem(&fakeButtons{})
	cam.Resize(800, 600)
	cam.SetZoom(0.5)
	return cam
}

func TestMeshScene_CreateAndProject(t *testing.T) {
	sink := newFakeSink()
	scene := NewMeshScene(sink, failLoad, nil)

	red, err := scene.CreateMaterial(render.MaterialOptions{Name: "red", DiffuseColor: render.Color{R: 1, A: 1}})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	planet, err := scene.CreateSphere(render.SphereOptions{Name: "planet-1", Diameter: 100, Material: red})
	if err != nil {
		t.Fatalf("CreateSphere() failed: %v", err)
	}
	shell, err := scene.CreateSphere(render.SphereOptions{Name: "atmosphere-1", Diameter: 120, Parent: planet})
	if err != nil {
		t.Fatalf("CreateSphere() failed: %v", err)
	}
	box, err := scene.CreateBox(render.BoxOptions{Name: "box-1", Position: mgl64.Vec3{2000, 0, 0}, Size: 10, Rotation: mgl64.QuatIdent()})
	if err != nil {
		t.Fatalf("CreateBox() failed: %v", err)
	}

	if len(sink.entities) != 3 {
		t.Fatalf("Expected 3 entities in the sink, got %d", len(sink.entities))
	}
	rc, _, ok := scene.Entity(planet.ID())
	if !ok {
		t.Fatal("Expected the planet entity")
	}
	if rc.Color != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("Expected red planet, got %v", rc.Color)
	}

	planet.SetPosition(mgl64.Vec3{10, 0, 0})
	if got := shell.Position(); got != (mgl64.Vec3{10, 0, 0}) {
		t.Errorf("Expected the shell to follow its parent, got %v", got)
	}

	cam := testCamera()
	cam.SetTarget(mgl64.Vec3{10, 0, 0})
	scene.Project(cam)

	tests := []struct {
		name   string
		id     uint64
		width  float32
		x, y   float32
		hidden bool
	}{
		{"planet", planet.ID(), 50, 375, 275, false},
		{"shell", shell.ID(), 60, 370, 270, false},
		{"box off screen", box.ID(), 5, 1392.5, 297.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, sc, ok := scene.Entity(tt.id)
			if !ok {
				t.Fatal("Expected a live entity")
			}
			if sc.Width != tt.width || sc.Height != tt.width {
				t.Errorf("Expected size %v, got %vx%v", tt.width, sc.Width, sc.Height)
			}
			if sc.Position.X != tt.x || sc.Position.Y != tt.y {
				t.Errorf("Expected position (%v, %v), got (%v, %v)", tt.x, tt.y, sc.Position.X, sc.Position.Y)
			}
			if rc.Hidden != tt.hidden {
				t.Errorf("Expected hidden %v, got %v", tt.hidden, rc.Hidden)
			}
		})
	}
}

func TestMeshScene_MinimumSize(t *testing.T) {
	scene := NewMeshScene(nil, failLoad, nil)
	dot, err := scene.CreateSphere(render.SphereOptions{Name: "planet-far", Diameter: 1})
	if err != nil {
		t.Fatalf("CreateSphere() failed: %v", err)
	}
	scene.Project(testCamera())

	_, sc, _ := scene.Entity(dot.ID())
	if sc.Width != minPixels {
		t.Errorf("Expected %d px, got %v", minPixels, sc.Width)
	}
}

func TestMeshScene_Dispose(t *testing.T) {
	sink := newFakeSink()
	scene := NewMeshScene(sink, failLoad, nil)

	mat, _ := scene.CreateMaterial(render.MaterialOptions{Name: "grey"})
	planet, _ := scene.CreateSphere(render.SphereOptions{Name: "planet-1", Diameter: 10, Material: mat})

	planet.Dispose()
	planet.Dispose()
	mat.Dispose()

	if sink.removed != 1 {
		t.Errorf("Expected 1 removal, got %d", sink.removed)
	}
	if n := scene.MeshCount("planet-"); n != 0 {
		t.Errorf("Expected no planets, got %d", n)
	}
	if n := scene.MaterialCount(); n != 0 {
		t.Errorf("Expected no materials, got %d", n)
	}
	if _, _, ok := scene.Entity(planet.ID()); ok {
		t.Error("Expected the entity to be gone")
	}
}

func TestMeshScene_Textures(t *testing.T) {
	scene := NewMeshScene(nil, failLoad, nil)
	if _, err := scene.LoadTexture("textures/rock.jpg"); !errors.Is(err, render.ErrTextureLoad) {
		t.Errorf("Expected ErrTextureLoad, got %v", err)
	}
	if !errors.Is(func() error { _, err := scene.LoadTexture("x"); return err }(), errNoAssets) {
		t.Error("Expected the loader error to be wrapped")
	}

	ok := NewMeshScene(nil, func(string) error { return nil }, nil)
	tex, err := ok.LoadTexture("textures/rock.jpg")
	if err != nil {
		t.Fatalf("LoadTexture() failed: %v", err)
	}
	if _, err := ok.TextureFromImage("noise", image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("TextureFromImage() failed: %v", err)
	}
	if _, err := ok.TextureFromImage("nil", nil); err == nil {
		t.Error("Expected error for a nil image")
	}
	if n := ok.TextureCount(); n != 2 {
		t.Errorf("Expected 2 textures, got %d", n)
	}
	tex.Dispose()
	if n := ok.TextureCount(); n != 1 {
		t.Errorf("Expected 1 texture after dispose, got %d", n)
	}
}

func TestMeshScene_RejectsBadSizes(t *testing.T) {
	scene := NewMeshScene(nil, failLoad, nil)
	if _, err := scene.CreateSphere(render.SphereOptions{Name: "s", Diameter: 0}); err == nil {
		t.Error("Expected error for a zero diameter")
	}
	if _, err := scene.CreateBox(render.BoxOptions{Name: "b", Size: -1}); err == nil {
		t.Error("Expected error for a negative size")
	}
}

func TestHeadingDegrees(t *testing.T) {
	tests := []struct {
		name string
		q    mgl64.Quat
		want float64
	}{
		{"identity", mgl64.QuatIdent(), 0},
		{"zero quat", mgl64.Quat{}, 0},
		{"yaw right", mgl64.QuatRotate(math.Pi/2, physics.AxisUp), 90},
		{"yaw left", mgl64.QuatRotate(-math.Pi/2, physics.AxisUp), -90},
		{"pitched straight up", mgl64.QuatRotate(-math.Pi/2, physics.AxisRight), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeadingDegrees(tt.q); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
