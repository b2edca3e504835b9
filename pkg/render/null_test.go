// pkg/render/null_test.go
package render

import (
	"errors"
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNullScene_MeshLifecycle(t *testing.T) {
	scene := NewNullScene(nil)

	mat, err := scene.CreateMaterial(MaterialOptions{Name: "rock"})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	sphere, err := scene.CreateSphere(SphereOptions{Name: "planet-1", Diameter: 120, Position: mgl64.Vec3{1, 2, 3}, Material: mat})
	if err != nil {
		t.Fatalf("CreateSphere() failed: %v", err)
	}
	box, err := scene.CreateBox(BoxOptions{Name: "box-1", Size: 4})
	if err != nil {
		t.Fatalf("CreateBox() failed: %v", err)
	}

	if sphere.ID() == box.ID() {
		t.Error("meshes should have distinct ids")
	}

	meshes := scene.Meshes()
	if len(meshes) != 2 {
		t.Fatalf("Expected 2 meshes, got %d", len(meshes))
	}
	if meshes[0].Kind != SphereMesh || meshes[0].Size != 120 || meshes[0].Material != "rock" {
		t.Errorf("unexpected sphere info: %+v", meshes[0])
	}
	if meshes[1].Kind != BoxMesh {
		t.Errorf("Expected box kind, got %v", meshes[1].Kind)
	}

	sphere.SetPosition(mgl64.Vec3{9, 9, 9})
	if p := sphere.Position(); p != (mgl64.Vec3{9, 9, 9}) {
		t.Errorf("Expected moved position, got %v", p)
	}

	sphere.Dispose()
	sphere.Dispose()
	if scene.MeshCount("planet") != 0 {
		t.Error("sphere should be released after Dispose")
	}
	if scene.MeshCount("box") != 1 {
		t.Error("box should still be live")
	}

	mat.Dispose()
	if scene.MaterialCount() != 0 {
		t.Errorf("Expected 0 materials, got %d", scene.MaterialCount())
	}
}

func TestNullScene_RejectsDegenerateShapes(t *testing.T) {
	scene := NewNullScene(nil)

	if _, err := scene.CreateSphere(SphereOptions{Name: "bad", Diameter: 0}); err == nil {
		t.Error("Expected error for zero diameter")
	}
	if _, err := scene.CreateBox(BoxOptions{Name: "bad", Size: -1}); err == nil {
		t.Error("Expected error for negative size")
	}
}

func TestNullScene_Textures(t *testing.T) {
	scene := NewNullScene(nil)
	scene.MissingTextures = map[string]bool{"textures/mars.jpg": true}

	if _, err := scene.LoadTexture("textures/mars.jpg"); !errors.Is(err, ErrTextureLoad) {
		t.Errorf("Expected ErrTextureLoad, got %v", err)
	}

	tex, err := scene.LoadTexture("textures/neptune.jpg")
	if err != nil {
		t.Fatalf("LoadTexture() failed: %v", err)
	}
	if tex.Name() != "textures/neptune.jpg" {
		t.Errorf("Expected texture name to be the url, got %q", tex.Name())
	}

	if _, err := scene.TextureFromImage("noise", nil); err == nil {
		t.Error("Expected error for nil image")
	}
	if _, err := scene.TextureFromImage("noise", image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Errorf("TextureFromImage() failed: %v", err)
	}

	if scene.TextureCount() != 2 {
		t.Errorf("Expected 2 textures, got %d", scene.TextureCount())
	}
	tex.Dispose()
	if scene.TextureCount() != 1 {
		t.Errorf("Expected 1 texture after dispose, got %d", scene.TextureCount())
	}
}

func TestNullScene_MissingWildcard(t *testing.T) {
	scene := NewNullScene(nil)
	scene.MissingTextures = map[string]bool{"*": true}

	if _, err := scene.LoadTexture("anything.png"); !errors.Is(err, ErrTextureLoad) {
		t.Errorf("Expected wildcard failure, got %v", err)
	}
}

func TestColor_RGBA(t *testing.T) {
	c := Color{R: 0.2, G: 0.5, B: 1.5, A: -1}.RGBA()
	if c.R != 51 || c.G != 128 || c.B != 255 || c.A != 0 {
		t.Errorf("unexpected conversion: %+v", c)
	}
}
