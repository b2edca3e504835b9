// Package render declares the narrow scene contract the game core uses to
// create and release renderable objects, plus the headless NullScene, a
// circuit-broken texture loader and the procedural fallback texture.
package render

import (
	"errors"
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrTextureLoad is returned when a texture cannot be loaded.
var ErrTextureLoad = errors.New("texture load failed")

// Color is a linear RGBA colour with components in [0,1].
type Color struct {
	R, G, B, A float64
}

// RGBA converts c to an 8-bit colour.
func (c Color) RGBA() color.RGBA {
	clamp := func(v float64) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		default:
			return uint8(v*255 + 0.5)
		}
	}
	return color.RGBA{R: clamp(c.R), G: clamp(c.G), B: clamp(c.B), A: clamp(c.A)}
}

// Texture is an image resource owned by a Scene.
type Texture interface {
	Name() string
	Dispose()
}

// Material is a surface description owned by a Scene.
type Material interface {
	Name() string
	Dispose()
}

// Mesh is a renderable object.
type Mesh interface {
	ID() uint64
	Name() string
	Position() mgl64.Vec3
	SetPosition(p mgl64.Vec3)
	Dispose()
}

// MaterialOptions describes a material.
type MaterialOptions struct {
	Name          string
	Diffuse       Texture
	Bump          Texture
	BumpLevel     float64
	DiffuseColor  Color
	EmissiveColor Color
	// Alpha is the opacity; zero is treated as fully opaque.
	Alpha float64
}

// SphereOptions describes a UV sphere.
type SphereOptions struct {
	Name     string
	Position mgl64.Vec3
	Diameter float64
	Segments int
	Material Material
	// Parent, when set, makes the sphere follow the parent mesh.
	Parent Mesh
}

// BoxOptions describes a cube.
type BoxOptions struct {
	Name     string
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Size     float64
	Material Material
}

// Scene creates renderable resources.
type Scene interface {
	CreateMaterial(opts MaterialOptions) (Material, error)
	CreateSphere(opts SphereOptions) (Mesh, error)
	CreateBox(opts BoxOptions) (Mesh, error)
	LoadTexture(url string) (Texture, error)
	TextureFromImage(name string, img image.Image) (Texture, error)
}
