// pkg/entity/body.go
package entity

import (
	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/physics"
	"github.com/opd-ai/go-spacefly/pkg/render"
)

// CelestialBody is a static sphere in the world. Its position and size never
// change after creation.
type CelestialBody struct {
	ecs.BasicEntity

	position   mgl64.Vec3
	size       float64
	style      Style
	mesh       render.Mesh
	atmosphere render.Mesh
	collider   physics.Collider
	disposed   bool
}

// Position returns the body's centre.
func (b *CelestialBody) Position() mgl64.Vec3 {
	return b.position
}

// Size returns the body's diameter.
func (b *CelestialBody) Size() float64 {
	return b.size
}

// Radius returns half the diameter.
func (b *CelestialBody) Radius() float64 {
	return b.size / 2
}

// Style returns the style the body was built with.
func (b *CelestialBody) Style() Style {
	return b.style
}

// Mesh returns the surface mesh.
func (b *CelestialBody) Mesh() render.Mesh {
	return b.mesh
}

// Atmosphere returns the atmosphere shell, or nil if it could not be built.
func (b *CelestialBody) Atmosphere() render.Mesh {
	return b.atmosphere
}

// Collider returns the static collider, or nil when physics is unavailable.
func (b *CelestialBody) Collider() physics.Collider {
	return b.collider
}

// HasCollider reports whether the body takes part in collisions.
func (b *CelestialBody) HasCollider() bool {
	return b.collider != nil
}

// Disposed reports whether Dispose has been called.
func (b *CelestialBody) Disposed() bool {
	return b.disposed
}

// Dispose releases the atmosphere, mesh and collider. Calling it again is a
// no-op.
func (b *CelestialBody) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	if b.atmosphere != nil {
		b.atmosphere.Dispose()
	}
	if b.mesh != nil {
		b.mesh.Dispose()
	}
	if b.collider != nil {
		b.collider.Dispose()
	}
}

// Collectible is a pickup box. It owns its material, unlike celestial
// bodies which reference shared ones.
type Collectible struct {
	ecs.BasicEntity

	position mgl64.Vec3
	mesh     render.Mesh
	material render.Material
	collider physics.Collider
	disposed bool
}

// Position returns the box centre.
func (c *Collectible) Position() mgl64.Vec3 {
	return c.position
}

// Mesh returns the box mesh.
func (c *Collectible) Mesh() render.Mesh {
	return c.mesh
}

// HasCollider reports whether the box has a physics collider.
func (c *Collectible) HasCollider() bool {
	return c.collider != nil
}

// Disposed reports whether Dispose has been called.
func (c *Collectible) Disposed() bool {
	return c.disposed
}

// Dispose releases the mesh, the material and the collider if present.
func (c *Collectible) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	if c.mesh != nil {
		c.mesh.Dispose()
	}
	if c.material != nil {
		c.material.Dispose()
	}
	if c.collider != nil {
		c.collider.Dispose()
	}
}
