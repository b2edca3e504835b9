// pkg/render/engo/renderer.go
package engo

import (
	"image/color"
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/engine"
)

// Craft sprite size in pixels.
const craftPixels = 24

// View is what the window reads from the game each frame. *engine.Game
// implements it.
type View interface {
	Snapshot() engine.Snapshot
	CraftOrientation() mgl64.Quat
}

type spriteEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// RendererSystem projects the scene meshes and draws the craft with its
// exhaust. It also receives the game's trail parameters.
type RendererSystem struct {
	view   View
	camera *CameraSystem
	meshes *MeshScene

	craft   spriteEntity
	exhaust spriteEntity
	trail   engine.Trail
}

// NewRendererSystem creates the system and adds the craft entities to sink.
// A nil craft drawable draws a triangle.
func NewRendererSystem(view View, camera *CameraSystem, meshes *MeshScene, sink Sink, craft common.Drawable) *RendererSystem {
	if craft == nil {
		craft = common.Triangle{}
	}
	rs := &RendererSystem{view: view, camera: camera, meshes: meshes}

	rs.craft = spriteEntity{BasicEntity: ecs.NewBasic()}
	scale := float32(1)
	if w := craft.Width(); w > 0 {
		scale = craftPixels / w
	}
	rs.craft.RenderComponent = common.RenderComponent{
		Drawable: craft,
		Color:    color.White,
		Scale:    engo.Point{X: scale, Y: scale},
	}
	rs.craft.RenderComponent.StartZIndex = zCraft
	rs.craft.SpaceComponent = common.SpaceComponent{Width: craftPixels, Height: craftPixels}

	rs.exhaust = spriteEntity{BasicEntity: ecs.NewBasic()}
	rs.exhaust.RenderComponent = common.RenderComponent{
		Drawable: common.Circle{},
		Color:    color.NRGBA{255, 150, 40, 200},
		Scale:    engo.Point{X: 1, Y: 1},
		Hidden:   true,
	}
	rs.exhaust.RenderComponent.StartZIndex = zCollectible

	if sink != nil {
		sink.Add(&rs.craft.BasicEntity, &rs.craft.RenderComponent, &rs.craft.SpaceComponent)
		sink.Add(&rs.exhaust.BasicEntity, &rs.exhaust.RenderComponent, &rs.exhaust.SpaceComponent)
	}
	return rs
}

// SetTrail implements engine.TrailEmitter.
func (rs *RendererSystem) SetTrail(t engine.Trail) {
	rs.trail = t
}

// Add satisfies the ecs.System interface
func (rs *RendererSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
}

// Remove satisfies the ecs.System interface
func (rs *RendererSystem) Remove(basic ecs.BasicEntity) {}

// Update places everything for the camera's current view.
func (rs *RendererSystem) Update(dt float32) {
	if rs.meshes != nil {
		rs.meshes.Project(rs.camera)
	}

	snap := rs.view.Snapshot()
	center := rs.camera.WorldToScreen(snap.Position)

	rs.craft.SpaceComponent.Rotation = float32(HeadingDegrees(rs.view.CraftOrientation()))
	rs.craft.SpaceComponent.SetCenter(center)
	rs.craft.RenderComponent.Hidden = !snap.CraftReady

	rs.updateExhaust(center.X, center.Y, snap.CraftReady)
}

// updateExhaust draws a puff behind the craft that grows with the emit
// rate. The puff sits along the trail direction projected on screen.
func (rs *RendererSystem) updateExhaust(cx, cy float32, ready bool) {
	ex := &rs.exhaust
	flat := mgl64.Vec2{rs.trail.Direction.X(), -rs.trail.Direction.Z()}
	if !ready || rs.trail.EmitRate < 1 || flat.Len() < 1e-9 {
		ex.RenderComponent.Hidden = true
		return
	}
	ex.RenderComponent.Hidden = false

	px := float32(4 + math.Min(rs.trail.EmitRate, 200)/20)
	ex.SpaceComponent.Width, ex.SpaceComponent.Height = px, px

	offset := flat.Normalize().Mul(craftPixels * 0.75)
	ex.SpaceComponent.Position.X = cx + float32(offset.X()) - px/2
	ex.SpaceComponent.Position.Y = cy + float32(offset.Y()) - px/2
}

// Craft returns the craft sprite's components.
func (rs *RendererSystem) Craft() (*common.RenderComponent, *common.SpaceComponent) {
	return &rs.craft.RenderComponent, &rs.craft.SpaceComponent
}

// Exhaust returns the exhaust puff's components.
func (rs *RendererSystem) Exhaust() (*common.RenderComponent, *common.SpaceComponent) {
	return &rs.exhaust.RenderComponent, &rs.exhaust.SpaceComponent
}
