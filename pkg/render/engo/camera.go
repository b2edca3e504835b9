// pkg/render/engo/camera.go
package engo

import (
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"github.com/go-gl/mathgl/mgl64"
)

// Zoom button names registered by SetupCameraControls.
const (
	ButtonZoomIn    = "zoomIn"
	ButtonZoomOut   = "zoomOut"
	ButtonResetZoom = "resetZoom"
)

// DefaultZoom is the initial scale in pixels per world unit.
const DefaultZoom = 0.02

// ButtonState reports the state of a named button.
type ButtonState interface {
	Down(name string) bool
	JustPressed(name string) bool
	JustReleased(name string) bool
	// Scroll returns the vertical mouse wheel delta of this frame.
	Scroll() float64
}

// engoButtons reads engo's global input.
type engoButtons struct{}

func (engoButtons) Down(name string) bool         { return engo.Input.Button(name).Down() }
func (engoButtons) JustPressed(name string) bool  { return engo.Input.Button(name).JustPressed() }
func (engoButtons) JustReleased(name string) bool { return engo.Input.Button(name).JustReleased() }
func (engoButtons) Scroll() float64               { return float64(engo.Input.Mouse.ScrollY) }

// CameraSystem is a top-down camera over the X/Z plane that follows the
// craft. Screen y grows downwards while world z grows upwards.
type CameraSystem struct {
	buttons ButtonState

	target    mgl64.Vec3
	targetSet bool

	zoom    float64
	minZoom float64
	maxZoom float64

	followSpeed float64
	smoothing   bool

	current mgl64.Vec3
	width   float64
	height  float64
}

// NewCameraSystem creates a camera. A nil buttons reads engo's input.
func NewCameraSystem(buttons ButtonState) *CameraSystem {
	if buttons == nil {
		buttons = engoButtons{}
	}
	return &CameraSystem{
		buttons:     buttons,
		zoom:        DefaultZoom,
		minZoom:     0.0005,
		maxZoom:     2.0,
		followSpeed: 4.0,
		smoothing:   true,
		width:       800,
		height:      600,
	}
}

// Add satisfies the ecs.System interface
func (cs *CameraSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {}

// Update applies zoom input and moves toward the target.
func (cs *CameraSystem) Update(dt float32) {
	cs.handleZoomInput()
	if cs.targetSet {
		cs.follow(float64(dt))
	}
}

func (cs *CameraSystem) handleZoomInput() {
	if scroll := cs.buttons.Scroll(); scroll != 0 {
		cs.SetZoom(cs.zoom * (1 + scroll*0.1))
	}
	if cs.buttons.Down(ButtonZoomIn) {
		cs.SetZoom(cs.zoom * 1.02)
	}
	if cs.buttons.Down(ButtonZoomOut) {
		cs.SetZoom(cs.zoom * 0.98)
	}
	if cs.buttons.JustPressed(ButtonResetZoom) {
		cs.SetZoom(DefaultZoom)
	}
}

func (cs *CameraSystem) follow(dt float64) {
	if !cs.smoothing {
		cs.current = cs.target
		return
	}
	// Exponential approach stays stable for any dt.
	k := 1 - math.Exp(-cs.followSpeed*dt)
	cs.current = cs.current.Add(cs.target.Sub(cs.current).Mul(k))
}

// SetTarget sets the position to follow. The first target snaps.
func (cs *CameraSystem) SetTarget(target mgl64.Vec3) {
	first := !cs.targetSet
	cs.target = target
	cs.targetSet = true
	if first || !cs.smoothing {
		cs.current = target
	}
}

// ClearTarget stops following.
func (cs *CameraSystem) ClearTarget() {
	cs.targetSet = false
}

// Resize sets the viewport size in pixels.
func (cs *CameraSystem) Resize(width, height int) {
	if width > 0 && height > 0 {
		cs.width, cs.height = float64(width), float64(height)
	}
}

// Viewport returns the viewport size in pixels.
func (cs *CameraSystem) Viewport() (float64, float64) {
	return cs.width, cs.height
}

// SetZoom sets the scale, clamped to the zoom limits.
func (cs *CameraSystem) SetZoom(zoom float64) {
	cs.zoom = mgl64.Clamp(zoom, cs.minZoom, cs.maxZoom)
}

// Zoom returns the scale in pixels per world unit.
func (cs *CameraSystem) Zoom() float64 {
	return cs.zoom
}

// SetZoomLimits sets the minimum and maximum zoom.
func (cs *CameraSystem) SetZoomLimits(minZoom, maxZoom float64) {
	cs.minZoom, cs.maxZoom = minZoom, maxZoom
	cs.zoom = mgl64.Clamp(cs.zoom, minZoom, maxZoom)
}

// EnableSmoothing switches between smoothed and immediate following.
func (cs *CameraSystem) EnableSmoothing(enabled bool) {
	cs.smoothing = enabled
}

// Position returns the point the camera is centred on.
func (cs *CameraSystem) Position() mgl64.Vec3 {
	return cs.current
}

// WorldToScreen projects a world position onto the viewport.
func (cs *CameraSystem) WorldToScreen(pos mgl64.Vec3) engo.Point {
	x := cs.width/2 + (pos.X()-cs.current.X())*cs.zoom
	y := cs.height/2 - (pos.Z()-cs.current.Z())*cs.zoom
	return engo.Point{X: float32(x), Y: float32(y)}
}

// ScreenToWorld maps a viewport point back onto the y=0 plane through the
// camera centre.
func (cs *CameraSystem) ScreenToWorld(p engo.Point) mgl64.Vec3 {
	x := (float64(p.X)-cs.width/2)/cs.zoom + cs.current.X()
	z := (cs.height/2-float64(p.Y))/cs.zoom + cs.current.Z()
	return mgl64.Vec3{x, cs.current.Y(), z}
}

// SetupCameraControls registers the zoom buttons.
func SetupCameraControls() {
	engo.Input.RegisterButton(ButtonZoomIn, engo.KeyEquals)
	engo.Input.RegisterButton(ButtonZoomOut, engo.KeyDash)
	engo.Input.RegisterButton(ButtonResetZoom, engo.KeyZero)
}
