// Package terminal hosts a session in a text terminal: a top-down radar of
// the X/Z plane drawn with tcell and keyboard input with synthesized
// releases.
package terminal

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/engine"
	"github.com/opd-ai/go-spacefly/pkg/entity"
	"github.com/opd-ai/go-spacefly/pkg/physics"
)

// Glyphs used on the radar.
const (
	GlyphBody        = 'O'
	GlyphSurface     = '.'
	GlyphCollectible = '+'
)

var (
	styleDefault     = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleBody        = styleDefault.Foreground(tcell.ColorSandyBrown)
	styleSurface     = styleDefault.Foreground(tcell.ColorDarkGray)
	styleCollectible = styleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleCraft       = styleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleHUD         = styleDefault.Foreground(tcell.ColorLime)
	styleComplete    = styleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorLime).Bold(true)
)

// View is what the radar reads each frame. *engine.Game implements it.
type View interface {
	Snapshot() engine.Snapshot
	Bodies() []*entity.CelestialBody
	Collectibles() []*entity.Collectible
	CraftOrientation() mgl64.Quat
}

type cell struct {
	r     rune
	style tcell.Style
}

// Radar projects the X/Z plane onto a character grid centred on the craft.
// Screen up is world +Z.
type Radar struct {
	width  int
	height int
	buffer [][]cell
	// scale is world units per column; rows cover Aspect times as much.
	scale  float64
	aspect float64
	center mgl64.Vec3
	hud    string
	banner string
}

// NewRadar creates a radar of the given size in cells.
func NewRadar(width, height int, scale float64) *Radar {
	r := &Radar{scale: scale, aspect: 2}
	if r.scale <= 0 {
		r.scale = 50
	}
	r.Resize(width, height)
	return r
}

// Resize reallocates the grid.
func (r *Radar) Resize(width, height int) {
	r.width = max(width, 0)
	r.height = max(height, 0)
	r.buffer = make([][]cell, r.height)
	for i := range r.buffer {
		r.buffer[i] = make([]cell, r.width)
	}
	r.Clear()
}

// Size returns the grid dimensions.
func (r *Radar) Size() (int, int) {
	return r.width, r.height
}

// SetScale changes the zoom; non-positive values are ignored.
func (r *Radar) SetScale(scale float64) {
	if scale > 0 {
		r.scale = scale
	}
}

// Scale returns world units per column.
func (r *Radar) Scale() float64 {
	return r.scale
}

// SetCenter sets the world position shown in the middle of the grid.
func (r *Radar) SetCenter(pos mgl64.Vec3) {
	r.center = pos
}

// worldToScreen converts world X/Z to a cell.
func (r *Radar) worldToScreen(pos mgl64.Vec3) (int, int) {
	sx := (pos[0]-r.center[0])/r.scale + float64(r.width)/2
	sy := float64(r.height)/2 - (pos[2]-r.center[2])/(r.scale*r.aspect)
	return int(math.Floor(sx)), int(math.Floor(sy))
}

// Clear blanks the grid.
func (r *Radar) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = cell{' ', styleDefault}
		}
	}
	r.hud, r.banner = "", ""
}

func (r *Radar) plot(x, y int, ch rune, style tcell.Style) {
	if x >= 0 && x < r.width && y >= 0 && y < r.height {
		r.buffer[y][x] = cell{ch, style}
	}
}

// At returns the rune at a cell, or 0 outside the grid.
func (r *Radar) At(x, y int) rune {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return 0
	}
	return r.buffer[y][x].r
}

// PlotBody draws a body's footprint and marks its centre.
func (r *Radar) PlotBody(pos mgl64.Vec3, radius float64) {
	cx, cy := r.worldToScreen(pos)
	rx := int(radius / r.scale)
	ry := int(radius / (r.scale * r.aspect))
	for dy := -ry; dy <= ry; dy++ {
		for dx := -rx; dx <= rx; dx++ {
			if rx > 0 && ry > 0 {
				nx, ny := float64(dx)/float64(rx), float64(dy)/float64(ry)
				if nx*nx+ny*ny > 1 {
					continue
				}
			}
			r.plot(cx+dx, cy+dy, GlyphSurface, styleSurface)
		}
	}
	r.plot(cx, cy, GlyphBody, styleBody)
}

// PlotCollectible marks a box.
func (r *Radar) PlotCollectible(pos mgl64.Vec3) {
	x, y := r.worldToScreen(pos)
	r.plot(x, y, GlyphCollectible, styleCollectible)
}

// PlotCraft draws the craft at the centre with a heading arrow.
func (r *Radar) PlotCraft(pos mgl64.Vec3, orientation mgl64.Quat) {
	x, y := r.worldToScreen(pos)
	r.plot(x, y, HeadingGlyph(orientation), styleCraft)
}

// HeadingGlyph picks an arrow for the craft's forward axis projected on X/Z.
func HeadingGlyph(q mgl64.Quat) rune {
	fwd := q.Rotate(physics.AxisForward)
	if math.Abs(fwd[0]) < 1e-9 && math.Abs(fwd[2]) < 1e-9 {
		return '*'
	}
	if math.Abs(fwd[2]) >= math.Abs(fwd[0]) {
		if fwd[2] > 0 {
			return '^'
		}
		return 'v'
	}
	if fwd[0] > 0 {
		return '>'
	}
	return '<'
}

// Render draws a full frame from the view.
func (r *Radar) Render(v View) {
	snap := v.Snapshot()
	r.Clear()
	r.SetCenter(snap.Position)

	for _, b := range v.Bodies() {
		r.PlotBody(b.Position(), b.Radius())
	}
	for _, c := range v.Collectibles() {
		r.PlotCollectible(c.Position())
	}
	r.PlotCraft(snap.Position, v.CraftOrientation())

	r.hud = HUDLine(snap)
	if snap.Complete {
		r.banner = fmt.Sprintf(" OBJECTIVE COMPLETE: %d boxes collected ", snap.Score)
	}
}

// HUDLine formats the status line.
func HUDLine(s engine.Snapshot) string {
	line := fmt.Sprintf("score %d/%d  chunks %d  bodies %d  speed %.1f  pos (%.0f, %.0f, %.0f)",
		s.Score, s.Target, s.LoadedChunks, s.Bodies, s.Speed,
		s.Position[0], s.Position[1], s.Position[2])
	if !s.PhysicsReady {
		line += "  [physics unavailable]"
	}
	return line
}

// Draw copies the grid and the HUD to the screen. Row 0 holds the HUD.
func (r *Radar) Draw(s tcell.Screen) {
	s.Clear()
	for y := range r.buffer {
		for x, c := range r.buffer[y] {
			s.SetContent(x, y, c.r, nil, c.style)
		}
	}
	drawText(s, 0, 0, r.hud, styleHUD)
	if r.banner != "" {
		drawText(s, max((r.width-len(r.banner))/2, 0), r.height/2-2, r.banner, styleComplete)
	}
	s.Show()
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, ch := range []rune(text) {
		s.SetContent(x+i, y, ch, nil, style)
	}
}
