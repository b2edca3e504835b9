// pkg/render/engo/hud.go
package engo

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-spacefly/pkg/engine"
)

// hudRefresh is how often the HUD text is rebuilt, in seconds.
const hudRefresh = 0.2

// HUDSystem draws the score and flight readout in the top-left corner and
// a banner once the objective is complete.
type HUDSystem struct {
	view View
	font *common.Font

	status   spriteEntity
	banner   spriteEntity
	text     string
	sinceSet float32

	hudColor    color.Color
	bannerColor color.Color
}

// NewHUDSystem creates a HUD. Without a font the text is tracked but not
// drawn, which is how tests run it.
func NewHUDSystem(view View, sink Sink, font *common.Font) *HUDSystem {
	hud := &HUDSystem{
		view:        view,
		font:        font,
		sinceSet:    hudRefresh,
		hudColor:    color.RGBA{255, 255, 255, 255},
		bannerColor: color.RGBA{255, 215, 0, 255},
	}
	if font == nil || sink == nil {
		return hud
	}

	hud.status = hud.newText(engo.Point{X: 10, Y: 10})
	hud.banner = hud.newText(engo.Point{X: 10, Y: 40})
	hud.banner.RenderComponent.Hidden = true
	sink.Add(&hud.status.BasicEntity, &hud.status.RenderComponent, &hud.status.SpaceComponent)
	sink.Add(&hud.banner.BasicEntity, &hud.banner.RenderComponent, &hud.banner.SpaceComponent)
	return hud
}

func (hud *HUDSystem) newText(at engo.Point) spriteEntity {
	e := spriteEntity{BasicEntity: ecs.NewBasic()}
	e.RenderComponent = common.RenderComponent{
		Drawable: common.Text{Font: hud.font, Text: " "},
		Color:    hud.hudColor,
		Scale:    engo.Point{X: 1, Y: 1},
	}
	e.RenderComponent.SetShader(common.HUDShader)
	e.RenderComponent.SetZIndex(1000)
	e.SpaceComponent = common.SpaceComponent{Position: at}
	return e
}

// Add satisfies the ecs.System interface
func (hud *HUDSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {}

// Update rebuilds the text at most every hudRefresh seconds.
func (hud *HUDSystem) Update(dt float32) {
	hud.sinceSet += dt
	if hud.sinceSet < hudRefresh {
		return
	}
	hud.sinceSet = 0

	snap := hud.view.Snapshot()
	hud.text = HUDText(snap)
	if hud.font == nil {
		return
	}
	hud.status.RenderComponent.Drawable = common.Text{Font: hud.font, Text: hud.text}
	if snap.Complete {
		hud.banner.RenderComponent.Drawable = common.Text{Font: hud.font, Text: "OBJECTIVE COMPLETE"}
		hud.banner.RenderComponent.Color = hud.bannerColor
		hud.banner.RenderComponent.Hidden = false
	}
}

// Text returns the last HUD text.
func (hud *HUDSystem) Text() string {
	return hud.text
}

// HUDText formats the readout.
func HUDText(s engine.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d / %d", s.Score, s.Target)
	fmt.Fprintf(&b, "   Speed: %.1f", s.Speed)
	fmt.Fprintf(&b, "   Chunks: %d   Bodies: %d", s.LoadedChunks, s.Bodies)
	fmt.Fprintf(&b, "   Pos: (%.0f, %.0f, %.0f)", s.Position.X(), s.Position.Y(), s.Position.Z())
	if !s.PhysicsReady {
		b.WriteString("   [physics unavailable]")
	}
	return b.String()
}
