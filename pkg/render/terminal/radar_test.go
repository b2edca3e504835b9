package terminal

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/engine"
)

func TestRadar_WorldToScreen(t *testing.T) {
	r := NewRadar(80, 24, 10)

	tests := []struct {
		name   string
		center mgl64.Vec3
		pos    mgl64.Vec3
		x, y   int
	}{
		{"origin at centre", mgl64.Vec3{}, mgl64.Vec3{}, 40, 12},
		{"east is right", mgl64.Vec3{}, mgl64.Vec3{100, 0, 0}, 50, 12},
		{"forward is up", mgl64.Vec3{}, mgl64.Vec3{0, 0, 100}, 40, 7},
		{"height is ignored", mgl64.Vec3{}, mgl64.Vec3{0, 999, 0}, 40, 12},
		{"follows centre", mgl64.Vec3{100, 0, 100}, mgl64.Vec3{100, 0, 100}, 40, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.SetCenter(tt.center)
			x, y := r.worldToScreen(tt.pos)
			if x != tt.x || y != tt.y {
				t.Errorf("Expected (%d,%d), got (%d,%d)", tt.x, tt.y, x, y)
			}
		})
	}
}

func TestRadar_PlotClipsOutside(t *testing.T) {
	r := NewRadar(10, 5, 1)
	r.PlotCollectible(mgl64.Vec3{1000, 0, 0})
	r.PlotCollectible(mgl64.Vec3{-1000, 0, -1000})

	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			if r.At(x, y) != ' ' {
				t.Fatalf("Expected empty grid, found %q at (%d,%d)", r.At(x, y), x, y)
			}
		}
	}
	if r.At(-1, 0) != 0 || r.At(10, 0) != 0 {
		t.Error("At outside the grid should return 0")
	}
}

func TestRadar_PlotBody(t *testing.T) {
	r := NewRadar(40, 20, 10)
	r.PlotBody(mgl64.Vec3{}, 50)

	if r.At(20, 10) != GlyphBody {
		t.Errorf("Expected body glyph at centre, got %q", r.At(20, 10))
	}
	if r.At(24, 10) != GlyphSurface {
		t.Errorf("Expected surface inside the footprint, got %q", r.At(24, 10))
	}
	if r.At(26, 10) != ' ' {
		t.Errorf("Expected nothing outside the footprint, got %q", r.At(26, 10))
	}
}

func TestHeadingGlyph(t *testing.T) {
	tests := []struct {
		name string
		q    mgl64.Quat
		want rune
	}{
		{"identity faces +Z", mgl64.QuatIdent(), '^'},
		{"yaw right", mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}), '>'},
		{"turned around", mgl64.QuatRotate(math.Pi, mgl64.Vec3{0, 1, 0}), 'v'},
		{"yaw left", mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{0, 1, 0}), '<'},
		{"nose up", mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0}), '*'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeadingGlyph(tt.q); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHUDLine(t *testing.T) {
	line := HUDLine(engine.Snapshot{
		Score:        2,
		Target:       3,
		LoadedChunks: 9,
		Bodies:       15,
		Speed:        12.34,
		Position:     mgl64.Vec3{10, 0, -20},
	})

	for _, want := range []string{"score 2/3", "chunks 9", "bodies 15", "speed 12.3", "(10, 0, -20)", "physics unavailable"} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected %q in %q", want, line)
		}
	}

	if strings.Contains(HUDLine(engine.Snapshot{PhysicsReady: true}), "unavailable") {
		t.Error("physics warning should only show when physics is down")
	}
}
