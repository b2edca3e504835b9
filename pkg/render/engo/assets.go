// pkg/render/engo/assets.go
package engo

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"

	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opd-ai/go-spacefly/pkg/render"
)

const hudFontURL = "spacefly-hud.ttf"

// craftPattern is the craft sprite, nose up.
var craftPattern = [][]int{
	{0, 0, 0, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 1, 1, 2, 2, 1, 1, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 1, 1, 2, 2, 1, 1, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0},
	{0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0},
	{0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0},
	{0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0},
	{0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0},
	{1, 1, 1, 1, 0, 1, 1, 1, 1, 1, 1, 0, 1, 1, 1, 1},
	{1, 1, 1, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 1, 1, 1},
	{1, 1, 0, 0, 0, 0, 0, 3, 3, 0, 0, 0, 0, 0, 1, 1},
	{1, 0, 0, 0, 0, 0, 0, 3, 3, 0, 0, 0, 0, 0, 0, 1},
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
}

// craftColors maps pattern values to pixels: hull, canopy, exhaust.
var craftColors = map[int]color.NRGBA{
	1: {200, 210, 225, 255},
	2: {90, 200, 255, 255},
	3: {255, 150, 40, 255},
}

// MaskImage paints a pixel pattern. Zero cells stay transparent; other
// values look up colors and fall back to white.
func MaskImage(pattern [][]int, colors map[int]color.NRGBA) *image.NRGBA {
	height := len(pattern)
	width := 0
	for _, row := range pattern {
		width = max(width, len(row))
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y, row := range pattern {
		for x, v := range row {
			if v == 0 {
				continue
			}
			c, ok := colors[v]
			if !ok {
				c = color.NRGBA{255, 255, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// CraftSprite uploads the craft sprite. It needs a GL context.
func CraftSprite() common.Drawable {
	return common.NewTextureSingle(common.NewImageObject(MaskImage(craftPattern, craftColors)))
}

// LoadHUDFont registers the embedded Go font and returns a preloaded font.
func LoadHUDFont(size float64, fg color.Color) (*common.Font, error) {
	if err := engo.Files.LoadReaderData(hudFontURL, bytes.NewReader(goregular.TTF)); err != nil {
		return nil, fmt.Errorf("load hud font: %w", err)
	}
	fnt := &common.Font{URL: hudFontURL, FG: fg, Size: size}
	if err := fnt.CreatePreloaded(); err != nil {
		return nil, fmt.Errorf("preload hud font: %w", err)
	}
	return fnt, nil
}

// earthTones tint textured surfaces, which the top-down view draws as
// flat discs.
var earthTones = []color.NRGBA{
	{150, 120, 90, 255},
	{110, 130, 150, 255},
	{170, 150, 110, 255},
	{120, 140, 100, 255},
	{160, 100, 80, 255},
	{130, 120, 140, 255},
}

// TextureTint picks a stable tint for a texture name.
func TextureTint(name string) color.NRGBA {
	h := fnv.New32a()
	h.Write([]byte(name))
	return earthTones[h.Sum32()%uint32(len(earthTones))]
}

// MaterialColor resolves the flat colour a material is drawn with. Diffuse
// colour wins, then emissive colour, then the diffuse texture's tint.
func MaterialColor(opts render.MaterialOptions) color.NRGBA {
	var c color.NRGBA
	switch {
	case opts.DiffuseColor != (render.Color{}):
		c = toNRGBA(opts.DiffuseColor)
	case opts.EmissiveColor != (render.Color{}):
		c = toNRGBA(opts.EmissiveColor)
	case opts.Diffuse != nil:
		c = TextureTint(opts.Diffuse.Name())
	default:
		c = color.NRGBA{200, 200, 200, 255}
	}
	if opts.Alpha > 0 && opts.Alpha < 1 {
		c.A = uint8(opts.Alpha*255 + 0.5)
	} else {
		c.A = 255
	}
	return c
}

func toNRGBA(c render.Color) color.NRGBA {
	rgba := c.RGBA()
	return color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: 255}
}
