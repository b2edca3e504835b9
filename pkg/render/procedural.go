// pkg/render/procedural.go
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"
)

// NoiseOptions controls the procedural fallback texture.
type NoiseOptions struct {
	Size    int // width and height in pixels
	Cell    int // lattice spacing of the first octave in pixels
	Octaves int
	Tint    Color
}

// DefaultNoiseOptions returns the settings of the shared fallback texture.
func DefaultNoiseOptions() NoiseOptions {
	return NoiseOptions{
		Size:    256,
		Cell:    32,
		Octaves: 4,
		Tint:    Color{R: 0.55, G: 0.5, B: 0.45, A: 1},
	}
}

// NoiseImage renders tileable value noise into an RGBA image.
func NoiseImage(opts NoiseOptions, rng *rand.Rand) *image.RGBA {
	if opts.Size <= 0 {
		opts.Size = DefaultNoiseOptions().Size
	}
	if opts.Cell <= 0 || opts.Cell > opts.Size {
		opts.Cell = opts.Size
	}
	if opts.Octaves <= 0 {
		opts.Octaves = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{0, 0, 0, 255}}, image.Point{}, draw.Src)

	field := make([]float64, opts.Size*opts.Size)
	amplitude, total := 1.0, 0.0
	cell := opts.Cell
	for o := 0; o < opts.Octaves && cell >= 1; o++ {
		lattice := newLattice(opts.Size, cell, rng)
		for y := 0; y < opts.Size; y++ {
			for x := 0; x < opts.Size; x++ {
				field[y*opts.Size+x] += amplitude * lattice.sample(x, y)
			}
		}
		total += amplitude
		amplitude /= 2
		cell /= 2
	}

	for y := 0; y < opts.Size; y++ {
		for x := 0; x < opts.Size; x++ {
			v := field[y*opts.Size+x] / total
			img.SetRGBA(x, y, Color{
				R: opts.Tint.R * (0.4 + 0.6*v),
				G: opts.Tint.G * (0.4 + 0.6*v),
				B: opts.Tint.B * (0.4 + 0.6*v),
				A: 1,
			}.RGBA())
		}
	}
	return img
}

// ProceduralTexture builds a noise texture in the scene.
func ProceduralTexture(scene Scene, name string, opts NoiseOptions, rng *rand.Rand) (Texture, error) {
	tex, err := scene.TextureFromImage(name, NoiseImage(opts, rng))
	if err != nil {
		return nil, fmt.Errorf("procedural texture %q: %w", name, err)
	}
	return tex, nil
}

// lattice holds random values on a wrapping grid.
type lattice struct {
	cell   int
	n      int
	values []float64
}

func newLattice(size, cell int, rng *rand.Rand) lattice {
	n := int(math.Ceil(float64(size) / float64(cell)))
	values := make([]float64, n*n)
	for i := range values {
		values[i] = rng.Float64()
	}
	return lattice{cell: cell, n: n, values: values}
}

func (l lattice) at(i, j int) float64 {
	return l.values[(j%l.n)*l.n+(i%l.n)]
}

func (l lattice) sample(x, y int) float64 {
	fx := float64(x) / float64(l.cell)
	fy := float64(y) / float64(l.cell)
	i, j := int(fx), int(fy)
	tx, ty := smoothstep(fx-float64(i)), smoothstep(fy-float64(j))

	top := lerp(l.at(i, j), l.at(i+1, j), tx)
	bottom := lerp(l.at(i, j+1), l.at(i+1, j+1), tx)
	return lerp(top, bottom, ty)
}

func smoothstep(t float64) float64 { return t * t * (3 - 2*t) }

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
