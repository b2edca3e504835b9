// pkg/chunk/key.go
package chunk

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Key addresses one cell of the chunk grid. Cell (x,y,z) spans
// [x*size, (x+1)*size) on the X axis and likewise on Y and Z.
type Key struct {
	X, Y, Z int
}

// KeyFor returns the cell containing pos.
func KeyFor(pos mgl64.Vec3, size float64) Key {
	return Key{
		X: int(math.Floor(pos[0] / size)),
		Y: int(math.Floor(pos[1] / size)),
		Z: int(math.Floor(pos[2] / size)),
	}
}

// Origin returns the cell's minimum corner.
func (k Key) Origin(size float64) mgl64.Vec3 {
	return mgl64.Vec3{float64(k.X) * size, float64(k.Y) * size, float64(k.Z) * size}
}

// Center returns the cell's centre.
func (k Key) Center(size float64) mgl64.Vec3 {
	half := size / 2
	return k.Origin(size).Add(mgl64.Vec3{half, half, half})
}

// Add offsets the key by whole cells.
func (k Key) Add(dx, dy, dz int) Key {
	return Key{X: k.X + dx, Y: k.Y + dy, Z: k.Z + dz}
}

// Less orders keys by X, then Y, then Z.
func (k Key) Less(o Key) bool {
	if k.X != o.X {
		return k.X < o.X
	}
	if k.Y != o.Y {
		return k.Y < o.Y
	}
	return k.Z < o.Z
}

func (k Key) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.X, k.Y, k.Z)
}
