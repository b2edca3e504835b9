// pkg/physics/vector.go
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Local axes of a body in its own frame. Forward is +Z, right is +X and up
// is +Y (left-handed, matching the renderer's conventions).
var (
	AxisRight   = mgl64.Vec3{1, 0, 0}
	AxisUp      = mgl64.Vec3{0, 1, 0}
	AxisForward = mgl64.Vec3{0, 0, 1}
)

// SafeNormalize returns a unit vector in the same direction, or the zero
// vector when v has no length. mgl64's Normalize yields NaN in that case.
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	length := v.Len()
	if length == 0 || math.IsNaN(length) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / length)
}

// ClampComponents clamps every axis of v to [-limit, limit].
func ClampComponents(v mgl64.Vec3, limit float64) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(v[0], -limit, limit),
		mgl64.Clamp(v[1], -limit, limit),
		mgl64.Clamp(v[2], -limit, limit),
	}
}

// ClampLength scales v down so its length does not exceed max.
// A non-positive max leaves v unchanged.
func ClampLength(v mgl64.Vec3, max float64) mgl64.Vec3 {
	if max <= 0 {
		return v
	}
	if length := v.Len(); length > max {
		return v.Mul(max / length)
	}
	return v
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// DistanceSquared returns the squared distance between two points.
func DistanceSquared(a, b mgl64.Vec3) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}
