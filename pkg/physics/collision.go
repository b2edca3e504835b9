// pkg/physics/collision.go
package physics

import "github.com/go-gl/mathgl/mgl64"

// Sphere represents a spherical collision shape
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// Collides checks if two spheres are overlapping
func (s Sphere) Collides(other Sphere) bool {
	r := s.Radius + other.Radius
	return DistanceSquared(s.Center, other.Center) < r*r
}

// CollisionResult contains information about a collision
type CollisionResult struct {
	Collided     bool
	Normal       mgl64.Vec3
	Penetration  float64
	ContactPoint mgl64.Vec3
}

// CheckCollision performs detailed collision detection between two spheres.
// The normal points from a towards b.
func CheckCollision(a, b Sphere) CollisionResult {
	delta := b.Center.Sub(a.Center)
	distance := delta.Len()

	if distance >= a.Radius+b.Radius {
		return CollisionResult{Collided: false}
	}

	normal := SafeNormalize(delta)
	if normal == (mgl64.Vec3{}) {
		// concentric: pick any stable separating axis
		normal = AxisUp
	}

	return CollisionResult{
		Collided:     true,
		Normal:       normal,
		Penetration:  a.Radius + b.Radius - distance,
		ContactPoint: a.Center.Add(normal.Mul(a.Radius)),
	}
}

// AABB is an axis-aligned cube described by its center and half extent.
type AABB struct {
	Center   mgl64.Vec3
	HalfSize float64
}

// Contains reports whether the point lies inside the box. The upper bound
// is exclusive so that sibling octants never share a point.
func (b AABB) Contains(point mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if point[i] < b.Center[i]-b.HalfSize || point[i] >= b.Center[i]+b.HalfSize {
			return false
		}
	}
	return true
}

// Intersects reports whether two boxes overlap or touch.
func (b AABB) Intersects(other AABB) bool {
	for i := 0; i < 3; i++ {
		if other.Center[i]-other.HalfSize > b.Center[i]+b.HalfSize ||
			other.Center[i]+other.HalfSize < b.Center[i]-b.HalfSize {
			return false
		}
	}
	return true
}

// DefaultOctreeMaxDepth bounds subdivision when many points share a cell.
const DefaultOctreeMaxDepth = 10

// Octree for spatial partitioning of static colliders
type Octree struct {
	Boundary AABB
	Capacity int
	MaxDepth int
	Depth    int
	Points   []mgl64.Vec3
	Objects  []interface{}
	Divided  bool
	Children [8]*Octree
}

// NewOctree creates a new octree with the given boundary and capacity
func NewOctree(boundary AABB, capacity int) *Octree {
	if capacity < 1 {
		capacity = 1
	}
	return &Octree{
		Boundary: boundary,
		Capacity: capacity,
		MaxDepth: DefaultOctreeMaxDepth,
		Points:   make([]mgl64.Vec3, 0, capacity),
		Objects:  make([]interface{}, 0, capacity),
	}
}

// Insert adds an object at the given point. It returns false when the
// point lies outside the tree's boundary.
func (ot *Octree) Insert(point mgl64.Vec3, object interface{}) bool {
	if !ot.Boundary.Contains(point) {
		return false
	}

	if (len(ot.Points) < ot.Capacity && !ot.Divided) || ot.Depth >= ot.MaxDepth {
		ot.Points = append(ot.Points, point)
		ot.Objects = append(ot.Objects, object)
		return true
	}

	if !ot.Divided {
		ot.Subdivide()
	}

	for _, child := range ot.Children {
		if child.Insert(point, object) {
			return true
		}
	}
	return false
}

// Subdivide splits the octree into eight octants
func (ot *Octree) Subdivide() {
	h := ot.Boundary.HalfSize / 2
	c := ot.Boundary.Center

	for i := 0; i < 8; i++ {
		offset := mgl64.Vec3{-h, -h, -h}
		if i&1 != 0 {
			offset[0] = h
		}
		if i&2 != 0 {
			offset[1] = h
		}
		if i&4 != 0 {
			offset[2] = h
		}
		child := NewOctree(AABB{Center: c.Add(offset), HalfSize: h}, ot.Capacity)
		child.MaxDepth = ot.MaxDepth
		child.Depth = ot.Depth + 1
		ot.Children[i] = child
	}
	ot.Divided = true
}

// Query returns all objects whose points lie inside area
func (ot *Octree) Query(area AABB) []interface{} {
	return ot.query(area, make([]interface{}, 0))
}

func (ot *Octree) query(area AABB, found []interface{}) []interface{} {
	if !ot.Boundary.Intersects(area) {
		return found
	}

	for i, point := range ot.Points {
		if area.Contains(point) {
			found = append(found, ot.Objects[i])
		}
	}

	if !ot.Divided {
		return found
	}

	for _, child := range ot.Children {
		found = child.query(area, found)
	}
	return found
}

// Len returns the number of objects stored in the tree.
func (ot *Octree) Len() int {
	n := len(ot.Points)
	if ot.Divided {
		for _, child := range ot.Children {
			n += child.Len()
		}
	}
	return n
}

// Clear removes every object and collapses the subdivisions.
func (ot *Octree) Clear() {
	ot.Points = ot.Points[:0]
	ot.Objects = ot.Objects[:0]
	ot.Divided = false
	ot.Children = [8]*Octree{}
}
