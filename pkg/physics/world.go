// pkg/physics/world.go
package physics

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// WorldConfig tunes the reference world.
type WorldConfig struct {
	// Disabled makes Init fail with ErrPhysicsUnavailable. Used to run the
	// game without a physics backend.
	Disabled       bool `json:"disabled" yaml:"disabled"`
	OctreeCapacity int  `json:"octreeCapacity" yaml:"octreeCapacity"`
	OctreeMaxDepth int  `json:"octreeMaxDepth" yaml:"octreeMaxDepth"`
}

// DefaultWorldConfig returns the settings used by the hosts.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		OctreeCapacity: 8,
		OctreeMaxDepth: DefaultOctreeMaxDepth,
	}
}

// BodyOptions describes a dynamic body created through World.CreateBody.
type BodyOptions struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Radius      float64
	Mass        MassProperties
	Material    Material
}

// World is a minimal rigid-body simulation: semi-implicit Euler
// integration of dynamic bodies against static spheres kept in an octree.
// It is not safe for concurrent use; hosts step it from the frame goroutine.
type World struct {
	cfg WorldConfig

	initialized bool
	nextID      uint64
	bodies      []*RigidBody
	statics     map[uint64]*StaticSphere
	tree        *Octree
	dirty       bool
	maxRadius   float64
}

// NewWorld creates a world. Init must be called before use.
func NewWorld(cfg WorldConfig) *World {
	if cfg.OctreeCapacity <= 0 {
		cfg.OctreeCapacity = DefaultWorldConfig().OctreeCapacity
	}
	if cfg.OctreeMaxDepth <= 0 {
		cfg.OctreeMaxDepth = DefaultOctreeMaxDepth
	}
	return &World{
		cfg:     cfg,
		nextID:  1,
		statics: make(map[uint64]*StaticSphere),
	}
}

// Init starts the world.
func (w *World) Init() error {
	if w.cfg.Disabled {
		return ErrPhysicsUnavailable
	}
	w.initialized = true
	return nil
}

// Ready reports whether Init succeeded.
func (w *World) Ready() bool {
	return w.initialized
}

// CreateBody adds a dynamic body. Pre-step sync starts disabled.
func (w *World) CreateBody(opts BodyOptions) (*RigidBody, error) {
	if !w.initialized {
		return nil, fmt.Errorf("create body: %w", ErrPhysicsUnavailable)
	}

	rot := opts.Orientation
	if rot.Len() == 0 {
		rot = mgl64.QuatIdent()
	}
	b := &RigidBody{
		id:              w.nextID,
		radius:          opts.Radius,
		material:        opts.Material,
		pos:             opts.Position,
		rot:             rot,
		nodePos:         opts.Position,
		nodeRot:         rot,
		preStepDisabled: true,
	}
	b.SetMassProperties(opts.Mass)
	w.nextID++
	w.bodies = append(w.bodies, b)
	return b, nil
}

// RemoveBody detaches a dynamic body from the simulation.
func (w *World) RemoveBody(b *RigidBody) {
	for i, other := range w.bodies {
		if other == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return
		}
	}
}

// AddStaticSphere registers an immovable sphere collider.
func (w *World) AddStaticSphere(center mgl64.Vec3, radius float64, mat Material) (Collider, error) {
	if !w.initialized {
		return nil, fmt.Errorf("add static sphere: %w", ErrPhysicsUnavailable)
	}
	if radius <= 0 || math.IsNaN(radius) || !IsFinite(center) {
		return nil, fmt.Errorf("add static sphere: invalid shape center=%v radius=%v", center, radius)
	}

	s := &StaticSphere{
		id:       w.nextID,
		world:    w,
		shape:    Sphere{Center: center, Radius: radius},
		material: mat,
	}
	w.nextID++
	w.statics[s.id] = s
	w.dirty = true
	return s, nil
}

// StaticCount returns the number of live static colliders.
func (w *World) StaticCount() int {
	return len(w.statics)
}

// QueryStatic returns static colliders whose sphere overlaps the given sphere.
func (w *World) QueryStatic(center mgl64.Vec3, radius float64) []Collider {
	hits := w.overlapping(Sphere{Center: center, Radius: radius})
	out := make([]Collider, len(hits))
	for i, s := range hits {
		out[i] = s
	}
	return out
}

// Step advances the simulation by dt seconds. Non-positive dt is a no-op.
func (w *World) Step(dt float64) {
	if dt <= 0 || math.IsNaN(dt) || !w.initialized {
		return
	}

	for _, b := range w.bodies {
		if !b.preStepDisabled {
			b.pos = b.nodePos
			b.rot = b.nodeRot
		}
		b.integrate(dt)
		w.resolveContacts(b)
		b.nodePos = b.pos
		b.nodeRot = b.rot
	}
}

func (w *World) rebuild() {
	if !w.dirty && w.tree != nil {
		return
	}

	var lo, hi mgl64.Vec3
	first := true
	w.maxRadius = 0
	for _, s := range w.statics {
		c := s.shape.Center
		if first {
			lo, hi = c, c
			first = false
		}
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], c[i])
			hi[i] = math.Max(hi[i], c[i])
		}
		w.maxRadius = math.Max(w.maxRadius, s.shape.Radius)
	}

	half := 1.0
	for i := 0; i < 3; i++ {
		half = math.Max(half, (hi[i]-lo[i])/2+1)
	}
	center := lo.Add(hi).Mul(0.5)

	w.tree = NewOctree(AABB{Center: center, HalfSize: half}, w.cfg.OctreeCapacity)
	w.tree.MaxDepth = w.cfg.OctreeMaxDepth
	for _, s := range w.statics {
		w.tree.Insert(s.shape.Center, s)
	}
	w.dirty = false
}

func (w *World) overlapping(probe Sphere) []*StaticSphere {
	if len(w.statics) == 0 {
		return nil
	}
	w.rebuild()

	area := AABB{Center: probe.Center, HalfSize: probe.Radius + w.maxRadius}
	var hits []*StaticSphere
	for _, obj := range w.tree.Query(area) {
		s := obj.(*StaticSphere)
		if probe.Collides(s.shape) {
			hits = append(hits, s)
		}
	}
	return hits
}

func (w *World) resolveContacts(b *RigidBody) {
	if b.radius <= 0 {
		return
	}

	for _, s := range w.overlapping(Sphere{Center: b.pos, Radius: b.radius}) {
		res := CheckCollision(s.shape, Sphere{Center: b.pos, Radius: b.radius})
		if !res.Collided {
			continue
		}
		n := res.Normal
		b.pos = b.pos.Add(n.Mul(res.Penetration))

		vn := b.linVel.Dot(n)
		if vn >= 0 {
			continue
		}
		restitution := math.Max(b.material.Restitution, s.material.Restitution)
		friction := math.Sqrt(math.Max(0, b.material.Friction*s.material.Friction))
		if b.material.Friction == 0 {
			friction = s.material.Friction
		}

		normalVel := n.Mul(vn)
		tangentVel := b.linVel.Sub(normalVel)
		dvn := -(1 + restitution) * vn

		if tl := tangentVel.Len(); tl > 0 {
			scale := math.Max(0, tl-friction*dvn) / tl
			tangentVel = tangentVel.Mul(scale)
		}
		b.linVel = tangentVel.Add(normalVel.Mul(-restitution))
	}
}

// StaticSphere is an immovable sphere collider owned by a World.
type StaticSphere struct {
	id       uint64
	world    *World
	shape    Sphere
	material Material
	once     sync.Once
}

// ID returns the collider id.
func (s *StaticSphere) ID() uint64 { return s.id }

// Center returns the sphere center.
func (s *StaticSphere) Center() mgl64.Vec3 { return s.shape.Center }

// Radius returns the sphere radius.
func (s *StaticSphere) Radius() float64 { return s.shape.Radius }

// Material returns the surface material.
func (s *StaticSphere) Material() Material { return s.material }

// Dispose removes the collider from its world. Safe to call more than once.
func (s *StaticSphere) Dispose() {
	s.once.Do(func() {
		w := s.world
		delete(w.statics, s.id)
		w.dirty = true
	})
}

// RigidBody is a dynamic body simulated by World. It implements Body.
type RigidBody struct {
	id       uint64
	radius   float64
	material Material

	mass       float64
	invMass    float64
	invInertia mgl64.Vec3

	// simulation state
	pos    mgl64.Vec3
	rot    mgl64.Quat
	linVel mgl64.Vec3
	angVel mgl64.Vec3

	// transform node, synced into the simulation when pre-step is enabled
	nodePos mgl64.Vec3
	nodeRot mgl64.Quat

	linDamping float64
	angDamping float64

	force  mgl64.Vec3
	torque mgl64.Vec3

	preStepDisabled bool
}

// ID returns the body id.
func (b *RigidBody) ID() uint64 { return b.id }

// Radius returns the collision radius.
func (b *RigidBody) Radius() float64 { return b.radius }

// ApplyForce accumulates a force applied at a world point for the next step.
func (b *RigidBody) ApplyForce(force, point mgl64.Vec3) {
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(point.Sub(b.pos).Cross(force))
}

// ApplyImpulse changes velocity immediately.
func (b *RigidBody) ApplyImpulse(impulse, point mgl64.Vec3) {
	b.linVel = b.linVel.Add(impulse.Mul(b.invMass))
	angular := point.Sub(b.pos).Cross(impulse)
	b.angVel = b.angVel.Add(mulComponents(angular, b.invInertia))
}

// ApplyTorque accumulates a torque for the next step.
func (b *RigidBody) ApplyTorque(torque mgl64.Vec3) {
	b.torque = b.torque.Add(torque)
}

// LinearVelocity returns the linear velocity.
func (b *RigidBody) LinearVelocity() mgl64.Vec3 { return b.linVel }

// SetLinearVelocity sets the linear velocity.
func (b *RigidBody) SetLinearVelocity(v mgl64.Vec3) { b.linVel = v }

// AngularVelocity returns the world-space angular velocity.
func (b *RigidBody) AngularVelocity() mgl64.Vec3 { return b.angVel }

// SetAngularVelocity sets the world-space angular velocity.
func (b *RigidBody) SetAngularVelocity(w mgl64.Vec3) { b.angVel = w }

// SetLinearDamping sets the linear damping coefficient.
func (b *RigidBody) SetLinearDamping(d float64) { b.linDamping = math.Max(0, d) }

// SetAngularDamping sets the angular damping coefficient.
func (b *RigidBody) SetAngularDamping(d float64) { b.angDamping = math.Max(0, d) }

// LinearDamping returns the linear damping coefficient.
func (b *RigidBody) LinearDamping() float64 { return b.linDamping }

// AngularDamping returns the angular damping coefficient.
func (b *RigidBody) AngularDamping() float64 { return b.angDamping }

// SetMassProperties sets mass and the diagonal inertia tensor. Zero
// components are treated as infinite.
func (b *RigidBody) SetMassProperties(p MassProperties) {
	b.mass = p.Mass
	b.invMass = invert(p.Mass)
	b.invInertia = mgl64.Vec3{invert(p.Inertia[0]), invert(p.Inertia[1]), invert(p.Inertia[2])}
}

// MassProperties returns the current mass properties.
func (b *RigidBody) MassProperties() MassProperties {
	return MassProperties{
		Mass:    b.mass,
		Inertia: mgl64.Vec3{invert(b.invInertia[0]), invert(b.invInertia[1]), invert(b.invInertia[2])},
	}
}

// CenterOfMass returns the simulated center in world space.
func (b *RigidBody) CenterOfMass() mgl64.Vec3 { return b.pos }

// Position returns the transform node position.
func (b *RigidBody) Position() mgl64.Vec3 { return b.nodePos }

// SetPosition moves the transform node.
func (b *RigidBody) SetPosition(p mgl64.Vec3) { b.nodePos = p }

// Orientation returns the transform node orientation.
func (b *RigidBody) Orientation() mgl64.Quat { return b.nodeRot }

// SetOrientation rotates the transform node.
func (b *RigidBody) SetOrientation(q mgl64.Quat) { b.nodeRot = q }

// SetPreStepDisabled toggles transform-to-simulation sync.
func (b *RigidBody) SetPreStepDisabled(disabled bool) { b.preStepDisabled = disabled }

// PreStepDisabled reports whether transform sync is disabled.
func (b *RigidBody) PreStepDisabled() bool { return b.preStepDisabled }

func (b *RigidBody) integrate(dt float64) {
	b.linVel = b.linVel.Add(b.force.Mul(b.invMass * dt))
	b.angVel = b.angVel.Add(mulComponents(b.torque, b.invInertia).Mul(dt))

	b.linVel = b.linVel.Mul(1 / (1 + b.linDamping*dt))
	b.angVel = b.angVel.Mul(1 / (1 + b.angDamping*dt))

	b.pos = b.pos.Add(b.linVel.Mul(dt))

	if b.angVel != (mgl64.Vec3{}) {
		spin := mgl64.Quat{W: 0, V: b.angVel}.Mul(b.rot).Scale(0.5 * dt)
		b.rot = b.rot.Add(spin).Normalize()
	}

	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}

func invert(v float64) float64 {
	if v == 0 {
		return 0
	}
	return 1 / v
}

func mulComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
