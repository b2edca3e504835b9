// Package physics defines the rigid-body and collider contracts the flight
// core drives, plus World, a small reference integrator used by the hosts
// and tests.
package physics

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrPhysicsUnavailable is returned when the physics backend cannot start.
// Callers treat it as degraded mode, not as a fatal error.
var ErrPhysicsUnavailable = errors.New("physics unavailable")

// MassProperties describes the dynamic mass of a body. Inertia is the
// diagonal of the inertia tensor in the body's principal axes.
type MassProperties struct {
	Mass    float64
	Inertia mgl64.Vec3
}

// Material holds surface response coefficients for a collider.
type Material struct {
	Friction    float64
	Restitution float64
}

// Body is the dynamic rigid body of the craft.
type Body interface {
	ApplyForce(force, point mgl64.Vec3)
	ApplyImpulse(impulse, point mgl64.Vec3)
	ApplyTorque(torque mgl64.Vec3)

	LinearVelocity() mgl64.Vec3
	SetLinearVelocity(v mgl64.Vec3)
	AngularVelocity() mgl64.Vec3
	SetAngularVelocity(w mgl64.Vec3)

	SetLinearDamping(d float64)
	SetAngularDamping(d float64)
	SetMassProperties(p MassProperties)
	CenterOfMass() mgl64.Vec3

	Position() mgl64.Vec3
	SetPosition(p mgl64.Vec3)
	Orientation() mgl64.Quat
	SetOrientation(q mgl64.Quat)

	// SetPreStepDisabled controls whether the body's transform node is
	// copied into the simulation before each step. While disabled, pose
	// writes made through SetPosition/SetOrientation are ignored by the
	// solver and overwritten after the next step.
	SetPreStepDisabled(disabled bool)
	PreStepDisabled() bool
}

// Collider is a static collision shape registered with a Space.
type Collider interface {
	ID() uint64
	Center() mgl64.Vec3
	Radius() float64
	Dispose()
}

// Space creates static colliders.
type Space interface {
	AddStaticSphere(center mgl64.Vec3, radius float64, mat Material) (Collider, error)
}
