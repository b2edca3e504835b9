// Package flight converts held input actions into forces and angular
// velocity changes on the craft body, once per physics step.
package flight

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/input"
	"github.com/opd-ai/go-spacefly/pkg/physics"
)

// Config tunes the controller and the craft body.
type Config struct {
	ThrustPower     float64 `json:"thrustPower" yaml:"thrustPower"`
	RotationPower   float64 `json:"rotationPower" yaml:"rotationPower"`
	MaxAngularSpeed float64 `json:"maxAngularSpeed" yaml:"maxAngularSpeed"`
	AngularDecay    float64 `json:"angularDecay" yaml:"angularDecay"`
	MaxDeltaTime    float64 `json:"maxDeltaTime" yaml:"maxDeltaTime"`
	// MaxSpeed caps linear speed. Zero disables the limiter.
	MaxSpeed       float64 `json:"maxSpeed" yaml:"maxSpeed"`
	LinearDamping  float64 `json:"linearDamping" yaml:"linearDamping"`
	AngularDamping float64 `json:"angularDamping" yaml:"angularDamping"`
	Mass           float64 `json:"mass" yaml:"mass"`
	Inertia        float64 `json:"inertia" yaml:"inertia"`
}

// DefaultConfig returns the stock craft tuning.
func DefaultConfig() Config {
	return Config{
		ThrustPower:     300,
		RotationPower:   12,
		MaxAngularSpeed: 8,
		AngularDecay:    0.95,
		MaxDeltaTime:    0.033,
		LinearDamping:   0.1,
		AngularDamping:  0.2,
		Mass:            1,
		Inertia:         2,
	}
}

// Validate checks the tuning for values that would destabilize the craft.
func (c Config) Validate() error {
	var errs []error
	if c.ThrustPower <= 0 {
		errs = append(errs, fmt.Errorf("thrustPower must be positive, got %v", c.ThrustPower))
	}
	if c.RotationPower <= 0 {
		errs = append(errs, fmt.Errorf("rotationPower must be positive, got %v", c.RotationPower))
	}
	if c.MaxAngularSpeed <= 0 {
		errs = append(errs, fmt.Errorf("maxAngularSpeed must be positive, got %v", c.MaxAngularSpeed))
	}
	if c.AngularDecay < 0 || c.AngularDecay > 1 {
		errs = append(errs, fmt.Errorf("angularDecay must be within [0,1], got %v", c.AngularDecay))
	}
	if c.MaxDeltaTime <= 0 {
		errs = append(errs, fmt.Errorf("maxDeltaTime must be positive, got %v", c.MaxDeltaTime))
	}
	if c.MaxSpeed < 0 {
		errs = append(errs, fmt.Errorf("maxSpeed must not be negative, got %v", c.MaxSpeed))
	}
	if c.Mass <= 0 || c.Inertia <= 0 {
		errs = append(errs, fmt.Errorf("mass and inertia must be positive, got %v/%v", c.Mass, c.Inertia))
	}
	return errors.Join(errs...)
}

// Controller drives the craft body from an input.State.
type Controller struct {
	cfg   Config
	input *input.State
	body  physics.Body
}

// NewController creates a controller reading the given input state.
func NewController(cfg Config, state *input.State) *Controller {
	if state == nil {
		state = input.NewState(nil)
	}
	return &Controller{cfg: cfg, input: state}
}

// Attach binds the craft body and applies mass and damping tuning.
// Passing nil detaches it.
func (c *Controller) Attach(body physics.Body) {
	c.body = body
	if body == nil {
		return
	}
	body.SetMassProperties(physics.MassProperties{
		Mass:    c.cfg.Mass,
		Inertia: mgl64.Vec3{c.cfg.Inertia, c.cfg.Inertia, c.cfg.Inertia},
	})
	body.SetLinearDamping(c.cfg.LinearDamping)
	body.SetAngularDamping(c.cfg.AngularDamping)
}

// Ready reports whether a body is attached.
func (c *Controller) Ready() bool {
	return c.body != nil
}

// Body returns the attached body, or nil.
func (c *Controller) Body() physics.Body {
	return c.body
}

// Input returns the state the controller reads.
func (c *Controller) Input() *input.State {
	return c.input
}

// Config returns the tuning in use.
func (c *Controller) Config() Config {
	return c.cfg
}

// ClampDelta bounds a frame delta to [0, MaxDeltaTime]. NaN maps to zero.
func (c *Controller) ClampDelta(dt float64) float64 {
	if math.IsNaN(dt) || dt <= 0 {
		return 0
	}
	return math.Min(dt, c.cfg.MaxDeltaTime)
}

// Step applies one physics step worth of input. It is a no-op until a
// body is attached.
func (c *Controller) Step(dt float64) {
	if c.body == nil {
		return
	}
	dt = c.ClampDelta(dt)

	c.applyThrust(dt)
	c.applyRotation(dt)

	if c.cfg.MaxSpeed > 0 {
		c.body.SetLinearVelocity(physics.ClampLength(c.body.LinearVelocity(), c.cfg.MaxSpeed))
	}
}

// ThrustDirection returns the unit world-space direction of the held
// translate actions, or zero when none (or only opposing ones) are held.
func (c *Controller) ThrustDirection() mgl64.Vec3 {
	var local mgl64.Vec3
	add := func(a input.Action, axis mgl64.Vec3) {
		if c.input.Active(a) {
			local = local.Add(axis)
		}
	}
	add(input.ThrustForward, physics.AxisForward)
	add(input.ThrustBackward, physics.AxisForward.Mul(-1))
	add(input.StrafeLeft, physics.AxisRight.Mul(-1))
	add(input.StrafeRight, physics.AxisRight)
	add(input.StrafeUp, physics.AxisUp)
	add(input.StrafeDown, physics.AxisUp.Mul(-1))

	if local == (mgl64.Vec3{}) {
		return local
	}
	rot := mgl64.QuatIdent()
	if c.body != nil {
		rot = c.body.Orientation()
	}
	return physics.SafeNormalize(rot.Rotate(local))
}

func (c *Controller) applyThrust(dt float64) {
	dir := c.ThrustDirection()
	if dir == (mgl64.Vec3{}) {
		return
	}
	c.body.ApplyForce(dir.Mul(c.cfg.ThrustPower*dt), c.body.CenterOfMass())
}

// RotationDelta returns the angular velocity change for the held rotate
// actions over dt. Pitch acts on X, yaw on Y and roll on Z.
func (c *Controller) RotationDelta(dt float64) mgl64.Vec3 {
	step := c.cfg.RotationPower * dt
	var delta mgl64.Vec3
	if c.input.Active(input.PitchUp) {
		delta[0] -= step
	}
	if c.input.Active(input.PitchDown) {
		delta[0] += step
	}
	if c.input.Active(input.YawLeft) {
		delta[1] -= step
	}
	if c.input.Active(input.YawRight) {
		delta[1] += step
	}
	if c.input.Active(input.RollLeft) {
		delta[2] += step
	}
	if c.input.Active(input.RollRight) {
		delta[2] -= step
	}
	return delta
}

func (c *Controller) applyRotation(dt float64) {
	angular := c.body.AngularVelocity()
	delta := c.RotationDelta(dt)

	if delta.Dot(delta) > 0 {
		c.body.SetAngularVelocity(physics.ClampComponents(angular.Add(delta), c.cfg.MaxAngularSpeed))
		return
	}
	c.body.SetAngularVelocity(angular.Mul(c.cfg.AngularDecay))
}

// Restart zeroes the craft's motion and returns it to the origin pose. The
// pre-step flag is cleared so the simulation picks up the teleport.
func (c *Controller) Restart() {
	if c.body == nil {
		return
	}
	c.body.SetLinearVelocity(mgl64.Vec3{})
	c.body.SetAngularVelocity(mgl64.Vec3{})
	c.body.SetPreStepDisabled(false)
	c.body.SetPosition(mgl64.Vec3{})
	c.body.SetOrientation(mgl64.QuatIdent())
}

// EmergencyStop zeroes linear and angular velocity in place.
func (c *Controller) EmergencyStop() {
	if c.body == nil {
		return
	}
	c.body.SetLinearVelocity(mgl64.Vec3{})
	c.body.SetAngularVelocity(mgl64.Vec3{})
}

// Execute runs a command action. It reports whether the action was handled.
func (c *Controller) Execute(a input.Action) bool {
	switch a {
	case input.Restart:
		c.Restart()
	case input.Brake:
		c.EmergencyStop()
	default:
		return false
	}
	return c.body != nil
}
