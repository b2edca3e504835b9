// Package gravity pulls the craft toward nearby celestial bodies. The pull
// is constant in magnitude and only acts inside a band around each body, so
// it never diverges near a surface and costs nothing far away.
package gravity

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/physics"
)

// Config tunes the field.
type Config struct {
	// Strength is the impulse magnitude per second of exposure.
	Strength float64 `json:"strength" yaml:"strength"`
	// Cutoff is the distance at and beyond which a body has no pull.
	Cutoff float64 `json:"cutoff" yaml:"cutoff"`
	// InnerFactor times the body radius is the distance at and below which
	// the pull stops.
	InnerFactor float64 `json:"innerFactor" yaml:"innerFactor"`
}

// DefaultConfig returns the stock field settings.
func DefaultConfig() Config {
	return Config{Strength: 10, Cutoff: 200, InnerFactor: 3}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Strength < 0 {
		errs = append(errs, fmt.Errorf("strength must not be negative, got %v", c.Strength))
	}
	if c.Cutoff <= 0 {
		errs = append(errs, fmt.Errorf("cutoff must be positive, got %v", c.Cutoff))
	}
	if c.InnerFactor < 0 {
		errs = append(errs, fmt.Errorf("innerFactor must not be negative, got %v", c.InnerFactor))
	}
	return errors.Join(errs...)
}

// Source is anything that attracts the craft.
type Source interface {
	ID() uint64
	Position() mgl64.Vec3
	Radius() float64
}

// Field holds the tracked sources.
type Field struct {
	cfg    Config
	bodies map[uint64]Source
}

// NewField creates an empty field.
func NewField(cfg Config) *Field {
	return &Field{cfg: cfg, bodies: make(map[uint64]Source)}
}

// Config returns the field settings.
func (f *Field) Config() Config {
	return f.cfg
}

// Track adds a source. Tracking the same id again replaces it.
func (f *Field) Track(s Source) {
	if s == nil {
		return
	}
	f.bodies[s.ID()] = s
}

// Untrack removes a source by id.
func (f *Field) Untrack(id uint64) {
	delete(f.bodies, id)
}

// Len returns the number of tracked sources.
func (f *Field) Len() int {
	return len(f.bodies)
}

// Bodies returns the tracked sources ordered by id.
func (f *Field) Bodies() []Source {
	out := make([]Source, 0, len(f.bodies))
	for _, s := range f.bodies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ForceOn returns the impulse s exerts on a craft at centre over dt, or the
// zero vector outside the band InnerFactor*r < d < Cutoff.
func (f *Field) ForceOn(centre mgl64.Vec3, s Source, dt float64) mgl64.Vec3 {
	if !(dt > 0) {
		return mgl64.Vec3{}
	}
	toBody := s.Position().Sub(centre)
	d := toBody.Len()
	if d <= f.cfg.InnerFactor*s.Radius() || d >= f.cfg.Cutoff {
		return mgl64.Vec3{}
	}
	return toBody.Mul(f.cfg.Strength * dt / d)
}

// Apply pulls the craft toward every source in range and returns how many
// contributed. A nil craft is ignored.
func (f *Field) Apply(craft physics.Body, dt float64) int {
	if craft == nil {
		return 0
	}
	centre := craft.CenterOfMass()
	n := 0
	for _, s := range f.bodies {
		impulse := f.ForceOn(centre, s, dt)
		if impulse == (mgl64.Vec3{}) {
			continue
		}
		craft.ApplyImpulse(impulse, centre)
		n++
	}
	return n
}
