// pkg/engine/config.go
package engine

import (
	"errors"
	"fmt"

	"github.com/opd-ai/go-spacefly/pkg/chunk"
	"github.com/opd-ai/go-spacefly/pkg/collect"
	"github.com/opd-ai/go-spacefly/pkg/entity"
	"github.com/opd-ai/go-spacefly/pkg/flight"
	"github.com/opd-ai/go-spacefly/pkg/gravity"
	"github.com/opd-ai/go-spacefly/pkg/physics"
)

// Config gathers the settings of every subsystem the game wires together.
type Config struct {
	Chunk   chunk.Config        `json:"chunk" yaml:"chunk"`
	Entity  entity.Config       `json:"entity" yaml:"entity"`
	Gravity gravity.Config      `json:"gravity" yaml:"gravity"`
	Flight  flight.Config       `json:"flight" yaml:"flight"`
	Collect collect.Config      `json:"collect" yaml:"collect"`
	Physics physics.WorldConfig `json:"physics" yaml:"physics"`
	// CraftRadius is the collision radius of the craft.
	CraftRadius float64 `json:"craftRadius" yaml:"craftRadius"`
}

// DefaultConfig returns the stock game.
func DefaultConfig() Config {
	return Config{
		Chunk:       chunk.DefaultConfig(),
		Entity:      entity.DefaultConfig(),
		Gravity:     gravity.DefaultConfig(),
		Flight:      flight.DefaultConfig(),
		Collect:     collect.DefaultConfig(),
		Physics:     physics.DefaultWorldConfig(),
		CraftRadius: 1.5,
	}
}

// Validate checks every section and reports all problems together.
func (c Config) Validate() error {
	var errs []error
	sections := []struct {
		name string
		err  error
	}{
		{"chunk", c.Chunk.Validate()},
		{"entity", c.Entity.Validate()},
		{"gravity", c.Gravity.Validate()},
		{"flight", c.Flight.Validate()},
		{"collect", c.Collect.Validate()},
	}
	for _, s := range sections {
		if s.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, s.err))
		}
	}
	if c.CraftRadius <= 0 {
		errs = append(errs, fmt.Errorf("craftRadius must be positive, got %v", c.CraftRadius))
	}
	return errors.Join(errs...)
}
