// Package entity builds the celestial bodies and collectibles that populate
// the world. Every object pairs a render mesh with an optional static
// collider and is released as a unit.
package entity

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/render"
)

// ErrPlacementExhausted is reported when a clustered body could not find a
// free position within the allowed number of attempts.
var ErrPlacementExhausted = errors.New("placement attempts exhausted")

// Style selects the look and surface properties of a body.
type Style int

const (
	// StyleStreamed is used for streamed chunk bodies and the starter set.
	StyleStreamed Style = iota
	// StyleCluster is used for the seed cluster around the origin.
	StyleCluster
)

func (s Style) String() string {
	switch s {
	case StyleStreamed:
		return "streamed"
	case StyleCluster:
		return "cluster"
	default:
		return fmt.Sprintf("style(%d)", int(s))
	}
}

// ClusterConfig describes the seed cluster.
type ClusterConfig struct {
	Count           int     `json:"count" yaml:"count"`
	MinSize         float64 `json:"minSize" yaml:"minSize"`
	MaxSize         float64 `json:"maxSize" yaml:"maxSize"`
	BoundsMin       float64 `json:"boundsMin" yaml:"boundsMin"`
	BoundsMax       float64 `json:"boundsMax" yaml:"boundsMax"`
	SpacingFactor   float64 `json:"spacingFactor" yaml:"spacingFactor"`
	MaxAttempts     int     `json:"maxAttempts" yaml:"maxAttempts"`
	AtmosphereScale float64 `json:"atmosphereScale" yaml:"atmosphereScale"`
	AtmosphereAlpha float64 `json:"atmosphereAlpha" yaml:"atmosphereAlpha"`
	Friction        float64 `json:"friction" yaml:"friction"`
	Texture         string  `json:"texture" yaml:"texture"`
}

// StarterConfig describes the unspaced bodies scattered around the origin
// at startup.
type StarterConfig struct {
	Count      int        `json:"count" yaml:"count"`
	HalfExtent mgl64.Vec3 `json:"halfExtent" yaml:"halfExtent"`
	MinSize    float64    `json:"minSize" yaml:"minSize"`
	MaxSize    float64    `json:"maxSize" yaml:"maxSize"`
}

// CollectibleConfig describes the pickup boxes.
type CollectibleConfig struct {
	Size float64 `json:"size" yaml:"size"`
	// Colliders gives every box a static collider when physics is available.
	Colliders bool `json:"colliders" yaml:"colliders"`
}

// Config controls how the factory builds bodies.
type Config struct {
	Segments        int      `json:"segments" yaml:"segments"`
	Textures        []string `json:"textures" yaml:"textures"`
	BumpTexture     string   `json:"bumpTexture" yaml:"bumpTexture"`
	BumpLevel       float64  `json:"bumpLevel" yaml:"bumpLevel"`
	AtmosphereScale float64  `json:"atmosphereScale" yaml:"atmosphereScale"`
	AtmosphereAlpha float64  `json:"atmosphereAlpha" yaml:"atmosphereAlpha"`
	Friction        float64  `json:"friction" yaml:"friction"`

	Cluster     ClusterConfig     `json:"cluster" yaml:"cluster"`
	Starters    StarterConfig     `json:"starters" yaml:"starters"`
	Collectible CollectibleConfig `json:"collectible" yaml:"collectible"`
}

// DefaultConfig returns the stock body settings.
func DefaultConfig() Config {
	return Config{
		Segments: 34,
		Textures: []string{
			"textures/mars.jpg",
			"textures/neptune.jpg",
			"textures/daymap.jpg",
			"textures/surface.jpg",
			"textures/jupiter.jpg",
		},
		BumpTexture:     "textures/rocky_terrain_03_nor_gl_4k.jpg",
		BumpLevel:       1.5,
		AtmosphereScale: 1.5,
		AtmosphereAlpha: 0.25,
		Friction:        0.7,
		Cluster: ClusterConfig{
			Count:           6,
			MinSize:         100,
			MaxSize:         600,
			BoundsMin:       -1000,
			BoundsMax:       1000,
			SpacingFactor:   2.5,
			MaxAttempts:     50,
			AtmosphereScale: 1.3,
			AtmosphereAlpha: 0.22,
			Friction:        1,
			Texture:         "textures/t.jpg",
		},
		Starters: StarterConfig{
			Count:      8,
			HalfExtent: mgl64.Vec3{1000, 500, 1000},
			MinSize:    50,
			MaxSize:    150,
		},
		Collectible: CollectibleConfig{Size: 4},
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.AtmosphereScale < 1 {
		errs = append(errs, fmt.Errorf("atmosphereScale must be at least 1, got %v", c.AtmosphereScale))
	}
	if c.Friction < 0 {
		errs = append(errs, fmt.Errorf("friction must not be negative, got %v", c.Friction))
	}
	if c.Cluster.Count < 0 {
		errs = append(errs, fmt.Errorf("cluster.count must not be negative, got %d", c.Cluster.Count))
	}
	if err := validateSizes("cluster", c.Cluster.MinSize, c.Cluster.MaxSize); err != nil {
		errs = append(errs, err)
	}
	if c.Cluster.BoundsMin > c.Cluster.BoundsMax {
		errs = append(errs, fmt.Errorf("cluster bounds are inverted: %v > %v", c.Cluster.BoundsMin, c.Cluster.BoundsMax))
	}
	if c.Cluster.SpacingFactor < 0 {
		errs = append(errs, fmt.Errorf("cluster.spacingFactor must not be negative, got %v", c.Cluster.SpacingFactor))
	}
	if c.Cluster.Count > 0 && c.Cluster.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("cluster.maxAttempts must be positive, got %d", c.Cluster.MaxAttempts))
	}
	if c.Starters.Count < 0 {
		errs = append(errs, fmt.Errorf("starters.count must not be negative, got %d", c.Starters.Count))
	}
	if err := validateSizes("starters", c.Starters.MinSize, c.Starters.MaxSize); err != nil {
		errs = append(errs, err)
	}
	if c.Collectible.Size <= 0 {
		errs = append(errs, fmt.Errorf("collectible.size must be positive, got %v", c.Collectible.Size))
	}
	return errors.Join(errs...)
}

func validateSizes(section string, min, max float64) error {
	if min <= 0 || max < min {
		return fmt.Errorf("%s sizes must satisfy 0 < minSize <= maxSize, got [%v, %v]", section, min, max)
	}
	return nil
}

// clusterPalette holds the atmosphere colours of the seed cluster.
var clusterPalette = []render.Color{
	{R: 0.2, G: 0.5, B: 1.0, A: 1},
	{R: 0.3, G: 0.8, B: 0.9, A: 1},
	{R: 0.8, G: 0.3, B: 0.5, A: 1},
	{R: 0.5, G: 0.8, B: 0.3, A: 1},
	{R: 0.9, G: 0.6, B: 0.2, A: 1},
	{R: 0.7, G: 0.3, B: 0.8, A: 1},
}
