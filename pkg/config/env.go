// pkg/config/env.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SPACEFLY_"

type envOverride struct {
	name  string
	apply func(cfg *Config, value string) error
}

func floatVar(target func(*Config) *float64) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*target(cfg) = v
		return nil
	}
}

func intVar(target func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*target(cfg) = v
		return nil
	}
}

func boolVar(target func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*target(cfg) = v
		return nil
	}
}

func stringVar(target func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		*target(cfg) = value
		return nil
	}
}

var envOverrides = []envOverride{
	{"CHUNK_SIZE", floatVar(func(c *Config) *float64 { return &c.Chunk.ChunkSize })},
	{"GENERATION_DISTANCE", floatVar(func(c *Config) *float64 { return &c.Chunk.GenerationDistance })},
	{"UPDATE_THRESHOLD", floatVar(func(c *Config) *float64 { return &c.Chunk.UpdateThreshold })},
	{"BODIES_PER_CHUNK", intVar(func(c *Config) *int { return &c.Chunk.BodiesPerChunk })},
	{"THRUST_POWER", floatVar(func(c *Config) *float64 { return &c.Flight.ThrustPower })},
	{"ROTATION_POWER", floatVar(func(c *Config) *float64 { return &c.Flight.RotationPower })},
	{"GRAVITY_STRENGTH", floatVar(func(c *Config) *float64 { return &c.Gravity.Strength })},
	{"BOX_COUNT", intVar(func(c *Config) *int { return &c.Collect.BoxCount })},
	{"TARGET_SCORE", intVar(func(c *Config) *int { return &c.Collect.TargetScore })},
	{"PHYSICS_DISABLED", boolVar(func(c *Config) *bool { return &c.Physics.Disabled })},
	{"LOG_LEVEL", stringVar(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FORMAT", stringVar(func(c *Config) *string { return &c.Logging.Format })},
	{"LOG_FILE", stringVar(func(c *Config) *string { return &c.Logging.File })},
	{"RENDERER", stringVar(func(c *Config) *string { return &c.Window.Renderer })},
	{"FPS", intVar(func(c *Config) *int { return &c.Window.FPS })},
	{"DEBUG_ADDR", stringVar(func(c *Config) *string { return &c.DebugAddr })},
}

// ApplyEnv loads the given .env files (".env" when none are named; missing
// files are skipped), then applies SPACEFLY_* overrides to cfg and
// validates the result. Variables already set in the process environment
// win over .env entries.
func ApplyEnv(cfg *Config, envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var errs []error
	for _, o := range envOverrides {
		key := EnvPrefix + o.name
		value, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := o.apply(cfg, strings.TrimSpace(value)); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", key, value, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg.Validate()
}

// EnvNames lists the recognised override variables.
func EnvNames() []string {
	names := make([]string, len(envOverrides))
	for i, o := range envOverrides {
		names[i] = EnvPrefix + o.name
	}
	return names
}
