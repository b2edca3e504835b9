// pkg/config/config.go
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/go-spacefly/pkg/engine"
	"github.com/opd-ai/go-spacefly/pkg/logging"
)

// ErrInvalidConfig is returned when a configuration fails schema or
// semantic validation.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON []byte

// Config contains the full configuration of a spacefly session
type Config struct {
	engine.Config `yaml:",inline"`

	Logging   LoggingConfig `json:"logging" yaml:"logging"`
	Window    WindowConfig  `json:"window" yaml:"window"`
	DebugAddr string        `json:"debugAddr,omitempty" yaml:"debugAddr,omitempty"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// File, when set, receives log output instead of stdout.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// WindowConfig contains host window configuration
type WindowConfig struct {
	Renderer   string `json:"renderer" yaml:"renderer"`
	Title      string `json:"title" yaml:"title"`
	Width      int    `json:"width" yaml:"width"`
	Height     int    `json:"height" yaml:"height"`
	Fullscreen bool   `json:"fullscreen" yaml:"fullscreen"`
	FPS        int    `json:"fps" yaml:"fps"`
}

// Renderers names the hosts a session can run under.
var Renderers = []string{"engo", "terminal", "headless"}

// DefaultConfig returns a default session configuration
func DefaultConfig() *Config {
	return &Config{
		Config: engine.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "json",
		},
		Window: WindowConfig{
			Renderer: "engo",
			Title:    "Spacefly",
			Width:    1280,
			Height:   720,
			FPS:      60,
		},
	}
}

// Validate checks the engine sections and the host settings.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !isRenderer(c.Window.Renderer) {
		errs = append(errs, fmt.Errorf("window.renderer must be one of %s, got %q", strings.Join(Renderers, ", "), c.Window.Renderer))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Window.FPS <= 0 {
		errs = append(errs, fmt.Errorf("window.fps must be positive, got %d", c.Window.FPS))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func isRenderer(name string) bool {
	for _, r := range Renderers {
		if r == name {
			return true
		}
	}
	return false
}

// LoadConfig loads a configuration from a JSON or YAML file, chosen by
// extension. Fields the file omits keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a document in the given format ("json" or "yaml") over the
// defaults, checks it against the embedded schema and validates the result.
func Parse(data []byte, format string) (*Config, error) {
	doc, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(doc, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves a configuration to a file. The format follows the
// extension, JSON unless it is .yaml or .yml.
func SaveConfig(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if formatOf(path) == "yaml" {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// toJSON normalises YAML input to JSON so both formats share one schema
// and one decoder.
func toJSON(data []byte, format string) ([]byte, error) {
	if format != "yaml" {
		return data, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert yaml config: %w", err)
	}
	return out, nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("schema.json")
	})
	return schema, schemaErr
}

func validateSchema(doc []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NewLogger builds the session logger described by the logging section.
// The returned closer releases the log file, if one was opened.
func (l LoggingConfig) NewLogger(fallback io.Writer) (*logging.Logger, io.Closer, error) {
	opts := logging.Options{Level: l.SlogLevel(), Format: l.Format}
	if l.File == "" {
		return logging.New(fallback, opts), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(l.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logging.New(f, opts), f, nil
}

// SlogLevel returns the configured level.
func (l LoggingConfig) SlogLevel() slog.Level {
	return logging.ParseLevel(l.Level)
}
