// pkg/render/texture.go
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/opd-ai/go-spacefly/pkg/logging"
)

// BreakerConfig tunes the texture loader's circuit breaker.
type BreakerConfig struct {
	MaxRequests         uint32        `json:"maxRequests" yaml:"maxRequests"`
	Interval            time.Duration `json:"interval" yaml:"interval"`
	Timeout             time.Duration `json:"timeout" yaml:"timeout"`
	MaxConsecutiveFails uint32        `json:"maxConsecutiveFails" yaml:"maxConsecutiveFails"`
}

// DefaultBreakerConfig returns the breaker settings used by the hosts.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		MaxConsecutiveFails: 3,
	}
}

// TextureLoader wraps Scene.LoadTexture with a circuit breaker.
type TextureLoader struct {
	scene   Scene
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
	warn    rate.Sometimes
}

// NewTextureLoader creates a loader for the given scene.
func NewTextureLoader(scene Scene, cfg BreakerConfig, logger *logging.Logger) *TextureLoader {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.Component("texture_loader")
	if cfg.MaxConsecutiveFails == 0 {
		cfg.MaxConsecutiveFails = DefaultBreakerConfig().MaxConsecutiveFails
	}

	settings := gobreaker.Settings{
		Name:        "spacefly-textures",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxConsecutiveFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &TextureLoader{
		scene:   scene,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		warn:    rate.Sometimes{First: 1, Interval: time.Second},
	}
}

// Load fetches a texture through the breaker. Every failure, including an
// open breaker, wraps ErrTextureLoad.
func (l *TextureLoader) Load(ctx context.Context, url string) (Texture, error) {
	result, err := l.breaker.Execute(func() (interface{}, error) {
		return l.scene.LoadTexture(url)
	})
	if err != nil {
		l.warn.Do(func() {
			l.logger.LogWithContext(ctx, slog.LevelWarn, "texture load failed",
				"url", url,
				"error", err.Error(),
				"state", l.breaker.State().String(),
			)
		})
		if errors.Is(err, ErrTextureLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("load %s: %w: %w", url, ErrTextureLoad, err)
	}

	tex, ok := result.(Texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("load %s: %w: empty result", url, ErrTextureLoad)
	}
	return tex, nil
}

// State returns the current state of the circuit breaker.
func (l *TextureLoader) State() gobreaker.State {
	return l.breaker.State()
}

// Counts returns the breaker's current failure/success counts.
func (l *TextureLoader) Counts() gobreaker.Counts {
	return l.breaker.Counts()
}
