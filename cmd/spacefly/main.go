// cmd/spacefly/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/opd-ai/go-spacefly/pkg/config"
	"github.com/opd-ai/go-spacefly/pkg/health"
	"github.com/opd-ai/go-spacefly/pkg/logging"
	"github.com/opd-ai/go-spacefly/pkg/resource"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	bootLog := logging.NewLogger()
	ctx := logging.WithSessionID(context.Background(), logging.NewSessionID())

	fset := flag.NewFlagSet("spacefly", flag.ContinueOnError)
	configPath := fset.String("config", "spacefly.yaml", "Path to configuration file (JSON or YAML)")
	createDefault := fset.Bool("default", false, "Write the default configuration to -config and exit")
	envFile := fset.String("env", ".env", "Path to an optional .env file")
	renderer := fset.String("renderer", "", "Renderer: engo, terminal or headless (overrides config)")
	width := fset.Int("width", 0, "Window width (engo only)")
	height := fset.Int("height", 0, "Window height (engo only)")
	fullscreen := fset.Bool("fullscreen", false, "Run in fullscreen mode (engo only)")
	frames := fset.Uint64("frames", 0, "Stop after this many frames (0 runs until interrupted)")
	debugAddr := fset.String("debug-addr", "", "Serve /healthz and /readyz on this address")
	seed := fset.Uint64("seed", 0, "Fix the world layout with this seed")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			bootLog.Error(ctx, "Failed to create default configuration", err, "config_path", *configPath)
			return 1
		}
		bootLog.Info(ctx, "Created default configuration file", "config_path", *configPath)
		return 0
	}

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		bootLog.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		return 1
	}
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "renderer":
			cfg.Window.Renderer = *renderer
		case "width":
			cfg.Window.Width = *width
		case "height":
			cfg.Window.Height = *height
		case "fullscreen":
			cfg.Window.Fullscreen = *fullscreen
		case "debug-addr":
			cfg.DebugAddr = *debugAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		bootLog.Error(ctx, "Invalid configuration", err)
		return 1
	}

	// The terminal renderer owns stdout.
	var fallback io.Writer = os.Stdout
	if cfg.Window.Renderer == "terminal" {
		fallback = io.Discard
	}
	logger, closer, err := cfg.Logging.NewLogger(fallback)
	if err != nil {
		bootLog.Error(ctx, "Failed to open log output", err)
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{
		cfg:     cfg,
		logger:  logger,
		checker: health.NewHealthChecker(),
		tasks:   resource.NewSupervisor(resource.DefaultLimits(), logger),
		seed:    *seed,
		frames:  *frames,
	}
	if err := s.tasks.Start(); err != nil {
		logger.Error(ctx, "Failed to start supervisor", err)
		return 1
	}
	defer func() {
		if err := s.tasks.Shutdown(context.Background()); err != nil {
			logger.Warn(ctx, "unclean shutdown", "error", err.Error())
		}
	}()
	s.checker.AddCheck(resource.NewHealthCheck(s.tasks))
	if cfg.DebugAddr != "" {
		err := s.tasks.Go(ctx, "health_server", func(ctx context.Context) {
			if err := s.checker.Serve(ctx, cfg.DebugAddr, logger); err != nil {
				logger.Error(ctx, "health endpoints failed", err)
			}
		})
		if err != nil {
			logger.Warn(ctx, "health endpoints disabled", "error", err.Error())
		}
	}

	logger.Info(ctx, "starting spacefly", "renderer", cfg.Window.Renderer, "fps", cfg.Window.FPS)
	switch cfg.Window.Renderer {
	case "headless":
		_, err = s.runHeadless(ctx)
	case "terminal":
		err = s.runTerminal(ctx)
	default:
		err = s.runWindow(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "session failed", err)
		return 1
	}
	return 0
}

// loadConfig reads path if it exists, otherwise starts from the defaults,
// then applies the environment.
func loadConfig(path, envFile string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, envFile); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}
