package main

import (
	"context"
	"fmt"
	"time"

	"github.com/akmonengine/rover"
	"github.com/akmonengine/rover/config"
	"github.com/akmonengine/rover/frame"
	"github.com/akmonengine/rover/input"
	"github.com/akmonengine/rover/internal/logging"
	"github.com/akmonengine/rover/registry"
	"github.com/akmonengine/rover/scene"
	"github.com/akmonengine/rover/scene/layout"
	"github.com/akmonengine/rover/telemetry"
	"github.com/akmonengine/rover/vehicle"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func provideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideWorld(cfg config.Physics) *rover.World {
	world := rover.NewWorld(cfg.GravityVec(), cfg.Substeps)
	world.Workers = max(1, cfg.Workers)
	return world
}

func provideScene(cfg config.Config, reg *registry.Registry, logger *zap.Logger) (*layout.Scene, error) {
	manifest := layout.Default()
	if cfg.Layout != "" {
		var err error
		if manifest, err = layout.LoadFile(cfg.Layout); err != nil {
			return nil, err
		}
	}

	s, err := layout.Build(manifest, scene.NewNode("scene", nil), reg, logger)
	if err != nil {
		return nil, err
	}
	if s.Chassis == nil {
		return nil, layout.ErrNoVehicle
	}
	return s, nil
}

func provideVehicle(reg *registry.Registry, s *layout.Scene, cfg config.Vehicle, logger *zap.Logger) (*vehicle.Model, error) {
	return vehicle.New(reg, s.Chassis, s.Wheels, cfg, logger)
}

func provideHub(source *input.Source, logger *zap.Logger) (*telemetry.Hub, func()) {
	hub := telemetry.NewHub(source, logger)
	return hub, hub.Close
}

// provideHands and providePublisher return nil interfaces, not a nil *Hub,
// when telemetry is off.
func provideHands(cfg config.Telemetry, hub *telemetry.Hub) frame.HandTracker {
	if !cfg.Enabled {
		return nil
	}
	return hub
}

func providePublisher(cfg config.Telemetry, hub *telemetry.Hub) frame.Publisher {
	if !cfg.Enabled {
		return nil
	}
	return hub
}

type App struct {
	cfg    config.Config
	driver *frame.Driver
	hub    *telemetry.Hub
	logger *zap.Logger
}

func newApp(cfg config.Config, driver *frame.Driver, hub *telemetry.Hub, logger *zap.Logger) *App {
	return &App{cfg: cfg, driver: driver, hub: hub, logger: logger}
}

// Run drives the frames, and serves telemetry when enabled, until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Frame.TickRate <= 0 {
		return fmt.Errorf("%w: frame.tickRate must be positive", config.ErrInvalid)
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Telemetry.Enabled {
		g.Go(func() error {
			return a.hub.ListenAndServe(ctx, a.cfg.Telemetry.Address)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / a.cfg.Frame.TickRate))
		defer ticker.Stop()
		return a.driver.Run(ctx, ticker.C)
	})

	a.logger.Info("rover started",
		zap.Float64("tickRate", a.cfg.Frame.TickRate),
		zap.Bool("telemetry", a.cfg.Telemetry.Enabled))
	return g.Wait()
}
