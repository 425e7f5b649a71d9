// Command rover runs the sandbox headless: the physics world, the vehicle and
// the hands, driven by input and observed through the telemetry websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akmonengine/rover/config"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rover:", err)
		return 1
	}

	app, cleanup, err := initializeApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rover:", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		app.logger.Error("rover stopped", zap.Error(err))
		return 1
	}
	return 0
}
