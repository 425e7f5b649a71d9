package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/akmonengine/rover/config"
	"github.com/akmonengine/rover/scene/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.LogLevel = "error"
	return cfg
}

func TestInitializeApp(t *testing.T) {
	app, cleanup, err := initializeApp(testConfig())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, app.driver)
	assert.NotNil(t, app.hub)
}

func TestInitializeApp_MissingLayout(t *testing.T) {
	cfg := testConfig()
	cfg.Layout = "/nonexistent/layout.yaml"

	_, _, err := initializeApp(cfg)
	assert.Error(t, err)
}

func TestInitializeApp_LayoutWithoutVehicle(t *testing.T) {
	cfg := testConfig()
	cfg.Layout = t.TempDir() + "/empty.yaml"
	require.NoError(t, writeFile(cfg.Layout, "objects: []\n"))

	_, _, err := initializeApp(cfg)
	assert.ErrorIs(t, err, layout.ErrNoVehicle)
}

func TestTelemetryProviders(t *testing.T) {
	hub, cleanup := provideHub(nil, nil)
	defer cleanup()

	off := config.Telemetry{Enabled: false}
	assert.Nil(t, provideHands(off, hub))
	assert.Nil(t, providePublisher(off, hub))

	on := config.Telemetry{Enabled: true}
	assert.NotNil(t, provideHands(on, hub))
	assert.NotNil(t, providePublisher(on, hub))
}

func TestApp_Run(t *testing.T) {
	app, cleanup, err := initializeApp(testConfig())
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, app.Run(ctx))
	assert.Greater(t, app.driver.Frames(), uint64(0))
}

func TestApp_RunInvalidTickRate(t *testing.T) {
	app, cleanup, err := initializeApp(testConfig())
	require.NoError(t, err)
	defer cleanup()

	app.cfg.Frame.TickRate = 0
	assert.ErrorIs(t, app.Run(context.Background()), config.ErrInvalid)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
