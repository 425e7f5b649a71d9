//go:build wireinject
// +build wireinject

package main

import (
	"github.com/akmonengine/rover/config"
	"github.com/akmonengine/rover/frame"
	"github.com/akmonengine/rover/input"
	"github.com/akmonengine/rover/interaction"
	"github.com/akmonengine/rover/registry"
	"github.com/google/wire"
)

func initializeApp(cfg config.Config) (*App, func(), error) {
	wire.Build(
		wire.FieldsOf(new(config.Config), "Physics", "Frame", "Vehicle", "Shaper", "Interaction", "Telemetry"),
		provideLogger,
		provideWorld,
		registry.New,
		provideScene,
		provideVehicle,
		interaction.New,
		input.NewShaper,
		input.NewSource,
		provideHub,
		provideHands,
		providePublisher,
		wire.Struct(new(frame.Deps), "Registry", "Interaction", "Shaper", "Vehicle", "Input", "Hands", "Publisher"),
		frame.New,
		newApp,
	)
	return nil, nil, nil
}
