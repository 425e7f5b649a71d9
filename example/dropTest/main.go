// dropTest drops the default props on the floor, drives the car into the
// cones and prints what happened.
package main

import (
	"fmt"
	"os"

	"github.com/akmonengine/rover"
	"github.com/akmonengine/rover/config"
	"github.com/akmonengine/rover/frame"
	"github.com/akmonengine/rover/input"
	"github.com/akmonengine/rover/registry"
	"github.com/akmonengine/rover/scene"
	"github.com/akmonengine/rover/scene/layout"
	"github.com/akmonengine/rover/vehicle"
)

const dt = 1.0 / 60.0

type phase struct {
	name    string
	seconds float64
	flags   input.Flags
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()

	world := rover.NewWorld(cfg.Physics.GravityVec(), cfg.Physics.Substeps)
	world.Events.Subscribe(rover.ON_SLEEP, func(event rover.Event) {
		fmt.Printf("  body asleep at %v\n", event.(rover.SleepEvent).Body.Transform.Position)
	})

	reg := registry.New(world, nil)
	s, err := layout.Build(layout.Default(), scene.NewNode("scene", nil), reg, nil)
	if err != nil {
		return err
	}
	car, err := vehicle.New(reg, s.Chassis, s.Wheels, cfg.Vehicle, nil)
	if err != nil {
		return err
	}

	source := input.NewSource()
	driver, err := frame.New(frame.Deps{
		Registry: reg,
		Shaper:   input.NewShaper(cfg.Shaper),
		Vehicle:  car,
		Input:    source,
	}, cfg.Frame, nil)
	if err != nil {
		return err
	}

	phases := []phase{
		{"settle", 2, input.Flags{}},
		{"forward", 2, input.Flags{Forward: true}},
		{"turn left", 1, input.Flags{Forward: true, Left: true}},
		{"brake", 1.5, input.Flags{Brake: true}},
		{"reset props", 0.1, input.Flags{ResetObjects: true}},
		{"reset car", 0.1, input.Flags{Reset: true}},
	}

	for _, p := range phases {
		fmt.Printf("== %s (%.1fs)\n", p.name, p.seconds)
		source.Publish(p.flags)

		contacts := 0
		var last frame.Result
		for range int(p.seconds / dt) {
			last = driver.Frame(dt)
			contacts += last.Contacts
		}

		chassis := car.Chassis().BodyPose()
		fmt.Printf("  t=%.2fs speed=%.2fm/s chassis=%.3v contacts=%d\n", driver.Time(), last.Speed, chassis.Position, contacts)
	}

	fmt.Println("== props")
	for _, object := range s.Objects {
		fmt.Printf("  %-6s %.3v sleeping=%v\n", object.Node.Name, object.Body.Transform.Position, object.Body.IsSleeping)
	}
	return nil
}
