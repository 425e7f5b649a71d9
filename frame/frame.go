// Package frame runs the sandbox one frame at a time: physics, sync, hands,
// input shaping and the vehicle, always in that order.
package frame

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/akmonengine/rover"
	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/config"
	"github.com/akmonengine/rover/input"
	"github.com/akmonengine/rover/interaction"
	"github.com/akmonengine/rover/internal/logging"
	"github.com/akmonengine/rover/registry"
	"github.com/akmonengine/rover/scene"
	"github.com/akmonengine/rover/telemetry"
	"github.com/akmonengine/rover/vehicle"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var ErrMissingDependency = errors.New("missing frame dependency")

// HandTracker reports the world pose of the hand collision points.
type HandTracker interface {
	HandPose(hand scene.Hand) (scene.Pose, bool)
}

type Publisher interface {
	Publish(snapshot telemetry.Snapshot)
}

// Deps are the collaborators of a frame. Interaction, Vehicle, Hands,
// Publisher and Meter may be nil.
type Deps struct {
	Registry    *registry.Registry
	Interaction *interaction.Controller
	Shaper      *input.Shaper
	Vehicle     *vehicle.Model
	Input       *input.Source
	Hands       HandTracker
	Publisher   Publisher
	Meter       metric.Meter
}

// Result tells what a frame did.
type Result struct {
	Frame  uint64
	Dt     float64
	Paused bool

	Steps    int
	Contacts int
	Signal   input.ControlSignal
	Speed    float64

	Grabs        int
	Releases     int
	PropsReset   int
	DebugToggled bool
}

// Driver is not safe for concurrent use, except SetPaused and Paused.
type Driver struct {
	deps    Deps
	cfg     config.Frame
	logger  *zap.Logger
	metrics *metrics

	paused atomic.Bool

	frame       uint64
	time        float64
	accumulator float64
	previous    input.Flags
	contacts    int

	lastToggle float64
	toggled    bool
}

func New(deps Deps, cfg config.Frame, logger *zap.Logger) (*Driver, error) {
	switch {
	case deps.Registry == nil:
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	case deps.Shaper == nil:
		return nil, fmt.Errorf("%w: shaper", ErrMissingDependency)
	case deps.Input == nil:
		return nil, fmt.Errorf("%w: input", ErrMissingDependency)
	}

	m, err := newMetrics(deps.Meter)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		deps:    deps,
		cfg:     cfg,
		logger:  logging.OrNop(logger),
		metrics: m,
	}

	deps.Registry.World().Events.Subscribe(rover.COLLISION_ENTER, func(event rover.Event) {
		d.contacts++
		if e, ok := event.(rover.CollisionEnterEvent); ok && d.logger.Core().Enabled(zap.DebugLevel) {
			d.logger.Debug("collision enter", zap.String("a", d.name(e.BodyA)), zap.String("b", d.name(e.BodyB)))
		}
	})

	if deps.Vehicle != nil && deps.Interaction != nil {
		// suspension rays go through the hands
		deps.Vehicle.Controller().Filter = func(body *actor.RigidBody) bool {
			return !deps.Interaction.IsProxy(body)
		}
	}

	return d, nil
}

func (d *Driver) name(body *actor.RigidBody) string {
	if object, ok := d.deps.Registry.ByBody(body); ok {
		return object.Node.Name
	}
	return "untracked"
}

func (d *Driver) SetPaused(paused bool) {
	if d.paused.Swap(paused) != paused {
		d.logger.Info("simulation paused", zap.Bool("paused", paused))
	}
}

func (d *Driver) Paused() bool {
	return d.paused.Load()
}

// Frames counts the frames run, paused ones excluded.
func (d *Driver) Frames() uint64 {
	return d.frame
}

// Time is the simulated time, in seconds.
func (d *Driver) Time() float64 {
	return d.time
}

// Frame runs one frame of dt seconds. dt is clamped to the configured
// maximum, a negative or NaN dt counts as 0.
func (d *Driver) Frame(dt float64) Result {
	if math.IsNaN(dt) || dt < 0 {
		dt = 0
	}
	dt = math.Min(dt, d.cfg.MaxStep)

	if d.paused.Load() {
		return Result{Frame: d.frame, Paused: true}
	}

	ctx := context.Background()
	d.frame++
	d.time += dt
	result := Result{Frame: d.frame, Dt: dt}

	flags := d.deps.Input.Latest()

	d.contacts = 0
	result.Steps = d.step(dt)
	result.Contacts = d.contacts
	d.deps.Registry.Sync()

	if d.deps.Interaction != nil {
		result.Grabs, result.Releases = d.interact(ctx, flags, dt)
	}

	result.Signal = d.deps.Shaper.Update(flags)
	if flags.Debug && !d.previous.Debug {
		result.DebugToggled = d.toggleDebug()
	}
	if flags.ResetObjects {
		result.PropsReset = d.resetProps(!d.previous.ResetObjects)
	}

	if v := d.deps.Vehicle; v != nil {
		v.Apply(result.Signal)
		v.Update(dt)
		v.SyncWheels(dt)
		result.Speed = v.Speed()
	}

	d.record(ctx, result)
	d.publish(result)
	d.previous = flags
	return result
}

func (d *Driver) step(dt float64) int {
	if d.cfg.FixedStep <= 0 {
		if dt <= 0 {
			return 0
		}
		d.deps.Registry.Step(dt)
		return 1
	}

	d.accumulator += dt
	steps := 0
	for d.accumulator >= d.cfg.FixedStep && steps < max(1, d.cfg.MaxFixedSteps) {
		d.deps.Registry.Step(d.cfg.FixedStep)
		d.accumulator -= d.cfg.FixedStep
		steps++
	}

	if d.accumulator >= d.cfg.FixedStep {
		d.logger.Debug("physics behind, backlog dropped", zap.Float64("backlog", d.accumulator))
		d.accumulator = math.Mod(d.accumulator, d.cfg.FixedStep)
	}
	return steps
}

// interact turns squeeze flag changes into squeeze events, after the hand
// poses of this frame are known.
func (d *Driver) interact(ctx context.Context, flags input.Flags, dt float64) (grabs, releases int) {
	hands := d.deps.Interaction

	if d.deps.Hands != nil {
		for _, hand := range scene.Hands {
			if pose, ok := d.deps.Hands.HandPose(hand); ok {
				hands.SetHandPose(hand, pose)
			}
		}
	}

	squeezes := [...]struct {
		hand        scene.Hand
		now, before bool
	}{
		{scene.Left, flags.LeftSqueeze, d.previous.LeftSqueeze},
		{scene.Right, flags.RightSqueeze, d.previous.RightSqueeze},
	}
	for _, s := range squeezes {
		attrs := metric.WithAttributes(attribute.String("hand", s.hand.String()))
		switch {
		case s.now && !s.before:
			if _, ok := hands.SqueezeBegin(s.hand); ok {
				grabs++
				d.metrics.grabs.Add(ctx, 1, attrs)
			}
		case !s.now && s.before:
			if _, ok := hands.SqueezeEnd(s.hand); ok {
				releases++
				d.metrics.releases.Add(ctx, 1, attrs)
			}
		}
	}

	hands.Update(dt)
	return grabs, releases
}

// toggleDebug ignores presses closer than the cooldown, in simulated time.
func (d *Driver) toggleDebug() bool {
	if d.deps.Vehicle == nil {
		return false
	}
	if d.toggled && d.time-d.lastToggle < d.cfg.DebugCooldown.Seconds() {
		return false
	}

	d.deps.Vehicle.ToggleDebug()
	d.lastToggle = d.time
	d.toggled = true
	return true
}

// resetProps puts every dynamic object back at its origin, except the
// chassis and what the hands hold.
func (d *Driver) resetProps(pressed bool) int {
	var chassis *registry.TrackedObject
	if d.deps.Vehicle != nil {
		chassis = d.deps.Vehicle.Chassis()
	}

	count := d.deps.Registry.ResetAll(func(object *registry.TrackedObject) bool {
		return object != chassis && !object.Held()
	})
	if count > 0 {
		d.deps.Registry.Sync()
	}
	if pressed {
		d.logger.Info("props reset", zap.Int("count", count))
	}
	return count
}

func (d *Driver) record(ctx context.Context, result Result) {
	d.metrics.frames.Add(ctx, 1)
	d.metrics.steps.Add(ctx, int64(result.Steps))
	d.metrics.contacts.Add(ctx, int64(result.Contacts))
	d.metrics.frameDt.Record(ctx, result.Dt)

	if result.Signal.Reset {
		d.metrics.resets.Add(ctx, 1, metric.WithAttributes(attribute.String("target", "vehicle")))
	}
	if result.PropsReset > 0 {
		d.metrics.resets.Add(ctx, 1, metric.WithAttributes(attribute.String("target", "props")))
	}
	if d.deps.Vehicle != nil {
		d.metrics.speed.Record(ctx, result.Speed)
	}
}

func (d *Driver) publish(result Result) {
	if d.deps.Publisher == nil {
		return
	}

	snapshot := telemetry.Snapshot{
		Frame: result.Frame,
		Time:  d.time,
		Speed: result.Speed,
	}
	if v := d.deps.Vehicle; v != nil {
		snapshot.Chassis = telemetry.PoseFrom(v.Chassis().BodyPose())
		for i, pose := range v.WheelPoses() {
			if i < len(snapshot.Wheels) {
				snapshot.Wheels[i] = telemetry.PoseFrom(pose)
			}
		}
	}
	if hands := d.deps.Interaction; hands != nil {
		if object, ok := hands.Held(scene.Left); ok {
			snapshot.Held.Left = object.Node.Name
		}
		if object, ok := hands.Held(scene.Right); ok {
			snapshot.Held.Right = object.Node.Name
		}
	}

	d.deps.Publisher.Publish(snapshot)
}

// Run drives a frame per tick, with the wall clock time elapsed since the
// previous tick, until ctx is cancelled or ticks is closed.
func (d *Driver) Run(ctx context.Context, ticks <-chan time.Time) error {
	d.logger.Info("frame loop started")
	defer d.logger.Info("frame loop stopped", zap.Uint64("frames", d.frame))

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			dt := 0.0
			if !last.IsZero() {
				dt = now.Sub(last).Seconds()
			}
			last = now
			d.Frame(dt)
		}
	}
}
