// Package vehicle drives the sandbox car: a raycast suspension controller
// and the model binding it to the chassis and wheel nodes.
package vehicle

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/config"
	"github.com/akmonengine/rover/input"
	"github.com/akmonengine/rover/internal/logging"
	"github.com/akmonengine/rover/registry"
	"github.com/akmonengine/rover/scene"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

var (
	ErrNoChassis  = errors.New("vehicle has no chassis")
	ErrWheelCount = errors.New("vehicle needs one wheel node per connection point")
)

// Wheel order of the connection points
const (
	FrontLeft = iota
	FrontRight
	RearLeft
	RearRight
)

// Model owns the chassis body and derives the wheel visuals from the controller.
type Model struct {
	controller *Controller
	chassis    *registry.TrackedObject
	wheels     []*scene.Node

	cfg   config.Vehicle
	spawn scene.Pose
	roll  []float64

	debug        []*scene.Node
	debugVisible bool

	logger *zap.Logger
}

// New builds the chassis body at the configured spawn pose and hangs one
// wheel per connection point.
func New(reg *registry.Registry, chassisNode *scene.Node, wheelNodes []*scene.Node, cfg config.Vehicle, logger *zap.Logger) (*Model, error) {
	logger = logging.OrNop(logger)

	if chassisNode == nil {
		return nil, ErrNoChassis
	}
	connections := cfg.Connections()
	if len(wheelNodes) != len(connections) {
		return nil, fmt.Errorf("%w: %d wheels for %d points", ErrWheelCount, len(wheelNodes), len(connections))
	}

	bounds, ok := chassisNode.LocalBounds()
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrNoChassis, registry.ErrNoGeometry)
	}
	scale := chassisNode.WorldScale()
	half := bounds.HalfExtents()
	half = mgl64.Vec3{
		math.Abs(half.X() * scale.X()),
		math.Abs(half.Y() * scale.Y()),
		math.Abs(half.Z() * scale.Z()),
	}

	radii := make([]float64, len(wheelNodes))
	wheelBounds := make([]actor.AABB, len(wheelNodes))
	for i, node := range wheelNodes {
		b, ok := node.LocalBounds()
		if !ok {
			return nil, fmt.Errorf("wheel %d %q: %w", i, node.Name, registry.ErrNoGeometry)
		}
		wheelBounds[i] = b
		radii[i] = (b.Max.Y() - b.Min.Y()) / 2 * math.Abs(node.WorldScale().Y())
	}

	position, rotation := cfg.Spawn()
	spawn := scene.Pose{Position: position, Rotation: rotation}

	body := actor.NewRigidBody(actor.NewTransformAt(position, rotation), &actor.Box{HalfExtents: half}, actor.BodyTypeDynamic, registry.DefaultDensity)
	body.SetMass(cfg.ChassisMass)
	chassisNode.SetWorldPose(spawn)

	chassis := reg.Track(chassisNode, body)
	chassis.Manual = true
	chassis.Grabbable = true

	m := &Model{
		controller: NewController(reg.World(), body),
		chassis:    chassis,
		wheels:     wheelNodes,
		cfg:        cfg,
		spawn:      spawn,
		roll:       make([]float64, len(wheelNodes)),
		logger:     logger,
	}

	for i, node := range wheelNodes {
		wheel := DefaultWheelConfig(connections[i], cfg.WheelRestLength, radii[i])
		wheel.SuspensionStiffness = cfg.SuspensionStiffness
		wheel.MaxSuspensionTravel = cfg.MaxSuspensionTravel
		wheel.SuspensionCompression = cfg.SuspensionCompression
		wheel.SuspensionRelaxation = cfg.SuspensionRelaxation
		wheel.FrictionSlip = cfg.FrictionSlip
		wheel.MaxSuspensionForce = cfg.MaxSuspensionForce
		wheel.SideFrictionStiffness = cfg.SideFrictionStiffness
		m.controller.AddWheel(wheel)

		local := wheelBounds[i]
		m.addDebugNode(node, node.Name+".debug", scene.SphereGeometry((local.Max.Y()-local.Min.Y())/2, 12), local.Center())
	}
	size := bounds.HalfExtents().Mul(2)
	m.addDebugNode(chassisNode, chassisNode.Name+".debug", scene.BoxGeometry(size.X(), size.Y(), size.Z()), bounds.Center())

	m.SyncWheels(0)

	logger.Info("vehicle ready",
		zap.String("chassis", chassisNode.Name),
		zap.Int("wheels", len(wheelNodes)),
		zap.Float64("mass", body.Mass()),
		zap.String("drive", cfg.DriveWheels))
	return m, nil
}

func (m *Model) addDebugNode(parent *scene.Node, name string, geometry *scene.Geometry, center mgl64.Vec3) {
	node := scene.NewNode(name, geometry)
	node.Position = center
	node.Visible = false
	parent.Add(node)
	m.debug = append(m.debug, node)
}

func (m *Model) Controller() *Controller {
	return m.controller
}

func (m *Model) Chassis() *registry.TrackedObject {
	return m.chassis
}

func (m *Model) Spawn() scene.Pose {
	return m.spawn
}

// SetSteering turns the front wheels only.
func (m *Model) SetSteering(angle float64) {
	m.controller.SetSteering(FrontLeft, angle)
	m.controller.SetSteering(FrontRight, angle)
}

// SetEngineForce drives the wheels picked by the drive policy, the others get 0.
func (m *Model) SetEngineForce(force float64) {
	for i := range m.controller.NumWheels() {
		front := i == FrontLeft || i == FrontRight
		driven := m.cfg.DriveWheels == config.DriveAll ||
			(m.cfg.DriveWheels == config.DriveFront && front) ||
			(m.cfg.DriveWheels == config.DriveRear && !front)

		if driven {
			m.controller.SetEngineForce(i, force)
		} else {
			m.controller.SetEngineForce(i, 0)
		}
	}
}

func (m *Model) SetBrake(force float64) {
	for i := range m.controller.NumWheels() {
		m.controller.SetBrake(i, force)
	}
}

// Reset teleports the chassis to its spawn pose, at rest.
func (m *Model) Reset() {
	body := m.chassis.Body
	body.SetTranslation(m.spawn.Position)
	body.SetRotation(m.spawn.Rotation)
	body.SetLinearVelocity(mgl64.Vec3{})
	body.SetAngularVelocity(mgl64.Vec3{})
	m.chassis.Node.SetWorldPose(m.spawn)

	m.logger.Debug("vehicle reset", zap.Any("position", m.spawn.Position))
}

// Apply feeds a shaped control signal. The reset goes first so the forces
// land on a body at rest.
func (m *Model) Apply(signal input.ControlSignal) {
	if signal.Reset {
		m.Reset()
	}
	m.SetEngineForce(signal.EngineForce)
	m.SetBrake(signal.BrakeForce)
	m.SetSteering(signal.SteeringAngle)
}

// Update solves the suspension and writes the chassis node. A held chassis
// is left to the hand.
func (m *Model) Update(dt float64) {
	if m.chassis.Held() {
		return
	}

	m.controller.UpdateVehicle(dt)
	m.chassis.Node.SetWorldPose(m.chassis.BodyPose())
}

// SyncWheels places the wheel nodes under the chassis and rolls them by the
// distance travelled along the chassis forward axis.
func (m *Model) SyncWheels(dt float64) {
	chassis := m.chassis.BodyPose()
	forwardSpeed := m.chassis.Body.Velocity.Dot(chassis.Rotation.Rotate(AxisForward))

	for i, node := range m.wheels {
		radius := m.controller.Radius(i)
		if radius > 0 {
			m.roll[i] += forwardSpeed * dt * m.cfg.RollRateFactor / radius
		}
		node.SetWorldPose(m.wheelPose(chassis, i))
	}
}

func (m *Model) wheelPose(chassis scene.Pose, i int) scene.Pose {
	local := m.controller.ConnectionPoint(i).Add(mgl64.Vec3{0, -m.controller.SuspensionLength(i), 0})
	steering := mgl64.QuatRotate(m.controller.Steering(i), AxisUp)
	rolling := mgl64.QuatRotate(m.roll[i], mgl64.Vec3{-1, 0, 0})

	return scene.Pose{
		Position: chassis.Position.Add(chassis.Rotation.Rotate(local)),
		Rotation: chassis.Rotation.Mul(steering).Mul(rolling).Normalize(),
	}
}

// Speed is the forward speed of the last solve, in m/s.
func (m *Model) Speed() float64 {
	return m.controller.CurrentSpeed()
}

// WheelPoses returns the world poses of the wheel nodes
func (m *Model) WheelPoses() []scene.Pose {
	poses := make([]scene.Pose, len(m.wheels))
	for i, node := range m.wheels {
		poses[i] = node.WorldPose()
	}
	return poses
}

// Roll returns the accumulated rolling angle of a wheel
func (m *Model) Roll(i int) float64 {
	if i < 0 || i >= len(m.roll) {
		return 0
	}
	return m.roll[i]
}

func (m *Model) ToggleDebug() {
	m.debugVisible = !m.debugVisible
	for _, node := range m.debug {
		node.Visible = m.debugVisible
	}
	m.logger.Debug("vehicle debug toggled", zap.Bool("visible", m.debugVisible))
}

func (m *Model) DebugVisible() bool {
	return m.debugVisible
}
