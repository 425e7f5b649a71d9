package vehicle

import (
	"math"

	"github.com/akmonengine/rover"
	"github.com/akmonengine/rover/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Chassis space axes
var (
	AxisUp      = mgl64.Vec3{0, 1, 0}
	AxisForward = mgl64.Vec3{0, 0, 1}
)

// WheelConfig describes a wheel at creation. Points and axes are in chassis space.
type WheelConfig struct {
	ConnectionPoint mgl64.Vec3
	Direction       mgl64.Vec3
	Axle            mgl64.Vec3
	RestLength      float64
	Radius          float64

	SuspensionStiffness   float64
	MaxSuspensionTravel   float64
	SuspensionCompression float64
	SuspensionRelaxation  float64
	MaxSuspensionForce    float64
	FrictionSlip          float64
	SideFrictionStiffness float64
	// RollInfluence scales the height of the friction application point, 1 is the contact point.
	RollInfluence float64
}

// DefaultWheelConfig hangs a wheel down, rolling around -X.
func DefaultWheelConfig(connection mgl64.Vec3, restLength, radius float64) WheelConfig {
	return WheelConfig{
		ConnectionPoint:       connection,
		Direction:             mgl64.Vec3{0, -1, 0},
		Axle:                  mgl64.Vec3{-1, 0, 0},
		RestLength:            restLength,
		Radius:                radius,
		SuspensionStiffness:   5.88,
		MaxSuspensionTravel:   5,
		SuspensionCompression: 0.83,
		SuspensionRelaxation:  0.88,
		MaxSuspensionForce:    6000,
		FrictionSlip:          10.5,
		SideFrictionStiffness: 1,
		RollInfluence:         0.1,
	}
}

// Wheel is a suspension ray and its last solve.
type Wheel struct {
	WheelConfig

	steering    float64
	engineForce float64
	brake       float64

	suspensionLength float64
	suspensionForce  float64
	relativeVelocity float64
	inContact        bool
	contactPoint     mgl64.Vec3
	contactNormal    mgl64.Vec3
	groundBody       *actor.RigidBody

	// world space, refreshed each solve
	origin    mgl64.Vec3
	direction mgl64.Vec3
	axle      mgl64.Vec3
	forward   mgl64.Vec3
	side      mgl64.Vec3
}

// Controller is a raycast vehicle: each wheel is a spring probing the ground
// under the chassis instead of a body of its own.
type Controller struct {
	world   *rover.World
	chassis *actor.RigidBody
	wheels  []*Wheel

	// Filter may reject bodies the suspension rays must go through. The chassis is always ignored.
	Filter func(*actor.RigidBody) bool

	speed  float64
	solved bool
}

func NewController(world *rover.World, chassis *actor.RigidBody) *Controller {
	return &Controller{
		world:   world,
		chassis: chassis,
	}
}

func (c *Controller) Chassis() *actor.RigidBody {
	return c.chassis
}

// AddWheel returns the index of the new wheel
func (c *Controller) AddWheel(cfg WheelConfig) int {
	if cfg.Direction.LenSqr() < 1e-12 {
		cfg.Direction = mgl64.Vec3{0, -1, 0}
	}
	if cfg.Axle.LenSqr() < 1e-12 {
		cfg.Axle = mgl64.Vec3{-1, 0, 0}
	}
	cfg.Direction = cfg.Direction.Normalize()
	cfg.Axle = cfg.Axle.Normalize()

	c.wheels = append(c.wheels, &Wheel{WheelConfig: cfg})
	return len(c.wheels) - 1
}

func (c *Controller) NumWheels() int {
	return len(c.wheels)
}

func (c *Controller) wheel(i int) (*Wheel, bool) {
	if i < 0 || i >= len(c.wheels) {
		return nil, false
	}
	return c.wheels[i], true
}

// SetSteering sets the steering angle of a wheel, in radians around the chassis up axis.
func (c *Controller) SetSteering(i int, angle float64) {
	if w, ok := c.wheel(i); ok {
		w.steering = angle
	}
}

func (c *Controller) SetEngineForce(i int, force float64) {
	if w, ok := c.wheel(i); ok {
		w.engineForce = force
	}
}

// SetBrake sets the largest impulse stopping the wheel when no engine force is applied.
func (c *Controller) SetBrake(i int, brake float64) {
	if w, ok := c.wheel(i); ok {
		w.brake = math.Abs(brake)
	}
}

func (c *Controller) EngineForce(i int) float64 {
	if w, ok := c.wheel(i); ok {
		return w.engineForce
	}
	return 0
}

func (c *Controller) Brake(i int) float64 {
	if w, ok := c.wheel(i); ok {
		return w.brake
	}
	return 0
}

// Steering returns the angle used by the last solve, 0 before the first one.
func (c *Controller) Steering(i int) float64 {
	if w, ok := c.wheel(i); ok && c.solved {
		return w.steering
	}
	return 0
}

// SuspensionLength returns 0 before the first solve
func (c *Controller) SuspensionLength(i int) float64 {
	if w, ok := c.wheel(i); ok && c.solved {
		return w.suspensionLength
	}
	return 0
}

func (c *Controller) SuspensionForce(i int) float64 {
	if w, ok := c.wheel(i); ok && c.solved {
		return w.suspensionForce
	}
	return 0
}

func (c *Controller) InContact(i int) bool {
	if w, ok := c.wheel(i); ok && c.solved {
		return w.inContact
	}
	return false
}

// ContactPoint returns the world point touched by the wheel ray
func (c *Controller) ContactPoint(i int) (mgl64.Vec3, bool) {
	if w, ok := c.wheel(i); ok && c.solved && w.inContact {
		return w.contactPoint, true
	}
	return mgl64.Vec3{}, false
}

func (c *Controller) ConnectionPoint(i int) mgl64.Vec3 {
	if w, ok := c.wheel(i); ok {
		return w.ConnectionPoint
	}
	return mgl64.Vec3{}
}

func (c *Controller) Radius(i int) float64 {
	if w, ok := c.wheel(i); ok {
		return w.Radius
	}
	return 0
}

// CurrentSpeed is the chassis velocity along its forward axis, in m/s, as of the last solve.
func (c *Controller) CurrentSpeed() float64 {
	return c.speed
}

// UpdateVehicle casts the suspension rays and applies the suspension and
// friction impulses to the chassis for a dt seconds frame.
func (c *Controller) UpdateVehicle(dt float64) {
	if dt <= 0 || !c.chassis.Enabled() {
		return
	}

	rotation := c.chassis.Transform.Rotation
	c.speed = c.chassis.Velocity.Dot(rotation.Rotate(AxisForward))

	inContact := 0
	for _, w := range c.wheels {
		c.rayCast(w)
		if w.inContact {
			inContact++
		}
	}
	c.solved = true

	mass := c.chassis.Mass()
	for _, w := range c.wheels {
		w.suspensionForce = suspensionForce(w, mass)
		if w.inContact {
			impulse := w.contactNormal.Mul(w.suspensionForce * dt)
			c.chassis.ApplyImpulseAtPoint(impulse, w.contactPoint)
		}
	}

	if inContact > 0 {
		c.applyFriction(dt, inContact)
	}
}

func (c *Controller) rayCast(w *Wheel) {
	transform := c.chassis.Transform
	steering := mgl64.QuatRotate(w.steering, AxisUp)

	w.origin = transform.Point(w.ConnectionPoint)
	w.direction = transform.Rotation.Rotate(w.Direction)
	w.axle = transform.Rotation.Rotate(steering.Rotate(w.Axle))

	maxLength := math.Max(0, w.RestLength+w.MaxSuspensionTravel)
	rayLength := maxLength + w.Radius

	hit, ok := c.world.CastRay(w.origin, w.direction, rayLength, func(body *actor.RigidBody) bool {
		if body == c.chassis {
			return false
		}
		return c.Filter == nil || c.Filter(body)
	})
	if !ok {
		w.inContact = false
		w.groundBody = nil
		w.suspensionLength = w.RestLength
		w.relativeVelocity = 0
		w.contactNormal = w.direction.Mul(-1)
		w.contactPoint = w.origin.Add(w.direction.Mul(rayLength))
		return
	}

	w.inContact = true
	w.groundBody = hit.Body
	w.contactPoint = hit.Point
	w.contactNormal = hit.Normal

	minLength := math.Max(0, w.RestLength-w.MaxSuspensionTravel)
	w.suspensionLength = mgl64.Clamp(hit.Distance-w.Radius, minLength, maxLength)

	denominator := w.contactNormal.Dot(w.direction)
	velocity := c.chassis.VelocityAtPoint(w.contactPoint)
	if w.groundBody.BodyType != actor.BodyTypeFixed {
		velocity = velocity.Sub(w.groundBody.VelocityAtPoint(w.contactPoint))
	}
	if denominator >= -0.1 {
		// ray grazing the ground
		w.relativeVelocity = 0
	} else {
		w.relativeVelocity = w.contactNormal.Dot(velocity) * (-1 / denominator)
	}

	// friction axes, on the contact plane
	w.side = w.axle.Sub(w.contactNormal.Mul(w.axle.Dot(w.contactNormal)))
	if w.side.LenSqr() > 1e-12 {
		w.side = w.side.Normalize()
	}
	w.forward = w.contactNormal.Cross(w.axle)
	if w.forward.LenSqr() > 1e-12 {
		w.forward = w.forward.Normalize()
	}
}

// suspensionForce is a spring towards the rest length, damped with the
// compression or relaxation coefficient. Stiffness is per unit of chassis mass.
func suspensionForce(w *Wheel, mass float64) float64 {
	if !w.inContact {
		return 0
	}

	force := w.SuspensionStiffness * (w.RestLength - w.suspensionLength)
	damping := w.SuspensionRelaxation
	if w.relativeVelocity < 0 {
		damping = w.SuspensionCompression
	}
	force -= damping * w.relativeVelocity
	force *= mass

	return mgl64.Clamp(force, 0, w.MaxSuspensionForce)
}

func (c *Controller) applyFriction(dt float64, inContact int) {
	share := 1 / float64(inContact)
	up := c.chassis.Transform.Rotation.Rotate(AxisUp)

	forwardImpulses := make([]float64, len(c.wheels))
	sideImpulses := make([]float64, len(c.wheels))

	for i, w := range c.wheels {
		if !w.inContact {
			continue
		}

		velocity := c.relativeVelocityAt(w)
		sideImpulses[i] = -velocity.Dot(w.side) / c.denominator(w, w.side) * share * w.SideFrictionStiffness

		if w.engineForce != 0 {
			forwardImpulses[i] = w.engineForce * dt
		} else {
			rolling := -velocity.Dot(w.forward) / c.denominator(w, w.forward) * share
			forwardImpulses[i] = mgl64.Clamp(rolling, -w.brake, w.brake)
		}

		// the tyre slips past this
		maxImpulse := w.FrictionSlip * w.suspensionForce * dt
		if total := math.Hypot(forwardImpulses[i], sideImpulses[i]); total > maxImpulse && total > 0 {
			scale := maxImpulse / total
			forwardImpulses[i] *= scale
			sideImpulses[i] *= scale
		}
	}

	for i, w := range c.wheels {
		if !w.inContact {
			continue
		}

		impulse := w.forward.Mul(forwardImpulses[i]).Add(w.side.Mul(sideImpulses[i]))
		if impulse.LenSqr() == 0 {
			continue
		}

		offset := w.contactPoint.Sub(c.chassis.Transform.Position)
		offset = offset.Sub(up.Mul(offset.Dot(up) * (1 - w.RollInfluence)))
		c.chassis.ApplyImpulseAtPoint(impulse, c.chassis.Transform.Position.Add(offset))

		if w.groundBody != nil && w.groundBody.BodyType == actor.BodyTypeDynamic {
			w.groundBody.ApplyImpulseAtPoint(impulse.Mul(-1), w.contactPoint)
		}
	}
}

func (c *Controller) relativeVelocityAt(w *Wheel) mgl64.Vec3 {
	velocity := c.chassis.VelocityAtPoint(w.contactPoint)
	if w.groundBody != nil && w.groundBody.BodyType != actor.BodyTypeFixed {
		velocity = velocity.Sub(w.groundBody.VelocityAtPoint(w.contactPoint))
	}
	return velocity
}

// denominator is the inverse effective mass of the chassis, and of a
// dynamic ground, along axis at the wheel contact.
func (c *Controller) denominator(w *Wheel, axis mgl64.Vec3) float64 {
	d := inverseEffectiveMass(c.chassis, w.contactPoint, axis)
	if w.groundBody != nil {
		d += inverseEffectiveMass(w.groundBody, w.contactPoint, axis)
	}
	if d < 1e-12 {
		return 1e-12
	}
	return d
}

func inverseEffectiveMass(body *actor.RigidBody, point, axis mgl64.Vec3) float64 {
	r := point.Sub(body.Transform.Position)
	angular := body.GetInverseInertiaWorld().Mul3x1(r.Cross(axis)).Cross(r).Dot(axis)
	return body.InverseMass() + angular
}
