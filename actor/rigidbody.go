package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeFixed bodies never move and behave as if their mass was infinite
	// (e.g., ground, walls, scanned room geometry)
	BodyTypeFixed

	// BodyTypeKinematicVelocity bodies move with their velocity, ignore gravity
	// and are not pushed back by contacts
	BodyTypeKinematicVelocity

	// BodyTypeKinematicPosition bodies are moved only by SetTranslation/SetRotation
	BodyTypeKinematicPosition
)

func (t BodyType) String() string {
	switch t {
	case BodyTypeDynamic:
		return "dynamic"
	case BodyTypeFixed:
		return "fixed"
	case BodyTypeKinematicVelocity:
		return "kinematicVelocity"
	case BodyTypeKinematicPosition:
		return "kinematicPosition"
	}
	return "unknown"
}

// IsKinematic reports whether the body is driven from outside the solver.
func (t BodyType) IsKinematic() bool {
	return t == BodyTypeKinematicVelocity || t == BodyTypeKinematicPosition
}

type Material struct {
	Density     float64
	mass        float64
	Restitution float64 // 0= no rebound, 1= perfect restitution

	StaticFriction  float64
	DynamicFriction float64
	LinearDamping   float64 // 0.0 - 1.0, usually around 0.01
	AngularDamping  float64 // 0.0 - 1.0, usually around 0.05
}

func (material Material) GetMass() float64 {
	return material.mass
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	// Linear motion
	PresolveVelocity mgl64.Vec3
	Velocity         mgl64.Vec3 // Linear velocity (m/s)

	// Angular motion
	PresolveAngularVelocity mgl64.Vec3
	AngularVelocity         mgl64.Vec3 // rad/s
	InertiaLocal            mgl64.Mat3
	InverseInertiaLocal     mgl64.Mat3

	IsSleeping bool
	SleepTimer float64

	// IsTrigger bodies report overlaps through events but get no contact response
	IsTrigger bool

	disabled bool

	// Physical properties
	Material Material
	BodyType BodyType

	// Collision shape
	Shape ShapeInterface
}

// NewRigidBody creates a new rigid body with the given properties.
// Mass is computed from the shape and density for every body type, so that a
// fixed or kinematic body can later be switched to dynamic.
func NewRigidBody(transform Transform, shape ShapeInterface, bodyType BodyType, density float64) *RigidBody {
	transform.Rotation = normalizeRotation(transform.Rotation)
	transform.InverseRotation = transform.Rotation.Inverse()

	rb := &RigidBody{
		PreviousTransform: transform,
		Transform:         transform,
		Shape:             shape,
		BodyType:          bodyType,
		Material: Material{
			Density: density,
			mass:    shape.ComputeMass(density),
		},
	}

	rb.InertiaLocal = shape.ComputeInertia(rb.Material.mass)
	rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
	rb.Shape.ComputeAABB(rb.Transform)

	return rb
}

// Mass returns the body mass, even for non-dynamic bodies.
func (rb *RigidBody) Mass() float64 {
	return rb.Material.mass
}

// SetMass overrides the mass computed from the density and rescales inertia.
func (rb *RigidBody) SetMass(mass float64) {
	if mass <= 0 || math.IsInf(mass, 0) || math.IsNaN(mass) {
		return
	}

	if unit := rb.Shape.ComputeMass(1); unit > 0 && !math.IsInf(unit, 0) {
		rb.Material.Density = mass / unit
	}
	rb.Material.mass = mass
	rb.InertiaLocal = rb.Shape.ComputeInertia(mass)
	rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
}

// InverseMass is the mass seen by the solver: zero for anything that is not dynamic.
func (rb *RigidBody) InverseMass() float64 {
	if rb.BodyType != BodyTypeDynamic {
		return 0
	}
	mass := rb.Material.mass
	if mass <= 0 || math.IsInf(mass, 1) || math.IsNaN(mass) {
		return 0
	}

	return 1.0 / mass
}

// Enabled reports whether the body takes part in the simulation.
func (rb *RigidBody) Enabled() bool {
	return !rb.disabled
}

// SetEnabled removes the body from (or restores it to) integration, broad phase and ray queries.
// Re-enabling seeds the previous pose with the current one, so the position delta
// accumulated while the body was disabled is not turned into a velocity.
func (rb *RigidBody) SetEnabled(enabled bool) {
	if enabled && rb.disabled {
		rb.PreviousTransform = rb.Transform
		rb.Shape.ComputeAABB(rb.Transform)
		rb.Awake()
	}
	rb.disabled = !enabled
}

// CanBeDynamic reports whether the shape has a finite mass. Triangle meshes
// never do.
func (rb *RigidBody) CanBeDynamic() bool {
	mass := rb.Material.mass
	return mass > 0 && !math.IsInf(mass, 1)
}

// SetBodyType switches the body between dynamic, fixed and kinematic control.
func (rb *RigidBody) SetBodyType(bodyType BodyType) {
	if rb.BodyType == bodyType {
		return
	}
	rb.BodyType = bodyType
	if bodyType == BodyTypeFixed || bodyType == BodyTypeKinematicPosition {
		rb.Velocity = mgl64.Vec3{}
		rb.AngularVelocity = mgl64.Vec3{}
	}
	rb.Awake()
}

// SetTranslation teleports the body. No velocity is derived from the jump.
func (rb *RigidBody) SetTranslation(position mgl64.Vec3) {
	rb.Transform.Position = position
	rb.PreviousTransform.Position = position
	rb.Shape.ComputeAABB(rb.Transform)
	rb.Awake()
}

// SetRotation teleports the body orientation. No angular velocity is derived from the jump.
func (rb *RigidBody) SetRotation(rotation mgl64.Quat) {
	rotation = normalizeRotation(rotation)
	rb.Transform.Rotation = rotation
	rb.Transform.InverseRotation = rotation.Inverse()
	rb.PreviousTransform.Rotation = rotation
	rb.PreviousTransform.InverseRotation = rb.Transform.InverseRotation
	rb.Shape.ComputeAABB(rb.Transform)
	rb.Awake()
}

func (rb *RigidBody) SetLinearVelocity(velocity mgl64.Vec3) {
	rb.Velocity = velocity
	rb.PresolveVelocity = velocity
	rb.Awake()
}

func (rb *RigidBody) SetAngularVelocity(velocity mgl64.Vec3) {
	rb.AngularVelocity = velocity
	rb.PresolveAngularVelocity = velocity
	rb.Awake()
}

// ApplyImpulse changes the linear velocity by impulse/mass. Only dynamic bodies respond.
func (rb *RigidBody) ApplyImpulse(impulse mgl64.Vec3) {
	invMass := rb.InverseMass()
	if invMass == 0 {
		return
	}
	rb.Awake()
	rb.Velocity = rb.Velocity.Add(impulse.Mul(invMass))
}

// ApplyTorqueImpulse changes the angular velocity by I⁻¹·impulse, in world space.
func (rb *RigidBody) ApplyTorqueImpulse(impulse mgl64.Vec3) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	rb.Awake()
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(impulse))
}

// ApplyImpulseAtPoint applies a linear impulse at a world point, producing torque
// around the body origin.
func (rb *RigidBody) ApplyImpulseAtPoint(impulse, point mgl64.Vec3) {
	rb.ApplyImpulse(impulse)
	rb.ApplyTorqueImpulse(point.Sub(rb.Transform.Position).Cross(impulse))
}

// VelocityAtPoint returns the velocity of the body material at a world point.
func (rb *RigidBody) VelocityAtPoint(point mgl64.Vec3) mgl64.Vec3 {
	return rb.Velocity.Add(rb.AngularVelocity.Cross(point.Sub(rb.Transform.Position)))
}

func (rb *RigidBody) TrySleep(dt float64, timethreshold float64, velocityThreshold float64) {
	if rb.BodyType != BodyTypeDynamic || rb.disabled {
		return
	}

	if rb.Velocity.Len() < velocityThreshold && rb.AngularVelocity.Len() < velocityThreshold {
		rb.SleepTimer += dt
		if rb.SleepTimer >= timethreshold {
			rb.Sleep()
		}
	} else {
		rb.Awake()
	}
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0

	rb.Shape.ComputeAABB(rb.Transform)
	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}

// Integrate predicts the next pose for one substep.
func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	if rb.disabled || rb.IsSleeping {
		return
	}

	rb.PreviousTransform = rb.Transform

	switch rb.BodyType {
	case BodyTypeFixed, BodyTypeKinematicPosition:
		rb.Shape.ComputeAABB(rb.Transform)
		return
	case BodyTypeDynamic:
		rb.Velocity = rb.Velocity.Add(gravity.Mul(dt))
		rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.Material.LinearDamping * dt))
		rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.Material.AngularDamping * dt))
	}

	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	// q' = q + ½·ω·q·dt
	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.Rotation = rb.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()

	rb.PresolveVelocity = rb.Velocity
	rb.PresolveAngularVelocity = rb.AngularVelocity

	rb.Shape.ComputeAABB(rb.Transform)
}

// Update derives the velocities from the solved pose (XPBD velocity update).
func (rb *RigidBody) Update(dt float64) {
	if rb.BodyType != BodyTypeDynamic || rb.IsSleeping || rb.disabled || dt <= 0 {
		return
	}

	rb.Velocity = rb.Transform.Position.Sub(rb.PreviousTransform.Position).Mul(1.0 / dt)
	rb.AngularVelocity = AngularVelocityBetween(rb.PreviousTransform.Rotation, rb.Transform.Rotation, dt)
}

// AngularVelocityBetween returns the angular velocity that turns from into to in dt seconds.
func AngularVelocityBetween(from, to mgl64.Quat, dt float64) mgl64.Vec3 {
	if dt <= 0 {
		return mgl64.Vec3{}
	}
	qDelta := to.Mul(from.Conjugate()).Normalize()
	if qDelta.W >= 0.0 {
		return qDelta.V.Mul(2.0 / dt)
	}
	return qDelta.V.Mul(-2.0 / dt)
}

func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	localDirection := rb.Transform.InverseRotation.Rotate(direction)
	localSupport := rb.Shape.Support(localDirection)

	return rb.Transform.Position.Add(rb.Transform.Rotation.Rotate(localSupport))
}

// Center is the point GJK starts its search from.
func (rb *RigidBody) Center() mgl64.Vec3 {
	return rb.Transform.Position
}

// GetInertiaWorld returns I_world = R * I_local * R^T
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// GetInverseInertiaWorld returns R * I_local^-1 * R^T, or zero for non-dynamic bodies
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.BodyType != BodyTypeDynamic {
		return mgl64.Mat3{}
	}

	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}

// CastRay intersects a world-space ray with the body collider.
// direction must be normalized.
func (rb *RigidBody) CastRay(origin, direction mgl64.Vec3, maxDistance float64) (RayHit, bool) {
	localOrigin := rb.Transform.InversePoint(origin)
	localDirection := rb.Transform.InverseRotation.Rotate(direction)

	distance, localNormal, ok := rb.Shape.Raycast(localOrigin, localDirection, maxDistance)
	if !ok {
		return RayHit{}, false
	}

	return RayHit{
		Distance: distance,
		Point:    origin.Add(direction.Mul(distance)),
		Normal:   rb.Transform.Rotation.Rotate(localNormal).Normalize(),
	}, true
}

func normalizeRotation(q mgl64.Quat) mgl64.Quat {
	if q.Len() < 1e-12 {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}
