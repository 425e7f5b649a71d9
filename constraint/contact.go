package constraint

import (
	"math"

	"github.com/akmonengine/rover/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Compliance is the inverse stiffness of contacts. 1e-10 is rigid and
// jittery, 1e-6 lets bodies sink visibly.
const Compliance = 1e-7

const minPenetration = 1e-8

type ContactPoint struct {
	Position    mgl64.Vec3
	Penetration float64
}

// ContactConstraint pushes BodyB along Normal, away from BodyA.
type ContactConstraint struct {
	BodyA  *actor.RigidBody
	BodyB  *actor.RigidBody
	Points []ContactPoint
	Normal mgl64.Vec3
}

// solverBody caches the inverse mass properties of a body during a solve
// and accumulates the velocity changes applied to it.
type solverBody struct {
	body       *actor.RigidBody
	invMass    float64
	invInertia mgl64.Mat3

	linear  mgl64.Vec3
	angular mgl64.Vec3
}

func newSolverBody(body *actor.RigidBody) solverBody {
	return solverBody{
		body:       body,
		invMass:    body.InverseMass(),
		invInertia: body.GetInverseInertiaWorld(),
	}
}

func (s *solverBody) arm(point mgl64.Vec3) mgl64.Vec3 {
	return point.Sub(s.body.Transform.Position)
}

// weight is the inverse effective mass at arm r along dir.
func (s *solverBody) weight(r, dir mgl64.Vec3) float64 {
	rn := r.Cross(dir)
	return s.invMass + s.invInertia.Mul3x1(rn).Dot(rn)
}

// push accumulates the impulse j applied at arm r.
func (s *solverBody) push(r, j mgl64.Vec3) {
	s.linear = s.linear.Add(j.Mul(s.invMass))
	s.angular = s.angular.Add(s.invInertia.Mul3x1(r.Cross(j)))
}

// commit adds the accumulated velocity changes. Only dynamic bodies react.
func (s *solverBody) commit() {
	if s.body.BodyType != actor.BodyTypeDynamic {
		return
	}
	s.body.Velocity = s.body.Velocity.Add(s.linear)
	s.body.AngularVelocity = s.body.AngularVelocity.Add(s.angular)
	settle(s.body)
}

// rotate applies a small rotation vector to a movable body.
func (s *solverBody) rotate(delta mgl64.Vec3) {
	if s.invMass <= 0 || delta.Len() <= 1e-10 {
		return
	}
	q := mgl64.Quat{W: 1, V: delta.Mul(0.5)}.Normalize()
	t := &s.body.Transform
	t.Rotation = q.Mul(t.Rotation).Normalize()
	t.InverseRotation = t.Rotation.Inverse()
}

func (c *ContactConstraint) skip() bool {
	return len(c.Points) == 0 || (c.BodyA.IsSleeping && c.BodyB.IsSleeping)
}

// SolvePosition removes the penetration of every point with one Lagrange
// multiplier for the whole manifold, then a single rotation per body.
func (c *ContactConstraint) SolvePosition(dt float64) {
	if c.skip() {
		return
	}
	wakeOnContact(c.BodyA, c.BodyB)
	wakeOnContact(c.BodyB, c.BodyA)

	a, b := newSolverBody(c.BodyA), newSolverBody(c.BodyB)

	var weight, penetration float64
	for _, p := range c.Points {
		if p.Penetration <= minPenetration {
			continue
		}
		weight += a.weight(a.arm(p.Position), c.Normal) + b.weight(b.arm(p.Position), c.Normal)
		penetration += p.Penetration
	}
	if weight <= minPenetration {
		return
	}

	lambda := -penetration / (weight + Compliance/(dt*dt))
	correction := c.Normal.Mul(lambda)

	if a.invMass > 0 {
		c.BodyA.Transform.Position = c.BodyA.Transform.Position.Add(correction.Mul(a.invMass))
	}
	if b.invMass > 0 {
		c.BodyB.Transform.Position = c.BodyB.Transform.Position.Sub(correction.Mul(b.invMass))
	}

	// arms are taken from the corrected positions
	var torqueA, torqueB mgl64.Vec3
	for _, p := range c.Points {
		if p.Penetration <= minPenetration {
			continue
		}
		torqueA = torqueA.Add(a.arm(p.Position).Cross(correction))
		torqueB = torqueB.Add(b.arm(p.Position).Cross(correction.Mul(-1)))
	}

	a.rotate(a.invInertia.Mul3x1(torqueA))
	b.rotate(b.invInertia.Mul3x1(torqueB))
}

// SolveVelocity applies restitution against the velocities from before the
// position solve, then Coulomb friction, and adds everything at once.
func (c *ContactConstraint) SolveVelocity(dt float64) {
	if c.skip() {
		return
	}

	a, b := newSolverBody(c.BodyA), newSolverBody(c.BodyB)
	surface := MixMaterials(c.BodyA.Material, c.BodyB.Material)

	for _, p := range c.Points {
		rA, rB := a.arm(p.Position), b.arm(p.Position)

		relative := pointVelocity(c.BodyB.Velocity, c.BodyB.AngularVelocity, rB).
			Sub(pointVelocity(c.BodyA.Velocity, c.BodyA.AngularVelocity, rA))
		normalSpeed := relative.Dot(c.Normal)

		before := pointVelocity(c.BodyB.PresolveVelocity, c.BodyB.PresolveAngularVelocity, rB).
			Sub(pointVelocity(c.BodyA.PresolveVelocity, c.BodyA.PresolveAngularVelocity, rA))
		normalSpeedBefore := before.Dot(c.Normal)

		w := a.weight(rA, c.Normal) + b.weight(rB, c.Normal)
		if w < 1e-10 {
			continue
		}

		// contacts push, never pull
		lambda := math.Max(0, (-surface.Restitution*normalSpeedBefore-normalSpeed)/w)
		if lambda == 0 {
			continue
		}
		j := c.Normal.Mul(lambda)
		a.push(rA, j.Mul(-1))
		b.push(rB, j)

		tangent := relative.Sub(c.Normal.Mul(normalSpeed))
		slide := tangent.Len()
		if slide <= 1e-6 {
			continue
		}
		dir := tangent.Mul(1 / slide)

		wt := a.weight(rA, dir) + b.weight(rB, dir)
		if wt < 1e-10 {
			continue
		}

		var friction mgl64.Vec3
		if stop := -slide / wt; math.Abs(stop) <= surface.StaticFriction*lambda {
			friction = dir.Mul(stop)
		} else {
			friction = dir.Mul(-surface.DynamicFriction * lambda)
		}
		a.push(rA, friction.Mul(-1))
		b.push(rB, friction)
	}

	a.commit()
	b.commit()
}

func pointVelocity(linear, angular, r mgl64.Vec3) mgl64.Vec3 {
	return linear.Add(angular.Cross(r))
}

// wakeOnContact wakes a sleeping dynamic body touched by a moving, non-fixed one.
func wakeOnContact(body, other *actor.RigidBody) {
	if body.IsSleeping && !other.IsSleeping && other.BodyType != actor.BodyTypeFixed {
		body.Awake()
	}
}
