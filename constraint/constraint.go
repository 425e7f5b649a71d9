// Package constraint solves contacts between pairs of bodies, XPBD style:
// positions first, then velocities for restitution and friction.
package constraint

import (
	"math"

	"github.com/akmonengine/rover/actor"
	"github.com/go-gl/mathgl/mgl64"
)

type Constraint interface {
	SolvePosition(dt float64)
	SolveVelocity(dt float64)
}

// Surface is the response of two materials in contact.
type Surface struct {
	Restitution     float64
	StaticFriction  float64
	DynamicFriction float64
}

// MixMaterials averages the restitutions and takes the geometric mean of the
// friction coefficients, so a frictionless side cancels friction.
func MixMaterials(a, b actor.Material) Surface {
	return Surface{
		Restitution:     (a.Restitution + b.Restitution) / 2,
		StaticFriction:  math.Sqrt(a.StaticFriction * b.StaticFriction),
		DynamicFriction: math.Sqrt(a.DynamicFriction * b.DynamicFriction),
	}
}

const restVelocity = 1e-5

// settle zeroes velocities below restVelocity
func settle(rb *actor.RigidBody) {
	if rb.Velocity.Len() < restVelocity {
		rb.Velocity = mgl64.Vec3{}
	}
	if rb.AngularVelocity.Len() < restVelocity {
		rb.AngularVelocity = mgl64.Vec3{}
	}
}
