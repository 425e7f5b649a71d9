// Package epa computes the contact normal, depth and manifold of two overlapping
// convex bodies with the Expanding Polytope Algorithm.
//
// EPA starts from the tetrahedron left by gjk.GJK and grows it inside the Minkowski
// difference until the face closest to the origin stops moving: that face gives the
// minimum translation separating the bodies.
package epa

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/constraint"
	"github.com/akmonengine/rover/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	EPAMaxIterations = 32

	// EPAConvergenceTolerance is the smallest progress of the closest face
	// still worth another expansion.
	EPAConvergenceTolerance = 0.001

	// EPAMinFaceDistance discards faces touching the origin.
	EPAMinFaceDistance = 0.0001

	// NormalSnapThreshold zeroes tiny normal components, keeping resting
	// contacts on axis aligned faces free of tangential drift.
	NormalSnapThreshold = 1e-8

	// DegeneratePenetrationEstimate is used when GJK stopped before building a tetrahedron.
	DegeneratePenetrationEstimate = 0.01

	polytopeInitialCapacity = 4
)

// ErrNoConvergence is returned when the polytope keeps growing after EPAMaxIterations.
var ErrNoConvergence = errors.New("epa: no convergence")

// EPA returns the contact between a and b, which GJK found overlapping.
// The normal points from a toward b.
func EPA(a, b *actor.RigidBody, simplex *gjk.Simplex) (constraint.ContactConstraint, error) {
	if simplex.Count < 4 {
		return handleDegenerateSimplex(a, b, simplex), nil
	}

	builder := polytopeBuilderPool.Get().(*PolytopeBuilder)
	defer polytopeBuilderPool.Put(builder)
	builder.Reset()

	if err := builder.BuildInitialFaces(simplex); err != nil {
		return constraint.ContactConstraint{}, err
	}

	for range EPAMaxIterations {
		if len(builder.faces) == 0 {
			break
		}

		closestIndex := builder.FindClosestFaceIndex()
		closest := builder.faces[closestIndex]

		if closest.Distance < EPAMinFaceDistance {
			builder.faces[closestIndex] = builder.faces[len(builder.faces)-1]
			builder.faces = builder.faces[:len(builder.faces)-1]
			continue
		}

		support := gjk.MinkowskiSupport(a, b, closest.Normal)
		if support.Dot(closest.Normal)-closest.Distance < EPAConvergenceTolerance {
			return newContact(a, b, closest.Normal, closest.Distance), nil
		}

		if err := builder.AddPointAndRebuildFaces(support, closestIndex); err != nil {
			// keep the best estimate so far
			return newContact(a, b, closest.Normal, closest.Distance), nil
		}
	}

	return constraint.ContactConstraint{}, fmt.Errorf("%w after %d iterations", ErrNoConvergence, EPAMaxIterations)
}

func newContact(a, b *actor.RigidBody, normal mgl64.Vec3, depth float64) constraint.ContactConstraint {
	return constraint.ContactConstraint{
		BodyA:  a,
		BodyB:  b,
		Points: GenerateManifold(a, b, normal, depth),
		Normal: normal,
	}
}

// handleDegenerateSimplex estimates a contact from an incomplete simplex:
// the simplex point closest to the origin when there are two or more,
// the line between centers otherwise.
func handleDegenerateSimplex(a, b *actor.RigidBody, simplex *gjk.Simplex) constraint.ContactConstraint {
	if simplex.Count >= 2 {
		closest := simplex.Points[0]
		for _, p := range simplex.Points[1:simplex.Count] {
			if p.LenSqr() < closest.LenSqr() {
				closest = p
			}
		}

		depth := closest.Len()
		normal := mgl64.Vec3{0, 1, 0}
		if depth > NormalSnapThreshold {
			normal = closest.Mul(1.0 / depth)
		}
		return newContact(a, b, normal, depth)
	}

	normal := b.Transform.Position.Sub(a.Transform.Position)
	if length := normal.Len(); length < NormalSnapThreshold {
		normal = mgl64.Vec3{0, 1, 0}
	} else {
		normal = normal.Mul(1.0 / length)
	}

	return newContact(a, b, normal, DegeneratePenetrationEstimate)
}

func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	for i := range 3 {
		if math.Abs(normal[i]) < NormalSnapThreshold {
			normal[i] = 0
		}
	}

	length := normal.Len()
	if length <= 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}
	return normal.Mul(1.0 / length)
}
