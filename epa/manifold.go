package epa

import (
	"math"
	"slices"

	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const maxManifoldPoints = 4

// GenerateManifold builds up to four contact points by clipping the incident
// feature against the side planes of the reference feature (Sutherland-Hodgman).
// The reference feature is the one with the most points.
func GenerateManifold(bodyA, bodyB *actor.RigidBody, normal mgl64.Vec3, depth float64) []constraint.ContactPoint {
	featureA := bodyA.Shape.GetContactFeature(bodyA.Transform.InverseRotation.Rotate(normal))
	featureB := bodyB.Shape.GetContactFeature(bodyB.Transform.InverseRotation.Rotate(normal.Mul(-1)))

	worldA := transformFeature(featureA, bodyA.Transform)
	worldB := transformFeature(featureB, bodyB.Transform)

	incident, reference := worldB, worldA
	if len(worldB) > len(worldA) {
		incident, reference = worldA, worldB
	}

	if len(incident) == 1 {
		return []constraint.ContactPoint{{Position: incident[0], Penetration: depth}}
	}

	var contacts []constraint.ContactPoint
	clipped := clipIncidentAgainstReference(incident, reference, normal)

	if len(reference) >= 3 {
		refNormal := reference[1].Sub(reference[0]).Cross(reference[2].Sub(reference[0]))
		if refNormal.LenSqr() < 1e-20 {
			refNormal = normal
		}
		refNormal = refNormal.Normalize()
		if refNormal.Dot(normal) < 0 {
			refNormal = refNormal.Mul(-1)
		}

		// the reference face of B faces -normal
		sign := 1.0
		if len(worldB) > len(worldA) {
			sign = -1.0
		}
		offset := reference[0].Dot(refNormal)

		for _, point := range clipped {
			if sign*(point.Dot(refNormal)-offset) <= 0 {
				contacts = append(contacts, constraint.ContactPoint{Position: point, Penetration: depth})
			}
		}
	} else {
		// point or edge reference: every clipped point touches
		for _, point := range clipped {
			contacts = append(contacts, constraint.ContactPoint{Position: point, Penetration: depth})
		}
	}

	if len(contacts) == 0 {
		contacts = append(contacts, constraint.ContactPoint{
			Position:    bodyB.SupportWorld(normal.Mul(-1)),
			Penetration: depth,
		})
	}

	if len(contacts) > maxManifoldPoints {
		contacts = reduceTo4Points(contacts, normal)
	}

	return contacts
}

// clipIncidentAgainstReference keeps the part of incident lying inside the
// prism extruded from reference along normal.
func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if len(reference) < 3 || isLargePlane(reference) {
		return incident
	}

	center := computeCenter(reference)
	output := incident
	for i := range reference {
		if len(output) == 0 {
			break
		}

		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		clipNormal := v2.Sub(v1).Cross(normal)
		if clipNormal.LenSqr() < 1e-20 {
			continue
		}
		clipNormal = clipNormal.Normalize()
		if center.Sub(v1).Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		output = clipPolygonAgainstPlane(output, v1, clipNormal)
	}

	return output
}

func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	const tolerance = 1e-6

	var output []mgl64.Vec3
	for i, current := range polygon {
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -tolerance {
			output = append(output, current)
			if nextDist < -tolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -tolerance {
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}
	}

	return output
}

// lineIntersectPlane clamps the intersection to the segment p1 p2.
func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	denom := dir.Dot(planeNormal)
	if math.Abs(denom) < 1e-10 {
		return p1
	}

	t := -p1.Sub(planePoint).Dot(planeNormal) / denom
	t = math.Max(0, math.Min(1, t))
	return p1.Add(dir.Mul(t))
}

func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{}
	}

	var sum mgl64.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// isLargePlane detects the oversized quad planes report as their feature.
func isLargePlane(feature []mgl64.Vec3) bool {
	if len(feature) != 4 {
		return false
	}

	for i := range feature {
		for j := i + 1; j < len(feature); j++ {
			if feature[i].Sub(feature[j]).Len() > 100 {
				return true
			}
		}
	}
	return false
}

func transformFeature(feature []mgl64.Vec3, transform actor.Transform) []mgl64.Vec3 {
	result := make([]mgl64.Vec3, len(feature))
	for i, point := range feature {
		result[i] = transform.Point(point)
	}
	return result
}

func tangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	tangent1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	return tangent1, normal.Cross(tangent1).Normalize()
}

// reduceTo4Points keeps the extreme points along two tangent axes, in their original order.
func reduceTo4Points(points []constraint.ContactPoint, normal mgl64.Vec3) []constraint.ContactPoint {
	tangent1, tangent2 := tangentBasis(normal)

	minX, maxX, minY, maxY := 0, 0, 0, 0
	for i, p := range points {
		x := p.Position.Dot(tangent1)
		y := p.Position.Dot(tangent2)

		if x < points[minX].Position.Dot(tangent1) {
			minX = i
		}
		if x > points[maxX].Position.Dot(tangent1) {
			maxX = i
		}
		if y < points[minY].Position.Dot(tangent2) {
			minY = i
		}
		if y > points[maxY].Position.Dot(tangent2) {
			maxY = i
		}
	}

	indices := []int{minX, maxX, minY, maxY}
	slices.Sort(indices)
	indices = slices.Compact(indices)

	result := make([]constraint.ContactPoint, 0, len(indices))
	for _, i := range indices {
		result = append(result, points[i])
	}
	return result
}
