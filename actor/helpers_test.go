package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func vec3AlmostEqual(a, b mgl64.Vec3, epsilon float64) bool {
	return almostEqual(a.X(), b.X(), epsilon) &&
		almostEqual(a.Y(), b.Y(), epsilon) &&
		almostEqual(a.Z(), b.Z(), epsilon)
}

func newBoxBody(position mgl64.Vec3, halfExtents mgl64.Vec3, bodyType BodyType) *RigidBody {
	transform := NewTransform()
	transform.Position = position
	return NewRigidBody(transform, &Box{HalfExtents: halfExtents}, bodyType, 1.0)
}
