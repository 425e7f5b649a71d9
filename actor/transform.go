package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and orientation in 3D space
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// NewTransformAt creates a transform from a position and a rotation
func NewTransformAt(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	rotation = normalizeRotation(rotation)
	return Transform{
		Position:        position,
		Rotation:        rotation,
		InverseRotation: rotation.Inverse(),
	}
}

// Point maps a local point to world space
func (t Transform) Point(local mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(local))
}

// InversePoint maps a world point to local space
func (t Transform) InversePoint(world mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(world.Sub(t.Position))
}

// Inverse returns the transform mapping world space to this local space
func (t Transform) Inverse() Transform {
	return Transform{
		Position:        t.InverseRotation.Rotate(t.Position.Mul(-1)),
		Rotation:        t.InverseRotation,
		InverseRotation: t.Rotation,
	}
}
