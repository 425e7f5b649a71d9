package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABBFromPoints returns the smallest box containing every point.
// An empty slice gives a zero box at the origin.
func NewAABBFromPoints(points []mgl64.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box = box.ExpandToPoint(p)
	}
	return box
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

func (a AABB) ExpandToPoint(p mgl64.Vec3) AABB {
	for i := range 3 {
		a.Min[i] = math.Min(a.Min[i], p[i])
		a.Max[i] = math.Max(a.Max[i], p[i])
	}
	return a
}

func (a AABB) Union(other AABB) AABB {
	return a.ExpandToPoint(other.Min).ExpandToPoint(other.Max)
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// HalfExtents returns half the size of the box on each axis
func (a AABB) HalfExtents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Corners returns the 8 corners of the box
func (a AABB) Corners() [8]mgl64.Vec3 {
	return [8]mgl64.Vec3{
		{a.Min[0], a.Min[1], a.Min[2]},
		{a.Max[0], a.Min[1], a.Min[2]},
		{a.Min[0], a.Max[1], a.Min[2]},
		{a.Max[0], a.Max[1], a.Min[2]},
		{a.Min[0], a.Min[1], a.Max[2]},
		{a.Max[0], a.Min[1], a.Max[2]},
		{a.Min[0], a.Max[1], a.Max[2]},
		{a.Max[0], a.Max[1], a.Max[2]},
	}
}

// Transformed returns the world AABB enclosing this local box under transform
func (a AABB) Transformed(transform Transform) AABB {
	corners := a.Corners()
	box := AABB{Min: transform.Point(corners[0]), Max: transform.Point(corners[0])}
	for _, c := range corners[1:] {
		box = box.ExpandToPoint(transform.Point(c))
	}
	return box
}

// DistanceToPoint is zero inside the box, the euclidean distance to its surface otherwise
func (a AABB) DistanceToPoint(p mgl64.Vec3) float64 {
	var d mgl64.Vec3
	for i := range 3 {
		switch {
		case p[i] < a.Min[i]:
			d[i] = a.Min[i] - p[i]
		case p[i] > a.Max[i]:
			d[i] = p[i] - a.Max[i]
		}
	}
	return d.Len()
}

// IntersectRay runs the slab test. It returns the entry distance and the outward
// normal of the entry face. A ray starting inside the box hits at distance 0.
func (a AABB) IntersectRay(origin, direction mgl64.Vec3, maxDistance float64) (float64, mgl64.Vec3, bool) {
	tMin := 0.0
	tMax := maxDistance
	var normal mgl64.Vec3

	for i := range 3 {
		if math.Abs(direction[i]) < 1e-12 {
			if origin[i] < a.Min[i] || origin[i] > a.Max[i] {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}

		inv := 1.0 / direction[i]
		t1 := (a.Min[i] - origin[i]) * inv
		t2 := (a.Max[i] - origin[i]) * inv
		sign := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1.0
		}

		if t1 > tMin {
			tMin = t1
			normal = mgl64.Vec3{}
			normal[i] = sign
		}
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, mgl64.Vec3{}, false
		}
	}

	if normal == (mgl64.Vec3{}) {
		normal = direction.Mul(-1)
	}
	return tMin, normal, true
}
