package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypePlane
	ShapeTypeConvexHull
	ShapeTypeTriangle
	ShapeTypeTriMesh
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeSphere:
		return "ball"
	case ShapeTypeBox:
		return "cuboid"
	case ShapeTypePlane:
		return "plane"
	case ShapeTypeConvexHull:
		return "convexHull"
	case ShapeTypeTriangle:
		return "triangle"
	case ShapeTypeTriMesh:
		return "trimesh"
	}
	return "unknown"
}

// ShapeInterface is the interface that all collision shapes must implement
type ShapeInterface interface {
	Type() ShapeType
	// ComputeAABB calculates the axis-aligned bounding box for the shape
	// at the given transform
	ComputeAABB(transform Transform)
	GetAABB() AABB
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
	Support(direction mgl64.Vec3) mgl64.Vec3
	GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3
	// Raycast intersects a local-space ray with the shape, returning the hit
	// distance and the local surface normal.
	Raycast(origin, direction mgl64.Vec3, maxDistance float64) (float64, mgl64.Vec3, bool)
}

// RayHit describes the closest intersection of a ray with a collider.
type RayHit struct {
	Body     *RigidBody
	Distance float64
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
}

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
	aabb        AABB
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

func (b *Box) localBounds() AABB {
	return AABB{Min: b.HalfExtents.Mul(-1), Max: b.HalfExtents}
}

func (b *Box) ComputeAABB(transform Transform) {
	b.aabb = b.localBounds().Transformed(transform)
}

func (b *Box) GetAABB() AABB {
	return b.aabb
}

// ComputeMass calculates mass data for the box
func (b *Box) ComputeMass(density float64) float64 {
	// full dimensions are 2*halfExtents
	volume := 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()

	return density * volume
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	return boxInertia(b.HalfExtents, mass)
}

// boxInertia: I = (m/12) * (d1² + d2²) on each axis
func boxInertia(halfExtents mgl64.Vec3, mass float64) mgl64.Mat3 {
	x := halfExtents.X() * 2
	y := halfExtents.Y() * 2
	z := halfExtents.Z() * 2

	factor := mass / 12.0
	return mgl64.Mat3{
		factor * (y*y + z*z), 0, 0,
		0, factor * (x*x + z*z), 0,
		0, 0, factor * (x*x + y*y),
	}
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

// GetContactFeature returns the face whose normal is the most aligned with direction,
// counter-clockwise seen from outside.
func (b *Box) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	hx := b.HalfExtents.X()
	hy := b.HalfExtents.Y()
	hz := b.HalfExtents.Z()

	axis := 0
	for i := 1; i < 3; i++ {
		if math.Abs(direction[i]) > math.Abs(direction[axis]) {
			axis = i
		}
	}
	positive := direction[axis] >= 0

	switch {
	case axis == 0 && positive:
		return []mgl64.Vec3{{hx, -hy, -hz}, {hx, -hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}
	case axis == 0:
		return []mgl64.Vec3{{-hx, -hy, hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {-hx, hy, hz}}
	case axis == 1 && positive:
		return []mgl64.Vec3{{-hx, hy, -hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}
	case axis == 1:
		return []mgl64.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, -hy, -hz}, {-hx, -hy, -hz}}
	case positive:
		return []mgl64.Vec3{{-hx, -hy, hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, -hy, hz}}
	default:
		return []mgl64.Vec3{{hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz}, {-hx, -hy, -hz}}
	}
}

func (b *Box) Raycast(origin, direction mgl64.Vec3, maxDistance float64) (float64, mgl64.Vec3, bool) {
	return b.localBounds().IntersectRay(origin, direction, maxDistance)
}

// Sphere represents a spherical collision shape
type Sphere struct {
	Radius float64
	aabb   AABB
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

// ComputeAABB calculates the axis-aligned bounding box for the sphere
func (s *Sphere) ComputeAABB(transform Transform) {
	// Sphere AABB is not affected by rotation, only by position
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	s.aabb = AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

func (s *Sphere) GetAABB() AABB {
	return s.aabb
}

// ComputeMass calculates mass data for the sphere
func (s *Sphere) ComputeMass(density float64) float64 {
	volume := (4.0 / 3.0) * math.Pi * math.Pow(s.Radius, 3)

	return density * volume
}

// ComputeInertia: I = (2/5) * m * r² on every axis
func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Mat3{
		i, 0, 0,
		0, i, 0,
		0, 0, i,
	}
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.LenSqr() < 1e-16 {
		return mgl64.Vec3{0, s.Radius, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

func (s *Sphere) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{s.Support(direction)}
}

func (s *Sphere) Raycast(origin, direction mgl64.Vec3, maxDistance float64) (float64, mgl64.Vec3, bool) {
	b := origin.Dot(direction)
	c := origin.Dot(origin) - s.Radius*s.Radius
	if c <= 0 {
		return 0, direction.Mul(-1), true
	}
	if b > 0 {
		return 0, mgl64.Vec3{}, false
	}

	discriminant := b*b - c
	if discriminant < 0 {
		return 0, mgl64.Vec3{}, false
	}

	t := -b - math.Sqrt(discriminant)
	if t > maxDistance {
		return 0, mgl64.Vec3{}, false
	}
	return t, origin.Add(direction.Mul(t)).Normalize(), true
}

// Plane represents an infinite plane collision shape
// The plane is defined by the equation: Normal · p + Distance = 0 in the body space,
// where Normal is the plane's normal vector (must be normalized)
// and Distance is the signed distance from the origin along the normal
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
	aabb     AABB
}

const (
	planeThickness = 1.0
	planeExtent    = 1e10
	planeFeature   = 1000.0
)

func (p *Plane) Type() ShapeType { return ShapeTypePlane }

// WorldPlane returns the world normal n and offset d such that n·x = d on the plane.
func (p *Plane) WorldPlane(transform Transform) (mgl64.Vec3, float64) {
	normal := transform.Rotation.Rotate(p.Normal).Normalize()
	point := transform.Point(p.Normal.Mul(-p.Distance))
	return normal, normal.Dot(point)
}

func (p *Plane) ComputeAABB(transform Transform) {
	normal, offset := p.WorldPlane(transform)
	planePoint := normal.Mul(offset)

	// Thickness along the normal, infinite on every other axis
	min := planePoint.Sub(normal.Mul(planeThickness))
	max := planePoint
	for i := range 3 {
		if min[i] > max[i] {
			min[i], max[i] = max[i], min[i]
		}
		if math.Abs(normal[i]) < 1.0-1e-9 {
			min[i] = -planeExtent
			max[i] = planeExtent
		}
	}

	p.aabb = AABB{Min: min, Max: max}
}

func (p *Plane) GetAABB() AABB {
	return p.aabb
}

// ComputeMass: planes never move
func (p *Plane) ComputeMass(density float64) float64 {
	return math.Inf(1)
}

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

// Support treats the plane as a large slab below its surface.
func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	tangent1, tangent2 := getTangentBasis(p.Normal)
	support := p.Normal.Mul(-p.Distance)

	support = support.Add(tangent1.Mul(math.Copysign(planeFeature, direction.Dot(tangent1))))
	support = support.Add(tangent2.Mul(math.Copysign(planeFeature, direction.Dot(tangent2))))
	if direction.Dot(p.Normal) < 0 {
		support = support.Sub(p.Normal.Mul(planeThickness))
	}
	return support
}

// GetContactFeature returns a large square on the plane, in body space.
func (p *Plane) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	tangent1, tangent2 := getTangentBasis(p.Normal)
	center := p.Normal.Mul(-p.Distance)

	return []mgl64.Vec3{
		center.Add(tangent1.Mul(-planeFeature)).Add(tangent2.Mul(-planeFeature)),
		center.Add(tangent1.Mul(-planeFeature)).Add(tangent2.Mul(planeFeature)),
		center.Add(tangent1.Mul(planeFeature)).Add(tangent2.Mul(planeFeature)),
		center.Add(tangent1.Mul(planeFeature)).Add(tangent2.Mul(-planeFeature)),
	}
}

func (p *Plane) Raycast(origin, direction mgl64.Vec3, maxDistance float64) (float64, mgl64.Vec3, bool) {
	denom := p.Normal.Dot(direction)
	if math.Abs(denom) < 1e-12 {
		return 0, mgl64.Vec3{}, false
	}

	t := -(p.Normal.Dot(origin) + p.Distance) / denom
	if t < 0 || t > maxDistance {
		return 0, mgl64.Vec3{}, false
	}
	if denom > 0 {
		return t, p.Normal.Mul(-1), true
	}
	return t, p.Normal, true
}

// getTangentBasis returns two unit vectors orthogonal to normal and to each other
func getTangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}
