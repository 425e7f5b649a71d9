package actor

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// ConvexHull is a convex collider given by its vertices in body space.
// Interior or duplicated points are allowed: only the support mapping is used.
// Mass and inertia are approximated by the local bounding box of the points.
type ConvexHull struct {
	Points []mgl64.Vec3
	bounds AABB
	aabb   AABB
}

// NewConvexHull copies points and precomputes their local bounds.
func NewConvexHull(points []mgl64.Vec3) *ConvexHull {
	hull := &ConvexHull{Points: append([]mgl64.Vec3(nil), points...)}
	hull.bounds = NewAABBFromPoints(hull.Points)
	return hull
}

func (h *ConvexHull) Type() ShapeType { return ShapeTypeConvexHull }

// LocalBounds returns the bounds of the hull in body space
func (h *ConvexHull) LocalBounds() AABB {
	return h.bounds
}

func (h *ConvexHull) ComputeAABB(transform Transform) {
	if len(h.Points) == 0 {
		h.aabb = AABB{Min: transform.Position, Max: transform.Position}
		return
	}

	box := AABB{Min: transform.Point(h.Points[0]), Max: transform.Point(h.Points[0])}
	for _, p := range h.Points[1:] {
		box = box.ExpandToPoint(transform.Point(p))
	}
	h.aabb = box
}

func (h *ConvexHull) GetAABB() AABB {
	return h.aabb
}

func (h *ConvexHull) ComputeMass(density float64) float64 {
	size := h.bounds.Max.Sub(h.bounds.Min)
	return density * size.X() * size.Y() * size.Z()
}

func (h *ConvexHull) ComputeInertia(mass float64) mgl64.Mat3 {
	return boxInertia(h.bounds.HalfExtents(), mass)
}

func (h *ConvexHull) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if len(h.Points) == 0 {
		return mgl64.Vec3{}
	}

	best := h.Points[0]
	bestDot := best.Dot(direction)
	for _, p := range h.Points[1:] {
		if d := p.Dot(direction); d > bestDot {
			best, bestDot = p, d
		}
	}
	return best
}

func (h *ConvexHull) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	tolerance := 1e-3*h.bounds.Max.Sub(h.bounds.Min).Len() + 1e-9
	return supportingFeature(h.Points, direction, tolerance)
}

// Raycast hits the hull surface. The local bounds only reject early.
func (h *ConvexHull) Raycast(origin, direction mgl64.Vec3, maxDistance float64) (float64, mgl64.Vec3, bool) {
	if len(h.Points) == 0 {
		return 0, mgl64.Vec3{}, false
	}
	if _, _, ok := h.bounds.IntersectRay(origin, direction, maxDistance); !ok {
		return 0, mgl64.Vec3{}, false
	}
	return castSupport(h.Support, h.Points[0], origin, direction, maxDistance)
}

// Triangle is a single face of a TriMesh, in the mesh body space.
type Triangle struct {
	A, B, C mgl64.Vec3
	aabb    AABB
}

func (t *Triangle) Type() ShapeType { return ShapeTypeTriangle }

func (t *Triangle) Normal() mgl64.Vec3 {
	n := t.B.Sub(t.A).Cross(t.C.Sub(t.A))
	if n.LenSqr() < 1e-24 {
		return mgl64.Vec3{0, 1, 0}
	}
	return n.Normalize()
}

func (t *Triangle) ComputeAABB(transform Transform) {
	t.aabb = NewAABBFromPoints([]mgl64.Vec3{transform.Point(t.A), transform.Point(t.B), transform.Point(t.C)})
}

func (t *Triangle) GetAABB() AABB {
	return t.aabb
}

func (t *Triangle) ComputeMass(density float64) float64 {
	return math.Inf(1)
}

func (t *Triangle) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

func (t *Triangle) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := t.A
	if t.B.Dot(direction) > best.Dot(direction) {
		best = t.B
	}
	if t.C.Dot(direction) > best.Dot(direction) {
		best = t.C
	}
	return best
}

func (t *Triangle) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	points := []mgl64.Vec3{t.A, t.B, t.C}
	size := math.Max(t.B.Sub(t.A).Len(), t.C.Sub(t.A).Len())
	return supportingFeature(points, direction, 1e-3*size+1e-9)
}

func (t *Triangle) Raycast(origin, direction mgl64.Vec3, maxDistance float64) (float64, mgl64.Vec3, bool) {
	distance, ok := rayTriangle(origin, direction, t.A, t.B, t.C)
	if !ok || distance > maxDistance {
		return 0, mgl64.Vec3{}, false
	}

	normal := t.Normal()
	if normal.Dot(direction) > 0 {
		normal = normal.Mul(-1)
	}
	return distance, normal, true
}

// TriMesh is an indexed triangle soup. It is meant for fixed or kinematic bodies:
// its mass is infinite and it collides triangle by triangle.
type TriMesh struct {
	Vertices []mgl64.Vec3
	Indices  []uint32
	bounds   AABB
	aabb     AABB
}

// NewTriMesh keeps only complete triangles whose indices are in range.
func NewTriMesh(vertices []mgl64.Vec3, indices []uint32) *TriMesh {
	mesh := &TriMesh{Vertices: append([]mgl64.Vec3(nil), vertices...)}
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(vertices) || int(b) >= len(vertices) || int(c) >= len(vertices) {
			continue
		}
		mesh.Indices = append(mesh.Indices, a, b, c)
	}
	mesh.bounds = NewAABBFromPoints(mesh.Vertices)
	return mesh
}

func (m *TriMesh) Type() ShapeType { return ShapeTypeTriMesh }

func (m *TriMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

func (m *TriMesh) Triangle(i int) Triangle {
	return Triangle{
		A: m.Vertices[m.Indices[3*i]],
		B: m.Vertices[m.Indices[3*i+1]],
		C: m.Vertices[m.Indices[3*i+2]],
	}
}

// ForEachTriangle calls fn for every triangle whose bounds overlap the local box.
func (m *TriMesh) ForEachTriangle(local AABB, fn func(Triangle)) {
	for i := range m.TriangleCount() {
		tri := m.Triangle(i)
		if NewAABBFromPoints([]mgl64.Vec3{tri.A, tri.B, tri.C}).Overlaps(local) {
			fn(tri)
		}
	}
}

func (m *TriMesh) ComputeAABB(transform Transform) {
	m.aabb = m.bounds.Transformed(transform)
}

func (m *TriMesh) GetAABB() AABB {
	return m.aabb
}

func (m *TriMesh) ComputeMass(density float64) float64 {
	return math.Inf(1)
}

func (m *TriMesh) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

func (m *TriMesh) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hull := ConvexHull{Points: m.Vertices}
	return hull.Support(direction)
}

func (m *TriMesh) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{m.Support(direction)}
}

func (m *TriMesh) Raycast(origin, direction mgl64.Vec3, maxDistance float64) (float64, mgl64.Vec3, bool) {
	if _, _, ok := m.bounds.IntersectRay(origin, direction, maxDistance); !ok {
		return 0, mgl64.Vec3{}, false
	}

	best := maxDistance
	var bestNormal mgl64.Vec3
	hit := false
	for i := range m.TriangleCount() {
		tri := m.Triangle(i)
		if distance, normal, ok := tri.Raycast(origin, direction, best); ok {
			best, bestNormal, hit = distance, normal, true
		}
	}
	return best, bestNormal, hit
}

// rayTriangle is the Möller–Trumbore intersection, both faces count.
func rayTriangle(origin, direction, a, b, c mgl64.Vec3) (float64, bool) {
	const epsilon = 1e-12

	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	p := direction.Cross(edge2)
	det := edge1.Dot(p)
	if math.Abs(det) < epsilon {
		return 0, false
	}

	invDet := 1.0 / det
	s := origin.Sub(a)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := direction.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := edge2.Dot(q) * invDet
	if t < 0 {
		return 0, false
	}
	return t, true
}

// supportingFeature returns the points lying on the supporting plane in direction,
// as a convex polygon ordered counter-clockwise around direction.
func supportingFeature(points []mgl64.Vec3, direction mgl64.Vec3, tolerance float64) []mgl64.Vec3 {
	if len(points) == 0 {
		return nil
	}
	if direction.LenSqr() < 1e-16 {
		return []mgl64.Vec3{points[0]}
	}
	dir := direction.Normalize()

	maxDot := math.Inf(-1)
	for _, p := range points {
		maxDot = math.Max(maxDot, p.Dot(dir))
	}

	var face []mgl64.Vec3
	for _, p := range points {
		if p.Dot(dir) < maxDot-tolerance {
			continue
		}
		duplicate := false
		for _, f := range face {
			if f.Sub(p).LenSqr() <= tolerance*tolerance {
				duplicate = true
				break
			}
		}
		if !duplicate {
			face = append(face, p)
		}
	}

	if len(face) < 3 {
		return face
	}
	return convexPolygon(face, dir)
}

// convexPolygon projects coplanar points on the plane orthogonal to normal and
// returns their 2D convex hull (monotone chain), counter-clockwise.
func convexPolygon(points []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	tangent1, tangent2 := getTangentBasis(normal)

	type projected struct {
		x, y  float64
		point mgl64.Vec3
	}
	proj := make([]projected, len(points))
	for i, p := range points {
		proj[i] = projected{x: p.Dot(tangent1), y: p.Dot(tangent2), point: p}
	}
	sort.Slice(proj, func(i, j int) bool {
		if proj[i].x == proj[j].x {
			return proj[i].y < proj[j].y
		}
		return proj[i].x < proj[j].x
	})

	cross := func(o, a, b projected) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}

	hull := make([]projected, 0, 2*len(proj))
	for _, p := range proj {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(proj) - 2; i >= 0; i-- {
		p := proj[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	hull = hull[:len(hull)-1]

	result := make([]mgl64.Vec3, len(hull))
	for i, p := range hull {
		result[i] = p.point
	}
	return result
}
