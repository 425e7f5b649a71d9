package scene

import (
	"math"

	"github.com/akmonengine/rover/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Geometry is an indexed triangle list in node space.
type Geometry struct {
	Positions []mgl64.Vec3
	Indices   []uint32
}

func (g *Geometry) Empty() bool {
	return g == nil || len(g.Positions) == 0
}

func (g *Geometry) Bounds() (actor.AABB, bool) {
	if g.Empty() {
		return actor.AABB{}, false
	}
	return actor.NewAABBFromPoints(g.Positions), true
}

// BoundingSphere is centered on the bounds center, with the radius reaching the farthest vertex.
func (g *Geometry) BoundingSphere() (mgl64.Vec3, float64, bool) {
	bounds, ok := g.Bounds()
	if !ok {
		return mgl64.Vec3{}, 0, false
	}

	center := bounds.Center()
	radius := 0.0
	for _, p := range g.Positions {
		radius = math.Max(radius, p.Sub(center).Len())
	}
	return center, radius, true
}

// BoxGeometry is centered on the origin.
func BoxGeometry(width, height, depth float64) *Geometry {
	hx, hy, hz := width/2, height/2, depth/2
	return &Geometry{
		Positions: []mgl64.Vec3{
			{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz},
			{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz},
		},
		Indices: []uint32{
			0, 2, 1, 0, 3, 2, // back
			4, 5, 6, 4, 6, 7, // front
			0, 1, 5, 0, 5, 4, // bottom
			3, 7, 6, 3, 6, 2, // top
			0, 4, 7, 0, 7, 3, // left
			1, 2, 6, 1, 6, 5, // right
		},
	}
}

// SphereGeometry is a UV sphere with segments slices and segments/2 stacks.
func SphereGeometry(radius float64, segments int) *Geometry {
	segments = max(segments, 3)
	stacks := max(segments/2, 2)

	g := &Geometry{}
	for i := 0; i <= stacks; i++ {
		phi := math.Pi * float64(i) / float64(stacks)
		for j := 0; j <= segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			g.Positions = append(g.Positions, mgl64.Vec3{
				radius * math.Sin(phi) * math.Cos(theta),
				radius * math.Cos(phi),
				radius * math.Sin(phi) * math.Sin(theta),
			})
		}
	}

	row := uint32(segments + 1)
	for i := range uint32(stacks) {
		for j := range uint32(segments) {
			a := i*row + j
			b := a + row
			g.Indices = append(g.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return g
}

// ConeGeometry stands on y=0 with its apex at y=height.
func ConeGeometry(radius, height float64, segments int) *Geometry {
	segments = max(segments, 3)

	g := &Geometry{Positions: []mgl64.Vec3{{0, height, 0}, {0, 0, 0}}}
	for j := range segments {
		theta := 2 * math.Pi * float64(j) / float64(segments)
		g.Positions = append(g.Positions, mgl64.Vec3{radius * math.Cos(theta), 0, radius * math.Sin(theta)})
	}

	for j := range uint32(segments) {
		a := 2 + j
		b := 2 + (j+1)%uint32(segments)
		g.Indices = append(g.Indices, 0, b, a, 1, a, b)
	}
	return g
}

// CylinderGeometry lies along the X axis, like a wheel on its axle.
func CylinderGeometry(radius, width float64, segments int) *Geometry {
	segments = max(segments, 3)
	hw := width / 2

	g := &Geometry{}
	for j := range segments {
		theta := 2 * math.Pi * float64(j) / float64(segments)
		y, z := radius*math.Cos(theta), radius*math.Sin(theta)
		g.Positions = append(g.Positions, mgl64.Vec3{-hw, y, z}, mgl64.Vec3{hw, y, z})
	}

	n := uint32(segments)
	for j := range n {
		a, b := 2*j, 2*((j+1)%n)
		g.Indices = append(g.Indices, a, b, a+1, a+1, b, b+1)
	}
	return g
}

// WedgeGeometry is a ramp rising along +Z from height 0 to height.
func WedgeGeometry(width, height, depth float64) *Geometry {
	hx, hz := width/2, depth/2
	return &Geometry{
		Positions: []mgl64.Vec3{
			{-hx, 0, -hz}, {hx, 0, -hz}, {hx, 0, hz}, {-hx, 0, hz},
			{-hx, height, hz}, {hx, height, hz},
		},
		Indices: []uint32{
			0, 1, 2, 0, 2, 3, // bottom
			2, 5, 4, 2, 4, 3, // back wall
			0, 4, 5, 0, 5, 1, // slope
			0, 3, 4, // left
			1, 5, 2, // right
		},
	}
}
