package epa

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/akmonengine/rover/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Face is a triangle of the polytope, with its outward normal and its
// distance to the origin.
type Face struct {
	Points   [3]mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// EdgeEntry counts how many visible faces share an edge.
// A and B are ordered so that A < B.
type EdgeEntry struct {
	A, B  mgl64.Vec3
	Count int
}

// PolytopeBuilder holds the polytope being expanded, with reusable scratch buffers.
type PolytopeBuilder struct {
	faces          []Face
	uniquePoints   []mgl64.Vec3
	edges          []EdgeEntry
	visibleIndices []int
}

var polytopeBuilderPool = sync.Pool{
	New: func() interface{} {
		return &PolytopeBuilder{
			faces:          make([]Face, 0, polytopeInitialCapacity),
			uniquePoints:   make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			edges:          make([]EdgeEntry, 0, polytopeInitialCapacity),
			visibleIndices: make([]int, 0, polytopeInitialCapacity),
		}
	},
}

func (b *PolytopeBuilder) Reset() {
	b.faces = b.faces[:0]
	b.uniquePoints = b.uniquePoints[:0]
	b.edges = b.edges[:0]
	b.visibleIndices = b.visibleIndices[:0]
}

// BuildInitialFaces turns the GJK tetrahedron into four outward faces.
func (b *PolytopeBuilder) BuildInitialFaces(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return fmt.Errorf("invalid simplex count: %d (expected 4)", simplex.Count)
	}

	p0, p1, p2, p3 := simplex.Points[0], simplex.Points[1], simplex.Points[2], simplex.Points[3]
	candidates := [4]Face{
		createFaceOutward(p0, p1, p2, p3),
		createFaceOutward(p0, p2, p3, p1),
		createFaceOutward(p0, p3, p1, p2),
		createFaceOutward(p1, p3, p2, p0),
	}

	for _, face := range candidates {
		if face.Distance >= EPAMinFaceDistance {
			b.faces = append(b.faces, face)
		}
	}
	if len(b.faces) < 3 {
		b.faces = append(b.faces[:0], candidates[:]...)
	}

	return nil
}

// createFaceOutward orients the face normal away from oppositePoint and from the origin.
func createFaceOutward(p0, p1, p2, oppositePoint mgl64.Vec3) Face {
	face := Face{Points: [3]mgl64.Vec3{p0, p1, p2}}

	normal := p1.Sub(p0).Cross(p2.Sub(p0))
	length := normal.Len()
	if length < 1e-8 {
		face.Normal = mgl64.Vec3{0, 1, 0}
		face.Distance = EPAMinFaceDistance
		return face
	}
	normal = normal.Mul(1.0 / length)

	if normal.Dot(oppositePoint.Sub(p0)) > 0 {
		normal = normal.Mul(-1)
	}

	distance := p0.Dot(normal)
	if distance < 0 {
		normal = normal.Mul(-1)
		distance = -distance
	}

	face.Normal = snapNormalToAxis(normal)
	face.Distance = math.Max(distance, EPAMinFaceDistance)
	return face
}

// FindClosestFaceIndex returns -1 on an empty polytope.
func (b *PolytopeBuilder) FindClosestFaceIndex() int {
	if len(b.faces) == 0 {
		return -1
	}

	closest := 0
	for i := 1; i < len(b.faces); i++ {
		if b.faces[i].Distance < b.faces[closest].Distance {
			closest = i
		}
	}
	return closest
}

// calculateCentroid averages the distinct vertices of the polytope.
// uniquePoints is kept sorted so duplicates are found by binary search.
func (b *PolytopeBuilder) calculateCentroid() mgl64.Vec3 {
	b.uniquePoints = b.uniquePoints[:0]

	for i := range b.faces {
		for _, point := range b.faces[i].Points {
			index, found := slices.BinarySearchFunc(b.uniquePoints, point, compareVec3)
			if !found {
				b.uniquePoints = slices.Insert(b.uniquePoints, index, point)
			}
		}
	}

	if len(b.uniquePoints) == 0 {
		return mgl64.Vec3{}
	}

	var sum mgl64.Vec3
	for _, point := range b.uniquePoints {
		sum = sum.Add(point)
	}
	return sum.Mul(1.0 / float64(len(b.uniquePoints)))
}

// findBoundaryEdges keeps the edges of the visible region that belong to a single visible face.
func (b *PolytopeBuilder) findBoundaryEdges() {
	b.edges = b.edges[:0]

	for _, faceIndex := range b.visibleIndices {
		face := &b.faces[faceIndex]
		for i := range 3 {
			edgeA, edgeB := face.Points[i], face.Points[(i+1)%3]
			if compareVec3(edgeA, edgeB) > 0 {
				edgeA, edgeB = edgeB, edgeA
			}

			if index := b.findEdgeIndex(edgeA, edgeB); index >= 0 {
				b.edges[index].Count++
			} else {
				b.edges = append(b.edges, EdgeEntry{A: edgeA, B: edgeB, Count: 1})
			}
		}
	}
}

func (b *PolytopeBuilder) findEdgeIndex(edgeA, edgeB mgl64.Vec3) int {
	for i := range b.edges {
		if b.edges[i].A == edgeA && b.edges[i].B == edgeB {
			return i
		}
	}
	return -1
}

func (b *PolytopeBuilder) findVisibleFaces(support mgl64.Vec3) {
	b.visibleIndices = b.visibleIndices[:0]

	for i := range b.faces {
		if support.Sub(b.faces[i].Points[0]).Dot(b.faces[i].Normal) > 0 {
			b.visibleIndices = append(b.visibleIndices, i)
		}
	}
}

// removeVisibleFaces swaps with the last face, highest index first.
func (b *PolytopeBuilder) removeVisibleFaces() {
	slices.Sort(b.visibleIndices)
	for i := len(b.visibleIndices) - 1; i >= 0; i-- {
		index := b.visibleIndices[i]
		if index < len(b.faces) {
			b.faces[index] = b.faces[len(b.faces)-1]
			b.faces = b.faces[:len(b.faces)-1]
		}
	}
}

func (b *PolytopeBuilder) addBoundaryFaces(support, centroid mgl64.Vec3) {
	for _, edge := range b.edges {
		if edge.Count == 1 {
			b.faces = append(b.faces, createFaceOutward(edge.A, edge.B, support, centroid))
		}
	}
}

// AddPointAndRebuildFaces replaces the faces visible from support by a fan
// joining the horizon edges to support.
func (b *PolytopeBuilder) AddPointAndRebuildFaces(support mgl64.Vec3, closestIndex int) error {
	if closestIndex < 0 || closestIndex >= len(b.faces) {
		return fmt.Errorf("closest face %d out of range (%d faces)", closestIndex, len(b.faces))
	}

	centroid := b.calculateCentroid()

	b.findVisibleFaces(support)
	// never remove the whole polytope
	if len(b.visibleIndices) >= len(b.faces) {
		b.visibleIndices = append(b.visibleIndices[:0], closestIndex)
	}

	b.findBoundaryEdges()
	b.removeVisibleFaces()
	b.addBoundaryFaces(support, centroid)

	if len(b.faces) == 0 {
		b.faces = append(b.faces, Face{
			Points:   [3]mgl64.Vec3{support, support, support},
			Normal:   mgl64.Vec3{0, 1, 0},
			Distance: EPAMinFaceDistance,
		})
	}

	return nil
}

// compareVec3 orders vectors lexicographically on x, y then z.
func compareVec3(a, b mgl64.Vec3) int {
	for i := range 3 {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
