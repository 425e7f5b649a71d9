package actor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func cubePoints(h float64) []mgl64.Vec3 {
	corners := AABB{Min: mgl64.Vec3{-h, -h, -h}, Max: mgl64.Vec3{h, h, h}}.Corners()
	return corners[:]
}

func TestConvexHull_SupportAndMass(t *testing.T) {
	hull := NewConvexHull(cubePoints(0.5))

	if got := hull.Support(mgl64.Vec3{1, 1, 1}); !vec3AlmostEqual(got, mgl64.Vec3{0.5, 0.5, 0.5}, 1e-12) {
		t.Errorf("Support = %v", got)
	}
	if got := hull.ComputeMass(2); !almostEqual(got, 2, 1e-12) {
		t.Errorf("ComputeMass = %v, want 2", got)
	}
}

func TestConvexHull_ContactFeatureIsOrderedFace(t *testing.T) {
	points := append(cubePoints(0.5), mgl64.Vec3{0, -0.5, 0}) // interior point on the bottom face
	hull := NewConvexHull(points)

	face := hull.GetContactFeature(mgl64.Vec3{0, -1, 0})
	if len(face) != 4 {
		t.Fatalf("face has %d vertices, want 4 (interior point dropped)", len(face))
	}

	// consecutive edges turn the same way around the face normal
	normal := mgl64.Vec3{0, -1, 0}
	for i := range face {
		a, b, c := face[i], face[(i+1)%4], face[(i+2)%4]
		turn := b.Sub(a).Cross(c.Sub(b)).Dot(normal)
		if turn <= 0 {
			t.Errorf("face is not counter-clockwise at vertex %d: %v", i, face)
		}
	}
}

func TestConvexHull_ContactFeatureVertex(t *testing.T) {
	hull := NewConvexHull(cubePoints(0.5))

	face := hull.GetContactFeature(mgl64.Vec3{1, 1, 1})
	if len(face) != 1 {
		t.Fatalf("corner feature has %d points, want 1", len(face))
	}
}

func TestConvexHull_Raycast(t *testing.T) {
	cube := NewConvexHull(cubePoints(0.5))
	// wedge rising from y=0 at z=-0.8 to y=0.3 at z=0.8
	wedge := NewConvexHull([]mgl64.Vec3{
		{-0.6, 0, -0.8}, {0.6, 0, -0.8}, {0.6, 0, 0.8}, {-0.6, 0, 0.8},
		{-0.6, 0.3, 0.8}, {0.6, 0.3, 0.8},
	})
	slope := mgl64.Vec3{0, 1.6, -0.3}.Normalize()

	tests := []struct {
		name      string
		hull      *ConvexHull
		origin    mgl64.Vec3
		direction mgl64.Vec3
		max       float64
		hit       bool
		distance  float64
		normal    mgl64.Vec3
	}{
		{"cube face", cube, mgl64.Vec3{-2, 0.1, 0.2}, mgl64.Vec3{1, 0, 0}, 10, true, 1.5, mgl64.Vec3{-1, 0, 0}},
		{"cube top", cube, mgl64.Vec3{0.3, 3, -0.4}, mgl64.Vec3{0, -1, 0}, 10, true, 2.5, mgl64.Vec3{0, 1, 0}},
		{"cube miss", cube, mgl64.Vec3{-2, 0.7, 0}, mgl64.Vec3{1, 0, 0}, 10, false, 0, mgl64.Vec3{}},
		{"pointing away", cube, mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{-1, 0, 0}, 10, false, 0, mgl64.Vec3{}},
		{"too short", cube, mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{1, 0, 0}, 1, false, 0, mgl64.Vec3{}},
		{"inside", cube, mgl64.Vec3{0.1, 0, 0}, mgl64.Vec3{0, 1, 0}, 10, true, 0, mgl64.Vec3{0, -1, 0}},
		{"low end of the slope", wedge, mgl64.Vec3{0, 1, -0.6}, mgl64.Vec3{0, -1, 0}, 5, true, 1 - 0.0375, slope},
		{"middle of the slope", wedge, mgl64.Vec3{0.2, 1, 0}, mgl64.Vec3{0, -1, 0}, 5, true, 1 - 0.15, slope},
		{"above the high edge", wedge, mgl64.Vec3{0, 1, 0.9}, mgl64.Vec3{0, -1, 0}, 5, false, 0, mgl64.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			distance, normal, ok := tt.hull.Raycast(tt.origin, tt.direction, tt.max)
			if ok != tt.hit {
				t.Fatalf("Raycast hit = %v, want %v", ok, tt.hit)
			}
			if !ok {
				return
			}
			if !almostEqual(distance, tt.distance, 1e-5) {
				t.Errorf("distance = %v, want %v", distance, tt.distance)
			}
			if !vec3AlmostEqual(normal, tt.normal, 1e-3) {
				t.Errorf("normal = %v, want %v", normal, tt.normal)
			}
		})
	}
}

func TestTriMesh_DropsInvalidTriangles(t *testing.T) {
	vertices := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}}
	mesh := NewTriMesh(vertices, []uint32{0, 1, 2, 0, 1, 7, 2})

	if mesh.TriangleCount() != 1 {
		t.Errorf("TriangleCount = %d, want 1", mesh.TriangleCount())
	}
}

func TestTriMesh_Raycast(t *testing.T) {
	vertices := []mgl64.Vec3{{-1, 0, -1}, {1, 0, -1}, {1, 0, 1}, {-1, 0, 1}}
	mesh := NewTriMesh(vertices, []uint32{0, 2, 1, 0, 3, 2})

	dist, normal, ok := mesh.Raycast(mgl64.Vec3{0.2, 1, 0.3}, mgl64.Vec3{0, -1, 0}, 5)
	if !ok || !almostEqual(dist, 1, 1e-12) {
		t.Fatalf("Raycast = %v, %v; want hit at 1", dist, ok)
	}
	if !vec3AlmostEqual(normal, mgl64.Vec3{0, 1, 0}, 1e-12) {
		t.Errorf("normal = %v, want facing the ray", normal)
	}

	if _, _, ok := mesh.Raycast(mgl64.Vec3{2, 1, 0}, mgl64.Vec3{0, -1, 0}, 5); ok {
		t.Error("ray outside the mesh should miss")
	}
}

func TestTriMesh_ForEachTriangle(t *testing.T) {
	vertices := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}, {10, 0, 10}, {11, 0, 10}, {10, 0, 11}}
	mesh := NewTriMesh(vertices, []uint32{0, 1, 2, 3, 4, 5})

	count := 0
	mesh.ForEachTriangle(AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{2, 1, 2}}, func(Triangle) { count++ })
	if count != 1 {
		t.Errorf("visited %d triangles, want 1", count)
	}
}
