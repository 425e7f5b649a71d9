package epa

import (
	"math"
	"testing"

	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

func boxBody(position, halfExtents mgl64.Vec3) *actor.RigidBody {
	return actor.NewRigidBody(actor.NewTransformAt(position, mgl64.QuatIdent()), &actor.Box{HalfExtents: halfExtents}, actor.BodyTypeDynamic, 1.0)
}

func sphereBody(position mgl64.Vec3, radius float64) *actor.RigidBody {
	return actor.NewRigidBody(actor.NewTransformAt(position, mgl64.QuatIdent()), &actor.Sphere{Radius: radius}, actor.BodyTypeDynamic, 1.0)
}

func collide(t *testing.T, a, b *actor.RigidBody) (mgl64.Vec3, float64, int) {
	t.Helper()

	var simplex gjk.Simplex
	if !gjk.GJK(a, b, &simplex) {
		t.Fatal("GJK() reported no overlap")
	}

	contact, err := EPA(a, b, &simplex)
	if err != nil {
		t.Fatalf("EPA() error = %v", err)
	}
	if contact.BodyA != a || contact.BodyB != b {
		t.Fatal("EPA() swapped the bodies")
	}
	if len(contact.Points) == 0 {
		t.Fatal("EPA() returned no contact point")
	}
	return contact.Normal, contact.Points[0].Penetration, len(contact.Points)
}

func TestSnapNormalToAxis(t *testing.T) {
	tests := []struct {
		name string
		in   mgl64.Vec3
		want mgl64.Vec3
	}{
		{"axis aligned", mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 0}},
		{"noise removed", mgl64.Vec3{1e-10, -1, 1e-12}, mgl64.Vec3{0, -1, 0}},
		{"diagonal kept", mgl64.Vec3{1, 1, 0}, mgl64.Vec3{math.Sqrt2 / 2, math.Sqrt2 / 2, 0}},
		{"zero falls back to up", mgl64.Vec3{1e-9, 0, 0}, mgl64.Vec3{0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snapNormalToAxis(tt.in)
			if !got.ApproxEqualThreshold(tt.want, 1e-9) {
				t.Errorf("snapNormalToAxis(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEPA_BoxResting(t *testing.T) {
	floor := boxBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 1, 2})
	box := boxBody(mgl64.Vec3{0, 1.8, 0}, mgl64.Vec3{1, 1, 1})

	normal, depth, count := collide(t, floor, box)

	if normal.Y() < 0.99 {
		t.Errorf("normal = %v, want +Y", normal)
	}
	if math.Abs(depth-0.2) > 0.01 {
		t.Errorf("depth = %v, want 0.2", depth)
	}
	if count != 4 {
		t.Errorf("manifold has %d points, want 4", count)
	}
}

func TestEPA_SideContact(t *testing.T) {
	a := boxBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := boxBody(mgl64.Vec3{-1.9, 0.2, 0}, mgl64.Vec3{1, 1, 1})

	normal, depth, _ := collide(t, a, b)

	if normal.X() > -0.99 {
		t.Errorf("normal = %v, want -X (from a toward b)", normal)
	}
	if math.Abs(depth-0.1) > 0.01 {
		t.Errorf("depth = %v, want 0.1", depth)
	}
}

func TestEPA_InvalidSimplex(t *testing.T) {
	a := boxBody(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	b := boxBody(mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{1, 1, 1})

	var builder PolytopeBuilder
	simplex := &gjk.Simplex{Count: 3}
	if err := builder.BuildInitialFaces(simplex); err == nil {
		t.Error("BuildInitialFaces() should reject a triangle")
	}

	// an incomplete simplex still yields a usable contact
	simplex = &gjk.Simplex{Count: 1}
	contact, err := EPA(a, b, simplex)
	if err != nil {
		t.Fatalf("EPA() error = %v", err)
	}
	if !contact.Normal.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("normal = %v, want the center line", contact.Normal)
	}
	if contact.Points[0].Penetration != DegeneratePenetrationEstimate {
		t.Errorf("penetration = %v, want %v", contact.Points[0].Penetration, DegeneratePenetrationEstimate)
	}
}

func TestHandleDegenerateSimplex(t *testing.T) {
	a := sphereBody(mgl64.Vec3{}, 1)
	b := sphereBody(mgl64.Vec3{0, 1.5, 0}, 1)

	t.Run("closest point gives the normal", func(t *testing.T) {
		simplex := &gjk.Simplex{Points: [4]mgl64.Vec3{{0, -2, 0}, {0, -0.5, 0}}, Count: 2}
		contact := handleDegenerateSimplex(a, b, simplex)

		if !contact.Normal.ApproxEqualThreshold(mgl64.Vec3{0, -1, 0}, 1e-9) {
			t.Errorf("normal = %v, want {0 -1 0}", contact.Normal)
		}
		if math.Abs(contact.Points[0].Penetration-0.5) > 1e-9 {
			t.Errorf("penetration = %v, want 0.5", contact.Points[0].Penetration)
		}
	})

	t.Run("concentric bodies", func(t *testing.T) {
		c := sphereBody(mgl64.Vec3{}, 0.5)
		contact := handleDegenerateSimplex(a, c, &gjk.Simplex{Count: 1})

		if contact.Normal != (mgl64.Vec3{0, 1, 0}) {
			t.Errorf("normal = %v, want the up fallback", contact.Normal)
		}
	})
}

func TestCalculateCentroid_CountsEveryVertexOnce(t *testing.T) {
	p := [4]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {-1, -1, -1}}
	simplex := &gjk.Simplex{Points: p, Count: 4}

	var builder PolytopeBuilder
	if err := builder.BuildInitialFaces(simplex); err != nil {
		t.Fatal(err)
	}

	got := builder.calculateCentroid()
	if !got.ApproxEqualThreshold(mgl64.Vec3{0, 0, 0}, 1e-12) {
		t.Errorf("centroid = %v, want origin", got)
	}
	if len(builder.uniquePoints) != 4 {
		t.Errorf("unique points = %d, want 4", len(builder.uniquePoints))
	}
}

func TestAddPointAndRebuildFaces(t *testing.T) {
	simplex := &gjk.Simplex{Points: [4]mgl64.Vec3{{1, 1, 1}, {1, -1, -1}, {-1, 1, -1}, {-1, -1, 1}}, Count: 4}

	var builder PolytopeBuilder
	if err := builder.BuildInitialFaces(simplex); err != nil {
		t.Fatal(err)
	}
	closest := builder.FindClosestFaceIndex()
	support := builder.faces[closest].Normal.Mul(3)

	if err := builder.AddPointAndRebuildFaces(support, closest); err != nil {
		t.Fatal(err)
	}
	// one face replaced by a fan of three
	if len(builder.faces) != 6 {
		t.Errorf("faces = %d, want 6", len(builder.faces))
	}
	for _, face := range builder.faces {
		if face.Distance <= 0 {
			t.Errorf("face %v does not face away from the origin", face)
		}
	}

	if err := builder.AddPointAndRebuildFaces(support, 42); err == nil {
		t.Error("AddPointAndRebuildFaces() should reject an unknown face")
	}
}
