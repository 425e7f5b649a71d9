package rover

import (
	"cmp"
	"slices"

	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/constraint"
	"github.com/akmonengine/rover/epa"
	"github.com/akmonengine/rover/gjk"
	"golang.org/x/sync/errgroup"
)

// CollisionPair is a pair GJK found overlapping, with the simplex EPA starts from
type CollisionPair struct {
	Pair
	simplex *gjk.Simplex
}

// contact keeps the pair indices of a constraint so the solver order does
// not depend on worker scheduling.
type contact struct {
	indexA, indexB int
	constraint     *constraint.ContactConstraint
}

// BroadPhase fills the grid with bodies and returns the candidate pairs
func BroadPhase(spatialGrid *SpatialGrid, bodies []*actor.RigidBody, workersCount int) <-chan Pair {
	spatialGrid.Clear()
	for i, body := range bodies {
		spatialGrid.Insert(i, body)
	}
	spatialGrid.SortCells()

	return spatialGrid.FindPairsParallel(bodies, workersCount)
}

// NarrowPhase dispatches the pairs between the plane, triangle mesh and
// GJK/EPA paths and returns the contacts sorted by body indices.
func NarrowPhase(pairs <-chan Pair, workersCount int) []*constraint.ContactConstraint {
	workersCount = max(1, workersCount)

	planePairs := make(chan Pair, workersCount)
	meshPairs := make(chan Pair, workersCount)
	convexPairs := make(chan Pair, workersCount)

	go func() {
		defer close(planePairs)
		defer close(meshPairs)
		defer close(convexPairs)

		for pair := range pairs {
			switch {
			case isShape(pair, actor.ShapeTypePlane):
				planePairs <- pair
			case isShape(pair, actor.ShapeTypeTriMesh):
				meshPairs <- pair
			default:
				convexPairs <- pair
			}
		}
	}()

	allContacts := make(chan contact, workersCount*2)

	var g errgroup.Group
	g.Go(func() error {
		for c := range EPA(GJK(convexPairs, workersCount), workersCount) {
			allContacts <- c
		}
		return nil
	})
	g.Go(func() error {
		for c := range collidePlane(planePairs, workersCount) {
			allContacts <- c
		}
		return nil
	})
	g.Go(func() error {
		for c := range collideMesh(meshPairs, workersCount) {
			allContacts <- c
		}
		return nil
	})

	go func() {
		_ = g.Wait()
		close(allContacts)
	}()

	var collected []contact
	for c := range allContacts {
		collected = append(collected, c)
	}

	// per pair, contacts are produced by a single worker in a fixed order
	slices.SortStableFunc(collected, func(a, b contact) int {
		if c := cmp.Compare(a.indexA, b.indexA); c != 0 {
			return c
		}
		return cmp.Compare(a.indexB, b.indexB)
	})

	constraints := make([]*constraint.ContactConstraint, len(collected))
	for i, c := range collected {
		constraints[i] = c.constraint
	}
	return constraints
}

func isShape(pair Pair, shapeType actor.ShapeType) bool {
	return pair.BodyA.Shape.Type() == shapeType || pair.BodyB.Shape.Type() == shapeType
}

// GJK keeps the overlapping pairs
func GJK(pairChan <-chan Pair, workersCount int) <-chan CollisionPair {
	collisionChan := make(chan CollisionPair, workersCount)

	go func() {
		defer close(collisionChan)

		var g errgroup.Group
		for range workersCount {
			g.Go(func() error {
				for p := range pairChan {
					simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
					simplex.Reset()

					if gjk.GJK(p.BodyA, p.BodyB, simplex) {
						collisionChan <- CollisionPair{Pair: p, simplex: simplex}
					} else {
						gjk.SimplexPool.Put(simplex)
					}
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return collisionChan
}

// EPA turns overlapping pairs into contacts, pairs where EPA fails are dropped
func EPA(p <-chan CollisionPair, workersCount int) <-chan contact {
	ch := make(chan contact, workersCount)

	go func() {
		defer close(ch)

		var g errgroup.Group
		for range workersCount {
			g.Go(func() error {
				for pair := range p {
					c, err := epa.EPA(pair.BodyA, pair.BodyB, pair.simplex)
					gjk.SimplexPool.Put(pair.simplex)
					if err != nil {
						continue
					}
					ch <- contact{indexA: pair.IndexA, indexB: pair.IndexB, constraint: &c}
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return ch
}

// collidePlane tests the contact feature of the other body, facing the plane,
// against the plane. The plane body becomes BodyA and the normal is the plane normal.
func collidePlane(pairs <-chan Pair, workersCount int) <-chan contact {
	ch := make(chan contact, workersCount)

	go func() {
		defer close(ch)

		var g errgroup.Group
		for range workersCount {
			g.Go(func() error {
				for pair := range pairs {
					planeBody, object := pair.BodyA, pair.BodyB
					if object.Shape.Type() == actor.ShapeTypePlane {
						planeBody, object = object, planeBody
					}
					if object.Shape.Type() == actor.ShapeTypePlane || object.Shape.Type() == actor.ShapeTypeTriMesh {
						continue
					}

					if c, ok := planeContact(planeBody, object); ok {
						ch <- contact{indexA: pair.IndexA, indexB: pair.IndexB, constraint: c}
					}
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return ch
}

func planeContact(planeBody, object *actor.RigidBody) (*constraint.ContactConstraint, bool) {
	plane := planeBody.Shape.(*actor.Plane)
	normal, offset := plane.WorldPlane(planeBody.Transform)

	feature := object.Shape.GetContactFeature(object.Transform.InverseRotation.Rotate(normal.Mul(-1)))

	var points []constraint.ContactPoint
	for _, local := range feature {
		point := object.Transform.Point(local)
		if penetration := offset - normal.Dot(point); penetration > 0 {
			points = append(points, constraint.ContactPoint{Position: point, Penetration: penetration})
		}
	}
	if len(points) == 0 {
		return nil, false
	}

	return &constraint.ContactConstraint{
		BodyA:  planeBody,
		BodyB:  object,
		Normal: normal,
		Points: points,
	}, true
}

// collideMesh runs GJK/EPA between the other body and each mesh triangle
// overlapping its bounds. Contacts keep the mesh body as BodyA.
func collideMesh(pairs <-chan Pair, workersCount int) <-chan contact {
	ch := make(chan contact, workersCount)

	go func() {
		defer close(ch)

		var g errgroup.Group
		for range workersCount {
			g.Go(func() error {
				for pair := range pairs {
					meshBody, object := pair.BodyA, pair.BodyB
					if object.Shape.Type() == actor.ShapeTypeTriMesh {
						meshBody, object = object, meshBody
					}
					if object.Shape.Type() == actor.ShapeTypeTriMesh {
						continue
					}

					for _, c := range meshContacts(meshBody, object) {
						ch <- contact{indexA: pair.IndexA, indexB: pair.IndexB, constraint: c}
					}
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return ch
}

func meshContacts(meshBody, object *actor.RigidBody) []*constraint.ContactConstraint {
	mesh := meshBody.Shape.(*actor.TriMesh)
	localBounds := object.Shape.GetAABB().Transformed(meshBody.Transform.Inverse())

	var contacts []*constraint.ContactConstraint
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)

	mesh.ForEachTriangle(localBounds, func(tri actor.Triangle) {
		proxy := &actor.RigidBody{
			Transform:         meshBody.Transform,
			PreviousTransform: meshBody.PreviousTransform,
			Shape:             &tri,
			BodyType:          meshBody.BodyType,
			Material:          meshBody.Material,
			IsTrigger:         meshBody.IsTrigger,
		}

		simplex.Reset()
		if !gjk.GJK(proxy, object, simplex) {
			return
		}

		c, err := epa.EPA(proxy, object, simplex)
		if err != nil {
			return
		}
		c.BodyA = meshBody
		contacts = append(contacts, &c)
	})

	return contacts
}
