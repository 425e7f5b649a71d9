// Package registry owns the physics world and keeps every physics-enabled
// scene node paired with its rigid body.
package registry

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/rover"
	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/internal/logging"
	"github.com/akmonengine/rover/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoGeometry      = errors.New("node has no geometry")
	ErrUnknownCollider = errors.New("unknown collider")

	// ErrUnsupportedCollider is returned for a dynamic trimesh, its mass is infinite.
	ErrUnsupportedCollider = errors.New("collider cannot be dynamic")
)

type Collider string

const (
	ColliderCuboid     Collider = "cuboid"
	ColliderBall       Collider = "ball"
	ColliderTriMesh    Collider = "trimesh"
	ColliderConvexHull Collider = "convexHull"
)

// DefaultDensity is used for every body built from a node
const DefaultDensity = 1.0

type Registry struct {
	world   *rover.World
	objects []*TrackedObject
	byNode  map[*scene.Node]*TrackedObject
	byBody  map[*actor.RigidBody]*TrackedObject
	logger  *zap.Logger
}

func New(world *rover.World, logger *zap.Logger) *Registry {
	return &Registry{
		world:  world,
		byNode: make(map[*scene.Node]*TrackedObject),
		byBody: make(map[*actor.RigidBody]*TrackedObject),
		logger: logging.OrNop(logger),
	}
}

func (r *Registry) World() *rover.World {
	return r.world
}

// Add builds a body from the node geometry and its world scale, places it at
// the node world pose and pairs both.
func (r *Registry) Add(node *scene.Node, bodyType actor.BodyType, collider Collider) (*TrackedObject, error) {
	shape, err := buildShape(node, collider)
	if err == nil && bodyType == actor.BodyTypeDynamic && collider == ColliderTriMesh {
		err = ErrUnsupportedCollider
	}
	if err != nil {
		r.logger.Error("cannot build collider",
			zap.String("node", node.Name),
			zap.String("collider", string(collider)),
			zap.Error(err))
		return nil, fmt.Errorf("add %q: %w", node.Name, err)
	}

	pose := node.WorldPose()
	body := actor.NewRigidBody(actor.NewTransformAt(pose.Position, pose.Rotation), shape, bodyType, DefaultDensity)
	r.world.AddBody(body)

	object := r.Track(node, body)
	r.logger.Debug("body added",
		zap.String("node", node.Name),
		zap.Stringer("type", bodyType),
		zap.Stringer("shape", shape.Type()))
	return object, nil
}

// Track pairs a node with a body built elsewhere. The body is added to the world when missing.
func (r *Registry) Track(node *scene.Node, body *actor.RigidBody) *TrackedObject {
	if existing, ok := r.byNode[node]; ok {
		return existing
	}
	if !r.inWorld(body) {
		r.world.AddBody(body)
	}

	object := &TrackedObject{
		ID:     uuid.New(),
		Node:   node,
		Body:   body,
		Origin: scene.Pose{Position: body.Transform.Position, Rotation: body.Transform.Rotation},
	}
	object.attachment = scene.WorldAttachment(object.Origin)

	r.objects = append(r.objects, object)
	r.byNode[node] = object
	r.byBody[body] = object
	return object
}

func (r *Registry) inWorld(body *actor.RigidBody) bool {
	if _, ok := r.byBody[body]; ok {
		return true
	}
	for _, b := range r.world.Bodies {
		if b == body {
			return true
		}
	}
	return false
}

// Objects returns the tracked objects in insertion order. The slice must not be modified.
func (r *Registry) Objects() []*TrackedObject {
	return r.objects
}

func (r *Registry) ByNode(node *scene.Node) (*TrackedObject, bool) {
	object, ok := r.byNode[node]
	return object, ok
}

func (r *Registry) ByBody(body *actor.RigidBody) (*TrackedObject, bool) {
	object, ok := r.byBody[body]
	return object, ok
}

// Step advances the world. The caller clamps dt.
func (r *Registry) Step(dt float64) {
	r.world.Step(dt)
}

// Sync copies each body world pose onto its node, converted into the parent
// space. Held, manual and disabled objects are skipped.
func (r *Registry) Sync() {
	for _, object := range r.objects {
		if object.owned || object.Manual || !object.Body.Enabled() {
			continue
		}
		object.Node.SetWorldPose(object.BodyPose())
	}
}

// ResetAll puts the dynamic objects matching predicate back at their origin,
// at rest. It returns how many were reset.
func (r *Registry) ResetAll(predicate func(*TrackedObject) bool) int {
	count := 0
	for _, object := range r.objects {
		if predicate != nil && !predicate(object) {
			continue
		}
		if object.Body.BodyType != actor.BodyTypeDynamic {
			r.logger.Debug("reset skipped, body is not dynamic",
				zap.String("node", object.Node.Name),
				zap.Stringer("type", object.Body.BodyType))
			continue
		}

		object.Body.SetTranslation(object.Origin.Position)
		object.Body.SetRotation(object.Origin.Rotation)
		object.Body.SetLinearVelocity(mgl64.Vec3{})
		object.Body.SetAngularVelocity(mgl64.Vec3{})
		object.attachment = scene.WorldAttachment(object.Origin)
		count++
	}
	return count
}

func buildShape(node *scene.Node, collider Collider) (actor.ShapeInterface, error) {
	scale := node.WorldScale()

	switch collider {
	case ColliderCuboid:
		bounds, ok := node.Geometry.Bounds()
		if !ok {
			return nil, ErrNoGeometry
		}
		half := bounds.HalfExtents()
		return &actor.Box{HalfExtents: mulAbs(half, scale)}, nil

	case ColliderBall:
		_, radius, ok := node.Geometry.BoundingSphere()
		if !ok {
			return nil, ErrNoGeometry
		}
		maxScale := math.Max(math.Abs(scale.X()), math.Max(math.Abs(scale.Y()), math.Abs(scale.Z())))
		return &actor.Sphere{Radius: radius * maxScale}, nil

	case ColliderTriMesh:
		if node.Geometry.Empty() || len(node.Geometry.Indices) < 3 {
			return nil, ErrNoGeometry
		}
		vertices := make([]mgl64.Vec3, len(node.Geometry.Positions))
		for i, p := range node.Geometry.Positions {
			vertices[i] = mul(p, scale)
		}
		return actor.NewTriMesh(vertices, node.Geometry.Indices), nil

	case ColliderConvexHull:
		// the hull lives in the body frame: subtree points, scaled
		points := node.Points()
		if len(points) == 0 {
			return nil, ErrNoGeometry
		}
		for i, p := range points {
			points[i] = mul(p, scale)
		}
		return actor.NewConvexHull(points), nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnknownCollider, collider)
}

func mul(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

func mulAbs(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Abs(a.X() * b.X()), math.Abs(a.Y() * b.Y()), math.Abs(a.Z() * b.Z())}
}
