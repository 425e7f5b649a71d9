// Package rover is a small XPBD rigid body engine: substepped integration,
// a hashed grid broad phase, GJK/EPA contacts with restitution and friction,
// sleeping and step events. The sandbox packages build on it.
package rover

import (
	"math"

	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DEFAULT_WORKERS   = 1
	DEFAULT_SUBSTEPS  = 4
	DEFAULT_CELL_SIZE = 2.0
	DEFAULT_CELLS     = 4096

	SleepTimeThreshold     = 0.1
	SleepVelocityThreshold = 0.05
)

type World struct {
	// List of all rigid bodies in the world
	Bodies []*actor.RigidBody
	// Gravity acceleration (m/s², or N/kg)
	Gravity     mgl64.Vec3
	Substeps    int
	SpatialGrid *SpatialGrid
	Workers     int

	Events Events
}

// NewWorld creates an empty world with the default broad phase
func NewWorld(gravity mgl64.Vec3, substeps int) *World {
	if substeps <= 0 {
		substeps = DEFAULT_SUBSTEPS
	}

	return &World{
		Gravity:     gravity,
		Substeps:    substeps,
		SpatialGrid: NewSpatialGrid(DEFAULT_CELL_SIZE, DEFAULT_CELLS),
		Workers:     DEFAULT_WORKERS,
		Events:      NewEvents(),
	}
}

// AddBody adds a rigid body to the world
func (w *World) AddBody(body *actor.RigidBody) {
	w.Bodies = append(w.Bodies, body)
}

// RemoveBody removes a rigid body from the world
func (w *World) RemoveBody(body *actor.RigidBody) {
	for i, b := range w.Bodies {
		if b == body {
			w.Bodies = append(w.Bodies[:i], w.Bodies[i+1:]...)
			break
		}
	}

	w.Events.forget(body)
}

// Step advances the simulation by dt seconds, split in Substeps substeps.
// Constraints are solved one after the other, in body order, so that two
// worlds fed the same inputs stay identical.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	if w.SpatialGrid == nil {
		w.SpatialGrid = NewSpatialGrid(DEFAULT_CELL_SIZE, DEFAULT_CELLS)
	}
	w.Workers = max(DEFAULT_WORKERS, w.Workers)
	w.Substeps = max(1, w.Substeps)
	h := dt / float64(w.Substeps)

	for range w.Substeps {
		w.integrate(h)

		constraints := w.detectCollision()
		constraints = w.Events.recordCollisions(constraints)

		// one position iteration is enough thanks to substeps
		w.solvePosition(h, constraints)
		w.update(h)
		w.solveVelocity(h, constraints)

		w.trySleep(h)
	}

	w.Events.processSleepEvents(w.Bodies)
	w.Events.flush()
}

func (w *World) integrate(h float64) {
	task(w.Workers, w.Bodies, func(body *actor.RigidBody) {
		body.Integrate(h, w.Gravity)
	})
}

func (w *World) detectCollision() []*constraint.ContactConstraint {
	return NarrowPhase(BroadPhase(w.SpatialGrid, w.Bodies, w.Workers), w.Workers)
}

// solvePosition is sequential: a body may appear in several constraints
func (w *World) solvePosition(h float64, constraints []*constraint.ContactConstraint) {
	for _, c := range constraints {
		c.SolvePosition(h)
	}
}

func (w *World) update(h float64) {
	task(w.Workers, w.Bodies, func(body *actor.RigidBody) {
		body.Update(h)
	})
}

func (w *World) solveVelocity(h float64, constraints []*constraint.ContactConstraint) {
	for _, c := range constraints {
		c.SolveVelocity(h)
	}
}

// trySleep is too cheap to be worth a task
func (w *World) trySleep(h float64) {
	for _, body := range w.Bodies {
		body.TrySleep(h, SleepTimeThreshold, SleepVelocityThreshold)
	}
}

// CastRay returns the closest hit along direction within maxDistance.
// Disabled bodies and bodies rejected by filter (when not nil) are ignored.
func (w *World) CastRay(origin, direction mgl64.Vec3, maxDistance float64, filter func(*actor.RigidBody) bool) (actor.RayHit, bool) {
	if direction.LenSqr() < 1e-24 || maxDistance <= 0 {
		return actor.RayHit{}, false
	}
	direction = direction.Normalize()

	best := actor.RayHit{Distance: math.Inf(1)}
	found := false
	for _, body := range w.Bodies {
		if !body.Enabled() || body.IsTrigger {
			continue
		}
		if filter != nil && !filter(body) {
			continue
		}

		limit := math.Min(maxDistance, best.Distance)
		if _, _, ok := body.Shape.GetAABB().IntersectRay(origin, direction, limit); !ok {
			continue
		}

		hit, ok := body.CastRay(origin, direction, limit)
		if !ok || (found && hit.Distance >= best.Distance) {
			continue
		}
		hit.Body = body
		best, found = hit, true
	}

	return best, found
}
