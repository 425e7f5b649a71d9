package rover

import (
	"testing"

	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

func createEventBody(isTrigger, isSleeping bool) *actor.RigidBody {
	rb := actor.NewRigidBody(actor.NewTransform(), &actor.Sphere{Radius: 1.0}, actor.BodyTypeDynamic, 1.0)
	rb.IsTrigger = isTrigger
	rb.IsSleeping = isSleeping
	return rb
}

func createTestConstraint(bodyA, bodyB *actor.RigidBody) *constraint.ContactConstraint {
	return &constraint.ContactConstraint{
		BodyA:  bodyA,
		BodyB:  bodyB,
		Normal: mgl64.Vec3{1, 0, 0},
		Points: []constraint.ContactPoint{{Penetration: 0.1}},
	}
}

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) types() []EventType {
	types := make([]EventType, len(ec.events))
	for i, e := range ec.events {
		types[i] = e.Type()
	}
	return types
}

func (ec *eventCapture) reset() {
	ec.events = ec.events[:0]
}

func subscribeAll(events *Events, capture *eventCapture) {
	for t := TRIGGER_ENTER; t <= ON_WAKE; t++ {
		events.Subscribe(t, capture.capture)
	}
}

func step(events *Events, bodies []*actor.RigidBody, constraints ...*constraint.ContactConstraint) []*constraint.ContactConstraint {
	kept := events.recordCollisions(constraints)
	events.processSleepEvents(bodies)
	events.flush()
	return kept
}

func assertTypes(t *testing.T, got []EventType, want ...EventType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got events %v, want %v", got, want)
		}
	}
}

func TestEvents_Subscribe(t *testing.T) {
	var events Events
	capture := &eventCapture{}

	// the zero value is usable
	events.Subscribe(COLLISION_ENTER, capture.capture)
	events.Subscribe(COLLISION_ENTER, capture.capture)

	if got := len(events.listeners[COLLISION_ENTER]); got != 2 {
		t.Errorf("got %d listeners, want 2", got)
	}
}

func TestEvents_CollisionLifecycle(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	a, b := createEventBody(false, false), createEventBody(false, false)
	bodies := []*actor.RigidBody{a, b}

	step(&events, bodies, createTestConstraint(a, b))
	assertTypes(t, capture.types(), COLLISION_ENTER)

	capture.reset()
	step(&events, bodies, createTestConstraint(b, a))
	assertTypes(t, capture.types(), COLLISION_STAY)

	capture.reset()
	step(&events, bodies)
	assertTypes(t, capture.types(), COLLISION_EXIT)

	capture.reset()
	step(&events, bodies)
	assertTypes(t, capture.types())
}

func TestEvents_SubstepsReportOnce(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	a, b := createEventBody(false, false), createEventBody(false, false)

	for range 4 {
		events.recordCollisions([]*constraint.ContactConstraint{createTestConstraint(a, b)})
	}
	events.flush()

	assertTypes(t, capture.types(), COLLISION_ENTER)
}

func TestEvents_TriggerLifecycle(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	trigger, body := createEventBody(true, false), createEventBody(false, false)
	bodies := []*actor.RigidBody{trigger, body}

	kept := step(&events, bodies, createTestConstraint(trigger, body))
	if len(kept) != 0 {
		t.Errorf("trigger constraints should not reach the solver, got %d", len(kept))
	}
	assertTypes(t, capture.types(), TRIGGER_ENTER)

	capture.reset()
	step(&events, bodies, createTestConstraint(body, trigger))
	assertTypes(t, capture.types(), TRIGGER_STAY)

	capture.reset()
	step(&events, bodies)
	assertTypes(t, capture.types(), TRIGGER_EXIT)
}

func TestEvents_RecordCollisionsKeepsSolidConstraints(t *testing.T) {
	events := NewEvents()

	a, b, c := createEventBody(false, false), createEventBody(false, false), createEventBody(true, false)
	solid := createTestConstraint(a, b)

	kept := events.recordCollisions([]*constraint.ContactConstraint{
		createTestConstraint(a, c),
		solid,
		createTestConstraint(c, b),
	})

	if len(kept) != 1 || kept[0] != solid {
		t.Errorf("got %v, want only the solid constraint", kept)
	}
}

func TestEvents_SleepingPairsAreQuiet(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	events.Subscribe(COLLISION_STAY, capture.capture)

	a, b := createEventBody(false, false), createEventBody(false, false)
	bodies := []*actor.RigidBody{a, b}
	step(&events, bodies, createTestConstraint(a, b))

	a.IsSleeping, b.IsSleeping = true, true
	step(&events, bodies, createTestConstraint(a, b))

	if len(capture.events) != 0 {
		t.Errorf("got %d stay events between sleeping bodies", len(capture.events))
	}
}

func TestEvents_SleepAndWake(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	body := createEventBody(false, false)
	bodies := []*actor.RigidBody{body}

	// the first step only records the state
	step(&events, bodies)
	assertTypes(t, capture.types())

	body.Sleep()
	step(&events, bodies)
	assertTypes(t, capture.types(), ON_SLEEP)
	if capture.events[0].(SleepEvent).Body != body {
		t.Error("sleep event should carry the body")
	}

	capture.reset()
	step(&events, bodies)
	assertTypes(t, capture.types())

	body.Awake()
	step(&events, bodies)
	assertTypes(t, capture.types(), ON_WAKE)
}

func TestEvents_OrderFollowsContacts(t *testing.T) {
	bodies := make([]*actor.RigidBody, 6)
	for i := range bodies {
		bodies[i] = createEventBody(false, false)
	}

	constraints := func() []*constraint.ContactConstraint {
		return []*constraint.ContactConstraint{
			createTestConstraint(bodies[0], bodies[1]),
			createTestConstraint(bodies[4], bodies[5]),
			createTestConstraint(bodies[2], bodies[3]),
		}
	}

	for range 10 {
		events := NewEvents()
		capture := &eventCapture{}
		events.Subscribe(COLLISION_ENTER, capture.capture)

		step(&events, bodies, constraints()...)

		if len(capture.events) != 3 {
			t.Fatalf("got %d events, want 3", len(capture.events))
		}
		for i, want := range []*actor.RigidBody{bodies[0], bodies[4], bodies[2]} {
			e := capture.events[i].(CollisionEnterEvent)
			if e.BodyA != want && e.BodyB != want {
				t.Fatalf("event %d does not involve the expected body", i)
			}
		}
	}
}

func TestEvents_Forget(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	a, b := createEventBody(false, false), createEventBody(false, false)
	step(&events, []*actor.RigidBody{a, b}, createTestConstraint(a, b))

	events.forget(b)
	capture.reset()
	step(&events, []*actor.RigidBody{a})

	// no exit event for a body that left the world
	assertTypes(t, capture.types())
	if _, ok := events.sleepStates[b]; ok {
		t.Error("sleep state of a removed body should be dropped")
	}
}

func TestEventType_String(t *testing.T) {
	if COLLISION_ENTER.String() != "collisionEnter" || ON_WAKE.String() != "wake" {
		t.Error("unexpected event names")
	}
	if EventType(99).String() != "unknown" {
		t.Error("unknown event type should say so")
	}
}
