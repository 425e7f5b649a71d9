package rover

import (
	"unsafe"

	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/constraint"
)

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_STAY
	COLLISION_STAY
	TRIGGER_EXIT
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
)

type EventType uint8

func (t EventType) String() string {
	switch t {
	case TRIGGER_ENTER:
		return "triggerEnter"
	case COLLISION_ENTER:
		return "collisionEnter"
	case TRIGGER_STAY:
		return "triggerStay"
	case COLLISION_STAY:
		return "collisionStay"
	case TRIGGER_EXIT:
		return "triggerExit"
	case COLLISION_EXIT:
		return "collisionExit"
	case ON_SLEEP:
		return "sleep"
	case ON_WAKE:
		return "wake"
	}
	return "unknown"
}

type pairKey struct {
	bodyA *actor.RigidBody
	bodyB *actor.RigidBody
}

// makePairKey orders the bodies by address so (A, B) and (B, A) share a key
func makePairKey(bodyA, bodyB *actor.RigidBody) pairKey {
	if uintptr(unsafe.Pointer(bodyB)) < uintptr(unsafe.Pointer(bodyA)) {
		bodyA, bodyB = bodyB, bodyA
	}

	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

func (p pairKey) isTrigger() bool {
	return p.bodyA.IsTrigger || p.bodyB.IsTrigger
}

// Event is implemented by every event published by the world
type Event interface {
	Type() EventType
}

type TriggerEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

type CollisionEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

type EventListener func(event Event)

// activePairs is a set remembering insertion order, so events come out in
// the solver order.
type activePairs struct {
	set   map[pairKey]bool
	order []pairKey
}

func (a *activePairs) add(pair pairKey) {
	if a.set[pair] {
		return
	}
	a.set[pair] = true
	a.order = append(a.order, pair)
}

func (a *activePairs) remove(body *actor.RigidBody) {
	n := 0
	for _, pair := range a.order {
		if pair.bodyA == body || pair.bodyB == body {
			delete(a.set, pair)
			continue
		}
		a.order[n] = pair
		n++
	}
	a.order = a.order[:n]
}

func (a *activePairs) reset() {
	clear(a.set)
	a.order = a.order[:0]
}

// Events buffers what happens during a step and publishes it once the step ends
type Events struct {
	listeners map[EventType][]EventListener
	buffer    []Event

	previousActivePairs activePairs
	currentActivePairs  activePairs

	sleepStates map[*actor.RigidBody]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: activePairs{set: make(map[pairKey]bool)},
		currentActivePairs:  activePairs{set: make(map[pairKey]bool)},
		sleepStates:         make(map[*actor.RigidBody]bool),
	}
}

// Subscribe adds a listener for an event type. Listeners run on the goroutine calling World.Step.
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	if e.listeners == nil {
		*e = NewEvents()
	}
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordCollisions marks the pairs in contact during a substep and drops
// the constraints involving a trigger.
func (e *Events) recordCollisions(constraints []*constraint.ContactConstraint) []*constraint.ContactConstraint {
	n := 0
	for _, c := range constraints {
		e.currentActivePairs.add(makePairKey(c.BodyA, c.BodyB))

		if !c.BodyA.IsTrigger && !c.BodyB.IsTrigger {
			constraints[n] = c
			n++
		}
	}

	return constraints[:n]
}

// forget removes every trace of a body leaving the world
func (e *Events) forget(body *actor.RigidBody) {
	delete(e.sleepStates, body)
	e.previousActivePairs.remove(body)
	e.currentActivePairs.remove(body)
}

// processCollisionEvents compares the pairs of this step with the previous one
func (e *Events) processCollisionEvents() {
	for _, pair := range e.currentActivePairs.order {
		// two sleeping bodies would only repeat Stay events
		if pair.bodyA.IsSleeping && pair.bodyB.IsSleeping {
			continue
		}

		stay := e.previousActivePairs.set[pair]
		switch {
		case stay && pair.isTrigger():
			e.buffer = append(e.buffer, TriggerStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		case stay:
			e.buffer = append(e.buffer, CollisionStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		case pair.isTrigger():
			e.buffer = append(e.buffer, TriggerEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		default:
			e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	for _, pair := range e.previousActivePairs.order {
		if e.currentActivePairs.set[pair] {
			continue
		}
		if pair.isTrigger() {
			e.buffer = append(e.buffer, TriggerExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		} else {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	e.currentActivePairs.reset()
}

func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		trackedState, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

// flush publishes the buffered events
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
