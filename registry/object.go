package registry

import (
	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/scene"
	"github.com/google/uuid"
)

// TrackedObject pairs a scene node with the rigid body driving it.
type TrackedObject struct {
	ID   uuid.UUID
	Node *scene.Node
	Body *actor.RigidBody

	// Origin is the spawn pose, target of the resets
	Origin scene.Pose

	Grabbable bool
	// Manual objects have their node written by their owner (the vehicle) instead of Sync.
	Manual bool

	attachment scene.Attachment
	owner      scene.Hand
	owned      bool
}

// Owner returns the hand holding the object, if any.
func (o *TrackedObject) Owner() (scene.Hand, bool) {
	return o.owner, o.owned
}

func (o *TrackedObject) Held() bool {
	return o.owned
}

// Claim gives the object to hand. It fails when another hand already holds it.
func (o *TrackedObject) Claim(hand scene.Hand, attachment scene.Attachment) bool {
	if o.owned && o.owner != hand {
		return false
	}
	o.owner, o.owned = hand, true
	o.attachment = attachment
	return true
}

// Release hands the object back to the world at the given world pose.
func (o *TrackedObject) Release(world scene.Pose) {
	o.owned = false
	o.attachment = scene.WorldAttachment(world)
}

func (o *TrackedObject) Attachment() scene.Attachment {
	return o.attachment
}

// BodyPose is the world pose of the rigid body
func (o *TrackedObject) BodyPose() scene.Pose {
	return scene.Pose{Position: o.Body.Transform.Position, Rotation: o.Body.Transform.Rotation}
}
