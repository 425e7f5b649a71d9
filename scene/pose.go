package scene

import "github.com/go-gl/mathgl/mgl64"

// Pose is a rigid placement: no scale.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

func IdentityPose() Pose {
	return Pose{Rotation: mgl64.QuatIdent()}
}

// Compose returns the world pose of local, expressed relative to parent.
func Compose(parent, local Pose) Pose {
	return Pose{
		Position: parent.Position.Add(parent.Rotation.Rotate(local.Position)),
		Rotation: parent.Rotation.Mul(local.Rotation).Normalize(),
	}
}

// Relative is the inverse of Compose: Compose(parent, Relative(parent, world)) == world.
func Relative(parent, world Pose) Pose {
	inverse := parent.Rotation.Inverse()
	return Pose{
		Position: inverse.Rotate(world.Position.Sub(parent.Position)),
		Rotation: inverse.Mul(world.Rotation).Normalize(),
	}
}

func (p Pose) ApproxEqual(other Pose, epsilon float64) bool {
	if !p.Position.ApproxEqualThreshold(other.Position, epsilon) {
		return false
	}
	// q and -q are the same rotation
	return p.Rotation.ApproxEqualThreshold(other.Rotation, epsilon) ||
		p.Rotation.ApproxEqualThreshold(other.Rotation.Scale(-1), epsilon)
}

// Hand identifies a tracked controller.
type Hand int

const (
	Left Hand = iota
	Right
)

var Hands = [...]Hand{Left, Right}

func (h Hand) String() string {
	switch h {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

type FrameKind uint8

const (
	FrameWorld FrameKind = iota
	FrameHand
)

// Attachment tells in which frame an object pose is owned. Offset is the
// world pose for FrameWorld and the pose relative to the hand for FrameHand.
type Attachment struct {
	Frame  FrameKind
	Hand   Hand
	Offset Pose
}

func WorldAttachment(world Pose) Attachment {
	return Attachment{Frame: FrameWorld, Offset: world}
}

// AttachTo keeps objectWorld fixed relative to the hand from now on.
func AttachTo(hand Hand, handPose, objectWorld Pose) Attachment {
	return Attachment{
		Frame:  FrameHand,
		Hand:   hand,
		Offset: Relative(handPose, objectWorld),
	}
}

// Resolve returns the world pose of the attached object.
func (a Attachment) Resolve(handPose Pose) Pose {
	if a.Frame == FrameWorld {
		return a.Offset
	}
	return Compose(handPose, a.Offset)
}

// Detach returns the world attachment keeping the current world pose.
func (a Attachment) Detach(handPose Pose) Attachment {
	return WorldAttachment(a.Resolve(handPose))
}
