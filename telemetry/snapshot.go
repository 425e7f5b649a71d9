package telemetry

import (
	"github.com/akmonengine/rover/input"
	"github.com/akmonengine/rover/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// Pose is the wire form of scene.Pose. Rotation is x, y, z, w.
type Pose struct {
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
}

func PoseFrom(p scene.Pose) Pose {
	return Pose{
		Position: [3]float64(p.Position),
		Rotation: [4]float64{p.Rotation.V.X(), p.Rotation.V.Y(), p.Rotation.V.Z(), p.Rotation.W},
	}
}

// Scene converts back, normalizing the rotation. A zero rotation is the identity.
func (p Pose) Scene() scene.Pose {
	rotation := mgl64.Quat{W: p.Rotation[3], V: mgl64.Vec3{p.Rotation[0], p.Rotation[1], p.Rotation[2]}}
	if rotation.Len() < 1e-12 {
		rotation = mgl64.QuatIdent()
	}
	return scene.Pose{Position: mgl64.Vec3(p.Position), Rotation: rotation.Normalize()}
}

// Held names the node each hand holds, empty when idle.
type Held struct {
	Left  string `json:"left,omitempty"`
	Right string `json:"right,omitempty"`
}

// Snapshot is broadcast after every frame.
type Snapshot struct {
	Frame   uint64  `json:"frame"`
	Time    float64 `json:"time"`
	Speed   float64 `json:"speed"`
	Chassis Pose    `json:"chassis"`
	Wheels  [4]Pose `json:"wheels"`
	Held    Held    `json:"held"`
}

// Message is what a remote UI sends. Sticks are merged into Flags, and
// ignored without them.
type Message struct {
	Flags      *input.Flags    `json:"flags,omitempty"`
	LeftStick  input.Stick     `json:"leftStick"`
	RightStick input.Stick     `json:"rightStick"`
	Hands      map[string]Pose `json:"hands,omitempty"`
}
