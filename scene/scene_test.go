package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-9), "want %v, got %v", want, got)
}

func TestComposeRelative_RoundTrip(t *testing.T) {
	parent := Pose{
		Position: mgl64.Vec3{1, 2, 3},
		Rotation: mgl64.QuatRotate(0.7, mgl64.Vec3{1, 1, 0}.Normalize()),
	}
	world := Pose{
		Position: mgl64.Vec3{-4, 0.5, 2},
		Rotation: mgl64.QuatRotate(-1.2, mgl64.Vec3{0, 0, 1}),
	}

	local := Relative(parent, world)
	assert.True(t, Compose(parent, local).ApproxEqual(world, 1e-9))
	assert.True(t, Relative(parent, Compose(parent, local)).ApproxEqual(local, 1e-9))
}

func TestPose_ApproxEqualIgnoresQuaternionSign(t *testing.T) {
	q := mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0})
	a := Pose{Rotation: q}
	b := Pose{Rotation: q.Scale(-1)}

	assert.True(t, a.ApproxEqual(b, 1e-12))
}

func TestAttachment(t *testing.T) {
	hand := Pose{Position: mgl64.Vec3{0, 1, 0}, Rotation: mgl64.QuatIdent()}
	object := Pose{Position: mgl64.Vec3{0, 1, 0.1}, Rotation: mgl64.QuatIdent()}

	attachment := AttachTo(Right, hand, object)
	assert.Equal(t, FrameHand, attachment.Frame)
	assert.Equal(t, Right, attachment.Hand)
	assert.True(t, attachment.Resolve(hand).ApproxEqual(object, 1e-12))

	// the object follows the hand, offset included
	moved := Pose{Position: mgl64.Vec3{1, 1, 0}, Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})}
	resolved := attachment.Resolve(moved)
	assertVec3(t, mgl64.Vec3{1.1, 1, 0}, resolved.Position)

	world := attachment.Detach(moved)
	assert.Equal(t, FrameWorld, world.Frame)
	assert.True(t, world.Resolve(hand).ApproxEqual(resolved, 1e-12), "a world attachment ignores the hand")
}

func TestNode_AddRemove(t *testing.T) {
	a, b := NewNode("a", nil), NewNode("b", nil)
	child := NewNode("child", nil)

	a.Add(child)
	b.Add(child)

	assert.Empty(t, a.Children)
	require.Len(t, b.Children, 1)
	assert.Same(t, b, child.Parent)

	b.Remove(child)
	assert.Nil(t, child.Parent)
	assert.Empty(t, b.Children)
}

func TestNode_WorldPoseAndScale(t *testing.T) {
	root := NewNode("root", nil)
	root.Position = mgl64.Vec3{0, 1, 0}
	root.Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	root.Scale = mgl64.Vec3{2, 2, 2}

	child := NewNode("child", nil)
	child.Position = mgl64.Vec3{0, 0, 1}
	child.Scale = mgl64.Vec3{0.5, 0.5, 0.5}
	root.Add(child)

	pose := child.WorldPose()
	assertVec3(t, mgl64.Vec3{2, 1, 0}, pose.Position)
	assert.True(t, pose.Rotation.ApproxEqualThreshold(root.Rotation, 1e-12))
	assertVec3(t, mgl64.Vec3{1, 1, 1}, child.WorldScale())
}

func TestNode_SetWorldPose(t *testing.T) {
	root := NewNode("root", nil)
	root.Position = mgl64.Vec3{3, 0, 0}
	root.Rotation = mgl64.QuatRotate(0.4, mgl64.Vec3{0, 0, 1})
	root.Scale = mgl64.Vec3{2, 2, 2}

	child := NewNode("child", nil)
	root.Add(child)

	target := Pose{Position: mgl64.Vec3{1, 2, 3}, Rotation: mgl64.QuatRotate(1.0, mgl64.Vec3{1, 0, 0})}
	child.SetWorldPose(target)
	assert.True(t, child.WorldPose().ApproxEqual(target, 1e-9))

	first := *child
	child.SetWorldPose(target)
	assert.Equal(t, first.Position, child.Position)
	assert.Equal(t, first.Rotation, child.Rotation)

	orphan := NewNode("orphan", nil)
	orphan.SetWorldPose(target)
	assert.Equal(t, target.Position, orphan.Position)
}

func TestNode_Bounds(t *testing.T) {
	root := NewNode("root", nil)
	root.Position = mgl64.Vec3{0, 5, 0}
	root.Scale = mgl64.Vec3{2, 2, 2}

	_, ok := root.LocalBounds()
	assert.False(t, ok, "no geometry, no bounds")

	body := NewNode("body", BoxGeometry(1, 1, 1))
	body.Position = mgl64.Vec3{1, 0, 0}
	root.Add(body)

	local, ok := root.LocalBounds()
	require.True(t, ok)
	assertVec3(t, mgl64.Vec3{0.5, -0.5, -0.5}, local.Min)
	assertVec3(t, mgl64.Vec3{1.5, 0.5, 0.5}, local.Max)

	world, ok := root.WorldBounds()
	require.True(t, ok)
	assertVec3(t, mgl64.Vec3{1, 4, -1}, world.Min)
	assertVec3(t, mgl64.Vec3{3, 6, 1}, world.Max)

	assert.Len(t, root.Points(), 8)
}

func TestGeometry(t *testing.T) {
	box := BoxGeometry(2, 4, 6)
	bounds, ok := box.Bounds()
	require.True(t, ok)
	assertVec3(t, mgl64.Vec3{1, 2, 3}, bounds.HalfExtents())
	assert.Len(t, box.Indices, 36)

	center, radius, ok := box.BoundingSphere()
	require.True(t, ok)
	assertVec3(t, mgl64.Vec3{}, center)
	assert.InDelta(t, math.Sqrt(14), radius, 1e-12)

	sphere := SphereGeometry(0.5, 16)
	_, radius, ok = sphere.BoundingSphere()
	require.True(t, ok)
	assert.InDelta(t, 0.5, radius, 1e-9)
	for _, i := range sphere.Indices {
		assert.Less(t, int(i), len(sphere.Positions))
	}

	cone := ConeGeometry(0.2, 0.5, 12)
	bounds, _ = cone.Bounds()
	assert.InDelta(t, 0.5, bounds.Max.Y(), 1e-12)
	assert.InDelta(t, 0.0, bounds.Min.Y(), 1e-12)

	wheel := CylinderGeometry(0.3, 0.1, 16)
	bounds, _ = wheel.Bounds()
	assert.InDelta(t, 0.05, bounds.Max.X(), 1e-12)
	assert.InDelta(t, 0.3, bounds.Max.Y(), 1e-12)

	ramp := WedgeGeometry(1, 0.5, 2)
	assert.Len(t, ramp.Indices, 24)

	var empty *Geometry
	assert.True(t, empty.Empty())
	_, ok = empty.Bounds()
	assert.False(t, ok)
}

func TestHand_String(t *testing.T) {
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "right", Right.String())
	assert.Equal(t, "unknown", Hand(7).String())
}
