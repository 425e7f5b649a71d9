// Package scene models the renderable side of the sandbox: a tree of nodes
// storing parent-relative transforms, as a scene graph does, while the physics
// world stores flat world poses.
package scene

import (
	"slices"

	"github.com/akmonengine/rover/actor"
	"github.com/go-gl/mathgl/mgl64"
)

type Node struct {
	Name     string
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3

	Parent   *Node
	Children []*Node

	Geometry *Geometry
	Visible  bool
}

func NewNode(name string, geometry *Geometry) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
		Geometry: geometry,
		Visible:  true,
	}
}

// Add moves child under n, keeping its local transform.
func (n *Node) Add(child *Node) {
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) Remove(child *Node) {
	if i := slices.Index(n.Children, child); i >= 0 {
		n.Children = slices.Delete(n.Children, i, i+1)
		child.Parent = nil
	}
}

// Traverse visits n then its descendants, depth first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Traverse(fn)
	}
}

func (n *Node) LocalMatrix() mgl64.Mat4 {
	return mgl64.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z()).
		Mul4(n.Rotation.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z()))
}

func (n *Node) WorldMatrix() mgl64.Mat4 {
	if n.Parent == nil {
		return n.LocalMatrix()
	}
	return n.Parent.WorldMatrix().Mul4(n.LocalMatrix())
}

// WorldPose drops the scale of the chain. Non uniform scales under rotated
// children would shear, which the sandbox never builds.
func (n *Node) WorldPose() Pose {
	if n.Parent == nil {
		return Pose{Position: n.Position, Rotation: n.Rotation.Normalize()}
	}

	parent := n.Parent.WorldPose()
	return Pose{
		Position: mgl64.TransformCoordinate(n.Position, n.Parent.WorldMatrix()),
		Rotation: parent.Rotation.Mul(n.Rotation).Normalize(),
	}
}

func (n *Node) WorldScale() mgl64.Vec3 {
	scale := n.Scale
	for p := n.Parent; p != nil; p = p.Parent {
		scale = mgl64.Vec3{scale.X() * p.Scale.X(), scale.Y() * p.Scale.Y(), scale.Z() * p.Scale.Z()}
	}
	return scale
}

// SetWorldPose writes a world pose into the parent-relative transform.
func (n *Node) SetWorldPose(world Pose) {
	if n.Parent == nil {
		n.Position = world.Position
		n.Rotation = world.Rotation.Normalize()
		return
	}

	n.Position = mgl64.TransformCoordinate(world.Position, n.Parent.WorldMatrix().Inv())
	n.Rotation = n.Parent.WorldPose().Rotation.Inverse().Mul(world.Rotation).Normalize()
}

// LocalBounds returns the bounds of every geometry of the subtree, in n space.
func (n *Node) LocalBounds() (actor.AABB, bool) {
	return n.boundsUnder(mgl64.Ident4())
}

// WorldBounds returns the bounds of every geometry of the subtree, in world space.
func (n *Node) WorldBounds() (actor.AABB, bool) {
	return n.boundsUnder(n.WorldMatrix())
}

// BoundingSphere of the node geometry alone, in node space.
func (n *Node) BoundingSphere() (mgl64.Vec3, float64, bool) {
	return n.Geometry.BoundingSphere()
}

// Points returns the vertices of the subtree in n space.
func (n *Node) Points() []mgl64.Vec3 {
	var points []mgl64.Vec3
	n.walk(mgl64.Ident4(), func(_ *Node, p mgl64.Vec3) {
		points = append(points, p)
	})
	return points
}

func (n *Node) boundsUnder(transform mgl64.Mat4) (actor.AABB, bool) {
	var bounds actor.AABB
	found := false
	n.walk(transform, func(_ *Node, p mgl64.Vec3) {
		if !found {
			bounds = actor.AABB{Min: p, Max: p}
			found = true
			return
		}
		bounds = bounds.ExpandToPoint(p)
	})
	return bounds, found
}

func (n *Node) walk(transform mgl64.Mat4, fn func(*Node, mgl64.Vec3)) {
	if !n.Geometry.Empty() {
		for _, p := range n.Geometry.Positions {
			fn(n, mgl64.TransformCoordinate(p, transform))
		}
	}
	for _, child := range n.Children {
		child.walk(transform.Mul4(child.LocalMatrix()), fn)
	}
}
