package interaction

import (
	"math"
	"math/rand"
	"testing"

	"github.com/akmonengine/rover"
	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/config"
	"github.com/akmonengine/rover/registry"
	"github.com/akmonengine/rover/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60.0

func at(x, y, z float64) scene.Pose {
	return scene.Pose{Position: mgl64.Vec3{x, y, z}, Rotation: mgl64.QuatIdent()}
}

type fixture struct {
	registry *registry.Registry
	root     *scene.Node
	cube     *registry.TrackedObject
	ball     *registry.TrackedObject
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry: registry.New(rover.NewWorld(mgl64.Vec3{0, -9.81, 0}, 4), nil),
		root:     scene.NewNode("root", nil),
	}

	f.cube = f.add(t, "cube", scene.BoxGeometry(0.2, 0.2, 0.2), mgl64.Vec3{0, 1, 0}, registry.ColliderCuboid)
	f.ball = f.add(t, "ball", scene.SphereGeometry(0.1, 12), mgl64.Vec3{1, 1, 0}, registry.ColliderBall)
	return f
}

func (f *fixture) add(t *testing.T, name string, geometry *scene.Geometry, position mgl64.Vec3, collider registry.Collider) *registry.TrackedObject {
	t.Helper()
	node := scene.NewNode(name, geometry)
	node.Position = position
	f.root.Add(node)

	object, err := f.registry.Add(node, actor.BodyTypeDynamic, collider)
	require.NoError(t, err)
	object.Grabbable = true
	return object
}

func noProxies() config.Interaction {
	cfg := config.Default().Interaction
	cfg.HandProxies = false
	return cfg
}

func TestSqueezeBegin_Grab(t *testing.T) {
	f := newFixture(t)
	c := New(f.registry, noProxies(), nil)

	c.SetHandPose(scene.Left, at(0.05, 1, 0))
	object, ok := c.SqueezeBegin(scene.Left)
	require.True(t, ok)
	assert.Same(t, f.cube, object)

	assert.Equal(t, Holding, c.State(scene.Left))
	assert.Equal(t, actor.BodyTypeKinematicPosition, f.cube.Body.BodyType)
	owner, owned := f.cube.Owner()
	assert.True(t, owned)
	assert.Equal(t, scene.Left, owner)

	held, ok := c.Held(scene.Left)
	require.True(t, ok)
	assert.Same(t, f.cube, held)

	again, ok := c.SqueezeBegin(scene.Left)
	assert.True(t, ok)
	assert.Same(t, f.cube, again)
}

func TestSqueezeBegin_Proximity(t *testing.T) {
	tests := []struct {
		name string
		hand scene.Pose
		want bool
	}{
		{"inside", at(0, 1, 0), true},
		{"within proximity", at(0, 1.14, 0), true},
		{"too far", at(0, 1.2, 0), false},
		{"near the ball", at(1.12, 1, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := New(f.registry, noProxies(), nil)
			c.SetHandPose(scene.Right, tt.hand)

			_, ok := c.SqueezeBegin(scene.Right)
			assert.Equal(t, tt.want, ok)
			if !tt.want {
				assert.Equal(t, Idle, c.State(scene.Right))
				assert.Equal(t, actor.BodyTypeDynamic, f.cube.Body.BodyType)
			}
		})
	}
}

func TestSqueezeBegin_Skips(t *testing.T) {
	f := newFixture(t)
	c := New(f.registry, noProxies(), nil)

	_, ok := c.SqueezeBegin(scene.Left)
	assert.False(t, ok, "hand never tracked")

	c.SetHandPose(scene.Left, at(0, 1, 0))
	f.cube.Grabbable = false
	_, ok = c.SqueezeBegin(scene.Left)
	assert.False(t, ok)

	f.cube.Grabbable = true
	f.cube.Body.SetEnabled(false)
	_, ok = c.SqueezeBegin(scene.Left)
	assert.False(t, ok)

	_, ok = c.SqueezeBegin(scene.Hand(5))
	assert.False(t, ok)
}

func TestGrabExclusivity(t *testing.T) {
	f := newFixture(t)
	c := New(f.registry, noProxies(), nil)
	c.SetHandPose(scene.Left, at(0, 1, 0))
	c.SetHandPose(scene.Right, at(0.02, 1, 0))

	_, ok := c.SqueezeBegin(scene.Left)
	require.True(t, ok)
	_, ok = c.SqueezeBegin(scene.Right)
	assert.False(t, ok, "the cube belongs to the left hand")
	assert.Equal(t, Idle, c.State(scene.Right))

	r := rand.New(rand.NewSource(7))
	for range 2000 {
		hand := scene.Hands[r.Intn(len(scene.Hands))]
		if r.Intn(2) == 0 {
			c.SqueezeBegin(hand)
		} else {
			c.SqueezeEnd(hand)
		}
		c.Update(dt)

		left, leftOK := c.Held(scene.Left)
		right, rightOK := c.Held(scene.Right)
		if leftOK && rightOK {
			require.NotSame(t, left, right)
		}
		for _, hand := range scene.Hands {
			if object, ok := c.Held(hand); ok {
				owner, owned := object.Owner()
				require.True(t, owned)
				require.Equal(t, hand, owner)
				require.Equal(t, actor.BodyTypeKinematicPosition, object.Body.BodyType)
			}
		}
	}
}

func TestSqueezeEnd_Release(t *testing.T) {
	f := newFixture(t)
	c := New(f.registry, noProxies(), nil)

	_, ok := c.SqueezeEnd(scene.Left)
	assert.False(t, ok, "nothing held")

	c.SetHandPose(scene.Left, at(0, 1, 0))
	_, ok = c.SqueezeBegin(scene.Left)
	require.True(t, ok)

	c.SetHandPose(scene.Left, at(0.3, 1.5, 0))
	object, ok := c.SqueezeEnd(scene.Left)
	require.True(t, ok)
	assert.Same(t, f.cube, object)

	assert.Equal(t, Idle, c.State(scene.Left))
	assert.Equal(t, actor.BodyTypeDynamic, f.cube.Body.BodyType)
	assert.True(t, f.cube.Body.Enabled())
	assert.False(t, f.cube.Held())
	assert.Equal(t, scene.FrameWorld, f.cube.Attachment().Frame)

	assert.InDeltaSlice(t, []float64{0.3, 1.5, 0}, f.cube.Body.Transform.Position[:], 1e-12)
	assert.True(t, f.cube.Node.WorldPose().ApproxEqual(f.cube.BodyPose(), 1e-9))
	assert.Equal(t, mgl64.Vec3{}, f.cube.Body.Velocity, "no motion tracked, no throw")
}

func TestSqueezeEnd_MeshStaysKinematic(t *testing.T) {
	f := newFixture(t)
	c := New(f.registry, noProxies(), nil)

	node := scene.NewNode("mesh", scene.BoxGeometry(0.2, 0.2, 0.2))
	node.Position = mgl64.Vec3{-1, 1, 0}
	f.root.Add(node)
	mesh, err := f.registry.Add(node, actor.BodyTypeKinematicPosition, registry.ColliderTriMesh)
	require.NoError(t, err)
	mesh.Grabbable = true

	c.SetHandPose(scene.Right, at(-1, 1, 0))
	object, ok := c.SqueezeBegin(scene.Right)
	require.True(t, ok)
	require.Same(t, mesh, object)

	c.SetHandPose(scene.Right, at(-1, 1.4, 0))
	c.Update(dt)
	_, ok = c.SqueezeEnd(scene.Right)
	require.True(t, ok)

	assert.Equal(t, actor.BodyTypeKinematicPosition, mesh.Body.BodyType)
	assert.True(t, mesh.Body.Enabled())
	assert.False(t, mesh.Held())
	assert.InDeltaSlice(t, []float64{-1, 1.4, 0}, mesh.Body.Transform.Position[:], 1e-9)

	f.registry.Step(dt)
	assert.InDeltaSlice(t, []float64{-1, 1.4, 0}, mesh.Body.Transform.Position[:], 1e-9, "no gravity on the dropped mesh")
}

func TestHeldObjectFollowsHand(t *testing.T) {
	f := newFixture(t)
	c := New(f.registry, noProxies(), nil)

	c.SetHandPose(scene.Left, at(0, 0.95, 0))
	_, ok := c.SqueezeBegin(scene.Left)
	require.True(t, ok)

	turn := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	hand := scene.Pose{Position: mgl64.Vec3{2, 2, 2}, Rotation: turn}
	c.SetHandPose(scene.Left, hand)

	for range 30 {
		f.registry.Step(dt)
		f.registry.Sync()
		c.Update(dt)
	}

	// the cube hung 0.05 above the hand, the hand rolled it on its side
	want := scene.Pose{Position: mgl64.Vec3{2 - 0.05, 2, 2}, Rotation: turn}
	assert.True(t, want.ApproxEqual(f.cube.BodyPose(), 1e-9), "%v", f.cube.BodyPose())
	assert.True(t, want.ApproxEqual(f.cube.Node.WorldPose(), 1e-9))
	assert.Equal(t, mgl64.Vec3{}, f.cube.Body.Velocity)

	// the ball fell meanwhile
	assert.Less(t, f.ball.Body.Transform.Position.Y(), 1.0)
}

func TestThrow(t *testing.T) {
	tests := []struct {
		estimator string
	}{
		{config.SpinDelta},
		{config.SpinProxy},
	}

	for _, tt := range tests {
		t.Run(tt.estimator, func(t *testing.T) {
			f := newFixture(t)
			cfg := noProxies()
			cfg.SpinEstimator = tt.estimator
			c := New(f.registry, cfg, nil)

			const step = 0.05
			pose := at(0, 1, 0)
			c.SetHandPose(scene.Left, pose)
			_, ok := c.SqueezeBegin(scene.Left)
			require.True(t, ok)
			c.Update(dt)

			for i := 1; i <= 3; i++ {
				pose = scene.Pose{
					Position: mgl64.Vec3{0.1 * float64(i), 1, 0},
					Rotation: mgl64.QuatRotate(step*float64(i), mgl64.Vec3{0, 1, 0}),
				}
				c.SetHandPose(scene.Left, pose)
				c.Update(dt)
			}

			linear, angular := c.Velocity(scene.Left)
			assert.InDeltaSlice(t, []float64{0.1 / dt, 0, 0}, linear[:], 1e-9)

			var wantSpin mgl64.Vec3
			if tt.estimator == config.SpinDelta {
				wantSpin = mgl64.Vec3{0, 2 * math.Sin(step/2) / dt, 0}
			} else {
				wantSpin = pose.Rotation.V
			}
			assert.InDeltaSlice(t, wantSpin[:], angular[:], 1e-9)

			_, ok = c.SqueezeEnd(scene.Left)
			require.True(t, ok)

			body := f.cube.Body
			assert.InDeltaSlice(t, []float64{0.1 / dt * 1.5, 0, 0}, body.Velocity[:], 1e-9)

			wantAngular := body.GetInverseInertiaWorld().Mul3x1(wantSpin.Mul(body.Mass() * 0.01))
			assert.InDeltaSlice(t, wantAngular[:], body.AngularVelocity[:], 1e-9)
			assert.Greater(t, body.AngularVelocity.Y(), 0.0)

			linear, angular = c.Velocity(scene.Left)
			assert.Equal(t, mgl64.Vec3{}, linear)
			assert.Equal(t, mgl64.Vec3{}, angular)
		})
	}
}

func TestUpdate_RepairsOwnership(t *testing.T) {
	f := newFixture(t)
	c := New(f.registry, noProxies(), nil)

	// claimed behind the controller back
	f.ball.Body.SetBodyType(actor.BodyTypeKinematicPosition)
	require.True(t, f.ball.Claim(scene.Right, scene.WorldAttachment(f.ball.BodyPose())))
	c.Update(dt)
	assert.False(t, f.ball.Held())
	assert.Equal(t, actor.BodyTypeDynamic, f.ball.Body.BodyType)

	// released behind the controller back
	c.SetHandPose(scene.Left, at(0, 1, 0))
	_, ok := c.SqueezeBegin(scene.Left)
	require.True(t, ok)
	f.cube.Release(f.cube.BodyPose())
	c.Update(dt)
	assert.Equal(t, Idle, c.State(scene.Left))
	assert.Equal(t, actor.BodyTypeDynamic, f.cube.Body.BodyType)

	// a body switched back to dynamic while held is made kinematic again
	_, ok = c.SqueezeBegin(scene.Left)
	require.True(t, ok)
	f.cube.Body.SetBodyType(actor.BodyTypeDynamic)
	c.Update(dt)
	assert.Equal(t, actor.BodyTypeKinematicPosition, f.cube.Body.BodyType)
}

func TestHandProxies(t *testing.T) {
	f := newFixture(t)
	c := New(f.registry, config.Default().Interaction, nil)

	proxy := c.Proxy(scene.Left)
	require.NotNil(t, proxy)
	assert.True(t, c.IsProxy(proxy))
	assert.False(t, c.IsProxy(f.cube.Body))
	assert.Contains(t, f.registry.World().Bodies, proxy)
	assert.False(t, proxy.Enabled(), "off until the hand is tracked")
	assert.Equal(t, actor.BodyTypeKinematicPosition, proxy.BodyType)

	c.SetHandPose(scene.Left, at(0, 2, 0))
	c.Update(dt)
	assert.True(t, proxy.Enabled())
	assert.Equal(t, mgl64.Vec3{0, 2, 0}, proxy.Transform.Position)

	c.SetHandPose(scene.Left, at(0, 1, 0))
	_, ok := c.SqueezeBegin(scene.Left)
	require.True(t, ok)
	c.Update(dt)
	assert.False(t, proxy.Enabled(), "off while holding")

	_, ok = c.SqueezeEnd(scene.Left)
	require.True(t, ok)
	c.Update(dt)
	assert.False(t, proxy.Enabled(), "off while inside the dropped cube")

	c.SetHandPose(scene.Left, at(0, 3, 0))
	c.Update(dt)
	assert.True(t, proxy.Enabled())

	_, ok = f.registry.ByBody(proxy)
	assert.False(t, ok, "proxies are not tracked objects")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "holding", Holding.String())
	assert.Equal(t, "unknown", State(9).String())
}
