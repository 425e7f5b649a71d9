// Package interaction lets tracked hands grab, carry and throw the
// grabbable objects of the registry.
package interaction

import (
	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/config"
	"github.com/akmonengine/rover/internal/logging"
	"github.com/akmonengine/rover/registry"
	"github.com/akmonengine/rover/scene"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

type State uint8

const (
	Idle State = iota
	Holding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	}
	return "unknown"
}

type hand struct {
	pose  scene.Pose
	posed bool

	state  State
	object *registry.TrackedObject

	// throw estimate, reset on every grab and release
	previous scene.Pose
	tracked  bool
	velocity mgl64.Vec3
	spin     mgl64.Vec3

	proxy *actor.RigidBody
	// proxy stays off while it overlaps the object it just dropped
	ghost *registry.TrackedObject
}

// Controller runs one grab state machine per hand. It is the only writer
// of the object ownership.
type Controller struct {
	registry *registry.Registry
	cfg      config.Interaction
	hands    [len(scene.Hands)]hand
	logger   *zap.Logger
}

func New(reg *registry.Registry, cfg config.Interaction, logger *zap.Logger) *Controller {
	c := &Controller{
		registry: reg,
		cfg:      cfg,
		logger:   logging.OrNop(logger),
	}

	if cfg.HandProxies && cfg.HandProxyRadius > 0 {
		for i := range c.hands {
			proxy := actor.NewRigidBody(actor.NewTransform(), &actor.Sphere{Radius: cfg.HandProxyRadius}, actor.BodyTypeKinematicPosition, registry.DefaultDensity)
			// off until the hand is tracked
			proxy.SetEnabled(false)
			reg.World().AddBody(proxy)
			c.hands[i].proxy = proxy
		}
	}
	return c
}

func (c *Controller) hand(h scene.Hand) *hand {
	if h < 0 || int(h) >= len(c.hands) {
		return nil
	}
	return &c.hands[h]
}

// SetHandPose records the world pose of the hand collision point.
func (c *Controller) SetHandPose(h scene.Hand, pose scene.Pose) {
	if state := c.hand(h); state != nil {
		state.pose = pose
		state.posed = true
	}
}

func (c *Controller) HandPose(h scene.Hand) (scene.Pose, bool) {
	state := c.hand(h)
	if state == nil {
		return scene.Pose{}, false
	}
	return state.pose, state.posed
}

func (c *Controller) State(h scene.Hand) State {
	if state := c.hand(h); state != nil {
		return state.state
	}
	return Idle
}

// Held returns the object held by the hand
func (c *Controller) Held(h scene.Hand) (*registry.TrackedObject, bool) {
	state := c.hand(h)
	if state == nil || state.state != Holding {
		return nil, false
	}
	return state.object, true
}

// Velocity returns the linear and angular throw estimates of the hand.
func (c *Controller) Velocity(h scene.Hand) (linear, angular mgl64.Vec3) {
	if state := c.hand(h); state != nil {
		return state.velocity, state.spin
	}
	return mgl64.Vec3{}, mgl64.Vec3{}
}

// Proxy returns the body following the hand, nil when proxies are off.
func (c *Controller) Proxy(h scene.Hand) *actor.RigidBody {
	if state := c.hand(h); state != nil {
		return state.proxy
	}
	return nil
}

func (c *Controller) IsProxy(body *actor.RigidBody) bool {
	for i := range c.hands {
		if c.hands[i].proxy != nil && c.hands[i].proxy == body {
			return true
		}
	}
	return false
}

// SqueezeBegin grabs the first free grabbable object whose bounds contain the
// hand or lie within the proximity distance. Finding nothing is not an error.
func (c *Controller) SqueezeBegin(h scene.Hand) (*registry.TrackedObject, bool) {
	state := c.hand(h)
	if state == nil {
		return nil, false
	}
	if state.state == Holding {
		return state.object, true
	}
	if !state.posed {
		c.logger.Debug("squeeze ignored, hand not tracked", zap.Stringer("hand", h))
		return nil, false
	}

	object := c.find(state.pose.Position)
	if object == nil {
		return nil, false
	}
	if !object.Claim(h, scene.AttachTo(h, state.pose, object.BodyPose())) {
		return nil, false
	}
	object.Body.SetBodyType(actor.BodyTypeKinematicPosition)

	state.state = Holding
	state.object = object
	state.ghost = nil
	c.resetTracking(state)
	c.disableProxy(state)

	c.logger.Info("object grabbed",
		zap.Stringer("hand", h),
		zap.String("node", object.Node.Name),
		zap.Stringer("id", object.ID))
	return object, true
}

func (c *Controller) find(point mgl64.Vec3) *registry.TrackedObject {
	for _, object := range c.registry.Objects() {
		if !object.Grabbable || object.Held() || !object.Body.Enabled() {
			continue
		}

		bounds, ok := object.Node.WorldBounds()
		if !ok {
			bounds = object.Body.Shape.GetAABB()
		}
		if bounds.ContainsPoint(point) || bounds.DistanceToPoint(point) <= c.cfg.Proximity {
			return object
		}
	}
	return nil
}

// SqueezeEnd drops the held object back into the simulation and throws it
// with the hand velocity.
func (c *Controller) SqueezeEnd(h scene.Hand) (*registry.TrackedObject, bool) {
	state := c.hand(h)
	if state == nil || state.state != Holding {
		return nil, false
	}

	object := state.object
	linear, angular := state.velocity, state.spin
	c.drop(state)

	if object == nil {
		return nil, false
	}

	mass := object.Body.Mass()
	object.Body.ApplyImpulse(linear.Mul(mass * c.cfg.ThrowFactor))
	object.Body.ApplyTorqueImpulse(angular.Mul(mass * c.cfg.SpinFactor))
	state.ghost = object

	c.logger.Info("object released",
		zap.Stringer("hand", h),
		zap.String("node", object.Node.Name),
		zap.Float64("speed", linear.Len()))
	return object, true
}

// drop returns the hand to Idle and the object, if any, to the world.
func (c *Controller) drop(state *hand) {
	object := state.object
	state.state = Idle
	state.object = nil
	c.resetTracking(state)

	if object != nil {
		release(object, object.Attachment().Resolve(state.pose))
	}
}

// release makes the body dynamic again. It is disabled during the switch so
// the solver never sees the last kinematic pose with a dynamic type. A body
// without finite mass stays kinematic where it was dropped.
func release(object *registry.TrackedObject, world scene.Pose) {
	body := object.Body
	body.SetTranslation(world.Position)
	body.SetRotation(world.Rotation)
	if body.BodyType != actor.BodyTypeDynamic && body.CanBeDynamic() {
		body.SetEnabled(false)
		body.SetBodyType(actor.BodyTypeDynamic)
		body.SetEnabled(true)
	}

	object.Release(world)
	object.Node.SetWorldPose(world)
}

func (c *Controller) resetTracking(state *hand) {
	state.previous = state.pose
	state.tracked = false
	state.velocity = mgl64.Vec3{}
	state.spin = mgl64.Vec3{}
}

// Update moves the held objects with the hands, refreshes the throw
// estimates and the hand proxies. Ownership that went out of sync is repaired
// by dropping the object.
func (c *Controller) Update(dt float64) {
	c.repair()

	for i := range c.hands {
		state := &c.hands[i]

		if state.state == Holding {
			c.carry(state)
			c.track(state, dt)
		}
		c.updateProxy(state)
	}
}

func (c *Controller) repair() {
	for i := range c.hands {
		state := &c.hands[i]
		if state.state != Holding {
			continue
		}

		owner, owned := scene.Hand(0), false
		if state.object != nil {
			owner, owned = state.object.Owner()
		}
		if state.object == nil || !owned || owner != scene.Hand(i) {
			c.logger.Warn("hand lost its object, back to idle", zap.Stringer("hand", scene.Hand(i)))
			if state.object != nil && !owned {
				release(state.object, state.object.BodyPose())
			}
			state.state = Idle
			state.object = nil
			c.resetTracking(state)
		}
	}

	for _, object := range c.registry.Objects() {
		owner, owned := object.Owner()
		if !owned {
			continue
		}
		if state := c.hand(owner); state == nil || state.object != object {
			c.logger.Warn("object held by no hand, released",
				zap.String("node", object.Node.Name),
				zap.Stringer("hand", owner))
			release(object, object.BodyPose())
		}
	}
}

func (c *Controller) carry(state *hand) {
	body := state.object.Body
	if body.BodyType != actor.BodyTypeKinematicPosition {
		body.SetBodyType(actor.BodyTypeKinematicPosition)
	}

	world := state.object.Attachment().Resolve(state.pose)
	body.SetTranslation(world.Position)
	body.SetRotation(world.Rotation)
	body.SetLinearVelocity(mgl64.Vec3{})
	body.SetAngularVelocity(mgl64.Vec3{})
	state.object.Node.SetWorldPose(world)
}

func (c *Controller) track(state *hand, dt float64) {
	if dt <= 0 {
		return
	}
	if state.tracked {
		state.velocity = state.pose.Position.Sub(state.previous.Position).Mul(1 / dt)
		state.spin = c.spin(state.previous.Rotation, state.pose.Rotation, dt)
	}
	state.previous = state.pose
	state.tracked = true
}

func (c *Controller) spin(from, to mgl64.Quat, dt float64) mgl64.Vec3 {
	if c.cfg.SpinEstimator == config.SpinProxy {
		// orientation components, kept for the original throw feel
		return to.V
	}
	return actor.AngularVelocityBetween(from, to, dt)
}

func (c *Controller) updateProxy(state *hand) {
	if state.proxy == nil {
		return
	}
	if !state.posed || state.state == Holding {
		c.disableProxy(state)
		return
	}

	state.proxy.SetTranslation(state.pose.Position)
	state.proxy.SetRotation(state.pose.Rotation)

	if state.ghost != nil {
		if state.ghost.Body.Shape.GetAABB().Overlaps(state.proxy.Shape.GetAABB()) {
			c.disableProxy(state)
			return
		}
		state.ghost = nil
	}
	state.proxy.SetEnabled(true)
}

func (c *Controller) disableProxy(state *hand) {
	if state.proxy != nil {
		state.proxy.SetEnabled(false)
	}
}
