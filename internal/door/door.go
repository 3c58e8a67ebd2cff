// Package door turns pointer clicks into animated door open/close toggles.
package door

import (
	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/cooler-configurator/internal/engine/picking"
	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/internal/engine/tween"
	"github.com/Faultbox/cooler-configurator/pkg/math"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultDuration = 1 // seconds
	DefaultAngle    = math32.Pi / 2
)

// Camera supplies the matrix used to unproject clicks.
type Camera interface {
	ViewProjection() math.Mat4
}

// Door is one hinged part. Initial is the closed pose, captured when the
// door is registered.
type Door struct {
	Node    *scene.Node
	IsOpen  bool
	Initial math.Quat
}

// Options configures a Controller.
type Options struct {
	Logger   *zap.Logger
	Axis     math.Vec3
	Angle    float32 // radians; the open pose is Initial rotated by Angle about Axis
	Duration float32 // seconds
}

// Controller owns the doors of one scene instance.
type Controller struct {
	camera   Camera
	anim     *tween.Animator
	log      *zap.Logger
	doors    []*Door
	axis     math.Vec3
	angle    float32
	duration float32
}

// New creates a controller that animates through anim. cam may be nil until
// the render surface exists; clicks are ignored meanwhile.
func New(cam Camera, anim *tween.Animator, opts Options) *Controller {
	c := &Controller{
		camera:   cam,
		anim:     anim,
		log:      opts.Logger,
		axis:     opts.Axis,
		angle:    opts.Angle,
		duration: opts.Duration,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.Named("door")
	if c.axis == (math.Vec3{}) {
		c.axis = math.AxisX
	}
	if c.angle == 0 {
		c.angle = DefaultAngle
	}
	if c.duration <= 0 {
		c.duration = DefaultDuration
	}
	return c
}

// SetCamera replaces the camera used for picking.
func (c *Controller) SetCamera(cam Camera) {
	c.camera = cam
}

// Add registers node as a door. Click tests follow registration order. A nil
// node is ignored and yields nil.
func (c *Controller) Add(node *scene.Node) *Door {
	if node == nil {
		return nil
	}
	d := &Door{Node: node, Initial: node.Transform.Rotation}
	c.doors = append(c.doors, d)
	return d
}

// Doors returns the registered doors in click-test order.
func (c *Controller) Doors() []*Door {
	return c.doors
}

// Door returns the i-th door, or nil when out of range.
func (c *Controller) Door(i int) *Door {
	if i < 0 || i >= len(c.doors) {
		return nil
	}
	return c.doors[i]
}

// SetAxis changes the hinge axis used by subsequent toggles.
func (c *Controller) SetAxis(axis math.Vec3) {
	if axis.Length() == 0 {
		return
	}
	c.axis = axis.Normalize()
}

// Axis returns the current hinge axis.
func (c *Controller) Axis() math.Vec3 {
	return c.axis
}

// HandleClick casts a ray through the client point and toggles the first
// door, in registration order, that it hits. It returns that door, or nil.
func (c *Controller) HandleClick(clientX, clientY float32, rect picking.Rect) *Door {
	if c.camera == nil || len(c.doors) == 0 {
		return nil
	}
	ray, ok := picking.ScreenToRay(clientX, clientY, rect, c.camera.ViewProjection())
	if !ok {
		return nil
	}
	for _, d := range c.doors {
		if _, hit := ray.IntersectNode(d.Node); hit {
			c.Toggle(d)
			return d
		}
	}
	c.log.Debug("click missed", zap.Float32("x", clientX), zap.Float32("y", clientY))
	return nil
}

// Toggle flips the door's state immediately and animates its rotation from
// wherever it is now toward the new pose, replacing any running animation.
func (c *Controller) Toggle(d *Door) {
	d.IsOpen = !d.IsOpen
	node := d.Node
	from := node.Transform.Rotation
	to := c.Target(d)

	c.anim.Start(c.key(d), &tween.Tween{
		Duration: c.duration,
		Ease:     tween.Power2InOut,
		Apply: func(p float32) {
			node.Transform.Rotation = from.Slerp(to, p).Normalize()
		},
	})
	c.log.Debug("door toggled", zap.String("door", node.Name), zap.Bool("open", d.IsOpen))
}

// Target returns the pose matching the door's current state.
func (c *Controller) Target(d *Door) math.Quat {
	if !d.IsOpen {
		return d.Initial
	}
	return d.Initial.Mul(math.QuatFromAxisAngle(c.axis, c.angle)).Normalize()
}

// Animating reports whether the door's rotation tween is still running.
func (c *Controller) Animating(d *Door) bool {
	return c.anim.Active(c.key(d))
}

func (c *Controller) key(d *Door) string {
	return "door:" + d.Node.ID
}
