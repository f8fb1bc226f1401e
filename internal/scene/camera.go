package scene

import (
	gomath "math"

	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/pkg/math"
)

// OrbitCamera looks at a center point from a yaw/pitch orbit with an
// orthographic lens.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance float32
	Pitch    float32 // radians
	Yaw      float32 // radians

	// Extent is half the visible height in world units.
	Extent float32

	view bake.View
}

// NewOrbitCamera creates a camera looking at the origin from slightly above.
func NewOrbitCamera() *OrbitCamera {
	c := &OrbitCamera{Distance: 10, Extent: 2}
	c.SetView(bake.View{Pitch: 30})
	return c
}

// SetView moves the camera to the angles of v.
func (c *OrbitCamera) SetView(v bake.View) {
	c.view = v
	c.Yaw = float32(v.Yaw * gomath.Pi / 180)
	c.Pitch = float32(v.Pitch * gomath.Pi / 180)
}

// View returns the view last set.
func (c *OrbitCamera) View() bake.View {
	return c.view
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	x := c.Distance * float32(gomath.Cos(float64(c.Pitch))*gomath.Sin(float64(c.Yaw)))
	y := c.Distance * float32(gomath.Sin(float64(c.Pitch)))
	z := c.Distance * float32(gomath.Cos(float64(c.Pitch))*gomath.Cos(float64(c.Yaw)))
	return c.Center.Add(math.Vec3{X: x, Y: y, Z: z})
}

// ViewMatrix returns the world to camera transform.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the orthographic projection for a target with the
// given aspect ratio (width / height).
func (c *OrbitCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	e := c.Extent
	return math.Ortho(-e*aspect, e*aspect, -e, e, 0.01, 2*c.Distance+4*e)
}

// FitToBounds centers the camera on box and sizes the lens so the box stays
// inside the frame from every angle.
func (c *OrbitCamera) FitToBounds(box math.Box) {
	c.Center = box.Center()
	r := box.Radius()
	if r <= 0 {
		r = 1
	}
	c.Extent = r * 1.1
	c.Distance = r*4 + 1
}
