// Package scene provides software collaborators for baking: an orbit
// camera, a CPU renderer that composites shaded translucent spheres, and
// mesh, particle and static models loaded from YAML.
package scene

import (
	"image/color"
	gomath "math"
	"sort"

	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/internal/raster"
	"github.com/Faultbox/spritebake/pkg/math"
)

// Sphere is one drawable primitive. Color.A is the opacity.
type Sphere struct {
	Center math.Vec3
	Radius float32
	Color  color.RGBA
}

// Drawable is a model the renderer can draw in its current pose.
type Drawable interface {
	Spheres() []Sphere
}

// Lighting for the sphere shading, in camera space.
var (
	lightDir = math.Vec3{X: -0.4, Y: 0.6, Z: 0.7}.Normalize()
	ambient  = float32(0.35)
	diffuse  = float32(0.65)
)

// Renderer draws a Drawable through an OrbitCamera into RGBA buffers.
type Renderer struct {
	width, height int
	camera        *OrbitCamera
	model         Drawable
}

// NewRenderer creates a renderer of the given size whose camera is fitted to
// bounds.
func NewRenderer(width, height int, model Drawable, bounds math.Box) *Renderer {
	cam := NewOrbitCamera()
	cam.FitToBounds(bounds)
	return &Renderer{width: width, height: height, camera: cam, model: model}
}

// Camera exposes the camera for tweaking distance or extent.
func (r *Renderer) Camera() *OrbitCamera { return r.camera }

func (r *Renderer) Size() (int, int)    { return r.width, r.height }
func (r *Renderer) View() bake.View     { return r.camera.View() }
func (r *Renderer) SetView(v bake.View) { r.camera.SetView(v) }

func (r *Renderer) aspect() float32 {
	return float32(r.width) / float32(r.height)
}

// pixelsPerUnit is the same on both axes because the lens keeps the aspect.
func (r *Renderer) pixelsPerUnit() float32 {
	return float32(r.height) / (2 * r.camera.Extent)
}

// Project maps a world point to pixel coordinates.
func (r *Renderer) Project(p math.Vec3) (float32, float32) {
	viewProj := r.camera.ProjectionMatrix(r.aspect()).Mul(r.camera.ViewMatrix())
	return math.ToScreen(viewProj.TransformPoint(p), r.width, r.height)
}

// projected is a sphere in screen space.
type projected struct {
	x, y, radius float32 // pixels
	depth        float32 // camera space z, larger is nearer
	color        color.RGBA
}

func (r *Renderer) project() []projected {
	view := r.camera.ViewMatrix()
	proj := r.camera.ProjectionMatrix(r.aspect())
	ppu := r.pixelsPerUnit()

	spheres := r.model.Spheres()
	out := make([]projected, 0, len(spheres))
	for _, s := range spheres {
		if s.Radius <= 0 || s.Color.A == 0 {
			continue
		}
		vc := view.TransformPoint(s.Center)
		x, y := math.ToScreen(proj.TransformPoint(vc), r.width, r.height)
		out = append(out, projected{x: x, y: y, radius: s.Radius * ppu, depth: vc.Z, color: s.Color})
	}
	// Far to near, stable so equal depths keep model order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].depth < out[j].depth })
	return out
}

// cover calls fn for every pixel inside p with the camera space normal at
// that pixel.
func (r *Renderer) cover(p projected, fn func(x, y int, n math.Vec3)) {
	x0 := max(int(gomath.Floor(float64(p.x-p.radius))), 0)
	y0 := max(int(gomath.Floor(float64(p.y-p.radius))), 0)
	x1 := min(int(gomath.Ceil(float64(p.x+p.radius))), r.width-1)
	y1 := min(int(gomath.Ceil(float64(p.y+p.radius))), r.height-1)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := (float32(x) + 0.5 - p.x) / p.radius
			dy := (float32(y) + 0.5 - p.y) / p.radius
			d2 := dx*dx + dy*dy
			if d2 > 1 {
				continue
			}
			fn(x, y, math.Vec3{X: dx, Y: -dy, Z: float32(gomath.Sqrt(float64(1 - d2)))})
		}
	}
}

// Render draws the model over an opaque background. Each sphere is shaded
// and blended as color*a + dst*(1-a).
func (r *Renderer) Render(background color.RGBA) (*raster.Buffer, error) {
	background.A = 255
	buf := raster.Filled(r.width, r.height, background)
	for _, p := range r.project() {
		a := float32(p.color.A) / 255
		r.cover(p, func(x, y int, n math.Vec3) {
			shade := ambient + diffuse*max(0, n.Dot(lightDir))
			dst := buf.At(x, y)
			buf.Set(x, y, color.RGBA{
				R: blend(p.color.R, shade, a, dst.R),
				G: blend(p.color.G, shade, a, dst.G),
				B: blend(p.color.B, shade, a, dst.B),
				A: 255,
			})
		})
	}
	return buf, nil
}

func blend(c uint8, shade, a float32, dst uint8) uint8 {
	src := min(float32(c)*shade, 255)
	v := src*a + float32(dst)*(1-a)
	return uint8(min(max(v+0.5, 0), 255))
}

// RenderNormals draws the camera space normal of the nearest sphere per
// pixel. Uncovered pixels hold the flat normal.
func (r *Renderer) RenderNormals() (*raster.Buffer, error) {
	buf := raster.Filled(r.width, r.height, raster.FlatNormal)
	for _, p := range r.project() {
		r.cover(p, func(x, y int, n math.Vec3) {
			buf.Set(x, y, EncodeNormal(n))
		})
	}
	return buf, nil
}

// EncodeNormal packs a unit normal into RGB as (n+1)/2.
func EncodeNormal(n math.Vec3) color.RGBA {
	enc := func(v float32) uint8 {
		return uint8(min(max((v+1)/2*255+0.5, 0), 255))
	}
	return color.RGBA{R: enc(n.X), G: enc(n.Y), B: enc(n.Z), A: 255}
}

var (
	_ bake.Renderer       = (*Renderer)(nil)
	_ bake.NormalRenderer = (*Renderer)(nil)
)
