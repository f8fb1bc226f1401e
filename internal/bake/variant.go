package bake

import (
	"fmt"
	"strings"
	"time"

	"github.com/Faultbox/spritebake/internal/raster"
)

// Kind selects the variant used for a source.
type Kind int

const (
	Mesh Kind = iota
	Particle
	Static
	Runtime
)

// DefaultRuntimeLength is the playback length assumed for a real-time
// source that reports no animation length.
const DefaultRuntimeLength = time.Second

func (k Kind) String() string {
	switch k {
	case Mesh:
		return "mesh"
	case Particle:
		return "particle"
	case Static:
		return "static"
	case Runtime:
		return "runtime"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a name as written in scene files to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "mesh", "":
		return Mesh, nil
	case "particle", "particles":
		return Particle, nil
	case "static":
		return Static, nil
	case "runtime":
		return Runtime, nil
	default:
		return Mesh, fmt.Errorf("unknown source kind %q", name)
	}
}

// Shape says which loops of the transition graph a variant walks.
type Shape struct {
	Animations bool
	Views      bool
	Frames     bool
}

// Capture is one frame as it moves through matting, detection and trimming.
type Capture struct {
	Frame    Frame
	Image    *raster.Buffer
	Normal   *raster.Buffer
	Bound    raster.Bound
	Detected bool

	// Anchor is the projected pivot in render target pixels. Pivot is the
	// same point inside the trimmed image.
	Anchor raster.Vector
	Pivot  raster.Vector
}

// Variant supplies the source specific parts of a bake. The transition graph
// itself is shared by all variants.
type Variant interface {
	Kind() Kind
	Shape() Shape

	// StopAndPlay resets the source before the frames of an animation are
	// walked. Real-time sources start playing here.
	StopAndPlay(m Model, animation int, now time.Time) error

	// FrameInterval is the time that must pass after StopAndPlay before
	// frame f may be captured.
	FrameInterval(anim Animation, f Frame) time.Duration

	// Simulate poses the source for f right before it is captured.
	Simulate(m Model, animation int, f Frame, now time.Time) error

	// OnCaptureFrame runs after matting and detection of every capture.
	OnCaptureFrame(c *Capture)
}

// NewVariant returns the variant for kind.
func NewVariant(kind Kind) (Variant, error) {
	switch kind {
	case Mesh:
		return meshVariant{}, nil
	case Particle:
		return particleVariant{}, nil
	case Static:
		return staticVariant{}, nil
	case Runtime:
		return &runtimeVariant{}, nil
	default:
		return nil, fmt.Errorf("no variant for %v", kind)
	}
}

// immediate is embedded by variants that capture as soon as they are posed.
type immediate struct{}

func (immediate) FrameInterval(Animation, Frame) time.Duration { return 0 }
func (immediate) OnCaptureFrame(*Capture)                      {}

type meshVariant struct{ immediate }

func (meshVariant) Kind() Kind   { return Mesh }
func (meshVariant) Shape() Shape { return Shape{Animations: true, Views: true, Frames: true} }

func (meshVariant) StopAndPlay(m Model, animation int, _ time.Time) error {
	return m.Simulate(animation, Frame{})
}

func (meshVariant) Simulate(m Model, animation int, f Frame, _ time.Time) error {
	return m.Simulate(animation, f)
}

// particleVariant steps a simulation. The simulation is restarted for every
// view so each view sees the same particles.
type particleVariant struct{ immediate }

func (particleVariant) Kind() Kind   { return Particle }
func (particleVariant) Shape() Shape { return Shape{Views: true, Frames: true} }

func (particleVariant) StopAndPlay(m Model, _ int, _ time.Time) error {
	return m.Simulate(0, Frame{})
}

func (particleVariant) Simulate(m Model, _ int, f Frame, _ time.Time) error {
	return m.Simulate(0, f)
}

type staticVariant struct{ immediate }

func (staticVariant) Kind() Kind   { return Static }
func (staticVariant) Shape() Shape { return Shape{Views: true} }

func (staticVariant) StopAndPlay(Model, int, time.Time) error { return nil }

func (staticVariant) Simulate(Model, int, Frame, time.Time) error { return nil }

// runtimeVariant captures a source playing in real time from the current
// view. Frames are taken once enough time has passed, and each capture is
// stamped with the playback position actually reached.
type runtimeVariant struct {
	start  time.Time
	length time.Duration
	ratio  float64
}

func (*runtimeVariant) Kind() Kind   { return Runtime }
func (*runtimeVariant) Shape() Shape { return Shape{Frames: true} }

func (v *runtimeVariant) StopAndPlay(m Model, animation int, now time.Time) error {
	if p, ok := m.(Player); ok {
		p.Stop()
		p.Play()
	}
	v.start = now
	v.length = DefaultRuntimeLength
	if anims := m.Animations(); animation >= 0 && animation < len(anims) && anims[animation].Length > 0 {
		v.length = anims[animation].Length
	}
	return m.Simulate(animation, Frame{})
}

func (v *runtimeVariant) FrameInterval(anim Animation, f Frame) time.Duration {
	length := anim.Length
	if length <= 0 {
		length = DefaultRuntimeLength
	}
	return time.Duration(f.Time * float64(length))
}

func (v *runtimeVariant) Simulate(m Model, animation int, f Frame, now time.Time) error {
	v.ratio = 0
	if v.length > 0 {
		v.ratio = max(0, min(float64(now.Sub(v.start))/float64(v.length), 1))
	}
	return m.Simulate(animation, Frame{Index: f.Index, Time: v.ratio})
}

func (v *runtimeVariant) OnCaptureFrame(c *Capture) {
	c.Frame.Time = v.ratio
}
