package bake

import (
	"image/color"
	"time"

	"github.com/Faultbox/spritebake/internal/atlas"
	"github.com/Faultbox/spritebake/internal/raster"
	"github.com/Faultbox/spritebake/pkg/math"
)

// Model is the source being baked.
type Model interface {
	Name() string
	IsReady() bool
	PivotPosition() math.Vec3
	Bounds() math.Box
	Animations() []Animation

	// Simulate poses the model at frame f of the given animation. Sources
	// without animations ignore the index.
	Simulate(animation int, f Frame) error
}

// Poser is implemented by models whose pose can be saved before a bake and
// put back afterwards.
type Poser interface {
	SavePose() any
	RestorePose(pose any)
}

// Player is implemented by models that can play back in real time.
type Player interface {
	Play()
	Stop()
	Playing() bool
}

// Renderer renders the model from the current view.
type Renderer interface {
	Size() (width, height int)
	View() View
	SetView(v View)

	// Project maps a world point to pixel coordinates of the render target.
	Project(p math.Vec3) (x, y float32)

	// Render draws the current scene state over an opaque background.
	Render(background color.RGBA) (*raster.Buffer, error)
}

// NormalRenderer is implemented by renderers that can output a normal map
// of the current scene state.
type NormalRenderer interface {
	RenderNormals() (*raster.Buffer, error)
}

// Clock provides the time used to throttle real-time captures.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// FrameOutput is one trimmed frame handed to a Sink when packing is off.
type FrameOutput struct {
	Model     string
	Animation string
	View      View
	Frame     Frame
	Image     *raster.Buffer
	Normal    *raster.Buffer
	Pivot     raster.Vector
}

// AtlasOutput is one packed (animation, view) pass handed to a Sink.
type AtlasOutput struct {
	Model     string
	Animation string
	View      View
	Frames    []Frame
	Result    *atlas.Result
}

// Sink persists finished output.
type Sink interface {
	WriteFrame(out *FrameOutput) error
	WriteAtlas(out *AtlasOutput) error
}
