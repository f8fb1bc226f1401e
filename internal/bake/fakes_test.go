package bake

import (
	"image/color"
	"time"

	"github.com/Faultbox/spritebake/internal/raster"
	"github.com/Faultbox/spritebake/pkg/math"
)

// fakeModel poses a square whose size grows with the frame index.
type fakeModel struct {
	name      string
	notReady  bool
	invisible bool
	anims     []Animation
	panicAt   int // frame index whose Simulate panics, -1 for never

	pose      Frame
	poseAnim  int
	playing   bool
	simulated []Frame
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		name:    "slime",
		anims:   []Animation{{Name: "idle", Length: 3 * time.Second}},
		panicAt: -1,
		pose:    Frame{Index: 99, Time: 0.5},
	}
}

func (m *fakeModel) Name() string {
	return m.name
}

func (m *fakeModel) IsReady() bool {
	return !m.notReady
}

func (m *fakeModel) PivotPosition() math.Vec3 {
	return math.Vec3{}
}

func (m *fakeModel) Bounds() math.Box {
	return math.Box{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
}

func (m *fakeModel) Animations() []Animation {
	return m.anims
}

func (m *fakeModel) SavePose() any {
	return [2]any{m.pose, m.poseAnim}
}

func (m *fakeModel) RestorePose(p any) {
	s := p.([2]any)
	m.pose, m.poseAnim = s[0].(Frame), s[1].(int)
}

func (m *fakeModel) Play() {
	m.playing = true
}

func (m *fakeModel) Stop() {
	m.playing = false
}

func (m *fakeModel) Playing() bool {
	return m.playing
}

func (m *fakeModel) Simulate(animation int, f Frame) error {
	if f.Index == m.panicAt && f.Time > 0 {
		panic("simulation exploded")
	}
	m.pose, m.poseAnim = f, animation
	m.simulated = append(m.simulated, f)
	return nil
}

// fakeRenderer draws the model's square at 50% coverage over the background.
type fakeRenderer struct {
	w, h    int
	view    View
	model   *fakeModel
	renders int
}

var squareColor = color.RGBA{R: 200, G: 40, B: 40}

const squareAlpha = 128

func newFakeRenderer(m *fakeModel) *fakeRenderer {
	return &fakeRenderer{w: 64, h: 64, view: View{Index: 7, Yaw: 12, Pitch: 3}, model: m}
}

func (r *fakeRenderer) Size() (int, int) { return r.w, r.h }
func (r *fakeRenderer) View() View       { return r.view }
func (r *fakeRenderer) SetView(v View)   { r.view = v }

func (r *fakeRenderer) Project(math.Vec3) (float32, float32) {
	return float32(r.w) / 2, float32(r.h) / 2
}

// squareSide is 10 pixels at frame 0 and grows by 2 per frame index.
func squareSide(f Frame) int { return 10 + 2*f.Index }

func (r *fakeRenderer) Render(bg color.RGBA) (*raster.Buffer, error) {
	r.renders++
	b := raster.Filled(r.w, r.h, bg)
	if r.model.invisible {
		return b, nil
	}
	side := squareSide(r.model.pose)
	over := func(c, g uint8) uint8 {
		return uint8((int(c)*squareAlpha + int(g)*(255-squareAlpha) + 127) / 255)
	}
	px := color.RGBA{
		R: over(squareColor.R, bg.R),
		G: over(squareColor.G, bg.G),
		B: over(squareColor.B, bg.B),
		A: 255,
	}
	for y := 20; y < 20+side && y < r.h; y++ {
		for x := 20; x < 20+side && x < r.w; x++ {
			b.Set(x, y, px)
		}
	}
	return b, nil
}

type normalRenderer struct{ *fakeRenderer }

func (r normalRenderer) RenderNormals() (*raster.Buffer, error) {
	b := raster.Filled(r.w, r.h, raster.FlatNormal)
	b.Set(21, 21, color.RGBA{R: 255, G: 128, B: 128, A: 255})
	return b, nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingSink struct {
	frames  []*FrameOutput
	atlases []*AtlasOutput
}

func (s *recordingSink) WriteFrame(out *FrameOutput) error {
	s.frames = append(s.frames, out)
	return nil
}

func (s *recordingSink) WriteAtlas(out *AtlasOutput) error {
	s.atlases = append(s.atlases, out)
	return nil
}

type ticker interface {
	Update() bool
	IsInProgress() bool
}

// run ticks until done and returns the number of ticks.
func run(t interface{ Fatalf(string, ...any) }, b ticker) int {
	for i := 1; i <= 10000; i++ {
		b.Update()
		if !b.IsInProgress() {
			return i
		}
	}
	t.Fatalf("still in progress after 10000 ticks")
	return 0
}
