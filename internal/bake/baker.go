// Package bake turns a model into trimmed, matted sprite frames and atlases.
//
// A Baker walks animations, views and frames one state per Update call. Each
// frame is rendered twice over black and white, matted, bounded and trimmed,
// and each finished view is packed into an atlas or handed to a Sink frame by
// frame. Nothing blocks: a real-time capture that is not due yet returns and
// is retried on the next Update.
package bake

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/spritebake/internal/atlas"
	"github.com/Faultbox/spritebake/internal/matte"
	"github.com/Faultbox/spritebake/internal/raster"
	"github.com/Faultbox/spritebake/internal/states"
)

// State labels the steps of a bake.
type State int

const (
	Initialize State = iota
	BeginAnimation
	BeginView
	BeginFrame
	CaptureFrame
	EndFrame
	EndView
	EndAnimation
	Finalize
)

var stateNames = [...]string{
	"Initialize", "BeginAnimation", "BeginView", "BeginFrame", "CaptureFrame",
	"EndFrame", "EndView", "EndAnimation", "Finalize",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ViewResult is the output of one (animation, view) pass.
type ViewResult struct {
	Animation     int
	AnimationName string
	View          View
	Frames        []Frame
	Images        []*raster.Buffer
	Normals       []*raster.Buffer
	Pivots        []raster.Vector

	// Atlas is nil when packing is off.
	Atlas *atlas.Result
}

// Option configures a Baker.
type Option func(*Baker)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *Baker) { b.log = l }
}

// WithClock replaces the wall clock used by real-time captures.
func WithClock(c Clock) Option {
	return func(b *Baker) { b.clock = c }
}

// WithTrimmer replaces the CPU trimmer, e.g. with a GPU backed one.
func WithTrimmer(t *raster.Trimmer) Option {
	return func(b *Baker) { b.trimmer = t }
}

// WithSink sets where finished views and frames are written.
func WithSink(s Sink) Option {
	return func(b *Baker) { b.sink = s }
}

// WithStateHook installs a function called on every state change.
func WithStateHook(fn func(from, to State)) Option {
	return func(b *Baker) { b.hook = fn }
}

// Baker drives one model through a bake pass.
type Baker struct {
	variant  Variant
	shape    Shape
	model    Model
	renderer Renderer
	settings Settings

	log       *zap.Logger
	clock     Clock
	trimmer   *raster.Trimmer
	extractor *matte.Extractor
	packer    *atlas.Packer
	sink      Sink
	hook      func(from, to State)

	sampling bool
	samples  []Sample

	machine   *states.Machine[State]
	session   *Session
	cancelled atomic.Bool
	err       error
	finished  bool

	animations []int
	views      []View
	frames     []Frame
	normals    NormalRenderer

	animPos, viewPos, framePos int

	playStart time.Time
	due       time.Time
	captures  []*Capture
	union     raster.Bound

	done, total int
	results     []*ViewResult
}

// NewBaker creates a baker for model rendered by renderer. The settings are
// validated against the renderer's size.
func NewBaker(kind Kind, model Model, renderer Renderer, settings Settings, opts ...Option) (*Baker, error) {
	variant, err := NewVariant(kind)
	if err != nil {
		return nil, err
	}
	w, h := renderer.Size()
	if err := settings.Validate(w, h); err != nil {
		return nil, err
	}

	b := &Baker{
		variant:  variant,
		shape:    variant.Shape(),
		model:    model,
		renderer: renderer,
		settings: settings,
		log:      zap.NewNop(),
		clock:    wallClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(zap.String("model", model.Name()), zap.Stringer("kind", kind))
	if b.trimmer == nil {
		b.trimmer = raster.NewTrimmer(raster.WithLogger(b.log))
	}
	b.extractor = &matte.Extractor{Policy: settings.Matte, Threshold: settings.AlphaThreshold}
	b.packer = atlas.NewPacker(settings.Atlas, b.log)
	return b, nil
}

// Kind returns the variant kind.
func (b *Baker) Kind() Kind { return b.variant.Kind() }

// Model returns the baked model.
func (b *Baker) Model() Model { return b.model }

// Start begins a pass. The first Update runs Initialize.
func (b *Baker) Start() error {
	if b.machine != nil {
		return ErrInProgress
	}
	if !b.model.IsReady() {
		return fmt.Errorf("%w: %s", ErrNotReady, b.model.Name())
	}

	b.cancelled.Store(false)
	b.err = nil
	b.finished = false
	b.results = nil
	b.samples = nil
	b.done, b.total = 0, 0

	b.machine = b.build()
	return b.machine.ChangeState(Initialize)
}

// Update runs one step. It reports whether the baker was in progress.
func (b *Baker) Update() bool {
	m := b.machine
	if m == nil {
		return false
	}
	m.Update()
	return true
}

// IsInProgress reports whether a pass is running.
func (b *Baker) IsInProgress() bool { return b.machine != nil }

// Cancel asks the running pass to stop at the next state boundary. It may be
// called from any goroutine.
func (b *Baker) Cancel() { b.cancelled.Store(true) }

// IsCancelled reports whether Cancel was called since Start.
func (b *Baker) IsCancelled() bool { return b.cancelled.Load() }

// Err returns the reason the last pass aborted, or nil.
func (b *Baker) Err() error { return b.err }

// Progress returns the fraction of frames captured in [0,1].
func (b *Baker) Progress() float64 {
	if b.finished && b.err == nil {
		return 1
	}
	if b.total == 0 {
		return 0
	}
	return float64(b.done) / float64(b.total)
}

// Results returns the views completed by the last pass.
func (b *Baker) Results() []*ViewResult { return b.results }

func (b *Baker) build() *states.Machine[State] {
	m := states.New[State]()
	m.AddState(Initialize, b.guard(Initialize, b.initialize))
	if b.shape.Animations {
		m.AddState(BeginAnimation, b.guard(BeginAnimation, b.beginAnimation))
		m.AddState(EndAnimation, b.guard(EndAnimation, b.endAnimation))
	}
	if b.shape.Views {
		m.AddState(BeginView, b.guard(BeginView, b.beginView))
		m.AddState(EndView, b.guard(EndView, b.endView))
	}
	if b.shape.Frames {
		m.AddState(BeginFrame, b.guard(BeginFrame, b.beginFrame))
		m.AddState(EndFrame, b.guard(EndFrame, b.endFrame))
	}
	m.AddState(CaptureFrame, b.guard(CaptureFrame, b.captureFrame))
	m.AddState(Finalize, b.guard(Finalize, b.finalize))

	m.OnChange(func(from, to State) {
		b.log.Debug("state", zap.Stringer("from", from), zap.Stringer("to", to))
		if b.hook != nil {
			b.hook(from, to)
		}
	})
	return m
}

// guard turns a state step into a machine action. A returned error or a
// panic aborts the pass.
func (b *Baker) guard(label State, step func() error) states.Action {
	return func() {
		defer func() {
			if p := recover(); p != nil {
				b.finish(fmt.Errorf("%v: panic: %v", label, p))
			}
		}()
		if err := step(); err != nil {
			b.finish(fmt.Errorf("%v: %w", label, err))
		}
	}
}

func (b *Baker) change(to State) error {
	return b.machine.ChangeState(to)
}

func (b *Baker) checkCancelled() error {
	if b.cancelled.Load() {
		return ErrCancelled
	}
	return nil
}

// finish releases the machine and restores the scene. It runs once per pass.
func (b *Baker) finish(err error) {
	if b.machine == nil {
		return
	}
	if b.session != nil {
		b.session.Close()
		b.session = nil
	}
	b.machine = nil
	b.captures = nil
	b.finished = true
	b.err = err

	if err != nil {
		b.log.Error("bake aborted", zap.Error(err), zap.Int("views", len(b.results)))
		return
	}
	b.log.Info("bake finished", zap.Int("views", len(b.results)), zap.Int("frames", b.done))
}

func (b *Baker) initialize() error {
	if err := b.checkCancelled(); err != nil {
		return err
	}
	b.session = NewSession(b.log)

	b.frames = b.settings.frames()
	if b.sampling {
		b.frames = EvenFrames(b.settings.FrameCount)
	}
	if b.variant.Kind() == Static {
		b.frames = []Frame{{}}
	}

	b.views = []View{b.renderer.View()}
	if b.shape.Views && len(b.settings.Views) > 0 {
		b.views = b.settings.Views
	}

	b.animations = []int{0}
	if b.shape.Animations {
		b.animations = b.settings.Animations
		if len(b.animations) == 0 {
			b.animations = make([]int, max(len(b.model.Animations()), 1))
			for i := range b.animations {
				b.animations[i] = i
			}
		}
		for _, a := range b.animations {
			if a < 0 || (a > 0 && a >= len(b.model.Animations())) {
				return fmt.Errorf("animation %d out of range", a)
			}
		}
	} else if len(b.settings.Animations) > 0 {
		b.animations = b.settings.Animations[:1]
	}

	b.normals = nil
	if b.settings.Normals {
		if nr, ok := b.renderer.(NormalRenderer); ok {
			b.normals = nr
		} else {
			b.log.Warn("renderer has no normal output, normals skipped")
		}
	}

	b.animPos, b.viewPos, b.framePos = 0, 0, 0
	b.total = len(b.animations) * len(b.views) * len(b.frames)
	b.log.Info("bake started",
		zap.Int("animations", len(b.animations)),
		zap.Int("views", len(b.views)),
		zap.Int("frames", len(b.frames)),
	)

	if b.shape.Animations {
		return b.change(BeginAnimation)
	}
	if err := b.openAnimation(); err != nil {
		return err
	}
	return b.enterViews()
}

func (b *Baker) beginAnimation() error {
	if err := b.checkCancelled(); err != nil {
		return err
	}
	if err := b.openAnimation(); err != nil {
		return err
	}
	return b.enterViews()
}

func (b *Baker) beginView() error {
	if err := b.checkCancelled(); err != nil {
		return err
	}
	b.openView()
	return b.enterFrames()
}

func (b *Baker) beginFrame() error {
	if err := b.checkCancelled(); err != nil {
		return err
	}
	b.openFrame()
	return b.change(CaptureFrame)
}

func (b *Baker) captureFrame() error {
	if b.clock.Now().Before(b.due) {
		// Not due yet. A long real-time wait still honours Cancel.
		return b.checkCancelled()
	}
	if err := b.capture(); err != nil {
		return err
	}
	if b.shape.Frames {
		return b.change(EndFrame)
	}
	b.closeFrame()
	return b.leaveFrames()
}

func (b *Baker) endFrame() error {
	b.closeFrame()
	b.framePos++
	if b.framePos < len(b.frames) {
		return b.change(BeginFrame)
	}
	return b.leaveFrames()
}

func (b *Baker) endView() error {
	if err := b.closeView(); err != nil {
		return err
	}
	b.viewPos++
	if b.viewPos < len(b.views) {
		return b.change(BeginView)
	}
	return b.leaveViews()
}

func (b *Baker) endAnimation() error {
	b.animPos++
	if b.animPos < len(b.animations) {
		return b.change(BeginAnimation)
	}
	return b.change(Finalize)
}

func (b *Baker) finalize() error {
	b.finish(nil)
	return nil
}

func (b *Baker) enterViews() error {
	if b.shape.Views {
		return b.change(BeginView)
	}
	b.openView()
	return b.enterFrames()
}

func (b *Baker) enterFrames() error {
	if b.shape.Frames {
		return b.change(BeginFrame)
	}
	b.openFrame()
	return b.change(CaptureFrame)
}

func (b *Baker) leaveFrames() error {
	if b.shape.Views {
		return b.change(EndView)
	}
	if err := b.closeView(); err != nil {
		return err
	}
	return b.leaveViews()
}

func (b *Baker) leaveViews() error {
	if b.shape.Animations {
		return b.change(EndAnimation)
	}
	return b.change(Finalize)
}

func (b *Baker) animation() (int, Animation) {
	idx := b.animations[b.animPos]
	anims := b.model.Animations()
	if idx >= 0 && idx < len(anims) {
		return idx, anims[idx]
	}
	return idx, Animation{}
}

func (b *Baker) openAnimation() error {
	idx, anim := b.animation()
	b.viewPos = 0
	b.session.TouchPose(b.model)
	b.session.TouchPlayback(b.model)

	b.playStart = b.clock.Now()
	if err := b.variant.StopAndPlay(b.model, idx, b.playStart); err != nil {
		return fmt.Errorf("start %q: %w", anim.Name, err)
	}
	b.log.Debug("animation", zap.Int("index", idx), zap.String("name", anim.Name))
	return nil
}

func (b *Baker) openView() {
	b.framePos = 0
	b.captures = b.captures[:0]
	b.union = raster.EmptyBound()
	if b.shape.Views {
		b.session.TouchView(b.renderer)
		b.renderer.SetView(b.views[b.viewPos])
	}
}

func (b *Baker) openFrame() {
	_, anim := b.animation()
	b.due = b.playStart.Add(b.variant.FrameInterval(anim, b.frames[b.framePos]))
}

// capture renders, mattes and bounds the current frame.
func (b *Baker) capture() error {
	idx, _ := b.animation()
	f := b.frames[b.framePos]
	if err := b.variant.Simulate(b.model, idx, f, b.clock.Now()); err != nil {
		return fmt.Errorf("simulate %v: %w", f, err)
	}

	onBlack, err := b.renderer.Render(raster.Black)
	if err != nil {
		return fmt.Errorf("render over black: %w", err)
	}
	var normal *raster.Buffer
	if b.normals != nil {
		if normal, err = b.normals.RenderNormals(); err != nil {
			return fmt.Errorf("render normals: %w", err)
		}
	}
	onWhite, err := b.renderer.Render(raster.White)
	if err != nil {
		return fmt.Errorf("render over white: %w", err)
	}

	img, err := b.extractor.Extract(onBlack, onWhite)
	if err != nil {
		return err
	}

	anchor := raster.ScreenVector(b.renderer.Project(b.model.PivotPosition()))
	bound, detected := raster.DetectOrAnchor(img, anchor)
	if !detected {
		b.log.Warn("frame has no visible pixels, using pivot box",
			zap.Stringer("frame", f),
			zap.Stringer("anchor", anchor),
		)
	}

	c := &Capture{
		Frame:    f,
		Image:    img,
		Normal:   normal,
		Bound:    bound,
		Detected: detected,
		Anchor:   anchor,
	}
	b.variant.OnCaptureFrame(c)
	b.captures = append(b.captures, c)
	return nil
}

// closeFrame trims the last capture, or widens the shared bound when all
// frames of the view are trimmed together.
func (b *Baker) closeFrame() {
	c := b.captures[len(b.captures)-1]
	if b.settings.UnifySize {
		b.union.Expand(c.Bound)
	} else {
		b.trim(c, c.Bound)
	}
	b.done++
}

func (b *Baker) trim(c *Capture, bound raster.Bound) {
	margin := b.settings.Margin
	img, err := b.trimmer.Trim(c.Image, bound, margin, b.settings.Fill)
	if err != nil {
		b.log.Error("trim failed, using placeholder", zap.Stringer("frame", c.Frame), zap.Error(err))
	}
	c.Image = img
	if c.Normal != nil {
		n, err := b.trimmer.Trim(c.Normal, bound, margin, raster.FlatNormal)
		if err != nil {
			b.log.Error("normal trim failed, using placeholder", zap.Stringer("frame", c.Frame), zap.Error(err))
		}
		c.Normal = n
	}
	c.Bound = bound
	c.Pivot = c.Anchor.SubWithMargin(bound.Min, margin)
}

// closeView finishes the captures of one view and emits them.
func (b *Baker) closeView() error {
	if b.settings.UnifySize {
		for _, c := range b.captures {
			b.trim(c, b.union)
		}
	}

	idx, anim := b.animation()
	vr := &ViewResult{
		Animation:     idx,
		AnimationName: anim.Name,
		View:          b.views[b.viewPos],
		Frames:        make([]Frame, len(b.captures)),
		Images:        make([]*raster.Buffer, len(b.captures)),
		Pivots:        make([]raster.Vector, len(b.captures)),
	}
	if b.normals != nil {
		vr.Normals = make([]*raster.Buffer, len(b.captures))
	}
	for i, c := range b.captures {
		vr.Frames[i] = c.Frame
		vr.Images[i] = c.Image
		vr.Pivots[i] = c.Pivot
		if vr.Normals != nil {
			vr.Normals[i] = c.Normal
		}
	}
	b.captures = nil

	switch {
	case b.sampling:
		b.collectSamples(vr)
		return nil
	case b.settings.Pack:
		res, err := b.packer.Pack(vr.Images, vr.Pivots, vr.Normals)
		if err != nil {
			return fmt.Errorf("pack %v: %w", vr.View, err)
		}
		vr.Atlas = res
		if b.sink != nil {
			out := &AtlasOutput{
				Model:     b.model.Name(),
				Animation: vr.AnimationName,
				View:      vr.View,
				Frames:    vr.Frames,
				Result:    res,
			}
			if err := b.sink.WriteAtlas(out); err != nil {
				return fmt.Errorf("write atlas: %w", err)
			}
		}
	case b.sink != nil:
		for i := range vr.Images {
			out := &FrameOutput{
				Model:     b.model.Name(),
				Animation: vr.AnimationName,
				View:      vr.View,
				Frame:     vr.Frames[i],
				Image:     vr.Images[i],
				Pivot:     vr.Pivots[i],
			}
			if vr.Normals != nil {
				out.Normal = vr.Normals[i]
			}
			if err := b.sink.WriteFrame(out); err != nil {
				return fmt.Errorf("write frame %v: %w", vr.Frames[i], err)
			}
		}
	}

	b.results = append(b.results, vr)
	b.log.Debug("view done", zap.Stringer("view", vr.View), zap.Int("frames", len(vr.Frames)))
	return nil
}
