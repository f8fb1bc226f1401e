package bake

import (
	"github.com/Faultbox/spritebake/internal/raster"
)

// Sample is one frame captured for interactive selection.
type Sample struct {
	Frame     Frame
	Image     *raster.Buffer
	Thumbnail *raster.Buffer
	Pivot     raster.Vector
}

// Sampler captures a fixed number of evenly spaced frames of the first
// selected animation from the current view. It walks Initialize, BeginFrame,
// CaptureFrame, EndFrame and Finalize.
type Sampler struct {
	baker *Baker
}

// NewSampler creates a sampler taking count frames. Frame selection and view
// list in settings are ignored and nothing is packed or written.
func NewSampler(kind Kind, model Model, renderer Renderer, count int, settings Settings, opts ...Option) (*Sampler, error) {
	settings.FrameCount = count
	settings.SelectedFrames = nil
	settings.Views = nil
	settings.Pack = false

	b, err := NewBaker(kind, model, renderer, settings, opts...)
	if err != nil {
		return nil, err
	}
	b.sampling = true
	b.shape = Shape{Frames: true}
	return &Sampler{baker: b}, nil
}

func (s *Sampler) Start() error       { return s.baker.Start() }
func (s *Sampler) Update() bool       { return s.baker.Update() }
func (s *Sampler) IsInProgress() bool { return s.baker.IsInProgress() }
func (s *Sampler) Cancel()            { s.baker.Cancel() }
func (s *Sampler) IsCancelled() bool  { return s.baker.IsCancelled() }
func (s *Sampler) Err() error         { return s.baker.Err() }
func (s *Sampler) Progress() float64  { return s.baker.Progress() }

// Samples returns the frames captured by the last run.
func (s *Sampler) Samples() []Sample { return s.baker.samples }

// Frames returns the frames of the samples, ready to be narrowed down and
// passed back as Settings.SelectedFrames.
func (s *Sampler) Frames() []Frame {
	frames := make([]Frame, len(s.baker.samples))
	for i, smp := range s.baker.samples {
		frames[i] = smp.Frame
	}
	return frames
}

func (b *Baker) collectSamples(vr *ViewResult) {
	size := b.settings.PreviewSize
	if size <= 0 {
		size = 64
	}
	b.samples = make([]Sample, len(vr.Images))
	for i, img := range vr.Images {
		w, h := raster.Fit(img, size, size)
		b.samples[i] = Sample{
			Frame:     vr.Frames[i],
			Image:     img,
			Thumbnail: raster.Rescale(img, w, h),
			Pivot:     vr.Pivots[i],
		}
	}
}
