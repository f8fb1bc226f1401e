package bake

import (
	"fmt"
	"image/color"

	"github.com/Faultbox/spritebake/internal/atlas"
	"github.com/Faultbox/spritebake/internal/matte"
	"github.com/Faultbox/spritebake/internal/raster"
)

// Settings control one bake pass.
type Settings struct {
	// FrameCount is the number of evenly spaced frames per animation.
	FrameCount int

	// Views to capture. Empty means the renderer's current view only.
	Views []View

	// Animations to bake by index. Empty means every animation of the model.
	Animations []int

	// SelectedFrames replaces the evenly spaced frame list when non-empty.
	SelectedFrames []Frame

	// Margin is added around each detected bound. Negative values inset.
	Margin int

	// UnifySize trims every frame of a view to the union of their bounds.
	UnifySize bool

	Matte          matte.Policy
	AlphaThreshold float64
	Fill           color.RGBA

	// Pack assembles each view into an atlas. When false, frames are handed
	// to the sink one by one.
	Pack  bool
	Atlas atlas.Config

	// Normals captures a normal map alongside each frame when the renderer
	// supports it.
	Normals bool

	// PreviewSize bounds the thumbnails produced by the Sampler.
	PreviewSize int
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		FrameCount:  16,
		Margin:      2,
		Matte:       matte.Soft,
		Fill:        raster.Transparent,
		Pack:        true,
		Atlas:       atlas.DefaultConfig(),
		PreviewSize: 64,
	}
}

// Validate checks s against a render target of the given size.
func (s Settings) Validate(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidSettings, width, height)
	}
	if s.FrameCount < 1 && len(s.SelectedFrames) == 0 {
		return fmt.Errorf("%w: frame count %d", ErrInvalidSettings, s.FrameCount)
	}
	if s.AlphaThreshold < 0 || s.AlphaThreshold >= 1 {
		return fmt.Errorf("%w: alpha threshold %v outside [0,1)", ErrInvalidSettings, s.AlphaThreshold)
	}
	if s.Margin < 0 && -s.Margin > min(width, height)/2 {
		return fmt.Errorf("%w: margin %d exceeds half of %dx%d", raster.ErrInvalidGeometry, s.Margin, width, height)
	}
	for _, f := range s.SelectedFrames {
		if f.Index < 0 || f.Time < 0 || f.Time > 1 {
			return fmt.Errorf("%w: selected frame %v", ErrInvalidSettings, f)
		}
	}
	return nil
}

// frames returns the frame list of a pass.
func (s Settings) frames() []Frame {
	if len(s.SelectedFrames) > 0 {
		return Dedupe(s.SelectedFrames)
	}
	return EvenFrames(s.FrameCount)
}
