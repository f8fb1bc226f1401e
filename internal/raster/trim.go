package raster

import (
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"
)

// Blitter copies the srcRect region of src into a new dstW x dstH buffer
// with its top-left corner at dstOff. Every pixel outside the copied region
// is set to fill. Implementations must agree pixel for pixel.
type Blitter interface {
	Blit(src *Buffer, srcRect image.Rectangle, dstW, dstH int, dstOff image.Point, fill color.RGBA) (*Buffer, error)
}

// CPUBlitter is the scalar Blitter.
type CPUBlitter struct{}

// Blit implements Blitter.
func (CPUBlitter) Blit(src *Buffer, srcRect image.Rectangle, dstW, dstH int, dstOff image.Point, fill color.RGBA) (*Buffer, error) {
	out := Filled(dstW, dstH, fill)
	srcRect = srcRect.Intersect(image.Rect(0, 0, src.Width, src.Height))
	if srcRect.Empty() {
		return out, nil
	}
	rowBytes := srcRect.Dx() * 4
	for y := srcRect.Min.Y; y < srcRect.Max.Y; y++ {
		ty := dstOff.Y + y - srcRect.Min.Y
		if ty < 0 || ty >= dstH {
			continue
		}
		so := src.Offset(srcRect.Min.X, y)
		do := out.Offset(dstOff.X, ty)
		copy(out.Pix[do:do+rowBytes], src.Pix[so:so+rowBytes])
	}
	return out, nil
}

// Trimmer crops buffers to a bound plus a signed margin.
type Trimmer struct {
	blitter Blitter
	log     *zap.Logger
}

// TrimmerOption configures a Trimmer.
type TrimmerOption func(*Trimmer)

// WithBlitter routes the pixel copy through an accelerated Blitter. The CPU
// path is used when b fails.
func WithBlitter(b Blitter) TrimmerOption {
	return func(t *Trimmer) { t.blitter = b }
}

// WithLogger sets the logger used for geometry errors and fallbacks.
func WithLogger(l *zap.Logger) TrimmerOption {
	return func(t *Trimmer) { t.log = l }
}

// NewTrimmer creates a Trimmer; without options it runs on the CPU.
func NewTrimmer(opts ...TrimmerOption) *Trimmer {
	t := &Trimmer{blitter: CPUBlitter{}, log: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Trim returns a buffer of bound.CopyExtendedBy(margin)'s size holding the
// pixels of b that lie inside both bound and the margined box. Padding
// introduced by a positive margin, and any part of the box outside b, is
// filled with fill.
//
// A margin that collapses the box to exactly zero width or height yields an
// empty buffer of that size. A negative size yields a 1x1 fill placeholder
// together with an ErrInvalidGeometry error.
func (t *Trimmer) Trim(b *Buffer, bound Bound, margin int, fill color.RGBA) (*Buffer, error) {
	margined := bound.CopyExtendedBy(margin)
	w, h := margined.Width(), margined.Height()
	if !bound.Valid() || w < 0 || h < 0 {
		err := fmt.Errorf("%w: trim of %v with margin %d gives %dx%d", ErrInvalidGeometry, bound, margin, w, h)
		t.log.Error("trim rejected", zap.Error(err))
		return Filled(1, 1, fill), err
	}
	if w == 0 || h == 0 {
		return New(w, h), nil
	}

	copyRect := bound.Rect().Intersect(margined.Rect()).Intersect(image.Rect(0, 0, b.Width, b.Height))
	off := copyRect.Min.Sub(margined.Rect().Min)

	out, err := t.blitter.Blit(b, copyRect, w, h, off, fill)
	if err != nil {
		t.log.Warn("accelerated trim failed, using CPU path", zap.Error(err))
		return CPUBlitter{}.Blit(b, copyRect, w, h, off, fill)
	}
	return out, nil
}

// Trim crops with the CPU path.
func Trim(b *Buffer, bound Bound, margin int, fill color.RGBA) (*Buffer, error) {
	return NewTrimmer().Trim(b, bound, margin, fill)
}
