// Package matte recovers color and alpha from two opaque renders of the same
// frame, one over black and one over white.
package matte

import (
	"fmt"

	"github.com/Faultbox/spritebake/internal/raster"
)

// Policy selects how foreground pixels are told apart from the background.
type Policy int

const (
	// Soft keeps translucency using difference matting.
	Soft Policy = iota
	// Opaque keeps only pixels that are identical over both backgrounds.
	Opaque
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case Soft:
		return "soft"
	case Opaque:
		return "opaque"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "soft":
		return Soft, nil
	case "opaque":
		return Opaque, nil
	default:
		return Soft, fmt.Errorf("unknown matte policy %q", name)
	}
}

// Extractor turns black/white render pairs into RGBA buffers.
type Extractor struct {
	Policy Policy

	// Threshold is the alpha (0..1) at or below which a pixel is dropped.
	Threshold float64
}

// NewExtractor creates an extractor with the given policy and a zero threshold.
func NewExtractor(policy Policy) *Extractor {
	return &Extractor{Policy: policy}
}

// Extract produces the matted buffer. Both inputs must have the same size
// and be captured from identical scene state.
func (e *Extractor) Extract(onBlack, onWhite *raster.Buffer) (*raster.Buffer, error) {
	if !onBlack.SameSize(onWhite) {
		return nil, fmt.Errorf("%w: black %dx%d, white %dx%d",
			raster.ErrSizeMismatch, onBlack.Width, onBlack.Height, onWhite.Width, onWhite.Height)
	}
	switch e.Policy {
	case Opaque:
		return ExtractOpaque(onBlack, onWhite), nil
	default:
		return ExtractSoft(onBlack, onWhite, e.Threshold), nil
	}
}

// ExtractSoft applies difference matting. Over black a pixel with alpha a
// and color c reads c*a; over white it reads c*a + (1-a). The per-channel
// difference is therefore 1-a, and the smallest of the three is taken as
// the estimate. Pixels with alpha <= threshold stay transparent black.
func ExtractSoft(onBlack, onWhite *raster.Buffer, threshold float64) *raster.Buffer {
	out := raster.New(onBlack.Width, onBlack.Height)
	bp, wp := onBlack.Pix, onWhite.Pix

	for i := 0; i < len(bp); i += 4 {
		diff := int(wp[i]) - int(bp[i])
		if d := int(wp[i+1]) - int(bp[i+1]); d < diff {
			diff = d
		}
		if d := int(wp[i+2]) - int(bp[i+2]); d < diff {
			diff = d
		}

		// alpha in 1/255 steps; renders that come out darker over white
		// are treated as fully opaque.
		a := 255 - diff
		if a > 255 {
			a = 255
		}
		if a <= 0 || float64(a)/255 <= threshold {
			continue
		}

		out.Pix[i] = unpremultiply(bp[i], a)
		out.Pix[i+1] = unpremultiply(bp[i+1], a)
		out.Pix[i+2] = unpremultiply(bp[i+2], a)
		out.Pix[i+3] = uint8(a)
	}
	return out
}

// unpremultiply returns round(c / (a/255)) clamped to 255.
func unpremultiply(c uint8, a int) uint8 {
	v := (int(c)*255 + a/2) / a
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ExtractOpaque keeps pixels whose color does not change with the
// background; anything that does is translucent or background.
func ExtractOpaque(onBlack, onWhite *raster.Buffer) *raster.Buffer {
	out := raster.New(onBlack.Width, onBlack.Height)
	bp, wp := onBlack.Pix, onWhite.Pix

	for i := 0; i < len(bp); i += 4 {
		if bp[i] != wp[i] || bp[i+1] != wp[i+1] || bp[i+2] != wp[i+2] {
			continue
		}
		out.Pix[i] = bp[i]
		out.Pix[i+1] = bp[i+1]
		out.Pix[i+2] = bp[i+2]
		out.Pix[i+3] = 255
	}
	return out
}
