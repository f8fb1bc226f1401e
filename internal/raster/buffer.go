// Package raster provides the RGBA buffers and pixel-space geometry used by
// the bake pipeline: bounding-box detection, trimming and rescaling.
package raster

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
)

// Sentinel errors for raster operations.
var (
	// ErrNoPixels is returned when a buffer holds no non-transparent pixel.
	ErrNoPixels = errors.New("raster: no visible pixels")

	// ErrSizeMismatch is returned when two buffers must share dimensions but do not.
	ErrSizeMismatch = errors.New("raster: buffer size mismatch")

	// ErrInvalidGeometry is returned for trims that would produce a negative size.
	ErrInvalidGeometry = errors.New("raster: invalid geometry")
)

// Common fill colors.
var (
	Transparent = color.RGBA{}
	Black       = color.RGBA{A: 255}
	White       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	FlatNormal  = color.RGBA{R: 128, G: 128, B: 255, A: 255}
)

// Buffer is an RGBA8 image, row-major with the top row first.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte // len == Width*Height*4
}

// New allocates a cleared (transparent black) buffer.
func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// Filled allocates a buffer with every pixel set to c.
func Filled(width, height int, c color.RGBA) *Buffer {
	b := New(width, height)
	b.Fill(c)
	return b
}

// FromImage converts any image to a Buffer anchored at (0,0).
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &Buffer{Width: bounds.Dx(), Height: bounds.Dy(), Pix: rgba.Pix}
}

// Image returns an *image.RGBA view sharing the buffer's pixels.
func (b *Buffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Offset returns the index of pixel (x, y) in Pix.
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * 4
}

// At returns the pixel at (x, y).
func (b *Buffer) At(x, y int) color.RGBA {
	i := b.Offset(x, y)
	return color.RGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}
}

// Set writes the pixel at (x, y).
func (b *Buffer) Set(x, y int, c color.RGBA) {
	i := b.Offset(x, y)
	b.Pix[i] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
	b.Pix[i+3] = c.A
}

// Alpha returns the alpha channel of pixel (x, y).
func (b *Buffer) Alpha(x, y int) uint8 {
	return b.Pix[b.Offset(x, y)+3]
}

// Fill sets every pixel to c.
func (b *Buffer) Fill(c color.RGBA) {
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i] = c.R
		b.Pix[i+1] = c.G
		b.Pix[i+2] = c.B
		b.Pix[i+3] = c.A
	}
}

// SameSize reports whether both buffers have identical dimensions.
func (b *Buffer) SameSize(other *Buffer) bool {
	return b.Width == other.Width && b.Height == other.Height
}

// Equal reports whether both buffers have identical dimensions and pixels.
func (b *Buffer) Equal(other *Buffer) bool {
	if !b.SameSize(other) {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

// Blit copies src into b with src's top-left corner at (dx, dy), clipping
// against b. Pixels are replaced, not blended.
func (b *Buffer) Blit(src *Buffer, dx, dy int) {
	for sy := 0; sy < src.Height; sy++ {
		ty := dy + sy
		if ty < 0 || ty >= b.Height {
			continue
		}
		x0, x1 := 0, src.Width
		if dx < 0 {
			x0 = -dx
		}
		if dx+x1 > b.Width {
			x1 = b.Width - dx
		}
		if x0 >= x1 {
			continue
		}
		so := src.Offset(x0, sy)
		do := b.Offset(dx+x0, ty)
		copy(b.Pix[do:do+(x1-x0)*4], src.Pix[so:so+(x1-x0)*4])
	}
}

