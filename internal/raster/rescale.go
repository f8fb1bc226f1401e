package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// Rescale resamples b to width x height with bilinear filtering. It is meant
// for preview thumbnails only; baked output never goes through it.
func Rescale(b *Buffer, width, height int) *Buffer {
	if width <= 0 || height <= 0 {
		return New(0, 0)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if b.Width > 0 && b.Height > 0 {
		draw.BiLinear.Scale(dst, dst.Bounds(), b.Image(), b.Image().Bounds(), draw.Src, nil)
	}
	return &Buffer{Width: width, Height: height, Pix: dst.Pix}
}

// Fit returns the largest size with b's aspect ratio inside maxW x maxH.
func Fit(b *Buffer, maxW, maxH int) (int, int) {
	if b.Width == 0 || b.Height == 0 {
		return 0, 0
	}
	w, h := maxW, b.Height*maxW/b.Width
	if h > maxH {
		w, h = b.Width*maxH/b.Height, maxH
	}
	return max(w, 1), max(h, 1)
}
