package raster

// Detect returns the tight inclusive box around every pixel with alpha > 0.
// ok is false for a fully transparent buffer; callers that need a box anyway
// substitute AnchorBound themselves.
//
// The box is found with four bounded scans, each one narrowing the area the
// next one has to look at.
func Detect(b *Buffer) (bound Bound, ok bool) {
	if b == nil || b.Width == 0 || b.Height == 0 {
		return EmptyBound(), false
	}

	minX := -1
	for x := 0; x < b.Width && minX < 0; x++ {
		for y := 0; y < b.Height; y++ {
			if b.Alpha(x, y) > 0 {
				minX = x
				break
			}
		}
	}
	if minX < 0 {
		return EmptyBound(), false
	}

	minY := -1
	for y := 0; y < b.Height && minY < 0; y++ {
		for x := minX; x < b.Width; x++ {
			if b.Alpha(x, y) > 0 {
				minY = y
				break
			}
		}
	}
	if minY < 0 {
		return EmptyBound(), false
	}

	maxX := -1
	for x := b.Width - 1; x >= minX && maxX < 0; x-- {
		for y := minY; y < b.Height; y++ {
			if b.Alpha(x, y) > 0 {
				maxX = x
				break
			}
		}
	}
	if maxX < 0 {
		return EmptyBound(), false
	}

	maxY := -1
	for y := b.Height - 1; y >= minY && maxY < 0; y-- {
		for x := minX; x <= maxX; x++ {
			if b.Alpha(x, y) > 0 {
				maxY = y
				break
			}
		}
	}
	if maxY < 0 {
		return EmptyBound(), false
	}

	return NewBound(minX, minY, maxX, maxY), true
}

// DetectOrAnchor runs Detect and falls back to the 2x2 box around anchor.
// detected reports which of the two was returned.
func DetectOrAnchor(b *Buffer, anchor Vector) (bound Bound, detected bool) {
	if bound, ok := Detect(b); ok {
		return bound, true
	}
	return AnchorBound(anchor), false
}
