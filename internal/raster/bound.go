package raster

import (
	"fmt"
	"image"
	"math"
)

// Vector is an integer pixel coordinate.
type Vector struct {
	X, Y int
}

// ScreenVector converts a floating screen-space point to pixels, clamping
// negative coordinates to 0.
func ScreenVector(x, y float32) Vector {
	v := Vector{X: int(math.Floor(float64(x))), Y: int(math.Floor(float64(y)))}
	if v.X < 0 {
		v.X = 0
	}
	if v.Y < 0 {
		v.Y = 0
	}
	return v
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y}
}

// SubWithMargin expresses v relative to the corner of origin pushed out by
// margin: v - (origin - margin).
func (v Vector) SubWithMargin(origin Vector, margin int) Vector {
	return Vector{v.X - (origin.X - margin), v.Y - (origin.Y - margin)}
}

func (v Vector) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Y)
}

// Bound is an inclusive pixel box. The zero value is not useful; start from
// EmptyBound so the first Expand always wins.
type Bound struct {
	Min, Max Vector
}

// EmptyBound returns an inverted box (min = +inf, max = -inf).
func EmptyBound() Bound {
	return Bound{
		Min: Vector{math.MaxInt32, math.MaxInt32},
		Max: Vector{math.MinInt32, math.MinInt32},
	}
}

// NewBound builds a box from inclusive corners.
func NewBound(minX, minY, maxX, maxY int) Bound {
	return Bound{Min: Vector{minX, minY}, Max: Vector{maxX, maxY}}
}

// BufferBound covers every pixel of b.
func BufferBound(b *Buffer) Bound {
	return NewBound(0, 0, b.Width-1, b.Height-1)
}

// AnchorBound is the degenerate 2x2 box around anchor used when a frame has
// no visible pixels.
func AnchorBound(anchor Vector) Bound {
	minX, minY := anchor.X-1, anchor.Y-1
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	return NewBound(minX, minY, minX+1, minY+1)
}

// Valid reports whether min <= max on both axes.
func (b Bound) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y
}

// Width is the inclusive pixel width.
func (b Bound) Width() int {
	return b.Max.X - b.Min.X + 1
}

// Height is the inclusive pixel height.
func (b Bound) Height() int {
	return b.Max.Y - b.Min.Y + 1
}

// CopyExtendedBy returns the box widened by margin on every side. A negative
// margin shrinks it.
func (b Bound) CopyExtendedBy(margin int) Bound {
	return Bound{
		Min: Vector{b.Min.X - margin, b.Min.Y - margin},
		Max: Vector{b.Max.X + margin, b.Max.Y + margin},
	}
}

// Expand grows b to also contain other.
func (b *Bound) Expand(other Bound) {
	b.Min.X = min(b.Min.X, other.Min.X)
	b.Min.Y = min(b.Min.Y, other.Min.Y)
	b.Max.X = max(b.Max.X, other.Max.X)
	b.Max.Y = max(b.Max.Y, other.Max.Y)
}

// Rect converts to a half-open image.Rectangle.
func (b Bound) Rect() image.Rectangle {
	return image.Rect(b.Min.X, b.Min.Y, b.Max.X+1, b.Max.Y+1)
}

func (b Bound) String() string {
	return fmt.Sprintf("[%v-%v]", b.Min, b.Max)
}
