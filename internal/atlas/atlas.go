// Package atlas packs trimmed frames into power-of-two texture atlases.
package atlas

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/spritebake/internal/raster"
)

// Sentinel errors for atlas packing.
var (
	// ErrOverflow is returned when the images cannot fit within the allowed size.
	ErrOverflow = errors.New("atlas: images do not fit")

	// ErrNoImages is returned when Pack is called with an empty image list.
	ErrNoImages = errors.New("atlas: no images to pack")

	// ErrLengthMismatch is returned when pivots or normals are not parallel to the images.
	ErrLengthMismatch = errors.New("atlas: parallel inputs differ in length")
)

// Size limits.
const (
	// Ceiling is the hard upper bound for any canvas dimension.
	Ceiling = 8192

	// DefaultMinSize is the starting canvas size for the in-order strategy.
	DefaultMinSize = 128

	// DefaultMaxSize is the canvas size limit for the optimized strategy.
	DefaultMaxSize = 4096

	// DefaultPadding is the gap between neighbouring images.
	DefaultPadding = 1
)

// Strategy selects the layout algorithm.
type Strategy int

const (
	// Optimized packs images tallest first onto shelves to reduce wasted area.
	Optimized Strategy = iota
	// InOrder lays images out row by row in input order.
	InOrder
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case Optimized:
		return "optimized"
	case InOrder:
		return "in_order"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "optimized":
		return Optimized, nil
	case "in_order", "inorder":
		return InOrder, nil
	default:
		return Optimized, fmt.Errorf("unknown atlas strategy %q", name)
	}
}

// Rect is a placement in canvas pixels with a top-left origin.
type Rect struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"w"`
	Height int `yaml:"h"`
}

// Overlaps reports whether r and o share at least one pixel.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Pivot is an anchor normalized to the image size, y measured from the top.
type Pivot struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Layout describes a packed canvas. Rects and Pivots are index-aligned with
// the images passed to Pack.
type Layout struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Rects  []Rect  `yaml:"rects"`
	Pivots []Pivot `yaml:"pivots"`
}

// Result is a packed canvas with its layout. Normals is nil unless a normal
// set was packed alongside.
type Result struct {
	Canvas  *raster.Buffer
	Normals *raster.Buffer
	Layout  Layout
}

// Config holds packer settings.
type Config struct {
	Strategy Strategy
	MinSize  int
	MaxSize  int
	Padding  int
}

// DefaultConfig returns the default packer settings.
func DefaultConfig() Config {
	return Config{
		Strategy: Optimized,
		MinSize:  DefaultMinSize,
		MaxSize:  DefaultMaxSize,
		Padding:  DefaultPadding,
	}
}

// Packer lays out images on atlas canvases.
type Packer struct {
	cfg Config
	log *zap.Logger
}

// NewPacker creates a packer. A nil logger disables logging.
func NewPacker(cfg Config, log *zap.Logger) *Packer {
	if cfg.MinSize <= 0 {
		cfg.MinSize = DefaultMinSize
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.MaxSize > Ceiling {
		cfg.MaxSize = Ceiling
	}
	if cfg.Padding < 0 {
		cfg.Padding = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Packer{cfg: cfg, log: log}
}

// Pack lays out images and composes the canvas. pivots holds each image's
// anchor in image pixels and may be nil. normals, when non-nil, must be
// parallel to images with matching sizes; it is placed with the same rects
// on a canvas whose uncovered texels are the flat normal.
func (p *Packer) Pack(images []*raster.Buffer, pivots []raster.Vector, normals []*raster.Buffer) (*Result, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if pivots != nil && len(pivots) != len(images) {
		return nil, fmt.Errorf("%w: %d images, %d pivots", ErrLengthMismatch, len(images), len(pivots))
	}
	if normals != nil {
		if len(normals) != len(images) {
			return nil, fmt.Errorf("%w: %d images, %d normal maps", ErrLengthMismatch, len(images), len(normals))
		}
		for i := range normals {
			if normals[i] == nil || !normals[i].SameSize(images[i]) {
				return nil, fmt.Errorf("%w: normal map %d does not match its image", raster.ErrSizeMismatch, i)
			}
		}
	}

	var (
		layout Layout
		err    error
	)
	switch p.cfg.Strategy {
	case InOrder:
		layout, err = p.layoutInOrder(images)
	default:
		layout, err = p.layoutOptimized(images)
	}
	if err != nil {
		return nil, err
	}

	layout.Pivots = make([]Pivot, len(images))
	for i, img := range images {
		if pivots == nil || img.Width == 0 || img.Height == 0 {
			continue
		}
		layout.Pivots[i] = Pivot{
			X: float64(pivots[i].X) / float64(img.Width),
			Y: float64(pivots[i].Y) / float64(img.Height),
		}
	}

	res := &Result{
		Canvas: raster.New(layout.Width, layout.Height),
		Layout: layout,
	}
	for i, img := range images {
		res.Canvas.Blit(img, layout.Rects[i].X, layout.Rects[i].Y)
	}
	if normals != nil {
		res.Normals = raster.Filled(layout.Width, layout.Height, raster.FlatNormal)
		for i, n := range normals {
			res.Normals.Blit(n, layout.Rects[i].X, layout.Rects[i].Y)
		}
	}

	p.log.Debug("atlas packed",
		zap.Stringer("strategy", p.cfg.Strategy),
		zap.Int("images", len(images)),
		zap.Int("width", layout.Width),
		zap.Int("height", layout.Height),
	)
	return res, nil
}

// layoutOptimized tries square power-of-two canvases from the smallest one
// that can hold the largest image up to MaxSize and keeps the first fit.
func (p *Packer) layoutOptimized(images []*raster.Buffer) (Layout, error) {
	order := make([]int, len(images))
	maxW, maxH := 0, 0
	for i, img := range images {
		order[i] = i
		maxW = max(maxW, img.Width)
		maxH = max(maxH, img.Height)
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := images[order[a]], images[order[b]]
		if ia.Height != ib.Height {
			return ia.Height > ib.Height
		}
		return ia.Width > ib.Width
	})

	size := p.cfg.MinSize
	for size < maxW || size < maxH {
		size *= 2
	}

	for ; size <= p.cfg.MaxSize; size *= 2 {
		alloc := newShelfAllocator(size, size, p.cfg.Padding)
		rects := make([]Rect, len(images))
		fits := true
		for _, idx := range order {
			img := images[idx]
			x, y, ok := alloc.allocate(img.Width, img.Height)
			if !ok {
				fits = false
				break
			}
			rects[idx] = Rect{X: x, Y: y, Width: img.Width, Height: img.Height}
		}
		if fits {
			p.log.Debug("optimized layout", zap.Int("size", size), zap.Float64("utilization", alloc.utilization()))
			return Layout{Width: size, Height: size, Rects: rects}, nil
		}
	}

	return Layout{}, fmt.Errorf("%w: %d images exceed %dx%d", ErrOverflow, len(images), p.cfg.MaxSize, p.cfg.MaxSize)
}

// layoutInOrder places images left to right in rows of height maxH, in
// input order, starting from the top. The layout is computed bottom-up (row
// origin at the lower edge of each band) and converted to top-left rects.
// When a row would drop below the canvas the smaller dimension (width if
// square) is doubled and the whole layout restarts.
//
// TODO: replace the restart-on-overflow loop with a proper shelf pass; every
// restart redoes the full layout.
func (p *Packer) layoutInOrder(images []*raster.Buffer) (Layout, error) {
	maxW, maxH := 0, 0
	for _, img := range images {
		maxW = max(maxW, img.Width)
		maxH = max(maxH, img.Height)
	}

	w, h := p.cfg.MinSize, p.cfg.MinSize
	for w < maxW {
		w *= 2
	}
	for h < maxH {
		h *= 2
	}

	for w <= Ceiling && h <= Ceiling {
		if rects, ok := placeInOrder(images, w, h, maxH, p.cfg.Padding); ok {
			return Layout{Width: w, Height: h, Rects: rects}, nil
		}
		p.log.Debug("in-order layout overflowed, growing canvas", zap.Int("width", w), zap.Int("height", h))
		if w <= h {
			w *= 2
		} else {
			h *= 2
		}
	}

	return Layout{}, fmt.Errorf("%w: in-order layout of %d images exceeds %d", ErrOverflow, len(images), Ceiling)
}

func placeInOrder(images []*raster.Buffer, w, h, maxH, padding int) ([]Rect, bool) {
	rects := make([]Rect, len(images))
	currX, currY := 0, h-maxH
	for i, img := range images {
		if currX+img.Width > w {
			currX = 0
			currY -= maxH + padding
			if currY < 0 {
				return nil, false
			}
		}
		rects[i] = Rect{
			X:      currX,
			Y:      h - currY - img.Height,
			Width:  img.Width,
			Height: img.Height,
		}
		currX += img.Width + padding
	}
	return rects, true
}
