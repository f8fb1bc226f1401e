package atlas

import (
	"errors"
	"image/color"
	"math/rand"
	"testing"

	"github.com/Faultbox/spritebake/internal/raster"
)

// tagged returns images whose pixels carry their index, so placement can be
// verified against the canvas.
func tagged(sizes [][2]int) []*raster.Buffer {
	images := make([]*raster.Buffer, len(sizes))
	for i, s := range sizes {
		images[i] = raster.Filled(s[0], s[1], color.RGBA{R: uint8(i), G: uint8(i >> 8), B: 7, A: 255})
	}
	return images
}

func randomSizes(rng *rand.Rand, n, maxSide int) [][2]int {
	sizes := make([][2]int, n)
	for i := range sizes {
		sizes[i] = [2]int{1 + rng.Intn(maxSide), 1 + rng.Intn(maxSide)}
	}
	return sizes
}

func checkLayout(t *testing.T, res *Result, images []*raster.Buffer) {
	t.Helper()
	l := res.Layout
	if len(l.Rects) != len(images) || len(l.Pivots) != len(images) {
		t.Fatalf("layout has %d rects and %d pivots for %d images", len(l.Rects), len(l.Pivots), len(images))
	}
	for i, r := range l.Rects {
		if r.X < 0 || r.Y < 0 || r.X+r.Width > l.Width || r.Y+r.Height > l.Height {
			t.Errorf("rect %d %+v outside %dx%d canvas", i, r, l.Width, l.Height)
		}
		if r.Width != images[i].Width || r.Height != images[i].Height {
			t.Errorf("rect %d size %dx%d, image %dx%d", i, r.Width, r.Height, images[i].Width, images[i].Height)
		}
		for j := i + 1; j < len(l.Rects); j++ {
			if r.Overlaps(l.Rects[j]) {
				t.Errorf("rects %d %+v and %d %+v overlap", i, r, j, l.Rects[j])
			}
		}
		if got, want := res.Canvas.At(r.X, r.Y), images[i].At(0, 0); got != want {
			t.Errorf("canvas at rect %d = %v, want image %d color %v", i, got, i, want)
		}
		if got, want := res.Canvas.At(r.X+r.Width-1, r.Y+r.Height-1), images[i].At(0, 0); got != want {
			t.Errorf("canvas at rect %d far corner = %v, want %v", i, got, want)
		}
	}
	if l.Width&(l.Width-1) != 0 || l.Height&(l.Height-1) != 0 {
		t.Errorf("canvas %dx%d is not power of two", l.Width, l.Height)
	}
}

func TestPack_NonOverlapAndAlignment(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, strategy := range []Strategy{Optimized, InOrder} {
		for round := 0; round < 20; round++ {
			sizes := randomSizes(rng, 1+rng.Intn(40), 90)
			images := tagged(sizes)

			pivots := make([]raster.Vector, len(images))
			for i, img := range images {
				pivots[i] = raster.Vector{X: img.Width / 2, Y: img.Height}
			}

			p := NewPacker(Config{Strategy: strategy, MinSize: 64, MaxSize: 4096, Padding: 2}, nil)
			res, err := p.Pack(images, pivots, nil)
			if err != nil {
				t.Fatalf("%v round %d: Pack failed: %v", strategy, round, err)
			}
			checkLayout(t, res, images)

			for i, img := range images {
				want := Pivot{X: float64(img.Width/2) / float64(img.Width), Y: 1}
				if res.Layout.Pivots[i] != want {
					t.Errorf("%v: pivot %d = %+v, want %+v", strategy, i, res.Layout.Pivots[i], want)
				}
			}
		}
	}
}

func TestPack_InOrderRowsFollowInput(t *testing.T) {
	images := tagged([][2]int{{30, 20}, {30, 10}, {30, 20}, {30, 20}, {30, 20}})
	p := NewPacker(Config{Strategy: InOrder, MinSize: 64, Padding: 1}, nil)

	res, err := p.Pack(images, nil, nil)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	l := res.Layout
	if l.Width != 64 || l.Height != 64 {
		t.Fatalf("canvas = %dx%d, want 64x64", l.Width, l.Height)
	}

	want := []Rect{
		{X: 0, Y: 0, Width: 30, Height: 20},
		{X: 31, Y: 10, Width: 30, Height: 10},
		{X: 0, Y: 21, Width: 30, Height: 20},
		{X: 31, Y: 21, Width: 30, Height: 20},
		{X: 0, Y: 42, Width: 30, Height: 20},
	}
	for i := range want {
		if l.Rects[i] != want[i] {
			t.Errorf("rect %d = %+v, want %+v", i, l.Rects[i], want[i])
		}
	}
}

func TestPack_InOrderGrowsAndRestarts(t *testing.T) {
	sizes := [][2]int{{68, 68}, {68, 68}, {68, 68}, {68, 68}}
	images := tagged(sizes)
	p := NewPacker(Config{Strategy: InOrder, MinSize: 128, Padding: 1}, nil)

	res, err := p.Pack(images, nil, nil)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	// 128x128 holds one per row and two rows do not fit; 256x128 holds three
	// per row but still needs a second row; 256x256 succeeds.
	if res.Layout.Width != 256 || res.Layout.Height != 256 {
		t.Errorf("canvas = %dx%d, want 256x256", res.Layout.Width, res.Layout.Height)
	}
	checkLayout(t, res, images)
}

func TestPack_InOrderCeiling(t *testing.T) {
	// Layout only looks at sizes; skip allocating pixels.
	images := make([]*raster.Buffer, 40)
	for i := range images {
		images[i] = &raster.Buffer{Width: 4000, Height: 4000}
	}
	p := NewPacker(Config{Strategy: InOrder, MinSize: 128}, nil)
	if _, err := p.Pack(images, nil, nil); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestPack_OptimizedOverflow(t *testing.T) {
	images := tagged([][2]int{{100, 100}, {100, 100}, {100, 100}})
	p := NewPacker(Config{Strategy: Optimized, MinSize: 64, MaxSize: 128}, nil)
	if _, err := p.Pack(images, nil, nil); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestPack_OptimizedPicksSmallestFit(t *testing.T) {
	images := tagged([][2]int{{10, 10}, {20, 5}, {5, 20}})
	p := NewPacker(Config{Strategy: Optimized, MinSize: 32, MaxSize: 1024}, nil)
	res, err := p.Pack(images, nil, nil)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if res.Layout.Width != 32 || res.Layout.Height != 32 {
		t.Errorf("canvas = %dx%d, want 32x32", res.Layout.Width, res.Layout.Height)
	}
}

func TestPack_NormalsShareRects(t *testing.T) {
	images := tagged([][2]int{{8, 8}, {4, 12}})
	normals := []*raster.Buffer{
		raster.Filled(8, 8, color.RGBA{R: 200, G: 10, B: 10, A: 255}),
		raster.Filled(4, 12, color.RGBA{R: 10, G: 200, B: 10, A: 255}),
	}

	for _, strategy := range []Strategy{Optimized, InOrder} {
		p := NewPacker(Config{Strategy: strategy, MinSize: 32}, nil)
		res, err := p.Pack(images, nil, normals)
		if err != nil {
			t.Fatalf("Pack failed: %v", err)
		}
		if res.Normals == nil || !res.Normals.SameSize(res.Canvas) {
			t.Fatal("normal canvas must match the color canvas")
		}
		for i, r := range res.Layout.Rects {
			if got := res.Normals.At(r.X, r.Y); got != normals[i].At(0, 0) {
				t.Errorf("%v: normal at rect %d = %v, want %v", strategy, i, got, normals[i].At(0, 0))
			}
		}
		if got := res.Normals.At(res.Layout.Width-1, res.Layout.Height-1); got != raster.FlatNormal {
			t.Errorf("%v: uncovered normal texel = %v, want flat normal", strategy, got)
		}
	}
}

func TestPack_InputErrors(t *testing.T) {
	p := NewPacker(DefaultConfig(), nil)

	if _, err := p.Pack(nil, nil, nil); !errors.Is(err, ErrNoImages) {
		t.Errorf("expected ErrNoImages, got %v", err)
	}

	images := tagged([][2]int{{4, 4}, {4, 4}})
	if _, err := p.Pack(images, []raster.Vector{{}}, nil); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch for pivots, got %v", err)
	}
	bad := []*raster.Buffer{raster.New(4, 4), raster.New(5, 4)}
	if _, err := p.Pack(images, nil, bad); !errors.Is(err, raster.ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch for normals, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    Strategy
		wantErr bool
	}{
		{"optimized", Optimized, false},
		{"", Optimized, false},
		{"in_order", InOrder, false},
		{"maxrects", Optimized, true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.name)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, %v", tt.name, got, err)
		}
	}
}
