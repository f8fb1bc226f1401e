package emit

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/spritebake/internal/atlas"
	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/internal/raster"
)

func packed(t *testing.T, normals bool) *atlas.Result {
	t.Helper()
	images := []*raster.Buffer{
		raster.Filled(10, 12, raster.White),
		raster.Filled(8, 8, raster.Black),
	}
	pivots := []raster.Vector{{X: 5, Y: 6}, {X: 4, Y: 8}}
	var ns []*raster.Buffer
	if normals {
		ns = []*raster.Buffer{raster.Filled(10, 12, raster.FlatNormal), raster.Filled(8, 8, raster.FlatNormal)}
	}
	res, err := atlas.NewPacker(atlas.Config{Strategy: atlas.InOrder, MinSize: 32}, nil).Pack(images, pivots, ns)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	return res
}

func TestDir_WriteAtlas(t *testing.T) {
	root := t.TempDir()
	d := NewDir(root, nil)
	out := &bake.AtlasOutput{
		Model:     "big slime",
		Animation: "idle",
		View:      bake.View{Index: 3, Yaw: 135, Pitch: 30},
		Frames:    []bake.Frame{{Index: 0, Time: 0}, {Index: 1, Time: 1}},
		Result:    packed(t, true),
	}
	if err := d.WriteAtlas(out); err != nil {
		t.Fatalf("WriteAtlas: %v", err)
	}

	base := filepath.Join(root, "big_slime", "idle_view03")
	img, err := raster.ReadPNG(base + ".png")
	if err != nil {
		t.Fatalf("reading atlas: %v", err)
	}
	if img.Width != out.Result.Layout.Width || img.Height != out.Result.Layout.Height {
		t.Errorf("atlas is %dx%d", img.Width, img.Height)
	}
	if _, err := os.Stat(base + "_normals.png"); err != nil {
		t.Errorf("normals not written: %v", err)
	}

	data, err := os.ReadFile(base + ".yaml")
	if err != nil {
		t.Fatalf("reading sidecar: %v", err)
	}
	var meta AtlasMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		t.Fatalf("parsing sidecar: %v", err)
	}
	if meta.Model != "big slime" || meta.View.Yaw != 135 || len(meta.Frames) != 2 {
		t.Errorf("sidecar = %+v", meta)
	}
	if meta.Frames[1].Rect == nil || *meta.Frames[1].Rect != out.Result.Layout.Rects[1] {
		t.Errorf("frame 1 rect = %v, want %v", meta.Frames[1].Rect, out.Result.Layout.Rects[1])
	}
	if meta.Frames[0].Pivot != (atlas.Pivot{X: 0.5, Y: 0.5}) {
		t.Errorf("frame 0 pivot = %v", meta.Frames[0].Pivot)
	}
	if meta.Normals != "idle_view03_normals.png" {
		t.Errorf("normals entry = %q", meta.Normals)
	}
}

func TestDir_WriteFrame(t *testing.T) {
	root := t.TempDir()
	d := NewDir(root, nil)
	out := &bake.FrameOutput{
		Model: "rock",
		View:  bake.View{Index: 1},
		Frame: bake.Frame{Index: 4, Time: 0.5},
		Image: raster.Filled(4, 8, raster.White),
		Pivot: raster.Vector{X: 2, Y: 8},
	}
	if err := d.WriteFrame(out); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	path := filepath.Join(root, "rock", "default_view01", "frame004")
	img, err := raster.ReadPNG(path + ".png")
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	if !img.Equal(out.Image) {
		t.Error("frame pixels changed on disk")
	}

	data, err := os.ReadFile(path + ".yaml")
	if err != nil {
		t.Fatalf("reading sidecar: %v", err)
	}
	var meta FrameMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		t.Fatalf("parsing sidecar: %v", err)
	}
	if meta.Pivot != (atlas.Pivot{X: 0.5, Y: 1}) || meta.Time != 0.5 || meta.Rect != nil {
		t.Errorf("sidecar = %+v", meta)
	}
}

func TestSelection_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sel", "slime.yaml")
	frames := []bake.Frame{{Index: 0, Time: 0}, {Index: 2, Time: 0.5}, {Index: 2, Time: 0.6}}
	if err := WriteSelection(path, "slime", frames); err != nil {
		t.Fatalf("WriteSelection: %v", err)
	}
	sel, err := ReadSelection(path)
	if err != nil {
		t.Fatalf("ReadSelection: %v", err)
	}
	if sel.Model != "slime" || len(sel.Frames) != 2 || sel.Frames[1].Time != 0.5 {
		t.Errorf("selection = %+v", sel)
	}
}

func TestReadSelection_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("model: x\nframes: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSelection(path); err == nil {
		t.Error("expected an error for an empty selection")
	}
}

func TestWriteSamples(t *testing.T) {
	dir := t.TempDir()
	samples := []bake.Sample{
		{Frame: bake.Frame{Index: 0}, Image: raster.Filled(6, 6, raster.White), Thumbnail: raster.Filled(3, 3, raster.White)},
		{Frame: bake.Frame{Index: 1, Time: 1}, Image: raster.Filled(6, 6, raster.Black)},
	}
	if err := WriteSamples(dir, "slime", samples); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	for _, name := range []string{"sample000.png", "sample000_thumb.png", "sample001.png", "selection.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	sel, err := ReadSelection(filepath.Join(dir, "selection.yaml"))
	if err != nil || len(sel.Frames) != 2 {
		t.Errorf("selection = %+v, err %v", sel, err)
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"slime":      "slime",
		"big slime":  "big_slime",
		"a/b":        "a_b",
		"":           "unnamed",
		"..":         "unnamed",
		"cafe\u0301": "caf\u00e9",
	}
	for in, want := range tests {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
