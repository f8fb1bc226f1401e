// Package emit writes baked frames and atlases to a directory tree.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/spritebake/internal/atlas"
	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/internal/raster"
)

// AtlasMeta is the YAML sidecar written next to every atlas.
type AtlasMeta struct {
	Model     string      `yaml:"model"`
	Animation string      `yaml:"animation,omitempty"`
	View      bake.View   `yaml:"view"`
	Width     int         `yaml:"width"`
	Height    int         `yaml:"height"`
	Image     string      `yaml:"image"`
	Normals   string      `yaml:"normals,omitempty"`
	Frames    []FrameMeta `yaml:"frames"`
}

// FrameMeta places one frame inside an atlas, or describes a loose frame.
type FrameMeta struct {
	Index int         `yaml:"index"`
	Time  float64     `yaml:"time"`
	Rect  *atlas.Rect `yaml:"rect,omitempty"`
	Pivot atlas.Pivot `yaml:"pivot"`
	Image string      `yaml:"image,omitempty"`
}

// Dir writes output under a root directory as
// <root>/<model>/<animation>_view<NN>.png plus a .yaml sidecar for atlases,
// and <root>/<model>/<animation>_view<NN>/frame<NNN>.png for loose frames.
type Dir struct {
	root string
	log  *zap.Logger
}

// NewDir creates a sink writing under root. A nil logger disables logging.
func NewDir(root string, log *zap.Logger) *Dir {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dir{root: root, log: log}
}

// Root returns the output directory.
func (d *Dir) Root() string { return d.root }

func (d *Dir) base(model, animation string, view bake.View) string {
	anim := animation
	if anim == "" {
		anim = "default"
	}
	return filepath.Join(d.root, sanitize(model), fmt.Sprintf("%s_view%02d", sanitize(anim), view.Index))
}

// WriteAtlas writes the canvas, the normal canvas if any, and the sidecar.
// The files are encoded concurrently.
func (d *Dir) WriteAtlas(out *bake.AtlasOutput) error {
	base := d.base(out.Model, out.Animation, out.View)
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	layout := out.Result.Layout
	meta := AtlasMeta{
		Model:     out.Model,
		Animation: out.Animation,
		View:      out.View,
		Width:     layout.Width,
		Height:    layout.Height,
		Image:     filepath.Base(base) + ".png",
		Frames:    make([]FrameMeta, len(out.Frames)),
	}
	for i, f := range out.Frames {
		rect := layout.Rects[i]
		meta.Frames[i] = FrameMeta{Index: f.Index, Time: f.Time, Rect: &rect}
		if i < len(layout.Pivots) {
			meta.Frames[i].Pivot = layout.Pivots[i]
		}
	}

	var g errgroup.Group
	g.Go(func() error { return WritePNG(base+".png", out.Result.Canvas) })
	if out.Result.Normals != nil {
		meta.Normals = filepath.Base(base) + "_normals.png"
		g.Go(func() error { return WritePNG(base+"_normals.png", out.Result.Normals) })
	}
	g.Go(func() error { return WriteYAML(base+".yaml", meta) })
	if err := g.Wait(); err != nil {
		return err
	}

	d.log.Info("atlas written",
		zap.String("path", base+".png"),
		zap.Int("width", layout.Width),
		zap.Int("height", layout.Height),
		zap.Int("frames", len(out.Frames)),
	)
	return nil
}

// WriteFrame writes one loose frame with its sidecar.
func (d *Dir) WriteFrame(out *bake.FrameOutput) error {
	dir := d.base(out.Model, out.Animation, out.View)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	name := fmt.Sprintf("frame%03d", out.Frame.Index)
	path := filepath.Join(dir, name)

	meta := FrameMeta{
		Index: out.Frame.Index,
		Time:  out.Frame.Time,
		Image: name + ".png",
	}
	if out.Image.Width > 0 && out.Image.Height > 0 {
		meta.Pivot = atlas.Pivot{
			X: float64(out.Pivot.X) / float64(out.Image.Width),
			Y: float64(out.Pivot.Y) / float64(out.Image.Height),
		}
	}

	var g errgroup.Group
	g.Go(func() error { return WritePNG(path+".png", out.Image) })
	if out.Normal != nil {
		g.Go(func() error { return WritePNG(path+"_normals.png", out.Normal) })
	}
	g.Go(func() error { return WriteYAML(path+".yaml", meta) })
	if err := g.Wait(); err != nil {
		return err
	}

	d.log.Debug("frame written", zap.String("path", path+".png"))
	return nil
}

// WritePNG encodes b to path.
func WritePNG(path string, b *raster.Buffer) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := raster.EncodePNG(file, b); err != nil {
		return fmt.Errorf("encoding PNG %s: %w", path, err)
	}
	return file.Close()
}

// WriteYAML marshals v to path.
func WriteYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}

// sanitize makes a name safe to use as a single path element. Names are
// NFC-normalized so composed and decomposed spellings share a directory.
func sanitize(name string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, norm.NFC.String(name))
	if s == "" || s == "." || s == ".." {
		return "unnamed"
	}
	return s
}

var _ bake.Sink = (*Dir)(nil)
