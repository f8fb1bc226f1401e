package emit

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/spritebake/internal/bake"
)

// Selection is a frame list saved by a sampling run and edited by hand
// before a full bake.
type Selection struct {
	Model  string       `yaml:"model"`
	Frames []bake.Frame `yaml:"frames"`
}

// WriteSelection saves frames to path.
func WriteSelection(path, model string, frames []bake.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	return WriteYAML(path, Selection{Model: model, Frames: frames})
}

// ReadSelection loads a frame list. Duplicate indices keep the first entry.
func ReadSelection(path string) (*Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading selection: %w", err)
	}
	var sel Selection
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("parsing selection %s: %w", path, err)
	}
	if len(sel.Frames) == 0 {
		return nil, fmt.Errorf("selection %s has no frames", path)
	}
	sel.Frames = bake.Dedupe(sel.Frames)
	return &sel, nil
}

// WriteSamples writes the images and thumbnails of a sampling run to dir
// together with a selection file listing every sampled frame.
func WriteSamples(dir, model string, samples []bake.Sample) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	frames := make([]bake.Frame, len(samples))
	var g errgroup.Group
	g.SetLimit(4)
	for i, s := range samples {
		frames[i] = s.Frame
		name := filepath.Join(dir, fmt.Sprintf("sample%03d", s.Frame.Index))
		g.Go(func() error { return WritePNG(name+".png", s.Image) })
		if s.Thumbnail != nil && s.Thumbnail.Width > 0 {
			g.Go(func() error { return WritePNG(name+"_thumb.png", s.Thumbnail) })
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return WriteSelection(filepath.Join(dir, "selection.yaml"), model, frames)
}
