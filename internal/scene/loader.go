package scene

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/pkg/math"
)

// File is the on-disk scene description.
type File struct {
	Sources []SourceFile `yaml:"sources"`
}

// SourceFile describes one source. Mesh and runtime sources use Parts and
// Clips, static sources use Parts and particle sources use Emitter.
type SourceFile struct {
	Name    string       `yaml:"name"`
	Kind    string       `yaml:"kind"`
	Skip    bool         `yaml:"skip,omitempty"`
	Pivot   [3]float32   `yaml:"pivot,omitempty"`
	Parts   []PartFile   `yaml:"parts,omitempty"`
	Clips   []ClipFile   `yaml:"clips,omitempty"`
	Emitter *EmitterFile `yaml:"emitter,omitempty"`
}

type PartFile struct {
	Offset [3]float32 `yaml:"offset"`
	Radius float32    `yaml:"radius"`
	Color  [4]uint8   `yaml:"color"`
}

type ClipFile struct {
	Name   string        `yaml:"name"`
	Length time.Duration `yaml:"length"`
	Spin   float32       `yaml:"spin,omitempty"`
	Bob    float32       `yaml:"bob,omitempty"`
	Pulse  float32       `yaml:"pulse,omitempty"`
}

type EmitterFile struct {
	Seed     int64         `yaml:"seed"`
	Count    int           `yaml:"count"`
	Duration time.Duration `yaml:"duration"`
	Lifetime time.Duration `yaml:"lifetime"`
	Speed    float32       `yaml:"speed"`
	Size     float32       `yaml:"size"`
	Gravity  float32       `yaml:"gravity,omitempty"`
	Color    [4]uint8      `yaml:"color"`
}

// Model is a bake model the software renderer can draw.
type Model interface {
	bake.Model
	Drawable
}

// Source is a loaded source ready to bake.
type Source struct {
	Name  string
	Kind  bake.Kind
	Model Model
}

// Renderer creates a renderer fitted to the source.
func (s *Source) Renderer(width, height int) *Renderer {
	return NewRenderer(width, height, s.Model, s.Model.Bounds())
}

// Scene is a loaded scene. Skipped sources are nil so indices match the file.
type Scene struct {
	Sources []*Source
}

// Load reads a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scene description.
func Parse(data []byte) (*Scene, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}

	sc := &Scene{Sources: make([]*Source, len(f.Sources))}
	for i, sf := range f.Sources {
		if sf.Skip {
			continue
		}
		src, err := sf.build()
		if err != nil {
			return nil, fmt.Errorf("source %d (%s): %w", i, sf.Name, err)
		}
		sc.Sources[i] = src
	}
	return sc, nil
}

func (sf SourceFile) build() (*Source, error) {
	if sf.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	kind, err := bake.ParseKind(sf.Kind)
	if err != nil {
		return nil, err
	}
	pivot := vec(sf.Pivot)

	var model Model
	switch kind {
	case bake.Mesh, bake.Runtime:
		if len(sf.Parts) == 0 {
			return nil, fmt.Errorf("%v source needs parts", kind)
		}
		clips := make([]Clip, len(sf.Clips))
		for i, c := range sf.Clips {
			clips[i] = Clip{Name: c.Name, Length: c.Length, Spin: c.Spin, Bob: c.Bob, Pulse: c.Pulse}
		}
		model = NewMesh(sf.Name, pivot, parts(sf.Parts), clips)
	case bake.Static:
		if len(sf.Parts) == 0 {
			return nil, fmt.Errorf("static source needs parts")
		}
		model = NewStatic(sf.Name, pivot, parts(sf.Parts))
	case bake.Particle:
		e := sf.Emitter
		if e == nil || e.Count <= 0 || e.Duration <= 0 {
			return nil, fmt.Errorf("particle source needs an emitter with count and duration")
		}
		model = NewParticles(sf.Name, pivot, Emitter{
			Seed:     e.Seed,
			Count:    e.Count,
			Duration: e.Duration,
			Lifetime: e.Lifetime,
			Speed:    e.Speed,
			Size:     e.Size,
			Gravity:  e.Gravity,
			Color:    rgba(e.Color),
		})
	}
	return &Source{Name: sf.Name, Kind: kind, Model: model}, nil
}

func parts(in []PartFile) []Part {
	out := make([]Part, len(in))
	for i, p := range in {
		out[i] = Part{Offset: vec(p.Offset), Radius: p.Radius, Color: rgba(p.Color)}
	}
	return out
}

func vec(v [3]float32) math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func rgba(c [4]uint8) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}
