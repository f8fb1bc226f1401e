// Package config handles bake configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"time"

	"github.com/Faultbox/spritebake/internal/atlas"
	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/internal/matte"
)

// Config holds all bake settings.
type Config struct {
	Bake    BakeConfig    `yaml:"bake"`
	Atlas   AtlasConfig   `yaml:"atlas"`
	Output  OutputConfig  `yaml:"output"`
	GPU     GPUConfig     `yaml:"gpu"`
	Scene   SceneConfig   `yaml:"scene"`
	Logging LoggingConfig `yaml:"logging"`
}

// BakeConfig holds capture settings.
type BakeConfig struct {
	Width          int           `yaml:"width"`
	Height         int           `yaml:"height"`
	Frames         int           `yaml:"frames"`
	Views          int           `yaml:"views"`
	Pitch          float64       `yaml:"pitch"` // degrees
	Margin         int           `yaml:"margin"`
	UnifySize      bool          `yaml:"unify_size"`
	Matte          string        `yaml:"matte"` // soft or opaque
	AlphaThreshold float64       `yaml:"alpha_threshold"`
	Normals        bool          `yaml:"normals"`
	PreviewSize    int           `yaml:"preview_size"`
	Tick           time.Duration `yaml:"tick"` // host tick interval
}

// AtlasConfig holds packing settings.
type AtlasConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Strategy string `yaml:"strategy"` // optimized or in_order
	MinSize  int    `yaml:"min_size"`
	MaxSize  int    `yaml:"max_size"`
	Padding  int    `yaml:"padding"`
}

// OutputConfig holds where and how results are written.
type OutputConfig struct {
	Dir  string   `yaml:"dir"`
	Fill [4]uint8 `yaml:"fill"` // RGBA of padded pixels
}

// GPUConfig holds accelerated trimming settings.
type GPUConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SceneConfig selects what to bake.
type SceneConfig struct {
	Path       string `yaml:"path"`
	Animations []int  `yaml:"animations,omitempty"` // empty bakes all
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // text, json or off
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Bake: BakeConfig{
			Width:       256,
			Height:      256,
			Frames:      16,
			Views:       8,
			Pitch:       30,
			Margin:      2,
			UnifySize:   false,
			Matte:       "soft",
			PreviewSize: 64,
			Tick:        time.Millisecond,
		},
		Atlas: AtlasConfig{
			Enabled:  true,
			Strategy: "optimized",
			MinSize:  atlas.DefaultMinSize,
			MaxSize:  atlas.DefaultMaxSize,
			Padding:  atlas.DefaultPadding,
		},
		Output: OutputConfig{
			Dir: "out",
		},
		GPU: GPUConfig{
			Enabled: false,
		},
		Scene: SceneConfig{
			Path: "scene.yaml",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			LogFile: "",
		},
	}
}

// BakeSettings converts the config into settings for a bake pass. The
// result is validated against the configured resolution.
func (c *Config) BakeSettings() (bake.Settings, error) {
	policy, err := matte.ParsePolicy(c.Bake.Matte)
	if err != nil {
		return bake.Settings{}, err
	}
	strategy, err := atlas.ParseStrategy(c.Atlas.Strategy)
	if err != nil {
		return bake.Settings{}, err
	}

	s := bake.Settings{
		FrameCount:     c.Bake.Frames,
		Views:          bake.EvenViews(c.Bake.Views, c.Bake.Pitch),
		Animations:     c.Scene.Animations,
		Margin:         c.Bake.Margin,
		UnifySize:      c.Bake.UnifySize,
		Matte:          policy,
		AlphaThreshold: c.Bake.AlphaThreshold,
		Fill:           color.RGBA{R: c.Output.Fill[0], G: c.Output.Fill[1], B: c.Output.Fill[2], A: c.Output.Fill[3]},
		Pack:           c.Atlas.Enabled,
		Atlas: atlas.Config{
			Strategy: strategy,
			MinSize:  c.Atlas.MinSize,
			MaxSize:  c.Atlas.MaxSize,
			Padding:  c.Atlas.Padding,
		},
		Normals:     c.Bake.Normals,
		PreviewSize: c.Bake.PreviewSize,
	}
	if err := s.Validate(c.Bake.Width, c.Bake.Height); err != nil {
		return bake.Settings{}, fmt.Errorf("bake settings: %w", err)
	}
	return s, nil
}
