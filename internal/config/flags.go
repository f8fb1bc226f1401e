package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagScene    = flag.String("scene", "", "Scene file to bake")
	flagOut      = flag.String("out", "", "Output directory")
	flagWidth    = flag.Int("width", 0, "Render width")
	flagHeight   = flag.Int("height", 0, "Render height")
	flagFrames   = flag.Int("frames", 0, "Frames per animation")
	flagViews    = flag.Int("views", 0, "Views around the model")
	flagMargin   = flag.Int("margin", 0, "Margin around trimmed frames, may be 0 or negative")
	flagUnify    = flag.Bool("unify", false, "Trim every frame of a view to one size")
	flagStrategy = flag.String("strategy", "", "Atlas strategy: optimized or in_order")
	flagNoAtlas  = flag.Bool("no-atlas", false, "Write loose frames instead of atlases")
	flagNormals  = flag.Bool("normals", false, "Bake normal maps")
	flagGPU      = flag.Bool("gpu", false, "Trim on the GPU")

	flagSample      = flag.Int("sample", 0, "Sample N frames per source instead of baking")
	flagSelect      = flag.String("select", "", "Selection file restricting which frames are baked")
	flagWriteConfig = flag.Bool("write-config", false, "Save the effective config and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SampleCount returns the -sample frame count, 0 when not sampling.
func SampleCount() int {
	return *flagSample
}

// SelectionPath returns the -select file, if any.
func SelectionPath() string {
	return *flagSelect
}

// WriteConfig reports whether -write-config was given.
func WriteConfig() bool {
	return *flagWriteConfig
}

// explicit reports whether name was given on the command line, so a zero
// value can still override the file.
func explicit(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagScene != "" {
		cfg.Scene.Path = *flagScene
	}
	if *flagOut != "" {
		cfg.Output.Dir = *flagOut
	}
	if *flagWidth > 0 {
		cfg.Bake.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Bake.Height = *flagHeight
	}
	if *flagFrames > 0 {
		cfg.Bake.Frames = *flagFrames
	}
	if *flagViews > 0 {
		cfg.Bake.Views = *flagViews
	}
	if explicit("margin") {
		cfg.Bake.Margin = *flagMargin
	}
	if *flagUnify {
		cfg.Bake.UnifySize = true
	}
	if *flagStrategy != "" {
		cfg.Atlas.Strategy = *flagStrategy
	}
	if *flagNoAtlas {
		cfg.Atlas.Enabled = false
	}
	if *flagNormals {
		cfg.Bake.Normals = true
	}
	if *flagGPU {
		cfg.GPU.Enabled = true
	}
}
