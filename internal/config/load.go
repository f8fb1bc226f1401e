package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EnvConfig names an environment variable pointing at a config file. It is
// consulted after -config and before the standard locations.
const EnvConfig = "SPRITEBAKE_CONFIG"

// Load loads configuration with priority: defaults < file < flags. The
// result must produce valid bake settings.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Flags win over the file, and their paths stay relative to the working
	// directory.
	applyFlags(cfg)

	if _, err := cfg.BakeSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	var candidates []string
	if env := os.Getenv(EnvConfig); env != "" {
		candidates = append(candidates, env)
	}
	candidates = append(candidates,
		"./spritebake.yaml",
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Spritebake")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Spritebake")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "spritebake")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "spritebake")
	}
}

// loadFromFile merges a YAML file into cfg. Unknown keys are rejected so a
// misspelled setting fails loudly instead of baking with the default.
// Relative paths set by the file are resolved against the file's directory.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	before := *cfg
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	dir := filepath.Dir(path)
	rebase(&cfg.Scene.Path, before.Scene.Path, dir)
	rebase(&cfg.Output.Dir, before.Output.Dir, dir)
	rebase(&cfg.Logging.LogFile, before.Logging.LogFile, dir)
	return nil
}

// rebase joins dir onto *p when the file changed it to a relative path.
func rebase(p *string, old, dir string) {
	if *p == "" || *p == old || filepath.IsAbs(*p) {
		return
	}
	*p = filepath.Join(dir, *p)
}
