package engine

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
)

type ApplicationConfig struct {
	// The application name handed to the Vulkan instance.
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
	// Directory indexed and, in watch mode, observed for model changes.
	AssetsDir string `toml:"assets_dir"`
	// A single model to load. Every indexed asset is loaded when empty.
	Model string  `toml:"model"`
	Scale float32 `toml:"scale"`
	// Vertex components in upload order, e.g. ["position", "normal", "uv"].
	Layout []string `toml:"layout"`
	// Import post-processing steps. Empty means the default set.
	Flags      []string `toml:"flags"`
	UseStaging bool     `toml:"use_staging"`
	Validation bool     `toml:"validation"`
	Watch      bool     `toml:"watch"`
	// Workers preparing vertex data when several models load at once.
	Workers int `toml:"workers"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:       "vkmesh",
		LogLevel:   "info",
		AssetsDir:  "assets",
		Scale:      1.0,
		Layout:     []string{"position", "normal", "uv", "colour"},
		UseStaging: true,
		Workers:    runtime.NumCPU(),
	}
}

// LoadApplicationConfig reads a TOML file on top of the defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseApplicationConfig(data)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", path, err)
	}
	return cfg, nil
}

// ParseApplicationConfig decodes TOML on top of the defaults. Unknown keys are rejected.
func ParseApplicationConfig(data []byte) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", c.Scale)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := c.VertexLayout(); err != nil {
		return err
	}
	if _, err := c.ImportFlags(); err != nil {
		return err
	}
	return nil
}

// RequiresAssetsDir reports whether AssetsDir must exist: watch mode observes it
// and without an explicit model every indexed asset is loaded.
func (c *ApplicationConfig) RequiresAssetsDir() bool {
	return c.Watch || c.Model == ""
}

func (c *ApplicationConfig) VertexLayout() (metadata.VertexLayout, error) {
	return metadata.ParseVertexLayout(c.Layout)
}

func (c *ApplicationConfig) ImportFlags() (metadata.ImportFlags, error) {
	if len(c.Flags) == 0 {
		return metadata.DefaultImportFlags, nil
	}
	return metadata.ParseImportFlags(c.Flags)
}

func (c *ApplicationConfig) Level() core.LogLevel {
	return core.ParseLogLevel(c.LogLevel)
}
