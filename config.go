package zoml

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of a zoml application.
type Config struct {
	// Root is the entry point source, relative to SourceDir.
	Root string `yaml:"root"`
	// SourceDir is the directory scanned for .zod sources.
	SourceDir string `yaml:"source_dir"`
	// Watch enables the file monitor.
	Watch bool `yaml:"watch"`
	// ReadConcurrency bounds concurrent reads during discovery.
	ReadConcurrency int `yaml:"read_concurrency"`

	Window WindowConfig `yaml:"window"`

	LogLevel string `yaml:"log_level"`
	Debug    bool   `yaml:"debug"`

	// TransitionSeconds is how long moved primitives tween to their new
	// place. 0 disables transitions.
	TransitionSeconds float64 `yaml:"transition_seconds"`
	// ErrorColour is the RGBA (0..1) of the rectangle drawn in place of a
	// tree with build errors.
	ErrorColour []float64 `yaml:"error_colour"`
}

// WindowConfig configures the renderer window.
type WindowConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Title     string `yaml:"title"`
	Resizable bool   `yaml:"resizable"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Root:            "main.zod",
		SourceDir:       ".",
		Watch:           true,
		ReadConcurrency: 8,
		Window: WindowConfig{
			Width:     800,
			Height:    600,
			Title:     "zoml",
			Resizable: true,
		},
		LogLevel:          "info",
		TransitionSeconds: 0.15,
		ErrorColour:       []float64{1, 0, 0, 1},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML on top of the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("ZOML_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if v := os.Getenv("ZOML_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Debug = debug
		}
	}
}

// Validate checks the configuration for values the runtime cannot use.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root source not configured")
	}
	if c.ReadConcurrency < 1 {
		return fmt.Errorf("invalid read_concurrency: %d", c.ReadConcurrency)
	}
	if c.Window.Width <= 0 || c.Window.Width > math.MaxUint16 ||
		c.Window.Height <= 0 || c.Window.Height > math.MaxUint16 {
		return fmt.Errorf("invalid window size: %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.TransitionSeconds < 0 {
		return fmt.Errorf("invalid transition_seconds: %v", c.TransitionSeconds)
	}
	if len(c.ErrorColour) != 4 {
		return fmt.Errorf("error_colour needs 4 components, got %d", len(c.ErrorColour))
	}
	for _, f := range c.ErrorColour {
		if f < 0 || f > 1 {
			return fmt.Errorf("error_colour component %v outside [0, 1]", f)
		}
	}
	return nil
}

// ErrorRGBA returns ErrorColour as an RGBA.
func (c *Config) ErrorRGBA() RGBA {
	if len(c.ErrorColour) != 4 {
		return ColourRed
	}
	q := func(f float64) uint8 { return uint8(math.Round(f * 255)) }
	return RGBA{R: q(c.ErrorColour[0]), G: q(c.ErrorColour[1]), B: q(c.ErrorColour[2]), A: q(c.ErrorColour[3])}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
