package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/imageio"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

// ErrInvalidConfig is returned when a configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the on-disk configuration of the tracer hosts
type Config struct {
	Width        int              `toml:"width"`
	Height       int              `toml:"height"`
	OutputDir    string           `toml:"output_dir"`
	Format       string           `toml:"format"`
	LegacyHeader bool             `toml:"legacy_header"`
	Gradient     GradientConfig   `toml:"gradient"`
	Options      renderer.Options `toml:"options"`
}

// GradientConfig is the file form of renderer.GradientConfig
type GradientConfig struct {
	Top           [3]uint8 `toml:"top"`
	Bottom        [3]uint8 `toml:"bottom"`
	Channels      string   `toml:"channels"`
	Interpolation string   `toml:"interpolation"`
}

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		Width:     500,
		Height:    500,
		OutputDir: "output",
		Format:    string(imageio.FormatPPM),
		Gradient: GradientConfig{
			Top:           [3]uint8{0, 0, 0},
			Bottom:        [3]uint8{255, 255, 255},
			Channels:      renderer.AllChannels.String(),
			Interpolation: renderer.ReverseInterpolation.String(),
		},
		Options: renderer.DefaultOptions(),
	}
}

// Load reads a TOML file on top of the defaults. A missing file is not
// an error and yields Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks sizes and enumerated values
func (c Config) Validate() error {
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("%w: size must be at least 1x1, got %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if _, err := c.ImageOptions(); err != nil {
		return err
	}
	if _, err := c.Gradient.Renderer(); err != nil {
		return err
	}
	return nil
}

// ImageOptions returns the export options described by the config
func (c Config) ImageOptions() (imageio.Options, error) {
	format, err := imageio.ParseFormat(c.Format)
	if err != nil {
		return imageio.Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	opts := imageio.Options{Format: format, HeaderOrder: imageio.StandardHeader}
	if c.LegacyHeader {
		opts.HeaderOrder = imageio.LegacySwappedHeader
	}
	return opts, nil
}

// Renderer converts the file form into a renderer.GradientConfig
func (g GradientConfig) Renderer() (renderer.GradientConfig, error) {
	channels, err := renderer.ParseChannelMode(g.Channels)
	if err != nil {
		return renderer.GradientConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	interpolation, err := renderer.ParseInterpolation(g.Interpolation)
	if err != nil {
		return renderer.GradientConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return renderer.GradientConfig{
		Top:           core.NewRGBA8(g.Top[0], g.Top[1], g.Top[2], 255),
		Bottom:        core.NewRGBA8(g.Bottom[0], g.Bottom[1], g.Bottom[2], 255),
		Channels:      channels,
		Interpolation: interpolation,
	}, nil
}

// NewTracer builds a tracer sized and colored by the config
func (c Config) NewTracer() (*renderer.Tracer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	gradient, err := c.Gradient.Renderer()
	if err != nil {
		return nil, err
	}
	return renderer.NewTracerWithConfig(c.Width, c.Height, gradient), nil
}
