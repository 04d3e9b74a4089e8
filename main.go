package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/df07/go-pathtracer/pkg/config"
	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/imageio"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

var version = "dev"

// renderFlags holds command line overrides for the render command
type renderFlags struct {
	configPath   string
	width        int
	height       int
	out          string
	format       string
	legacyHeader bool
	twoChannel   bool
	linear       bool
}

func main() {
	if err := fang.Execute(context.Background(), newRootCmd()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pathtracer",
		Short:        "Generate and export tracer image buffers",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newRenderCmd(), newInspectCmd())
	return root
}

func newRenderCmd() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Trace one frame and save it",
		Long: `render builds a tracer from the config file and flags, traces a single
frame, and writes it to disk. Without --out the image is saved as
output/render_<timestamp>.<format>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			cfg = flags.apply(cmd, cfg)

			path, err := runRender(cfg, flags.out, renderer.NewDefaultLogger())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Render saved as %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "pathtracer.toml", "Path to TOML config file")
	cmd.Flags().IntVar(&flags.width, "width", 0, "Image width (overrides config)")
	cmd.Flags().IntVar(&flags.height, "height", 0, "Image height (overrides config)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Output file path")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format: ppm, png, bmp, tiff")
	cmd.Flags().BoolVar(&flags.legacyHeader, "legacy-header", false, "Write PPM header as maxval, then height width")
	cmd.Flags().BoolVar(&flags.twoChannel, "two-channel", false, "Only trace the red and green channels")
	cmd.Flags().BoolVar(&flags.linear, "linear", false, "Use conventional linear interpolation for the gradient")
	return cmd
}

// apply overlays flags the user actually set onto cfg
func (f renderFlags) apply(cmd *cobra.Command, cfg config.Config) config.Config {
	changed := cmd.Flags().Changed
	if changed("width") {
		cfg.Width = f.width
	}
	if changed("height") {
		cfg.Height = f.height
	}
	if changed("format") {
		cfg.Format = f.format
	} else if f.out != "" {
		// Infer from the extension when only a path was given
		if format, err := imageio.FormatFromPath(f.out); err == nil {
			cfg.Format = string(format)
		}
	}
	if changed("legacy-header") {
		cfg.LegacyHeader = f.legacyHeader
	}
	if changed("two-channel") && f.twoChannel {
		cfg.Gradient.Channels = renderer.RedGreenOnly.String()
	}
	if changed("linear") && f.linear {
		cfg.Gradient.Interpolation = renderer.LinearInterpolation.String()
	}
	return cfg
}

// runRender traces one frame with cfg and saves it, returning the path written
func runRender(cfg config.Config, out string, logger core.Logger) (string, error) {
	tracer, err := cfg.NewTracer()
	if err != nil {
		return "", err
	}
	opts, err := cfg.ImageOptions()
	if err != nil {
		return "", err
	}

	logger.Printf("Tracing %dx%d frame...\n", tracer.Width(), tracer.Height())
	tracer.Trace()
	logger.Printf("Frame time: %v\n", tracer.FrameTime())

	path := out
	if path == "" {
		path = imageio.OutputPath(cfg.OutputDir, opts.Format, time.Now())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := imageio.Save(path, tracer.ImageBuffer(), tracer.Width(), tracer.Height(), opts); err != nil {
		return "", err
	}
	return path, nil
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the dimensions of a saved image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := imageio.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d, %d bytes of RGB\n",
				args[0], img.Width, img.Height, len(img.Pixels))
			return nil
		},
	}
}
