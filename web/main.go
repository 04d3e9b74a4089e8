package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/df07/go-pathtracer/pkg/config"
	"github.com/df07/go-pathtracer/pkg/renderer"
	"github.com/df07/go-pathtracer/web/server"
)

func main() {
	var (
		port       int
		configPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "pathtracer-web",
		Short: "Serve the tracer over HTTP",
		Long: `pathtracer-web hosts a tracer behind a small HTTP API. Clients report
their viewport on /api/frame and receive the buffer as PNG, or subscribe
to /api/stream for a continuous frame loop over Server-Sent Events.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := renderer.NewDefaultLogger()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			webServer, err := server.NewServer(port, cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				go func() {
					if err := config.Watch(ctx, configPath, logger, webServer.ApplyConfig); err != nil {
						logger.Printf("Config watch stopped: %v\n", err)
					}
				}()
			}

			logger.Printf("Tracer Web Server\n")
			logger.Printf("Visit http://localhost:%d/api/frame to fetch a frame\n", port)
			return webServer.Start(ctx)
		},
		SilenceUsage: true,
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to serve on")
	cmd.Flags().StringVarP(&configPath, "config", "c", "pathtracer.toml", "Path to TOML config file")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the config file when it changes")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}
