package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"svgrender/internal/config"
	"svgrender/internal/domain"
	"svgrender/internal/fetch"
	"svgrender/internal/http/server"
	"svgrender/internal/infra/logging"
	"svgrender/internal/infra/ratelimit"
	"svgrender/internal/raster"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "svgrender",
		Short:        "Render remote SVGs to PNG, store them and hand out signed URLs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(newPruneCmd())
	root.AddCommand(newRenderCmd())
	return root
}

func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete stored renders older than PRUNE_AFTER_SECONDS once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(false)
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			n, err := svc.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d objects\n", n)
			return nil
		},
	}
}

func newRenderCmd() *cobra.Command {
	var rawURL, out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch one SVG and write the PNG to a local file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			doc, err := fetch.New(cfg.Fetch, nil).Fetch(ctx, rawURL)
			if err != nil {
				return err
			}
			res, err := raster.New(cfg.Render, newEngine(cfg.Render)).Rasterize(ctx, doc.Bytes)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, res.PNG, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", out, res.Width, res.Height)
			return nil
		},
	}
	cmd.Flags().StringVar(&rawURL, "url", "", "http(s) URL of the SVG")
	cmd.Flags().StringVar(&out, "out", "out.png", "output PNG path")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

// setup loads configuration and initialises logging.
func setup(serving bool) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if serving {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateOffline()
	}
	if err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := ensureLogDir(cfg.Logger.File); err != nil {
		return cfg, err
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	return cfg, nil
}

func serve(ctx context.Context) error {
	cfg, err := setup(true)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}

	app := server.New(server.Deps{
		Config:   cfg,
		Renderer: svc,
		Limiter:  ratelimit.NewStore(cfg.Redis),
	})

	logging.Info("Starting server", "addr", cfg.Addr(), "engine", cfg.Render.Engine, "store", cfg.Storage.Backend, "prune_mode", cfg.Retention.Mode)

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
	svc.Wait()
	return nil
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Addr()); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint
	signal.Stop(sigint)

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}

func ensureLogDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Wrap(domain.KindInternal, err, "create log directory %s", dir)
	}
	return nil
}
