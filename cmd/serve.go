package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/curio-labs/curio/internal/analysis"
	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/blobs"
	"github.com/curio-labs/curio/internal/composition"
	"github.com/curio-labs/curio/internal/conversation"
	"github.com/curio-labs/curio/internal/curio"
	"github.com/curio-labs/curio/internal/handlers"
	"github.com/curio-labs/curio/internal/images"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port          string
		assetsDir     string
		analysisDelay time.Duration
		splashDelay   time.Duration
		blobMaxAge    time.Duration
		sessionTTL    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Curio HTTP server",
		Long: `Starts the Curio API on the specified port.

Sessions start on the splash screen and move through upload, analysis,
gallery and the live room. Background images and music are served from
the assets directory, which must contain a backgrounds/ tree laid out as
backgrounds/<Category>/<file>. Sessions idle for longer than --session-ttl
are evicted.`,
		Example: `  # Start server on default port 8888
  curio serve

  # Faster mock analysis and a custom asset tree
  curio serve --assets ./assets --analysis-delay 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flagsFromEnv(cmd, map[string]string{
				"port":           "CURIO_PORT",
				"assets":         "CURIO_ASSETS_DIR",
				"analysis-delay": "CURIO_ANALYSIS_DELAY",
				"splash":         "CURIO_SPLASH_DELAY",
				"session-ttl":    "CURIO_SESSION_TTL",
			}); err != nil {
				return err
			}

			registry, err := backgrounds.Default()
			if err != nil {
				return fmt.Errorf("failed to load backgrounds: %w", err)
			}

			assets, err := openAssets(assetsDir, registry)
			if err != nil {
				return err
			}
			store := blobs.NewStore(blobMaxAge, slog.Default())
			service := curio.NewService(
				registry,
				composition.New(images.NewFetcher(assets)),
				store,
				analysis.NewMockClassifier(analysis.WithDelay(analysisDelay, analysisDelay/2)),
				conversation.NewMockGenerator(),
				curio.WithSplashDelay(splashDelay),
			)
			handler := handlers.New(service, assets)
			handler.Sessions().StartReaper(cmd.Context(), sessionTTL/4, sessionTTL)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Curio available", "addr", addr, "url", "http://localhost"+addr, "assets", assetsDir)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				handler.Sessions().Close()
				if err := service.Drain(shutdownCtx); err != nil {
					slog.Warn("Compositions still running at exit", "err", err)
				}
				slog.Info("Server stopped", "leaked_blobs", store.Leaked())
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (env CURIO_PORT)")
	cmd.Flags().StringVar(&assetsDir, "assets", "assets", "Directory holding backgrounds/ and music/ (env CURIO_ASSETS_DIR)")
	cmd.Flags().DurationVar(&analysisDelay, "analysis-delay", 2*time.Second, "Simulated classification time (env CURIO_ANALYSIS_DELAY)")
	cmd.Flags().DurationVar(&splashDelay, "splash", 3*time.Second, "How long new sessions stay on the splash screen (env CURIO_SPLASH_DELAY)")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", 30*time.Minute, "Evict sessions idle for this long, 0 keeps them (env CURIO_SESSION_TTL)")
	cmd.Flags().DurationVar(&blobMaxAge, "blob-max-age", 0, "Drop blobs never revoked after this age and log them as leaks (0 keeps them)")

	return cmd
}
