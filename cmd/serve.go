package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/catalog"
	"github.com/shelfscan/shelfscan/internal/enrich"
	"github.com/shelfscan/shelfscan/internal/handlers"
	"github.com/shelfscan/shelfscan/internal/providers"
	"github.com/shelfscan/shelfscan/internal/recognition"
	"github.com/shelfscan/shelfscan/internal/recommend"
	"github.com/shelfscan/shelfscan/internal/storage"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the shelfscan web server",
		Long: `Starts the shelfscan API and web interface on the specified port.

The API accepts bookshelf photos, recognizes book spines with a
vision-capable LLM, enriches recognized books with catalog metadata,
and generates personalized recommendation sets.`,
		Example: `  # Start server on default port 8888
  shelfscan serve

  # Start server on custom port
  shelfscan serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(storage.DefaultConfig())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			providerName := providers.NameFromEnv()
			provider, err := providers.ForName(providerName)
			if err != nil {
				return err
			}

			visionModel := os.Getenv("SHELFSCAN_VISION_MODEL")
			if visionModel == "" {
				visionModel = providers.DefaultModel(providerName)
			}
			recommendModel := os.Getenv("SHELFSCAN_RECOMMEND_MODEL")
			if recommendModel == "" {
				recommendModel = providers.DefaultModel(providerName)
			}

			books := catalog.NewClient(os.Getenv("GOOGLE_BOOKS_API_URL"), os.Getenv("GOOGLE_BOOKS_API_KEY"))
			handler := handlers.New(
				store,
				recognition.NewService(provider, visionModel),
				enrich.New(store, books, nil),
				recommend.NewGenerator(provider, providerName, recommendModel),
			)

			// Sweep expired unsaved recommendation sets in the background.
			janitor := storage.NewJanitor(store, cleanupInterval(), retention())
			go janitor.Run(cmd.Context())

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/scans", handler.HandleScans)
			mux.HandleFunc("/api/scans/", handler.HandleScanDetail)
			mux.HandleFunc("/api/recommendations", handler.HandleRecommendations)
			mux.HandleFunc("/api/recommendations/", handler.HandleRecommendationDetail)
			mux.HandleFunc("/api/preferences", handler.HandlePreferences)
			mux.HandleFunc("/healthcheck", handler.HandleHealthcheck)
			mux.HandleFunc("/", handler.HandleStatic)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Shelfscan interface available",
					"addr", addr, "url", "http://localhost"+addr,
					"provider", providerName, "vision_model", visionModel, "recommend_model", recommendModel)
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
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}

// retention returns how long unsaved recommendation sets live, from
// SHELFSCAN_RETENTION_HOURS.
func retention() time.Duration {
	if v := os.Getenv("SHELFSCAN_RETENTION_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			return time.Duration(hours) * time.Hour
		}
		slog.Warn("Ignoring invalid SHELFSCAN_RETENTION_HOURS", "value", v)
	}
	return storage.DefaultRetention
}

// cleanupInterval returns how often the janitor sweeps, from
// SHELFSCAN_CLEANUP_INTERVAL_MINUTES.
func cleanupInterval() time.Duration {
	if v := os.Getenv("SHELFSCAN_CLEANUP_INTERVAL_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
		slog.Warn("Ignoring invalid SHELFSCAN_CLEANUP_INTERVAL_MINUTES", "value", v)
	}
	return storage.DefaultCleanupInterval
}
