// main is the entry point of the enrollment API.
//
// STARTUP SEQUENCE:
//  1. Load .env (if present) and the configuration
//  2. Initialise the logger
//  3. Open (and seed) the record store
//  4. Build the router with its metrics
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/enrollment-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/enrollment-api
//
// Print the route table with its status policies:
//
//	go run ./cmd/enrollment-api routes
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/aanand-mishra/enrollment-api/internal/config"
	"github.com/aanand-mishra/enrollment-api/internal/http/router"
	"github.com/aanand-mishra/enrollment-api/internal/metrics"
	"github.com/aanand-mishra/enrollment-api/internal/storage"
	"github.com/aanand-mishra/enrollment-api/internal/storage/memory"
	"github.com/aanand-mishra/enrollment-api/internal/storage/sqlite"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "2.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "enrollment-api",
		Short:         "HTTP API for students and the courses they are enrolled in",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is normal outside local development.
			_ = godotenv.Load()

			cfg, err := config.Load(config.ResolvePath(configPath))
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "Path to the configuration YAML file")

	root.AddCommand(newRoutesCmd())
	return root
}

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the API routes and the status code of each failure kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printRoutes(cmd.OutOrStdout())
		},
	}
}

func printRoutes(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tNAME\tPOLICY")
	for _, rt := range router.Routes(memory.New()) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rt.Pattern, rt.Name, router.Describe(rt.Policy))
	}
	return tw.Flush()
}

func serve(ctx context.Context, cfg *config.Config) error {
	// ── Logger ────────────────────────────────────────────────────────────
	log := setupLogger(cfg.Env, os.Stdout)
	slog.SetDefault(log)

	log.Info("starting enrollment-api",
		slog.String("env", cfg.Env),
		slog.String("version", version),
	)

	// ── Storage ───────────────────────────────────────────────────────────
	// The rest of the code only sees the storage.Storage interface.
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}
	defer store.Close()

	log.Info("storage initialised",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("path", cfg.Storage.Path))

	if !cfg.Storage.SkipSeed {
		seeded, err := storage.Seed(ctx, store)
		if err != nil {
			return fmt.Errorf("seed storage: %w", err)
		}
		log.Debug("sample data checked", slog.Bool("seeded", seeded))
	}

	// ── Router ────────────────────────────────────────────────────────────
	handler := router.New(store, newMetrics(cfg.Metrics), router.Options{
		Logger:         log,
		MaxBodyBytes:   cfg.HTTPServer.MaxBodyBytes,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: handler,

		// Timeouts guard against slow clients.
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ── Start Server in a Goroutine ───────────────────────────────────────
	// ListenAndServe blocks, so it runs aside while main waits for a signal.
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// ── Wait for Shutdown Signal ──────────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server encountered an error: %w", err)
	case <-done:
		log.Info("shutdown signal received, stopping server...")
	}

	// ── Graceful Shutdown ─────────────────────────────────────────────────
	// In-flight requests get ShutdownTimeout to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// openStorage returns the store selected by the configured driver.
func openStorage(cfg config.Storage) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// newMetrics builds the metrics manager from config, with the Go runtime
// and process collectors enabled.
func newMetrics(cfg config.Metrics) *metrics.Manager {
	return metrics.NewManager(
		metrics.WithNamespace(cfg.Namespace),
		metrics.WithHistogramBuckets(cfg.LatencyBuckets),
		metrics.WithRuntimeCollectors(),
	)
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
// Staging: JSON at DEBUG level.
func setupLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case "staging":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
