package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/hermes/internal/config"
	"github.com/UnknownOlympus/hermes/internal/geocode"
	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/prediction"
	"github.com/UnknownOlympus/hermes/internal/server"
	"github.com/UnknownOlympus/hermes/internal/session"
	"github.com/UnknownOlympus/hermes/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// Create the estimation service client.
	estimator := prediction.NewHTTPEstimator(cfg.ServiceURL, cfg.RequestTimeout, cfg.RateLimit, logger)

	// Create the reverse geocode resolver using the factory pattern based on
	// configuration. This allows runtime selection between providers.
	resolver, err := geocode.NewResolver(geocode.ResolverConfig{
		Type:      geocode.ResolverType(cfg.ResolverType),
		APIKey:    cfg.ResolverKey,
		RateLimit: 1,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create geocode resolver: %v", err)
	}

	logger.InfoContext(ctx, "Reverse geocoder initialized", "type", cfg.ResolverType)

	// The identity provider is optional: without it, submission auth is off.
	var sessions session.Provider
	if cfg.Supabase.URL != "" {
		sessions = session.NewSupabaseProvider(cfg.Supabase.URL, cfg.Supabase.AnonKey, logger)
		logger.InfoContext(ctx, "Identity provider initialized", "url", cfg.Supabase.URL)
	} else {
		logger.WarnContext(ctx, "Identity provider not configured, submission auth is disabled")
	}

	// Init the prediction workflow with the estimation client.
	wf := workflow.New(logger, estimator, appMetrics)
	defer wf.Close()

	srv := server.New(logger, wf, resolver, sessions, reg, cfg.Port)

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	go func() {
		if runErr := srv.Run(ctx); runErr != nil {
			logger.ErrorContext(ctx, "HTTP facade failed", "error", runErr)
			stop()
		}
	}()

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	// Log graceful shutdown completion.
	logger.InfoContext(ctx, "Application stopped gracefully.")
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envLocal:
		logger = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelWarn,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelError,
			}),
		)

		logger.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return logger
}
