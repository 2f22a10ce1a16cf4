// Command intaked runs the sleep-health intake service: the HTTP API,
// the conversation orchestrator, and the SQLite-backed stores.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/somnohealth/intakeflow/internal/config"
	"github.com/somnohealth/intakeflow/internal/httpapi"
	"github.com/somnohealth/intakeflow/internal/referral"
	"github.com/somnohealth/intakeflow/internal/store"
	"github.com/somnohealth/intakeflow/pkg/intake"
	"github.com/somnohealth/intakeflow/pkg/intake/checkpoint"
	"github.com/somnohealth/intakeflow/pkg/intake/inference"
	"github.com/somnohealth/intakeflow/pkg/intake/observability"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (defaults plus environment when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "intaked:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	checkpoints, err := checkpoint.NewSQLiteStore(cfg.Database.CheckpointPath)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer checkpoints.Close()

	consultations, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open consultation store: %w", err)
	}
	defer consultations.Close()

	svc := inference.NewOpenAIService(inference.Options{
		APIKey:       cfg.OpenAI.APIKey,
		Model:        cfg.OpenAI.Model,
		SummaryModel: cfg.OpenAI.SummaryModel,
		Timeout:      cfg.OpenAI.Timeout.Std(),
	})

	orchOpts := []intake.Option{intake.WithLogger(logger)}
	if cfg.Telemetry.Metrics {
		orchOpts = append(orchOpts, intake.WithMetrics(observability.NewMetricsRecorder()))
	}
	if cfg.Telemetry.Tracing {
		orchOpts = append(orchOpts, intake.WithTracing(observability.NewSpanManager()))
	}

	orch, err := intake.New(svc, checkpoints, orchOpts...)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	api := httpapi.NewServer(orch, consultations, referral.NewExtractor(svc),
		httpapi.WithLogger(logger),
		httpapi.WithMaxUploadBytes(cfg.Server.MaxUploadBytes))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
