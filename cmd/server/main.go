package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/remaimber-it/autograde/internal/api"
	"github.com/remaimber-it/autograde/internal/app"
	"github.com/remaimber-it/autograde/internal/infrastructure/config"
	"github.com/remaimber-it/autograde/internal/infrastructure/logging"
	"github.com/remaimber-it/autograde/internal/metrics"
	"github.com/remaimber-it/autograde/internal/service"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// ── Dependencies ────────────────────────────────────────────────
	registry := metrics.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	engine, backends, err := app.BuildEngine(context.Background(), cfg, logger, recorder)
	if err != nil {
		logger.Error("failed to build grading engine", "error", err)
		os.Exit(1)
	}
	defer backends.Close()

	gradingSvc := service.NewGradingService(engine, cfg.GradingWorkers, logger)
	gradingSvc.SetItemTimeout(cfg.JudgeTimeout + 10*time.Second)
	handler := api.NewHandler(gradingSvc, logger)

	// ── Routes ──────────────────────────────────────────────────────
	router := api.NewRouter(handler, api.RouterOptions{
		Logger:         logger,
		Metrics:        metrics.Handler(registry),
		RequestTimeout: cfg.JudgeTimeout + 10*time.Second,
	})

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.JudgeTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("starting server", "address", cfg.ServerAddress, "judge", cfg.JudgeProvider, "embeddings", cfg.Embedding.Kind)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}
