package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/klinik-awan/cmd/mainconfig"
	"github.com/wolfman30/klinik-awan/internal/api/router"
	"github.com/wolfman30/klinik-awan/internal/app/bootstrap"
	appconfig "github.com/wolfman30/klinik-awan/internal/config"
	"github.com/wolfman30/klinik-awan/internal/frontdesk"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting klinik-awan front desk",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.DatabaseDriver,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, metricsHandler := setupMetrics()
	app, err := bootstrap.Build(ctx, cfg, registry, mainconfig.LoadAWSConfig, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := newServer(cfg, app, registry, metricsHandler, logger)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// setupMetrics builds a private registry carrying the process collectors and
// the handler that serves it.
func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func newServer(cfg *appconfig.Config, app *bootstrap.App, stats prometheus.Gatherer, metricsHandler http.Handler, logger *logging.Logger) *http.Server {
	handler := router.New(&router.Config{
		Logger:             logger,
		Desk:               frontdesk.NewHandler(app.Desk, logger),
		Events:             frontdesk.NewEventsHandler(app.Desk, app.Session, logger),
		MetricsHandler:     metricsHandler,
		Stats:              stats,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  cfg.ChatRatePerSecond,
		ChatRateBurst:      cfg.ChatRateBurst,
		Ready:              app.Store.Ready,
	})

	// No WriteTimeout: /chat/events holds a websocket open.
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
