package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/klinik-awan/internal/assistant"
	appconfig "github.com/wolfman30/klinik-awan/internal/config"
	"github.com/wolfman30/klinik-awan/internal/frontdesk"
	"github.com/wolfman30/klinik-awan/internal/observability/metrics"
	"github.com/wolfman30/klinik-awan/internal/scheduling"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

// App is the wired core: store, engine, assistant session and desk.
type App struct {
	Store   *Store
	Engine  *scheduling.Engine
	Session *assistant.Session
	Desk    *frontdesk.Desk

	closers []func()
}

// Build opens the store, seeds it when configured, and wires the assistant.
// The caller owns Close.
func Build(ctx context.Context, cfg *appconfig.Config, reg prometheus.Registerer, loadAWS AWSLoader, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &App{Store: store, closers: []func(){store.Close}}

	app.Engine = scheduling.NewEngine(store, logger.With("component", "scheduling"),
		scheduling.WithMetrics(metrics.NewBookingMetrics(reg)),
		scheduling.WithSeedWindow(scheduling.SeedWindow{Days: cfg.SeedDays, EndDate: cfg.SeedEndDate}),
	)
	if cfg.SeedOnStart {
		report, err := app.Engine.SeedIfEmpty(ctx)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("bootstrap: seed: %w", err)
		}
		logger.Info("seed checked", "skipped", report.Skipped, "doctors", report.Doctors, "slots", report.Slots)
	}

	completer, closeCompleter, err := BuildCompleter(ctx, cfg, loadAWS, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeCompleter)

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}

	retriever := assistant.NewRetriever(app.Engine, assistant.ClinicInfo{
		Name:    cfg.ClinicName,
		Address: cfg.ClinicAddress,
		Phone:   cfg.ClinicPhone,
		Hours:   cfg.ClinicHours,
	})
	app.Session = assistant.NewSession(completer, retriever, logger.With("component", "assistant"),
		assistant.WithTranscriptStore(BuildTranscriptStore(redisClient), cfg.TranscriptKey),
		assistant.WithTurnTimeout(cfg.AssistantTimeout),
		assistant.WithSessionMetrics(metrics.NewAssistantMetrics(reg)),
	)
	if err := app.Session.Restore(ctx); err != nil {
		logger.Warn("failed to restore transcript; starting fresh", "error", err)
	}

	app.Desk = frontdesk.New(app.Engine, app.Session, logger.With("component", "frontdesk"))
	return app, nil
}

// Close releases everything Build opened, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
