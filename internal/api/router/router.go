package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/klinik-awan/internal/frontdesk"
	httpmiddleware "github.com/wolfman30/klinik-awan/internal/http/middleware"
	"github.com/wolfman30/klinik-awan/internal/observability/metrics"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Desk               *frontdesk.Handler
	Events             *frontdesk.EventsHandler
	MetricsHandler     http.Handler
	Stats              prometheus.Gatherer
	CORSAllowedOrigins []string

	// Per-client limit on chat submissions; zero disables it.
	ChatRatePerSecond float64
	ChatRateBurst     int

	// Ready reports whether the store answers. Nil means always healthy.
	Ready func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg == nil || cfg.Desk == nil {
		panic("router: desk handler required")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.Ready))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.Stats != nil {
		r.Get("/stats", statsHandler(cfg.Stats, cfg.Logger))
	}
	if cfg.Events != nil {
		r.Get("/chat/events", cfg.Events.HandleWebSocket)
	}

	cfg.Desk.Register(r, httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatRateBurst))

	return r
}

func healthHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func statsHandler(g prometheus.Gatherer, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		snap, err := metrics.Read(g)
		if err != nil {
			if logger != nil {
				logger.Error("router: gather stats failed", "error", err)
			}
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(snap)
	}
}
