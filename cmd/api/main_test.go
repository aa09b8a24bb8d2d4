package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wolfman30/klinik-awan/internal/app/bootstrap"
	appconfig "github.com/wolfman30/klinik-awan/internal/config"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

func TestSetupMetricsExposesGoCollector(t *testing.T) {
	_, handler := setupMetrics()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected go collector to be exported")
	}
}

func TestNewServerServesDesk(t *testing.T) {
	cfg := &appconfig.Config{
		Port:           "0",
		ListenHost:     "127.0.0.1",
		DatabaseDriver: "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "klinik.db"),
		SeedOnStart:    true,
		SeedDays:       2,
		LLMProvider:    "gemini",
		TranscriptKey:  "frontdesk",
		ChatRateBurst:  1,
	}
	registry, metricsHandler := setupMetrics()
	app, err := bootstrap.Build(context.Background(), cfg, registry, nil, logging.Discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	srv := newServer(cfg, app, registry, metricsHandler, logging.Discard())
	if srv.Addr != "127.0.0.1:0" {
		t.Fatalf("expected loopback addr, got %s", srv.Addr)
	}

	for _, path := range []string{"/health", "/specialties", "/bookings", "/chat", "/stats"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, rr.Code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "klinik_scheduling_seeded_slots_total") {
		t.Fatalf("expected scheduling metrics on the shared registry")
	}
}
