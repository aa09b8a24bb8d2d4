// Command chatcheck sends a few questions through the assistant against a
// throwaway seeded store and prints each outcome. It is a smoke test for the
// configured completion provider.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/klinik-awan/cmd/mainconfig"
	"github.com/wolfman30/klinik-awan/internal/app/bootstrap"
	appconfig "github.com/wolfman30/klinik-awan/internal/config"
	"github.com/wolfman30/klinik-awan/internal/frontdesk"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

var defaultQuestions = []string{
	"Siapa saja dokter yang tersedia?",
	"Gigi saya sakit, sebaiknya ke dokter siapa?",
	"Klinik buka jam berapa?",
}

func main() {
	cfg := appconfig.Load()
	cfg.DatabaseDriver = "sqlite"
	cfg.SQLitePath = ":memory:"
	cfg.SeedOnStart = true
	cfg.RedisAddr = ""

	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel, "text")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	app, err := bootstrap.Build(ctx, cfg, prometheus.NewRegistry(), mainconfig.LoadAWSConfig, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	questions := defaultQuestions
	if len(os.Args) > 1 {
		questions = []string{strings.Join(os.Args[1:], " ")}
	}

	fmt.Printf("provider=%s\n\n", cfg.LLMProvider)
	failed := 0
	for i, q := range questions {
		ok := ask(ctx, app, i+1, q)
		if !ok {
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func ask(ctx context.Context, app *bootstrap.App, n int, question string) bool {
	fmt.Printf("[%d] %s\n", n, question)
	res := app.Desk.Dispatch(ctx, frontdesk.Command{Kind: frontdesk.CmdSubmitChat, Message: question})
	if !res.Success {
		fmt.Printf("    rejected: %s\n\n", res.Message)
		return false
	}
	turn, err := app.Session.Turn(res.Data.(frontdesk.TurnAccepted).TurnID)
	if err != nil {
		fmt.Printf("    lookup failed: %v\n\n", err)
		return false
	}

	start := time.Now()
	outcome, err := turn.Wait(ctx)
	if err != nil {
		fmt.Printf("    gave up waiting: %v\n\n", err)
		return false
	}
	elapsed := time.Since(start).Round(time.Millisecond)
	if outcome.Err != nil {
		fmt.Printf("    FAILED (%s, %v): %s\n\n", outcome.ErrorKind, elapsed, outcome.Message)
		return false
	}
	fmt.Printf("    ok (intent=%q, %v)\n    %s\n\n", outcome.Intent, elapsed, strings.ReplaceAll(outcome.Reply, "\n", "\n    "))
	return true
}
