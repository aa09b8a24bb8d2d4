package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/klinik-awan/internal/config"
	"github.com/wolfman30/klinik-awan/internal/scheduling"
	"github.com/wolfman30/klinik-awan/internal/scheduling/pgstore"
	"github.com/wolfman30/klinik-awan/internal/scheduling/sqlitestore"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

// Store is an opened scheduling store plus its lifecycle hooks.
type Store struct {
	scheduling.Store
	Ready func(ctx context.Context) error
	Close func()
}

// OpenStore opens the backend selected by DATABASE_DRIVER. The Postgres
// schema must already be migrated with cmd/migrate.
func OpenStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.DatabaseDriver {
	case "", "sqlite":
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open sqlite: %w", err)
		}
		logger.Info("using sqlite store", "path", cfg.SQLitePath)
		return &Store{
			Store: store,
			Ready: func(ctx context.Context) error {
				_, err := store.CountDoctors(ctx)
				return err
			},
			Close: func() { _ = store.Close() },
		}, nil

	case "postgres", "postgresql":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("bootstrap: DATABASE_URL is required for the postgres driver")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("using postgres store")
		return &Store{
			Store: pgstore.New(pool),
			Ready: pool.Ping,
			Close: pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("bootstrap: unknown DATABASE_DRIVER %q", cfg.DatabaseDriver)
}
