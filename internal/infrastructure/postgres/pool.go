package postgres

import (
	"context"
	"fmt"

	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/infrastructure"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a pgx pool and waits until the server answers a ping.
func NewPool(ctx context.Context, cfg config.Database, backoffCfg config.Backoff, log logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MinConns = cfg.MinConnections
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	return infrastructure.RetryConnect(ctx, backoffCfg, cfg.ConnectRetries, log, "postgres",
		func(ctx context.Context) (*pgxpool.Pool, error) {
			pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
			if err != nil {
				return nil, fmt.Errorf("creating connection pool: %w", err)
			}

			if err := pool.Ping(ctx); err != nil {
				pool.Close()

				return nil, fmt.Errorf("pinging database: %w", err)
			}

			return pool, nil
		},
	)
}
