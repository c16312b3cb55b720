package db

import (
	"context"
	"fmt"
	"time"

	"organlink/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

const Schema = "organlink"

// PoolConfig derives the pgx pool settings for the service. An explicit
// search_path in DATABASE_URL wins over Schema.
func PoolConfig(config *types.Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if _, ok := poolConfig.ConnConfig.RuntimeParams["search_path"]; !ok {
		poolConfig.ConnConfig.RuntimeParams["search_path"] = Schema
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "organlink"

	if config.DBMaxConns > 0 {
		poolConfig.MaxConns = config.DBMaxConns
	}
	if config.DBMinConns > 0 && config.DBMinConns <= poolConfig.MaxConns {
		poolConfig.MinConns = config.DBMinConns
	}
	poolConfig.MaxConnIdleTime = 15 * time.Minute
	poolConfig.MaxConnLifetime = 45 * time.Minute

	return poolConfig, nil
}

func Connect(ctx context.Context, config *types.Config) (*pgxpool.Pool, error) {
	poolConfig, err := PoolConfig(config)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	timeout := time.Duration(config.DBPingTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
