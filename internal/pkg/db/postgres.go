// Package db provides PostgreSQL connection, migration and transaction management.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"hogwarts-game-core/internal/config"
)

// ApplicationName tags every connection in pg_stat_activity.
const ApplicationName = "hogwarts-game-core"

// Pool wraps pgxpool.Pool.
type Pool struct {
	*pgxpool.Pool
}

func durationOr(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

// PoolConfig translates the database section into a pgxpool config. Every
// session runs in UTC so match and trade timestamps compare consistently.
func PoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	size := max(cfg.PoolSize, 1)
	pc.MaxConns = int32(size)
	pc.MinConns = int32(max(size/4, 1))

	pc.ConnConfig.ConnectTimeout = durationOr(cfg.ConnectTimeout, 10*time.Second)
	pc.MaxConnLifetime = durationOr(cfg.MaxConnLifetime, time.Hour)
	pc.MaxConnIdleTime = durationOr(cfg.MaxConnIdleTime, 30*time.Minute)
	pc.HealthCheckPeriod = 30 * time.Second

	pc.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	pc.ConnConfig.RuntimeParams["timezone"] = "UTC"

	return pc, nil
}

// NewPool connects to PostgreSQL and verifies the connection.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	pc, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int32("max_conns", pc.MaxConns).
		Msg("Connecting to PostgreSQL")

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Connected to PostgreSQL")
	return &Pool{Pool: pool}, nil
}

// Close closes the pool.
func (p *Pool) Close() {
	if p.Pool == nil {
		return
	}
	p.Pool.Close()
	log.Info().Msg("PostgreSQL pool closed")
}
