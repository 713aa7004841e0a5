package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joacominatel/facade/internal/infrastructure/config"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
)

// connectTimeout bounds pool creation and the first ping.
const connectTimeout = 10 * time.Second

// poolConfig builds the pgx pool settings for cfg.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = time.Hour
	pc.MaxConnIdleTime = 30 * time.Minute

	// transaction poolers (pgbouncer) recycle connections between
	// transactions and cannot keep prepared statements
	pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	return pc, nil
}

// NewPool connects to postgres and checks the server answers before handing
// the pool to the storage engine, which owns it from then on.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *logging.Logger) (*pgxpool.Pool, error) {
	l := logger.WithComponent("database")

	pc, err := poolConfig(cfg)
	if err != nil {
		l.DatabaseConnectionFailed(err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		l.DatabaseConnectionFailed(err)
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		l.HealthCheckFailed(err)
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	l.HealthCheckPassed()
	l.DatabaseConnected(cfg.Host, cfg.Name)

	return pool, nil
}
