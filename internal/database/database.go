package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"zafo-tickets/internal/config"
	"zafo-tickets/internal/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	connectAttempts = 5
	retryDelay      = 2 * time.Second
)

// Open connects to the configured database, retrying while it comes up.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	var driverName string
	switch cfg.Driver {
	case DriverPostgres:
		driverName = "postgres"
	case DriverSQLite:
		driverName = sqliteshim.ShimName
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	sqldb, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	for attempt := 1; ; attempt++ {
		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Ping %s failed (attempt %d/%d): %v", cfg.Driver, attempt, connectAttempts, err))
		if attempt == connectAttempts {
			_ = sqldb.Close()
			return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Driver, connectAttempts, err)
		}
		select {
		case <-ctx.Done():
			_ = sqldb.Close()
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	if cfg.Driver == DriverPostgres {
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
