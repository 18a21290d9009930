// Package pool wraps *sql.DB behind the narrow surface the executor needs.
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Pool defines the interface for a database connection pool.
type Pool interface {
	Close() error
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Stats() sql.DBStats
}

// Config holds the connection limits applied by Open. Zero values keep the
// database/sql defaults.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StdPool is an implementation of Pool using the standard library's *sql.DB.
type StdPool struct {
	*sql.DB
}

// NewStdPool creates a new StdPool wrapping the given *sql.DB.
func NewStdPool(db *sql.DB) *StdPool {
	return &StdPool{db}
}

// Open opens driver/dsn, applies cfg and verifies the connection.
func Open(ctx context.Context, driver, dsn string, cfg Config) (*StdPool, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	p := NewStdPool(sqlDB)
	p.Configure(cfg)

	if err := p.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return p, nil
}

// Configure applies the non-zero limits of cfg.
func (p *StdPool) Configure(cfg Config) {
	if cfg.MaxOpenConns > 0 {
		p.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		p.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		p.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
