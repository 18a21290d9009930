package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/block-bite/blockbite-orm/dialect"
	"github.com/block-bite/blockbite-orm/logger"
	"github.com/block-bite/blockbite-orm/pool"
)

const (
	// DefaultTable is the table used when Table is called with an empty name.
	DefaultTable = "blockbite"
	// DefaultTimestampColumn is stamped on every insert and update.
	DefaultTimestampColumn = "updated_at"
)

// DefaultJSONColumns are the columns treated as JSON when none are configured.
var DefaultJSONColumns = []string{"data"}

// Options defines the configuration for a DB.
type Options struct {
	// Prefix is prepended exactly once to every table name.
	Prefix string
	// DefaultTable is used for Table(""); defaults to DefaultTable.
	DefaultTable string
	// JSONColumns are encoded on write and decoded by the JSON readers.
	JSONColumns []string
	// TimestampColumn is stamped on writes unless supplied; defaults to DefaultTimestampColumn.
	TimestampColumn string
	// DisableTimestamps turns stamping off for tables without a timestamp column.
	DisableTimestamps bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Logger receives one SQL line per statement. Defaults to a Warn-level
	// stdout logger, so statements are only printed once the level is raised.
	Logger logger.Logger
}

// DB is the main entry point for the builder.
// It owns the executor chain and the naming rules shared by every query.
type DB struct {
	pool        pool.Pool
	exec        Executor
	dialect     dialect.Dialect
	logger      logger.Logger
	opts        Options
	middlewares []Middleware
	now         func() time.Time
}

// Open connects to driver/dsn and returns a DB running on a SQLExecutor.
func Open(driver, dsn string, opts *Options) (*DB, error) {
	if _, ok := dialect.Get(driver); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, driver)
	}

	var cfg pool.Config
	if opts != nil {
		cfg = pool.Config{
			MaxOpenConns:    opts.MaxOpenConns,
			MaxIdleConns:    opts.MaxIdleConns,
			ConnMaxLifetime: opts.ConnMaxLifetime,
		}
	}

	p, err := pool.Open(context.Background(), driver, dsn, cfg)
	if err != nil {
		return nil, err
	}

	db, err := New(NewSQLExecutor(p), driver, opts)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	db.pool = p
	return db, nil
}

// New creates a DB over an existing executor. dialectName selects the SQL
// flavour the executor expects.
func New(exec Executor, dialectName string, opts *Options) (*DB, error) {
	d, ok := dialect.Get(dialectName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, dialectName)
	}
	if exec == nil {
		return nil, errors.New("executor is nil")
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	if o.DefaultTable == "" {
		o.DefaultTable = DefaultTable
	}
	if o.TimestampColumn == "" {
		o.TimestampColumn = DefaultTimestampColumn
	}
	if len(o.JSONColumns) == 0 {
		o.JSONColumns = append([]string(nil), DefaultJSONColumns...)
	}

	l := o.Logger
	if l == nil {
		l = logger.NewStdLogger()
		l.SetLevel(logger.LogLevelWarn)
	}

	return &DB{
		exec:    exec,
		dialect: d,
		logger:  l,
		opts:    o,
		now:     time.Now,
	}, nil
}

// Close shuts down middleware and closes the connection pool, if any.
func (db *DB) Close() error {
	var errs []error
	for _, m := range db.middlewares {
		if s, ok := m.(Shutdowner); ok {
			if err := s.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", m.Name(), err))
			}
		}
	}
	if db.pool != nil {
		if err := db.pool.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetLogger sets a custom logger for the DB.
func (db *DB) SetLogger(l logger.Logger) {
	db.logger = l
}

// Logger returns the DB's logger.
func (db *DB) Logger() logger.Logger {
	return db.logger
}

// Dialect returns the dialect statements are rendered for.
func (db *DB) Dialect() dialect.Dialect {
	return db.dialect
}

// Executor returns the executor chain, middleware included.
func (db *DB) Executor() Executor {
	return db.exec
}

// Use wraps the executor with middleware. The first middleware given is the
// outermost. Use is not safe to call while queries are running.
func (db *DB) Use(middlewares ...Middleware) *DB {
	for i := len(middlewares) - 1; i >= 0; i-- {
		db.exec = middlewares[i].Wrap(db.exec)
	}
	for _, m := range middlewares {
		db.logger.Info("middleware %s enabled", m.Name())
	}
	db.middlewares = append(db.middlewares, middlewares...)
	return db
}

// TableName resolves name against the configured prefix. The prefix is
// applied once: an already-prefixed name is returned unchanged. An empty name
// resolves to the default table.
func (db *DB) TableName(name string) string {
	if name == "" {
		name = db.opts.DefaultTable
	}
	if db.opts.Prefix != "" && strings.HasPrefix(name, db.opts.Prefix) {
		return name
	}
	return db.opts.Prefix + name
}

// Table starts a new query on the named table.
func (db *DB) Table(name string) *Query {
	return &Query{
		db:       db,
		ctx:      context.Background(),
		table:    db.TableName(name),
		jsonCols: append([]string(nil), db.opts.JSONColumns...),
	}
}

func (db *DB) timestampColumn() string {
	if db.opts.DisableTimestamps {
		return ""
	}
	return db.opts.TimestampColumn
}

// logSQL logs the SQL execution if a logger is set.
func (db *DB) logSQL(sql string, duration time.Duration, err error, args ...any) {
	if db.logger == nil {
		return
	}
	db.logger.SQL(sql, duration, args...)
	if err != nil {
		db.logger.Error("sql failed: %v | %s", err, sql)
	}
}

func (db *DB) selectRows(ctx context.Context, sql string, args []any) ([]Row, error) {
	start := time.Now()
	rows, err := db.exec.Select(ctx, sql, args...)
	db.logSQL(sql, time.Since(start), err, args...)
	return rows, err
}

func (db *DB) execWrite(ctx context.Context, sql string, args []any) (WriteResult, error) {
	start := time.Now()
	res, err := db.exec.Exec(ctx, sql, args...)
	db.logSQL(sql, time.Since(start), err, args...)
	if err != nil && db.dialect.IsDuplicateKey(err) {
		err = fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return res, err
}
