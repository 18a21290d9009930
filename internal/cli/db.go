package cli

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/block-bite/blockbite-orm/config"
	"github.com/block-bite/blockbite-orm/core"
	"github.com/block-bite/blockbite-orm/logger"
	"github.com/block-bite/blockbite-orm/middleware"

	// drivers selectable with --driver
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// loadConfig resolves the configuration and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: opts.ConfigFile})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Driver != "" {
		cfg.Driver = opts.Driver
	}
	if opts.DSN != "" {
		cfg.DSN = opts.DSN
	}
	if opts.Prefix != "" {
		cfg.Prefix = opts.Prefix
	}
	if opts.Verbose {
		cfg.LogLevel = "info"
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "config", err)
	}
	return cfg, nil
}

// openDB connects and installs the middleware the configuration asks for.
func openDB(opts *RootOptions) (*core.DB, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	dbOpts := cfg.Options()
	dbOpts.Logger.SetOutput(os.Stderr)

	db, err := core.Open(cfg.Driver, cfg.DSN, dbOpts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open %s", cfg.Driver), err)
	}

	mws := []core.Middleware{middleware.NewTracing(cfg.Driver)}
	if cfg.SlowThreshold > 0 {
		slow, err := middleware.NewSlowLog(cfg.SlowThreshold, "")
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		slow.SetLogger(dbOpts.Logger.WithFields(map[string]any{"middleware": "slow_log"}))
		mws = append(mws, slow)
	}
	if cfg.RedisAddr != "" {
		mws = append(mws, newRedisCache(cfg, dbOpts.Logger))
	}
	db.Use(mws...)
	return db, nil
}

// newRedisCache backs --cache reads. A process-local cache would not
// outlive a single command, so without redis_addr nothing is cached.
func newRedisCache(cfg *config.Config, l logger.Logger) core.Middleware {
	c := middleware.NewRedisCache(&redis.Options{Addr: cfg.RedisAddr})
	c.DefaultTTL = cfg.CacheTTL
	c.Logger = l
	return c
}
