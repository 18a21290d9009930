// Package config loads connection and builder settings from a YAML file,
// .env files and BLOCKBITE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/block-bite/blockbite-orm/core"
	"github.com/block-bite/blockbite-orm/logger"
	"github.com/block-bite/blockbite-orm/validator"
)

// EnvPrefix prefixes every environment variable, e.g. BLOCKBITE_DSN.
const EnvPrefix = "BLOCKBITE"

// Config holds the application configuration
type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	Prefix            string   `mapstructure:"prefix"`
	DefaultTable      string   `mapstructure:"default_table"`
	JSONColumns       []string `mapstructure:"json_columns"`
	TimestampColumn   string   `mapstructure:"timestamp_column"`
	DisableTimestamps bool     `mapstructure:"disable_timestamps"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// SlowThreshold enables slow statement logging when positive.
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	// CacheTTL is the default lifetime of cached reads.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// RedisAddr enables the redis cache used by cached reads.
	RedisAddr string `mapstructure:"redis_addr"`
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// File is an explicit config file; it must exist when set.
	File string
	// Dirs are searched for blockbite.yaml when File is empty. Defaults to
	// the working directory, the home directory and ~/.config/blockbite.
	Dirs []string
	// EnvFiles are loaded in order; later files override earlier ones.
	// Defaults to .env then .env.local. Missing files are skipped.
	EnvFiles []string
}

var configRules = validator.Rules{
	"Driver":          {validator.Required.Msg("driver is required"), validator.In("mysql", "postgres", "sqlite3", "sqlite", "sqlserver")},
	"DSN":             {validator.Required.Msg("dsn is required")},
	"Prefix":          {validator.Identifier.Optional()},
	"DefaultTable":    {validator.Identifier.Optional()},
	"TimestampColumn": {validator.Identifier.Optional()},
	"JSONColumns":     {validator.Each(validator.Identifier).Optional()},
	"LogLevel":        {validator.In("silent", "error", "warn", "info").Optional()},
	"LogFormat":       {validator.In("text", "json").Optional()},
}

// Load reads the configuration. Precedence, highest first: environment
// (including values from .env files), config file, defaults.
func Load(opts LoadOptions) (*Config, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env", ".env.local"}
	}
	if err := loadEnvFiles(fs, envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("blockbite")
		dirs := opts.Dirs
		if dirs == nil {
			dirs = defaultDirs()
		}
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("driver", "mysql")
	v.SetDefault("dsn", "")
	v.SetDefault("prefix", "")
	v.SetDefault("default_table", core.DefaultTable)
	v.SetDefault("json_columns", core.DefaultJSONColumns)
	v.SetDefault("timestamp_column", core.DefaultTimestampColumn)
	v.SetDefault("disable_timestamps", false)
	v.SetDefault("max_open_conns", 0)
	v.SetDefault("max_idle_conns", 0)
	v.SetDefault("conn_max_lifetime", 0)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("slow_threshold", 0)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("redis_addr", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}
	return &cfg, nil
}

func defaultDirs() []string {
	dirs := []string{"."}
	if home, err := homedir.Dir(); err == nil {
		dirs = append(dirs, home, filepath.Join(home, ".config", "blockbite"))
	}
	return dirs
}

// loadEnvFiles exports the variables of each existing file. The first file
// never overrides the real environment; later files override earlier ones.
func loadEnvFiles(fs afero.Fs, files []string) error {
	for i, name := range files {
		f, err := fs.Open(name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		vars, err := godotenv.Parse(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k, val := range vars {
			if _, set := os.LookupEnv(k); set && i == 0 {
				continue
			}
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks the settings needed to connect.
func (c *Config) Validate() error {
	if err := configRules.Validate(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logger builds the logger described by LogLevel and LogFormat.
func (c *Config) Logger() logger.Logger {
	l := logger.NewStdLogger()
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		l.SetLevel(logger.LogLevelSilent)
	case "error":
		l.SetLevel(logger.LogLevelError)
	case "info":
		l.SetLevel(logger.LogLevelInfo)
	default:
		l.SetLevel(logger.LogLevelWarn)
	}
	if strings.EqualFold(c.LogFormat, "json") {
		l.SetFormat(logger.LogFormatJSON)
	}
	return l
}

// Options converts the configuration into core.Options.
func (c *Config) Options() *core.Options {
	return &core.Options{
		Prefix:            c.Prefix,
		DefaultTable:      c.DefaultTable,
		JSONColumns:       append([]string(nil), c.JSONColumns...),
		TimestampColumn:   c.TimestampColumn,
		DisableTimestamps: c.DisableTimestamps,
		MaxOpenConns:      c.MaxOpenConns,
		MaxIdleConns:      c.MaxIdleConns,
		ConnMaxLifetime:   c.ConnMaxLifetime,
		Logger:            c.Logger(),
	}
}
