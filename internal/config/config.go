package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Alp4ka/gotable"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"

	SessionMemory = "memory"
	SessionRedis  = "redis"

	PaginatorEager       = "eager"
	PaginatorLazy        = "lazy"
	PaginatorLazySegment = "lazy_segment"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the configuration of the demo server and the CLI.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Session  SessionConfig  `toml:"session"`
	Table    TableConfig    `toml:"table"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type DatabaseConfig struct {
	Dialect string `toml:"dialect"`
	DSN     string `toml:"dsn"`
}

type SessionConfig struct {
	Backend    string `toml:"backend"`
	RedisAddr  string `toml:"redis_addr"`
	RedisDB    int    `toml:"redis_db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// TTL returns the session lifetime.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type TableConfig struct {
	RowsPerPage int    `toml:"rows_per_page"`
	Paginator   string `toml:"paginator"`
	Segment     int    `toml:"segment"`
}

// PaginatorFactory returns the paginator named by the config.
func (c TableConfig) PaginatorFactory() gotable.PaginatorFactory {
	switch c.Paginator {
	case PaginatorLazy:
		return gotable.Lazy(c.Segment)
	case PaginatorLazySegment:
		return gotable.LazySegment(c.Segment)
	default:
		return gotable.Eager(c.Segment)
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

// LoadFrom reads and parses the config file at the given path, then applies
// defaults and validates it.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	return finish(&cfg)
}

// Parse is LoadFrom for an in-memory document.
func Parse(doc string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(doc, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Database.Dialect == "" {
		c.Database.Dialect = DialectSQLite
	}
	if c.Database.DSN == "" && c.Database.Dialect == DialectSQLite {
		c.Database.DSN = "file::memory:?cache=shared"
	}
	c.Database.DSN = os.ExpandEnv(c.Database.DSN)
	if c.Session.Backend == "" {
		c.Session.Backend = SessionMemory
	}
	if c.Session.Backend == SessionRedis && c.Session.RedisAddr == "" {
		c.Session.RedisAddr = "localhost:6379"
	}
	if c.Session.TTLSeconds == 0 {
		c.Session.TTLSeconds = 14 * 24 * 60 * 60
	}
	if c.Table.RowsPerPage == 0 {
		c.Table.RowsPerPage = 25
	}
	if c.Table.Paginator == "" {
		c.Table.Paginator = PaginatorEager
	}
	if c.Table.Segment == 0 {
		c.Table.Segment = gotable.DefaultSegment
	}
}

// Validate reports every offending key.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(key string, value any, want ...string) {
		errs = append(errs, fmt.Errorf("%w: %s = %v, want one of %s", ErrInvalidConfig, key, value, strings.Join(want, ", ")))
	}

	switch c.Database.Dialect {
	case DialectSQLite, DialectPostgres, DialectMySQL:
	default:
		invalid("database.dialect", c.Database.Dialect, DialectSQLite, DialectPostgres, DialectMySQL)
	}

	if c.Database.DSN == "" {
		errs = append(errs, fmt.Errorf("%w: database.dsn is required for %s", ErrInvalidConfig, c.Database.Dialect))
	}

	switch c.Session.Backend {
	case SessionMemory, SessionRedis:
	default:
		invalid("session.backend", c.Session.Backend, SessionMemory, SessionRedis)
	}

	if c.Session.TTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("%w: session.ttl_seconds must not be negative", ErrInvalidConfig))
	}

	switch c.Table.Paginator {
	case PaginatorEager, PaginatorLazy, PaginatorLazySegment:
	default:
		invalid("table.paginator", c.Table.Paginator, PaginatorEager, PaginatorLazy, PaginatorLazySegment)
	}

	if c.Table.RowsPerPage < gotable.AllRows {
		errs = append(errs, fmt.Errorf("%w: table.rows_per_page = %d", ErrInvalidConfig, c.Table.RowsPerPage))
	}

	if c.Table.Segment < 1 {
		errs = append(errs, fmt.Errorf("%w: table.segment = %d", ErrInvalidConfig, c.Table.Segment))
	}

	return errors.Join(errs...)
}
