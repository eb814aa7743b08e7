package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	platformstrings "cargotrack/pkg/platform/strings"
)

// State backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Server captures process level configuration.
type Server struct {
	Addr         string        `env:"CARGO_ADDR" envDefault:":5000"`
	AdminAddr    string        `env:"CARGO_ADMIN_ADDR" envDefault:":9090"`
	WaitTimeout  time.Duration `env:"CARGO_WAIT_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"CARGO_WRITE_TIMEOUT" envDefault:"10s"`

	// StationaryTypes are the container types whose items are "waiting"
	// rather than "in transit".
	StationaryTypes []string `env:"CARGO_STATIONARY_TYPES" envDefault:"FrontOffice,Hub" envSeparator:","`

	State  StateConfig
	Redis  RedisConfig
	Audit  AuditConfig
	Logger LoggerConfig
}

// StateConfig selects where snapshots are saved.
type StateConfig struct {
	Backend        string `env:"CARGO_STATE_BACKEND" envDefault:"file"`
	File           string `env:"CARGO_STATE_FILE" envDefault:"server_state.json"`
	Codec          string `env:"CARGO_STATE_CODEC" envDefault:"json"`
	DSN            string `env:"CARGO_STATE_DSN"`
	Key            string `env:"CARGO_STATE_KEY"`
	SaveOnShutdown bool   `env:"CARGO_SAVE_ON_SHUTDOWN" envDefault:"true"`
	LoadOnStartup  bool   `env:"CARGO_LOAD_ON_STARTUP" envDefault:"true"`
}

// RedisConfig configures the Redis client used by the redis state backend.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"1"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// AuditConfig configures the audit pipeline. Kafka publishing is enabled when
// brokers are set.
type AuditConfig struct {
	Buffer       int      `env:"AUDIT_BUFFER" envDefault:"1024"`
	Retain       int      `env:"AUDIT_RETAIN" envDefault:"1000"`
	KafkaBrokers []string `env:"AUDIT_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"AUDIT_KAFKA_TOPIC" envDefault:"cargotrack.audit"`

	// KafkaCooldown is how long publishing pauses after repeated failures.
	KafkaCooldown time.Duration `env:"AUDIT_KAFKA_COOLDOWN" envDefault:"30s"`
}

// LoggerConfig selects the log handler.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// FromEnv builds a Server config from environment variables. A .env file in
// the working directory is loaded first when present; variables already set
// in the environment win.
func FromEnv() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StationaryTypes = platformstrings.DedupeAndTrim(cfg.StationaryTypes)
	cfg.Audit.KafkaBrokers = platformstrings.DedupeAndTrim(cfg.Audit.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the tags cannot express.
func (c Server) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.WaitTimeout <= 0 {
		return errors.New("wait timeout must be positive")
	}
	switch strings.ToLower(c.State.Backend) {
	case BackendFile:
		if c.State.File == "" {
			return errors.New("state file is required for the file backend")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres, BackendSQLite:
		if c.State.DSN == "" {
			return fmt.Errorf("CARGO_STATE_DSN is required for the %s backend", c.State.Backend)
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}
	return nil
}
