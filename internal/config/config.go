package config

import (
	"log/slog"
	"time"
)

// Config is the root configuration for a hashwatch instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Device     DeviceConfig     `yaml:"device"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Sinks      SinksConfig      `yaml:"sinks"`
	Log        LogConfig        `yaml:"log"`
}

// InstanceConfig identifies this watcher. The ID prefixes persisted keys
// and keys Kafka messages.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DeviceConfig holds the device REST API settings.
type DeviceConfig struct {
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// ReconcilerConfig holds backfill and live polling settings.
type ReconcilerConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	RetentionTick    time.Duration `yaml:"retention_tick"`
	Retention        time.Duration `yaml:"retention"`
	MaxBackfillPages int           `yaml:"max_backfill_pages"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend  string      `yaml:"backend"`
	File     FileConfig  `yaml:"file"`
	Redis    RedisConfig `yaml:"redis"`
	Postgres DBConfig    `yaml:"postgres"`
}

// FileConfig holds the file backend directory.
type FileConfig struct {
	Dir string `yaml:"dir"`
}

// RedisConfig holds a Redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SinksConfig holds optional update sinks.
type SinksConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig enables the Kafka sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether the Kafka sink is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}
