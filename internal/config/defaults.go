package config

import (
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultDeviceURL        = "http://localhost"
	DefaultDeviceTimeout    = 10 * time.Second
	DefaultMaxRetries       = 2
	DefaultRetryBackoff     = 500 * time.Millisecond
	DefaultPollInterval     = 5 * time.Second
	DefaultRetentionTick    = 30 * time.Second
	DefaultRetention        = time.Hour
	DefaultMaxBackfillPages = 100
	DefaultBackend          = BackendFile
	DefaultFileDir          = "data"
	DefaultRedisAddr        = "localhost:6379"
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
	DefaultServerPort       = 8080
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultKafkaTopic       = "hashwatch.updates"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

func (c *Config) applyDefaults() {
	// Instance defaults
	if c.Instance.ID == "" {
		c.Instance.ID = uuid.NewString()
	}

	// Device defaults
	if c.Device.URL == "" {
		c.Device.URL = DefaultDeviceURL
	}
	if c.Device.Timeout == 0 {
		c.Device.Timeout = DefaultDeviceTimeout
	}
	if c.Device.MaxRetries == 0 {
		c.Device.MaxRetries = DefaultMaxRetries
	}
	if c.Device.RetryBackoff == 0 {
		c.Device.RetryBackoff = DefaultRetryBackoff
	}

	// Reconciler defaults
	if c.Reconciler.PollInterval == 0 {
		c.Reconciler.PollInterval = DefaultPollInterval
	}
	if c.Reconciler.RetentionTick == 0 {
		c.Reconciler.RetentionTick = DefaultRetentionTick
	}
	if c.Reconciler.Retention == 0 {
		c.Reconciler.Retention = DefaultRetention
	}
	if c.Reconciler.MaxBackfillPages == 0 {
		c.Reconciler.MaxBackfillPages = DefaultMaxBackfillPages
	}

	// Storage defaults
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultBackend
	}
	if c.Storage.File.Dir == "" {
		c.Storage.File.Dir = DefaultFileDir
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = DefaultRedisAddr
	}
	applyDBDefaults(&c.Storage.Postgres)

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Sink defaults
	if c.Sinks.Kafka.Topic == "" {
		c.Sinks.Kafka.Topic = DefaultKafkaTopic
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
