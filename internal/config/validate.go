package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}
	if strings.ContainsAny(c.Instance.ID, `/\:`) {
		return fmt.Errorf("instance.id %q must not contain path separators or colons", c.Instance.ID)
	}

	u, err := url.Parse(c.Device.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("device.url must be an http(s) URL, got %q", c.Device.URL)
	}
	if c.Device.MaxRetries < 0 {
		return errors.New("device.max_retries must be >= 0")
	}

	if c.Reconciler.PollInterval <= 0 {
		return errors.New("reconciler.poll_interval must be positive")
	}
	if c.Reconciler.Retention <= 0 {
		return errors.New("reconciler.retention must be positive")
	}
	if c.Reconciler.MaxBackfillPages < 1 {
		return errors.New("reconciler.max_backfill_pages must be >= 1")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.File.Dir == "" {
			return errors.New("storage.file.dir is required")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required")
		}
	case BackendPostgres:
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, file, redis, postgres, got %q", c.Storage.Backend)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Sinks.Kafka.Enabled() && c.Sinks.Kafka.Topic == "" {
		return errors.New("sinks.kafka.topic is required when brokers are set")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
