package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedServerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Feed.DefaultPageSize < 1 {
		return errors.New("feed.default_page_size must be >= 1")
	}
	if c.Feed.MaxPageSize < c.Feed.DefaultPageSize {
		return fmt.Errorf("feed.max_page_size (%d) cannot be below default_page_size (%d)",
			c.Feed.MaxPageSize, c.Feed.DefaultPageSize)
	}
	if c.Feed.AssembleConcurrency < 1 {
		return errors.New("feed.assemble_concurrency must be >= 1")
	}
	if c.Feed.CustomerGroupID < 0 {
		return errors.New("feed.customer_group_id must be >= 0")
	}

	if c.Stream.URL != "" {
		if !strings.HasPrefix(c.Stream.URL, "ws://") && !strings.HasPrefix(c.Stream.URL, "wss://") {
			return fmt.Errorf("stream.url must be a ws:// or wss:// URL, got %q", c.Stream.URL)
		}
		if c.Stream.ReconnectMaxDelay < c.Stream.ReconnectBaseDelay {
			return errors.New("stream.reconnect_max_delay cannot be below reconnect_base_delay")
		}
	}

	if c.Intake.BatchSize < 1 {
		return errors.New("intake.batch_size must be >= 1")
	}
	if c.Intake.BufferSize < 1 {
		return errors.New("intake.buffer_size must be >= 1")
	}

	if c.Redis.DB < 0 {
		return errors.New("redis.db must be >= 0")
	}

	if c.Auth.Required && c.Auth.PublicKeyPath == "" {
		return errors.New("auth.public_key_path is required when auth.required is set")
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", c.Metrics.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
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

// ParseLevel maps log.level to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
}
