package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerAddr          = ":8080"
	DefaultReadTimeout         = 15 * time.Second
	DefaultWriteTimeout        = 60 * time.Second
	DefaultShutdownTimeout     = 30 * time.Second
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 10
	DefaultMinConns            = 2
	DefaultRateTTL             = 10 * time.Minute
	DefaultPageSize            = 100
	DefaultMaxPageSize         = 1000
	DefaultAssembleConcurrency = 8
	DefaultStreamChannel       = "catalog_changes"
	DefaultStreamBufferSize    = 1000
	DefaultPingInterval        = 30 * time.Second
	DefaultReconnectBaseDelay  = 1 * time.Second
	DefaultReconnectMaxDelay   = 60 * time.Second
	DefaultBatchSize           = 500
	DefaultFlushInterval       = 250 * time.Millisecond
	DefaultBufferSize          = 1024
	DefaultIntakeWriteTimeout  = 10 * time.Second
	DefaultReconcileInterval   = 5 * time.Minute
	DefaultMaxSkew             = 5 * time.Minute
	DefaultMetricsPath         = "/metrics"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
)

func (c *FeedServerConfig) applyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Redis defaults
	if c.Redis.RateTTL == 0 {
		c.Redis.RateTTL = DefaultRateTTL
	}

	// Feed defaults
	if c.Feed.DefaultPageSize == 0 {
		c.Feed.DefaultPageSize = DefaultPageSize
	}
	if c.Feed.MaxPageSize == 0 {
		c.Feed.MaxPageSize = DefaultMaxPageSize
	}
	if c.Feed.AssembleConcurrency == 0 {
		c.Feed.AssembleConcurrency = DefaultAssembleConcurrency
	}

	// Stream defaults
	if c.Stream.Channel == "" {
		c.Stream.Channel = DefaultStreamChannel
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	// Intake defaults
	if c.Intake.BatchSize == 0 {
		c.Intake.BatchSize = DefaultBatchSize
	}
	if c.Intake.FlushInterval == 0 {
		c.Intake.FlushInterval = DefaultFlushInterval
	}
	if c.Intake.BufferSize == 0 {
		c.Intake.BufferSize = DefaultBufferSize
	}
	if c.Intake.WriteTimeout == 0 {
		c.Intake.WriteTimeout = DefaultIntakeWriteTimeout
	}

	// Channels defaults
	if c.Channels.ReconcileInterval == 0 {
		c.Channels.ReconcileInterval = DefaultReconcileInterval
	}

	// Auth defaults
	if c.Auth.MaxSkew == 0 {
		c.Auth.MaxSkew = DefaultMaxSkew
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
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
