package config

import "time"

// FeedServerConfig is the root configuration for a feed server instance.
type FeedServerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Feed     FeedConfig     `yaml:"feed"`
	Stream   StreamConfig   `yaml:"stream"`
	Intake   IntakeConfig   `yaml:"intake"`
	Channels ChannelsConfig `yaml:"channels"`
	Auth     AuthConfig     `yaml:"auth"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this server.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds the PostgreSQL connection for the ledger and catalog.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
	Migrate  bool     `yaml:"migrate"` // Create tables on startup
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

// RedisConfig holds the currency rate cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	RateTTL  time.Duration `yaml:"rate_ttl"`
}

// FeedConfig holds feed request settings.
type FeedConfig struct {
	DefaultPageSize     int      `yaml:"default_page_size"`
	MaxPageSize         int      `yaml:"max_page_size"`
	AssembleConcurrency int      `yaml:"assemble_concurrency"`
	CustomerGroupID     int64    `yaml:"customer_group_id"`
	ExtraFields         []string `yaml:"extra_fields"`   // Overrides the catalog setting when set
	MediaBaseURL        string   `yaml:"media_base_url"` // Used for stores without their own media URL
}

// StreamConfig holds the catalog change stream subscription. An empty URL
// disables the subscriber.
type StreamConfig struct {
	URL                string        `yaml:"url"`
	APIKey             string        `yaml:"api_key"`
	Channel            string        `yaml:"channel"`
	BufferSize         int           `yaml:"buffer_size"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
}

// IntakeConfig holds the delta writer settings.
type IntakeConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

// ChannelsConfig holds store registry settings.
type ChannelsConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// AuthConfig holds request signature verification settings.
type AuthConfig struct {
	Required      bool          `yaml:"required"`
	PublicKeyPath string        `yaml:"public_key_path"`
	MaxSkew       time.Duration `yaml:"max_skew"`
}

// MetricsConfig holds Prometheus metrics settings. A zero Port serves
// metrics on the main listener.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
