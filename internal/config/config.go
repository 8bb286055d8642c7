package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"       validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"         validate:"required"`
	Store        StoreConfig        `mapstructure:"store"        validate:"required"`
	Distribution DistributionConfig `mapstructure:"distribution" validate:"required"`
	Notify       NotifyConfig       `mapstructure:"notify"       validate:"required"`
	SRS          SRSConfig          `mapstructure:"srs"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig contains the PostgreSQL connection settings. URL is only
// required when the postgres store driver is selected.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"omitempty,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains bearer token settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
}

// DistributionConfig tunes grant secret generation and housekeeping.
type DistributionConfig struct {
	CodeLength      int           `mapstructure:"code_length"       validate:"required,gte=6,lte=32"`
	CodeMaxAttempts int           `mapstructure:"code_max_attempts" validate:"required,gte=1"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"    validate:"gte=0"`
}

// NotifyConfig tunes the notification fanout.
type NotifyConfig struct {
	QueueSize    int           `mapstructure:"queue_size"    validate:"required,gt=0"`
	WorkerCount  int           `mapstructure:"worker_count"  validate:"required,gt=0"`
	SendBuffer   int           `mapstructure:"send_buffer"   validate:"required,gt=0"`
	PingInterval time.Duration `mapstructure:"ping_interval" validate:"required"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"required"`
}

// SRSConfig overrides the scheduler offsets. Zero keeps the default policy.
// Intended for tests and demos only.
type SRSConfig struct {
	AgainOffset time.Duration `mapstructure:"again_offset"`
	HardOffset  time.Duration `mapstructure:"hard_offset"`
	GoodOffset  time.Duration `mapstructure:"good_offset"`
	EasyOffset  time.Duration `mapstructure:"easy_offset"`
}
