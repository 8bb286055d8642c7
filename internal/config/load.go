package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SCRY"

// ErrDatabaseURLRequired is returned when the postgres driver is selected
// without a database URL.
var ErrDatabaseURLRequired = errors.New("database.url is required when store.driver is postgres")

// Load reads configuration from ./config.yaml (optional) and SCRY_* environment
// variables. Environment variables take precedence over file values.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given config file instead of
// searching the working directory. A missing explicit file is an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about; keys without
	// a default must be bound explicitly.
	for _, key := range []string{"database.url", "auth.jwt_secret"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and cross-section rules.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if cfg.Store.Driver == "postgres" && cfg.Database.URL == "" {
		return fmt.Errorf("configuration validation failed: %w", ErrDatabaseURLRequired)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("store.driver", "postgres")

	v.SetDefault("distribution.code_length", 8)
	v.SetDefault("distribution.code_max_attempts", 5)
	v.SetDefault("distribution.sweep_interval", time.Hour)

	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.worker_count", 2)
	v.SetDefault("notify.send_buffer", 16)
	v.SetDefault("notify.ping_interval", 30*time.Second)
	v.SetDefault("notify.write_timeout", 10*time.Second)

	v.SetDefault("srs.again_offset", time.Duration(0))
	v.SetDefault("srs.hard_offset", time.Duration(0))
	v.SetDefault("srs.good_offset", time.Duration(0))
	v.SetDefault("srs.easy_offset", time.Duration(0))
}
