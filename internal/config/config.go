// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	DB        DBConfig        `mapstructure:"db"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig controls access to Postgres. An empty DSN selects the in-memory
// stores, which is the local development mode.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	MaxConnLifeMins int    `mapstructure:"max_conn_life_minutes"`
}

// FetchConfig governs the worker pool and orchestration pipeline.
type FetchConfig struct {
	Workers              int `mapstructure:"workers"`
	QueueDepth           int `mapstructure:"queue_depth"`
	SourceTimeoutSeconds int `mapstructure:"source_timeout_seconds"`
}

// ProvidersConfig configures the shared outbound HTTP client and credential
// lookup for source adapters.
type ProvidersConfig struct {
	HTTPTimeoutSeconds int    `mapstructure:"http_timeout_seconds"`
	CredentialPrefix   string `mapstructure:"credential_prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWSWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_life_minutes", 30)
	v.SetDefault("fetch.workers", 4)
	v.SetDefault("fetch.queue_depth", 100)
	v.SetDefault("fetch.source_timeout_seconds", 30)
	v.SetDefault("providers.http_timeout_seconds", 15)
	v.SetDefault("providers.credential_prefix", "NEWSWIRE_CRED_")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be > 0")
	}
	if c.Fetch.QueueDepth <= 0 {
		return fmt.Errorf("fetch.queue_depth must be > 0")
	}
	if c.Providers.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("providers.http_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// SourceTimeout converts the per-source budget to a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Fetch.SourceTimeoutSeconds) * time.Second
}

// HTTPTimeout converts the provider client timeout to a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Providers.HTTPTimeoutSeconds) * time.Second
}

// MaxConnLifetime converts the pool lifetime knob to a duration.
func (c Config) MaxConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifeMins) * time.Minute
}
