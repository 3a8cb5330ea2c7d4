// Package config handles configuration loading from environment and files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for VoteSecure services.
type Config struct {
	// Service identification
	Service   string `mapstructure:"service"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Voting policy configuration
	Voting VotingConfig `mapstructure:"voting"`

	// Audit configuration
	Audit AuditConfig `mapstructure:"audit"`

	// Vault configuration (envelope encryption of sealed ballots)
	Vault VaultConfig `mapstructure:"vault"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// VotingConfig holds vote-admission policy knobs.
type VotingConfig struct {
	// MinVotingAge is the minimum voter age accepted by the eligibility
	// validator.
	MinVotingAge int `mapstructure:"min_voting_age"`
	// RevoteAfterInvalidation controls whether a voter whose vote was
	// invalidated may cast a new one in the same election. The uniqueness
	// constraint shape in storage follows this flag.
	RevoteAfterInvalidation bool `mapstructure:"revote_after_invalidation"`
}

// AuditConfig holds audit log configuration.
type AuditConfig struct {
	// DefaultRetentionDays applies when an entry's sensitivity is unknown.
	DefaultRetentionDays int `mapstructure:"default_retention_days"`
	// SuspiciousWindow bounds the default findSuspiciousActivity lookback.
	SuspiciousWindow time.Duration `mapstructure:"suspicious_window"`
}

// VaultConfig holds HashiCorp Vault configuration for the transit-backed
// key provider. When disabled, the sealer falls back to locally generated
// per-vote keys.
type VaultConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Address      string `mapstructure:"address"`
	Token        string `mapstructure:"token"`
	Namespace    string `mapstructure:"namespace"`
	TransitMount string `mapstructure:"transit_mount"`
	KeyName      string `mapstructure:"key_name"`
}

// TelemetryConfig holds OpenTelemetry configuration.
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Load loads configuration from environment variables and config file.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("VOTESECURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("votesecure")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/votesecure")
		v.AddConfigPath("$HOME/.votesecure")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "votesecure")
	v.SetDefault("database.username", "votesecure")
	v.SetDefault("database.ssl_mode", "prefer")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.query_timeout", 10*time.Second)

	v.SetDefault("voting.min_voting_age", 18)
	v.SetDefault("voting.revote_after_invalidation", false)

	// 7 years, the default audit retention
	v.SetDefault("audit.default_retention_days", 2555)
	v.SetDefault("audit.suspicious_window", 24*time.Hour)

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "http://localhost:8200")
	v.SetDefault("vault.transit_mount", "transit")
	v.SetDefault("vault.key_name", "votesecure-ballots")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Addr returns the server address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode,
	)
}
