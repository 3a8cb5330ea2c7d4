// Package config tests configuration loading.
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Om7972/votesecure-online-sub000/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("VOTESECURE_SERVICE")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Check defaults
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)

	// Database defaults
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "votesecure", cfg.Database.Database)
	assert.Equal(t, "votesecure", cfg.Database.Username)
	assert.Equal(t, "prefer", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)

	// Voting policy defaults
	assert.Equal(t, 18, cfg.Voting.MinVotingAge)
	assert.False(t, cfg.Voting.RevoteAfterInvalidation)

	// Audit defaults
	assert.Equal(t, 2555, cfg.Audit.DefaultRetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.Audit.SuspiciousWindow)

	// Vault defaults
	assert.False(t, cfg.Vault.Enabled)
	assert.Equal(t, "http://localhost:8200", cfg.Vault.Address)
	assert.Equal(t, "transit", cfg.Vault.TransitMount)
	assert.Equal(t, "votesecure-ballots", cfg.Vault.KeyName)

	// Telemetry defaults
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
}

func TestLoadFromEnv(t *testing.T) {
	// Set environment variables for fields that have defaults set (viper only reads env if default is set)
	os.Setenv("VOTESECURE_LOG_LEVEL", "debug")
	os.Setenv("VOTESECURE_SERVER_PORT", "9090")
	os.Setenv("VOTESECURE_DATABASE_HOST", "postgres.example.com")
	os.Setenv("VOTESECURE_VOTING_REVOTE_AFTER_INVALIDATION", "true")
	defer func() {
		os.Unsetenv("VOTESECURE_LOG_LEVEL")
		os.Unsetenv("VOTESECURE_SERVER_PORT")
		os.Unsetenv("VOTESECURE_DATABASE_HOST")
		os.Unsetenv("VOTESECURE_VOTING_REVOTE_AFTER_INVALIDATION")
	}()

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres.example.com", cfg.Database.Host)
	assert.True(t, cfg.Voting.RevoteAfterInvalidation)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "votesecure.yaml")
	configContent := `
service: voting-service
log_level: warn

server:
  host: 127.0.0.1
  port: 3000

database:
  host: db.example.com
  port: 5433
  database: votesecure_test
  username: votesecure_user
  password: secret123

voting:
  min_voting_age: 16
  revote_after_invalidation: true

vault:
  enabled: true
  address: https://vault.local:8200
  token: hvs.test-token
  transit_mount: transit-prod
  key_name: ballots-prod

telemetry:
  enabled: true
  otlp_endpoint: otel-collector:4318
  sample_ratio: 0.25
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "voting-service", cfg.Service)
	assert.Equal(t, "warn", cfg.LogLevel)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:3000", cfg.Server.Addr())

	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "votesecure_test", cfg.Database.Database)
	assert.Equal(t, "votesecure_user", cfg.Database.Username)
	assert.Equal(t, "secret123", cfg.Database.Password)

	assert.Equal(t, 16, cfg.Voting.MinVotingAge)
	assert.True(t, cfg.Voting.RevoteAfterInvalidation)

	assert.True(t, cfg.Vault.Enabled)
	assert.Equal(t, "https://vault.local:8200", cfg.Vault.Address)
	assert.Equal(t, "hvs.test-token", cfg.Vault.Token)
	assert.Equal(t, "transit-prod", cfg.Vault.TransitMount)
	assert.Equal(t, "ballots-prod", cfg.Vault.KeyName)

	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "otel-collector:4318", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRatio)
}

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "votesecure",
		Username: "votesecure",
		Password: "secret",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=votesecure password=secret dbname=votesecure sslmode=disable",
		cfg.DSN())
}
