// Package vault provides a client for HashiCorp Vault operations used by the
// ballot sealer: envelope encryption of per-vote data keys through the
// transit secrets engine.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// Client wraps the HashiCorp Vault API client.
type Client struct {
	client *api.Client
	logger *slog.Logger
}

// Config holds configuration for the Vault client.
type Config struct {
	Address   string
	Token     string
	Namespace string
	Timeout   time.Duration
}

// New creates a new Vault client with the given configuration.
func New(cfg *Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vault: config is required")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("vault: address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	vaultCfg := api.DefaultConfig()
	vaultCfg.Address = cfg.Address
	if cfg.Timeout > 0 {
		vaultCfg.Timeout = cfg.Timeout
	}

	client, err := api.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to create client: %w", err)
	}

	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	return &Client{client: client, logger: logger}, nil
}

// Health checks whether the Vault server is reachable and unsealed.
func (c *Client) Health(ctx context.Context) error {
	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault: health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault: server is sealed")
	}
	return nil
}

// EnableTransit mounts the transit secrets engine at the given path. An
// already-mounted path is not an error.
func (c *Client) EnableTransit(ctx context.Context, mountPath string) error {
	if mountPath == "" {
		mountPath = "transit"
	}
	err := c.client.Sys().MountWithContext(ctx, mountPath, &api.MountInput{Type: "transit"})
	if err != nil && !strings.Contains(err.Error(), "path is already in use") {
		return fmt.Errorf("vault: failed to mount transit: %w", err)
	}
	return nil
}
