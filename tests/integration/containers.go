// Package integration provides integration test infrastructure.
package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// =============================================================================
// Postgres Container
// =============================================================================

// PostgresContainer wraps a Postgres testcontainer.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
	User      string
	Password  string
	Database  string
}

// ConnectionString returns the Postgres connection string.
func (p *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Database)
}

// WithPostgres runs a test with a Postgres container.
func WithPostgres(t *testing.T, fn func(t *testing.T, pg *PostgresContainer)) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("votesecure_test"),
		postgres.WithUsername("votesecure"),
		postgres.WithPassword("votesecure_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get postgres host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get postgres port: %v", err)
	}

	pg := &PostgresContainer{
		Container: container,
		Host:      host,
		Port:      port.Port(),
		User:      "votesecure",
		Password:  "votesecure_test_password",
		Database:  "votesecure_test",
	}

	fn(t, pg)
}

// =============================================================================
// Vault Container
// =============================================================================

// VaultContainer wraps a Vault testcontainer.
type VaultContainer struct {
	Container testcontainers.Container
	Address   string
	Token     string
}

// WithVault runs a test with a Vault container in dev mode.
func WithVault(t *testing.T, fn func(t *testing.T, vault *VaultContainer)) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "hashicorp/vault:1.15",
		ExposedPorts: []string{"8200/tcp"},
		Env: map[string]string{
			"VAULT_DEV_ROOT_TOKEN_ID":  "root-token",
			"VAULT_DEV_LISTEN_ADDRESS": "0.0.0.0:8200",
		},
		Cmd: []string{"server", "-dev"},
		WaitingFor: wait.ForHTTP("/v1/sys/health").
			WithPort("8200/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start vault container: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate vault container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get vault host: %v", err)
	}

	port, err := container.MappedPort(ctx, "8200")
	if err != nil {
		t.Fatalf("failed to get vault port: %v", err)
	}

	vc := &VaultContainer{
		Container: container,
		Address:   fmt.Sprintf("http://%s:%s", host, port.Port()),
		Token:     "root-token",
	}

	if err := waitForVault(vc.Address, 30*time.Second); err != nil {
		t.Fatalf("vault not ready: %v", err)
	}

	fn(t, vc)
}

func waitForVault(address string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(address + "/v1/sys/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("vault not ready after %v", timeout)
}
