// Package main implements the VoteSecure voting service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Om7972/votesecure-online-sub000/internal/api"
	"github.com/Om7972/votesecure-online-sub000/internal/audit"
	"github.com/Om7972/votesecure-online-sub000/internal/config"
	"github.com/Om7972/votesecure-online-sub000/internal/eligibility"
	"github.com/Om7972/votesecure-online-sub000/internal/ledger"
	"github.com/Om7972/votesecure-online-sub000/internal/seal"
	"github.com/Om7972/votesecure-online-sub000/internal/tally"
	"github.com/Om7972/votesecure-online-sub000/pkg/metrics"
	"github.com/Om7972/votesecure-online-sub000/pkg/postgres"
	"github.com/Om7972/votesecure-online-sub000/pkg/telemetry"
	"github.com/Om7972/votesecure-online-sub000/pkg/vault"
)

var version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("VOTESECURE_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.Service = "voting-service"

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("starting votesecure voting-service", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Service,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		SampleRate:     cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
	} else if tp != nil {
		defer func() { _ = tp.Shutdown(ctx) }()
	}

	// Database
	db, err := postgres.NewWithPool(cfg.Database.DSN(), postgres.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	migrateOpts := postgres.MigrateOptions{
		AllowRevoteAfterInvalidation: cfg.Voting.RevoteAfterInvalidation,
	}
	if err := db.RunMigrations(ctx, migrateOpts); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Repositories
	voteRepo := postgres.NewVoteRepository(db, cfg.Voting.RevoteAfterInvalidation)
	electionRepo := postgres.NewElectionRepository(db)
	voterRepo := postgres.NewVoterRepository(db)
	candidateRepo := postgres.NewCandidateRepository(db)
	auditRepo := postgres.NewAuditLogRepository(db)

	// Ballot sealing keys: Vault transit when configured, local otherwise.
	keys, err := newKeyProvider(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize key provider", "error", err)
		os.Exit(1)
	}

	// Services
	auditSvc := audit.NewService(auditRepo, nil)
	validator := eligibility.NewValidator(voteRepo,
		eligibility.WithMinVotingAge(cfg.Voting.MinVotingAge))
	ledgerSvc := ledger.NewService(voteRepo, electionRepo, voterRepo,
		validator, seal.New(keys), auditSvc, logger)
	aggregator := tally.NewAggregator(voteRepo, electionRepo, candidateRepo)

	// Router and server
	health := api.NewHealthChecker(logger)
	health.Register("database", db.HealthCheck)

	routerCfg := api.DefaultRouterConfig()
	routerCfg.Logger = logger
	routerCfg.ServiceMetrics = metrics.NewServiceMetrics(cfg.Service, version)
	routerCfg.Tracer = tp
	routerCfg.Health = health

	router := api.NewRouter(routerCfg, &api.Services{
		Ledger:    ledgerSvc,
		Tally:     aggregator,
		Elections: electionRepo,
		Audit:     auditSvc,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.Server.Addr()
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.IdleTimeout = cfg.Server.IdleTimeout
	serverCfg.Logger = logger

	server, err := api.NewServer(router, serverCfg)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

// newLogger builds the process logger from the configured level and format.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newKeyProvider selects the ballot sealing key backend.
func newKeyProvider(cfg *config.Config, logger *slog.Logger) (seal.KeyProvider, error) {
	if !cfg.Vault.Enabled {
		logger.Info("using local key provider for ballot sealing")
		return seal.NewLocalKeyProvider(nil)
	}

	client, err := vault.New(&vault.Config{
		Address:   cfg.Vault.Address,
		Token:     cfg.Vault.Token,
		Namespace: cfg.Vault.Namespace,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("using vault transit key provider for ballot sealing",
		"mount", cfg.Vault.TransitMount, "key", cfg.Vault.KeyName)
	return vault.NewTransitKeyProvider(client, cfg.Vault.TransitMount, cfg.Vault.KeyName), nil
}
