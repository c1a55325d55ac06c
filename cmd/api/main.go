package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/api"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/audit"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/bridge"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/config"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/database"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/engine"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/face"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/metrics"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := config.NewLogger(cfg.Environment, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	logger.Info("starting facebridge API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("face_backend", cfg.FaceBackend),
	)

	presets, err := config.LoadPresets(cfg.PresetsFile)
	if err != nil {
		return err
	}

	loader, err := face.NewLoader(cfg)
	if err != nil {
		return fmt.Errorf("failed to create face loader: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, err := setupAudit(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var (
		pruner     *audit.Pruner
		aggregator *metrics.Aggregator
	)
	deps := &api.Dependencies{Presets: presets, BodyLimit: cfg.MaxBodyBytes}
	if sinks.pool != nil {
		defer sinks.pool.Close()
		deps.DB = sinks.pool

		pruner = audit.NewPruner(audit.NewPostgresLogger(sinks.pool), logger, cfg.AuditPruneInterval, cfg.AuditRetention)
		go pruner.Start(ctx)

		repo := metrics.NewRepository(sinks.pool)
		deps.Summaries = repo
		if cfg.AuditSummaryInterval > 0 {
			aggregator = metrics.NewAggregator(repo, logger, cfg.AuditSummaryInterval, 0)
			go aggregator.Start(ctx)
		}
	}
	if sinks.notifier != nil {
		sinks.notifier.Start(ctx)
	}

	registry := engine.NewRegistry(loader,
		engine.WithLogger(logger),
		engine.WithBackendNamer(loader.Backend),
	)
	deps.Bridge = bridge.New(registry,
		bridge.WithAuditLogger(sinks.logger),
		bridge.WithLogger(logger),
		bridge.WithBackendNamer(loader.Backend),
	)

	router := api.NewRouter(logger, deps)
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	// engines hold model memory and backend connections
	deps.Bridge.Close()

	if pruner != nil {
		pruner.Stop()
	}
	if aggregator != nil {
		aggregator.Stop()
	}
	if sinks.notifier != nil {
		sinks.notifier.Stop()
	}
	logger.Info("server stopped", slog.Int("engines_left", registry.Len()))

	return nil
}

type auditSinks struct {
	logger   audit.Logger
	pool     *pgxpool.Pool
	notifier *webhook.Notifier
}

// setupAudit always logs audit events through slog. AUDIT_DATABASE_URL adds
// Postgres persistence and AUDIT_WEBHOOK_URL adds signed HTTP delivery.
func setupAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*auditSinks, error) {
	multi := audit.MultiLogger{audit.NewSlogLogger(logger)}
	sinks := &auditSinks{}

	if cfg.AuditPersisted() {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := database.NewPgxPool(connectCtx, database.DefaultPoolConfig(cfg.AuditDatabaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to connect audit database: %w", err)
		}

		logger.Info("audit events persisted", slog.String("table", database.AuditTable))
		multi = append(multi, audit.NewPostgresLogger(pool))
		sinks.pool = pool
	}

	if cfg.AuditWebhookEnabled() {
		whCfg := webhook.DefaultConfig(cfg.AuditWebhookURL, cfg.AuditWebhookSecret)
		for _, e := range cfg.AuditWebhookEvents {
			whCfg.Events = append(whCfg.Events, audit.EventType(e))
		}

		sinks.notifier = webhook.NewNotifier(whCfg, logger)
		multi = append(multi, sinks.notifier)
		logger.Info("audit events forwarded", slog.String("url", cfg.AuditWebhookURL))
	}

	sinks.logger = multi
	return sinks, nil
}
