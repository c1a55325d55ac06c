package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/config"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", database.ActionUp, "Migration action: up, down, version, force")
	version := flag.Int("version", 0, "Target version (for force action)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.AuditPersisted() {
		return fmt.Errorf("AUDIT_DATABASE_URL is not set")
	}
	if *action == database.ActionForce && *version == 0 {
		return fmt.Errorf("version flag is required for force action")
	}

	logger, closer, err := config.NewLogger(cfg.Environment, "")
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	dbName, err := databaseName(cfg.AuditDatabaseURL)
	if err != nil {
		return err
	}

	db, err := database.NewPool(database.DefaultPoolConfig(cfg.AuditDatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, dbName)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	logger.Info("running migration", slog.String("action", *action), slog.String("database", dbName))

	state, err := migrator.Apply(*action, *version)
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", *action, err)
	}

	logger.Info("migration finished", slog.String("action", *action), slog.String("state", state))
	return nil
}

func databaseName(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse AUDIT_DATABASE_URL: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("AUDIT_DATABASE_URL has no database name")
	}
	return name, nil
}
