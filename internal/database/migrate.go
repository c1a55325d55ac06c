package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// AuditTable is the table the audit sink writes to
const AuditTable = "engine_audit_events"

// Action names accepted by Migrator.Apply
const (
	ActionUp      = "up"
	ActionDown    = "down"
	ActionVersion = "version"
	ActionForce   = "force"
)

var ErrUnknownAction = errors.New("unknown migration action")

// Migrator applies the embedded audit schema
type Migrator struct {
	m *migrate.Migrate
}

func NewMigrator(db *sql.DB, dbName string) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		DatabaseName: dbName,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Migrations lists the embedded up migrations in apply order.
func Migrations() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Apply runs one of the Action* operations. version is read only by force.
// The returned string describes the outcome for the operator.
func (m *Migrator) Apply(action string, version int) (string, error) {
	switch action {
	case ActionUp:
		if err := m.Up(); err != nil {
			return "", err
		}
	case ActionDown:
		if err := m.Down(); err != nil {
			return "", err
		}
	case ActionForce:
		if err := m.Force(version); err != nil {
			return "", err
		}
	case ActionVersion:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	v, dirty, err := m.Version()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("version=%d dirty=%t", v, dirty), nil
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Down rolls back the last migration. Audit history is lost.
func (m *Migrator) Down() error {
	if err := m.m.Steps(-1); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

// Version returns the current migration version; 0 when nothing is applied
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the version without running anything, to recover a dirty state
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return fmt.Errorf("close source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}
