package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB interface for database operations
type DB interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PostgresLogger persists audit events into engine_audit_events
type PostgresLogger struct {
	db DB
}

// NewPostgresLogger creates a sink backed by a pgx pool
func NewPostgresLogger(db *pgxpool.Pool) *PostgresLogger {
	return &PostgresLogger{db: db}
}

// NewPostgresLoggerWithDB creates a sink with custom DB interface
func NewPostgresLoggerWithDB(db DB) *PostgresLogger {
	return &PostgresLogger{db: db}
}

const insertEventSQL = `
	INSERT INTO engine_audit_events
		(id, occurred_at, engine_handle, event_type, backend, success, error, latency_ms, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (p *PostgresLogger) Log(ctx context.Context, event Event) error {
	event.fill()

	var metadata []byte
	if len(event.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(event.Metadata); err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	var handle *int64
	if event.Handle != NoHandle {
		handle = &event.Handle
	}

	_, err := p.db.Exec(ctx, insertEventSQL,
		event.ID,
		event.Timestamp,
		handle,
		string(event.EventType),
		event.Backend,
		event.Success,
		event.Error,
		event.LatencyMs,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Prune deletes events that occurred before now minus retention and reports
// how many rows were removed.
func (p *PostgresLogger) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	tag, err := p.db.Exec(ctx, `DELETE FROM engine_audit_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}
