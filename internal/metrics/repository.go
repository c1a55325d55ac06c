// Package metrics aggregates the persisted audit trail into per-operation
// counters and latency figures.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/audit"
)

// DB is the query surface of a pgx pool
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Summary aggregates the audit events of one event type and backend
type Summary struct {
	EventType    audit.EventType `json:"event_type" cbor:"event_type"`
	Backend      string          `json:"backend" cbor:"backend"`
	Total        int64           `json:"total" cbor:"total"`
	Failures     int64           `json:"failures" cbor:"failures"`
	AvgLatencyMs float64         `json:"avg_latency_ms" cbor:"avg_latency_ms"`
	P99LatencyMs float64         `json:"p99_latency_ms" cbor:"p99_latency_ms"`
}

// FailureRate is Failures over Total, 0 for an empty group
func (s Summary) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Total)
}

// Repository reads aggregates from engine_audit_events
type Repository struct {
	db DB
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// NewRepositoryWithDB creates a repository over a custom DB
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

const summarizeSQL = `
	SELECT event_type,
	       backend,
	       COUNT(*),
	       COUNT(*) FILTER (WHERE NOT success),
	       COALESCE(AVG(latency_ms), 0)::float8,
	       COALESCE(percentile_cont(0.99) WITHIN GROUP (ORDER BY latency_ms), 0)::float8
	FROM engine_audit_events
	WHERE occurred_at >= $1
	GROUP BY event_type, backend
	ORDER BY event_type, backend
`

// Summarize groups every event since the given instant by type and backend
func (r *Repository) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	rows, err := r.db.Query(ctx, summarizeSQL, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("summarize audit events: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var (
			s         Summary
			eventType string
		)
		if err := rows.Scan(&eventType, &s.Backend, &s.Total, &s.Failures, &s.AvgLatencyMs, &s.P99LatencyMs); err != nil {
			return nil, fmt.Errorf("scan audit summary: %w", err)
		}
		s.EventType = audit.EventType(eventType)
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}
