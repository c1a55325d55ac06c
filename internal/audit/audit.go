package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventEngineInitialized EventType = "ENGINE_INITIALIZED"
	EventEngineReleased    EventType = "ENGINE_RELEASED"
	EventFaceDetected      EventType = "FACE_DETECTED"
	EventFaceEncoded       EventType = "FACE_ENCODED"
	EventLivenessChecked   EventType = "LIVENESS_CHECKED"
	EventEncodingsCompared EventType = "ENCODINGS_COMPARED"
	EventQualityAssessed   EventType = "QUALITY_ASSESSED"
)

// NoHandle marks events not tied to an engine
const NoHandle int64 = -1

// Event represents one bridge operation for the audit trail
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Handle    int64             `json:"handle"`
	EventType EventType         `json:"event_type"`
	Backend   string            `json:"backend,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	LatencyMs int64             `json:"latency_ms"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

func (e *Event) fill() {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger using slog
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	event.fill()

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	l.logger.Log(ctx, level, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.Int64("handle", event.Handle),
		slog.String("backend", event.Backend),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

// Log does nothing and returns nil
func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}

// MultiLogger fans an event out to several sinks. Every sink is attempted;
// their errors are joined.
type MultiLogger []Logger

func (m MultiLogger) Log(ctx context.Context, event Event) error {
	event.fill()

	var errs []error
	for _, l := range m {
		if err := l.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
