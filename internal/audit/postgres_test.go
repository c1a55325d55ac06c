package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresLogger_Log(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		execErr error
		wantErr bool
	}{
		{
			name: "engine event with metadata",
			event: Event{
				ID:        uuid.New(),
				Handle:    3,
				EventType: EventEngineInitialized,
				Backend:   "mock",
				Success:   true,
				Metadata:  map[string]string{"anti_spoofing": "false"},
			},
		},
		{
			name: "handle-less comparison event",
			event: Event{
				Handle:    NoHandle,
				EventType: EventEncodingsCompared,
				Success:   false,
				Error:     "Encoding lengths do not match",
			},
		},
		{
			name: "insert failure surfaces",
			event: Event{
				Handle:    1,
				EventType: EventFaceDetected,
				Success:   true,
			},
			execErr: errors.New("connection reset"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			sink := NewPostgresLoggerWithDB(mock)

			exp := mock.ExpectExec("INSERT INTO engine_audit_events").
				WithArgs(
					pgxmock.AnyArg(), // id
					pgxmock.AnyArg(), // occurred_at
					pgxmock.AnyArg(), // engine_handle
					string(tt.event.EventType),
					tt.event.Backend,
					tt.event.Success,
					tt.event.Error,
					tt.event.LatencyMs,
					pgxmock.AnyArg(), // metadata
				)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err = sink.Log(context.Background(), tt.event)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "insert audit event")
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresLogger_Prune(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink := NewPostgresLoggerWithDB(mock)

	mock.ExpectExec("DELETE FROM engine_audit_events").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	deleted, err := sink.Prune(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type countingPruner struct {
	calls chan time.Duration
}

func (c *countingPruner) Prune(_ context.Context, retention time.Duration) (int64, error) {
	c.calls <- retention
	return 1, nil
}

func TestPruner_RunsOnTickAndStops(t *testing.T) {
	sink := &countingPruner{calls: make(chan time.Duration, 8)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := NewPruner(sink, logger, 10*time.Millisecond, 48*time.Hour)

	finished := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(finished)
	}()

	select {
	case got := <-sink.calls:
		assert.Equal(t, 48*time.Hour, got)
	case <-time.After(2 * time.Second):
		t.Fatal("pruner never ran")
	}

	p.Stop()
	p.Stop()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("pruner did not stop")
	}
}
