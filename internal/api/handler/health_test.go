package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthHandler_Health(t *testing.T) {
	app := fiber.New()
	h := NewHealthHandler(nil)
	app.Get("/health", h.Health)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var result HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "ok", result.Status)
	assert.NotEmpty(t, result.Version)
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		handler    *HealthHandler
		wantStatus int
		wantBody   string
		wantCheck  string
	}{
		{
			name:       "no audit database",
			handler:    NewHealthHandler(nil),
			wantStatus: 200,
			wantBody:   "ready",
		},
		{
			name:       "audit database up",
			handler:    NewHealthHandler(stubPinger{}),
			wantStatus: 200,
			wantBody:   "ready",
			wantCheck:  "ok",
		},
		{
			name:       "audit database down",
			handler:    NewHealthHandler(stubPinger{err: errors.New("connection refused")}),
			wantStatus: 503,
			wantBody:   "unavailable",
			wantCheck:  "database unhealthy: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/ready", tt.handler.Ready)

			resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var result HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
			assert.Equal(t, tt.wantBody, result.Status)
			assert.Equal(t, tt.wantCheck, result.Checks["audit_db"])
		})
	}
}
