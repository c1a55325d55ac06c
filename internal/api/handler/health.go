package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/database"
)

const version = "0.1.0"

type HealthHandler struct {
	db database.Pinger
}

// NewHealthHandler creates the probe handler. db may be nil when the audit
// sink is disabled.
func NewHealthHandler(db database.Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON(HealthResponse{Status: "ready"})
	}

	if err := database.HealthCheck(context.Background(), h.db); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status: "unavailable",
			Checks: map[string]string{"audit_db": err.Error()},
		})
	}
	return c.JSON(HealthResponse{
		Status: "ready",
		Checks: map[string]string{"audit_db": "ok"},
	})
}
