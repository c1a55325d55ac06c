package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/api/codec"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/metrics"
)

const (
	defaultSummaryWindow = time.Hour
	maxSummaryWindow     = 30 * 24 * time.Hour
)

// AuditHandler serves aggregates of the persisted audit trail
type AuditHandler struct {
	summaries metrics.Summarizer
	now       func() time.Time
}

// NewAuditHandler creates the handler. summaries is nil when audit events
// are not persisted.
func NewAuditHandler(summaries metrics.Summarizer) *AuditHandler {
	return &AuditHandler{summaries: summaries, now: time.Now}
}

type AuditSummaryResponse struct {
	Since  time.Time         `json:"since" cbor:"since"`
	Window string            `json:"window" cbor:"window"`
	Events []metrics.Summary `json:"events" cbor:"events"`
}

// Summary GET /v1/audit/summary?window=1h
func (h *AuditHandler) Summary(c *fiber.Ctx) error {
	if h.summaries == nil {
		return domain.ErrUnsupportedOperation.WithError(errors.New("audit persistence is not configured"))
	}

	window := defaultSummaryWindow
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxSummaryWindow {
			return domain.ErrValidationFailed.WithError(fmt.Errorf("window %q must be a duration in (0, %s]", raw, maxSummaryWindow))
		}
		window = d
	}

	since := h.now().UTC().Add(-window)

	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	events, err := h.summaries.Summarize(ctx, since)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	return codec.Send(c, fiber.StatusOK, AuditSummaryResponse{
		Since:  since,
		Window: window.String(),
		Events: events,
	})
}
