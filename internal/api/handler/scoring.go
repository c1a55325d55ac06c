package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/api/codec"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/bridge"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/scoring"
)

// ScoringHandler serves the operations that need no engine
type ScoringHandler struct {
	bridge *bridge.Bridge
}

func NewScoringHandler(b *bridge.Bridge) *ScoringHandler {
	return &ScoringHandler{bridge: b}
}

// CompareRequest compares two encodings. When Handle is set the engine's
// recognizer may supply a calibrated similarity.
type CompareRequest struct {
	A      []float32 `json:"a" cbor:"a"`
	B      []float32 `json:"b" cbor:"b"`
	Handle *int64    `json:"handle,omitempty" cbor:"handle,omitempty"`
}

type CompareResponse struct {
	Similarity float32 `json:"similarity" cbor:"similarity"`
	Distance   float32 `json:"distance" cbor:"distance"`
}

type MatchRequest struct {
	Probe         []float32   `json:"probe" cbor:"probe"`
	Candidates    [][]float32 `json:"candidates" cbor:"candidates"`
	MaxDistance   *float32    `json:"max_distance,omitempty" cbor:"max_distance,omitempty"`
	MinConfidence *float32    `json:"min_confidence,omitempty" cbor:"min_confidence,omitempty"`
}

type QualityRequest struct {
	Image ImagePayload `json:"image" cbor:"image"`
}

type QualityResponse struct {
	Score      float32 `json:"score" cbor:"score"`
	Acceptable bool    `json:"acceptable" cbor:"acceptable"`
}

// Compare POST /v1/encodings/compare
func (h *ScoringHandler) Compare(c *fiber.Ctx) error {
	var req CompareRequest
	if err := codec.Bind(c, &req); err != nil {
		return err
	}

	var (
		sim float32
		err error
	)
	if req.Handle != nil {
		sim, err = h.bridge.CompareWith(*req.Handle, req.A, req.B)
	} else {
		sim, err = h.bridge.CompareEncodings(req.A, req.B)
	}
	if err != nil {
		return err
	}

	return codec.Send(c, fiber.StatusOK, CompareResponse{
		Similarity: sim,
		Distance:   scoring.Distance(sim),
	})
}

// Match POST /v1/encodings/match - 1:N search over caller-held candidates
func (h *ScoringHandler) Match(c *fiber.Ctx) error {
	var req MatchRequest
	if err := codec.Bind(c, &req); err != nil {
		return err
	}

	if len(req.Probe) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("probe is required"))
	}
	if len(req.Candidates) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("at least one candidate is required"))
	}

	opts := scoring.DefaultMatchOptions()
	if req.MaxDistance != nil {
		opts.MaxDistance = *req.MaxDistance
	}
	if req.MinConfidence != nil {
		opts.MinConfidence = *req.MinConfidence
	}

	candidates := make([]domain.FaceEncoding, len(req.Candidates))
	for i, cand := range req.Candidates {
		candidates[i] = cand
	}

	return codec.Send(c, fiber.StatusOK, scoring.BestMatch(req.Probe, candidates, opts))
}

// Quality POST /v1/quality
func (h *ScoringHandler) Quality(c *fiber.Ctx) error {
	var req QualityRequest
	if err := codec.Bind(c, &req); err != nil {
		return err
	}

	img := req.Image
	score, err := h.bridge.AssessQuality(img.Pixels, img.Width, img.Height, img.Channels)
	if err != nil {
		return err
	}

	return codec.Send(c, fiber.StatusOK, QualityResponse{
		Score:      score,
		Acceptable: scoring.PassesQuality(score, scoring.DefaultQualityThreshold),
	})
}

// LastError GET /v1/errors/last
func (h *ScoringHandler) LastError(c *fiber.Ctx) error {
	return codec.Send(c, fiber.StatusOK, LastErrorResponse{Message: h.bridge.LastError()})
}
