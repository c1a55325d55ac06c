package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/api/codec"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/bridge"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/config"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/engine"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/scoring"
)

// EngineHandler exposes engine lifecycle and per-engine inference
type EngineHandler struct {
	bridge  *bridge.Bridge
	presets *config.Presets
	logger  *slog.Logger
}

func NewEngineHandler(b *bridge.Bridge, presets *config.Presets, logger *slog.Logger) *EngineHandler {
	return &EngineHandler{
		bridge:  b,
		presets: presets,
		logger:  logger.With("component", "engine_handler"),
	}
}

// InitializeRequest names model paths directly or through a preset. With
// neither, the default preset is used.
type InitializeRequest struct {
	Detector     string `json:"detector" cbor:"detector"`
	Landmarker   string `json:"landmarker" cbor:"landmarker"`
	Recognizer   string `json:"recognizer" cbor:"recognizer"`
	AntiSpoofing string `json:"anti_spoofing" cbor:"anti_spoofing"`
	Preset       string `json:"preset" cbor:"preset"`
}

func (r InitializeRequest) explicit() bool {
	return r.Detector != "" || r.Landmarker != "" || r.Recognizer != "" || r.AntiSpoofing != ""
}

type InitializeResponse struct {
	Handle int64 `json:"handle" cbor:"handle"`
}

type EnginesResponse struct {
	Engines []engine.Status `json:"engines" cbor:"engines"`
}

type DetectRequest struct {
	Image ImagePayload `json:"image" cbor:"image"`
}

type DetectResponse struct {
	Faces []domain.DetectedFace `json:"faces" cbor:"faces"`
	Flat  []float32             `json:"flat" cbor:"flat"`
}

// FaceRequest is an image plus the face box to work on
type FaceRequest struct {
	Image ImagePayload   `json:"image" cbor:"image"`
	Box   domain.FaceBox `json:"box" cbor:"box"`
}

type EncodingResponse struct {
	Encoding  []float32 `json:"encoding" cbor:"encoding"`
	Dimension int       `json:"dimension" cbor:"dimension"`
}

// LivenessResponse reports the anti-spoofing score. Warning is set when the
// engine has no anti-spoofer and the score was assumed.
type LivenessResponse struct {
	Score   float32 `json:"score" cbor:"score"`
	Live    bool    `json:"live" cbor:"live"`
	Warning string  `json:"warning,omitempty" cbor:"warning,omitempty"`
}

// Initialize POST /v1/engines
func (h *EngineHandler) Initialize(c *fiber.Ctx) error {
	var req InitializeRequest
	if err := codec.Bind(c, &req); err != nil {
		return err
	}

	paths, err := h.resolvePaths(req)
	if err != nil {
		return err
	}

	handle, err := h.bridge.InitializeWith(c.UserContext(), paths)
	if err != nil {
		return err
	}

	h.logger.Info("engine initialized", "handle", handle, "preset", req.Preset)
	return codec.Send(c, fiber.StatusCreated, InitializeResponse{Handle: handle})
}

func (h *EngineHandler) resolvePaths(req InitializeRequest) (engine.ModelPaths, error) {
	if req.explicit() {
		if req.Preset != "" {
			return engine.ModelPaths{}, domain.ErrValidationFailed.WithError(errors.New("preset and explicit model paths are mutually exclusive"))
		}
		return engine.ModelPaths{
			Detector:     req.Detector,
			Landmarker:   req.Landmarker,
			Recognizer:   req.Recognizer,
			AntiSpoofing: req.AntiSpoofing,
		}, nil
	}

	preset, err := h.presets.Get(req.Preset)
	if err != nil {
		return engine.ModelPaths{}, domain.ErrValidationFailed.WithError(err)
	}
	return preset.Paths(), nil
}

// List GET /v1/engines
func (h *EngineHandler) List(c *fiber.Ctx) error {
	return codec.Send(c, fiber.StatusOK, EnginesResponse{Engines: h.bridge.Status()})
}

// Release DELETE /v1/engines/:handle - idempotent
func (h *EngineHandler) Release(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}

	h.bridge.Release(handle)
	return c.SendStatus(fiber.StatusNoContent)
}

// Detect POST /v1/engines/:handle/detect
func (h *EngineHandler) Detect(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}

	var req DetectRequest
	if err := codec.Bind(c, &req); err != nil {
		return err
	}

	img := req.Image
	flat, err := h.bridge.Detect(c.UserContext(), handle, img.Pixels, img.Width, img.Height, img.Channels)
	if err != nil {
		return err
	}

	return codec.Send(c, fiber.StatusOK, DetectResponse{
		Faces: bridge.UnflattenDetections(flat),
		Flat:  flat,
	})
}

// Encoding POST /v1/engines/:handle/encoding
func (h *EngineHandler) Encoding(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}

	var req FaceRequest
	if err := codec.Bind(c, &req); err != nil {
		return err
	}

	img, box := req.Image, req.Box
	enc, err := h.bridge.ExtractEncoding(c.UserContext(), handle,
		img.Pixels, img.Width, img.Height, img.Channels,
		box.X, box.Y, box.Width, box.Height)
	if err != nil {
		return err
	}

	return codec.Send(c, fiber.StatusOK, EncodingResponse{Encoding: enc, Dimension: len(enc)})
}

// Liveness POST /v1/engines/:handle/liveness
func (h *EngineHandler) Liveness(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}

	var req FaceRequest
	if err := codec.Bind(c, &req); err != nil {
		return err
	}

	img, box := req.Image, req.Box
	score, err := h.bridge.DetectLiveness(c.UserContext(), handle,
		img.Pixels, img.Width, img.Height, img.Channels,
		box.X, box.Y, box.Width, box.Height)

	resp := LivenessResponse{Score: score, Live: scoring.IsLive(score, scoring.DefaultLivenessThreshold)}
	switch {
	case errors.Is(err, domain.ErrMissingCapability):
		resp.Warning = h.bridge.LastErrorFor(handle)
	case err != nil:
		return err
	}

	return codec.Send(c, fiber.StatusOK, resp)
}

// LastError GET /v1/engines/:handle/errors/last
func (h *EngineHandler) LastError(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}
	return codec.Send(c, fiber.StatusOK, LastErrorResponse{Message: h.bridge.LastErrorFor(handle)})
}
