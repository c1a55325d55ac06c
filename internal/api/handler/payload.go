package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

// ImagePayload is a raw interleaved row-major pixel buffer. Pixels is base64
// in JSON and a byte string in CBOR.
type ImagePayload struct {
	Width    int32  `json:"width" cbor:"width"`
	Height   int32  `json:"height" cbor:"height"`
	Channels int32  `json:"channels" cbor:"channels"`
	Pixels   []byte `json:"pixels" cbor:"pixels"`
}

// LastErrorResponse carries the last-error channel. Message is empty when
// nothing failed.
type LastErrorResponse struct {
	Message string `json:"message" cbor:"message"`
}

func handleParam(c *fiber.Ctx) (int64, error) {
	raw := c.Params("handle")
	h, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.ErrValidationFailed.WithError(errors.New("handle must be an integer"))
	}
	return h, nil
}
