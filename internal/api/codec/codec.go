// Package codec negotiates JSON or CBOR request and response bodies.
package codec

import (
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

// MIMECBOR is the content type of binary request and response bodies
const MIMECBOR = "application/cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	// match requests can carry more candidates than the default array limit
	if decMode, err = (cbor.DecOptions{MaxArrayElements: 1 << 20}).DecMode(); err != nil {
		panic(err)
	}
}

// IsCBOR reports whether the request body is CBOR.
func IsCBOR(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), MIMECBOR)
}

// WantsCBOR reports whether the response should be CBOR: the Accept header
// asks for it, or there is no Accept header and the request was CBOR.
func WantsCBOR(c *fiber.Ctx) bool {
	accept := c.Get(fiber.HeaderAccept)
	if accept == "" {
		return IsCBOR(c)
	}
	return strings.Contains(accept, MIMECBOR)
}

// Bind decodes the request body into v.
func Bind(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return domain.ErrBadRequest.WithMessage("Request body is empty")
	}

	if IsCBOR(c) {
		if err := decMode.Unmarshal(c.Body(), v); err != nil {
			return domain.ErrBadRequest.WithError(err)
		}
		return nil
	}

	if err := c.BodyParser(v); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	return nil
}

// Send writes v with the given status in the negotiated format.
func Send(c *fiber.Ctx, status int, v any) error {
	if !WantsCBOR(c) {
		return c.Status(status).JSON(v)
	}

	body, err := encMode.Marshal(v)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	c.Set(fiber.HeaderContentType, MIMECBOR)
	return c.Status(status).Send(body)
}

// Marshal encodes v as deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
