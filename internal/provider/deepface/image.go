package deepface

import (
	"encoding/base64"
	"fmt"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

// dataURIPrefix marks the payload as an inline PNG for the DeepFace server
const dataURIPrefix = "data:image/png;base64,"

// encodeImage renders buf as a base64 PNG data URI. A non-nil crop restricts
// the payload to that region.
func encodeImage(buf domain.ImageBuffer, crop *domain.FaceBox) (string, error) {
	raw, err := buf.EncodePNG(crop)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(raw), nil
}
