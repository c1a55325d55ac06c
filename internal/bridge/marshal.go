package bridge

import (
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

// DetectionStride is the number of floats per face in a flattened detection
// result: x, y, width, height, confidence.
const DetectionStride = 5

// NewImage wraps caller memory without copying it.
func NewImage(pixels []byte, width, height, channels int32) domain.ImageBuffer {
	return domain.ImageBuffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pixels:   pixels,
	}
}

func NewBox(x, y, width, height int32) domain.FaceBox {
	return domain.FaceBox{X: x, Y: y, Width: width, Height: height}
}

// FlattenDetections concatenates DetectionStride values per face, keeping the
// detector's order. No faces yields an empty, non-nil slice.
func FlattenDetections(faces []domain.DetectedFace) []float32 {
	out := make([]float32, 0, len(faces)*DetectionStride)
	for _, f := range faces {
		out = append(out,
			float32(f.Box.X),
			float32(f.Box.Y),
			float32(f.Box.Width),
			float32(f.Box.Height),
			f.Confidence,
		)
	}
	return out
}

// UnflattenDetections parses a flattened detection result. A length that is
// not a multiple of DetectionStride yields nothing; boxes without a positive
// extent are dropped.
func UnflattenDetections(flat []float32) []domain.DetectedFace {
	if len(flat)%DetectionStride != 0 {
		return nil
	}

	faces := make([]domain.DetectedFace, 0, len(flat)/DetectionStride)
	for i := 0; i < len(flat); i += DetectionStride {
		f := domain.DetectedFace{
			Box: domain.FaceBox{
				X:      int32(flat[i]),
				Y:      int32(flat[i+1]),
				Width:  int32(flat[i+2]),
				Height: int32(flat[i+3]),
			},
			Confidence: flat[i+4],
		}
		if !f.Box.Valid() {
			continue
		}
		faces = append(faces, f)
	}
	return faces
}
