package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

// Detector localiza faces em um buffer de imagem
type Detector interface {
	// Detect returns zero or more faces in the detector's native order
	Detect(ctx context.Context, img domain.ImageBuffer) ([]domain.DetectedFace, error)
	Close() error
}

// Landmarker localiza pontos faciais dentro de uma região
type Landmarker interface {
	// Mark locates keypoints restricted to box
	Mark(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (domain.Landmarks, error)
	Close() error
}

// Recognizer extrai o vetor de características a partir dos pontos faciais
type Recognizer interface {
	// Extract computes an encoding conditioned on the given landmarks
	Extract(ctx context.Context, img domain.ImageBuffer, lm domain.Landmarks) (domain.FaceEncoding, error)
	Close() error
}

// AntiSpoofer estima a probabilidade de a face ser real
type AntiSpoofer interface {
	// Predict returns a liveness score in [0, 1]
	Predict(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (float32, error)
	Close() error
}

// Comparer is implemented by recognizers that ship a vendor-calibrated
// similarity. Without it the cosine remap in package scoring applies.
type Comparer interface {
	Compare(a, b domain.FaceEncoding) (float32, error)
}

// Loader builds sub-components from opaque model locators
type Loader interface {
	LoadDetector(ctx context.Context, path string) (Detector, error)
	LoadLandmarker(ctx context.Context, path string) (Landmarker, error)
	LoadRecognizer(ctx context.Context, path string) (Recognizer, error)
	LoadAntiSpoofer(ctx context.Context, path string) (AntiSpoofer, error)
}

// FaceEngine is the capability surface of a fully initialized engine. The
// mock and the vendor backends are interchangeable behind it.
type FaceEngine interface {
	Detect(ctx context.Context, img domain.ImageBuffer) ([]domain.DetectedFace, error)
	ExtractEncoding(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (domain.FaceEncoding, error)
	Liveness(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (float32, error)
	HasAntiSpoofing() bool
}
