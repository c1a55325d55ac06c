package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/scoring"
)

const (
	// EncodingDimension is the length of every mock encoding
	EncodingDimension = 512

	// DetectionConfidence is reported for the single synthetic face
	DetectionConfidence float32 = 0.95

	// LivenessScore is returned by the mock anti-spoofer
	LivenessScore float32 = 0.95
)

var (
	ErrEmptyModelPath = errors.New("mock: empty model path")
	ErrBoxOutside     = errors.New("mock: face box does not intersect the image")
)

// Loader implementa provider.Loader sem modelos reais, para testes e desenvolvimento
type Loader struct{}

// New cria uma nova instância do Loader mock
func New() *Loader {
	return &Loader{}
}

func (l *Loader) LoadDetector(ctx context.Context, path string) (provider.Detector, error) {
	if path == "" {
		return nil, ErrEmptyModelPath
	}
	return &Detector{}, nil
}

func (l *Loader) LoadLandmarker(ctx context.Context, path string) (provider.Landmarker, error) {
	if path == "" {
		return nil, ErrEmptyModelPath
	}
	return &Landmarker{}, nil
}

func (l *Loader) LoadRecognizer(ctx context.Context, path string) (provider.Recognizer, error) {
	if path == "" {
		return nil, ErrEmptyModelPath
	}
	return &Recognizer{}, nil
}

func (l *Loader) LoadAntiSpoofer(ctx context.Context, path string) (provider.AntiSpoofer, error) {
	if path == "" {
		return nil, ErrEmptyModelPath
	}
	return &AntiSpoofer{}, nil
}

type closer struct {
	closed atomic.Bool
}

func (c *closer) Close() error {
	c.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called
func (c *closer) Closed() bool {
	return c.closed.Load()
}

// Detector reporta uma única face centralizada cobrindo metade de cada dimensão
type Detector struct{ closer }

func (d *Detector) Detect(ctx context.Context, img domain.ImageBuffer) ([]domain.DetectedFace, error) {
	w, h := float32(img.Width), float32(img.Height)

	return []domain.DetectedFace{
		{
			Box: domain.FaceBox{
				X:      int32(w * 0.25),
				Y:      int32(h * 0.25),
				Width:  int32(w * 0.5),
				Height: int32(h * 0.5),
			},
			Confidence: DetectionConfidence,
		},
	}, nil
}

// Landmarker posiciona cinco pontos em proporções fixas da caixa
type Landmarker struct{ closer }

var fivePointLayout = [5][2]float32{
	{0.30, 0.35}, // left eye
	{0.70, 0.35}, // right eye
	{0.50, 0.55}, // nose tip
	{0.35, 0.75}, // mouth left
	{0.65, 0.75}, // mouth right
}

func (m *Landmarker) Mark(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (domain.Landmarks, error) {
	clipped := box.Clip(img.Width, img.Height)
	if !clipped.Valid() {
		return domain.Landmarks{}, ErrBoxOutside
	}

	points := make([]domain.Point, len(fivePointLayout))
	for i, p := range fivePointLayout {
		points[i] = domain.Point{
			X: float32(clipped.X) + p[0]*float32(clipped.Width),
			Y: float32(clipped.Y) + p[1]*float32(clipped.Height),
		}
	}

	return domain.Landmarks{Box: clipped, Points: points}, nil
}

// Recognizer gera encoding determinístico a partir do hash da região da face
type Recognizer struct{ closer }

func (r *Recognizer) Extract(ctx context.Context, img domain.ImageBuffer, lm domain.Landmarks) (domain.FaceEncoding, error) {
	clipped := lm.Box.Clip(img.Width, img.Height)
	if !clipped.Valid() {
		return nil, ErrBoxOutside
	}
	return generateEncoding(img, clipped), nil
}

// AntiSpoofer sempre considera a face real
type AntiSpoofer struct{ closer }

func (a *AntiSpoofer) Predict(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (float32, error) {
	return LivenessScore, nil
}

// generateEncoding expands a digest of the box geometry and crop pixels into
// EncodingDimension values in [-1, 1], then L2-normalizes them.
func generateEncoding(img domain.ImageBuffer, box domain.FaceBox) domain.FaceEncoding {
	h := sha256.New()
	_ = binary.Write(h, binary.LittleEndian, [4]int32{box.X, box.Y, box.Width, box.Height})

	rowStart := int(box.X) * int(img.Channels)
	rowLen := int(box.Width) * int(img.Channels)
	stride := int(img.Width) * int(img.Channels)
	for y := int(box.Y); y < int(box.Y+box.Height); y++ {
		off := y*stride + rowStart
		h.Write(img.Pixels[off : off+rowLen])
	}
	seed := h.Sum(nil)

	values := make([]float64, 0, EncodingDimension)
	var block [4]byte
	for counter := uint32(0); len(values) < EncodingDimension; counter++ {
		binary.LittleEndian.PutUint32(block[:], counter)
		digest := sha256.Sum256(append(seed, block[:]...))
		for _, b := range digest {
			if len(values) == EncodingDimension {
				break
			}
			values = append(values, (float64(b)/255.0)*2-1)
		}
	}

	scoring.Normalize(values)

	enc := make(domain.FaceEncoding, EncodingDimension)
	for i, v := range values {
		enc[i] = float32(v)
	}
	return enc
}

var (
	_ provider.Loader      = (*Loader)(nil)
	_ provider.Detector    = (*Detector)(nil)
	_ provider.Landmarker  = (*Landmarker)(nil)
	_ provider.Recognizer  = (*Recognizer)(nil)
	_ provider.AntiSpoofer = (*AntiSpoofer)(nil)
)
