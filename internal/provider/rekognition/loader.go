// Package rekognition serves detection, landmark and liveness components from
// AWS Rekognition. The model locator names the AWS region
// ("rekognition://sa-east-1"); an empty locator uses Config.Region.
// Rekognition does not expose face encodings, so no recognizer is offered.
package rekognition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
)

// Loader implements provider.Loader. Clients are created lazily, one per
// region, and shared by every component of that region.
type Loader struct {
	cfg    Config
	newAPI func(ctx context.Context, region string) (API, error)

	mu      sync.Mutex
	clients map[string]API
}

// LoaderOption defines optional configuration for Loader
type LoaderOption func(*Loader)

// WithAPIFactory replaces how per-region clients are built
func WithAPIFactory(fn func(ctx context.Context, region string) (API, error)) LoaderOption {
	return func(l *Loader) {
		l.newAPI = fn
	}
}

func NewLoader(cfg Config, opts ...LoaderOption) *Loader {
	l := &Loader{
		cfg:     cfg,
		newAPI:  NewAPI,
		clients: make(map[string]API),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) client(ctx context.Context, locator string) (API, error) {
	region := l.cfg.regionFor(locator)

	l.mu.Lock()
	defer l.mu.Unlock()

	if api, ok := l.clients[region]; ok {
		return api, nil
	}
	api, err := l.newAPI(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client for %s: %w", region, err)
	}
	l.clients[region] = api
	return api, nil
}

func (l *Loader) LoadDetector(ctx context.Context, locator string) (provider.Detector, error) {
	api, err := l.client(ctx, locator)
	if err != nil {
		return nil, err
	}
	return &Detector{api: api, minConfidence: l.cfg.MinConfidence}, nil
}

func (l *Loader) LoadLandmarker(ctx context.Context, locator string) (provider.Landmarker, error) {
	api, err := l.client(ctx, locator)
	if err != nil {
		return nil, err
	}
	return &Landmarker{api: api}, nil
}

func (l *Loader) LoadRecognizer(context.Context, string) (provider.Recognizer, error) {
	return nil, domain.ErrUnsupportedOperation.WithError(errors.New("rekognition does not expose face encodings"))
}

func (l *Loader) LoadAntiSpoofer(ctx context.Context, locator string) (provider.AntiSpoofer, error) {
	api, err := l.client(ctx, locator)
	if err != nil {
		return nil, err
	}
	return &AntiSpoofer{api: api}, nil
}

// Detector calls DetectFaces on the whole image
type Detector struct {
	api           API
	minConfidence float32
}

func (d *Detector) Detect(ctx context.Context, img domain.ImageBuffer) ([]domain.DetectedFace, error) {
	details, err := detectFaces(ctx, d.api, img, nil)
	if err != nil {
		return nil, err
	}

	faces := make([]domain.DetectedFace, 0, len(details))
	for _, detail := range details {
		box := ratioBox(detail.BoundingBox, img.Width, img.Height).Clip(img.Width, img.Height)
		confidence := deref(detail.Confidence) / 100
		if !box.Valid() || confidence < d.minConfidence {
			continue
		}
		faces = append(faces, domain.DetectedFace{Box: box, Confidence: confidence})
	}
	return faces, nil
}

func (d *Detector) Close() error { return nil }

// Landmarker calls DetectFaces on the box crop and keeps the landmarks of the
// largest face found there
type Landmarker struct {
	api API
}

func (m *Landmarker) Mark(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (domain.Landmarks, error) {
	clipped := box.Clip(img.Width, img.Height)

	details, err := detectFaces(ctx, m.api, img, &clipped)
	if err != nil {
		return domain.Landmarks{}, err
	}
	detail, ok := largest(details)
	if !ok {
		return domain.Landmarks{}, ErrNoFaceDetected
	}

	lm := domain.Landmarks{Box: clipped, Points: make([]domain.Point, 0, len(detail.Landmarks))}
	for _, l := range detail.Landmarks {
		lm.Points = append(lm.Points, domain.Point{
			X: float32(clipped.X) + deref(l.X)*float32(clipped.Width),
			Y: float32(clipped.Y) + deref(l.Y)*float32(clipped.Height),
		})
	}
	return lm, nil
}

func (m *Landmarker) Close() error { return nil }

// AntiSpoofer approximates liveness from Rekognition's face attributes.
// Rekognition's passive liveness needs a video session, so the score is the
// face quality (sharpness weighted over brightness), halved when the eyes are
// reported closed.
type AntiSpoofer struct {
	api API
}

func (a *AntiSpoofer) Predict(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (float32, error) {
	clipped := box.Clip(img.Width, img.Height)

	details, err := detectFaces(ctx, a.api, img, &clipped, types.AttributeAll)
	if err != nil {
		return 0, err
	}
	detail, ok := largest(details)
	if !ok {
		return 0, ErrNoFaceDetected
	}

	score := calculateQualityScore(detail.Quality)
	if detail.EyesOpen != nil && !detail.EyesOpen.Value {
		score *= 0.5
	}
	return score, nil
}

func (a *AntiSpoofer) Close() error { return nil }

// calculateQualityScore computes an overall quality score from Rekognition
// quality metrics, between 0.0 (poor) and 1.0 (excellent)
func calculateQualityScore(quality *types.ImageQuality) float32 {
	if quality == nil {
		return 0
	}

	brightness := deref(quality.Brightness) / 100
	sharpness := deref(quality.Sharpness) / 100

	// nitidez pesa mais para reconhecimento
	return brightness*0.3 + sharpness*0.7
}

func largest(details []types.FaceDetail) (types.FaceDetail, bool) {
	if len(details) == 0 {
		return types.FaceDetail{}, false
	}

	best := details[0]
	bestArea := area(best.BoundingBox)
	for _, d := range details[1:] {
		if a := area(d.BoundingBox); a > bestArea {
			best, bestArea = d, a
		}
	}
	return best, true
}

func area(bb *types.BoundingBox) float32 {
	if bb == nil {
		return 0
	}
	return deref(bb.Width) * deref(bb.Height)
}

var (
	_ provider.Loader      = (*Loader)(nil)
	_ provider.Detector    = (*Detector)(nil)
	_ provider.Landmarker  = (*Landmarker)(nil)
	_ provider.AntiSpoofer = (*AntiSpoofer)(nil)
)
