// Package deepface serves engine components from a DeepFace HTTP server.
// Model locators name the DeepFace model or detector backend to use, e.g.
// "deepface://retinaface" for a detector or "deepface://Facenet512" for a
// recognizer. An empty locator keeps the client defaults.
package deepface

import (
	"context"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
)

const (
	// minFaceArea is the minimum face area (in pixels²) for reliable detection
	minFaceArea = 2500 // 50x50 pixels
	// maxFaceArea is used for confidence scaling
	maxFaceArea = 250000 // 500x500 pixels

	// skipDetector tells DeepFace the payload is already a face crop
	skipDetector = "skip"
)

// Loader implements provider.Loader on top of a shared DeepFace client
type Loader struct {
	client *Client
}

func NewLoader(config Config) *Loader {
	return &Loader{client: NewClient(config)}
}

func (l *Loader) LoadDetector(_ context.Context, locator string) (provider.Detector, error) {
	return &Detector{client: l.client, backend: locator}, nil
}

func (l *Loader) LoadLandmarker(_ context.Context, locator string) (provider.Landmarker, error) {
	return &Landmarker{client: l.client, backend: locator}, nil
}

func (l *Loader) LoadRecognizer(_ context.Context, locator string) (provider.Recognizer, error) {
	return &Recognizer{client: l.client, model: locator}, nil
}

func (l *Loader) LoadAntiSpoofer(_ context.Context, locator string) (provider.AntiSpoofer, error) {
	return &AntiSpoofer{client: l.client, backend: locator}, nil
}

// Detector runs the configured DeepFace detector backend over the whole image
type Detector struct {
	client  *Client
	backend string
}

func (d *Detector) Detect(ctx context.Context, img domain.ImageBuffer) ([]domain.DetectedFace, error) {
	payload, err := encodeImage(img, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.ExtractFaces(ctx, ExtractFacesRequest{Img: payload, Detector: d.backend})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]domain.DetectedFace, 0, len(resp.Results))
	for _, r := range resp.Results {
		box := r.FacialArea.box()
		if !box.Valid() {
			continue
		}

		confidence := r.Confidence
		if confidence <= 0 {
			confidence = calculateConfidence(float64(box.Area()))
		}
		faces = append(faces, domain.DetectedFace{Box: box, Confidence: float32(confidence)})
	}

	return faces, nil
}

func (d *Detector) Close() error { return nil }

// calculateConfidence estimates confidence based on face area for detector
// backends that report none. Larger faces are more likely to be accurately
// detected.
func calculateConfidence(faceArea float64) float64 {
	if faceArea < minFaceArea {
		return 0.5
	}
	// 0.7 a 0.99 conforme a área
	normalized := math.Min(1.0, (faceArea-minFaceArea)/(maxFaceArea-minFaceArea))
	return 0.7 + (normalized * 0.29)
}

// Landmarker re-detects inside the box and reports the eye centers DeepFace
// returns. When the backend finds no eyes the box is returned without points.
type Landmarker struct {
	client  *Client
	backend string
}

func (m *Landmarker) Mark(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (domain.Landmarks, error) {
	clipped := box.Clip(img.Width, img.Height)
	payload, err := encodeImage(img, &clipped)
	if err != nil {
		return domain.Landmarks{}, err
	}

	resp, err := m.client.ExtractFaces(ctx, ExtractFacesRequest{Img: payload, Detector: m.backend})
	if err != nil {
		return domain.Landmarks{}, fmt.Errorf("landmarks: %w", err)
	}

	lm := domain.Landmarks{Box: clipped}
	if len(resp.Results) == 0 {
		return lm, nil
	}

	area := resp.Results[0].FacialArea
	for _, eye := range []*[2]int{area.LeftEye, area.RightEye} {
		if eye == nil {
			continue
		}
		lm.Points = append(lm.Points, domain.Point{
			X: float32(clipped.X) + float32(eye[0]),
			Y: float32(clipped.Y) + float32(eye[1]),
		})
	}
	return lm, nil
}

func (m *Landmarker) Close() error { return nil }

// Recognizer sends the landmarked crop to /represent with detection skipped
type Recognizer struct {
	client *Client
	model  string
}

func (r *Recognizer) Extract(ctx context.Context, img domain.ImageBuffer, lm domain.Landmarks) (domain.FaceEncoding, error) {
	payload, err := encodeImage(img, &lm.Box)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Represent(ctx, RepresentRequest{
		Img:      payload,
		Model:    r.model,
		Detector: skipDetector,
		Align:    len(lm.Points) > 0,
	})
	if err != nil {
		return nil, fmt.Errorf("represent: %w", err)
	}
	if len(resp.Results) == 0 || len(resp.Results[0].Embedding) == 0 {
		return nil, ErrNoFaceInResponse
	}

	embedding := resp.Results[0].Embedding
	enc := make(domain.FaceEncoding, len(embedding))
	for i, v := range embedding {
		enc[i] = float32(v)
	}
	return enc, nil
}

func (r *Recognizer) Close() error { return nil }

// AntiSpoofer uses the anti-spoofing model DeepFace runs during face
// extraction. The score is the model's confidence that the face is real.
type AntiSpoofer struct {
	client  *Client
	backend string
}

func (a *AntiSpoofer) Predict(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (float32, error) {
	clipped := box.Clip(img.Width, img.Height)
	payload, err := encodeImage(img, &clipped)
	if err != nil {
		return 0, err
	}

	resp, err := a.client.ExtractFaces(ctx, ExtractFacesRequest{
		Img:          payload,
		Detector:     a.backend,
		AntiSpoofing: true,
	})
	if err != nil {
		return 0, fmt.Errorf("anti-spoofing: %w", err)
	}
	if len(resp.Results) == 0 {
		return 0, ErrNoFaceInResponse
	}

	r := resp.Results[0]
	if r.IsReal == nil {
		return 0, ErrNoAntiSpoofVerdict
	}

	score := clamp01(r.AntispoofScore)
	if !*r.IsReal {
		score = 1 - score
	}
	return float32(score), nil
}

func (a *AntiSpoofer) Close() error { return nil }

func (f FacialArea) box() domain.FaceBox {
	return domain.FaceBox{
		X:      int32(f.X),
		Y:      int32(f.Y),
		Width:  int32(f.W),
		Height: int32(f.H),
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

var (
	_ provider.Loader      = (*Loader)(nil)
	_ provider.Detector    = (*Detector)(nil)
	_ provider.Landmarker  = (*Landmarker)(nil)
	_ provider.Recognizer  = (*Recognizer)(nil)
	_ provider.AntiSpoofer = (*AntiSpoofer)(nil)
)
