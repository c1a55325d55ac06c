//go:build dlib

package dlib

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
)

// jpegQuality keeps re-encoded frames close to the caller's pixels
const jpegQuality = 95

// Loader opens one go-face recognizer per component. go-face recognizers
// are not safe for concurrent use, and each engine serializes its own calls.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) LoadDetector(_ context.Context, dir string) (provider.Detector, error) {
	m, err := open(dir)
	if err != nil {
		return nil, err
	}
	return &Detector{model: m}, nil
}

func (l *Loader) LoadLandmarker(_ context.Context, dir string) (provider.Landmarker, error) {
	m, err := open(dir)
	if err != nil {
		return nil, err
	}
	return &Landmarker{model: m}, nil
}

func (l *Loader) LoadRecognizer(_ context.Context, dir string) (provider.Recognizer, error) {
	m, err := open(dir)
	if err != nil {
		return nil, err
	}
	return &Recognizer{model: m}, nil
}

func (l *Loader) LoadAntiSpoofer(context.Context, string) (provider.AntiSpoofer, error) {
	return nil, domain.ErrUnsupportedOperation.WithError(fmt.Errorf("dlib ships no anti-spoofing model"))
}

type model struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

func open(dir string) (*model, error) {
	if dir == "" {
		return nil, fmt.Errorf("dlib: empty model directory")
	}
	rec, err := face.NewRecognizer(dir)
	if err != nil {
		return nil, fmt.Errorf("dlib: load models from %s: %w", dir, err)
	}
	return &model{rec: rec}, nil
}

// recognize runs detection, shape prediction and description over img,
// restricted to crop when it is non-nil
func (m *model) recognize(img domain.ImageBuffer, crop *domain.FaceBox) ([]face.Face, error) {
	src, err := img.Crop(crop)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("dlib: encode frame: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, fmt.Errorf("dlib: model closed")
	}
	return m.rec.Recognize(buf.Bytes())
}

func (m *model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec != nil {
		m.rec.Close()
		m.rec = nil
	}
	return nil
}

// Detector reports every face dlib finds. dlib gives no detection score, so
// confidence is always 1.
type Detector struct{ model *model }

func (d *Detector) Detect(_ context.Context, img domain.ImageBuffer) ([]domain.DetectedFace, error) {
	found, err := d.model.recognize(img, nil)
	if err != nil {
		return nil, err
	}

	faces := make([]domain.DetectedFace, 0, len(found))
	for _, f := range found {
		box := rectBox(f).Clip(img.Width, img.Height)
		if !box.Valid() {
			continue
		}
		faces = append(faces, domain.DetectedFace{Box: box, Confidence: 1})
	}
	return faces, nil
}

func (d *Detector) Close() error { return d.model.Close() }

// Landmarker returns the five-point shape of the largest face in the box
type Landmarker struct{ model *model }

func (m *Landmarker) Mark(_ context.Context, img domain.ImageBuffer, box domain.FaceBox) (domain.Landmarks, error) {
	clipped := box.Clip(img.Width, img.Height)
	found, err := m.model.recognize(img, &clipped)
	if err != nil {
		return domain.Landmarks{}, err
	}
	f, ok := largest(found)
	if !ok {
		return domain.Landmarks{}, ErrNoFaceDetected
	}

	// shapes come back relative to the encoded crop
	lm := domain.Landmarks{Box: clipped, Points: make([]domain.Point, 0, len(f.Shapes))}
	for _, p := range f.Shapes {
		lm.Points = append(lm.Points, domain.Point{
			X: float32(clipped.X) + float32(p.X),
			Y: float32(clipped.Y) + float32(p.Y),
		})
	}
	return lm, nil
}

func (m *Landmarker) Close() error { return m.model.Close() }

// Recognizer returns the 128-d descriptor of the largest face in the
// landmark box
type Recognizer struct{ model *model }

func (r *Recognizer) Extract(_ context.Context, img domain.ImageBuffer, lm domain.Landmarks) (domain.FaceEncoding, error) {
	found, err := r.model.recognize(img, &lm.Box)
	if err != nil {
		return nil, err
	}
	f, ok := largest(found)
	if !ok {
		return nil, ErrNoFaceDetected
	}

	enc := make(domain.FaceEncoding, DescriptorSize)
	copy(enc, f.Descriptor[:])
	return enc, nil
}

// Compare uses the distance-calibrated similarity
func (r *Recognizer) Compare(a, b domain.FaceEncoding) (float32, error) {
	return Similarity(a, b)
}

func (r *Recognizer) Close() error { return r.model.Close() }

func rectBox(f face.Face) domain.FaceBox {
	return domain.FaceBox{
		X:      int32(f.Rectangle.Min.X),
		Y:      int32(f.Rectangle.Min.Y),
		Width:  int32(f.Rectangle.Dx()),
		Height: int32(f.Rectangle.Dy()),
	}
}

func largest(found []face.Face) (face.Face, bool) {
	if len(found) == 0 {
		return face.Face{}, false
	}
	best := found[0]
	for _, f := range found[1:] {
		if rectBox(f).Area() > rectBox(best).Area() {
			best = f
		}
	}
	return best, true
}

var (
	_ provider.Loader     = (*Loader)(nil)
	_ provider.Detector   = (*Detector)(nil)
	_ provider.Landmarker = (*Landmarker)(nil)
	_ provider.Recognizer = (*Recognizer)(nil)
	_ provider.Comparer   = (*Recognizer)(nil)
)
