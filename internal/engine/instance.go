package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/scoring"
)

// ModelPaths locates the model artifacts for one engine. AntiSpoofing is
// optional; the other three are mandatory.
type ModelPaths struct {
	Detector     string `json:"detector" cbor:"detector"`
	Landmarker   string `json:"landmarker" cbor:"landmarker"`
	Recognizer   string `json:"recognizer" cbor:"recognizer"`
	AntiSpoofing string `json:"anti_spoofing,omitempty" cbor:"anti_spoofing,omitempty"`
}

// Status describes a live engine.
type Status struct {
	Handle       Handle    `json:"handle" cbor:"handle"`
	Detector     string    `json:"detector" cbor:"detector"`
	Landmarker   string    `json:"landmarker" cbor:"landmarker"`
	Recognizer   string    `json:"recognizer" cbor:"recognizer"`
	AntiSpoofer  string    `json:"anti_spoofer,omitempty" cbor:"anti_spoofer,omitempty"`
	AntiSpoofing bool      `json:"anti_spoofing" cbor:"anti_spoofing"`
	CreatedAt    time.Time `json:"created_at" cbor:"created_at"`
}

var errReleased = errors.New("engine released")

// Instance exclusively owns the sub-components of one engine. Calls into the
// sub-components are serialized, and a released instance has every
// sub-component cleared so late callers observe an invalid handle instead
// of a closed model.
type Instance struct {
	mu sync.Mutex

	handle    Handle
	status    Status
	createdAt time.Time

	detector    provider.Detector
	landmarker  provider.Landmarker
	recognizer  provider.Recognizer
	antiSpoofer provider.AntiSpoofer
}

func (i *Instance) Handle() Handle {
	return i.handle
}

func (i *Instance) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	s := i.status
	s.Handle = i.handle
	s.AntiSpoofing = i.antiSpoofer != nil
	return s
}

func (i *Instance) HasAntiSpoofing() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.antiSpoofer != nil
}

func (i *Instance) Detect(ctx context.Context, img domain.ImageBuffer) ([]domain.DetectedFace, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.detector == nil {
		return nil, domain.ErrInvalidHandle.WithError(errReleased)
	}
	return i.detector.Detect(ctx, img)
}

// ExtractEncoding locates landmarks inside box and feeds them to the
// recognizer.
func (i *Instance) ExtractEncoding(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (domain.FaceEncoding, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.landmarker == nil || i.recognizer == nil {
		return nil, domain.ErrInvalidHandle.WithError(errReleased)
	}

	lm, err := i.landmarker.Mark(ctx, img, box)
	if err != nil {
		return nil, fmt.Errorf("landmarks: %w", err)
	}

	enc, err := i.recognizer.Extract(ctx, img, lm)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	return enc, nil
}

// Liveness returns the anti-spoofing score for box. Engines built without an
// anti-spoofer return ErrMissingCapability and no score.
func (i *Instance) Liveness(ctx context.Context, img domain.ImageBuffer, box domain.FaceBox) (float32, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.detector == nil {
		return 0, domain.ErrInvalidHandle.WithError(errReleased)
	}
	if i.antiSpoofer == nil {
		return 0, domain.ErrMissingCapability.WithMessage("Anti-spoofing not initialized")
	}
	return i.antiSpoofer.Predict(ctx, img, box)
}

// Compare uses the recognizer's calibrated similarity when it has one and
// the cosine remap otherwise.
func (i *Instance) Compare(a, b domain.FaceEncoding) (float32, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.recognizer == nil {
		return 0, domain.ErrInvalidHandle.WithError(errReleased)
	}
	if c, ok := i.recognizer.(provider.Comparer); ok {
		if len(a) != len(b) {
			return 0, domain.ErrDimensionMismatch.WithError(fmt.Errorf("%d vs %d", len(a), len(b)))
		}
		return c.Compare(a, b)
	}
	return scoring.Similarity(a, b)
}

func (i *Instance) close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var errs []error
	if i.antiSpoofer != nil {
		errs = append(errs, i.antiSpoofer.Close())
	}
	if i.recognizer != nil {
		errs = append(errs, i.recognizer.Close())
	}
	if i.landmarker != nil {
		errs = append(errs, i.landmarker.Close())
	}
	if i.detector != nil {
		errs = append(errs, i.detector.Close())
	}

	i.detector, i.landmarker, i.recognizer, i.antiSpoofer = nil, nil, nil, nil
	return errors.Join(errs...)
}

var _ provider.FaceEngine = (*Instance)(nil)
