// Package bridge exposes the engine registry through a flat, primitive-typed
// call surface. Every operation returns a fixed sentinel on failure, records
// a readable message in the last-error channel and also returns the error.
// Nothing panics across the boundary.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/audit"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/engine"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/scoring"
)

// Sentinels returned when an operation fails.
const (
	InvalidHandle    int64   = -1
	NoScore          float32 = 0
	AssumedLiveScore float32 = 1
)

const antiSpoofingAbsent = "Anti-spoofing not initialized"

type Bridge struct {
	registry  *engine.Registry
	errs      *LastError
	audit     audit.Logger
	logger    *slog.Logger
	backendOf func(path string) string
}

type Option func(*Bridge)

func WithAuditLogger(l audit.Logger) Option {
	return func(b *Bridge) {
		b.audit = l
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l.With("component", "bridge")
	}
}

// WithBackendNamer labels audit events with the backend serving a model path.
func WithBackendNamer(fn func(path string) string) Option {
	return func(b *Bridge) {
		b.backendOf = fn
	}
}

func New(registry *engine.Registry, opts ...Option) *Bridge {
	b := &Bridge{
		registry:  registry,
		errs:      NewLastError(),
		audit:     &audit.NoOpLogger{},
		logger:    slog.Default().With("component", "bridge"),
		backendOf: func(string) string { return "" },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) Registry() *engine.Registry {
	return b.registry
}

// Initialize creates an engine and returns its handle, or -1.
func (b *Bridge) Initialize(ctx context.Context, detector, landmarker, recognizer, antiSpoofing string) (int64, error) {
	return b.InitializeWith(ctx, engine.ModelPaths{
		Detector:     detector,
		Landmarker:   landmarker,
		Recognizer:   recognizer,
		AntiSpoofing: antiSpoofing,
	})
}

func (b *Bridge) InitializeWith(ctx context.Context, paths engine.ModelPaths) (int64, error) {
	start := time.Now()

	var h engine.Handle
	err := protect(func() error {
		var err error
		h, err = b.registry.Initialize(ctx, paths)
		return err
	})

	b.emit(ctx, start, audit.Event{
		Handle:    handleOrNone(h, err),
		EventType: audit.EventEngineInitialized,
		Backend:   b.backendOf(paths.Detector),
		Metadata: map[string]string{
			"anti_spoofing": strconv.FormatBool(paths.AntiSpoofing != ""),
		},
	}, err)

	if err != nil {
		b.errs.Set(err.Error())
		return InvalidHandle, err
	}
	return int64(h), nil
}

// Release frees the engine behind handle. Unknown or already released
// handles are ignored.
func (b *Bridge) Release(handle int64) {
	h := engine.Handle(handle)
	released := b.registry.Release(h)
	b.errs.Clear(h)

	if released {
		b.emit(context.Background(), time.Now(), audit.Event{
			Handle:    handle,
			EventType: audit.EventEngineReleased,
		}, nil)
	}
}

// Detect returns DetectionStride floats per face, or nil on failure.
func (b *Bridge) Detect(ctx context.Context, handle int64, pixels []byte, width, height, channels int32) ([]float32, error) {
	start := time.Now()
	h := engine.Handle(handle)

	inst, err := b.resolve(h)
	if err != nil {
		return nil, err
	}

	img := NewImage(pixels, width, height, channels)
	if err := img.Validate(); err != nil {
		b.fail(h, err)
		return nil, err
	}

	var faces []domain.DetectedFace
	err = protect(func() error {
		var err error
		faces, err = inst.Detect(ctx, img)
		return err
	})

	b.emit(ctx, start, audit.Event{
		Handle:    handle,
		EventType: audit.EventFaceDetected,
		Backend:   inst.Status().Detector,
		Metadata:  map[string]string{"faces_count": strconv.Itoa(len(faces))},
	}, err)

	if err != nil {
		b.fail(h, err)
		return nil, err
	}
	return FlattenDetections(faces), nil
}

// ExtractEncoding returns the encoding of the face inside the given box, or
// nil on failure.
func (b *Bridge) ExtractEncoding(ctx context.Context, handle int64, pixels []byte, width, height, channels, boxX, boxY, boxW, boxH int32) ([]float32, error) {
	start := time.Now()
	h := engine.Handle(handle)

	inst, err := b.resolve(h)
	if err != nil {
		return nil, err
	}

	img := NewImage(pixels, width, height, channels)
	if err := img.Validate(); err != nil {
		b.fail(h, err)
		return nil, err
	}

	var enc domain.FaceEncoding
	err = protect(func() error {
		var err error
		enc, err = inst.ExtractEncoding(ctx, img, NewBox(boxX, boxY, boxW, boxH))
		return err
	})

	b.emit(ctx, start, audit.Event{
		Handle:    handle,
		EventType: audit.EventFaceEncoded,
		Backend:   inst.Status().Recognizer,
		Metadata:  map[string]string{"dimension": strconv.Itoa(len(enc))},
	}, err)

	if err != nil {
		b.fail(h, err)
		return nil, err
	}
	return enc, nil
}

// CompareEncodings returns the cosine-remap similarity in [0, 1], or 0 on
// failure. It needs no engine.
func (b *Bridge) CompareEncodings(a, c []float32) (float32, error) {
	start := time.Now()

	sim, err := scoring.Similarity(a, c)

	b.emit(context.Background(), start, audit.Event{
		Handle:    audit.NoHandle,
		EventType: audit.EventEncodingsCompared,
		Metadata:  map[string]string{"similarity": formatScore(sim)},
	}, err)

	if err != nil {
		b.errs.Set(err.Error())
		return NoScore, err
	}
	return sim, nil
}

// CompareWith compares through an engine, using its recognizer's calibrated
// similarity when one is available.
func (b *Bridge) CompareWith(handle int64, a, c []float32) (float32, error) {
	start := time.Now()
	h := engine.Handle(handle)

	inst, err := b.resolve(h)
	if err != nil {
		return NoScore, err
	}

	var sim float32
	err = protect(func() error {
		var err error
		sim, err = inst.Compare(a, c)
		return err
	})

	b.emit(context.Background(), start, audit.Event{
		Handle:    handle,
		EventType: audit.EventEncodingsCompared,
		Backend:   inst.Status().Recognizer,
		Metadata:  map[string]string{"similarity": formatScore(sim)},
	}, err)

	if err != nil {
		b.fail(h, err)
		return NoScore, err
	}
	return sim, nil
}

// DetectLiveness returns the anti-spoofing score. An engine without an
// anti-spoofer reports 1.0 together with a MissingCapability error and a
// last-error message; every other failure reports 0.
func (b *Bridge) DetectLiveness(ctx context.Context, handle int64, pixels []byte, width, height, channels, boxX, boxY, boxW, boxH int32) (float32, error) {
	start := time.Now()
	h := engine.Handle(handle)

	inst, err := b.resolve(h)
	if err != nil {
		return NoScore, err
	}

	img := NewImage(pixels, width, height, channels)
	if err := img.Validate(); err != nil {
		b.fail(h, err)
		return NoScore, err
	}

	var score float32
	err = protect(func() error {
		var err error
		score, err = inst.Liveness(ctx, img, NewBox(boxX, boxY, boxW, boxH))
		return err
	})

	if errors.Is(err, domain.ErrMissingCapability) {
		b.errs.SetFor(h, antiSpoofingAbsent)
		b.emit(ctx, start, audit.Event{
			Handle:    handle,
			EventType: audit.EventLivenessChecked,
			Metadata:  map[string]string{"score": formatScore(AssumedLiveScore), "assumed": "true"},
		}, nil)
		return AssumedLiveScore, err
	}

	b.emit(ctx, start, audit.Event{
		Handle:    handle,
		EventType: audit.EventLivenessChecked,
		Backend:   inst.Status().AntiSpoofer,
		Metadata:  map[string]string{"score": formatScore(score)},
	}, err)

	if err != nil {
		b.fail(h, err)
		return NoScore, err
	}
	return score, nil
}

// AssessQuality scores the image by its dimensions. It needs no engine.
func (b *Bridge) AssessQuality(pixels []byte, width, height, channels int32) (float32, error) {
	start := time.Now()

	img := NewImage(pixels, width, height, channels)
	err := img.Validate()

	var q float32
	if err == nil {
		q = scoring.Quality(width, height)
	}

	b.emit(context.Background(), start, audit.Event{
		Handle:    audit.NoHandle,
		EventType: audit.EventQualityAssessed,
		Metadata:  map[string]string{"score": formatScore(q)},
	}, err)

	if err != nil {
		b.errs.Set(err.Error())
		return NoScore, err
	}
	return q, nil
}

// LastError returns the most recent failure message from any call.
func (b *Bridge) LastError() string {
	return b.errs.Get()
}

// LastErrorFor returns the most recent failure message recorded against a
// live handle.
func (b *Bridge) LastErrorFor(handle int64) string {
	return b.errs.For(engine.Handle(handle))
}

// Status lists live engines.
func (b *Bridge) Status() []engine.Status {
	return b.registry.Status()
}

// Close releases every engine.
func (b *Bridge) Close() {
	for _, s := range b.registry.Status() {
		b.Release(int64(s.Handle))
	}
}

func (b *Bridge) resolve(h engine.Handle) (*engine.Instance, error) {
	inst, err := b.registry.Resolve(h)
	if err != nil {
		b.errs.Set(domain.ErrInvalidHandle.Message)
		return nil, err
	}
	return inst, nil
}

// fail records err against h. If h was released meanwhile the scoped entry
// is dropped again so released handles never keep diagnostics alive.
func (b *Bridge) fail(h engine.Handle, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Code == domain.ErrInvalidHandle.Code {
		b.errs.Set(domain.ErrInvalidHandle.Message)
		return
	}

	b.errs.SetFor(h, err.Error())
	if _, rerr := b.registry.Resolve(h); rerr != nil {
		b.errs.Clear(h)
	}
}

func (b *Bridge) emit(ctx context.Context, start time.Time, event audit.Event, err error) {
	event.Success = err == nil
	event.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		event.Error = err.Error()
	}

	if aerr := b.audit.Log(ctx, event); aerr != nil {
		b.logger.Warn("audit log failed", "event_type", event.EventType, "error", aerr)
	}
}

// protect converts a panic inside a backend into an internal error.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.ErrInternal.WithError(fmt.Errorf("backend panic: %v", r))
		}
	}()
	return fn()
}

func handleOrNone(h engine.Handle, err error) int64 {
	if err != nil || h < 0 {
		return audit.NoHandle
	}
	return int64(h)
}

func formatScore(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 4, 32)
}
