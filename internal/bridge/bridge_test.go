package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/audit"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/engine"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider/mock"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

func newMockBridge(opts ...Option) *Bridge {
	return New(engine.NewRegistry(mock.New()), opts...)
}

func rgb(w, h int32) []byte {
	pixels := make([]byte, int(w)*int(h)*3)
	for i := range pixels {
		pixels[i] = byte(i * 31)
	}
	return pixels
}

func initMock(t *testing.T, b *Bridge, antiSpoofing string) int64 {
	t.Helper()
	h, err := b.Initialize(context.Background(), "detector", "landmarker", "recognizer", antiSpoofing)
	require.NoError(t, err)
	require.GreaterOrEqual(t, h, int64(0))
	return h
}

func TestBridge_LastErrorEmptyInitially(t *testing.T) {
	b := newMockBridge()
	assert.Equal(t, "", b.LastError())
}

func TestBridge_InitializeFailure(t *testing.T) {
	b := newMockBridge()

	h, err := b.Initialize(context.Background(), "detector", "", "recognizer", "")
	assert.Equal(t, InvalidHandle, h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInitializationFailure))
	assert.Contains(t, b.LastError(), "Failed to initialize engine")
	assert.Equal(t, 0, b.Registry().Len())
}

func TestBridge_Detect(t *testing.T) {
	b := newMockBridge()
	h := initMock(t, b, "")

	flat, err := b.Detect(context.Background(), h, rgb(200, 100), 200, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{50, 25, 100, 50, mock.DetectionConfidence}, flat)
	assert.Equal(t, "", b.LastError())
}

func TestBridge_SentinelsOnInvalidHandle(t *testing.T) {
	b := newMockBridge()
	ctx := context.Background()
	live := initMock(t, b, "anti_spoofing")
	released := initMock(t, b, "anti_spoofing")
	b.Release(released)

	for _, h := range []int64{released, 12345, -1, 1 << 40} {
		flat, err := b.Detect(ctx, h, rgb(10, 10), 10, 10, 3)
		assert.Nil(t, flat)
		assert.ErrorIs(t, err, domain.ErrInvalidHandle)
		assert.Equal(t, "Invalid engine handle", b.LastError())

		enc, err := b.ExtractEncoding(ctx, h, rgb(10, 10), 10, 10, 3, 0, 0, 5, 5)
		assert.Nil(t, enc)
		assert.ErrorIs(t, err, domain.ErrInvalidHandle)

		score, err := b.DetectLiveness(ctx, h, rgb(10, 10), 10, 10, 3, 0, 0, 5, 5)
		assert.Equal(t, float32(0), score)
		assert.ErrorIs(t, err, domain.ErrInvalidHandle)

		sim, err := b.CompareWith(h, []float32{1}, []float32{1})
		assert.Equal(t, float32(0), sim)
		assert.ErrorIs(t, err, domain.ErrInvalidHandle)

		assert.Equal(t, "", b.LastErrorFor(h), "invalid handles never get scoped diagnostics")
	}

	_, err := b.Detect(ctx, live, rgb(10, 10), 10, 10, 3)
	assert.NoError(t, err, "other handles are unaffected")
}

func TestBridge_MalformedBuffer(t *testing.T) {
	b := newMockBridge()
	ctx := context.Background()
	h := initMock(t, b, "anti_spoofing")

	flat, err := b.Detect(ctx, h, make([]byte, 10), 10, 10, 3)
	assert.Nil(t, flat)
	assert.ErrorIs(t, err, domain.ErrMalformedBuffer)
	assert.Contains(t, b.LastError(), "Image buffer does not match declared dimensions")
	assert.Equal(t, b.LastError(), b.LastErrorFor(h))

	enc, err := b.ExtractEncoding(ctx, h, nil, 10, 10, 3, 0, 0, 5, 5)
	assert.Nil(t, enc)
	assert.ErrorIs(t, err, domain.ErrMalformedBuffer)

	score, err := b.DetectLiveness(ctx, h, make([]byte, 299), 10, 10, 3, 0, 0, 5, 5)
	assert.Equal(t, float32(0), score)
	assert.ErrorIs(t, err, domain.ErrMalformedBuffer)

	q, err := b.AssessQuality(make([]byte, 3), 10, 10, 3)
	assert.Equal(t, float32(0), q)
	assert.ErrorIs(t, err, domain.ErrMalformedBuffer)
}

func TestBridge_ExtractAndCompare(t *testing.T) {
	b := newMockBridge()
	ctx := context.Background()
	h := initMock(t, b, "")
	pixels := rgb(120, 120)

	flat, err := b.Detect(ctx, h, pixels, 120, 120, 3)
	require.NoError(t, err)
	faces := UnflattenDetections(flat)
	require.Len(t, faces, 1)
	box := faces[0].Box

	enc, err := b.ExtractEncoding(ctx, h, pixels, 120, 120, 3, box.X, box.Y, box.Width, box.Height)
	require.NoError(t, err)
	require.Len(t, enc, mock.EncodingDimension)

	self, err := b.CompareEncodings(enc, enc)
	require.NoError(t, err)
	assert.Equal(t, float32(1), self)

	other, err := b.ExtractEncoding(ctx, h, pixels, 120, 120, 3, 0, 0, 40, 40)
	require.NoError(t, err)

	ab, err := b.CompareEncodings(enc, other)
	require.NoError(t, err)
	ba, err := b.CompareEncodings(other, enc)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.Less(t, ab, float32(1))

	viaEngine, err := b.CompareWith(h, enc, other)
	require.NoError(t, err)
	assert.Equal(t, ab, viaEngine)
}

func TestBridge_ExtractEncodingBoxOutsideImage(t *testing.T) {
	b := newMockBridge()
	h := initMock(t, b, "")

	enc, err := b.ExtractEncoding(context.Background(), h, rgb(20, 20), 20, 20, 3, 100, 100, 10, 10)
	assert.Nil(t, enc)
	require.Error(t, err)
	assert.NotEmpty(t, b.LastError())
	assert.Equal(t, b.LastError(), b.LastErrorFor(h))
}

func TestBridge_CompareMismatch(t *testing.T) {
	b := newMockBridge()

	sim, err := b.CompareEncodings([]float32{1, 2, 3}, []float32{1, 2})
	assert.Equal(t, float32(0), sim)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Contains(t, b.LastError(), "Encoding lengths do not match")
}

func TestBridge_LivenessWithoutAntiSpoofer(t *testing.T) {
	b := newMockBridge()
	h := initMock(t, b, "")

	score, err := b.DetectLiveness(context.Background(), h, rgb(50, 50), 50, 50, 3, 10, 10, 20, 20)
	assert.Equal(t, float32(1.0), score)
	assert.ErrorIs(t, err, domain.ErrMissingCapability)
	assert.Equal(t, "Anti-spoofing not initialized", b.LastError())
	assert.Equal(t, "Anti-spoofing not initialized", b.LastErrorFor(h))
}

func TestBridge_LivenessWithAntiSpoofer(t *testing.T) {
	b := newMockBridge()
	h := initMock(t, b, "fas_first.csta")

	score, err := b.DetectLiveness(context.Background(), h, rgb(50, 50), 50, 50, 3, 10, 10, 20, 20)
	require.NoError(t, err)
	assert.Equal(t, mock.LivenessScore, score)
}

func TestBridge_AssessQuality(t *testing.T) {
	b := newMockBridge()

	tests := []struct {
		w, h int32
		want float32
	}{
		{80, 80, 0.5},
		{150, 300, 0.8},
		{1000, 100, 0.56},
		{1000, 200, 0.7},
	}

	for _, tt := range tests {
		got, err := b.AssessQuality(rgb(tt.w, tt.h), tt.w, tt.h, 3)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-6)
	}
}

func TestBridge_ReleaseIdempotentAndClearsScopedError(t *testing.T) {
	b := newMockBridge()
	h := initMock(t, b, "")

	_, _ = b.Detect(context.Background(), h, nil, 10, 10, 3)
	require.NotEmpty(t, b.LastErrorFor(h))

	b.Release(h)
	b.Release(h)
	b.Release(987654)

	assert.Equal(t, "", b.LastErrorFor(h))
	assert.Equal(t, 0, b.Registry().Len())
}

type panickingDetector struct{ mock.Detector }

func (p *panickingDetector) Detect(context.Context, domain.ImageBuffer) ([]domain.DetectedFace, error) {
	panic("native fault")
}

type panickingLoader struct{ *mock.Loader }

func (l panickingLoader) LoadDetector(context.Context, string) (provider.Detector, error) {
	return &panickingDetector{}, nil
}

func TestBridge_RecoversBackendPanic(t *testing.T) {
	b := New(engine.NewRegistry(panickingLoader{mock.New()}))
	h := initMock(t, b, "")

	flat, err := b.Detect(context.Background(), h, rgb(10, 10), 10, 10, 3)
	assert.Nil(t, flat)
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.Contains(t, b.LastError(), "native fault")
}

func TestBridge_AuditTrail(t *testing.T) {
	rec := &recordingAudit{}
	b := newMockBridge(WithAuditLogger(rec))
	ctx := context.Background()

	h := initMock(t, b, "")
	_, _ = b.Detect(ctx, h, rgb(10, 10), 10, 10, 3)
	_, _ = b.ExtractEncoding(ctx, h, rgb(10, 10), 10, 10, 3, 0, 0, 5, 5)
	_, _ = b.DetectLiveness(ctx, h, rgb(10, 10), 10, 10, 3, 0, 0, 5, 5)
	_, _ = b.CompareEncodings([]float32{1}, []float32{1, 2})
	b.Release(h)
	b.Release(h)

	assert.Equal(t, []audit.EventType{
		audit.EventEngineInitialized,
		audit.EventFaceDetected,
		audit.EventFaceEncoded,
		audit.EventLivenessChecked,
		audit.EventEncodingsCompared,
		audit.EventEngineReleased,
	}, rec.types())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.False(t, rec.events[4].Success)
	assert.Equal(t, audit.NoHandle, rec.events[4].Handle)
	assert.Equal(t, "true", rec.events[3].Metadata["assumed"])
}

func TestBridge_ConcurrentCallsOnDistinctHandles(t *testing.T) {
	b := newMockBridge()
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 6; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := b.Initialize(ctx, "d", "l", "r", "")
			if err != nil {
				t.Errorf("Initialize() error = %v", err)
				return
			}
			for i := 0; i < 20; i++ {
				if _, err := b.Detect(ctx, h, rgb(32, 32), 32, 32, 3); err != nil {
					t.Errorf("Detect() error = %v", err)
				}
				_, _ = b.DetectLiveness(ctx, h, rgb(32, 32), 32, 32, 3, 0, 0, 8, 8)
				_ = b.LastError()
			}
			b.Release(h)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, b.Registry().Len())
}
