package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider/mock"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path        string
		wantScheme  string
		wantLocator string
	}{
		{"mock://detector", "mock", "detector"},
		{"dlib:///opt/models", "dlib", "/opt/models"},
		{"deepface://Facenet512", "deepface", "Facenet512"},
		{"models/face_detector.csta", "", "models/face_detector.csta"},
		{"", "", ""},
		{"rekognition://", "rekognition", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			scheme, locator := provider.SplitPath(tt.path)
			assert.Equal(t, tt.wantScheme, scheme)
			assert.Equal(t, tt.wantLocator, locator)
		})
	}
}

func TestRouter_Dispatch(t *testing.T) {
	ctx := context.Background()
	r := provider.NewRouter("mock")
	r.Register("mock", mock.New())

	det, err := r.LoadDetector(ctx, "models/face_detector.csta")
	require.NoError(t, err)
	assert.IsType(t, &mock.Detector{}, det)

	_, err = r.LoadRecognizer(ctx, "mock://recognizer")
	require.NoError(t, err)

	_, err = r.LoadLandmarker(ctx, "mock://")
	assert.ErrorIs(t, err, mock.ErrEmptyModelPath)

	_, err = r.LoadAntiSpoofer(ctx, "seeta://fas_first.csta")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedOperation))

	assert.Equal(t, "mock", r.Backend("plain/path"))
	assert.Equal(t, "seeta", r.Backend("seeta://x"))
	assert.Equal(t, []string{"mock"}, r.Schemes())
}
