package face

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/config"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider/mock"
)

func TestNewLoader_RegistersEveryBackend(t *testing.T) {
	router, err := NewLoader(&config.Config{FaceBackend: "mock"})
	require.NoError(t, err)

	assert.Equal(t, []string{"deepface", "dlib", "mock", "rekognition"}, router.Schemes())
}

func TestNewLoader_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    string
	}{
		{"explicit mock", "mock", "mock"},
		{"empty defaults to mock", "", "mock"},
		{"deepface", "deepface", "deepface"},
		{"rekognition", "rekognition", "rekognition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, err := NewLoader(&config.Config{FaceBackend: tt.backend})
			require.NoError(t, err)

			assert.Equal(t, tt.want, router.Backend("models/face_detector.csta"))
			assert.Equal(t, "dlib", router.Backend("dlib:///models"))
		})
	}
}

func TestNewLoader_UnknownBackend(t *testing.T) {
	_, err := NewLoader(&config.Config{FaceBackend: "opencv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown face backend: opencv")
}

func TestNewLoader_RoutesToMock(t *testing.T) {
	router, err := NewLoader(&config.Config{})
	require.NoError(t, err)

	det, err := router.LoadDetector(context.Background(), "mock://detector")
	require.NoError(t, err)
	assert.IsType(t, &mock.Detector{}, det)

	_, err = router.LoadDetector(context.Background(), "opencv://haar")
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
}

func TestBackendConfigs(t *testing.T) {
	cfg := &config.Config{
		DeepFaceURL:     "http://deepface:5005",
		DeepFaceTimeout: 2 * time.Second,
		AWSRegion:       "sa-east-1",
	}

	dc := deepFaceConfig(cfg)
	assert.Equal(t, "http://deepface:5005", dc.BaseURL)
	assert.Equal(t, 2*time.Second, dc.Timeout)
	assert.Equal(t, "Facenet512", dc.Model)

	assert.Equal(t, "sa-east-1", rekognitionConfig(cfg).Region)
	assert.Equal(t, "us-east-1", rekognitionConfig(&config.Config{}).Region)
}

func TestBackendType_Constants(t *testing.T) {
	assert.Equal(t, BackendType("mock"), BackendMock)
	assert.Equal(t, BackendType("deepface"), BackendDeepFace)
	assert.Equal(t, BackendType("rekognition"), BackendRekognition)
	assert.Equal(t, BackendType("dlib"), BackendDlib)
}
