// Package face wires the model backends into a single scheme router.
package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/config"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider/dlib"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider/rekognition"
)

// BackendType is the scheme a model path uses to select a backend
type BackendType string

const (
	// BackendMock is the deterministic in-process backend (dev/test)
	BackendMock BackendType = "mock"
	// BackendDeepFace is the DeepFace HTTP sidecar
	BackendDeepFace BackendType = "deepface"
	// BackendRekognition is AWS Rekognition (cloud)
	BackendRekognition BackendType = "rekognition"
	// BackendDlib is dlib via go-face, compiled in with the dlib build tag
	BackendDlib BackendType = "dlib"
)

// Backends lists every backend in registration order
var Backends = []BackendType{BackendMock, BackendDeepFace, BackendRekognition, BackendDlib}

// NewLoader registers every backend under its scheme. Model paths without a
// scheme go to cfg.FaceBackend.
//
// Environment variables:
//   - FACE_BACKEND: backend for scheme-less paths (default: "mock")
//   - DEEPFACE_URL, DEEPFACE_TIMEOUT: DeepFace sidecar
//   - AWS_REGION: default Rekognition region; credentials come from the AWS SDK chain
func NewLoader(cfg *config.Config) (*provider.Router, error) {
	fallback := BackendType(cfg.FaceBackend)
	if fallback == "" {
		fallback = BackendMock
	}
	if !known(fallback) {
		return nil, fmt.Errorf("unknown face backend: %s (supported: %v)", cfg.FaceBackend, Backends)
	}

	router := provider.NewRouter(string(fallback))
	router.Register(string(BackendMock), mock.New())
	router.Register(string(BackendDeepFace), deepface.NewLoader(deepFaceConfig(cfg)))
	router.Register(string(BackendRekognition), rekognition.NewLoader(rekognitionConfig(cfg)))
	router.Register(string(BackendDlib), dlib.NewLoader())

	return router, nil
}

func known(b BackendType) bool {
	for _, k := range Backends {
		if k == b {
			return true
		}
	}
	return false
}

func deepFaceConfig(cfg *config.Config) deepface.Config {
	dc := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		dc.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceTimeout > 0 {
		dc.Timeout = cfg.DeepFaceTimeout
	}
	return dc
}

func rekognitionConfig(cfg *config.Config) rekognition.Config {
	rc := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rc.Region = cfg.AWSRegion
	}
	return rc
}
