package face_test

import (
	"context"
	"fmt"
	"log"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/config"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/engine"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/face"
)

// ExampleNewLoader builds an engine whose paths carry no scheme, so every
// component comes from the FACE_BACKEND fallback.
func ExampleNewLoader() {
	ctx := context.Background()

	loader, err := face.NewLoader(&config.Config{FaceBackend: "mock"})
	if err != nil {
		log.Fatalf("failed to create loader: %v", err)
	}

	registry := engine.NewRegistry(loader)
	defer registry.Close()

	h, err := registry.Initialize(ctx, engine.ModelPaths{
		Detector:   "models/face_detector.csta",
		Landmarker: "models/face_landmarker_pts68.csta",
		Recognizer: "models/face_recognizer.csta",
	})
	if err != nil {
		log.Fatalf("failed to initialize engine: %v", err)
	}

	fmt.Println(h >= 0, loader.Backend("models/face_detector.csta"))
	// Output: true mock
}
