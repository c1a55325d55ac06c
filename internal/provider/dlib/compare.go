// Package dlib serves engine components from dlib models through go-face.
// The model locator is the directory holding shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and mmod_human_face_detector.dat
// ("dlib:///var/lib/models"). Building it requires the dlib build tag and the
// dlib C++ libraries; without the tag every load reports an unsupported
// operation.
package dlib

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

const (
	// DescriptorSize is the length of a dlib face descriptor
	DescriptorSize = 128

	// MatchDistance is dlib's reference Euclidean threshold for the same person
	MatchDistance = 0.6
)

// Similarity maps the Euclidean distance between two dlib descriptors onto
// [0, 1] so that MatchDistance lands on 0.8, the default match confidence.
// Distances of 5 * MatchDistance and beyond score 0.
func Similarity(a, b domain.FaceEncoding) (float32, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch.WithError(fmt.Errorf("%d vs %d", len(a), len(b)))
	}
	if len(a) == 0 {
		return 0, domain.ErrDegenerateEncoding
	}

	x, y := make([]float64, len(a)), make([]float64, len(b))
	for i := range a {
		x[i], y[i] = float64(a[i]), float64(b[i])
	}

	d := floats.Distance(x, y, 2)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, domain.ErrDegenerateEncoding
	}
	sim := 1 - d/(5*MatchDistance)
	if sim < 0 {
		sim = 0
	}
	return float32(sim), nil
}
