// Package scoring holds the backend-independent scoring functions: encoding
// similarity, the resolution/aspect quality heuristic, match selection and
// the byte codec for encodings.
package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

// Similarity returns the cosine similarity of a and b remapped from [-1, 1]
// to [0, 1] via (cos+1)/2. Both encodings must have the same, non-zero length
// and a non-zero magnitude.
func Similarity(a, b domain.FaceEncoding) (float32, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch.WithError(fmt.Errorf("%d vs %d", len(a), len(b)))
	}
	if len(a) == 0 {
		return 0, domain.ErrDegenerateEncoding.WithError(fmt.Errorf("empty encoding"))
	}

	cos, err := CosineSimilarity(widen(a), widen(b))
	if err != nil {
		return 0, err
	}

	return Remap(cos), nil
}

// CosineSimilarity computes the cosine of the angle between a and b in
// float64. The result is clamped to [-1, 1].
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch
	}
	if len(a) == 0 {
		return 0, domain.ErrDegenerateEncoding
	}

	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 || math.IsNaN(na) || math.IsNaN(nb) || math.IsInf(na, 0) || math.IsInf(nb, 0) {
		return 0, domain.ErrDegenerateEncoding
	}

	cos := floats.Dot(a, b) / (na * nb)
	if math.IsNaN(cos) {
		return 0, domain.ErrDegenerateEncoding
	}

	return math.Max(-1, math.Min(1, cos)), nil
}

// Remap maps a cosine similarity onto [0, 1].
func Remap(cos float64) float32 {
	s := (cos + 1) / 2
	return float32(math.Max(0, math.Min(1, s)))
}

// Distance is the complement of a remapped similarity.
func Distance(similarity float32) float32 {
	return 1 - similarity
}

// Normalize scales v to unit L2 length in place. Zero vectors are left as is.
func Normalize(v []float64) {
	n := floats.Norm(v, 2)
	if n == 0 {
		return
	}
	floats.Scale(1/n, v)
}

func widen(e domain.FaceEncoding) []float64 {
	out := make([]float64, len(e))
	for i, v := range e {
		out[i] = float64(v)
	}
	return out
}
