//go:build dlib

package dlib

import (
	"context"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

// Needs DLIB_MODELS pointing at the go-face model directory and a
// testdata/face.jpg portrait inside it.
func TestLoader_EndToEnd(t *testing.T) {
	dir := os.Getenv("DLIB_MODELS")
	if dir == "" {
		t.Skip("DLIB_MODELS not set")
	}

	f, err := os.Open(filepath.Join(dir, "testdata", "face.jpg"))
	if err != nil {
		t.Skipf("no sample portrait: %v", err)
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	require.NoError(t, err)
	img := domain.FromImage(decoded)

	ctx := context.Background()
	l := NewLoader()

	det, err := l.LoadDetector(ctx, dir)
	require.NoError(t, err)
	defer det.Close()
	lmk, err := l.LoadLandmarker(ctx, dir)
	require.NoError(t, err)
	defer lmk.Close()
	rec, err := l.LoadRecognizer(ctx, dir)
	require.NoError(t, err)
	defer rec.Close()

	faces, err := det.Detect(ctx, img)
	require.NoError(t, err)
	require.NotEmpty(t, faces)

	best, _ := domain.LargestFace(faces)
	lm, err := lmk.Mark(ctx, img, best.Box)
	require.NoError(t, err)
	assert.Len(t, lm.Points, 5)

	enc, err := rec.Extract(ctx, img, lm)
	require.NoError(t, err)
	assert.Len(t, enc, DescriptorSize)

	sim, err := Similarity(enc, enc)
	require.NoError(t, err)
	assert.Equal(t, float32(1), sim)

	_, err = l.LoadAntiSpoofer(ctx, dir)
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
}
