//go:build !dlib

package dlib

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

func TestLoader_NotCompiledIn(t *testing.T) {
	l := NewLoader()
	ctx := context.Background()

	_, err := l.LoadDetector(ctx, "/models")
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
	_, err = l.LoadLandmarker(ctx, "/models")
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
	_, err = l.LoadRecognizer(ctx, "/models")
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
	_, err = l.LoadAntiSpoofer(ctx, "/models")
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
}
