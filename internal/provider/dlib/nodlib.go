//go:build !dlib

package dlib

import (
	"context"
	"errors"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
)

var errNotBuilt = domain.ErrUnsupportedOperation.WithError(errors.New("dlib backend not compiled in (build with -tags dlib)"))

// Loader stands in for the dlib backend in builds without the dlib tag
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) LoadDetector(context.Context, string) (provider.Detector, error) {
	return nil, errNotBuilt
}

func (l *Loader) LoadLandmarker(context.Context, string) (provider.Landmarker, error) {
	return nil, errNotBuilt
}

func (l *Loader) LoadRecognizer(context.Context, string) (provider.Recognizer, error) {
	return nil, errNotBuilt
}

func (l *Loader) LoadAntiSpoofer(context.Context, string) (provider.AntiSpoofer, error) {
	return nil, errNotBuilt
}

var _ provider.Loader = (*Loader)(nil)
