package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

const schemeSeparator = "://"

// Router dispatches model paths to backends by URL-like scheme
// ("deepface://Facenet512", "dlib:///models"). Paths without a scheme go to
// the fallback backend.
type Router struct {
	mu       sync.RWMutex
	loaders  map[string]Loader
	fallback string
}

func NewRouter(fallback string) *Router {
	return &Router{
		loaders:  make(map[string]Loader),
		fallback: fallback,
	}
}

func (r *Router) Register(scheme string, l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[scheme] = l
}

// Schemes lists registered backends in lexical order.
func (r *Router) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.loaders))
	for s := range r.loaders {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SplitPath separates "scheme://locator". A path without a separator has an
// empty scheme and is returned whole as the locator.
func SplitPath(path string) (scheme, locator string) {
	i := strings.Index(path, schemeSeparator)
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+len(schemeSeparator):]
}

// Backend reports which registered scheme would serve path.
func (r *Router) Backend(path string) string {
	scheme, _ := SplitPath(path)
	if scheme == "" {
		return r.fallback
	}
	return scheme
}

func (r *Router) route(path string) (Loader, string, error) {
	scheme, locator := SplitPath(path)
	if scheme == "" {
		scheme = r.fallback
	}

	r.mu.RLock()
	l, ok := r.loaders[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, "", domain.ErrUnsupportedOperation.WithError(fmt.Errorf("unknown model backend %q", scheme))
	}
	return l, locator, nil
}

func (r *Router) LoadDetector(ctx context.Context, path string) (Detector, error) {
	l, locator, err := r.route(path)
	if err != nil {
		return nil, err
	}
	return l.LoadDetector(ctx, locator)
}

func (r *Router) LoadLandmarker(ctx context.Context, path string) (Landmarker, error) {
	l, locator, err := r.route(path)
	if err != nil {
		return nil, err
	}
	return l.LoadLandmarker(ctx, locator)
}

func (r *Router) LoadRecognizer(ctx context.Context, path string) (Recognizer, error) {
	l, locator, err := r.route(path)
	if err != nil {
		return nil, err
	}
	return l.LoadRecognizer(ctx, locator)
}

func (r *Router) LoadAntiSpoofer(ctx context.Context, path string) (AntiSpoofer, error) {
	l, locator, err := r.route(path)
	if err != nil {
		return nil, err
	}
	return l.LoadAntiSpoofer(ctx, locator)
}

var _ Loader = (*Router)(nil)
