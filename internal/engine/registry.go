package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider"
)

type slot struct {
	inst *Instance
	gen  uint32
}

// Registry owns every engine instance created through it and hands out
// generation-checked handles. A zero Registry is not usable; call NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	slots  []slot
	free   []uint32
	live   int
	loader provider.Loader

	logger    *slog.Logger
	backendOf func(path string) string
	now       func() time.Time
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger.With("component", "engine_registry")
	}
}

// WithBackendNamer sets how model paths are labelled in Status. Router.Backend
// is the usual choice.
func WithBackendNamer(fn func(path string) string) Option {
	return func(r *Registry) {
		r.backendOf = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(loader provider.Loader, opts ...Option) *Registry {
	r := &Registry{
		loader:    loader,
		logger:    slog.Default().With("component", "engine_registry"),
		backendOf: func(path string) string { return path },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize loads the mandatory sub-components and, when its path is set,
// the anti-spoofer. Nothing is published unless every requested component
// loads; components loaded before a failure are closed again.
func (r *Registry) Initialize(ctx context.Context, paths ModelPaths) (Handle, error) {
	inst, err := r.build(ctx, paths)
	if err != nil {
		r.logger.Warn("engine initialization failed", "error", err)
		return InvalidHandle, domain.ErrInitializationFailure.WithError(err)
	}

	r.mu.Lock()
	h, err := r.publish(inst)
	r.mu.Unlock()
	if err != nil {
		_ = inst.close()
		return InvalidHandle, domain.ErrInitializationFailure.WithError(err)
	}

	r.logger.Info("engine initialized",
		"handle", h.String(),
		"anti_spoofing", inst.antiSpoofer != nil,
	)
	return h, nil
}

func (r *Registry) build(ctx context.Context, paths ModelPaths) (*Instance, error) {
	inst := &Instance{createdAt: r.now()}

	if err := r.load(ctx, inst, paths); err != nil {
		_ = inst.close()
		return nil, err
	}

	inst.status = Status{
		Detector:   r.backendOf(paths.Detector),
		Landmarker: r.backendOf(paths.Landmarker),
		Recognizer: r.backendOf(paths.Recognizer),
		CreatedAt:  inst.createdAt,
	}
	if paths.AntiSpoofing != "" {
		inst.status.AntiSpoofer = r.backendOf(paths.AntiSpoofing)
	}
	return inst, nil
}

func (r *Registry) load(ctx context.Context, inst *Instance, paths ModelPaths) error {
	var err error
	if inst.detector, err = r.loader.LoadDetector(ctx, paths.Detector); err != nil {
		return fmt.Errorf("detector %q: %w", paths.Detector, err)
	}
	if inst.landmarker, err = r.loader.LoadLandmarker(ctx, paths.Landmarker); err != nil {
		return fmt.Errorf("landmarker %q: %w", paths.Landmarker, err)
	}
	if inst.recognizer, err = r.loader.LoadRecognizer(ctx, paths.Recognizer); err != nil {
		return fmt.Errorf("recognizer %q: %w", paths.Recognizer, err)
	}
	if paths.AntiSpoofing != "" {
		if inst.antiSpoofer, err = r.loader.LoadAntiSpoofer(ctx, paths.AntiSpoofing); err != nil {
			return fmt.Errorf("anti-spoofer %q: %w", paths.AntiSpoofing, err)
		}
	}
	return nil
}

// publish must be called with r.mu held.
func (r *Registry) publish(inst *Instance) (Handle, error) {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		if uint64(len(r.slots)) > indexMask {
			return InvalidHandle, errors.New("engine table exhausted")
		}
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{})
	}

	s := &r.slots[idx]
	s.inst = inst
	inst.handle = makeHandle(idx, s.gen)
	r.live++
	return inst.handle, nil
}

// Resolve returns the live instance behind h.
func (r *Registry) Resolve(h Handle) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.lookup(h)
	if !ok {
		return nil, domain.ErrInvalidHandle.WithError(fmt.Errorf("handle %d", int64(h)))
	}
	return s.inst, nil
}

func (r *Registry) lookup(h Handle) (*slot, bool) {
	if h < 0 {
		return nil, false
	}
	idx := h.index()
	if int(idx) >= len(r.slots) {
		return nil, false
	}
	s := &r.slots[idx]
	if s.inst == nil || s.gen != h.generation() {
		return nil, false
	}
	return s, true
}

// Release closes the engine behind h. Unknown, stale and already released
// handles are ignored. It reports whether an engine was released.
func (r *Registry) Release(h Handle) bool {
	r.mu.Lock()
	s, ok := r.lookup(h)
	if !ok {
		r.mu.Unlock()
		r.logger.Debug("release of unknown handle ignored", "handle", int64(h))
		return false
	}

	inst := s.inst
	s.inst = nil
	r.live--
	if s.gen < maxGeneration {
		s.gen++
		r.free = append(r.free, h.index())
	}
	r.mu.Unlock()

	if err := inst.close(); err != nil {
		r.logger.Warn("engine close reported errors", "handle", h.String(), "error", err)
	}
	r.logger.Info("engine released", "handle", h.String())
	return true
}

// Len returns the number of live engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// Status lists live engines ordered by handle.
func (r *Registry) Status() []Status {
	r.mu.RLock()
	insts := make([]*Instance, 0, r.live)
	for i := range r.slots {
		if r.slots[i].inst != nil {
			insts = append(insts, r.slots[i].inst)
		}
	}
	r.mu.RUnlock()

	out := make([]Status, 0, len(insts))
	for _, inst := range insts {
		out = append(out, inst.Status())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Handle < out[b].Handle })
	return out
}

// Close releases every live engine.
func (r *Registry) Close() {
	r.mu.RLock()
	handles := make([]Handle, 0, r.live)
	for i := range r.slots {
		if inst := r.slots[i].inst; inst != nil {
			handles = append(handles, inst.handle)
		}
	}
	r.mu.RUnlock()

	for _, h := range handles {
		r.Release(h)
	}
}
