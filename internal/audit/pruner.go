package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pruneable is a sink that can drop expired events
type Pruneable interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// Pruner periodically removes audit events older than the retention window
type Pruner struct {
	sink      Pruneable
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	done      chan struct{}
	stopOnce  sync.Once
}

// NewPruner creates a new retention worker
func NewPruner(sink Pruneable, logger *slog.Logger, interval, retention time.Duration) *Pruner {
	if interval == 0 {
		interval = 1 * time.Hour
	}
	if retention == 0 {
		retention = 30 * 24 * time.Hour
	}

	return &Pruner{
		sink:      sink,
		logger:    logger.With("component", "audit_pruner"),
		interval:  interval,
		retention: retention,
		done:      make(chan struct{}),
	}
}

// Start runs the worker until ctx is cancelled or Stop is called
func (p *Pruner) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("audit pruner started", "interval", p.interval, "retention", p.retention)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("audit pruner stopped")
			return
		case <-p.done:
			p.logger.Info("audit pruner stopped")
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

// Stop gracefully shuts down the pruner
func (p *Pruner) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

func (p *Pruner) prune(ctx context.Context) {
	deleted, err := p.sink.Prune(ctx, p.retention)
	if err != nil {
		p.logger.Error("failed to prune audit events", "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("pruned audit events", "count", deleted)
	}
}
