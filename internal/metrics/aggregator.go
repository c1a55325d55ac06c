package metrics

import (
	"context"
	"log/slog"
	"time"
)

// Summarizer is satisfied by Repository
type Summarizer interface {
	Summarize(ctx context.Context, since time.Time) ([]Summary, error)
}

// Aggregator periodically logs the audit summary of the trailing window
type Aggregator struct {
	repo     Summarizer
	logger   *slog.Logger
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
}

// NewAggregator creates a new metrics aggregator worker. A zero interval
// means one minute; a zero window means the interval itself.
func NewAggregator(repo Summarizer, logger *slog.Logger, interval, window time.Duration) *Aggregator {
	if interval == 0 {
		interval = 1 * time.Minute
	}
	if window == 0 {
		window = interval
	}

	return &Aggregator{
		repo:     repo,
		logger:   logger.With("component", "audit_metrics"),
		interval: interval,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start begins the aggregation worker
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("metrics aggregator started", "interval", a.interval, "window", a.window)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("metrics aggregator stopped")
			return
		case <-a.done:
			a.logger.Info("metrics aggregator stopped")
			return
		case <-ticker.C:
			a.aggregate(ctx)
		}
	}
}

// Stop gracefully shuts down the aggregator
func (a *Aggregator) Stop() {
	close(a.done)
}

func (a *Aggregator) aggregate(ctx context.Context) {
	summaries, err := a.repo.Summarize(ctx, a.now().Add(-a.window))
	if err != nil {
		a.logger.Error("failed to summarize audit events", "error", err)
		return
	}

	for _, s := range summaries {
		level := slog.LevelInfo
		if s.Failures > 0 {
			level = slog.LevelWarn
		}
		a.logger.Log(ctx, level, "audit summary",
			slog.String("event_type", string(s.EventType)),
			slog.String("backend", s.Backend),
			slog.Int64("total", s.Total),
			slog.Int64("failures", s.Failures),
			slog.Float64("failure_rate", s.FailureRate()),
			slog.Float64("avg_latency_ms", s.AvgLatencyMs),
			slog.Float64("p99_latency_ms", s.P99LatencyMs),
		)
	}
}
