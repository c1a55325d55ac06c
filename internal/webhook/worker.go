package webhook

import (
	"context"
	"time"
)

// Start launches the delivery worker, which runs until ctx is cancelled or
// Stop is called. Deliveries still queued at that point are discarded.
// Calls after the first are no-ops.
func (n *Notifier) Start(ctx context.Context) {
	if !n.started.CompareAndSwap(false, true) {
		return
	}
	go n.run(ctx)
}

func (n *Notifier) run(ctx context.Context) {
	defer close(n.doneCh)

	n.logger.Info("webhook worker started", "url", n.cfg.URL)

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("webhook worker stopped", "pending", len(n.queue))
			return
		case <-n.stopCh:
			n.logger.Info("webhook worker stopped", "pending", len(n.queue))
			return
		case d := <-n.queue:
			n.deliver(ctx, d)
		}
	}
}

// Stop ends the worker and waits for an in-flight delivery to finish. Log
// fails with ErrStopped afterwards.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() { close(n.stopCh) })
	if n.started.Load() {
		<-n.doneCh
	}
}

func (n *Notifier) deliver(ctx context.Context, d *Delivery) {
	for {
		err := n.Send(ctx, d)
		if err == nil {
			n.logger.Debug("webhook delivered",
				"delivery_id", d.ID,
				"event_type", d.EventType,
				"attempts", d.Attempts+1,
			)
			return
		}

		d.Attempts++
		d.LastError = err.Error()
		if d.Attempts >= n.cfg.MaxAttempts {
			n.logger.Error("webhook delivery failed",
				"delivery_id", d.ID,
				"event_type", d.EventType,
				"attempts", d.Attempts,
				"error", d.LastError,
			)
			return
		}

		delay := n.backoff(d.Attempts)
		n.logger.Info("webhook delivery scheduled for retry",
			"delivery_id", d.ID,
			"attempts", d.Attempts,
			"next_retry", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-n.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
