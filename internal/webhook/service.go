package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/audit"
)

// Notifier is an audit.Logger that queues events for delivery. Log never
// blocks on the network; the worker launched by Start performs the POSTs.
type Notifier struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	events map[audit.EventType]bool

	queue chan *Delivery
	// backoff returns the wait before retry number attempt
	backoff func(attempt int) time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type Option func(*Notifier)

func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		n.client = client
	}
}

func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(n *Notifier) {
		n.backoff = fn
	}
}

func NewNotifier(cfg Config, logger *slog.Logger, opts ...Option) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	n := &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "audit_webhook"),
		queue:  make(chan *Delivery, cfg.QueueSize),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if len(cfg.Events) > 0 {
		n.events = make(map[audit.EventType]bool, len(cfg.Events))
		for _, e := range cfg.Events {
			n.events[e] = true
		}
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Log enqueues event. Filtered event types are accepted and dropped.
func (n *Notifier) Log(_ context.Context, event audit.Event) error {
	if n.events != nil && !n.events[event.EventType] {
		return nil
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(EventPayload{
		Type:      event.EventType,
		Data:      event,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	select {
	case <-n.stopCh:
		return ErrStopped
	default:
	}

	select {
	case n.queue <- &Delivery{ID: event.ID, EventType: event.EventType, Payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Send performs a single signed POST of d
func (n *Notifier) Send(ctx context.Context, d *Delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(n.cfg.Secret, d.Payload))
	req.Header.Set(EventHeader, string(d.EventType))
	req.Header.Set(DeliveryHeader, d.ID.String())
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
