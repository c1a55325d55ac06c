// Package webhook forwards audit events to an HTTP endpoint. Every delivery is
// a JSON POST signed with HMAC-SHA256 over the body; failed deliveries are
// retried with exponential backoff by the worker launched with Start.
package webhook

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/audit"
)

const (
	SignatureHeader = "X-Facebridge-Signature"
	EventHeader     = "X-Facebridge-Event"
	DeliveryHeader  = "X-Facebridge-Delivery"
	userAgent       = "Facebridge-Webhook/1.0"
)

var (
	ErrQueueFull = errors.New("webhook queue full")
	ErrStopped   = errors.New("webhook notifier stopped")
)

type Config struct {
	URL    string
	Secret string
	// Events restricts deliveries to these types; empty forwards everything
	Events      []audit.EventType
	Timeout     time.Duration
	MaxAttempts int
	QueueSize   int
}

func DefaultConfig(url, secret string) Config {
	return Config{
		URL:         url,
		Secret:      secret,
		Timeout:     10 * time.Second,
		MaxAttempts: 5,
		QueueSize:   256,
	}
}

// EventPayload is the JSON body of a delivery
type EventPayload struct {
	Type      audit.EventType `json:"type"`
	Data      audit.Event     `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Delivery is one queued POST
type Delivery struct {
	ID        uuid.UUID
	EventType audit.EventType
	Payload   []byte
	Attempts  int
	LastError string
}
