package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port         int    `envconfig:"PORT" default:"3000"`
	Environment  string `envconfig:"ENV" default:"development"`
	LogFile      string `envconfig:"LOG_FILE"`
	MaxBodyBytes int    `envconfig:"MAX_BODY_BYTES" default:"16777216"`

	// Backends
	FaceBackend     string        `envconfig:"FACE_BACKEND" default:"mock"`
	DeepFaceURL     string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceTimeout time.Duration `envconfig:"DEEPFACE_TIMEOUT" default:"30s"`
	AWSRegion       string        `envconfig:"AWS_REGION" default:"us-east-1"`

	// Model presets
	PresetsFile string `envconfig:"MODEL_PRESETS_FILE"`

	// Audit trail
	AuditDatabaseURL   string        `envconfig:"AUDIT_DATABASE_URL"`
	AuditRetention     time.Duration `envconfig:"AUDIT_RETENTION" default:"720h"`
	AuditPruneInterval time.Duration `envconfig:"AUDIT_PRUNE_INTERVAL" default:"1h"`
	// zero disables the periodic summary log
	AuditSummaryInterval time.Duration `envconfig:"AUDIT_SUMMARY_INTERVAL" default:"15m"`

	// Audit webhook
	AuditWebhookURL    string   `envconfig:"AUDIT_WEBHOOK_URL"`
	AuditWebhookSecret string   `envconfig:"AUDIT_WEBHOOK_SECRET"`
	AuditWebhookEvents []string `envconfig:"AUDIT_WEBHOOK_EVENTS"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AuditWebhookEnabled reports whether audit events are forwarded over HTTP
func (c *Config) AuditWebhookEnabled() bool {
	return c.AuditWebhookURL != ""
}

// AuditPersisted reports whether audit events go to Postgres
func (c *Config) AuditPersisted() bool {
	return c.AuditDatabaseURL != ""
}
