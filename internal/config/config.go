// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// CRMBaseURL is the base URL of the remote CRM/billing API (e.g. https://crm.example.com/api/v2).
	CRMBaseURL string `mapstructure:"CRM_BASE_URL"`
	// CRMAPIToken is the bearer token for the remote CRM/billing API.
	CRMAPIToken string `mapstructure:"CRM_API_TOKEN"`
	// CRMTimeout is the per-call timeout for outbound CRM requests (e.g. "15s").
	CRMTimeout string `mapstructure:"CRM_TIMEOUT"`

	// SignupLinkBaseURL is the public URL prefix for issued signup links (e.g. https://portal.example.com/signup).
	SignupLinkBaseURL string `mapstructure:"SIGNUP_LINK_BASE_URL"`
	// SignupLinkTTLDays is the default signup-link lifetime in days when the caller does not pass one.
	SignupLinkTTLDays int `mapstructure:"SIGNUP_LINK_TTL_DAYS"`
	// SignupLinkUsageLimit is the default number of uses per signup link.
	SignupLinkUsageLimit int `mapstructure:"SIGNUP_LINK_USAGE_LIMIT"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used by dev token minting only.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; required to validate inbound API tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the expected iss claim (e.g. "order-crm-sync").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the expected aud claim (e.g. "order-crm-sync-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime used by dev token minting (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP collector endpoint (e.g. http://localhost:4317). Empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// SyncKafkaBrokers is a comma-separated list of Kafka broker addresses; empty disables sync event emission.
	SyncKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// SyncKafkaTopic is the Kafka topic for sync audit events (default crmsync-events).
	SyncKafkaTopic string `mapstructure:"SYNC_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the sync-event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the sync-event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CRM_BASE_URL", "")
	v.SetDefault("CRM_API_TOKEN", "")
	v.SetDefault("CRM_TIMEOUT", "15s")
	v.SetDefault("SIGNUP_LINK_BASE_URL", "")
	v.SetDefault("SIGNUP_LINK_TTL_DAYS", 7)
	v.SetDefault("SIGNUP_LINK_USAGE_LIMIT", 1)
	v.SetDefault("JWT_ISSUER", "order-crm-sync")
	v.SetDefault("JWT_AUDIENCE", "order-crm-sync-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SYNC_KAFKA_TOPIC", "crmsync-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "crmsync-event-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.SignupLinkTTLDays < 0 {
		return nil, errors.New("config: SIGNUP_LINK_TTL_DAYS must not be negative")
	}
	if cfg.SignupLinkUsageLimit < 1 {
		return nil, errors.New("config: SIGNUP_LINK_USAGE_LIMIT must be at least 1")
	}

	return &cfg, nil
}

// CRMCallTimeout parses CRMTimeout as a time.Duration. Returns 15s if unset or invalid.
func (c *Config) CRMCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.CRMTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// SignupLinkTTL returns the default signup-link lifetime as a duration.
func (c *Config) SignupLinkTTL() time.Duration {
	return time.Duration(c.SignupLinkTTLDays) * 24 * time.Hour
}

// SyncKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if sync event emission is enabled (non-empty list) and to create the producer.
func (c *Config) SyncKafkaBrokersList() []string {
	if c == nil || c.SyncKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.SyncKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
