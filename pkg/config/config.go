package config

import (
	"os"
	"time"
)

// Config holds gate configuration.
type Config struct {
	LogLevel string

	// Authority selection. When AuthorityURL is set the gate calls the remote
	// authority service; otherwise it evaluates PolicyPath locally.
	AuthorityURL string
	SigningKey   string
	PolicyPath   string

	// Identity attached to every authorization request.
	Principal string
	TenantID  string
	SessionID string

	// Decision cache. Empty RedisAddr disables caching.
	RedisAddr string
	CacheTTL  time.Duration

	// Audit persistence. AuditDriver is "sqlite" or "postgres".
	AuditDriver string
	AuditDSN    string

	// OTLP trace/metric export. Empty disables the exporters.
	OTLPEndpoint string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cacheTTL := 30 * time.Second
	if raw := os.Getenv("PREDICATE_CACHE_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cacheTTL = d
		}
	}

	return &Config{
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		AuthorityURL: os.Getenv("PREDICATE_AUTHORITY_URL"),
		SigningKey:   os.Getenv("PREDICATE_SIGNING_KEY"),
		PolicyPath:   getEnv("PREDICATE_POLICY_PATH", "policy.yaml"),
		Principal:    getEnv("PREDICATE_PRINCIPAL", "temporal-worker"),
		TenantID:     os.Getenv("PREDICATE_TENANT_ID"),
		SessionID:    os.Getenv("PREDICATE_SESSION_ID"),
		RedisAddr:    os.Getenv("PREDICATE_REDIS_ADDR"),
		CacheTTL:     cacheTTL,
		AuditDriver:  getEnv("PREDICATE_AUDIT_DRIVER", "sqlite"),
		AuditDSN:     getEnv("PREDICATE_AUDIT_DSN", "predicate-audit.db"),
		OTLPEndpoint: os.Getenv("PREDICATE_OTLP_ENDPOINT"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
