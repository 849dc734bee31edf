// Package config loads application configuration from environment variables,
// the way every service in this repo is configured.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment
// variables. It is immutable after Load returns.
type Config struct {
	GoogleCloudProject string
	Location           string

	ContextTTLSeconds        int
	PollingIntervalSeconds   int
	MaxPollingAttempts       int
	AggregationDelaySeconds  int
	UploaderWaitDeadlineSecs int

	AggregatedTranscriptsBucket string
	FrontendURL                 string
	RedactedTopicName           string
	RedactorURL                 string
	AggregatorURL               string
	DetectionTemplatePath       string

	StreamingBufferEnabled    bool
	UtteranceWindowSize       int
	RedactorDisableDynamicCtx bool

	RedisAddr   string
	BearerToken string
}

// Load reads configuration from environment variables. GOOGLE_CLOUD_PROJECT
// is required; everything else defaults per spec.md §6.
func Load() (*Config, error) {
	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if project == "" {
		return nil, fmt.Errorf("config.Load: GOOGLE_CLOUD_PROJECT is required")
	}

	cfg := &Config{
		GoogleCloudProject: project,
		Location:           envStr("LOCATION", "us-central1"),

		ContextTTLSeconds:        envInt("CONTEXT_TTL_SECONDS", 90),
		PollingIntervalSeconds:   envInt("POLLING_INTERVAL_SECONDS", 5),
		MaxPollingAttempts:       envInt("MAX_POLLING_ATTEMPTS", 12),
		AggregationDelaySeconds:  envInt("AGGREGATION_DELAY_SECONDS", 15),
		UploaderWaitDeadlineSecs: envInt("UPLOADER_WAIT_DEADLINE_SECONDS", 900),

		AggregatedTranscriptsBucket: envStr("AGGREGATED_TRANSCRIPTS_BUCKET", ""),
		FrontendURL:                 envStr("FRONTEND_URL", "http://localhost:3000"),
		RedactedTopicName:           envStr("REDACTED_TOPIC_NAME", "redacted-utterances"),
		RedactorURL:                 envStr("REDACTOR_URL", ""),
		AggregatorURL:               envStr("AGGREGATOR_URL", ""),
		DetectionTemplatePath:       envStr("DETECTION_TEMPLATE_PATH", "./configs/detection_templates.yaml"),

		StreamingBufferEnabled:    envBool("STREAMING_BUFFER_ENABLED", false),
		UtteranceWindowSize:       envInt("UTTERANCE_WINDOW_SIZE", 5),
		RedactorDisableDynamicCtx: envBool("REDACTOR_DISABLE_DYNAMIC_CONTEXT", false),

		RedisAddr:   envStr("REDIS_ADDR", ""),
		BearerToken: envStr("INTERNAL_BEARER_TOKEN", ""),
	}

	return cfg, nil
}

// SecretResolver resolves a secret id to its current value. It is declared
// here, rather than imported, so this package stays independent of
// internal/service and internal/gcpclient; gcpclient.SecretAdapter satisfies
// it structurally.
type SecretResolver interface {
	Resolve(ctx context.Context, secretID string) (string, error)
}

// Secret ids mirror the constants every original_source service's get_secret
// helper fetched by name at startup.
const (
	redisHostSecretID   = "CONTEXT_MANAGER_REDIS_HOST"
	redisPortSecretID   = "CONTEXT_MANAGER_REDIS_PORT"
	bearerTokenSecretID = "INTERNAL_BEARER_TOKEN"

	defaultRedisPort = "6379"
)

// ResolveSecrets overlays cfg's sensitive fields with values fetched through
// resolver. A resolve failure is logged and the field already loaded from
// the environment stands, the same degrade-on-missing-secret behavior
// get_secret's callers used for non-fatal secrets.
func ResolveSecrets(ctx context.Context, cfg *Config, resolver SecretResolver) {
	if resolver == nil {
		return
	}

	if host, err := resolver.Resolve(ctx, redisHostSecretID); err != nil {
		slog.Warn("secret resolve failed, keeping environment value", "secret_id", redisHostSecretID, "event", "secret_resolve_failed", "error", err.Error())
	} else if host != "" {
		port := defaultRedisPort
		if p, err := resolver.Resolve(ctx, redisPortSecretID); err == nil && p != "" {
			port = p
		}
		cfg.RedisAddr = host + ":" + port
	}

	if token, err := resolver.Resolve(ctx, bearerTokenSecretID); err != nil {
		slog.Warn("secret resolve failed, keeping environment value", "secret_id", bearerTokenSecretID, "event", "secret_resolve_failed", "error", err.Error())
	} else if token != "" {
		cfg.BearerToken = token
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
