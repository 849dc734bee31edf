package config

import (
	"context"
	"fmt"
	"os"
	"testing"
)

type fakeResolver struct {
	values map[string]string
	errs   map[string]error
}

func (f *fakeResolver) Resolve(ctx context.Context, secretID string) (string, error) {
	if err, ok := f.errs[secretID]; ok {
		return "", err
	}
	return f.values[secretID], nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_CLOUD_PROJECT", "LOCATION", "CONTEXT_TTL_SECONDS",
		"POLLING_INTERVAL_SECONDS", "MAX_POLLING_ATTEMPTS",
		"AGGREGATION_DELAY_SECONDS", "UPLOADER_WAIT_DEADLINE_SECONDS",
		"AGGREGATED_TRANSCRIPTS_BUCKET", "FRONTEND_URL", "REDACTED_TOPIC_NAME",
		"REDACTOR_URL", "AGGREGATOR_URL", "DETECTION_TEMPLATE_PATH",
		"STREAMING_BUFFER_ENABLED", "UTTERANCE_WINDOW_SIZE",
		"REDACTOR_DISABLE_DYNAMIC_CONTEXT", "REDIS_ADDR", "INTERNAL_BEARER_TOKEN",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_MissingProject(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_CLOUD_PROJECT")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "redact-prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Location != "us-central1" {
		t.Errorf("Location = %q, want us-central1", cfg.Location)
	}
	if cfg.ContextTTLSeconds != 90 {
		t.Errorf("ContextTTLSeconds = %d, want 90", cfg.ContextTTLSeconds)
	}
	if cfg.PollingIntervalSeconds != 5 {
		t.Errorf("PollingIntervalSeconds = %d, want 5", cfg.PollingIntervalSeconds)
	}
	if cfg.MaxPollingAttempts != 12 {
		t.Errorf("MaxPollingAttempts = %d, want 12", cfg.MaxPollingAttempts)
	}
	if cfg.AggregationDelaySeconds != 15 {
		t.Errorf("AggregationDelaySeconds = %d, want 15", cfg.AggregationDelaySeconds)
	}
	if cfg.UploaderWaitDeadlineSecs != 900 {
		t.Errorf("UploaderWaitDeadlineSecs = %d, want 900", cfg.UploaderWaitDeadlineSecs)
	}
	if cfg.FrontendURL != "http://localhost:3000" {
		t.Errorf("FrontendURL = %q, want http://localhost:3000", cfg.FrontendURL)
	}
	if cfg.StreamingBufferEnabled {
		t.Error("StreamingBufferEnabled = true, want false")
	}
	if cfg.UtteranceWindowSize != 5 {
		t.Errorf("UtteranceWindowSize = %d, want 5", cfg.UtteranceWindowSize)
	}
	if cfg.RedactorDisableDynamicCtx {
		t.Error("RedactorDisableDynamicCtx = true, want false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "redact-prod")
	t.Setenv("CONTEXT_TTL_SECONDS", "120")
	t.Setenv("STREAMING_BUFFER_ENABLED", "true")
	t.Setenv("UTTERANCE_WINDOW_SIZE", "8")
	t.Setenv("REDACTOR_DISABLE_DYNAMIC_CONTEXT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ContextTTLSeconds != 120 {
		t.Errorf("ContextTTLSeconds = %d, want 120", cfg.ContextTTLSeconds)
	}
	if !cfg.StreamingBufferEnabled {
		t.Error("StreamingBufferEnabled = false, want true")
	}
	if cfg.UtteranceWindowSize != 8 {
		t.Errorf("UtteranceWindowSize = %d, want 8", cfg.UtteranceWindowSize)
	}
	if !cfg.RedactorDisableDynamicCtx {
		t.Error("RedactorDisableDynamicCtx = false, want true")
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "redact-prod")
	t.Setenv("MAX_POLLING_ATTEMPTS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MaxPollingAttempts != 12 {
		t.Errorf("MaxPollingAttempts = %d, want 12 (fallback)", cfg.MaxPollingAttempts)
	}
}

func TestLoad_InvalidBoolFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "redact-prod")
	t.Setenv("STREAMING_BUFFER_ENABLED", "not-a-bool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.StreamingBufferEnabled {
		t.Error("StreamingBufferEnabled = true, want false (fallback)")
	}
}

func TestResolveSecrets_OverlaysRedisAndBearerToken(t *testing.T) {
	cfg := &Config{RedisAddr: "env-host:6379", BearerToken: "env-token"}
	resolver := &fakeResolver{values: map[string]string{
		redisHostSecretID:   "secret-host",
		redisPortSecretID:   "6380",
		bearerTokenSecretID: "secret-token",
	}}

	ResolveSecrets(context.Background(), cfg, resolver)

	if cfg.RedisAddr != "secret-host:6380" {
		t.Errorf("RedisAddr = %q, want secret-host:6380", cfg.RedisAddr)
	}
	if cfg.BearerToken != "secret-token" {
		t.Errorf("BearerToken = %q, want secret-token", cfg.BearerToken)
	}
}

func TestResolveSecrets_FallsBackOnResolveError(t *testing.T) {
	cfg := &Config{RedisAddr: "env-host:6379", BearerToken: "env-token"}
	resolver := &fakeResolver{errs: map[string]error{
		redisHostSecretID:   fmt.Errorf("not found"),
		bearerTokenSecretID: fmt.Errorf("not found"),
	}}

	ResolveSecrets(context.Background(), cfg, resolver)

	if cfg.RedisAddr != "env-host:6379" {
		t.Errorf("RedisAddr = %q, want env-host:6379 (unchanged)", cfg.RedisAddr)
	}
	if cfg.BearerToken != "env-token" {
		t.Errorf("BearerToken = %q, want env-token (unchanged)", cfg.BearerToken)
	}
}

func TestResolveSecrets_NilResolverIsNoop(t *testing.T) {
	cfg := &Config{RedisAddr: "env-host:6379", BearerToken: "env-token"}

	ResolveSecrets(context.Background(), cfg, nil)

	if cfg.RedisAddr != "env-host:6379" || cfg.BearerToken != "env-token" {
		t.Error("ResolveSecrets with nil resolver mutated cfg")
	}
}
