// Command aggregator runs the Aggregator service: it persists redacted
// utterances as they arrive and, on conversation close, reconstructs the
// ordered transcript and writes it to the blob store (spec.md §4.3).
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/iterator"

	"github.com/connexus-ai/convo-redact/internal/cache"
	"github.com/connexus-ai/convo-redact/internal/config"
	"github.com/connexus-ai/convo-redact/internal/gcpclient"
	"github.com/connexus-ai/convo-redact/internal/handler"
	"github.com/connexus-ai/convo-redact/internal/middleware"
	"github.com/connexus-ai/convo-redact/internal/repository"
	"github.com/connexus-ai/convo-redact/internal/router"
	"github.com/connexus-ai/convo-redact/internal/service"
)

const Version = "0.1.0"

func getPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

func run() error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if secrets, err := gcpclient.NewSecretAdapter(ctx, cfg.GoogleCloudProject); err != nil {
		slog.Warn("secret manager unavailable, using environment configuration", "event", "secret_manager_unavailable", "error", err.Error())
	} else {
		defer secrets.Close()
		config.ResolveSecrets(ctx, cfg, secrets)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.GoogleCloudProject)
	if err != nil {
		return fmt.Errorf("connect firestore: %w", err)
	}
	defer firestoreClient.Close()
	store := repository.New(firestoreClient)

	blobs, err := gcpclient.NewStorageAdapter(ctx)
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer blobs.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	streamingBuffer := cache.New(redisClient)

	contextTTL := time.Duration(cfg.ContextTTLSeconds) * time.Second
	pollInterval := time.Duration(cfg.PollingIntervalSeconds) * time.Second
	settlingDelay := time.Duration(cfg.AggregationDelaySeconds) * time.Second

	aggregator := service.NewAggregator(store, blobs, streamingBuffer, cfg.AggregatedTranscriptsBucket, contextTTL, pollInterval, cfg.MaxPollingAttempts, settlingDelay, cfg.StreamingBufferEnabled, cfg.UtteranceWindowSize)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)
	aggregator.OnPollingTimeout = metrics.IncrementPollingTimeout

	r := router.NewAggregatorRouter(&router.AggregatorDependencies{
		Aggregator:  aggregator,
		BearerToken: cfg.BearerToken,
		Version:     Version,
		Metrics:     metrics,
		MetricsReg:  reg,
		Deps: map[string]handler.Pinger{
			"firestore": firestorePinger{firestoreClient},
			"redis":     redisPinger{redisClient},
		},
	})

	port := getPort()
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("aggregator starting", "port", port, "version", Version, "event", "startup")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down gracefully", "signal", sig.String(), "event", "shutdown")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("aggregator stopped", "event", "shutdown_complete")
	return nil
}

type firestorePinger struct{ client *firestore.Client }

func (p firestorePinger) Ping(ctx context.Context) error {
	it := p.client.Collections(ctx)
	_, err := it.Next()
	if err == iterator.Done {
		return nil
	}
	return err
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
