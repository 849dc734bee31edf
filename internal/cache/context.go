// Package cache provides the Redis-backed KV collaborator spec.md §1 assumes
// as "TTL-aware string/list operations": the Redactor's exclusive
// RedactionContext store, and the Aggregator's optional streaming buffer.
// This replaces the teacher's in-process sync.RWMutex map (internal/cache's
// original query-result cache) because this spec's state must survive past
// a single process (spec.md §5: "every shared data structure lives outside
// the process").
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/connexus-ai/convo-redact/internal/model"
)

// RedisContextCache implements service.ContextCache over a *redis.Client.
type RedisContextCache struct {
	client *redis.Client
}

// New creates a RedisContextCache.
func New(client *redis.Client) *RedisContextCache {
	return &RedisContextCache{client: client}
}

func contextKey(conversationID string) string {
	return "context:" + conversationID
}

func utteranceListKey(conversationID string) string {
	return "utterances:" + conversationID
}

// GetContext reads the RedactionContext for conversationID. A cache miss is
// not an error (spec.md §3: "absence MUST NOT raise an error") — it returns
// a nil context.
func (c *RedisContextCache) GetContext(ctx context.Context, conversationID string) (*model.RedactionContext, error) {
	raw, err := c.client.Get(ctx, contextKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache.GetContext: %w", err)
	}

	var rc model.RedactionContext
	if err := json.Unmarshal(raw, &rc); err != nil {
		slog.Warn("cache: discarding unparseable redaction context", "conversation_id", conversationID, "error", err.Error())
		return nil, nil
	}
	return &rc, nil
}

// SetContext writes rc under context:<conversationID> with ttl, overwriting
// any existing value (spec.md §4.2 state machine: Armed→Armed on re-match).
func (c *RedisContextCache) SetContext(ctx context.Context, conversationID string, rc model.RedactionContext, ttl time.Duration) error {
	raw, err := json.Marshal(rc)
	if err != nil {
		return fmt.Errorf("cache.SetContext marshal: %w", err)
	}
	if err := c.client.Set(ctx, contextKey(conversationID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache.SetContext: %w", err)
	}
	return nil
}

// PushUtterance appends payload to the streaming buffer list for
// conversationID, trims it to the maxLen most recent entries, and refreshes
// the list's TTL — the optional streaming-buffer variant (spec.md §4.3).
func (c *RedisContextCache) PushUtterance(ctx context.Context, conversationID string, payload []byte, maxLen int, ttl time.Duration) error {
	key := utteranceListKey(conversationID)
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-maxLen), -1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache.PushUtterance: %w", err)
	}
	return nil
}

// RecentUtterances returns the buffered entries for conversationID, oldest
// first, or nil if the buffer doesn't exist.
func (c *RedisContextCache) RecentUtterances(ctx context.Context, conversationID string) ([][]byte, error) {
	raws, err := c.client.LRange(ctx, utteranceListKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache.RecentUtterances: %w", err)
	}
	out := make([][]byte, len(raws))
	for i, r := range raws {
		out[i] = []byte(r)
	}
	return out, nil
}
