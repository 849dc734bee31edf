package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/connexus-ai/convo-redact/internal/apierr"
	"github.com/connexus-ai/convo-redact/internal/bus"
	"github.com/connexus-ai/convo-redact/internal/model"
	"github.com/connexus-ai/convo-redact/internal/retry"
)

// CloseOutcome reports what ConversationEnded did with a close event, for a
// handler to translate into the right HTTP status (spec.md §4.3).
type CloseOutcome string

const (
	CloseOutcomeIgnored   CloseOutcome = "ignored"
	CloseOutcomeSkipped   CloseOutcome = "skipped"
	CloseOutcomeArchived  CloseOutcome = "archived"
)

// Aggregator persists redacted utterances as they arrive and, on conversation
// close, assembles the ordered transcript and writes it to the blob store
// (spec.md §4.3).
type Aggregator struct {
	store ConversationStore
	blobs BlobStore
	cache ContextCache

	bucket string

	contextTTL     time.Duration
	pollInterval   time.Duration
	maxPollAttempts int
	settlingDelay  time.Duration

	streamingBufferEnabled bool
	utteranceWindowSize    int

	// OnPollingTimeout, if set, is called once per close that exhausts its
	// polling budget without reaching the expected count — the Aggregator's
	// domain counter.
	OnPollingTimeout func()

	// sleep is swappable in tests so polling does not actually block.
	sleep func(context.Context, time.Duration) error
}

// NewAggregator creates an Aggregator.
func NewAggregator(store ConversationStore, blobs BlobStore, cache ContextCache, bucket string, contextTTL, pollInterval time.Duration, maxPollAttempts int, settlingDelay time.Duration, streamingBufferEnabled bool, utteranceWindowSize int) *Aggregator {
	return &Aggregator{
		store:                  store,
		blobs:                  blobs,
		cache:                  cache,
		bucket:                 bucket,
		contextTTL:             contextTTL,
		pollInterval:           pollInterval,
		maxPollAttempts:        maxPollAttempts,
		settlingDelay:          settlingDelay,
		streamingBufferEnabled: streamingBufferEnabled,
		utteranceWindowSize:    utteranceWindowSize,
		sleep:                  ctxSleep,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

var documentStoreRetry = retry.Policy{Attempts: 3, Base: 1 * time.Second, Factor: 2, Cap: 10 * time.Second}

// WriteUtterance persists one redacted utterance and touches the
// conversation root (spec.md §4.3 "/redacted-transcripts").
func (a *Aggregator) WriteUtterance(ctx context.Context, raw []byte) error {
	var r rawUtterance
	if err := bus.Decode(raw, &r); err != nil {
		return err
	}

	var missing []string
	if r.ConversationID == "" {
		missing = append(missing, "conversation_id")
	}
	if r.OriginalEntryIndex == nil {
		missing = append(missing, "original_entry_index")
	}
	if r.ParticipantRole == "" {
		missing = append(missing, "participant_role")
	}
	if r.Text == nil || *r.Text == "" {
		missing = append(missing, "text")
	}
	if r.StartTimestampUsec == nil {
		missing = append(missing, "start_timestamp_usec")
	}
	if len(missing) > 0 {
		return &bus.ErrShape{Reason: "missing required field(s): " + strings.Join(missing, ", ")}
	}

	u := model.Utterance{
		ConversationID:     r.ConversationID,
		OriginalEntryIndex: *r.OriginalEntryIndex,
		ParticipantRole:    model.NormalizeParticipantRole(r.ParticipantRole),
		Text:               *r.Text,
		UserID:             r.UserID,
		StartTimestampUsec: *r.StartTimestampUsec,
	}

	if err := retry.Do(ctx, "aggregator.WriteUtterance", documentStoreRetry, apierr.IsTransient, func() error {
		return a.store.WriteUtterance(ctx, u)
	}); err != nil {
		return fmt.Errorf("aggregator: write utterance: %w", err)
	}

	if err := retry.Do(ctx, "aggregator.TouchConversationRoot", documentStoreRetry, apierr.IsTransient, func() error {
		return a.store.TouchConversationRoot(ctx, u.ConversationID, a.contextTTL, u.StartTimestampUsec)
	}); err != nil {
		return fmt.Errorf("aggregator: touch conversation root: %w", err)
	}

	if a.streamingBufferEnabled {
		payload, err := json.Marshal(model.ArchivalEntry{Text: u.Text, Role: u.ParticipantRole, UserID: u.UserID})
		if err == nil {
			if err := a.cache.PushUtterance(ctx, u.ConversationID, payload, a.utteranceWindowSize, a.contextTTL); err != nil {
				slog.Warn("aggregator: streaming buffer push failed", "conversation_id", u.ConversationID, "event", "streaming_buffer_push_failed", "error", err.Error())
			}
		}
	}

	return nil
}

type rawLifecycleEvent struct {
	ConversationID      string `json:"conversation_id"`
	EventType           string `json:"event_type"`
	TotalUtteranceCount *int   `json:"total_utterance_count"`
}

// ConversationEnded handles one lifecycle-bus delivery. Events whose type is
// not conversation_ended are ignored. On conversation_ended it waits for
// utterances to settle, assembles the ordered transcript, writes it to the
// blob store, and deletes the in-progress state (spec.md §4.3
// "/conversation-ended").
func (a *Aggregator) ConversationEnded(ctx context.Context, raw []byte) (CloseOutcome, error) {
	var r rawLifecycleEvent
	if err := bus.Decode(raw, &r); err != nil {
		return "", err
	}
	if r.ConversationID == "" {
		return "", &bus.ErrShape{Reason: "missing required field: conversation_id"}
	}
	if model.LifecycleEventType(r.EventType) != model.EventConversationEnded {
		return CloseOutcomeIgnored, nil
	}

	if err := a.waitForUtterances(ctx, r.ConversationID, r.TotalUtteranceCount); err != nil {
		return "", fmt.Errorf("aggregator: wait for utterances: %w", err)
	}

	entries, err := a.store.ListUtterancesOrdered(ctx, r.ConversationID)
	if err != nil {
		return "", fmt.Errorf("aggregator: list utterances: %w", err)
	}
	if len(entries) == 0 {
		slog.Warn("aggregator: no utterances found at close, skipping archival", "conversation_id", r.ConversationID, "event", "empty_conversation_skip")
		return CloseOutcomeSkipped, nil
	}

	artifact := model.ArchivalArtifact{Entries: entries}
	payload, err := json.Marshal(artifact)
	if err != nil {
		return "", fmt.Errorf("aggregator: marshal archival artifact: %w", err)
	}

	object := r.ConversationID + "_transcript.json"
	if err := retry.Do(ctx, "aggregator.PutArtifact", documentStoreRetry, apierr.IsTransient, func() error {
		return a.blobs.Put(ctx, a.bucket, object, payload, "application/json")
	}); err != nil {
		return "", fmt.Errorf("aggregator: write archival artifact: %w", err)
	}

	if err := a.store.DeleteConversation(ctx, r.ConversationID); err != nil {
		slog.Error("aggregator: failed to delete conversation state after archival", "conversation_id", r.ConversationID, "event", "conversation_cleanup_failed", "error", err.Error())
	}

	return CloseOutcomeArchived, nil
}

// waitForUtterances blocks until the persisted utterance count reaches
// expected, the polling budget is exhausted, or — absent an expected total —
// for a fixed settling delay (spec.md §4.3).
func (a *Aggregator) waitForUtterances(ctx context.Context, conversationID string, expected *int) error {
	if expected == nil {
		return a.sleep(ctx, a.settlingDelay)
	}

	for attempt := 0; attempt < a.maxPollAttempts; attempt++ {
		count, _, err := a.store.UtteranceCount(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("poll utterance count: %w", err)
		}
		if count >= *expected {
			return nil
		}
		if attempt == a.maxPollAttempts-1 {
			break
		}
		if err := a.sleep(ctx, a.pollInterval); err != nil {
			return err
		}
	}

	slog.Warn("aggregator: polling timed out before reaching expected utterance count", "conversation_id", conversationID, "expected", *expected, "event", "polling_timeout")
	if a.OnPollingTimeout != nil {
		a.OnPollingTimeout()
	}
	return nil
}
