package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/connexus-ai/convo-redact/internal/model"
)

func TestUtteranceDocIDUsesIndex(t *testing.T) {
	if got := utteranceDocID(7); got != "7" {
		t.Errorf("utteranceDocID(7) = %q, want %q", got, "7")
	}
	if got := utteranceDocID(0); got != "0" {
		t.Errorf("utteranceDocID(0) = %q, want %q", got, "0")
	}
}

// setupConversationRepo connects to the Firestore emulator named by
// FIRESTORE_EMULATOR_HOST. Every test below is an integration test and is
// skipped outright when no emulator is configured.
func setupConversationRepo(t *testing.T) *ConversationRepository {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := firestore.NewClient(ctx, "convo-redact-test")
	if err != nil {
		t.Fatalf("firestore.NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return New(client)
}

// TestWriteUtterance_DuplicateIndexIsAbsorbed exercises I1/I5: redelivering
// the same original_entry_index must overwrite the utterance document in
// place and must not double-count it on the conversation root.
func TestWriteUtterance_DuplicateIndexIsAbsorbed(t *testing.T) {
	repo := setupConversationRepo(t)
	conversationID := uuid.New().String()
	ctx := context.Background()

	first := model.Utterance{
		ConversationID:     conversationID,
		OriginalEntryIndex: 0,
		ParticipantRole:    model.RoleEndUser,
		Text:               "first delivery",
		StartTimestampUsec: 1000,
	}
	if err := repo.WriteUtterance(ctx, first); err != nil {
		t.Fatalf("WriteUtterance(first) error: %v", err)
	}

	redelivered := first
	redelivered.Text = "redelivered with same index"
	redelivered.StartTimestampUsec = 2000
	if err := repo.WriteUtterance(ctx, redelivered); err != nil {
		t.Fatalf("WriteUtterance(redelivered) error: %v", err)
	}

	count, ok, err := repo.UtteranceCount(ctx, conversationID)
	if err != nil {
		t.Fatalf("UtteranceCount() error: %v", err)
	}
	if !ok {
		t.Fatal("UtteranceCount() ok = false, want true")
	}
	if count != 1 {
		t.Errorf("UtteranceCount() = %d, want 1 (redelivery must not double-count)", count)
	}

	entries, err := repo.ListUtterancesOrdered(ctx, conversationID)
	if err != nil {
		t.Fatalf("ListUtterancesOrdered() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Text != "redelivered with same index" {
		t.Errorf("entries[0].Text = %q, want the redelivered text (overwrite in place)", entries[0].Text)
	}

	if err := repo.DeleteConversation(ctx, conversationID); err != nil {
		t.Fatalf("DeleteConversation() error: %v", err)
	}
}

// TestWriteUtterance_DistinctIndicesEachCount exercises I1's "distinct
// indices" accounting: two different original_entry_index values both count.
func TestWriteUtterance_DistinctIndicesEachCount(t *testing.T) {
	repo := setupConversationRepo(t)
	conversationID := uuid.New().String()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u := model.Utterance{
			ConversationID:     conversationID,
			OriginalEntryIndex: i,
			ParticipantRole:    model.RoleAgent,
			Text:               "turn",
			StartTimestampUsec: int64(1000 * (i + 1)),
		}
		if err := repo.WriteUtterance(ctx, u); err != nil {
			t.Fatalf("WriteUtterance(%d) error: %v", i, err)
		}
	}

	count, ok, err := repo.UtteranceCount(ctx, conversationID)
	if err != nil {
		t.Fatalf("UtteranceCount() error: %v", err)
	}
	if !ok || count != 3 {
		t.Errorf("UtteranceCount() = %d, ok=%v, want 3, true", count, ok)
	}

	entries, err := repo.ListUtterancesOrdered(ctx, conversationID)
	if err != nil {
		t.Fatalf("ListUtterancesOrdered() error: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("len(entries) = %d, want 3", len(entries))
	}

	if err := repo.DeleteConversation(ctx, conversationID); err != nil {
		t.Fatalf("DeleteConversation() error: %v", err)
	}
}
