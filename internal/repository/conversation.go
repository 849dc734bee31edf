// Package repository implements the document-store collaborator spec.md §1
// assumes: transactional single-document ops and ordered collection scans,
// backed by Cloud Firestore.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/connexus-ai/convo-redact/internal/model"
)

const (
	inProgressCollection = "conversations_in_progress"
	conversationsRoot    = "conversations"
	utterancesSub        = "utterances"
)

// utteranceDoc mirrors one conversations/<id>/utterances/<index> document.
type utteranceDoc struct {
	Text               string                `firestore:"text"`
	OriginalEntryIndex int                   `firestore:"original_entry_index"`
	ParticipantRole    model.ParticipantRole `firestore:"participant_role"`
	UserID             string                `firestore:"user_id"`
	StartTimestampUsec int64                 `firestore:"start_timestamp_usec"`
	ReceivedAt         time.Time             `firestore:"received_at"`
}

// ConversationRepository implements service.ConversationStore over
// cloud.google.com/go/firestore: a root document per in-flight conversation
// and an ordered utterances sub-collection beneath a sibling conversation
// document, matching spec.md §3's hierarchical ownership model.
type ConversationRepository struct {
	client *firestore.Client
}

// New creates a ConversationRepository.
func New(client *firestore.Client) *ConversationRepository {
	return &ConversationRepository{client: client}
}

func (r *ConversationRepository) rootRef(conversationID string) *firestore.DocumentRef {
	return r.client.Collection(inProgressCollection).Doc(conversationID)
}

func (r *ConversationRepository) utteranceRef(conversationID string, index int) *firestore.DocumentRef {
	return r.client.Collection(conversationsRoot).Doc(conversationID).Collection(utterancesSub).Doc(utteranceDocID(index))
}

// utteranceDocID is the utterance sub-collection document id: the index
// itself, so that redelivery of the same index overwrites rather than
// duplicates (spec.md §4.3, I5).
func utteranceDocID(index int) string {
	return fmt.Sprintf("%d", index)
}

// WriteUtterance persists u under
// conversations/<id>/utterances/<original_entry_index> (doc id IS the
// index, so redelivery overwrites in place — I5) and, only the first time
// this index is seen, increments the conversation root's utterance_count
// inside the same transaction — I1's "distinct indices" accounting.
func (r *ConversationRepository) WriteUtterance(ctx context.Context, u model.Utterance) error {
	uRef := r.utteranceRef(u.ConversationID, u.OriginalEntryIndex)
	rootRef := r.rootRef(u.ConversationID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, getErr := tx.Get(uRef)
		isNew := status.Code(getErr) == codes.NotFound
		if getErr != nil && !isNew {
			return fmt.Errorf("get existing utterance: %w", getErr)
		}

		doc := utteranceDoc{
			Text:               u.Text,
			OriginalEntryIndex: u.OriginalEntryIndex,
			ParticipantRole:    u.ParticipantRole,
			UserID:             u.UserID,
			StartTimestampUsec: u.StartTimestampUsec,
			ReceivedAt:         time.Now().UTC(),
		}
		if err := tx.Set(uRef, doc); err != nil {
			return fmt.Errorf("set utterance: %w", err)
		}

		if !isNew {
			return nil
		}

		rootSnap, getRootErr := tx.Get(rootRef)
		count := 0
		lastTS := int64(0)
		if getRootErr == nil {
			if v, err := rootSnap.DataAt("utteranceCount"); err == nil {
				if n, ok := v.(int64); ok {
					count = int(n)
				}
			}
			if v, err := rootSnap.DataAt("lastUtteranceTimestamp"); err == nil {
				if n, ok := v.(int64); ok {
					lastTS = n
				}
			}
		} else if status.Code(getRootErr) != codes.NotFound {
			return fmt.Errorf("get conversation root: %w", getRootErr)
		}

		if u.StartTimestampUsec > lastTS {
			lastTS = u.StartTimestampUsec
		}

		return tx.Set(rootRef, map[string]interface{}{
			"utteranceCount":         count + 1,
			"lastUtteranceTimestamp": lastTS,
		}, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("repository.WriteUtterance: %w", err)
	}
	return nil
}

// TouchConversationRoot refreshes the conversation root's expireAt without
// touching utterance_count — used by WriteUtterance's caller to apply the
// current CONTEXT_TTL-derived deadline (spec.md §4.3).
func (r *ConversationRepository) TouchConversationRoot(ctx context.Context, conversationID string, ttl time.Duration, startTimestampUsec int64) error {
	rootRef := r.rootRef(conversationID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, getErr := tx.Get(rootRef)
		lastTS := startTimestampUsec
		if getErr == nil {
			if v, err := snap.DataAt("lastUtteranceTimestamp"); err == nil {
				if n, ok := v.(int64); ok && n > lastTS {
					lastTS = n
				}
			}
		} else if status.Code(getErr) != codes.NotFound {
			return fmt.Errorf("get conversation root: %w", getErr)
		}
		return tx.Set(rootRef, map[string]interface{}{
			"expireAt":               time.Now().Add(ttl),
			"lastUtteranceTimestamp": lastTS,
		}, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("repository.TouchConversationRoot: %w", err)
	}
	return nil
}

// UtteranceCount reads the conversation root's persisted utterance_count.
// The bool return is false when no root document exists yet.
func (r *ConversationRepository) UtteranceCount(ctx context.Context, conversationID string) (int, bool, error) {
	snap, err := r.rootRef(conversationID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("repository.UtteranceCount: %w", err)
	}
	v, err := snap.DataAt("utteranceCount")
	if err != nil {
		return 0, false, nil
	}
	n, ok := v.(int64)
	if !ok {
		return 0, false, nil
	}
	return int(n), true, nil
}

// ListUtterancesOrdered scans the utterances sub-collection ordered by
// original_entry_index, building the archival entries spec.md §4.3
// describes.
func (r *ConversationRepository) ListUtterancesOrdered(ctx context.Context, conversationID string) ([]model.ArchivalEntry, error) {
	iter := r.client.Collection(conversationsRoot).Doc(conversationID).Collection(utterancesSub).
		OrderBy("original_entry_index", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var entries []model.ArchivalEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("repository.ListUtterancesOrdered: %w", err)
		}
		var doc utteranceDoc
		if err := snap.DataTo(&doc); err != nil {
			// Decode failure of a persisted record: warn and skip (spec.md §7.7).
			slog.Warn("repository: skipping undecodable utterance", "conversation_id", conversationID, "doc_id", snap.Ref.ID, "event", "utterance_decode_skip", "error", err.Error())
			continue
		}
		entries = append(entries, model.ArchivalEntry{
			Text:   doc.Text,
			Role:   doc.ParticipantRole,
			UserID: doc.UserID,
		})
	}
	return entries, nil
}

// DeleteConversation removes the utterances sub-collection and the
// conversation root, called after a successful blob write (spec.md §4.3).
func (r *ConversationRepository) DeleteConversation(ctx context.Context, conversationID string) error {
	subColl := r.client.Collection(conversationsRoot).Doc(conversationID).Collection(utterancesSub)
	if err := deleteCollection(ctx, r.client, subColl, 100); err != nil {
		return fmt.Errorf("repository.DeleteConversation utterances: %w", err)
	}
	if _, err := r.client.Collection(conversationsRoot).Doc(conversationID).Delete(ctx); err != nil {
		return fmt.Errorf("repository.DeleteConversation conversation doc: %w", err)
	}
	if _, err := r.rootRef(conversationID).Delete(ctx); err != nil {
		return fmt.Errorf("repository.DeleteConversation root: %w", err)
	}
	return nil
}

func deleteCollection(ctx context.Context, client *firestore.Client, coll *firestore.CollectionRef, batchSize int) error {
	for {
		iter := coll.Limit(batchSize).Documents(ctx)
		numDeleted := 0

		batch := client.Batch()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			batch.Delete(doc.Ref)
			numDeleted++
		}

		if numDeleted == 0 {
			return nil
		}
		if _, err := batch.Commit(ctx); err != nil {
			return err
		}
	}
}
