package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/connexus-ai/convo-redact/internal/model"
	"github.com/connexus-ai/convo-redact/internal/service"
)

type stubConversationStore struct {
	writeErr error
	entries  []model.ArchivalEntry
}

func (s *stubConversationStore) WriteUtterance(ctx context.Context, u model.Utterance) error {
	return s.writeErr
}
func (s *stubConversationStore) TouchConversationRoot(ctx context.Context, conversationID string, ttl time.Duration, startTimestampUsec int64) error {
	return nil
}
func (s *stubConversationStore) UtteranceCount(ctx context.Context, conversationID string) (int, bool, error) {
	return len(s.entries), true, nil
}
func (s *stubConversationStore) ListUtterancesOrdered(ctx context.Context, conversationID string) ([]model.ArchivalEntry, error) {
	return s.entries, nil
}
func (s *stubConversationStore) DeleteConversation(ctx context.Context, conversationID string) error {
	return nil
}

type stubBlobStore struct{ putErr error }

func (s *stubBlobStore) Put(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	return s.putErr
}
func (s *stubBlobStore) URI(bucket, object string) string { return "gs://" + bucket + "/" + object }

func pushEnvelopeFor(t *testing.T, payload map[string]interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	data := base64.StdEncoding.EncodeToString(raw)
	return []byte(`{"message":{"data":"` + data + `","message_id":"m1"}}`)
}

func TestRedactedTranscriptsAcceptsValidWrite(t *testing.T) {
	a := service.NewAggregator(&stubConversationStore{}, &stubBlobStore{}, &stubContextCache{}, "bucket", 90*time.Second, 5*time.Second, 12, 15*time.Second, false, 5)
	h := RedactedTranscripts(a)

	body := pushEnvelopeFor(t, map[string]interface{}{
		"conversation_id":      "C1",
		"original_entry_index": 0,
		"participant_role":     "AGENT",
		"text":                 "hello",
		"start_timestamp_usec": 1000,
	})
	req := httptest.NewRequest(http.MethodPost, "/redacted-transcripts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestRedactedTranscriptsRejectsMissingFields(t *testing.T) {
	a := service.NewAggregator(&stubConversationStore{}, &stubBlobStore{}, &stubContextCache{}, "bucket", 90*time.Second, 5*time.Second, 12, 15*time.Second, false, 5)
	h := RedactedTranscripts(a)

	body := pushEnvelopeFor(t, map[string]interface{}{"conversation_id": "C1"})
	req := httptest.NewRequest(http.MethodPost, "/redacted-transcripts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestConversationEndedIgnoredEventReturns200(t *testing.T) {
	a := service.NewAggregator(&stubConversationStore{}, &stubBlobStore{}, &stubContextCache{}, "bucket", 90*time.Second, 5*time.Second, 12, 15*time.Second, false, 5)
	h := ConversationEnded(a)

	body := pushEnvelopeFor(t, map[string]interface{}{
		"conversation_id": "C1",
		"event_type":      "conversation_started",
	})
	req := httptest.NewRequest(http.MethodPost, "/conversation-ended", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var resp envelope
	json.Unmarshal(rec.Body.Bytes(), &resp)
}

func TestConversationEndedArchivesTranscript(t *testing.T) {
	store := &stubConversationStore{entries: []model.ArchivalEntry{{Text: "hi", Role: model.RoleAgent}}}
	a := service.NewAggregator(store, &stubBlobStore{}, &stubContextCache{}, "bucket", 90*time.Second, 5*time.Second, 12, 15*time.Second, false, 5)
	h := ConversationEnded(a)

	body := pushEnvelopeFor(t, map[string]interface{}{
		"conversation_id": "C1",
		"event_type":      "conversation_ended",
	})
	req := httptest.NewRequest(http.MethodPost, "/conversation-ended", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestConversationEndedBlobFailureReturns500(t *testing.T) {
	store := &stubConversationStore{entries: []model.ArchivalEntry{{Text: "hi", Role: model.RoleAgent}}}
	blobs := &stubBlobStore{putErr: context.DeadlineExceeded}
	a := service.NewAggregator(store, blobs, &stubContextCache{}, "bucket", 90*time.Second, 5*time.Second, 12, 15*time.Second, false, 5)
	h := ConversationEnded(a)

	body := pushEnvelopeFor(t, map[string]interface{}{
		"conversation_id": "C1",
		"event_type":      "conversation_ended",
	})
	req := httptest.NewRequest(http.MethodPost, "/conversation-ended", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
