package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/connexus-ai/convo-redact/internal/service"
)

type stubAnalyticsUploader struct {
	err     error
	lastReq service.UploadConversationRequest
}

func (s *stubAnalyticsUploader) UploadConversation(ctx context.Context, req service.UploadConversationRequest) error {
	s.lastReq = req
	return s.err
}

func TestObjectCreatedSubmitsUpload(t *testing.T) {
	analytics := &stubAnalyticsUploader{}
	u := service.NewUploader(analytics, "proj", "us-central1")
	h := ObjectCreated(u)

	body, _ := json.Marshal(map[string]string{"bucket": "archive-bucket", "name": "C1_transcript.json"})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if analytics.lastReq.ConversationID != "C1" {
		t.Errorf("ConversationID = %q, want C1", analytics.lastReq.ConversationID)
	}
	if analytics.lastReq.GCSURI != "gs://archive-bucket/C1_transcript.json" {
		t.Errorf("GCSURI = %q", analytics.lastReq.GCSURI)
	}
}

func TestObjectCreatedRejectsMissingFields(t *testing.T) {
	u := service.NewUploader(&stubAnalyticsUploader{}, "proj", "us-central1")
	h := ObjectCreated(u)

	body, _ := json.Marshal(map[string]string{"bucket": "archive-bucket"})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestObjectCreatedPropagatesFailure(t *testing.T) {
	analytics := &stubAnalyticsUploader{err: context.DeadlineExceeded}
	u := service.NewUploader(analytics, "proj", "us-central1")
	h := ObjectCreated(u)

	body, _ := json.Marshal(map[string]string{"bucket": "archive-bucket", "name": "C1_transcript.json"})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
