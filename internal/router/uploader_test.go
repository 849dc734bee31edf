package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/connexus-ai/convo-redact/internal/service"
)

type stubAnalyticsUploader struct{}

func (s *stubAnalyticsUploader) UploadConversation(ctx context.Context, req service.UploadConversationRequest) error {
	return nil
}

func TestUploaderRouterRequiresBearerToken(t *testing.T) {
	u := service.NewUploader(&stubAnalyticsUploader{}, "proj", "us-central1")
	r := NewUploaderRouter(&UploaderDependencies{Uploader: u, BearerToken: "secret", Version: "1.0.0"})

	req := httptest.NewRequest(http.MethodPost, "/object-created", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestUploaderRouterHealthIsPublic(t *testing.T) {
	u := service.NewUploader(&stubAnalyticsUploader{}, "proj", "us-central1")
	r := NewUploaderRouter(&UploaderDependencies{Uploader: u, BearerToken: "secret", Version: "1.0.0"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
