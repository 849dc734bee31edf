package service

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type mockAnalyticsUploader struct {
	lastReq UploadConversationRequest
	err     error
	calls   int
}

func (m *mockAnalyticsUploader) UploadConversation(ctx context.Context, req UploadConversationRequest) error {
	m.calls++
	m.lastReq = req
	return m.err
}

func TestConversationIDFromObjectStripsSuffix(t *testing.T) {
	cases := map[string]string{
		"C1_transcript.json": "C1",
		"C1_transcript":       "C1",
		"folder/C2_transcript.json": "C2",
	}
	for name, want := range cases {
		if got := conversationIDFromObject(name); got != want {
			t.Errorf("conversationIDFromObject(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestUploaderHandleObjectCreatedSubmitsRequest(t *testing.T) {
	analytics := &mockAnalyticsUploader{}
	u := NewUploader(analytics, "proj", "us-central1")

	if err := u.HandleObjectCreated(context.Background(), "bucket", "C1_transcript.json", "gs://bucket/C1_transcript.json"); err != nil {
		t.Fatalf("HandleObjectCreated() error: %v", err)
	}
	if analytics.calls != 1 {
		t.Fatalf("expected 1 call, got %d", analytics.calls)
	}
	if analytics.lastReq.ConversationID != "C1" {
		t.Errorf("ConversationID = %q, want C1", analytics.lastReq.ConversationID)
	}
	if analytics.lastReq.GCSURI != "gs://bucket/C1_transcript.json" {
		t.Errorf("GCSURI = %q", analytics.lastReq.GCSURI)
	}
}

func TestUploaderTreatsAlreadyExistsAsSuccess(t *testing.T) {
	analytics := &mockAnalyticsUploader{err: status.Error(codes.AlreadyExists, "conversation already ingested")}
	u := NewUploader(analytics, "proj", "us-central1")

	if err := u.HandleObjectCreated(context.Background(), "bucket", "C1_transcript.json", "gs://bucket/C1_transcript.json"); err != nil {
		t.Fatalf("expected ALREADY_EXISTS to be treated as success, got %v", err)
	}
}

func TestUploaderPropagatesOtherFailures(t *testing.T) {
	analytics := &mockAnalyticsUploader{err: errors.New("ingestion failed")}
	u := NewUploader(analytics, "proj", "us-central1")

	if err := u.HandleObjectCreated(context.Background(), "bucket", "C1_transcript.json", "gs://bucket/C1_transcript.json"); err == nil {
		t.Fatal("expected the error to propagate so the trigger redelivers")
	}
}
