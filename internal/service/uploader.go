package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/connexus-ai/convo-redact/internal/apierr"
)

// Uploader submits an archival artifact already written to the blob store to
// the analytics sink's long-running ingestion call (spec.md §4.4).
type Uploader struct {
	analytics AnalyticsUploader
	project   string
	location  string
}

// NewUploader creates an Uploader.
func NewUploader(analytics AnalyticsUploader, project, location string) *Uploader {
	return &Uploader{analytics: analytics, project: project, location: location}
}

const transcriptSuffix = "_transcript"

// conversationIDFromObject derives conversation_id from an archival blob's
// object name, stripping the "_transcript" suffix and any extension
// (spec.md §4.4 "strip_suffix(name, \"_transcript\").stem").
func conversationIDFromObject(name string) string {
	base := name
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		base = base[:idx]
	}
	return strings.TrimSuffix(base, transcriptSuffix)
}

// HandleObjectCreated processes an object-created notification for an
// archival blob. A nil return means the caller should acknowledge; a
// non-nil return means the caller should let the trigger redeliver.
func (u *Uploader) HandleObjectCreated(ctx context.Context, bucket, name, blobURI string) error {
	conversationID := conversationIDFromObject(name)
	if conversationID == "" {
		return fmt.Errorf("uploader: could not derive conversation_id from object name %q", name)
	}

	req := UploadConversationRequest{
		ConversationID: conversationID,
		GCSURI:         blobURI,
		Project:        u.project,
		Location:       u.location,
	}

	err := u.analytics.UploadConversation(ctx, req)
	if err != nil && apierr.IsAlreadyExists(err) {
		slog.Warn("uploader: conversation already exists in analytics sink, treating as success", "conversation_id", conversationID, "event", "upload_already_exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("uploader: upload conversation %s: %w", conversationID, err)
	}

	slog.Info("uploader: conversation uploaded", "conversation_id", conversationID, "event", "upload_succeeded")
	return nil
}
