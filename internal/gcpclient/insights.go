package gcpclient

import (
	"context"
	"fmt"
	"time"

	contactcenterinsights "cloud.google.com/go/contactcenterinsights/apiv1"
	ccipb "cloud.google.com/go/contactcenterinsights/apiv1/contactcenterinsightspb"

	"github.com/connexus-ai/convo-redact/internal/apierr"
	"github.com/connexus-ai/convo-redact/internal/retry"
	"github.com/connexus-ai/convo-redact/internal/service"
)

// InsightsAdapter wraps the Contact Center Insights client to implement
// service.AnalyticsUploader: start the UploadConversation long-running
// operation and wait for it to resolve, the way
// ccai_insights_function/main.py does in original_source, translated from a
// Cloud Function into a long-lived adapter.
type InsightsAdapter struct {
	client              *contactcenterinsights.Client
	deidentifyTemplate  string
	inspectTemplate     string
	waitDeadline        time.Duration
}

// NewInsightsAdapter creates an InsightsAdapter. deidentifyTemplate and
// inspectTemplate name the analytics sink's own server-side redaction
// templates (spec.md §4.4 step 1); waitDeadline bounds the LRO wait
// (540-900s, default 900s).
func NewInsightsAdapter(ctx context.Context, deidentifyTemplate, inspectTemplate string, waitDeadline time.Duration) (*InsightsAdapter, error) {
	client, err := contactcenterinsights.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpclient.NewInsightsAdapter: %w", err)
	}
	return &InsightsAdapter{
		client:             client,
		deidentifyTemplate: deidentifyTemplate,
		inspectTemplate:    inspectTemplate,
		waitDeadline:       waitDeadline,
	}, nil
}

// UploadConversation starts the ingestion LRO and waits for completion.
// ALREADY_EXISTS is treated as success (spec.md §4.4 step 4, I6); the
// "Unexpected state" transient class observed in the original source is
// attempted up to three times in all, with exponential backoff, alongside the generic
// transient-transport class.
func (a *InsightsAdapter) UploadConversation(ctx context.Context, req service.UploadConversationRequest) error {
	parent := fmt.Sprintf("projects/%s/locations/%s", req.Project, req.Location)

	pbReq := &ccipb.UploadConversationRequest{
		Parent: parent,
		Conversation: &ccipb.Conversation{
			DataSource: &ccipb.ConversationDataSource{
				Source: &ccipb.ConversationDataSource_GcsSource{
					GcsSource: &ccipb.GcsSource{
						TranscriptUri: req.GCSURI,
					},
				},
			},
		},
		ConversationId: req.ConversationID,
		RedactionConfig: &ccipb.RedactionConfig{
			DeidentifyTemplate: a.deidentifyTemplate,
			InspectTemplate:    a.inspectTemplate,
		},
	}

	return retry.Do(ctx, "gcpclient.UploadConversation", retry.Default, apierr.IsUploaderTransient, func() error {
		waitCtx, cancel := context.WithTimeout(ctx, a.waitDeadline)
		defer cancel()

		op, err := a.client.UploadConversation(waitCtx, pbReq)
		if err != nil {
			if apierr.IsAlreadyExists(err) {
				return nil
			}
			return fmt.Errorf("gcpclient.UploadConversation start: %w", err)
		}

		_, err = op.Wait(waitCtx)
		if err != nil {
			if apierr.IsAlreadyExists(err) {
				return nil
			}
			return fmt.Errorf("gcpclient.UploadConversation wait: %w", err)
		}
		return nil
	})
}

// Close closes the underlying client.
func (a *InsightsAdapter) Close() {
	a.client.Close()
}
