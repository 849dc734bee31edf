// Package service holds the four pipeline services and the narrow
// collaborator interfaces each depends on. Concrete implementations live in
// internal/gcpclient, internal/cache, internal/repository, and
// internal/httpclient; handlers and
// tests depend only on these interfaces.
package service

import (
	"context"
	"time"

	"github.com/connexus-ai/convo-redact/internal/model"
)

// RedactorClient is the Dispatcher's view of the Redactor's HTTP surface.
type RedactorClient interface {
	HandleAgentUtterance(ctx context.Context, conversationID, transcript string) (expectedPII string, armed bool, err error)
	HandleCustomerUtterance(ctx context.Context, conversationID, transcript string) (redacted string, contextUsed bool, err error)
}

// BusPublisher publishes a message onto a named topic. Implemented by
// internal/gcpclient's Pub/Sub adapter.
type BusPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// TokenMinter mints (and caches) an identity token for calling another
// Cloud Run-style service at audience.
type TokenMinter interface {
	IDToken(ctx context.Context, audience string) (string, error)
}

// ContextCache is the Redactor's exclusive owner of RedactionContext state,
// and the Aggregator's optional streaming-buffer collaborator.
type ContextCache interface {
	GetContext(ctx context.Context, conversationID string) (*model.RedactionContext, error)
	SetContext(ctx context.Context, conversationID string, rc model.RedactionContext, ttl time.Duration) error

	// PushUtterance appends payload to the streaming buffer list, trims it to
	// maxLen most-recent entries, and refreshes the list TTL. Used only when
	// the streaming-buffer variant is enabled.
	PushUtterance(ctx context.Context, conversationID string, payload []byte, maxLen int, ttl time.Duration) error
	// RecentUtterances returns the buffered entries, oldest first.
	RecentUtterances(ctx context.Context, conversationID string) ([][]byte, error)
}

// DetectionRequest assembles everything the detection engine needs for one
// redact call: either a server-side template name or an inline config, for
// both inspection and de-identification.
type DetectionRequest struct {
	Parent string
	Text   string

	InspectTemplateName string
	InspectConfig       *model.InspectConfig // used when InspectTemplateName is empty or UseInline is true
	UseInline           bool

	DeidentifyTemplateName string
	DeidentifyConfig       *model.DeidentifyConfig // used when DeidentifyTemplateName is empty
}

// DetectionClient is the PII-detection engine collaborator: takes a text
// item plus inspection/redaction configuration, returns the redacted text.
type DetectionClient interface {
	Redact(ctx context.Context, req DetectionRequest) (string, error)
}

// ConversationStore is the document-store collaborator: transactional
// single-document read-modify-write on the conversation root, and an
// ordered collection scan over utterances.
type ConversationStore interface {
	WriteUtterance(ctx context.Context, u model.Utterance) error
	TouchConversationRoot(ctx context.Context, conversationID string, ttl time.Duration, startTimestampUsec int64) error
	UtteranceCount(ctx context.Context, conversationID string) (int, bool, error)
	ListUtterancesOrdered(ctx context.Context, conversationID string) ([]model.ArchivalEntry, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

// BlobStore is the archival artifact target: a put-object call with content
// type, and URI, which formats the gs:// address of a stored object.
type BlobStore interface {
	Put(ctx context.Context, bucket, object string, data []byte, contentType string) error
	URI(bucket, object string) string
}

// AnalyticsUploader submits a finished archival artifact to the downstream
// analytics sink and waits for the long-running ingestion to finish.
type AnalyticsUploader interface {
	UploadConversation(ctx context.Context, req UploadConversationRequest) error
}

// UploadConversationRequest is everything the Uploader needs to start the
// analytics-sink long-running operation.
type UploadConversationRequest struct {
	ConversationID string
	GCSURI         string
	Project        string
	Location       string
}

// SecretResolver is an opaque secret-id → string lookup, standing in for
// whatever secret manager a deployment uses.
type SecretResolver interface {
	Resolve(ctx context.Context, secretID string) (string, error)
}
