// Package model holds the data types shared across the dispatcher, redactor,
// aggregator, and uploader services.
package model

import "time"

// ParticipantRole identifies which side of a conversation produced an utterance.
type ParticipantRole string

const (
	RoleAgent    ParticipantRole = "AGENT"
	RoleEndUser  ParticipantRole = "END_USER"
	roleCustomer                 = "CUSTOMER"
)

// NormalizeParticipantRole upper-cases role and maps the legacy "CUSTOMER" tag
// onto END_USER. Callers treat an empty return as an unknown role.
func NormalizeParticipantRole(raw string) ParticipantRole {
	role := ParticipantRole(upper(raw))
	if role == roleCustomer {
		return RoleEndUser
	}
	return role
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// Utterance is one turn of a conversation, as carried on the raw and redacted
// buses and persisted by the aggregator.
type Utterance struct {
	ConversationID     string          `json:"conversation_id"`
	OriginalEntryIndex int             `json:"original_entry_index"`
	ParticipantRole    ParticipantRole `json:"participant_role"`
	Text               string          `json:"text"`
	UserID             string          `json:"user_id,omitempty"`
	StartTimestampUsec int64           `json:"start_timestamp_usec"`
}

// LifecycleEventType enumerates the events carried on the lifecycle bus.
type LifecycleEventType string

const (
	EventConversationStarted LifecycleEventType = "conversation_started"
	EventConversationEnded   LifecycleEventType = "conversation_ended"
)

// LifecycleEvent signals a conversation's birth or death.
type LifecycleEvent struct {
	ConversationID      string              `json:"conversation_id"`
	EventType           LifecycleEventType  `json:"event_type"`
	StartTime           *time.Time          `json:"start_time,omitempty"`
	EndTime             *time.Time          `json:"end_time,omitempty"`
	TotalUtteranceCount *int                `json:"total_utterance_count,omitempty"`
}

// RedactionContext is the short-lived hint the Redactor writes after an agent
// turn asks for a specific class of PII, and consults on the next customer
// turn. Its absence is never an error — only a degradation to default
// sensitivity.
type RedactionContext struct {
	ExpectedPIIType string  `json:"expected_pii_type"`
	Timestamp       float64 `json:"timestamp"`
}

// ArchivalEntry is one line of a finished transcript, as written to the blob
// store and read back by the uploader's downstream ingestion.
type ArchivalEntry struct {
	Text   string          `json:"text"`
	Role   ParticipantRole `json:"role"`
	UserID string          `json:"user_id,omitempty"`
}

// ArchivalArtifact is the JSON document the aggregator writes to
// "<conversation_id>_transcript.json" on conversation close.
type ArchivalArtifact struct {
	Entries []ArchivalEntry `json:"entries"`
}

// ConversationState is the aggregator's root document for an in-flight
// conversation, keyed by conversation_id.
type ConversationState struct {
	ConversationID          string    `firestore:"-"`
	ExpireAt                time.Time `firestore:"expireAt"`
	UtteranceCount          int       `firestore:"utteranceCount"`
	LastUtteranceTimestamp  int64     `firestore:"lastUtteranceTimestamp"`
}
