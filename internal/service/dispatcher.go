package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/connexus-ai/convo-redact/internal/bus"
	"github.com/connexus-ai/convo-redact/internal/model"
)

// Dispatcher transforms each raw-utterance bus message into one of two
// role-specific calls to the Redactor and republishes the result onto the
// redacted bus (spec.md §4.1).
type Dispatcher struct {
	redactor      RedactorClient
	publisher     BusPublisher
	redactedTopic string
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(redactor RedactorClient, publisher BusPublisher, redactedTopic string) *Dispatcher {
	return &Dispatcher{redactor: redactor, publisher: publisher, redactedTopic: redactedTopic}
}

// rawUtterance is the wire shape of a decoded raw-utterance payload. Pointer
// fields distinguish "absent" from the zero value, since e.g.
// original_entry_index = 0 is a valid index.
type rawUtterance struct {
	ConversationID     string  `json:"conversation_id"`
	OriginalEntryIndex *int    `json:"original_entry_index"`
	ParticipantRole    string  `json:"participant_role"`
	Text               *string `json:"text"`
	UserID             string  `json:"user_id"`
	StartTimestampUsec *int64  `json:"start_timestamp_usec"`
}

// parseUtterance decodes the push envelope and validates that every
// required field (everything but user_id) is present and non-empty
// (spec.md §4.1 input contract).
func parseUtterance(raw []byte) (model.Utterance, error) {
	var r rawUtterance
	if err := bus.Decode(raw, &r); err != nil {
		return model.Utterance{}, err
	}

	var missing []string
	if r.ConversationID == "" {
		missing = append(missing, "conversation_id")
	}
	if r.OriginalEntryIndex == nil {
		missing = append(missing, "original_entry_index")
	}
	if r.ParticipantRole == "" {
		missing = append(missing, "participant_role")
	}
	if r.Text == nil || *r.Text == "" {
		missing = append(missing, "text")
	}
	if r.StartTimestampUsec == nil {
		missing = append(missing, "start_timestamp_usec")
	}
	if len(missing) > 0 {
		return model.Utterance{}, &bus.ErrShape{Reason: "missing required field(s): " + strings.Join(missing, ", ")}
	}

	return model.Utterance{
		ConversationID:     r.ConversationID,
		OriginalEntryIndex: *r.OriginalEntryIndex,
		ParticipantRole:    model.NormalizeParticipantRole(r.ParticipantRole),
		Text:               *r.Text,
		UserID:             r.UserID,
		StartTimestampUsec: *r.StartTimestampUsec,
	}, nil
}

// Process handles one raw-utterance bus delivery. A returned *bus.ErrShape
// means the caller should answer bad-request; any other non-nil error
// means the caller should answer internal-error so the bus redelivers; a
// nil return — including the "redactor rejected" and "unknown role" cases
// — means the caller should acknowledge (spec.md §4.1 failure semantics).
func (d *Dispatcher) Process(ctx context.Context, raw []byte) error {
	u, err := parseUtterance(raw)
	if err != nil {
		return err
	}

	switch u.ParticipantRole {
	case model.RoleAgent:
		_, _, err := d.redactor.HandleAgentUtterance(ctx, u.ConversationID, u.Text)
		if err != nil {
			if isRejected(err) {
				slog.Warn("dispatcher: redactor rejected agent utterance", "conversation_id", u.ConversationID, "event", "redactor_rejected", "error", err.Error())
				return nil
			}
			return fmt.Errorf("dispatcher: call redactor agent endpoint: %w", err)
		}
		return d.republish(ctx, u, u.Text)

	case model.RoleEndUser:
		redacted, _, err := d.redactor.HandleCustomerUtterance(ctx, u.ConversationID, u.Text)
		if err != nil {
			if isRejected(err) {
				slog.Warn("dispatcher: redactor rejected customer utterance", "conversation_id", u.ConversationID, "event", "redactor_rejected", "error", err.Error())
				return nil
			}
			return fmt.Errorf("dispatcher: call redactor customer endpoint: %w", err)
		}
		return d.republish(ctx, u, redacted)

	default:
		slog.Warn("dispatcher: unknown participant role, skipping", "conversation_id", u.ConversationID, "role", string(u.ParticipantRole), "event", "unknown_role_skip")
		return nil
	}
}

// republish publishes u with text substituted onto the redacted bus. A
// publish failure is logged but does not cause redelivery (spec.md §4.1:
// "A failed republish is logged; the message is NOT reprocessed").
func (d *Dispatcher) republish(ctx context.Context, u model.Utterance, text string) error {
	out := u
	out.Text = text

	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("dispatcher: marshal republish payload: %w", err)
	}

	if err := d.publisher.Publish(ctx, d.redactedTopic, payload); err != nil {
		slog.Error("dispatcher: republish failed", "conversation_id", u.ConversationID, "event", "republish_failed", "error", err.Error())
	}
	return nil
}

func isRejected(err error) bool {
	var rejected *ErrRedactorRejected
	return errors.As(err, &rejected)
}
