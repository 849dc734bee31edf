package bus

import (
	"encoding/base64"
	"errors"
	"testing"
)

type testPayload struct {
	ConversationID string `json:"conversation_id"`
}

func envelopeJSON(data string) []byte {
	return []byte(`{"message":{"data":"` + data + `","message_id":"m1"}}`)
}

func TestDecodeValidEnvelope(t *testing.T) {
	payload := `{"conversation_id":"C1"}`
	data := base64.StdEncoding.EncodeToString([]byte(payload))

	var out testPayload
	if err := Decode(envelopeJSON(data), &out); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if out.ConversationID != "C1" {
		t.Errorf("ConversationID = %q, want C1", out.ConversationID)
	}
}

func TestDecodeMissingData(t *testing.T) {
	var out testPayload
	err := Decode([]byte(`{"message":{"message_id":"m1"}}`), &out)
	var shapeErr *ErrShape
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestDecodeInvalidBase64(t *testing.T) {
	var out testPayload
	err := Decode(envelopeJSON("not-base64!!"), &out)
	var shapeErr *ErrShape
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestDecodeInvalidEnvelopeJSON(t *testing.T) {
	var out testPayload
	err := Decode([]byte(`not json`), &out)
	var shapeErr *ErrShape
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}
