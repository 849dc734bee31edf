// Package bus decodes the push-subscription envelope shared by the
// Dispatcher's and the Aggregator's pushed-to endpoints (spec.md §6); the
// Uploader's trigger is a plain JSON body and does not use it. Shape:
// {"message":{"data":"<base64 JSON>","message_id":"…"}}.
package bus

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PushEnvelope is the outer body a Pub/Sub push subscription delivers.
type PushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"message_id"`
	} `json:"message"`
}

// ErrShape marks an envelope/body decode failure as a shape error (spec.md
// §7.1): callers translate it to a 400, not a retry.
type ErrShape struct {
	Reason string
}

func (e *ErrShape) Error() string { return "bus: " + e.Reason }

// Decode parses raw as a PushEnvelope, base64-decodes its data field, and
// unmarshals the result into out.
func Decode(raw []byte, out interface{}) error {
	var env PushEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &ErrShape{Reason: fmt.Sprintf("invalid envelope JSON: %v", err)}
	}
	if env.Message.Data == "" {
		return &ErrShape{Reason: "envelope missing message.data"}
	}

	decoded, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return &ErrShape{Reason: fmt.Sprintf("invalid base64 message.data: %v", err)}
	}

	if err := json.Unmarshal(decoded, out); err != nil {
		return &ErrShape{Reason: fmt.Sprintf("invalid payload JSON: %v", err)}
	}
	return nil
}
