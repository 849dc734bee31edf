package handler

import (
	"encoding/json"
	"net/http"

	"github.com/connexus-ai/convo-redact/internal/service"
)

type handleAgentUtteranceRequest struct {
	ConversationID string `json:"conversation_id"`
	Transcript     string `json:"transcript"`
}

type handleAgentUtteranceResponse struct {
	Message     string `json:"message"`
	ExpectedPII string `json:"expected_pii,omitempty"`
}

type handleCustomerUtteranceResponse struct {
	RedactedTranscript string `json:"redacted_transcript"`
	ContextUsed        bool   `json:"context_used"`
}

// HandleAgentUtterance handles POST /handle-agent-utterance (spec.md §4.2).
func HandleAgentUtterance(redactor *service.Redactor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req handleAgentUtteranceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ConversationID == "" || req.Transcript == "" {
			respondErr(w, http.StatusBadRequest, "conversation_id and transcript are required")
			return
		}

		expectedPII, err := redactor.HandleAgentUtterance(r.Context(), req.ConversationID, req.Transcript)
		if err != nil {
			respondErr(w, http.StatusServiceUnavailable, "context cache unavailable")
			return
		}

		resp := handleAgentUtteranceResponse{Message: "ok", ExpectedPII: expectedPII}
		respondJSON(w, http.StatusOK, resp)
	}
}

// HandleCustomerUtterance handles POST /handle-customer-utterance (spec.md
// §4.2). This endpoint never fails on a detection-engine error — it returns
// a tagged placeholder instead — so the only 400 path is a missing
// conversation_id. An empty transcript is a valid value, not a missing
// field, and redacts to "" rather than being rejected.
func HandleCustomerUtterance(redactor *service.Redactor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req handleAgentUtteranceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ConversationID == "" {
			respondErr(w, http.StatusBadRequest, "conversation_id is required")
			return
		}

		redacted, contextUsed, _ := redactor.HandleCustomerUtterance(r.Context(), req.ConversationID, req.Transcript)
		respondJSON(w, http.StatusOK, handleCustomerUtteranceResponse{RedactedTranscript: redacted, ContextUsed: contextUsed})
	}
}
