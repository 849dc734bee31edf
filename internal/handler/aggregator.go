package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/connexus-ai/convo-redact/internal/bus"
	"github.com/connexus-ai/convo-redact/internal/service"
)

// RedactedTranscripts handles POST /redacted-transcripts, the redacted bus's
// push subscription delivery (spec.md §4.3).
func RedactedTranscripts(aggregator *service.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "could not read request body")
			return
		}

		if err := aggregator.WriteUtterance(r.Context(), body); err != nil {
			var shapeErr *bus.ErrShape
			if errors.As(err, &shapeErr) {
				respondErr(w, http.StatusBadRequest, shapeErr.Error())
				return
			}
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondOK(w, nil)
	}
}

// ConversationEnded handles POST /conversation-ended, the lifecycle bus's
// push subscription delivery (spec.md §4.3).
func ConversationEnded(aggregator *service.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "could not read request body")
			return
		}

		outcome, err := aggregator.ConversationEnded(r.Context(), body)
		if err != nil {
			var shapeErr *bus.ErrShape
			if errors.As(err, &shapeErr) {
				respondErr(w, http.StatusBadRequest, shapeErr.Error())
				return
			}
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondOK(w, map[string]string{"outcome": string(outcome)})
	}
}
