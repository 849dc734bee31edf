package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/connexus-ai/convo-redact/internal/bus"
	"github.com/connexus-ai/convo-redact/internal/service"
)

// RawUtterances handles POST /raw-utterances, the raw-utterance bus's push
// subscription delivery (spec.md §4.1).
func RawUtterances(dispatcher *service.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "could not read request body")
			return
		}

		if err := dispatcher.Process(r.Context(), body); err != nil {
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
