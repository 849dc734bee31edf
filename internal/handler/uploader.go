package handler

import (
	"encoding/json"
	"net/http"

	"github.com/connexus-ai/convo-redact/internal/service"
)

type objectCreatedEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ObjectCreated handles the archival bucket's object-created trigger
// (spec.md §4.4, §6). A 200 acknowledges the event; a 500 asks the trigger
// to redeliver, which is safe since upload is idempotent on conversation id.
func ObjectCreated(uploader *service.Uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var evt objectCreatedEvent
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			respondErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if evt.Bucket == "" || evt.Name == "" {
			respondErr(w, http.StatusBadRequest, "bucket and name are required")
			return
		}

		blobURI := "gs://" + evt.Bucket + "/" + evt.Name
		if err := uploader.HandleObjectCreated(r.Context(), evt.Bucket, evt.Name, blobURI); err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondOK(w, nil)
	}
}
