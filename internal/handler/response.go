// Package handler translates service-layer outcomes into the HTTP
// status/JSON-body contracts each pipeline stage exposes (spec.md §6).
package handler

import (
	"encoding/json"
	"net/http"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func respondErr(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{Success: false, Error: message})
}

// NotFound is the shared 404 fallback for every service's router.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondErr(w, http.StatusNotFound, "route not found")
}
