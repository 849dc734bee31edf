package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger checks connectivity to one dependency a service relies on (the
// context cache, the document store, …).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns a handler that reports server health plus the status of
// every named dependency. GET /healthz — returns
// {"status":"ok","version":"...","dependencies":{...}} without auth.
func Health(deps map[string]Pinger, version ...string) http.HandlerFunc {
	ver := "0.0.0"
	if len(version) > 0 && version[0] != "" {
		ver = version[0]
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		httpStatus := http.StatusOK
		depStatus := make(map[string]string, len(deps))

		for name, p := range deps {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				depStatus[name] = "disconnected"
				status = "degraded"
				httpStatus = http.StatusServiceUnavailable
			} else {
				depStatus[name] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       status,
			"version":      ver,
			"dependencies": depStatus,
		})
	}
}
