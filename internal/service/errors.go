package service

import "fmt"

// ErrRedactorRejected marks a non-2xx response from the Redactor. The
// Dispatcher treats this as "log and skip" rather than "redeliver" (spec.md
// §4.1 failure semantics) — it's distinct from a transport-level error,
// which should cause the bus to redeliver.
type ErrRedactorRejected struct {
	StatusCode int
}

func (e *ErrRedactorRejected) Error() string {
	return fmt.Sprintf("redactor rejected the request with status %d", e.StatusCode)
}
