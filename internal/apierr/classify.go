// Package apierr classifies errors from gRPC-based collaborators (the
// detection engine, the document store, the analytics sink) into the kinds
// spec.md §7 names, instead of string-matching on error messages the way the
// original Python source did with exception types.
package apierr

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsTransient reports whether err belongs to the transient-transport class:
// internal, unavailable, deadline-exceeded. These are worth a bounded retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.Internal, codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return false
}

// IsNotFound reports whether err is a not-found failure — used by the
// Redactor to decide whether to retry once with a fully inline config.
func IsNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}

// IsPermissionDenied reports whether err is a permission-denied,
// unauthenticated or unimplemented failure — terminal for the call.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unimplemented, codes.Unauthenticated:
		return true
	}
	return false
}

// IsAlreadyExists reports whether err is the analytics sink's idempotence
// signal (standard gRPC code 6).
func IsAlreadyExists(err error) bool {
	return err != nil && status.Code(err) == codes.AlreadyExists
}

// IsUnexpectedState reports the Contact Center Insights LRO quirk the
// original ccai_insights_function retried up to three times: an operation
// that surfaces a transient "Unexpected state" error message rather than a
// structured status code.
func IsUnexpectedState(err error) bool {
	if err == nil {
		return false
	}
	var unwrapped error = err
	for unwrapped != nil {
		if strings.Contains(unwrapped.Error(), "Unexpected state") {
			return true
		}
		unwrapped = errors.Unwrap(unwrapped)
	}
	return false
}

// IsUploaderTransient reports whether err is worth the Uploader's retry
// policy: the generic transient-transport class plus the LRO-specific
// unexpected-state quirk.
func IsUploaderTransient(err error) bool {
	return IsTransient(err) || IsUnexpectedState(err)
}
