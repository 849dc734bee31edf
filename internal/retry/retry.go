// Package retry provides a single backoff helper shared by every package that
// talks to an external collaborator (detection engine, document store, blob
// store, analytics sink). One function, parameterized by a retryable-kind
// predicate, instead of a decorator per call site.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy is a bounded exponential backoff schedule.
type Policy struct {
	Attempts int
	Base     time.Duration
	Factor   float64
	Cap      time.Duration
}

// Default is the schedule spec.md §7 names for transient-transport errors:
// up to 3 attempts, base 1s, factor 2, cap 10s.
var Default = Policy{
	Attempts: 3,
	Base:     1 * time.Second,
	Factor:   2,
	Cap:      10 * time.Second,
}

// Classifier reports whether err belongs to a retryable class. Each package
// supplies its own (transient transport errors, a specific LRO quirk, …);
// Do returns the first non-retryable error unchanged.
type Classifier func(err error) bool

// Do runs fn up to policy.Attempts times, sleeping a growing delay between
// attempts while classify(err) reports true. op names the operation for log
// correlation. The last error is returned verbatim if every attempt fails.
func Do(ctx context.Context, op string, policy Policy, classify Classifier, fn func() error) error {
	var err error
	delay := policy.Base

	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !classify(err) {
			return err
		}
		if attempt == policy.Attempts {
			break
		}

		slog.Warn("retrying after transient error",
			"op", op,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: context cancelled during retry: %w", op, ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * policy.Factor)
		if delay > policy.Cap {
			delay = policy.Cap
		}
	}

	slog.Error("retries exhausted", "op", op, "attempts", policy.Attempts, "error", err.Error())
	return err
}
