// Package countstore provides an abstract interface for short-lived
// atomic counters, used by the throttle guard for rate limiting and
// duplicate detection.
//
// Counters are keyed by opaque strings and expire on their own; there
// is no durable state and no cleanup task. Implementations include a
// process-local in-memory store (tests, single-node deployments) and a
// Redis-backed store for multi-node deployments.
package countstore

import (
	"context"
	"time"
)

type CountStore interface {
	// IncrementWithTTL atomically increments the counter at key and
	// returns the new count. A counter created by this call expires
	// after window; an existing counter keeps its original expiry.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int, error)
}
