// Package backend defines the byte-store contract behind backed caches.
//
// Implementations MUST be safe for concurrent use and byte-for-byte
// transparent: Get must return exactly the []byte previously passed to
// Set for the same key, with no added metadata, re-encoding, or
// mutation. If a store transforms values internally (compression), the
// transform must be fully reversed.
//
// The cache layer owns the "excache:<name>:" keyspace. External writers
// must stay out of it: foreign values fail strict frame validation and
// are deleted as corrupt.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrResetUnsupported reports a store that cannot enumerate and drop its
// keys. Backed caches surface it as an unsupported Clear.
var ErrResetUnsupported = errors.New("backend: reset unsupported")

// Store is a minimal byte store with per-entry TTL.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on
	// miss. A non-nil error means an IO/remote failure, not a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl; ttl <= 0 means no expiry. ok=false
	// reports a write the store rejected under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Reset drops the store's contents, or returns ErrResetUnsupported.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Counter is implemented by stores that can report their entry count.
type Counter interface {
	Len() int
}
