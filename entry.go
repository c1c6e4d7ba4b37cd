package excache

import (
	"sync/atomic"
	"time"
)

// Entry is an immutable key/value snapshot handed out by iteration.
// Store-internal timestamps never leave the store.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// entry is the store-owned representation. Value and creation time are
// written only under the owning shard's write lock; access and expiry
// metadata use atomics so read paths can refresh them under a read lock.
type entry[V any] struct {
	value     V
	createdAt time.Time

	lastAccessed atomic.Int64 // unix nanos
	lastModified atomic.Int64 // unix nanos
	deadline     atomic.Int64 // unix nanos; 0 => never expires
}

func newEntry[V any](v V, now time.Time) *entry[V] {
	e := &entry[V]{value: v, createdAt: now}
	n := now.UnixNano()
	e.lastAccessed.Store(n)
	e.lastModified.Store(n)
	return e
}

func (e *entry[V]) meta() EntryMeta {
	return EntryMeta{
		CreatedAt:      e.createdAt,
		LastAccessedAt: time.Unix(0, e.lastAccessed.Load()),
		LastModifiedAt: time.Unix(0, e.lastModified.Load()),
	}
}

// expired reports whether the deadline has passed. The boundary is
// inclusive: deadline == now is expired.
func (e *entry[V]) expired(nowNanos int64) bool {
	d := e.deadline.Load()
	return d != 0 && d <= nowNanos
}

// setDeadline applies a resolved policy duration for an event at now.
func (e *entry[V]) setDeadline(d Duration, now time.Time) {
	if d.IsEternal() {
		e.deadline.Store(0)
		return
	}
	e.deadline.Store(d.Deadline(now).UnixNano())
}
