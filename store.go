package excache

import (
	"hash/maphash"
	"iter"
	"sync"
	"time"
)

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
}

// store is the sharded entry map. Keys hash to shards via maphash so
// unrelated keys contend on different locks; all mutations of a single
// key serialize on its shard's write lock.
type store[K comparable, V any] struct {
	seed   maphash.Seed
	shards []*shard[K, V]
}

func newStore[K comparable, V any](shardCount int) *store[K, V] {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	n := 1
	for n < shardCount {
		n <<= 1
	}
	s := &store[K, V]{
		seed:   maphash.MakeSeed(),
		shards: make([]*shard[K, V], n),
	}
	for i := range s.shards {
		s.shards[i] = &shard[K, V]{entries: make(map[K]*entry[V])}
	}
	return s
}

func (s *store[K, V]) shardFor(key K) *shard[K, V] {
	h := maphash.Comparable(s.seed, key)
	return s.shards[h&uint64(len(s.shards)-1)]
}

// get returns the live value for key, applying lazy expiry and the
// access leg of the policy. hit reports a live entry was found; dropped
// reports an expired entry was removed on the way.
func (s *store[K, V]) get(key K, policy ExpiryPolicy, now time.Time) (v V, hit bool, dropped bool) {
	var zero V
	sh := s.shardFor(key)
	nowN := now.UnixNano()

	sh.mu.RLock()
	e, ok := sh.entries[key]
	if !ok {
		sh.mu.RUnlock()
		return zero, false, false
	}
	if e.expired(nowN) {
		sh.mu.RUnlock()
		return zero, false, s.dropExpired(sh, key, nowN)
	}
	v = e.value
	e.lastAccessed.Store(nowN)
	if d, ok := policy.ExpiryForAccess(e.meta(), now); ok {
		if d.IsZero() {
			// This read still observes the value; the entry dies after.
			sh.mu.RUnlock()
			sh.mu.Lock()
			if cur, still := sh.entries[key]; still && cur == e {
				delete(sh.entries, key)
			}
			sh.mu.Unlock()
			return v, true, false
		}
		e.setDeadline(d, now)
	}
	sh.mu.RUnlock()
	return v, true, false
}

// dropExpired removes key if it is still present and still expired.
func (s *store[K, V]) dropExpired(sh *shard[K, V], key K, nowN int64) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[key]; ok && e.expired(nowN) {
		delete(sh.entries, key)
		return true
	}
	return false
}

// put inserts or replaces key. The result reports whether a live entry
// exists afterwards: a zero creation or update duration stores nothing.
func (s *store[K, V]) put(key K, value V, policy ExpiryPolicy, now time.Time) bool {
	sh := s.shardFor(key)
	nowN := now.UnixNano()
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.entries[key]; ok && !e.expired(nowN) {
		e.value = value
		e.lastModified.Store(nowN)
		if d, ok := policy.ExpiryForUpdate(e.meta(), now); ok {
			if d.IsZero() {
				delete(sh.entries, key)
				return false
			}
			e.setDeadline(d, now)
		}
		return true
	}

	// New entry, or replacing an expired husk not yet swept.
	meta := EntryMeta{CreatedAt: now, LastAccessedAt: now, LastModifiedAt: now}
	d, ok := policy.ExpiryForCreation(meta, now)
	if !ok {
		d = Eternal
	}
	if d.IsZero() {
		delete(sh.entries, key)
		return false
	}
	e := newEntry(value, now)
	e.setDeadline(d, now)
	sh.entries[key] = e
	return true
}

// remove deletes key unconditionally. existed reports a live entry was
// removed; wasExpired reports that only an expired husk was dropped.
func (s *store[K, V]) remove(key K, now time.Time) (existed, wasExpired bool) {
	sh := s.shardFor(key)
	nowN := now.UnixNano()
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[key]
	if !ok {
		return false, false
	}
	delete(sh.entries, key)
	if e.expired(nowN) {
		return false, true
	}
	return true, false
}

// len counts live entries. Entries past their deadline but not yet swept
// are excluded so no reader observes them.
func (s *store[K, V]) len(now time.Time) int {
	nowN := now.UnixNano()
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			if !e.expired(nowN) {
				total++
			}
		}
		sh.mu.RUnlock()
	}
	return total
}

func (s *store[K, V]) clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[K]*entry[V])
		sh.mu.Unlock()
	}
}

// all yields weakly consistent live snapshots: each shard is copied
// under its read lock as the iterator reaches it, so mutations during
// iteration may or may not be observed.
func (s *store[K, V]) all(now time.Time) iter.Seq[Entry[K, V]] {
	return func(yield func(Entry[K, V]) bool) {
		nowN := now.UnixNano()
		for _, sh := range s.shards {
			sh.mu.RLock()
			batch := make([]Entry[K, V], 0, len(sh.entries))
			for k, e := range sh.entries {
				if !e.expired(nowN) {
					batch = append(batch, Entry[K, V]{Key: k, Value: e.value})
				}
			}
			sh.mu.RUnlock()
			for _, ent := range batch {
				if !yield(ent) {
					return
				}
			}
		}
	}
}

// sweep removes expired entries shard by shard, holding one shard lock
// at a time so foreground operations on other shards never stall.
func (s *store[K, V]) sweep(now time.Time) int {
	nowN := now.UnixNano()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e.expired(nowN) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
