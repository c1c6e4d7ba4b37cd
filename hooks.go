package excache

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap, non-blocking, and panic-free: the cache
// calls them on hot paths and from the sweep scheduler. Wrap a slow sink
// with hooks/async.
type Hooks interface {
	// EntriesExpired: n entries crossed their deadline and were removed.
	// lazy is true when discovery happened on a read path rather than
	// during a sweep.
	EntriesExpired(cache string, n int, lazy bool)

	// SweepRecovered: a panic was isolated during a sweep pass. The
	// scheduler keeps running.
	SweepRecovered(cache string, v any)

	// SelfHeal: a backed cache dropped a frame it could not decode.
	// reason is one of "corrupt", "value_decode".
	SelfHeal(cache, storageKey, reason string)

	// CacheDestroyed: a manager destroyed the named cache.
	CacheDestroyed(name string)
}

// NopHooks is the default no-op sink.
type NopHooks struct{}

func (NopHooks) EntriesExpired(string, int, bool) {}
func (NopHooks) SweepRecovered(string, any)       {}
func (NopHooks) SelfHeal(string, string, string)  {}
func (NopHooks) CacheDestroyed(string)            {}
