package excache

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is the native in-memory implementation: a sharded store with
// per-entry expiry metadata, lazy expiry on reads, and a background
// sweep that removes expired write-only entries.
//
// A Cache is created through a Manager (ConfigureCache) and is safe for
// concurrent use. Once closed it is closed forever; operational calls
// then fail with ErrClosed while Name and Configuration stay readable.
type Cache[K comparable, V any] struct {
	name   string
	cfg    Configuration[K, V]
	policy ExpiryPolicy
	store  *store[K, V]
	log    Logger
	hooks  Hooks

	stats counters
	mgmt  atomic.Bool

	group flightGroup[K, V]

	closed    atomic.Bool
	ticker    *time.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

var _ NamedCache = (*Cache[string, any])(nil)

func newNativeCache[K comparable, V any](name string, cfg Configuration[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		name:  name,
		cfg:   cfg,
		store: newStore[K, V](cfg.ShardCount),
	}
	c.policy = coalesce[ExpiryPolicy](cfg.ExpiryPolicy, EternalPolicy{})
	c.log = coalesce[Logger](cfg.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](cfg.Hooks, NopHooks{})
	c.stats.enabled.Store(cfg.StatisticsEnabled)
	c.mgmt.Store(cfg.ManagementEnabled)

	interval := cfg.SweepInterval
	if interval == 0 {
		interval = defaultSweepInterval
	}
	if interval > 0 {
		c.ticker = time.NewTicker(interval)
		c.stopCh = make(chan struct{})
		c.closeWg.Add(1)
		go c.sweepLoop()
	}
	return c
}

// Get returns the live value for key. A missing or expired entry is a
// normal miss, never an error. The context is accepted for interface
// symmetry with backed caches; the native path does no IO.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if c.closed.Load() {
		return zero, false, fmt.Errorf("cache %q: %w", c.name, ErrClosed)
	}
	v, ok, dropped := c.store.get(key, c.policy, time.Now())
	if dropped {
		c.stats.expired(1)
		c.hooks.EntriesExpired(c.name, 1, true)
	}
	if ok {
		c.stats.hit()
	} else {
		c.stats.miss()
	}
	return v, ok, nil
}

// Put inserts or replaces key. The active policy's creation or update
// leg decides the new deadline; a zero duration means the value is
// visible to no subsequent read.
func (c *Cache[K, V]) Put(ctx context.Context, key K, value V) error {
	if c.closed.Load() {
		return fmt.Errorf("cache %q: %w", c.name, ErrClosed)
	}
	c.store.put(key, value, c.policy, time.Now())
	c.stats.put()
	return nil
}

// Remove deletes key, reporting whether a live entry was present.
func (c *Cache[K, V]) Remove(ctx context.Context, key K) (bool, error) {
	if c.closed.Load() {
		return false, fmt.Errorf("cache %q: %w", c.name, ErrClosed)
	}
	existed, wasExpired := c.store.remove(key, time.Now())
	if wasExpired {
		c.stats.expired(1)
		c.hooks.EntriesExpired(c.name, 1, true)
	}
	if existed {
		c.stats.removal()
	}
	return existed, nil
}

// GetOrLoad returns the cached value, or loads it on a miss. Concurrent
// loads for the same key collapse into one loader call and every caller
// receives that call's result. A loaded value is stored under the
// cache's expiry policy before being returned.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok, err := c.Get(ctx, key); err != nil {
		return zero, err
	} else if ok {
		return v, nil
	}
	return c.group.do(key, func() (V, error) {
		if c.closed.Load() {
			return zero, fmt.Errorf("cache %q: %w", c.name, ErrClosed)
		}
		// A finished flight may have populated the entry already. The
		// re-check is not a caller-visible lookup; the outer Get already
		// counted this miss.
		if v, hit, dropped := c.store.get(key, c.policy, time.Now()); hit {
			return v, nil
		} else if dropped {
			c.stats.expired(1)
			c.hooks.EntriesExpired(c.name, 1, true)
		}
		v, err := loader(ctx)
		if err != nil {
			c.stats.loadFailure()
			return zero, err
		}
		c.stats.load()
		if err := c.Put(ctx, key, v); err != nil {
			return zero, err
		}
		return v, nil
	})
}

// Entries returns a weakly consistent iterator over live key/value
// snapshots: each shard is copied as the iterator reaches it, so
// concurrent mutations may or may not be observed.
func (c *Cache[K, V]) Entries() (iter.Seq[Entry[K, V]], error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("cache %q: %w", c.name, ErrClosed)
	}
	return c.store.all(time.Now()), nil
}

// Clear drops every entry. No removal hooks fire; Clear is a bulk reset,
// not a series of removals.
func (c *Cache[K, V]) Clear() error {
	if c.closed.Load() {
		return fmt.Errorf("cache %q: %w", c.name, ErrClosed)
	}
	c.store.clear()
	return nil
}

// Len counts live entries. Expired-but-unswept entries are excluded.
func (c *Cache[K, V]) Len() int {
	if c.closed.Load() {
		return 0
	}
	return c.store.len(time.Now())
}

// Close stops the sweep scheduler, releases the stored entries, and
// marks the cache closed. Idempotent. In-flight operations either
// complete or fail with ErrClosed; the store is never left inconsistent.
func (c *Cache[K, V]) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.stopCh != nil {
			close(c.stopCh)
			c.closeWg.Wait()
			c.ticker.Stop()
		}
		c.store.clear()
	})
	return nil
}

func (c *Cache[K, V]) IsClosed() bool { return c.closed.Load() }

func (c *Cache[K, V]) Name() string { return c.name }

// Configuration returns a copy of the registered configuration. Valid
// after close.
func (c *Cache[K, V]) Configuration() Configuration[K, V] { return c.cfg.clone() }

func (c *Cache[K, V]) KeyType() reflect.Type   { return reflect.TypeFor[K]() }
func (c *Cache[K, V]) ValueType() reflect.Type { return reflect.TypeFor[V]() }

func (c *Cache[K, V]) Stats() Stats { return c.stats.snapshot(c.Len()) }

func (c *Cache[K, V]) StatisticsEnabled() bool      { return c.stats.enabled.Load() }
func (c *Cache[K, V]) SetStatisticsEnabled(on bool) { c.stats.enabled.Store(on) }
func (c *Cache[K, V]) ManagementEnabled() bool      { return c.mgmt.Load() }
func (c *Cache[K, V]) SetManagementEnabled(on bool) { c.mgmt.Store(on) }

func (c *Cache[K, V]) Unwrap(target any) error { return unwrapInto(target, c) }

func (c *Cache[K, V]) sweepLoop() {
	defer c.closeWg.Done()
	for {
		select {
		case <-c.ticker.C:
			c.sweepOnce()
		case <-c.stopCh:
			return
		}
	}
}

// sweepOnce runs one proactive expiry pass. Panics are contained so a
// misbehaving sink cannot kill the scheduler.
func (c *Cache[K, V]) sweepOnce() {
	defer func() {
		if v := recover(); v != nil {
			c.log.Error("sweep recovered", Fields{"cache": c.name, "panic": v})
			c.hooks.SweepRecovered(c.name, v)
		}
	}()
	removed := c.store.sweep(time.Now())
	c.stats.sweepRun()
	if removed > 0 {
		c.stats.expired(uint64(removed))
		c.hooks.EntriesExpired(c.name, removed, false)
		c.log.Debug("sweep removed expired entries", Fields{"cache": c.name, "removed": removed})
	}
}
