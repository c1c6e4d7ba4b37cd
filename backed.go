package excache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ternvale/excache/backend"
	"github.com/ternvale/excache/codec"
	"github.com/ternvale/excache/internal/util"
	"github.com/ternvale/excache/internal/wire"
)

// BackedConfig describes a cache stored in an external byte store.
type BackedConfig[V any] struct {
	// Backend is the byte store holding the entries. Required.
	Backend backend.Store

	// Codec serializes values. Required.
	Codec codec.Codec[V]

	// ExpiryPolicy must be a CreatedPolicy or EternalPolicy (nil means
	// eternal). Access- and update-driven policies need per-access
	// metadata rewrites the byte-store contract cannot honor; they are
	// rejected with ErrUnsupported.
	ExpiryPolicy ExpiryPolicy

	StatisticsEnabled bool
	ManagementEnabled bool

	Logger Logger
	Hooks  Hooks
}

// BackedCache adapts a byte store (ristretto, bigcache, redis) to the
// managed-cache surface. Keys are strings; values pass through the
// configured codec and are framed with creation/expiry metadata so lazy
// expiry holds even on stores without per-entry TTL. The active sweep is
// delegated to the backend's own janitor.
type BackedCache[V any] struct {
	name   string
	be     backend.Store
	codec  codec.Codec[V]
	policy ExpiryPolicy
	log    Logger
	hooks  Hooks

	stats counters
	mgmt  atomic.Bool

	// Flights are keyed by the raw user key; keys here are plain
	// strings so the mapping is exact.
	group singleflight.Group

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ NamedCache = (*BackedCache[any])(nil)

func newBackedCache[V any](name string, cfg BackedConfig[V]) (*BackedCache[V], error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("%w: backend is required", ErrInvalidConfig)
	}
	if cfg.Codec == nil {
		return nil, fmt.Errorf("%w: codec is required", ErrInvalidConfig)
	}
	switch cfg.ExpiryPolicy.(type) {
	case nil, CreatedPolicy, EternalPolicy:
	default:
		return nil, fmt.Errorf("%w: backed caches support created or eternal expiry only", ErrUnsupported)
	}

	b := &BackedCache[V]{
		name:   name,
		be:     cfg.Backend,
		codec:  cfg.Codec,
		policy: coalesce[ExpiryPolicy](cfg.ExpiryPolicy, EternalPolicy{}),
		log:    coalesce[Logger](cfg.Logger, NopLogger{}),
		hooks:  coalesce[Hooks](cfg.Hooks, NopHooks{}),
	}
	b.stats.enabled.Store(cfg.StatisticsEnabled)
	b.mgmt.Store(cfg.ManagementEnabled)
	return b, nil
}

// ConfigureBackedCache registers a backed cache under name, or returns
// the already-registered one; the same uniqueness and no-silent-
// reconfiguration rules as ConfigureCache apply.
func ConfigureBackedCache[V any](m *Manager, name string, cfg BackedConfig[V]) (*BackedCache[V], error) {
	if name == "" {
		return nil, ErrNoName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("manager %q: %w", m.uri, ErrClosed)
	}
	if existing, ok := m.caches[name]; ok {
		typed, ok := existing.(*BackedCache[V])
		if !ok {
			return nil, mismatch[string, V](name, existing)
		}
		return typed, nil
	}

	cfg.Logger = coalesce[Logger](cfg.Logger, m.log)
	cfg.Hooks = coalesce[Hooks](cfg.Hooks, m.hooks)
	b, err := newBackedCache[V](name, cfg)
	if err != nil {
		return nil, err
	}
	m.caches[name] = b
	m.log.Info("backed cache configured", Fields{"uri": m.uri, "name": name})
	return b, nil
}

// GetBackedCache returns the backed cache registered under name with
// exactly the requested value type.
func GetBackedCache[V any](m *Manager, name string) (*BackedCache[V], bool, error) {
	existing, ok, err := m.lookupOrMaterialize(name)
	if err != nil || !ok {
		return nil, false, err
	}
	typed, ok := existing.(*BackedCache[V])
	if !ok {
		return nil, false, mismatch[string, V](name, existing)
	}
	return typed, true, nil
}

// Get returns the live value for key. Frames the backend hands back are
// validated strictly: undecodable ones are deleted and reported as a
// miss (self-heal), expired ones are removed lazily.
func (b *BackedCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	return b.lookup(ctx, key, true)
}

// lookup is Get with hit/miss accounting made optional. Expiries and
// self-heals are always recorded; they happen regardless of who asked.
func (b *BackedCache[V]) lookup(ctx context.Context, key string, record bool) (V, bool, error) {
	var zero V
	if b.closed.Load() {
		return zero, false, fmt.Errorf("cache %q: %w", b.name, ErrClosed)
	}
	if key == "" {
		return zero, false, ErrNilKey
	}
	sk := util.StorageKey(b.name, key)
	raw, ok, err := b.be.Get(ctx, sk)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		if record {
			b.stats.miss()
		}
		return zero, false, nil
	}
	f, err := wire.DecodeEntry(raw)
	if err != nil {
		b.selfHeal(ctx, sk, "corrupt")
		if record {
			b.stats.miss()
		}
		return zero, false, nil
	}
	if f.Expired(time.Now()) {
		_ = b.be.Del(ctx, sk)
		b.stats.expired(1)
		b.hooks.EntriesExpired(b.name, 1, true)
		if record {
			b.stats.miss()
		}
		return zero, false, nil
	}
	v, err := b.codec.Decode(f.Payload)
	if err != nil {
		b.selfHeal(ctx, sk, "value_decode")
		if record {
			b.stats.miss()
		}
		return zero, false, nil
	}
	if record {
		b.stats.hit()
	}
	return v, true, nil
}

// GetOrLoad returns the cached value, or loads it on a miss. Concurrent
// loads for the same key collapse into one loader call and every caller
// receives that call's result. A loaded value is stored under the
// cache's expiry policy before being returned.
func (b *BackedCache[V]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok, err := b.Get(ctx, key); err != nil {
		return zero, err
	} else if ok {
		return v, nil
	}
	res, err, _ := b.group.Do(key, func() (any, error) {
		// A finished flight may have stored the entry already. The
		// re-check records no hit/miss; the outer Get already counted.
		if v, ok, err := b.lookup(ctx, key, false); err != nil {
			return zero, err
		} else if ok {
			return v, nil
		}
		v, err := loader(ctx)
		if err != nil {
			b.stats.loadFailure()
			return zero, err
		}
		b.stats.load()
		if err := b.Put(ctx, key, v); err != nil {
			return zero, err
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(V), nil
}

// Put stores key/value under the creation leg of the policy. Backed
// puts cannot tell inserts from replacements without an extra read, so
// both use creation expiry; with the supported policies the outcome is
// identical.
func (b *BackedCache[V]) Put(ctx context.Context, key string, value V) error {
	if b.closed.Load() {
		return fmt.Errorf("cache %q: %w", b.name, ErrClosed)
	}
	if key == "" {
		return ErrNilKey
	}
	now := time.Now()
	meta := EntryMeta{CreatedAt: now, LastAccessedAt: now, LastModifiedAt: now}
	d, ok := b.policy.ExpiryForCreation(meta, now)
	if !ok {
		d = Eternal
	}
	sk := util.StorageKey(b.name, key)
	if d.IsZero() {
		// Expired on arrival: store nothing, drop any prior value.
		_ = b.be.Del(ctx, sk)
		b.stats.put()
		return nil
	}

	payload, err := b.codec.Encode(value)
	if err != nil {
		return err
	}
	f := wire.Frame{CreatedAt: now, Payload: payload}
	var ttl time.Duration
	if !d.IsEternal() {
		f.ExpiresAt = d.Deadline(now)
		ttl = d.Span()
	}
	stored, err := b.be.Set(ctx, sk, wire.EncodeEntry(f), ttl)
	if err != nil {
		return err
	}
	if !stored {
		b.log.Debug("backend rejected write under pressure", Fields{"cache": b.name, "key": key})
	}
	b.stats.put()
	return nil
}

// Remove deletes key, reporting whether a live value was present. The
// presence check and the delete are two backend calls, so the result is
// best-effort under concurrent writers.
func (b *BackedCache[V]) Remove(ctx context.Context, key string) (bool, error) {
	if b.closed.Load() {
		return false, fmt.Errorf("cache %q: %w", b.name, ErrClosed)
	}
	if key == "" {
		return false, ErrNilKey
	}
	sk := util.StorageKey(b.name, key)
	raw, ok, err := b.be.Get(ctx, sk)
	if err != nil {
		return false, err
	}
	existed := false
	if ok {
		if f, err := wire.DecodeEntry(raw); err == nil && !f.Expired(time.Now()) {
			existed = true
		}
	}
	if err := b.be.Del(ctx, sk); err != nil {
		return false, err
	}
	if existed {
		b.stats.removal()
	}
	return existed, nil
}

// Clear resets the underlying store. Backends that cannot enumerate
// their keys surface ErrUnsupported.
func (b *BackedCache[V]) Clear() error {
	if b.closed.Load() {
		return fmt.Errorf("cache %q: %w", b.name, ErrClosed)
	}
	err := b.be.Reset(context.Background())
	if errors.Is(err, backend.ErrResetUnsupported) {
		return fmt.Errorf("clear %q: %w", b.name, ErrUnsupported)
	}
	return err
}

// Close closes the backend (adapters decide whether they own the
// underlying client). Idempotent; later calls return the first result.
func (b *BackedCache[V]) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		b.closeErr = b.be.Close(context.Background())
	})
	return b.closeErr
}

func (b *BackedCache[V]) IsClosed() bool { return b.closed.Load() }

func (b *BackedCache[V]) Name() string { return b.name }

func (b *BackedCache[V]) KeyType() reflect.Type   { return reflect.TypeFor[string]() }
func (b *BackedCache[V]) ValueType() reflect.Type { return reflect.TypeFor[V]() }

// Len reports the backend's entry count, or -1 when it cannot count.
// Counts include expired-but-unswept frames the backend still holds.
func (b *BackedCache[V]) Len() int {
	if c, ok := b.be.(backend.Counter); ok {
		return c.Len()
	}
	return -1
}

func (b *BackedCache[V]) Stats() Stats { return b.stats.snapshot(b.Len()) }

func (b *BackedCache[V]) StatisticsEnabled() bool      { return b.stats.enabled.Load() }
func (b *BackedCache[V]) SetStatisticsEnabled(on bool) { b.stats.enabled.Store(on) }
func (b *BackedCache[V]) ManagementEnabled() bool      { return b.mgmt.Load() }
func (b *BackedCache[V]) SetManagementEnabled(on bool) { b.mgmt.Store(on) }

func (b *BackedCache[V]) Unwrap(target any) error { return unwrapInto(target, b) }

func (b *BackedCache[V]) selfHeal(ctx context.Context, storageKey, reason string) {
	_ = b.be.Del(ctx, storageKey)
	b.hooks.SelfHeal(b.name, storageKey, reason)
	b.log.Debug("dropped undecodable entry", Fields{"cache": b.name, "key": storageKey, "reason": reason})
}
