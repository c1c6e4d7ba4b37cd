package excache

import (
	"fmt"
	"sort"
	"sync"
)

// CacheBuilder materializes a cache under the given name inside m.
// ConfigSource implementations return builders for declaratively
// configured caches.
type CacheBuilder func(m *Manager, name string) (NamedCache, error)

// ConfigSource supplies pre-configured cache definitions. GetCache
// consults it on a registry miss; with no source a miss is simply
// absent. The manager never invents a default configuration.
type ConfigSource interface {
	Lookup(name string) (CacheBuilder, bool)
}

// BuilderOf adapts a Configuration into a CacheBuilder for ConfigSource
// implementations.
func BuilderOf[K comparable, V any](cfg Configuration[K, V]) CacheBuilder {
	return func(m *Manager, name string) (NamedCache, error) {
		return ConfigureCache(m, name, cfg)
	}
}

// ManagerOptions tune a Manager. All fields are optional.
type ManagerOptions struct {
	Properties map[string]string
	Logger     Logger
	Hooks      Hooks
	Source     ConfigSource
}

// Manager owns uniquely named caches within a URI scope. A name is
// unique while its cache lives; DestroyCache frees it for
// reconfiguration. A closed Manager serves no new operations.
type Manager struct {
	uri    string
	props  map[string]string
	log    Logger
	hooks  Hooks
	source ConfigSource

	mu     sync.Mutex
	caches map[string]NamedCache
	closed bool
}

// NewManager builds a manager for the given scope URI. Managers are
// usually acquired through a Provider, which deduplicates them per URI.
func NewManager(uri string, opts ManagerOptions) *Manager {
	m := &Manager{
		uri:    uri,
		props:  make(map[string]string, len(opts.Properties)),
		caches: make(map[string]NamedCache),
		source: opts.Source,
	}
	for k, v := range opts.Properties {
		m.props[k] = v
	}
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	return m
}

// ConfigureCache registers a native cache under name, or returns the
// already-registered one. An existing cache is never reconfigured; if
// its types differ from K/V the call fails with a TypeMismatchError.
// Creation per name is serialized under the registry lock: one creator
// wins and later callers receive the winner's handle.
func ConfigureCache[K comparable, V any](m *Manager, name string, cfg Configuration[K, V]) (*Cache[K, V], error) {
	if name == "" {
		return nil, ErrNoName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("manager %q: %w", m.uri, ErrClosed)
	}
	if existing, ok := m.caches[name]; ok {
		typed, ok := existing.(*Cache[K, V])
		if !ok {
			return nil, mismatch[K, V](name, existing)
		}
		return typed, nil
	}

	cfg = cfg.clone()
	cfg.Logger = coalesce[Logger](cfg.Logger, m.log)
	cfg.Hooks = coalesce[Hooks](cfg.Hooks, m.hooks)
	c := newNativeCache[K, V](name, cfg)
	m.caches[name] = c
	m.log.Info("cache configured", Fields{"uri": m.uri, "name": name})
	return c, nil
}

// GetCache returns the cache registered under name with exactly the
// requested key/value types. A live cache of different types fails with
// a TypeMismatchError. On a registry miss the manager's ConfigSource, if
// any, materializes the cache; otherwise the result is absent.
func GetCache[K comparable, V any](m *Manager, name string) (*Cache[K, V], bool, error) {
	existing, ok, err := m.lookupOrMaterialize(name)
	if err != nil || !ok {
		return nil, false, err
	}
	typed, ok := existing.(*Cache[K, V])
	if !ok {
		return nil, false, mismatch[K, V](name, existing)
	}
	return typed, true, nil
}

// Lookup returns the untyped handle for name. It does not consult the
// ConfigSource and reports absent on a closed manager.
func (m *Manager) Lookup(name string) (NamedCache, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false
	}
	c, ok := m.caches[name]
	return c, ok
}

func (m *Manager) lookupOrMaterialize(name string) (NamedCache, bool, error) {
	if name == "" {
		return nil, false, ErrNoName
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, false, fmt.Errorf("manager %q: %w", m.uri, ErrClosed)
	}
	c, ok := m.caches[name]
	m.mu.Unlock()
	if ok {
		return c, true, nil
	}
	if m.source == nil {
		return nil, false, nil
	}
	build, found := m.source.Lookup(name)
	if !found {
		return nil, false, nil
	}
	// The builder registers through ConfigureCache and therefore
	// serializes with any racing explicit configuration.
	built, err := build(m, name)
	if err != nil {
		return nil, false, err
	}
	return built, true, nil
}

// DestroyCache clears and closes the named cache, then frees the name
// for reconfiguration. Destroying an unknown name fails with
// ErrCacheNotFound, identically on every repeat.
func (m *Manager) DestroyCache(name string) error {
	if name == "" {
		return ErrNoName
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("manager %q: %w", m.uri, ErrClosed)
	}
	c, ok := m.caches[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("destroy %q: %w", name, ErrCacheNotFound)
	}
	delete(m.caches, name)
	m.mu.Unlock()

	if err := c.Clear(); err != nil {
		m.log.Warn("clear during destroy failed", Fields{"name": name, "err": err})
	}
	err := c.Close()
	m.hooks.CacheDestroyed(name)
	m.log.Info("cache destroyed", Fields{"uri": m.uri, "name": name})
	return err
}

// Close closes every owned cache best-effort, ignoring individual close
// failures, then marks the manager closed. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	owned := make([]NamedCache, 0, len(m.caches))
	for _, c := range m.caches {
		owned = append(owned, c)
	}
	m.caches = make(map[string]NamedCache)
	m.mu.Unlock()

	for _, c := range owned {
		if err := c.Close(); err != nil {
			m.log.Warn("cache close failed", Fields{"name": c.Name(), "err": err})
		}
	}
	m.log.Info("manager closed", Fields{"uri": m.uri, "caches": len(owned)})
	return nil
}

func (m *Manager) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CacheNames returns a sorted snapshot of the live cache names.
func (m *Manager) CacheNames() []string {
	m.mu.Lock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)
	return names
}

func (m *Manager) URI() string { return m.uri }

// Properties returns a copy of the manager's configuration bag.
func (m *Manager) Properties() map[string]string {
	out := make(map[string]string, len(m.props))
	for k, v := range m.props {
		out[k] = v
	}
	return out
}

// EnableStatistics toggles statistics recording on the named cache.
// Stored data is untouched and no restart is needed.
func (m *Manager) EnableStatistics(name string, on bool) error {
	return m.toggle(name, func(c NamedCache) { c.SetStatisticsEnabled(on) })
}

// EnableManagement toggles management exposure (e.g. metrics collection)
// on the named cache.
func (m *Manager) EnableManagement(name string, on bool) error {
	return m.toggle(name, func(c NamedCache) { c.SetManagementEnabled(on) })
}

func (m *Manager) toggle(name string, apply func(NamedCache)) error {
	if name == "" {
		return ErrNoName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("manager %q: %w", m.uri, ErrClosed)
	}
	c, ok := m.caches[name]
	if !ok {
		return fmt.Errorf("toggle %q: %w", name, ErrCacheNotFound)
	}
	apply(c)
	return nil
}
