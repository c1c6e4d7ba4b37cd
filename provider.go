package excache

import (
	"fmt"
	"sync"
)

// DefaultURI scopes managers acquired without an explicit URI.
const DefaultURI = "excache://default"

// ProviderOptions carry the provider-level defaults handed to every
// manager it creates.
type ProviderOptions struct {
	// DefaultURI is the scope used when Manager is called with "".
	// Empty means DefaultURI.
	DefaultURI string
	// Properties is the default configuration bag for new managers.
	Properties map[string]string
	Logger     Logger
	Hooks      Hooks
	Source     ConfigSource
}

// Provider hands out Managers scoped by URI and owns their lifecycle.
// The URI is an opaque scope identifier: two calls with the same URI
// return the same Manager, and cache names are unique within it.
type Provider struct {
	defaultURI string
	props      map[string]string
	log        Logger
	hooks      Hooks
	source     ConfigSource

	mu       sync.Mutex
	managers map[string]*Manager
	closed   bool
}

func NewProvider(opts ProviderOptions) *Provider {
	p := &Provider{
		defaultURI: coalesce(opts.DefaultURI, DefaultURI),
		props:      make(map[string]string, len(opts.Properties)),
		source:     opts.Source,
		managers:   make(map[string]*Manager),
	}
	for k, v := range opts.Properties {
		p.props[k] = v
	}
	p.log = coalesce[Logger](opts.Logger, NopLogger{})
	p.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	return p
}

// Manager returns the manager scoped to uri, creating it on first use.
// An empty uri selects the provider's default scope.
func (p *Provider) Manager(uri string) (*Manager, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("provider: %w", ErrClosed)
	}
	if uri == "" {
		uri = p.defaultURI
	}
	if m, ok := p.managers[uri]; ok {
		return m, nil
	}
	m := NewManager(uri, ManagerOptions{
		Properties: p.props,
		Logger:     p.log,
		Hooks:      p.hooks,
		Source:     p.source,
	})
	p.managers[uri] = m
	p.log.Info("manager created", Fields{"uri": uri})
	return m, nil
}

func (p *Provider) DefaultURI() string { return p.defaultURI }

// DefaultProperties returns a copy of the provider's default bag.
func (p *Provider) DefaultProperties() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.props))
	for k, v := range p.props {
		out[k] = v
	}
	return out
}

// Close closes every owned manager best-effort and marks the provider
// closed. Idempotent.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	owned := make([]*Manager, 0, len(p.managers))
	for _, m := range p.managers {
		owned = append(owned, m)
	}
	p.managers = make(map[string]*Manager)
	p.mu.Unlock()

	for _, m := range owned {
		if err := m.Close(); err != nil {
			p.log.Warn("manager close failed", Fields{"uri": m.URI(), "err": err})
		}
	}
	return nil
}

func (p *Provider) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
