package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/prepwise/pkg/provider/llm"
	"github.com/MrWong99/prepwise/pkg/transport"
)

// ErrProviderNotRegistered is returned by the Create methods when no factory
// is registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to constructors. It is safe for concurrent
// use.
type Registry struct {
	mu        sync.RWMutex
	llm       map[string]func(ProviderEntry) (llm.Provider, error)
	transport map[string]func(ProviderEntry) (transport.Transport, error)
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		llm:       make(map[string]func(ProviderEntry) (llm.Provider, error)),
		transport: make(map[string]func(ProviderEntry) (transport.Transport, error)),
	}
}

// RegisterLLM registers an LLM factory under name, replacing any earlier one.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterTransport registers a call transport factory under name.
func (r *Registry) RegisterTransport(name string, factory func(ProviderEntry) (transport.Transport, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transport[name] = factory
}

// CreateLLM builds the LLM provider registered under entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTransport builds the call transport registered under entry.Name.
func (r *Registry) CreateTransport(entry ProviderEntry) (transport.Transport, error) {
	r.mu.RLock()
	factory, ok := r.transport[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transport/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
