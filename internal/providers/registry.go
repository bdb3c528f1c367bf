package providers

import (
	"fmt"
	"sync"
)

// Agent roles recognized by the registry. Each role carries its own model
// and credentials so the three agents can run against different backends.
const (
	RoleVisualizer  = "visualizer"
	RoleInterviewer = "interviewer"
	RoleBOQ         = "boq"
)

// Registry maps agent roles to their configured providers.
type Registry struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider for a role
func (r *Registry) Register(role string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[role] = provider
}

// Get retrieves the provider for a role
func (r *Registry) Get(role string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[role]
	if !ok {
		return nil, fmt.Errorf("no provider registered for role %q", role)
	}
	return p, nil
}

// Roles returns all registered roles
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]string, 0, len(r.providers))
	for role := range r.providers {
		roles = append(roles, role)
	}
	return roles
}

// Has checks if a role has a provider
func (r *Registry) Has(role string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.providers[role]
	return exists
}
