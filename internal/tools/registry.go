package tools

import (
	"fmt"
	"sync"

	"github.com/aquasense/orchestrator/internal/domain"
)

// Registry stores tools keyed by name. Tools are registered once at startup;
// descriptors are immutable thereafter.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Registering a duplicate or unnamed tool is an error.
func (r *Registry) Register(t Tool) error {
	desc := t.Descriptor()
	if desc.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if desc.MaxCallsPerTurn <= 0 {
		return fmt.Errorf("tool %s: max_calls_per_turn must be positive", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("tool already registered for %s", desc.Name)
	}
	r.tools[desc.Name] = t
	r.order = append(r.order, desc.Name)
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns the named tool, or nil when unknown.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptors returns every registered descriptor in registration order.
func (r *Registry) Descriptors() []domain.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Descriptor())
	}
	return out
}
