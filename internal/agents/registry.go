// Package agents implements the specialized capabilities that a workflow
// can invoke, plus the name-keyed registry that dispatches them.
//
// Every capability is a thin typed wrapper around the opaque text
// generation backend: it builds a prompt, validates the structured result,
// and enforces its documented metadata contract. Capabilities never call
// each other; cross-step coupling happens only through metadata keys.
package agents

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

// Registry is the concrete name-keyed capability registry.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]core.AgentCapability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]core.AgentCapability)}
}

// Register adds a capability under its name. Registering a name twice is
// a config error; capabilities are wired once at startup.
func (r *Registry) Register(cap core.AgentCapability) error {
	if cap == nil || cap.Name() == "" {
		return core.ErrConfig(core.CodeUnknownAgent, "capability has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[cap.Name()]; exists {
		return core.ErrConfig(core.CodeUnknownAgent,
			fmt.Sprintf("capability %q registered twice", cap.Name()))
	}
	r.caps[cap.Name()] = cap
	return nil
}

// Get retrieves a capability by name.
func (r *Registry) Get(name string) (core.AgentCapability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cap, ok := r.caps[name]
	if !ok {
		return nil, core.ErrNotFound("capability", name)
	}
	return cap, nil
}

// List returns all registered capability names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caps))
	for n := range r.caps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
