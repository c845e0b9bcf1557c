package bot

import (
	"fmt"
	"sync"
)

// Registry holds modules in registration order, keyed by name.
type Registry struct {
	mu     sync.RWMutex
	order  []Module
	byName map[string]Module
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Module)}
}

// Register adds m to the registry. It panics if m is nil or a module with
// the same name is already registered, mirroring database/sql.Register.
func (r *Registry) Register(m Module) {
	if m == nil {
		panic("bot: Register module is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, dup := r.byName[name]; dup {
		panic(fmt.Sprintf("bot: Register called twice for module %q", name))
	}
	r.byName[name] = m
	r.order = append(r.order, m)
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	return m, ok
}

// Modules returns a copy of the registered modules.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Module(nil), r.order...)
}

// modules self-register here from init().
var globalRegistry = NewRegistry()

// Register adds m to the global registry. Modules call it from init().
func Register(m Module) {
	globalRegistry.Register(m)
}

// Modules returns all modules from the global registry.
func Modules() []Module {
	return globalRegistry.Modules()
}

// ResetGlobalRegistry replaces the global registry with an empty one. Tests only.
func ResetGlobalRegistry() {
	globalRegistry = NewRegistry()
}
