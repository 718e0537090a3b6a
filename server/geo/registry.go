package geo

import (
	"fmt"
	"sync"
)

// Instance is a map owned by one rendered item.
type Instance struct {
	// Key is the alert key of the owning item.
	Key string

	Container string
	Map       Map

	// Layer is the geometry layer currently on the map.
	Layer Layer

	// Signature identifies the geometry and accent the layer was drawn with.
	Signature string

	// Zoom is the zoom setting the view was last applied with. 0 means fitted.
	Zoom int
}

// Registry tracks the map instances of one card.
// It provides thread-safe operations for registering, retrieving, and releasing instances.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewRegistry creates a new map instance registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[string]*Instance),
	}
}

// Register adds an instance to the registry.
// Returns an error if an instance with the same key already exists.
func (r *Registry) Register(inst *Instance) error {
	if inst == nil {
		return fmt.Errorf("cannot register nil instance")
	}
	if inst.Key == "" {
		return fmt.Errorf("instance key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[inst.Key]; exists {
		return fmt.Errorf("map instance %s already registered", inst.Key)
	}

	r.instances[inst.Key] = inst
	return nil
}

// Get retrieves an instance by its key.
// Returns nil if the instance doesn't exist.
func (r *Registry) Get(key string) *Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.instances[key]
}

// Unregister removes an instance and releases its map.
// Returns false if no instance is registered under key.
func (r *Registry) Unregister(key string) bool {
	r.mu.Lock()
	inst, exists := r.instances[key]
	delete(r.instances, key)
	r.mu.Unlock()

	if !exists {
		return false
	}

	// Release the map after dropping the lock so slow backends don't block the registry
	inst.Map.Remove()
	return true
}

// Retain releases every instance whose key is not in keep and returns the released keys.
func (r *Registry) Retain(keep map[string]bool) []string {
	r.mu.Lock()
	var stale []*Instance
	for key, inst := range r.instances {
		if !keep[key] {
			stale = append(stale, inst)
			delete(r.instances, key)
		}
	}
	r.mu.Unlock()

	keys := make([]string, 0, len(stale))
	for _, inst := range stale {
		inst.Map.Remove()
		keys = append(keys, inst.Key)
	}
	return keys
}

// Keys returns the keys of all registered instances.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.instances))
	for key := range r.instances {
		keys = append(keys, key)
	}
	return keys
}

// UnregisterAll releases every instance.
func (r *Registry) UnregisterAll() {
	r.Retain(nil)
}

// Count returns the number of registered instances.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.instances)
}
