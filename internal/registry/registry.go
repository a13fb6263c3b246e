package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

// DefaultCapacity is the fixed table capacity: a static prefix (tools
// registered before worker start) plus a bounded dynamic suffix (tools
// appended afterward, e.g. by a plugin-loading command).
const DefaultCapacity = 256

// Registry is the fixed-capacity tool table. Lookup is O(1) via a
// name-keyed map — Go's native hash table standing in for the source's
// open-addressed probe over a power-of-two bucket array; both give O(1)
// expected-time name lookup, which is the invariant that matters.
//
// Registration is expected to complete before workers start; Register
// still takes the write lock so a late runtime append (e.g. a plugin
// loaded by an operator command) is safe, but the dispatch hot path only
// ever takes the read lock.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Descriptor
	capacity int
	nextID   uint32
}

// New creates an empty Registry with the given capacity (DefaultCapacity
// if cap <= 0).
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		byName:   make(map[string]*Descriptor, capacity),
		capacity: capacity,
	}
}

// Register inserts a tool under name. It fails if name is already taken
// or the table is at capacity. The assigned ID auto-increments from the
// current high-water mark.
func (r *Registry) Register(name, description string, static bool, fn Func) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return nil, fathomerr.New("registry.Register", fathomerr.KindInvalidInput,
			fmt.Errorf("tool %q already registered", name))
	}
	if len(r.byName) >= r.capacity {
		return nil, fathomerr.New("registry.Register", fathomerr.KindFull,
			fmt.Errorf("tool registry at capacity %d", r.capacity))
	}
	d := &Descriptor{
		ID:          r.nextID,
		Name:        name,
		Description: description,
		Fn:          fn,
		Static:      static,
	}
	r.nextID++
	r.byName[name] = d
	return d, nil
}

// Unregister removes a tool by name. It is a no-op if the name is absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, name)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// List returns all descriptors ordered by ID, the order the Agent Loop
// uses to enumerate the tool list into the system prompt.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
