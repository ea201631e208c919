package response

import (
	"maps"
	"slices"
	"sync"
)

// Params is a string map safe for concurrent use. Persistent parameters are
// shared by every in-flight request of one session, so they live here.
type Params struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewParams creates an empty parameter map.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// Get returns the value stored under name.
func (p *Params) Get(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[name]
	return v, ok
}

// Set stores value under name.
func (p *Params) Set(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[name] = value
}

// Delete removes name.
func (p *Params) Delete(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, name)
}

// Names returns the parameter names in sorted order.
func (p *Params) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.values))
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.values)
}

// Snapshot returns a copy of the parameters.
func (p *Params) Snapshot() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.values)
}
