package taskmanager

import "sync"

// SharedContext holds the values accumulated by a workflow run.
type SharedContext struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

// NewSharedContext creates a new SharedContext.
func NewSharedContext() *SharedContext {
	return &SharedContext{
		data: make(map[string]interface{}),
	}
}

// Set adds or updates a value in the context.
func (sc *SharedContext) Set(key string, value interface{}) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.data[key] = value
}

// Get retrieves a value from the context.
func (sc *SharedContext) Get(key string) (interface{}, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	val, ok := sc.data[key]
	return val, ok
}

// Snapshot returns a shallow copy of every value in the context.
func (sc *SharedContext) Snapshot() map[string]interface{} {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	out := make(map[string]interface{}, len(sc.data))
	for k, v := range sc.data {
		out[k] = v
	}
	return out
}

// Len returns the number of keys in the context.
func (sc *SharedContext) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.data)
}
