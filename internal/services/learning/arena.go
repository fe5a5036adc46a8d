package learning

import "sync"

// Arena keeps one model instance per key, created on first use. With runs
// calls for the same key one at a time; different keys run in parallel.
type Arena[T any] struct {
	mu      sync.RWMutex
	entries map[string]*arenaEntry[T]
	factory func(key string) T
}

type arenaEntry[T any] struct {
	mu    sync.Mutex
	model T
}

func NewArena[T any](factory func(key string) T) *Arena[T] {
	return &Arena[T]{
		entries: make(map[string]*arenaEntry[T]),
		factory: factory,
	}
}

func (a *Arena[T]) entry(key string) *arenaEntry[T] {
	a.mu.RLock()
	e, ok := a.entries[key]
	a.mu.RUnlock()
	if ok {
		return e
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// Double-check after acquiring write lock
	if e, ok = a.entries[key]; !ok {
		e = &arenaEntry[T]{model: a.factory(key)}
		a.entries[key] = e
	}
	return e
}

// With gives fn exclusive use of the instance for key.
func (a *Arena[T]) With(key string, fn func(model T) error) error {
	e := a.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.model)
}

// Evict drops the instance for key. A call already running on it finishes
// on the detached instance.
func (a *Arena[T]) Evict(key string) {
	a.mu.Lock()
	delete(a.entries, key)
	a.mu.Unlock()
}

// Retain evicts every key not in keep and returns the evicted keys.
func (a *Arena[T]) Retain(keep []string) []string {
	set := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		set[k] = struct{}{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var evicted []string
	for k := range a.entries {
		if _, ok := set[k]; !ok {
			delete(a.entries, k)
			evicted = append(evicted, k)
		}
	}
	return evicted
}

// Keys returns the keys that currently hold an instance.
func (a *Arena[T]) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.entries))
	for k := range a.entries {
		out = append(out, k)
	}
	return out
}
