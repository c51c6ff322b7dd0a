// Package locking provides in-process named mutexes for serializing
// operations that share a resource, such as all git sequences touching
// one worktree path.
package locking

import "sync"

// Registry hands out a mutex per name. Mutexes are reference-counted and
// discarded once no holder or waiter remains, so the map does not grow
// with the set of names ever seen.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// entry pairs a mutex with the number of goroutines holding or waiting.
type entry struct {
	mu   sync.Mutex
	refs int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for name, blocking until it is available, and
// returns the unlock function. The unlock function must be called exactly
// once.
func (r *Registry) Lock(name string) func() {
	r.mu.Lock()
	e, ok := r.locks[name]
	if !ok {
		e = &entry{}
		r.locks[name] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			r.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(r.locks, name)
			}
			r.mu.Unlock()
		})
	}
}

// TryLock attempts to acquire the mutex for name without blocking. On
// success it returns the unlock function and true; otherwise nil and false.
func (r *Registry) TryLock(name string) (func(), bool) {
	r.mu.Lock()
	e, ok := r.locks[name]
	if !ok {
		e = &entry{}
		r.locks[name] = e
	}
	e.refs++
	r.mu.Unlock()

	if !e.mu.TryLock() {
		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.locks, name)
		}
		r.mu.Unlock()
		return nil, false
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			r.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(r.locks, name)
			}
			r.mu.Unlock()
		})
	}, true
}
