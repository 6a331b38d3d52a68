package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownName = errors.New("unknown name")

// Name is the typed form of a registry key. Lookups accept either a Name
// or its plain string.
type Name string

func (n Name) String() string { return string(n) }

// UnknownNameError lists every name registered for the registry's purpose.
type UnknownNameError struct {
	Purpose string
	Name    string
	Valid   []string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("unknown %s: %s (valid options: %s)", e.Purpose, e.Name, strings.Join(e.Valid, ", "))
}

func (e *UnknownNameError) Unwrap() error { return ErrUnknownName }

// Registry maps names to implementations. It is filled at startup and read
// concurrently afterwards; late registration is safe but last writer wins.
type Registry[T any] struct {
	purpose string
	mu      sync.RWMutex
	entries map[Name]T
}

func New[T any](purpose string) *Registry[T] {
	return &Registry[T]{
		purpose: purpose,
		entries: make(map[Name]T),
	}
}

func (r *Registry[T]) Purpose() string { return r.purpose }

func (r *Registry[T]) Register(name Name, impl T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = impl
}

func (r *Registry[T]) Get(name Name) (T, error) {
	r.mu.RLock()
	impl, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, &UnknownNameError{Purpose: r.purpose, Name: string(name), Valid: r.Names()}
	}
	return impl, nil
}

func (r *Registry[T]) Lookup(name string) (T, error) {
	return r.Get(Name(name))
}

func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[Name(name)]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for n := range r.entries {
		out = append(out, string(n))
	}
	sort.Strings(out)
	return out
}
