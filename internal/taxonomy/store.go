// Package taxonomy loads the configuration files that drive the
// content-safety and rubric-scoring layers: profanity lists, PII patterns,
// the living-artist registry, genre blueprints, and rubric overrides.
//
// Every loader is a plain file-to-struct function; Store[T] on top of it
// gives hot reload by atomic pointer swap, so a reload failure never
// disturbs a request already reading the previous generation.
package taxonomy

import (
	"fmt"
	"sync/atomic"
)

// Store holds the current generation of a loaded taxonomy value behind an
// atomic pointer. A failed Reload leaves the previous value in place,
// matching the propagation policy that a hot-reload failure must not
// disturb in-flight reads.
type Store[T any] struct {
	path    string
	loadFn  func(path string) (*T, error)
	current atomic.Pointer[T]
}

// NewStore loads path via loadFn immediately; a load failure at startup is
// fatal and returned to the caller.
func NewStore[T any](path string, loadFn func(string) (*T, error)) (*Store[T], error) {
	s := &Store[T]{path: path, loadFn: loadFn}
	value, err := loadFn(path)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy %s: %w", path, err)
	}
	s.current.Store(value)
	return s, nil
}

// Get returns the currently active value.
func (s *Store[T]) Get() *T {
	return s.current.Load()
}

// Reload re-reads the backing file and swaps it in atomically. On failure
// the previously loaded value remains active and the error is returned for
// the caller to log as a warning, not a fatal condition.
func (s *Store[T]) Reload() error {
	value, err := s.loadFn(s.path)
	if err != nil {
		return fmt.Errorf("reload taxonomy %s: %w", s.path, err)
	}
	s.current.Store(value)
	return nil
}
