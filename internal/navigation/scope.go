package navigation

import (
	"errors"
	"sync"
)

// ErrScopeClosed is returned when acquiring into a visit that already ended
var ErrScopeClosed = errors.New("screen visit has ended")

type held struct {
	value   any
	release func()
}

// Scope owns the resources acquired during one screen visit. They are all
// released when the visit ends.
type Scope struct {
	visit uint64

	mu     sync.Mutex
	closed bool
	keys   []string
	items  map[string]held
}

func newScope(visit uint64) *Scope {
	return &Scope{visit: visit, items: make(map[string]held)}
}

// Visit returns the visit number this scope belongs to
func (s *Scope) Visit() uint64 {
	return s.visit
}

// Closed reports whether the visit has ended
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Len returns the number of held resources
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Hold acquires a resource under key once per visit. Later calls with the
// same key return the value already held.
func Hold[T any](s *Scope, key string, acquire func() (T, func(), error)) (T, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return zero, ErrScopeClosed
	}
	if h, ok := s.items[key]; ok {
		v, _ := h.value.(T)
		return v, nil
	}

	v, release, err := acquire()
	if err != nil {
		return zero, err
	}
	s.items[key] = held{value: v, release: release}
	s.keys = append(s.keys, key)
	return v, nil
}

// close releases held resources in reverse acquisition order
func (s *Scope) close() int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	s.closed = true
	keys, items := s.keys, s.items
	s.keys, s.items = nil, nil
	s.mu.Unlock()

	for i := len(keys) - 1; i >= 0; i-- {
		if r := items[keys[i]].release; r != nil {
			r()
		}
	}
	return len(keys)
}
