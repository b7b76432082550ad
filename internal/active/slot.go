// Package active implements a goroutine-scoped binding slot.
//
// A Slot lets code deep inside a callback find the value its caller bound
// without threading it through every signature. Each goroutine sees its
// own binding. Bindings nest: Enter saves the previous value and the
// release function it returns restores it, so the slot is never left
// pointing at a value whose scope has ended.
package active

import (
	"fmt"
	"sync"

	"weave/internal/trace"
)

// Conflict is the panic value raised when a goroutine tries to bind a
// second value while the first is still in scope.
type Conflict struct {
	Goroutine uint64
	Held      string
	Wanted    string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("active: goroutine %d is already building %s; cannot start %s", c.Goroutine, c.Held, c.Wanted)
}

// Slot holds at most one bound value per goroutine.
// The zero value is ready to use.
type Slot[T comparable] struct {
	mu    sync.Mutex
	bound map[uint64]T
}

// Enter binds v for the calling goroutine and returns the function that
// undoes the binding. Callers must defer the release.
//
// Entering while the goroutine is already bound to v is allowed (nested
// scopes on the same value). Entering while it is bound to a different
// value is a programmer error and panics with a *Conflict.
func (s *Slot[T]) Enter(v T) (release func()) {
	var zero T
	if v == zero {
		panic("active: cannot bind the zero value")
	}
	gid := trace.GoroutineID()

	s.mu.Lock()
	if s.bound == nil {
		s.bound = make(map[uint64]T)
	}
	prev, had := s.bound[gid]
	if had && prev != v {
		s.mu.Unlock()
		panic(&Conflict{Goroutine: gid, Held: describe(prev), Wanted: describe(v)})
	}
	s.bound[gid] = v
	s.mu.Unlock()

	released := false
	return func() {
		if released {
			return
		}
		released = true
		s.mu.Lock()
		defer s.mu.Unlock()
		if had {
			s.bound[gid] = prev
			return
		}
		delete(s.bound, gid)
	}
}

// Current returns the value bound for the calling goroutine.
func (s *Slot[T]) Current() (T, bool) {
	gid := trace.GoroutineID()
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.bound[gid]
	return v, ok
}

// Len reports how many goroutines currently hold a binding.
func (s *Slot[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bound)
}

func describe(v any) string {
	if n, ok := v.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T(%p)", v, v)
}
