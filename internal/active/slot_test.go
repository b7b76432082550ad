package active

import (
	"strings"
	"sync"
	"testing"
)

type owner struct{ name string }

func (o *owner) Name() string { return o.name }

func mustPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", want)
		}
		var msg string
		switch v := r.(type) {
		case string:
			msg = v
		case error:
			msg = v.Error()
		}
		if !strings.Contains(msg, want) {
			t.Fatalf("panic = %v, want it to contain %q", r, want)
		}
	}()
	fn()
}

func TestEnterRelease(t *testing.T) {
	var s Slot[*owner]
	a := &owner{"a"}

	if _, ok := s.Current(); ok {
		t.Fatal("fresh slot must be empty")
	}
	release := s.Enter(a)
	if got, ok := s.Current(); !ok || got != a {
		t.Fatalf("Current = %v, %v; want a", got, ok)
	}
	release()
	if _, ok := s.Current(); ok {
		t.Fatal("slot must be empty after release")
	}
	release()
	if s.Len() != 0 {
		t.Fatalf("double release must be a no-op, Len = %d", s.Len())
	}
}

func TestNestedSameValue(t *testing.T) {
	var s Slot[*owner]
	a := &owner{"a"}

	outer := s.Enter(a)
	inner := s.Enter(a)
	inner()
	if got, ok := s.Current(); !ok || got != a {
		t.Fatal("inner release must restore the outer binding")
	}
	outer()
	if _, ok := s.Current(); ok {
		t.Fatal("outer release must clear the slot")
	}
}

func TestConflictPanics(t *testing.T) {
	var s Slot[*owner]
	a, b := &owner{"a"}, &owner{"b"}

	release := s.Enter(a)
	defer release()
	mustPanic(t, "already building a; cannot start b", func() {
		s.Enter(b)
	})
	func() {
		defer func() {
			c, ok := recover().(*Conflict)
			if !ok || c.Held != "a" || c.Wanted != "b" {
				t.Errorf("panic value = %#v, want *Conflict a->b", c)
			}
		}()
		s.Enter(b)
	}()
	if got, _ := s.Current(); got != a {
		t.Fatal("failed Enter must leave the binding untouched")
	}
}

func TestReleaseOnPanic(t *testing.T) {
	var s Slot[*owner]
	a := &owner{"a"}

	func() {
		defer func() { _ = recover() }()
		release := s.Enter(a)
		defer release()
		panic("body failed")
	}()
	if _, ok := s.Current(); ok {
		t.Fatal("deferred release must run on panic")
	}
}

func TestGoroutinesAreIndependent(t *testing.T) {
	var s Slot[*owner]
	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(o *owner) {
			defer wg.Done()
			release := s.Enter(o)
			defer release()
			if got, ok := s.Current(); !ok || got != o {
				errs <- o.name
			}
		}(&owner{name: string(rune('a' + i))})
	}
	wg.Wait()
	close(errs)
	for name := range errs {
		t.Errorf("goroutine %s saw a foreign binding", name)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after all releases", s.Len())
	}
}

func TestZeroValuePanics(t *testing.T) {
	var s Slot[*owner]
	mustPanic(t, "zero value", func() { s.Enter(nil) })
}
