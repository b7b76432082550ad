package codegen

import (
	"fmt"

	"weave/internal/active"
)

// building is the goroutine-scoped slot naming the module whose function
// body is currently open.
var building active.Slot[*Module]

// Building returns the module the calling goroutine is building, if any.
func Building() (*Module, bool) {
	return building.Current()
}

// current returns the open function frame for a statement emitter.
// Outside a body callback, or on an unusable module, it panics.
func current(what string) *frame {
	m, ok := building.Current()
	if !ok || m.fr == nil {
		panic(fmt.Sprintf("codegen: %s called outside a function body", what))
	}
	if err := m.usable(); err != nil {
		panic(err)
	}
	return m.fr
}
