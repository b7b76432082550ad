package codegen

import (
	"errors"
	"fmt"

	"weave/internal/debuginfo"
)

var (
	// ErrFinalized is returned by every mutating call on a finalized module.
	ErrFinalized = errors.New("module already finalized")
	// ErrPoisoned is returned once a function build has failed; the module's
	// IR, text and debug graph may be out of step and are no longer usable.
	ErrPoisoned = errors.New("module poisoned by a failed build")
	// ErrBuildFailed tags every *BuildError.
	ErrBuildFailed = errors.New("function build failed")
	// ErrInvalidDebugInfo is returned by Finalize when some instruction is
	// not attributed to a line of the pseudo-source.
	ErrInvalidDebugInfo = debuginfo.ErrInvalid
	// ErrDuplicateFunction is returned when a name is defined twice.
	ErrDuplicateFunction = errors.New("duplicate function")
)

// BuildError reports a body callback that returned an error or panicked.
type BuildError struct {
	Module string
	Func   string
	Line   int // pseudo-source line of the function signature
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: building %s (line %d): %v", e.Module, e.Func, e.Line, e.Err)
}

func (e *BuildError) Unwrap() []error {
	return []error{ErrBuildFailed, e.Err}
}

// panicError is a recovered panic value turned into an error.
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

func (p *panicError) Unwrap() error {
	if err, ok := p.value.(error); ok {
		return err
	}
	return nil
}
