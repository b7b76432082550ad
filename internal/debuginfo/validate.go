package debuginfo

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/metadata"
)

// ErrInvalid marks a debug graph that does not attribute every
// instruction to a line of the pseudo-source.
var ErrInvalid = errors.New("invalid debug info")

type attached interface {
	MDAttachments() []*metadata.Attachment
}

// Attach appends a !dbg attachment to md.
func Attach(md *ir.Metadata, node metadata.MDNode) {
	*md = append(*md, &metadata.Attachment{Name: "dbg", Node: node})
}

// LocationOf returns the !dbg location of an instruction or terminator.
func LocationOf(v any) (*metadata.DILocation, bool) {
	a, ok := v.(attached)
	if !ok {
		return nil, false
	}
	for _, md := range a.MDAttachments() {
		if md.Name != "dbg" {
			continue
		}
		loc, ok := md.Node.(*metadata.DILocation)
		return loc, ok
	}
	return nil, false
}

// SubprogramOf returns the !dbg subprogram of a function definition.
func SubprogramOf(f *ir.Func) (*metadata.DISubprogram, bool) {
	for _, md := range f.Metadata {
		if md.Name != "dbg" {
			continue
		}
		sp, ok := md.Node.(*metadata.DISubprogram)
		return sp, ok
	}
	return nil, false
}

// Validate checks that every defined function has a subprogram and every
// instruction a location scoped to it with a line in [1, maxLine].
// All violations are reported, joined.
func Validate(m *ir.Module, maxLine int) error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			continue
		}
		name := f.Name()
		sp, ok := SubprogramOf(f)
		if !ok {
			bad("function %s has no subprogram", name)
			continue
		}
		if sp.Line < 1 || sp.Line > int64(maxLine) {
			bad("function %s declared at line %d outside 1..%d", name, sp.Line, maxLine)
		}
		for _, blk := range f.Blocks {
			if blk.Term == nil {
				bad("function %s: block %s has no terminator", name, blk.Ident())
			}
			for i, inst := range blk.Insts {
				checkLocation(bad, name, fmt.Sprintf("instruction %d", i), inst, sp, maxLine)
			}
			if blk.Term != nil {
				checkLocation(bad, name, "terminator", blk.Term, sp, maxLine)
			}
		}
	}
	return errors.Join(errs...)
}

func checkLocation(bad func(string, ...any), fn, what string, v any, sp *metadata.DISubprogram, maxLine int) {
	loc, ok := LocationOf(v)
	switch {
	case !ok:
		bad("function %s: %s has no location", fn, what)
	case loc.Line < 1 || loc.Line > int64(maxLine):
		bad("function %s: %s at line %d outside 1..%d", fn, what, loc.Line, maxLine)
	case loc.Scope != metadata.Field(sp):
		bad("function %s: %s is scoped outside its subprogram", fn, what)
	}
}
