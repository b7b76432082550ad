package recipe

import (
	"fmt"
	"strconv"
	"strings"

	"weave/codegen"
	"weave/internal/trace"
)

// Build constructs m on the calling goroutine and finalizes it.
func (m Module) Build(tracer trace.Tracer) (*codegen.Artifact, error) {
	mod := codegen.NewModule(m.Name, codegen.Options{
		SourcePath: m.SourcePath(),
		Producer:   m.Producer,
		Tracer:     tracer,
	})
	for _, f := range m.Functions {
		if err := f.define(mod); err != nil {
			return nil, err
		}
	}
	return mod.Finalize()
}

func (f Function) define(mod *codegen.Module) error {
	ret, ok := codegen.LookupType(f.Returns)
	if !ok {
		return fmt.Errorf("%s: unknown return type %q", f.Name, f.Returns)
	}
	params := make([]codegen.Type, len(f.Params))
	for i, p := range f.Params {
		if params[i], ok = codegen.LookupType(p); !ok {
			return fmt.Errorf("%s: param %d: unknown type %q", f.Name, i, p)
		}
	}
	_, err := mod.BuildFunc(f.Name, ret, params, func(args []codegen.Dyn) error {
		b := &bodyBuilder{ret: ret, args: args}
		for i, s := range f.Body {
			if err := b.stmt(s); err != nil {
				return fmt.Errorf("body[%d]: %w", i, err)
			}
		}
		return nil
	})
	return err
}

// bodyBuilder resolves operand names while a recipe body is emitted.
type bodyBuilder struct {
	ret  codegen.Type
	args []codegen.Dyn
	lets []codegen.Dyn
}

func (b *bodyBuilder) stmt(s Stmt) error {
	if s.Return != nil {
		if *s.Return == "" {
			codegen.ReturnVoid()
			return nil
		}
		v, err := b.operand(*s.Return, b.hint(s, codegen.Dyn{}))
		if err != nil {
			return err
		}
		codegen.DynReturn(v)
		return nil
	}

	if s.Let == "copy" {
		v, err := b.operand(s.LHS, b.hint(s, codegen.Dyn{}))
		if err != nil {
			return err
		}
		b.lets = append(b.lets, codegen.DynLet(v))
		return nil
	}

	op, err := codegen.ParseBinaryOp(s.Let)
	if err != nil {
		return err
	}
	// a named operand fixes the type of a literal on the other side
	x, xerr := b.named(s.LHS)
	y, yerr := b.named(s.RHS)
	if xerr != nil {
		if x, err = b.operand(s.LHS, b.hint(s, y)); err != nil {
			return err
		}
	}
	if yerr != nil {
		if y, err = b.operand(s.RHS, b.hint(s, x)); err != nil {
			return err
		}
	}
	expr, err := codegen.DynBinary(op, x, y)
	if err != nil {
		return err
	}
	b.lets = append(b.lets, codegen.DynLet(expr))
	return nil
}

// hint picks the type for a literal operand: the statement's explicit
// type, else the other operand's, else the function's return type.
func (b *bodyBuilder) hint(s Stmt, other codegen.Dyn) codegen.Type {
	if s.Type != "" {
		if t, ok := codegen.LookupType(s.Type); ok {
			return t
		}
	}
	if !other.IsZero() {
		return other.Type()
	}
	return b.ret
}

func (b *bodyBuilder) operand(text string, hint codegen.Type) (codegen.Dyn, error) {
	if v, err := b.named(text); err == nil {
		return v, nil
	} else if isName(text) {
		return codegen.Dyn{}, err
	}
	if _, void := hint.(codegen.Void); void {
		return codegen.Dyn{}, fmt.Errorf("cannot type literal %q in a void context; add type = \"...\"", text)
	}
	return codegen.DynConstant(hint, text)
}

func (b *bodyBuilder) named(text string) (codegen.Dyn, error) {
	var pool []codegen.Dyn
	var idx string
	switch {
	case strings.HasPrefix(text, "arg"):
		pool, idx = b.args, strings.TrimPrefix(text, "arg")
	case strings.HasPrefix(text, "v"):
		pool, idx = b.lets, strings.TrimPrefix(text, "v")
	default:
		return codegen.Dyn{}, fmt.Errorf("%q is not a name", text)
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return codegen.Dyn{}, fmt.Errorf("%q is not a name", text)
	}
	if n < 0 || n >= len(pool) {
		return codegen.Dyn{}, fmt.Errorf("%s is not defined", text)
	}
	return pool[n], nil
}

func isName(text string) bool {
	for _, prefix := range []string{"arg", "v"} {
		if rest, ok := strings.CutPrefix(text, prefix); ok {
			if _, err := strconv.Atoi(rest); err == nil {
				return true
			}
		}
	}
	return false
}
