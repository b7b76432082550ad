package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/llir/llvm/ir"

	"weave/internal/active"
	"weave/internal/debuginfo"
	"weave/internal/trace"
)

// FunctionRef names a function that was built successfully.
type FunctionRef struct {
	Name string
	Func *ir.Func
	Line int // pseudo-source line of the signature
}

// Function0 builds `R name() { ... }`.
func Function0[R Type](m *Module, name string, body func() error) (FunctionRef, error) {
	return m.define(name, *new(R), nil, func(*ir.Func) error {
		return body()
	})
}

// Function1 builds `R name(A0 arg0) { ... }`.
func Function1[R Type, A0 Literal](m *Module, name string, body func(Value[A0]) error) (FunctionRef, error) {
	return m.define(name, *new(R), []Type{*new(A0)}, func(fn *ir.Func) error {
		return body(arg[A0](fn, 0))
	})
}

// Function2 builds `R name(A0 arg0, A1 arg1) { ... }`.
func Function2[R Type, A0, A1 Literal](m *Module, name string, body func(Value[A0], Value[A1]) error) (FunctionRef, error) {
	return m.define(name, *new(R), []Type{*new(A0), *new(A1)}, func(fn *ir.Func) error {
		return body(arg[A0](fn, 0), arg[A1](fn, 1))
	})
}

// Function3 builds a three-argument function.
func Function3[R Type, A0, A1, A2 Literal](m *Module, name string, body func(Value[A0], Value[A1], Value[A2]) error) (FunctionRef, error) {
	return m.define(name, *new(R), []Type{*new(A0), *new(A1), *new(A2)}, func(fn *ir.Func) error {
		return body(arg[A0](fn, 0), arg[A1](fn, 1), arg[A2](fn, 2))
	})
}

// Function4 builds a four-argument function.
func Function4[R Type, A0, A1, A2, A3 Literal](m *Module, name string, body func(Value[A0], Value[A1], Value[A2], Value[A3]) error) (FunctionRef, error) {
	return m.define(name, *new(R), []Type{*new(A0), *new(A1), *new(A2), *new(A3)}, func(fn *ir.Func) error {
		return body(arg[A0](fn, 0), arg[A1](fn, 1), arg[A2](fn, 2), arg[A3](fn, 3))
	})
}

// BuildFunc builds a function whose signature is only known at run time.
// Parameters must be non-void.
func (m *Module) BuildFunc(name string, ret Type, params []Type, body func(args []Dyn) error) (FunctionRef, error) {
	return m.define(name, ret, params, func(fn *ir.Func) error {
		args := make([]Dyn, len(fn.Params))
		for i, p := range fn.Params {
			args[i] = Dyn{op: dynValue{typ: params[i], native: p, text: argName(i), owner: fn}}
		}
		return body(args)
	})
}

func arg[T Type](fn *ir.Func, i int) Value[T] {
	return Value[T]{native: fn.Params[i], text: argName(i), owner: fn}
}

func argName(i int) string { return "arg" + strconv.Itoa(i) }

func signature(name string, ret Type, params []Type) string {
	var sb strings.Builder
	sb.WriteString(ret.Name())
	sb.WriteByte(' ')
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name())
		sb.WriteByte(' ')
		sb.WriteString(argName(i))
	}
	sb.WriteString(") {")
	return sb.String()
}

func checkSignature(name string, ret Type, params []Type) error {
	if name == "" {
		return fmt.Errorf("function name is empty")
	}
	if strings.IndexFunc(name, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) || r == '(' || r == ')' }) >= 0 {
		return fmt.Errorf("function name %q is not a plain identifier", name)
	}
	if ret == nil {
		return fmt.Errorf("function %s: missing return type", name)
	}
	for i, p := range params {
		if p == nil {
			return fmt.Errorf("function %s: parameter %d has no type", name, i)
		}
		if _, ok := p.(Void); ok {
			return fmt.Errorf("function %s: parameter %d cannot be void", name, i)
		}
	}
	return nil
}

// define runs the build protocol for one function:
// declare, render the signature, open the body, run it, close it, register.
func (m *Module) define(name string, ret Type, params []Type, body func(*ir.Func) error) (FunctionRef, error) {
	if err := m.usable(); err != nil {
		return FunctionRef{}, err
	}
	if err := checkSignature(name, ret, params); err != nil {
		return FunctionRef{}, fmt.Errorf("%s: %w", m.name, err)
	}
	if _, dup := m.defined[name]; dup {
		return FunctionRef{}, fmt.Errorf("%s: %w: %s", m.name, ErrDuplicateFunction, name)
	}

	release := building.Enter(m)
	defer release()

	line := m.src.CurrentLine()
	fr, err := m.declare(name, ret, params, line)
	if err != nil {
		err = &BuildError{Module: m.name, Func: name, Line: line, Err: err}
		m.poison(err)
		return FunctionRef{}, err
	}
	m.defined[name] = struct{}{}

	m.src.AddLine(signature(name, ret, params))
	m.src.EnterScope()
	outer := m.src.Depth() - 1

	parent, parentScope := m.fr, m.scope
	parentSpan := m.span.ID()
	if parent != nil {
		parentSpan = parent.span.ID()
	}
	fr.span = trace.Begin(m.tracer, trace.ScopeFunction, "fn:"+name, parentSpan)
	m.fr, m.scope = fr, fr.sp

	defer func() {
		m.fr, m.scope = parent, parentScope
		m.leaveTo(outer)
		if r := recover(); r != nil {
			m.poison(&BuildError{Module: m.name, Func: name, Line: line, Err: &panicError{value: r}})
			fr.span.End("aborted")
			panic(r)
		}
	}()

	err = runBody(func() error { return body(fr.fn) })
	m.leaveTo(outer)
	if err == nil && m.state == statePoisoned {
		err = m.cause
	}
	if err == nil {
		err = fr.close(m.src.AddLine("}"))
	}
	if err != nil {
		berr := &BuildError{Module: m.name, Func: name, Line: line, Err: err}
		m.poison(berr)
		fr.span.Set("error", err.Error()).End("failed")
		return FunctionRef{}, berr
	}

	ref := FunctionRef{Name: name, Func: fr.fn, Line: line}
	m.funcs = append(m.funcs, ref)
	fr.span.Set("line", strconv.Itoa(line)).End("")
	return ref, nil
}

func (m *Module) declare(name string, ret Type, params []Type, line int) (*frame, error) {
	irParams := make([]*ir.Param, len(params))
	dbgParams := make([]debuginfo.Basic, len(params))
	for i, p := range params {
		irParams[i] = ir.NewParam(argName(i), p.IRType())
		dbgParams[i] = p.DebugBasic()
	}
	fn := m.mod.NewFunc(name, ret.IRType(), irParams...)
	sp, err := m.dbg.Subprogram(m.scope, name, line, m.dbg.SubroutineType(ret.DebugBasic(), dbgParams))
	if err != nil {
		return nil, err
	}
	debuginfo.Attach(&fn.Metadata, sp)
	return &frame{
		m:     m,
		name:  name,
		fn:    fn,
		sp:    sp,
		ret:   ret,
		block: fn.NewBlock("entry"),
	}, nil
}

func (m *Module) leaveTo(depth int) {
	for m.src.Depth() > depth {
		m.src.LeaveScope()
	}
}

// runBody calls body, turning a panic into an error. A slot conflict is
// a programmer error and keeps unwinding.
func runBody(body func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if c, ok := r.(*active.Conflict); ok {
			panic(c)
		}
		err = &panicError{value: r}
	}()
	return body()
}
