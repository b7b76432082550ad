package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/value"

	"weave/internal/debuginfo"
	"weave/internal/trace"
)

// column stamped on every statement location.
const column = 1

// frame is the state of one open function body: the insertion cursor and
// the debug location every new instruction is stamped with.
type frame struct {
	m     *Module
	name  string
	fn    *ir.Func
	sp    *metadata.DISubprogram
	ret   Type
	block *ir.Block
	loc   *metadata.DILocation
	lets  int
	span  *trace.Span
}

// statement renders text as the next line and makes that line the
// current debug location. Instructions for the statement are emitted
// after it returns.
func (fr *frame) statement(text string) int {
	fr.mustBeOpen()
	line := fr.m.src.AddLine(text)
	loc, err := fr.m.dbg.Location(line, column, fr.sp)
	if err != nil {
		panic(fmt.Errorf("codegen: %s: %w", fr.name, err))
	}
	fr.loc = loc
	trace.Point(fr.m.tracer, trace.ScopeStatement, text, fmt.Sprintf("line %d", line), fr.span.ID())
	return line
}

func (fr *frame) mustBeOpen() {
	if fr.block.Term != nil {
		panic(fmt.Sprintf("codegen: %s: statement after the block was terminated", fr.name))
	}
}

// use returns native if it may appear in fr's function. Arguments and
// bound results of another function, nested or from another module, may not.
func (fr *frame) use(text string, native value.Value, owner *ir.Func) value.Value {
	if owner != nil && owner != fr.fn {
		panic(fmt.Sprintf("codegen: %s: operand %s belongs to function %s", fr.name, text, owner.Name()))
	}
	return native
}

func (fr *frame) stamp(md *ir.Metadata) {
	if fr.loc == nil {
		panic(fmt.Sprintf("codegen: %s: instruction emitted outside a statement", fr.name))
	}
	debuginfo.Attach(md, fr.loc)
}

func (fr *frame) arith(op BinaryOp, float bool, x, y value.Value) value.Value {
	fr.mustBeOpen()
	switch {
	case op == OpAdd && float:
		inst := fr.block.NewFAdd(x, y)
		fr.stamp(&inst.Metadata)
		return inst
	case op == OpAdd:
		inst := fr.block.NewAdd(x, y)
		fr.stamp(&inst.Metadata)
		return inst
	case op == OpSub && float:
		inst := fr.block.NewFSub(x, y)
		fr.stamp(&inst.Metadata)
		return inst
	case op == OpSub:
		inst := fr.block.NewSub(x, y)
		fr.stamp(&inst.Metadata)
		return inst
	case op == OpMul && float:
		inst := fr.block.NewFMul(x, y)
		fr.stamp(&inst.Metadata)
		return inst
	case op == OpMul:
		inst := fr.block.NewMul(x, y)
		fr.stamp(&inst.Metadata)
		return inst
	default:
		panic(fmt.Sprintf("codegen: unsupported operator %v", op))
	}
}

// terminate emits `ret` (void when v is nil).
func (fr *frame) terminate(v value.Value) {
	fr.mustBeOpen()
	term := fr.block.NewRet(v)
	fr.stamp(&term.Metadata)
}

// close finishes the body once "}" has been rendered at line.
// A void body that falls off the end returns at that line.
func (fr *frame) close(line int) error {
	if fr.block.Term != nil {
		return nil
	}
	if _, void := fr.ret.(Void); !void {
		return fmt.Errorf("body of %s ends without returning %s", fr.name, fr.ret.Name())
	}
	loc, err := fr.m.dbg.Location(line, column, fr.sp)
	if err != nil {
		return err
	}
	fr.loc = loc
	fr.terminate(nil)
	return nil
}
