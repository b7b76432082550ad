package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// Return renders `return <v>;` and emits the matching ret.
func Return[T Type](v Operand[T]) {
	emitReturn("Return", v)
}

// ReturnVoid renders `return;` and emits `ret void`.
func ReturnVoid() {
	fr := current("ReturnVoid")
	if _, ok := fr.ret.(Void); !ok {
		panic(fmt.Sprintf("codegen: %s returns %s; ReturnVoid needs a void function", fr.name, fr.ret.Name()))
	}
	fr.statement("return;")
	fr.terminate(nil)
}

// Let renders `<type> vN = <v>;`, evaluates v under that line and binds
// the result to vN.
func Let[T Type](v Operand[T]) Value[T] {
	name, native, owner := emitLet("Let", v)
	return Value[T]{native: native, text: name, owner: owner}
}

func emitReturn(what string, v operand) {
	fr := current(what)
	got, want := v.typeOf(), fr.ret
	if _, ok := want.(Void); ok {
		panic(fmt.Sprintf("codegen: %s returns void; use ReturnVoid", fr.name))
	}
	if got.Name() != want.Name() {
		panic(fmt.Sprintf("codegen: %s returns %s, got %s %s", fr.name, want.Name(), got.Name(), v))
	}
	fr.statement("return " + v.String() + ";")
	fr.terminate(v.eval(fr))
}

// lazy marks operands whose evaluation creates instructions.
type lazy interface {
	lazy()
}

func (Expr[T]) lazy() {}
func (binary) lazy()  {}

func emitLet(what string, v operand) (string, value.Value, *ir.Func) {
	fr := current(what)
	name := fmt.Sprintf("v%d", fr.lets)
	fr.lets++
	fr.statement(v.typeOf().Name() + " " + name + " = " + v.String() + ";")
	native := v.eval(fr)
	if _, ok := v.(lazy); ok {
		if n, ok := native.(value.Named); ok {
			n.SetName(name)
		}
	}
	return name, native, fr.fn
}
