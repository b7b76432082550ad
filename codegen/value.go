package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// operand is the untyped core shared by typed and dynamic handles.
type operand interface {
	String() string
	typeOf() Type
	eval(fr *frame) value.Value
}

// Operand is a T-typed handle a statement can consume: a bound Value or
// a lazily evaluated Expr.
type Operand[T Type] interface {
	operand
	elem() T
}

// Value pairs an IR operand with the text that names it in the
// pseudo-source.
type Value[T Type] struct {
	native value.Value
	text   string
	owner  *ir.Func // nil for constants
}

// Constant returns the literal v, rendered the way the pseudo-source
// spells it.
func Constant[T Literal](v T) Value[T] {
	return Value[T]{native: v.irConstant(), text: v.render()}
}

// Native is the underlying IR operand.
func (v Value[T]) Native() value.Value { return v.native }

// String is the rendered name, e.g. "arg0", "v3" or "5".
func (v Value[T]) String() string { return v.text }

// Type returns the descriptor of T.
func (v Value[T]) Type() Type { return v.typeOf() }

func (v Value[T]) elem() T { return *new(T) }

func (v Value[T]) typeOf() Type { return v.elem() }

func (v Value[T]) eval(fr *frame) value.Value {
	if v.native == nil {
		panic(fmt.Sprintf("codegen: use of an unbound %s value", v.typeOf().Name()))
	}
	return fr.use(v.text, v.native, v.owner)
}

// BinaryOp is an arithmetic operator.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota + 1
	OpSub
	OpMul
)

// ParseBinaryOp maps "add", "sub" and "mul" to their operator.
func ParseBinaryOp(s string) (BinaryOp, error) {
	switch s {
	case "add":
		return OpAdd, nil
	case "sub":
		return OpSub, nil
	case "mul":
		return OpMul, nil
	default:
		return 0, fmt.Errorf("unknown operator %q (expected: add|sub|mul)", s)
	}
}

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	default:
		return "unknown"
	}
}

// Symbol is the infix spelling used in rendered text.
func (op BinaryOp) Symbol() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	default:
		return "?"
	}
}

// Expr is arithmetic that has been rendered but not yet emitted. Its
// instructions are created by the statement that consumes it and so
// carry that statement's line.
type Expr[T Type] struct {
	bin binary
}

// Add renders "(x + y)".
func Add[T Numeric](x, y Operand[T]) Expr[T] { return newExpr[T](OpAdd, x, y) }

// Sub renders "(x - y)".
func Sub[T Numeric](x, y Operand[T]) Expr[T] { return newExpr[T](OpSub, x, y) }

// Mul renders "(x * y)".
func Mul[T Numeric](x, y Operand[T]) Expr[T] { return newExpr[T](OpMul, x, y) }

func newExpr[T Numeric](op BinaryOp, x, y Operand[T]) Expr[T] {
	var zero T
	return Expr[T]{bin: binary{op: op, float: zero.floating(), typ: zero, x: x, y: y}}
}

func (e Expr[T]) String() string             { return e.bin.String() }
func (e Expr[T]) elem() T                    { return *new(T) }
func (e Expr[T]) typeOf() Type               { return e.bin.typ }
func (e Expr[T]) eval(fr *frame) value.Value { return e.bin.eval(fr) }

// binary is the untyped form behind Expr and dynamic arithmetic.
type binary struct {
	op    BinaryOp
	float bool
	typ   Type
	x, y  operand
}

func (b binary) String() string {
	return "(" + b.x.String() + " " + b.op.Symbol() + " " + b.y.String() + ")"
}

func (b binary) typeOf() Type { return b.typ }

func (b binary) eval(fr *frame) value.Value {
	x := b.x.eval(fr)
	y := b.y.eval(fr)
	return fr.arith(b.op, b.float, x, y)
}
