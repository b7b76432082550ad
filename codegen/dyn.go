package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// Dyn is an operand whose type is only known at run time. It backs
// BuildFunc and the recipe loader; typed code uses Value and Expr.
type Dyn struct {
	op operand
}

// Dynamic erases the static type of v.
func Dynamic[T Type](v Operand[T]) Dyn { return Dyn{op: v} }

// String is the rendered text of the operand.
func (d Dyn) String() string {
	if d.op == nil {
		return ""
	}
	return d.op.String()
}

// Type returns the operand's descriptor, or nil for the zero Dyn.
func (d Dyn) Type() Type {
	if d.op == nil {
		return nil
	}
	return d.op.typeOf()
}

// IsZero reports whether d holds no operand.
func (d Dyn) IsZero() bool { return d.op == nil }

type dynValue struct {
	typ    Type
	native value.Value
	text   string
	owner  *ir.Func
}

func (v dynValue) String() string { return v.text }
func (v dynValue) typeOf() Type   { return v.typ }

func (v dynValue) eval(fr *frame) value.Value {
	return fr.use(v.text, v.native, v.owner)
}

// DynConstant parses text as a literal of type t.
func DynConstant(t Type, text string) (Dyn, error) {
	p, ok := t.(literalParser)
	if !ok {
		return Dyn{}, fmt.Errorf("type %s has no literals", t.Name())
	}
	lit, err := p.parseLiteral(text)
	if err != nil {
		return Dyn{}, fmt.Errorf("invalid %s literal %q: %w", t.Name(), text, err)
	}
	return Dyn{op: dynValue{typ: t, native: lit.irConstant(), text: lit.render()}}, nil
}

// DynBinary combines two operands of the same numeric type.
func DynBinary(op BinaryOp, x, y Dyn) (Dyn, error) {
	if x.IsZero() || y.IsZero() {
		return Dyn{}, fmt.Errorf("%s: missing operand", op)
	}
	tx, ty := x.Type(), y.Type()
	if tx.Name() != ty.Name() {
		return Dyn{}, fmt.Errorf("%s: operand types differ (%s, %s)", op, tx.Name(), ty.Name())
	}
	num, ok := tx.(interface{ floating() bool })
	if !ok {
		return Dyn{}, fmt.Errorf("%s: type %s is not numeric", op, tx.Name())
	}
	return Dyn{op: binary{op: op, float: num.floating(), typ: tx, x: x.op, y: y.op}}, nil
}

// DynReturn is Return for a dynamic operand.
func DynReturn(v Dyn) {
	if v.IsZero() {
		panic("codegen: DynReturn of an empty operand")
	}
	emitReturn("DynReturn", v.op)
}

// DynLet is Let for a dynamic operand.
func DynLet(v Dyn) Dyn {
	if v.IsZero() {
		panic("codegen: DynLet of an empty operand")
	}
	name, native, owner := emitLet("DynLet", v.op)
	return Dyn{op: dynValue{typ: v.op.typeOf(), native: native, text: name, owner: owner}}
}
