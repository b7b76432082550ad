package codegen

import (
	"strconv"
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"weave/internal/debuginfo"
)

// Type describes one supported value type: its IR type, its debug base
// type, its canonical rendered name and its natural alignment in bytes.
//
// The set of descriptors is closed. Each supported type is a named Go
// type declared in this file; adding one means adding a declaration and
// its methods, nothing else.
type Type interface {
	IRType() types.Type
	DebugBasic() debuginfo.Basic
	Name() string
	Alignment() int

	descriptor()
}

// Literal is the constraint satisfied by descriptors that carry a
// constant value, i.e. every type but Void. Function parameters are
// Literal types.
type Literal interface {
	Bool | I8 | I16 | I32 | I64 | U8 | U16 | U32 | U64 | F32 | F64
	literal
}

type literal interface {
	Type
	irConstant() constant.Constant
	render() string
}

// literalParser reads a constant from recipe text.
type literalParser interface {
	parseLiteral(s string) (literal, error)
}

// Numeric is the constraint satisfied by descriptors with arithmetic.
type Numeric interface {
	I8 | I16 | I32 | I64 | U8 | U16 | U32 | U64 | F32 | F64
	Type
	floating() bool
}

type (
	Void struct{}
	Bool bool
	I8   int8
	I16  int16
	I32  int32
	I64  int64
	U8   uint8
	U16  uint16
	U32  uint32
	U64  uint64
	F32  float32
	F64  float64
)

// SupportedTypes lists one zero descriptor per supported type.
func SupportedTypes() []Type {
	return []Type{Void{}, Bool(false), I8(0), I16(0), I32(0), I64(0), U8(0), U16(0), U32(0), U64(0), F32(0), F64(0)}
}

// LookupType resolves a canonical name such as "i32".
func LookupType(name string) (Type, bool) {
	for _, t := range SupportedTypes() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

func basic(name string, bits uint64, enc enum.DwarfAttEncoding) debuginfo.Basic {
	return debuginfo.Basic{Name: name, SizeBits: bits, Align: bits, Encoding: enc}
}

func (Void) IRType() types.Type          { return types.Void }
func (Void) DebugBasic() debuginfo.Basic { return debuginfo.Basic{} }
func (Void) Name() string                { return "void" }
func (Void) Alignment() int              { return 0 }
func (Void) descriptor()                 {}

func (Bool) IRType() types.Type { return types.I1 }
func (Bool) DebugBasic() debuginfo.Basic {
	return basic("bool", 8, enum.DwarfAttEncodingBoolean)
}
func (Bool) Name() string   { return "bool" }
func (Bool) Alignment() int { return 1 }
func (Bool) descriptor()    {}
func (v Bool) irConstant() constant.Constant {
	return constant.NewBool(bool(v))
}
func (v Bool) render() string { return strconv.FormatBool(bool(v)) }
func (Bool) parseLiteral(s string) (literal, error) {
	b, err := strconv.ParseBool(s)
	return Bool(b), err
}

func (I8) IRType() types.Type              { return types.I8 }
func (I8) DebugBasic() debuginfo.Basic     { return basic("i8", 8, enum.DwarfAttEncodingSigned) }
func (I8) Name() string                    { return "i8" }
func (I8) Alignment() int                  { return 1 }
func (I8) descriptor()                     {}
func (I8) floating() bool                  { return false }
func (v I8) irConstant() constant.Constant { return constant.NewInt(types.I8, int64(v)) }
func (v I8) render() string                { return strconv.FormatInt(int64(v), 10) }
func (I8) parseLiteral(s string) (literal, error) {
	n, err := strconv.ParseInt(s, 0, 8)
	return I8(n), err
}

func (I16) IRType() types.Type              { return types.I16 }
func (I16) DebugBasic() debuginfo.Basic     { return basic("i16", 16, enum.DwarfAttEncodingSigned) }
func (I16) Name() string                    { return "i16" }
func (I16) Alignment() int                  { return 2 }
func (I16) descriptor()                     {}
func (I16) floating() bool                  { return false }
func (v I16) irConstant() constant.Constant { return constant.NewInt(types.I16, int64(v)) }
func (v I16) render() string                { return strconv.FormatInt(int64(v), 10) }
func (I16) parseLiteral(s string) (literal, error) {
	n, err := strconv.ParseInt(s, 0, 16)
	return I16(n), err
}

func (I32) IRType() types.Type              { return types.I32 }
func (I32) DebugBasic() debuginfo.Basic     { return basic("i32", 32, enum.DwarfAttEncodingSigned) }
func (I32) Name() string                    { return "i32" }
func (I32) Alignment() int                  { return 4 }
func (I32) descriptor()                     {}
func (I32) floating() bool                  { return false }
func (v I32) irConstant() constant.Constant { return constant.NewInt(types.I32, int64(v)) }
func (v I32) render() string                { return strconv.FormatInt(int64(v), 10) }
func (I32) parseLiteral(s string) (literal, error) {
	n, err := strconv.ParseInt(s, 0, 32)
	return I32(n), err
}

func (I64) IRType() types.Type              { return types.I64 }
func (I64) DebugBasic() debuginfo.Basic     { return basic("i64", 64, enum.DwarfAttEncodingSigned) }
func (I64) Name() string                    { return "i64" }
func (I64) Alignment() int                  { return 8 }
func (I64) descriptor()                     {}
func (I64) floating() bool                  { return false }
func (v I64) irConstant() constant.Constant { return constant.NewInt(types.I64, int64(v)) }
func (v I64) render() string                { return strconv.FormatInt(int64(v), 10) }
func (I64) parseLiteral(s string) (literal, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	return I64(n), err
}

func (U8) IRType() types.Type              { return types.I8 }
func (U8) DebugBasic() debuginfo.Basic     { return basic("u8", 8, enum.DwarfAttEncodingUnsigned) }
func (U8) Name() string                    { return "u8" }
func (U8) Alignment() int                  { return 1 }
func (U8) descriptor()                     {}
func (U8) floating() bool                  { return false }
func (v U8) irConstant() constant.Constant { return constant.NewInt(types.I8, int64(v)) }
func (v U8) render() string                { return strconv.FormatUint(uint64(v), 10) }
func (U8) parseLiteral(s string) (literal, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	return U8(n), err
}

func (U16) IRType() types.Type              { return types.I16 }
func (U16) DebugBasic() debuginfo.Basic     { return basic("u16", 16, enum.DwarfAttEncodingUnsigned) }
func (U16) Name() string                    { return "u16" }
func (U16) Alignment() int                  { return 2 }
func (U16) descriptor()                     {}
func (U16) floating() bool                  { return false }
func (v U16) irConstant() constant.Constant { return constant.NewInt(types.I16, int64(v)) }
func (v U16) render() string                { return strconv.FormatUint(uint64(v), 10) }
func (U16) parseLiteral(s string) (literal, error) {
	n, err := strconv.ParseUint(s, 0, 16)
	return U16(n), err
}

func (U32) IRType() types.Type              { return types.I32 }
func (U32) DebugBasic() debuginfo.Basic     { return basic("u32", 32, enum.DwarfAttEncodingUnsigned) }
func (U32) Name() string                    { return "u32" }
func (U32) Alignment() int                  { return 4 }
func (U32) descriptor()                     {}
func (U32) floating() bool                  { return false }
func (v U32) irConstant() constant.Constant { return constant.NewInt(types.I32, int64(v)) }
func (v U32) render() string                { return strconv.FormatUint(uint64(v), 10) }
func (U32) parseLiteral(s string) (literal, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	return U32(n), err
}

func (U64) IRType() types.Type          { return types.I64 }
func (U64) DebugBasic() debuginfo.Basic { return basic("u64", 64, enum.DwarfAttEncodingUnsigned) }
func (U64) Name() string                { return "u64" }
func (U64) Alignment() int              { return 8 }
func (U64) descriptor()                 {}
func (U64) floating() bool              { return false }

// IR integers are sign-agnostic; values above MaxInt64 keep their bit pattern.
func (v U64) irConstant() constant.Constant { return constant.NewInt(types.I64, int64(v)) }
func (v U64) render() string                { return strconv.FormatUint(uint64(v), 10) }
func (U64) parseLiteral(s string) (literal, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	return U64(n), err
}

func (F32) IRType() types.Type          { return types.Float }
func (F32) DebugBasic() debuginfo.Basic { return basic("f32", 32, enum.DwarfAttEncodingFloat) }
func (F32) Name() string                { return "f32" }
func (F32) Alignment() int              { return 4 }
func (F32) descriptor()                 {}
func (F32) floating() bool              { return true }
func (v F32) irConstant() constant.Constant {
	return constant.NewFloat(types.Float, float64(v))
}
func (v F32) render() string { return renderFloat(float64(v), 32) }
func (F32) parseLiteral(s string) (literal, error) {
	f, err := strconv.ParseFloat(s, 32)
	return F32(f), err
}

func (F64) IRType() types.Type          { return types.Double }
func (F64) DebugBasic() debuginfo.Basic { return basic("f64", 64, enum.DwarfAttEncodingFloat) }
func (F64) Name() string                { return "f64" }
func (F64) Alignment() int              { return 8 }
func (F64) descriptor()                 {}
func (F64) floating() bool              { return true }
func (v F64) irConstant() constant.Constant {
	return constant.NewFloat(types.Double, float64(v))
}
func (v F64) render() string { return renderFloat(float64(v), 64) }
func (F64) parseLiteral(s string) (literal, error) {
	f, err := strconv.ParseFloat(s, 64)
	return F64(f), err
}

// renderFloat keeps a decimal point so 2.0 does not read as an integer.
func renderFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if strings.ContainsAny(s, ".eN") || strings.Contains(s, "Inf") {
		return s
	}
	return s + ".0"
}
