package codegen

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"weave/internal/active"
	"weave/internal/debuginfo"
)

func finalize(t *testing.T, m *Module) *Artifact {
	t.Helper()
	art, err := m.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return art
}

func stampedLine(t *testing.T, v any) int {
	t.Helper()
	loc, ok := debuginfo.LocationOf(v)
	if !ok {
		t.Fatalf("%T has no debug location", v)
	}
	return int(loc.Line)
}

func TestAddScenario(t *testing.T) {
	m := NewModule("arith", Options{})
	ref, err := Function2[I32, I32, I32](m, "add", func(a, b Value[I32]) error {
		Return[I32](a)
		return nil
	})
	if err != nil {
		t.Fatalf("Function2: %v", err)
	}

	want := "i32 add(i32 arg0, i32 arg1) {\n    return arg0;\n}\n"
	if got := m.String(); got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
	if ref.Name != "add" || ref.Line != 1 {
		t.Fatalf("ref = %+v", ref)
	}
	if got := stampedLine(t, ref.Func.Blocks[0].Term); got != 2 {
		t.Fatalf("ret stamped at line %d, want 2", got)
	}
	if len(ref.Func.Params) != 2 || ref.Func.Params[0].Name() != "arg0" || ref.Func.Params[1].Name() != "arg1" {
		t.Fatalf("params = %v", ref.Func.Params)
	}

	art := finalize(t, m)
	if art.Source != want {
		t.Fatalf("artifact source = %q", art.Source)
	}
	if art.SourcePath != "arith.weave" {
		t.Fatalf("source path = %q", art.SourcePath)
	}
	ll := art.IR()
	for _, frag := range []string{"@add(i32 %arg0, i32 %arg1)", "ret i32 %arg0", "llvm.dbg.cu", "arith.weave"} {
		if !strings.Contains(ll, frag) {
			t.Errorf("IR lacks %q:\n%s", frag, ll)
		}
	}
	if len(art.Lines.Entries) != 1 || art.Lines.Entries[0] != (LineEntry{Function: "add", Line: 2, Opcode: "ret"}) {
		t.Fatalf("line table = %+v", art.Lines.Entries)
	}
}

func TestConstant(t *testing.T) {
	five := Constant(I32(5))
	if five.String() != "5" {
		t.Fatalf("String = %q", five.String())
	}
	c, ok := five.Native().(*constant.Int)
	if !ok {
		t.Fatalf("Native = %T", five.Native())
	}
	if !c.Typ.Equal(types.I32) || c.X.Int64() != 5 {
		t.Fatalf("constant = %v", c)
	}
	if five.Type().Name() != "i32" || five.Type().DebugBasic().SizeBits != 32 {
		t.Fatalf("descriptor = %+v", five.Type().DebugBasic())
	}

	cases := []struct {
		name string
		v    fmt.Stringer
		want string
	}{
		{"bool", Constant(Bool(true)), "true"},
		{"i8", Constant(I8(-3)), "-3"},
		{"u8", Constant(U8(255)), "255"},
		{"u64", Constant(U64(1 << 63)), "9223372036854775808"},
		{"f64 integral", Constant(F64(2)), "2.0"},
		{"f32", Constant(F32(0.5)), "0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.String(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSupportedTypes(t *testing.T) {
	var names []string
	for _, typ := range SupportedTypes() {
		names = append(names, typ.Name())
		got, ok := LookupType(typ.Name())
		if !ok || got.Name() != typ.Name() {
			t.Errorf("LookupType(%q) = %v, %v", typ.Name(), got, ok)
		}
	}
	want := "void bool i8 i16 i32 i64 u8 u16 u32 u64 f32 f64"
	if got := strings.Join(names, " "); got != want {
		t.Fatalf("names = %q, want %q", got, want)
	}
	if _, ok := LookupType("i128"); ok {
		t.Fatal("i128 should be unknown")
	}
	if !(Void{}).DebugBasic().IsZero() {
		t.Fatal("void has no debug type")
	}
}

func TestSignatureForms(t *testing.T) {
	m := NewModule("sigs", Options{})
	cases := []struct {
		want  string
		build func() (FunctionRef, error)
	}{
		{"void f0() {", func() (FunctionRef, error) {
			return Function0[Void](m, "f0", func() error { return nil })
		}},
		{"i64 f1(bool arg0) {", func() (FunctionRef, error) {
			return Function1[I64, Bool](m, "f1", func(Value[Bool]) error {
				Return[I64](Constant(I64(1)))
				return nil
			})
		}},
		{"f64 f3(f64 arg0, i32 arg1, u16 arg2) {", func() (FunctionRef, error) {
			return Function3[F64, F64, I32, U16](m, "f3", func(a Value[F64], _ Value[I32], _ Value[U16]) error {
				Return[F64](a)
				return nil
			})
		}},
		{"void f4(i8 arg0, i16 arg1, u32 arg2, u64 arg3) {", func() (FunctionRef, error) {
			return Function4[Void, I8, I16, U32, U64](m, "f4", func(Value[I8], Value[I16], Value[U32], Value[U64]) error {
				ReturnVoid()
				return nil
			})
		}},
	}
	for _, tc := range cases {
		ref, err := tc.build()
		if err != nil {
			t.Fatalf("%s: %v", tc.want, err)
		}
		line, ok := m.src.Line(ref.Line)
		if !ok || line != tc.want {
			t.Errorf("signature = %q, want %q", line, tc.want)
		}
	}
	if m.src.Depth() != 0 {
		t.Fatalf("depth = %d after builds", m.src.Depth())
	}
	finalize(t, m)
}

func TestEmptyVoidBody(t *testing.T) {
	m := NewModule("empty", Options{})
	ref, err := Function0[Void](m, "noop", func() error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	if got := m.String(); got != "void noop() {\n}\n" {
		t.Fatalf("text = %q", got)
	}
	term, ok := ref.Func.Blocks[0].Term.(*ir.TermRet)
	if !ok || term.X != nil {
		t.Fatalf("terminator = %v, want ret void", ref.Func.Blocks[0].Term)
	}
	if got := stampedLine(t, term); got != 2 {
		t.Fatalf("implicit ret at line %d, want the closing brace line 2", got)
	}
	finalize(t, m)
}

func TestStatementLinesMatchStamps(t *testing.T) {
	m := NewModule("lines", Options{})
	if _, err := Function0[I32](m, "seven", func() error {
		Return[I32](Constant(I32(7)))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	ref, err := Function2[I32, I32, I32](m, "poly", func(a, b Value[I32]) error {
		s := Let[I32](Add[I32](a, b))
		d := Let[I32](Sub[I32](a, b))
		p := Let[I32](Mul[I32](s, d))
		c := Let[I32](Constant(I32(3)))
		Return[I32](Add[I32](p, c))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	header := ref.Line
	if header != 4 {
		t.Fatalf("second function starts at line %d, want 4", header)
	}
	wantBody := []string{
		"    i32 v0 = (arg0 + arg1);",
		"    i32 v1 = (arg0 - arg1);",
		"    i32 v2 = (v0 * v1);",
		"    i32 v3 = 3;",
		"    return (v2 + v3);",
	}
	for k, want := range wantBody {
		got, _ := m.src.Line(header + k + 1)
		if got != want {
			t.Errorf("line %d = %q, want %q", header+k+1, got, want)
		}
	}

	art := finalize(t, m)
	var got []string
	for _, e := range art.Lines.Entries {
		if e.Function == "poly" {
			got = append(got, fmt.Sprintf("%d:%s", e.Line, e.Opcode))
		}
	}
	// statement k is on header+k; the constant let emits nothing.
	want := "5:add 6:sub 7:mul 9:add 9:ret"
	if strings.Join(got, " ") != want {
		t.Fatalf("stamps = %q, want %q", strings.Join(got, " "), want)
	}
	if !strings.Contains(art.IR(), "%v0 = add i32 %arg0, %arg1") {
		t.Errorf("let result not named v0:\n%s", art.IR())
	}
	if e := art.Lines.ForLine(9); len(e) != 2 {
		t.Errorf("ForLine(9) = %v", e)
	}
}

func TestFloatArithmetic(t *testing.T) {
	m := NewModule("float", Options{})
	_, err := Function1[F64, F64](m, "sq", func(x Value[F64]) error {
		Return[F64](Mul[F64](x, x))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	art := finalize(t, m)
	ops := make([]string, 0, 2)
	for _, e := range art.Lines.Entries {
		ops = append(ops, e.Opcode)
	}
	if strings.Join(ops, ",") != "fmul,ret" {
		t.Fatalf("opcodes = %v", ops)
	}
}

func TestNestedBuildOnSameModule(t *testing.T) {
	m := NewModule("nest", Options{})
	var inner FunctionRef
	outer, err := Function0[Void](m, "outer", func() error {
		var err error
		inner, err = Function0[I32](m, "inner", func() error {
			Return[I32](Constant(I32(7)))
			return nil
		})
		if err != nil {
			return err
		}
		if cur, ok := Building(); !ok || cur != m {
			t.Error("slot must still hold the module after the nested build")
		}
		ReturnVoid()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "void outer() {\n    i32 inner() {\n        return 7;\n    }\n    return;\n}\n"
	if got := m.String(); got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
	if got := stampedLine(t, inner.Func.Blocks[0].Term); got != 3 {
		t.Errorf("inner ret at %d, want 3", got)
	}
	if got := stampedLine(t, outer.Func.Blocks[0].Term); got != 5 {
		t.Errorf("outer ret at %d, want 5", got)
	}
	if _, ok := Building(); ok {
		t.Fatal("slot must be empty after the outermost build")
	}
	if len(m.Functions()) != 2 || m.Functions()[0].Name != "inner" {
		t.Fatalf("functions = %+v", m.Functions())
	}
	finalize(t, m)
}

func TestDifferentModulePanics(t *testing.T) {
	m1 := NewModule("m1", Options{})
	m2 := NewModule("m2", Options{})

	var conflict *active.Conflict
	func() {
		defer func() {
			conflict, _ = recover().(*active.Conflict)
		}()
		_, _ = Function0[Void](m1, "f", func() error {
			_, _ = Function0[Void](m2, "g", func() error { return nil })
			return nil
		})
	}()
	if conflict == nil || conflict.Held != "m1" || conflict.Wanted != "m2" {
		t.Fatalf("conflict = %+v", conflict)
	}
	if _, ok := Building(); ok {
		t.Fatal("slot left bound after the fatal conflict")
	}
	if m1.src.Depth() != 0 {
		t.Fatalf("m1 depth = %d", m1.src.Depth())
	}
	if !errors.Is(m1.Err(), ErrBuildFailed) {
		t.Fatalf("m1.Err() = %v", m1.Err())
	}
	if _, err := Function0[Void](m2, "g", func() error { return nil }); err != nil {
		t.Fatalf("m2 must be untouched: %v", err)
	}
}

func TestBodyFailurePoisons(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name    string
		body    func() error
		wantErr string
		text    string
	}{
		{
			name:    "returned error",
			body:    func() error { return boom },
			wantErr: "boom",
			text:    "i32 f() {\n",
		},
		{
			name:    "panic",
			body:    func() error { panic("kaboom") },
			wantErr: "panic: kaboom",
			text:    "i32 f() {\n",
		},
		{
			name: "statement after return",
			body: func() error {
				Return[I32](Constant(I32(1)))
				Return[I32](Constant(I32(2)))
				return nil
			},
			wantErr: "terminated",
			text:    "i32 f() {\n    return 1;\n",
		},
		{
			name:    "missing return",
			body:    func() error { return nil },
			wantErr: "ends without returning i32",
			text:    "i32 f() {\n}\n",
		},
		{
			name: "void return in i32 function",
			body: func() error {
				ReturnVoid()
				return nil
			},
			wantErr: "ReturnVoid needs a void function",
			text:    "i32 f() {\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModule("p", Options{})
			_, err := Function0[I32](m, "f", tc.body)
			var berr *BuildError
			if !errors.As(err, &berr) || berr.Func != "f" {
				t.Fatalf("err = %v, want *BuildError for f", err)
			}
			if !errors.Is(err, ErrBuildFailed) || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want ErrBuildFailed mentioning %q", err, tc.wantErr)
			}
			if got := m.String(); got != tc.text {
				t.Fatalf("text = %q, want %q", got, tc.text)
			}
			if m.src.Depth() != 0 {
				t.Fatalf("depth = %d", m.src.Depth())
			}
			if _, ok := Building(); ok {
				t.Fatal("slot left bound")
			}
			if _, err := Function0[Void](m, "g", func() error { return nil }); !errors.Is(err, ErrPoisoned) {
				t.Fatalf("build after failure = %v, want ErrPoisoned", err)
			}
			if _, err := m.Finalize(); !errors.Is(err, ErrPoisoned) {
				t.Fatalf("Finalize after failure = %v, want ErrPoisoned", err)
			}
		})
	}
}

func TestSwallowedNestedFailureFailsOuter(t *testing.T) {
	m := NewModule("swallow", Options{})
	_, err := Function0[Void](m, "outer", func() error {
		_, _ = Function0[Void](m, "inner", func() error { return errors.New("inner broke") })
		return nil
	})
	if !errors.Is(err, ErrBuildFailed) || !strings.Contains(err.Error(), "inner broke") {
		t.Fatalf("err = %v", err)
	}
}

func TestForeignOperandFailsBuild(t *testing.T) {
	i32, _ := LookupType("i32")
	cases := []struct {
		name    string
		build   func(m *Module) error
		wantErr string
	}{
		{
			name: "outer argument in nested body",
			build: func(m *Module) error {
				_, err := Function1[I32, I32](m, "outer", func(x Value[I32]) error {
					if _, err := Function0[I32](m, "inner", func() error {
						Return[I32](x)
						return nil
					}); err != nil {
						return err
					}
					Return[I32](x)
					return nil
				})
				return err
			},
			wantErr: "inner: operand arg0 belongs to function outer",
		},
		{
			name: "outer let in nested expression",
			build: func(m *Module) error {
				_, err := Function1[I32, I32](m, "outer", func(x Value[I32]) error {
					v := Let[I32](Add[I32](x, Constant(I32(1))))
					if _, err := Function0[I32](m, "inner", func() error {
						Return[I32](Add[I32](Constant(I32(2)), v))
						return nil
					}); err != nil {
						return err
					}
					Return[I32](v)
					return nil
				})
				return err
			},
			wantErr: "inner: operand v0 belongs to function outer",
		},
		{
			name: "dynamic outer argument",
			build: func(m *Module) error {
				_, err := m.BuildFunc("outer", i32, []Type{i32}, func(args []Dyn) error {
					if _, err := m.BuildFunc("inner", i32, nil, func([]Dyn) error {
						DynReturn(args[0])
						return nil
					}); err != nil {
						return err
					}
					DynReturn(args[0])
					return nil
				})
				return err
			},
			wantErr: "inner: operand arg0 belongs to function outer",
		},
		{
			name: "argument of a finished function",
			build: func(m *Module) error {
				var leaked Value[I32]
				if _, err := Function1[I32, I32](m, "first", func(x Value[I32]) error {
					leaked = x
					Return[I32](x)
					return nil
				}); err != nil {
					return err
				}
				_, err := Function0[I32](m, "second", func() error {
					Return[I32](leaked)
					return nil
				})
				return err
			},
			wantErr: "second: operand arg0 belongs to function first",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModule("foreign", Options{})
			err := tc.build(m)
			if !errors.Is(err, ErrBuildFailed) || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want ErrBuildFailed mentioning %q", err, tc.wantErr)
			}
			if _, err := m.Finalize(); !errors.Is(err, ErrPoisoned) {
				t.Fatalf("Finalize = %v, want ErrPoisoned", err)
			}
		})
	}
}

func TestValueFromAnotherModuleFailsBuild(t *testing.T) {
	src := NewModule("src", Options{})
	var leaked Value[I32]
	if _, err := Function1[I32, I32](src, "f", func(x Value[I32]) error {
		leaked = x
		Return[I32](x)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	dst := NewModule("dst", Options{})
	_, err := Function0[I32](dst, "g", func() error {
		Return[I32](leaked)
		return nil
	})
	if !errors.Is(err, ErrBuildFailed) || !strings.Contains(err.Error(), "operand arg0 belongs to function f") {
		t.Fatalf("err = %v", err)
	}
	finalize(t, src)
}

func TestLetOfConstantStaysLocal(t *testing.T) {
	m := NewModule("shared", Options{})
	_, err := Function0[I32](m, "outer", func() error {
		k := Let[I32](Constant(I32(3)))
		if _, err := Function0[I32](m, "inner", func() error {
			Return[I32](Add[I32](k, Constant(I32(1))))
			return nil
		}); err != nil {
			return err
		}
		Return[I32](k)
		return nil
	})
	if !errors.Is(err, ErrBuildFailed) || !strings.Contains(err.Error(), "operand v0 belongs to function outer") {
		t.Fatalf("err = %v", err)
	}
}

func TestStatementOutsideBodyPanics(t *testing.T) {
	defer func() {
		r := recover()
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "outside a function body") {
			t.Fatalf("recover = %v", r)
		}
	}()
	ReturnVoid()
}

func TestDuplicateFunction(t *testing.T) {
	m := NewModule("dup", Options{})
	body := func() error { return nil }
	if _, err := Function0[Void](m, "f", body); err != nil {
		t.Fatal(err)
	}
	if _, err := Function0[Void](m, "f", body); !errors.Is(err, ErrDuplicateFunction) {
		t.Fatalf("err = %v, want ErrDuplicateFunction", err)
	}
	if m.Err() != nil {
		t.Fatal("a rejected name must not poison the module")
	}
	if _, err := Function0[Void](m, "bad name", body); err == nil {
		t.Fatal("name with a space accepted")
	}
}

func TestFinalizeIsSingleUse(t *testing.T) {
	m := NewModule("once", Options{SourcePath: "gen/once.src", Producer: "weave test"})
	if _, err := Function0[Void](m, "f", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	first, second := m.String(), m.String()
	if first != second || first == "" {
		t.Fatalf("String not idempotent: %q vs %q", first, second)
	}

	art := finalize(t, m)
	if art.SourcePath != "gen/once.src" || !strings.Contains(art.IR(), "weave test") {
		t.Fatalf("artifact = %+v", art)
	}
	if !strings.Contains(art.IR(), `!{i32 2, !"Debug Info Version", i32 3}`) || strings.Contains(art.IR(), "metadata i32") {
		t.Fatalf("module flags not in assembler form:\n%s", art.IR())
	}
	if m.String() != "" {
		t.Fatalf("String after Finalize = %q", m.String())
	}
	if _, err := m.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Fatalf("second Finalize = %v", err)
	}
	if _, err := Function0[Void](m, "g", func() error { return nil }); !errors.Is(err, ErrFinalized) {
		t.Fatalf("build after Finalize = %v", err)
	}
}

func TestFailedFinalizePoisons(t *testing.T) {
	m := NewModule("broken", Options{})
	ref, err := Function0[I32](m, "f", func() error {
		Return[I32](Constant(I32(1)))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	entry := ref.Func.Blocks[0]
	entry.Insts = append(entry.Insts, ir.NewAdd(constant.NewInt(types.I32, 1), constant.NewInt(types.I32, 2)))

	if _, err := m.Finalize(); !errors.Is(err, ErrInvalidDebugInfo) {
		t.Fatalf("Finalize = %v, want ErrInvalidDebugInfo", err)
	}
	if m.Err() == nil {
		t.Fatal("failed Finalize must poison the module")
	}
	if _, err := m.Finalize(); !errors.Is(err, ErrPoisoned) {
		t.Fatalf("second Finalize = %v, want ErrPoisoned", err)
	}
}

func TestFinalizeInsideBody(t *testing.T) {
	m := NewModule("inside", Options{})
	_, err := Function0[Void](m, "f", func() error {
		if _, err := m.Finalize(); err == nil {
			t.Error("Finalize inside a body succeeded")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	finalize(t, m)
}

func TestDynamicBuild(t *testing.T) {
	i32, _ := LookupType("i32")
	m := NewModule("dyn", Options{})
	_, err := m.BuildFunc("scale", i32, []Type{i32}, func(args []Dyn) error {
		k, err := DynConstant(i32, "0x10")
		if err != nil {
			return err
		}
		prod, err := DynBinary(OpMul, args[0], k)
		if err != nil {
			return err
		}
		DynReturn(DynLet(prod))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "i32 scale(i32 arg0) {\n    i32 v0 = (arg0 * 16);\n    return v0;\n}\n"
	if got := m.String(); got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}

	i64, _ := LookupType("i64")
	if _, err := DynBinary(OpAdd, Dynamic[I32](Constant(I32(1))), Dynamic[I64](Constant(I64(1)))); err == nil {
		t.Error("mixed operand types accepted")
	}
	if _, err := DynConstant(Void{}, "1"); err == nil {
		t.Error("void literal accepted")
	}
	if _, err := DynConstant(i64, "nope"); err == nil {
		t.Error("malformed literal accepted")
	}
	if _, err := m.BuildFunc("v", i32, []Type{Void{}}, nil); err == nil {
		t.Error("void parameter accepted")
	}

	_, err = m.BuildFunc("wrong", i32, nil, func([]Dyn) error {
		c, _ := DynConstant(i64, "1")
		DynReturn(c)
		return nil
	})
	if !errors.Is(err, ErrBuildFailed) || !strings.Contains(err.Error(), "returns i32, got i64") {
		t.Fatalf("err = %v", err)
	}
}

func TestConcurrentModules(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := NewModule(fmt.Sprintf("m%d", i), Options{})
			_, err := Function1[I32, I32](m, "inc", func(x Value[I32]) error {
				Return[I32](Add[I32](x, Constant(I32(1))))
				return nil
			})
			if err == nil {
				_, err = m.Finalize()
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}
