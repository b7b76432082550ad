// Package codegen builds LLVM IR functions together with a rendered
// pseudo-source listing and the debug metadata that ties the two.
//
// Every statement is emitted in one step: its text line is appended, the
// line number it received becomes the current debug location, and only
// then are the instructions for it created. The IR, the text, and the
// !dbg line table therefore agree by construction.
//
//	m := codegen.NewModule("arith", codegen.Options{})
//	_, err := codegen.Function2[codegen.I32, codegen.I32, codegen.I32](m, "add",
//		func(a, b codegen.Value[codegen.I32]) error {
//			codegen.Return[codegen.I32](codegen.Add[codegen.I32](a, b))
//			return nil
//		})
//	art, err := m.Finalize()
//
// renders
//
//	i32 add(i32 arg0, i32 arg1) {
//	    return (arg0 + arg1);
//	}
//
// with the add and ret instructions both stamped with line 2.
//
// Statement emitters (Return, ReturnVoid, Let) find the function under
// construction through a goroutine-scoped slot, so they are only valid
// inside a body callback. A Module is built by one goroutine at a time;
// distinct modules may be built concurrently.
package codegen
