package vm_test

import (
	"bytes"
	"testing"

	"bcvm/internal/asm"
	"bcvm/internal/bytecode"
	"bcvm/internal/vm"
)

// newRun returns a fresh program whose output goes to the returned
// buffer, plus an assembler targeting it. Each scenario starts its
// functions with Func, fills them with Assemble, then calls Run.
func newRun(t *testing.T) (*vm.Program, *asm.Assembler, *bytes.Buffer) {
	t.Helper()
	prog := vm.NewProgram()
	var out bytes.Buffer
	prog.Out = &out
	a := asm.New(prog)
	return prog, a, &out
}

func mustAssemble(t *testing.T, a *asm.Assembler, src string) {
	t.Helper()
	if err := a.Assemble(src); err != nil {
		t.Fatalf("assemble: %v\nsource:\n%s", err, src)
	}
}

// Scenario 1: scale=4; 22/7 -> 3.1428\n
func TestScenarioScaleAffectsDivide(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_SCALE
PUSH_NUM 4
ASSIGN
POP
PUSH_NUM 22
PUSH_NUM 7
DIVIDE
PRINT
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "3.1428\n" {
		t.Errorf("got %q, want %q", got, "3.1428\n")
	}
}

// Scenario 2: ibase=A; ibase=16; FF -> 255\n (single-letter literal
// bypasses the current ibase, but "FF" is two characters so the
// prevailing ibase=16 applies directly).
func TestScenarioIBaseSwitch(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_IBASE
PUSH_NUM A
ASSIGN
POP
PUSH_IBASE
PUSH_NUM 16
ASSIGN
POP
PUSH_NUM FF
PRINT
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "255\n" {
		t.Errorf("got %q, want %q", got, "255\n")
	}
}

// Scenario 3: define f(x) { return (x*x); } f(12) -> 144\n
func TestScenarioFunctionCall(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("f", 1, []bytecode.AutoDesc{{Name: "x", IsScalar: true}})
	mustAssemble(t, a, `
PUSH_VAR x
PUSH_VAR x
MULTIPLY
RETURN
`)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_NUM 12
CALL 1 f
PRINT
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "144\n" {
		t.Errorf("got %q, want %q", got, "144\n")
	}
}

// Scenario 4: define g(*a[]) { return (a[3]); } a[3]=7; g(a[]) -> 7\n
// (arrays pass by value; the callee's mutation-free read doesn't
// disturb the caller's array).
func TestScenarioArrayPassByValue(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("g", 1, []bytecode.AutoDesc{{Name: "a", IsScalar: false}})
	mustAssemble(t, a, `
PUSH_NUM 3
PUSH_ARRAY a
RETURN
`)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_NUM 3
PUSH_ARRAY a
PUSH_NUM 7
ASSIGN
POP
PUSH_VAR a
CALL 1 g
PRINT
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "7\n" {
		t.Errorf("got %q, want %q", got, "7\n")
	}
}

// Scenario 5: i=0; while (i<3) { i; i=i+1 } -> 0\n1\n2\n
func TestScenarioWhileLoop(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_VAR i
PUSH_NUM 0
ASSIGN
POP
LABEL loop_start
PUSH_VAR i
PUSH_NUM 3
LESS
JUMP_ZERO loop_end
PUSH_VAR i
PRINT
PUSH_VAR i
PUSH_VAR i
PUSH_NUM 1
PLUS
ASSIGN
POP
JUMP loop_start
LABEL loop_end
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "0\n1\n2\n" {
		t.Errorf("got %q, want %q", got, "0\n1\n2\n")
	}
}

// Scenario 6: a=5; b=a++; a; b -> 6\n5\n (post-increment yields the
// pre-value and still raises a by one).
func TestScenarioPostIncrement(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_VAR a
PUSH_NUM 5
ASSIGN
POP
PUSH_VAR b
PUSH_VAR a
INC_POST
ASSIGN
POP
PUSH_VAR a
PRINT
PUSH_VAR b
PRINT
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "6\n5\n" {
		t.Errorf("got %q, want %q", got, "6\n5\n")
	}
}

// Redefinition law: existing compiled call sites encode callees by
// stable index, so redefining a function mid-session changes what
// those call sites invoke next time they run.
func TestFunctionRedefinitionAffectsExistingCallers(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("f", 0, nil)
	mustAssemble(t, a, `
PUSH_NUM 1
RETURN
`)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
CALL 0 f
PRINT
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("first run: %v", err)
	}
	if got := out.String(); got != "1\n" {
		t.Fatalf("first call: got %q, want %q", got, "1\n")
	}

	// Redefine f in place, then rewind main so its existing, unchanged
	// CALL site runs again and reaches the new body by the same index.
	a.Func("f", 0, nil)
	mustAssemble(t, a, `
PUSH_NUM 2
RETURN
`)
	prog.Frames[0].IP = 0
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("second run: %v", err)
	}
	if got := out.String(); got != "1\n2\n" {
		t.Fatalf("after redefinition: got %q, want %q", got, "1\n2\n")
	}
}
