package vm_test

import (
	"bytes"
	"testing"

	"bcvm/internal/asm"
	"bcvm/internal/vm"
)

func assembleAndRun(t *testing.T, src string) *vm.ExecError {
	t.Helper()
	prog := vm.NewProgram()
	var out bytes.Buffer
	prog.Out = &out
	a := asm.New(prog)
	a.Func("main", 0, nil)
	if err := a.Assemble(src); err != nil {
		t.Fatalf("assemble: %v\nsource:\n%s", err, src)
	}
	return prog.Run()
}

func TestErrorDivideByZero(t *testing.T) {
	err := assembleAndRun(t, `
PUSH_NUM 1
PUSH_NUM 0
DIVIDE
PRINT
HALT
`)
	if err == nil || err.Kind != vm.KindDivideByZero {
		t.Fatalf("1/0: got %v, want KindDivideByZero", err)
	}
}

func TestErrorArrayIndexExceedsDimMax(t *testing.T) {
	err := assembleAndRun(t, `
PUSH_NUM 65536
PUSH_ARRAY a
PUSH_NUM 1
ASSIGN
POP
HALT
`)
	if err == nil || err.Kind != vm.KindArrayLen {
		t.Fatalf("a[65536]=1: got %v, want KindArrayLen", err)
	}
}

func TestErrorBadIBase(t *testing.T) {
	err := assembleAndRun(t, `
PUSH_IBASE
PUSH_NUM 1
ASSIGN
POP
HALT
`)
	if err == nil || err.Kind != vm.KindBadIBase {
		t.Fatalf("ibase=1: got %v, want KindBadIBase", err)
	}
}

func TestErrorUndefinedFunction(t *testing.T) {
	err := assembleAndRun(t, `
CALL 0 nosuchfunction
PRINT
HALT
`)
	if err == nil || err.Kind != vm.KindUndefinedFunc {
		t.Fatalf("call to undeclared function: got %v, want KindUndefinedFunc", err)
	}
}

func TestErrorBadOBase(t *testing.T) {
	err := assembleAndRun(t, `
PUSH_OBASE
PUSH_NUM 1
ASSIGN
POP
HALT
`)
	if err == nil || err.Kind != vm.KindBadOBase {
		t.Fatalf("obase=1: got %v, want KindBadOBase", err)
	}
}

func TestErrorMismatchedParams(t *testing.T) {
	prog := vm.NewProgram()
	var out bytes.Buffer
	prog.Out = &out
	a := asm.New(prog)
	a.Func("f", 1, nil)
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
	if err := prog.Run(); err == nil || err.Kind != vm.KindMismatchedParams {
		t.Fatalf("arity mismatch: got %v, want KindMismatchedParams", err)
	}
}

func TestErrorBadAssignToConstant(t *testing.T) {
	err := assembleAndRun(t, `
PUSH_NUM 1
PUSH_NUM 2
ASSIGN
POP
HALT
`)
	if err == nil || err.Kind != vm.KindBadAssign {
		t.Fatalf("assigning to a constant: got %v, want KindBadAssign", err)
	}
}
