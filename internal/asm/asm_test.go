package asm_test

import (
	"strings"
	"testing"

	"bcvm/internal/asm"
	"bcvm/internal/vm"
)

func TestAssembleRejectsUnknownMnemonic(t *testing.T) {
	prog := vm.NewProgram()
	a := asm.New(prog)
	a.Func("main", 0, nil)
	err := a.Assemble("NOT_A_REAL_OPCODE\n")
	if err == nil {
		t.Fatal("expected an error for an unknown mnemonic")
	}
	if !strings.Contains(err.Error(), "unknown mnemonic") {
		t.Errorf("error = %v, want it to mention the unknown mnemonic", err)
	}
}

func TestAssembleRequiresFuncBeforeAssemble(t *testing.T) {
	prog := vm.NewProgram()
	a := asm.New(prog)
	if err := a.Assemble("HALT\n"); err == nil {
		t.Fatal("expected an error assembling before Func is called")
	}
}

func TestAssembleSkipsBlankLinesAndComments(t *testing.T) {
	prog := vm.NewProgram()
	a := asm.New(prog)
	a.Func("main", 0, nil)
	err := a.Assemble(`
# a full-line comment

PUSH_NUM 1
POP
HALT
`)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
}

func TestAssembleForwardLabelReference(t *testing.T) {
	prog := vm.NewProgram()
	a := asm.New(prog)
	a.Func("main", 0, nil)
	// JUMP references "done" before it is placed.
	err := a.Assemble(`
JUMP done
PUSH_NUM 999
POP
LABEL done
HALT
`)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
}

func TestAssembleStrPreservesSpaces(t *testing.T) {
	prog := vm.NewProgram()
	a := asm.New(prog)
	a.Func("main", 0, nil)
	if err := a.Assemble("STR hello  world\nHALT\n"); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(prog.Strings) != 1 || prog.Strings[0] != "hello  world" {
		t.Errorf("interned string = %q, want %q", prog.Strings, "hello  world")
	}
}
