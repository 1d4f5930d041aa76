package vm_test

import (
	"testing"

	"bcvm/internal/bytecode"
	"bcvm/internal/vm"
)

func autoParam(name string) []bytecode.AutoDesc {
	return []bytecode.AutoDesc{{Name: name, IsScalar: true}}
}

// Law: x += y is equivalent to x = x + y.
func TestCompoundAssignLawMatchesExpandedForm(t *testing.T) {
	progA, aA, outA := newRun(t)
	aA.Func("main", 0, nil)
	mustAssemble(t, aA, `
PUSH_VAR x
PUSH_NUM 10
ASSIGN
POP
PUSH_VAR x
PUSH_NUM 3
ASSIGN_PLUS
PRINT
HALT
`)
	if err := progA.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("compound run: %v", err)
	}

	progB, aB, outB := newRun(t)
	aB.Func("main", 0, nil)
	mustAssemble(t, aB, `
PUSH_VAR x
PUSH_NUM 10
ASSIGN
POP
PUSH_VAR x
PUSH_VAR x
PUSH_NUM 3
PLUS
ASSIGN
PRINT
HALT
`)
	if err := progB.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("expanded run: %v", err)
	}

	if outA.String() != outB.String() {
		t.Errorf("x+=3 produced %q, x=x+3 produced %q; want equal", outA.String(), outB.String())
	}
	if outA.String() != "13\n" {
		t.Errorf("got %q, want 13\\n", outA.String())
	}
}

// Law: /= with y == 0 is an error, surfacing the same divide-by-zero
// kind the plain binary form would.
func TestCompoundDivideAssignByZeroErrors(t *testing.T) {
	prog, a, _ := newRun(t)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_VAR x
PUSH_NUM 5
ASSIGN
POP
PUSH_VAR x
PUSH_NUM 0
ASSIGN_DIVIDE
HALT
`)
	err := prog.Run()
	if err == nil || err.Kind != vm.KindDivideByZero {
		t.Fatalf("x/=0: got %v, want KindDivideByZero", err)
	}
}

// Law: length(n) is its significant decimal digit count; scale(n) is
// its fractional digit count.
func TestLengthAndScaleBuiltins(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_NUM 123.45
LENGTH
PRINT
PUSH_NUM 123.45
SCALE
PRINT
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "5\n2\n" {
		t.Errorf("got %q, want %q", got, "5\n2\n")
	}
}

// Invariant check: a chain of five sequential calls, each pushing and
// tearing down a frame and its result-stack slots, still produces the
// correct final value — nothing is corrupted by the frame and result
// stacks changing across a dispatch (spec §5's no-cached-frame-pointer
// requirement).
func TestDeepCallChainPreservesResult(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("inc", 1, autoParam("x"))
	mustAssemble(t, a, `
PUSH_VAR x
PUSH_NUM 1
PLUS
RETURN
`)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_NUM 0
CALL 1 inc
CALL 1 inc
CALL 1 inc
CALL 1 inc
CALL 1 inc
PRINT
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "5\n" {
		t.Errorf("got %q, want %q (five chained increments)", got, "5\n")
	}
}

// Pre-increment returns the post-value; post-increment returns the
// pre-value (spec §8 law).
func TestPreIncrementReturnsPostValue(t *testing.T) {
	prog, a, out := newRun(t)
	a.Func("main", 0, nil)
	mustAssemble(t, a, `
PUSH_VAR x
PUSH_NUM 9
ASSIGN
POP
PUSH_VAR x
INC_PRE
PRINT
PUSH_VAR x
PRINT
HALT
`)
	if err := prog.Run(); err != nil && !vm.IsQuit(err) {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "10\n10\n" {
		t.Errorf("got %q, want %q (pre-increment yields post-value, x itself also raised)", got, "10\n10\n")
	}
}
