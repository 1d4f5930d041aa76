// Package asm is a minimal line-oriented bytecode assembler. It is
// explicitly NOT a bc-language frontend — the lexer and parser that
// translate bc source into this instruction set are an out-of-scope
// upstream collaborator (spec.md §1, §6) — but the VM core needs
// something to drive it end-to-end from tests and from the `run`/
// `repl` CLI commands without a full compiler. A program here is a
// flat list of mnemonic lines, one instruction per line, mirroring
// bytecode.OpCode's String() names.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"bcvm/internal/bytecode"
	"bcvm/internal/vm"
)

// Assembler accumulates into one target vm.Program, emitting into a
// single bytecode.Function at a time.
type Assembler struct {
	Prog *vm.Program

	fn        *bytecode.Function
	labels    map[string]int
	nextLabel int
}

// New returns an assembler targeting an existing program (the program
// already owns main/read at ids 0/1, spec §4.6).
func New(p *vm.Program) *Assembler {
	return &Assembler{Prog: p, labels: make(map[string]int)}
}

// Func starts assembling into function name, registering it with the
// program (or reusing/resetting its slot on redefinition, per
// AddFunction's contract) and recording its parameter/auto layout.
func (a *Assembler) Func(name string, nparams int, autos []bytecode.AutoDesc) *bytecode.Function {
	id := a.Prog.AddFunction(name)
	fn := a.Prog.Function(id)
	fn.NParams = nparams
	fn.Autos = autos
	a.fn = fn
	return fn
}

// label allocates, or returns the already-allocated, numeric id for a
// textual label name, scoped to the assembler instance (function
// bodies are assembled one at a time, so label namespaces in practice
// don't collide across functions as long as each Func call happens
// before its own labels are first referenced).
func (a *Assembler) label(name string) int {
	if id, ok := a.labels[name]; ok {
		return id
	}
	id := a.nextLabel
	a.nextLabel++
	a.labels[name] = id
	return id
}

// Assemble compiles program text — one instruction per line, blank
// lines and `#`-prefixed comments ignored — into the function most
// recently started with Func. `LABEL name` places a label at the
// current code offset instead of emitting an opcode.
//
// Operand conventions:
//   - PUSH_NUM takes a numeric literal, interned into the program's
//     constant pool.
//   - PUSH_VAR / PUSH_ARRAY take a bare name.
//   - JUMP / JUMP_ZERO take a label name (may be forward-referenced).
//   - CALL takes an argument count and a callee function name.
//   - STR / PRINT_STR take the rest of the line as the literal string,
//     interned into the string pool; inner spaces are kept, leading
//     and trailing spaces are trimmed.
//   - every other mnemonic takes no operand.
func (a *Assembler) Assemble(text string) error {
	if a.fn == nil {
		return fmt.Errorf("asm: Assemble called before Func")
	}
	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		mnemonic, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		if mnemonic == "LABEL" {
			if rest == "" {
				return fmt.Errorf("asm: line %d: LABEL requires a name", lineNo+1)
			}
			a.fn.PlaceLabel(a.label(rest))
			continue
		}

		op, ok := bytecode.Lookup(mnemonic)
		if !ok {
			return fmt.Errorf("asm: line %d: unknown mnemonic %q", lineNo+1, mnemonic)
		}
		if err := a.emit(op, rest, lineNo+1); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) emit(op bytecode.OpCode, rest string, lineNo int) error {
	switch op {
	case bytecode.OpPushNum:
		idx := a.Prog.AddConstant(rest)
		a.fn.WriteOp(op)
		a.fn.WriteVarUint(uint64(idx))

	case bytecode.OpPushVar, bytecode.OpPushArray:
		if rest == "" {
			return fmt.Errorf("asm: line %d: %s requires a name", lineNo, op)
		}
		a.fn.WriteOp(op)
		a.fn.WriteName(rest)

	case bytecode.OpJump, bytecode.OpJumpZero:
		if rest == "" {
			return fmt.Errorf("asm: line %d: %s requires a label", lineNo, op)
		}
		a.fn.WriteOp(op)
		a.fn.WriteVarUint(uint64(a.label(rest)))

	case bytecode.OpCall:
		nparamStr, funcName, ok := strings.Cut(rest, " ")
		funcName = strings.TrimSpace(funcName)
		if !ok || funcName == "" {
			return fmt.Errorf("asm: line %d: CALL requires <nparams> <func>", lineNo)
		}
		nparams, err := strconv.Atoi(nparamStr)
		if err != nil {
			return fmt.Errorf("asm: line %d: bad CALL argument count: %w", lineNo, err)
		}
		funcIdx, ok := a.Prog.FunctionID(funcName)
		if !ok {
			funcIdx = a.Prog.AddFunction(funcName)
		}
		a.fn.WriteOp(op)
		a.fn.WriteVarUint(uint64(nparams))
		a.fn.WriteVarUint(uint64(funcIdx))

	case bytecode.OpStr, bytecode.OpPrintStr:
		idx := a.Prog.AddString(rest)
		a.fn.WriteOp(op)
		a.fn.WriteVarUint(uint64(idx))

	default:
		a.fn.WriteOp(op)
	}
	return nil
}
