package vm

import (
	"bufio"
	"io"
	"os"
	"sync/atomic"

	"bcvm/internal/bytecode"
	"bcvm/internal/config"
	"bcvm/internal/decimal"
	"bcvm/internal/symtab"
)

// Reserved function ids (spec §3 "Function").
const (
	FuncMain = 0
	FuncRead = 1
)

// Frame is {func_id, idx, base} (spec §3, §4.3, GLOSSARY "Frame").
type Frame struct {
	FuncID int
	IP     int
	Base   int // result-stack length at entry
}

// Program is the runtime image (spec §3 "Program (runtime image)").
type Program struct {
	Functions []*bytecode.Function
	funcNames *symtab.Table

	ScalarNames *symtab.Table
	Scalars     []*decimal.Number
	ArrayNames  *symtab.Table
	Arrays      []*Array

	Strings   []string // string pool (STR / PRINT_STR payloads)
	Constants []string // literal-number constants pool, raw digit text

	Results []Value
	Frames  []Frame

	// IBaseNum/OBaseNum are the persistent register storage — bases
	// are mutated in place by assignment (spec §4.4), so unlike Scale
	// (whose PUSH_SCALE materializes a fresh detached copy each time)
	// these must be the actual, long-lived Number objects.
	IBaseNum *decimal.Number
	OBaseNum *decimal.Number
	Scale    int
	Last     *decimal.Number
	Zero     *decimal.Number
	One      *decimal.Number

	NChars int // column counter for line-length tracking

	Limits config.Limits

	// SigInt is polled at each opcode boundary with acquire
	// semantics (spec §5); the only legitimate piece of shared
	// mutable state, modeled as a single atomic flag rather than a
	// package global.
	SigInt atomic.Bool

	Out io.Writer
	In  io.Reader
	in  *bufio.Reader // lazily wraps In so buffered bytes survive across separate READ opcodes

	// Hook, if set, is notified before every opcode dispatch — the
	// seam internal/history and internal/introspect attach to.
	Hook DebugHook
}

// DebugHook mirrors the teacher's vm.DebugHook interface shape,
// generalized to this domain: a single per-opcode observation point
// plus call/return/error notifications. Implementations must not
// mutate the Program.
type DebugHook interface {
	OnInstruction(p *Program, frame Frame, op bytecode.OpCode)
	OnCall(p *Program, funcID int)
	OnReturn(p *Program, funcID int)
	OnError(p *Program, err error)
}

// MultiHook fans one stream of DebugHook notifications out to
// several observers at once (e.g. internal/history and
// internal/introspect attached to the same run).
type MultiHook []DebugHook

func (m MultiHook) OnInstruction(p *Program, frame Frame, op bytecode.OpCode) {
	for _, h := range m {
		h.OnInstruction(p, frame, op)
	}
}

func (m MultiHook) OnCall(p *Program, funcID int) {
	for _, h := range m {
		h.OnCall(p, funcID)
	}
}

func (m MultiHook) OnReturn(p *Program, funcID int) {
	for _, h := range m {
		h.OnReturn(p, funcID)
	}
}

func (m MultiHook) OnError(p *Program, err error) {
	for _, h := range m {
		h.OnError(p, err)
	}
}

// NewProgram creates an empty program image: main and read are
// registered, ibase/obase default to 10, scale to 0, last/zero to 0,
// one to 1, and the frame stack is seeded with {func=0, idx=0,
// base=0} (spec §4.6 "Initialization").
func NewProgram() *Program {
	p := &Program{
		funcNames:   symtab.New(),
		ScalarNames: symtab.New(),
		ArrayNames:  symtab.New(),
		IBaseNum:    decimal.New(),
		OBaseNum:    decimal.New(),
		Scale:       config.DefaultScale,
		Last:        decimal.New(),
		Zero:        decimal.New(),
		One:         decimal.New(),
		Limits:      config.DefaultLimits(),
		Out:         os.Stdout,
		In:          os.Stdin,
	}
	p.One.SetOne()
	p.IBaseNum.SetTen()
	p.OBaseNum.SetTen()
	p.AddFunction("main")
	p.AddFunction("read")
	p.Frames = []Frame{{FuncID: FuncMain, IP: 0, Base: 0}}
	return p
}

// AddFunction registers a function by name, reusing its existing slot
// (and resetting its body) on redefinition so that compiled call
// sites — which reference functions by stable index — keep invoking
// the new body (spec §4.6 "Adding a function", §8 redefinition law).
func (p *Program) AddFunction(name string) int {
	if idx, ok := p.funcNames.Lookup(name); ok {
		p.Functions[idx].Reset()
		return idx
	}
	idx := p.funcNames.Insert(name)
	f := bytecode.NewFunction(name)
	p.Functions = append(p.Functions, f)
	return idx
}

// FunctionID returns the id of a previously-added function.
func (p *Program) FunctionID(name string) (int, bool) {
	return p.funcNames.Lookup(name)
}

// Function returns the function record for id.
func (p *Program) Function(id int) *bytecode.Function {
	return p.Functions[id]
}

// AddString interns a string-pool entry (STR/PRINT_STR payloads) and
// returns its index.
func (p *Program) AddString(s string) int {
	p.Strings = append(p.Strings, s)
	return len(p.Strings) - 1
}

// AddConstant interns a literal-number constant (raw digit text) and
// returns its index.
func (p *Program) AddConstant(s string) int {
	p.Constants = append(p.Constants, s)
	return len(p.Constants) - 1
}

// globalScalar returns a handle to global scalar name, inserting a
// fresh zero-initialized entry if absent (spec §4.2 step 3).
func (p *Program) globalScalar(name string) *decimal.Number {
	idx, existed := p.ScalarNames.Lookup(name)
	if !existed {
		idx = p.ScalarNames.Insert(name)
	}
	for len(p.Scalars) <= idx {
		p.Scalars = append(p.Scalars, decimal.New())
	}
	return p.Scalars[idx]
}

// globalArray returns a handle to global array name, inserting a
// fresh entry if absent.
func (p *Program) globalArray(name string) *Array {
	idx, existed := p.ArrayNames.Lookup(name)
	if !existed {
		idx = p.ArrayNames.Insert(name)
	}
	for len(p.Arrays) <= idx {
		p.Arrays = append(p.Arrays, NewArray())
	}
	return p.Arrays[idx]
}

// IBase returns the current input base as an int (read from the
// persistent IBaseNum register, always valid since assignment only
// ever stores values in [MinBase, MaxInputBase] there).
func (p *Program) IBase() int {
	v, _ := p.IBaseNum.ToUint64()
	return int(v)
}

// OBase returns the current output base as an int.
func (p *Program) OBase() int {
	v, _ := p.OBaseNum.ToUint64()
	return int(v)
}

// readLine reads one newline-terminated line from In for READ (spec
// §4.5 "Interactive read"), stripping the trailing newline. Returns
// io.EOF unwrapped when no more input is available.
func (p *Program) readLine() (string, error) {
	if p.in == nil {
		p.in = bufio.NewReader(p.In)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

// Free releases the program's owned resources. Numbers and arrays are
// ordinary Go values collected by the GC once unreachable; Free exists
// to mirror spec §3's lifecycle contract and to give callers an
// explicit point to drop large result/frame stacks.
func (p *Program) Free() {
	p.Functions = nil
	p.Scalars = nil
	p.Arrays = nil
	p.Strings = nil
	p.Constants = nil
	p.Results = nil
	p.Frames = nil
}
