package vm

import (
	"io"

	"bcvm/internal/bytecode"
	"bcvm/internal/decimal"
)

// Run drives the fetch-decode-dispatch loop (spec §4.5, C5) starting
// from the current top frame's instruction pointer, until that
// frame's code runs out (the ip boundary a REPL or batch driver
// re-enters Run at after appending more code to `main`), HALT
// executes (KindQuit), or an error aborts execution.
//
// Per spec §5, no *Frame pointer is ever held across a dispatch: the
// frame stack may grow (CALL, READ) or shrink (RETURN) during
// dispatch, which can relocate or invalidate any cached pointer into
// it, so every iteration re-reads the current frame by index.
func (p *Program) Run() *ExecError {
	for {
		if p.SigInt.Load() {
			p.SigInt.Store(false)
			return NewErr(KindSignal, "interrupted")
		}

		fi := len(p.Frames) - 1
		frame := p.Frames[fi]
		fn := p.Function(frame.FuncID)

		if frame.IP >= len(fn.Code) {
			if fi == 0 {
				return nil // idle at end of main: driver appends more code or stops
			}
			if err := p.implicitReturn(fi); err != nil {
				if p.Hook != nil {
					p.Hook.OnError(p, err)
				}
				return err
			}
			continue
		}

		op := bytecode.OpCode(fn.Code[frame.IP])
		pos := frame.IP + 1

		if p.Hook != nil {
			p.Hook.OnInstruction(p, frame, op)
		}

		err := p.dispatch(op, fi, fn, &pos)
		if err != nil {
			if err.Kind == KindQuit {
				return err
			}
			if p.Hook != nil {
				p.Hook.OnError(p, err)
			}
			return err
		}
	}
}

// implicitReturn tears down a frame that fell off the end of its
// function's code without an explicit RETURN (a void-bodied call),
// pushing a zero result — the same shape as RETURN_ZERO.
func (p *Program) implicitReturn(fi int) *ExecError {
	return p.doReturn(fi, nil)
}

// dispatch executes one opcode. fi is the current topmost frame's
// index at entry (valid for JUMP/JUMP_ZERO targets and CALL/RETURN
// bookkeeping); *pos is the code-stream cursor just past the opcode
// byte, advanced past any operands before dispatch writes it back to
// the frame's IP.
func (p *Program) dispatch(op bytecode.OpCode, fi int, fn *bytecode.Function, pos *int) *ExecError {
	advance := func() { p.Frames[fi].IP = *pos }

	switch op {
	case bytecode.OpPushNum:
		idx := int(bytecode.ReadVarUint(fn.Code, pos))
		advance()
		p.push(vConstant(idx))

	case bytecode.OpPushVar:
		name := bytecode.ReadName(fn.Code, pos)
		advance()
		p.push(vNamedVar(name))

	case bytecode.OpPushArray:
		name := bytecode.ReadName(fn.Code, pos)
		advance()
		idxVal := p.pop()
		idxNum, err := p.materializeValue(idxVal)
		if err != nil {
			return err
		}
		idx64, cerr := idxNum.ToUint64()
		if cerr != nil || int(idx64) > p.Limits.DimMax {
			return NewErr(KindArrayLen, "array index exceeds dim_max")
		}
		p.push(vNamedArrayElem(name, int(idx64)))

	case bytecode.OpPushLast:
		advance()
		p.push(vLast())

	case bytecode.OpPushScale:
		advance()
		n := decimal.New()
		n.SetUint64(uint64(p.Scale))
		p.push(Value{Kind: KScale, Num: n})

	case bytecode.OpPushIBase:
		advance()
		p.push(vIBase())

	case bytecode.OpPushOBase:
		advance()
		p.push(vOBase())

	case bytecode.OpPop:
		advance()
		p.pop()

	case bytecode.OpJump:
		label := int(bytecode.ReadVarUint(fn.Code, pos))
		target, ok := fn.Labels[label]
		if !ok {
			return NewErr(KindBadType, "jump to undefined label")
		}
		p.Frames[fi].IP = target

	case bytecode.OpJumpZero:
		label := int(bytecode.ReadVarUint(fn.Code, pos))
		advance()
		v := p.pop()
		n, err := p.materializeValue(v)
		if err != nil {
			return err
		}
		if !truthy(n) {
			target, ok := fn.Labels[label]
			if !ok {
				return NewErr(KindBadType, "jump to undefined label")
			}
			p.Frames[fi].IP = target
		}

	case bytecode.OpCall:
		nparams := int(bytecode.ReadVarUint(fn.Code, pos))
		funcIdx := int(bytecode.ReadVarUint(fn.Code, pos))
		advance()
		return p.doCall(funcIdx, nparams)

	case bytecode.OpReturn:
		advance()
		v := p.pop()
		n, err := p.materializeValue(v)
		if err != nil {
			return err
		}
		return p.doReturn(fi, n)

	case bytecode.OpReturnZero:
		advance()
		return p.doReturn(fi, nil)

	case bytecode.OpRead:
		advance()
		return p.doRead()

	case bytecode.OpPrint:
		advance()
		return p.doPrint(true)

	case bytecode.OpPrintExpr:
		advance()
		return p.doPrint(false)

	case bytecode.OpStr:
		idx := int(bytecode.ReadVarUint(fn.Code, pos))
		advance()
		return p.writeRaw(p.Strings[idx])

	case bytecode.OpPrintStr:
		idx := int(bytecode.ReadVarUint(fn.Code, pos))
		advance()
		return p.writeEscaped(p.Strings[idx])

	case bytecode.OpPower, bytecode.OpMultiply, bytecode.OpDivide,
		bytecode.OpModulus, bytecode.OpPlus, bytecode.OpMinus:
		advance()
		return p.doBinOp(binKindFor(op))

	case bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpLess,
		bytecode.OpGreater, bytecode.OpLessEq, bytecode.OpGreaterEq:
		advance()
		return p.doRelOp(relKindFor(op))

	case bytecode.OpBoolAnd, bytecode.OpBoolOr:
		advance()
		return p.doBoolBinOp(op)

	case bytecode.OpBoolNot:
		advance()
		return p.doBoolNot()

	case bytecode.OpNegate:
		advance()
		return p.doNegate()

	case bytecode.OpLength:
		advance()
		return p.doLength()

	case bytecode.OpScale:
		advance()
		return p.doScaleBuiltin()

	case bytecode.OpSqrt:
		advance()
		return p.doSqrt()

	case bytecode.OpAssign, bytecode.OpAssignPlus, bytecode.OpAssignMinus,
		bytecode.OpAssignMultiply, bytecode.OpAssignDivide,
		bytecode.OpAssignModulus, bytecode.OpAssignPower:
		advance()
		return p.doAssign(op)

	case bytecode.OpIncPre, bytecode.OpDecPre, bytecode.OpIncPost, bytecode.OpDecPost:
		advance()
		return p.doIncDec(op)

	case bytecode.OpHalt:
		advance()
		return NewErr(KindQuit, "")

	default:
		advance()
		return NewErr(KindBadType, "unknown opcode")
	}
	return nil
}

func (p *Program) push(v Value) { p.Results = append(p.Results, v) }

func (p *Program) pop() Value {
	v := p.Results[len(p.Results)-1]
	p.Results = p.Results[:len(p.Results)-1]
	return v
}

// materializeValue is materializeAt for a Value not presently backed
// by a result-stack slot (already popped). Non-Constant kinds never
// mutate on materialization, so this is safe to use post-pop.
func (p *Program) materializeValue(v Value) (*decimal.Number, *ExecError) {
	p.Results = append(p.Results, v)
	idx := len(p.Results) - 1
	n, err := p.materializeAt(idx, false)
	p.Results = p.Results[:idx]
	return n, err
}

func binKindFor(op bytecode.OpCode) binOpKind {
	switch op {
	case bytecode.OpPower:
		return opPower
	case bytecode.OpMultiply:
		return opMultiply
	case bytecode.OpDivide:
		return opDivide
	case bytecode.OpModulus:
		return opModulus
	case bytecode.OpPlus:
		return opPlus
	default:
		return opMinus
	}
}

func relKindFor(op bytecode.OpCode) relOpKind {
	switch op {
	case bytecode.OpEqual:
		return relEqual
	case bytecode.OpNotEqual:
		return relNotEqual
	case bytecode.OpLess:
		return relLess
	case bytecode.OpGreater:
		return relGreater
	case bytecode.OpLessEq:
		return relLessEq
	default:
		return relGreaterEq
	}
}

func (p *Program) doBinOp(kind binOpKind) *ExecError {
	n := len(p.Results)
	left, right := n-2, n-1
	out, err := p.binOp(kind, left, right)
	if err != nil {
		return err
	}
	p.Results = p.Results[:left]
	p.push(vIntermediate(out))
	return nil
}

func (p *Program) doRelOp(kind relOpKind) *ExecError {
	n := len(p.Results)
	left, right := n-2, n-1
	a, err := p.materializeAt(left, false)
	if err != nil {
		return err
	}
	b, err := p.materializeAt(right, false)
	if err != nil {
		return err
	}
	out := relOp(a.Cmp(b), kind)
	p.Results = p.Results[:left]
	p.push(vIntermediate(out))
	return nil
}

func (p *Program) doBoolBinOp(op bytecode.OpCode) *ExecError {
	n := len(p.Results)
	left, right := n-2, n-1
	a, err := p.materializeAt(left, false)
	if err != nil {
		return err
	}
	b, err := p.materializeAt(right, false)
	if err != nil {
		return err
	}
	var result bool
	if op == bytecode.OpBoolAnd {
		result = truthy(a) && truthy(b)
	} else {
		result = truthy(a) || truthy(b)
	}
	p.Results = p.Results[:left]
	p.push(vIntermediate(boolToNumber(result)))
	return nil
}

func (p *Program) doBoolNot() *ExecError {
	idx := len(p.Results) - 1
	n, err := p.materializeAt(idx, false)
	if err != nil {
		return err
	}
	p.Results = p.Results[:idx]
	p.push(vIntermediate(boolToNumber(!truthy(n))))
	return nil
}

func (p *Program) doNegate() *ExecError {
	idx := len(p.Results) - 1
	n, err := p.materializeAt(idx, false)
	if err != nil {
		return err
	}
	out := decimal.New()
	out.Negate(n)
	p.Results = p.Results[:idx]
	p.push(vIntermediate(out))
	return nil
}

func (p *Program) doLength() *ExecError {
	idx := len(p.Results) - 1
	n, err := p.materializeAt(idx, false)
	if err != nil {
		return err
	}
	out := decimal.New()
	out.SetUint64(uint64(n.Length()))
	p.Results = p.Results[:idx]
	p.push(vIntermediate(out))
	return nil
}

func (p *Program) doScaleBuiltin() *ExecError {
	idx := len(p.Results) - 1
	n, err := p.materializeAt(idx, false)
	if err != nil {
		return err
	}
	out := decimal.New()
	out.SetUint64(uint64(n.Scale()))
	p.Results = p.Results[:idx]
	p.push(vIntermediate(out))
	return nil
}

func (p *Program) doSqrt() *ExecError {
	idx := len(p.Results) - 1
	n, err := p.materializeAt(idx, false)
	if err != nil {
		return err
	}
	out := decimal.New()
	if serr := out.Sqrt(n, p.Scale); serr != nil {
		return WrapErr(KindBadType, serr, "sqrt")
	}
	p.Results = p.Results[:idx]
	p.push(vIntermediate(out))
	return nil
}

func (p *Program) doAssign(op bytecode.OpCode) *ExecError {
	n := len(p.Results)
	lvalueIdx, rhsIdx := n-2, n-1
	lvalue := p.Results[lvalueIdx]
	if !lvalue.IsLvalue() {
		return NewErr(KindBadAssign, "left-hand side is not assignable")
	}
	hexRHS := lvalue.Kind == KIBase || lvalue.Kind == KOBase
	rhs, err := p.materializeAt(rhsIdx, hexRHS)
	if err != nil {
		return err
	}
	newVal, err := p.assign(lvalue, rhs, binKindForAssign(op), op == bytecode.OpAssign)
	if err != nil {
		return err
	}
	p.Results = p.Results[:lvalueIdx]
	p.push(vIntermediate(newVal.Copy()))
	return nil
}

func binKindForAssign(op bytecode.OpCode) binOpKind {
	switch op {
	case bytecode.OpAssignPlus:
		return opPlus
	case bytecode.OpAssignMinus:
		return opMinus
	case bytecode.OpAssignMultiply:
		return opMultiply
	case bytecode.OpAssignDivide:
		return opDivide
	case bytecode.OpAssignModulus:
		return opModulus
	case bytecode.OpAssignPower:
		return opPower
	default:
		return opPlus // OpAssign: unused, isPlainAssign short-circuits
	}
}

func (p *Program) doIncDec(op bytecode.OpCode) *ExecError {
	idx := len(p.Results) - 1
	lvalue := p.Results[idx]
	if !lvalue.IsLvalue() {
		return NewErr(KindBadAssign, "left-hand side is not assignable")
	}
	increment := op == bytecode.OpIncPre || op == bytecode.OpIncPost
	pre, post, err := p.incDec(lvalue, increment)
	if err != nil {
		return err
	}
	p.Results = p.Results[:idx]
	if op == bytecode.OpIncPost || op == bytecode.OpDecPost {
		p.push(vIntermediate(pre.Copy()))
	} else {
		p.push(vIntermediate(post.Copy()))
	}
	return nil
}

// doCall implements CALL (spec §4.3): the nparams arguments already
// sit on top of the result stack (each pushed by evaluating its
// argument expression); base records their starting slot, which
// becomes the new frame's base once trailing non-parameter autos are
// appended.
func (p *Program) doCall(funcIdx, nparams int) *ExecError {
	if funcIdx < 0 || funcIdx >= len(p.Functions) {
		return NewErr(KindUndefinedFunc, "call to undefined function")
	}
	callee := p.Function(funcIdx)
	if len(callee.Code) == 0 {
		return NewErr(KindUndefinedFunc, "call to function with empty body")
	}
	if callee.NParams != nparams {
		return NewErr(KindMismatchedParams, "argument count does not match function arity")
	}

	base := len(p.Results) - nparams
	args := make([]Value, nparams)
	copy(args, p.Results[base:])

	for i := 0; i < nparams; i++ {
		desc := callee.Autos[i]
		if desc.IsScalar {
			n, err := p.materializeValue(args[i])
			if err != nil {
				return err
			}
			p.Results[base+i] = vAutoVar(n.Copy())
		} else {
			if cerr := callPrepArg(args[i]); cerr != nil {
				return cerr
			}
			arr, err := p.resolveArray(args[i].Name)
			if err != nil {
				return err
			}
			p.Results[base+i] = vAutoArray(arr.Copy())
		}
	}

	for i := nparams; i < len(callee.Autos); i++ {
		if callee.Autos[i].IsScalar {
			p.push(vAutoVar(decimal.New()))
		} else {
			p.push(vAutoArray(NewArray()))
		}
	}

	p.Frames = append(p.Frames, Frame{FuncID: funcIdx, IP: 0, Base: base})
	if p.Hook != nil {
		p.Hook.OnCall(p, funcIdx)
	}
	return nil
}

// doReturn tears down the topmost frame (RETURN/RETURN_ZERO/implicit
// fallthrough) and pushes the return value — val if non-nil, zero
// otherwise — onto the now-restored caller stack (spec §4.3).
func (p *Program) doReturn(fi int, val *decimal.Number) *ExecError {
	frame := p.Frames[fi]
	funcID := frame.FuncID
	p.Results = p.Results[:frame.Base]
	p.Frames = p.Frames[:fi]
	if val != nil {
		p.push(vIntermediate(val.Copy()))
	} else {
		p.push(vIntermediate(decimal.New()))
	}
	if p.Hook != nil {
		p.Hook.OnReturn(p, funcID)
	}
	return nil
}

// doRead implements READ (spec §4.5 "Interactive read"). The parser
// that lexes an arbitrary `read()` body into the reserved `read`
// function's code is an out-of-scope upstream collaborator (spec §1
// Non-goals); this VM drives the common case directly, parsing the
// one line read from standard input as a numeric literal in the
// current ibase and pushing it as an Intermediate, which is the value
// every `read()` body this VM is ever handed ultimately reduces to.
func (p *Program) doRead() *ExecError {
	line, ioErr := p.readLine()
	if ioErr != nil && ioErr != io.EOF {
		return WrapErr(KindIOErr, ioErr, "reading input")
	}
	if ioErr == io.EOF && line == "" {
		p.push(vIntermediate(decimal.New()))
		return nil
	}
	n, perr := decimal.Parse(line, p.IBase())
	if perr != nil {
		return WrapErr(KindBadReadExpr, perr, "read() expression")
	}
	p.push(vIntermediate(n))
	return nil
}

// doPrint implements PRINT/PRINT_EXPR (spec §4.5): pops and
// materializes the operand, writes it in obase via
// internal/decimal.PrintTo, updates `last`, and — for PRINT only —
// appends a newline and resets the column counter.
func (p *Program) doPrint(newline bool) *ExecError {
	idx := len(p.Results) - 1
	n, err := p.materializeAt(idx, false)
	if err != nil {
		return err
	}
	p.Results = p.Results[:idx]
	if werr := decimal.PrintTo(p.Out, n, p.OBase(), &p.NChars); werr != nil {
		return WrapErr(KindIOErr, werr, "print")
	}
	p.Last.Set(n)
	if newline {
		if _, werr := io.WriteString(p.Out, "\n"); werr != nil {
			return WrapErr(KindIOErr, werr, "print")
		}
		p.NChars = 0
	}
	return nil
}

func (p *Program) writeRaw(s string) *ExecError {
	if _, err := io.WriteString(p.Out, s); err != nil {
		return WrapErr(KindIOErr, err, "str")
	}
	p.NChars += len(s)
	return nil
}

// writeEscaped implements PRINT_STR's backslash-escape processing
// (spec §4.5 table): `\n`→newline, `\t`→tab, `\a`→bell, `\b`→
// backspace, `\e`→literal backslash, `\f`→form feed, `\r`→carriage
// return, `\q`→double quote; any other escaped character emits
// nothing for the whole two-character sequence.
func (p *Program) writeEscaped(s string) *ExecError {
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			out = append(out, c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'a':
			out = append(out, '\a')
		case 'b':
			out = append(out, '\b')
		case 'e':
			out = append(out, '\\')
		case 'f':
			out = append(out, '\f')
		case 'r':
			out = append(out, '\r')
		case 'q':
			out = append(out, '"')
		default:
			// unknown escape: emit nothing
		}
	}
	if _, err := p.Out.Write(out); err != nil {
		return WrapErr(KindIOErr, err, "print_str")
	}
	for _, c := range out {
		if c == '\n' {
			p.NChars = 0
		} else {
			p.NChars++
		}
	}
	return nil
}
