package vm

import (
	"bcvm/internal/config"
	"bcvm/internal/decimal"
)

// binOp evaluates one of the binary-math opcodes (spec §4.4 "Binary
// math") given the result-stack indices of its two operands; the
// caller is responsible for truncating the stack and pushing the
// returned Intermediate.
func (p *Program) binOp(op binOpKind, left, right int) (*decimal.Number, *ExecError) {
	hexRight := p.Results[left].Kind == KIBase || p.Results[left].Kind == KOBase
	a, err := p.materializeAt(left, false)
	if err != nil {
		return nil, err
	}
	b, err := p.materializeAt(right, hexRight)
	if err != nil {
		return nil, err
	}
	out := decimal.New()
	switch op {
	case opPower:
		if perr := out.Pow(a, b, p.Scale); perr != nil {
			return nil, WrapErr(KindDivideByZero, perr, "power")
		}
	case opMultiply:
		out.Mul(a, b)
	case opDivide:
		if perr := out.Div(a, b, p.Scale); perr != nil {
			return nil, WrapErr(KindDivideByZero, perr, "divide")
		}
	case opModulus:
		if perr := out.Mod(a, b, p.Scale); perr != nil {
			return nil, WrapErr(KindDivideByZero, perr, "modulus")
		}
	case opPlus:
		out.Add(a, b)
	case opMinus:
		out.Sub(a, b)
	}
	return out, nil
}

type binOpKind int

const (
	opPower binOpKind = iota
	opMultiply
	opDivide
	opModulus
	opPlus
	opMinus
)

// relOp evaluates a relational opcode (spec §4.4 "Relational"),
// returning 0 or 1 as a fresh Number.
func relOp(cmp int, op relOpKind) *decimal.Number {
	var truth bool
	switch op {
	case relEqual:
		truth = cmp == 0
	case relNotEqual:
		truth = cmp != 0
	case relLess:
		truth = cmp < 0
	case relGreater:
		truth = cmp > 0
	case relLessEq:
		truth = cmp <= 0
	case relGreaterEq:
		truth = cmp >= 0
	}
	n := decimal.New()
	if truth {
		n.SetOne()
	}
	return n
}

type relOpKind int

const (
	relEqual relOpKind = iota
	relNotEqual
	relLess
	relGreater
	relLessEq
	relGreaterEq
)

// truthy reports whether a materialized number is "nonzero" (spec
// §4.4 "Boolean").
func truthy(n *decimal.Number) bool { return !n.IsZero() }

// boolToNumber renders a Go bool as a bc 0/1 Number.
func boolToNumber(b bool) *decimal.Number {
	n := decimal.New()
	if b {
		n.SetOne()
	}
	return n
}

// assign implements the `x op= y` family (spec §4.4 "Assignment"),
// mutating the lvalue slot's underlying storage in place and
// returning the new value so the caller can push it as an
// Intermediate copy. opKind is the arithmetic step of a compound
// assignment; isPlainAssign marks a plain `=`, for which opKind is
// unused.
func (p *Program) assign(lvalue Value, rhs *decimal.Number, opKind binOpKind, isPlainAssign bool) (*decimal.Number, *ExecError) {
	switch lvalue.Kind {
	case KNamedVar, KNamedArrayElem, KAutoVar:
		return p.assignScalar(lvalue, rhs, opKind, isPlainAssign)
	case KScale:
		return p.assignScale(rhs, opKind, isPlainAssign)
	case KIBase:
		return p.assignBase(p.IBaseNum, rhs, opKind, isPlainAssign, true)
	case KOBase:
		return p.assignBase(p.OBaseNum, rhs, opKind, isPlainAssign, false)
	default:
		return nil, NewErr(KindBadAssign, "left-hand side is not assignable")
	}
}

func (p *Program) assignScalar(lvalue Value, rhs *decimal.Number, opKind binOpKind, isPlainAssign bool) (*decimal.Number, *ExecError) {
	var dst *decimal.Number
	var err *ExecError
	switch lvalue.Kind {
	case KNamedVar:
		dst, err = p.resolveScalar(lvalue.Name)
	case KNamedArrayElem:
		dst, err = p.resolveArrayElem(lvalue.Name, lvalue.Idx)
	case KAutoVar:
		dst = lvalue.Num
	}
	if err != nil {
		return nil, err
	}
	if perr := applyCompound(dst, dst, rhs, opKind, isPlainAssign, p.Scale); perr != nil {
		return nil, perr
	}
	return dst, nil
}

func (p *Program) assignScale(rhs *decimal.Number, opKind binOpKind, isPlainAssign bool) (*decimal.Number, *ExecError) {
	cur := decimal.New()
	cur.SetUint64(uint64(p.Scale))
	if perr := applyCompound(cur, cur, rhs, opKind, isPlainAssign, p.Scale); perr != nil {
		return nil, perr
	}
	v, cerr := cur.ToUint64()
	if cerr != nil || int(v) < 0 || int(v) > p.Limits.ScaleMax {
		return nil, NewErr(KindBadScale, "scale out of range")
	}
	p.Scale = int(v)
	out := decimal.New()
	out.SetUint64(v)
	return out, nil
}

// assignBase handles ibase/obase assignment: the new value is computed
// on a copy and range-checked, and only an in-range value is stored
// into the register's persistent Number (spec §9 design note on
// bc_program_num returning the register address directly). An
// out-of-range value is rejected and leaves the register unchanged.
func (p *Program) assignBase(reg *decimal.Number, rhs *decimal.Number, opKind binOpKind, isPlainAssign bool, isIBase bool) (*decimal.Number, *ExecError) {
	next := reg.Copy()
	if perr := applyCompound(next, next, rhs, opKind, isPlainAssign, p.Scale); perr != nil {
		return nil, perr
	}
	v, cerr := next.ToUint64()
	lo, hi := config.MinBase, p.Limits.BaseMax
	if isIBase {
		hi = config.MaxInputBase
	}
	if cerr != nil || int(v) < lo || int(v) > hi {
		kind := KindBadOBase
		if isIBase {
			kind = KindBadIBase
		}
		return nil, NewErr(kind, "base out of range")
	}
	reg.Set(next)
	return reg.Copy(), nil
}

// applyCompound computes dst = (plain ? rhs : cur op rhs) into dst,
// where cur is dst's pre-update value (cur and dst may alias).
func applyCompound(dst, cur, rhs *decimal.Number, op binOpKind, isPlainAssign bool, scale int) *ExecError {
	if isPlainAssign {
		dst.Set(rhs)
		return nil
	}
	a := cur.Copy()
	switch op {
	case opPlus:
		dst.Add(a, rhs)
	case opMinus:
		dst.Sub(a, rhs)
	case opMultiply:
		dst.Mul(a, rhs)
	case opDivide:
		if err := dst.Div(a, rhs, scale); err != nil {
			return WrapErr(KindDivideByZero, err, "divide-assign")
		}
	case opModulus:
		if err := dst.Mod(a, rhs, scale); err != nil {
			return WrapErr(KindDivideByZero, err, "modulus-assign")
		}
	case opPower:
		if err := dst.Pow(a, rhs, scale); err != nil {
			return WrapErr(KindDivideByZero, err, "power-assign")
		}
	}
	return nil
}

// callPrepArg validates an array-parameter CALL argument's kind
// before the callee's array auto is bound to it (spec §9 Open
// Question 1: the source's
// `arg->type != BC_RESULT_VAR || arg->type != BC_RESULT_ARRAY` check
// is tautologically true — true whenever either clause holds, which
// is always, since no single Value can be both kinds at once. The
// intended semantics, restored here by AND-ing the clauses instead of
// OR-ing them, is to reject an argument that is neither a plain
// variable reference (a bare array name, resolved by resolveArray)
// nor an already-resolved array reference. Scalar parameters are not
// run through this check: any evaluable expression may bind a scalar
// auto by value.
func callPrepArg(arg Value) *ExecError {
	if arg.Kind != KNamedVar && arg.Kind != KNamedArrayElem {
		return NewErr(KindBadType, "argument for array parameter must be a variable or array reference")
	}
	return nil
}

// incDec implements the desugared `x++`/`++x`/`x--`/`--x` family
// (spec §4.4 "Increment/decrement"): it resolves lvalue's storage
// once, returns both the pre-update and post-update values, and lets
// the caller pick which one the expression yields (pre for the post-
// form, post for the pre-form).
func (p *Program) incDec(lvalue Value, increment bool) (pre, post *decimal.Number, err *ExecError) {
	one := decimal.New()
	one.SetOne()
	opKind := opPlus
	if !increment {
		opKind = opMinus
	}
	switch lvalue.Kind {
	case KNamedVar, KNamedArrayElem, KAutoVar:
		var dst *decimal.Number
		switch lvalue.Kind {
		case KNamedVar:
			dst, err = p.resolveScalar(lvalue.Name)
		case KNamedArrayElem:
			dst, err = p.resolveArrayElem(lvalue.Name, lvalue.Idx)
		case KAutoVar:
			dst = lvalue.Num
		}
		if err != nil {
			return nil, nil, err
		}
		pre = dst.Copy()
		if perr := applyCompound(dst, dst, one, opKind, false, p.Scale); perr != nil {
			return nil, nil, perr
		}
		return pre, dst.Copy(), nil

	case KScale:
		pre = decimal.New()
		pre.SetUint64(uint64(p.Scale))
		post, err = p.assignScale(one, opKind, false)
		return pre, post, err

	case KIBase:
		pre = p.IBaseNum.Copy()
		post, err = p.assignBase(p.IBaseNum, one, opKind, false, true)
		return pre, post, err

	case KOBase:
		pre = p.OBaseNum.Copy()
		post, err = p.assignBase(p.OBaseNum, one, opKind, false, false)
		return pre, post, err

	default:
		return nil, nil, NewErr(KindBadAssign, "left-hand side is not assignable")
	}
}
