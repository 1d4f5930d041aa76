package vm

import (
	"bcvm/internal/config"
	"bcvm/internal/decimal"
)

// materializeAt converts the result-stack slot at idx into a borrowed
// *decimal.Number (spec §4.4 "Materialization"). hex selects the
// single-character-constant hex rule used when the operand sits next
// to an IBase/OBase reference in a binary operation.
func (p *Program) materializeAt(idx int, hex bool) (*decimal.Number, *ExecError) {
	v := &p.Results[idx]
	switch v.Kind {
	case KIntermediate, KScale, KAutoVar:
		return v.Num, nil

	case KConstant:
		raw := p.Constants[v.Idx]
		base := p.IBase()
		if hex && len(raw) == 1 {
			base = config.MaxInputBase
		}
		num, perr := decimal.Parse(raw, base)
		if perr != nil {
			return nil, WrapErr(KindIOErr, perr, "parsing numeric constant")
		}
		v.Num = num
		v.Kind = KIntermediate
		return num, nil

	case KNamedVar:
		return p.resolveScalar(v.Name)

	case KNamedArrayElem:
		return p.resolveArrayElem(v.Name, v.Idx)

	case KLast:
		return p.Last, nil

	case KOne:
		return p.One, nil

	case KIBase:
		return p.IBaseNum, nil

	case KOBase:
		return p.OBaseNum, nil

	default:
		return nil, NewErr(KindBadType, "value is not a number")
	}
}
