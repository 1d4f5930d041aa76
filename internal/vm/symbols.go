package vm

import "bcvm/internal/decimal"

// resolveScalar implements the scalar half of the lookup protocol in
// spec §4.2: walk the call stack from innermost to outermost frame
// (skipping the reserved main/read frames and the permanent bottom
// main frame at index 0), matching autos by name and kind, before
// falling back to the flat global namespace.
func (p *Program) resolveScalar(name string) (*decimal.Number, *ExecError) {
	for fi := len(p.Frames) - 1; fi >= 1; fi-- {
		fr := p.Frames[fi]
		if fr.FuncID == FuncMain || fr.FuncID == FuncRead {
			continue
		}
		fn := p.Function(fr.FuncID)
		for ai, a := range fn.Autos {
			if a.Name != name {
				continue
			}
			if !a.IsScalar {
				return nil, NewErr(KindBadType, "'"+name+"' is an array, not a scalar")
			}
			home := fr.Base + ai
			return p.Results[home].Num, nil
		}
	}
	return p.globalScalar(name), nil
}

// resolveArray is the array-reference half: returns a handle to the
// whole array (used for by-value array-argument passing, spec §4.3
// scenario 4).
func (p *Program) resolveArray(name string) (*Array, *ExecError) {
	for fi := len(p.Frames) - 1; fi >= 1; fi-- {
		fr := p.Frames[fi]
		if fr.FuncID == FuncMain || fr.FuncID == FuncRead {
			continue
		}
		fn := p.Function(fr.FuncID)
		for ai, a := range fn.Autos {
			if a.Name != name {
				continue
			}
			if a.IsScalar {
				return nil, NewErr(KindBadType, "'"+name+"' is a scalar, not an array")
			}
			home := fr.Base + ai
			return p.Results[home].Arr, nil
		}
	}
	return p.globalArray(name), nil
}

// resolveArrayElem resolves a specific element of array name, growing
// the array to cover idx (spec §4.2 step 2 "after growing the array
// to cover the index").
func (p *Program) resolveArrayElem(name string, idx int) (*decimal.Number, *ExecError) {
	arr, err := p.resolveArray(name)
	if err != nil {
		return nil, err
	}
	return arr.Get(idx), nil
}
