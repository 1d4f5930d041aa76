package vm

import "bcvm/internal/decimal"

// Kind discriminates the result-stack slot variants of spec §3
// ("Value (result-stack slot)").
type Kind int

const (
	KIntermediate   Kind = iota // owned temporary Number
	KConstant                   // literal-number index, materialized lazily
	KNamedVar                   // unresolved scalar reference
	KNamedArrayElem              // unresolved array-element reference (index already resolved, see DESIGN.md Open Question 2)
	KAutoVar                     // by-value local/parameter scalar storage
	KAutoArray                   // by-value local/parameter array storage
	KScale                       // materialized copy of the scale register
	KIBase                       // handle to the ibase register
	KOBase                       // handle to the obase register
	KLast                        // handle to the last-printed register
	KOne                         // handle to the read-only constant 1
)

// Array is a dense, zero-initialized-on-grow vector of Numbers (spec
// §4.2 step 2, "growing the array to cover the index"). Indices are
// bounded by dim_max at PUSH_ARRAY, not by Array itself.
type Array struct {
	elems []*decimal.Number
}

// NewArray returns an empty array.
func NewArray() *Array { return &Array{} }

// Get returns a handle to element i, growing and zero-filling the
// array as needed.
func (a *Array) Get(i int) *decimal.Number {
	for len(a.elems) <= i {
		a.elems = append(a.elems, decimal.New())
	}
	return a.elems[i]
}

// Copy returns a deep copy (arrays pass to functions by value, spec
// §4.3/§8 scenario 4).
func (a *Array) Copy() *Array {
	out := &Array{elems: make([]*decimal.Number, len(a.elems))}
	for i, n := range a.elems {
		out.elems[i] = n.Copy()
	}
	return out
}

// Value is a tagged union over the result-stack slot variants in
// spec §3/§4.1. Only Intermediate, AutoVar, and AutoArray own
// storage; the named variants own a name string until resolved.
type Value struct {
	Kind Kind
	Num  *decimal.Number // Intermediate, Constant(after materialize), AutoVar, Scale
	Arr  *Array          // AutoArray
	Name string          // NamedVar, NamedArrayElem
	Idx  int             // NamedArrayElem: resolved element index. Constant: constant-pool index.
}

func vIntermediate(n *decimal.Number) Value { return Value{Kind: KIntermediate, Num: n} }
func vConstant(idx int) Value               { return Value{Kind: KConstant, Idx: idx} }
func vNamedVar(name string) Value           { return Value{Kind: KNamedVar, Name: name} }
func vNamedArrayElem(name string, idx int) Value {
	return Value{Kind: KNamedArrayElem, Name: name, Idx: idx}
}
func vAutoVar(n *decimal.Number) Value { return Value{Kind: KAutoVar, Num: n} }
func vAutoArray(a *Array) Value        { return Value{Kind: KAutoArray, Arr: a} }
func vLast() Value                     { return Value{Kind: KLast} }
func vIBase() Value                    { return Value{Kind: KIBase} }
func vOBase() Value                    { return Value{Kind: KOBase} }
func vOne() Value                      { return Value{Kind: KOne} }

// IsLvalue reports whether a Value may appear on the LHS of an
// assignment (spec §4.4: NamedVar, NamedArrayElem, AutoVar, Scale,
// IBase, OBase — constants and intermediates are rejected with
// BAD_ASSIGN).
func (v Value) IsLvalue() bool {
	switch v.Kind {
	case KNamedVar, KNamedArrayElem, KAutoVar, KScale, KIBase, KOBase:
		return true
	}
	return false
}
