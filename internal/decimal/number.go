// Package decimal implements the arbitrary-precision scaled decimal
// number that backs every bc value (spec.md §3, §6). There is no
// decimal bignum library anywhere in the retrieved example corpus
// (checked all five teacher candidates and other_examples/), so this
// one package is grounded directly on math/big rather than on a
// third-party library — see DESIGN.md's per-package ledger.
package decimal

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// ErrNegativeSqrt is returned by Sqrt on a negative operand.
var ErrNegativeSqrt = errors.New("square root of negative number")

// ErrDivideByZero is returned by Div/Mod on a zero divisor.
var ErrDivideByZero = errors.New("divide by zero")

// ErrOutOfRange is returned by ToUint64 when the number is negative,
// fractional, or exceeds 64 bits.
var ErrOutOfRange = errors.New("number out of range")

// Number is a signed, arbitrary-precision decimal: value = mantissa *
// 10^-scale. mantissa is always non-negative; neg carries the sign,
// matching bc_num's separate sign flag (spec §3: "Carries a sign flag
// and a scale").
type Number struct {
	mantissa *big.Int
	scale    int
	neg      bool
}

// New returns a zero-valued number.
func New() *Number {
	return &Number{mantissa: new(big.Int)}
}

// Copy returns an independent copy of n.
func (n *Number) Copy() *Number {
	return &Number{mantissa: new(big.Int).Set(n.mantissa), scale: n.scale, neg: n.neg}
}

// Set assigns src's value into n in place.
func (n *Number) Set(src *Number) {
	n.mantissa = new(big.Int).Set(src.mantissa)
	n.scale = src.scale
	n.neg = src.neg
}

// SetZero sets n to 0.
func (n *Number) SetZero() {
	n.mantissa = new(big.Int)
	n.scale = 0
	n.neg = false
}

// SetOne sets n to 1.
func (n *Number) SetOne() {
	n.mantissa = big.NewInt(1)
	n.scale = 0
	n.neg = false
}

// SetTen sets n to 10.
func (n *Number) SetTen() {
	n.mantissa = big.NewInt(10)
	n.scale = 0
	n.neg = false
}

// SetUint64 sets n to an unsigned integer value.
func (n *Number) SetUint64(v uint64) {
	n.mantissa = new(big.Int).SetUint64(v)
	n.scale = 0
	n.neg = false
}

// Scale returns the number of fractional digits retained.
func (n *Number) Scale() int { return n.scale }

// Sign returns -1, 0, or 1.
func (n *Number) Sign() int {
	if n.mantissa.Sign() == 0 {
		return 0
	}
	if n.neg {
		return -1
	}
	return 1
}

// IsZero reports whether n == 0.
func (n *Number) IsZero() bool { return n.mantissa.Sign() == 0 }

// Cmp returns the sign of n - other: -1, 0, or 1. Mirrors bc_num_cmp.
func (n *Number) Cmp(other *Number) int {
	a, b := alignScale(n, other)
	cmp := a.Cmp(b)
	an, bn := n.Sign() < 0, other.Sign() < 0
	switch {
	case an && !bn:
		return -1
	case !an && bn:
		return 1
	case an && bn:
		return -cmp
	default:
		return cmp
	}
}

// alignScale returns both mantissas scaled up to the larger of the
// two scales so they are directly comparable, ignoring sign.
func alignScale(a, b *Number) (*big.Int, *big.Int) {
	sc := a.scale
	if b.scale > sc {
		sc = b.scale
	}
	am := scaleUpTo(a.mantissa, a.scale, sc)
	bm := scaleUpTo(b.mantissa, b.scale, sc)
	return am, bm
}

func scaleUpTo(m *big.Int, from, to int) *big.Int {
	if to == from {
		return new(big.Int).Set(m)
	}
	diff := to - from
	factor := pow10(diff)
	return new(big.Int).Mul(m, factor)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func (n *Number) signedMantissa() *big.Int {
	m := new(big.Int).Set(n.mantissa)
	if n.neg {
		m.Neg(m)
	}
	return m
}

func (n *Number) setFromSigned(m *big.Int, scale int) {
	n.neg = m.Sign() < 0
	n.mantissa = new(big.Int).Abs(m)
	n.scale = scale
	n.trimZero()
}

// trimZero normalizes -0 to +0.
func (n *Number) trimZero() {
	if n.mantissa.Sign() == 0 {
		n.neg = false
	}
}

// Add sets n = a + b. Takes no scale argument per spec §6 ("add/sub/mul/pow ignore scale"); the result keeps the larger operand scale.
func (n *Number) Add(a, b *Number) {
	am, bm := alignScale(a, b)
	sc := maxInt(a.scale, b.scale)
	sa, sb := am, bm
	if a.neg {
		sa = new(big.Int).Neg(sa)
	}
	if b.neg {
		sb = new(big.Int).Neg(sb)
	}
	sum := new(big.Int).Add(sa, sb)
	n.setFromSigned(sum, sc)
}

// Sub sets n = a - b.
func (n *Number) Sub(a, b *Number) {
	neg := b.Copy()
	if !neg.IsZero() {
		neg.neg = !b.neg
	}
	n.Add(a, neg)
}

// Mul sets n = a * b, exact (scale ignored, like bc_num_mul).
func (n *Number) Mul(a, b *Number) {
	m := new(big.Int).Mul(a.mantissa, b.mantissa)
	n.setFromSigned(withSign(m, a.neg != b.neg), a.scale+b.scale)
}

func withSign(m *big.Int, neg bool) *big.Int {
	if neg {
		return new(big.Int).Neg(m)
	}
	return m
}

// Div sets n = a / b truncated to scale fractional digits. Returns
// ErrDivideByZero if b == 0.
func (n *Number) Div(a, b *Number, scale int) error {
	if b.IsZero() {
		return ErrDivideByZero
	}
	// scaled_a * 10^(scale+b.scale) / (a.scale-adjusted b)
	num := new(big.Int).Set(a.mantissa)
	num.Mul(num, pow10(scale+b.scale))
	den := new(big.Int).Mul(b.mantissa, pow10(a.scale))
	q := new(big.Int).Quo(num, den)
	n.setFromSigned(withSign(q, a.neg != b.neg), scale)
	return nil
}

// Mod sets n = a % b (remainder of truncated division), matching bc's
// a - (a/b)*b semantics with a/b truncated to scale fractional digits;
// the result has max(a's scale, scale + b's scale) fractional digits.
func (n *Number) Mod(a, b *Number, scale int) error {
	if b.IsZero() {
		return ErrDivideByZero
	}
	q := New()
	if err := q.Div(a, b, scale); err != nil {
		return err
	}
	prod := New()
	prod.Mul(q, b)
	n.Sub(a, prod)
	return nil
}

// Pow sets n = a^b, where b must be a non-negative or negative
// integer exponent (fractional part ignored, matching bc_num_pow).
// Ignores the scale argument for the integer-power computation
// itself but truncates negative-exponent results to scale.
func (n *Number) Pow(a, b *Number, scale int) error {
	// integer part of b, honoring sign
	exp := new(big.Int).Set(b.mantissa)
	exp.Quo(exp, pow10(b.scale))
	negExp := b.neg
	if negExp {
		one := New()
		one.SetOne()
		base := a.Copy()
		result := New()
		result.SetOne()
		e := new(big.Int).Set(exp)
		for e.Sign() > 0 {
			result.Mul(result, base)
			e.Sub(e, big.NewInt(1))
		}
		return n.Div(one, result, scale)
	}
	result := New()
	result.SetOne()
	base := a.Copy()
	e := new(big.Int).Set(exp)
	for e.Sign() > 0 {
		result.Mul(result, base)
		e.Sub(e, big.NewInt(1))
	}
	n.Set(result)
	return nil
}

// Sqrt sets n = sqrt(a) to scale fractional digits. Returns
// ErrNegativeSqrt if a is negative.
func (n *Number) Sqrt(a *Number, scale int) error {
	if a.neg {
		return ErrNegativeSqrt
	}
	if a.IsZero() {
		n.SetZero()
		return nil
	}
	// Compute integer sqrt of a scaled up by 2*scale extra digits,
	// i.e. floor(sqrt(mantissa * 10^(2*scale - a.scale))).
	shift := 2*scale - a.scale
	var scaled *big.Int
	if shift >= 0 {
		scaled = new(big.Int).Mul(a.mantissa, pow10(shift))
	} else {
		scaled = new(big.Int).Quo(a.mantissa, pow10(-shift))
	}
	root := new(big.Int).Sqrt(scaled)
	n.setFromSigned(root, scale)
	return nil
}

// Negate sets n = -a.
func (n *Number) Negate(a *Number) {
	n.Set(a)
	n.trimZero()
	if !n.IsZero() {
		n.neg = !n.neg
	}
}

// ToUint64 converts n to an unsigned integer, failing if n is
// negative or has a nonzero fractional part or exceeds 64 bits.
func (n *Number) ToUint64() (uint64, error) {
	if n.neg {
		return 0, ErrOutOfRange
	}
	frac := new(big.Int).Mod(n.mantissa, pow10(n.scale))
	if frac.Sign() != 0 {
		return 0, ErrOutOfRange
	}
	intPart := new(big.Int).Quo(n.mantissa, pow10(n.scale))
	if !intPart.IsUint64() {
		return 0, ErrOutOfRange
	}
	return intPart.Uint64(), nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Parse sets n from a bc numeric literal string in the given input
// base (2..16). Accepts an optional leading '-', digits/A-F valid for
// the base, and an optional '.' fraction, mirroring bc_num_parse
// (spec §6).
func Parse(s string, base int) (*Number, error) {
	n := New()
	if s == "" {
		return n, nil
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
	}
	digits := intPart + fracPart
	mant := new(big.Int)
	b := big.NewInt(int64(base))
	for _, c := range digits {
		d := digitValue(byte(c))
		if d < 0 {
			d = 0 // non-digit characters count as 0; A-F keep their value even above the base (e.g. 'F' under ibase=10)
		}
		mant.Mul(mant, b)
		mant.Add(mant, big.NewInt(int64(d)))
	}
	n.mantissa = mant
	n.scale = len(fracPart)
	n.neg = neg
	n.trimZero()
	return n, nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return -1
	}
}

// Length returns the number of significant decimal digits, ignoring a
// trailing all-fraction representation where rdx == len (spec §4.4
// builtin LENGTH; bc_program_length). Zero has no special case: its
// mantissa string is "0", length 1, matching bc_program_length's
// len=1 for a zero-valued number (original_source/src/bc/program.c:1010)
// rather than 0.
func (n *Number) Length() int {
	s := n.mantissa.String()
	l := len(s)
	if n.scale == l {
		for l > 0 && s[l-1] == '0' {
			l--
		}
	}
	return l
}
