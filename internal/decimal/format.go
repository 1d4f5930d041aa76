package decimal

import (
	"io"
	"math/big"
	"strconv"
	"strings"
)

// LineLength is the default column width bc wraps printed numbers at
// (BC_LINE_LENGTH in the original implementation).
const LineLength = 70

// hexDigits are the digit glyphs for bases up to 16 (bc prints these
// as single characters, '0'-'9' then 'A'-'F'). Output bases above 16
// have no single-character glyph for digits 16..base-1, so bc prints
// each "digit" as a space-separated, zero-padded decimal group instead
// (program.c's bc_num_printBase / out_long path) — see formatIntGroupBase.
const hexDigits = "0123456789ABCDEF"

// Format renders n in the given output base, returning the digit
// string without any line-wrap bookkeeping (used by tests and by
// PrintTo's first pass).
func (n *Number) Format(base int) string {
	var sb strings.Builder
	if n.neg && !n.IsZero() {
		sb.WriteByte('-')
	}
	intPart := new(big.Int).Quo(n.mantissa, pow10(n.scale))
	fracPart := new(big.Int).Mod(n.mantissa, pow10(n.scale))

	if base == 10 {
		s := intPart.String()
		sb.WriteString(s)
		if n.scale > 0 {
			sb.WriteByte('.')
			fs := fracPart.String()
			for len(fs) < n.scale {
				fs = "0" + fs
			}
			sb.WriteString(fs)
		}
		return sb.String()
	}

	if base <= 16 {
		sb.WriteString(formatIntBase(intPart, base))
		if n.scale > 0 {
			sb.WriteByte('.')
			sb.WriteString(formatFracBase(fracPart, n.scale, base))
		}
		return sb.String()
	}

	sb.WriteString(formatIntGroupBase(intPart, base))
	if n.scale > 0 {
		sb.WriteByte('.')
		sb.WriteString(formatFracGroupBase(fracPart, n.scale, base))
	}
	return sb.String()
}

// formatIntBase renders v in an output base 2..16 as single hex-style
// glyphs.
func formatIntBase(v *big.Int, base int) string {
	if v.Sign() == 0 {
		return "0"
	}
	b := big.NewInt(int64(base))
	var digits []byte
	t := new(big.Int).Set(v)
	for t.Sign() > 0 {
		m := new(big.Int)
		t.DivMod(t, b, m)
		digits = append(digits, hexDigits[m.Int64()])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// formatFracBase converts the fractional mantissa (value/10^decScale)
// into decScale digits of an output base 2..16, by repeated
// multiply-by-base and take-integer-part, matching bc's fractional
// radix-conversion loop.
func formatFracBase(frac *big.Int, decScale, base int) string {
	num := new(big.Int).Set(frac)
	denom := pow10(decScale)
	b := big.NewInt(int64(base))
	var out []byte
	for i := 0; i < decScale && num.Sign() != 0; i++ {
		num.Mul(num, b)
		d := new(big.Int).Quo(num, denom)
		num.Mod(num, denom)
		out = append(out, hexDigits[d.Int64()])
	}
	for len(out) < decScale {
		out = append(out, '0')
	}
	return string(out)
}

// groupWidth is the decimal column width bc reserves for one "digit"
// of an output base above 16: the number of decimal digits needed to
// spell the largest possible digit value, base-1.
func groupWidth(base int) int {
	return len(strconv.Itoa(base - 1))
}

// formatIntGroupBase renders v in an output base above 16 the way bc
// does: space-separated, zero-padded decimal digit groups, one per
// base-`base` digit (program.c's out_long, taken whenever the output
// base exceeds the single-character glyph range).
func formatIntGroupBase(v *big.Int, base int) string {
	width := groupWidth(base)
	if v.Sign() == 0 {
		return strings.Repeat("0", width)
	}
	b := big.NewInt(int64(base))
	var groups []string
	t := new(big.Int).Set(v)
	for t.Sign() > 0 {
		m := new(big.Int)
		t.DivMod(t, b, m)
		groups = append(groups, zeroPad(m.Int64(), width))
	}
	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}
	return strings.Join(groups, " ")
}

// formatFracGroupBase is formatFracBase's counterpart for output bases
// above 16: the same repeated-multiply radix conversion, rendering
// each resulting digit as a zero-padded decimal group instead of a
// single glyph.
func formatFracGroupBase(frac *big.Int, decScale, base int) string {
	width := groupWidth(base)
	num := new(big.Int).Set(frac)
	denom := pow10(decScale)
	b := big.NewInt(int64(base))
	var groups []string
	for i := 0; i < decScale && num.Sign() != 0; i++ {
		num.Mul(num, b)
		d := new(big.Int).Quo(num, denom)
		num.Mod(num, denom)
		groups = append(groups, zeroPad(d.Int64(), width))
	}
	for len(groups) < decScale {
		groups = append(groups, strings.Repeat("0", width))
	}
	return strings.Join(groups, " ")
}

func zeroPad(v int64, width int) string {
	s := strconv.FormatInt(v, 10)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// PrintTo writes n's digit string to w in the given base, inserting a
// "\\\n" continuation every LineLength columns and tracking the
// column counter *nchars across calls (spec §4.6 "nchars", §4.5
// PRINT/PRINT_EXPR). It does not itself append a trailing newline;
// callers add one for PRINT but not PRINT_EXPR.
func PrintTo(w io.Writer, n *Number, base int, nchars *int) error {
	s := n.Format(base)
	for i := 0; i < len(s); i++ {
		if *nchars >= LineLength-1 {
			if _, err := io.WriteString(w, "\\\n"); err != nil {
				return err
			}
			*nchars = 0
		}
		if _, err := w.Write([]byte{s[i]}); err != nil {
			return err
		}
		*nchars++
	}
	return nil
}
