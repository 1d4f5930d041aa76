package bytecode

// AutoDesc describes one parameter or local ("auto") of a function.
// The first NParams entries of Function.Autos are parameters; the
// rest are plain locals. Spec §3/§4.3.
type AutoDesc struct {
	Name     string
	IsScalar bool
}

// Function is one compiled bc function: main (id 0), read (id 1), or
// a user-defined function. Two reserved ids are handled by the
// program lifecycle (spec §3, §4.6).
type Function struct {
	Name    string
	NParams int
	Autos   []AutoDesc
	Code    []byte
	// Labels maps a compile-time label id to a byte offset in Code.
	Labels map[int]int
}

// NewFunction returns an empty function record ready for the
// assembler/parser to populate.
func NewFunction(name string) *Function {
	return &Function{
		Name:   name,
		Labels: make(map[int]int),
	}
}

// Reset empties a function's body so it can be repopulated in place
// on redefinition, while keeping its table index stable (spec §4.6,
// "Adding a function").
func (f *Function) Reset() {
	f.NParams = 0
	f.Autos = f.Autos[:0]
	f.Code = f.Code[:0]
	for k := range f.Labels {
		delete(f.Labels, k)
	}
}

func (f *Function) WriteOp(op OpCode) {
	f.Code = append(f.Code, byte(op))
}

func (f *Function) WriteByte(b byte) {
	f.Code = append(f.Code, b)
}

// WriteVarUint appends a length-prefixed little-endian integer: one
// byte giving the number of following bytes, then that many bytes,
// least-significant first. Spec §4.5 "Encoding of immediates".
func (f *Function) WriteVarUint(v uint64) {
	var buf []byte
	for v > 0 {
		buf = append(buf, byte(v))
		v >>= 8
	}
	f.Code = append(f.Code, byte(len(buf)))
	f.Code = append(f.Code, buf...)
}

// WriteName appends a colon-terminated ASCII name inline in the code
// stream.
func (f *Function) WriteName(name string) {
	f.Code = append(f.Code, []byte(name)...)
	f.Code = append(f.Code, ':')
}

// PlaceLabel records the current end-of-code offset as the target of
// label id.
func (f *Function) PlaceLabel(id int) {
	f.Labels[id] = len(f.Code)
}

// ReadVarUint decodes a value written by WriteVarUint starting at
// *pos, advancing *pos past it.
func ReadVarUint(code []byte, pos *int) uint64 {
	n := int(code[*pos])
	*pos++
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(code[*pos]) << (8 * uint(i))
		*pos++
	}
	return v
}

// ReadName decodes a colon-terminated name starting at *pos, advancing
// *pos past the terminator.
func ReadName(code []byte, pos *int) string {
	start := *pos
	for code[*pos] != ':' {
		*pos++
	}
	name := string(code[start:*pos])
	*pos++ // skip ':'
	return name
}
