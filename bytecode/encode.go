package bytecode

import "math/big"

// Builder accumulates a stream of instructions into a growable buffer
// and finalizes it into an *Expression. It is the write side of the
// wire format described in spec §4.2: all multi-byte operands are
// written big-endian regardless of host byte order.
type Builder struct {
	buf            []byte
	refs           map[NoteID]struct{}
	referencesBase bool
}

func NewBuilder() *Builder {
	return &Builder{refs: make(map[NoteID]struct{})}
}

func (b *Builder) putU16(v uint16) {
	b.buf = append(b.buf, byte(v>>8), byte(v))
}

func (b *Builder) putI32(v int32) {
	u := uint32(v)
	b.buf = append(b.buf, byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

// LoadConst pushes Rational(num/den).
func (b *Builder) LoadConst(num, den int32) {
	b.buf = append(b.buf, byte(OpLoadConst))
	b.putI32(num)
	b.putI32(den)
}

// LoadConstBig pushes a Rational built from arbitrary-precision
// numerator/denominator magnitudes. sign is carried once for the
// numerator; the denominator is always written as a positive magnitude
// (Rational construction normalizes sign onto the numerator anyway).
func (b *Builder) LoadConstBig(n, d *big.Int) {
	b.buf = append(b.buf, byte(OpLoadConstBig))

	sign := byte(0)
	magN := n
	if n.Sign() < 0 {
		sign = 1
		magN = new(big.Int).Neg(n)
	}
	nBytes := magN.Bytes()
	b.buf = append(b.buf, sign)
	b.putU16(uint16(len(nBytes)))
	b.buf = append(b.buf, nBytes...)

	magD := d
	if d.Sign() < 0 {
		magD = new(big.Int).Neg(d)
	}
	dBytes := magD.Bytes()
	b.putU16(uint16(len(dBytes)))
	b.buf = append(b.buf, dBytes...)
}

// LoadRef pushes cache[note].var(varIdx) and records note as an
// explicit dependency.
func (b *Builder) LoadRef(note NoteID, v Var) {
	b.buf = append(b.buf, byte(OpLoadRef))
	b.putU16(uint16(note))
	b.buf = append(b.buf, byte(v))
	b.refs[note] = struct{}{}
}

// LoadBase pushes cache[0].var(varIdx) and marks the expression as
// base-referencing, without adding note 0 to the explicit dependency
// set (spec §4.3, §9: avoids a trivial self-edge on BaseNote's own
// expressions).
func (b *Builder) LoadBase(v Var) {
	b.buf = append(b.buf, byte(OpLoadBase))
	b.buf = append(b.buf, byte(v))
	b.referencesBase = true
}

func (b *Builder) op0(op Op) { b.buf = append(b.buf, byte(op)) }

func (b *Builder) Add()          { b.op0(OpAdd) }
func (b *Builder) Sub()          { b.op0(OpSub) }
func (b *Builder) Mul()          { b.op0(OpMul) }
func (b *Builder) Div()          { b.op0(OpDiv) }
func (b *Builder) Neg()          { b.op0(OpNeg) }
func (b *Builder) Pow()          { b.op0(OpPow) }
func (b *Builder) FindTempo()    { b.op0(OpFindTempo) }
func (b *Builder) FindMeasure()  { b.op0(OpFindMeasure) }
func (b *Builder) Dup()          { b.op0(OpDup) }
func (b *Builder) Swap()         { b.op0(OpSwap) }

// PushNoteRefOperand pushes a pseudo-value operand for FIND_TEMPO /
// FIND_MEASURE: the note id encoded as Rational(n/1). base (note ==
// BaseNoteID passed with isBase) marks references_base instead of
// adding an explicit dependency, mirroring LoadBase's rule; a concrete
// [n] reference is recorded exactly like LoadRef.
func (b *Builder) PushNoteRefOperand(note NoteID, isBase bool) {
	b.LoadConst(int32(note), 1)
	if isBase {
		b.referencesBase = true
	} else {
		b.refs[note] = struct{}{}
	}
}

// Finish produces the finished Expression, attaching source for
// round-trip display.
func (b *Builder) Finish(source string) *Expression {
	code := make([]byte, len(b.buf))
	copy(code, b.buf)
	return &Expression{
		Code:           code,
		Used:           len(code),
		Source:         source,
		Refs:           b.refs,
		ReferencesBase: b.referencesBase,
	}
}
