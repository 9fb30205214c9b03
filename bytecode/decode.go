package bytecode

import (
	"fmt"
	"math/big"
)

// Instr is one decoded instruction: the opcode plus whichever operand
// fields it carries. Unused fields are zero.
type Instr struct {
	Op     Op
	Num    int32 // LOAD_CONST
	Den    int32 // LOAD_CONST
	BigNum *big.Int
	BigDen *big.Int
	Note   NoteID
	Var    Var
}

// Decoder steps sequentially through a bytecode stream.
type Decoder struct {
	code []byte
	pos  int
}

func NewDecoder(code []byte) *Decoder {
	return &Decoder{code: code}
}

func (d *Decoder) Done() bool { return d.pos >= len(d.code) }

// Pos returns the current byte offset, mainly useful for diagnostics.
func (d *Decoder) Pos() int { return d.pos }

func (d *Decoder) need(n int) error {
	if d.pos+n > len(d.code) {
		return fmt.Errorf("bytecode: truncated instruction at offset %d (need %d bytes, have %d)", d.pos, n, len(d.code)-d.pos)
	}
	return nil
}

func (d *Decoder) u16() uint16 {
	v := uint16(d.code[d.pos])<<8 | uint16(d.code[d.pos+1])
	d.pos += 2
	return v
}

func (d *Decoder) i32() int32 {
	v := int32(uint32(d.code[d.pos])<<24 | uint32(d.code[d.pos+1])<<16 | uint32(d.code[d.pos+2])<<8 | uint32(d.code[d.pos+3]))
	d.pos += 4
	return v
}

// Next decodes and returns the next instruction, advancing the cursor.
// A malformed or truncated stream is a hard (but locally recoverable,
// per spec §7) error for the caller.
func (d *Decoder) Next() (Instr, error) {
	if d.Done() {
		return Instr{}, fmt.Errorf("bytecode: read past end of stream")
	}
	op := Op(d.code[d.pos])
	d.pos++

	switch op {
	case OpLoadConst:
		if err := d.need(8); err != nil {
			return Instr{}, err
		}
		num := d.i32()
		den := d.i32()
		return Instr{Op: op, Num: num, Den: den}, nil

	case OpLoadConstBig:
		if err := d.need(1); err != nil {
			return Instr{}, err
		}
		sign := d.code[d.pos]
		d.pos++
		if err := d.need(2); err != nil {
			return Instr{}, err
		}
		nLen := int(d.u16())
		if err := d.need(nLen); err != nil {
			return Instr{}, err
		}
		nBytes := d.code[d.pos : d.pos+nLen]
		d.pos += nLen
		n := new(big.Int).SetBytes(nBytes)
		if sign != 0 {
			n.Neg(n)
		}

		if err := d.need(2); err != nil {
			return Instr{}, err
		}
		dLen := int(d.u16())
		if err := d.need(dLen); err != nil {
			return Instr{}, err
		}
		dBytes := d.code[d.pos : d.pos+dLen]
		d.pos += dLen
		den := new(big.Int).SetBytes(dBytes)
		if den.Sign() == 0 {
			den = big.NewInt(1)
		}
		return Instr{Op: op, BigNum: n, BigDen: den}, nil

	case OpLoadRef:
		if err := d.need(3); err != nil {
			return Instr{}, err
		}
		note := NoteID(d.u16())
		v := Var(d.code[d.pos])
		d.pos++
		return Instr{Op: op, Note: note, Var: v}, nil

	case OpLoadBase:
		if err := d.need(1); err != nil {
			return Instr{}, err
		}
		v := Var(d.code[d.pos])
		d.pos++
		return Instr{Op: op, Var: v}, nil

	case OpAdd, OpSub, OpMul, OpDiv, OpNeg, OpPow, OpFindTempo, OpFindMeasure, OpDup, OpSwap:
		return Instr{Op: op}, nil

	default:
		return Instr{}, fmt.Errorf("bytecode: unknown opcode 0x%02x at offset %d", byte(op), d.pos-1)
	}
}
