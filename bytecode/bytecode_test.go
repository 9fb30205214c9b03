package bytecode

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderEncodesLoadConst(t *testing.T) {
	b := NewBuilder()
	b.LoadConst(3, 2)
	expr := b.Finish("3/2")

	d := NewDecoder(expr.Bytes())
	instr, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, OpLoadConst, instr.Op)
	assert.Equal(t, int32(3), instr.Num)
	assert.Equal(t, int32(2), instr.Den)
	assert.True(t, d.Done())
}

func TestBuilderEncodesLoadConstBigRoundTrip(t *testing.T) {
	b := NewBuilder()
	big1, _ := new(big.Int).SetString("-123456789012345678901234567890", 10)
	b.LoadConstBig(big1, big.NewInt(7))
	expr := b.Finish("")

	d := NewDecoder(expr.Bytes())
	instr, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, OpLoadConstBig, instr.Op)
	assert.Equal(t, 0, instr.BigNum.Cmp(big1))
	assert.Equal(t, 0, instr.BigDen.Cmp(big.NewInt(7)))
}

func TestBuilderRecordsRefsAndBaseFlag(t *testing.T) {
	b := NewBuilder()
	b.LoadBase(VarFrequency)
	b.LoadRef(NoteID(5), VarStartTime)
	b.Add()
	expr := b.Finish("base.f + [5].t")

	assert.True(t, expr.ReferencesBase)
	assert.Equal(t, []NoteID{5}, expr.ReferencedNoteIDs())
}

func TestLoadBaseDoesNotAddNoteZeroAsDependency(t *testing.T) {
	b := NewBuilder()
	b.LoadBase(VarTempo)
	expr := b.Finish("base.tempo")
	assert.Empty(t, expr.Refs)
	assert.True(t, expr.ReferencesBase)
}

func TestDecodeFullInstructionSequence(t *testing.T) {
	b := NewBuilder()
	b.LoadConst(440, 1)
	b.LoadConst(3, 2)
	b.Mul()
	b.Dup()
	b.Swap()
	b.Neg()
	b.Pow()
	b.FindTempo()
	b.FindMeasure()
	expr := b.Finish("")

	d := NewDecoder(expr.Bytes())
	var ops []Op
	for !d.Done() {
		instr, err := d.Next()
		require.NoError(t, err)
		ops = append(ops, instr.Op)
	}
	assert.Equal(t, []Op{
		OpLoadConst, OpLoadConst, OpMul, OpDup, OpSwap, OpNeg, OpPow, OpFindTempo, OpFindMeasure,
	}, ops)
}

func TestDecodeTruncatedStreamErrors(t *testing.T) {
	d := NewDecoder([]byte{byte(OpLoadConst), 0, 0})
	_, err := d.Next()
	assert.Error(t, err)
}

func TestDecodeUnknownOpcodeErrors(t *testing.T) {
	d := NewDecoder([]byte{0xFF})
	_, err := d.Next()
	assert.Error(t, err)
}

func TestExpressionCloneIsIndependent(t *testing.T) {
	b := NewBuilder()
	b.LoadRef(NoteID(1), VarFrequency)
	expr := b.Finish("[1].f")

	clone := expr.Clone()
	clone.Refs[99] = struct{}{}
	assert.NotContains(t, expr.Refs, NoteID(99))
}
