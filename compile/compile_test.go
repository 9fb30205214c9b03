package compile

import (
	"testing"

	"noteforge/bytecode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileIntegerLiteral(t *testing.T) {
	expr, err := Compile("440")
	require.NoError(t, err)

	d := bytecode.NewDecoder(expr.Bytes())
	instr, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, bytecode.OpLoadConst, instr.Op)
	assert.Equal(t, int32(440), instr.Num)
	assert.Equal(t, int32(1), instr.Den)
	assert.True(t, d.Done())
}

func TestCompileRatioLiteral(t *testing.T) {
	expr, err := Compile("(3/2)")
	require.NoError(t, err)

	d := bytecode.NewDecoder(expr.Bytes())
	instr, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, int32(3), instr.Num)
	assert.Equal(t, int32(2), instr.Den)
}

func TestCompileArithmeticPrecedence(t *testing.T) {
	// 2 + 3 * 4 must evaluate product before sum: LOAD 2, LOAD 3, LOAD 4, MUL, ADD
	expr, err := Compile("2 + 3 * 4")
	require.NoError(t, err)

	d := bytecode.NewDecoder(expr.Bytes())
	var ops []bytecode.Op
	for !d.Done() {
		instr, err := d.Next()
		require.NoError(t, err)
		ops = append(ops, instr.Op)
	}
	assert.Equal(t, []bytecode.Op{
		bytecode.OpLoadConst, bytecode.OpLoadConst, bytecode.OpLoadConst, bytecode.OpMul, bytecode.OpAdd,
	}, ops)
}

func TestCompilePowerAndUnary(t *testing.T) {
	expr, err := Compile("-2^3")
	require.NoError(t, err)
	d := bytecode.NewDecoder(expr.Bytes())
	var ops []bytecode.Op
	for !d.Done() {
		instr, err := d.Next()
		require.NoError(t, err)
		ops = append(ops, instr.Op)
	}
	// Unary binds tighter than postfix '^' parsing here walks unary first,
	// so -2 is the base: LOAD 2, NEG, LOAD 3, POW.
	assert.Equal(t, []bytecode.Op{
		bytecode.OpLoadConst, bytecode.OpNeg, bytecode.OpLoadConst, bytecode.OpPow,
	}, ops)
}

func TestCompileBaseAndNoteRefs(t *testing.T) {
	expr, err := Compile("base.f + [5].t")
	require.NoError(t, err)
	assert.True(t, expr.ReferencesBase)
	assert.Equal(t, []bytecode.NoteID{5}, expr.ReferencedNoteIDs())
}

func TestCompileBeatLowersToFindTempoDiv(t *testing.T) {
	expr, err := Compile("beat([2])")
	require.NoError(t, err)
	d := bytecode.NewDecoder(expr.Bytes())
	var ops []bytecode.Op
	for !d.Done() {
		instr, err := d.Next()
		require.NoError(t, err)
		ops = append(ops, instr.Op)
	}
	assert.Equal(t, []bytecode.Op{
		bytecode.OpLoadConst, bytecode.OpLoadConst, bytecode.OpFindTempo, bytecode.OpDiv,
	}, ops)
	assert.Equal(t, []bytecode.NoteID{2}, expr.ReferencedNoteIDs())
}

func TestCompileTempoLoadsPropertyDirectly(t *testing.T) {
	expr, err := Compile("tempo(base)")
	require.NoError(t, err)
	d := bytecode.NewDecoder(expr.Bytes())
	instr, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, bytecode.OpLoadBase, instr.Op)
	assert.Equal(t, bytecode.VarTempo, instr.Var)
}

func TestCompileBigIntegerLiteral(t *testing.T) {
	expr, err := Compile("123456789012345678901234567890")
	require.NoError(t, err)
	d := bytecode.NewDecoder(expr.Bytes())
	instr, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, bytecode.OpLoadConstBig, instr.Op)
	assert.Equal(t, "123456789012345678901234567890", instr.BigNum.String())
}

func TestCompileDecimalExactTableEntry(t *testing.T) {
	expr, err := Compile("0.25")
	require.NoError(t, err)
	d := bytecode.NewDecoder(expr.Bytes())
	instr, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, int32(1), instr.Num)
	assert.Equal(t, int32(4), instr.Den)
}

func TestCompileDecimalRationalizationRespectsDenominatorCap(t *testing.T) {
	expr, err := Compile("0.1234567")
	require.NoError(t, err)
	d := bytecode.NewDecoder(expr.Bytes())
	instr, err := d.Next()
	require.NoError(t, err)
	assert.LessOrEqual(t, instr.Den, int32(MaxDecimalDenominator))
}

func TestCompileEmptySourceErrors(t *testing.T) {
	_, err := Compile("")
	assert.Error(t, err)
}

func TestCompileUnknownPropertyErrors(t *testing.T) {
	_, err := Compile("base.bogus")
	assert.Error(t, err)
}

func TestCompileMalformedSourceErrors(t *testing.T) {
	_, err := Compile("1 +")
	assert.Error(t, err)
}

// TestLegacyAndDSLAgree verifies scenario S5: the legacy and modern
// forms of semantically equivalent expressions compile to identical
// bytecode.
func TestLegacyAndDSLAgree(t *testing.T) {
	dsl, err := Compile("base.f + [3].t")
	require.NoError(t, err)
	legacy, err := Compile(`module.baseNote.getVariable('frequency').add(module.getNoteById(3).getVariable('startTime'))`)
	require.NoError(t, err)
	assert.Equal(t, dsl.Bytes(), legacy.Bytes())
}

func TestCacheReturnsIndependentClones(t *testing.T) {
	c := NewCache()
	a, err := c.Get("base.f")
	require.NoError(t, err)
	b, err := c.Get("base.f")
	require.NoError(t, err)

	a.Refs[77] = struct{}{}
	assert.NotContains(t, b.Refs, bytecode.NoteID(77))
	assert.Equal(t, 1, c.Len())
}
