package eval

import (
	"testing"

	"noteforge/bytecode"
	"noteforge/compile"
	"noteforge/rational"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator() (*Evaluator, *Cache) {
	cache := NewCache()
	cache.Set(bytecode.BaseNoteID, EvaluatedNote{
		Values: [bytecode.NumVars]rational.Value{
			bytecode.VarFrequency: rational.FromRational(rational.New(440, 1)),
			bytecode.VarStartTime: rational.FromRational(rational.New(0, 1)),
			bytecode.VarTempo:     rational.FromRational(rational.New(60, 1)),
		},
		Have: [bytecode.NumVars]bool{
			bytecode.VarFrequency: true,
			bytecode.VarStartTime: true,
			bytecode.VarTempo:     true,
		},
	})
	return NewEvaluator(NewPool(), cache), cache
}

func TestExecuteSimpleArithmetic(t *testing.T) {
	ev, _ := newTestEvaluator()
	expr, err := compile.Compile("base.f * (3/2)")
	require.NoError(t, err)

	v, corruption, err := ev.Execute(expr, bytecode.VarFrequency)
	require.NoError(t, err)
	assert.Equal(t, CorruptionMask(0), corruption)
	require.True(t, v.IsRational())
	assert.Equal(t, "660", v.Rational().String())
}

func TestExecuteMissingReferenceUsesDefault(t *testing.T) {
	ev, _ := newTestEvaluator()
	expr, err := compile.Compile("[99].f")
	require.NoError(t, err)

	v, _, err := ev.Execute(expr, bytecode.VarFrequency)
	require.NoError(t, err)
	assert.Equal(t, "440", v.Rational().String())
}

func TestExecutePowCorruptionBitSet(t *testing.T) {
	ev, _ := newTestEvaluator()
	expr, err := compile.Compile("2^(1/3)")
	require.NoError(t, err)

	_, corruption, err := ev.Execute(expr, bytecode.VarFrequency)
	require.NoError(t, err)
	assert.NotZero(t, corruption&CorruptFrequency)
}

func TestExecuteOctaveClosure(t *testing.T) {
	// spec §8 property 6: twelve LOAD_CONST 2,1; LOAD_CONST 1,12; POW;
	// MUL steps from 440 reduce exactly to 880, corruption bit set.
	b := bytecode.NewBuilder()
	b.LoadConst(440, 1)
	for i := 0; i < 12; i++ {
		b.LoadConst(2, 1)
		b.LoadConst(1, 12)
		b.Pow()
		b.Mul()
	}
	expr := b.Finish("")

	ev, _ := newTestEvaluator()
	v, corruption, err := ev.Execute(expr, bytecode.VarFrequency)
	require.NoError(t, err)
	require.True(t, v.IsRational())
	assert.Equal(t, "880", v.Rational().String())
	assert.NotZero(t, corruption&CorruptFrequency)
}

func TestExecuteBeatUsesFindTempoChain(t *testing.T) {
	ev, _ := newTestEvaluator()
	expr, err := compile.Compile("beat(base)")
	require.NoError(t, err)

	v, _, err := ev.Execute(expr, bytecode.VarDuration)
	require.NoError(t, err)
	assert.Equal(t, "1", v.Rational().String())
}

func TestExecuteFindMeasureDerivesFromBeatsPerMeasureAndTempo(t *testing.T) {
	ev, cache := newTestEvaluator()
	cache.Set(bytecode.BaseNoteID, EvaluatedNote{
		Values: [bytecode.NumVars]rational.Value{
			bytecode.VarTempo:           rational.FromRational(rational.New(120, 1)),
			bytecode.VarBeatsPerMeasure: rational.FromRational(rational.New(3, 1)),
		},
		Have: [bytecode.NumVars]bool{
			bytecode.VarTempo:           true,
			bytecode.VarBeatsPerMeasure: true,
		},
	})
	expr, err := compile.Compile("module.findMeasureLength(module.baseNote)")
	require.NoError(t, err)

	v, _, err := ev.Execute(expr, bytecode.VarMeasureLength)
	require.NoError(t, err)
	assert.Equal(t, "3/2", v.Rational().String())
}

func TestExecuteMalformedBytecodeReturnsDefault(t *testing.T) {
	ev, _ := newTestEvaluator()
	expr := &bytecode.Expression{Code: []byte{byte(bytecode.OpAdd)}, Used: 1}

	v, _, err := ev.Execute(expr, bytecode.VarFrequency)
	assert.Error(t, err)
	assert.Equal(t, "440", v.Rational().String())
}

func TestExecuteDivByZeroReturnsOneWhenNotStrict(t *testing.T) {
	ev, _ := newTestEvaluator()
	expr, err := compile.Compile("1 / 0")
	require.NoError(t, err)

	v, _, err := ev.Execute(expr, bytecode.VarFrequency)
	require.NoError(t, err)
	assert.Equal(t, "1", v.Rational().String())
}

func TestExecuteStrictDivByZeroFaultsToDefault(t *testing.T) {
	_, cache := newTestEvaluator()
	ev := NewStrictEvaluator(NewPool(), cache)
	expr, err := compile.Compile("1 / 0")
	require.NoError(t, err)

	v, _, err := ev.Execute(expr, bytecode.VarFrequency)
	require.ErrorIs(t, err, rational.ErrDivByZero)
	assert.Equal(t, "440", v.Rational().String())
}

func TestPoolResetReleasesSlotsForReuse(t *testing.T) {
	p := NewPool()
	for i := 0; i < initialPoolSize+5; i++ {
		p.Alloc(rational.FromRational(rational.New(int64(i), 1)))
	}
	assert.Equal(t, initialPoolSize+5, p.Len())
	p.Reset()
	assert.Equal(t, 0, p.Len())
}
