package rational

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactPowSimpleIntegerExponent(t *testing.T) {
	r, ok := ExactPow(New(2, 1), New(3, 1))
	assert.True(t, ok)
	assert.True(t, r.Equals(New(8, 1)))
}

func TestExactPowZeroExponent(t *testing.T) {
	r, ok := ExactPow(New(7, 3), Zero())
	assert.True(t, ok)
	assert.True(t, r.IsOne())
}

func TestExactPowPerfectRoot(t *testing.T) {
	// (4/9)^(1/2) == 2/3
	r, ok := ExactPow(New(4, 9), New(1, 2))
	assert.True(t, ok)
	assert.True(t, r.Equals(New(2, 3)))
}

func TestExactPowNegativeBaseOddRootPreservesSign(t *testing.T) {
	r, ok := ExactPow(New(-8, 1), New(1, 3))
	assert.True(t, ok)
	assert.True(t, r.Equals(New(-2, 1)))
}

func TestExactPowNegativeBaseEvenRootFails(t *testing.T) {
	_, ok := ExactPow(New(-4, 1), New(1, 2))
	assert.False(t, ok)
}

func TestExactPowNonPerfectRootFails(t *testing.T) {
	// 2^(1/12) is irrational; no exact rational result exists.
	_, ok := ExactPow(New(2, 1), New(1, 12))
	assert.False(t, ok)
}

// TestOctaveClosure is testable property 6 from spec.md §8: twelve
// consecutive applications of 2^(1/12) as a multiplicative step, when
// combined symbolically as 2^(12/12), collapse to an exact 2 — so
// 440 * 2^(12/12) == 880 exactly, even though each individual factor
// 2^(1/12) is irrational on its own.
func TestOctaveClosure(t *testing.T) {
	combinedExponent := New(12, 12)
	r, ok := ExactPow(New(2, 1), combinedExponent)
	assert.True(t, ok)
	assert.True(t, r.Equals(New(2, 1)))

	result := New(440, 1).Mul(r)
	assert.True(t, result.Equals(New(880, 1)))
}

func TestValuePowLiftsToIrrationalOnFailure(t *testing.T) {
	base := FromRational(New(2, 1))
	exp := FromRational(New(1, 12))
	got := base.Pow(exp)
	assert.False(t, got.IsRational())
}

func TestValuePowStaysExactOnSuccess(t *testing.T) {
	base := FromRational(New(4, 9))
	exp := FromRational(New(1, 2))
	got := base.Pow(exp)
	assert.True(t, got.IsRational())
	assert.True(t, got.Rational().Equals(New(2, 3)))
}

func TestValueLiftRulesBinaryOps(t *testing.T) {
	r := FromRational(New(1, 2))
	i := FromFloat(0.25)

	assert.False(t, r.Add(i).IsRational())
	assert.False(t, r.Mul(i).IsRational())
	assert.True(t, r.Add(FromRational(New(1, 2))).IsRational())
}

func TestValueDivByZeroFloatPathReturnsOne(t *testing.T) {
	got := FromFloat(5.0).Div(FromFloat(0.0))
	assert.Equal(t, 1.0, got.ToFloat64())
}
