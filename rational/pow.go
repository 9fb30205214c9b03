package rational

import (
	"math"
	"math/big"
)

// maxExactExponent bounds the integer exponents ExactPow is willing to try
// with big.Int arithmetic before giving up and falling back to float64.
// Musical exponents (equal-temperament roots, simple ratios) never
// approach this; it exists purely to keep a pathological expression from
// spending unbounded CPU computing a huge integer power exactly.
const maxExactExponent = 1 << 20

// ExactPow attempts the exact-power test of spec §4.1: given rational
// base b = ±p/q and rational exponent e = s/t (both lowest terms), it
// tries to produce an exact rational b^e. ok is false when no exact
// rational result exists (or the inputs exceed the bounds this routine
// is willing to search); Value.Pow then keeps b^e as a pending Symbolic
// term rather than computing a float64 power.
func ExactPow(b Rational, e Rational) (Rational, bool) {
	s := e.num
	t := e.den

	if s.Sign() == 0 {
		return One(), true
	}
	if t.Cmp(big.NewInt(1)) == 0 {
		if !s.IsInt64() || abs64(s.Int64()) > maxExactExponent {
			return Rational{}, false
		}
		return b.IntegerPow(s.Int64()), true
	}
	if !s.IsInt64() || !t.IsInt64() {
		return Rational{}, false
	}
	sI := s.Int64()
	tI := t.Int64()
	if abs64(sI) > maxExactExponent || tI > maxExactExponent {
		return Rational{}, false
	}

	powered := b.IntegerPow(sI)
	if powered.IsZero() {
		return Zero(), true
	}

	negative := powered.IsNegative()
	if negative && tI%2 == 0 {
		// even root of a negative radicand is not real-valued.
		return Rational{}, false
	}

	numMag := new(big.Int).Abs(powered.num)
	denMag := new(big.Int).Abs(powered.den)

	numRoot, ok := exactIntegerRoot(numMag, tI)
	if !ok {
		return Rational{}, false
	}
	denRoot, ok := exactIntegerRoot(denMag, tI)
	if !ok {
		return Rational{}, false
	}

	if negative {
		numRoot.Neg(numRoot)
	}
	return normalize(numRoot, denRoot), true
}

// exactIntegerRoot searches for an integer y such that y^t == x, by
// rounding x^(1/t) to the nearest candidate and checking its immediate
// neighbors to absorb floating-point rounding error.
func exactIntegerRoot(x *big.Int, t int64) (*big.Int, bool) {
	if x.Sign() == 0 {
		return big.NewInt(0), true
	}
	xf := new(big.Float).SetInt(x)
	f64, _ := xf.Float64()
	approx := math.Pow(f64, 1.0/float64(t))
	candidate := int64(math.Round(approx))

	for _, delta := range []int64{0, 1, -1, 2, -2} {
		c := candidate + delta
		if c <= 0 {
			continue
		}
		cb := big.NewInt(c)
		powered := new(big.Int).Exp(cb, big.NewInt(t), nil)
		if powered.Cmp(x) == 0 {
			return cb, true
		}
	}
	return nil, false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
