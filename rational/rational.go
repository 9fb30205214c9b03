// Package rational implements exact arbitrary-precision rational arithmetic
// and the Rational/Irrational value lift used throughout the expression
// evaluator. Rationals are always kept in lowest terms with a
// positive denominator.
package rational

import (
	"fmt"
	"math/big"
)

// Rational is an arbitrary-precision signed rational number, always
// normalized so the denominator is positive and gcd(|num|, den) == 1.
type Rational struct {
	num *big.Int
	den *big.Int
}

// Zero, One are the additive and multiplicative identities.
func Zero() Rational { return Rational{big.NewInt(0), big.NewInt(1)} }
func One() Rational  { return Rational{big.NewInt(1), big.NewInt(1)} }

// New builds a Rational from int64 numerator/denominator, reducing to
// lowest terms and normalizing the sign onto the numerator. d == 0 panics;
// callers at the language boundary (bytecode LOAD_CONST, parser literals)
// must never construct a zero denominator directly.
func New(n, d int64) Rational {
	if d == 0 {
		panic("rational: zero denominator")
	}
	return normalize(big.NewInt(n), big.NewInt(d))
}

// NewFromBigInt is New for arbitrary-precision operands, used by
// LOAD_CONST_BIG decoding.
func NewFromBigInt(n, d *big.Int) Rational {
	if d.Sign() == 0 {
		panic("rational: zero denominator")
	}
	return normalize(new(big.Int).Set(n), new(big.Int).Set(d))
}

func normalize(n, d *big.Int) Rational {
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), d)
	if g.Sign() != 0 && g.Cmp(big.NewInt(1)) != 0 {
		n.Quo(n, g)
		d.Quo(d, g)
	}
	return Rational{num: n, den: d}
}

// Num and Den expose the reduced numerator/denominator. The returned
// values are copies; callers must not mutate them.
func (r Rational) Num() *big.Int { return new(big.Int).Set(r.num) }
func (r Rational) Den() *big.Int { return new(big.Int).Set(r.den) }

func (r Rational) String() string {
	if r.den.Cmp(big.NewInt(1)) == 0 {
		return r.num.String()
	}
	return fmt.Sprintf("%s/%s", r.num.String(), r.den.String())
}

func (r Rational) Add(o Rational) Rational {
	n := new(big.Int).Add(new(big.Int).Mul(r.num, o.den), new(big.Int).Mul(o.num, r.den))
	d := new(big.Int).Mul(r.den, o.den)
	return normalize(n, d)
}

func (r Rational) Sub(o Rational) Rational {
	return r.Add(o.Neg())
}

func (r Rational) Mul(o Rational) Rational {
	n := new(big.Int).Mul(r.num, o.num)
	d := new(big.Int).Mul(r.den, o.den)
	return normalize(n, d)
}

// Div divides by o. Division by zero is a documented product decision,
// not an error: it returns One(), matching legacy callers that treat it
// as a recoverable fault rather than a type-level error. Use DivChecked
// in strict contexts (see module.Strict).
func (r Rational) Div(o Rational) Rational {
	if o.IsZero() {
		return One()
	}
	return r.Mul(o.Inverse())
}

// ErrDivByZero is returned by DivChecked; strict callers surface it as a
// soft-fault diagnostic instead of silently substituting 1.
var ErrDivByZero = fmt.Errorf("rational: division by zero")

// DivChecked is Div but rejects zero divisors instead of silently
// returning One(). Only used when module.Strict is enabled.
func (r Rational) DivChecked(o Rational) (Rational, error) {
	if o.IsZero() {
		return Rational{}, ErrDivByZero
	}
	return r.Div(o), nil
}

func (r Rational) Neg() Rational {
	return Rational{num: new(big.Int).Neg(r.num), den: new(big.Int).Set(r.den)}
}

// Inverse returns 1/r. Inverting zero returns One(), consistent with Div's
// zero-division convention.
func (r Rational) Inverse() Rational {
	if r.IsZero() {
		return One()
	}
	n, d := r.num, r.den
	if n.Sign() < 0 {
		n = new(big.Int).Neg(n)
		d = new(big.Int).Neg(d)
	}
	return Rational{num: new(big.Int).Set(d), den: new(big.Int).Set(n)}
}

// IntegerPow raises r to an integer power by repeated multiplication.
// 0^0 == 1; negative exponents invert first.
func (r Rational) IntegerPow(n int64) Rational {
	if n == 0 {
		return One()
	}
	neg := n < 0
	if neg {
		n = -n
	}
	base := r
	result := One()
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	if neg {
		return result.Inverse()
	}
	return result
}

func (r Rational) Equals(o Rational) bool {
	return r.num.Cmp(o.num) == 0 && r.den.Cmp(o.den) == 0
}

// Compare returns -1, 0, 1 as r is less than, equal to, or greater than o.
func (r Rational) Compare(o Rational) int {
	lhs := new(big.Int).Mul(r.num, o.den)
	rhs := new(big.Int).Mul(o.num, r.den)
	return lhs.Cmp(rhs)
}

func (r Rational) IsZero() bool     { return r.num.Sign() == 0 }
func (r Rational) IsOne() bool      { return r.num.Cmp(r.den) == 0 }
func (r Rational) IsNegative() bool { return r.num.Sign() < 0 }

// IsInteger reports whether r reduces to a whole number.
func (r Rational) IsInteger() bool { return r.den.Cmp(big.NewInt(1)) == 0 }

// ToInt64 returns r's value as an int64 when r is an integer that
// fits; ok is false for non-integers or values outside int64 range.
func (r Rational) ToInt64() (int64, bool) {
	if !r.IsInteger() || !r.num.IsInt64() {
		return 0, false
	}
	return r.num.Int64(), true
}

// ToFloat64 is a best-effort float approximation.
func (r Rational) ToFloat64() float64 {
	f := new(big.Rat).SetFrac(r.num, r.den)
	v, _ := f.Float64()
	return v
}
