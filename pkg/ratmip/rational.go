// Package ratmip provides exact rational arithmetic for LP bookkeeping.
//
// This file implements the Rational value type: an arbitrary-precision
// rational with first-class infinity sentinels. All exact quantities in the
// package — objective coefficients, bounds, sides, matrix entries — are
// Rationals.
//
// Contract:
//   - A Rational is one of {-inf, finite p/q, +inf}; the finite case is
//     always normalized (lowest terms, positive denominator).
//   - Values are immutable; every operation returns a new value.
//   - Arithmetic that is undefined (inf - inf, 0 * inf, inf / inf, x / 0)
//     panics: such a combination can only arise from a bookkeeping bug and
//     must fail fast rather than poison downstream state.
package ratmip

import (
	"fmt"
	"math"
	"math/big"
)

// ratKind discriminates the three-valued sentinel of a Rational.
type ratKind int8

const (
	ratNegInf ratKind = iota - 1
	ratFinite
	ratPosInf
)

// Rational is an exact rational number with +-infinity sentinels.
// The zero value is the finite number 0.
type Rational struct {
	kind ratKind
	val  *big.Rat // nil for infinities and for the zero value
}

// NewRational creates the finite rational num/den in normalized form.
// Panics if den is zero.
func NewRational(num, den int64) Rational {
	if den == 0 {
		panic("ratmip: rational division by zero")
	}
	return Rational{kind: ratFinite, val: big.NewRat(num, den)}
}

// RatInt creates the finite rational n/1.
func RatInt(n int64) Rational {
	return Rational{kind: ratFinite, val: big.NewRat(n, 1)}
}

// RatZero returns the finite rational 0.
func RatZero() Rational {
	return Rational{}
}

// RationalFromBig creates a finite Rational from a big.Rat. The input is
// copied; the Rational does not alias it.
func RationalFromBig(r *big.Rat) Rational {
	if r == nil {
		panic("ratmip: nil big.Rat")
	}
	return Rational{kind: ratFinite, val: new(big.Rat).Set(r)}
}

// RationalFromFloat creates the exact Rational equal to the given float64.
// Infinities map to the infinity sentinels. Panics on NaN.
func RationalFromFloat(f float64) Rational {
	switch {
	case math.IsNaN(f):
		panic("ratmip: cannot convert NaN to rational")
	case math.IsInf(f, 1):
		return PosInfinity()
	case math.IsInf(f, -1):
		return NegInfinity()
	}
	r := new(big.Rat).SetFloat64(f)
	return Rational{kind: ratFinite, val: r}
}

// PosInfinity returns the +inf sentinel.
func PosInfinity() Rational { return Rational{kind: ratPosInf} }

// NegInfinity returns the -inf sentinel.
func NegInfinity() Rational { return Rational{kind: ratNegInf} }

// IsPosInf reports whether r is +inf.
func (r Rational) IsPosInf() bool { return r.kind == ratPosInf }

// IsNegInf reports whether r is -inf.
func (r Rational) IsNegInf() bool { return r.kind == ratNegInf }

// IsInfinite reports whether r is either infinity.
func (r Rational) IsInfinite() bool { return r.kind != ratFinite }

// IsFinite reports whether r carries a finite value.
func (r Rational) IsFinite() bool { return r.kind == ratFinite }

// rat returns the backing big.Rat, materializing zero for the zero value.
// Must only be called on finite Rationals.
func (r Rational) rat() *big.Rat {
	if r.kind != ratFinite {
		panic("ratmip: finite value required")
	}
	if r.val == nil {
		return new(big.Rat)
	}
	return r.val
}

// Sign returns -1, 0 or +1. Infinities have the obvious signs.
func (r Rational) Sign() int {
	switch r.kind {
	case ratNegInf:
		return -1
	case ratPosInf:
		return 1
	}
	if r.val == nil {
		return 0
	}
	return r.val.Sign()
}

// IsZero reports whether r is the finite number 0.
func (r Rational) IsZero() bool {
	return r.kind == ratFinite && (r.val == nil || r.val.Sign() == 0)
}

// IsIntegral reports whether r is finite with denominator 1.
func (r Rational) IsIntegral() bool {
	return r.kind == ratFinite && (r.val == nil || r.val.IsInt())
}

// Cmp compares r against other, returning -1, 0 or +1. The order is total:
// -inf < every finite value < +inf, and -inf == -inf, +inf == +inf.
func (r Rational) Cmp(other Rational) int {
	if r.kind != other.kind {
		if r.kind < other.kind {
			return -1
		}
		return 1
	}
	if r.kind != ratFinite {
		return 0
	}
	return r.rat().Cmp(other.rat())
}

// Equal reports whether r and other denote the same extended rational.
func (r Rational) Equal(other Rational) bool {
	return r.Cmp(other) == 0
}

// CmpFloat compares r against an f64, returning -1, 0 or +1. The float's
// infinities compare like the sentinels. Panics on NaN.
func (r Rational) CmpFloat(f float64) int {
	return r.Cmp(RationalFromFloat(f))
}

// Neg returns -r. Negation flips the sign of an infinity.
func (r Rational) Neg() Rational {
	switch r.kind {
	case ratNegInf:
		return PosInfinity()
	case ratPosInf:
		return NegInfinity()
	}
	return Rational{kind: ratFinite, val: new(big.Rat).Neg(r.rat())}
}

// Add returns r + other. Panics on inf + (-inf).
func (r Rational) Add(other Rational) Rational {
	if r.kind != ratFinite || other.kind != ratFinite {
		s := r.kind
		if s == ratFinite {
			s = other.kind
		}
		if (r.kind != ratFinite && other.kind != ratFinite) && r.kind != other.kind {
			panic("ratmip: inf + (-inf) is undefined")
		}
		return Rational{kind: s}
	}
	return Rational{kind: ratFinite, val: new(big.Rat).Add(r.rat(), other.rat())}
}

// Sub returns r - other. Panics on inf - inf of equal signs.
func (r Rational) Sub(other Rational) Rational {
	return r.Add(other.Neg())
}

// Mul returns r * other with sign-correct infinity handling.
// Panics on 0 * inf.
func (r Rational) Mul(other Rational) Rational {
	if r.kind != ratFinite || other.kind != ratFinite {
		sr, so := r.Sign(), other.Sign()
		if sr == 0 || so == 0 {
			panic("ratmip: 0 * inf is undefined")
		}
		if sr*so > 0 {
			return PosInfinity()
		}
		return NegInfinity()
	}
	return Rational{kind: ratFinite, val: new(big.Rat).Mul(r.rat(), other.rat())}
}

// Div returns r / other. Division by a finite zero or by an infinity when r
// is infinite panics; a finite value divided by an infinity is 0.
func (r Rational) Div(other Rational) Rational {
	if other.kind != ratFinite {
		if r.kind != ratFinite {
			panic("ratmip: inf / inf is undefined")
		}
		return RatZero()
	}
	if other.Sign() == 0 {
		panic("ratmip: rational division by zero")
	}
	if r.kind != ratFinite {
		if other.Sign() < 0 {
			return r.Neg()
		}
		return r
	}
	return Rational{kind: ratFinite, val: new(big.Rat).Quo(r.rat(), other.rat())}
}

// Float64 returns the f64 nearest to r. Infinities map to f64 infinities.
func (r Rational) Float64() float64 {
	switch r.kind {
	case ratNegInf:
		return math.Inf(-1)
	case ratPosInf:
		return math.Inf(1)
	}
	f, _ := r.rat().Float64()
	return f
}

// Interval returns an f64 pair [lo, hi] that always encloses the true value
// of r. For exactly representable values lo == hi; otherwise the nearest
// float is widened by one ulp in each direction.
func (r Rational) Interval() (lo, hi float64) {
	switch r.kind {
	case ratNegInf:
		return math.Inf(-1), math.Inf(-1)
	case ratPosInf:
		return math.Inf(1), math.Inf(1)
	}
	f, exact := r.rat().Float64()
	if exact {
		return f, f
	}
	return math.Nextafter(f, math.Inf(-1)), math.Nextafter(f, math.Inf(1))
}

// ApproxEqFloat reports whether r is within tol of the f64 value f.
// Intended for debug assertions that bridge to the floating-point LP view;
// never use it to decide whether a flush is needed.
func (r Rational) ApproxEqFloat(f float64, tol float64) bool {
	if r.kind != ratFinite || math.IsInf(f, 0) {
		return (r.IsPosInf() && math.IsInf(f, 1)) || (r.IsNegInf() && math.IsInf(f, -1))
	}
	return math.Abs(r.Float64()-f) <= tol
}

// Min returns the smaller of r and other.
func (r Rational) Min(other Rational) Rational {
	if r.Cmp(other) <= 0 {
		return r
	}
	return other
}

// Max returns the larger of r and other.
func (r Rational) Max(other Rational) Rational {
	if r.Cmp(other) >= 0 {
		return r
	}
	return other
}

// Key returns a canonical string for use as an exact map key, e.g. when
// assigning graph colors to coefficient values.
func (r Rational) Key() string {
	switch r.kind {
	case ratNegInf:
		return "-inf"
	case ratPosInf:
		return "+inf"
	}
	return r.rat().RatString()
}

// String returns "p/q" for non-integers, "p" for integers, and the infinity
// sentinels as "-inf"/"+inf".
func (r Rational) String() string {
	if r.kind != ratFinite {
		return r.Key()
	}
	v := r.rat()
	if v.IsInt() {
		return v.Num().String()
	}
	return fmt.Sprintf("%s/%s", v.Num(), v.Denom())
}
