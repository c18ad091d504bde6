package ratmip

import (
	"math"
	"testing"
)

func TestRationalZeroValue(t *testing.T) {
	var r Rational
	if !r.IsFinite() || !r.IsZero() {
		t.Fatalf("zero value not finite zero: %s", r)
	}
	if !r.Equal(RatZero()) {
		t.Fatalf("zero value != RatZero()")
	}
	if got := r.Add(RatInt(3)); !got.Equal(RatInt(3)) {
		t.Fatalf("0 + 3 = %s", got)
	}
}

func TestRationalNormalization(t *testing.T) {
	if got := NewRational(4, 8).Key(); got != "1/2" {
		t.Fatalf("4/8 key = %q, want 1/2", got)
	}
	if got := NewRational(3, -6).Key(); got != "-1/2" {
		t.Fatalf("3/-6 key = %q, want -1/2", got)
	}
	if !NewRational(4, 8).Equal(NewRational(1, 2)) {
		t.Fatalf("4/8 != 1/2")
	}
}

func TestRationalArithmetic(t *testing.T) {
	a, b := NewRational(1, 3), NewRational(1, 6)
	if got := a.Add(b); !got.Equal(NewRational(1, 2)) {
		t.Fatalf("1/3 + 1/6 = %s", got)
	}
	if got := a.Sub(b); !got.Equal(NewRational(1, 6)) {
		t.Fatalf("1/3 - 1/6 = %s", got)
	}
	if got := a.Mul(b); !got.Equal(NewRational(1, 18)) {
		t.Fatalf("1/3 * 1/6 = %s", got)
	}
	if got := a.Div(b); !got.Equal(RatInt(2)) {
		t.Fatalf("1/3 / 1/6 = %s", got)
	}
	if got := a.Neg(); !got.Equal(NewRational(-1, 3)) {
		t.Fatalf("-(1/3) = %s", got)
	}
}

func TestRationalInfinityOrder(t *testing.T) {
	vals := []Rational{NegInfinity(), RatInt(-100), RatZero(), NewRational(1, 2), PosInfinity()}
	for i := range vals {
		for j := range vals {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			if got := vals[i].Cmp(vals[j]); got != want {
				t.Fatalf("Cmp(%s, %s) = %d, want %d", vals[i], vals[j], got, want)
			}
		}
	}
	if !NegInfinity().Min(RatInt(5)).IsNegInf() {
		t.Fatalf("min(-inf, 5) not -inf")
	}
	if !PosInfinity().Max(RatInt(5)).IsPosInf() {
		t.Fatalf("max(+inf, 5) not +inf")
	}
}

func TestRationalInfinityArithmetic(t *testing.T) {
	if got := PosInfinity().Add(RatInt(7)); !got.IsPosInf() {
		t.Fatalf("+inf + 7 = %s", got)
	}
	if got := NegInfinity().Sub(RatInt(7)); !got.IsNegInf() {
		t.Fatalf("-inf - 7 = %s", got)
	}
	if got := PosInfinity().Mul(RatInt(-2)); !got.IsNegInf() {
		t.Fatalf("+inf * -2 = %s", got)
	}
	if got := RatInt(3).Div(PosInfinity()); !got.IsZero() {
		t.Fatalf("3 / +inf = %s", got)
	}
	if got := PosInfinity().Neg(); !got.IsNegInf() {
		t.Fatalf("-(+inf) = %s", got)
	}
}

func TestRationalUndefinedOpsPanic(t *testing.T) {
	mustPanic := func(name string, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s did not panic", name)
			}
		}()
		f()
	}
	mustPanic("inf + (-inf)", func() { PosInfinity().Add(NegInfinity()) })
	mustPanic("inf - inf", func() { PosInfinity().Sub(PosInfinity()) })
	mustPanic("0 * inf", func() { RatZero().Mul(PosInfinity()) })
	mustPanic("inf / inf", func() { PosInfinity().Div(NegInfinity()) })
	mustPanic("x / 0", func() { RatInt(1).Div(RatZero()) })
	mustPanic("den 0", func() { NewRational(1, 0) })
	mustPanic("NaN", func() { RationalFromFloat(math.NaN()) })
}

func TestRationalFloatBridge(t *testing.T) {
	if got := RationalFromFloat(0.25); !got.Equal(NewRational(1, 4)) {
		t.Fatalf("0.25 -> %s", got)
	}
	if !RationalFromFloat(math.Inf(1)).IsPosInf() {
		t.Fatalf("+inf float not mapped")
	}
	if got := NewRational(-7, 2).Float64(); got != -3.5 {
		t.Fatalf("Float64(-7/2) = %v", got)
	}
	if got := NewRational(1, 2).CmpFloat(0.5); got != 0 {
		t.Fatalf("CmpFloat(1/2, 0.5) = %d", got)
	}

	// exact value: degenerate interval
	lo, hi := NewRational(3, 4).Interval()
	if lo != hi || lo != 0.75 {
		t.Fatalf("Interval(3/4) = [%v,%v]", lo, hi)
	}
	// 1/3 is not a float: the interval must strictly enclose it
	lo, hi = NewRational(1, 3).Interval()
	if !(NewRational(1, 3).CmpFloat(lo) > 0 && NewRational(1, 3).CmpFloat(hi) < 0) {
		t.Fatalf("Interval(1/3) = [%v,%v] does not enclose 1/3", lo, hi)
	}
}

func TestRationalKeyAndString(t *testing.T) {
	cases := []struct {
		r   Rational
		key string
		str string
	}{
		{RatInt(5), "5", "5"},
		{NewRational(-3, 4), "-3/4", "-3/4"},
		{RatZero(), "0", "0"},
		{PosInfinity(), "+inf", "+inf"},
		{NegInfinity(), "-inf", "-inf"},
	}
	for _, c := range cases {
		if got := c.r.Key(); got != c.key {
			t.Fatalf("Key(%s) = %q, want %q", c.str, got, c.key)
		}
		if got := c.r.String(); got != c.str {
			t.Fatalf("String = %q, want %q", got, c.str)
		}
	}
}

func TestRationalIntegrality(t *testing.T) {
	if !RatInt(-9).IsIntegral() || !RatZero().IsIntegral() {
		t.Fatalf("integers not integral")
	}
	if NewRational(1, 2).IsIntegral() || PosInfinity().IsIntegral() {
		t.Fatalf("non-integers reported integral")
	}
}
