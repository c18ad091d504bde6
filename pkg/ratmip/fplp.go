// Package ratmip floating-point twin of the exact LP.
//
// The exact matrix is the source of truth; this file derives the f64 view
// used for fast solving and for debug consistency checks. Row entries cache
// an f64 interval enclosing each exact coefficient; activities are
// accumulated over the interval endpoints so that the reported range always
// encloses the exact activity range.
package ratmip

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// FpCol is the floating-point image of a column: approximate objective and
// bounds plus the shared positions and identity of the exact column.
type FpCol struct {
	Obj, Lb, Ub float64
	LPPos       int
	LPIPos      int
	VarIndex    int
}

// FpView returns the floating-point image of the column.
func (c *Column) FpView() FpCol {
	return FpCol{
		Obj:      c.obj.Float64(),
		Lb:       c.lb.Float64(),
		Ub:       c.ub.Float64(),
		LPPos:    c.lppos,
		LPIPos:   c.lpipos,
		VarIndex: c.VarIndex(),
	}
}

// FpRow is the floating-point image of a row.
type FpRow struct {
	Lhs, Rhs, Constant float64
	LPPos              int
	LPIPos             int
	Index              int
}

// FpView returns the floating-point image of the row.
func (r *Row) FpView() FpRow {
	return FpRow{
		Lhs:      r.lhs.Float64(),
		Rhs:      r.rhs.Float64(),
		Constant: r.constant.Float64(),
		LPPos:    r.lppos,
		LPIPos:   r.lpipos,
		Index:    r.Index,
	}
}

// CoefInterval returns the cached f64 enclosure of the row's entry at pos.
func (r *Row) CoefInterval(pos int) (lo, hi float64) {
	e := r.cols.e[pos]
	return e.fpLo, e.fpHi
}

// Activity returns the f64 min/max activity of the row under the current
// local bounds of its variables. The cache is recomputed when invalid;
// infinite bounds make the corresponding end infinite.
func (r *Row) Activity() (minAct, maxAct float64) {
	if !r.actValid {
		r.recomputeActivity()
	}
	return r.minAct, r.maxAct
}

// recomputeActivity accumulates the activity range over the coefficient
// enclosures, picking the bound end that minimizes or maximizes each term.
func (r *Row) recomputeActivity() {
	n := r.cols.len()
	minTerms := make([]float64, 0, n)
	maxTerms := make([]float64, 0, n)
	minInf, maxInf := false, false
	for i := 0; i < n; i++ {
		e := r.cols.e[i]
		lb := e.col.v.LbLocal.Float64()
		ub := e.col.v.UbLocal.Float64()
		lo := math.Min(math.Min(e.fpLo*lb, e.fpLo*ub), math.Min(e.fpHi*lb, e.fpHi*ub))
		hi := math.Max(math.Max(e.fpLo*lb, e.fpLo*ub), math.Max(e.fpHi*lb, e.fpHi*ub))
		switch {
		case math.IsInf(lo, -1):
			minInf = true
		case math.IsNaN(lo):
			minInf = true // 0 * inf end; enclose conservatively
		default:
			minTerms = append(minTerms, lo)
		}
		switch {
		case math.IsInf(hi, 1):
			maxInf = true
		case math.IsNaN(hi):
			maxInf = true
		default:
			maxTerms = append(maxTerms, hi)
		}
	}
	if minInf {
		r.minAct = math.Inf(-1)
	} else {
		r.minAct = floats.Sum(minTerms)
	}
	if maxInf {
		r.maxAct = math.Inf(1)
	} else {
		r.maxAct = floats.Sum(maxTerms)
	}
	r.actValid = true
}

// CheckAgainstFloat verifies that the exact values of the column agree with
// its floating-point view within tol. Debug assertion helper; never drives
// flush decisions.
func (c *Column) CheckAgainstFloat(tol float64) bool {
	fp := c.FpView()
	return c.obj.ApproxEqFloat(fp.Obj, tol) &&
		c.lb.ApproxEqFloat(fp.Lb, tol) &&
		c.ub.ApproxEqFloat(fp.Ub, tol)
}

// EqualWithinTol reports whether two f64 values agree within an absolute or
// relative tolerance; used by the debug checks bridging both views.
func EqualWithinTol(a, b, tol float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, tol, tol)
}
