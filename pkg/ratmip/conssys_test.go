package ratmip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinearConsRangedRows(t *testing.T) {
	vars := binVars(t, 2)
	c, err := NewLinearCons("ranged", vars,
		[]Rational{RatInt(2), RatInt(3)}, RatInt(1), RatInt(4))
	require.NoError(t, err)

	rows, err := c.collectCoefficients()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, SenseLe, rows[0].Sense)
	require.True(t, rows[0].Rhs.Equal(RatInt(4)))
	require.True(t, rows[0].Coefs[0].Val.Equal(RatInt(2)))

	// The >= side is negated into <= form.
	require.Equal(t, SenseLe, rows[1].Sense)
	require.True(t, rows[1].Rhs.Equal(RatInt(-1)))
	require.True(t, rows[1].Coefs[0].Val.Equal(RatInt(-2)))
	require.True(t, rows[1].Coefs[1].Val.Equal(RatInt(-3)))
}

func TestLinearConsEquation(t *testing.T) {
	vars := binVars(t, 2)
	c, err := NewLinearCons("eq", vars,
		[]Rational{RatInt(1), RatInt(1)}, RatInt(1), RatInt(1))
	require.NoError(t, err)
	rows, err := c.collectCoefficients()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, SenseEq, rows[0].Sense)
}

func TestSetPPCRows(t *testing.T) {
	vars := binVars(t, 3)

	pack, err := NewSetPPCCons("pack", ConsSetPacking, vars)
	require.NoError(t, err)
	rows, err := pack.collectCoefficients()
	require.NoError(t, err)
	require.Equal(t, SenseLe, rows[0].Sense)
	require.True(t, rows[0].Rhs.Equal(RatInt(1)))

	part, err := NewSetPPCCons("part", ConsSetPartitioning, vars)
	require.NoError(t, err)
	rows, err = part.collectCoefficients()
	require.NoError(t, err)
	require.Equal(t, SenseEq, rows[0].Sense)

	// Covering flips to -sum <= -1.
	cover, err := NewSetPPCCons("cover", ConsSetCovering, vars)
	require.NoError(t, err)
	rows, err = cover.collectCoefficients()
	require.NoError(t, err)
	require.Equal(t, SenseLe, rows[0].Sense)
	require.True(t, rows[0].Rhs.Equal(RatInt(-1)))
	require.True(t, rows[0].Coefs[0].Val.Equal(RatInt(-1)))
}

func TestSetPPCRejectsNonBinary(t *testing.T) {
	v, err := NewVariable(0, "x", VarContinuous, RatZero(), RatZero(), RatInt(1))
	require.NoError(t, err)
	_, err = NewSetPPCCons("pack", ConsSetPacking, []*Variable{v})
	require.Error(t, err)
}

func TestXorParityRhs(t *testing.T) {
	vars := binVars(t, 3)
	even := &XorCons{ConsName: "even", Xs: vars}
	rows, err := even.collectCoefficients()
	require.NoError(t, err)
	require.Equal(t, SenseXor, rows[0].Sense)
	require.True(t, rows[0].Rhs.IsZero())

	odd := &XorCons{ConsName: "odd", Xs: vars, Parity: true}
	rows, err = odd.collectCoefficients()
	require.NoError(t, err)
	require.True(t, rows[0].Rhs.Equal(RatInt(1)))
}

func TestAndResultantDistinguished(t *testing.T) {
	vars := binVars(t, 3)
	and := &AndCons{ConsName: "and", Res: vars[0], Operands: vars[1:]}
	rows, err := and.collectCoefficients()
	require.NoError(t, err)
	require.Equal(t, SenseAnd, rows[0].Sense)
	require.True(t, rows[0].Coefs[0].Val.Equal(RatInt(2)))
	require.True(t, rows[0].Coefs[1].Val.Equal(RatInt(1)))
}

func TestBoundDisjunctionSenses(t *testing.T) {
	vars := binVars(t, 3)
	simple := &BoundDisjunctionCons{ConsName: "simple", Literals: []BoundLiteral{
		{Var: vars[0], Lower: true, Bound: RatInt(1)},
		{Var: vars[1], Bound: RatZero()},
	}}
	rows, err := simple.collectCoefficients()
	require.NoError(t, err)
	require.Equal(t, SenseDisjSimple, rows[0].Sense)
	// Lower-bound literals carry a negated bound.
	require.True(t, rows[0].Coefs[0].Val.Equal(RatInt(-1)))

	paired := &BoundDisjunctionCons{ConsName: "paired", Literals: []BoundLiteral{
		{Var: vars[0], Lower: true, Bound: RatInt(1)},
		{Var: vars[0], Bound: RatZero()},
	}}
	rows, err = paired.collectCoefficients()
	require.NoError(t, err)
	require.Equal(t, SenseDisjPaired, rows[0].Sense)

	tripled := &BoundDisjunctionCons{ConsName: "tripled", Literals: []BoundLiteral{
		{Var: vars[0], Lower: true, Bound: RatInt(1)},
		{Var: vars[0], Bound: RatZero()},
		{Var: vars[0], Bound: RatInt(1)},
	}}
	_, err = tripled.collectCoefficients()
	require.ErrorIs(t, err, ErrUnsupportedConstraint)
}

func TestExprIsomorphic(t *testing.T) {
	vars := binVars(t, 2)
	sq := func(v *Variable) *Expr {
		return &Expr{Op: ExprPow, Const: RatInt(2), Children: []*Expr{
			{Op: ExprVar, Var: v},
		}}
	}
	a, b := sq(vars[0]), sq(vars[1])
	require.False(t, a.Isomorphic(b, nil))
	require.True(t, a.Isomorphic(b, map[*Variable]*Variable{vars[0]: vars[1]}))
	require.True(t, a.Isomorphic(a, nil))

	cube := &Expr{Op: ExprPow, Const: RatInt(3), Children: []*Expr{
		{Op: ExprVar, Var: vars[1]},
	}}
	require.False(t, a.Isomorphic(cube, map[*Variable]*Variable{vars[0]: vars[1]}))
}
