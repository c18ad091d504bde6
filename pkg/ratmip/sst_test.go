package ratmip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSSTConflictFixingAndCut(t *testing.T) {
	vars := binVars(t, 3)
	a, b, c := vars[0], vars[1], vars[2]
	pack, err := NewSetPPCCons("pack_ab", ConsSetPacking, []*Variable{a, b})
	require.NoError(t, err)

	sys := newRecordingConsSys()
	p, err := NewSSTPlanner(vars, []Cons{pack}, sys, DefaultSymParams(), nil)
	require.NoError(t, err)

	// One 3-cycle: orbit {a,b,c}, leader a. b conflicts with a and is
	// fixed to zero; c gets the cut a - c >= 0.
	nreductions, err := p.Plan([][]int{{1, 2, 0}}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, nreductions)
	require.Equal(t, []int{0}, p.Leaders())

	require.Len(t, sys.rec.fixings, 1)
	require.True(t, sys.rec.fixings[b].IsZero())

	require.Len(t, sys.rec.inequalities, 1)
	iq := sys.rec.inequalities[0]
	require.Equal(t, "sst_cut_0_2", iq.name)
	require.Equal(t, []*Variable{a, c}, iq.vars)
	require.Equal(t, []Rational{RatInt(1), RatInt(-1)}, iq.coefs)
	require.True(t, iq.lhs.IsZero())
	require.True(t, iq.rhs.IsPosInf())
}

func TestSSTLeaderRules(t *testing.T) {
	vars := binVars(t, 3)
	pack, err := NewSetPPCCons("pack_bc", ConsSetPacking, []*Variable{vars[1], vars[2]})
	require.NoError(t, err)
	perms := [][]int{{1, 2, 0}}

	cases := []struct {
		rule   SstLeaderRule
		leader int
	}{
		{SstLeaderFirst, 0},
		{SstLeaderLast, 2},
		// b and c conflict with one orbit member each, a with none;
		// the first of the tied pair wins.
		{SstLeaderMaxConflicts, 1},
	}
	for _, tc := range cases {
		sys := newRecordingConsSys()
		params := DefaultSymParams()
		params.SstLeaderRule = tc.rule
		p, err := NewSSTPlanner(vars, []Cons{pack}, sys, params, nil)
		require.NoError(t, err)
		_, err = p.Plan(perms, nil)
		require.NoError(t, err)
		require.Equal(t, []int{tc.leader}, p.Leaders(), "rule %v", tc.rule)
	}
}

func TestSSTWithoutCutsOnlyFixesConflicts(t *testing.T) {
	vars := binVars(t, 3)
	pack, err := NewSetPPCCons("pack_ab", ConsSetPacking, []*Variable{vars[0], vars[1]})
	require.NoError(t, err)

	sys := newRecordingConsSys()
	params := DefaultSymParams()
	params.SstAddCuts = false
	p, err := NewSSTPlanner(vars, []Cons{pack}, sys, params, nil)
	require.NoError(t, err)

	nreductions, err := p.Plan([][]int{{1, 2, 0}}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, nreductions)
	require.Len(t, sys.rec.fixings, 1)
	require.Empty(t, sys.rec.inequalities)
}

func TestSSTMixedOrbitStrictMode(t *testing.T) {
	a := binVar(t, 0, "a")
	b := binVar(t, 1, "b")
	c, err := NewVariable(2, "c", VarContinuous, RatZero(), RatZero(), RatInt(1))
	require.NoError(t, err)
	vars := []*Variable{a, b, c}

	sys := newRecordingConsSys()
	p, err := NewSSTPlanner(vars, nil, sys, DefaultSymParams(), nil)
	require.NoError(t, err)

	_, err = p.Plan([][]int{{1, 2, 0}}, nil)
	require.ErrorIs(t, err, ErrTypeMismatch)
	require.Empty(t, sys.rec.fixings)
	require.Empty(t, sys.rec.inequalities)
}

func TestSSTDeactivatesGeneratorsMovingLeader(t *testing.T) {
	// Two disjoint transpositions: handling the first orbit leaves the
	// second generator active for another round.
	vars := binVars(t, 4)
	sys := newRecordingConsSys()
	p, err := NewSSTPlanner(vars, nil, sys, DefaultSymParams(), nil)
	require.NoError(t, err)

	nreductions, err := p.Plan([][]int{
		{1, 0, 2, 3},
		{0, 1, 3, 2},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, nreductions)
	require.Equal(t, []int{0, 2}, p.Leaders())
	require.Len(t, sys.rec.inequalities, 2)
}
