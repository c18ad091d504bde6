package ratmip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recordedCons captures the constraints a test run installs.
type recordedCons struct {
	orbitopes []struct {
		name   string
		kind   OrbitopeKind
		matrix [][]*Variable
	}
	symresacks []struct {
		name string
		perm []int
		vars []*Variable
	}
	inequalities []struct {
		name     string
		coefs    []Rational
		vars     []*Variable
		lhs, rhs Rational
	}
	fixings map[*Variable]Rational
}

type recordingConsSys struct {
	rec recordedCons
}

func newRecordingConsSys() *recordingConsSys {
	return &recordingConsSys{rec: recordedCons{fixings: make(map[*Variable]Rational)}}
}

func (r *recordingConsSys) AddOrbitope(name string, kind OrbitopeKind, matrix [][]*Variable, dynamic bool) error {
	r.rec.orbitopes = append(r.rec.orbitopes, struct {
		name   string
		kind   OrbitopeKind
		matrix [][]*Variable
	}{name, kind, matrix})
	return nil
}

func (r *recordingConsSys) AddSymresack(name string, perm []int, vars []*Variable) error {
	r.rec.symresacks = append(r.rec.symresacks, struct {
		name string
		perm []int
		vars []*Variable
	}{name, perm, vars})
	return nil
}

func (r *recordingConsSys) AddLinearInequality(name string, coefs []Rational, vars []*Variable, lhs, rhs Rational) error {
	r.rec.inequalities = append(r.rec.inequalities, struct {
		name     string
		coefs    []Rational
		vars     []*Variable
		lhs, rhs Rational
	}{name, coefs, vars, lhs, rhs})
	return nil
}

func (r *recordingConsSys) FixVarUpper(v *Variable, value Rational) error {
	r.rec.fixings[v] = value
	return nil
}

// fixedEngine returns a canned generator set regardless of the graph.
type fixedEngine struct {
	perms    [][]int
	logOrder float64
}

func (e *fixedEngine) ComputeGenerators(g *SymGraph, maxGenerators int) (*SymmetryResult, error) {
	return &SymmetryResult{Perms: e.perms, LogGroupOrder: e.logOrder}, nil
}

func binVar(t *testing.T, idx int, name string) *Variable {
	t.Helper()
	v, err := NewVariable(idx, name, VarBinary, RatZero(), RatZero(), RatInt(1))
	require.NoError(t, err)
	return v
}

func binVars(t *testing.T, n int) []*Variable {
	t.Helper()
	out := make([]*Variable, n)
	for i := range out {
		out[i] = binVar(t, i, "x"+string(rune('1'+i)))
	}
	return out
}

func TestSymmetryStateEndToEnd(t *testing.T) {
	vars := binVars(t, 4)
	ppc, err := NewSetPPCCons("pack", ConsSetPacking, []*Variable{vars[0], vars[1]})
	require.NoError(t, err)
	conss := []Cons{ppc}

	// Column swap and row swap of the 2x2 arrangement.
	engine := &fixedEngine{perms: [][]int{
		{1, 0, 3, 2},
		{2, 3, 0, 1},
	}, logOrder: 0.9}
	sys := newRecordingConsSys()
	params := DefaultSymParams()
	stats := NewSolverStats()
	state, err := NewSymmetryState(engine, sys, stats, params, nil)
	require.NoError(t, err)

	require.NoError(t, state.Compute(vars, conss, nil, nil))
	require.True(t, state.Active())
	require.Equal(t, 1, state.Decomposition().NComponents())
	require.Len(t, state.Orbitopes(), 1)
	require.Len(t, sys.rec.orbitopes, 1)
	require.Equal(t, [][]*Variable{
		{vars[0], vars[1]},
		{vars[2], vars[3]},
	}, sys.rec.orbitopes[0].matrix)

	// Propagation round on untouched domains makes no reductions.
	status, n, err := state.Propagate(nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.NotEqual(t, PropCutoff, status)

	for _, v := range state.PermVars() {
		require.Equal(t, 2, v.NUses())
	}
	state.Teardown()
	for _, v := range vars {
		require.Equal(t, 1, v.NUses())
	}
	require.False(t, state.Active())
}

func TestSymmetryStateDisabledOnUnsupportedConstraint(t *testing.T) {
	vars := binVars(t, 2)
	bad := &KnapsackCons{ConsName: "k", Xs: vars, Weights: []Rational{RatInt(1)}, Capacity: RatInt(1)}
	engine := &fixedEngine{perms: [][]int{{1, 0}}}
	state, err := NewSymmetryState(engine, newRecordingConsSys(), NewSolverStats(), DefaultSymParams(), nil)
	require.NoError(t, err)

	require.NoError(t, state.Compute(vars, []Cons{bad}, nil, nil))
	require.False(t, state.Active())

	status, _, err := state.Propagate(nil)
	require.NoError(t, err)
	require.Equal(t, PropDidNotRun, status)
}

func TestSymmetryStateRecomputeEpochs(t *testing.T) {
	vars := binVars(t, 2)
	engine := &fixedEngine{perms: [][]int{{1, 0}}}
	params := DefaultSymParams()
	params.RecomputeRestart = 3
	stats := NewSolverStats()
	state, err := NewSymmetryState(engine, newRecordingConsSys(), stats, params, nil)
	require.NoError(t, err)
	require.NoError(t, state.Compute(vars, nil, nil, nil))

	require.False(t, state.NeedsRecompute())
	stats.BumpLPCount()
	stats.BumpLPCount()
	require.False(t, state.NeedsRecompute())
	stats.BumpLPCount()
	require.True(t, state.NeedsRecompute())
}
