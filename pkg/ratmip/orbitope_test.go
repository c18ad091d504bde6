package ratmip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrbitopeDetectTwoByTwo(t *testing.T) {
	vars := binVars(t, 4)
	det := NewOrbitopeDetector(vars, nil)

	// Column swap and row swap of the 2x2 arrangement.
	orb := det.Detect([][]int{
		{1, 0, 3, 2},
		{2, 3, 0, 1},
	})
	require.NotNil(t, orb)
	require.Equal(t, OrbitopeFull, orb.Kind)
	require.Equal(t, [][]int{{0, 1}, {2, 3}}, orb.Matrix)
	require.Equal(t, 2, orb.NRows())
	require.Equal(t, 2, orb.NCols())
}

func TestOrbitopeDetectThreeByThree(t *testing.T) {
	vars := binVars(t, 9)
	det := NewOrbitopeDetector(vars, nil)

	// Adjacent column swaps of a 3x3 arrangement with rows
	// (0,1,2), (3,4,5), (6,7,8).
	perms := [][]int{
		{1, 0, 2, 4, 3, 5, 7, 6, 8},
		{0, 2, 1, 3, 5, 4, 6, 8, 7},
	}
	orb := det.Detect(perms)
	require.NotNil(t, orb)
	require.Equal(t, OrbitopeFull, orb.Kind)
	require.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}}, orb.Matrix)
}

func TestOrbitopeRejectsSingleRowTranspositions(t *testing.T) {
	// Adjacent transpositions generating the full symmetric group on
	// five variables: every generator is a single 2-cycle, so there is no
	// orbitope structure to exploit.
	vars := binVars(t, 5)
	det := NewOrbitopeDetector(vars, nil)
	perms := [][]int{
		{1, 0, 2, 3, 4},
		{0, 2, 1, 3, 4},
		{0, 1, 3, 2, 4},
		{0, 1, 4, 3, 2},
	}
	require.Nil(t, det.Detect(perms))
}

func TestOrbitopeRejectsNonInvolution(t *testing.T) {
	vars := binVars(t, 3)
	det := NewOrbitopeDetector(vars, nil)
	require.Nil(t, det.Detect([][]int{{1, 2, 0}}))
}

func TestOrbitopeRejectsUnequalCycleCounts(t *testing.T) {
	vars := binVars(t, 4)
	det := NewOrbitopeDetector(vars, nil)
	perms := [][]int{
		{1, 0, 3, 2},
		{0, 1, 3, 2},
	}
	require.Nil(t, det.Detect(perms))
}

func TestOrbitopePackingRefinement(t *testing.T) {
	vars := binVars(t, 9)
	var conss []Cons
	for _, row := range [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}} {
		members := []*Variable{vars[row[0]], vars[row[1]], vars[row[2]]}
		c, err := NewSetPPCCons("pack", ConsSetPacking, members)
		require.NoError(t, err)
		conss = append(conss, c)
	}
	det := NewOrbitopeDetector(vars, conss)
	perms := [][]int{
		{1, 0, 2, 4, 3, 5, 7, 6, 8},
		{0, 2, 1, 3, 5, 4, 6, 8, 7},
	}
	orb := det.Detect(perms)
	require.NotNil(t, orb)
	require.Equal(t, OrbitopePacking, orb.Kind)
	require.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}}, orb.Matrix)
}

func TestOrbitopeDetectIdempotent(t *testing.T) {
	vars := binVars(t, 4)
	det := NewOrbitopeDetector(vars, nil)
	perms := [][]int{
		{1, 0, 3, 2},
		{2, 3, 0, 1},
	}
	first := det.Detect(perms)
	second := det.Detect(perms)
	require.NotNil(t, first)
	require.Equal(t, first.Kind, second.Kind)
	require.Equal(t, first.Matrix, second.Matrix)
}
