package ratmip

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// conflictGraph records which permutation variables exclude each other:
// two binaries conflict when they co-occur in a set-packing or
// set-partitioning constraint, which allows at most one of them to be 1.
type conflictGraph struct {
	adj map[int]map[int]bool
}

// newConflictGraph builds the graph from the setppc cliques among conss.
func newConflictGraph(permvars []*Variable, conss []Cons) *conflictGraph {
	idx := make(map[*Variable]int, len(permvars))
	for i, v := range permvars {
		idx[v] = i
	}
	g := &conflictGraph{adj: make(map[int]map[int]bool)}
	for _, c := range conss {
		ppc, ok := c.(*SetPPCCons)
		if !ok || (ppc.PPCKind != ConsSetPacking && ppc.PPCKind != ConsSetPartitioning) {
			continue
		}
		var members []int
		for _, v := range ppc.Xs {
			if i, ok := idx[v]; ok {
				members = append(members, i)
			}
		}
		for a := 0; a < len(members); a++ {
			for b := a + 1; b < len(members); b++ {
				g.link(members[a], members[b])
			}
		}
	}
	return g
}

func (g *conflictGraph) link(a, b int) {
	if g.adj[a] == nil {
		g.adj[a] = make(map[int]bool)
	}
	if g.adj[b] == nil {
		g.adj[b] = make(map[int]bool)
	}
	g.adj[a][b] = true
	g.adj[b][a] = true
}

// inConflict reports whether a and b exclude each other.
func (g *conflictGraph) inConflict(a, b int) bool {
	return g.adj[a][b]
}

// nConflictsIn counts how many members of orbit conflict with v.
func (g *conflictGraph) nConflictsIn(v int, orbit []int) int {
	n := 0
	for _, w := range orbit {
		if w != v && g.adj[v][w] {
			n++
		}
	}
	return n
}

// SSTPlanner runs Schreier-Sims leader selection on a component: it
// repeatedly picks an orbit and a leader, fixes or cuts the followers and
// deactivates every generator moving the leader, until no generator is
// active.
type SSTPlanner struct {
	permvars  []*Variable
	conflicts *conflictGraph
	conssys   ConstraintSystem
	params    SymParams
	log       *logrus.Logger

	leaders []int
}

// NewSSTPlanner creates a planner. conss feeds the conflict graph.
func NewSSTPlanner(permvars []*Variable, conss []Cons, conssys ConstraintSystem, params SymParams, log *logrus.Logger) (*SSTPlanner, error) {
	if conssys == nil {
		return nil, fmt.Errorf("NewSSTPlanner: nil constraint system")
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &SSTPlanner{
		permvars:  permvars,
		conflicts: newConflictGraph(permvars, conss),
		conssys:   conssys,
		params:    params,
		log:       log,
	}, nil
}

// Leaders returns the leader indices selected so far, in selection order.
func (p *SSTPlanner) Leaders() []int { return p.leaders }

// Plan runs the leader loop on one component's generators and installs the
// resulting fixings and cuts. It returns the number of reductions made
// (fixings plus inequalities). ErrTypeMismatch is returned when strict
// mode meets an orbit of mixed variable types; the component keeps any
// already-installed handlers but gets no further SST treatment.
func (p *SSTPlanner) Plan(perms [][]int, stop StopSignal) (int, error) {
	active := make([]bool, len(perms))
	nactive := 0
	for i, perm := range perms {
		if !isIdentityPerm(perm) {
			active[i] = true
			nactive++
		}
	}
	leaderType, err := p.pickLeaderType(perms, active)
	if err != nil {
		return 0, err
	}

	nreductions := 0
	for nactive > 0 {
		if stopped(stop) {
			return nreductions, ErrStopRequested
		}
		orbits, err := p.usableOrbits(perms, active, leaderType)
		if err != nil {
			return nreductions, err
		}
		if len(orbits) == 0 {
			break
		}
		orbit, leader := p.selectLeader(orbits)

		for _, v := range orbit {
			if v == leader {
				continue
			}
			switch {
			case p.params.AddConflictCuts && p.conflicts.inConflict(leader, v):
				// Leader and follower exclude each other; a
				// symmetry-broken solution never sets the follower.
				if err := p.conssys.FixVarUpper(p.permvars[v], RatZero()); err != nil {
					return nreductions, err
				}
				nreductions++
			case p.params.SstAddCuts:
				one := RatInt(1)
				err := p.conssys.AddLinearInequality(
					fmt.Sprintf("sst_cut_%d_%d", leader, v),
					[]Rational{one, one.Neg()},
					[]*Variable{p.permvars[leader], p.permvars[v]},
					RatZero(), PosInfinity())
				if err != nil {
					return nreductions, err
				}
				nreductions++
			}
		}

		p.leaders = append(p.leaders, leader)
		for i, perm := range perms {
			if active[i] && perm[leader] != leader {
				active[i] = false
				nactive--
			}
		}
	}
	p.log.WithFields(logrus.Fields{
		"leaders":     len(p.leaders),
		"nreductions": nreductions,
	}).Debug("sst planning finished")
	return nreductions, nil
}

// pickLeaderType chooses among the accepted leader types the one moving
// the most variables.
func (p *SSTPlanner) pickLeaderType(perms [][]int, active []bool) (VarType, error) {
	movedByType := make(map[VarType]int)
	for i, perm := range perms {
		if !active[i] {
			continue
		}
		for a, b := range perm {
			if a != b {
				movedByType[p.permvars[a].Type]++
			}
		}
	}
	best, bestN := VarBinary, -1
	anyAccepted := false
	for t, n := range movedByType {
		if !p.params.SstLeaderVarType.Has(t) {
			continue
		}
		anyAccepted = true
		if n > bestN || (n == bestN && t < best) {
			best, bestN = t, n
		}
	}
	if !anyAccepted {
		return 0, errors.Wrap(ErrTypeMismatch, "no accepted leader type moves any variable")
	}
	return best, nil
}

// usableOrbits computes the nontrivial orbits under the active generators,
// keeping only orbits entirely of the leader type when strict mode is on.
func (p *SSTPlanner) usableOrbits(perms [][]int, active []bool, leaderType VarType) ([][]int, error) {
	var gens [][]int
	for i, perm := range perms {
		if active[i] {
			gens = append(gens, perm)
		}
	}
	if len(gens) == 0 {
		return nil, nil
	}
	moved := make(map[int]bool)
	for _, g := range gens {
		for a, b := range g {
			if a != b {
				moved[a] = true
			}
		}
	}
	starts := make([]int, 0, len(moved))
	for v := range moved {
		starts = append(starts, v)
	}
	sort.Ints(starts)

	seen := make(map[int]bool)
	var orbits [][]int
	for _, s := range starts {
		if seen[s] {
			continue
		}
		orbit := orbitOfVar(s, gens)
		for _, v := range orbit {
			seen[v] = true
		}
		if len(orbit) < 2 {
			continue
		}
		if !p.params.SstMixedComponents {
			// Strict mode: an orbit of mixed types disqualifies the
			// component; a pure orbit of a non-leader type is skipped.
			t := p.permvars[orbit[0]].Type
			for _, v := range orbit[1:] {
				if p.permvars[v].Type != t {
					return nil, errors.Wrapf(ErrTypeMismatch,
						"orbit of %s mixes variable types", p.permvars[orbit[0]].Name)
				}
			}
			if t != leaderType {
				continue
			}
		}
		orbits = append(orbits, orbit)
	}
	return orbits, nil
}

// selectLeader applies the tie-break rule across orbits and the leader
// rule within the winning orbit.
func (p *SSTPlanner) selectLeader(orbits [][]int) (orbit []int, leader int) {
	best := 0
	for i := 1; i < len(orbits); i++ {
		switch p.params.SstTieBreakRule {
		case SstTieBreakMinOrbit:
			if len(orbits[i]) < len(orbits[best]) {
				best = i
			}
		case SstTieBreakMaxOrbit:
			if len(orbits[i]) > len(orbits[best]) {
				best = i
			}
		case SstTieBreakMaxConflicts:
			if p.maxConflicts(orbits[i]) > p.maxConflicts(orbits[best]) {
				best = i
			}
		}
	}
	orbit = orbits[best]

	switch p.params.SstLeaderRule {
	case SstLeaderLast:
		leader = orbit[len(orbit)-1]
	case SstLeaderMaxConflicts:
		leader = orbit[0]
		bestN := p.conflicts.nConflictsIn(leader, orbit)
		for _, v := range orbit[1:] {
			if n := p.conflicts.nConflictsIn(v, orbit); n > bestN {
				leader, bestN = v, n
			}
		}
	default:
		leader = orbit[0]
	}
	return orbit, leader
}

func (p *SSTPlanner) maxConflicts(orbit []int) int {
	m := 0
	for _, v := range orbit {
		if n := p.conflicts.nConflictsIn(v, orbit); n > m {
			m = n
		}
	}
	return m
}
