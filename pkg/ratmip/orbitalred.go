package ratmip

// OrbitalReductionPropagator intersects local domains along orbits of the
// branching stabilizer. Generators remain active as long as they fix every
// variable whose local bounds deviate from its global bounds; a symmetry
// of the stabilizer maps feasible completions of the current node onto
// each other, so all variables of one orbit share the intersected domain.
type OrbitalReductionPropagator struct {
	permvars []*Variable
	perms    [][]int
	stats    *SolverStats
}

// NewOrbitalReductionPropagator creates the propagator.
func NewOrbitalReductionPropagator(permvars []*Variable, perms [][]int, stats *SolverStats) *OrbitalReductionPropagator {
	return &OrbitalReductionPropagator{permvars: permvars, perms: perms, stats: stats}
}

// Name implements SymPropagator.
func (p *OrbitalReductionPropagator) Name() string { return "orbitalred" }

// Propagate implements SymPropagator.
func (p *OrbitalReductionPropagator) Propagate(stop StopSignal) (bool, int, bool, error) {
	gens := p.stabilizerGens()
	if len(gens) == 0 {
		return false, 0, false, nil
	}
	seen := make([]bool, len(p.permvars))
	nreductions := 0
	for start := range p.permvars {
		if stopped(stop) {
			return false, nreductions, true, ErrStopRequested
		}
		if seen[start] {
			continue
		}
		orbit := orbitOfVar(start, gens)
		for _, v := range orbit {
			seen[v] = true
		}
		if len(orbit) < 2 {
			continue
		}
		infeasible, n := p.intersectOrbit(orbit)
		nreductions += n
		if infeasible {
			return true, nreductions, true, nil
		}
	}
	return false, nreductions, true, nil
}

// stabilizerGens returns the generators fixing every branched variable.
func (p *OrbitalReductionPropagator) stabilizerGens() [][]int {
	branched := make([]bool, len(p.permvars))
	for i, v := range p.permvars {
		if !v.LbLocal.Equal(v.LbGlobal) || !v.UbLocal.Equal(v.UbGlobal) {
			branched[i] = true
		}
	}
	var gens [][]int
	for _, perm := range p.perms {
		ok := true
		for i, j := range perm {
			if i != j && (branched[i] || branched[j]) {
				ok = false
				break
			}
		}
		if ok && !isIdentityPerm(perm) {
			gens = append(gens, perm)
		}
	}
	return gens
}

// intersectOrbit computes the tightest (lb, ub) over the orbit and applies
// it to every member.
func (p *OrbitalReductionPropagator) intersectOrbit(orbit []int) (bool, int) {
	lb := p.permvars[orbit[0]].LbLocal
	ub := p.permvars[orbit[0]].UbLocal
	for _, idx := range orbit[1:] {
		lb = lb.Max(p.permvars[idx].LbLocal)
		ub = ub.Min(p.permvars[idx].UbLocal)
	}
	if lb.Cmp(ub) > 0 {
		return true, 0
	}
	nreductions := 0
	for _, idx := range orbit {
		v := p.permvars[idx]
		changed, infeasible := tightenLb(v, lb, p.stats)
		if infeasible {
			return true, nreductions
		}
		if changed {
			nreductions++
		}
		changed, infeasible = tightenUb(v, ub, p.stats)
		if infeasible {
			return true, nreductions
		}
		if changed {
			nreductions++
		}
	}
	return false, nreductions
}
