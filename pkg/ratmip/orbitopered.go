package ratmip

// OrbitopalReductionPropagator propagates a detected orbitope: any column
// permutation is a symmetry, so the columns may be forced into
// non-increasing lexicographic order. Propagation enforces col c >=_lex
// col c+1 for every adjacent column pair, walking the rows top down the
// same way the per-permutation lex propagator walks positions.
type OrbitopalReductionPropagator struct {
	permvars  []*Variable
	orbitopes []*Orbitope
	stats     *SolverStats
}

// NewOrbitopalReductionPropagator creates the propagator over the detected
// orbitopes.
func NewOrbitopalReductionPropagator(permvars []*Variable, orbitopes []*Orbitope, stats *SolverStats) *OrbitopalReductionPropagator {
	return &OrbitopalReductionPropagator{permvars: permvars, orbitopes: orbitopes, stats: stats}
}

// Name implements SymPropagator.
func (p *OrbitopalReductionPropagator) Name() string { return "orbitopered" }

// Propagate implements SymPropagator.
func (p *OrbitopalReductionPropagator) Propagate(stop StopSignal) (bool, int, bool, error) {
	if len(p.orbitopes) == 0 {
		return false, 0, false, nil
	}
	nreductions := 0
	for _, orb := range p.orbitopes {
		if stopped(stop) {
			return false, nreductions, true, ErrStopRequested
		}
		for c := 0; c+1 < orb.NCols(); c++ {
			infeasible, n := p.propagateColumnPair(orb, c)
			nreductions += n
			if infeasible {
				return true, nreductions, true, nil
			}
		}
	}
	return false, nreductions, true, nil
}

func (p *OrbitopalReductionPropagator) propagateColumnPair(orb *Orbitope, c int) (bool, int) {
	nreductions := 0
	for r := 0; r < orb.NRows(); r++ {
		u := p.permvars[orb.Matrix[r][c]]
		w := p.permvars[orb.Matrix[r][c+1]]
		if u.IsFixed() && w.IsFixed() && u.LbLocal.Equal(w.LbLocal) {
			continue
		}
		changed, infeasible := tightenLb(u, w.LbLocal, p.stats)
		if infeasible {
			return true, nreductions
		}
		if changed {
			nreductions++
		}
		changed, infeasible = tightenUb(w, u.UbLocal, p.stats)
		if infeasible {
			return true, nreductions
		}
		if changed {
			nreductions++
		}
		if u.IsFixed() && w.IsFixed() && u.LbLocal.Equal(w.LbLocal) {
			continue
		}
		break
	}
	return false, nreductions
}
