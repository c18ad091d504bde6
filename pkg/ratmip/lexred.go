package ratmip

// Bound tightening helpers shared by the symmetry propagators. Tightening
// touches local bounds only and bumps the domain-change epoch.

// tightenLb raises v's local lower bound to val when that is an
// improvement. It reports whether the domain changed and whether the
// domain became empty.
func tightenLb(v *Variable, val Rational, stats *SolverStats) (changed, infeasible bool) {
	if val.Cmp(v.LbLocal) <= 0 {
		return false, false
	}
	if val.Cmp(v.UbLocal) > 0 {
		return false, true
	}
	v.LbLocal = val
	if stats != nil {
		stats.BumpDomainChange()
	}
	return true, false
}

// tightenUb lowers v's local upper bound to val when that is an
// improvement.
func tightenUb(v *Variable, val Rational, stats *SolverStats) (changed, infeasible bool) {
	if val.Cmp(v.UbLocal) >= 0 {
		return false, false
	}
	if val.Cmp(v.LbLocal) < 0 {
		return false, true
	}
	v.UbLocal = val
	if stats != nil {
		stats.BumpDomainChange()
	}
	return true, false
}

// LexReductionPropagator enforces, for each permutation pi, the
// lexicographic order (x_1,..,x_n) >= (x_pi(1),..,x_pi(n)) on the local
// domains.
type LexReductionPropagator struct {
	permvars []*Variable
	perms    [][]int
	stats    *SolverStats
}

// NewLexReductionPropagator creates the propagator for the given
// generators over the permutation variables.
func NewLexReductionPropagator(permvars []*Variable, perms [][]int, stats *SolverStats) *LexReductionPropagator {
	return &LexReductionPropagator{permvars: permvars, perms: perms, stats: stats}
}

// Name implements SymPropagator.
func (p *LexReductionPropagator) Name() string { return "lexred" }

// Propagate implements SymPropagator. For each permutation it walks the
// positions in order: positions whose pair is already fixed equal pass
// through; at the first open position the inequality x_i >= x_pi(i) is
// enforced, and the walk continues only if that pins the pair equal.
func (p *LexReductionPropagator) Propagate(stop StopSignal) (bool, int, bool, error) {
	if len(p.perms) == 0 {
		return false, 0, false, nil
	}
	nreductions := 0
	for _, perm := range p.perms {
		if stopped(stop) {
			return false, nreductions, true, ErrStopRequested
		}
		infeasible, n := p.propagatePerm(perm)
		nreductions += n
		if infeasible {
			return true, nreductions, true, nil
		}
	}
	return false, nreductions, true, nil
}

func (p *LexReductionPropagator) propagatePerm(perm []int) (bool, int) {
	nreductions := 0
	for i, j := range perm {
		if i == j {
			continue
		}
		u, w := p.permvars[i], p.permvars[j]
		if u.IsFixed() && w.IsFixed() && u.LbLocal.Equal(w.LbLocal) {
			continue
		}
		// First open pair: u >= w must hold here.
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
			// Pinned equal; the lex decision moves to the next pair.
			continue
		}
		break
	}
	return false, nreductions
}
