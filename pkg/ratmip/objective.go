// Package ratmip incremental objective accounting.
//
// The ObjectiveAccountant tracks three optimistic objective values in O(1)
// per elementary change:
//
//   - pseudo: sum over all problem variables of obj(v) * bestBound(v) under
//     local bounds, where bestBound is the lower bound for positive
//     objective coefficients and the upper bound for negative ones;
//   - loose: the same sum restricted to loose variables (in the MIP but not
//     LP columns);
//   - globalPseudo: the pseudo sum under global bounds.
//
// Variables whose relevant bound is infinite do not enter the rational
// sums; they are counted in the matching *Inf counter instead. The counters
// never go negative, and loose snaps to exact zero when the last loose
// variable leaves.
package ratmip

// ObjectiveAccountant holds the three incremental objective values and
// their infinity counters.
type ObjectiveAccountant struct {
	pseudo       Rational
	loose        Rational
	globalPseudo Rational

	pseudoInf       int
	looseInf        int
	globalPseudoInf int

	nloosevars int
}

// NewObjectiveAccountant creates a zeroed accountant.
func NewObjectiveAccountant() *ObjectiveAccountant {
	return &ObjectiveAccountant{}
}

// Pseudo returns the local pseudo objective value, which is meaningful only
// while PseudoInf is zero.
func (a *ObjectiveAccountant) Pseudo() Rational { return a.pseudo }

// Loose returns the loose objective value.
func (a *ObjectiveAccountant) Loose() Rational { return a.loose }

// GlobalPseudo returns the global pseudo objective value.
func (a *ObjectiveAccountant) GlobalPseudo() Rational { return a.globalPseudo }

// PseudoInf returns the number of variables contributing an infinity to the
// local pseudo objective.
func (a *ObjectiveAccountant) PseudoInf() int { return a.pseudoInf }

// LooseInf returns the infinity counter of the loose objective.
func (a *ObjectiveAccountant) LooseInf() int { return a.looseInf }

// GlobalPseudoInf returns the infinity counter of the global pseudo
// objective.
func (a *ObjectiveAccountant) GlobalPseudoInf() int { return a.globalPseudoInf }

// NLooseVars returns the number of loose variables currently accounted.
func (a *ObjectiveAccountant) NLooseVars() int { return a.nloosevars }

// contribution returns the exact contribution obj * bound and whether the
// contribution is infinite (in which case the rational part is zero and
// only the counter moves).
func contribution(obj, bound Rational) (Rational, bool) {
	if obj.Sign() == 0 {
		return RatZero(), false
	}
	if bound.IsInfinite() {
		return RatZero(), true
	}
	return obj.Mul(bound), false
}

// applyDelta removes the old contribution from (sum, inf) and adds the new
// one.
func applyDelta(sum *Rational, inf *int, objOld, boundOld, objNew, boundNew Rational) {
	cOld, infOld := contribution(objOld, boundOld)
	cNew, infNew := contribution(objNew, boundNew)
	if infOld {
		*inf--
	} else {
		*sum = sum.Sub(cOld)
	}
	if infNew {
		*inf++
	} else {
		*sum = sum.Add(cNew)
	}
	if *inf < 0 {
		panic("ratmip: negative infinity counter")
	}
}

// bestBoundFor picks the bound relevant under the given objective sign.
func bestBoundFor(obj, lb, ub Rational) Rational {
	switch {
	case obj.Sign() > 0:
		return lb
	case obj.Sign() < 0:
		return ub
	default:
		return RatZero()
	}
}

// ObjChange accounts an objective coefficient change of v from objOld to
// objNew. The best bound may switch sides when the sign flips.
func (a *ObjectiveAccountant) ObjChange(v *Variable, objOld, objNew Rational) {
	bOld := bestBoundFor(objOld, v.LbLocal, v.UbLocal)
	bNew := bestBoundFor(objNew, v.LbLocal, v.UbLocal)
	applyDelta(&a.pseudo, &a.pseudoInf, objOld, bOld, objNew, bNew)
	if v.Status == StatusLoose {
		applyDelta(&a.loose, &a.looseInf, objOld, bOld, objNew, bNew)
	}
	gOld := bestBoundFor(objOld, v.LbGlobal, v.UbGlobal)
	gNew := bestBoundFor(objNew, v.LbGlobal, v.UbGlobal)
	applyDelta(&a.globalPseudo, &a.globalPseudoInf, objOld, gOld, objNew, gNew)
}

// LbChange accounts a local lower bound change of v. Only variables with a
// positive objective contribute through their lower bound.
func (a *ObjectiveAccountant) LbChange(v *Variable, lbOld, lbNew Rational) {
	if v.Obj.Sign() <= 0 {
		return
	}
	applyDelta(&a.pseudo, &a.pseudoInf, v.Obj, lbOld, v.Obj, lbNew)
	if v.Status == StatusLoose {
		applyDelta(&a.loose, &a.looseInf, v.Obj, lbOld, v.Obj, lbNew)
	}
}

// UbChange accounts a local upper bound change of v. Only variables with a
// negative objective contribute through their upper bound.
func (a *ObjectiveAccountant) UbChange(v *Variable, ubOld, ubNew Rational) {
	if v.Obj.Sign() >= 0 {
		return
	}
	applyDelta(&a.pseudo, &a.pseudoInf, v.Obj, ubOld, v.Obj, ubNew)
	if v.Status == StatusLoose {
		applyDelta(&a.loose, &a.looseInf, v.Obj, ubOld, v.Obj, ubNew)
	}
}

// GlobalLbChange accounts a global lower bound change of v.
func (a *ObjectiveAccountant) GlobalLbChange(v *Variable, lbOld, lbNew Rational) {
	if v.Obj.Sign() <= 0 {
		return
	}
	applyDelta(&a.globalPseudo, &a.globalPseudoInf, v.Obj, lbOld, v.Obj, lbNew)
}

// GlobalUbChange accounts a global upper bound change of v.
func (a *ObjectiveAccountant) GlobalUbChange(v *Variable, ubOld, ubNew Rational) {
	if v.Obj.Sign() >= 0 {
		return
	}
	applyDelta(&a.globalPseudo, &a.globalPseudoInf, v.Obj, ubOld, v.Obj, ubNew)
}

// StatusChange accounts the transition of v between loose and column. The
// pseudo and global sums are unaffected; only the loose sum moves.
func (a *ObjectiveAccountant) StatusChange(v *Variable, oldStatus, newStatus VarStatus) {
	if oldStatus == newStatus {
		return
	}
	b := bestBoundFor(v.Obj, v.LbLocal, v.UbLocal)
	c, inf := contribution(v.Obj, b)
	switch {
	case oldStatus == StatusLoose && newStatus == StatusColumn:
		if inf {
			a.looseInf--
		} else {
			a.loose = a.loose.Sub(c)
		}
		a.nloosevars--
	case oldStatus == StatusColumn && newStatus == StatusLoose:
		if inf {
			a.looseInf++
		} else {
			a.loose = a.loose.Add(c)
		}
		a.nloosevars++
	default:
		panic("ratmip: unsupported status transition")
	}
	if a.looseInf < 0 || a.nloosevars < 0 {
		panic("ratmip: loose accounting underflow")
	}
	if a.nloosevars == 0 {
		// no loose variables left: snap to exact zero
		a.loose = RatZero()
	}
}

// AddVar accounts a new problem variable as an objective change from zero.
func (a *ObjectiveAccountant) AddVar(v *Variable) {
	if v.Status == StatusLoose {
		a.nloosevars++
	}
	a.ObjChange(v, RatZero(), v.Obj)
}

// DelVar removes v's contribution; the reverse of AddVar.
func (a *ObjectiveAccountant) DelVar(v *Variable) {
	a.ObjChange(v, v.Obj, RatZero())
	if v.Status == StatusLoose {
		a.nloosevars--
		if a.nloosevars == 0 {
			a.loose = RatZero()
		}
	}
}
