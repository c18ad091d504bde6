// Package ratmip constraint model for symmetry detection.
//
// The automorphism driver needs a uniform view of the MIP's constraints:
// each kind translates itself into one or more symbolic rows of (variable,
// exact coefficient) entries with a sense and a right-hand-side color key.
// Each kind is a member of a small sum type with its own collect method;
// there is no inheritance hierarchy.
//
// The ConstraintSystem interface is the outbound capability: the symmetry
// dispatcher uses it to install the handling constraints it decides on.
package ratmip

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ConsKind enumerates the constraint kinds the symmetry graph understands.
type ConsKind int

const (
	// ConsLinear is a general linear constraint lhs <= ax <= rhs.
	ConsLinear ConsKind = iota
	// ConsSetPacking is sum(x) <= 1 over binaries.
	ConsSetPacking
	// ConsSetPartitioning is sum(x) == 1 over binaries.
	ConsSetPartitioning
	// ConsSetCovering is sum(x) >= 1 over binaries.
	ConsSetCovering
	// ConsLogicOr is a clause: at least one binary is 1.
	ConsLogicOr
	// ConsKnapsack is sum(w_i x_i) <= capacity over binaries.
	ConsKnapsack
	// ConsVarbound is lhs <= x + c*y <= rhs.
	ConsVarbound
	// ConsXor is x_1 xor ... xor x_n == parity.
	ConsXor
	// ConsAnd is r == x_1 and ... and x_n.
	ConsAnd
	// ConsOr is r == x_1 or ... or x_n.
	ConsOr
	// ConsLinking encodes an integer as a binary vector.
	ConsLinking
	// ConsBoundDisjunction is a disjunction of variable bound literals.
	ConsBoundDisjunction
	// ConsNonlinear carries an expression tree; it contributes only
	// coloring information to the symmetry graph.
	ConsNonlinear
)

// RowSense is the color-relevant sense of a symbolic row. Equations and
// inequalities of different senses must never be mapped onto each other by
// a symmetry, so each gets its own color class.
type RowSense int

const (
	// SenseEq is an equation.
	SenseEq RowSense = iota
	// SenseLe is a <= inequality (>= rows are negated into this form).
	SenseLe
	// SenseXor is an xor parity row.
	SenseXor
	// SenseAnd is an and-resultant row.
	SenseAnd
	// SenseOr is an or-resultant row.
	SenseOr
	// SenseDisjSimple is a bound disjunction without repeated variables.
	SenseDisjSimple
	// SenseDisjPaired is a bound disjunction with exactly two literals on
	// the same variable.
	SenseDisjPaired
)

// SymCoef is one matrix entry of a symbolic row.
type SymCoef struct {
	Var *Variable
	Val Rational
}

// SymRow is one symbolic row fed into the symmetry graph.
type SymRow struct {
	Sense RowSense
	Rhs   Rational
	Coefs []SymCoef
}

// Cons is the sum type of constraints visible to the symmetry code.
type Cons interface {
	Kind() ConsKind
	Name() string
	Vars() []*Variable

	// collectCoefficients translates the constraint into symbolic rows.
	// Nonlinear constraints return ErrUnsupportedConstraint here; the
	// driver handles them through their expression trees instead.
	collectCoefficients() ([]SymRow, error)
}

// --- linear ------------------------------------------------------------

// LinearCons is lhs <= sum(coefs_i * vars_i) <= rhs.
type LinearCons struct {
	ConsName string
	Xs       []*Variable
	Coefs    []Rational
	LhsVal   Rational
	RhsVal   Rational
}

// NewLinearCons validates and creates a linear constraint.
func NewLinearCons(name string, vars []*Variable, coefs []Rational, lhs, rhs Rational) (*LinearCons, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("LinearCons %s: no variables", name)
	}
	if len(vars) != len(coefs) {
		return nil, fmt.Errorf("LinearCons %s: %d vars but %d coefs", name, len(vars), len(coefs))
	}
	if lhs.Cmp(rhs) > 0 {
		return nil, fmt.Errorf("LinearCons %s: sides crossed", name)
	}
	return &LinearCons{ConsName: name, Xs: vars, Coefs: coefs, LhsVal: lhs, RhsVal: rhs}, nil
}

// Kind implements Cons.
func (c *LinearCons) Kind() ConsKind { return ConsLinear }

// Name implements Cons.
func (c *LinearCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *LinearCons) Vars() []*Variable { return c.Xs }

func (c *LinearCons) collectCoefficients() ([]SymRow, error) {
	mk := func(coefs []Rational) []SymCoef {
		out := make([]SymCoef, len(c.Xs))
		for i, v := range c.Xs {
			out[i] = SymCoef{Var: v, Val: coefs[i]}
		}
		return out
	}
	if c.LhsVal.Equal(c.RhsVal) {
		return []SymRow{{Sense: SenseEq, Rhs: c.RhsVal, Coefs: mk(c.Coefs)}}, nil
	}
	var rows []SymRow
	if c.RhsVal.IsFinite() {
		rows = append(rows, SymRow{Sense: SenseLe, Rhs: c.RhsVal, Coefs: mk(c.Coefs)})
	}
	if c.LhsVal.IsFinite() {
		neg := make([]Rational, len(c.Coefs))
		for i, v := range c.Coefs {
			neg[i] = v.Neg()
		}
		rows = append(rows, SymRow{Sense: SenseLe, Rhs: c.LhsVal.Neg(), Coefs: mk(neg)})
	}
	return rows, nil
}

// --- set packing / partitioning / covering ------------------------------

// SetPPCCons is a set packing, partitioning or covering constraint.
type SetPPCCons struct {
	ConsName string
	PPCKind  ConsKind // ConsSetPacking, ConsSetPartitioning or ConsSetCovering
	Xs       []*Variable
}

// NewSetPPCCons validates and creates a setppc constraint over binaries.
func NewSetPPCCons(name string, kind ConsKind, vars []*Variable) (*SetPPCCons, error) {
	switch kind {
	case ConsSetPacking, ConsSetPartitioning, ConsSetCovering:
	default:
		return nil, fmt.Errorf("SetPPCCons %s: kind %d is not a setppc kind", name, kind)
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("SetPPCCons %s: no variables", name)
	}
	for _, v := range vars {
		if v.Type != VarBinary {
			return nil, fmt.Errorf("SetPPCCons %s: variable %s is not binary", name, v.Name)
		}
	}
	return &SetPPCCons{ConsName: name, PPCKind: kind, Xs: vars}, nil
}

// Kind implements Cons.
func (c *SetPPCCons) Kind() ConsKind { return c.PPCKind }

// Name implements Cons.
func (c *SetPPCCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *SetPPCCons) Vars() []*Variable { return c.Xs }

func (c *SetPPCCons) collectCoefficients() ([]SymRow, error) {
	one := RatInt(1)
	coefs := make([]SymCoef, len(c.Xs))
	negCoefs := make([]SymCoef, len(c.Xs))
	for i, v := range c.Xs {
		coefs[i] = SymCoef{Var: v, Val: one}
		negCoefs[i] = SymCoef{Var: v, Val: one.Neg()}
	}
	switch c.PPCKind {
	case ConsSetPacking:
		return []SymRow{{Sense: SenseLe, Rhs: one, Coefs: coefs}}, nil
	case ConsSetPartitioning:
		return []SymRow{{Sense: SenseEq, Rhs: one, Coefs: coefs}}, nil
	default: // covering: sum >= 1 becomes -sum <= -1
		return []SymRow{{Sense: SenseLe, Rhs: one.Neg(), Coefs: negCoefs}}, nil
	}
}

// --- logicor -----------------------------------------------------------

// LogicOrCons is a clause: at least one of the binaries is 1.
type LogicOrCons struct {
	ConsName string
	Xs       []*Variable
}

// Kind implements Cons.
func (c *LogicOrCons) Kind() ConsKind { return ConsLogicOr }

// Name implements Cons.
func (c *LogicOrCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *LogicOrCons) Vars() []*Variable { return c.Xs }

func (c *LogicOrCons) collectCoefficients() ([]SymRow, error) {
	coefs := make([]SymCoef, len(c.Xs))
	for i, v := range c.Xs {
		coefs[i] = SymCoef{Var: v, Val: RatInt(-1)}
	}
	return []SymRow{{Sense: SenseLe, Rhs: RatInt(-1), Coefs: coefs}}, nil
}

// --- knapsack ----------------------------------------------------------

// KnapsackCons is sum(w_i x_i) <= capacity over binaries.
type KnapsackCons struct {
	ConsName string
	Xs       []*Variable
	Weights  []Rational
	Capacity Rational
}

// Kind implements Cons.
func (c *KnapsackCons) Kind() ConsKind { return ConsKnapsack }

// Name implements Cons.
func (c *KnapsackCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *KnapsackCons) Vars() []*Variable { return c.Xs }

func (c *KnapsackCons) collectCoefficients() ([]SymRow, error) {
	if len(c.Xs) != len(c.Weights) {
		return nil, pkgerrors.Wrapf(ErrUnsupportedConstraint, "knapsack %s: weight count mismatch", c.ConsName)
	}
	coefs := make([]SymCoef, len(c.Xs))
	for i, v := range c.Xs {
		coefs[i] = SymCoef{Var: v, Val: c.Weights[i]}
	}
	return []SymRow{{Sense: SenseLe, Rhs: c.Capacity, Coefs: coefs}}, nil
}

// --- varbound ----------------------------------------------------------

// VarboundCons is lhs <= x + c*y <= rhs.
type VarboundCons struct {
	ConsName string
	X, Y     *Variable
	C        Rational
	LhsVal   Rational
	RhsVal   Rational
}

// Kind implements Cons.
func (c *VarboundCons) Kind() ConsKind { return ConsVarbound }

// Name implements Cons.
func (c *VarboundCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *VarboundCons) Vars() []*Variable { return []*Variable{c.X, c.Y} }

func (c *VarboundCons) collectCoefficients() ([]SymRow, error) {
	lin := &LinearCons{
		ConsName: c.ConsName,
		Xs:       []*Variable{c.X, c.Y},
		Coefs:    []Rational{RatInt(1), c.C},
		LhsVal:   c.LhsVal,
		RhsVal:   c.RhsVal,
	}
	return lin.collectCoefficients()
}

// --- xor / and / or ----------------------------------------------------

// XorCons is x_1 xor ... xor x_n == Parity.
type XorCons struct {
	ConsName string
	Xs       []*Variable
	Parity   bool
}

// Kind implements Cons.
func (c *XorCons) Kind() ConsKind { return ConsXor }

// Name implements Cons.
func (c *XorCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *XorCons) Vars() []*Variable { return c.Xs }

func (c *XorCons) collectCoefficients() ([]SymRow, error) {
	coefs := make([]SymCoef, len(c.Xs))
	for i, v := range c.Xs {
		coefs[i] = SymCoef{Var: v, Val: RatInt(1)}
	}
	rhs := RatInt(0)
	if c.Parity {
		rhs = RatInt(1)
	}
	return []SymRow{{Sense: SenseXor, Rhs: rhs, Coefs: coefs}}, nil
}

// AndCons is Res == and(Operands). The resultant is distinguished from the
// operands by its coefficient so that no symmetry may exchange them.
type AndCons struct {
	ConsName string
	Res      *Variable
	Operands []*Variable
}

// Kind implements Cons.
func (c *AndCons) Kind() ConsKind { return ConsAnd }

// Name implements Cons.
func (c *AndCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *AndCons) Vars() []*Variable {
	return append([]*Variable{c.Res}, c.Operands...)
}

func (c *AndCons) collectCoefficients() ([]SymRow, error) {
	coefs := make([]SymCoef, 0, len(c.Operands)+1)
	coefs = append(coefs, SymCoef{Var: c.Res, Val: RatInt(2)})
	for _, v := range c.Operands {
		coefs = append(coefs, SymCoef{Var: v, Val: RatInt(1)})
	}
	return []SymRow{{Sense: SenseAnd, Rhs: RatZero(), Coefs: coefs}}, nil
}

// OrCons is Res == or(Operands).
type OrCons struct {
	ConsName string
	Res      *Variable
	Operands []*Variable
}

// Kind implements Cons.
func (c *OrCons) Kind() ConsKind { return ConsOr }

// Name implements Cons.
func (c *OrCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *OrCons) Vars() []*Variable {
	return append([]*Variable{c.Res}, c.Operands...)
}

func (c *OrCons) collectCoefficients() ([]SymRow, error) {
	coefs := make([]SymCoef, 0, len(c.Operands)+1)
	coefs = append(coefs, SymCoef{Var: c.Res, Val: RatInt(2)})
	for _, v := range c.Operands {
		coefs = append(coefs, SymCoef{Var: v, Val: RatInt(1)})
	}
	return []SymRow{{Sense: SenseOr, Rhs: RatZero(), Coefs: coefs}}, nil
}

// --- linking -----------------------------------------------------------

// LinkingCons encodes IntVar == sum(Vals_i * BinVars_i) with the binaries
// forming an implicit partition.
type LinkingCons struct {
	ConsName string
	IntVar   *Variable
	BinVars  []*Variable
	Vals     []Rational
}

// Kind implements Cons.
func (c *LinkingCons) Kind() ConsKind { return ConsLinking }

// Name implements Cons.
func (c *LinkingCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *LinkingCons) Vars() []*Variable {
	return append([]*Variable{c.IntVar}, c.BinVars...)
}

func (c *LinkingCons) collectCoefficients() ([]SymRow, error) {
	if len(c.BinVars) != len(c.Vals) {
		return nil, pkgerrors.Wrapf(ErrUnsupportedConstraint, "linking %s: value count mismatch", c.ConsName)
	}
	coefs := make([]SymCoef, 0, len(c.BinVars)+1)
	coefs = append(coefs, SymCoef{Var: c.IntVar, Val: RatInt(-1)})
	for i, v := range c.BinVars {
		coefs = append(coefs, SymCoef{Var: v, Val: c.Vals[i]})
	}
	return []SymRow{{Sense: SenseEq, Rhs: RatZero(), Coefs: coefs}}, nil
}

// --- bound disjunction --------------------------------------------------

// BoundLiteral is one literal of a bound disjunction: Var >= Bound when
// Lower, else Var <= Bound.
type BoundLiteral struct {
	Var   *Variable
	Lower bool
	Bound Rational
}

// BoundDisjunctionCons is a disjunction of bound literals. Two shapes are
// representable: no variable repeated, or exactly two literals on the same
// variable; anything else is unsupported.
type BoundDisjunctionCons struct {
	ConsName string
	Literals []BoundLiteral
}

// Kind implements Cons.
func (c *BoundDisjunctionCons) Kind() ConsKind { return ConsBoundDisjunction }

// Name implements Cons.
func (c *BoundDisjunctionCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *BoundDisjunctionCons) Vars() []*Variable {
	out := make([]*Variable, len(c.Literals))
	for i, l := range c.Literals {
		out[i] = l.Var
	}
	return out
}

func (c *BoundDisjunctionCons) collectCoefficients() ([]SymRow, error) {
	occ := make(map[*Variable]int)
	for _, l := range c.Literals {
		occ[l.Var]++
	}
	sense := SenseDisjSimple
	for _, n := range occ {
		if n == 1 {
			continue
		}
		if n > 2 {
			return nil, pkgerrors.Wrapf(ErrUnsupportedConstraint,
				"bound disjunction %s: variable repeated %d times", c.ConsName, n)
		}
		sense = SenseDisjPaired
	}
	coefs := make([]SymCoef, len(c.Literals))
	for i, l := range c.Literals {
		val := l.Bound
		if l.Lower {
			val = val.Neg()
		}
		coefs[i] = SymCoef{Var: l.Var, Val: val}
	}
	return []SymRow{{Sense: sense, Rhs: RatInt(int64(len(c.Literals))), Coefs: coefs}}, nil
}

// --- nonlinear ----------------------------------------------------------

// NonlinearCons carries an expression tree equated to an auxiliary
// variable. It is never translated into symbolic rows; the automorphism
// driver colors its variables through expression-tree isomorphism.
type NonlinearCons struct {
	ConsName string
	Aux      *Variable
	Tree     *Expr
}

// Kind implements Cons.
func (c *NonlinearCons) Kind() ConsKind { return ConsNonlinear }

// Name implements Cons.
func (c *NonlinearCons) Name() string { return c.ConsName }

// Vars implements Cons.
func (c *NonlinearCons) Vars() []*Variable {
	vars := []*Variable{c.Aux}
	c.Tree.walk(func(e *Expr) {
		if e.Op == ExprVar {
			vars = append(vars, e.Var)
		}
	})
	return vars
}

func (c *NonlinearCons) collectCoefficients() ([]SymRow, error) {
	return nil, pkgerrors.Wrapf(ErrUnsupportedConstraint, "nonlinear %s has no linear rows", c.ConsName)
}

// --- expression trees ---------------------------------------------------

// ExprOp is the operator of an expression node.
type ExprOp int8

const (
	// ExprVar is a variable leaf.
	ExprVar ExprOp = iota
	// ExprConst is a constant leaf.
	ExprConst
	// ExprSum adds its children.
	ExprSum
	// ExprProd multiplies its children.
	ExprProd
	// ExprPow raises the child to the constant exponent in Const.
	ExprPow
	// ExprAbs is the absolute value of the child.
	ExprAbs
)

// Expr is a node of a nonlinear constraint's expression tree.
type Expr struct {
	Op       ExprOp
	Var      *Variable
	Const    Rational
	Children []*Expr
}

// walk visits the tree in preorder.
func (e *Expr) walk(fn func(*Expr)) {
	fn(e)
	for _, ch := range e.Children {
		ch.walk(fn)
	}
}

// Isomorphic reports whether two expression trees are identical after
// renaming variables according to rename (a's variable -> b's variable).
// Variables not present in rename must map identically.
func (e *Expr) Isomorphic(other *Expr, rename map[*Variable]*Variable) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Op != other.Op || len(e.Children) != len(other.Children) {
		return false
	}
	switch e.Op {
	case ExprVar:
		want := e.Var
		if mapped, ok := rename[e.Var]; ok {
			want = mapped
		}
		return want == other.Var
	case ExprConst, ExprPow:
		if !e.Const.Equal(other.Const) {
			return false
		}
	}
	for i := range e.Children {
		if !e.Children[i].Isomorphic(other.Children[i], rename) {
			return false
		}
	}
	return true
}

// --- outbound capability -------------------------------------------------

// OrbitopeKind selects the orbitope constraint flavor.
type OrbitopeKind int

const (
	// OrbitopeFull is the generic full orbitope.
	OrbitopeFull OrbitopeKind = iota
	// OrbitopePacking is restricted to rows of set-packing constraints.
	OrbitopePacking
	// OrbitopePartitioning is restricted to rows of set-partitioning
	// constraints.
	OrbitopePartitioning
)

// ConstraintSystem is the capability through which the symmetry dispatcher
// installs handling constraints in the outer solver.
type ConstraintSystem interface {
	// AddOrbitope installs an orbitope constraint over the matrix of
	// variables (rows x columns).
	AddOrbitope(name string, kind OrbitopeKind, matrix [][]*Variable, dynamic bool) error

	// AddSymresack installs a symresack for a single permutation given in
	// the index space of vars.
	AddSymresack(name string, perm []int, vars []*Variable) error

	// AddLinearInequality installs lhs <= sum(coefs*vars) <= rhs; used for
	// SST cuts and strong/weak SBCs.
	AddLinearInequality(name string, coefs []Rational, vars []*Variable, lhs, rhs Rational) error

	// FixVarUpper tightens the upper bound of v to value.
	FixVarUpper(v *Variable, value Rational) error
}
