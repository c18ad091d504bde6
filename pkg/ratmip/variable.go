// Package ratmip variable model.
//
// Variables are externally owned identities: columns and rows reference them
// and are torn down before them. The symmetry dispatcher captures one
// reference per variable it stores and releases them on teardown.
package ratmip

import "fmt"

// VarType classifies a variable's integrality requirement.
type VarType int8

const (
	// VarBinary is an integer variable with bounds within {0, 1}.
	VarBinary VarType = iota
	// VarInteger is a general integer variable.
	VarInteger
	// VarImplInt is continuous but integral in every optimal solution.
	VarImplInt
	// VarContinuous has no integrality requirement.
	VarContinuous
)

// String returns a short name for the variable type.
func (t VarType) String() string {
	switch t {
	case VarBinary:
		return "binary"
	case VarInteger:
		return "integer"
	case VarImplInt:
		return "implint"
	case VarContinuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// VarStatus describes how a variable currently participates in the solve.
type VarStatus int8

const (
	// StatusColumn means the variable is a column of the current LP.
	StatusColumn VarStatus = iota
	// StatusLoose means the variable is in the MIP but not an LP column.
	StatusLoose
	// StatusFixed means both bounds coincide.
	StatusFixed
	// StatusAggregated means the variable equals a multiple of another.
	StatusAggregated
	// StatusMultiAggregated means the variable is an affine combination.
	StatusMultiAggregated
	// StatusNegated means the variable is the negation of another.
	StatusNegated
	// StatusOriginal means the variable belongs to the original problem space.
	StatusOriginal
)

// Variable is a decision variable of the MIP. The Index is stable for the
// lifetime of the variable and is the identity used throughout both cores.
type Variable struct {
	Index  int
	Name   string
	Type   VarType
	Status VarStatus

	Obj      Rational
	LbLocal  Rational
	UbLocal  Rational
	LbGlobal Rational
	UbGlobal Rational

	// col is the LP column of the variable, nil unless Status is
	// StatusColumn and the column has been created.
	col *Column

	nuses int
}

// NewVariable creates a variable with the given identity, type, objective
// coefficient and global bounds. Local bounds start at the global ones.
// The caller holds the initial reference.
func NewVariable(index int, name string, typ VarType, obj, lb, ub Rational) (*Variable, error) {
	if index < 0 {
		return nil, fmt.Errorf("Variable: negative index %d", index)
	}
	if lb.Cmp(ub) > 0 {
		return nil, fmt.Errorf("Variable %s: lower bound %s above upper bound %s", name, lb, ub)
	}
	if typ == VarBinary {
		if lb.Sign() < 0 || ub.CmpFloat(1) > 0 {
			return nil, fmt.Errorf("Variable %s: binary bounds [%s,%s] outside [0,1]", name, lb, ub)
		}
	}
	return &Variable{
		Index:    index,
		Name:     name,
		Type:     typ,
		Status:   StatusLoose,
		Obj:      obj,
		LbLocal:  lb,
		UbLocal:  ub,
		LbGlobal: lb,
		UbGlobal: ub,
		nuses:    1,
	}, nil
}

// Capture takes one additional reference on the variable.
func (v *Variable) Capture() { v.nuses++ }

// Release drops one reference. Panics if no reference is held.
func (v *Variable) Release() {
	if v.nuses <= 0 {
		panic("ratmip: variable released without reference")
	}
	v.nuses--
}

// NUses returns the current reference count.
func (v *Variable) NUses() int { return v.nuses }

// Column returns the LP column of the variable, or nil while it is loose.
func (v *Variable) Column() *Column { return v.col }

// IsFixed reports whether the local bounds coincide.
func (v *Variable) IsFixed() bool { return v.LbLocal.Equal(v.UbLocal) }

func (v *Variable) String() string {
	return fmt.Sprintf("%s[%s,%s]", v.Name, v.LbLocal, v.UbLocal)
}
