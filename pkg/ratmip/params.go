package ratmip

// SymMethod is a bitset of enabled symmetry-handling method families.
type SymMethod uint8

const (
	// SymMethodSymbreak enables static symmetry-breaking constraints
	// (orbitopes, symresacks, SBCs) and their propagators.
	SymMethodSymbreak SymMethod = 1 << iota
	// SymMethodOrbitalReduction enables orbital reduction propagation.
	SymMethodOrbitalReduction
	// SymMethodSST enables Schreier-Sims table leader fixing.
	SymMethodSST
)

// Has reports whether the method m is enabled in the set.
func (s SymMethod) Has(m SymMethod) bool { return s&m != 0 }

// SymTiming says when the symmetry computation or constraint addition runs
// relative to presolve.
type SymTiming int

const (
	// TimingBeforePresolve runs the step before presolving starts.
	TimingBeforePresolve SymTiming = iota
	// TimingDuringPresolve runs the step in a presolve round.
	TimingDuringPresolve
	// TimingAfterPresolve runs the step once presolving finished.
	TimingAfterPresolve
)

// SstLeaderRule selects how the SST planner picks a leader inside an orbit.
type SstLeaderRule int

const (
	// SstLeaderFirst picks the first variable of the orbit.
	SstLeaderFirst SstLeaderRule = iota
	// SstLeaderLast picks the last variable of the orbit.
	SstLeaderLast
	// SstLeaderMaxConflicts picks the variable with the most conflicts
	// inside the orbit.
	SstLeaderMaxConflicts
)

// SstTieBreakRule selects which orbit the SST planner processes next.
type SstTieBreakRule int

const (
	// SstTieBreakMinOrbit prefers the smallest orbit.
	SstTieBreakMinOrbit SstTieBreakRule = iota
	// SstTieBreakMaxOrbit prefers the largest orbit.
	SstTieBreakMaxOrbit
	// SstTieBreakMaxConflicts prefers the orbit whose best leader has the
	// most conflicts.
	SstTieBreakMaxConflicts
)

// SstVarTypes is a bitset of variable types acceptable as SST leaders.
type SstVarTypes uint8

const (
	// SstTypeBinary accepts binary leaders.
	SstTypeBinary SstVarTypes = 1 << iota
	// SstTypeInteger accepts integer leaders.
	SstTypeInteger
	// SstTypeImplInt accepts implicit-integer leaders.
	SstTypeImplInt
	// SstTypeContinuous accepts continuous leaders.
	SstTypeContinuous
)

// Has reports whether the type set accepts variables of type t.
func (s SstVarTypes) Has(t VarType) bool {
	switch t {
	case VarBinary:
		return s&SstTypeBinary != 0
	case VarInteger:
		return s&SstTypeInteger != 0
	case VarImplInt:
		return s&SstTypeImplInt != 0
	default:
		return s&SstTypeContinuous != 0
	}
}

// SymParams collects every knob of the symmetry subsystem. The zero value
// is not useful; start from DefaultSymParams and override.
type SymParams struct {
	// UseSymmetry is the bitset of enabled method families. Empty
	// disables the subsystem entirely.
	UseSymmetry SymMethod

	// MaxGenerators caps how many generators are requested from the
	// automorphism engine. 0 means no cap.
	MaxGenerators int

	// CheckSymmetries verifies every returned generator against the
	// constraint system before use.
	CheckSymmetries bool

	// DoubleEquations feeds each equation into the symmetry graph as two
	// opposing inequalities.
	DoubleEquations bool

	// CompressSymmetries drops variables not moved by any generator when
	// the moved fraction is at most CompressThreshold.
	CompressSymmetries bool
	CompressThreshold  float64

	// DetectOrbitopes attempts orbitope detection per component.
	DetectOrbitopes bool

	// DetectSubgroups attempts the subgroup sub-orbitope search on
	// components that are not globally orbitopal.
	DetectSubgroups bool

	// MaxNConssSubgroup caps how many handling constraints the subgroup
	// detector may install per component.
	MaxNConssSubgroup int

	// AddWeakSBCs and AddStrongSBCs enable the symmetry-breaking
	// inequality fallbacks of the subgroup detector.
	AddWeakSBCs   bool
	AddStrongSBCs bool

	// AddSymresacks installs leftover generators as symresacks.
	AddSymresacks bool

	// UseDynamicProp marks installed orbitopes for dynamic propagation.
	UseDynamicProp bool

	// PreferLessRows processes subgroup generators with fewer 2-cycles
	// first; false reverses the order.
	PreferLessRows bool

	// RecomputeRestart is the epoch distance after which the symmetry
	// state is rebuilt from the MIP. 0 means never recompute.
	RecomputeRestart int

	// AddConsTiming and SymCompTiming place constraint addition and the
	// symmetry computation relative to presolve.
	AddConsTiming SymTiming
	SymCompTiming SymTiming

	// SST planner knobs.
	SstLeaderRule      SstLeaderRule
	SstTieBreakRule    SstTieBreakRule
	SstLeaderVarType   SstVarTypes
	SstAddCuts         bool
	SstMixedComponents bool

	// AddConflictCuts allows SST to use the setppc conflict graph for
	// upper-bound fixings.
	AddConflictCuts bool
}

// DefaultSymParams returns the default symmetry configuration: all three
// method families on, orbitope and subgroup detection enabled, SST leaders
// restricted to binaries with first-in-orbit selection.
func DefaultSymParams() SymParams {
	return SymParams{
		UseSymmetry:        SymMethodSymbreak | SymMethodOrbitalReduction | SymMethodSST,
		MaxGenerators:      1500,
		CheckSymmetries:    false,
		DoubleEquations:    false,
		CompressSymmetries: true,
		CompressThreshold:  0.5,
		DetectOrbitopes:    true,
		DetectSubgroups:    true,
		MaxNConssSubgroup:  500000,
		AddWeakSBCs:        true,
		AddStrongSBCs:      false,
		AddSymresacks:      true,
		UseDynamicProp:     true,
		PreferLessRows:     true,
		RecomputeRestart:   0,
		AddConsTiming:      TimingDuringPresolve,
		SymCompTiming:      TimingDuringPresolve,
		SstLeaderRule:      SstLeaderFirst,
		SstTieBreakRule:    SstTieBreakMaxOrbit,
		SstLeaderVarType:   SstTypeBinary,
		SstAddCuts:         true,
		SstMixedComponents: false,
		AddConflictCuts:    true,
	}
}
