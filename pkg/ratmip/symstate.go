package ratmip

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SymmetryState owns the computed symmetry information of one solve: the
// permutation variables, the generators, their component decomposition,
// the installed handling constraints and the propagation dispatcher.
// Nothing is persisted; the state is rebuilt from the MIP on each run.
type SymmetryState struct {
	params  SymParams
	driver  *AutomorphismDriver
	conssys ConstraintSystem
	stats   *SolverStats
	log     *logrus.Logger

	permvars []*Variable
	perms    [][]int
	// permstrans is the transposed permutation array:
	// permstrans[v][g] is the image of variable v under generator g.
	permstrans [][]int
	// permvarmap maps pre-compression indices to compressed ones, -1 for
	// dropped variables; nil when no compression happened.
	permvarmap    []int
	logGroupOrder float64

	decomp     *Decomposition
	orbitopes  []*Orbitope
	dispatcher *PropagationDispatcher

	nhandlers int
	active    bool

	computedAtLP  int
	computedAtDom int
	computed      bool
}

// NewSymmetryState wires the symmetry subsystem. engine computes graph
// automorphisms, conssys receives the handling constraints. A nil logger
// discards output.
func NewSymmetryState(engine AutomorphismEngine, conssys ConstraintSystem, stats *SolverStats, params SymParams, log *logrus.Logger) (*SymmetryState, error) {
	if conssys == nil {
		return nil, fmt.Errorf("NewSymmetryState: nil constraint system")
	}
	if stats == nil {
		return nil, fmt.Errorf("NewSymmetryState: nil stats")
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	driver, err := NewAutomorphismDriver(engine, params, log)
	if err != nil {
		return nil, err
	}
	return &SymmetryState{
		params:  params,
		driver:  driver,
		conssys: conssys,
		stats:   stats,
		log:     log,
	}, nil
}

// Active reports whether symmetry handling is in effect for this run.
func (s *SymmetryState) Active() bool { return s.active }

// PermVars returns the (possibly compressed) permutation variables.
func (s *SymmetryState) PermVars() []*Variable { return s.permvars }

// Perms returns the generators over the permutation variable indices.
func (s *SymmetryState) Perms() [][]int { return s.perms }

// LogGroupOrder returns log10 of the detected group order.
func (s *SymmetryState) LogGroupOrder() float64 { return s.logGroupOrder }

// Decomposition returns the component decomposition, nil before Compute.
func (s *SymmetryState) Decomposition() *Decomposition { return s.decomp }

// Orbitopes returns the detected orbitopes.
func (s *SymmetryState) Orbitopes() []*Orbitope { return s.orbitopes }

// NHandlers returns how many handling constraints were installed.
func (s *SymmetryState) NHandlers() int { return s.nhandlers }

// OrbitOf computes the orbit of variable index v under all generators,
// walking the transposed permutation array.
func (s *SymmetryState) OrbitOf(v int) []int {
	if len(s.permstrans) == 0 {
		return []int{v}
	}
	seen := map[int]bool{v: true}
	queue := []int{v}
	out := []int{v}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, img := range s.permstrans[cur] {
			if !seen[img] {
				seen[img] = true
				queue = append(queue, img)
				out = append(out, img)
			}
		}
	}
	return out
}

// Compute builds the symmetry graph, runs the automorphism engine,
// decomposes the generators into components, installs handling
// constraints and sets up the propagation dispatcher.
//
// An unsupported constraint disables symmetry handling for the run and
// returns nil: solving continues without symmetry. ErrStopRequested
// leaves already-installed handlers in place.
func (s *SymmetryState) Compute(vars []*Variable, conss []Cons, fixed map[*Variable]bool, stop StopSignal) error {
	s.computed = true
	s.computedAtLP = s.stats.LPCount
	s.computedAtDom = s.stats.DomainChangeCount
	if s.params.UseSymmetry == 0 {
		s.active = false
		return nil
	}

	if err := s.driver.Build(vars, conss, fixed); err != nil {
		if errors.Is(err, ErrUnsupportedConstraint) {
			s.log.WithError(err).Info("symmetry handling disabled for this run")
			s.active = false
			return nil
		}
		return err
	}
	res, err := s.driver.Compute(stop)
	if err != nil {
		if errors.Is(err, ErrUnsupportedConstraint) {
			s.log.WithError(err).Info("symmetry handling disabled for this run")
			s.active = false
			return nil
		}
		return err
	}
	if len(res.Perms) == 0 {
		s.active = false
		return nil
	}

	permvars, perms := s.driver.PermVars(), res.Perms
	if s.params.CompressSymmetries {
		permvars, perms, s.permvarmap = CompressPerms(permvars, perms, s.params.CompressThreshold)
	}
	s.permvars = permvars
	s.perms = perms
	s.logGroupOrder = res.LogGroupOrder
	for _, v := range s.permvars {
		v.Capture()
	}
	s.permstrans = make([][]int, len(s.permvars))
	for v := range s.permstrans {
		s.permstrans[v] = make([]int, len(s.perms))
		for g, p := range s.perms {
			s.permstrans[v][g] = p[v]
		}
	}
	s.decomp = DecomposeComponents(len(s.permvars), s.perms)
	s.active = true

	if err := s.handleComponents(conss, stop); err != nil {
		return err
	}
	s.buildDispatcher()
	s.log.WithFields(logrus.Fields{
		"npermvars":   len(s.permvars),
		"ngenerators": len(s.perms),
		"ncomponents": s.decomp.NComponents(),
		"nhandlers":   s.nhandlers,
		"loggroup":    s.logGroupOrder,
	}).Info("symmetry computed")
	return nil
}

// handleComponents runs the static handling pipeline per component:
// orbitope detection first, then the subgroup search, then SST. A method
// that covers a component blocks the weaker ones on it.
func (s *SymmetryState) handleComponents(conss []Cons, stop StopSignal) error {
	orbdet := NewOrbitopeDetector(s.permvars, conss)
	for c := 0; c < s.decomp.NComponents(); c++ {
		if stopped(stop) {
			return ErrStopRequested
		}
		compPerms := s.componentPerms(c)
		if len(compPerms) == 0 {
			continue
		}
		if s.params.UseSymmetry.Has(SymMethodSymbreak) && !s.decomp.Blocked[c].Has(BlockSymbreak) {
			handled, err := s.handleSymbreak(c, compPerms, orbdet, conss, stop)
			if err != nil {
				return err
			}
			if handled {
				continue
			}
		}
		if s.params.UseSymmetry.Has(SymMethodSST) && !s.decomp.Blocked[c].Has(BlockSST) {
			if err := s.handleSST(c, compPerms, conss, stop); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SymmetryState) componentPerms(c int) [][]int {
	var out [][]int
	for _, pi := range s.decomp.ComponentPerms(c) {
		out = append(out, s.perms[pi])
	}
	return out
}

// handleSymbreak tries the orbitope and subgroup handlers on a component.
// It reports whether the component got covered.
func (s *SymmetryState) handleSymbreak(c int, compPerms [][]int, orbdet *OrbitopeDetector, conss []Cons, stop StopSignal) (bool, error) {
	if s.params.DetectOrbitopes {
		if orb := orbdet.Detect(compPerms); orb != nil {
			matrix := make([][]*Variable, orb.NRows())
			for ri, row := range orb.Matrix {
				matrix[ri] = make([]*Variable, len(row))
				for ci, idx := range row {
					matrix[ri][ci] = s.permvars[idx]
				}
			}
			name := fmt.Sprintf("orbitope_comp%d", c)
			if err := s.conssys.AddOrbitope(name, orb.Kind, matrix, s.params.UseDynamicProp); err != nil {
				return false, err
			}
			s.orbitopes = append(s.orbitopes, orb)
			s.nhandlers++
			// The orbitope fully covers the component; the orbitopal
			// propagator takes over all dynamic handling.
			s.decomp.Blocked[c] |= BlockSymbreak | BlockOrbitalReduction | BlockSST
			return true, nil
		}
	}
	if s.params.DetectSubgroups {
		sub, err := NewSubgroupDetector(s.permvars, conss, s.conssys, s.params, s.log)
		if err != nil {
			return false, err
		}
		n, err := sub.Handle(compPerms, stop)
		s.nhandlers += n
		if err != nil {
			return false, err
		}
		if n > 0 {
			s.decomp.Blocked[c] |= BlockOrbitalReduction
			return true, nil
		}
	}
	if s.params.AddSymresacks {
		n, err := s.addComponentSymresacks(c, compPerms, stop)
		s.nhandlers += n
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// addComponentSymresacks installs one symresack per generator of the
// component in the natural variable order.
func (s *SymmetryState) addComponentSymresacks(c int, compPerms [][]int, stop StopSignal) (int, error) {
	nadded := 0
	for gi, p := range compPerms {
		if stopped(stop) {
			return nadded, ErrStopRequested
		}
		name := fmt.Sprintf("symresack_comp%d_%d", c, gi)
		if err := s.conssys.AddSymresack(name, p, s.permvars); err != nil {
			return nadded, err
		}
		nadded++
	}
	return nadded, nil
}

func (s *SymmetryState) handleSST(c int, compPerms [][]int, conss []Cons, stop StopSignal) error {
	planner, err := NewSSTPlanner(s.permvars, conss, s.conssys, s.params, s.log)
	if err != nil {
		return err
	}
	n, err := planner.Plan(compPerms, stop)
	s.nhandlers += n
	if err != nil {
		if errors.Is(err, ErrTypeMismatch) {
			s.decomp.Blocked[c] |= BlockSST
			s.log.WithError(err).WithField("component", c).Debug("component skipped for sst")
			return nil
		}
		return err
	}
	return nil
}

// buildDispatcher assembles the propagation pipeline over the components
// that still admit dynamic propagation.
func (s *SymmetryState) buildDispatcher() {
	var props []SymPropagator
	if len(s.orbitopes) > 0 {
		props = append(props, NewOrbitopalReductionPropagator(s.permvars, s.orbitopes, s.stats))
	}
	if s.params.UseSymmetry.Has(SymMethodOrbitalReduction) {
		var perms [][]int
		for c := 0; c < s.decomp.NComponents(); c++ {
			if s.decomp.Blocked[c].Has(BlockOrbitalReduction) {
				continue
			}
			perms = append(perms, s.componentPerms(c)...)
		}
		if len(perms) > 0 {
			props = append(props, NewOrbitalReductionPropagator(s.permvars, perms, s.stats))
		}
	}
	if s.params.UseSymmetry.Has(SymMethodSymbreak) {
		var perms [][]int
		for c := 0; c < s.decomp.NComponents(); c++ {
			if s.decomp.Blocked[c].Has(BlockSymbreak) {
				continue
			}
			perms = append(perms, s.componentPerms(c)...)
		}
		if len(perms) > 0 {
			props = append(props, NewLexReductionPropagator(s.permvars, perms, s.stats))
		}
	}
	s.dispatcher = NewPropagationDispatcher(props, s.log)
}

// Propagate runs one dispatcher round. It reports PropDidNotRun when
// symmetry is inactive.
func (s *SymmetryState) Propagate(stop StopSignal) (PropStatus, int, error) {
	if !s.active || s.dispatcher == nil {
		return PropDidNotRun, 0, nil
	}
	return s.dispatcher.Propagate(stop)
}

// NeedsRecompute reports whether the solver epochs advanced far enough
// past the last computation that the state should be rebuilt. A
// RecomputeRestart of 0 never recomputes.
func (s *SymmetryState) NeedsRecompute() bool {
	if !s.computed || s.params.RecomputeRestart <= 0 {
		return false
	}
	return s.stats.LPCount-s.computedAtLP >= s.params.RecomputeRestart ||
		s.stats.DomainChangeCount-s.computedAtDom >= s.params.RecomputeRestart
}

// Teardown releases the captured variable references and drops the
// computed state. The state may be recomputed afterwards.
func (s *SymmetryState) Teardown() {
	for _, v := range s.permvars {
		v.Release()
	}
	s.permvars = nil
	s.perms = nil
	s.permstrans = nil
	s.permvarmap = nil
	s.decomp = nil
	s.orbitopes = nil
	s.dispatcher = nil
	s.nhandlers = 0
	s.active = false
	s.computed = false
}
