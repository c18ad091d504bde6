package ratmip

// SolverStats carries the per-solver counters that used to be process-wide:
// the row index allocator, the LP solve epoch and the domain-change epoch.
// One instance is shared by the LP and the symmetry state; it is passed
// explicitly into every call that needs it.
type SolverStats struct {
	nextRowIndex int

	// LPCount counts LP solves; bumped by the outer solver.
	LPCount int

	// DomainChangeCount counts bound changes; bumped by the outer solver.
	DomainChangeCount int
}

// NewSolverStats creates a zeroed stats object.
func NewSolverStats() *SolverStats {
	return &SolverStats{}
}

// NewRowIndex allocates the next unique row index.
func (s *SolverStats) NewRowIndex() int {
	i := s.nextRowIndex
	s.nextRowIndex++
	return i
}

// BumpLPCount advances the LP solve epoch.
func (s *SolverStats) BumpLPCount() { s.LPCount++ }

// BumpDomainChange advances the domain-change epoch.
func (s *SolverStats) BumpDomainChange() { s.DomainChangeCount++ }
