package ratmip

import (
	"io"

	"github.com/sirupsen/logrus"
)

// PropStatus is the aggregate outcome of a propagation round.
type PropStatus int

const (
	// PropDidNotRun means no propagator had anything to do.
	PropDidNotRun PropStatus = iota
	// PropDidNotFind means propagators ran but changed nothing.
	PropDidNotFind
	// PropReducedDomain means at least one domain was tightened.
	PropReducedDomain
	// PropCutoff means a propagator proved the node infeasible.
	PropCutoff
)

// String returns the status name.
func (s PropStatus) String() string {
	switch s {
	case PropDidNotRun:
		return "DID_NOT_RUN"
	case PropDidNotFind:
		return "DID_NOT_FIND"
	case PropReducedDomain:
		return "REDUCED_DOMAIN"
	default:
		return "CUTOFF"
	}
}

// SymPropagator is one symmetry propagation method.
type SymPropagator interface {
	Name() string

	// Propagate runs one round over the local domains. It returns whether
	// the node is infeasible, how many domain reductions were made and
	// whether the propagator actually ran. Propagators do not call back
	// into the dispatcher.
	Propagate(stop StopSignal) (infeasible bool, nreductions int, didrun bool, err error)
}

// PropagationDispatcher runs the symmetry propagators in a fixed order at
// each search-tree node: orbitopal reduction, then orbital reduction, then
// per-permutation lexicographic reduction. The first infeasibility
// short-circuits the round.
type PropagationDispatcher struct {
	props []SymPropagator
	log   *logrus.Logger
}

// NewPropagationDispatcher creates a dispatcher over the given propagators
// in call order. A nil logger discards output.
func NewPropagationDispatcher(props []SymPropagator, log *logrus.Logger) *PropagationDispatcher {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &PropagationDispatcher{props: props, log: log}
}

// Propagate runs one round and aggregates the results.
func (d *PropagationDispatcher) Propagate(stop StopSignal) (PropStatus, int, error) {
	total := 0
	anyRan := false
	for _, p := range d.props {
		if stopped(stop) {
			return statusFor(anyRan, total), total, ErrStopRequested
		}
		infeasible, n, didrun, err := p.Propagate(stop)
		total += n
		anyRan = anyRan || didrun
		if err != nil {
			return statusFor(anyRan, total), total, err
		}
		if infeasible {
			d.log.WithField("propagator", p.Name()).Debug("cutoff")
			return PropCutoff, total, nil
		}
	}
	return statusFor(anyRan, total), total, nil
}

func statusFor(anyRan bool, nreductions int) PropStatus {
	switch {
	case nreductions > 0:
		return PropReducedDomain
	case anyRan:
		return PropDidNotFind
	default:
		return PropDidNotRun
	}
}
