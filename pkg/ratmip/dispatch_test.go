package ratmip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedProp is a canned propagator recording its invocation order.
type scriptedProp struct {
	name        string
	infeasible  bool
	nreductions int
	didrun      bool
	calls       *[]string
}

func (p *scriptedProp) Name() string { return p.name }

func (p *scriptedProp) Propagate(stop StopSignal) (bool, int, bool, error) {
	*p.calls = append(*p.calls, p.name)
	return p.infeasible, p.nreductions, p.didrun, nil
}

func TestDispatcherRunsInOrder(t *testing.T) {
	var calls []string
	d := NewPropagationDispatcher([]SymPropagator{
		&scriptedProp{name: "orbitopered", didrun: true, calls: &calls},
		&scriptedProp{name: "orbitalred", didrun: true, nreductions: 2, calls: &calls},
		&scriptedProp{name: "lexred", didrun: true, nreductions: 1, calls: &calls},
	}, nil)

	status, n, err := d.Propagate(nil)
	require.NoError(t, err)
	require.Equal(t, PropReducedDomain, status)
	require.Equal(t, 3, n)
	require.Equal(t, []string{"orbitopered", "orbitalred", "lexred"}, calls)
}

func TestDispatcherCutoffShortCircuits(t *testing.T) {
	var calls []string
	d := NewPropagationDispatcher([]SymPropagator{
		&scriptedProp{name: "orbitopered", didrun: true, infeasible: true, calls: &calls},
		&scriptedProp{name: "lexred", didrun: true, calls: &calls},
	}, nil)

	status, _, err := d.Propagate(nil)
	require.NoError(t, err)
	require.Equal(t, PropCutoff, status)
	require.Equal(t, []string{"orbitopered"}, calls)
}

func TestDispatcherStatuses(t *testing.T) {
	var calls []string
	empty := NewPropagationDispatcher(nil, nil)
	status, _, err := empty.Propagate(nil)
	require.NoError(t, err)
	require.Equal(t, PropDidNotRun, status)

	idle := NewPropagationDispatcher([]SymPropagator{
		&scriptedProp{name: "lexred", calls: &calls},
	}, nil)
	status, _, err = idle.Propagate(nil)
	require.NoError(t, err)
	require.Equal(t, PropDidNotRun, status)

	ran := NewPropagationDispatcher([]SymPropagator{
		&scriptedProp{name: "lexred", didrun: true, calls: &calls},
	}, nil)
	status, _, err = ran.Propagate(nil)
	require.NoError(t, err)
	require.Equal(t, PropDidNotFind, status)
}

func TestPropStatusString(t *testing.T) {
	require.Equal(t, "DID_NOT_RUN", PropDidNotRun.String())
	require.Equal(t, "DID_NOT_FIND", PropDidNotFind.String())
	require.Equal(t, "REDUCED_DOMAIN", PropReducedDomain.String())
	require.Equal(t, "CUTOFF", PropCutoff.String())
}
