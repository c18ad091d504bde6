package ratmip

import "errors"

// Sentinel errors for the operational failure modes of both cores.
// Invariant violations (broken links, ordering bugs, matrix inconsistency)
// are programmer errors and panic instead; see the package documentation.
var (
	// ErrLockedRow indicates an attempted coefficient edit on a row with
	// nlocks > 0. The edit is rejected atomically; the matrix is unchanged.
	ErrLockedRow = errors.New("ratmip: coefficient edit on locked row")

	// ErrBackendFailure indicates that a BackendLP primitive failed during
	// flush. The flush is aborted with the edit log intact; the next Flush
	// call retries from the current log.
	ErrBackendFailure = errors.New("ratmip: LP backend call failed")

	// ErrUnsupportedConstraint indicates that the automorphism driver met a
	// constraint kind it cannot translate into the symmetry graph. Symmetry
	// handling is disabled for the run; solving continues without it.
	ErrUnsupportedConstraint = errors.New("ratmip: constraint not representable in symmetry graph")

	// ErrTypeMismatch indicates that an orbit mixes variable types while
	// SstMixedComponents is false. The component is skipped for SST but
	// stays available to the other handling mechanisms.
	ErrTypeMismatch = errors.New("ratmip: orbit mixes variable types")

	// ErrStopRequested indicates cooperative cancellation. Partial state is
	// left consistent; already-installed handlers remain in place.
	ErrStopRequested = errors.New("ratmip: stop requested")

	// ErrSymmetryCheck indicates that generator verification found a
	// permutation that does not map the constraint system onto itself.
	ErrSymmetryCheck = errors.New("ratmip: generator fails symmetry check")
)
