// Package ratmip implements the exact bookkeeping core of a mixed-integer
// programming solver, together with its symmetry detection and handling
// machinery.
//
// The package has two halves that share a variable model but are otherwise
// independent:
//
// Core A keeps an exact (arbitrary-precision rational) image of a linear
// program — columns, rows, coefficients, bounds, sides, objective — in a
// doubly-linked sparse matrix, and synchronizes it lazily with an external
// LP backend through a delta log and a flush protocol. See LP, Column, Row
// and BackendLP. The ObjectiveAccountant tracks pseudo, loose and global
// pseudo objective values incrementally under bound and objective edits.
//
// Core B inspects the coefficient structure of the MIP, asks an external
// graph-automorphism engine for symmetry group generators, decomposes them
// into independent components, and installs the strongest handling mechanism
// it can recognize per component: orbitope constraints, symresacks,
// Schreier-Sims leader inequalities, or plain lexicographic reduction. See
// SymmetryState, OrbitopeDetector, SubgroupDetector, SSTPlanner and
// PropagationDispatcher.
//
// Both cores are single-threaded and cooperative: every operation runs to
// completion or returns an error, and long detection loops poll a stop
// signal at loop heads.
package ratmip
