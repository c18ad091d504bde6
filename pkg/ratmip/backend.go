package ratmip

// BackendLP is the capability the flush protocol talks to: an external
// exact LP driver mirroring a prefix of the LP. Column and row positions in
// all calls are backend positions (lpipos). Sides passed to AddRows and
// ChgSides are already shifted by the row constant.
//
// Every method either applies its change completely or returns an error
// leaving the backend state untouched; the flush relies on this to retry
// after a failure.
type BackendLP interface {
	// AddCols bulk-adds columns. beg[i] is the offset of column i's
	// nonzeros in ind/vals; ind holds backend row positions.
	AddCols(objs, lbs, ubs []Rational, names []string, beg []int, ind []int, vals []Rational) error

	// AddRows bulk-adds rows. beg/ind/vals as in AddCols with backend
	// column positions.
	AddRows(lhss, rhss []Rational, names []string, beg []int, ind []int, vals []Rational) error

	// DelCols deletes the backend columns in [from, to], inclusive.
	DelCols(from, to int) error

	// DelRows deletes the backend rows in [from, to], inclusive.
	DelRows(from, to int) error

	// ChgObj changes objective coefficients of the given backend columns.
	ChgObj(ind []int, objs []Rational) error

	// ChgBounds changes bounds of the given backend columns.
	ChgBounds(ind []int, lbs, ubs []Rational) error

	// ChgSides changes sides of the given backend rows.
	ChgSides(ind []int, lhss, rhss []Rational) error

	// GetObj returns objective coefficients of backend columns [from, to];
	// used only in debug assertions.
	GetObj(from, to int) ([]Rational, error)

	// GetBounds returns bounds of backend columns [from, to].
	GetBounds(from, to int) ([]Rational, []Rational, error)

	// GetSides returns sides of backend rows [from, to].
	GetSides(from, to int) ([]Rational, []Rational, error)
}
