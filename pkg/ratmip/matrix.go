// Package ratmip doubly-linked coefficient matrix.
//
// This file implements the Column and Row descriptors and every operation
// that edits coefficients. The matrix is stored twice: each column holds its
// row entries, each row holds its column entries, and linked entries carry
// the position of their twin in the opposing vector. All edits go through
// the LP methods here so that the link invariant is maintained in exactly
// one place.
//
// Invariants maintained for every column c (rows are symmetric):
//   - 0 <= c.nlprows <= len(c.rows)
//   - the first nlprows entries are exactly those with row.lppos >= 0 and
//     link >= 0
//   - if lprowsSorted, entries [0, nlprows) increase strictly in row index;
//     if nonlprowsSorted, entries [nlprows, len) do
//   - c.nunlinked counts entries with link == -1
//
// Naming follows the LP literature: lppos is the position within the LP
// (-1 if absent), lpipos the position within the backend.
//
// Row locks (nlocks > 0) reject coefficient edits atomically with
// ErrLockedRow. Locks guard genuine coefficient changes; establishing or
// consulting links is bookkeeping and passes through.
package ratmip

// BasisStatus is the simplex basis status of a column or row.
type BasisStatus int8

const (
	// BasisLower means nonbasic at the lower bound.
	BasisLower BasisStatus = iota
	// BasisBasic means basic.
	BasisBasic
	// BasisUpper means nonbasic at the upper bound.
	BasisUpper
	// BasisZero means nonbasic at zero (free variables).
	BasisZero
)

// Column is the LP image of a variable: exact objective and bounds, the
// last-flushed copies the backend holds, and the sparse vector of row
// coefficients.
type Column struct {
	v *Variable

	obj, lb, ub                      Rational
	flushedObj, flushedLb, flushedUb Rational

	rows      colVec
	nlprows   int // length of the linked-and-in-LP prefix
	nunlinked int // entries with link == -1

	lppos  int // position in the LP, -1 if not in LP
	lpipos int // position in the backend, -1 if not flushed

	objChanged, lbChanged, ubChanged bool
	coefChanged                      bool
	inChgLog                         bool

	lprowsSorted    bool
	nonlprowsSorted bool

	basis                   BasisStatus
	primal, redcost, farkas Rational
}

// NewColumn creates the column of a variable, taking objective and bounds
// from the variable's current exact values. The column starts outside both
// the LP and the backend.
func NewColumn(v *Variable) *Column {
	c := &Column{
		v:               v,
		obj:             v.Obj,
		lb:              v.LbLocal,
		ub:              v.UbLocal,
		lppos:           -1,
		lpipos:          -1,
		lprowsSorted:    true,
		nonlprowsSorted: true,
		basis:           BasisLower,
	}
	v.col = c
	return c
}

// Var returns the variable the column belongs to.
func (c *Column) Var() *Variable { return c.v }

// VarIndex returns the stable index of the column's variable; it is the
// ordering key of row vectors.
func (c *Column) VarIndex() int { return c.v.Index }

// Len returns the number of nonzeros stored in the column.
func (c *Column) Len() int { return c.rows.len() }

// NLPRows returns the length of the linked-and-in-LP prefix.
func (c *Column) NLPRows() int { return c.nlprows }

// NUnlinked returns the number of unlinked entries.
func (c *Column) NUnlinked() int { return c.nunlinked }

// LPPos returns the column's position in the LP, or -1.
func (c *Column) LPPos() int { return c.lppos }

// LPIPos returns the column's position in the backend, or -1.
func (c *Column) LPIPos() int { return c.lpipos }

// Obj returns the exact objective coefficient.
func (c *Column) Obj() Rational { return c.obj }

// Lb returns the exact lower bound.
func (c *Column) Lb() Rational { return c.lb }

// Ub returns the exact upper bound.
func (c *Column) Ub() Rational { return c.ub }

// Row is one linear constraint of the LP: exact sides, a constant shifted
// out of the sides at flush time, and the sparse vector of column
// coefficients with their f64 enclosures.
type Row struct {
	// Index is the unique, stable row index drawn from SolverStats; row
	// vectors of columns are ordered by it.
	Index int
	Name  string

	lhs, rhs, constant     Rational
	flushedLhs, flushedRhs Rational // backend image, already constant-shifted

	cols      rowVec
	nlpcols   int
	nunlinked int

	lppos  int
	lpipos int

	lhsChanged, rhsChanged bool
	coefChanged            bool
	inChgLog               bool

	lpcolsSorted    bool
	nonlpcolsSorted bool

	// delaySort suppresses lazy sorting during bulk edits; searches fall
	// back to linear scans until it is cleared.
	delaySort bool

	nlocks int
	nuses  int

	minAct, maxAct float64
	actValid       bool

	basis               BasisStatus
	dualsol, dualfarkas Rational
}

// NewRow creates a row with the given name, sides and constant, drawing its
// stable index from the stats object. The caller holds the initial
// reference.
func (lp *LP) NewRow(name string, lhs, rhs, constant Rational) *Row {
	if lhs.Cmp(rhs) > 0 {
		panic("ratmip: row sides crossed")
	}
	if !constant.IsFinite() {
		panic("ratmip: row constant must be finite")
	}
	return &Row{
		Index:           lp.stats.NewRowIndex(),
		Name:            name,
		lhs:             lhs,
		rhs:             rhs,
		constant:        constant,
		lppos:           -1,
		lpipos:          -1,
		lpcolsSorted:    true,
		nonlpcolsSorted: true,
		basis:           BasisBasic,
		nuses:           1,
	}
}

// Capture takes one additional reference on the row.
func (r *Row) Capture() { r.nuses++ }

// Release drops one reference. Panics without a reference.
func (r *Row) Release() {
	if r.nuses <= 0 {
		panic("ratmip: row released without reference")
	}
	r.nuses--
}

// NUses returns the row's reference count.
func (r *Row) NUses() int { return r.nuses }

// Lock forbids coefficient edits on the row until Unlock.
func (r *Row) Lock() { r.nlocks++ }

// Unlock removes one coefficient lock.
func (r *Row) Unlock() {
	if r.nlocks <= 0 {
		panic("ratmip: row unlocked without lock")
	}
	r.nlocks--
}

// SetDelaySort toggles bulk-edit mode: while set, searches on the row scan
// linearly and no lazy sorting happens.
func (r *Row) SetDelaySort(delay bool) { r.delaySort = delay }

// Len returns the number of nonzeros stored in the row.
func (r *Row) Len() int { return r.cols.len() }

// NLPCols returns the length of the linked-and-in-LP prefix.
func (r *Row) NLPCols() int { return r.nlpcols }

// NUnlinked returns the number of unlinked entries.
func (r *Row) NUnlinked() int { return r.nunlinked }

// LPPos returns the row's position in the LP, or -1.
func (r *Row) LPPos() int { return r.lppos }

// LPIPos returns the row's position in the backend, or -1.
func (r *Row) LPIPos() int { return r.lpipos }

// Lhs returns the exact left-hand side.
func (r *Row) Lhs() Rational { return r.lhs }

// Rhs returns the exact right-hand side.
func (r *Row) Rhs() Rational { return r.rhs }

// Constant returns the constant shifted out of the sides at flush time.
func (r *Row) Constant() Rational { return r.constant }

// invalidateActivity drops the cached min/max activity; the next read
// recomputes. A stale cache is never consulted.
func (r *Row) invalidateActivity() { r.actValid = false }

// --- coefficient edits -------------------------------------------------

// colAddCoef appends the coefficient (r, val) to c's vector. linkpos is the
// position of the twin entry in r's vector, or -1 if the twin does not
// exist yet. Returns the final position of the new entry.
//
// If the row is in the LP and the entry is linked, the entry becomes part
// of the linked-LP prefix: the current first non-LP entry is swapped to the
// end and the new entry placed at nlprows. If the entry is unlinked and the
// column is already in the LP, the twin is created immediately through the
// row's add, and the entry then joins the prefix when the row is in the LP.
func (lp *LP) colAddCoef(c *Column, r *Row, val Rational, linkpos int) int {
	if val.IsZero() || !val.IsFinite() {
		panic("ratmip: matrix coefficient must be finite and nonzero")
	}
	pos := c.rows.add(colEntry{row: r, val: val, link: -1})
	if linkpos >= 0 && r.lppos >= 0 {
		pos = c.colEnterPrefix(pos, r.Index)
	} else if c.nonlprowsSorted && pos > c.nlprows && c.rows.e[pos-1].row.Index > r.Index {
		c.nonlprowsSorted = false
	}
	if linkpos >= 0 {
		c.rows.e[pos].link = linkpos
		r.cols.e[linkpos].link = pos
	} else {
		c.nunlinked++
		if c.lppos >= 0 {
			// a column in the LP keeps all its entries linked
			lp.rowAddCoef(r, c, val, pos)
			c.nunlinked--
			if r.lppos >= 0 {
				pos = c.colEnterPrefix(pos, r.Index)
			}
		}
	}
	lp.coefChanged(r, c)
	return pos
}

// colEnterPrefix moves the entry at pos into the linked-LP prefix and
// downgrades the sortedness flags as needed. Returns the new position.
func (c *Column) colEnterPrefix(pos int, rowIndex int) int {
	if pos < c.nlprows {
		return pos
	}
	if pos > c.nlprows {
		c.rows.swap(pos, c.nlprows)
		pos = c.nlprows
		// the displaced entry now sits at the former position, out of order
		c.nonlprowsSorted = c.rows.len()-1 <= c.nlprows+1 && c.nonlprowsSorted
	}
	c.nlprows++
	if c.lprowsSorted && pos > 0 && c.rows.e[pos-1].row.Index > rowIndex {
		c.lprowsSorted = false
	}
	return pos
}

// rowEnterPrefix is the row-side mirror of colEnterPrefix.
func (r *Row) rowEnterPrefix(pos int, varIndex int) int {
	if pos < r.nlpcols {
		return pos
	}
	if pos > r.nlpcols {
		r.cols.swap(pos, r.nlpcols)
		pos = r.nlpcols
		r.nonlpcolsSorted = r.cols.len()-1 <= r.nlpcols+1 && r.nonlpcolsSorted
	}
	r.nlpcols++
	if r.lpcolsSorted && pos > 0 && r.cols.e[pos-1].col.VarIndex() > varIndex {
		r.lpcolsSorted = false
	}
	return pos
}

// rowAddCoef is the row-side mirror of colAddCoef. linkpos is the position
// of the twin in c's vector, or -1.
func (lp *LP) rowAddCoef(r *Row, c *Column, val Rational, linkpos int) int {
	if val.IsZero() || !val.IsFinite() {
		panic("ratmip: matrix coefficient must be finite and nonzero")
	}
	lo, hi := val.Interval()
	pos := r.cols.add(rowEntry{col: c, val: val, link: -1, fpLo: lo, fpHi: hi})
	if linkpos >= 0 && c.lppos >= 0 {
		pos = r.rowEnterPrefix(pos, c.VarIndex())
	} else if r.nonlpcolsSorted && pos > r.nlpcols && r.cols.e[pos-1].col.VarIndex() > c.VarIndex() {
		r.nonlpcolsSorted = false
	}
	if linkpos >= 0 {
		r.cols.e[pos].link = linkpos
		c.rows.e[linkpos].link = pos
	} else {
		r.nunlinked++
		if r.lppos >= 0 {
			lp.colAddCoef(c, r, val, pos)
			r.nunlinked--
			if c.lppos >= 0 {
				pos = r.rowEnterPrefix(pos, c.VarIndex())
			}
		}
	}
	lp.coefChanged(r, c)
	return pos
}

// unlinkColEntry breaks the link of c's entry at pos (leaving the entry in
// place) and moves it out of the linked-LP prefix if necessary. Returns the
// entry's new position.
func (c *Column) unlinkColEntry(pos int) int {
	c.rows.e[pos].link = -1
	c.nunlinked++
	if pos < c.nlprows {
		c.rows.swap(pos, c.nlprows-1)
		if pos != c.nlprows-1 {
			c.lprowsSorted = false
		}
		c.nlprows--
		pos = c.nlprows
		c.nonlprowsSorted = false
	}
	return pos
}

// unlinkRowEntry is the row-side mirror of unlinkColEntry.
func (r *Row) unlinkRowEntry(pos int) int {
	r.cols.e[pos].link = -1
	r.nunlinked++
	if pos < r.nlpcols {
		r.cols.swap(pos, r.nlpcols-1)
		if pos != r.nlpcols-1 {
			r.lpcolsSorted = false
		}
		r.nlpcols--
		pos = r.nlpcols
		r.nonlpcolsSorted = false
	}
	return pos
}

// colDelCoefPos removes c's entry at pos. A linked twin is unlinked first
// and stays behind in the row's vector; the caller removes it separately if
// the coefficient is to vanish from both axes.
func (lp *LP) colDelCoefPos(c *Column, pos int) {
	e := c.rows.e[pos]
	if e.link >= 0 {
		e.row.unlinkRowEntry(e.link)
		c.rows.e[pos].link = -1
		c.nunlinked++
	}
	if pos < c.nlprows {
		c.rows.swap(pos, c.nlprows-1)
		if pos != c.nlprows-1 {
			c.lprowsSorted = false
		}
		c.nlprows--
		pos = c.nlprows
	}
	c.nunlinked--
	c.rows.deleteSwap(pos)
	if pos < c.rows.len() {
		c.nonlprowsSorted = false
	}
	lp.coefChanged(e.row, c)
}

// rowDelCoefPos removes r's entry at pos, unlinking a twin first.
func (lp *LP) rowDelCoefPos(r *Row, pos int) {
	e := r.cols.e[pos]
	if e.link >= 0 {
		e.col.unlinkColEntry(e.link)
		r.cols.e[pos].link = -1
		r.nunlinked++
	}
	if pos < r.nlpcols {
		r.cols.swap(pos, r.nlpcols-1)
		if pos != r.nlpcols-1 {
			r.lpcolsSorted = false
		}
		r.nlpcols--
		pos = r.nlpcols
	}
	r.nunlinked--
	r.cols.deleteSwap(pos)
	if pos < r.cols.len() {
		r.nonlpcolsSorted = false
	}
	lp.coefChanged(r, e.col)
}

// colSearchCoef locates the entry of row r in c's vector, or -1. Sorting is
// lazy: the relevant partition is sorted on demand. If the row is in the LP
// the linked prefix is searched first; the suffix only when the column
// still has unlinked entries.
func (lp *LP) colSearchCoef(c *Column, r *Row) int {
	if r.lppos >= 0 {
		if !c.lprowsSorted {
			c.rows.sortRange(0, c.nlprows)
			c.lprowsSorted = true
		}
		if pos := c.rows.search(0, c.nlprows, r.Index); pos >= 0 {
			return pos
		}
		if c.nunlinked == 0 {
			return -1
		}
	}
	if !c.nonlprowsSorted {
		c.rows.sortRange(c.nlprows, c.rows.len())
		c.nonlprowsSorted = true
	}
	return c.rows.search(c.nlprows, c.rows.len(), r.Index)
}

// rowSearchCoef locates the entry of column c in r's vector, or -1. While
// delaySort is set the row scans linearly instead of sorting.
func (lp *LP) rowSearchCoef(r *Row, c *Column) int {
	if r.delaySort {
		return r.cols.scan(0, r.cols.len(), c.VarIndex())
	}
	if c.lppos >= 0 {
		if !r.lpcolsSorted {
			r.cols.sortRange(0, r.nlpcols)
			r.lpcolsSorted = true
		}
		if pos := r.cols.search(0, r.nlpcols, c.VarIndex()); pos >= 0 {
			return pos
		}
		if r.nunlinked == 0 {
			return -1
		}
	}
	if !r.nonlpcolsSorted {
		r.cols.sortRange(r.nlpcols, r.cols.len())
		r.nonlpcolsSorted = true
	}
	return r.cols.search(r.nlpcols, r.cols.len(), c.VarIndex())
}

// AddCoef introduces the coefficient val for column c in row r. The entry
// is added on the row axis; the column axis learns about it immediately if
// the row is in the LP, otherwise on the next Link.
func (lp *LP) AddCoef(r *Row, c *Column, val Rational) error {
	if r.nlocks > 0 {
		return ErrLockedRow
	}
	lp.rowAddCoef(r, c, val, -1)
	return nil
}

// DelCoef removes the coefficient of column c from row r on both axes.
// Removing an absent coefficient is a no-op.
func (lp *LP) DelCoef(r *Row, c *Column) error {
	if r.nlocks > 0 {
		return ErrLockedRow
	}
	pos := lp.rowSearchCoef(r, c)
	if pos < 0 {
		return nil
	}
	if link := r.cols.e[pos].link; link >= 0 {
		lp.colDelCoefPos(c, link)
		// the column-side delete relocated entries; find ours again
		pos = lp.rowSearchCoef(r, c)
		if pos < 0 {
			panic("ratmip: linked entry lost its row twin")
		}
	}
	lp.rowDelCoefPos(r, pos)
	return nil
}

// ChgCoef sets the coefficient of column c in row r to val: zero deletes,
// a new value overwrites both axes, adding the entry if absent.
func (lp *LP) ChgCoef(r *Row, c *Column, val Rational) error {
	if val.IsZero() {
		return lp.DelCoef(r, c)
	}
	if r.nlocks > 0 {
		return ErrLockedRow
	}
	pos := lp.rowSearchCoef(r, c)
	if pos < 0 {
		return lp.AddCoef(r, c, val)
	}
	e := &r.cols.e[pos]
	if e.val.Equal(val) {
		return nil
	}
	e.val = val
	e.fpLo, e.fpHi = val.Interval()
	if e.link >= 0 {
		c.rows.e[e.link].val = val
	}
	lp.coefChanged(r, c)
	return nil
}

// GetCoef returns the coefficient of column c in row r, or exact zero.
func (lp *LP) GetCoef(r *Row, c *Column) Rational {
	pos := lp.rowSearchCoef(r, c)
	if pos >= 0 {
		return r.cols.e[pos].val
	}
	// the entry may live only on the column axis while unlinked
	if cpos := lp.colSearchCoef(c, r); cpos >= 0 {
		return c.rows.e[cpos].val
	}
	return RatZero()
}

// LinkCol establishes the row-side twin of every unlinked entry of c.
// Linking is bookkeeping, not a coefficient change: it passes row locks.
func (lp *LP) LinkCol(c *Column) {
	if c.nunlinked == 0 {
		return
	}
	for i := 0; i < c.rows.len(); i++ {
		e := &c.rows.e[i]
		if e.link != -1 {
			continue
		}
		lp.rowAddCoef(e.row, c, e.val, i)
		c.nunlinked--
		if e2 := c.rows.e[i]; e2.row.lppos >= 0 {
			c.colEnterPrefix(i, e2.row.Index)
		}
		// entering the prefix may have swapped another suffix entry to
		// position i; re-examine it
		i--
	}
	if c.nunlinked != 0 {
		panic("ratmip: column link left unlinked entries")
	}
}

// LinkRow establishes the column-side twin of every unlinked entry of r.
func (lp *LP) LinkRow(r *Row) {
	if r.nunlinked == 0 {
		return
	}
	for i := 0; i < r.cols.len(); i++ {
		e := &r.cols.e[i]
		if e.link != -1 {
			continue
		}
		lp.colAddCoef(e.col, r, e.val, i)
		r.nunlinked--
		if e2 := r.cols.e[i]; e2.col.lppos >= 0 {
			r.rowEnterPrefix(i, e2.col.VarIndex())
		}
		i--
	}
	if r.nunlinked != 0 {
		panic("ratmip: row link left unlinked entries")
	}
}

// UnlinkCol removes the row-side twin of every linked entry of c. Fails
// with ErrLockedRow before touching anything if any affected row is locked,
// since unlinking removes entries from the rows' vectors.
func (lp *LP) UnlinkCol(c *Column) error {
	for i := 0; i < c.rows.len(); i++ {
		e := c.rows.e[i]
		if e.link >= 0 && e.row.nlocks > 0 {
			return ErrLockedRow
		}
	}
	for {
		found := -1
		for i := 0; i < c.rows.len(); i++ {
			if c.rows.e[i].link >= 0 {
				found = i
				break
			}
		}
		if found < 0 {
			break
		}
		e := c.rows.e[found]
		lp.rowDelCoefPos(e.row, e.link)
	}
	if c.nunlinked != c.rows.len() || c.nlprows != 0 {
		panic("ratmip: column unlink left linked entries")
	}
	return nil
}

// UnlinkRow removes the column-side twin of every linked entry of r.
func (lp *LP) UnlinkRow(r *Row) error {
	if r.nlocks > 0 {
		return ErrLockedRow
	}
	for {
		found := -1
		for i := 0; i < r.cols.len(); i++ {
			if r.cols.e[i].link >= 0 {
				found = i
				break
			}
		}
		if found < 0 {
			break
		}
		e := r.cols.e[found]
		lp.colDelCoefPos(e.col, e.link)
	}
	if r.nunlinked != r.cols.len() || r.nlpcols != 0 {
		panic("ratmip: row unlink left linked entries")
	}
	return nil
}

// coefChanged records that the coefficient between r and c differs from the
// backend image. Exactly one side is marked dirty: the one whose backend
// position already lies in the not-yet-flushed tail, else the side whose
// position is closest to its change frontier, shifting that frontier back.
func (lp *LP) coefChanged(r *Row, c *Column) {
	if r.lpipos >= 0 && c.lpipos >= 0 {
		switch {
		case r.lpipos >= lp.lpiFirstChgRow:
			r.coefChanged = true
		case c.lpipos >= lp.lpiFirstChgCol:
			c.coefChanged = true
		case lp.lpiFirstChgRow-r.lpipos <= lp.lpiFirstChgCol-c.lpipos:
			r.coefChanged = true
			lp.lpiFirstChgRow = r.lpipos
		default:
			c.coefChanged = true
			lp.lpiFirstChgCol = c.lpipos
		}
	}
	lp.flushed = false
	lp.solved = false
	lp.primalFeasible = false
	lp.dualFeasible = false
	r.invalidateActivity()
}

// colUpdateAddLP moves the twins of c's linked entries into their rows'
// linked-LP prefixes; called when c enters the LP.
func (c *Column) colUpdateAddLP() {
	for i := 0; i < c.rows.len(); i++ {
		e := c.rows.e[i]
		if e.link < 0 {
			continue
		}
		e.row.rowEnterPrefix(e.link, c.VarIndex())
	}
}

// colUpdateDelLP moves the twins of c's linked entries out of their rows'
// prefixes; called when c leaves the LP.
func (c *Column) colUpdateDelLP() {
	for i := 0; i < c.rows.len(); i++ {
		e := c.rows.e[i]
		if e.link < 0 {
			continue
		}
		r := e.row
		pos := e.link
		if pos < r.nlpcols {
			r.cols.swap(pos, r.nlpcols-1)
			r.nlpcols--
			r.lpcolsSorted = false
			r.nonlpcolsSorted = false
		}
	}
}

// rowUpdateAddLP moves the twins of r's linked entries into their columns'
// prefixes; called when r enters the LP.
func (r *Row) rowUpdateAddLP() {
	for i := 0; i < r.cols.len(); i++ {
		e := r.cols.e[i]
		if e.link < 0 {
			continue
		}
		e.col.colEnterPrefix(e.link, r.Index)
	}
}

// rowUpdateDelLP moves the twins of r's linked entries out of their
// columns' prefixes; called when r leaves the LP.
func (r *Row) rowUpdateDelLP() {
	for i := 0; i < r.cols.len(); i++ {
		e := r.cols.e[i]
		if e.link < 0 {
			continue
		}
		c := e.col
		pos := e.link
		if pos < c.nlprows {
			c.rows.swap(pos, c.nlprows-1)
			c.nlprows--
			c.lprowsSorted = false
			c.nonlprowsSorted = false
		}
	}
}
