// Package ratmip edit log and flush protocol.
//
// The LP type owns the columns and rows of the current linear program and
// the delta log against the backend: how many columns/rows the backend last
// saw (nlpicols/nlpirows), the least positions whose identity or
// coefficients differ (lpiFirstChgCol/lpiFirstChgRow), and the queues of
// columns and rows with pending bound/objective/side changes.
//
// Flush ships the log in six phases: DelCols, DelRows, ChgCols, ChgRows,
// AddCols, AddRows. Deletes go out before adds in both dimensions, and
// bound/side changes before adds, so a column or row is never changed at a
// position the backend does not hold yet. A failed backend call aborts the
// flush with the log intact; the next Flush retries from the current state.
package ratmip

import (
	"io"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LP is the exact LP image together with its backend synchronization state.
type LP struct {
	cols []*Column
	rows []*Row

	// backend image: the column/row the backend holds at each position
	lpiCols []*Column
	lpiRows []*Row

	nlpicols int
	nlpirows int

	lpiFirstChgCol int
	lpiFirstChgRow int

	chgCols []*Column
	chgRows []*Row

	flushed bool
	solved  bool

	primalFeasible bool
	dualFeasible   bool

	backend BackendLP
	stats   *SolverStats
	log     *logrus.Logger
}

// NewLP creates an empty LP bound to a backend. A nil logger discards all
// log output.
func NewLP(backend BackendLP, stats *SolverStats, log *logrus.Logger) *LP {
	if backend == nil {
		panic("ratmip: nil backend")
	}
	if stats == nil {
		panic("ratmip: nil stats")
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &LP{
		flushed: true,
		backend: backend,
		stats:   stats,
		log:     log,
	}
}

// NCols returns the number of columns currently in the LP.
func (lp *LP) NCols() int { return len(lp.cols) }

// NRows returns the number of rows currently in the LP.
func (lp *LP) NRows() int { return len(lp.rows) }

// NLPICols returns the number of columns the backend holds.
func (lp *LP) NLPICols() int { return lp.nlpicols }

// NLPIRows returns the number of rows the backend holds.
func (lp *LP) NLPIRows() int { return lp.nlpirows }

// IsFlushed reports whether the backend mirrors the LP exactly.
func (lp *LP) IsFlushed() bool { return lp.flushed }

// IsSolved reports whether the backend state corresponds to a solve of the
// current LP. Any shipped change clears it.
func (lp *LP) IsSolved() bool { return lp.solved }

// SetSolved is called by the outer solver after a successful backend solve.
func (lp *LP) SetSolved(primalFeasible, dualFeasible bool) {
	lp.solved = true
	lp.primalFeasible = primalFeasible
	lp.dualFeasible = dualFeasible
}

// Col returns the column at LP position i.
func (lp *LP) Col(i int) *Column { return lp.cols[i] }

// RowAt returns the row at LP position i.
func (lp *LP) RowAt(i int) *Row { return lp.rows[i] }

// AddColToLP appends a column to the LP. The column must not be in the LP
// already. Linked twins move into their rows' prefixes.
func (lp *LP) AddColToLP(c *Column) {
	if c.lppos >= 0 {
		panic("ratmip: column already in LP")
	}
	c.lppos = len(lp.cols)
	lp.cols = append(lp.cols, c)
	c.colUpdateAddLP()
	lp.flushed = false
	lp.solved = false
}

// AddRowToLP appends a row to the LP and captures a reference for the LP.
func (lp *LP) AddRowToLP(r *Row) {
	if r.lppos >= 0 {
		panic("ratmip: row already in LP")
	}
	r.lppos = len(lp.rows)
	lp.rows = append(lp.rows, r)
	r.Capture()
	r.rowUpdateAddLP()
	lp.flushed = false
	lp.solved = false
}

// ShrinkCols removes all columns at positions >= n from the LP. The columns
// survive (their variables may re-enter later); only the LP membership and
// the prefix bookkeeping change. Backend removal happens at the next flush.
func (lp *LP) ShrinkCols(n int) {
	if n < 0 || n > len(lp.cols) {
		panic("ratmip: shrink beyond column count")
	}
	for i := len(lp.cols) - 1; i >= n; i-- {
		c := lp.cols[i]
		c.colUpdateDelLP()
		c.lppos = -1
	}
	if n < len(lp.cols) {
		lp.cols = lp.cols[:n]
		if lp.lpiFirstChgCol > n {
			lp.lpiFirstChgCol = n
		}
		lp.flushed = false
		lp.solved = false
	}
}

// ShrinkRows removes all rows at positions >= n from the LP, releasing the
// LP's reference on each.
func (lp *LP) ShrinkRows(n int) {
	if n < 0 || n > len(lp.rows) {
		panic("ratmip: shrink beyond row count")
	}
	for i := len(lp.rows) - 1; i >= n; i-- {
		r := lp.rows[i]
		r.rowUpdateDelLP()
		r.lppos = -1
		r.Release()
	}
	if n < len(lp.rows) {
		lp.rows = lp.rows[:n]
		if lp.lpiFirstChgRow > n {
			lp.lpiFirstChgRow = n
		}
		lp.flushed = false
		lp.solved = false
	}
}

// logChgCol queues c in the changed-columns log once.
func (lp *LP) logChgCol(c *Column) {
	if !c.inChgLog {
		c.inChgLog = true
		lp.chgCols = append(lp.chgCols, c)
	}
	lp.flushed = false
	lp.solved = false
}

// logChgRow queues r in the changed-rows log once.
func (lp *LP) logChgRow(r *Row) {
	if !r.inChgLog {
		r.inChgLog = true
		lp.chgRows = append(lp.chgRows, r)
	}
	lp.flushed = false
	lp.solved = false
}

// ChgColObj sets the exact objective coefficient of a column.
func (lp *LP) ChgColObj(c *Column, obj Rational) {
	if c.obj.Equal(obj) {
		return
	}
	c.obj = obj
	c.objChanged = true
	lp.logChgCol(c)
}

// ChgColBounds sets the exact bounds of a column.
func (lp *LP) ChgColBounds(c *Column, lb, ub Rational) {
	if lb.Cmp(ub) > 0 {
		panic("ratmip: column bounds crossed")
	}
	if c.lb.Equal(lb) && c.ub.Equal(ub) {
		return
	}
	if !c.lb.Equal(lb) {
		c.lb = lb
		c.lbChanged = true
	}
	if !c.ub.Equal(ub) {
		c.ub = ub
		c.ubChanged = true
	}
	lp.logChgCol(c)
}

// ChgRowSides sets the exact sides of a row.
func (lp *LP) ChgRowSides(r *Row, lhs, rhs Rational) {
	if lhs.Cmp(rhs) > 0 {
		panic("ratmip: row sides crossed")
	}
	if r.lhs.Equal(lhs) && r.rhs.Equal(rhs) {
		return
	}
	if !r.lhs.Equal(lhs) {
		r.lhs = lhs
		r.lhsChanged = true
	}
	if !r.rhs.Equal(rhs) {
		r.rhs = rhs
		r.rhsChanged = true
	}
	r.invalidateActivity()
	lp.logChgRow(r)
}

// ChgRowConstant sets the constant term of a row. The backend sees it as a
// change of both sides.
func (lp *LP) ChgRowConstant(r *Row, constant Rational) {
	if !constant.IsFinite() {
		panic("ratmip: row constant must be finite")
	}
	if r.constant.Equal(constant) {
		return
	}
	r.constant = constant
	r.lhsChanged = true
	r.rhsChanged = true
	r.invalidateActivity()
	lp.logChgRow(r)
}

// backendErr wraps a failed backend primitive so that callers can test
// errors.Is(err, ErrBackendFailure).
func backendErr(op string, err error) error {
	return pkgerrors.Wrapf(ErrBackendFailure, "%s: %v", op, err)
}

// Flush ships all accumulated edits to the backend. On success the backend
// mirrors the LP exactly. On failure the flush aborts with the log intact
// and is retried by the next call.
func (lp *LP) Flush() error {
	if lp.flushed {
		return nil
	}
	if err := lp.flushDelCols(); err != nil {
		return err
	}
	if err := lp.flushDelRows(); err != nil {
		return err
	}
	if err := lp.flushChgCols(); err != nil {
		return err
	}
	if err := lp.flushChgRows(); err != nil {
		return err
	}
	if err := lp.flushAddCols(); err != nil {
		return err
	}
	if err := lp.flushAddRows(); err != nil {
		return err
	}
	if lp.nlpicols != len(lp.cols) || lp.nlpirows != len(lp.rows) {
		panic("ratmip: flush left backend short")
	}
	lp.lpiFirstChgCol = len(lp.cols)
	lp.lpiFirstChgRow = len(lp.rows)
	lp.flushed = true
	return nil
}

// flushDelCols advances the column change frontier over the unchanged
// backend prefix and deletes everything behind it in one call.
func (lp *LP) flushDelCols() error {
	i := lp.lpiFirstChgCol
	for i < lp.nlpicols && i < len(lp.cols) &&
		lp.cols[i] == lp.lpiCols[i] && !lp.cols[i].coefChanged {
		i++
	}
	lp.lpiFirstChgCol = i
	if i >= lp.nlpicols {
		return nil
	}
	lp.log.WithFields(logrus.Fields{"from": i, "to": lp.nlpicols - 1}).Debug("flush: deleting backend columns")
	if err := lp.backend.DelCols(i, lp.nlpicols-1); err != nil {
		return backendErr("DelCols", err)
	}
	for j := i; j < lp.nlpicols; j++ {
		dc := lp.lpiCols[j]
		dc.lpipos = -1
		dc.coefChanged = false
		dc.objChanged = false
		dc.lbChanged = false
		dc.ubChanged = false
	}
	lp.lpiCols = lp.lpiCols[:i]
	lp.nlpicols = i
	lp.shipped()
	return nil
}

// flushDelRows mirrors flushDelCols, releasing the backend's reference on
// every removed row.
func (lp *LP) flushDelRows() error {
	i := lp.lpiFirstChgRow
	for i < lp.nlpirows && i < len(lp.rows) &&
		lp.rows[i] == lp.lpiRows[i] && !lp.rows[i].coefChanged {
		i++
	}
	lp.lpiFirstChgRow = i
	if i >= lp.nlpirows {
		return nil
	}
	lp.log.WithFields(logrus.Fields{"from": i, "to": lp.nlpirows - 1}).Debug("flush: deleting backend rows")
	if err := lp.backend.DelRows(i, lp.nlpirows-1); err != nil {
		return backendErr("DelRows", err)
	}
	for j := i; j < lp.nlpirows; j++ {
		dr := lp.lpiRows[j]
		dr.lpipos = -1
		dr.coefChanged = false
		dr.lhsChanged = false
		dr.rhsChanged = false
		dr.Release()
	}
	lp.lpiRows = lp.lpiRows[:i]
	lp.nlpirows = i
	lp.shipped()
	return nil
}

// flushChgCols ships pending objective and bound changes for columns the
// backend still holds. Comparison against the flushed copies is exact; the
// flushed copies advance only after the backend accepted the change.
func (lp *LP) flushChgCols() error {
	var objInd []int
	var objVals []Rational
	var bndInd []int
	var bndLbs, bndUbs []Rational
	var objCols, bndCols []*Column

	for _, c := range lp.chgCols {
		if c.lpipos < 0 {
			continue // pending add; AddCols ships current values
		}
		if !c.obj.Equal(c.flushedObj) {
			objInd = append(objInd, c.lpipos)
			objVals = append(objVals, c.obj)
			objCols = append(objCols, c)
		}
		if !c.lb.Equal(c.flushedLb) || !c.ub.Equal(c.flushedUb) {
			bndInd = append(bndInd, c.lpipos)
			bndLbs = append(bndLbs, c.lb)
			bndUbs = append(bndUbs, c.ub)
			bndCols = append(bndCols, c)
		}
	}
	if len(objInd) > 0 {
		lp.log.WithField("ncols", len(objInd)).Debug("flush: changing objective")
		if err := lp.backend.ChgObj(objInd, objVals); err != nil {
			return backendErr("ChgObj", err)
		}
		for _, c := range objCols {
			c.flushedObj = c.obj
			c.objChanged = false
		}
		lp.shipped()
	}
	if len(bndInd) > 0 {
		lp.log.WithField("ncols", len(bndInd)).Debug("flush: changing bounds")
		if err := lp.backend.ChgBounds(bndInd, bndLbs, bndUbs); err != nil {
			return backendErr("ChgBounds", err)
		}
		for _, c := range bndCols {
			c.flushedLb = c.lb
			c.flushedUb = c.ub
			c.lbChanged = false
			c.ubChanged = false
		}
		lp.shipped()
	}
	for _, c := range lp.chgCols {
		c.inChgLog = false
		c.objChanged = false
		c.lbChanged = false
		c.ubChanged = false
	}
	lp.chgCols = lp.chgCols[:0]
	return nil
}

// flushChgRows ships pending side changes, emitting lhs-constant and
// rhs-constant.
func (lp *LP) flushChgRows() error {
	var ind []int
	var lhss, rhss []Rational
	var chg []*Row

	for _, r := range lp.chgRows {
		if r.lpipos < 0 {
			continue
		}
		lhs := r.lhs.Sub(r.constant)
		rhs := r.rhs.Sub(r.constant)
		if !lhs.Equal(r.flushedLhs) || !rhs.Equal(r.flushedRhs) {
			ind = append(ind, r.lpipos)
			lhss = append(lhss, lhs)
			rhss = append(rhss, rhs)
			chg = append(chg, r)
		}
	}
	if len(ind) > 0 {
		lp.log.WithField("nrows", len(ind)).Debug("flush: changing sides")
		if err := lp.backend.ChgSides(ind, lhss, rhss); err != nil {
			return backendErr("ChgSides", err)
		}
		for _, r := range chg {
			r.flushedLhs = r.lhs.Sub(r.constant)
			r.flushedRhs = r.rhs.Sub(r.constant)
		}
		lp.shipped()
	}
	for _, r := range lp.chgRows {
		r.inChgLog = false
		r.lhsChanged = false
		r.rhsChanged = false
	}
	lp.chgRows = lp.chgRows[:0]
	return nil
}

// flushAddCols ships every column at position >= nlpicols in one bulk call.
// Columns are linked first so that the nonzeros reach the backend exactly
// once; entries whose row is not in the backend yet are skipped here and
// emitted when their row is added.
func (lp *LP) flushAddCols() error {
	if len(lp.cols) == lp.nlpicols {
		return nil
	}
	var objs, lbs, ubs, vals []Rational
	var names []string
	var beg, ind []int
	for i := lp.nlpicols; i < len(lp.cols); i++ {
		c := lp.cols[i]
		lp.LinkCol(c)
		beg = append(beg, len(ind))
		for k := 0; k < c.rows.len(); k++ {
			e := c.rows.e[k]
			if e.row.lpipos >= 0 {
				ind = append(ind, e.row.lpipos)
				vals = append(vals, e.val)
			}
		}
		objs = append(objs, c.obj)
		lbs = append(lbs, c.lb)
		ubs = append(ubs, c.ub)
		names = append(names, c.v.Name)
	}
	lp.log.WithFields(logrus.Fields{"ncols": len(objs), "nnz": len(ind)}).Debug("flush: adding backend columns")
	if err := lp.backend.AddCols(objs, lbs, ubs, names, beg, ind, vals); err != nil {
		return backendErr("AddCols", err)
	}
	for i := lp.nlpicols; i < len(lp.cols); i++ {
		c := lp.cols[i]
		c.lpipos = i
		c.flushedObj = c.obj
		c.flushedLb = c.lb
		c.flushedUb = c.ub
		c.objChanged = false
		c.lbChanged = false
		c.ubChanged = false
		c.coefChanged = false
		lp.lpiCols = append(lp.lpiCols, c)
	}
	lp.nlpicols = len(lp.cols)
	lp.lpiFirstChgCol = lp.nlpicols
	lp.shipped()
	return nil
}

// flushAddRows mirrors flushAddCols, emitting sides shifted by the row
// constant and capturing one reference per row for the backend.
func (lp *LP) flushAddRows() error {
	if len(lp.rows) == lp.nlpirows {
		return nil
	}
	var lhss, rhss, vals []Rational
	var names []string
	var beg, ind []int
	for i := lp.nlpirows; i < len(lp.rows); i++ {
		r := lp.rows[i]
		lp.LinkRow(r)
		beg = append(beg, len(ind))
		for k := 0; k < r.cols.len(); k++ {
			e := r.cols.e[k]
			if e.col.lpipos >= 0 {
				ind = append(ind, e.col.lpipos)
				vals = append(vals, e.val)
			}
		}
		lhss = append(lhss, r.lhs.Sub(r.constant))
		rhss = append(rhss, r.rhs.Sub(r.constant))
		names = append(names, r.Name)
	}
	lp.log.WithFields(logrus.Fields{"nrows": len(lhss), "nnz": len(ind)}).Debug("flush: adding backend rows")
	if err := lp.backend.AddRows(lhss, rhss, names, beg, ind, vals); err != nil {
		return backendErr("AddRows", err)
	}
	for i := lp.nlpirows; i < len(lp.rows); i++ {
		r := lp.rows[i]
		r.lpipos = i
		r.flushedLhs = r.lhs.Sub(r.constant)
		r.flushedRhs = r.rhs.Sub(r.constant)
		r.lhsChanged = false
		r.rhsChanged = false
		r.coefChanged = false
		r.Capture()
		lp.lpiRows = append(lp.lpiRows, r)
	}
	lp.nlpirows = len(lp.rows)
	lp.lpiFirstChgRow = lp.nlpirows
	lp.shipped()
	return nil
}

// shipped records that content reached the backend: the last solve and its
// feasibility flags no longer describe the backend state.
func (lp *LP) shipped() {
	lp.solved = false
	lp.primalFeasible = false
	lp.dualFeasible = false
}
