// Package ratmip sparse coefficient vectors.
//
// This file implements the ordered sparse vectors backing both matrix axes.
// A column's vector holds (row, coefficient, link) triples; a row's vector
// holds (column, coefficient, link) triples plus an f64 interval enclosing
// each exact coefficient for the floating-point twin view.
//
// The link field of an entry is the position of its twin in the opposing
// vector, or -1 while unlinked. Every operation that moves an entry fixes
// the twin's back-pointer in the same step, so the mutual-link invariant
// never escapes this file and matrix.go.
//
// Ordering is lazy: the owning Column/Row carries two sortedness bits and a
// split point (the linked-and-in-LP prefix length). Binary search is only
// legal on a range the caller has sorted; sortRange re-establishes twin
// links after reordering.
package ratmip

import "sort"

// colEntry is one coefficient of a column: the row it lives in, the exact
// value, and the position of the twin entry in that row's vector (-1 if
// unlinked).
type colEntry struct {
	row  *Row
	val  Rational
	link int
}

// rowEntry is one coefficient of a row. fpLo/fpHi enclose val in f64 and are
// refreshed whenever val changes.
type rowEntry struct {
	col        *Column
	val        Rational
	link       int
	fpLo, fpHi float64
}

// colVec is the sparse vector of a column, ordered (when sorted) by row index.
type colVec struct {
	e []colEntry
}

// rowVec is the sparse vector of a row, ordered (when sorted) by the index
// of the entry's variable.
type rowVec struct {
	e []rowEntry
}

func (v *colVec) len() int { return len(v.e) }
func (v *rowVec) len() int { return len(v.e) }

// ensureCapacity grows the backing array to hold at least n entries.
func (v *colVec) ensureCapacity(n int) {
	if cap(v.e) < n {
		grown := make([]colEntry, len(v.e), n)
		copy(grown, v.e)
		v.e = grown
	}
}

func (v *rowVec) ensureCapacity(n int) {
	if cap(v.e) < n {
		grown := make([]rowEntry, len(v.e), n)
		copy(grown, v.e)
		v.e = grown
	}
}

// add appends an entry and returns its position. Twin links are not touched;
// the entry is expected to carry link == -1 at this point.
func (v *colVec) add(e colEntry) int {
	v.e = append(v.e, e)
	return len(v.e) - 1
}

func (v *rowVec) add(e rowEntry) int {
	v.e = append(v.e, e)
	return len(v.e) - 1
}

// fixTwin repairs the back-pointer of the twin of the entry at pos.
func (v *colVec) fixTwin(pos int) {
	e := v.e[pos]
	if e.link >= 0 {
		e.row.cols.e[e.link].link = pos
	}
}

func (v *rowVec) fixTwin(pos int) {
	e := v.e[pos]
	if e.link >= 0 {
		e.col.rows.e[e.link].link = pos
	}
}

// move overwrites the entry at to with the entry at from and repairs the
// moved entry's twin. The overwritten entry must already be dead.
func (v *colVec) move(from, to int) {
	if from == to {
		return
	}
	v.e[to] = v.e[from]
	v.fixTwin(to)
}

func (v *rowVec) move(from, to int) {
	if from == to {
		return
	}
	v.e[to] = v.e[from]
	v.fixTwin(to)
}

// swap exchanges two entries and repairs both twins.
func (v *colVec) swap(i, j int) {
	if i == j {
		return
	}
	v.e[i], v.e[j] = v.e[j], v.e[i]
	v.fixTwin(i)
	v.fixTwin(j)
}

func (v *rowVec) swap(i, j int) {
	if i == j {
		return
	}
	v.e[i], v.e[j] = v.e[j], v.e[i]
	v.fixTwin(i)
	v.fixTwin(j)
}

// deleteSwap overwrites the entry at pos with the last entry and shrinks the
// vector by one.
func (v *colVec) deleteSwap(pos int) {
	last := len(v.e) - 1
	v.move(last, pos)
	v.e = v.e[:last]
}

func (v *rowVec) deleteSwap(pos int) {
	last := len(v.e) - 1
	v.move(last, pos)
	v.e = v.e[:last]
}

// sortRange sorts [lo, hi) by row index and re-links every twin in the range.
func (v *colVec) sortRange(lo, hi int) {
	if hi-lo < 2 {
		return
	}
	sl := v.e[lo:hi]
	sort.Slice(sl, func(i, j int) bool { return sl[i].row.Index < sl[j].row.Index })
	for i := lo; i < hi; i++ {
		v.fixTwin(i)
	}
}

func (v *rowVec) sortRange(lo, hi int) {
	if hi-lo < 2 {
		return
	}
	sl := v.e[lo:hi]
	sort.Slice(sl, func(i, j int) bool { return sl[i].col.VarIndex() < sl[j].col.VarIndex() })
	for i := lo; i < hi; i++ {
		v.fixTwin(i)
	}
}

// search binary-searches [lo, hi) for the entry whose row has the given
// index. The range must be sorted. Returns the position or -1.
func (v *colVec) search(lo, hi, rowIndex int) int {
	i := lo + sort.Search(hi-lo, func(k int) bool { return v.e[lo+k].row.Index >= rowIndex })
	if i < hi && v.e[i].row.Index == rowIndex {
		return i
	}
	return -1
}

func (v *rowVec) search(lo, hi, varIndex int) int {
	i := lo + sort.Search(hi-lo, func(k int) bool { return v.e[lo+k].col.VarIndex() >= varIndex })
	if i < hi && v.e[i].col.VarIndex() == varIndex {
		return i
	}
	return -1
}

// scan linear-searches [lo, hi) without any ordering requirement.
func (v *colVec) scan(lo, hi, rowIndex int) int {
	for i := lo; i < hi; i++ {
		if v.e[i].row.Index == rowIndex {
			return i
		}
	}
	return -1
}

func (v *rowVec) scan(lo, hi, varIndex int) int {
	for i := lo; i < hi; i++ {
		if v.e[i].col.VarIndex() == varIndex {
			return i
		}
	}
	return -1
}
