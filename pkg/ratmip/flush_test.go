package ratmip

import (
	"fmt"
	"testing"
)

// backendCall records one backend primitive with the payload a test wants
// to inspect.
type backendCall struct {
	op   string
	ints []int
	rats []Rational
}

// recordingBackend logs every primitive; individual ops can be made to
// fail to exercise the abort-and-retry path.
type recordingBackend struct {
	calls  []backendCall
	failOp string
}

func (b *recordingBackend) record(op string, ints []int, rats []Rational) error {
	if op == b.failOp {
		return fmt.Errorf("injected %s failure", op)
	}
	b.calls = append(b.calls, backendCall{op: op, ints: ints, rats: rats})
	return nil
}

func (b *recordingBackend) ops() []string {
	out := make([]string, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.op
	}
	return out
}

func (b *recordingBackend) AddCols(objs, lbs, ubs []Rational, names []string, beg, ind []int, vals []Rational) error {
	return b.record("AddCols", append(append([]int{len(objs)}, beg...), ind...), vals)
}

func (b *recordingBackend) AddRows(lhss, rhss []Rational, names []string, beg, ind []int, vals []Rational) error {
	return b.record("AddRows", append(append([]int{len(lhss)}, beg...), ind...), vals)
}

func (b *recordingBackend) DelCols(from, to int) error {
	return b.record("DelCols", []int{from, to}, nil)
}

func (b *recordingBackend) DelRows(from, to int) error {
	return b.record("DelRows", []int{from, to}, nil)
}

func (b *recordingBackend) ChgObj(ind []int, objs []Rational) error {
	return b.record("ChgObj", ind, objs)
}

func (b *recordingBackend) ChgBounds(ind []int, lbs, ubs []Rational) error {
	return b.record("ChgBounds", ind, append(append([]Rational{}, lbs...), ubs...))
}

func (b *recordingBackend) ChgSides(ind []int, lhss, rhss []Rational) error {
	return b.record("ChgSides", ind, append(append([]Rational{}, lhss...), rhss...))
}

func (b *recordingBackend) GetObj(from, to int) ([]Rational, error) { return nil, nil }
func (b *recordingBackend) GetBounds(from, to int) ([]Rational, []Rational, error) {
	return nil, nil, nil
}
func (b *recordingBackend) GetSides(from, to int) ([]Rational, []Rational, error) {
	return nil, nil, nil
}

func mustVariable(t *testing.T, index int, name string, obj, lb, ub Rational) *Variable {
	t.Helper()
	v, err := NewVariable(index, name, VarContinuous, obj, lb, ub)
	if err != nil {
		t.Fatalf("NewVariable(%s): %v", name, err)
	}
	return v
}

// buildTwoColOneRow reproduces the small LP used by several tests: columns
// c0 (obj=1, [0,inf)) and c1 (obj=0, [0,1]), one row 0 <= 2*c0+3*c1 <= 10.
func buildTwoColOneRow(t *testing.T, lp *LP) (*Column, *Column, *Row) {
	t.Helper()
	c0 := NewColumn(mustVariable(t, 0, "c0", RatInt(1), RatZero(), PosInfinity()))
	c1 := NewColumn(mustVariable(t, 1, "c1", RatZero(), RatZero(), RatInt(1)))
	lp.AddColToLP(c0)
	lp.AddColToLP(c1)
	r := lp.NewRow("r0", RatZero(), RatInt(10), RatZero())
	lp.AddRowToLP(r)
	if err := lp.AddCoef(r, c0, RatInt(2)); err != nil {
		t.Fatalf("AddCoef(c0): %v", err)
	}
	if err := lp.AddCoef(r, c1, RatInt(3)); err != nil {
		t.Fatalf("AddCoef(c1): %v", err)
	}
	return c0, c1, r
}

func TestFlushEmptyLP(t *testing.T) {
	backend := &recordingBackend{}
	lp := NewLP(backend, NewSolverStats(), nil)
	if !lp.IsFlushed() {
		t.Fatalf("empty LP must start flushed")
	}
	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(backend.calls) != 0 {
		t.Fatalf("flushing an empty LP made backend calls: %v", backend.ops())
	}
}

func TestFlushAddColsAndRows(t *testing.T) {
	backend := &recordingBackend{}
	lp := NewLP(backend, NewSolverStats(), nil)
	c0, c1, r := buildTwoColOneRow(t, lp)

	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := backend.ops(); len(got) != 2 || got[0] != "AddCols" || got[1] != "AddRows" {
		t.Fatalf("want [AddCols AddRows], got %v", got)
	}
	// Two columns, no nonzeros yet on the column side: the rows were not
	// in the backend when the columns shipped.
	addCols := backend.calls[0]
	if addCols.ints[0] != 2 {
		t.Fatalf("AddCols added %d columns, want 2", addCols.ints[0])
	}
	if len(addCols.rats) != 0 {
		t.Fatalf("AddCols carried %d nonzeros, want 0", len(addCols.rats))
	}
	// One row with entries (0, 2), (1, 3).
	addRows := backend.calls[1]
	if addRows.ints[0] != 1 {
		t.Fatalf("AddRows added %d rows, want 1", addRows.ints[0])
	}
	wantInd := []int{0, 1}
	wantVals := []Rational{RatInt(2), RatInt(3)}
	gotInd := addRows.ints[2:]
	for k := range wantInd {
		if gotInd[k] != wantInd[k] || !addRows.rats[k].Equal(wantVals[k]) {
			t.Fatalf("row entry %d: got (%d, %s), want (%d, %s)",
				k, gotInd[k], addRows.rats[k], wantInd[k], wantVals[k])
		}
	}

	if !lp.IsFlushed() {
		t.Fatalf("LP not flushed after Flush")
	}
	if lp.NLPICols() != 2 || lp.NLPIRows() != 1 {
		t.Fatalf("backend image %d cols %d rows, want 2/1", lp.NLPICols(), lp.NLPIRows())
	}
	if c0.LPIPos() != 0 || c1.LPIPos() != 1 || r.LPIPos() != 0 {
		t.Fatalf("backend positions (%d, %d, %d)", c0.LPIPos(), c1.LPIPos(), r.LPIPos())
	}
	// The LP and the backend each hold a reference.
	if r.NUses() != 3 {
		t.Fatalf("row nuses = %d, want 3", r.NUses())
	}
}

func TestFlushCoefChangeThenDeleteRow(t *testing.T) {
	backend := &recordingBackend{}
	lp := NewLP(backend, NewSolverStats(), nil)
	c0, _, r := buildTwoColOneRow(t, lp)
	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	backend.calls = nil

	if err := lp.ChgCoef(r, c0, RatInt(5)); err != nil {
		t.Fatalf("ChgCoef: %v", err)
	}
	lp.ShrinkRows(0)
	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// The overwritten coefficient dies with the row: exactly one DelRows,
	// nothing else.
	if got := backend.ops(); len(got) != 1 || got[0] != "DelRows" {
		t.Fatalf("want [DelRows], got %v", got)
	}
	if del := backend.calls[0]; del.ints[0] != 0 || del.ints[1] != 0 {
		t.Fatalf("DelRows(%d, %d), want (0, 0)", del.ints[0], del.ints[1])
	}
}

func TestFlushObjAndBoundChanges(t *testing.T) {
	backend := &recordingBackend{}
	lp := NewLP(backend, NewSolverStats(), nil)
	c0, c1, _ := buildTwoColOneRow(t, lp)
	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	backend.calls = nil

	lp.ChgColObj(c0, NewRational(7, 2))
	lp.ChgColBounds(c1, RatZero(), RatInt(4))
	lp.ChgColObj(c0, NewRational(7, 2)) // same value; must not re-queue
	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := backend.ops(); len(got) != 2 || got[0] != "ChgObj" || got[1] != "ChgBounds" {
		t.Fatalf("want [ChgObj ChgBounds], got %v", got)
	}
	chgObj := backend.calls[0]
	if len(chgObj.ints) != 1 || chgObj.ints[0] != 0 || !chgObj.rats[0].Equal(NewRational(7, 2)) {
		t.Fatalf("ChgObj payload %v %v", chgObj.ints, chgObj.rats)
	}
	chgBnd := backend.calls[1]
	if len(chgBnd.ints) != 1 || chgBnd.ints[0] != 1 || !chgBnd.rats[1].Equal(RatInt(4)) {
		t.Fatalf("ChgBounds payload %v %v", chgBnd.ints, chgBnd.rats)
	}
}

func TestFlushSidesShiftedByConstant(t *testing.T) {
	backend := &recordingBackend{}
	lp := NewLP(backend, NewSolverStats(), nil)
	c0 := NewColumn(mustVariable(t, 0, "c0", RatInt(1), RatZero(), PosInfinity()))
	lp.AddColToLP(c0)
	r := lp.NewRow("r0", RatInt(1), RatInt(10), RatInt(1))
	lp.AddRowToLP(r)
	if err := lp.AddCoef(r, c0, RatInt(1)); err != nil {
		t.Fatalf("AddCoef: %v", err)
	}
	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	addRows := backend.calls[len(backend.calls)-1]
	if addRows.op != "AddRows" {
		t.Fatalf("last call %s, want AddRows", addRows.op)
	}

	backend.calls = nil
	lp.ChgRowConstant(r, RatInt(3))
	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := backend.ops(); len(got) != 1 || got[0] != "ChgSides" {
		t.Fatalf("want [ChgSides], got %v", got)
	}
	sides := backend.calls[0]
	if !sides.rats[0].Equal(RatInt(-2)) || !sides.rats[1].Equal(RatInt(7)) {
		t.Fatalf("shifted sides (%s, %s), want (-2, 7)", sides.rats[0], sides.rats[1])
	}
}

func TestFlushAbortAndRetry(t *testing.T) {
	backend := &recordingBackend{failOp: "AddRows"}
	lp := NewLP(backend, NewSolverStats(), nil)
	buildTwoColOneRow(t, lp)

	err := lp.Flush()
	if err == nil {
		t.Fatalf("Flush succeeded despite injected AddRows failure")
	}
	if lp.IsFlushed() {
		t.Fatalf("LP marked flushed after failed flush")
	}
	// Columns already shipped; the retry must only re-emit the rows.
	backend.failOp = ""
	backend.calls = nil
	if err := lp.Flush(); err != nil {
		t.Fatalf("retry Flush: %v", err)
	}
	if got := backend.ops(); len(got) != 1 || got[0] != "AddRows" {
		t.Fatalf("retry want [AddRows], got %v", got)
	}
	if !lp.IsFlushed() {
		t.Fatalf("LP not flushed after successful retry")
	}
}

func TestFlushBoundsPrimitivesByTouchedObjects(t *testing.T) {
	backend := &recordingBackend{}
	lp := NewLP(backend, NewSolverStats(), nil)
	c0, c1, r := buildTwoColOneRow(t, lp)
	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	backend.calls = nil

	// Touch two columns and one row; the flush may spend at most that
	// many primitives plus one DelCols and one DelRows.
	lp.ChgColObj(c0, RatInt(9))
	lp.ChgColBounds(c1, RatZero(), RatInt(2))
	lp.ChgRowSides(r, RatZero(), RatInt(8))
	if err := lp.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(backend.calls) > 3+2 {
		t.Fatalf("flush spent %d primitives for 3 touched objects: %v",
			len(backend.calls), backend.ops())
	}
	for _, op := range backend.ops() {
		switch op {
		case "ChgObj", "ChgBounds", "ChgSides":
		default:
			t.Fatalf("unexpected primitive %s: %v", op, backend.ops())
		}
	}
}

func TestLockedRowRejectsEdits(t *testing.T) {
	backend := &recordingBackend{}
	lp := NewLP(backend, NewSolverStats(), nil)
	c0, _, r := buildTwoColOneRow(t, lp)

	r.Lock()
	if err := lp.ChgCoef(r, c0, RatInt(9)); err != ErrLockedRow {
		t.Fatalf("ChgCoef on locked row: %v, want ErrLockedRow", err)
	}
	if err := lp.DelCoef(r, c0); err != ErrLockedRow {
		t.Fatalf("DelCoef on locked row: %v, want ErrLockedRow", err)
	}
	if got := lp.GetCoef(r, c0); !got.Equal(RatInt(2)) {
		t.Fatalf("coefficient changed under lock: %s", got)
	}
	r.Unlock()
	if err := lp.ChgCoef(r, c0, RatInt(9)); err != nil {
		t.Fatalf("ChgCoef after unlock: %v", err)
	}
}
