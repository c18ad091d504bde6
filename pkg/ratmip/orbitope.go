package ratmip

import (
	"sort"

	"github.com/gitrdm/ratmip/internal/unionfind"
)

// Orbitope is a detected orbitopal structure: a matrix of permutation
// variable indices whose columns the component's group permutes like the
// full symmetric group.
type Orbitope struct {
	// Kind is OrbitopeFull, or OrbitopePacking when the packing or
	// partitioning refinement applies to the rows.
	Kind OrbitopeKind

	// Matrix is row-major, NRows x NCols, holding permutation variable
	// indices. Rows and columns are in canonical order: rows ascending by
	// their minimum index, columns ordered so the first row is ascending.
	Matrix [][]int
}

// NRows returns the row count.
func (o *Orbitope) NRows() int { return len(o.Matrix) }

// NCols returns the column count.
func (o *Orbitope) NCols() int {
	if len(o.Matrix) == 0 {
		return 0
	}
	return len(o.Matrix[0])
}

// OrbitopeDetector checks whether the generators of one component act on
// its variables like column swaps of a matrix. Detection is deterministic:
// equivalent generator sets yield the same canonical matrix.
type OrbitopeDetector struct {
	permvars []*Variable
	setppcs  []*SetPPCCons
}

// NewOrbitopeDetector creates a detector. conss may contain any constraint
// kinds; only set-packing and set-partitioning constraints participate in
// the row refinement.
func NewOrbitopeDetector(permvars []*Variable, conss []Cons) *OrbitopeDetector {
	det := &OrbitopeDetector{permvars: permvars}
	for _, c := range conss {
		if ppc, ok := c.(*SetPPCCons); ok {
			if ppc.PPCKind == ConsSetPacking || ppc.PPCKind == ConsSetPartitioning {
				det.setppcs = append(det.setppcs, ppc)
			}
		}
	}
	return det
}

// Detect runs the orbitope recipe on the generators of one component.
// It returns nil when the component is not orbitopal. Detect is
// idempotent: rerunning on the same generators returns an equal matrix.
func (det *OrbitopeDetector) Detect(perms [][]int) *Orbitope {
	if len(perms) == 0 {
		return nil
	}
	npermvars := len(perms[0])

	// Every generator must be an involution with the same 2-cycle count.
	nrows := -1
	for _, p := range perms {
		n2 := 0
		for i, j := range p {
			if p[j] != i {
				return nil
			}
			if i < j {
				n2++
			}
		}
		if n2 == 0 {
			return nil
		}
		if nrows < 0 {
			nrows = n2
		} else if n2 != nrows {
			return nil
		}
	}

	// A single row of 2-cycles is the plain symmetric group on its
	// entries; that case is left to the orbit-based methods.
	if nrows < 2 {
		return nil
	}

	// Union the 2-cycles. The moved variables must tile an nrows x ncols
	// matrix, and every orbit must cover whole candidate rows: its size
	// must be a multiple of the column count. Generators permuting rows
	// among each other fuse several rows into one orbit, so orbit sizes
	// larger than ncols are legitimate.
	dsu := unionfind.New(npermvars)
	moved := make([]bool, npermvars)
	nmoved := 0
	for _, p := range perms {
		for i, j := range p {
			if i < j {
				dsu.Union(i, j)
				if !moved[i] {
					moved[i] = true
					nmoved++
				}
				if !moved[j] {
					moved[j] = true
					nmoved++
				}
			}
		}
	}
	if nmoved%nrows != 0 {
		return nil
	}
	ncols := nmoved / nrows
	if ncols < 2 {
		return nil
	}
	orbSize := make(map[int]int)
	for i := 0; i < npermvars; i++ {
		if moved[i] {
			orbSize[dsu.Find(i)]++
		}
	}
	for _, sz := range orbSize {
		if sz%ncols != 0 {
			return nil
		}
	}

	// First row: BFS from the smallest moved variable, recording for each
	// newly reached column which previous column and which generator got
	// there. The (prev, genperm) recipe then replays on every other row.
	start := -1
	for i := 0; i < npermvars; i++ {
		if moved[i] {
			start = i
			break
		}
	}
	row0 := make([]int, 0, ncols)
	prev := make([]int, ncols)
	genperm := make([]int, ncols)
	colOf := make(map[int]int)
	row0 = append(row0, start)
	colOf[start] = 0
	for head := 0; head < len(row0) && len(row0) < ncols; head++ {
		cur := row0[head]
		for pi, p := range perms {
			img := p[cur]
			if img == cur {
				continue
			}
			if _, seen := colOf[img]; seen {
				continue
			}
			c := len(row0)
			colOf[img] = c
			prev[c] = head
			genperm[c] = pi
			row0 = append(row0, img)
			if len(row0) == ncols {
				break
			}
		}
	}
	if len(row0) != ncols {
		return nil
	}

	used := make([]bool, npermvars)
	for _, v := range row0 {
		used[v] = true
	}
	matrix := make([][]int, 0, nrows)
	matrix = append(matrix, row0)

	// Remaining rows: the generator joining columns 0 and 1 supplies the
	// row's first entry through its next still-unused 2-cycle, giving two
	// candidate starts; the (prev, genperm) recipe extends either into a
	// full row or rules it out.
	g1 := perms[genperm[1]]
	for len(matrix) < nrows {
		candA, candB := -1, -1
		for i, j := range g1 {
			if i < j && !used[i] && !used[j] {
				candA, candB = i, j
				break
			}
		}
		if candA < 0 {
			return nil
		}
		row := tryCompleteRow(perms, prev, genperm, candA, ncols, used)
		if row == nil {
			row = tryCompleteRow(perms, prev, genperm, candB, ncols, used)
		}
		if row == nil {
			return nil
		}
		for _, v := range row {
			used[v] = true
		}
		matrix = append(matrix, row)
	}
	for i := 0; i < npermvars; i++ {
		if moved[i] && !used[i] {
			return nil
		}
	}

	canonicalizeOrbitope(matrix)

	// Packing-partitioning refinement: with at least three compatible
	// rows the orbitope is restricted to exactly those rows and installed
	// in the packing flavor.
	compat := det.ppCompatibleRows(matrix)
	if len(compat) >= 3 {
		sub := make([][]int, len(compat))
		for i, ri := range compat {
			sub[i] = matrix[ri]
		}
		return &Orbitope{Kind: OrbitopePacking, Matrix: sub}
	}
	return &Orbitope{Kind: OrbitopeFull, Matrix: matrix}
}

// tryCompleteRow replays the (prev, genperm) recipe from the candidate
// first entry. Every produced entry must be unused and distinct within
// the row.
func tryCompleteRow(perms [][]int, prev, genperm []int, first, ncols int, used []bool) []int {
	row := make([]int, ncols)
	row[0] = first
	inRow := map[int]bool{first: true}
	for c := 1; c < ncols; c++ {
		src := row[prev[c]]
		img := perms[genperm[c]][src]
		if img == src || used[img] || inRow[img] {
			return nil
		}
		row[c] = img
		inRow[img] = true
	}
	return row
}

// canonicalizeOrbitope sorts rows by their minimum entry, then orders
// columns so the first row is increasing, applying the column order to
// every row.
func canonicalizeOrbitope(matrix [][]int) {
	sort.Slice(matrix, func(i, j int) bool {
		return minOf(matrix[i]) < minOf(matrix[j])
	})
	ncols := len(matrix[0])
	order := make([]int, ncols)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return matrix[0][order[i]] < matrix[0][order[j]]
	})
	for ri, row := range matrix {
		out := make([]int, ncols)
		for c, oc := range order {
			out[c] = row[oc]
		}
		matrix[ri] = out
	}
}

func minOf(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// ppCompatibleRows returns the indices of rows whose variables are all
// contained in a single set-packing or set-partitioning constraint.
func (det *OrbitopeDetector) ppCompatibleRows(matrix [][]int) []int {
	if len(det.setppcs) == 0 {
		return nil
	}
	memb := make(map[*Variable]map[int]bool)
	for ci, ppc := range det.setppcs {
		for _, v := range ppc.Xs {
			if memb[v] == nil {
				memb[v] = make(map[int]bool)
			}
			memb[v][ci] = true
		}
	}
	var compat []int
	for ri, row := range matrix {
		if det.rowPPCompatible(row, memb) {
			compat = append(compat, ri)
		}
	}
	return compat
}

func (det *OrbitopeDetector) rowPPCompatible(row []int, memb map[*Variable]map[int]bool) bool {
	common := map[int]bool{}
	for i, idx := range row {
		set := memb[det.permvars[idx]]
		if set == nil {
			return false
		}
		if i == 0 {
			for c := range set {
				common[c] = true
			}
			continue
		}
		for c := range common {
			if !set[c] {
				delete(common, c)
			}
		}
		if len(common) == 0 {
			return false
		}
	}
	return true
}
