package ratmip

import (
	"fmt"
	"io"
	"sort"

	"github.com/gitrdm/ratmip/internal/unionfind"
	"github.com/sirupsen/logrus"
)

// SubgroupDetector searches a non-orbitopal component for orbitopal
// subgroups. It greedily commits pure 2-cycle involution generators whose
// transpositions chain the subgroup graph without folding it back on
// itself; each maximal chained structure (a color class) is then tried as
// an orbitope, falling back to symmetry-breaking inequalities.
type SubgroupDetector struct {
	permvars []*Variable
	conssys  ConstraintSystem
	orbdet   *OrbitopeDetector
	params   SymParams
	log      *logrus.Logger
}

// NewSubgroupDetector creates a detector installing through conssys.
func NewSubgroupDetector(permvars []*Variable, conss []Cons, conssys ConstraintSystem, params SymParams, log *logrus.Logger) (*SubgroupDetector, error) {
	if conssys == nil {
		return nil, fmt.Errorf("NewSubgroupDetector: nil constraint system")
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &SubgroupDetector{
		permvars: permvars,
		conssys:  conssys,
		orbdet:   NewOrbitopeDetector(permvars, conss),
		params:   params,
		log:      log,
	}, nil
}

// subgroupGraph is the committed state of the greedy generator scan.
type subgroupGraph struct {
	varToComp  *unionfind.DSU
	compColor  *unionfind.DSU
	usedPerms  []int // indices into the component's generator list
	touchedVar []bool
}

// Handle runs subgroup detection on one component and installs handling
// constraints. perms are the component's generators over the full
// permutation variable index space. It returns the number of constraints
// installed. ErrStopRequested is returned when the stop signal fires;
// constraints installed before the stop stay in place.
func (sd *SubgroupDetector) Handle(perms [][]int, stop StopSignal) (int, error) {
	if len(perms) == 0 {
		return 0, nil
	}
	n := len(sd.permvars)

	order := sd.generatorOrder(perms)
	if len(order) == 0 {
		return 0, nil
	}

	g := &subgroupGraph{
		varToComp:  unionfind.New(n),
		compColor:  unionfind.New(n),
		touchedVar: make([]bool, n),
	}
	for _, pi := range order {
		if stopped(stop) {
			return 0, ErrStopRequested
		}
		sd.tryCommit(g, perms[pi], pi)
	}
	if len(g.usedPerms) == 0 {
		return 0, nil
	}

	nadded, err := sd.handleColors(g, perms, stop)
	if err != nil {
		return nadded, err
	}

	if sd.params.AddSymresacks {
		nresacks, err := sd.addLeftoverSymresacks(g, perms, stop)
		nadded += nresacks
		if err != nil {
			return nadded, err
		}
	}
	return nadded, nil
}

// generatorOrder returns the indices of the pure 2-cycle involutions,
// sorted by 2-cycle count, ascending when PreferLessRows.
func (sd *SubgroupDetector) generatorOrder(perms [][]int) []int {
	type cand struct{ idx, ncycles int }
	var cands []cand
	for pi, p := range perms {
		nc, ok := countTwoCycles(p)
		if ok && nc > 0 {
			cands = append(cands, cand{pi, nc})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].ncycles != cands[j].ncycles {
			if sd.params.PreferLessRows {
				return cands[i].ncycles < cands[j].ncycles
			}
			return cands[i].ncycles > cands[j].ncycles
		}
		return cands[i].idx < cands[j].idx
	})
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.idx
	}
	return out
}

// countTwoCycles returns the 2-cycle count of p and whether p is an
// involution consisting only of fixed points and 2-cycles.
func countTwoCycles(p []int) (int, bool) {
	n := 0
	for i, j := range p {
		if p[j] != i {
			return 0, false
		}
		if i < j {
			n++
		}
	}
	return n, true
}

// tryCommit checks admissibility of one generator against the committed
// graph and, on success, merges its transpositions in. A generator is
// admissible when no 2-cycle joins two components of the same color and no
// component is touched by more than one of its 2-cycles.
func (sd *SubgroupDetector) tryCommit(g *subgroupGraph, p []int, permIdx int) {
	type cyc struct{ i, j int }
	var cycles []cyc
	touched := make(map[int]bool)
	for i, j := range p {
		if i >= j {
			continue
		}
		ci, cj := g.varToComp.Find(i), g.varToComp.Find(j)
		if ci == cj {
			return
		}
		if g.compColor.Same(ci, cj) {
			return
		}
		if touched[ci] || touched[cj] {
			return
		}
		touched[ci] = true
		touched[cj] = true
		cycles = append(cycles, cyc{i, j})
	}
	// Commit: union the components and collapse all touched colors into
	// the first one.
	first := -1
	for _, c := range cycles {
		g.varToComp.Union(c.i, c.j)
		g.touchedVar[c.i] = true
		g.touchedVar[c.j] = true
		if first < 0 {
			first = c.i
		} else {
			g.compColor.Union(first, c.i)
		}
		g.compColor.Union(c.i, c.j)
	}
	g.usedPerms = append(g.usedPerms, permIdx)
}

// colorClass is one flattened color of the subgroup graph.
type colorClass struct {
	// comps holds the variable indices of each component, sorted.
	comps [][]int
	// perms are the used generators whose 2-cycles lie in this color.
	perms [][]int
}

// flattenColors groups the touched variables by (color, component) and
// attaches each used generator to its color.
func (sd *SubgroupDetector) flattenColors(g *subgroupGraph, perms [][]int) []*colorClass {
	n := len(sd.permvars)
	byColor := make(map[int]map[int][]int)
	for v := 0; v < n; v++ {
		if !g.touchedVar[v] {
			continue
		}
		comp := g.varToComp.Find(v)
		color := g.compColor.Find(comp)
		if byColor[color] == nil {
			byColor[color] = make(map[int][]int)
		}
		byColor[color][comp] = append(byColor[color][comp], v)
	}
	colorKeys := make([]int, 0, len(byColor))
	for c := range byColor {
		colorKeys = append(colorKeys, c)
	}
	sort.Ints(colorKeys)

	classes := make([]*colorClass, 0, len(colorKeys))
	classIdx := make(map[int]int)
	for _, ck := range colorKeys {
		compKeys := make([]int, 0, len(byColor[ck]))
		for comp := range byColor[ck] {
			compKeys = append(compKeys, comp)
		}
		sort.Ints(compKeys)
		cc := &colorClass{}
		for _, comp := range compKeys {
			vars := byColor[ck][comp]
			sort.Ints(vars)
			cc.comps = append(cc.comps, vars)
		}
		classIdx[ck] = len(classes)
		classes = append(classes, cc)
	}
	for _, pi := range g.usedPerms {
		p := perms[pi]
		for i, j := range p {
			if i < j {
				color := g.compColor.Find(g.varToComp.Find(i))
				classes[classIdx[color]].perms = append(classes[classIdx[color]].perms, p)
				break
			}
		}
	}
	return classes
}

// orbitopeCandidate is one color class with its orbitope attempt.
type orbitopeCandidate struct {
	class    *colorClass
	orbitope *Orbitope
	nbinrows int
}

// handleColors tries each color as an orbitope and falls back to SBCs.
func (sd *SubgroupDetector) handleColors(g *subgroupGraph, perms [][]int, stop StopSignal) (int, error) {
	classes := sd.flattenColors(g, perms)

	var cands []orbitopeCandidate
	for _, cc := range classes {
		if stopped(stop) {
			return 0, ErrStopRequested
		}
		var orb *Orbitope
		if sd.rectangular(cc) {
			orb = sd.orbdet.Detect(cc.perms)
		}
		nbin := 0
		if orb != nil {
			for _, row := range orb.Matrix {
				allBin := true
				for _, idx := range row {
					if sd.permvars[idx].Type != VarBinary {
						allBin = false
						break
					}
				}
				if allBin {
					nbin++
				}
			}
		}
		cands = append(cands, orbitopeCandidate{class: cc, orbitope: orb, nbinrows: nbin})
	}

	accepted := sd.acceptOrbitopes(cands)

	nadded := 0
	for i, cand := range cands {
		if stopped(stop) {
			return nadded, ErrStopRequested
		}
		if nadded >= sd.params.MaxNConssSubgroup {
			break
		}
		if accepted[i] {
			matrix := sd.varMatrix(cand.orbitope.Matrix)
			name := fmt.Sprintf("suborbitope_%d", i)
			if err := sd.conssys.AddOrbitope(name, cand.orbitope.Kind, matrix, sd.params.UseDynamicProp); err != nil {
				return nadded, err
			}
			nadded++
			continue
		}
		n, err := sd.addSBCs(cand.class, i)
		nadded += n
		if err != nil {
			return nadded, err
		}
	}
	sd.log.WithField("nadded", nadded).Debug("subgroup handling finished")
	return nadded, nil
}

// rectangular reports whether all components of a color have equal size
// of at least three variables.
func (sd *SubgroupDetector) rectangular(cc *colorClass) bool {
	if len(cc.comps) == 0 {
		return false
	}
	size := len(cc.comps[0])
	if size < 3 {
		return false
	}
	for _, comp := range cc.comps[1:] {
		if len(comp) != size {
			return false
		}
	}
	return true
}

// acceptOrbitopes applies the size thresholds deciding which detected
// sub-orbitopes are worth installing. A single orbitope qualifies when its
// binary rows are few relative to its columns or it covers most of its
// color; with several orbitopes each must have few binary rows.
func (sd *SubgroupDetector) acceptOrbitopes(cands []orbitopeCandidate) []bool {
	accepted := make([]bool, len(cands))
	ndetected := 0
	for _, c := range cands {
		if c.orbitope != nil && c.orbitope.NCols() >= 3 {
			ndetected++
		}
	}
	for i, c := range cands {
		if c.orbitope == nil || c.orbitope.NCols() < 3 {
			continue
		}
		ncols := c.orbitope.NCols()
		if ndetected > 1 {
			if c.nbinrows <= 2*ncols || (c.nbinrows <= 8*ncols && c.nbinrows < 100) {
				accepted[i] = true
			}
			continue
		}
		compsize := 0
		for _, comp := range c.class.comps {
			compsize += len(comp)
		}
		if c.nbinrows <= 3*ncols || float64(c.nbinrows*ncols) >= 0.7*float64(compsize) {
			accepted[i] = true
		}
	}
	return accepted
}

// addSBCs installs strong or weak symmetry-breaking inequalities for a
// color whose orbitope attempt failed.
func (sd *SubgroupDetector) addSBCs(cc *colorClass, colorIdx int) (int, error) {
	nadded := 0
	one := RatInt(1)
	coefs := []Rational{one, one.Neg()}
	if sd.params.AddStrongSBCs {
		// x_{c[i]} >= x_{c[i+1]} pairwise inside each component.
		for ci, comp := range cc.comps {
			for k := 0; k+1 < len(comp); k++ {
				u, v := sd.permvars[comp[k]], sd.permvars[comp[k+1]]
				name := fmt.Sprintf("strong_sbc_%d_%d_%d", colorIdx, ci, k)
				err := sd.conssys.AddLinearInequality(name, coefs,
					[]*Variable{u, v}, RatZero(), PosInfinity())
				if err != nil {
					return nadded, err
				}
				nadded++
			}
		}
		return nadded, nil
	}
	if !sd.params.AddWeakSBCs {
		return 0, nil
	}
	// Weak SBCs: the first variable of the largest component leads its
	// orbit under the color's generators.
	largest := 0
	for ci, comp := range cc.comps {
		if len(comp) > len(cc.comps[largest]) {
			largest = ci
		}
	}
	leader := cc.comps[largest][0]
	orbit := orbitOfVar(leader, cc.perms)
	for _, k := range orbit {
		if k == leader {
			continue
		}
		name := fmt.Sprintf("weak_sbc_%d_%d", colorIdx, k)
		err := sd.conssys.AddLinearInequality(name, coefs,
			[]*Variable{sd.permvars[leader], sd.permvars[k]}, RatZero(), PosInfinity())
		if err != nil {
			return nadded, err
		}
		nadded++
	}
	return nadded, nil
}

// addLeftoverSymresacks installs the component generators the subgroup
// scan did not consume as symresacks, using the variable order induced by
// the used generators' colors.
func (sd *SubgroupDetector) addLeftoverSymresacks(g *subgroupGraph, perms [][]int, stop StopSignal) (int, error) {
	used := make(map[int]bool, len(g.usedPerms))
	for _, pi := range g.usedPerms {
		used[pi] = true
	}
	order := sd.symresackVarOrder(g)
	nadded := 0
	for pi, p := range perms {
		if stopped(stop) {
			return nadded, ErrStopRequested
		}
		if used[pi] || isIdentityPerm(p) {
			continue
		}
		reordered, vars := reorderPerm(p, order, sd.permvars)
		name := fmt.Sprintf("symresack_%d", pi)
		if err := sd.conssys.AddSymresack(name, reordered, vars); err != nil {
			return nadded, err
		}
		nadded++
	}
	return nadded, nil
}

// symresackVarOrder orders variable indices with the subgroup-touched
// variables first, grouped by (color, component), untouched variables
// after in index order.
func (sd *SubgroupDetector) symresackVarOrder(g *subgroupGraph) []int {
	n := len(sd.permvars)
	type key struct{ color, comp, v int }
	var touched []key
	for v := 0; v < n; v++ {
		if g.touchedVar[v] {
			comp := g.varToComp.Find(v)
			touched = append(touched, key{g.compColor.Find(comp), comp, v})
		}
	}
	sort.Slice(touched, func(i, j int) bool {
		if touched[i].color != touched[j].color {
			return touched[i].color < touched[j].color
		}
		if touched[i].comp != touched[j].comp {
			return touched[i].comp < touched[j].comp
		}
		return touched[i].v < touched[j].v
	})
	order := make([]int, 0, n)
	for _, k := range touched {
		order = append(order, k.v)
	}
	for v := 0; v < n; v++ {
		if !g.touchedVar[v] {
			order = append(order, v)
		}
	}
	return order
}

// varMatrix maps an index matrix to the corresponding variables.
func (sd *SubgroupDetector) varMatrix(matrix [][]int) [][]*Variable {
	out := make([][]*Variable, len(matrix))
	for ri, row := range matrix {
		out[ri] = make([]*Variable, len(row))
		for ci, idx := range row {
			out[ri][ci] = sd.permvars[idx]
		}
	}
	return out
}

// reorderPerm conjugates p into the given variable order and returns the
// reindexed permutation next to the reordered variable slice.
func reorderPerm(p []int, order []int, permvars []*Variable) ([]int, []*Variable) {
	pos := make([]int, len(order))
	for newIdx, oldIdx := range order {
		pos[oldIdx] = newIdx
	}
	out := make([]int, len(p))
	vars := make([]*Variable, len(order))
	for newIdx, oldIdx := range order {
		out[newIdx] = pos[p[oldIdx]]
		vars[newIdx] = permvars[oldIdx]
	}
	return out, vars
}

// orbitOfVar computes the orbit of start under the generators via BFS.
func orbitOfVar(start int, perms [][]int) []int {
	seen := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, p := range perms {
			if img := p[v]; !seen[img] {
				seen[img] = true
				queue = append(queue, img)
			}
		}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
