package ratmip

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StopSignal is polled at loop headers for cooperative cancellation. A nil
// signal never stops.
type StopSignal func() bool

func stopped(stop StopSignal) bool { return stop != nil && stop() }

// SymGraph is the colored graph handed to the automorphism engine. Nodes
// are numbered with the variable nodes first; only permutations of the
// variable node prefix are meaningful as symmetries.
type SymGraph struct {
	// NVarNodes is the number of variable nodes; nodes [0, NVarNodes)
	// correspond positionally to the driver's permutation variables.
	NVarNodes int

	// Colors holds one color class per node. The engine must only map
	// nodes of equal color onto each other.
	Colors []int

	// Edges is the undirected edge list.
	Edges [][2]int
}

// NNodes returns the node count of the graph.
func (g *SymGraph) NNodes() int { return len(g.Colors) }

// SymmetryResult is what the automorphism engine returns.
type SymmetryResult struct {
	// Perms are generators of the symmetry group, each a permutation of
	// the variable node indices [0, NVarNodes).
	Perms [][]int

	// LogGroupOrder is log10 of the automorphism group order.
	LogGroupOrder float64

	// Truncated reports that the engine hit its generator cap and the
	// group may be larger than the generators span.
	Truncated bool
}

// AutomorphismEngine computes a generating set of the color-preserving
// automorphism group of a SymGraph. maxGenerators is a soft cap; 0 means
// unlimited. The engine may return fewer generators than the group needs
// and must then set Truncated.
type AutomorphismEngine interface {
	ComputeGenerators(g *SymGraph, maxGenerators int) (*SymmetryResult, error)
}

// AutomorphismDriver translates a MIP into a SymGraph, runs the engine and
// post-processes the generators (verification, compression).
type AutomorphismDriver struct {
	params SymParams
	engine AutomorphismEngine
	log    *logrus.Logger

	permvars []*Variable
	varIndex map[*Variable]int
	symRows  []SymRow
	nonlin   []*NonlinearCons
	graph    *SymGraph
}

// NewAutomorphismDriver creates a driver. A nil logger discards output.
func NewAutomorphismDriver(engine AutomorphismEngine, params SymParams, log *logrus.Logger) (*AutomorphismDriver, error) {
	if engine == nil {
		return nil, fmt.Errorf("NewAutomorphismDriver: nil engine")
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &AutomorphismDriver{params: params, engine: engine, log: log}, nil
}

// PermVars returns the variables the generator permutations act on, in
// node order. Valid after Build.
func (d *AutomorphismDriver) PermVars() []*Variable { return d.permvars }

// Graph returns the colored graph. Valid after Build.
func (d *AutomorphismDriver) Graph() *SymGraph { return d.graph }

// Build constructs the colored graph from the variables and constraints.
// Variables in fixed are given unique colors so that no symmetry moves
// them. Nonlinear constraints contribute coloring only; their variables
// get shared colors only when their expression trees match another tree
// by structure.
func (d *AutomorphismDriver) Build(vars []*Variable, conss []Cons, fixed map[*Variable]bool) error {
	if len(vars) == 0 {
		return fmt.Errorf("AutomorphismDriver.Build: no variables")
	}
	d.permvars = vars
	d.varIndex = make(map[*Variable]int, len(vars))
	for i, v := range vars {
		if v == nil {
			return fmt.Errorf("AutomorphismDriver.Build: nil variable at %d", i)
		}
		if _, dup := d.varIndex[v]; dup {
			return fmt.Errorf("AutomorphismDriver.Build: variable %s listed twice", v.Name)
		}
		d.varIndex[v] = i
	}

	d.symRows = d.symRows[:0]
	d.nonlin = d.nonlin[:0]
	for _, c := range conss {
		if nl, ok := c.(*NonlinearCons); ok {
			d.nonlin = append(d.nonlin, nl)
			continue
		}
		rows, err := c.collectCoefficients()
		if err != nil {
			return err
		}
		for _, r := range rows {
			d.symRows = append(d.symRows, r)
			if d.params.DoubleEquations && r.Sense == SenseEq {
				neg := SymRow{Sense: SenseEq, Rhs: r.Rhs.Neg(), Coefs: make([]SymCoef, len(r.Coefs))}
				for i, sc := range r.Coefs {
					neg.Coefs[i] = SymCoef{Var: sc.Var, Val: sc.Val.Neg()}
				}
				d.symRows = append(d.symRows, neg)
			}
		}
	}

	nUses := make([]int, len(vars))
	for _, r := range d.symRows {
		for _, sc := range r.Coefs {
			i, ok := d.varIndex[sc.Var]
			if !ok {
				return errors.Wrapf(ErrUnsupportedConstraint,
					"variable %s appears in a constraint but not in the variable list", sc.Var.Name)
			}
			nUses[i]++
		}
	}

	colors := newColorTable()
	g := &SymGraph{NVarNodes: len(vars)}
	g.Colors = make([]int, len(vars))
	for i, v := range vars {
		switch {
		case fixed[v]:
			g.Colors[i] = colors.unique()
		default:
			g.Colors[i] = colors.lookup(varColorKey(v, nUses[i]))
		}
	}
	d.colorNonlinearVars(g, colors, fixed)

	// One rhs node per symbolic row; per row, one intermediate node per
	// distinct coefficient value wiring the rhs to the variables carrying
	// that coefficient. This keeps the graph small while preserving the
	// incidence structure.
	for _, r := range d.symRows {
		rhsNode := len(g.Colors)
		g.Colors = append(g.Colors, colors.lookup(fmt.Sprintf("rhs:%d:%s", r.Sense, r.Rhs.Key())))
		coefNodes := make(map[string]int)
		for _, sc := range r.Coefs {
			key := sc.Val.Key()
			cn, ok := coefNodes[key]
			if !ok {
				cn = len(g.Colors)
				g.Colors = append(g.Colors, colors.lookup("coef:"+key))
				coefNodes[key] = cn
				g.Edges = append(g.Edges, [2]int{cn, rhsNode})
			}
			g.Edges = append(g.Edges, [2]int{d.varIndex[sc.Var], cn})
		}
	}
	d.graph = g
	d.log.WithFields(logrus.Fields{
		"vars":  len(vars),
		"rows":  len(d.symRows),
		"nodes": g.NNodes(),
		"edges": len(g.Edges),
	}).Debug("built symmetry graph")
	return nil
}

// colorNonlinearVars assigns colors to variables appearing in nonlinear
// expression trees. Trees are fingerprinted structurally; variables of
// trees that share a fingerprint get a color keyed by (fingerprint,
// preorder position), everything else gets a unique color.
func (d *AutomorphismDriver) colorNonlinearVars(g *SymGraph, colors *colorTable, fixed map[*Variable]bool) {
	if len(d.nonlin) == 0 {
		return
	}
	prints := make([]string, len(d.nonlin))
	printCount := make(map[string]int)
	for i, nl := range d.nonlin {
		prints[i] = exprFingerprint(nl.Tree)
		printCount[prints[i]]++
	}
	for i, nl := range d.nonlin {
		shared := printCount[prints[i]] > 1
		pos := 0
		nl.Tree.walk(func(e *Expr) {
			if e.Op != ExprVar {
				return
			}
			idx, ok := d.varIndex[e.Var]
			pos++
			if !ok || fixed[e.Var] {
				return
			}
			if shared {
				g.Colors[idx] = colors.lookup(fmt.Sprintf("nl:%s:%d", prints[i], pos))
			} else {
				g.Colors[idx] = colors.unique()
			}
		})
		if idx, ok := d.varIndex[nl.Aux]; ok && !fixed[nl.Aux] {
			if shared {
				g.Colors[idx] = colors.lookup("nlaux:" + prints[i])
			} else {
				g.Colors[idx] = colors.unique()
			}
		}
	}
}

// Compute runs the engine on the built graph, verifies the generators if
// configured and prunes identity generators. Build must have succeeded.
func (d *AutomorphismDriver) Compute(stop StopSignal) (*SymmetryResult, error) {
	if d.graph == nil {
		return nil, fmt.Errorf("AutomorphismDriver.Compute: Build has not run")
	}
	if stopped(stop) {
		return nil, ErrStopRequested
	}
	res, err := d.engine.ComputeGenerators(d.graph, d.params.MaxGenerators)
	if err != nil {
		return nil, errors.Wrap(err, "automorphism engine")
	}
	kept := res.Perms[:0]
	for _, p := range res.Perms {
		if len(p) != len(d.permvars) {
			return nil, fmt.Errorf("AutomorphismDriver.Compute: generator length %d, want %d", len(p), len(d.permvars))
		}
		if isIdentityPerm(p) {
			continue
		}
		if d.params.CheckSymmetries {
			if err := d.verifyGenerator(p); err != nil {
				return nil, err
			}
		}
		kept = append(kept, p)
	}
	res.Perms = kept
	if res.Truncated {
		d.log.WithField("ngens", len(res.Perms)).Info("generator cap reached; proceeding with truncated set")
	}
	return res, nil
}

// verifyGenerator checks that the permutation maps every symbolic row onto
// some row with identical sense, rhs and pointwise coefficients, and every
// nonlinear tree onto an isomorphic one.
func (d *AutomorphismDriver) verifyGenerator(perm []int) error {
	keys := make(map[string]int, len(d.symRows))
	for _, r := range d.symRows {
		keys[symRowKey(r, nil)]++
	}
	rename := make(map[*Variable]*Variable, len(perm))
	for i, j := range perm {
		rename[d.permvars[i]] = d.permvars[j]
	}
	for _, r := range d.symRows {
		k := symRowKey(r, rename)
		if keys[k] == 0 {
			return errors.Wrapf(ErrSymmetryCheck, "permuted row %s has no counterpart", k)
		}
	}
	for _, nl := range d.nonlin {
		found := false
		for _, other := range d.nonlin {
			if nl.Tree.Isomorphic(other.Tree, rename) {
				found = true
				break
			}
		}
		if !found {
			return errors.Wrapf(ErrSymmetryCheck, "nonlinear constraint %s has no isomorphic image", nl.ConsName)
		}
	}
	return nil
}

// symRowKey is a canonical string for a symbolic row after optionally
// renaming its variables. Entries are sorted by the renamed variable
// index so that equal rows compare equal regardless of storage order.
func symRowKey(r SymRow, rename map[*Variable]*Variable) string {
	type ent struct {
		idx int
		key string
	}
	ents := make([]ent, len(r.Coefs))
	for i, sc := range r.Coefs {
		v := sc.Var
		if rename != nil {
			if mapped, ok := rename[v]; ok {
				v = mapped
			}
		}
		ents[i] = ent{idx: v.Index, key: sc.Val.Key()}
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].idx < ents[j].idx })
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s", r.Sense, r.Rhs.Key())
	for _, e := range ents {
		fmt.Fprintf(&b, "|%d:%s", e.idx, e.key)
	}
	return b.String()
}

func varColorKey(v *Variable, nuses int) string {
	return fmt.Sprintf("var:%d:%s:%s:%s:%d",
		v.Type, v.Obj.Key(), v.LbGlobal.Key(), v.UbGlobal.Key(), nuses)
}

// exprFingerprint encodes the structure of an expression tree with the
// variable identities erased.
func exprFingerprint(e *Expr) string {
	var b strings.Builder
	var rec func(*Expr)
	rec = func(e *Expr) {
		switch e.Op {
		case ExprVar:
			b.WriteString("v")
		case ExprConst:
			b.WriteString("c" + e.Const.Key())
		case ExprPow:
			b.WriteString("p" + e.Const.Key())
		case ExprSum:
			b.WriteString("s")
		case ExprProd:
			b.WriteString("m")
		case ExprAbs:
			b.WriteString("a")
		}
		b.WriteString("(")
		for _, ch := range e.Children {
			rec(ch)
		}
		b.WriteString(")")
	}
	rec(e)
	return b.String()
}

func isIdentityPerm(p []int) bool {
	for i, j := range p {
		if i != j {
			return false
		}
	}
	return true
}

// colorTable interns color keys to dense ints.
type colorTable struct {
	byKey map[string]int
	next  int
}

func newColorTable() *colorTable {
	return &colorTable{byKey: make(map[string]int)}
}

func (t *colorTable) lookup(key string) int {
	if c, ok := t.byKey[key]; ok {
		return c
	}
	c := t.next
	t.next++
	t.byKey[key] = c
	return c
}

func (t *colorTable) unique() int {
	c := t.next
	t.next++
	return c
}

// CompressPerms drops variables not moved by any generator when the moved
// fraction is at most threshold. It returns the kept variables, the
// rewritten generators over the compressed index space, and a map from
// original index to compressed index (-1 if dropped). When compression is
// not worthwhile the inputs are returned unchanged with a nil map.
func CompressPerms(vars []*Variable, perms [][]int, threshold float64) ([]*Variable, [][]int, []int) {
	if len(vars) == 0 || len(perms) == 0 {
		return vars, perms, nil
	}
	moved := make([]bool, len(vars))
	nmoved := 0
	for _, p := range perms {
		for i, j := range p {
			if i != j && !moved[i] {
				moved[i] = true
				nmoved++
			}
		}
	}
	if float64(nmoved)/float64(len(vars)) > threshold {
		return vars, perms, nil
	}
	remap := make([]int, len(vars))
	keptVars := make([]*Variable, 0, nmoved)
	for i, v := range vars {
		if moved[i] {
			remap[i] = len(keptVars)
			keptVars = append(keptVars, v)
		} else {
			remap[i] = -1
		}
	}
	newPerms := make([][]int, len(perms))
	for pi, p := range perms {
		np := make([]int, len(keptVars))
		for i, j := range p {
			if remap[i] >= 0 {
				np[remap[i]] = remap[j]
			}
		}
		newPerms[pi] = np
	}
	return keptVars, newPerms, remap
}
