package ratmip

import (
	"sort"

	"github.com/gitrdm/ratmip/internal/unionfind"
)

// ComponentBlock is a bitset of symmetry methods blocked on a component.
// A method gets blocked when a stronger handler already covers the
// component or when the component failed a method's prerequisites.
type ComponentBlock uint8

const (
	// BlockSymbreak blocks static symmetry-breaking constraints.
	BlockSymbreak ComponentBlock = 1 << iota
	// BlockOrbitalReduction blocks orbital reduction propagation.
	BlockOrbitalReduction
	// BlockSST blocks Schreier-Sims leader fixing.
	BlockSST
)

// Has reports whether method m is blocked.
func (b ComponentBlock) Has(m ComponentBlock) bool { return b&m != 0 }

// Decomposition partitions the permutation variables into independent
// components: two variables share a component when some chain of
// generators moves one toward the other. Generators act entirely within
// one component.
type Decomposition struct {
	// Components holds variable indices grouped by component, components
	// in ascending order of their smallest member.
	Components []int

	// ComponentBegins has one extra trailing entry; component c spans
	// Components[ComponentBegins[c]:ComponentBegins[c+1]].
	ComponentBegins []int

	// VarToComponent maps a variable index to its component, -1 when no
	// generator moves the variable.
	VarToComponent []int

	// PermToComponent maps a generator to its component, -1 for identity
	// generators.
	PermToComponent []int

	// Blocked tracks which methods are disabled per component.
	Blocked []ComponentBlock
}

// NComponents returns the number of components.
func (d *Decomposition) NComponents() int { return len(d.ComponentBegins) - 1 }

// Component returns the variable indices of component c.
func (d *Decomposition) Component(c int) []int {
	return d.Components[d.ComponentBegins[c]:d.ComponentBegins[c+1]]
}

// ComponentPerms returns the indices of the generators acting on
// component c.
func (d *Decomposition) ComponentPerms(c int) []int {
	var out []int
	for p, pc := range d.PermToComponent {
		if pc == c {
			out = append(out, p)
		}
	}
	return out
}

// DecomposeComponents partitions npermvars variable indices into
// components under the given generators.
func DecomposeComponents(npermvars int, perms [][]int) *Decomposition {
	dsu := unionfind.New(npermvars)
	for _, p := range perms {
		for i, j := range p {
			if i != j {
				dsu.Union(i, j)
			}
		}
	}

	// Dense component ids ordered by smallest member.
	rootToComp := make(map[int]int)
	varToComp := make([]int, npermvars)
	touched := make([]bool, npermvars)
	for _, p := range perms {
		for i, j := range p {
			if i != j {
				touched[i] = true
			}
		}
	}
	ncomps := 0
	for i := 0; i < npermvars; i++ {
		if !touched[i] {
			varToComp[i] = -1
			continue
		}
		r := dsu.Find(i)
		c, ok := rootToComp[r]
		if !ok {
			c = ncomps
			ncomps++
			rootToComp[r] = c
		}
		varToComp[i] = c
	}

	d := &Decomposition{
		VarToComponent:  varToComp,
		ComponentBegins: make([]int, ncomps+1),
		Blocked:         make([]ComponentBlock, ncomps),
	}
	for _, c := range varToComp {
		if c >= 0 {
			d.ComponentBegins[c+1]++
		}
	}
	for c := 1; c <= ncomps; c++ {
		d.ComponentBegins[c] += d.ComponentBegins[c-1]
	}
	d.Components = make([]int, d.ComponentBegins[ncomps])
	fill := append([]int(nil), d.ComponentBegins[:ncomps]...)
	for i, c := range varToComp {
		if c >= 0 {
			d.Components[fill[c]] = i
			fill[c]++
		}
	}
	for c := 0; c < ncomps; c++ {
		seg := d.Components[d.ComponentBegins[c]:d.ComponentBegins[c+1]]
		sort.Ints(seg)
	}

	d.PermToComponent = make([]int, len(perms))
	for pi, p := range perms {
		d.PermToComponent[pi] = -1
		for i, j := range p {
			if i != j {
				d.PermToComponent[pi] = varToComp[i]
				break
			}
		}
	}
	return d
}
