// Package unionfind provides a disjoint-set union structure over dense
// integer keys, used by the symmetry machinery to decompose permutation
// generators into independent components and to track subgroup coloring.
package unionfind

// DSU is a disjoint-set union with path halving and union by size.
type DSU struct {
	parent []int
	size   []int
	nsets  int
}

// New creates a DSU over the keys 0..n-1, each in its own set.
func New(n int) *DSU {
	d := &DSU{
		parent: make([]int, n),
		size:   make([]int, n),
		nsets:  n,
	}
	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}
	return d
}

// Len returns the number of keys.
func (d *DSU) Len() int { return len(d.parent) }

// NSets returns the current number of disjoint sets.
func (d *DSU) NSets() int { return d.nsets }

// Find returns the representative of x's set.
func (d *DSU) Find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

// Union merges the sets of x and y and returns the surviving
// representative.
func (d *DSU) Union(x, y int) int {
	rx, ry := d.Find(x), d.Find(y)
	if rx == ry {
		return rx
	}
	if d.size[rx] < d.size[ry] {
		rx, ry = ry, rx
	}
	d.parent[ry] = rx
	d.size[rx] += d.size[ry]
	d.nsets--
	return rx
}

// Same reports whether x and y are in the same set.
func (d *DSU) Same(x, y int) bool { return d.Find(x) == d.Find(y) }

// SetSize returns the size of x's set.
func (d *DSU) SetSize(x int) int { return d.size[d.Find(x)] }
