package unionfind

import "testing"

func TestUnionFind_Basic(t *testing.T) {
	d := New(6)
	if d.NSets() != 6 {
		t.Fatalf("NSets = %d, want 6", d.NSets())
	}
	d.Union(0, 1)
	d.Union(1, 2)
	d.Union(3, 4)
	if !d.Same(0, 2) {
		t.Fatalf("0 and 2 should be merged")
	}
	if d.Same(2, 3) {
		t.Fatalf("2 and 3 should be separate")
	}
	if d.NSets() != 3 {
		t.Fatalf("NSets = %d, want 3", d.NSets())
	}
	if d.SetSize(1) != 3 {
		t.Fatalf("SetSize(1) = %d, want 3", d.SetSize(1))
	}
}

func TestUnionFind_SelfUnion(t *testing.T) {
	d := New(3)
	r := d.Union(1, 1)
	if r != 1 || d.NSets() != 3 {
		t.Fatalf("self union must be a no-op")
	}
}
