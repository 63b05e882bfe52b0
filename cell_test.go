package spatialhash

import "testing"

func TestKeyAtFloorDivision(t *testing.T) {
	g := newTestGrid(t, 16, 4)

	cases := []struct {
		x, z   float64
		cx, cz int32
	}{
		{0, 0, 0, 0},
		{15.999, 15.999, 0, 0},
		{16, 16, 1, 1},
		{31.5, 47.9, 1, 2},
		{-0.001, -0.001, -1, -1},
		{-16, -16, -1, -1},
		{-16.001, -16.001, -2, -2},
		{-100, 100, -7, 6},
	}
	for _, c := range cases {
		key := g.keyAt(c.x, c.z)
		if key.X != c.cx || key.Z != c.cz {
			t.Errorf("keyAt(%v,%v) = (%d,%d), expected (%d,%d)", c.x, c.z, key.X, key.Z, c.cx, c.cz)
		}
	}
}

func TestSubcellAt(t *testing.T) {
	g := newTestGrid(t, 16, 4)

	cases := []struct {
		x, z float64
		sub  int
	}{
		{0, 0, 0},
		{5, 5, 5},     // one subcell in from the corner on both axes
		{3.999, 0, 0}, // just inside the first column
		{4, 0, 1},     // first position of the second column
		{15.999, 15.999, 15},
		{0, 15.999, 12},
	}
	for _, c := range cases {
		key := g.keyAt(c.x, c.z)
		if sub := g.subcellAt(key, c.x, c.z); sub != c.sub {
			t.Errorf("subcellAt(%v,%v) = %d, expected %d", c.x, c.z, sub, c.sub)
		}
	}
}

func TestSubcellAtNegativeCell(t *testing.T) {
	g := newTestGrid(t, 16, 4)

	// Position (-1,-1) sits in cell (-1,-1), whose origin is (-16,-16);
	// the local offset (15,15) lands in the far corner subcell.
	key := g.keyAt(-1, -1)
	if key != (CellKey{-1, -1}) {
		t.Fatalf("expected cell (-1,-1), got (%d,%d)", key.X, key.Z)
	}
	if sub := g.subcellAt(key, -1, -1); sub != 15 {
		t.Errorf("expected subcell 15, got %d", sub)
	}
	if sub := g.subcellAt(key, -16, -16); sub != 0 {
		t.Errorf("expected subcell 0 at the cell origin, got %d", sub)
	}
}

func TestSubcellAtSubdiv2(t *testing.T) {
	g := newTestGrid(t, 10, 2)

	key := g.keyAt(0, 0)
	if sub := g.subcellAt(key, 4.9, 4.9); sub != 0 {
		t.Errorf("expected subcell 0, got %d", sub)
	}
	if sub := g.subcellAt(key, 5, 0); sub != 1 {
		t.Errorf("expected subcell 1, got %d", sub)
	}
	if sub := g.subcellAt(key, 0, 5); sub != 2 {
		t.Errorf("expected subcell 2, got %d", sub)
	}
	if sub := g.subcellAt(key, 9.9, 9.9); sub != 3 {
		t.Errorf("expected subcell 3, got %d", sub)
	}
}

func TestCellKeyHashSpread(t *testing.T) {
	// Dense lattice keys are the worst case for a weak hash: adjacent
	// cells differ by one in a single axis. Bin the hashes by their low
	// six bits and make sure no bin collects a disproportionate share.
	const span = 16
	var bins [64]int
	seen := make(map[uint32]int)
	total := 0
	for x := int32(-span); x <= span; x++ {
		for z := int32(-span); z <= span; z++ {
			h := CellKey{x, z}.hash()
			bins[h&63]++
			seen[h]++
			total++
		}
	}

	mean := total / len(bins)
	for i, n := range bins {
		if n > mean*3 {
			t.Errorf("bin %d holds %d of %d hashes, expected near %d", i, n, total, mean)
		}
	}
	if len(seen) < total-2 {
		t.Errorf("expected near-distinct hashes over the lattice, got %d distinct of %d", len(seen), total)
	}
}

func TestCellKeyHashAxesIndependent(t *testing.T) {
	// Mirrored keys must not collide systematically: the two axes run
	// through different mixes.
	collisions := 0
	for i := int32(1); i <= 64; i++ {
		if (CellKey{i, -i}).hash() == (CellKey{-i, i}).hash() {
			collisions++
		}
		if (CellKey{i, 0}).hash() == (CellKey{0, i}).hash() {
			collisions++
		}
	}
	if collisions != 0 {
		t.Errorf("expected no mirror collisions, got %d", collisions)
	}
}
