package spatialhash

import "math"

// CellKey identifies a coarse grid cell by its signed cell coordinates.
// Keys compare by value: two entities in the same cell yield equal keys.
type CellKey struct {
	X, Z int32
}

// hash spreads lattice keys with two independent 32-bit avalanche mixes,
// one per axis, XORed together. Neighboring cells differ in every output
// bit with near-uniform probability, which keeps probe chains short even
// for the dense small-integer keys a grid produces.
func (k CellKey) hash() uint32 {
	x := uint32(k.X)
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16

	z := uint32(k.Z)
	z ^= z >> 15
	z *= 0x85ebca77
	z ^= z >> 13
	z *= 0xc2b2ae3d
	z ^= z >> 16

	return x ^ z
}

// keyAt maps a world position to its coarse cell. Floor division keeps
// negative coordinates on the correct side of the axis.
func (g *Grid[T]) keyAt(x, z float64) CellKey {
	return CellKey{
		X: int32(math.Floor(x * g.invCellSize)),
		Z: int32(math.Floor(z * g.invCellSize)),
	}
}

// subcellAt maps a world position to its subcell index within key's cell:
// subZ*subdiv + subX, each axis scaled from the cell-local offset and
// clamped so edge positions land in the last row or column.
func (g *Grid[T]) subcellAt(key CellKey, x, z float64) int {
	sx := int((x - float64(key.X)*g.cellSize) * g.subScale)
	sz := int((z - float64(key.Z)*g.cellSize) * g.subScale)
	if sx < 0 {
		sx = 0
	} else if sx >= g.subdiv {
		sx = g.subdiv - 1
	}
	if sz < 0 {
		sz = 0
	} else if sz >= g.subdiv {
		sz = g.subdiv - 1
	}
	return sz*g.subdiv + sx
}
