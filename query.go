package spatialhash

import (
	"math"
	"math/bits"
)

// QueryCircle collects every entity within radius r of (x, z), boundary
// inclusive. The result lives in a buffer shared by all scratch queries
// on this grid and is overwritten by the next one; copy it out, or use
// QueryCircleBuf to keep results across calls.
func (g *Grid[T]) QueryCircle(x, z, r float64) []T {
	g.scratch = g.QueryCircleBuf(x, z, r, g.scratch)
	return g.scratch
}

// QueryCircleBuf is QueryCircle into a caller-owned buffer: buf is
// truncated, filled and returned. Results are unordered and duplicate
// free; entities are tested against their current positions.
func (g *Grid[T]) QueryCircleBuf(x, z, r float64, buf []T) []T {
	buf = buf[:0]
	if g.count == 0 {
		return buf
	}
	if r < 0 {
		r = 0
	}
	minX, maxX := x-r, x+r
	minZ, maxZ := z-r, z+r
	c0x := int32(math.Floor(minX * g.invCellSize))
	c1x := int32(math.Floor(maxX * g.invCellSize))
	c0z := int32(math.Floor(minZ * g.invCellSize))
	c1z := int32(math.Floor(maxZ * g.invCellSize))
	rr := r * r
	for cz := c0z; cz <= c1z; cz++ {
		for cx := c0x; cx <= c1x; cx++ {
			slot, ok := g.table.get(CellKey{X: cx, Z: cz})
			if !ok {
				continue
			}
			b := &g.buckets[slot]
			// Clip the circle's bounding box to this cell and narrow the
			// bit scan to the subcells under the clipped window.
			ox := float64(cx) * g.cellSize
			oz := float64(cz) * g.cellSize
			lox, hix := minX-ox, maxX-ox
			loz, hiz := minZ-oz, maxZ-oz
			if lox < 0 {
				lox = 0
			}
			if hix > g.cellSize {
				hix = g.cellSize
			}
			if loz < 0 {
				loz = 0
			}
			if hiz > g.cellSize {
				hiz = g.cellSize
			}
			if lox > hix || loz > hiz {
				continue
			}
			sx0 := g.subClamp(lox)
			sx1 := g.subClamp(hix)
			sz0 := g.subClamp(loz)
			sz1 := g.subClamp(hiz)
			m := b.occupied & subcellWindow(sx0, sx1, sz0, sz1, g.subdiv)
			for m != 0 {
				sub := bits.TrailingZeros16(m)
				m &= m - 1
				for _, e := range b.cells[sub] {
					ex, ez := e.Position()
					dx, dz := ex-x, ez-z
					if dx*dx+dz*dz <= rr {
						buf = append(buf, e)
					}
				}
			}
		}
	}
	return buf
}

// QueryNeighborhood collects every entity in the 3x3 block of coarse
// cells around the cell containing (x, z), with no distance filtering.
// Same shared-buffer convention as QueryCircle.
func (g *Grid[T]) QueryNeighborhood(x, z float64) []T {
	g.scratch = g.QueryNeighborhoodBuf(x, z, g.scratch)
	return g.scratch
}

// QueryNeighborhoodBuf is QueryNeighborhood into a caller-owned buffer.
func (g *Grid[T]) QueryNeighborhoodBuf(x, z float64, buf []T) []T {
	buf = buf[:0]
	center := g.keyAt(x, z)
	for dz := int32(-1); dz <= 1; dz++ {
		for dx := int32(-1); dx <= 1; dx++ {
			slot, ok := g.table.get(CellKey{X: center.X + dx, Z: center.Z + dz})
			if !ok {
				continue
			}
			b := &g.buckets[slot]
			m := b.occupied
			for m != 0 {
				sub := bits.TrailingZeros16(m)
				m &= m - 1
				buf = append(buf, b.cells[sub]...)
			}
		}
	}
	return buf
}

// subClamp scales a cell-local offset to a subcell coordinate, clamped so
// an offset at the far edge stays in the last row or column.
func (g *Grid[T]) subClamp(local float64) int {
	s := int(local * g.subScale)
	if s >= g.subdiv {
		s = g.subdiv - 1
	}
	return s
}

// subcellWindow masks the subcells in columns sx0..sx1 and rows sz0..sz1.
func subcellWindow(sx0, sx1, sz0, sz1, subdiv int) uint16 {
	row := uint16(1<<(sx1-sx0+1)-1) << sx0
	var w uint16
	for sz := sz0; sz <= sz1; sz++ {
		w |= row << (sz * subdiv)
	}
	return w
}
