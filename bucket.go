package spatialhash

// bucket holds the contents of one coarse cell, split into subdiv*subdiv
// subcell containers. Bit i of occupied is set exactly when cells[i] is
// non-nil and holds at least one entity.
type bucket[T Entity] struct {
	occupied uint16
	cells    [][]T
}

// containerPool recycles subcell containers through a bounded free list.
// Releasing clears element slots so the pool never pins dead entities.
type containerPool[T Entity] struct {
	free    [][]T
	cellCap int
}

// poolLimit bounds how many idle containers the pool retains; releases
// beyond the bound are dropped for the collector.
const poolLimit = 256

func (p *containerPool[T]) get() []T {
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return c
	}
	return make([]T, 0, p.cellCap)
}

func (p *containerPool[T]) put(c []T) {
	if len(p.free) >= poolLimit {
		return
	}
	clear(c)
	p.free = append(p.free, c[:0])
}

// swapRemove deletes the first element identical to e, filling the gap
// with the last element and zeroing the vacated slot. Order within a
// container is not meaningful, so the swap is free.
func swapRemove[T Entity](c []T, e T) ([]T, bool) {
	for i, v := range c {
		if v == e {
			last := len(c) - 1
			c[i] = c[last]
			var zero T
			c[last] = zero
			return c[:last], true
		}
	}
	return c, false
}
