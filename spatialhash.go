// Package spatialhash indexes moving point entities on the XZ plane for
// proximity queries. A coarse uniform grid maps positions to cells, and
// each cell splits into subcells tracked by an occupancy bitmask, so
// queries visit only the populated corners of the cells they overlap.
// Callers reindex a moved entity by removing it and inserting it again;
// the structure recycles its containers and allocates nothing on that
// path in steady state. A Grid is not safe for concurrent use.
package spatialhash

import (
	"fmt"
	"math"
	"math/bits"
)

// Entity is the contract indexed values satisfy: comparable identity plus
// a current position on the indexed plane. Pointer types are the usual
// fit; the grid stores values as given and matches them with ==.
type Entity interface {
	comparable
	Position() (x, z float64)
}

// Grid is a two-level uniform grid over the XZ plane. Coordinates may be
// negative; cells exist only while occupied.
type Grid[T Entity] struct {
	cellSize    float64
	invCellSize float64
	subdiv      int
	subScale    float64 // subdiv / cellSize

	table   cellTable
	buckets []bucket[T]
	freed   []int32 // recycled bucket arena slots

	pool    containerPool[T]
	scratch []T
	count   int
}

const (
	defaultCellCap  = 8
	defaultQueryCap = 64
)

// New builds an empty grid. cellSize is the coarse cell edge length in
// world units and subdiv the per-axis subcell split, 2 to 4. cellCap and
// queryCap are capacity hints for subcell containers and for the shared
// query buffer; zero picks a default. Invalid arguments are reported
// immediately rather than surfacing as misbehavior later.
func New[T Entity](cellSize float64, subdiv, cellCap, queryCap int) (*Grid[T], error) {
	if math.IsNaN(cellSize) || math.IsInf(cellSize, 0) || cellSize <= 0 {
		return nil, fmt.Errorf("spatialhash: cell size must be positive and finite, got %v", cellSize)
	}
	if subdiv < 2 || subdiv > 4 {
		return nil, fmt.Errorf("spatialhash: subdivision must be 2, 3 or 4, got %d", subdiv)
	}
	if cellCap < 0 {
		return nil, fmt.Errorf("spatialhash: cell capacity must not be negative, got %d", cellCap)
	}
	if queryCap < 0 {
		return nil, fmt.Errorf("spatialhash: query capacity must not be negative, got %d", queryCap)
	}
	if cellCap == 0 {
		cellCap = defaultCellCap
	}
	if queryCap == 0 {
		queryCap = defaultQueryCap
	}
	return &Grid[T]{
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		subdiv:      subdiv,
		subScale:    float64(subdiv) / cellSize,
		table:       newCellTable(0),
		pool:        containerPool[T]{cellCap: cellCap},
		scratch:     make([]T, 0, queryCap),
	}, nil
}

// Insert indexes e at its current position and returns the coarse cell it
// landed in. Callers that move entities keep the key so the later removal
// can target the right cell.
func (g *Grid[T]) Insert(e T) CellKey {
	x, z := e.Position()
	key := g.keyAt(x, z)
	slot, ok := g.table.get(key)
	if !ok {
		slot = g.newBucket(key)
	}
	b := &g.buckets[slot]
	sub := g.subcellAt(key, x, z)
	if b.cells[sub] == nil {
		b.cells[sub] = g.pool.get()
	}
	b.cells[sub] = append(b.cells[sub], e)
	b.occupied |= 1 << sub
	g.count++
	return key
}

// Remove unindexes e from the cell derived from its current position. If
// e moved since it was inserted the lookup lands elsewhere and Remove is
// a no-op; use RemoveAt with the key Insert returned in that case.
func (g *Grid[T]) Remove(e T) {
	x, z := e.Position()
	key := g.keyAt(x, z)
	slot, ok := g.table.get(key)
	if !ok {
		return
	}
	g.removeFromContainer(key, slot, g.subcellAt(key, x, z), e)
}

// RemoveAt unindexes e from the given cell regardless of where e is now,
// scanning the cell's occupied subcells for an identity match. It reports
// whether e was found.
func (g *Grid[T]) RemoveAt(key CellKey, e T) bool {
	slot, ok := g.table.get(key)
	if !ok {
		return false
	}
	m := g.buckets[slot].occupied
	for m != 0 {
		sub := bits.TrailingZeros16(m)
		m &= m - 1
		if g.removeFromContainer(key, slot, sub, e) {
			return true
		}
	}
	return false
}

// Clear drops every indexed entity while keeping the arena, the pool and
// the query buffer warm for reuse.
func (g *Grid[T]) Clear() {
	g.freed = g.freed[:0]
	for i := range g.buckets {
		b := &g.buckets[i]
		m := b.occupied
		for m != 0 {
			sub := bits.TrailingZeros16(m)
			m &= m - 1
			g.pool.put(b.cells[sub])
			b.cells[sub] = nil
		}
		b.occupied = 0
		g.freed = append(g.freed, int32(i))
	}
	g.table.reset()
	g.count = 0
}

// Len returns the number of entities currently indexed.
func (g *Grid[T]) Len() int { return g.count }

// Cells returns the number of occupied coarse cells.
func (g *Grid[T]) Cells() int { return g.table.used }

// Stats reports occupancy and allocation figures for monitoring.
type Stats struct {
	Entities   int // entities currently indexed
	Cells      int // occupied coarse cells
	Buckets    int // bucket arena size, occupied plus recycled
	Pooled     int // idle containers held by the pool
	TableSlots int // cell table capacity
}

func (g *Grid[T]) Stats() Stats {
	return Stats{
		Entities:   g.count,
		Cells:      g.table.used,
		Buckets:    len(g.buckets),
		Pooled:     len(g.pool.free),
		TableSlots: len(g.table.slots),
	}
}

func (g *Grid[T]) newBucket(key CellKey) int32 {
	var slot int32
	if n := len(g.freed); n > 0 {
		slot = g.freed[n-1]
		g.freed = g.freed[:n-1]
	} else {
		g.buckets = append(g.buckets, bucket[T]{cells: make([][]T, g.subdiv*g.subdiv)})
		slot = int32(len(g.buckets) - 1)
	}
	g.table.put(key, slot)
	return slot
}

// removeFromContainer deletes e from one subcell container and unwinds
// the bookkeeping: an emptied container goes back to the pool and drops
// its occupancy bit, and a bucket whose last bit clears is evicted so its
// arena slot can be reused.
func (g *Grid[T]) removeFromContainer(key CellKey, slot int32, sub int, e T) bool {
	b := &g.buckets[slot]
	c := b.cells[sub]
	if c == nil {
		return false
	}
	c, ok := swapRemove(c, e)
	if !ok {
		return false
	}
	if len(c) == 0 {
		g.pool.put(c)
		b.cells[sub] = nil
		b.occupied &^= 1 << sub
		if b.occupied == 0 {
			g.table.delete(key)
			g.freed = append(g.freed, slot)
		}
	} else {
		b.cells[sub] = c
	}
	g.count--
	return true
}
