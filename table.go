package spatialhash

// cellTable maps cell keys to bucket arena slots. It is a power-of-two
// open-addressed table with linear probing on CellKey.hash. Deletion uses
// backward shifting instead of tombstones: buckets are evicted and
// recreated continuously under per-tick reindexing, and tombstones would
// pile up faster than any rehash schedule could absorb.
type cellTable struct {
	slots []tableSlot
	used  int
}

type tableSlot struct {
	key CellKey
	ref int32
}

// emptyRef marks a vacant table slot. Arena slot numbers start at zero,
// so the sentinel must be negative.
const emptyRef = int32(-1)

const minTableSize = 16

func newCellTable(capacity int) cellTable {
	sz := minTableSize
	for sz < capacity*2 {
		sz <<= 1
	}
	t := cellTable{slots: make([]tableSlot, sz)}
	t.reset()
	return t
}

func (t *cellTable) reset() {
	for i := range t.slots {
		t.slots[i].ref = emptyRef
	}
	t.used = 0
}

func (t *cellTable) get(key CellKey) (int32, bool) {
	mask := uint32(len(t.slots) - 1)
	i := key.hash() & mask
	for {
		s := &t.slots[i]
		if s.ref == emptyRef {
			return 0, false
		}
		if s.key == key {
			return s.ref, true
		}
		i = (i + 1) & mask
	}
}

// put inserts a key the caller has verified is absent.
func (t *cellTable) put(key CellKey, ref int32) {
	if (t.used+1)*4 >= len(t.slots)*3 {
		t.grow()
	}
	t.insert(key, ref)
	t.used++
}

func (t *cellTable) insert(key CellKey, ref int32) {
	mask := uint32(len(t.slots) - 1)
	i := key.hash() & mask
	for t.slots[i].ref != emptyRef {
		i = (i + 1) & mask
	}
	t.slots[i] = tableSlot{key: key, ref: ref}
}

func (t *cellTable) grow() {
	old := t.slots
	t.slots = make([]tableSlot, len(old)*2)
	for i := range t.slots {
		t.slots[i].ref = emptyRef
	}
	for _, s := range old {
		if s.ref != emptyRef {
			t.insert(s.key, s.ref)
		}
	}
}

// delete removes key and backward-shifts the tail of its probe chain into
// the gap. An entry at j may move into the gap at i only if its home slot
// does not lie cyclically in (i, j]; otherwise moving it would break its
// own chain.
func (t *cellTable) delete(key CellKey) bool {
	mask := uint32(len(t.slots) - 1)
	i := key.hash() & mask
	for {
		s := &t.slots[i]
		if s.ref == emptyRef {
			return false
		}
		if s.key == key {
			break
		}
		i = (i + 1) & mask
	}
	j := i
	for {
		j = (j + 1) & mask
		s := t.slots[j]
		if s.ref == emptyRef {
			break
		}
		h := s.key.hash() & mask
		if (j > i && (h <= i || h > j)) || (j < i && h <= i && h > j) {
			t.slots[i] = s
			i = j
		}
	}
	t.slots[i].ref = emptyRef
	t.used--
	return true
}
