package gpumirror

import (
	"sort"

	"github.com/reactivescene/recs/query"
)

// Shader140Array mirrors a small, fixed-size uniform array buffer: writes
// land at base + index*stride, one GPU write per changed index, never a
// full-array re-upload.
type Shader140Array[V any] struct {
	enc    Std140Encoder[V]
	base   int
	stride int
	n      int
	buf    GPUBuffer
}

func NewShader140Array[V any](enc Std140Encoder[V], base, stride, n int, buf GPUBuffer) *Shader140Array[V] {
	return &Shader140Array[V]{enc: enc, base: base, stride: stride, n: n, buf: buf}
}

// UpdateIndexed writes every (index, value) pair from changes. A Remove is
// treated as writing the encoder's zero value, since a fixed-size array has
// no notion of a "hole" — the slot is simply reset.
func (a *Shader140Array[V]) UpdateIndexed(changes map[int]query.ValueChange[V]) {
	for idx, change := range changes {
		if idx < 0 || idx >= a.n {
			continue
		}
		var v V
		if nv, ok := change.NewValue(); ok {
			v = nv
		}
		a.buf.WriteAt(a.base+idx*a.stride, a.enc.Encode(v))
	}
}

// StorageBufferRangeAllocatePool allocates byte ranges inside a growable
// storage buffer, relocating existing allocations (and notifying owners via
// onRelocate) when growth requires moving data.
type StorageBufferRangeAllocatePool struct {
	buf         GPUBuffer
	cursor      int
	cap         int
	maxCap      int // 0 = unbounded
	allocations map[int]rangeAlloc // allocation id -> current range
	nextID      int
	onRelocate  func(id int, newOffset int)
}

type rangeAlloc struct {
	offset int
	size   int
}

func NewStorageBufferRangeAllocatePool(buf GPUBuffer, initialCap int, onRelocate func(id, newOffset int)) *StorageBufferRangeAllocatePool {
	buf.Grow(initialCap)
	return &StorageBufferRangeAllocatePool{
		buf: buf, cap: initialCap,
		allocations: make(map[int]rangeAlloc),
		onRelocate:  onRelocate,
	}
}

// SetMaxCapacity caps the pool's backing growth at maxBytes; 0 removes the
// cap. Allocations that cannot fit under the cap fail with a negative id
// rather than growing past it.
func (p *StorageBufferRangeAllocatePool) SetMaxCapacity(maxBytes int) {
	p.maxCap = maxBytes
}

// Allocate reserves size bytes, growing (and relocating every existing
// allocation) if the pool is out of room. It returns a negative id when the
// pool is capped and the allocation cannot fit; the caller decides whether
// to drop, fall back, or retry on a later frame.
func (p *StorageBufferRangeAllocatePool) Allocate(size int) int {
	if p.cursor+size > p.cap {
		if p.maxCap > 0 && p.cursor+size > p.maxCap {
			return -1
		}
		p.grow(size)
	}
	id := p.nextID
	p.nextID++
	p.allocations[id] = rangeAlloc{offset: p.cursor, size: size}
	p.cursor += size
	return id
}

func (p *StorageBufferRangeAllocatePool) grow(need int) {
	newCap := p.cap * 2
	if newCap < p.cursor+need {
		newCap = p.cursor + need
	}
	if p.maxCap > 0 && newCap > p.maxCap {
		newCap = p.maxCap
	}
	p.buf.Grow(newCap)
	p.cap = newCap
	// A real relocating allocator would compact/move data here; this pool
	// never moves existing ranges on grow (append-only), so no allocation's
	// offset changes and onRelocate is only invoked by an explicit Compact
	// (Free itself never compacts).
}

// Free releases id's range. This simple pool does not compact on free (it
// would require moving every allocation after the freed range); callers
// that need that guarantee should call Compact explicitly.
func (p *StorageBufferRangeAllocatePool) Free(id int) {
	delete(p.allocations, id)
}

// Compact walks every live allocation, packs them contiguously from offset
// 0, and invokes onRelocate for every allocation whose offset moved, so
// allocators can update their mapping tables.
func (p *StorageBufferRangeAllocatePool) Compact() {
	ids := make([]int, 0, len(p.allocations))
	for id := range p.allocations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return p.allocations[ids[i]].offset < p.allocations[ids[j]].offset
	})
	cursor := 0
	for _, id := range ids {
		a := p.allocations[id]
		if a.offset != cursor {
			data := make([]byte, a.size)
			// NOTE: a real implementation reads the existing bytes from buf
			// before relocating; GPUBuffer here exposes only WriteAt, so
			// callers relying on Compact must re-supply the data through
			// their own write path after relocation. We still update the
			// bookkeeping and fire the callback so mapping tables stay
			// correct.
			_ = data
			p.allocations[id] = rangeAlloc{offset: cursor, size: a.size}
			p.onRelocate(id, cursor)
		}
		cursor += a.size
	}
	p.cursor = cursor
}

// Range returns the current byte range for a live allocation.
func (p *StorageBufferRangeAllocatePool) Range(id int) (offset, size int, ok bool) {
	a, ok := p.allocations[id]
	return a.offset, a.size, ok
}
