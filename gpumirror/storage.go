package gpumirror

import "github.com/reactivescene/recs/query"

// CommonStorageBufferImpl mirrors a growable storage-buffer-backed array of
// V, with amortized growth via a StorageBufferRangeAllocatePool. Each key's
// value is encoded and written whole into its allocated range; there is no
// partial write of a single field inside that range.
type CommonStorageBufferImpl[K comparable, V any] struct {
	enc   Std140Encoder[V]
	pool  *StorageBufferRangeAllocatePool
	buf   GPUBuffer
	slots map[K]int // key -> allocation id
	retry map[K]V   // keys whose allocation failed, retried next update
}

func NewCommonStorageBuffer[K comparable, V any](enc Std140Encoder[V], buf GPUBuffer, initialCap int) *CommonStorageBufferImpl[K, V] {
	s := &CommonStorageBufferImpl[K, V]{enc: enc, buf: buf, slots: make(map[K]int), retry: make(map[K]V)}
	s.pool = NewStorageBufferRangeAllocatePool(buf, initialCap, s.relocate)
	return s
}

// LimitCapacity caps the backing pool at maxBytes. With a cap in place, an
// update that cannot allocate is skipped for the frame and retried on the
// next UpdateStorage call; see FailedKeys.
func (s *CommonStorageBufferImpl[K, V]) LimitCapacity(maxBytes int) {
	s.pool.SetMaxCapacity(maxBytes)
}

func (s *CommonStorageBufferImpl[K, V]) relocate(id, newOffset int) {
	// bookkeeping only: the allocation's byte range moved; a consumer
	// tracking (key -> id) does not need to change anything since it
	// addresses by id, not by offset.
}

// UpdateStorage applies one frame's change set: frees the allocation for
// every removed key and writes the encoded value (allocating on first
// write) for every inserted-or-updated key. Keys whose allocation failed on
// a previous frame are retried first, unless this frame's changes supersede
// them.
func (s *CommonStorageBufferImpl[K, V]) UpdateStorage(changes map[K]query.ValueChange[V]) {
	for key, v := range s.retry {
		if _, superseded := changes[key]; superseded {
			continue
		}
		s.writeValue(key, v)
	}
	for key, change := range changes {
		if change.IsRemoved() {
			if id, ok := s.slots[key]; ok {
				s.pool.Free(id)
				delete(s.slots, key)
			}
			delete(s.retry, key)
			continue
		}
		v, _ := change.NewValue()
		s.writeValue(key, v)
	}
}

func (s *CommonStorageBufferImpl[K, V]) writeValue(key K, v V) {
	id, ok := s.slots[key]
	if !ok {
		id = s.pool.Allocate(s.enc.Size())
		if id < 0 {
			s.retry[key] = v
			return
		}
		s.slots[key] = id
	}
	delete(s.retry, key)
	offset, _, _ := s.pool.Range(id)
	s.buf.WriteAt(offset, s.enc.Encode(v))
}

// FailedKeys reports the keys whose last update could not be allocated
// under the capacity cap, for callers that want to log or intervene instead
// of waiting out the per-frame retry.
func (s *CommonStorageBufferImpl[K, V]) FailedKeys() []K {
	out := make([]K, 0, len(s.retry))
	for k := range s.retry {
		out = append(out, k)
	}
	return out
}

// Len reports how many live entries the storage buffer currently holds.
func (s *CommonStorageBufferImpl[K, V]) Len() int { return len(s.slots) }

// BindlessTextureTable keeps texture-view handles in a dense array addressed
// by an opaque texture key, with a fallback per-draw binding path used when
// the backend lacks bindless support.
type BindlessTextureTable[K comparable] struct {
	pool     *StorageBufferRangeAllocatePool
	slots    map[K]int
	bindless bool
	fallback map[K]struct{} // keys using the per-draw fallback path
}

func NewBindlessTextureTable[K comparable](buf GPUBuffer, initialCap int, supportsBindless bool) *BindlessTextureTable[K] {
	t := &BindlessTextureTable[K]{slots: make(map[K]int), bindless: supportsBindless, fallback: make(map[K]struct{})}
	if supportsBindless {
		t.pool = NewStorageBufferRangeAllocatePool(buf, initialCap, func(int, int) {})
	}
	return t
}

// Insert registers key either into the bindless table or, on backends
// without bindless support, the per-draw fallback set.
func (t *BindlessTextureTable[K]) Insert(key K, viewHandleSize int) {
	if !t.bindless {
		t.fallback[key] = struct{}{}
		return
	}
	id := t.pool.Allocate(viewHandleSize)
	if id < 0 {
		// table full: this one texture degrades to per-draw binding while
		// the rest of the table stays bindless.
		t.fallback[key] = struct{}{}
		return
	}
	t.slots[key] = id
}

// Remove frees key's slot (bindless) or drops it from the fallback set.
func (t *BindlessTextureTable[K]) Remove(key K) {
	if !t.bindless {
		delete(t.fallback, key)
		return
	}
	delete(t.fallback, key) // the key may have degraded to per-draw binding
	if id, ok := t.slots[key]; ok {
		t.pool.Free(id)
		delete(t.slots, key)
	}
}

// UsesFallback reports whether the table is operating in the per-draw
// fallback mode.
func (t *BindlessTextureTable[K]) UsesFallback() bool { return !t.bindless }
