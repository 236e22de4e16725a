package query

// Map applies fn element-wise over a view, producing a new lazily-evaluated
// Query. Unlike Materialize, the result is recomputed from the source on
// every Access/IterKeyValue call rather than snapshotted.
func Map[K comparable, V, R any](src Query[K, V], fn func(V) R) Query[K, R] {
	return mappedQuery[K, V, R]{src: src, fn: fn}
}

type mappedQuery[K comparable, V, R any] struct {
	src Query[K, V]
	fn  func(V) R
}

func (m mappedQuery[K, V, R]) Access(key K) (R, bool) {
	v, ok := m.src.Access(key)
	if !ok {
		var zero R
		return zero, false
	}
	return m.fn(v), true
}
func (m mappedQuery[K, V, R]) Contains(key K) bool { return m.src.Contains(key) }
func (m mappedQuery[K, V, R]) IsEmpty() bool       { return m.src.IsEmpty() }
func (m mappedQuery[K, V, R]) IterKeyValue(yield func(K, R) bool) {
	m.src.IterKeyValue(func(k K, v V) bool { return yield(k, m.fn(v)) })
}
func (m mappedQuery[K, V, R]) Materialize() map[K]R {
	out := make(map[K]R)
	m.src.IterKeyValue(func(k K, v V) bool { out[k] = m.fn(v); return true })
	return out
}

// MapChanges applies fn to every ValueChange payload of a change query,
// the query-algebra analogue of MapChange for a whole delta stream.
func MapChanges[K comparable, V, R any](src Query[K, ValueChange[V]], fn func(V) R) Query[K, ValueChange[R]] {
	return Map(src, func(c ValueChange[V]) ValueChange[R] { return MapChange(c, fn) })
}

// FilterMap drops keys where fn returns ok=false, mapping the rest. It
// filters values only; for a change query use FilterMapChanges, which
// translates Delta/Remove transitions the way the original delta.rs
// "checker" combinator does: a value that stops passing the filter turns a
// Delta into a Remove instead of disappearing silently, and a Remove whose
// prior never passed is dropped.
func FilterMap[K comparable, V, R any](src Query[K, V], fn func(V) (R, bool)) Query[K, R] {
	return filterMapQuery[K, V, R]{src: src, fn: fn}
}

type filterMapQuery[K comparable, V, R any] struct {
	src Query[K, V]
	fn  func(V) (R, bool)
}

func (f filterMapQuery[K, V, R]) Access(key K) (R, bool) {
	v, ok := f.src.Access(key)
	if !ok {
		var zero R
		return zero, false
	}
	return f.fn(v)
}
func (f filterMapQuery[K, V, R]) Contains(key K) bool {
	_, ok := f.Access(key)
	return ok
}
func (f filterMapQuery[K, V, R]) IsEmpty() bool {
	empty := true
	f.IterKeyValue(func(K, R) bool { empty = false; return false })
	return empty
}
func (f filterMapQuery[K, V, R]) IterKeyValue(yield func(K, R) bool) {
	f.src.IterKeyValue(func(k K, v V) bool {
		if r, ok := f.fn(v); ok {
			return yield(k, r)
		}
		return true
	})
}
func (f filterMapQuery[K, V, R]) Materialize() map[K]R {
	out := make(map[K]R)
	f.IterKeyValue(func(k K, v R) bool { out[k] = v; return true })
	return out
}

// FilterMapChanges is the delta-aware form: a filtered-out key still emits a
// Remove rather than vanishing, and a filtered-in key arrives as an insert.
func FilterMapChanges[K comparable, V, R any](src Query[K, ValueChange[V]], fn func(V) (R, bool)) Query[K, ValueChange[R]] {
	mapper := func(c ValueChange[V]) (ValueChange[R], bool) {
		switch c.Kind {
		case Delta:
			newR, newOK := fn(c.New)
			if c.HasOld {
				oldR, oldOK := fn(c.Old)
				switch {
				case newOK && oldOK:
					return ValueChange[R]{Kind: Delta, New: newR, Old: oldR, HasOld: true}, true
				case newOK && !oldOK:
					return ValueChange[R]{Kind: Delta, New: newR}, true
				case !newOK && oldOK:
					return ValueChange[R]{Kind: Remove, Old: oldR, HasOld: true}, true
				default:
					return ValueChange[R]{}, false
				}
			}
			if newOK {
				return ValueChange[R]{Kind: Delta, New: newR}, true
			}
			return ValueChange[R]{}, false
		default: // Remove
			if oldR, ok := fn(c.Old); ok {
				return ValueChange[R]{Kind: Remove, Old: oldR, HasOld: true}, true
			}
			return ValueChange[R]{}, false
		}
	}
	return FilterMap[K, ValueChange[V], ValueChange[R]](src, mapper)
}

// Zip pairs two views over the same key space, only yielding keys present
// in both. Its change stream must merge both sides' deltas pointwise: a key
// present in either side's change set is re-emitted with the zipped value.
func Zip[K comparable, A, B, R any](a Query[K, A], b Query[K, B], combine func(A, B) R) Query[K, R] {
	return zippedQuery[K, A, B, R]{a: a, b: b, combine: combine}
}

type zippedQuery[K comparable, A, B, R any] struct {
	a       Query[K, A]
	b       Query[K, B]
	combine func(A, B) R
}

func (z zippedQuery[K, A, B, R]) Access(key K) (R, bool) {
	av, ok := z.a.Access(key)
	if !ok {
		var zero R
		return zero, false
	}
	bv, ok := z.b.Access(key)
	if !ok {
		var zero R
		return zero, false
	}
	return z.combine(av, bv), true
}
func (z zippedQuery[K, A, B, R]) Contains(key K) bool {
	return z.a.Contains(key) && z.b.Contains(key)
}
func (z zippedQuery[K, A, B, R]) IsEmpty() bool {
	empty := true
	z.IterKeyValue(func(K, R) bool { empty = false; return false })
	return empty
}
func (z zippedQuery[K, A, B, R]) IterKeyValue(yield func(K, R) bool) {
	z.a.IterKeyValue(func(k K, av A) bool {
		if bv, ok := z.b.Access(k); ok {
			return yield(k, z.combine(av, bv))
		}
		return true
	})
}
func (z zippedQuery[K, A, B, R]) Materialize() map[K]R {
	out := make(map[K]R)
	z.IterKeyValue(func(k K, v R) bool { out[k] = v; return true })
	return out
}

// ZipChanges merges two change streams pointwise over the zipped space: any
// key touched by either side's delta is re-derived, with the new value
// combined from the current (post-write) views and the prior value
// reconstructed from the pre-change state of both sides, so the emitted
// change's Old is the zipped value a materializer actually held. A key with
// neither a prior nor a current zipped value emits nothing.
func ZipChanges[K comparable, A, B, R any](
	aChanges Query[K, ValueChange[A]], aView Query[K, A],
	bChanges Query[K, ValueChange[B]], bView Query[K, B],
	combine func(A, B) R,
) Query[K, ValueChange[R]] {
	prevA := sideBefore(aChanges, aView)
	prevB := sideBefore(bChanges, bView)

	out := map[K]ValueChange[R]{}
	touch := func(k K) {
		if _, seen := out[k]; seen {
			return
		}
		var prevV, newV R
		pa, paOK := prevA(k)
		pb, pbOK := prevB(k)
		prevOK := paOK && pbOK
		if prevOK {
			prevV = combine(pa, pb)
		}
		na, naOK := aView.Access(k)
		nb, nbOK := bView.Access(k)
		newOK := naOK && nbOK
		if newOK {
			newV = combine(na, nb)
		}
		emitTransition(out, k, prevV, prevOK, newV, newOK)
	}
	aChanges.IterKeyValue(func(k K, _ ValueChange[A]) bool { touch(k); return true })
	bChanges.IterKeyValue(func(k K, _ ValueChange[B]) bool { touch(k); return true })
	return FromMap(out)
}

// sideBefore reconstructs one side's pre-change value lookup: a key this
// frame's changes touched reads its prior from the change itself, any other
// key reads the (unchanged) current view.
func sideBefore[K comparable, V any](changes Query[K, ValueChange[V]], view Query[K, V]) func(K) (V, bool) {
	return func(k K) (V, bool) {
		if c, ok := changes.Access(k); ok {
			return c.OldValue()
		}
		return view.Access(k)
	}
}

// emitTransition records one key's before/after pair as the ValueChange the
// merge law prescribes: present→present is an update carrying the prior,
// absent→present an insert with no prior, present→absent a Remove carrying
// the prior, and absent→absent nothing at all.
func emitTransition[K comparable, R any](out map[K]ValueChange[R], k K, prevV R, prevOK bool, newV R, newOK bool) {
	switch {
	case newOK && prevOK:
		out[k] = ValueChange[R]{Kind: Delta, New: newV, Old: prevV, HasOld: true}
	case newOK:
		out[k] = ValueChange[R]{Kind: Delta, New: newV}
	case prevOK:
		out[k] = ValueChange[R]{Kind: Remove, Old: prevV, HasOld: true}
	}
}

// Union combines two same-keyed-type queries where a value present on
// either side wins; when both sides have a value, a (left, right)
// resolver picks the winner, mirroring a set union with tie-break.
func Union[K comparable, V any](a, b Query[K, V], resolve func(a, b V) V) Query[K, V] {
	merged := make(map[K]V)
	b.IterKeyValue(func(k K, v V) bool { merged[k] = v; return true })
	a.IterKeyValue(func(k K, v V) bool {
		if existing, ok := merged[k]; ok {
			merged[k] = resolve(v, existing)
		} else {
			merged[k] = v
		}
		return true
	})
	return FromMap(merged)
}

// UnionChanges merges two change streams pointwise over the union space: a
// touched key re-derives its before/after union values (either side alone,
// or resolve when both are present) and emits the transition between them,
// so a key that merely lost its tie-break winner still updates and a key
// that lost its last side Removes with the correct prior.
func UnionChanges[K comparable, V any](
	aChanges Query[K, ValueChange[V]], aView Query[K, V],
	bChanges Query[K, ValueChange[V]], bView Query[K, V],
	resolve func(a, b V) V,
) Query[K, ValueChange[V]] {
	prevA := sideBefore(aChanges, aView)
	prevB := sideBefore(bChanges, bView)

	unite := func(av V, aOK bool, bv V, bOK bool) (V, bool) {
		switch {
		case aOK && bOK:
			return resolve(av, bv), true
		case aOK:
			return av, true
		case bOK:
			return bv, true
		}
		var zero V
		return zero, false
	}

	out := map[K]ValueChange[V]{}
	touch := func(k K) {
		if _, seen := out[k]; seen {
			return
		}
		pa, paOK := prevA(k)
		pb, pbOK := prevB(k)
		prevV, prevOK := unite(pa, paOK, pb, pbOK)
		na, naOK := aView.Access(k)
		nb, nbOK := bView.Access(k)
		newV, newOK := unite(na, naOK, nb, nbOK)
		emitTransition(out, k, prevV, prevOK, newV, newOK)
	}
	aChanges.IterKeyValue(func(k K, _ ValueChange[V]) bool { touch(k); return true })
	bChanges.IterKeyValue(func(k K, _ ValueChange[V]) bool { touch(k); return true })
	return FromMap(out)
}

// Intersect keeps only keys present on both sides, combining their values.
func Intersect[K comparable, A, B, R any](a Query[K, A], b Query[K, B], combine func(A, B) R) Query[K, R] {
	return Zip(a, b, combine)
}

// IntersectChanges is the delta side of Intersect; the intersected key
// space is exactly the zipped one.
func IntersectChanges[K comparable, A, B, R any](
	aChanges Query[K, ValueChange[A]], aView Query[K, A],
	bChanges Query[K, ValueChange[B]], bView Query[K, B],
	combine func(A, B) R,
) Query[K, ValueChange[R]] {
	return ZipChanges(aChanges, aView, bChanges, bView, combine)
}

// KeyDualMap re-keys and re-values a DualQuery element-wise. kfn must be
// injective over the live key space and kinv its inverse, so keyed access
// and the change stream never collide under the new keying.
func KeyDualMap[K1, K2 comparable, V, R any](
	src DualQuery[K1, V], kfn func(K1) K2, kinv func(K2) K1, vfn func(V) R,
) DualQuery[K2, R] {
	return keyDualMapped[K1, K2, V, R]{src: src, kfn: kfn, kinv: kinv, vfn: vfn}
}

type keyDualMapped[K1, K2 comparable, V, R any] struct {
	src  DualQuery[K1, V]
	kfn  func(K1) K2
	kinv func(K2) K1
	vfn  func(V) R
}

func (m keyDualMapped[K1, K2, V, R]) View() Query[K2, R] {
	return keyMappedQuery[K1, K2, V, R]{src: m.src.View(), kfn: m.kfn, kinv: m.kinv, vfn: m.vfn}
}

func (m keyDualMapped[K1, K2, V, R]) Changes() Query[K2, ValueChange[R]] {
	vfn := m.vfn
	return keyMappedQuery[K1, K2, ValueChange[V], ValueChange[R]]{
		src: m.src.Changes(), kfn: m.kfn, kinv: m.kinv,
		vfn: func(c ValueChange[V]) ValueChange[R] { return MapChange(c, vfn) },
	}
}

type keyMappedQuery[K1, K2 comparable, V, R any] struct {
	src  Query[K1, V]
	kfn  func(K1) K2
	kinv func(K2) K1
	vfn  func(V) R
}

func (q keyMappedQuery[K1, K2, V, R]) Access(key K2) (R, bool) {
	v, ok := q.src.Access(q.kinv(key))
	if !ok {
		var zero R
		return zero, false
	}
	return q.vfn(v), true
}
func (q keyMappedQuery[K1, K2, V, R]) Contains(key K2) bool { return q.src.Contains(q.kinv(key)) }
func (q keyMappedQuery[K1, K2, V, R]) IsEmpty() bool        { return q.src.IsEmpty() }
func (q keyMappedQuery[K1, K2, V, R]) IterKeyValue(yield func(K2, R) bool) {
	q.src.IterKeyValue(func(k K1, v V) bool {
		return yield(q.kfn(k), q.vfn(v))
	})
}
func (q keyMappedQuery[K1, K2, V, R]) Materialize() map[K2]R {
	out := make(map[K2]R)
	q.IterKeyValue(func(k K2, v R) bool { out[k] = v; return true })
	return out
}
