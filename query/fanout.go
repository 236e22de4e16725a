package query

// Fanout composes a key remapping (a, e.g. node -> material) with a value
// lookup (b, e.g. material -> albedo) into a single Query[K1,V] (node ->
// albedo). It only needs static access for the current-view side; see
// FanoutChanges for the delta side, which additionally needs a's rev-ref
// index to fan a single target-value change out to every K1 it reaches.
func Fanout[K1, K2 comparable, V any](a Query[K1, K2], b Query[K2, V]) Query[K1, V] {
	return fanoutQuery[K1, K2, V]{a: a, b: b}
}

type fanoutQuery[K1, K2 comparable, V any] struct {
	a Query[K1, K2]
	b Query[K2, V]
}

func (f fanoutQuery[K1, K2, V]) Access(key K1) (V, bool) {
	k2, ok := f.a.Access(key)
	if !ok {
		var zero V
		return zero, false
	}
	return f.b.Access(k2)
}
func (f fanoutQuery[K1, K2, V]) Contains(key K1) bool {
	_, ok := f.Access(key)
	return ok
}
func (f fanoutQuery[K1, K2, V]) IsEmpty() bool { return f.a.IsEmpty() }
func (f fanoutQuery[K1, K2, V]) IterKeyValue(yield func(K1, V) bool) {
	f.a.IterKeyValue(func(k1 K1, k2 K2) bool {
		if v, ok := f.b.Access(k2); ok {
			return yield(k1, v)
		}
		return true
	})
}
func (f fanoutQuery[K1, K2, V]) Materialize() map[K1]V {
	out := make(map[K1]V)
	f.IterKeyValue(func(k K1, v V) bool { out[k] = v; return true })
	return out
}

// FanoutChanges computes the delta side of Fanout: a changed remapping
// entry (aChanges) re-emits under its own key1 using the current value of
// b, and a changed target value (bChanges) fans out to every key1 currently
// mapped to it, found via aRev — the inverse multimap of a, built by
// IntoRevRef over a's own DualQuery[K1,K2] and keyed K2 -> []K1.
func FanoutChanges[K1, K2 comparable, V any](
	aChanges Query[K1, ValueChange[K2]], aView Query[K1, K2], aRev MultiQuery[K2, K1],
	bChanges Query[K2, ValueChange[V]], bView Query[K2, V],
) map[K1]ValueChange[V] {
	out := map[K1]ValueChange[V]{}

	emit := func(k1 K1) {
		k2, ok := aView.Access(k1)
		if !ok {
			return
		}
		if v, ok := bView.Access(k2); ok {
			out[k1] = ValueChange[V]{Kind: Delta, New: v}
		}
	}

	aChanges.IterKeyValue(func(k1 K1, _ ValueChange[K2]) bool { emit(k1); return true })

	bChanges.IterKeyValue(func(k2 K2, _ ValueChange[V]) bool {
		if ks, ok := aRev.AccessMulti(k2); ok {
			for _, k1 := range ks {
				emit(k1)
			}
		}
		return true
	})

	return out
}

// IntoRevRef builds the inverse multimap side of a TriQuery from a plain
// foreign-key-like Query. The multimap is built once from fk's current view
// at call time; later changes of fk are not applied to it.
func IntoRevRef[K, V comparable](fk DualQuery[K, V]) TriQuery[K, V] {
	inv := make(map[V][]K)
	fk.View().IterKeyValue(func(k K, v V) bool {
		inv[v] = append(inv[v], k)
		return true
	})
	return revRefTriQuery[K, V]{DualQuery: fk, inv: inv}
}

type revRefTriQuery[K, V comparable] struct {
	DualQuery[K, V]
	inv map[V][]K
}

func (r revRefTriQuery[K, V]) InverseView() MultiQuery[V, K] { return FromMultiMap(r.inv) }

// ApplyRevRefChange incrementally updates an inverse multimap (target ->
// keys, the shape IntoRevRef builds) in response to a single foreign-key
// ValueChange, removing the
// key from its old target bucket and inserting it into the new one.
func ApplyRevRefChange[K, V comparable](inv map[V][]K, key K, change ValueChange[V]) {
	if old, ok := change.OldValue(); ok {
		bucket := inv[old]
		for i, k := range bucket {
			if k == key {
				inv[old] = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		if len(inv[old]) == 0 {
			delete(inv, old)
		}
	}
	if newV, ok := change.NewValue(); ok {
		inv[newV] = append(inv[newV], key)
	}
}
