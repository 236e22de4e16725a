package query

// Materializer accumulates an upstream change stream into a cached view:
// the cache is the source of truth for View() and is updated only by the
// deltas fed through Apply, never by re-deriving from scratch.
type Materializer[K comparable, V any] struct {
	state map[K]V
	order []K // maintained only when Linear is true
	Linear bool
}

func NewMaterializer[K comparable, V any](linear bool) *Materializer[K, V] {
	return &Materializer[K, V]{state: make(map[K]V), Linear: linear}
}

// Apply folds one frame's worth of changes into the cache.
func (m *Materializer[K, V]) Apply(changes map[K]ValueChange[V]) {
	for k, c := range changes {
		_, existed := m.state[k]
		Integrate(m.state, k, c)
		if m.Linear {
			_, nowExists := m.state[k]
			switch {
			case !existed && nowExists:
				m.order = append(m.order, k)
			case existed && !nowExists:
				for i, ok := range m.order {
					if ok == k {
						m.order = append(m.order[:i], m.order[i+1:]...)
						break
					}
				}
			}
		}
	}
}

// View exposes the current materialized state as a Query. materialize_linear
// additionally guarantees IterKeyValue visits keys in insertion order,
// matching a dense Vec-backed cache; materialize_unordered makes no such
// guarantee (backed by a Go map).
func (m *Materializer[K, V]) View() Query[K, V] {
	if !m.Linear {
		return FromMap(m.state)
	}
	return linearView[K, V]{m: m}
}

type linearView[K comparable, V any] struct{ m *Materializer[K, V] }

func (l linearView[K, V]) Access(key K) (V, bool) { v, ok := l.m.state[key]; return v, ok }
func (l linearView[K, V]) Contains(key K) bool     { _, ok := l.m.state[key]; return ok }
func (l linearView[K, V]) IsEmpty() bool           { return len(l.m.state) == 0 }
func (l linearView[K, V]) IterKeyValue(yield func(K, V) bool) {
	for _, k := range l.m.order {
		if v, ok := l.m.state[k]; ok {
			if !yield(k, v) {
				return
			}
		}
	}
}
func (l linearView[K, V]) Materialize() map[K]V {
	out := make(map[K]V, len(l.m.state))
	for k, v := range l.m.state {
		out[k] = v
	}
	return out
}
