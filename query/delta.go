// Package query implements the reactive query algebra: typed views over a
// key space paired with a change stream (ValueChange), and the combinators
// (map, zip, union, fanout, materialize, ...) that build new views and
// change streams out of existing ones without ever re-scanning unchanged
// state.
package query

import "fmt"

// ValueChange is the atomic unit of a delta stream. A Delta carries the new
// value and, unless this is the first insert, the value it replaces. A
// Remove carries only the value that existed before removal.
//
// This mirrors a closed two-variant sum type; Go has no enum, so the zero
// value of Kind distinguishes the two and only the matching field is valid.
type ValueChange[V any] struct {
	Kind ChangeKind
	New  V // valid when Kind == Delta
	Old  V // valid when Kind == Delta && HasOld, or when Kind == Remove
	HasOld bool
}

// ChangeKind distinguishes the two ValueChange variants.
type ChangeKind uint8

const (
	Delta ChangeKind = iota
	Remove
)

// NewDelta builds an insert (prev == nil) or update (prev != nil) change.
func NewDelta[V any](newV V, prev *V) ValueChange[V] {
	if prev == nil {
		return ValueChange[V]{Kind: Delta, New: newV}
	}
	return ValueChange[V]{Kind: Delta, New: newV, Old: *prev, HasOld: true}
}

// NewRemove builds a removal change carrying the value that existed.
func NewRemove[V any](prev V) ValueChange[V] {
	return ValueChange[V]{Kind: Remove, Old: prev, HasOld: true}
}

// NewValue returns the change's new value, if any (Delta only).
func (c ValueChange[V]) NewValue() (V, bool) {
	if c.Kind == Delta {
		return c.New, true
	}
	var zero V
	return zero, false
}

// OldValue returns the previous value, if any (Delta-with-prior or Remove).
func (c ValueChange[V]) OldValue() (V, bool) {
	if c.Kind == Remove || (c.Kind == Delta && c.HasOld) {
		return c.Old, true
	}
	var zero V
	return zero, false
}

// IsRemoved reports whether this change removes a value.
func (c ValueChange[V]) IsRemoved() bool { return c.Kind == Remove }

// IsNewInsert reports whether this change introduces a key with no prior value.
func (c ValueChange[V]) IsNewInsert() bool { return c.Kind == Delta && !c.HasOld }

func (c ValueChange[V]) String() string {
	switch c.Kind {
	case Remove:
		return fmt.Sprintf("removed(%v)", c.Old)
	default:
		if c.HasOld {
			return fmt.Sprintf("change(from %v to %v)", c.Old, c.New)
		}
		return fmt.Sprintf("new(%v)", c.New)
	}
}

// MapChange transforms the payload type of a ValueChange via mapper,
// preserving which variant it is.
func MapChange[V, R any](c ValueChange[V], mapper func(V) R) ValueChange[R] {
	if c.Kind == Remove {
		return ValueChange[R]{Kind: Remove, Old: mapper(c.Old), HasOld: true}
	}
	out := ValueChange[R]{Kind: Delta, New: mapper(c.New)}
	if c.HasOld {
		out.Old = mapper(c.Old)
		out.HasOld = true
	}
	return out
}

// Merge folds `next` onto c in place, following the delta merge law:
//
//	Delta(_, p1) + Delta(n2, _)  = Delta(n2, p1)
//	Delta(_, p1) + Remove(_)     = Remove(p1), or cancels if p1 absent
//	Remove(p)    + Delta(n, nil) = Delta(n, Some(p))
//	Remove       + Remove        = invalid (panics)
//
// It returns false when the two changes cancel out (a key inserted then
// removed within the same accumulation window leaves no net change).
func (c *ValueChange[V]) Merge(next ValueChange[V]) bool {
	switch {
	case c.Kind == Delta && next.Kind == Delta:
		merged := ValueChange[V]{Kind: Delta, New: next.New}
		if c.HasOld {
			merged.Old = c.Old
			merged.HasOld = true
		}
		*c = merged
		return true
	case c.Kind == Delta && next.Kind == Remove:
		if !c.HasOld {
			return false
		}
		*c = ValueChange[V]{Kind: Remove, Old: c.Old, HasOld: true}
		return true
	case c.Kind == Remove && next.Kind == Delta:
		if next.HasOld {
			panic("query: delta merge invariant violated: remove followed by update-with-prior")
		}
		*c = ValueChange[V]{Kind: Delta, New: next.New, Old: c.Old, HasOld: true}
		return true
	default: // Remove + Remove
		panic("query: same key with double remove is invalid")
	}
}

// MergeInto accumulates (key, change) into mutations using the merge law,
// deleting the entry entirely when a merge cancels it out.
func MergeInto[K comparable, V any](mutations map[K]ValueChange[V], key K, change ValueChange[V]) {
	if old, ok := mutations[key]; ok {
		if !old.Merge(change) {
			delete(mutations, key)
		} else {
			mutations[key] = old
		}
		return
	}
	mutations[key] = change
}

// Integrate applies change to states, the way a materializer folds a delta
// stream into its cached view.
func Integrate[K comparable, V any](states map[K]V, key K, change ValueChange[V]) {
	if change.Kind == Remove {
		delete(states, key)
		return
	}
	states[key] = change.New
}
