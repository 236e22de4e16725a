package query

import "fmt"

// Validator is a debug wrapper that keeps a shadow map, replays every delta
// against it, and panics the moment a delta is unsound — an insert whose key
// already existed, a removal whose prior value doesn't match what's
// recorded, and so on.
type Validator[K comparable, V comparable] struct {
	label string
	state map[K]V
}

func NewValidator[K comparable, V comparable](label string) *Validator[K, V] {
	return &Validator[K, V]{label: label, state: make(map[K]V)}
}

// Validate replays one frame's changes onto the shadow state, panicking on
// the first soundness violation. It is meant to run in tests and debug
// builds, not on a release hot path.
func (v *Validator[K, V]) Validate(changes map[K]ValueChange[V]) {
	for k, change := range changes {
		switch change.Kind {
		case Delta:
			removed, had := v.state[k]
			if had {
				if !change.HasOld {
					panic(fmt.Sprintf("query: previous value should exist, %s", v.label))
				}
				if removed != change.Old {
					panic(fmt.Sprintf("query: delta previous value mismatch for key %v, %s", k, v.label))
				}
			} else if change.HasOld {
				panic(fmt.Sprintf("query: delta claims a previous value for a key %v with none recorded, %s", k, v.label))
			}
			v.state[k] = change.New
		case Remove:
			removed, had := v.state[k]
			if !had {
				panic(fmt.Sprintf("query: remove of a nonexistent key %v, %s", k, v.label))
			}
			if removed != change.Old {
				panic(fmt.Sprintf("query: remove previous value mismatch for key %v, %s", k, v.label))
			}
			delete(v.state, k)
		}
	}
}

// Snapshot returns a copy of the validator's shadow state, for assertions
// against the real materialized view in tests.
func (v *Validator[K, V]) Snapshot() map[K]V {
	out := make(map[K]V, len(v.state))
	for k, val := range v.state {
		out[k] = val
	}
	return out
}
