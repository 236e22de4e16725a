package query

// DeriveTree implements incremental tree derivation: given a parent-pointer
// relation and a per-node payload, it recomputes a combined value for every
// node reachable from a changed node, but only walks each affected subtree
// once by first finding the highest unchanged-to-changed boundary ("update
// roots") instead of recomputing the whole tree.
//
// parentOf maps a child to its parent key; the absence of an entry means a
// root node. combine derives a node's value from its own payload and its
// parent's already-derived value (nil parent value for roots).
//
// changedNodes is the union of nodes whose payload or connectivity changed
// this frame; children indexes parentOf's inverse so the walk can descend
// without re-scanning every node.
func DeriveTree[K comparable, P any](
	changedNodes []K,
	parentOf map[K]K,
	payload map[K]P,
	cache map[K]P,
	children map[K][]K,
	combine func(self P, parent *P) P,
) map[K]ValueChange[P] {
	changedSet := make(map[K]bool, len(changedNodes))
	for _, k := range changedNodes {
		changedSet[k] = true
	}

	// Step 2: walk each changed node up to the nearest ancestor that is
	// itself already changed (or to a root), recording the topmost node of
	// each disjoint affected run as an update root.
	roots := make(map[K]bool)
	for _, k := range changedNodes {
		cur, covered := k, false
		for {
			parent, hasParent := parentOf[cur]
			if !hasParent {
				break
			}
			if changedSet[parent] {
				// the ancestor will itself be walked from its own root;
				// this node is covered by that walk.
				covered = true
				break
			}
			cur = parent
		}
		if !covered {
			roots[k] = true
		}
	}
	// Nodes directly marked changed with no changed ancestor and no parent
	// relation entry recorded above still need a root entry.
	for k := range changedSet {
		if _, hasParent := parentOf[k]; !hasParent {
			roots[k] = true
		}
	}

	out := map[K]ValueChange[P]{}

	var dfs func(node K, parentVal *P)
	dfs = func(node K, parentVal *P) {
		self, ok := payload[node]
		if !ok {
			return
		}
		derived := combine(self, parentVal)
		if old, had := cache[node]; !had || !equalAsAny(old, derived) {
			cache[node] = derived
			var prevPtr *P
			if had {
				prevPtr = &old
			}
			if prevPtr != nil {
				out[node] = ValueChange[P]{Kind: Delta, New: derived, Old: *prevPtr, HasOld: true}
			} else {
				out[node] = ValueChange[P]{Kind: Delta, New: derived}
			}
		}
		for _, child := range children[node] {
			dfs(child, &derived)
		}
	}

	for root := range roots {
		var parentVal *P
		if p, ok := parentOf[root]; ok {
			if pv, ok := cache[p]; ok {
				parentVal = &pv
			}
		}
		dfs(root, parentVal)
	}

	return out
}

// equalAsAny compares two values of a generic payload type for the
// "actually differs" check that gates emitting a ValueChange: a ValueChange
// is only emitted when the computed value actually differs. Callers whose
// payload type is not comparable should instead use DeriveTreeWithEq.
func equalAsAny[P any](a, b P) bool {
	return any(a) == any(b)
}

// DeriveTreeWithEq is DeriveTree for payload types that are not safely
// comparable via `==` (e.g. containing slices); eq replaces the built-in
// equality check.
func DeriveTreeWithEq[K comparable, P any](
	changedNodes []K,
	parentOf map[K]K,
	payload map[K]P,
	cache map[K]P,
	children map[K][]K,
	combine func(self P, parent *P) P,
	eq func(a, b P) bool,
) map[K]ValueChange[P] {
	changedSet := make(map[K]bool, len(changedNodes))
	for _, k := range changedNodes {
		changedSet[k] = true
	}
	roots := make(map[K]bool)
	for _, k := range changedNodes {
		cur, covered := k, false
		for {
			parent, hasParent := parentOf[cur]
			if !hasParent {
				break
			}
			if changedSet[parent] {
				covered = true
				break
			}
			cur = parent
		}
		if !covered {
			roots[k] = true
		}
	}
	for k := range changedSet {
		if _, hasParent := parentOf[k]; !hasParent {
			roots[k] = true
		}
	}

	out := map[K]ValueChange[P]{}
	var dfs func(node K, parentVal *P)
	dfs = func(node K, parentVal *P) {
		self, ok := payload[node]
		if !ok {
			return
		}
		derived := combine(self, parentVal)
		old, had := cache[node]
		if !had || !eq(old, derived) {
			cache[node] = derived
			if had {
				out[node] = ValueChange[P]{Kind: Delta, New: derived, Old: old, HasOld: true}
			} else {
				out[node] = ValueChange[P]{Kind: Delta, New: derived}
			}
		}
		for _, child := range children[node] {
			dfs(child, &derived)
		}
	}
	for root := range roots {
		var parentVal *P
		if p, ok := parentOf[root]; ok {
			if pv, ok := cache[p]; ok {
				parentVal = &pv
			}
		}
		dfs(root, parentVal)
	}
	return out
}
