package query

import (
	"fmt"
	"sort"

	"github.com/m1gwings/treedrawer/tree"
)

// DumpTree renders a parent/child derivation relation as ASCII art for
// tests and examples, the same way extensions.GraphDebugExtension renders a
// dependency graph, using github.com/m1gwings/treedrawer. label formats a
// node's key for display.
//
// children must index every node reachable from roots; a node with no
// entry is treated as a leaf. Roots are printed in the order given; pass a
// single synthetic root key to combine several real roots under one tree.
func DumpTree[K comparable](roots []K, children map[K][]K, label func(K) string) string {
	if len(roots) == 0 {
		return "(empty)"
	}
	if len(roots) == 1 {
		return buildTreeNode(roots[0], children, label).String()
	}

	out := tree.NewTree(tree.NodeString("roots"))
	for _, r := range roots {
		attachSubtree(out, buildTreeNode(r, children, label))
	}
	return out.String()
}

func buildTreeNode[K comparable](node K, children map[K][]K, label func(K) string) *tree.Tree {
	t := tree.NewTree(tree.NodeString(label(node)))
	kids := make([]K, len(children[node]))
	copy(kids, children[node])
	sort.Slice(kids, func(i, j int) bool { return label(kids[i]) < label(kids[j]) })
	for _, k := range kids {
		attachSubtree(t, buildTreeNode(k, children, label))
	}
	return t
}

// attachSubtree grafts child's whole structure onto parent, since treedrawer
// has no "adopt an existing tree" primitive — only AddChild(value).
func attachSubtree(parent *tree.Tree, child *tree.Tree) {
	added := parent.AddChild(child.Val())
	for _, grandchild := range child.Children() {
		attachSubtree(added, grandchild)
	}
}

// FormatTreeChanges renders one frame's tree-derivation output alongside
// DumpTree's static structure, for debugging which nodes a given write
// actually touched.
func FormatTreeChanges[K comparable, P any](changes map[K]ValueChange[P], label func(K) string) string {
	keys := make([]K, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return label(keys[i]) < label(keys[j]) })

	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("%s: %s\n", label(k), changes[k].String())
	}
	if out == "" {
		return "(no changes)"
	}
	return out
}
