package slip

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const rootIndex = 0

// treeNode is a call tree entry. Nodes live in the arena of their callTree
// and refer to each other by index.
type treeNode struct {
	tag      Tag
	parent   int
	depth    int
	children map[Tag]int
	stats    Stats
}

// callTree aggregates spans by the sequence of tags enclosing them. The same
// tag under two different parents yields two distinct nodes.
type callTree struct {
	nodes  []treeNode
	cursor []int // mirrors the active stack, always starting at the root
}

func newCallTree() *callTree {
	t := &callTree{}
	t.reset()
	return t
}

func (t *callTree) reset() {
	t.nodes = []treeNode{{
		tag:      rootTag,
		parent:   -1,
		children: make(map[Tag]int),
		stats:    newStats(),
	}}
	t.cursor = []int{rootIndex}
}

func (t *callTree) current() int {
	return t.cursor[len(t.cursor)-1]
}

// push moves the cursor to the child of the current node for tag, creating
// the child on first occurrence.
func (t *callTree) push(tag Tag) {
	at := t.current()

	idx, ok := t.nodes[at].children[tag]
	if !ok {
		idx = len(t.nodes)
		t.nodes = append(t.nodes, treeNode{
			tag:      tag,
			parent:   at,
			depth:    t.nodes[at].depth + 1,
			children: make(map[Tag]int),
			stats:    newStats(),
		})
		t.nodes[at].children[tag] = idx
	}

	t.cursor = append(t.cursor, idx)
}

// pop returns the cursor node and moves the cursor back to its parent. The
// root is never popped.
func (t *callTree) pop() *treeNode {
	if len(t.cursor) == 1 {
		return nil
	}
	n := &t.nodes[t.current()]
	t.cursor = t.cursor[:len(t.cursor)-1]
	return n
}

// unwind moves the cursor back to the root.
func (t *callTree) unwind() {
	t.cursor = t.cursor[:1]
}

// checkpoint folds or discards the window of every node.
func (t *callTree) checkpoint(clock Clock, fold bool) {
	for i := range t.nodes {
		n := &t.nodes[i]
		if fold && n.tag != rootTag {
			n.stats.fold(clock)
		}
		n.stats.resetWindow()
	}
}

// find follows path from the root and returns the node index.
func (t *callTree) find(path []Tag) (int, bool) {
	at := rootIndex
	for _, tag := range path {
		idx, ok := t.nodes[at].children[tag]
		if !ok {
			return 0, false
		}
		at = idx
	}
	return at, true
}

// sortedChildren returns the children of node idx ordered by tag.
func (t *callTree) sortedChildren(idx int) []int {
	children := t.nodes[idx].children
	tags := maps.Keys(children)
	slices.Sort(tags)

	out := make([]int, len(tags))
	for i, tag := range tags {
		out[i] = children[tag]
	}
	return out
}

// walk visits the index of every node but the root in pre-order, children
// sorted by tag. It stops as soon as fn returns false.
func (t *callTree) walk(fn func(idx int) bool) {
	var visit func(idx int) bool
	visit = func(idx int) bool {
		for _, c := range t.sortedChildren(idx) {
			if !fn(c) || !visit(c) {
				return false
			}
		}
		return true
	}
	visit(rootIndex)
}

// path returns the tags from the root down to node idx.
func (t *callTree) path(idx int) []Tag {
	path := make([]Tag, t.nodes[idx].depth)
	for i := len(path) - 1; i >= 0; i-- {
		path[i] = t.nodes[idx].tag
		idx = t.nodes[idx].parent
	}
	return path
}
