package catalog

import (
	"sort"

	"tagflow/internal/database/sqlc"
)

// TagNode is one tag in a TagTree. Children holds indexes into TagTree.Nodes.
type TagNode struct {
	ID       int64
	Name     string
	Category string
	ParentID int64 // 0 for roots
	Children []int
}

// TagTree is an in-memory view of the tag hierarchy. Nodes live in a flat
// slice and refer to each other by index.
type TagTree struct {
	Nodes []TagNode
	Roots []int
	index map[int64]int
}

// BuildTagTree groups tags under their parents. Tags whose parent is not in
// the input are treated as roots. Siblings are ordered by name.
func BuildTagTree(tags []*sqlc.Tag) *TagTree {
	t := &TagTree{
		Nodes: make([]TagNode, 0, len(tags)),
		index: make(map[int64]int, len(tags)),
	}
	for _, tag := range tags {
		node := TagNode{ID: tag.ID, Name: tag.Name, Category: tag.Category}
		if tag.ParentID.Valid {
			node.ParentID = tag.ParentID.Int64
		}
		t.index[tag.ID] = len(t.Nodes)
		t.Nodes = append(t.Nodes, node)
	}

	for i := range t.Nodes {
		parent, ok := t.index[t.Nodes[i].ParentID]
		if t.Nodes[i].ParentID == 0 || !ok {
			t.Roots = append(t.Roots, i)
			continue
		}
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, i)
	}

	byName := func(idx []int) {
		sort.Slice(idx, func(a, b int) bool { return t.Nodes[idx[a]].Name < t.Nodes[idx[b]].Name })
	}
	byName(t.Roots)
	for i := range t.Nodes {
		byName(t.Nodes[i].Children)
	}
	return t
}

// Len returns the number of tags in the tree.
func (t *TagTree) Len() int {
	return len(t.Nodes)
}

// Lookup returns the node for a tag id.
func (t *TagTree) Lookup(id int64) (*TagNode, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return &t.Nodes[i], true
}

// Walk visits every node depth-first, parents before children, in sibling
// order. Returning false from fn skips the node's children.
func (t *TagTree) Walk(fn func(node *TagNode, depth int) bool) {
	type frame struct {
		idx   int
		depth int
	}

	stack := make([]frame, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{idx: t.Roots[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.Nodes[f.idx]
		if !fn(node, f.depth) {
			continue
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{idx: node.Children[i], depth: f.depth + 1})
		}
	}
}

// Path returns the tag names from the root down to id.
func (t *TagTree) Path(id int64) []string {
	var names []string
	seen := make(map[int64]bool)
	for {
		node, ok := t.Lookup(id)
		if !ok || seen[id] {
			break
		}
		seen[id] = true
		names = append(names, node.Name)
		id = node.ParentID
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}
