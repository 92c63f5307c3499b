// Package tree derives the parent-ordered forest from an owner's flat note
// collection. It performs no I/O and keeps no state.
package tree

import (
	"sort"

	"github.com/dododo1295/notetree/model"
)

// Node is a note annotated with its ordered children.
type Node struct {
	model.Note
	Children []*Node `json:"children"`
}

// BuildForest groups notes by parent id and returns the ordered trees hanging
// off rootParentID (nil for the top level).
//
// Nodes are only reached by descending from nodes that were already placed,
// so a parent chain that cycles or points at a missing note leaves its notes
// out of the result instead of looping.
func BuildForest(notes []*model.Note, rootParentID *string) []*Node {
	groups := make(map[string][]*model.Note, len(notes))
	for _, n := range notes {
		if n == nil {
			continue
		}
		key := n.ParentKey()
		groups[key] = append(groups[key], n)
	}
	for _, g := range groups {
		sortSiblings(g)
	}

	root := ""
	if rootParentID != nil {
		root = *rootParentID
	}
	placed := make(map[string]bool, len(notes))
	return build(groups, root, placed)
}

func build(groups map[string][]*model.Note, parent string, placed map[string]bool) []*Node {
	siblings := groups[parent]
	nodes := make([]*Node, 0, len(siblings))
	for _, n := range siblings {
		if placed[n.ID] {
			continue
		}
		placed[n.ID] = true
		nodes = append(nodes, &Node{Note: *n.Clone()})
	}
	// children are built after the whole sibling row is claimed, so a
	// duplicated id can never nest under itself
	for _, node := range nodes {
		node.Children = build(groups, node.ID, placed)
	}
	return nodes
}

// sortSiblings orders by (order, createdAt, id) ascending.
func sortSiblings(notes []*model.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Count returns the number of nodes rendered in the forest.
func Count(forest []*Node) int {
	total := 0
	Walk(forest, func(*Node, int) bool {
		total++
		return true
	})
	return total
}

// Walk visits the forest depth-first in display order. Returning false from
// fn skips the node's children.
func Walk(forest []*Node, fn func(n *Node, depth int) bool) {
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(forest, 0)
}

// Find returns the node with id, or nil when it is not rendered.
func Find(forest []*Node, id string) *Node {
	var found *Node
	Walk(forest, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}
