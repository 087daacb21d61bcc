// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"fmt"

	"github.com/ponderlabs/ponder/services/reason/belief"
)

// SearchNode is one node in a reasoning tree.
//
// Nodes live in the arena of their Tree and reference each other only by id;
// there are no owning pointers between nodes. The Score is computed once at
// creation from the node's free energy and never mutated afterward.
//
// Thread Safety: NOT safe for concurrent mutation. A node is written only by
// the run that owns its tree, during the sequential integration step of one
// depth level.
type SearchNode struct {
	ID          string        `json:"id"`
	ParentID    string        `json:"parent_id,omitempty"`
	ChildrenIDs []string      `json:"children_ids,omitempty"`
	Depth       int           `json:"depth"`
	Domain      Domain        `json:"domain"`
	Type        NodeType      `json:"node_type"`
	Content     string        `json:"content"`
	Score       float64       `json:"score"`
	Beliefs     *belief.State `json:"belief_state"`
}

// IsRoot reports whether the node has no parent.
func (n *SearchNode) IsRoot() bool {
	return n.ParentID == ""
}

// IsLeaf reports whether the node has no children.
func (n *SearchNode) IsLeaf() bool {
	return len(n.ChildrenIDs) == 0
}

// String returns a human-readable representation of the node.
func (n *SearchNode) String() string {
	return fmt.Sprintf("SearchNode{id=%s, depth=%d, domain=%s, score=%.4f, children=%d}",
		n.ID, n.Depth, n.Domain, n.Score, len(n.ChildrenIDs))
}

// Tree is the arena holding every node of one search run.
//
// The arena owns all nodes for the lifetime of the run. Insertion order is
// preserved so traversal is deterministic; the map exists only for id lookup.
//
// Thread Safety: NOT safe for concurrent use. Each run owns its tree
// exclusively; nothing is shared across runs.
type Tree struct {
	rootID string
	nodes  map[string]*SearchNode
	order  []string
}

// NewTree creates an empty arena.
func NewTree() *Tree {
	return &Tree{nodes: make(map[string]*SearchNode)}
}

// Add inserts a node into the arena and links it to its parent.
//
// Description:
//
//	The first node added becomes the root and must have no parent. Every
//	later node must name an existing parent and sit exactly one level below
//	it; this makes cycles impossible by construction.
//
// Outputs:
//   - error: ErrUnknownNode if the parent id is not in the arena; a plain
//     error on duplicate ids or depth violations (caller bugs).
func (t *Tree) Add(n *SearchNode) error {
	if _, exists := t.nodes[n.ID]; exists {
		return fmt.Errorf("node %q already in tree", n.ID)
	}

	if n.ParentID == "" {
		if t.rootID != "" {
			return fmt.Errorf("tree already has root %q", t.rootID)
		}
		if n.Depth != 0 {
			return fmt.Errorf("root node must have depth 0, got %d", n.Depth)
		}
		t.rootID = n.ID
	} else {
		parent, ok := t.nodes[n.ParentID]
		if !ok {
			return fmt.Errorf("%w: parent %q", ErrUnknownNode, n.ParentID)
		}
		if n.Depth != parent.Depth+1 {
			return fmt.Errorf("node %q depth %d under parent depth %d", n.ID, n.Depth, parent.Depth)
		}
		parent.ChildrenIDs = append(parent.ChildrenIDs, n.ID)
	}

	t.nodes[n.ID] = n
	t.order = append(t.order, n.ID)
	return nil
}

// Node returns the node with the given id.
//
// Outputs:
//   - *SearchNode: The node, nil on error.
//   - error: ErrUnknownNode if the id is not in the arena.
func (t *Tree) Node(id string) (*SearchNode, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	return n, nil
}

// Root returns the root node, or nil if the tree is empty.
func (t *Tree) Root() *SearchNode {
	return t.nodes[t.rootID]
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// AtDepth returns the nodes at a depth level in insertion order.
func (t *Tree) AtDepth(depth int) []*SearchNode {
	var out []*SearchNode
	for _, id := range t.order {
		if n := t.nodes[id]; n.Depth == depth {
			out = append(out, n)
		}
	}
	return out
}

// All returns every node in insertion order. The slice is a copy; the nodes
// are not.
func (t *Tree) All() []*SearchNode {
	out := make([]*SearchNode, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.nodes[id])
	}
	return out
}

// BestPath descends from the root, at each step moving to the child with the
// maximum frozen score, until a leaf is reached.
//
// Description:
//
//	Ties break by child insertion order (first max wins), which is the order
//	candidates were generated, so path selection is stable and deterministic.
//
// Outputs:
//   - []string: Node ids from root to the winning leaf. Empty for an empty tree.
func (t *Tree) BestPath() []string {
	current := t.Root()
	if current == nil {
		return nil
	}

	path := []string{current.ID}
	for !current.IsLeaf() {
		var best *SearchNode
		for _, childID := range current.ChildrenIDs {
			child := t.nodes[childID]
			if child == nil {
				continue
			}
			if best == nil || child.Score > best.Score {
				best = child
			}
		}
		if best == nil {
			break
		}
		path = append(path, best.ID)
		current = best
	}
	return path
}
