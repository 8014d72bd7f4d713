package accounts

import (
	"fmt"
	"sort"
)

// GraphNode is one account with the ids of its direct children.
type GraphNode struct {
	Account  Account `json:"account"`
	Children []int64 `json:"children"`
}

// Graph is the parent/child structure of a tenant's chart of accounts.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Roots []int64     `json:"roots"`
	// Order lists every account with parents ahead of their children.
	Order []int64 `json:"order"`
}

// BuildGraph links accounts by ParentID. An account whose parent is not in the
// set is treated as a root. A loop in the parent links yields ErrCycle.
func BuildGraph(accounts []Account) (Graph, error) {
	byID := make(map[int64]*GraphNode, len(accounts))
	ids := make([]int64, 0, len(accounts))
	for _, acc := range accounts {
		if _, dup := byID[acc.ID]; dup {
			continue
		}
		byID[acc.ID] = &GraphNode{Account: acc, Children: []int64{}}
		ids = append(ids, acc.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	roots := []int64{}
	for _, id := range ids {
		node := byID[id]
		parentID := node.Account.ParentID
		if parentID == nil {
			roots = append(roots, id)
			continue
		}
		parent, ok := byID[*parentID]
		if !ok {
			roots = append(roots, id)
			continue
		}
		parent.Children = append(parent.Children, id)
	}

	// Children were appended in ascending id order, so a breadth-first walk
	// from the sorted roots is deterministic.
	order := make([]int64, 0, len(ids))
	queue := append([]int64(nil), roots...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		queue = append(queue, byID[id].Children...)
	}
	if len(order) != len(ids) {
		return Graph{}, fmt.Errorf("%w: %d of %d accounts unreachable from a root", ErrCycle, len(ids)-len(order), len(ids))
	}

	nodes := make([]GraphNode, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, *byID[id])
	}
	return Graph{Nodes: nodes, Roots: roots, Order: order}, nil
}

// Node returns the node for id.
func (g Graph) Node(id int64) (GraphNode, bool) {
	i := sort.Search(len(g.Nodes), func(i int) bool { return g.Nodes[i].Account.ID >= id })
	if i < len(g.Nodes) && g.Nodes[i].Account.ID == id {
		return g.Nodes[i], true
	}
	return GraphNode{}, false
}

// Descendants returns every account below id, nearest first.
func (g Graph) Descendants(id int64) []int64 {
	start, ok := g.Node(id)
	if !ok {
		return nil
	}
	var out []int64
	queue := append([]int64(nil), start.Children...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		out = append(out, next)
		if node, ok := g.Node(next); ok {
			queue = append(queue, node.Children...)
		}
	}
	return out
}
