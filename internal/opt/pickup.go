package opt

import "sort"

// pairGraph is the precedence structure induced by pickup/delivery pairs.
// Indices linked by any chain of pairs form a component that must ride a
// single vehicle; after[i] lists every index that must follow i.
type pairGraph struct {
	comp    []int     // by index, -1 when unpaired
	members [][]Index // per component, in a precedence-compatible order
	after   [][]Index // transitive successors by index
	cyclic  bool
}

func newPairGraph(numIndices int, pairs []Pair) *pairGraph {
	g := &pairGraph{
		comp:  make([]int, numIndices),
		after: make([][]Index, numIndices),
	}
	for i := range g.comp {
		g.comp[i] = -1
	}
	if len(pairs) == 0 {
		return g
	}

	succ := make(map[Index][]Index)
	adj := make(map[Index][]Index)
	for _, p := range pairs {
		succ[p.Pickup] = append(succ[p.Pickup], p.Delivery)
		adj[p.Pickup] = append(adj[p.Pickup], p.Delivery)
		adj[p.Delivery] = append(adj[p.Delivery], p.Pickup)
	}

	nodes := make([]Index, 0, len(adj))
	for i := range adj {
		nodes = append(nodes, i)
	}
	sort.Slice(nodes, func(a, b int) bool { return nodes[a] < nodes[b] })

	// components
	for _, root := range nodes {
		if g.comp[root] >= 0 {
			continue
		}
		id := len(g.members)
		var group []Index
		stack := []Index{root}
		g.comp[root] = id
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			group = append(group, i)
			for _, j := range adj[i] {
				if g.comp[j] < 0 {
					g.comp[j] = id
					stack = append(stack, j)
				}
			}
		}
		sort.Slice(group, func(a, b int) bool { return group[a] < group[b] })
		g.members = append(g.members, group)
	}

	// transitive closure
	for _, i := range nodes {
		seen := map[Index]bool{}
		stack := append([]Index(nil), succ[i]...)
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[j] {
				continue
			}
			seen[j] = true
			stack = append(stack, succ[j]...)
		}
		if seen[i] {
			g.cyclic = true
		}
		for j := range seen {
			g.after[i] = append(g.after[i], j)
		}
		sort.Slice(g.after[i], func(a, b int) bool { return g.after[i][a] < g.after[i][b] })
	}

	if !g.cyclic {
		for c, group := range g.members {
			g.members[c] = topoOrder(group, g.after)
		}
	}
	return g
}

// topoOrder sorts group so that every index precedes its successors, breaking
// ties by ascending index.
func topoOrder(group []Index, after [][]Index) []Index {
	preds := make(map[Index]int, len(group))
	for _, i := range group {
		preds[i] += 0
		for _, j := range after[i] {
			preds[j]++
		}
	}
	out := make([]Index, 0, len(group))
	placed := make(map[Index]bool, len(group))
	for len(out) < len(group) {
		for _, i := range group {
			if placed[i] || preds[i] > 0 {
				continue
			}
			placed[i] = true
			out = append(out, i)
			for _, j := range after[i] {
				preds[j]--
			}
			break
		}
	}
	return out
}

// component returns the members that must move together with index i, or
// just i when it is unpaired.
func (g *pairGraph) component(i Index) []Index {
	if c := g.comp[i]; c >= 0 {
		return g.members[c]
	}
	return []Index{i}
}
