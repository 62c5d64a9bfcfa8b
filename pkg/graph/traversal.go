package graph

import (
	"sort"
)

// HopDistances returns the shortest-path edge count from the start node to
// every reachable node, treating edges as undirected (a neighborhood spans
// both directions). The start node maps to 0. Unreachable nodes are absent.
func (g *Graph) HopDistances(startID string) map[string]int {
	dist := map[string]int{startID: 0}
	frontier := []string{startID}
	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			for _, nbr := range g.Neighbors(id) {
				if _, seen := dist[nbr]; !seen {
					dist[nbr] = dist[id] + 1
					next = append(next, nbr)
				}
			}
		}
		frontier = next
	}
	return dist
}

// ShortestPathLength returns the undirected shortest-path edge count between
// the two nodes, or -1 if no path exists.
func (g *Graph) ShortestPathLength(fromID, toID string) int {
	if d, ok := g.HopDistances(fromID)[toID]; ok {
		return d
	}
	return -1
}

// WithinRadius returns the ids of every node whose hop distance from the
// start node is at most radius, including the start node itself. Results are
// ordered by hop distance, then by insertion ordinal, so that traversal
// output is deterministic.
func (g *Graph) WithinRadius(startID string, radius int) []string {
	dist := g.HopDistances(startID)
	var ids []string
	for id, d := range dist {
		if d <= radius {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if dist[ids[i]] != dist[ids[j]] {
			return dist[ids[i]] < dist[ids[j]]
		}
		return g.seqOf(ids[i]) < g.seqOf(ids[j])
	})
	return ids
}
