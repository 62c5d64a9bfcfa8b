// Package graph provides the in-memory knowledge graph container with
// neighbor lookup, bounded-radius traversal, consistency validation, and
// deep cloning. The graph is the sole source of truth for every downstream
// component; consumers other than the update simulator treat it as frozen
// once validated.
package graph

import (
	"encoding/json"
	"sort"

	"github.com/soundprediction/synthmem/pkg/types"
)

// Graph is an adjacency-list container over typed nodes and directed,
// labeled edges. It is not safe for concurrent mutation; the generation
// pipeline freezes it after validation and mutates only private clones.
type Graph struct {
	nodes   []*types.Node
	byID    map[string]*types.Node
	edges   []*types.Edge
	out     map[string][]*types.Edge
	in      map[string][]*types.Edge
	triples map[string]struct{}
	nextSeq int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		byID:    make(map[string]*types.Node),
		out:     make(map[string][]*types.Edge),
		in:      make(map[string][]*types.Edge),
		triples: make(map[string]struct{}),
	}
}

// AddNode inserts a node, assigning its insertion ordinal. The node is
// rejected if its id is already present; deeper invariants are left to
// Validate so that callers can report every problem at once.
func (g *Graph) AddNode(node *types.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	if _, exists := g.byID[node.ID]; exists {
		return types.ErrDuplicateNode
	}
	g.appendNode(node)
	return nil
}

// appendNode inserts without the duplicate-id check. Used by payload loading,
// which defers all consistency checking to Validate.
func (g *Graph) appendNode(node *types.Node) {
	node.Seq = g.nextSeq
	g.nextSeq++
	g.nodes = append(g.nodes, node)
	if _, exists := g.byID[node.ID]; !exists {
		g.byID[node.ID] = node
	}
}

// AddEdge inserts a directed labeled edge. Self-loops and duplicate
// (source, label, target) triples are rejected; dangling endpoints are not —
// the validator reports those, so a partially resolved build can still be
// inspected as a whole.
func (g *Graph) AddEdge(sourceID, label, targetID string) error {
	edge := &types.Edge{SourceID: sourceID, Label: label, TargetID: targetID}
	if err := edge.Validate(); err != nil {
		return err
	}
	if _, exists := g.triples[edge.Triple()]; exists {
		return types.ErrDuplicateEdge
	}
	edge.Seq = len(g.edges)
	g.edges = append(g.edges, edge)
	g.out[sourceID] = append(g.out[sourceID], edge)
	g.in[targetID] = append(g.in[targetID], edge)
	g.triples[edge.Triple()] = struct{}{}
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*types.Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*types.Node {
	out := make([]*types.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Persons returns all person nodes in insertion order.
func (g *Graph) Persons() []*types.Node {
	var out []*types.Node
	for _, n := range g.nodes {
		if n.Type.IsPerson() {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*types.Edge {
	out := make([]*types.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Outgoing returns the edges leaving the node, in insertion order.
func (g *Graph) Outgoing(id string) []*types.Edge {
	out := make([]*types.Edge, len(g.out[id]))
	copy(out, g.out[id])
	return out
}

// Incoming returns the edges arriving at the node, in insertion order.
func (g *Graph) Incoming(id string) []*types.Edge {
	out := make([]*types.Edge, len(g.in[id]))
	copy(out, g.in[id])
	return out
}

// Neighbors returns the ids of all nodes adjacent to the given node in
// either direction, deduplicated, ordered by the neighbors' insertion
// ordinals.
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range g.out[id] {
		if _, ok := seen[e.TargetID]; !ok {
			seen[e.TargetID] = struct{}{}
			ids = append(ids, e.TargetID)
		}
	}
	for _, e := range g.in[id] {
		if _, ok := seen[e.SourceID]; !ok {
			seen[e.SourceID] = struct{}{}
			ids = append(ids, e.SourceID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return g.seqOf(ids[i]) < g.seqOf(ids[j]) })
	return ids
}

func (g *Graph) seqOf(id string) int {
	if n, ok := g.byID[id]; ok {
		return n.Seq
	}
	return int(^uint(0) >> 1) // unknown ids sort last
}

// SetAttribute replaces or appends an attribute on a node.
func (g *Graph) SetAttribute(id, key, value string) error {
	n, ok := g.byID[id]
	if !ok {
		return types.ErrNodeNotFound
	}
	n.SetAttr(key, value)
	return nil
}

// RetargetEdge rewires the identified edge to a new target node, preserving
// its insertion ordinal. The new triple must not already exist.
func (g *Graph) RetargetEdge(sourceID, label, oldTargetID, newTargetID string) error {
	var edge *types.Edge
	for _, e := range g.out[sourceID] {
		if e.Label == label && e.TargetID == oldTargetID {
			edge = e
			break
		}
	}
	if edge == nil {
		return types.ErrEdgeNotFound
	}
	replacement := types.Edge{SourceID: sourceID, Label: label, TargetID: newTargetID}
	if err := replacement.Validate(); err != nil {
		return err
	}
	if _, exists := g.triples[replacement.Triple()]; exists {
		return types.ErrDuplicateEdge
	}

	delete(g.triples, edge.Triple())
	g.in[oldTargetID] = removeEdge(g.in[oldTargetID], edge)
	edge.TargetID = newTargetID
	g.in[newTargetID] = append(g.in[newTargetID], edge)
	g.triples[edge.Triple()] = struct{}{}
	return nil
}

func removeEdge(edges []*types.Edge, target *types.Edge) []*types.Edge {
	for i, e := range edges {
		if e == target {
			return append(edges[:i:i], edges[i+1:]...)
		}
	}
	return edges
}

// Clone returns a deep copy of the graph. The update simulator mutates
// clones only; the original is never touched.
func (g *Graph) Clone() *Graph {
	clone := New()
	clone.nextSeq = g.nextSeq
	for _, n := range g.nodes {
		cn := n.Clone()
		clone.nodes = append(clone.nodes, cn)
		if _, exists := clone.byID[cn.ID]; !exists {
			clone.byID[cn.ID] = cn
		}
	}
	for _, e := range g.edges {
		ce := *e
		clone.edges = append(clone.edges, &ce)
		clone.out[ce.SourceID] = append(clone.out[ce.SourceID], &ce)
		clone.in[ce.TargetID] = append(clone.in[ce.TargetID], &ce)
		clone.triples[ce.Triple()] = struct{}{}
	}
	return clone
}

// Payload returns the serialized form of the graph.
func (g *Graph) Payload() types.GraphPayload {
	return types.GraphPayload{Nodes: g.Nodes(), Edges: g.Edges()}
}

// MarshalJSON serializes the graph as its payload.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Payload())
}

// FromPayload reconstructs a graph from its serialized form. Nodes and edges
// are loaded verbatim, including any inconsistencies; run Validate before
// deriving anything from the result.
func FromPayload(payload types.GraphPayload) *Graph {
	g := New()
	for _, n := range payload.Nodes {
		g.appendNode(n.Clone())
	}
	for _, e := range payload.Edges {
		ce := *e
		ce.Seq = len(g.edges)
		g.edges = append(g.edges, &ce)
		g.out[ce.SourceID] = append(g.out[ce.SourceID], &ce)
		g.in[ce.TargetID] = append(g.in[ce.TargetID], &ce)
		g.triples[ce.Triple()] = struct{}{}
	}
	return g
}

// UnmarshalJSON reconstructs the graph from a serialized payload.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var payload types.GraphPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	*g = *FromPayload(payload)
	return nil
}
