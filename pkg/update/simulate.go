package update

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/render"
	"github.com/soundprediction/synthmem/pkg/types"
)

// DefaultMaxAttempts bounds how many candidate facts are tried before the
// simulation reports exhaustion.
const DefaultMaxAttempts = 5

// identifyingAttrs are attribute keys that are never selected for mutation:
// changing them would amount to renaming the entity rather than updating a
// fact about it.
var identifyingAttrs = map[string]struct{}{
	"name":        {},
	"full_name":   {},
	"entity_type": {},
	"birth_date":  {},
	"death_date":  {},
	"birth_place": {},
	"death_place": {},
}

// NoMutableFactError reports that the focal node's neighborhood holds no
// fact eligible for mutation. Recoverable: skip this focal node's update
// scenario.
type NoMutableFactError struct {
	FocalID string
}

func (e *NoMutableFactError) Error() string {
	return fmt.Sprintf("no mutable fact in neighborhood of node %s", e.FocalID)
}

// Is supports errors.Is matching by type.
func (e *NoMutableFactError) Is(target error) bool {
	_, ok := target.(*NoMutableFactError)
	return ok
}

// MutationExhaustedError reports that every attempted mutation produced an
// invalid graph within the allowed attempts. Recoverable: skip this focal node's
// update scenario.
type MutationExhaustedError struct {
	FocalID  string
	Attempts int
}

func (e *MutationExhaustedError) Error() string {
	return fmt.Sprintf("mutation attempts exhausted for node %s after %d tries", e.FocalID, e.Attempts)
}

// Is supports errors.Is matching by type.
func (e *MutationExhaustedError) Is(target error) bool {
	_, ok := target.(*MutationExhaustedError)
	return ok
}

// Options tunes a simulation run. The zero value selects the defaults.
type Options struct {
	// Radius must match the radius the documents were rendered with.
	Radius int
	// MaxAttempts bounds mutation retries after invalid results.
	MaxAttempts int
	// NewValue produces the replacement value for an attribute mutation.
	NewValue func(node *types.Node, key, old string) string
	// NewNodeID mints ids for synthesized placeholder nodes.
	NewNodeID func() string
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.Radius <= 0 {
		out.Radius = render.DefaultRadius
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = DefaultMaxAttempts
	}
	if out.NewValue == nil {
		out.NewValue = func(_ *types.Node, _, old string) string {
			return old + " (updated)"
		}
	}
	if out.NewNodeID == nil {
		out.NewNodeID = uuid.NewString
	}
	return out
}

// candidate is one mutable fact: either an attribute of a neighborhood node
// or an outgoing edge rendered inside the neighborhood.
type candidate struct {
	kind    types.UpdateKind
	nodeID  string
	attrKey string
	edge    *types.Edge
}

// Simulate selects a mutable fact within the focal node's rendered
// neighborhood, applies it to a private clone of the graph, re-renders, and
// returns the resulting scenario with its structural diff. The input graph
// and documents are never modified.
func Simulate(g *graph.Graph, docs *types.DocumentSet, focalID string, rng *rand.Rand, opts *Options) (*types.UpdateScenario, error) {
	o := opts.withDefaults()

	candidates := enumerateCandidates(g, docs)
	if len(candidates) == 0 {
		return nil, &NoMutableFactError{FocalID: focalID}
	}

	attempts := 0
	for _, idx := range rng.Perm(len(candidates)) {
		if attempts >= o.MaxAttempts {
			break
		}
		attempts++

		scenario, err := applyCandidate(g, docs, focalID, candidates[idx], &o)
		if err != nil {
			// Invalid mutation; try a different fact.
			continue
		}
		return scenario, nil
	}
	return nil, &MutationExhaustedError{FocalID: focalID, Attempts: attempts}
}

// enumerateCandidates collects every eligible fact in deterministic order:
// nodes in document-set order, attributes in insertion order, then rendered
// edges in insertion order.
func enumerateCandidates(g *graph.Graph, docs *types.DocumentSet) []candidate {
	inSet := make(map[string]struct{}, len(docs.Documents))
	var order []string
	for _, d := range docs.Documents {
		inSet[d.NodeID] = struct{}{}
		order = append(order, d.NodeID)
	}

	var candidates []candidate
	for _, id := range order {
		node, ok := g.Node(id)
		if !ok {
			continue
		}
		for _, a := range node.Attributes {
			if _, excluded := identifyingAttrs[a.Key]; excluded {
				continue
			}
			candidates = append(candidates, candidate{
				kind:    types.AttributeUpdate,
				nodeID:  id,
				attrKey: a.Key,
			})
		}
	}
	for _, id := range order {
		for _, e := range g.Outgoing(id) {
			if _, in := inSet[e.TargetID]; !in {
				continue
			}
			candidates = append(candidates, candidate{
				kind:   types.RelationshipUpdate,
				nodeID: id,
				edge:   e,
			})
		}
	}
	return candidates
}

func applyCandidate(g *graph.Graph, docs *types.DocumentSet, focalID string, c candidate, o *Options) (*types.UpdateScenario, error) {
	clone := g.Clone()
	scenario := &types.UpdateScenario{ChangedNodeID: c.nodeID, Kind: c.kind}

	prefix := pathToNode(g, focalID, c.nodeID)

	switch c.kind {
	case types.AttributeUpdate:
		node, _ := clone.Node(c.nodeID)
		old, _ := node.Attr(c.attrKey)
		updated := o.NewValue(node, c.attrKey, old)
		node.SetAttr(c.attrKey, updated)

		scenario.OldPath = append(prefix, fmt.Sprintf("%s=%s", c.attrKey, old))
		scenario.NewPath = append(clonePath(prefix), fmt.Sprintf("%s=%s", c.attrKey, updated))

	case types.RelationshipUpdate:
		oldTarget, ok := g.Node(c.edge.TargetID)
		if !ok {
			return nil, types.ErrNodeNotFound
		}
		placeholder := &types.Node{
			ID:   o.NewNodeID(),
			Type: oldTarget.Type,
			Name: placeholderName(clone, oldTarget.Type),
		}
		if err := clone.AddNode(placeholder); err != nil {
			return nil, err
		}
		if err := clone.RetargetEdge(c.nodeID, c.edge.Label, c.edge.TargetID, placeholder.ID); err != nil {
			return nil, err
		}

		scenario.OldPath = append(prefix, c.edge.Label, oldTarget.Name)
		scenario.NewPath = append(clonePath(prefix), c.edge.Label, placeholder.Name)
	}

	if err := graph.MustValidate(clone); err != nil {
		return nil, err
	}

	newDocs, err := render.Render(clone, focalID, o.Radius)
	if err != nil {
		return nil, err
	}

	diff := DiffSets(docs, newDocs)
	if diff.Empty() {
		return nil, fmt.Errorf("mutation of node %s produced no document change", c.nodeID)
	}
	scenario.Diff = diff
	return scenario, nil
}

// placeholderName synthesizes a display name for a replacement node, unique
// among existing node names of any type so cross-links stay unambiguous.
func placeholderName(g *graph.Graph, kind types.NodeType) string {
	taken := make(map[string]struct{})
	for _, n := range g.Nodes() {
		taken[n.Name] = struct{}{}
	}
	base := fmt.Sprintf("New %s", string(kind))
	name := base
	for n := 2; ; n++ {
		if _, exists := taken[name]; !exists {
			return name
		}
		name = fmt.Sprintf("%s %d", base, n)
	}
}

// pathToNode traces a shortest path from the focal node to the target as an
// alternating name/relation sequence, deterministic for a given graph.
func pathToNode(g *graph.Graph, fromID, toID string) []string {
	start, ok := g.Node(fromID)
	if !ok {
		return nil
	}
	if fromID == toID {
		return []string{start.Name}
	}

	parent := map[string]string{fromID: ""}
	frontier := []string{fromID}
	for len(frontier) > 0 && parent[toID] == "" {
		var next []string
		for _, id := range frontier {
			for _, nbr := range g.Neighbors(id) {
				if _, seen := parent[nbr]; !seen {
					parent[nbr] = id
					next = append(next, nbr)
				}
			}
		}
		frontier = next
	}
	if _, reached := parent[toID]; !reached {
		return []string{start.Name}
	}

	// Reconstruct backwards, then emit name, relation, name, ...
	var chain []string
	for id := toID; id != ""; id = parent[id] {
		chain = append(chain, id)
		if id == fromID {
			break
		}
	}
	var path []string
	for i := len(chain) - 1; i >= 0; i-- {
		node, _ := g.Node(chain[i])
		path = append(path, node.Name)
		if i > 0 {
			path = append(path, relationBetween(g, chain[i], chain[i-1]))
		}
	}
	return path
}

// relationBetween returns the label of the lowest-ordinal edge connecting
// the two nodes in either direction.
func relationBetween(g *graph.Graph, a, b string) string {
	best := ""
	bestSeq := -1
	for _, e := range g.Outgoing(a) {
		if e.TargetID == b && (bestSeq == -1 || e.Seq < bestSeq) {
			best, bestSeq = e.Label, e.Seq
		}
	}
	for _, e := range g.Incoming(a) {
		if e.SourceID == b && (bestSeq == -1 || e.Seq < bestSeq) {
			best, bestSeq = e.Label, e.Seq
		}
	}
	return best
}

func clonePath(path []string) []string {
	out := make([]string, len(path))
	copy(out, path)
	return out
}
