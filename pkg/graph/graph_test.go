package graph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/synthmem/pkg/types"
)

func person(id, name string, attrs ...string) *types.Node {
	n := &types.Node{ID: id, Type: types.PersonNodeType, Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.SetAttr(attrs[i], attrs[i+1])
	}
	return n
}

func entity(id string, kind types.NodeType, name string, attrs ...string) *types.Node {
	n := &types.Node{ID: id, Type: kind, Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.SetAttr(attrs[i], attrs[i+1])
	}
	return n
}

// buildTestGraph returns the A-works_at->B-located_in->C shape used across
// the package tests.
func buildTestGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	require.NoError(t, g.AddNode(person("a", "Ada Moreno", "age", "36")))
	require.NoError(t, g.AddNode(entity("b", "restaurant", "Pangorio", "cuisine", "italian")))
	require.NoError(t, g.AddNode(entity("c", "city", "Trenton", "state", "New Jersey")))
	require.NoError(t, g.AddEdge("a", "works_at", "b"))
	require.NoError(t, g.AddEdge("b", "located_in", "c"))
	return g
}

func TestAddNodeRejectsDuplicateID(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(person("a", "Ada", "age", "36")))
	err := g.AddNode(person("a", "Ada Again", "age", "40"))
	assert.ErrorIs(t, err, types.ErrDuplicateNode)
}

func TestAddEdgeRules(t *testing.T) {
	g := buildTestGraph(t)

	assert.ErrorIs(t, g.AddEdge("a", "works_at", "a"), types.ErrSelfLoop)
	assert.ErrorIs(t, g.AddEdge("a", "works_at", "b"), types.ErrDuplicateEdge)

	// Same pair, different label is allowed.
	assert.NoError(t, g.AddEdge("a", "owns", "b"))

	// Dangling endpoints are accepted here and reported by Validate.
	assert.NoError(t, g.AddEdge("a", "visits", "ghost"))
	result := Validate(g)
	assert.False(t, result.OK)
}

func TestNeighborsBothDirections(t *testing.T) {
	g := buildTestGraph(t)

	assert.Equal(t, []string{"a", "c"}, g.Neighbors("b"))
	assert.Equal(t, []string{"b"}, g.Neighbors("a"))
	assert.Empty(t, g.Neighbors("missing"))
}

func TestHopDistances(t *testing.T) {
	g := buildTestGraph(t)

	dist := g.HopDistances("a")
	assert.Equal(t, 0, dist["a"])
	assert.Equal(t, 1, dist["b"])
	assert.Equal(t, 2, dist["c"])

	assert.Equal(t, 2, g.ShortestPathLength("a", "c"))
	assert.Equal(t, -1, g.ShortestPathLength("a", "nowhere"))
}

func TestWithinRadiusOrdering(t *testing.T) {
	g := buildTestGraph(t)

	assert.Equal(t, []string{"a"}, g.WithinRadius("a", 0))
	assert.Equal(t, []string{"a", "b"}, g.WithinRadius("a", 1))
	assert.Equal(t, []string{"a", "b", "c"}, g.WithinRadius("a", 2))
}

func TestCloneIsolation(t *testing.T) {
	g := buildTestGraph(t)
	clone := g.Clone()

	require.NoError(t, clone.SetAttribute("a", "age", "99"))
	require.NoError(t, clone.AddNode(entity("d", "city", "Lisbon", "country", "Portugal")))
	require.NoError(t, clone.RetargetEdge("b", "located_in", "c", "d"))

	orig, _ := g.Node("a")
	v, _ := orig.Attr("age")
	assert.Equal(t, "36", v, "clone attribute change leaked")

	_, exists := g.Node("d")
	assert.False(t, exists, "clone node leaked")

	var target string
	for _, e := range g.Outgoing("b") {
		if e.Label == "located_in" {
			target = e.TargetID
		}
	}
	assert.Equal(t, "c", target, "clone edge retarget leaked")
}

func TestRetargetEdge(t *testing.T) {
	g := buildTestGraph(t)
	require.NoError(t, g.AddNode(entity("d", "city", "Lisbon", "country", "Portugal")))

	require.NoError(t, g.RetargetEdge("b", "located_in", "c", "d"))

	assert.Equal(t, []string{"b"}, g.Neighbors("d"))
	assert.NotContains(t, g.Neighbors("c"), "b")

	assert.ErrorIs(t, g.RetargetEdge("b", "located_in", "c", "d"), types.ErrEdgeNotFound)
}

func TestPayloadRoundTrip(t *testing.T) {
	g := buildTestGraph(t)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, g.Payload(), restored.Payload())
	assert.True(t, Validate(restored).OK)
}

func TestValidateReportsAllViolationsAtOnce(t *testing.T) {
	// A dangling edge AND a duplicate person name must both be reported in
	// one call.
	payload := types.GraphPayload{
		Nodes: []*types.Node{
			person("a", "Ada Moreno", "age", "36"),
			person("b", "Ada Moreno", "age", "41"),
		},
		Edges: []*types.Edge{
			{SourceID: "a", Label: "knows", TargetID: "b"},
			{SourceID: "a", Label: "works_at", TargetID: "missing"},
		},
	}
	g := FromPayload(payload)

	result := Validate(g)
	require.False(t, result.OK)

	var invariants []string
	for _, v := range result.Violations {
		invariants = append(invariants, v.Invariant)
	}
	assert.Contains(t, invariants, InvariantUniquePersons)
	assert.Contains(t, invariants, InvariantEdgeEndpoints)
}

func TestValidateEmptyNode(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(&types.Node{ID: "x", Type: "city", Name: "Nowhere"}))

	result := Validate(g)
	require.False(t, result.OK)
	assert.Equal(t, InvariantNoEmptyNodes, result.Violations[0].Invariant)

	// An incident edge is enough to satisfy the invariant.
	require.NoError(t, g.AddNode(person("p", "Ada", "age", "36")))
	require.NoError(t, g.AddEdge("p", "lives_in", "x"))
	assert.True(t, Validate(g).OK)
}

func TestValidateDuplicateNodeID(t *testing.T) {
	payload := types.GraphPayload{
		Nodes: []*types.Node{
			person("a", "Ada", "age", "36"),
			person("a", "Grace", "age", "40"),
		},
	}
	g := FromPayload(payload)

	result := Validate(g)
	require.False(t, result.OK)
	assert.Equal(t, InvariantUniqueNodeIDs, result.Violations[0].Invariant)
}

func TestMustValidateError(t *testing.T) {
	g := buildTestGraph(t)
	assert.NoError(t, MustValidate(g))

	require.NoError(t, g.AddEdge("a", "visits", "ghost"))
	err := MustValidate(g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrGraphInvalid))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Violations, 1)
}
