package query

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/types"
)

func addNode(t *testing.T, g *graph.Graph, id string, kind types.NodeType, name string, attrs ...string) {
	t.Helper()
	n := &types.Node{ID: id, Type: kind, Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.SetAttr(attrs[i], attrs[i+1])
	}
	require.NoError(t, g.AddNode(n))
}

func chainGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada Moreno", "age", "36", "occupation", "chef")
	addNode(t, g, "b", "restaurant", "Pangorio", "cuisine", "italian")
	addNode(t, g, "c", "city", "Trenton", "state", "New Jersey")
	require.NoError(t, g.AddEdge("a", "works_at", "b"))
	require.NoError(t, g.AddEdge("b", "located_in", "c"))
	return g
}

func TestDeriveChainScenario(t *testing.T) {
	g := chainGraph(t)
	rng := rand.New(rand.NewSource(7))

	result, err := Derive(g, "a", types.HopCounts{10, 10, 10}, rng)
	require.NoError(t, err)

	var twoHop []types.QueryRecord
	for _, r := range result.Records {
		if r.HopDistance == 2 {
			twoHop = append(twoHop, r)
		}
	}
	require.Len(t, twoHop, 1, "one 2-hop fact: state of Trenton")

	rec := twoHop[0]
	assert.Equal(t, "New Jersey", rec.Answer)
	require.Len(t, rec.Path, 3)
	assert.Equal(t, "Ada Moreno", rec.Path[0].NodeName)
	assert.Equal(t, "works_at", rec.Path[1].Relation)
	assert.Equal(t, "Pangorio", rec.Path[1].NodeName)
	assert.Equal(t, "located_in", rec.Path[2].Relation)
	assert.Equal(t, "Trenton", rec.Path[2].NodeName)
	assert.Equal(t, "state", rec.Path[2].Attribute)
}

func TestDeriveZeroHop(t *testing.T) {
	g := chainGraph(t)
	rng := rand.New(rand.NewSource(1))

	result, err := Derive(g, "a", types.HopCounts{10, 0, 0}, rng)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	answers := map[string]string{}
	for _, r := range result.Records {
		assert.Equal(t, 0, r.HopDistance)
		require.Len(t, r.Path, 1)
		answers[r.Path[0].Attribute] = r.Answer
	}
	assert.Equal(t, map[string]string{"age": "36", "occupation": "chef"}, answers)
}

func TestDeriveOneHopIncludesIdentityAndIncoming(t *testing.T) {
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada", "age", "36")
	addNode(t, g, "m", types.PersonNodeType, "Grace", "age", "41")
	require.NoError(t, g.AddEdge("m", "manager_of", "a"))

	rng := rand.New(rand.NewSource(1))
	result, err := Derive(g, "a", types.HopCounts{0, 10, 0}, rng)
	require.NoError(t, err)

	// Identity fact plus one attribute fact for the incoming neighbor.
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Grace", result.Records[0].Answer)
	assert.Equal(t, "41", result.Records[1].Answer)
	for _, r := range result.Records {
		assert.Equal(t, 1, r.HopDistance)
	}
}

func TestDeriveHopCorrectness(t *testing.T) {
	// d is both a direct neighbor of a AND the far end of a two-edge walk
	// (a -> b -> d). The walk must not yield a 2-hop record: d's true hop
	// distance is 1.
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada", "age", "36")
	addNode(t, g, "b", "company", "Initech", "sector", "software")
	addNode(t, g, "d", "city", "Trenton", "state", "New Jersey")
	require.NoError(t, g.AddEdge("a", "works_at", "b"))
	require.NoError(t, g.AddEdge("a", "lives_in", "d"))
	require.NoError(t, g.AddEdge("b", "located_in", "d"))

	rng := rand.New(rand.NewSource(1))
	result, err := Derive(g, "a", types.HopCounts{0, 0, 10}, rng)
	require.NoError(t, err)

	assert.Empty(t, result.Records, "no node is at true hop distance 2")
	assert.Equal(t, 10, result.Shortfall[2])

	// Every emitted record's hop distance must equal the graph-shortest-path
	// length to the fact's source node.
	full, err := Derive(g, "a", types.HopCounts{10, 10, 10}, rng)
	require.NoError(t, err)
	for _, r := range full.Records {
		terminal := r.Path[len(r.Path)-1]
		assert.Equal(t, r.HopDistance, g.ShortestPathLength("a", terminal.NodeID),
			"record %q mislabeled", r.Question)
	}
}

func TestDeriveDistinctPathsPerIntermediate(t *testing.T) {
	// Trenton is two hops away via both the company and the club; each path
	// yields its own record.
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada", "age", "36")
	addNode(t, g, "b", "company", "Initech", "sector", "software")
	addNode(t, g, "c", "club", "Chess Circle", "members", "12")
	addNode(t, g, "d", "city", "Trenton", "state", "New Jersey")
	require.NoError(t, g.AddEdge("a", "works_at", "b"))
	require.NoError(t, g.AddEdge("a", "member_of", "c"))
	require.NoError(t, g.AddEdge("b", "located_in", "d"))
	require.NoError(t, g.AddEdge("c", "located_in", "d"))

	rng := rand.New(rand.NewSource(1))
	result, err := Derive(g, "a", types.HopCounts{0, 0, 10}, rng)
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	intermediates := map[string]bool{}
	for _, r := range result.Records {
		intermediates[r.Path[1].NodeName] = true
	}
	assert.True(t, intermediates["Initech"])
	assert.True(t, intermediates["Chess Circle"])
}

func TestDeriveSamplingDeterministic(t *testing.T) {
	g := chainGraph(t)

	first, err := Derive(g, "a", types.HopCounts{1, 2, 1}, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	second, err := Derive(g, "a", types.HopCounts{1, 2, 1}, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDeriveShortfallFlaggedNotError(t *testing.T) {
	g := chainGraph(t)
	rng := rand.New(rand.NewSource(1))

	result, err := Derive(g, "a", types.HopCounts{5, 0, 3}, rng)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Shortfall[0], "2 zero-hop facts exist, 5 requested")
	assert.Equal(t, 2, result.Shortfall[2], "1 two-hop fact exists, 3 requested")
}

func TestDeriveUnknownFocal(t *testing.T) {
	g := chainGraph(t)
	_, err := Derive(g, "nope", types.HopCounts{1, 1, 1}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, types.ErrNodeNotFound)
}
