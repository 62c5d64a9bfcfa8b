package synthmem

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func addTestNode(t *testing.T, g *graph.Graph, id string, nodeType types.NodeType, name string, attrs ...string) {
	t.Helper()
	node := &types.Node{ID: id, Type: nodeType, Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		node.Attributes = append(node.Attributes, types.Attribute{Key: attrs[i], Value: attrs[i+1]})
	}
	require.NoError(t, g.AddNode(node))
}

// familyGraph builds a small validated world: three people around a
// restaurant and its city.
func familyGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()

	addTestNode(t, g, "ada", types.PersonNodeType, "Ada Moreno", "name", "Ada Moreno", "age", "36")
	addTestNode(t, g, "luca", types.PersonNodeType, "Luca Moreno", "name", "Luca Moreno", "age", "64")
	addTestNode(t, g, "gia", types.PersonNodeType, "Gia Moreno", "name", "Gia Moreno", "age", "61")
	addTestNode(t, g, "pangorio", "restaurant", "Pangorio", "cuisine", "Italian")
	addTestNode(t, g, "trenton", "city", "Trenton", "state", "New Jersey")

	require.NoError(t, g.AddEdge("ada", "works_at", "pangorio"))
	require.NoError(t, g.AddEdge("luca", "owns", "pangorio"))
	require.NoError(t, g.AddEdge("ada", "child_of", "luca"))
	require.NoError(t, g.AddEdge("ada", "child_of", "gia"))
	require.NoError(t, g.AddEdge("pangorio", "located_in", "trenton"))

	require.NoError(t, graph.MustValidate(g))
	return g
}

func TestGenerateProducesMemories(t *testing.T) {
	g := familyGraph(t)

	pipeline := New(nil, Options{
		FocalNodes:     2,
		QueriesPerHop:  3,
		UpdatesPerNode: 1,
		Seed:           42,
	}, testLogger())

	result, err := pipeline.Generate(context.Background(), g)
	require.NoError(t, err)

	require.Len(t, result.Memories, 2)
	require.Len(t, result.Reports, 2)

	for _, memory := range result.Memories {
		assert.Regexp(t, `^memory_[0-9a-f]{32}$`, memory.ID)
		assert.NotNil(t, memory.Documents)
		assert.NotEmpty(t, memory.Queries)
	}

	for _, report := range result.Reports {
		assert.False(t, report.Skipped, "report for %s should not be skipped", report.NodeName)
		assert.NotEmpty(t, report.MemoryID)
		assert.Greater(t, report.Queries, 0)
	}
}

func TestGenerateDeterministicSelection(t *testing.T) {
	opts := Options{FocalNodes: 2, QueriesPerHop: 3, UpdatesPerNode: 1, Seed: 7}

	first, err := New(nil, opts, testLogger()).Generate(context.Background(), familyGraph(t))
	require.NoError(t, err)
	second, err := New(nil, opts, testLogger()).Generate(context.Background(), familyGraph(t))
	require.NoError(t, err)

	require.Len(t, second.Reports, len(first.Reports))
	for i := range first.Reports {
		assert.Equal(t, first.Reports[i].NodeID, second.Reports[i].NodeID)
		assert.Equal(t, first.Reports[i].Queries, second.Reports[i].Queries)
		assert.Equal(t, first.Reports[i].Updates, second.Reports[i].Updates)
	}

	require.Len(t, second.Memories, len(first.Memories))
	for i := range first.Memories {
		require.Len(t, second.Memories[i].Queries, len(first.Memories[i].Queries))
		for j := range first.Memories[i].Queries {
			assert.Equal(t, first.Memories[i].Queries[j].Question, second.Memories[i].Queries[j].Question)
			assert.Equal(t, first.Memories[i].Queries[j].Answer, second.Memories[i].Queries[j].Answer)
		}
	}
}

func TestGenerateStructuralQuestionsWithoutClient(t *testing.T) {
	g := familyGraph(t)

	pipeline := New(nil, Options{FocalNodes: 1, QueriesPerHop: 2, UpdatesPerNode: 1, Seed: 3, Phrase: true}, testLogger())
	result, err := pipeline.Generate(context.Background(), g)
	require.NoError(t, err)

	require.Len(t, result.Memories, 1)
	for _, record := range result.Memories[0].Queries {
		assert.NotEmpty(t, record.Question)
		assert.NotEmpty(t, record.Answer)
		assert.NotEmpty(t, record.Path)
	}
}

func TestGenerateNoPersonNodes(t *testing.T) {
	g := graph.New()
	addTestNode(t, g, "pangorio", "restaurant", "Pangorio", "cuisine", "Italian")

	pipeline := New(nil, Options{Seed: 1}, testLogger())
	_, err := pipeline.Generate(context.Background(), g)
	assert.ErrorIs(t, err, types.ErrNotPersonNode)
}

func TestGenerateInvalidGraph(t *testing.T) {
	g := graph.New()
	addTestNode(t, g, "a", types.PersonNodeType, "Ada Moreno", "name", "Ada Moreno")
	addTestNode(t, g, "b", types.PersonNodeType, "Ada Moreno", "name", "Ada Moreno")

	pipeline := New(nil, Options{Seed: 1}, testLogger())
	_, err := pipeline.Generate(context.Background(), g)
	assert.ErrorIs(t, err, types.ErrGraphInvalid)
}

func TestGenerateIsolatedFocalNode(t *testing.T) {
	g := graph.New()
	addTestNode(t, g, "hermit", types.PersonNodeType, "Odo Ferrin", "age", "80")
	require.NoError(t, graph.MustValidate(g))

	pipeline := New(nil, Options{FocalNodes: 1, QueriesPerHop: 2, UpdatesPerNode: 2, Seed: 5}, testLogger())
	result, err := pipeline.Generate(context.Background(), g)
	require.NoError(t, err)

	require.Len(t, result.Reports, 1)
	report := result.Reports[0]
	assert.False(t, report.Skipped)
	// The only fact is the age attribute at hop zero.
	assert.Equal(t, 1, report.Queries)
	assert.Equal(t, 1, report.Shortfall[0])
	assert.Equal(t, 2, report.Shortfall[1])
}

func TestGenerateMoreFocalsThanPersons(t *testing.T) {
	g := familyGraph(t)

	pipeline := New(nil, Options{FocalNodes: 10, QueriesPerHop: 2, UpdatesPerNode: 1, Seed: 9}, testLogger())
	result, err := pipeline.Generate(context.Background(), g)
	require.NoError(t, err)

	assert.Len(t, result.Reports, 3, "only three person nodes exist")
}

func TestGenerateContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := New(nil, Options{FocalNodes: 2, Seed: 1}, testLogger())
	_, err := pipeline.Generate(ctx, familyGraph(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunWithoutClient(t *testing.T) {
	pipeline := New(nil, Options{Seed: 1}, testLogger())
	_, err := pipeline.Run(context.Background(), "a fishing village", 3, 3)
	assert.Error(t, err)
}
