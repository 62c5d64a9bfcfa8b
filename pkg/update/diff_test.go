package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/render"
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

// chainGraph builds Ada -works_at-> Pangorio -located_in-> Trenton.
func chainGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada Moreno", "age", "36")
	addNode(t, g, "b", "restaurant", "Pangorio", "cuisine", "italian")
	addNode(t, g, "c", "city", "Trenton", "state", "New Jersey")
	require.NoError(t, g.AddEdge("a", "works_at", "b"))
	require.NoError(t, g.AddEdge("b", "located_in", "c"))
	return g
}

func renderSet(t *testing.T, g *graph.Graph, focalID string) *types.DocumentSet {
	t.Helper()
	set, err := render.Render(g, focalID, render.DefaultRadius)
	require.NoError(t, err)
	return set
}

func TestDiffSetsIdentical(t *testing.T) {
	g := chainGraph(t)
	old := renderSet(t, g, "a")
	diff := DiffSets(old, renderSet(t, g, "a"))
	assert.True(t, diff.Empty())
}

func TestDiffSetsAttributeChangeIsLocal(t *testing.T) {
	g := chainGraph(t)
	old := renderSet(t, g, "a")

	mutated := g.Clone()
	require.NoError(t, mutated.SetAttribute("b", "cuisine", "french"))
	diff := DiffSets(old, renderSet(t, mutated, "a"))

	require.Equal(t, []string{"restaurant/pangorio"}, diff.Keys())
	d := diff.Documents[0]
	require.Len(t, d.Changed, 1)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Removed)
	assert.Equal(t, "Cuisine", d.Changed[0].Label)
	assert.Equal(t, "italian", d.Changed[0].Old.Value)
	assert.Equal(t, "french", d.Changed[0].New.Value)
}

// Retargeting Pangorio's located_in edge to a fresh city must change only the
// restaurant document, delete the old city's document, and create the new
// city's document. The user document contributes nothing to the diff.
func TestDiffSetsRetargetedEdge(t *testing.T) {
	g := chainGraph(t)
	old := renderSet(t, g, "a")

	mutated := g.Clone()
	require.NoError(t, mutated.AddNode(&types.Node{ID: "d", Type: "city", Name: "Dunmore"}))
	require.NoError(t, mutated.RetargetEdge("b", "located_in", "c", "d"))
	newSet := renderSet(t, mutated, "a")

	diff := DiffSets(old, newSet)
	require.ElementsMatch(t, []string{"restaurant/pangorio", "city/trenton", "city/dunmore"}, diff.Keys())

	for _, d := range diff.Documents {
		switch d.Key {
		case "restaurant/pangorio":
			require.Len(t, d.Changed, 1)
			assert.Equal(t, "Located In", d.Changed[0].Label)
			assert.Equal(t, "Trenton", d.Changed[0].Old.Value)
			assert.Equal(t, "city/trenton", d.Changed[0].Old.Link)
			assert.Equal(t, "Dunmore", d.Changed[0].New.Value)
			assert.Equal(t, "city/dunmore", d.Changed[0].New.Link)
		case "city/trenton":
			assert.True(t, d.Deleted)
			assert.Len(t, d.Removed, 1, "state attribute")
		case "city/dunmore":
			assert.True(t, d.Created)
			assert.Empty(t, d.Added, "placeholder city has no attributes")
		}
	}
}

func TestDiffRoundTrip(t *testing.T) {
	g := chainGraph(t)
	old := renderSet(t, g, "a")

	mutated := g.Clone()
	require.NoError(t, mutated.SetAttribute("c", "state", "Pennsylvania"))
	require.NoError(t, mutated.AddNode(&types.Node{ID: "d", Type: "city", Name: "Dunmore", Attributes: []types.Attribute{{Key: "state", Value: "Pennsylvania"}}}))
	require.NoError(t, mutated.AddEdge("a", "lives_in", "d"))
	newSet := renderSet(t, mutated, "a")

	diff := DiffSets(old, newSet)
	require.False(t, diff.Empty())

	assert.Equal(t, newSet, Apply(old, diff), "diff applied to old set reconstructs new set")
	assert.Equal(t, old, Apply(newSet, Invert(diff)), "inverse applied to new set reconstructs old set")
}

func TestDiffRoundTripRemovedField(t *testing.T) {
	old := &types.DocumentSet{Documents: []*types.Document{{
		Key: "user", Title: "Ada", NodeID: "a",
		Blocks: []types.Block{{
			Heading: render.HeadingBasicInfo,
			Fields: []types.Field{
				{Label: "Age", Value: "36"},
				{Label: "Occupation", Value: "chef"},
			},
		}},
	}}}
	newSet := &types.DocumentSet{Documents: []*types.Document{{
		Key: "user", Title: "Ada", NodeID: "a",
		Blocks: []types.Block{{
			Heading: render.HeadingBasicInfo,
			Fields:  []types.Field{{Label: "Age", Value: "36"}},
		}},
	}}}

	diff := DiffSets(old, newSet)
	require.Len(t, diff.Documents, 1)
	require.Len(t, diff.Documents[0].Removed, 1)
	assert.Equal(t, "Occupation", diff.Documents[0].Removed[0].Field.Label)

	assert.Equal(t, newSet, Apply(old, diff))
	assert.Equal(t, old, Apply(newSet, Invert(diff)))
}

// Two relationship fields can share a label. They pair by position, so
// changing the second one must not be misattributed to the first.
func TestDiffDuplicateLabelsPairInOrder(t *testing.T) {
	doc := func(second string) *types.Document {
		return &types.Document{
			Key: "user", Title: "Ada", NodeID: "a",
			Blocks: []types.Block{{
				Heading: render.HeadingRelationships,
				Fields: []types.Field{
					{Label: "Friend Of", Value: "Grace", Link: "person/grace"},
					{Label: "Friend Of", Value: second, Link: "person/" + render.Slug(second)},
				},
			}},
		}
	}
	old := &types.DocumentSet{Documents: []*types.Document{doc("Lin")}}
	newSet := &types.DocumentSet{Documents: []*types.Document{doc("Noor")}}

	diff := DiffSets(old, newSet)
	require.Len(t, diff.Documents, 1)
	require.Len(t, diff.Documents[0].Changed, 1)
	assert.Equal(t, 1, diff.Documents[0].Changed[0].Index)
	assert.Equal(t, "Lin", diff.Documents[0].Changed[0].Old.Value)
	assert.Equal(t, "Noor", diff.Documents[0].Changed[0].New.Value)

	assert.Equal(t, newSet, Apply(old, diff))
	assert.Equal(t, old, Apply(newSet, Invert(diff)))
}

func TestDiffRoundTripEmptiedBlockDropped(t *testing.T) {
	g := chainGraph(t)

	// Dropping Trenton's only attribute removes its whole Basic Information
	// block; the round trip must restore the block at its original position.
	mutated := g.Clone()
	node, ok := mutated.Node("c")
	require.True(t, ok)
	node.Attributes = nil

	old := renderSet(t, g, "a")
	newSet := renderSet(t, mutated, "a")

	diff := DiffSets(old, newSet)
	assert.Equal(t, newSet, Apply(old, diff))
	assert.Equal(t, old, Apply(newSet, Invert(diff)))
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	g := chainGraph(t)
	old := renderSet(t, g, "a")
	before := old.Clone()

	mutated := g.Clone()
	require.NoError(t, mutated.SetAttribute("b", "cuisine", "french"))
	diff := DiffSets(old, renderSet(t, mutated, "a"))

	_ = Apply(old, diff)
	assert.Equal(t, before, old)
}
