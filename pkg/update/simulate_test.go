package update

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/types"
)

func TestSimulateAttributeUpdate(t *testing.T) {
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada Moreno", "name", "Ada Moreno", "age", "36")
	docs := renderSet(t, g, "a")
	rng := rand.New(rand.NewSource(3))

	scenario, err := Simulate(g, docs, "a", rng, nil)
	require.NoError(t, err)

	// The age attribute is the only mutable fact: name is identifying.
	assert.Equal(t, types.AttributeUpdate, scenario.Kind)
	assert.Equal(t, "a", scenario.ChangedNodeID)
	assert.Equal(t, []string{"Ada Moreno", "age=36"}, scenario.OldPath)
	assert.Equal(t, []string{"Ada Moreno", "age=36 (updated)"}, scenario.NewPath)

	require.Equal(t, []string{"user"}, scenario.Diff.Keys())
	d := scenario.Diff.Documents[0]
	require.Len(t, d.Changed, 1)
	assert.Equal(t, "Age", d.Changed[0].Label)
	assert.Equal(t, "36", d.Changed[0].Old.Value)
	assert.Equal(t, "36 (updated)", d.Changed[0].New.Value)
}

func TestSimulateRelationshipUpdate(t *testing.T) {
	// No mutable attributes anywhere, so an edge retarget is the only option.
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada Moreno")
	addNode(t, g, "b", "restaurant", "Pangorio")
	addNode(t, g, "c", "city", "Trenton")
	require.NoError(t, g.AddEdge("a", "works_at", "b"))
	require.NoError(t, g.AddEdge("b", "located_in", "c"))
	docs := renderSet(t, g, "a")

	opts := &Options{NewNodeID: func() string { return "fresh" }}
	scenario, err := Simulate(g, docs, "a", rand.New(rand.NewSource(1)), opts)
	require.NoError(t, err)

	require.Equal(t, types.RelationshipUpdate, scenario.Kind)
	require.NotEmpty(t, scenario.OldPath)
	require.NotEmpty(t, scenario.NewPath)
	assert.Equal(t, "Ada Moreno", scenario.OldPath[0])
	assert.Equal(t, scenario.OldPath[:len(scenario.OldPath)-1], scenario.NewPath[:len(scenario.NewPath)-1],
		"old and new paths diverge only at the terminal neighbor")
	assert.NotEqual(t, scenario.OldPath[len(scenario.OldPath)-1], scenario.NewPath[len(scenario.NewPath)-1])

	// The diff must round-trip against the rendered documents.
	after := Apply(docs, scenario.Diff)
	assert.Equal(t, docs, Apply(after, Invert(scenario.Diff)))
}

func TestSimulateLeavesInputsUntouched(t *testing.T) {
	g := chainGraph(t)
	docs := renderSet(t, g, "a")
	gBefore := g.Clone()
	docsBefore := docs.Clone()

	_, err := Simulate(g, docs, "a", rand.New(rand.NewSource(9)), nil)
	require.NoError(t, err)

	assert.Equal(t, gBefore.Payload(), g.Payload())
	assert.Equal(t, docsBefore, docs)
}

func TestSimulateDeterministic(t *testing.T) {
	g := chainGraph(t)
	docs := renderSet(t, g, "a")
	opts := &Options{NewNodeID: func() string { return "fixed-id" }}

	first, err := Simulate(g, docs, "a", rand.New(rand.NewSource(42)), opts)
	require.NoError(t, err)
	second, err := Simulate(g, docs, "a", rand.New(rand.NewSource(42)), opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulateNoMutableFact(t *testing.T) {
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada Moreno", "name", "Ada Moreno")
	docs := renderSet(t, g, "a")

	_, err := Simulate(g, docs, "a", rand.New(rand.NewSource(1)), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &NoMutableFactError{}))

	var nmf *NoMutableFactError
	require.ErrorAs(t, err, &nmf)
	assert.Equal(t, "a", nmf.FocalID)
}

func TestSimulateExhaustion(t *testing.T) {
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada Moreno", "age", "36")
	docs := renderSet(t, g, "a")

	// A value function that changes nothing makes every attempt a no-op diff.
	opts := &Options{
		MaxAttempts: 3,
		NewValue:    func(_ *types.Node, _, old string) string { return old },
	}
	_, err := Simulate(g, docs, "a", rand.New(rand.NewSource(1)), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &MutationExhaustedError{}))

	var me *MutationExhaustedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 1, me.Attempts, "one candidate, one attempt")
}

func TestSimulateSkipsIdentifyingAttributes(t *testing.T) {
	g := graph.New()
	addNode(t, g, "a", types.PersonNodeType, "Ada Moreno",
		"name", "Ada Moreno", "birth_date", "1989-03-14", "age", "36")
	docs := renderSet(t, g, "a")

	for seed := int64(0); seed < 10; seed++ {
		scenario, err := Simulate(g, docs, "a", rand.New(rand.NewSource(seed)), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Ada Moreno", "age=36"}, scenario.OldPath)
	}
}
