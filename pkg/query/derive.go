// Package query enumerates graph facts within two hops of a focal node and
// packages each as a structured (path, answer) record. Question text here is
// a deterministic structural phrasing; natural-language rewording is
// delegated to the text generation service by the pipeline.
package query

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/types"
)

// Derive enumerates all 0-, 1-, and 2-hop facts around the focal node and
// samples counts[d] of them per hop distance without replacement using the
// supplied random source. When fewer facts exist than requested, all
// available facts are returned and the shortfall is flagged on the result.
func Derive(g *graph.Graph, focalID string, counts types.HopCounts, rng *rand.Rand) (*types.DeriveResult, error) {
	focal, ok := g.Node(focalID)
	if !ok {
		return nil, types.ErrNodeNotFound
	}

	facts := [3][]types.QueryRecord{
		enumerateZeroHop(focal),
		enumerateOneHop(g, focal),
		enumerateTwoHop(g, focal),
	}

	result := &types.DeriveResult{}
	for hop := 0; hop < 3; hop++ {
		want := counts[hop]
		have := facts[hop]
		switch {
		case want <= 0:
			continue
		case len(have) <= want:
			result.Records = append(result.Records, have...)
			result.Shortfall[hop] = want - len(have)
		default:
			result.Records = append(result.Records, sample(have, want, rng)...)
		}
	}
	return result, nil
}

// sample selects n records without replacement, preserving enumeration order
// among the selected.
func sample(records []types.QueryRecord, n int, rng *rand.Rand) []types.QueryRecord {
	picked := rng.Perm(len(records))[:n]
	sort.Ints(picked)
	out := make([]types.QueryRecord, n)
	for i, idx := range picked {
		out[i] = records[idx]
	}
	return out
}

// enumerateZeroHop yields one fact per attribute of the focal node itself.
func enumerateZeroHop(focal *types.Node) []types.QueryRecord {
	var records []types.QueryRecord
	for _, a := range focal.Attributes {
		records = append(records, types.QueryRecord{
			HopDistance: 0,
			Path: []types.PathStep{
				{NodeID: focal.ID, NodeName: focal.Name, Attribute: a.Key},
			},
			Question: fmt.Sprintf("What is the %s of %s?", phrase(a.Key), focal.Name),
			Answer:   a.Value,
		})
	}
	return records
}

// enumerateOneHop yields, for each directly connected node in either
// direction, an identity fact plus one fact per attribute.
func enumerateOneHop(g *graph.Graph, focal *types.Node) []types.QueryRecord {
	var records []types.QueryRecord

	addFacts := func(nbr *types.Node, relation string, incoming bool) {
		step := types.PathStep{NodeID: nbr.ID, NodeName: nbr.Name, Relation: relation}
		base := []types.PathStep{{NodeID: focal.ID, NodeName: focal.Name}, step}

		var identity string
		if incoming {
			identity = fmt.Sprintf("Who or what %s %s?", phrase(relation), focal.Name)
		} else {
			identity = fmt.Sprintf("Who or what does %s %s?", focal.Name, phrase(relation))
		}
		records = append(records, types.QueryRecord{
			HopDistance: 1,
			Path:        base,
			Question:    identity,
			Answer:      nbr.Name,
		})

		for _, a := range nbr.Attributes {
			path := make([]types.PathStep, len(base))
			copy(path, base)
			path[len(path)-1].Attribute = a.Key

			var q string
			if incoming {
				q = fmt.Sprintf("What is the %s of the entity that %s %s?",
					phrase(a.Key), phrase(relation), focal.Name)
			} else {
				q = fmt.Sprintf("What is the %s of the entity that %s %s?",
					phrase(a.Key), focal.Name, phrase(relation))
			}
			records = append(records, types.QueryRecord{
				HopDistance: 1,
				Path:        path,
				Question:    q,
				Answer:      a.Value,
			})
		}
	}

	for _, e := range g.Outgoing(focal.ID) {
		if nbr, ok := g.Node(e.TargetID); ok {
			addFacts(nbr, e.Label, false)
		}
	}
	for _, e := range g.Incoming(focal.ID) {
		if nbr, ok := g.Node(e.SourceID); ok {
			addFacts(nbr, e.Label, true)
		}
	}
	return records
}

// enumerateTwoHop yields one fact per attribute of each node exactly two
// edges out, reached through one intermediate via outgoing edges. Every
// distinct (first edge, second edge, attribute) path produces its own
// record; a terminal node reachable through several intermediates appears
// once per path. Hop distance is verified against the actual shortest path
// so a fact about a direct neighbor is never mislabeled.
func enumerateTwoHop(g *graph.Graph, focal *types.Node) []types.QueryRecord {
	dist := g.HopDistances(focal.ID)

	var records []types.QueryRecord
	for _, first := range g.Outgoing(focal.ID) {
		mid, ok := g.Node(first.TargetID)
		if !ok {
			continue
		}
		for _, second := range g.Outgoing(mid.ID) {
			if second.TargetID == focal.ID {
				continue
			}
			end, ok := g.Node(second.TargetID)
			if !ok {
				continue
			}
			if dist[end.ID] != 2 {
				continue
			}
			for _, a := range end.Attributes {
				records = append(records, types.QueryRecord{
					HopDistance: 2,
					Path: []types.PathStep{
						{NodeID: focal.ID, NodeName: focal.Name},
						{NodeID: mid.ID, NodeName: mid.Name, Relation: first.Label},
						{NodeID: end.ID, NodeName: end.Name, Relation: second.Label, Attribute: a.Key},
					},
					Question: fmt.Sprintf("What is the %s of the entity that the %s %s %s is %s?",
						phrase(a.Key), string(mid.Type), focal.Name, phrase(first.Label), phrase(second.Label)),
					Answer: a.Value,
				})
			}
		}
	}
	return records
}

// phrase turns an attribute key or relation label into prose form.
func phrase(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
