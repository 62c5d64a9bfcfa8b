package graph

import (
	"fmt"
	"strings"

	"github.com/soundprediction/synthmem/pkg/types"
)

// Invariant identifiers reported in violations.
const (
	InvariantEdgeEndpoints = "edge_endpoint_missing"
	InvariantUniquePersons = "duplicate_person_name"
	InvariantNoEmptyNodes  = "empty_node"
	InvariantUniqueNodeIDs = "duplicate_node_id"
)

// Violation describes one failed invariant, pointing at the offending node
// or edge.
type Violation struct {
	Invariant string      `json:"invariant"`
	NodeID    string      `json:"node_id,omitempty"`
	Edge      *types.Edge `json:"edge,omitempty"`
	Detail    string      `json:"detail"`
}

// ValidationResult holds the outcome of a full consistency pass.
type ValidationResult struct {
	OK         bool        `json:"ok"`
	Violations []Violation `json:"violations,omitempty"`
}

// ValidationError reports a graph that failed validation. It is fatal to the
// scenario: no derived artifact may be produced from an invalid graph.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "graph validation failed"
	}
	details := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		details[i] = v.Detail
	}
	return fmt.Sprintf("graph validation failed with %d violation(s): %s",
		len(e.Violations), strings.Join(details, "; "))
}

// Is supports errors.Is against types.ErrGraphInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == types.ErrGraphInvalid
}

// Validate runs every consistency invariant over the graph in a single
// exhaustive pass. It never short-circuits: callers get all violations at
// once. The graph is not modified.
func Validate(g *Graph) ValidationResult {
	var violations []Violation

	// Duplicate node ids. The container prevents these on AddNode, but a
	// deserialized payload can carry them.
	seenIDs := make(map[string]bool)
	for _, n := range g.nodes {
		if seenIDs[n.ID] {
			violations = append(violations, Violation{
				Invariant: InvariantUniqueNodeIDs,
				NodeID:    n.ID,
				Detail:    fmt.Sprintf("node id %q appears more than once", n.ID),
			})
		}
		seenIDs[n.ID] = true
	}

	// Duplicate person names (case-sensitive exact match). Only people are
	// held to name uniqueness; other entity kinds may collide and are
	// disambiguated at render time instead.
	personNames := make(map[string]string)
	for _, n := range g.nodes {
		if !n.Type.IsPerson() {
			continue
		}
		if firstID, dup := personNames[n.Name]; dup {
			violations = append(violations, Violation{
				Invariant: InvariantUniquePersons,
				NodeID:    n.ID,
				Detail:    fmt.Sprintf("person name %q shared by nodes %s and %s", n.Name, firstID, n.ID),
			})
			continue
		}
		personNames[n.Name] = n.ID
	}

	// Edge endpoints must reference existing nodes.
	for _, e := range g.edges {
		if _, ok := g.byID[e.SourceID]; !ok {
			violations = append(violations, Violation{
				Invariant: InvariantEdgeEndpoints,
				Edge:      e,
				Detail:    fmt.Sprintf("edge %s-[%s]->%s references missing source node", e.SourceID, e.Label, e.TargetID),
			})
		}
		if _, ok := g.byID[e.TargetID]; !ok {
			violations = append(violations, Violation{
				Invariant: InvariantEdgeEndpoints,
				Edge:      e,
				Detail:    fmt.Sprintf("edge %s-[%s]->%s references missing target node", e.SourceID, e.Label, e.TargetID),
			})
		}
	}

	// No fully-empty nodes: every node carries at least one non-empty
	// attribute or one incident edge.
	for _, n := range g.nodes {
		if len(g.out[n.ID]) > 0 || len(g.in[n.ID]) > 0 {
			continue
		}
		hasAttr := false
		for _, a := range n.Attributes {
			if a.Value != "" {
				hasAttr = true
				break
			}
		}
		if !hasAttr {
			violations = append(violations, Violation{
				Invariant: InvariantNoEmptyNodes,
				NodeID:    n.ID,
				Detail:    fmt.Sprintf("node %s (%q) has no attributes and no edges", n.ID, n.Name),
			})
		}
	}

	return ValidationResult{OK: len(violations) == 0, Violations: violations}
}

// MustValidate returns a ValidationError when the graph is invalid, nil
// otherwise.
func MustValidate(g *Graph) error {
	result := Validate(g)
	if result.OK {
		return nil
	}
	return &ValidationError{Violations: result.Violations}
}
