// Package builder constructs a knowledge graph for a world description in
// three model-driven phases: stub generation, edge planning, and per-node
// attribute enrichment. Every payload is decoded against a schema struct
// before it enters the graph, and the finished graph is validated before it
// is returned.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/nlp"
	"github.com/soundprediction/synthmem/pkg/types"
)

const (
	stubSystemPrompt = "You are a knowledge graph stub generator and a world builder. " +
		"Think thoroughly about the given world description, create a fictional world " +
		"that would fit into context with fictional people and entities. Be creative. " +
		"Every person and entity needs a unique id and a unique name."

	edgeSystemPrompt = "Given a world description, plan plausible relations between " +
		"the listed nodes. Use lowercase snake_case predicates. No self-loops or duplicates."

	enrichSystemPrompt = "You are a knowledge graph enricher. Given the world description " +
		"and a node, add attributes to enrich the node data. Try to add distinct attributes " +
		"to people for diversity. Add new made up details that do NOT CONFLICT with existing " +
		"information."
)

// GenerationError reports a failed build phase.
type GenerationError struct {
	Phase string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation phase %s failed: %v", e.Phase, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is implements errors.Is support for GenerationError.
func (e *GenerationError) Is(target error) bool {
	_, ok := target.(*GenerationError)
	return ok
}

// Builder drives the three build phases against a text generation client.
type Builder struct {
	client nlp.Client
	logger *slog.Logger
	// newID mints ids for stubs that arrive without one.
	newID func() string
}

// New creates a Builder. logger may be nil.
func New(client nlp.Client, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		client: client,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Build generates, connects, enriches, and validates a graph for the world
// description. The returned graph satisfies every consistency invariant; a
// graph that fails validation is never returned.
func (b *Builder) Build(ctx context.Context, world string, people, entities int) (*graph.Graph, error) {
	if strings.TrimSpace(world) == "" {
		return nil, types.ErrEmptyWorld
	}

	g := graph.New()

	if err := b.generateStubs(ctx, g, world, people, entities); err != nil {
		return nil, &GenerationError{Phase: "stubs", Err: err}
	}
	if err := b.planEdges(ctx, g, world); err != nil {
		return nil, &GenerationError{Phase: "edges", Err: err}
	}
	if err := b.enrich(ctx, g, world); err != nil {
		return nil, &GenerationError{Phase: "enrich", Err: err}
	}

	if err := graph.MustValidate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// generateStubs asks the model for person and entity stubs and adds one node
// per stub. Stubs with missing or colliding ids are repaired or skipped with
// a warning rather than failing the phase.
func (b *Builder) generateStubs(ctx context.Context, g *graph.Graph, world string, people, entities int) error {
	if entities < 1 {
		entities = 1
	}
	user := fmt.Sprintf("Create people=%d and entities=%d using: %s", people, entities, world)

	resp, err := b.client.ChatWithStructuredOutput(ctx, []types.Message{
		nlp.NewSystemMessage(stubSystemPrompt),
		nlp.NewUserMessage(user),
	}, &stubResponse{})
	if err != nil {
		return err
	}

	var stubs stubResponse
	if err := nlp.DecodeStructured("stubs", resp.Content, &stubs); err != nil {
		return err
	}
	if len(stubs.People) == 0 {
		return nlp.NewEmptyResponseError("stub response contained no people")
	}

	for _, p := range stubs.People {
		b.addStub(g, p.ID, types.PersonNodeType, p.Name)
	}
	for _, e := range stubs.Entities {
		kind := types.NodeType(strings.TrimSpace(e.EntityType))
		if kind == "" {
			kind = "entity"
		}
		b.addStub(g, e.ID, kind, e.Name)
	}
	return nil
}

func (b *Builder) addStub(g *graph.Graph, id string, kind types.NodeType, name string) {
	if strings.TrimSpace(name) == "" {
		b.logger.Warn("skipping stub with empty name", "id", id)
		return
	}
	if id == "" {
		id = b.newID()
	}
	node := &types.Node{ID: id, Type: kind, Name: strings.TrimSpace(name)}
	if err := g.AddNode(node); err != nil {
		b.logger.Warn("skipping stub", "id", id, "name", name, "error", err)
	}
}

// planEdges asks the model for relations over the current node set and adds
// each edge whose endpoints resolve. Endpoints are resolved by id first and
// by name as a fallback; unknown endpoints are skipped with a warning.
func (b *Builder) planEdges(ctx context.Context, g *graph.Graph, world string) error {
	type nodeRef struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	}

	nodes := g.Nodes()
	refs := make([]nodeRef, len(nodes))
	byID := make(map[string]struct{}, len(nodes))
	byName := make(map[string]string, len(nodes))
	for i, n := range nodes {
		refs[i] = nodeRef{ID: n.ID, Name: n.Name, Type: string(n.Type)}
		byID[n.ID] = struct{}{}
		byName[n.Name] = n.ID
	}

	payload, err := json.Marshal(refs)
	if err != nil {
		return err
	}

	resp, err := b.client.ChatWithStructuredOutput(ctx, []types.Message{
		nlp.NewSystemMessage(edgeSystemPrompt + "\n\nWorld: " + world),
		nlp.NewUserMessage(string(payload)),
	}, &edgeResponse{})
	if err != nil {
		return err
	}

	var plan edgeResponse
	if err := nlp.DecodeStructured("edges", resp.Content, &plan); err != nil {
		return err
	}

	resolve := func(ref string) (string, bool) {
		if _, ok := byID[ref]; ok {
			return ref, true
		}
		if id, ok := byName[ref]; ok {
			b.logger.Warn("edge endpoint resolved by name", "ref", ref, "id", id)
			return id, true
		}
		return "", false
	}

	for _, e := range plan.Edges {
		src, ok := resolve(e.SubjectID)
		if !ok {
			b.logger.Warn("skipping edge with unknown subject", "subject", e.SubjectID)
			continue
		}
		dst, ok := resolve(e.ObjectID)
		if !ok {
			b.logger.Warn("skipping edge with unknown object", "object", e.ObjectID)
			continue
		}
		label := strings.TrimSpace(e.Predicate)
		if label == "" {
			b.logger.Warn("skipping edge with empty predicate", "subject", src, "object", dst)
			continue
		}
		if err := g.AddEdge(src, label, dst); err != nil {
			b.logger.Warn("skipping edge", "subject", src, "label", label, "object", dst, "error", err)
		}
	}
	return nil
}

// enrich asks the model for additional attributes for each node in turn,
// grounded on a human-readable summary of the node and its 1-hop context.
// A failed node is skipped; the phase only fails when the context is done.
func (b *Builder) enrich(ctx context.Context, g *graph.Graph, world string) error {
	for _, node := range g.Nodes() {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := b.client.ChatWithStructuredOutput(ctx, []types.Message{
			nlp.NewSystemMessage(enrichSystemPrompt + "\n" + world),
			nlp.NewUserMessage("Node:\n" + b.describeNode(g, node.ID)),
		}, &attrList{})
		if err != nil {
			b.logger.Warn("enrichment failed for node", "id", node.ID, "name", node.Name, "error", err)
			continue
		}

		var attrs attrList
		if err := nlp.DecodeStructured("enrich", resp.Content, &attrs); err != nil {
			b.logger.Warn("enrichment response undecodable", "id", node.ID, "error", err)
			continue
		}

		for _, a := range attrs.Attributes {
			key := strings.TrimSpace(a.Key)
			value := stringify(a.Value)
			if key == "" || value == "" {
				continue
			}
			if err := g.SetAttribute(node.ID, key, value); err != nil {
				b.logger.Warn("skipping attribute", "id", node.ID, "key", key, "error", err)
			}
		}
	}
	return nil
}

// describeNode renders a node, its attributes, and its 1-hop neighborhood as
// prose for the enrichment prompt.
func (b *Builder) describeNode(g *graph.Graph, nodeID string) string {
	node, ok := g.Node(nodeID)
	if !ok {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "NODE: %s (ID: %s, Type: %s)\n", node.Name, node.ID, node.Type)

	sb.WriteString("ATTRIBUTES:\n")
	for _, a := range node.Attributes {
		fmt.Fprintf(&sb, "  - %s: %s\n", a.Key, a.Value)
	}

	if nbrs := g.Neighbors(nodeID); len(nbrs) > 0 {
		sb.WriteString("\nNEIGHBORS:\n")
		for _, id := range nbrs {
			nbr, ok := g.Node(id)
			if !ok {
				continue
			}
			pairs := make([]string, len(nbr.Attributes))
			for i, a := range nbr.Attributes {
				pairs[i] = a.Key + "=" + a.Value
			}
			attrs := strings.Join(pairs, ", ")
			if attrs == "" {
				attrs = "none"
			}
			fmt.Fprintf(&sb, "  - %s (ID: %s, Type: %s) attrs: %s\n", nbr.Name, nbr.ID, nbr.Type, attrs)
		}
	}

	sb.WriteString("\nRELATIONS:\n")
	for _, e := range g.Incoming(nodeID) {
		if src, ok := g.Node(e.SourceID); ok {
			fmt.Fprintf(&sb, "  %s --[%s]--> %s\n", src.Name, e.Label, node.Name)
		}
	}
	for _, e := range g.Outgoing(nodeID) {
		if dst, ok := g.Node(e.TargetID); ok {
			fmt.Fprintf(&sb, "  %s --[%s]--> %s\n", node.Name, e.Label, dst.Name)
		}
	}
	return sb.String()
}
