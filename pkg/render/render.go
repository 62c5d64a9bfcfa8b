// Package render turns a focal node's bounded-radius neighborhood into a set
// of cross-linked documents. Rendering is deterministic and idempotent: the
// same graph and focal node always produce byte-identical documents, which
// the update differ depends on.
package render

import (
	"fmt"
	"strings"

	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/types"
)

// DefaultRadius is the neighborhood radius used when none is given.
const DefaultRadius = 2

// Section headings used in rendered documents.
const (
	HeadingBasicInfo     = "Basic Information"
	HeadingRelationships = "Relationships"
)

// LinkResolutionError reports a dangling link in a rendered document set.
// The closure guarantee makes this unreachable for a validated graph; it
// exists so that an internal breach fails loudly instead of being patched
// over.
type LinkResolutionError struct {
	DocumentKey string
	Link        string
}

func (e *LinkResolutionError) Error() string {
	return fmt.Sprintf("document %q links to missing document %q", e.DocumentKey, e.Link)
}

// Render extracts the subgraph within radius hops of the focal node and
// serializes it into one document per collected node. Every edge with both
// endpoints inside the collected set becomes a relationship field linking to
// the target's document; links therefore always resolve within the set.
func Render(g *graph.Graph, focalID string, radius int) (*types.DocumentSet, error) {
	if radius < 0 {
		return nil, types.ErrInvalidRadius
	}
	if _, ok := g.Node(focalID); !ok {
		return nil, types.ErrNodeNotFound
	}

	ids := g.WithinRadius(focalID, radius)
	collected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		collected[id] = struct{}{}
	}

	keys := assignKeys(g, ids, focalID)

	set := &types.DocumentSet{}
	for _, id := range ids {
		node, _ := g.Node(id)
		doc := &types.Document{
			Key:    keys[id],
			Title:  node.Name,
			NodeID: id,
		}

		if len(node.Attributes) > 0 {
			block := types.Block{Heading: HeadingBasicInfo}
			for _, a := range node.Attributes {
				block.Fields = append(block.Fields, types.Field{
					Label: fieldLabel(a.Key),
					Value: a.Value,
				})
			}
			doc.Blocks = append(doc.Blocks, block)
		}

		rels := types.Block{Heading: HeadingRelationships}
		for _, e := range g.Outgoing(id) {
			if _, in := collected[e.TargetID]; !in {
				continue
			}
			target, _ := g.Node(e.TargetID)
			rels.Fields = append(rels.Fields, types.Field{
				Label: fieldLabel(e.Label),
				Value: target.Name,
				Link:  keys[e.TargetID],
			})
		}
		if len(rels.Fields) > 0 {
			doc.Blocks = append(doc.Blocks, rels)
		}

		set.Documents = append(set.Documents, doc)
	}

	if err := checkClosure(set); err != nil {
		return nil, err
	}
	return set, nil
}

// checkClosure verifies that every link resolves inside the set.
func checkClosure(set *types.DocumentSet) error {
	keys := make(map[string]struct{}, len(set.Documents))
	for _, d := range set.Documents {
		keys[d.Key] = struct{}{}
	}
	for _, d := range set.Documents {
		for _, link := range d.Links() {
			if _, ok := keys[link]; !ok {
				return &LinkResolutionError{DocumentKey: d.Key, Link: link}
			}
		}
	}
	return nil
}

// assignKeys maps each collected node id to its document key. The focal node
// gets the reserved "user" key; everyone else gets "<type>/<slug>", made
// unique with a numeric suffix on collision. ids must already be in render
// order so that suffix assignment is deterministic.
func assignKeys(g *graph.Graph, ids []string, focalID string) map[string]string {
	keys := make(map[string]string, len(ids))
	taken := map[string]struct{}{types.UserDocumentKey: {}}

	for _, id := range ids {
		if id == focalID {
			keys[id] = types.UserDocumentKey
			continue
		}
		node, _ := g.Node(id)
		base := fmt.Sprintf("%s/%s", Slug(string(node.Type)), Slug(node.Name))
		key := base
		for n := 2; ; n++ {
			if _, exists := taken[key]; !exists {
				break
			}
			key = fmt.Sprintf("%s_%d", base, n)
		}
		taken[key] = struct{}{}
		keys[id] = key
	}
	return keys
}

// Slug normalizes a name for use in document keys and link targets:
// lowercase, spaces to underscores, path separators stripped.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// fieldLabel turns an attribute key or relation label into its display form:
// underscores to spaces, words title-cased ("works_at" -> "Works At").
func fieldLabel(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
