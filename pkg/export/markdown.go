// Package export writes generation artifacts to their on-disk layout:
// markdown document trees, graph JSON, parquet datasets, and an optional
// Neo4j mirror of a validated graph.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soundprediction/synthmem/pkg/types"
)

// DocumentPath returns the file path of a document inside a memory
// directory: the focal document is user.md at the root, every other
// document lives under entities/ keyed by its type and slug.
func DocumentPath(key string) string {
	if key == types.UserDocumentKey {
		return "user.md"
	}
	return filepath.Join("entities", key+".md")
}

// RenderMarkdown serializes one document: a title header, then one section
// per block with bold field labels. Link fields point at the target
// document's file path in wiki-link form.
func RenderMarkdown(doc *types.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", doc.Title)

	for _, block := range doc.Blocks {
		fmt.Fprintf(&sb, "\n## %s\n", block.Heading)
		for _, f := range block.Fields {
			if f.Link != "" {
				fmt.Fprintf(&sb, "- **%s**: [[%s]]\n", f.Label, DocumentPath(f.Link))
			} else {
				fmt.Fprintf(&sb, "- **%s**: %s\n", f.Label, f.Value)
			}
		}
	}
	return sb.String()
}

// WriteDocuments writes every document of the set under dir using
// DocumentPath for layout.
func WriteDocuments(dir string, set *types.DocumentSet) error {
	for _, doc := range set.Documents {
		path := filepath.Join(dir, DocumentPath(doc.Key))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating document directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(RenderMarkdown(doc)), 0644); err != nil {
			return fmt.Errorf("writing document %s: %w", doc.Key, err)
		}
	}
	return nil
}
