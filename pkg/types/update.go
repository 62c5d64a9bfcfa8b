package types

// UpdateKind distinguishes the two classes of simulated knowledge-base edits.
type UpdateKind string

const (
	// AttributeUpdate replaces the value of one node attribute.
	AttributeUpdate UpdateKind = "attribute"
	// RelationshipUpdate retargets one edge to a newly synthesized node.
	RelationshipUpdate UpdateKind = "relationship"
)

// FieldEntry locates one field inside a document for diffing: the block it
// lives in (by heading and block position) and its index among that block's
// fields, in the document version where the field exists.
type FieldEntry struct {
	Heading    string `json:"heading"`
	BlockIndex int    `json:"block_index"`
	Index      int    `json:"index"`
	Field      Field  `json:"field"`
}

// FieldDelta records an in-place change to a field matched by heading, label,
// and position across the two document versions.
type FieldDelta struct {
	Heading string `json:"heading"`
	Label   string `json:"label"`
	Index   int    `json:"index"`
	Old     Field  `json:"old"`
	New     Field  `json:"new"`
}

// DocumentDiff is the structural delta for one document key. A document that
// exists only in the new set has Created set and all its fields in Added;
// one that exists only in the old set has Deleted set and all its fields in
// Removed. Documents untouched by a mutation produce no DocumentDiff at all.
type DocumentDiff struct {
	Key     string       `json:"key"`
	Created bool         `json:"created,omitempty"`
	Deleted bool         `json:"deleted,omitempty"`
	Title   string       `json:"title,omitempty"`
	NodeID  string       `json:"node_id,omitempty"`
	// Position is the document's index within the set it exists in; only
	// meaningful for created or deleted documents.
	Position int `json:"position,omitempty"`
	Added   []FieldEntry `json:"added,omitempty"`
	Removed []FieldEntry `json:"removed,omitempty"`
	Changed []FieldDelta `json:"changed,omitempty"`
}

// Empty reports whether the diff records no change.
func (d *DocumentDiff) Empty() bool {
	return !d.Created && !d.Deleted &&
		len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// SetDiff is the structural delta between two document sets, ordered by
// document key. It is symmetric-complete: applying it to the old set yields
// the new set, and applying its inverse to the new set yields the old set.
type SetDiff struct {
	Documents []DocumentDiff `json:"documents"`
}

// Empty reports whether no document changed.
func (d *SetDiff) Empty() bool { return len(d.Documents) == 0 }

// Keys returns the keys of all documents the diff touches.
func (d *SetDiff) Keys() []string {
	keys := make([]string, len(d.Documents))
	for i, doc := range d.Documents {
		keys[i] = doc.Key
	}
	return keys
}

// UpdateScenario is one simulated knowledge-base edit: the traced fact path
// before and after the change, the node the change belongs to, and the exact
// document-level delta the edit causes.
type UpdateScenario struct {
	// OldPath and NewPath trace the mutated fact from the focal node, ending
	// in either "attr=value" (attribute updates) or the neighbor's name
	// (relationship updates).
	OldPath []string `json:"old_path"`
	NewPath []string `json:"new_path"`

	ChangedNodeID string     `json:"changed_node_id"`
	Kind          UpdateKind `json:"kind"`
	Diff          SetDiff    `json:"diff"`

	// Queries holds natural-language phrasings of the edit when a text
	// generation service was available; empty otherwise.
	Queries []string `json:"queries,omitempty"`
}
