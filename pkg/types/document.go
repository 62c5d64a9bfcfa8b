package types

// UserDocumentKey is the reserved document key for the focal node's own
// document.
const UserDocumentKey = "user"

// Field is one labeled entry inside a document block. Relationship fields
// carry a Link to the target document's key; attribute fields leave it empty.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Link  string `json:"link,omitempty"`
}

// Equal reports whether two fields are identical.
func (f Field) Equal(other Field) bool {
	return f.Label == other.Label && f.Value == other.Value && f.Link == other.Link
}

// Block is an ordered group of fields under a section heading.
type Block struct {
	Heading string  `json:"heading"`
	Fields  []Field `json:"fields"`
}

// Document is one rendered entry in a DocumentSet. The focal node's document
// uses the reserved key "user"; every other document key is derived from the
// node's type and name.
type Document struct {
	Key    string  `json:"key"`
	Title  string  `json:"title"`
	NodeID string  `json:"node_id"`
	Blocks []Block `json:"blocks"`
}

// Links returns the keys of every document this document references, in
// field order.
func (d *Document) Links() []string {
	var links []string
	for _, b := range d.Blocks {
		for _, f := range b.Fields {
			if f.Link != "" {
				links = append(links, f.Link)
			}
		}
	}
	return links
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{Key: d.Key, Title: d.Title, NodeID: d.NodeID}
	out.Blocks = make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		nb := Block{Heading: b.Heading, Fields: make([]Field, len(b.Fields))}
		copy(nb.Fields, b.Fields)
		out.Blocks[i] = nb
	}
	return out
}

// DocumentSet is the collection of rendered documents for one focal node's
// neighborhood, ordered deterministically (focal document first, then by the
// underlying nodes' insertion ordinals).
type DocumentSet struct {
	Documents []*Document `json:"documents"`
}

// Get returns the document with the given key, if present.
func (s *DocumentSet) Get(key string) (*Document, bool) {
	for _, d := range s.Documents {
		if d.Key == key {
			return d, true
		}
	}
	return nil, false
}

// Keys returns all document keys in set order.
func (s *DocumentSet) Keys() []string {
	keys := make([]string, len(s.Documents))
	for i, d := range s.Documents {
		keys[i] = d.Key
	}
	return keys
}

// Clone returns a deep copy of the set.
func (s *DocumentSet) Clone() *DocumentSet {
	out := &DocumentSet{Documents: make([]*Document, len(s.Documents))}
	for i, d := range s.Documents {
		out.Documents[i] = d.Clone()
	}
	return out
}
