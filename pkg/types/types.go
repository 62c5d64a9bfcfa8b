package types

import (
	"errors"
)

// Validation errors
var (
	ErrEmptyID        = errors.New("id cannot be empty")
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrEmptyType      = errors.New("type cannot be empty")
	ErrEmptyLabel     = errors.New("relation label cannot be empty")
	ErrSelfLoop       = errors.New("self-loops are not allowed")
	ErrDuplicateEdge  = errors.New("duplicate (source, label, target) edge")
	ErrDuplicateNode  = errors.New("node id already exists")
	ErrNodeNotFound   = errors.New("node not found")
	ErrEdgeNotFound   = errors.New("edge not found")
	ErrGraphInvalid   = errors.New("graph failed consistency validation")
	ErrInvalidRadius  = errors.New("radius must be non-negative")
	ErrNotPersonNode  = errors.New("focal node must be a person")
	ErrEmptyDocument  = errors.New("document has no content")
	ErrEmptyWorld     = errors.New("world description cannot be empty")
)

// NodeType tags a node with its entity kind. Person nodes are the anchors
// around which neighborhoods, queries, and update scenarios are generated;
// every other value is a free-form entity kind ("restaurant", "city", ...).
type NodeType string

// PersonNodeType is the node type for people.
const PersonNodeType NodeType = "person"

// IsPerson reports whether the type tags a person node.
func (t NodeType) IsPerson() bool { return t == PersonNodeType }

// Attribute is a single named scalar on a node. Attributes are kept as an
// ordered slice rather than a map so that rendering is deterministic.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Node is a single entity in the knowledge graph.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Name string   `json:"name"`

	// Attributes preserves insertion order for deterministic rendering.
	Attributes []Attribute `json:"attributes"`

	// Seq is the insertion ordinal within the owning graph, used for
	// deterministic tie-breaking. Assigned by the graph on AddNode.
	Seq int `json:"seq"`
}

// Validate checks the node's required fields.
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrEmptyID
	}
	if n.Name == "" {
		return ErrEmptyName
	}
	if n.Type == "" {
		return ErrEmptyType
	}
	return nil
}

// Attr returns the value of the named attribute, if present.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces the named attribute in place, or appends it if absent.
func (n *Node) SetAttr(key, value string) {
	for i, a := range n.Attributes {
		if a.Key == key {
			n.Attributes[i].Value = value
			return
		}
	}
	n.Attributes = append(n.Attributes, Attribute{Key: key, Value: value})
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	out := *n
	out.Attributes = make([]Attribute, len(n.Attributes))
	copy(out.Attributes, n.Attributes)
	return &out
}

// Edge is a directed, labeled relationship between two nodes. Multiple edges
// between the same pair are allowed as long as their labels differ.
type Edge struct {
	SourceID string `json:"source_id"`
	Label    string `json:"label"`
	TargetID string `json:"target_id"`

	// Seq is the insertion ordinal within the owning graph.
	Seq int `json:"seq"`
}

// Validate checks the edge's required fields and the self-loop rule.
func (e *Edge) Validate() error {
	if e.SourceID == "" || e.TargetID == "" {
		return ErrEmptyID
	}
	if e.Label == "" {
		return ErrEmptyLabel
	}
	if e.SourceID == e.TargetID {
		return ErrSelfLoop
	}
	return nil
}

// Triple returns the identifying (source, label, target) key of the edge.
func (e *Edge) Triple() string {
	return e.SourceID + "\x00" + e.Label + "\x00" + e.TargetID
}

// GraphPayload is the serialized form of a graph: node ids, types, names,
// attributes in insertion order, and the full edge list. It is sufficient to
// reconstruct the graph exactly.
type GraphPayload struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Role represents a chat message role.
type Role string

// Message is a single chat message sent to the text generation service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is a completion returned by the text generation service.
type Response struct {
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Model        string      `json:"model,omitempty"`
	TokensUsed   *TokenUsage `json:"tokens_used,omitempty"`
}

// TokenUsage holds token accounting for a single generation call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
