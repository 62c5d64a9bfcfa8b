package types

// PathStep is one step of a traced path from the focal node to an answer.
// Relation names the edge taken to reach the node; it is empty on the first
// step. Attribute is set on the terminal step when the answer is a node
// attribute rather than the node's identity.
type PathStep struct {
	NodeID    string `json:"node_id"`
	NodeName  string `json:"node_name"`
	Relation  string `json:"relation,omitempty"`
	Attribute string `json:"attribute,omitempty"`
}

// QueryRecord is a single derived question/answer pair with its full
// provenance path for traceability and grading.
type QueryRecord struct {
	// HopDistance is the graph-shortest-path edge count from the focal node
	// to the node the fact belongs to: 0, 1, or 2.
	HopDistance int `json:"hop_distance"`

	// Path is the ordered step sequence from the focal node to the answer.
	Path []PathStep `json:"path"`

	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HopCounts requests how many queries to derive per hop distance.
type HopCounts [3]int

// Total returns the sum over all hop distances.
func (c HopCounts) Total() int { return c[0] + c[1] + c[2] }

// DeriveResult is the output of query derivation for one focal node.
// Shortfall[d] is non-zero when fewer than the requested number of facts
// exist at hop distance d; the available ones are still returned.
type DeriveResult struct {
	Records   []QueryRecord `json:"records"`
	Shortfall HopCounts     `json:"shortfall,omitempty"`
}
