package builder

import "strconv"

// Payload shapes for structured model output. Each phase decodes into one of
// these before anything touches the graph.

type personStub struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type entityStub struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EntityType string `json:"entity_type,omitempty"`
}

type stubResponse struct {
	People   []personStub `json:"people"`
	Entities []entityStub `json:"entities"`
}

type edgePlan struct {
	SubjectID string `json:"subject_id"`
	Predicate string `json:"predicate"`
	ObjectID  string `json:"object_id"`
}

type edgeResponse struct {
	Edges []edgePlan `json:"edges"`
}

type attrPair struct {
	Key string `json:"key"`
	// Value may arrive as string, number, or bool; it is stringified at
	// this boundary.
	Value any `json:"value"`
}

type attrList struct {
	Attributes []attrPair `json:"attributes"`
}

// stringify converts a decoded JSON scalar to its attribute string form.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return ""
	}
}
