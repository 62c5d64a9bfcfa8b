// Package types defines the shared data model for synthetic knowledge-base
// generation: graph nodes and edges, rendered documents, derived query
// records, and update scenarios with their structural diffs.
package types
