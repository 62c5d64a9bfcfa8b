package export

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/soundprediction/synthmem/pkg/graph"
)

// Neo4jExporter mirrors a validated graph into a Neo4j instance for
// inspection. Nodes are MERGEd by id, so re-exporting the same instance is
// idempotent.
type Neo4jExporter struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jExporter connects to a Neo4j instance.
func NewNeo4jExporter(uri, username, password, database string) (*Neo4jExporter, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jExporter{client: driver, database: database}, nil
}

// Export writes every node and edge of the graph. instanceID tags all
// written records so multiple runs can share a database.
func (e *Neo4jExporter) Export(ctx context.Context, g *graph.Graph, instanceID string) error {
	session := e.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: e.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, n := range g.Nodes() {
			attrs := make(map[string]any, len(n.Attributes))
			for _, a := range n.Attributes {
				attrs[a.Key] = a.Value
			}
			query := `
				MERGE (n:Entity {id: $id, instance_id: $instance_id})
				SET n.name = $name, n.node_type = $node_type, n += $attrs
			`
			if _, err := tx.Run(ctx, query, map[string]any{
				"id":          n.ID,
				"instance_id": instanceID,
				"name":        n.Name,
				"node_type":   string(n.Type),
				"attrs":       attrs,
			}); err != nil {
				return nil, fmt.Errorf("merging node %s: %w", n.ID, err)
			}
		}

		for _, edge := range g.Edges() {
			query := `
				MATCH (s:Entity {id: $source_id, instance_id: $instance_id})
				MATCH (t:Entity {id: $target_id, instance_id: $instance_id})
				MERGE (s)-[r:RELATES {label: $label}]->(t)
			`
			if _, err := tx.Run(ctx, query, map[string]any{
				"source_id":   edge.SourceID,
				"target_id":   edge.TargetID,
				"instance_id": instanceID,
				"label":       edge.Label,
			}); err != nil {
				return nil, fmt.Errorf("merging edge %s-[%s]->%s: %w",
					edge.SourceID, edge.Label, edge.TargetID, err)
			}
		}
		return nil, nil
	})
	return err
}

// Close releases the driver.
func (e *Neo4jExporter) Close(ctx context.Context) error {
	return e.client.Close(ctx)
}
