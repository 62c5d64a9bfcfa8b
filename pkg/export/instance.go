package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/types"
)

// Instance owns the output directory for one generation run:
//
//	<base>/<instance-id>/graph.json
//	<base>/<instance-id>/memory_<hex>/user.md
//	<base>/<instance-id>/memory_<hex>/entities/<type>/<slug>.md
//	<base>/<instance-id>/memory_<hex>/queries.json|.parquet
//	<base>/<instance-id>/memory_<hex>/updates.json|.parquet
type Instance struct {
	ID   string
	Path string
}

// NewInstance creates the directory for a fresh run under base.
func NewInstance(base string) (*Instance, error) {
	id := uuid.NewString()
	path := filepath.Join(base, id)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating instance directory: %w", err)
	}
	return &Instance{ID: id, Path: path}, nil
}

// WriteGraph stores the validated graph as graph.json.
func (i *Instance) WriteGraph(g *graph.Graph) error {
	data, err := json.MarshalIndent(g.Payload(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	if err := os.WriteFile(filepath.Join(i.Path, "graph.json"), data, 0644); err != nil {
		return fmt.Errorf("writing graph.json: %w", err)
	}
	return nil
}

// Memory is the artifact bundle for a single focal node.
type Memory struct {
	ID        string
	Documents *types.DocumentSet
	Queries   []types.QueryRecord
	Updates   []*types.UpdateScenario
}

// NewMemoryID mints a memory directory name.
func NewMemoryID() string {
	return "memory_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WriteMemory writes one focal node's bundle into its memory directory.
func (i *Instance) WriteMemory(m *Memory) error {
	dir := filepath.Join(i.Path, m.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating memory directory: %w", err)
	}

	if err := WriteDocuments(dir, m.Documents); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(dir, "queries.json"), m.Queries); err != nil {
		return err
	}
	if err := WriteQueriesParquet(filepath.Join(dir, "queries.parquet"), m.ID, m.Queries); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(dir, "updates.json"), m.Updates); err != nil {
		return err
	}
	if err := WriteUpdatesParquet(filepath.Join(dir, "updates.parquet"), m.ID, m.Updates); err != nil {
		return err
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
