package export

import (
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/synthmem/pkg/types"
)

// ParquetQueryRecord is the parquet schema for one derived query.
type ParquetQueryRecord struct {
	MemoryID    string `parquet:"memory_id"`
	HopDistance int    `parquet:"hop_distance"`
	Question    string `parquet:"question"`
	Answer      string `parquet:"answer"`
	Path        string `parquet:"path"` // JSON-encoded []PathStep
}

// ParquetUpdateRecord is the parquet schema for one simulated update.
type ParquetUpdateRecord struct {
	MemoryID      string `parquet:"memory_id"`
	Kind          string `parquet:"kind"`
	ChangedNodeID string `parquet:"changed_node_id"`
	OldPath       string `parquet:"old_path"` // JSON-encoded []string
	NewPath       string `parquet:"new_path"`
	Queries       string `parquet:"queries"` // JSON-encoded []string
	Diff          string `parquet:"diff"`    // JSON-encoded SetDiff
}

// WriteQueriesParquet writes derived queries for one memory instance.
func WriteQueriesParquet(path, memoryID string, records []types.QueryRecord) error {
	rows := make([]ParquetQueryRecord, len(records))
	for i, r := range records {
		pathJSON, err := json.Marshal(r.Path)
		if err != nil {
			return fmt.Errorf("encoding query path: %w", err)
		}
		rows[i] = ParquetQueryRecord{
			MemoryID:    memoryID,
			HopDistance: r.HopDistance,
			Question:    r.Question,
			Answer:      r.Answer,
			Path:        string(pathJSON),
		}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("writing queries parquet: %w", err)
	}
	return nil
}

// WriteUpdatesParquet writes simulated updates for one memory instance.
func WriteUpdatesParquet(path, memoryID string, scenarios []*types.UpdateScenario) error {
	rows := make([]ParquetUpdateRecord, len(scenarios))
	for i, s := range scenarios {
		oldPath, err := json.Marshal(s.OldPath)
		if err != nil {
			return fmt.Errorf("encoding old path: %w", err)
		}
		newPath, err := json.Marshal(s.NewPath)
		if err != nil {
			return fmt.Errorf("encoding new path: %w", err)
		}
		queries, err := json.Marshal(s.Queries)
		if err != nil {
			return fmt.Errorf("encoding queries: %w", err)
		}
		diff, err := json.Marshal(s.Diff)
		if err != nil {
			return fmt.Errorf("encoding diff: %w", err)
		}
		rows[i] = ParquetUpdateRecord{
			MemoryID:      memoryID,
			Kind:          string(s.Kind),
			ChangedNodeID: s.ChangedNodeID,
			OldPath:       string(oldPath),
			NewPath:       string(newPath),
			Queries:       string(queries),
			Diff:          string(diff),
		}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("writing updates parquet: %w", err)
	}
	return nil
}
