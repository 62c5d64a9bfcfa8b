package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// World is one scenario definition: a world description plus per-world
// overrides of the generation knobs.
type World struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Zero values fall back to the run-level generation config.
	People         int `yaml:"people,omitempty"`
	Entities       int `yaml:"entities,omitempty"`
	FocalNodes     int `yaml:"focal_nodes,omitempty"`
	QueriesPerHop  int `yaml:"queries_per_hop,omitempty"`
	UpdatesPerNode int `yaml:"updates_per_node,omitempty"`
}

// WorldsFile is the YAML shape of a worlds definition file.
type WorldsFile struct {
	Worlds []World `yaml:"worlds"`
}

// LoadWorlds reads and validates a worlds YAML file.
func LoadWorlds(path string) ([]World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading worlds file: %w", err)
	}

	var file WorldsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing worlds file: %w", err)
	}
	if len(file.Worlds) == 0 {
		return nil, fmt.Errorf("worlds file %s defines no worlds", path)
	}

	for i, w := range file.Worlds {
		if strings.TrimSpace(w.Description) == "" {
			return nil, fmt.Errorf("world %d (%q) has an empty description", i, w.Name)
		}
	}
	return file.Worlds, nil
}

// Apply merges a world's overrides onto the run-level generation config.
func (w World) Apply(gen GenerationConfig) GenerationConfig {
	if w.People > 0 {
		gen.People = w.People
	}
	if w.Entities > 0 {
		gen.Entities = w.Entities
	}
	if w.FocalNodes > 0 {
		gen.FocalNodes = w.FocalNodes
	}
	if w.QueriesPerHop > 0 {
		gen.QueriesPerHop = w.QueriesPerHop
	}
	if w.UpdatesPerNode > 0 {
		gen.UpdatesPerNode = w.UpdatesPerNode
	}
	return gen
}
