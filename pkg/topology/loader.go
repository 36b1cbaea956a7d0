package topology

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the on-disk topology format. Districts are optional metadata used
// by resilience heatmaps; nodes and edges are the graph itself.
type File struct {
	Districts []District `yaml:"districts"`
	Nodes     []Node     `yaml:"nodes" validate:"required,dive"`
	Edges     []Edge     `yaml:"edges" validate:"dive"`
}

var validate = validator.New()

// LoadFile reads a topology from a YAML file and builds a store from it,
// returning the district catalog declared in the file alongside the graph.
// Any structural problem, including an edge referencing a missing node, is a
// fatal load-time error.
func LoadFile(path string) (*Store, []District, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("topology file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading topology file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("error parsing topology file: %w", err)
	}

	return Build(&file)
}

// Build validates a topology file and assembles a store.
func Build(file *File) (*Store, []District, error) {
	if err := validate.Struct(file); err != nil {
		return nil, nil, fmt.Errorf("invalid topology: %w", err)
	}

	store := NewStore()
	for i := range file.Nodes {
		node := file.Nodes[i]
		if !node.Location.Valid() {
			return nil, nil, fmt.Errorf("invalid topology: node %s has out-of-range coordinates", node.ID)
		}
		if err := store.AddNode(&node); err != nil {
			return nil, nil, err
		}
	}
	for i := range file.Edges {
		edge := file.Edges[i]
		if err := store.AddEdge(&edge); err != nil {
			return nil, nil, err
		}
	}
	return store, file.Districts, nil
}
