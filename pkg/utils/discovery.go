package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sentinel-infra/gridtwin/pkg/simulation"
	"gopkg.in/yaml.v3"
)

// ScenarioInfo contains information about a discovered scenario
type ScenarioInfo struct {
	Path   string
	Config simulation.ScenarioConfig
}

// DiscoverScenarios finds all scenarios in the cmd directory
func DiscoverScenarios() ([]ScenarioInfo, error) {
	var scenarios []ScenarioInfo

	// Get the project root
	rootDir, err := findProjectRoot()
	if err != nil {
		return nil, err
	}

	cmdDir := filepath.Join(rootDir, "cmd")

	// Walk through cmd directory
	err = filepath.Walk(cmdDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Look for scenario.yaml files
		if info.Name() == "scenario.yaml" {
			scenInfo, err := loadScenarioConfig(path)
			if err != nil {
				// Log error but continue scanning
				fmt.Printf("Warning: failed to load %s: %v\n", path, err)
				return nil
			}
			scenarios = append(scenarios, *scenInfo)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan for scenarios: %w", err)
	}

	return scenarios, nil
}

// loadScenarioConfig loads a scenario configuration from a file
func loadScenarioConfig(path string) (*ScenarioInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario config: %w", err)
	}

	var config simulation.ScenarioConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse scenario config: %w", err)
	}

	return &ScenarioInfo{
		Path:   filepath.Dir(path),
		Config: config,
	}, nil
}

// findProjectRoot finds the project root by looking for go.mod
func findProjectRoot() (string, error) {
	// Start from current directory
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up until we find go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root without finding go.mod
			return "", fmt.Errorf("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}
