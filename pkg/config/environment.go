package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment represents a named gridtwin server deployment the CLI can
// point at.
type Environment struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Environments holds the known server deployments.
type Environments struct {
	Environments []Environment `yaml:"environments"`
	Selected     string        `yaml:"selected,omitempty"`
}

// LoadEnvironments loads environment configurations from the default location.
func LoadEnvironments() (*Environments, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".gridtwin", "environments.yaml")
	return LoadEnvironmentsFromFile(configPath)
}

// LoadEnvironmentsFromFile loads environment configurations from a specific file.
func LoadEnvironmentsFromFile(path string) (*Environments, error) {
	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultEnvironments(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var envs Environments
	if err := yaml.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &envs, nil
}

// SaveEnvironments saves the environment configuration.
func SaveEnvironments(envs *Environments) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".gridtwin")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "environments.yaml")
	data, err := yaml.Marshal(envs)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func defaultEnvironments() *Environments {
	return &Environments{
		Environments: []Environment{
			{
				Name: "Local",
				URL:  "http://localhost:8080",
			},
		},
	}
}
